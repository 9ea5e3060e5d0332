package cache

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestCache(t *testing.T) {
	Convey("Given an enabled cache", t, func() {
		c := New(true)

		Convey("Set then Get round-trips data and etag", func() {
			etag := c.Set("k", []byte(`{"a":1}`), time.Minute)
			So(etag, ShouldNotBeEmpty)

			data, gotETag, ok := c.Get("k")
			So(ok, ShouldBeTrue)
			So(string(data), ShouldEqual, `{"a":1}`)
			So(gotETag, ShouldEqual, etag)
		})

		Convey("Expired entries are not returned", func() {
			c.Set("k", []byte("x"), -time.Second)
			_, _, ok := c.Get("k")
			So(ok, ShouldBeFalse)
		})

		Convey("Purge drops every entry", func() {
			c.Set("a", []byte("1"), time.Minute)
			c.Set("b", []byte("2"), time.Minute)
			c.Purge()
			_, _, ok := c.Get("a")
			So(ok, ShouldBeFalse)
			stats := c.Stats()
			So(stats["total_keys"], ShouldEqual, 0)
		})
	})

	Convey("Given a disabled cache", t, func() {
		c := New(false)

		Convey("Get always misses but Set still returns an etag", func() {
			etag := c.Set("k", []byte("x"), time.Minute)
			So(etag, ShouldNotBeEmpty)
			_, _, ok := c.Get("k")
			So(ok, ShouldBeFalse)
		})
	})
}

func TestETags(t *testing.T) {
	Convey("Given response bytes", t, func() {
		Convey("ComputeETag is stable and weak-form", func() {
			a := ComputeETag([]byte("payload"))
			b := ComputeETag([]byte("payload"))
			So(a, ShouldEqual, b)
			So(a, ShouldStartWith, `W/"`)
			So(ComputeETag([]byte("other")), ShouldNotEqual, a)
		})

		Convey("CheckETagMatch handles empty, wildcard, and exact", func() {
			etag := ComputeETag([]byte("payload"))
			So(CheckETagMatch("", etag), ShouldBeFalse)
			So(CheckETagMatch("*", etag), ShouldBeTrue)
			So(CheckETagMatch(etag, etag), ShouldBeTrue)
			So(CheckETagMatch(`W/"deadbeef"`, etag), ShouldBeFalse)
		})
	})
}
