// Package listener provides a Postgres LISTEN/NOTIFY consumer for snapshot
// promotion events. It holds a dedicated pgx connection (not from the pool)
// listening on the `snapshot_promoted` channel.
//
// When the compute CLI promotes a snapshot, the store fires pg_notify and
// this consumer flushes the API response cache, so a stale current-snapshot
// response never outlives its promotion.
package listener

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/hoopcombine/combine-data/internal/cache"
)

const (
	channel          = "snapshot_promoted"
	reconnectBackoff = 5 * time.Second
	maxReconnect     = 30 * time.Second
)

// PromotionEvent is the JSON payload from pg_notify('snapshot_promoted', ...).
type PromotionEvent struct {
	Cohort     string `json:"cohort"`
	Source     string `json:"source"`
	RunKey     string `json:"run_key"`
	SnapshotID int    `json:"snapshot_id"`
	Timestamp  int64  `json:"ts"`
}

// Start opens a dedicated connection and listens on the snapshot_promoted
// channel. It reconnects automatically on connection loss. Blocks until ctx
// is cancelled. Intended to be called with `go`.
func Start(ctx context.Context, dbURL string, appCache *cache.Cache, logger *slog.Logger) {
	backoff := reconnectBackoff

	for {
		err := listenLoop(ctx, dbURL, appCache, logger)
		if ctx.Err() != nil {
			logger.Info("Promotion listener stopped (context cancelled)")
			return
		}

		logger.Error("Promotion listener disconnected, reconnecting...",
			"error", err, "backoff", backoff)

		select {
		case <-time.After(backoff):
			backoff = min(backoff*2, maxReconnect)
		case <-ctx.Done():
			return
		}
	}
}

// listenLoop runs a single listen session. Returns when the connection drops
// or the context is cancelled.
func listenLoop(ctx context.Context, dbURL string, appCache *cache.Cache, logger *slog.Logger) error {
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	_, err = conn.Exec(ctx, "LISTEN "+channel)
	if err != nil {
		return fmt.Errorf("LISTEN %s: %w", channel, err)
	}
	logger.Info("Promotion listener connected", "channel", channel)

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}

		var event PromotionEvent
		if err := json.Unmarshal([]byte(notification.Payload), &event); err != nil {
			logger.Warn("Failed to parse promotion event",
				"payload", notification.Payload, "error", err)
			continue
		}

		appCache.Purge()
		logger.Info("Cache flushed after promotion",
			"cohort", event.Cohort,
			"source", event.Source,
			"run_key", event.RunKey,
			"snapshot_id", event.SnapshotID)
	}
}
