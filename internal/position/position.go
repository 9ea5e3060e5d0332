// Package position normalizes free-text position strings into canonical
// fine-grained codes and parent-group memberships, and resolves user-supplied
// scope tokens into typed scope descriptors.
package position

import (
	"fmt"
	"slices"
	"strings"
)

// Parent group codes.
const (
	ParentGuard   = "guard"
	ParentWing    = "wing"
	ParentForward = "forward"
	ParentBig     = "big"
)

// canonicalOrder fixes the sort order of base tokens inside a fine code, so
// "SG/PG" and "PG-SG" both normalize to pg_sg.
var canonicalOrder = []string{"PG", "SG", "SF", "PF", "C", "G", "F"}

// aliases maps normalized raw tokens to base position tokens.
var aliases = map[string]string{
	"PG": "PG", "POINT": "PG", "POINT GUARD": "PG",
	"SG": "SG", "SHOOTING GUARD": "SG",
	"SF": "SF", "SMALL FORWARD": "SF",
	"PF": "PF", "POWER FORWARD": "PF",
	"C": "C", "CENTER": "C",
	"G": "G", "GUARD": "G",
	"F": "F", "FORWARD": "F",
}

// baseParents maps base tokens to their parent groups.
var baseParents = map[string][]string{
	"PG": {ParentGuard},
	"SG": {ParentGuard},
	"G":  {ParentGuard},
	"SF": {ParentWing, ParentForward},
	"PF": {ParentForward, ParentBig},
	"C":  {ParentBig},
	"F":  {ParentForward},
}

// scopeAliases maps parent-group scope tokens to parent codes.
var scopeAliases = map[string]string{
	"guard": ParentGuard, "guards": ParentGuard, "g": ParentGuard,
	"wing": ParentWing, "wings": ParentWing, "w": ParentWing,
	"forward": ParentForward, "forwards": ParentForward, "fwd": ParentForward, "f": ParentForward,
	"big": ParentBig, "bigs": ParentBig, "b": ParentBig,
}

// DeriveTags normalizes a free-text position string into a canonical fine
// code and its parent groups. Blank or unparseable input yields ("", nil),
// never an error: raw combine data is full of junk strings and a bad position
// must not abort a load.
func DeriveTags(raw string) (fine string, parents []string) {
	bases := parseBases(raw)
	if len(bases) == 0 {
		return "", nil
	}
	fine = strings.ToLower(strings.Join(bases, "_"))
	return fine, ParentsForFine(fine)
}

// ParentsForFine returns the sorted union of parent groups for a fine code.
func ParentsForFine(fine string) []string {
	if fine == "" {
		return nil
	}
	set := map[string]struct{}{}
	for _, base := range strings.Split(strings.ToUpper(fine), "_") {
		for _, p := range baseParents[base] {
			set[p] = struct{}{}
		}
	}
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

// parseBases tokenizes raw position text and maps each token through the
// alias table, deduplicating and sorting into canonical order.
func parseBases(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	// Split on "/", "-", and the literal word "and".
	norm := strings.ToUpper(raw)
	norm = strings.ReplaceAll(norm, "/", "|")
	norm = strings.ReplaceAll(norm, "-", "|")
	norm = strings.ReplaceAll(norm, " AND ", "|")

	seen := map[string]struct{}{}
	for _, tok := range strings.Split(norm, "|") {
		tok = strings.TrimSpace(tok)
		if base, ok := aliases[tok]; ok {
			seen[base] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return nil
	}

	bases := make([]string, 0, len(seen))
	for _, base := range canonicalOrder {
		if _, ok := seen[base]; ok {
			bases = append(bases, base)
		}
	}
	return bases
}

// --------------------------------------------------------------------------
// Scope resolution
// --------------------------------------------------------------------------

// ScopeKind distinguishes fine-code scopes from parent-group scopes.
type ScopeKind string

const (
	ScopeFine   ScopeKind = "fine"
	ScopeParent ScopeKind = "parent"
)

// Scope selects players by exact fine code or by parent-group membership.
// The zero Scope means "all positions".
type Scope struct {
	Kind  ScopeKind
	Value string
}

// IsZero reports whether the scope is the unscoped "all positions" baseline.
func (s Scope) IsZero() bool { return s.Value == "" }

// Matches reports whether a player with the given fine code and parent list
// falls inside the scope. The zero scope matches everything.
func (s Scope) Matches(fine string, parents []string) bool {
	switch s.Kind {
	case ScopeFine:
		return fine == s.Value
	case ScopeParent:
		return slices.Contains(parents, s.Value)
	default:
		return true
	}
}

// String returns the scope token, or "all" for the zero scope.
func (s Scope) String() string {
	if s.IsZero() {
		return "all"
	}
	return s.Value
}

// ResolveScope resolves a user-supplied scope token. Parent-group aliases win
// over fine-code derivation (so "g" means the guard group, not the G code).
// An empty token resolves to the zero scope; a non-empty token that resolves
// neither way is a validation error.
func ResolveScope(token string) (Scope, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Scope{}, nil
	}

	if parent, ok := scopeAliases[strings.ToLower(token)]; ok {
		return Scope{Kind: ScopeParent, Value: parent}, nil
	}

	if fine, _ := DeriveTags(token); fine != "" {
		return Scope{Kind: ScopeFine, Value: fine}, nil
	}

	return Scope{}, fmt.Errorf("unknown position scope %q", token)
}

// PresetScopeTokens returns the fixed sweep list for a scope kind, used to
// drive full matrix computation runs.
func PresetScopeTokens(kind ScopeKind) []string {
	switch kind {
	case ScopeParent:
		return []string{ParentGuard, ParentWing, ParentForward, ParentBig}
	case ScopeFine:
		return []string{"pg", "sg", "sf", "pf", "c", "pg_sg", "sg_sf", "sf_pf", "pf_c"}
	default:
		return nil
	}
}
