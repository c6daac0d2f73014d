package core

import (
	"math"
	"strings"
	"time"
)

// ShanyrakID uniquely identifies a shanyrak (school house/team).
type ShanyrakID string

// Shanyrak is a snapshot of a house's ledger state. Callers never mutate
// snapshots in place; storage adapters return fresh copies.
type Shanyrak struct {
	ID      ShanyrakID `json:"id" db:"id"`
	Name    string     `json:"name" db:"name"`
	Color   string     `json:"color" db:"color"`
	Points  int64      `json:"points" db:"points"`
	Members int64      `json:"members" db:"members"`
	// Seq is the creation sequence number. Leaderboard ties on equal points
	// break by Seq ascending, so ordering stays deterministic.
	Seq     int64     `json:"-" db:"seq"`
	Created time.Time `json:"created" db:"created_at"`
	Updated time.Time `json:"updated" db:"updated_at"`
}

// AddSafe adds delta to base ensuring no signed overflow occurs.
func AddSafe(base int64, delta int64) (int64, error) {
	if (delta > 0 && base > math.MaxInt64-delta) || (delta < 0 && base < math.MinInt64-delta) {
		return 0, Internalf("integer overflow adding %d to %d", delta, base)
	}
	return base + delta, nil
}

// NormalizeName trims a shanyrak name and rejects empty results.
func NormalizeName(name string) (string, error) {
	s := strings.TrimSpace(name)
	if s == "" {
		return "", Invalidf("name must not be empty")
	}
	return s, nil
}

// NormalizeColor trims a color tag and rejects empty results. The color is a
// presentation tag only; no format beyond non-empty is enforced.
func NormalizeColor(color string) (string, error) {
	s := strings.TrimSpace(color)
	if s == "" {
		return "", Invalidf("color must not be empty")
	}
	return s, nil
}

// ValidateID rejects blank identifiers before they reach storage.
func ValidateID(id ShanyrakID) error {
	if strings.TrimSpace(string(id)) == "" {
		return Invalidf("id must not be empty")
	}
	return nil
}
