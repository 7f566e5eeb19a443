// Package store persists availability records with replace-on-write
// semantics and a TTL the external reaper enforces.
package store

import (
	"context"
	"strings"
	"time"
)

// Record is the persisted unit: one theme's bookable slots for one date.
// An empty AvailableTimes means "confirmed no slots", which is distinct from
// the record not existing at all.
type Record struct {
	Brand          string
	Location       string
	Branch         string
	Title          string
	NumericID      int
	Date           string
	AvailableTimes []string
	UpdatedAt      time.Time
	ExpireAt       time.Time
}

// Key is the composite identity a record lives under. At most one live
// record exists per key; later writes fully replace earlier ones.
type Key struct {
	Brand  string
	Title  string
	Date   string
	Branch string
}

// KeyOf derives the normalized composite key for a record. Case and
// whitespace are normalized here, at write time, so records written from
// differently-decorated scrapes of the same theme collapse onto one key.
func KeyOf(r Record) Key {
	return Key{
		Brand:  normalizeKeyField(r.Brand),
		Title:  normalizeKeyField(r.Title),
		Date:   strings.TrimSpace(r.Date),
		Branch: normalizeKeyField(r.Branch),
	}
}

func normalizeKeyField(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// Store is the upsert sink the pipeline writes into. Implementations must
// be safe for concurrent upserts from multiple site tasks; same-key writes
// apply last-writer-wins with no merging.
type Store interface {
	// Upsert writes the record under its composite key, replacing any
	// previous record, and stamps UpdatedAt/ExpireAt.
	Upsert(ctx context.Context, record Record) error
	// Close releases backend resources.
	Close()
}
