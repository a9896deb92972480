package store

import (
	"fmt"
	"time"
)

// parseTimestamp parses a persisted timestamp, assuming UTC if the
// stored value arrives without a timezone (spec §9 "Timezone hygiene").
func parseTimestamp(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	// SQLite's own datetime('now') default format, naive (no zone).
	if t, err := time.Parse("2006-01-02 15:04:05", raw); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format: %q", raw)
}
