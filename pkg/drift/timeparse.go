package drift

import (
	"fmt"
	"strings"
	"time"
)

// Accepted timestamp layouts. Fractional seconds are accepted after any
// layout that ends in seconds. Zone-less values are read as UTC; zoned
// values are converted to UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05Z0700",
	"2006-01-02T15:04Z07:00",
	"2006-01-02 15:04Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
	// JPL Horizons calendar format, e.g. "2025-Oct-01 00:00:00.0000"
	"2006-Jan-02 15:04:05",
	"2006-Jan-02 15:04",
	"2006-Jan-02",
}

// ParseTime parses an ISO-8601 style timestamp.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "A.D. ")
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}

	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}
