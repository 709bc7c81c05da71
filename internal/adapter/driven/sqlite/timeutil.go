package sqlite

import (
	"fmt"
	"time"
)

// now is replaced in tests that need stable timestamps.
var now = time.Now

// timeFormat is the layout used for every timestamp column written by this package.
const timeFormat = time.RFC3339Nano

// parseTime parses timestamps written either by this package or by SQLite's
// CURRENT_TIMESTAMP default.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.000",
		time.RFC3339,
		time.RFC3339Nano,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}
