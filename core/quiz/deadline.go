package quiz

import (
	"errors"
	"time"
)

var (
	nowFunc = time.Now // mockable

	// bare layouts carry no zone and are read as UTC
	deadlineLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
	}

	ErrInvalidDeadline = errors.New("invalid deadline format")
)

// ParseDeadline parses s as RFC 3339, "YYYY-MM-DDTHH:MM[:SS]" or "YYYY-MM-DD HH:MM[:SS]".
// The result is in UTC.
func ParseDeadline(s string) (time.Time, error) {
	for _, layout := range deadlineLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, ErrInvalidDeadline
}
