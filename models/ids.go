package models

import (
	"time"

	"github.com/google/uuid"
)

// DateLayout is the calendar-day format used for every date column.
const DateLayout = "2006-01-02"

func newID() string {
	return uuid.NewString()
}

// ParseDate parses a YYYY-MM-DD string in UTC.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// DaysBetween returns the number of calendar days from a to b (b - a). Both must be YYYY-MM-DD.
func DaysBetween(a, b string) (int, error) {
	ta, err := ParseDate(a)
	if err != nil {
		return 0, err
	}
	tb, err := ParseDate(b)
	if err != nil {
		return 0, err
	}
	return int(tb.Sub(ta).Hours() / 24), nil
}
