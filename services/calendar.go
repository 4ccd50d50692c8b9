package services

import (
	"fmt"
	"time"

	"github.com/darezone/api/models"
)

// Calendar resolves "today" in the configured zone. now is swappable for tests.
type Calendar struct {
	loc *time.Location
	now func() time.Time
}

// NewCalendar loads tz (IANA name, "" means UTC).
func NewCalendar(tz string) (*Calendar, error) {
	loc := time.UTC
	if tz != "" && tz != "UTC" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("load timezone %q: %w", tz, err)
		}
		loc = l
	}
	return &Calendar{loc: loc, now: time.Now}, nil
}

// FixedCalendar returns a UTC calendar whose clock is driven by now.
func FixedCalendar(now func() time.Time) *Calendar {
	return &Calendar{loc: time.UTC, now: now}
}

// Now returns the current instant in UTC.
func (c *Calendar) Now() time.Time {
	return c.now().UTC()
}

// Today returns the current calendar day as YYYY-MM-DD.
func (c *Calendar) Today() string {
	return c.now().In(c.loc).Format(models.DateLayout)
}

// DayOf formats t as a calendar day in the configured zone.
func (c *Calendar) DayOf(t time.Time) string {
	return t.In(c.loc).Format(models.DateLayout)
}
