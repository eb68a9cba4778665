// Package clock holds the civil-calendar policy used for every "daily" rule:
// duplicate progress checks, stage windows, the skip sweeper and reminders.
//
// Civil dates are carried as time.Time values at 00:00 UTC of the civil
// Y-M-D, so they compare, format and store without zone ambiguity.
package clock

import (
	"fmt"
	"math"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// Calendar resolves instants to civil days in a single configured zone.
type Calendar struct {
	loc *time.Location
	now func() time.Time
}

// New returns a calendar backed by the system clock.
func New(loc *time.Location) *Calendar {
	return NewWithClock(loc, time.Now)
}

// NewWithClock returns a calendar with an injected time source.
func NewWithClock(loc *time.Location, now func() time.Time) *Calendar {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Calendar{loc: loc, now: now}
}

// ParseZone accepts either a fixed offset ("+07:00", "-03:30", "+7") or an
// IANA zone name ("Asia/Ho_Chi_Minh").
func ParseZone(value string) (*time.Location, error) {
	value = strings.TrimSpace(value)
	if value == "" || strings.EqualFold(value, "UTC") {
		return time.UTC, nil
	}
	if value[0] == '+' || value[0] == '-' {
		sign := 1
		if value[0] == '-' {
			sign = -1
		}
		var hours, minutes int
		body := value[1:]
		if strings.Contains(body, ":") {
			if _, err := fmt.Sscanf(body, "%d:%d", &hours, &minutes); err != nil {
				return nil, fmt.Errorf("invalid offset %q: %w", value, err)
			}
		} else if _, err := fmt.Sscanf(body, "%d", &hours); err != nil {
			return nil, fmt.Errorf("invalid offset %q: %w", value, err)
		}
		if hours > 14 || minutes < 0 || minutes > 59 {
			return nil, fmt.Errorf("invalid offset %q", value)
		}
		offset := sign * (hours*3600 + minutes*60)
		return time.FixedZone("UTC"+value, offset), nil
	}
	loc, err := time.LoadLocation(value)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", value, err)
	}
	return loc, nil
}

func (c *Calendar) Location() *time.Location {
	return c.loc
}

func (c *Calendar) Now() time.Time {
	return c.now().UTC()
}

// Window returns [start, end) as UTC instants bounding the civil day that
// contains t.
func (c *Calendar) Window(t time.Time) (time.Time, time.Time) {
	local := t.In(c.loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, c.loc)
	end := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, c.loc)
	return start.UTC(), end.UTC()
}

// TodayWindow is Window for the current instant.
func (c *Calendar) TodayWindow() (time.Time, time.Time) {
	return c.Window(c.now())
}

// DateOf returns the civil date containing t.
func (c *Calendar) DateOf(t time.Time) time.Time {
	local := t.In(c.loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

// Today returns the current civil date.
func (c *Calendar) Today() time.Time {
	return c.DateOf(c.now())
}

// Hour returns the civil hour of the current instant.
func (c *Calendar) Hour() int {
	return c.now().In(c.loc).Hour()
}

// Date builds a civil date value.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses YYYY-MM-DD into a civil date value.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return d, nil
}

// FormatDate renders a civil date as YYYY-MM-DD.
func FormatDate(d time.Time) string {
	return d.Format(DateLayout)
}

// AddDays shifts a civil date by n days.
func AddDays(d time.Time, n int) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day()+n, 0, 0, 0, 0, time.UTC)
}

// SpanDays is the inclusive day count of [start, end]. It is 0 when end
// precedes start.
func SpanDays(start, end time.Time) int {
	days := int(math.Round(end.Sub(start).Hours()/24)) + 1
	if days < 0 {
		return 0
	}
	return days
}
