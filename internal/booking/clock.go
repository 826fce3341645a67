package booking

import (
	"fmt"
	"strings"
	"time"
)

// Clock is a wall-clock time of day with second precision.
type Clock int

const secondsPerDay = 24 * 60 * 60

var clockLayouts = []string{"15:04:05", "15:04"}

// ParseClock accepts "15:04" or "15:04:05".
func ParseClock(s string) (Clock, error) {
	s = strings.TrimSpace(s)
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Clock(t.Hour()*3600 + t.Minute()*60 + t.Second()), nil
		}
	}
	return 0, fmt.Errorf("invalid time %q, expected HH:MM or HH:MM:SS", s)
}

// ClockOf returns the time of day of t in t's location.
func ClockOf(t time.Time) Clock {
	return Clock(t.Hour()*3600 + t.Minute()*60 + t.Second())
}

// String formats the clock as "15:04:05", the stored representation.
func (c Clock) String() string {
	c = c % secondsPerDay
	return fmt.Sprintf("%02d:%02d:%02d", int(c)/3600, (int(c)%3600)/60, int(c)%60)
}

// Within reports whether c lies in the half-open window [start, end).
func (c Clock) Within(start, end Clock) bool {
	return start <= c && c < end
}

// On combines the clock with a calendar date in loc.
func (c Clock) On(date time.Time, loc *time.Location) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, int(c)/3600, (int(c)%3600)/60, int(c)%60, 0, loc)
}
