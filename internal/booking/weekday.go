package booking

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar date format used across the API.
const DateLayout = "2006-01-02"

// ParseDate parses a "2006-01-02" calendar date as midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return d, nil
}

// WeekdayName returns the English weekday name of the date, e.g. "Monday".
func WeekdayName(date time.Time) string {
	return date.Weekday().String()
}

// ParseWeekday canonicalises a weekday name ("monday" -> "Monday").
func ParseWeekday(s string) (string, error) {
	s = strings.TrimSpace(s)
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), s) {
			return d.String(), nil
		}
	}
	return "", fmt.Errorf("invalid day_of_week %q", s)
}
