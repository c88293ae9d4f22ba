package utils

import (
	"fmt"
	"strings"
	"time"
)

// Layouts accepted for ride departure times, most specific first.
var departureLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// ParseDepartureTime reads an RFC 3339 timestamp or an HTML datetime-local
// value. Values without an offset are interpreted in loc.
func ParseDepartureTime(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if loc == nil {
		loc = time.Local
	}
	for i, layout := range departureLayouts {
		var (
			t   time.Time
			err error
		)
		if i == 0 {
			t, err = time.Parse(layout, value)
		} else {
			t, err = time.ParseInLocation(layout, value, loc)
		}
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q", value)
}
