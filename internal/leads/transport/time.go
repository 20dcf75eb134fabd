package transport

import (
	"fmt"
	"time"
)

// Callers submit wall-clock times in the business timezone, without an
// offset. Everything is stored and computed in UTC, so these are the only
// places a location conversion happens.
const businessTimeLayout = "2006-01-02T15:04:05"

// ParseBusinessTime parses a caller-supplied timestamp. An RFC 3339 value
// with an explicit offset is honored as-is; a bare wall-clock value is
// interpreted in the business location. The result is always UTC.
func ParseBusinessTime(value string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.ParseInLocation(businessTimeLayout, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: expected %s or RFC 3339", value, businessTimeLayout)
	}
	return t.UTC(), nil
}
