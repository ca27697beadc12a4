package timezone

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Day is the length of one calendar day in wall-clock terms.
const Day = 24 * time.Hour

// TimeOfDay returns the wall-clock offset of t from its own midnight.
func TimeOfDay(t time.Time) time.Duration {
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second +
		time.Duration(t.Nanosecond())
}

// ParseClock parses "HH:MM" or "HH:MM:SS". Hours up to 47 are accepted so a value such as "26:00"
// can express a time on the following day.
func ParseClock(raw string) (time.Duration, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time of day %q", raw)
	}
	limits := []int{47, 59, 59}
	units := []time.Duration{time.Hour, time.Minute, time.Second}
	var total time.Duration
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || n > limits[i] || len(part) > 2 {
			return 0, fmt.Errorf("invalid time of day %q", raw)
		}
		total += time.Duration(n) * units[i]
	}
	return total, nil
}

// FormatClock renders a time of day as "HH:mm".
func FormatClock(d time.Duration) string {
	minutes := int(d / time.Minute)
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
