package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Trigger decides when the next cycle fires.
type Trigger interface {
	// Next returns the first firing instant strictly after after.
	Next(after time.Time) time.Time
}

// Daily fires once per day at a fixed wall-clock time in a location.
type Daily struct {
	hour, minute, second int
	loc                  *time.Location
}

// DailyAt builds a daily trigger. A nil location means UTC.
func DailyAt(hour, minute, second int, loc *time.Location) (Daily, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 || second < 0 || second > 59 {
		return Daily{}, fmt.Errorf("invalid time of day %02d:%02d:%02d", hour, minute, second)
	}
	if loc == nil {
		loc = time.UTC
	}
	return Daily{hour: hour, minute: minute, second: second, loc: loc}, nil
}

// ParseDaily parses "HH:MM" or "HH:MM:SS" into a daily trigger.
func ParseDaily(clock string, loc *time.Location) (Daily, error) {
	parts := strings.Split(strings.TrimSpace(clock), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return Daily{}, fmt.Errorf("time of day %q must look like HH:MM", clock)
	}

	values := make([]int, 3)
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return Daily{}, fmt.Errorf("time of day %q: %w", clock, err)
		}
		values[i] = v
	}
	return DailyAt(values[0], values[1], values[2], loc)
}

// Next implements Trigger. On days where the wall-clock time does not exist
// (DST gaps) time.Date normalises it forward.
func (d Daily) Next(after time.Time) time.Time {
	local := after.In(d.loc)
	y, m, day := local.Date()

	next := time.Date(y, m, day, d.hour, d.minute, d.second, 0, d.loc)
	if !next.After(local) {
		next = time.Date(y, m, day+1, d.hour, d.minute, d.second, 0, d.loc)
	}
	return next
}

func (d Daily) String() string {
	return fmt.Sprintf("daily at %02d:%02d:%02d %s", d.hour, d.minute, d.second, d.loc)
}
