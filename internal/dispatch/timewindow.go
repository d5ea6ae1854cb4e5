package dispatch

import (
	"fmt"
	"strings"
	"time"
)

// TimeRestriction is one wall-clock window during which a rule's time
// predicate holds. Start and End are "HH:MM" strings evaluated in the
// contact's timezone; End before Start denotes an overnight window
// (e.g. 22:00-08:00). An empty Days list matches every day.
type TimeRestriction struct {
	Days  []string `json:"days,omitempty"`
	Start string   `json:"start"`
	End   string   `json:"end"`
}

// Contains reports whether the given local time falls inside the window.
// Malformed Start/End values make the window unmatchable rather than
// erroring; a rule misconfiguration must not abort dispatch.
func (tr TimeRestriction) Contains(local time.Time) bool {
	if !dayMatches(tr.Days, strings.ToLower(local.Weekday().String())) {
		return false
	}

	start, err := parseTimeOfDay(tr.Start)
	if err != nil {
		return false
	}
	end, err := parseTimeOfDay(tr.End)
	if err != nil {
		return false
	}

	nowMinutes := local.Hour()*60 + local.Minute()
	startMinutes := start.toMinutes()
	endMinutes := end.toMinutes()

	if startMinutes <= endMinutes {
		// Same-day window (e.g. 09:00-17:00).
		return nowMinutes >= startMinutes && nowMinutes < endMinutes
	}
	// Overnight window (e.g. 22:00-08:00).
	return nowMinutes >= startMinutes || nowMinutes < endMinutes
}

// timeOfDay represents a wall-clock time with hour and minute components.
type timeOfDay struct {
	hour   int
	minute int
}

// toMinutes converts a timeOfDay to minutes since midnight for comparison.
func (t timeOfDay) toMinutes() int {
	return t.hour*60 + t.minute
}

// parseTimeOfDay parses a "HH:MM" string into a timeOfDay.
func parseTimeOfDay(s string) (timeOfDay, error) {
	var h, m int
	n, err := fmt.Sscanf(s, "%d:%d", &h, &m)
	if err != nil || n != 2 {
		return timeOfDay{}, fmt.Errorf("expected HH:MM format, got %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return timeOfDay{}, fmt.Errorf("time out of range: %q", s)
	}
	return timeOfDay{hour: h, minute: m}, nil
}

// dayMatches checks if the current day name appears in the day list.
// Day names are compared case-insensitively. An empty days list matches all days.
func dayMatches(days []string, currentDay string) bool {
	if len(days) == 0 {
		// No day restriction means every day.
		return true
	}
	for _, d := range days {
		if strings.EqualFold(d, currentDay) {
			return true
		}
	}
	return false
}
