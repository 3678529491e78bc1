package policy

import (
	"fmt"
	"strings"
	"time"

	"github.com/rajapam/broker/internal/domain/model"
	apperrors "github.com/rajapam/broker/internal/errors"
)

// weekdayNames maps the lowercase three-letter day names used in access-rule
// metadata to time.Weekday.
var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// TimeWindowEvaluator computes the auto-disconnect deadline for a session
// from the access rule's allowed time windows. The deadline is computed once
// at session creation and is immutable afterwards.
type TimeWindowEvaluator struct {
	now func() time.Time
}

// NewTimeWindowEvaluator constructs a new TimeWindowEvaluator.
func NewTimeWindowEvaluator() *TimeWindowEvaluator {
	return &TimeWindowEvaluator{now: time.Now}
}

// Deadline returns the epoch-millisecond timestamp at which the session must
// be force-disconnected, or nil when the rule is unbounded.
//
// Rules with no windows are unbounded. When windows exist, the current time
// must fall inside one of them; the deadline is the end of that window.
// Malformed window metadata is an error and aborts session creation.
func (e *TimeWindowEvaluator) Deadline(meta model.AccessRuleMeta) (*int64, error) {
	if len(meta.TimeWindows) == 0 {
		return nil, nil
	}

	now := e.now()

	for i, window := range meta.TimeWindows {
		end, inside, err := e.evaluateWindow(window, now)
		if err != nil {
			return nil, fmt.Errorf("time window %d: %w", i, err)
		}
		if inside {
			millis := end.UnixMilli()
			return &millis, nil
		}
	}

	return nil, apperrors.PolicyDenied("Access not allowed at this time")
}

// evaluateWindow reports whether now falls inside the window and, if so, the
// window's end on the current day.
func (e *TimeWindowEvaluator) evaluateWindow(window model.TimeWindow, now time.Time) (time.Time, bool, error) {
	loc := time.UTC
	if window.TZ != "" {
		var err error
		loc, err = time.LoadLocation(window.TZ)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("invalid timezone %q: %w", window.TZ, err)
		}
	}

	local := now.In(loc)

	matched, err := matchesDay(window.Days, local.Weekday())
	if err != nil {
		return time.Time{}, false, err
	}
	if !matched {
		return time.Time{}, false, nil
	}

	startHour, startMin, err := parseClock(window.Start)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid start %q: %w", window.Start, err)
	}
	endHour, endMin, err := parseClock(window.End)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid end %q: %w", window.End, err)
	}

	year, month, day := local.Date()
	start := time.Date(year, month, day, startHour, startMin, 0, 0, loc)
	end := time.Date(year, month, day, endHour, endMin, 0, 0, loc)
	if !end.After(start) {
		return time.Time{}, false, fmt.Errorf("end %q is not after start %q", window.End, window.Start)
	}

	if local.Before(start) || !local.Before(end) {
		return time.Time{}, false, nil
	}
	return end, true, nil
}

func matchesDay(days []string, weekday time.Weekday) (bool, error) {
	if len(days) == 0 {
		return true, nil
	}
	for _, day := range days {
		wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(day))]
		if !ok {
			return false, fmt.Errorf("unknown day %q", day)
		}
		if wd == weekday {
			return true, nil
		}
	}
	return false, nil
}

// parseClock parses a wall-clock "HH:MM" string.
func parseClock(value string) (hour, minute int, err error) {
	parsed, err := time.Parse("15:04", strings.TrimSpace(value))
	if err != nil {
		return 0, 0, err
	}
	return parsed.Hour(), parsed.Minute(), nil
}
