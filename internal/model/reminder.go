package model

import (
	"fmt"
	"time"
)

// ReminderKind selects how custom reminder instants were produced.
type ReminderKind string

const (
	ReminderSingle   ReminderKind = "single"
	ReminderMultiple ReminderKind = "multiple"
)

func (k ReminderKind) IsValid() bool {
	return k == ReminderSingle || k == ReminderMultiple
}

// CustomReminder overrides the due date with one or more independent instants.
type CustomReminder struct {
	Type  ReminderKind `json:"type"`
	Times []string     `json:"times"`
	Time  string       `json:"time"`
}

func (c CustomReminder) Validate() error {
	if !c.Type.IsValid() {
		return invalid("custom_reminder.type", "unknown value %q", c.Type)
	}
	for _, raw := range c.Times {
		if _, err := ParseWallClock(raw, time.UTC); err != nil {
			return invalid("custom_reminder.times", "%q is not YYYY-MM-DD HH:MM", raw)
		}
	}
	if c.Time != "" {
		if _, err := time.Parse(ClockLayout, c.Time); err != nil {
			return invalid("custom_reminder.time", "%q is not HH:MM", c.Time)
		}
	}
	return nil
}

// Clone returns a copy with its own Times slice.
func (c CustomReminder) Clone() CustomReminder {
	if c.Times != nil {
		c.Times = append(make([]string, 0, len(c.Times)), c.Times...)
	}
	return c
}

// Instants parses every occurrence in loc, skipping unreadable entries.
func (c CustomReminder) Instants(loc *time.Location) []time.Time {
	out := make([]time.Time, 0, len(c.Times))
	for _, raw := range c.Times {
		t, err := ParseWallClock(raw, loc)
		if err != nil {
			continue
		}
		out = append(out, t)
	}
	return out
}

// RemoveTime drops every occurrence equal to instant and reports whether one was found.
func (c *CustomReminder) RemoveTime(instant string) bool {
	kept := c.Times[:0]
	removed := false
	for _, raw := range c.Times {
		if raw == instant {
			removed = true
			continue
		}
		kept = append(kept, raw)
	}
	c.Times = kept
	return removed
}

// BuildCustomReminder produces a reminder at date+clock for ReminderSingle, or one
// instant per entry of daysBefore (days ahead of due, at clock) for ReminderMultiple.
func BuildCustomReminder(kind ReminderKind, due, date time.Time, clock string, daysBefore []int) (CustomReminder, error) {
	at, err := time.Parse(ClockLayout, clock)
	if err != nil {
		return CustomReminder{}, invalid("custom_reminder.time", "%q is not HH:MM", clock)
	}
	withClock := func(day time.Time) string {
		y, m, d := day.Date()
		return FormatWallClock(time.Date(y, m, d, at.Hour(), at.Minute(), 0, 0, day.Location()))
	}

	out := CustomReminder{Type: kind, Time: clock}
	switch kind {
	case ReminderSingle:
		if date.IsZero() {
			return CustomReminder{}, invalid("custom_reminder.times", "a date is required")
		}
		out.Times = []string{withClock(date)}
	case ReminderMultiple:
		if due.IsZero() {
			return CustomReminder{}, invalid("due_date", "is required for day offsets")
		}
		for _, n := range daysBefore {
			if n <= 0 {
				return CustomReminder{}, invalid("custom_reminder.times", "day offset %d must be positive", n)
			}
			out.Times = append(out.Times, withClock(due.AddDate(0, 0, -n)))
		}
	default:
		return CustomReminder{}, fmt.Errorf("%w: %q", ErrValidation, kind)
	}
	if len(out.Times) == 0 {
		return CustomReminder{}, invalid("custom_reminder.times", "at least one occurrence is required")
	}
	return out, nil
}
