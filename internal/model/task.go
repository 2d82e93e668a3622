package model

import (
	"fmt"
	"strings"
	"time"
)

// Wall-clock layouts used for every stored timestamp. Values carry no zone and are
// interpreted in the caller's location.
const (
	DateTimeLayout = "2006-01-02 15:04"
	DateLayout     = "2006-01-02"
	ClockLayout    = "15:04"
)

// ReminderCustom marks a task whose reminder instants come from CustomReminder.
const ReminderCustom = "custom"

// DefaultReminderTime is assigned to new tasks that do not choose one.
const DefaultReminderTime = "15 min"

var reminderOffsets = map[string]time.Duration{
	"5 min":  5 * time.Minute,
	"15 min": 15 * time.Minute,
	"30 min": 30 * time.Minute,
	"1 hour": time.Hour,
	"1 day":  24 * time.Hour,
}

// ReminderTimes lists the standard reminder tokens in display order.
var ReminderTimes = []string{"5 min", "15 min", "30 min", "1 hour", "1 day"}

// ReminderOffset returns the lead time a standard token describes. It is shown to
// users only; reminders fire at the due date itself.
func ReminderOffset(token string) (time.Duration, bool) {
	d, ok := reminderOffsets[token]
	return d, ok
}

func validReminderTime(token string) bool {
	if token == "" || token == ReminderCustom {
		return true
	}
	_, ok := reminderOffsets[token]
	return ok
}

// Task represents a single item in the planner.
type Task struct {
	ID              int             `json:"id"`
	Name            string          `json:"name"`
	DueDate         string          `json:"due_date"`
	Status          Status          `json:"status"`
	Category        Category        `json:"category"`
	Priority        Priority        `json:"priority"`
	Notes           string          `json:"notes"`
	ReminderEnabled bool            `json:"reminder_enabled"`
	ReminderTime    string          `json:"reminder_time"`
	CustomReminder  *CustomReminder `json:"custom_reminder,omitempty"`
	NextReminder    string          `json:"next_reminder,omitempty"`
}

// ParseWallClock parses a "YYYY-MM-DD HH:MM" value in loc.
func ParseWallClock(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateTimeLayout, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is not %s", ErrParse, value, "YYYY-MM-DD HH:MM")
	}
	return t, nil
}

// FormatWallClock renders t with minute precision.
func FormatWallClock(t time.Time) string {
	return t.Format(DateTimeLayout)
}

// Due parses the task due date in loc.
func (t Task) Due(loc *time.Location) (time.Time, error) {
	return ParseWallClock(t.DueDate, loc)
}

// Next parses a pending snooze instant. ok is false when no snooze is set.
func (t Task) Next(loc *time.Location) (time.Time, bool, error) {
	if t.NextReminder == "" {
		return time.Time{}, false, nil
	}
	next, err := ParseWallClock(t.NextReminder, loc)
	if err != nil {
		return time.Time{}, false, err
	}
	return next, true, nil
}

func (t Task) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return invalid("name", "is required")
	}
	if strings.TrimSpace(t.DueDate) == "" {
		return invalid("due_date", "is required")
	}
	if _, err := ParseWallClock(t.DueDate, time.UTC); err != nil {
		return invalid("due_date", "%q is not YYYY-MM-DD HH:MM", t.DueDate)
	}
	if !t.Status.IsValid() {
		return invalid("status", "unknown value %q", t.Status)
	}
	if !t.Category.IsValid() {
		return invalid("category", "unknown value %q", t.Category)
	}
	if !t.Priority.IsValid() {
		return invalid("priority", "unknown value %q", t.Priority)
	}
	if !validReminderTime(t.ReminderTime) {
		return invalid("reminder_time", "unknown value %q", t.ReminderTime)
	}
	if t.NextReminder != "" {
		if _, err := ParseWallClock(t.NextReminder, time.UTC); err != nil {
			return invalid("next_reminder", "%q is not YYYY-MM-DD HH:MM", t.NextReminder)
		}
	}
	if t.ReminderTime == ReminderCustom && t.ReminderEnabled {
		if t.CustomReminder == nil || len(t.CustomReminder.Times) == 0 {
			return invalid("custom_reminder", "times are required for a custom reminder")
		}
	}
	if t.CustomReminder != nil {
		if err := t.CustomReminder.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplyDefaults fills omitted fields with the values a new task starts with.
func (t *Task) ApplyDefaults() {
	t.Status = t.Status.OrDefault()
	t.Category = t.Category.OrDefault()
	t.Priority = t.Priority.OrDefault()
	if t.ReminderTime == "" && t.CustomReminder == nil {
		t.ReminderTime = DefaultReminderTime
	}
}

// HasCustomReminder reports whether reminders come from CustomReminder.Times.
func (t Task) HasCustomReminder() bool {
	return t.ReminderTime == ReminderCustom && t.ReminderEnabled &&
		t.CustomReminder != nil && len(t.CustomReminder.Times) > 0
}

// DemoteEmptyCustomReminder turns reminders off once a custom reminder has no
// occurrences left. It reports whether the task changed.
func (t *Task) DemoteEmptyCustomReminder() bool {
	if t.CustomReminder == nil || len(t.CustomReminder.Times) > 0 {
		return false
	}
	t.ReminderEnabled = false
	t.ReminderTime = ""
	t.CustomReminder = nil
	return true
}

func (t Task) IsCompleted() bool {
	return t.Status == StatusCompleted
}

// IsOverdue reports a pending task whose due date lies before now. Tasks with an
// unreadable due date are never overdue.
func (t Task) IsOverdue(now time.Time) bool {
	if t.IsCompleted() {
		return false
	}
	due, err := t.Due(now.Location())
	if err != nil {
		return false
	}
	return now.After(due)
}

// Clone returns a copy that shares no slices or pointers with t.
func (t Task) Clone() Task {
	out := t
	if t.CustomReminder != nil {
		cr := t.CustomReminder.Clone()
		out.CustomReminder = &cr
	}
	return out
}

// ShareText renders the plain-text summary of a task.
func (t Task) ShareText() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Task: %s\n", t.Name)
	fmt.Fprintf(&sb, "Due Date: %s\n", t.DueDate)
	fmt.Fprintf(&sb, "Status: %s\n", t.Status.OrDefault())
	fmt.Fprintf(&sb, "Category: %s\n", t.Category.OrDefault())
	fmt.Fprintf(&sb, "Priority: %s\n", t.Priority.OrDefault())
	fmt.Fprintf(&sb, "Notes: %s", t.Notes)
	return sb.String()
}
