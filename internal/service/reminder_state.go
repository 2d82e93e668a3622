package service

import (
	"sort"
	"time"

	"task-reminder/internal/model"
)

type occurrence struct {
	taskID  int
	instant string
}

// reminderState is the process-local reminder bookkeeping. It is guarded by the
// TaskService mutex and never persisted.
type reminderState struct {
	// active holds tasks whose fired reminder is not yet acknowledged.
	active map[int]bool
	// delivered holds custom occurrences that already fired.
	delivered map[occurrence]bool
}

func newReminderState() reminderState {
	return reminderState{
		active:    make(map[int]bool),
		delivered: make(map[occurrence]bool),
	}
}

// fire adds id to the active set. It reports false when id was already active.
func (r *reminderState) fire(id int) bool {
	if r.active[id] {
		return false
	}
	r.active[id] = true
	return true
}

// ack removes id from the active set and reports whether it was there.
func (r *reminderState) ack(id int) bool {
	if !r.active[id] {
		return false
	}
	delete(r.active, id)
	return true
}

func (r *reminderState) isActive(id int) bool {
	return r.active[id]
}

func (r *reminderState) ids() []int {
	out := make([]int, 0, len(r.active))
	for id := range r.active {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

func (r *reminderState) deliver(id int, instant string) {
	r.delivered[occurrence{taskID: id, instant: instant}] = true
}

func (r *reminderState) wasDelivered(id int, instant string) bool {
	return r.delivered[occurrence{taskID: id, instant: instant}]
}

func (r *reminderState) forgetOccurrence(id int, instant string) {
	delete(r.delivered, occurrence{taskID: id, instant: instant})
}

// forget drops everything known about id.
func (r *reminderState) forget(id int) {
	delete(r.active, id)
	for occ := range r.delivered {
		if occ.taskID == id {
			delete(r.delivered, occ)
		}
	}
}

// TriggerSource names the rule that produced a trigger time.
type TriggerSource string

const (
	TriggerSnooze TriggerSource = "snooze"
	TriggerCustom TriggerSource = "custom"
	TriggerDue    TriggerSource = "due"
)

// Trigger is the instant a task's reminder becomes due.
type Trigger struct {
	At     time.Time
	Source TriggerSource
	// Instant is the custom occurrence text for TriggerCustom.
	Instant string
}

// effectiveTrigger picks a pending snooze first, then the earliest custom occurrence
// that has not fired yet, then the due date. ok is false when nothing can fire,
// including when the relevant date is unreadable.
func effectiveTrigger(task model.Task, loc *time.Location, state *reminderState) (Trigger, bool) {
	if task.NextReminder != "" {
		next, _, err := task.Next(loc)
		if err != nil {
			return Trigger{}, false
		}
		return Trigger{At: next, Source: TriggerSnooze}, true
	}

	if task.HasCustomReminder() {
		var best Trigger
		found := false
		for _, raw := range task.CustomReminder.Times {
			if state.wasDelivered(task.ID, raw) {
				continue
			}
			at, err := model.ParseWallClock(raw, loc)
			if err != nil {
				continue
			}
			if !found || at.Before(best.At) {
				best = Trigger{At: at, Source: TriggerCustom, Instant: raw}
				found = true
			}
		}
		return best, found
	}

	due, err := task.Due(loc)
	if err != nil {
		return Trigger{}, false
	}
	return Trigger{At: due, Source: TriggerDue}, true
}
