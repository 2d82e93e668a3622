package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"pgregory.net/rapid"

	"task-reminder/internal/model"
)

func newTestReminders(t *testing.T, dismiss time.Duration, tasks ...model.Task) (*ReminderService, *TaskService, *recordingNotifier, *fakeClock) {
	t.Helper()
	store, _ := newTestStore(t, tasks...)
	notifier := &recordingNotifier{}
	clock := &fakeClock{now: at("2024-01-10 09:01")}
	svc := NewReminderService(store, notifier, discardLogger(), ReminderOptions{
		DismissSnooze: dismiss,
		Now:           clock.Now,
	})
	return svc, store, notifier, clock
}

func TestTickFiresOnceUntilAcknowledged(t *testing.T) {
	svc, _, notifier, _ := newTestReminders(t, 0, pendingTask(1, "Pay rent", "2024-01-10 09:00"))
	ctx := context.Background()

	fired := svc.Tick(ctx, at("2024-01-10 09:01"))
	if len(fired) != 1 || fired[0].TaskID != 1 || fired[0].Trigger.Source != TriggerDue {
		t.Fatalf("expected one due-date reminder, got %+v", fired)
	}
	if !reflect.DeepEqual(svc.Active(), []int{1}) {
		t.Fatalf("expected task 1 active, got %v", svc.Active())
	}

	if again := svc.Tick(ctx, at("2024-01-10 09:02")); len(again) != 0 {
		t.Fatalf("duplicate reminder fired: %+v", again)
	}
	if notifier.count() != 1 || !svc.IsActive(1) {
		t.Fatalf("expected a single notification and task still active")
	}
}

func TestTickSkipsFutureCompletedAndBrokenTasks(t *testing.T) {
	done := pendingTask(2, "done", "2024-01-10 08:00")
	done.Status = model.StatusCompleted
	svc, _, _, _ := newTestReminders(t, 0,
		pendingTask(1, "later", "2024-01-10 10:00"),
		done,
		pendingTask(3, "broken", "whenever"),
	)

	if fired := svc.Tick(context.Background(), at("2024-01-10 09:01")); len(fired) != 0 {
		t.Fatalf("nothing should fire, got %+v", fired)
	}
}

func TestCompleteIsIdempotent(t *testing.T) {
	svc, store, _, _ := newTestReminders(t, 0, pendingTask(1, "Pay rent", "2024-01-10 09:00"))
	ctx := context.Background()
	svc.Tick(ctx, at("2024-01-10 09:01"))

	for i := 0; i < 2; i++ {
		task, err := svc.Complete(ctx, 1)
		if err != nil {
			t.Fatalf("complete #%d: %v", i+1, err)
		}
		if task.Status != model.StatusCompleted {
			t.Fatalf("complete #%d: status %q", i+1, task.Status)
		}
	}
	if svc.IsActive(1) {
		t.Fatalf("completed task must leave the active set")
	}
	if fired := svc.Tick(ctx, at("2024-01-11 09:00")); len(fired) != 0 {
		t.Fatalf("completed task fired again")
	}
	if task, _ := store.Get(1); task.Status != model.StatusCompleted {
		t.Fatalf("store not updated")
	}
	if _, err := svc.Complete(ctx, 99); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSnoozeRearmsTrigger(t *testing.T) {
	svc, _, notifier, clock := newTestReminders(t, 0, pendingTask(1, "Call mom", "2024-01-10 09:00"))
	ctx := context.Background()
	svc.Tick(ctx, at("2024-01-10 09:01"))

	task, err := svc.Snooze(ctx, 1, 10)
	if err != nil {
		t.Fatalf("snooze: %v", err)
	}
	if task.NextReminder != "2024-01-10 09:11" {
		t.Fatalf("unexpected next reminder %q", task.NextReminder)
	}
	if svc.IsActive(1) {
		t.Fatalf("snoozed task must leave the active set")
	}
	trigger, ok := svc.EffectiveTrigger(task)
	if !ok || trigger.Source != TriggerSnooze || !trigger.At.Equal(at("2024-01-10 09:11")) {
		t.Fatalf("unexpected trigger %+v", trigger)
	}

	if fired := svc.Tick(ctx, at("2024-01-10 09:05")); len(fired) != 0 {
		t.Fatalf("fired before snooze elapsed")
	}
	clock.Set(at("2024-01-10 09:11"))
	fired := svc.Tick(ctx, at("2024-01-10 09:11"))
	if len(fired) != 1 || fired[0].Trigger.Source != TriggerSnooze {
		t.Fatalf("expected snooze reminder, got %+v", fired)
	}
	if notifier.count() != 2 {
		t.Fatalf("expected two notifications, got %d", notifier.count())
	}
	if got := svc.store.List()[0].NextReminder; got != "" {
		t.Fatalf("next reminder must clear once fired, got %q", got)
	}

	if _, err := svc.Snooze(ctx, 1, 0); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("expected validation error for zero minutes, got %v", err)
	}
}

func TestSnoozeTriggerProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		store := NewTaskService(&memGateway{}, discardLogger(), time.UTC)
		if _, err := store.Create(context.Background(), TaskInput{Name: "x", DueDate: "2024-01-10 09:00"}); err != nil {
			t.Fatalf("create: %v", err)
		}
		now := at("2024-01-10 09:00").Add(time.Duration(rapid.IntRange(0, 10000).Draw(t, "offset")) * time.Minute)
		svc := NewReminderService(store, nil, discardLogger(), ReminderOptions{Now: func() time.Time { return now }})
		svc.Tick(context.Background(), now)

		minutes := rapid.IntRange(1, 24*60).Draw(t, "minutes")
		task, err := svc.Snooze(context.Background(), 1, minutes)
		if err != nil {
			t.Fatalf("snooze: %v", err)
		}
		if svc.IsActive(1) {
			t.Fatalf("task still active after snooze")
		}
		trigger, ok := svc.EffectiveTrigger(task)
		if !ok || !trigger.At.Equal(now.Add(time.Duration(minutes)*time.Minute)) {
			t.Fatalf("trigger %v, want %v", trigger.At, now.Add(time.Duration(minutes)*time.Minute))
		}
	})
}

func TestDismissWithoutSnoozeRefires(t *testing.T) {
	svc, store, _, _ := newTestReminders(t, 0, pendingTask(1, "Pay rent", "2024-01-10 09:00"))
	ctx := context.Background()
	svc.Tick(ctx, at("2024-01-10 09:01"))

	task, err := svc.Dismiss(ctx, 1)
	if err != nil {
		t.Fatalf("dismiss: %v", err)
	}
	if task.Status != model.StatusPending || task.NextReminder != "" {
		t.Fatalf("dismiss must not touch the task: %+v", task)
	}
	if fired := svc.Tick(ctx, at("2024-01-10 09:02")); len(fired) != 1 {
		t.Fatalf("expected immediate re-fire, got %+v", fired)
	}
	if got, _ := store.Get(1); got.Status != model.StatusPending {
		t.Fatalf("status changed by dismiss")
	}
}

func TestDismissWithSnoozeDelaysRefire(t *testing.T) {
	svc, _, _, _ := newTestReminders(t, 5*time.Minute, pendingTask(1, "Pay rent", "2024-01-10 09:00"))
	ctx := context.Background()
	svc.Tick(ctx, at("2024-01-10 09:01"))

	task, err := svc.Dismiss(ctx, 1)
	if err != nil {
		t.Fatalf("dismiss: %v", err)
	}
	if task.NextReminder != "2024-01-10 09:06" || svc.IsActive(1) {
		t.Fatalf("expected auto-snooze until 09:06, got %+v", task)
	}
	if fired := svc.Tick(ctx, at("2024-01-10 09:02")); len(fired) != 0 {
		t.Fatalf("dismissed reminder came back too early")
	}
	if fired := svc.Tick(ctx, at("2024-01-10 09:06")); len(fired) != 1 {
		t.Fatalf("dismissed reminder did not come back")
	}

	if _, err := svc.Dismiss(ctx, 1); err != nil {
		t.Fatalf("dismiss: %v", err)
	}
	before, _ := svc.store.Get(1)
	again, err := svc.Dismiss(ctx, 1)
	if err != nil {
		t.Fatalf("dismiss: %v", err)
	}
	if again.NextReminder != before.NextReminder {
		t.Fatalf("dismissing an inactive reminder changed the task")
	}
}

func TestCustomOccurrencesFireIndependently(t *testing.T) {
	task := pendingTask(1, "Trip", "2024-01-12 14:30")
	task.ReminderEnabled = true
	task.ReminderTime = model.ReminderCustom
	task.CustomReminder = &model.CustomReminder{
		Type:  model.ReminderMultiple,
		Times: []string{"2024-01-11 09:00", "2024-01-10 09:00"},
		Time:  "09:00",
	}
	svc, store, _, _ := newTestReminders(t, 0, task)
	ctx := context.Background()

	fired := svc.Tick(ctx, at("2024-01-10 09:01"))
	if len(fired) != 1 || fired[0].Trigger.Instant != "2024-01-10 09:00" {
		t.Fatalf("expected first occurrence, got %+v", fired)
	}

	// The second occurrence is suppressed while the first is unacknowledged.
	if fired := svc.Tick(ctx, at("2024-01-11 09:01")); len(fired) != 0 {
		t.Fatalf("second occurrence fired while first unacknowledged")
	}

	if _, err := svc.Dismiss(ctx, 1); err != nil {
		t.Fatalf("dismiss: %v", err)
	}
	fired = svc.Tick(ctx, at("2024-01-11 09:02"))
	if len(fired) != 1 || fired[0].Trigger.Instant != "2024-01-11 09:00" {
		t.Fatalf("expected second occurrence, got %+v", fired)
	}

	if _, err := svc.Dismiss(ctx, 1); err != nil {
		t.Fatalf("dismiss: %v", err)
	}
	if fired := svc.Tick(ctx, at("2024-01-13 09:00")); len(fired) != 0 {
		t.Fatalf("delivered occurrences must not fire again, got %+v", fired)
	}
	got, _ := store.Get(1)
	if len(got.CustomReminder.Times) != 2 {
		t.Fatalf("firing must not consume stored occurrences")
	}
}

func TestNotifierFailureDoesNotPropagate(t *testing.T) {
	svc, _, notifier, _ := newTestReminders(t, 0, pendingTask(1, "Pay rent", "2024-01-10 09:00"))
	notifier.err = errors.New("network down")

	var got []ReminderEvent
	svc.Subscribe(func(ReminderEvent) { panic("broken subscriber") })
	svc.Subscribe(func(ev ReminderEvent) { got = append(got, ev) })

	fired := svc.Tick(context.Background(), at("2024-01-10 09:01"))
	if len(fired) != 1 || !svc.IsActive(1) {
		t.Fatalf("reminder must fire despite notifier failure")
	}
	if len(got) != 1 || got[0].ID != fired[0].ID {
		t.Fatalf("subscriber after a panicking one must still receive the event")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	svc, _, notifier, _ := newTestReminders(t, 0, pendingTask(1, "Pay rent", "2024-01-10 09:00"))
	svc.opts.PollInterval = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for notifier.count() == 0 {
		select {
		case <-deadline:
			t.Fatalf("run never ticked")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if notifier.count() != 1 {
		t.Fatalf("expected exactly one notification, got %d", notifier.count())
	}
}

func TestDailySummary(t *testing.T) {
	late := pendingTask(2, "Old <bill>", "2024-01-08 09:00")
	svc, _, _, _ := newTestReminders(t, 0,
		pendingTask(1, "Standup", "2024-01-10 10:00"),
		late,
	)

	text := svc.DailySummary(at("2024-01-10 08:00"))
	for _, want := range []string{"Daily summary", "10.01.2024", "Standup", "Old &lt;bill&gt;", "overdue"} {
		if !strings.Contains(text, want) {
			t.Fatalf("summary missing %q:\n%s", want, text)
		}
	}
}

func TestCompleteAndTickAreSerialized(t *testing.T) {
	const n = 50
	tasks := make([]model.Task, 0, n)
	for i := 1; i <= n; i++ {
		tasks = append(tasks, pendingTask(i, fmt.Sprintf("task %d", i), "2024-01-10 08:00"))
	}
	svc, store, _, _ := newTestReminders(t, 0, tasks...)
	ctx := context.Background()
	now := at("2024-01-10 09:01")

	var wg sync.WaitGroup
	for i := 1; i <= n; i++ {
		wg.Add(2)
		go func(id int) {
			defer wg.Done()
			if _, err := svc.Complete(ctx, id); err != nil {
				t.Errorf("complete %d: %v", id, err)
			}
		}(i)
		go func() {
			defer wg.Done()
			svc.Tick(ctx, now)
		}()
	}
	wg.Wait()

	if active := svc.Active(); len(active) != 0 {
		t.Fatalf("completed tasks left active: %v", active)
	}
	for _, task := range store.List() {
		if !task.IsCompleted() {
			t.Fatalf("task %d not completed", task.ID)
		}
	}
	if fired := svc.Tick(ctx, now); len(fired) != 0 {
		t.Fatalf("completed tasks fired again: %+v", fired)
	}
}
