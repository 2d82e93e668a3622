package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"task-reminder/internal/model"
)

// Notifier delivers a fired reminder to the user. Failures are logged by the caller.
type Notifier interface {
	Notify(ctx context.Context, taskName, dueDateText string) error
}

// EventNotifier is implemented by notifiers that want the whole event, for
// example to attach task actions. It is used instead of Notify when present.
type EventNotifier interface {
	NotifyEvent(ctx context.Context, ev ReminderEvent) error
}

// ReminderEvent is published once per fired reminder.
type ReminderEvent struct {
	ID       uuid.UUID
	TaskID   int
	TaskName string
	DueDate  string
	Trigger  Trigger
	FiredAt  time.Time
}

// Subscriber receives fired reminders. It must not block for long.
type Subscriber func(ReminderEvent)

// ReminderOptions tune the reminder loop.
type ReminderOptions struct {
	PollInterval time.Duration
	// DismissSnooze re-arms a dismissed reminder this far in the future. Zero lets
	// the next tick fire it again.
	DismissSnooze time.Duration
	NotifyTimeout time.Duration
	Now           func() time.Time
}

// ReminderService decides when reminders fire and handles the user's answer.
type ReminderService struct {
	store    *TaskService
	notifier Notifier
	log      *slog.Logger
	opts     ReminderOptions

	subsMu      sync.RWMutex
	subscribers []Subscriber
}

func NewReminderService(store *TaskService, notifier Notifier, log *slog.Logger, opts ReminderOptions) *ReminderService {
	if log == nil {
		log = slog.Default()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Minute
	}
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = 10 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &ReminderService{
		store:    store,
		notifier: notifier,
		log:      log,
		opts:     opts,
	}
}

// Now returns the current time in the store location.
func (s *ReminderService) Now() time.Time {
	return s.opts.Now().In(s.store.loc)
}

// Subscribe adds fn to the observers of fired reminders.
func (s *ReminderService) Subscribe(fn Subscriber) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// Run ticks immediately and then every poll interval until ctx is done.
func (s *ReminderService) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	s.Tick(ctx, s.opts.Now())
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Tick(ctx, s.opts.Now())
		}
	}
}

// Tick fires every pending task whose trigger time has passed and that has no
// unacknowledged reminder. It returns the fired events.
func (s *ReminderService) Tick(ctx context.Context, now time.Time) []ReminderEvent {
	st := s.store
	now = now.In(st.loc)

	st.mu.Lock()
	var fired []ReminderEvent
	changed := false
	for i := range st.tasks {
		task := &st.tasks[i]
		if task.Status.OrDefault() != model.StatusPending || st.reminders.isActive(task.ID) {
			continue
		}
		trigger, ok := effectiveTrigger(*task, st.loc, &st.reminders)
		if !ok || now.Before(trigger.At) {
			continue
		}

		st.reminders.fire(task.ID)
		switch trigger.Source {
		case TriggerSnooze:
			task.NextReminder = ""
			changed = true
		case TriggerCustom:
			st.reminders.deliver(task.ID, trigger.Instant)
		}
		fired = append(fired, ReminderEvent{
			ID:       uuid.New(),
			TaskID:   task.ID,
			TaskName: task.Name,
			DueDate:  task.DueDate,
			Trigger:  trigger,
			FiredAt:  now,
		})
	}
	var snapshot []model.Task
	var version uint64
	if changed {
		st.version++
		snapshot, version = cloneTasks(st.tasks), st.version
	}
	st.mu.Unlock()

	if changed {
		_ = st.persist(ctx, snapshot, version)
	}
	for _, ev := range fired {
		s.log.Info("reminder fired", "task_id", ev.TaskID, "source", ev.Trigger.Source, "trigger", model.FormatWallClock(ev.Trigger.At))
		s.publish(ctx, ev)
	}
	return fired
}

func (s *ReminderService) publish(ctx context.Context, ev ReminderEvent) {
	if s.notifier != nil {
		notifyCtx, cancel := context.WithTimeout(ctx, s.opts.NotifyTimeout)
		s.safely(ev, func() {
			var err error
			if en, ok := s.notifier.(EventNotifier); ok {
				err = en.NotifyEvent(notifyCtx, ev)
			} else {
				err = s.notifier.Notify(notifyCtx, ev.TaskName, ev.DueDate)
			}
			if err != nil {
				s.log.Warn("notify failed", "task_id", ev.TaskID, "err", err)
			}
		})
		cancel()
	}

	s.subsMu.RLock()
	subs := append([]Subscriber(nil), s.subscribers...)
	s.subsMu.RUnlock()
	for _, fn := range subs {
		s.safely(ev, func() { fn(ev) })
	}
}

func (s *ReminderService) safely(ev ReminderEvent, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("reminder handler panicked", "task_id", ev.TaskID, "panic", r)
		}
	}()
	fn()
}

// Complete marks the task completed and acknowledges its reminder. Completing a
// completed task is a no-op.
func (s *ReminderService) Complete(ctx context.Context, id int) (model.Task, error) {
	st := s.store
	task, err := st.mutate(ctx, id, func(task *model.Task) (bool, error) {
		st.reminders.ack(id)
		if task.IsCompleted() && task.NextReminder == "" {
			return false, nil
		}
		task.Status = model.StatusCompleted
		task.NextReminder = ""
		return true, nil
	})
	if err == nil || IsSaveWarning(err) {
		s.log.Info("task completed", "task_id", id)
	}
	return task, err
}

// Snooze acknowledges the reminder and re-arms it minutes from now.
func (s *ReminderService) Snooze(ctx context.Context, id int, minutes int) (model.Task, error) {
	if minutes <= 0 {
		return model.Task{}, &model.ValidationError{Field: "minutes", Reason: "must be positive"}
	}
	st := s.store
	next := model.FormatWallClock(s.opts.Now().In(st.loc).Add(time.Duration(minutes) * time.Minute))
	task, err := st.mutate(ctx, id, func(task *model.Task) (bool, error) {
		st.reminders.ack(id)
		task.NextReminder = next
		return true, nil
	})
	if err == nil || IsSaveWarning(err) {
		s.log.Info("reminder snoozed", "task_id", id, "until", next)
	}
	return task, err
}

// Dismiss acknowledges the reminder without completing the task. With a
// DismissSnooze configured, an active reminder comes back after that delay.
func (s *ReminderService) Dismiss(ctx context.Context, id int) (model.Task, error) {
	st := s.store
	now := s.opts.Now().In(st.loc)
	return st.mutate(ctx, id, func(task *model.Task) (bool, error) {
		if !st.reminders.ack(id) || s.opts.DismissSnooze <= 0 || task.IsCompleted() {
			return false, nil
		}
		task.NextReminder = model.FormatWallClock(now.Add(s.opts.DismissSnooze))
		return true, nil
	})
}

// Active returns the ids with an unacknowledged reminder, ascending.
func (s *ReminderService) Active() []int {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	return s.store.reminders.ids()
}

func (s *ReminderService) IsActive(id int) bool {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	return s.store.reminders.isActive(id)
}

// EffectiveTrigger returns the next trigger of task, if any.
func (s *ReminderService) EffectiveTrigger(task model.Task) (Trigger, bool) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	return effectiveTrigger(task, s.store.loc, &s.store.reminders)
}

// LogNotifier writes reminders to the log. It is used when no chat is configured.
type LogNotifier struct {
	Log *slog.Logger
}

func (n LogNotifier) Notify(_ context.Context, taskName, dueDateText string) error {
	log := n.Log
	if log == nil {
		log = slog.Default()
	}
	log.Info("reminder", "task", taskName, "due_date", dueDateText)
	return nil
}
