package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"task-reminder/internal/model"
	"task-reminder/internal/repository"
)

// TaskInput represents data required to create a task. Empty fields take defaults.
type TaskInput struct {
	Name            string
	DueDate         string
	Status          model.Status
	Category        model.Category
	Priority        model.Priority
	Notes           string
	ReminderEnabled bool
	ReminderTime    string
	CustomReminder  *model.CustomReminder
}

// TaskPatch holds a partial update. Nil fields are left untouched.
type TaskPatch struct {
	Name            *string
	DueDate         *string
	Status          *model.Status
	Category        *model.Category
	Priority        *model.Priority
	Notes           *string
	ReminderEnabled *bool
	ReminderTime    *string
	CustomReminder  *model.CustomReminder
	// ClearCustomReminder removes the custom reminder. It wins over CustomReminder.
	ClearCustomReminder bool
	NextReminder        *string
}

// SaveWarning reports that a change was applied in memory but could not be persisted.
type SaveWarning struct {
	Err error
}

func (w *SaveWarning) Error() string {
	return fmt.Sprintf("changes kept in memory, save failed: %v", w.Err)
}

func (w *SaveWarning) Unwrap() error {
	return w.Err
}

// IsSaveWarning reports whether err only signals a failed save.
func IsSaveWarning(err error) bool {
	var w *SaveWarning
	return errors.As(err, &w)
}

// TaskService owns the task collection, the id allocator and the reminder
// membership state. A single mutex serializes every read-modify-write.
type TaskService struct {
	mu        sync.Mutex
	tasks     []model.Task
	lastID    int
	version   uint64
	reminders reminderState

	saveMu       sync.Mutex
	savedVersion uint64

	gateway repository.Gateway
	log     *slog.Logger
	loc     *time.Location
}

func NewTaskService(gateway repository.Gateway, log *slog.Logger, loc *time.Location) *TaskService {
	if log == nil {
		log = slog.Default()
	}
	if loc == nil {
		loc = time.Local
	}
	return &TaskService{
		tasks:     []model.Task{},
		reminders: newReminderState(),
		gateway:   gateway,
		log:       log,
		loc:       loc,
	}
}

// Location returns the zone wall-clock dates are interpreted in.
func (s *TaskService) Location() *time.Location {
	return s.loc
}

// Load replaces the collection with the gateway contents. Records without an id get
// sequential ids in load order; the allocator continues after the highest id seen.
func (s *TaskService) Load(ctx context.Context) error {
	if s.gateway == nil {
		return nil
	}
	loaded, err := s.gateway.Load(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.tasks = assignIDs(loaded)
	s.lastID = 0
	for i := range s.tasks {
		task := &s.tasks[i]
		if task.DemoteEmptyCustomReminder() {
			s.log.Info("custom reminder without times, reminders disabled", "task_id", task.ID)
		}
		if task.ID > s.lastID {
			s.lastID = task.ID
		}
		if _, err := task.Due(s.loc); err != nil {
			s.log.Warn("task has unreadable due date", "task_id", task.ID, "due_date", task.DueDate)
		}
	}
	s.reminders = newReminderState()
	s.version++
	version, count := s.version, len(s.tasks)
	s.mu.Unlock()

	s.saveMu.Lock()
	s.savedVersion = version
	s.saveMu.Unlock()

	s.log.Info("tasks loaded", "count", count)
	return nil
}

// assignIDs gives every record without a usable id (missing or duplicated) a fresh one.
func assignIDs(tasks []model.Task) []model.Task {
	seen := make(map[int]bool, len(tasks))
	for _, task := range tasks {
		if task.ID > 0 {
			seen[task.ID] = true
		}
	}
	used := make(map[int]bool, len(tasks))
	next := 0
	out := make([]model.Task, 0, len(tasks))
	for _, task := range tasks {
		if task.ID <= 0 || used[task.ID] {
			next++
			for seen[next] || used[next] {
				next++
			}
			task.ID = next
		}
		used[task.ID] = true
		out = append(out, task)
	}
	return out
}

// Save writes the current collection through the gateway.
func (s *TaskService) Save(ctx context.Context) error {
	snapshot, version := s.snapshot()
	return s.persist(ctx, snapshot, version)
}

// Dirty reports whether the collection changed since the last successful save.
func (s *TaskService) Dirty() bool {
	s.mu.Lock()
	version := s.version
	s.mu.Unlock()

	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	return version != s.savedVersion
}

func (s *TaskService) snapshot() ([]model.Task, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneTasks(s.tasks), s.version
}

// persist saves snapshot unless a newer one was already written.
func (s *TaskService) persist(ctx context.Context, snapshot []model.Task, version uint64) error {
	if s.gateway == nil {
		return nil
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	if version < s.savedVersion {
		return nil
	}
	if err := s.gateway.Save(ctx, snapshot); err != nil {
		if !errors.Is(err, model.ErrIO) {
			err = fmt.Errorf("%w: %w", model.ErrIO, err)
		}
		s.log.Warn("save tasks failed", "err", err)
		return &SaveWarning{Err: err}
	}
	s.savedVersion = version
	return nil
}

// Create validates input, assigns the next id and appends the task.
func (s *TaskService) Create(ctx context.Context, input TaskInput) (model.Task, error) {
	task := model.Task{
		Name:            strings.TrimSpace(input.Name),
		DueDate:         strings.TrimSpace(input.DueDate),
		Status:          input.Status,
		Category:        input.Category,
		Priority:        input.Priority,
		Notes:           input.Notes,
		ReminderEnabled: input.ReminderEnabled,
		ReminderTime:    input.ReminderTime,
	}
	if input.CustomReminder != nil {
		cr := input.CustomReminder.Clone()
		task.CustomReminder = &cr
		task.ReminderTime = model.ReminderCustom
	}
	task.ApplyDefaults()
	task.DemoteEmptyCustomReminder()
	if err := task.Validate(); err != nil {
		return model.Task{}, err
	}

	s.mu.Lock()
	s.lastID++
	task.ID = s.lastID
	s.tasks = append(s.tasks, task)
	s.version++
	snapshot, version := cloneTasks(s.tasks), s.version
	s.mu.Unlock()

	s.log.Info("task created", "task_id", task.ID, "name", task.Name)
	return task.Clone(), s.persist(ctx, snapshot, version)
}

// Import appends tasks with fresh ids, as if each was created.
func (s *TaskService) Import(ctx context.Context, tasks []model.Task) ([]model.Task, error) {
	prepared := make([]model.Task, 0, len(tasks))
	for _, task := range tasks {
		task = task.Clone()
		task.ApplyDefaults()
		task.DemoteEmptyCustomReminder()
		if err := task.Validate(); err != nil {
			return nil, fmt.Errorf("import %q: %w", task.Name, err)
		}
		prepared = append(prepared, task)
	}

	s.mu.Lock()
	for i := range prepared {
		s.lastID++
		prepared[i].ID = s.lastID
		s.tasks = append(s.tasks, prepared[i])
	}
	s.version++
	snapshot, version := cloneTasks(s.tasks), s.version
	s.mu.Unlock()

	s.log.Info("tasks imported", "count", len(prepared))
	return cloneTasks(prepared), s.persist(ctx, snapshot, version)
}

// Update merges patch into the task with the given id.
func (s *TaskService) Update(ctx context.Context, id int, patch TaskPatch) (model.Task, error) {
	return s.mutate(ctx, id, func(task *model.Task) (bool, error) {
		applyPatch(task, patch)
		task.DemoteEmptyCustomReminder()
		if err := task.Validate(); err != nil {
			return false, err
		}
		if task.IsCompleted() {
			s.reminders.ack(id)
		}
		return true, nil
	})
}

func applyPatch(task *model.Task, patch TaskPatch) {
	if patch.Name != nil {
		task.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.DueDate != nil {
		task.DueDate = strings.TrimSpace(*patch.DueDate)
	}
	if patch.Status != nil {
		task.Status = *patch.Status
	}
	if patch.Category != nil {
		task.Category = *patch.Category
	}
	if patch.Priority != nil {
		task.Priority = *patch.Priority
	}
	if patch.Notes != nil {
		task.Notes = *patch.Notes
	}
	if patch.ReminderEnabled != nil {
		task.ReminderEnabled = *patch.ReminderEnabled
	}
	if patch.ReminderTime != nil {
		task.ReminderTime = *patch.ReminderTime
	}
	if patch.CustomReminder != nil {
		cr := patch.CustomReminder.Clone()
		task.CustomReminder = &cr
	}
	if patch.ClearCustomReminder {
		task.CustomReminder = nil
		if task.ReminderTime == model.ReminderCustom {
			task.ReminderTime = model.DefaultReminderTime
		}
	}
	if patch.NextReminder != nil {
		task.NextReminder = strings.TrimSpace(*patch.NextReminder)
	}
}

// SetCustomReminder replaces the reminder of a task with reminder and enables it.
func (s *TaskService) SetCustomReminder(ctx context.Context, id int, reminder model.CustomReminder) (model.Task, error) {
	if len(reminder.Times) == 0 {
		return model.Task{}, &model.ValidationError{Field: "custom_reminder.times", Reason: "at least one occurrence is required"}
	}
	return s.mutate(ctx, id, func(task *model.Task) (bool, error) {
		cr := reminder.Clone()
		task.CustomReminder = &cr
		task.ReminderTime = model.ReminderCustom
		task.ReminderEnabled = true
		return true, task.Validate()
	})
}

// DeleteCustomReminderTime removes one occurrence. Removing the last one turns the
// reminder off.
func (s *TaskService) DeleteCustomReminderTime(ctx context.Context, id int, instant string) (model.Task, error) {
	instant = strings.TrimSpace(instant)
	return s.mutate(ctx, id, func(task *model.Task) (bool, error) {
		if task.CustomReminder == nil || !task.CustomReminder.RemoveTime(instant) {
			return false, fmt.Errorf("reminder %q of task %d: %w", instant, id, model.ErrNotFound)
		}
		s.reminders.forgetOccurrence(id, instant)
		if task.DemoteEmptyCustomReminder() {
			s.log.Info("custom reminder emptied, reminders disabled", "task_id", id)
		}
		return true, nil
	})
}

// Delete removes the task permanently.
func (s *TaskService) Delete(ctx context.Context, id int) error {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return notFound(id)
	}
	s.tasks = append(s.tasks[:idx], s.tasks[idx+1:]...)
	s.reminders.forget(id)
	s.version++
	snapshot, version := cloneTasks(s.tasks), s.version
	s.mu.Unlock()

	s.log.Info("task deleted", "task_id", id)
	return s.persist(ctx, snapshot, version)
}

func (s *TaskService) Get(id int) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(id)
	if idx < 0 {
		return model.Task{}, notFound(id)
	}
	return s.tasks[idx].Clone(), nil
}

// List returns copies of all tasks in insertion order.
func (s *TaskService) List() []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneTasks(s.tasks)
}

// mutate runs fn on a copy of the task under the store lock and commits the copy
// when fn succeeds. fn may touch reminder state. A save is requested when fn
// reports a change.
func (s *TaskService) mutate(ctx context.Context, id int, fn func(task *model.Task) (bool, error)) (model.Task, error) {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return model.Task{}, notFound(id)
	}
	task := s.tasks[idx].Clone()
	changed, err := fn(&task)
	if err != nil {
		s.mu.Unlock()
		return model.Task{}, err
	}
	if !changed {
		s.mu.Unlock()
		return task, nil
	}
	s.tasks[idx] = task
	s.version++
	snapshot, version := cloneTasks(s.tasks), s.version
	s.mu.Unlock()

	return task.Clone(), s.persist(ctx, snapshot, version)
}

func (s *TaskService) indexOf(id int) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func notFound(id int) error {
	return fmt.Errorf("task %d: %w", id, model.ErrNotFound)
}

func cloneTasks(tasks []model.Task) []model.Task {
	out := make([]model.Task, len(tasks))
	for i := range tasks {
		out[i] = tasks[i].Clone()
	}
	return out
}
