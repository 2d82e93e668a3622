package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"task-reminder/internal/model"
)

type memGateway struct {
	mu    sync.Mutex
	tasks []model.Task
	saves int
	fail  bool
}

func (g *memGateway) Load(context.Context) ([]model.Task, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return cloneTasks(g.tasks), nil
}

func (g *memGateway) Save(_ context.Context, tasks []model.Task) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fail {
		return errors.New("disk full")
	}
	g.saves++
	g.tasks = cloneTasks(tasks)
	return nil
}

func (g *memGateway) saveCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.saves
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T, tasks ...model.Task) (*TaskService, *memGateway) {
	t.Helper()
	gw := &memGateway{tasks: tasks}
	store := NewTaskService(gw, discardLogger(), time.UTC)
	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	return store, gw
}

func at(value string) time.Time {
	t, err := time.ParseInLocation(model.DateTimeLayout, value, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

type recordingNotifier struct {
	mu    sync.Mutex
	names []string
	err   error
}

func (n *recordingNotifier) Notify(_ context.Context, taskName, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.names = append(n.names, taskName)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.names)
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func pendingTask(id int, name, due string) model.Task {
	return model.Task{
		ID:           id,
		Name:         name,
		DueDate:      due,
		Status:       model.StatusPending,
		Category:     model.CategoryOther,
		Priority:     model.PriorityNormal,
		ReminderTime: model.DefaultReminderTime,
	}
}
