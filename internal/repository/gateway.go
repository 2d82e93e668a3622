package repository

import (
	"context"
	"fmt"
	"time"

	"task-reminder/internal/model"
)

// Gateway loads and saves the whole task collection.
type Gateway interface {
	// Load returns the stored tasks in their stored order, or an empty slice when
	// nothing has been saved yet.
	Load(ctx context.Context) ([]model.Task, error)
	Save(ctx context.Context, tasks []model.Task) error
}

// RetryingGateway bounds every call with a timeout and retries failed saves.
type RetryingGateway struct {
	Next     Gateway
	Attempts int
	Delay    time.Duration
	Timeout  time.Duration
}

func (g RetryingGateway) Load(ctx context.Context) ([]model.Task, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()
	return g.Next.Load(ctx)
}

func (g RetryingGateway) Save(ctx context.Context, tasks []model.Task) error {
	attempts := g.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("save tasks: %w: %w", model.ErrIO, ctx.Err())
			case <-time.After(g.Delay):
			}
		}
		attemptCtx, cancel := g.withTimeout(ctx)
		err = g.Next.Save(attemptCtx, tasks)
		cancel()
		if err == nil {
			return nil
		}
	}
	return err
}

func (g RetryingGateway) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.Timeout)
}
