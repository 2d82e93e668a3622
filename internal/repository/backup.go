package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"task-reminder/internal/model"
)

const backupTimeLayout = "20060102_150405"

// Backup writes tasks to a timestamped JSON file inside dir and returns its path.
func Backup(ctx context.Context, tasks []model.Task, dir string, now time.Time) (string, error) {
	if dir == "" {
		dir = "backups"
	}
	path := filepath.Join(dir, fmt.Sprintf("tasks_backup_%s.json", now.Format(backupTimeLayout)))
	if err := ExportJSON(ctx, tasks, path); err != nil {
		return "", err
	}
	return path, nil
}

// ExportJSON writes tasks to path in the same format as the JSON gateway.
func ExportJSON(ctx context.Context, tasks []model.Task, path string) error {
	return NewJSONFileGateway(path).Save(ctx, tasks)
}

// ImportJSON reads a task file. Unlike Load, a missing file is an error.
func ImportJSON(ctx context.Context, path string) ([]model.Task, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("import %s: %w: %w", path, model.ErrIO, err)
	}
	return NewJSONFileGateway(path).Load(ctx)
}
