package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"task-reminder/internal/model"
)

// JSONFileGateway keeps tasks in a single indented JSON array.
type JSONFileGateway struct {
	Path string
}

func NewJSONFileGateway(path string) *JSONFileGateway {
	if path == "" {
		path = "tasks.json"
	}
	return &JSONFileGateway{Path: path}
}

func (g *JSONFileGateway) Load(ctx context.Context) ([]model.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("load %s: %w: %w", g.Path, model.ErrIO, err)
	}
	raw, err := os.ReadFile(g.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return []model.Task{}, nil
		}
		return nil, fmt.Errorf("read %s: %w: %w", g.Path, model.ErrIO, err)
	}
	return decodeTasks(g.Path, raw)
}

func (g *JSONFileGateway) Save(ctx context.Context, tasks []model.Task) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("save %s: %w: %w", g.Path, model.ErrIO, err)
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	payload, err := json.MarshalIndent(tasks, "", "    ")
	if err != nil {
		return fmt.Errorf("encode tasks: %w: %w", model.ErrIO, err)
	}
	if err := writeFileAtomic(g.Path, append(payload, '\n')); err != nil {
		return fmt.Errorf("write %s: %w: %w", g.Path, model.ErrIO, err)
	}
	return nil
}

func decodeTasks(path string, raw []byte) ([]model.Task, error) {
	if strings.TrimSpace(string(raw)) == "" {
		return []model.Task{}, nil
	}
	var tasks []model.Task
	if err := json.Unmarshal(raw, &tasks); err != nil {
		return nil, fmt.Errorf("decode %s: %w: %w", path, model.ErrIO, err)
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	return tasks, nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
