package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"task-reminder/internal/model"
)

// taskRecord is the row layout of a task. Position keeps the collection order.
type taskRecord struct {
	ID              int    `gorm:"primaryKey;autoIncrement:false"`
	Position        int    `gorm:"index"`
	Name            string `gorm:"not null"`
	DueDate         string
	Status          string
	Category        string
	Priority        string
	Notes           string
	ReminderEnabled bool
	ReminderTime    string
	CustomReminder  string
	NextReminder    string
}

func (taskRecord) TableName() string {
	return "tasks"
}

// SQLiteGateway stores the task collection in a gorm-managed SQLite table.
type SQLiteGateway struct {
	db *gorm.DB
}

func NewSQLiteGateway(db *gorm.DB) *SQLiteGateway {
	return &SQLiteGateway{db: db}
}

func (g *SQLiteGateway) Load(ctx context.Context) ([]model.Task, error) {
	var records []taskRecord
	if err := g.db.WithContext(ctx).Order("position ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("load tasks: %w: %w", model.ErrIO, err)
	}
	tasks := make([]model.Task, 0, len(records))
	for _, rec := range records {
		task, err := rec.toModel()
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// Save replaces the stored snapshot with tasks in one transaction.
func (g *SQLiteGateway) Save(ctx context.Context, tasks []model.Task) error {
	records := make([]taskRecord, 0, len(tasks))
	for i, task := range tasks {
		rec, err := recordFromModel(task, i)
		if err != nil {
			return err
		}
		records = append(records, rec)
	}

	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&taskRecord{}).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}
		return tx.CreateInBatches(records, 100).Error
	})
	if err != nil {
		return fmt.Errorf("save tasks: %w: %w", model.ErrIO, err)
	}
	return nil
}

func recordFromModel(task model.Task, position int) (taskRecord, error) {
	rec := taskRecord{
		ID:              task.ID,
		Position:        position,
		Name:            task.Name,
		DueDate:         task.DueDate,
		Status:          string(task.Status),
		Category:        string(task.Category),
		Priority:        string(task.Priority),
		Notes:           task.Notes,
		ReminderEnabled: task.ReminderEnabled,
		ReminderTime:    task.ReminderTime,
		NextReminder:    task.NextReminder,
	}
	if task.CustomReminder != nil {
		raw, err := json.Marshal(task.CustomReminder)
		if err != nil {
			return taskRecord{}, fmt.Errorf("encode custom reminder for task %d: %w: %w", task.ID, model.ErrIO, err)
		}
		rec.CustomReminder = string(raw)
	}
	return rec, nil
}

func (r taskRecord) toModel() (model.Task, error) {
	task := model.Task{
		ID:              r.ID,
		Name:            r.Name,
		DueDate:         r.DueDate,
		Status:          model.Status(r.Status),
		Category:        model.Category(r.Category),
		Priority:        model.Priority(r.Priority),
		Notes:           r.Notes,
		ReminderEnabled: r.ReminderEnabled,
		ReminderTime:    r.ReminderTime,
		NextReminder:    r.NextReminder,
	}
	if r.CustomReminder != "" {
		var cr model.CustomReminder
		if err := json.Unmarshal([]byte(r.CustomReminder), &cr); err != nil {
			return model.Task{}, fmt.Errorf("decode custom reminder for task %d: %w: %w", r.ID, model.ErrIO, err)
		}
		task.CustomReminder = &cr
	}
	return task, nil
}
