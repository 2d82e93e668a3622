package repository

import (
	"task-reminder/internal/model"
)

func sampleTasks() []model.Task {
	return []model.Task{
		{
			ID:           1,
			Name:         "Pay rent",
			DueDate:      "2024-01-10 09:00",
			Status:       model.StatusPending,
			Category:     model.CategoryPersonal,
			Priority:     model.PriorityHigh,
			ReminderTime: "15 min",
		},
		{
			ID:              2,
			Name:            "Dentist",
			DueDate:         "2024-01-12 14:30",
			Status:          model.StatusPending,
			Category:        model.CategoryHealth,
			Priority:        model.PriorityUrgent,
			Notes:           "bring insurance card",
			ReminderEnabled: true,
			ReminderTime:    model.ReminderCustom,
			CustomReminder: &model.CustomReminder{
				Type:  model.ReminderMultiple,
				Times: []string{"2024-01-11 18:00", "2024-01-10 18:00"},
				Time:  "18:00",
			},
			NextReminder: "2024-01-10 18:15",
		},
		{
			ID:       3,
			Name:     "Groceries",
			DueDate:  "2024-01-09 17:00",
			Status:   model.StatusCompleted,
			Category: model.CategoryShopping,
			Priority: model.PriorityLow,
		},
	}
}
