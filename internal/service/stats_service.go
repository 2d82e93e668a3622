package service

import (
	"time"

	"task-reminder/internal/model"
)

// Stats summarizes a task collection.
type Stats struct {
	Total          int
	Completed      int
	Pending        int
	CompletionRate float64
	Overdue        int
	ByCategory     map[model.Category]int
	ByPriority     map[model.Priority]int
}

// Aggregate counts tasks by status, category and priority. Missing category and
// priority count as Other and Normal. Overdue uses now.
func Aggregate(tasks []model.Task, now time.Time) Stats {
	st := Stats{
		Total:      len(tasks),
		ByCategory: make(map[model.Category]int),
		ByPriority: make(map[model.Priority]int),
	}
	for _, task := range tasks {
		if task.IsCompleted() {
			st.Completed++
		} else if task.IsOverdue(now) {
			st.Overdue++
		}
		st.ByCategory[task.Category.OrDefault()]++
		st.ByPriority[task.Priority.OrDefault()]++
	}
	st.Pending = st.Total - st.Completed
	if st.Total > 0 {
		st.CompletionRate = float64(st.Completed) / float64(st.Total) * 100
	}
	return st
}

// Share returns count as a percentage of the total.
func (s Stats) Share(count int) float64 {
	total := s.Total
	if total == 0 {
		total = 1
	}
	return float64(count) / float64(total) * 100
}
