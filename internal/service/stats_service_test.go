package service

import (
	"testing"

	"pgregory.net/rapid"

	"task-reminder/internal/model"
)

func TestAggregate(t *testing.T) {
	now := at("2024-01-10 12:00")
	done := pendingTask(1, "done", "2024-01-09 09:00")
	done.Status = model.StatusCompleted
	done.Category = model.CategoryWork
	late := pendingTask(2, "late", "2024-01-09 09:00")
	late.Priority = model.PriorityUrgent
	legacy := model.Task{ID: 3, Name: "legacy", DueDate: "2024-01-11 09:00"}
	tasks := []model.Task{done, late, legacy}

	st := Aggregate(tasks, now)
	if st.Total != 3 || st.Completed != 1 || st.Pending != 2 || st.Overdue != 1 {
		t.Fatalf("unexpected counts: %+v", st)
	}
	if st.CompletionRate < 33.33 || st.CompletionRate > 33.34 {
		t.Fatalf("unexpected completion rate %f", st.CompletionRate)
	}
	if st.ByCategory[model.CategoryWork] != 1 || st.ByCategory[model.CategoryOther] != 2 {
		t.Fatalf("unexpected categories: %v", st.ByCategory)
	}
	if st.ByPriority[model.PriorityUrgent] != 1 || st.ByPriority[model.PriorityNormal] != 2 {
		t.Fatalf("unexpected priorities: %v", st.ByPriority)
	}
	if len(st.ByCategory) != 2 {
		t.Fatalf("aggregate invented categories: %v", st.ByCategory)
	}
	if got := st.Share(st.Pending); got < 66.66 || got > 66.67 {
		t.Fatalf("unexpected share %f", got)
	}
}

func TestAggregateEmpty(t *testing.T) {
	st := Aggregate(nil, at("2024-01-10 12:00"))
	if st.Total != 0 || st.CompletionRate != 0 {
		t.Fatalf("unexpected stats for empty input: %+v", st)
	}
	if st.Share(0) != 0 {
		t.Fatalf("share of empty stats must be 0")
	}
}

func TestAggregateCountsAddUpProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tasks := genTasks(t)
		st := Aggregate(tasks, at("2024-01-15 12:00"))
		if st.Completed+st.Pending != st.Total {
			t.Fatalf("completed %d + pending %d != total %d", st.Completed, st.Pending, st.Total)
		}
		sum := 0
		for category, n := range st.ByCategory {
			if !category.IsValid() {
				t.Fatalf("unexpected category key %q", category)
			}
			sum += n
		}
		if sum != st.Total {
			t.Fatalf("category counts %d != total %d", sum, st.Total)
		}
		if st.CompletionRate < 0 || st.CompletionRate > 100 {
			t.Fatalf("completion rate out of range: %f", st.CompletionRate)
		}
	})
}
