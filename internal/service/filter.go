package service

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"task-reminder/internal/model"
)

// All disables a criterion.
const All = "All"

// DueWindow is a named date range relative to now.
type DueWindow string

const (
	WindowAll       DueWindow = All
	WindowToday     DueWindow = "Today"
	WindowThisWeek  DueWindow = "This Week"
	WindowThisMonth DueWindow = "This Month"
)

// ParseDueWindow accepts the window names with or without the inner space, in any case.
func ParseDueWindow(raw string) (DueWindow, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(raw), " ", "")) {
	case "", "all":
		return WindowAll, nil
	case "today":
		return WindowToday, nil
	case "thisweek", "week":
		return WindowThisWeek, nil
	case "thismonth", "month":
		return WindowThisMonth, nil
	default:
		return "", fmt.Errorf("%w: unknown due window %q", model.ErrParse, raw)
	}
}

// Criteria selects tasks. Empty or "All" fields match everything.
type Criteria struct {
	Category  model.Category
	Priority  model.Priority
	Status    model.Status
	DueWindow DueWindow
	Search    string
}

func isAll(v string) bool {
	return v == "" || v == All
}

// Filter returns copies of the tasks matching c, in input order. Category, priority,
// status, due window and name search are applied in that order. Tasks with an
// unreadable due date only survive when no window is set.
func Filter(tasks []model.Task, c Criteria, now time.Time) []model.Task {
	search := strings.ToLower(strings.TrimSpace(c.Search))
	out := make([]model.Task, 0, len(tasks))
	for _, task := range tasks {
		if !isAll(string(c.Category)) && task.Category.OrDefault() != c.Category {
			continue
		}
		if !isAll(string(c.Priority)) && task.Priority.OrDefault() != c.Priority {
			continue
		}
		if !isAll(string(c.Status)) && task.Status.OrDefault() != c.Status {
			continue
		}
		if !isAll(string(c.DueWindow)) && !inWindow(task, c.DueWindow, now) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(task.Name), search) {
			continue
		}
		out = append(out, task.Clone())
	}
	return out
}

func inWindow(task model.Task, window DueWindow, now time.Time) bool {
	due, err := task.Due(now.Location())
	if err != nil {
		return false
	}
	switch window {
	case WindowToday:
		return sameDay(due, now)
	case WindowThisWeek:
		days := daysBetween(now, due)
		return days >= 0 && days <= 7
	case WindowThisMonth:
		return due.Year() == now.Year() && due.Month() == now.Month()
	default:
		return true
	}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// daysBetween counts calendar days from the date of from to the date of to.
func daysBetween(from, to time.Time) int {
	fy, fm, fd := from.Date()
	ty, tm, td := to.Date()
	start := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	end := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	return int(end.Sub(start).Hours() / 24)
}

// SortKey names a sortable column.
type SortKey string

const (
	SortByName     SortKey = "name"
	SortByDue      SortKey = "due"
	SortByCategory SortKey = "category"
	SortByPriority SortKey = "priority"
	SortByStatus   SortKey = "status"
)

// ParseSortKey accepts the column names, case-insensitively.
func ParseSortKey(raw string) (SortKey, error) {
	switch key := SortKey(strings.ToLower(strings.TrimSpace(raw))); key {
	case SortByName, SortByDue, SortByCategory, SortByPriority, SortByStatus:
		return key, nil
	case "due_date", "date":
		return SortByDue, nil
	default:
		return "", fmt.Errorf("%w: unknown sort key %q", model.ErrParse, raw)
	}
}

// SortForToday orders tasks by due date, then lowest priority first. Equal tasks
// keep their order; unreadable dates go last.
func SortForToday(tasks []model.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if c := compareDue(tasks[i], tasks[j]); c != 0 {
			return c < 0
		}
		return tasks[i].Priority.OrDefault().Order() < tasks[j].Priority.OrDefault().Order()
	})
}

// SortTasks orders tasks by one column.
func SortTasks(tasks []model.Task, key SortKey, descending bool) {
	cmp := func(a, b model.Task) int {
		switch key {
		case SortByDue:
			return compareDue(a, b)
		case SortByCategory:
			return strings.Compare(string(a.Category.OrDefault()), string(b.Category.OrDefault()))
		case SortByPriority:
			return a.Priority.OrDefault().Order() - b.Priority.OrDefault().Order()
		case SortByStatus:
			return strings.Compare(string(a.Status.OrDefault()), string(b.Status.OrDefault()))
		default:
			return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		}
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		if descending {
			return cmp(tasks[j], tasks[i]) < 0
		}
		return cmp(tasks[i], tasks[j]) < 0
	})
}

func compareDue(a, b model.Task) int {
	da, errA := a.Due(time.UTC)
	db, errB := b.Due(time.UTC)
	switch {
	case errA != nil && errB != nil:
		return 0
	case errA != nil:
		return 1
	case errB != nil:
		return -1
	}
	return da.Compare(db)
}

// TodayView lists pending tasks due today, in SortForToday order.
func TodayView(tasks []model.Task, now time.Time) []model.Task {
	out := Filter(tasks, Criteria{Status: model.StatusPending, DueWindow: WindowToday}, now)
	SortForToday(out)
	return out
}

// CalendarView lists every task due on the date of day, by due time.
func CalendarView(tasks []model.Task, day time.Time) []model.Task {
	out := make([]model.Task, 0)
	for _, task := range tasks {
		due, err := task.Due(day.Location())
		if err != nil || !sameDay(due, day) {
			continue
		}
		out = append(out, task.Clone())
	}
	SortForToday(out)
	return out
}

// OverdueView lists pending tasks whose due date has passed, oldest first.
func OverdueView(tasks []model.Task, now time.Time) []model.Task {
	out := make([]model.Task, 0)
	for _, task := range tasks {
		if task.IsOverdue(now) {
			out = append(out, task.Clone())
		}
	}
	SortForToday(out)
	return out
}
