package bot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"task-reminder/internal/model"
	"task-reminder/internal/service"
)

// parseAddArgs reads "name | YYYY-MM-DD HH:MM [| category [| priority]]".
func parseAddArgs(args string) (service.TaskInput, error) {
	parts := strings.Split(args, "|")
	if len(parts) < 2 {
		return service.TaskInput{}, fmt.Errorf("expected name | YYYY-MM-DD HH:MM")
	}
	input := service.TaskInput{
		Name:    strings.TrimSpace(parts[0]),
		DueDate: strings.TrimSpace(parts[1]),
	}
	if len(parts) > 2 {
		category, ok := matchCategory(strings.TrimSpace(parts[2]))
		if !ok {
			return service.TaskInput{}, fmt.Errorf("unknown category %q", strings.TrimSpace(parts[2]))
		}
		input.Category = category
	}
	if len(parts) > 3 {
		priority, ok := matchPriority(strings.TrimSpace(parts[3]))
		if !ok {
			return service.TaskInput{}, fmt.Errorf("unknown priority %q", strings.TrimSpace(parts[3]))
		}
		input.Priority = priority
	}
	return input, nil
}

// parseFilterArgs turns free-form /tasks arguments into criteria. Words naming a
// category, priority, status or window select it; the rest become the search text.
func parseFilterArgs(args string) service.Criteria {
	var c service.Criteria
	var search []string
	fields := strings.Fields(args)
	for i := 0; i < len(fields); i++ {
		word := fields[i]
		if strings.EqualFold(word, "this") && i+1 < len(fields) {
			if window, err := service.ParseDueWindow(word + fields[i+1]); err == nil {
				c.DueWindow = window
				i++
				continue
			}
		}
		if category, ok := matchCategory(word); ok && c.Category == "" {
			c.Category = category
			continue
		}
		if priority, ok := matchPriority(word); ok && c.Priority == "" {
			c.Priority = priority
			continue
		}
		if status, ok := matchStatus(word); ok && c.Status == "" {
			c.Status = status
			continue
		}
		if window, err := service.ParseDueWindow(word); err == nil && word != "" && c.DueWindow == "" {
			c.DueWindow = window
			continue
		}
		search = append(search, word)
	}
	c.Search = strings.Join(search, " ")
	return c
}

func matchCategory(word string) (model.Category, bool) {
	for _, category := range model.Categories {
		if strings.EqualFold(word, string(category)) {
			return category, true
		}
	}
	return "", false
}

func matchPriority(word string) (model.Priority, bool) {
	for _, priority := range model.Priorities {
		if strings.EqualFold(word, string(priority)) {
			return priority, true
		}
	}
	return "", false
}

func matchStatus(word string) (model.Status, bool) {
	switch strings.ToLower(word) {
	case "pending", "open":
		return model.StatusPending, true
	case "completed", "done":
		return model.StatusCompleted, true
	default:
		return "", false
	}
}

func parseTaskID(raw string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("task id must be a positive number")
	}
	return id, nil
}

// parseIDAndRest splits "12 rest of args".
func parseIDAndRest(args string) (int, string, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return 0, "", fmt.Errorf("task id is required")
	}
	id, err := parseTaskID(fields[0])
	if err != nil {
		return 0, "", err
	}
	return id, strings.Join(fields[1:], " "), nil
}

// parseCallback splits "action:id[:minutes]".
func parseCallback(data string) (action string, id int, minutes int, err error) {
	parts := strings.Split(data, ":")
	if len(parts) < 2 {
		return "", 0, 0, fmt.Errorf("malformed callback %q", data)
	}
	id, err = parseTaskID(parts[1])
	if err != nil {
		return "", 0, 0, err
	}
	if len(parts) > 2 {
		minutes, err = strconv.Atoi(parts[2])
		if err != nil || minutes <= 0 {
			return "", 0, 0, fmt.Errorf("malformed snooze minutes in %q", data)
		}
	}
	return parts[0], id, minutes, nil
}

func parseDay(raw string, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "today") {
		return now, nil
	}
	if strings.EqualFold(raw, "tomorrow") {
		return now.AddDate(0, 0, 1), nil
	}
	day, err := time.ParseInLocation(model.DateLayout, raw, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("date must be YYYY-MM-DD")
	}
	return day, nil
}

// parseDayOffsets reads "1,3,7" as days before the due date.
func parseDayOffsets(raw string) ([]int, error) {
	var days []int
	for _, f := range strings.Split(raw, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("day offsets must be positive numbers, got %q", f)
		}
		days = append(days, n)
	}
	return days, nil
}
