package service

import (
	"fmt"
	"html"
	"strings"
	"time"

	"task-reminder/internal/model"
)

// DailySummary builds the HTML digest of today's and overdue pending tasks.
func (s *ReminderService) DailySummary(now time.Time) string {
	now = now.In(s.store.loc)
	tasks := s.store.List()
	today := TodayView(tasks, now)

	var overdue []model.Task
	for _, task := range OverdueView(tasks, now) {
		due, err := task.Due(now.Location())
		if err == nil && !sameDay(due, now) {
			overdue = append(overdue, task)
		}
	}

	var builder strings.Builder
	builder.WriteString("📋 <b>Daily summary</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", now.Format("02.01.2006")))

	builder.WriteString("🔥 <b>Due today</b>\n")
	if len(today) == 0 {
		builder.WriteString("— nothing due today\n")
	} else {
		for _, task := range today {
			builder.WriteString(FormatTaskHTML(task, now))
		}
	}

	builder.WriteString("\n⚠️ <b>Overdue</b>\n")
	if len(overdue) == 0 {
		builder.WriteString("— no overdue tasks\n")
	} else {
		for _, task := range overdue {
			builder.WriteString(FormatTaskHTML(task, now))
		}
	}

	return strings.TrimSpace(builder.String())
}

// FormatTaskHTML renders one task line for Telegram HTML messages.
func FormatTaskHTML(task model.Task, now time.Time) string {
	var sb strings.Builder

	icon := "🟢"
	due, err := task.Due(now.Location())
	switch {
	case task.IsCompleted():
		icon = "✅"
	case err != nil:
		icon = "❔"
	case now.After(due):
		icon = "⚠️"
	case due.Sub(now) <= 48*time.Hour:
		icon = "⏳"
	}

	sb.WriteString(fmt.Sprintf("%s <b>#%d</b> %s", icon, task.ID, html.EscapeString(strings.TrimSpace(task.Name))))
	sb.WriteString(fmt.Sprintf(" <i>(%s, %s)</i>", task.Category.OrDefault(), task.Priority.OrDefault()))

	if err == nil {
		if !task.IsCompleted() && now.After(due) {
			sb.WriteString(fmt.Sprintf("\n   ⏰ %s · <b>overdue</b>", task.DueDate))
		} else {
			sb.WriteString(fmt.Sprintf("\n   ⏰ %s", task.DueDate))
		}
	}

	if notes := strings.TrimSpace(task.Notes); notes != "" {
		sb.WriteString(fmt.Sprintf("\n   📝 %s", html.EscapeString(notes)))
	}

	sb.WriteByte('\n')
	return sb.String()
}
