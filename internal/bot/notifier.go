package bot

import (
	"context"
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"task-reminder/internal/service"
)

// TelegramNotifier posts fired reminders to one chat.
type TelegramNotifier struct {
	api           API
	chatID        int64
	snoozeChoices []int
}

func NewTelegramNotifier(api API, chatID int64, snoozeChoices []int) *TelegramNotifier {
	if len(snoozeChoices) == 0 {
		snoozeChoices = []int{defaultSnoozeMin}
	}
	return &TelegramNotifier{api: api, chatID: chatID, snoozeChoices: snoozeChoices}
}

// Notify sends a plain reminder without actions.
func (n *TelegramNotifier) Notify(ctx context.Context, taskName, dueDateText string) error {
	return n.send(ctx, reminderText(taskName, dueDateText), nil)
}

// NotifyEvent sends the reminder with complete, snooze and dismiss buttons.
func (n *TelegramNotifier) NotifyEvent(ctx context.Context, ev service.ReminderEvent) error {
	text := reminderText(ev.TaskName, ev.DueDate)
	if ev.Trigger.Source == service.TriggerSnooze {
		text += "\n😴 snoozed reminder"
	}
	text = fmt.Sprintf("<b>#%d</b> ", ev.TaskID) + text
	markup := taskActionsKeyboard(ev.TaskID, n.snoozeChoices)
	return n.send(ctx, text, &markup)
}

func (n *TelegramNotifier) send(ctx context.Context, text string, markup *tgbotapi.InlineKeyboardMarkup) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if markup != nil {
		msg.ReplyMarkup = *markup
	}
	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("send reminder: %w", err)
	}
	return nil
}

func reminderText(taskName, dueDateText string) string {
	return fmt.Sprintf("🔔 <b>Reminder</b>: %s\n⏰ due %s", html.EscapeString(strings.TrimSpace(taskName)), html.EscapeString(dueDateText))
}
