package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"task-reminder/internal/model"
	"task-reminder/internal/service"
)

const (
	cbCompletePrefix = "complete"
	cbSnoozePrefix   = "snooze"
	cbDismissPrefix  = "dismiss"
)

const (
	menuLabelTasks   = "📋 Tasks"
	menuLabelToday   = "🔥 Today"
	menuLabelStats   = "📊 Stats"
	menuLabelHelp    = "ℹ️ Help"
	maxListedTasks   = 40
	defaultSnoozeMin = 10
)

// API is the part of *tgbotapi.BotAPI the bot uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Options wires the bot to the task services.
type Options struct {
	Store     *service.TaskService
	Reminders *service.ReminderService
	// ChatID is the only chat the bot answers and notifies.
	ChatID        int64
	SnoozeChoices []int
	Log           *slog.Logger
}

// Bot aggregates Telegram API with services.
type Bot struct {
	api           API
	store         *service.TaskService
	reminders     *service.ReminderService
	chatID        int64
	snoozeChoices []int
	log           *slog.Logger
}

// NewAPI authorizes token against the Telegram Bot API.
func NewAPI(token string) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	return api, nil
}

func New(api API, opts Options) *Bot {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	choices := opts.SnoozeChoices
	if len(choices) == 0 {
		choices = []int{defaultSnoozeMin}
	}
	return &Bot{
		api:           api,
		store:         opts.Store,
		reminders:     opts.Reminders,
		chatID:        opts.ChatID,
		snoozeChoices: choices,
		log:           log,
	}
}

// SendDigest posts an HTML text to the bot's chat.
func (b *Bot) SendDigest(_ context.Context, text string) error {
	return b.sendText(b.chatID, text)
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.log.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		b.HandleUpdate(ctx, update)
	}
	return ctx.Err()
}

// HandleUpdate serves one update from the configured chat and ignores the rest.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		cb := update.CallbackQuery
		if cb.Message == nil || cb.Message.Chat == nil || cb.Message.Chat.ID != b.chatID {
			return
		}
		if err := b.handleCallback(ctx, cb); err != nil {
			b.log.Warn("handle callback", "err", err)
		}
	case update.Message != nil:
		msg := update.Message
		if msg.Chat == nil || msg.Chat.ID != b.chatID {
			if msg.Chat != nil {
				b.log.Debug("message from foreign chat ignored", "chat_id", msg.Chat.ID)
			}
			return
		}
		if err := b.handleMessage(ctx, msg); err != nil {
			b.log.Warn("handle message", "err", err)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if !msg.IsCommand() {
		if handled, err := b.handleMenuAlias(msg); handled {
			return err
		}
		return b.sendText(msg.Chat.ID, "I did not get that. Send /add to create a task or /help for the command list.")
	}
	b.log.Info("command", "command", msg.Command(), "args", msg.CommandArguments())
	return b.handleCommand(ctx, msg)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())
	switch msg.Command() {
	case "start":
		return b.sendText(chatID, "👋 <b>Task reminders</b>\nI keep your tasks and ping you when they are due.\n\n"+helpText())
	case "help":
		return b.sendText(chatID, helpText())
	case "add":
		return b.handleAdd(ctx, chatID, args)
	case "tasks":
		return b.handleListTasks(chatID, args)
	case "today":
		return b.handleToday(chatID)
	case "calendar":
		return b.handleCalendar(chatID, args)
	case "overdue":
		return b.handleOverdue(chatID)
	case "stats":
		return b.handleStats(chatID)
	case "show":
		return b.handleShow(chatID, args)
	case "complete":
		return b.withTaskID(chatID, args, func(id int) error { return b.completeTask(ctx, chatID, id) })
	case "snooze":
		return b.handleSnooze(ctx, chatID, args)
	case "dismiss":
		return b.withTaskID(chatID, args, func(id int) error { return b.dismissTask(ctx, chatID, id) })
	case "delete":
		return b.withTaskID(chatID, args, func(id int) error { return b.deleteTask(ctx, chatID, id) })
	case "remind":
		return b.handleRemind(ctx, chatID, args)
	case "unremind":
		return b.handleUnremind(ctx, chatID, args)
	case "summary":
		return b.sendText(chatID, b.reminders.DailySummary(b.reminders.Now()))
	default:
		return b.sendText(chatID, "Unknown command. Send /help for the list.")
	}
}

func helpText() string {
	return strings.Join([]string{
		"ℹ️ <b>Commands</b>",
		"/add name | YYYY-MM-DD HH:MM [| category [| priority]]",
		"/tasks [category] [priority] [pending|completed] [today|this week|this month] [text]",
		"/today, /overdue, /calendar [today|tomorrow|YYYY-MM-DD]",
		"/show id, /complete id, /delete id",
		"/snooze id [minutes], /dismiss id",
		"/remind id YYYY-MM-DD HH:MM",
		"/remind id before 1,3 HH:MM",
		"/unremind id [YYYY-MM-DD HH:MM]",
		"/stats, /summary",
	}, "\n")
}

func (b *Bot) handleAdd(ctx context.Context, chatID int64, args string) error {
	input, err := parseAddArgs(args)
	if err != nil {
		return b.sendText(chatID, "⚠️ "+escape(err.Error())+"\nExample: /add Pay rent | 2025-02-01 09:00 | Personal | High")
	}
	input.ReminderEnabled = true
	task, err := b.store.Create(ctx, input)
	if err != nil && !service.IsSaveWarning(err) {
		return b.sendError(chatID, err)
	}
	text := "✅ Task added\n" + service.FormatTaskHTML(task, b.reminders.Now())
	return b.sendResult(chatID, text, err)
}

func (b *Bot) handleListTasks(chatID int64, args string) error {
	now := b.reminders.Now()
	criteria := parseFilterArgs(args)
	tasks := service.Filter(b.store.List(), criteria, now)
	service.SortTasks(tasks, service.SortByDue, false)
	return b.sendTaskList(chatID, "📋 <b>Tasks</b>", tasks, now)
}

func (b *Bot) handleToday(chatID int64) error {
	now := b.reminders.Now()
	return b.sendTaskList(chatID, "🔥 <b>Due today</b>", service.TodayView(b.store.List(), now), now)
}

func (b *Bot) handleOverdue(chatID int64) error {
	now := b.reminders.Now()
	return b.sendTaskList(chatID, "⚠️ <b>Overdue</b>", service.OverdueView(b.store.List(), now), now)
}

func (b *Bot) handleCalendar(chatID int64, args string) error {
	now := b.reminders.Now()
	day, err := parseDay(args, now)
	if err != nil {
		return b.sendText(chatID, "⚠️ "+escape(err.Error()))
	}
	title := fmt.Sprintf("🗓 <b>%s</b>", day.Format("Monday, 02.01.2006"))
	return b.sendTaskList(chatID, title, service.CalendarView(b.store.List(), day), now)
}

func (b *Bot) handleStats(chatID int64) error {
	st := service.Aggregate(b.store.List(), b.reminders.Now())

	var builder strings.Builder
	builder.WriteString("📊 <b>Statistics</b>\n")
	builder.WriteString(fmt.Sprintf("Total: %d\nCompleted: %d\nPending: %d\nOverdue: %d\n", st.Total, st.Completed, st.Pending, st.Overdue))
	builder.WriteString(fmt.Sprintf("Completion rate: %.1f%%\n", st.CompletionRate))

	builder.WriteString("\n<b>By category</b>\n")
	for _, category := range model.Categories {
		if n := st.ByCategory[category]; n > 0 {
			builder.WriteString(fmt.Sprintf("%s: %d (%.0f%%)\n", category, n, st.Share(n)))
		}
	}
	builder.WriteString("\n<b>By priority</b>\n")
	for _, priority := range model.Priorities {
		if n := st.ByPriority[priority]; n > 0 {
			builder.WriteString(fmt.Sprintf("%s: %d (%.0f%%)\n", priority, n, st.Share(n)))
		}
	}
	return b.sendText(chatID, strings.TrimSpace(builder.String()))
}

func (b *Bot) handleShow(chatID int64, args string) error {
	id, err := parseTaskID(args)
	if err != nil {
		return b.sendText(chatID, "⚠️ "+escape(err.Error()))
	}
	task, err := b.store.Get(id)
	if err != nil {
		return b.sendError(chatID, err)
	}
	now := b.reminders.Now()

	var builder strings.Builder
	builder.WriteString(service.FormatTaskHTML(task, now))
	if token := task.ReminderTime; token != "" && token != model.ReminderCustom {
		builder.WriteString(fmt.Sprintf("🔔 reminder %s\n", html.EscapeString(token)))
	}
	if task.CustomReminder != nil {
		builder.WriteString(fmt.Sprintf("🔔 custom reminder (%s)\n", task.CustomReminder.Type))
		for _, instant := range task.CustomReminder.Times {
			builder.WriteString("   • " + html.EscapeString(instant) + "\n")
		}
	}
	if trigger, ok := b.reminders.EffectiveTrigger(task); ok && !task.IsCompleted() {
		builder.WriteString(fmt.Sprintf("⏱ next reminder %s (%s)\n", model.FormatWallClock(trigger.At), trigger.Source))
	}
	if b.reminders.IsActive(id) {
		builder.WriteString("🔔 <b>reminder waiting for an answer</b>\n")
	}
	builder.WriteString("\n<pre>" + html.EscapeString(task.ShareText()) + "</pre>")

	if task.IsCompleted() {
		return b.sendText(chatID, builder.String())
	}
	return b.sendWithReplyMarkup(chatID, builder.String(), taskActionsKeyboard(id, b.snoozeChoices))
}

func (b *Bot) handleSnooze(ctx context.Context, chatID int64, args string) error {
	id, rest, err := parseIDAndRest(args)
	if err != nil {
		return b.sendText(chatID, "⚠️ "+escape(err.Error()))
	}
	minutes := b.snoozeChoices[0]
	if rest != "" {
		minutes, err = strconv.Atoi(rest)
		if err != nil || minutes <= 0 {
			return b.sendText(chatID, "⚠️ minutes must be a positive number")
		}
	}
	return b.snoozeTask(ctx, chatID, id, minutes)
}

// handleRemind sets a custom reminder: one instant, or N days before the due date.
func (b *Bot) handleRemind(ctx context.Context, chatID int64, args string) error {
	id, rest, err := parseIDAndRest(args)
	if err != nil {
		return b.sendText(chatID, "⚠️ "+escape(err.Error()))
	}
	task, err := b.store.Get(id)
	if err != nil {
		return b.sendError(chatID, err)
	}
	loc := b.store.Location()

	var reminder model.CustomReminder
	fields := strings.Fields(rest)
	switch {
	case len(fields) == 3 && strings.EqualFold(fields[0], "before"):
		days, perr := parseDayOffsets(fields[1])
		if perr != nil {
			return b.sendText(chatID, "⚠️ "+escape(perr.Error()))
		}
		due, derr := task.Due(loc)
		if derr != nil {
			return b.sendError(chatID, derr)
		}
		reminder, err = model.BuildCustomReminder(model.ReminderMultiple, due, time.Time{}, fields[2], days)
	case len(fields) == 2:
		date, derr := time.ParseInLocation(model.DateLayout, fields[0], loc)
		if derr != nil {
			return b.sendText(chatID, "⚠️ date must be YYYY-MM-DD")
		}
		reminder, err = model.BuildCustomReminder(model.ReminderSingle, time.Time{}, date, fields[1], nil)
	default:
		return b.sendText(chatID, "⚠️ use /remind id YYYY-MM-DD HH:MM or /remind id before 1,3 HH:MM")
	}
	if err != nil {
		return b.sendError(chatID, err)
	}

	task, err = b.store.SetCustomReminder(ctx, id, reminder)
	if err != nil && !service.IsSaveWarning(err) {
		return b.sendError(chatID, err)
	}
	text := fmt.Sprintf("🔔 Reminder set for <b>#%d</b>: %s", task.ID, html.EscapeString(strings.Join(reminder.Times, ", ")))
	return b.sendResult(chatID, text, err)
}

func (b *Bot) handleUnremind(ctx context.Context, chatID int64, args string) error {
	id, instant, err := parseIDAndRest(args)
	if err != nil {
		return b.sendText(chatID, "⚠️ "+escape(err.Error()))
	}
	task, err := b.store.Get(id)
	if err != nil {
		return b.sendError(chatID, err)
	}
	if task.CustomReminder == nil {
		return b.sendText(chatID, fmt.Sprintf("🔍 <b>#%d</b> has no custom reminder.", id))
	}
	if instant == "" {
		task, err = b.store.Update(ctx, id, service.TaskPatch{ClearCustomReminder: true})
	} else {
		task, err = b.store.DeleteCustomReminderTime(ctx, id, instant)
	}
	if err != nil && !service.IsSaveWarning(err) {
		return b.sendError(chatID, err)
	}
	text := fmt.Sprintf("🔕 Custom reminder of <b>#%d</b> removed.", task.ID)
	if instant != "" {
		text = fmt.Sprintf("🔕 Reminder %s of <b>#%d</b> removed.", html.EscapeString(instant), task.ID)
	}
	if !task.ReminderEnabled {
		text += "\nReminders for this task are now off."
	}
	return b.sendResult(chatID, text, err)
}

func (b *Bot) withTaskID(chatID int64, args string, fn func(id int) error) error {
	id, err := parseTaskID(args)
	if err != nil {
		return b.sendText(chatID, "⚠️ "+escape(err.Error()))
	}
	return fn(id)
}

func (b *Bot) completeTask(ctx context.Context, chatID int64, id int) error {
	task, err := b.reminders.Complete(ctx, id)
	if err != nil && !service.IsSaveWarning(err) {
		return b.sendError(chatID, err)
	}
	return b.sendResult(chatID, fmt.Sprintf("✅ <b>#%d</b> %s completed.", task.ID, escape(task.Name)), err)
}

func (b *Bot) snoozeTask(ctx context.Context, chatID int64, id, minutes int) error {
	task, err := b.reminders.Snooze(ctx, id, minutes)
	if err != nil && !service.IsSaveWarning(err) {
		return b.sendError(chatID, err)
	}
	return b.sendResult(chatID, fmt.Sprintf("😴 <b>#%d</b> snoozed until %s.", task.ID, task.NextReminder), err)
}

func (b *Bot) dismissTask(ctx context.Context, chatID int64, id int) error {
	task, err := b.reminders.Dismiss(ctx, id)
	if err != nil && !service.IsSaveWarning(err) {
		return b.sendError(chatID, err)
	}
	text := fmt.Sprintf("🔕 Reminder for <b>#%d</b> dismissed.", task.ID)
	if task.NextReminder != "" {
		text += fmt.Sprintf(" I will ask again at %s.", task.NextReminder)
	}
	return b.sendResult(chatID, text, err)
}

func (b *Bot) deleteTask(ctx context.Context, chatID int64, id int) error {
	task, err := b.store.Get(id)
	if err != nil {
		return b.sendError(chatID, err)
	}
	err = b.store.Delete(ctx, id)
	if err != nil && !service.IsSaveWarning(err) {
		return b.sendError(chatID, err)
	}
	return b.sendResult(chatID, fmt.Sprintf("🗑 <b>#%d</b> %s deleted.", id, escape(task.Name)), err)
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		b.log.Warn("callback ack", "err", err)
	}

	action, id, minutes, err := parseCallback(cb.Data)
	if err != nil {
		b.log.Debug("callback ignored", "data", cb.Data, "err", err)
		return nil
	}
	chatID := cb.Message.Chat.ID
	b.log.Info("callback", "action", action, "task_id", id)

	switch action {
	case cbCompletePrefix:
		return b.completeTask(ctx, chatID, id)
	case cbSnoozePrefix:
		if minutes == 0 {
			minutes = b.snoozeChoices[0]
		}
		return b.snoozeTask(ctx, chatID, id, minutes)
	case cbDismissPrefix:
		return b.dismissTask(ctx, chatID, id)
	default:
		return nil
	}
}

func (b *Bot) handleMenuAlias(msg *tgbotapi.Message) (bool, error) {
	text := strings.TrimSpace(strings.ToLower(msg.Text))
	switch text {
	case strings.ToLower(menuLabelTasks):
		return true, b.handleListTasks(msg.Chat.ID, "pending")
	case strings.ToLower(menuLabelToday):
		return true, b.handleToday(msg.Chat.ID)
	case strings.ToLower(menuLabelStats):
		return true, b.handleStats(msg.Chat.ID)
	case strings.ToLower(menuLabelHelp):
		return true, b.sendText(msg.Chat.ID, helpText())
	default:
		return false, nil
	}
}

func (b *Bot) sendTaskList(chatID int64, title string, tasks []model.Task, now time.Time) error {
	if len(tasks) == 0 {
		return b.sendText(chatID, title+"\nNothing here.")
	}

	var builder strings.Builder
	builder.WriteString(title + "\n\n")

	var buttons [][]tgbotapi.InlineKeyboardButton
	for i, task := range tasks {
		if i == maxListedTasks {
			builder.WriteString(fmt.Sprintf("\n…and %d more. Narrow the list with /tasks filters.", len(tasks)-maxListedTasks))
			break
		}
		builder.WriteString(service.FormatTaskHTML(task, now))
		if !task.IsCompleted() {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("✅ #%d · %s", task.ID, shortTitle(task.Name, 24)), callbackData(cbCompletePrefix, task.ID, 0)),
			))
		}
	}

	text := strings.TrimSpace(builder.String())
	if len(buttons) == 0 {
		return b.sendText(chatID, text)
	}
	return b.sendWithReplyMarkup(chatID, text, tgbotapi.NewInlineKeyboardMarkup(buttons...))
}

// sendResult reports a successful change, noting when it could not be saved.
func (b *Bot) sendResult(chatID int64, text string, err error) error {
	if err != nil && service.IsSaveWarning(err) {
		text += "\n\n💾 " + escape(err.Error())
	}
	return b.sendText(chatID, text)
}

func (b *Bot) sendError(chatID int64, err error) error {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return b.sendText(chatID, "🔍 "+escape(err.Error()))
	case errors.Is(err, model.ErrValidation), errors.Is(err, model.ErrParse):
		return b.sendText(chatID, "⚠️ "+escape(err.Error()))
	default:
		b.log.Error("request failed", "err", err)
		return b.sendText(chatID, "❌ Something went wrong: "+escape(err.Error()))
	}
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelTasks),
			tgbotapi.NewKeyboardButton(menuLabelToday),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelStats),
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = false
	return kb
}

// taskActionsKeyboard offers complete, one snooze button per choice and dismiss.
func taskActionsKeyboard(id int, snoozeChoices []int) tgbotapi.InlineKeyboardMarkup {
	var snoozeRow []tgbotapi.InlineKeyboardButton
	for _, minutes := range snoozeChoices {
		snoozeRow = append(snoozeRow, tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("😴 %d min", minutes), callbackData(cbSnoozePrefix, id, minutes)))
	}
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Complete", callbackData(cbCompletePrefix, id, 0)),
			tgbotapi.NewInlineKeyboardButtonData("🔕 Dismiss", callbackData(cbDismissPrefix, id, 0)),
		),
	}
	if len(snoozeRow) > 0 {
		rows = append(rows, snoozeRow)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func callbackData(action string, id, minutes int) string {
	if minutes > 0 {
		return fmt.Sprintf("%s:%d:%d", action, id, minutes)
	}
	return fmt.Sprintf("%s:%d", action, id)
}

func shortTitle(title string, maxLen int) string {
	clean := strings.Join(strings.Fields(title), " ")
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func escape(s string) string {
	return html.EscapeString(s)
}
