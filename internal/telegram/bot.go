package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/digkill/QuitCoachAPI/internal/clock"
	"github.com/digkill/QuitCoachAPI/internal/models"
	"github.com/digkill/QuitCoachAPI/internal/service"
)

const logCallbackPrefix = "log:"

var quickCounts = []int{0, 1, 2, 3, 5, 10}

// Bot pushes notifications to linked chats and lets members check their plan
// and log today's progress from Telegram.
type Bot struct {
	api      *tgbotapi.BotAPI
	log      *slog.Logger
	users    *service.UserService
	plans    *service.PlanService
	progress *service.ProgressService
	badges   *service.BadgeService
	state    *StateManager
}

func NewBot(api *tgbotapi.BotAPI, log *slog.Logger, users *service.UserService, plans *service.PlanService, progress *service.ProgressService, badges *service.BadgeService) *Bot {
	return &Bot{
		api:      api,
		log:      log,
		users:    users,
		plans:    plans,
		progress: progress,
		badges:   badges,
		state:    NewStateManager(),
	}
}

func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.log.Info("telegram bot started", "username", b.api.Self.UserName)

	for {
		select {
		case update := <-updates:
			if update.Message != nil {
				b.handleMessage(ctx, update.Message)
			} else if update.CallbackQuery != nil {
				b.handleCallback(ctx, update.CallbackQuery)
			}
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		}
	}
}

// Send delivers a notification to a linked chat.
func (b *Bot) Send(_ context.Context, chatID int64, text string) error {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}

	session := b.state.Get(msg.Chat.ID)
	switch session.State {
	case StateAwaitingCount:
		count, note, err := parseLogArgs(msg.Text)
		if err != nil {
			b.sendText(msg.Chat.ID, "Send a whole number of cigarettes, for example: 3")
			return
		}
		b.state.Reset(msg.Chat.ID)
		b.logCount(ctx, msg.Chat.ID, count, note)
	default:
		b.sendText(msg.Chat.ID, "Use /log to record today's cigarettes or /plan to see your plan.")
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start", "help":
		b.handleStart(ctx, msg)
	case "plan":
		b.handlePlan(ctx, msg.Chat.ID)
	case "log":
		args := strings.TrimSpace(msg.CommandArguments())
		if args == "" {
			b.promptCount(ctx, msg.Chat.ID)
			return
		}
		count, note, err := parseLogArgs(args)
		if err != nil {
			b.sendText(msg.Chat.ID, "Format: /log <count> [note]")
			return
		}
		b.logCount(ctx, msg.Chat.ID, count, note)
	case "badges":
		b.handleBadges(ctx, msg.Chat.ID)
	default:
		b.sendText(msg.Chat.ID, "Unknown command. Try /plan, /log or /badges.")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	user, err := b.linkedUser(ctx, msg.Chat.ID)
	if err != nil {
		return
	}
	name := ""
	if msg.From != nil {
		name = msg.From.FirstName
	}
	text := fmt.Sprintf("Hi %s!\n\nCommands:\n/plan - your current plan and stage\n/log <count> [note] - record today's cigarettes\n/badges - badges you earned", name)
	if user == nil {
		text += fmt.Sprintf("\n\nThis chat is not linked yet. Link chat id %d in the app to use the commands and receive updates.", msg.Chat.ID)
	}
	b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handlePlan(ctx context.Context, chatID int64) {
	user := b.requireUser(ctx, chatID)
	if user == nil {
		return
	}
	plan, views, ok := b.ongoingPlan(ctx, chatID, user.ID)
	if !ok {
		return
	}
	b.sendText(chatID, formatPlan(plan, views))
}

func (b *Bot) handleBadges(ctx context.Context, chatID int64) {
	user := b.requireUser(ctx, chatID)
	if user == nil {
		return
	}
	owned, err := b.badges.ListForUser(ctx, user.ID)
	if err != nil {
		b.log.Error("list user badges", "err", err, "user_id", user.ID)
		b.sendText(chatID, "Could not load your badges, try again later.")
		return
	}
	b.sendText(chatID, formatBadges(owned))
}

func (b *Bot) promptCount(ctx context.Context, chatID int64) {
	user := b.requireUser(ctx, chatID)
	if user == nil {
		return
	}
	plan, views, ok := b.ongoingPlan(ctx, chatID, user.ID)
	if !ok {
		return
	}
	stage := currentStage(views)
	if stage == nil {
		b.sendText(chatID, "No stage of your plan is active today.")
		return
	}
	b.state.Set(chatID, &Session{State: StateAwaitingCount, PlanID: plan.ID, StageID: stage.ID})

	row := make([]tgbotapi.InlineKeyboardButton, 0, len(quickCounts))
	for _, n := range quickCounts {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(strconv.Itoa(n), logCallbackPrefix+strconv.Itoa(n)))
	}
	out := tgbotapi.NewMessage(chatID, fmt.Sprintf("How many cigarettes did you smoke today? (%s)", ceilingText(stage.MaxDailyCigarette)))
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(row)
	if _, err := b.api.Send(out); err != nil {
		b.log.Error("send keyboard", "err", err)
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil || !strings.HasPrefix(cb.Data, logCallbackPrefix) {
		if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "Unknown choice")); err != nil {
			b.log.Error("callback error", "err", err)
		}
		return
	}
	count, err := strconv.Atoi(strings.TrimPrefix(cb.Data, logCallbackPrefix))
	if err != nil || count < 0 {
		return
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "Saved")); err != nil {
		b.log.Error("callback ack", "err", err)
	}
	b.state.Reset(cb.Message.Chat.ID)
	b.logCount(ctx, cb.Message.Chat.ID, count, "")
}

func (b *Bot) logCount(ctx context.Context, chatID int64, count int, note string) {
	user := b.requireUser(ctx, chatID)
	if user == nil {
		return
	}
	plan, views, ok := b.ongoingPlan(ctx, chatID, user.ID)
	if !ok {
		return
	}
	stage := currentStage(views)
	if stage == nil {
		b.sendText(chatID, "No stage of your plan is active today.")
		return
	}

	res, err := b.progress.Record(ctx, service.RecordInput{
		UserID:         user.ID,
		PlanID:         plan.ID,
		StageID:        stage.ID,
		CigaretteCount: count,
		Note:           note,
	})
	var verr *service.ValidationError
	switch {
	case err == nil:
		b.sendText(chatID, formatResult(res))
	case errors.Is(err, service.ErrConflict):
		b.sendText(chatID, "You already logged today. Come back tomorrow!")
	case errors.As(err, &verr):
		b.sendText(chatID, verr.Error())
	default:
		b.log.Error("record progress from telegram", "err", err, "user_id", user.ID)
		b.sendText(chatID, "Could not save your progress, try again later.")
	}
}

// linkedUser returns the account linked to chatID, or nil when none is.
func (b *Bot) linkedUser(ctx context.Context, chatID int64) (*models.User, error) {
	user, err := b.users.FindByTelegramID(ctx, chatID)
	if err != nil {
		b.log.Error("find user by chat", "err", err, "chat_id", chatID)
		b.sendText(chatID, "Something went wrong, try again later.")
		return nil, err
	}
	return user, nil
}

func (b *Bot) requireUser(ctx context.Context, chatID int64) *models.User {
	user, err := b.linkedUser(ctx, chatID)
	if err != nil {
		return nil
	}
	if user == nil {
		b.sendText(chatID, fmt.Sprintf("This chat is not linked yet. Link chat id %d in the app first.", chatID))
	}
	return user
}

func (b *Bot) ongoingPlan(ctx context.Context, chatID, userID int64) (*models.QuitPlan, []service.StageView, bool) {
	plan, err := b.plans.Ongoing(ctx, userID)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			b.sendText(chatID, "You have no ongoing plan. Create one in the app.")
		} else {
			b.log.Error("load ongoing plan", "err", err, "user_id", userID)
			b.sendText(chatID, "Could not load your plan, try again later.")
		}
		return nil, nil, false
	}
	views, err := b.plans.Stages(ctx, plan.ID)
	if err != nil {
		b.log.Error("load plan stages", "err", err, "plan_id", plan.ID)
		b.sendText(chatID, "Could not load your plan, try again later.")
		return nil, nil, false
	}
	return plan, views, true
}

func (b *Bot) sendText(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send text", "err", err)
	}
}

// parseLogArgs reads "<count> [note]".
func parseLogArgs(text string) (int, string, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return 0, "", fmt.Errorf("count is required")
	}
	count, err := strconv.Atoi(fields[0])
	if err != nil || count < 0 {
		return 0, "", fmt.Errorf("invalid count %q", fields[0])
	}
	return count, strings.Join(fields[1:], " "), nil
}

func currentStage(views []service.StageView) *service.StageView {
	for i := range views {
		if views[i].IsCurrent {
			return &views[i]
		}
	}
	return nil
}

func ceilingText(ceiling *int) string {
	switch {
	case ceiling == nil:
		return "no daily limit"
	case *ceiling == 0:
		return "goal: smoke-free"
	default:
		return fmt.Sprintf("limit: %d", *ceiling)
	}
}

func formatPlan(plan *models.QuitPlan, views []service.StageView) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Goal: %s\nStarted: %s\n", plan.Goal, clock.FormatDate(plan.StartDate))
	for _, v := range views {
		marker := "  "
		if v.IsCurrent {
			marker = "> "
		}
		fmt.Fprintf(&sb, "\n%s%d. %s [%s]\n   %s to %s, %s, %d/%d days logged",
			marker, v.Position, v.Name, v.Status,
			clock.FormatDate(v.StartDate), clock.FormatDate(v.EndDate), ceilingText(v.MaxDailyCigarette),
			v.DaysRecorded, v.TotalDays)
	}
	return sb.String()
}

func formatResult(res *service.RecordResult) string {
	if res.Cancelled || res.Warning {
		return res.Message
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Logged %d cigarettes for %q.", res.Record.CigaretteCount, res.Stage.Name)
	if res.Stage.Status == models.StageCompleted {
		sb.WriteString("\nStage completed!")
	}
	if res.Plan.Status == models.PlanCompleted {
		sb.WriteString("\nYou completed your whole quit plan. Congratulations!")
	}
	for _, ub := range res.NewBadges {
		if ub.Badge != nil {
			fmt.Fprintf(&sb, "\nNew badge: %s", ub.Badge.Name)
		}
	}
	return sb.String()
}

func formatBadges(owned []models.UserBadge) string {
	if len(owned) == 0 {
		return "No badges yet. Keep logging smoke-free days!"
	}
	var sb strings.Builder
	sb.WriteString("Your badges:")
	for _, ub := range owned {
		name := fmt.Sprintf("badge #%d", ub.BadgeID)
		if ub.Badge != nil {
			name = ub.Badge.Name
		}
		fmt.Fprintf(&sb, "\n- %s (%s)", name, ub.GrantedAt.Format(clock.DateLayout))
	}
	return sb.String()
}
