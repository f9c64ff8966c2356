// Package bot implements the Telegram command surface. Handlers stay thin:
// they translate messages into lifecycle and repository calls and format the
// results back into chat replies.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"github.com/google/uuid"

	"imagebot/internal/domain"
	"imagebot/internal/infra"
	"imagebot/internal/lifecycle"
	"imagebot/internal/telegram"
)

const historyLimit = 5

// Granter credits tokens outside the job flow. The ledger satisfies it.
type Granter interface {
	Credit(ctx context.Context, accountID uuid.UUID, amount int) error
}

// Bot routes incoming Telegram updates to command handlers.
type Bot struct {
	api         *tgbotapi.BotAPI
	life        *lifecycle.JobLifecycle
	accounts    domain.AccountRepository
	jobs        domain.JobRepository
	templates   domain.TemplateRepository
	stats       domain.StatsRepository
	granter     Granter
	signupGrant int
	adminID     int64
	logger      infra.Logger
}

// Options gathers the bot's collaborators.
type Options struct {
	Client      *telegram.Client
	Lifecycle   *lifecycle.JobLifecycle
	Accounts    domain.AccountRepository
	Jobs        domain.JobRepository
	Templates   domain.TemplateRepository
	Stats       domain.StatsRepository
	Granter     Granter
	SignupGrant int
	AdminID     int64
	Logger      infra.Logger
}

func New(opts Options) *Bot {
	return &Bot{
		api:         opts.Client.API(),
		life:        opts.Lifecycle,
		accounts:    opts.Accounts,
		jobs:        opts.Jobs,
		templates:   opts.Templates,
		stats:       opts.Stats,
		granter:     opts.Granter,
		signupGrant: opts.SignupGrant,
		adminID:     opts.AdminID,
		logger:      opts.Logger,
	}
}

// Run consumes the long-poll update channel until the context is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates, err := b.api.GetUpdatesChan(u)
	if err != nil {
		return fmt.Errorf("bot: open update channel: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			b.handleCommand(ctx, update.Message)
		}
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	account, created, err := b.accounts.GetOrCreate(ctx, int64(msg.From.ID), msg.From.UserName, msg.From.FirstName, b.signupGrant)
	if err != nil {
		b.logger.Error().Err(err).Int("telegram_id", msg.From.ID).Msg("account lookup failed")
		b.reply(msg.Chat.ID, "Something went wrong, please try again later.")
		return
	}

	switch msg.Command() {
	case "start":
		b.handleStart(msg, account, created)
	case "help":
		b.reply(msg.Chat.ID, helpText)
	case "generate":
		b.handleGenerate(ctx, msg, account)
	case "edit":
		b.handleEdit(ctx, msg, account)
	case "balance":
		b.reply(msg.Chat.ID, fmt.Sprintf("Balance: %d tokens", account.Balance))
	case "history":
		b.handleHistory(ctx, msg, account)
	case "templates":
		b.handleTemplates(ctx, msg)
	case "template":
		b.handleTemplate(ctx, msg, account)
	case "settings":
		b.handleSettings(ctx, msg, account)
	case "stats":
		b.handleStats(ctx, msg, account)
	case "grant":
		b.handleGrant(ctx, msg, account)
	default:
		b.reply(msg.Chat.ID, "Unknown command. Send /help for the list of commands.")
	}
}

const helpText = `Available commands:
/generate <prompt> - create an image from a prompt
/edit <prompt> - edit a photo (send as a reply to the photo)
/template <number> [extra] - generate using a saved template
/templates - list saved templates
/balance - show your token balance
/history - show your recent jobs
/settings - show or change quality, size and model
/help - show this help`

func (b *Bot) handleStart(msg *tgbotapi.Message, account *domain.Account, created bool) {
	if created {
		b.reply(msg.Chat.ID, fmt.Sprintf(
			"Welcome! You received %d tokens to get started.\nSend /generate <prompt> to create your first image.", account.Balance))
		return
	}
	b.reply(msg.Chat.ID, fmt.Sprintf("Welcome back! Balance: %d tokens. Send /help for commands.", account.Balance))
}

func (b *Bot) handleGenerate(ctx context.Context, msg *tgbotapi.Message, account *domain.Account) {
	prompt := strings.TrimSpace(msg.CommandArguments())
	b.submit(ctx, msg, account, lifecycle.SubmitRequest{
		AccountID: account.ID,
		Kind:      domain.JobKindGenerate,
		Prompt:    prompt,
		Quality:   account.ImageQuality,
		Size:      account.ImageSize,
	}, "Usage: /generate <prompt>")
}

func (b *Bot) handleEdit(ctx context.Context, msg *tgbotapi.Message, account *domain.Account) {
	prompt := strings.TrimSpace(msg.CommandArguments())
	source := sourceFileID(msg)
	if source == "" {
		b.reply(msg.Chat.ID, "Reply to a photo with /edit <prompt> to edit it.")
		return
	}
	b.submit(ctx, msg, account, lifecycle.SubmitRequest{
		AccountID: account.ID,
		Kind:      domain.JobKindEdit,
		Prompt:    prompt,
		Quality:   account.ImageQuality,
		Size:      account.ImageSize,
		SourceRef: source,
	}, "Usage: /edit <prompt>, sent as a reply to a photo")
}

func (b *Bot) handleTemplate(ctx context.Context, msg *tgbotapi.Message, account *domain.Account) {
	args := strings.Fields(msg.CommandArguments())
	if len(args) == 0 {
		b.reply(msg.Chat.ID, "Usage: /template <number> [extra details]. See /templates for the list.")
		return
	}
	idx, err := strconv.Atoi(args[0])
	if err != nil || idx < 1 {
		b.reply(msg.Chat.ID, "Template number must be a positive integer. See /templates.")
		return
	}

	list, err := b.templates.ListActive(ctx)
	if err != nil {
		b.logger.Error().Err(err).Msg("template list failed")
		b.reply(msg.Chat.ID, "Something went wrong, please try again later.")
		return
	}
	if idx > len(list) {
		b.reply(msg.Chat.ID, fmt.Sprintf("No template %d. There are %d templates, see /templates.", idx, len(list)))
		return
	}
	tpl := list[idx-1]

	prompt := tpl.Prompt
	if extra := strings.TrimSpace(strings.Join(args[1:], " ")); extra != "" {
		prompt = prompt + ", " + extra
	}
	b.submit(ctx, msg, account, lifecycle.SubmitRequest{
		AccountID:      account.ID,
		Kind:           domain.JobKindGenerate,
		Prompt:         prompt,
		Quality:        account.ImageQuality,
		Size:           account.ImageSize,
		CostMultiplier: tpl.CostMultiplier,
	}, "Usage: /template <number> [extra details]")
}

func (b *Bot) submit(ctx context.Context, msg *tgbotapi.Message, account *domain.Account, req lifecycle.SubmitRequest, usage string) {
	job, err := b.life.Submit(ctx, req)
	if err != nil {
		b.reply(msg.Chat.ID, submitErrorText(err, usage))
		return
	}
	b.reply(msg.Chat.ID, fmt.Sprintf(
		"Queued! %d tokens reserved, balance after: %d.\nYou will receive the image here when it is ready.",
		job.Cost, account.Balance-job.Cost))
}

func submitErrorText(err error, usage string) string {
	var insufficient *domain.InsufficientBalanceError
	if errors.As(err, &insufficient) {
		return fmt.Sprintf("Not enough tokens: this image costs %d, you have %d.", insufficient.Required, insufficient.Available)
	}
	var limited *domain.RateLimitedError
	if errors.As(err, &limited) {
		return fmt.Sprintf("Rate limit reached: at most %d jobs per hour. Please try again later.", limited.Limit)
	}
	if errors.Is(err, domain.ErrInvalidPrompt) {
		return usage
	}
	return "Something went wrong, please try again later."
}

func (b *Bot) handleHistory(ctx context.Context, msg *tgbotapi.Message, account *domain.Account) {
	jobs, err := b.jobs.ListRecent(ctx, account.ID, historyLimit)
	if err != nil {
		b.logger.Error().Err(err).Msg("history lookup failed")
		b.reply(msg.Chat.ID, "Something went wrong, please try again later.")
		return
	}
	if len(jobs) == 0 {
		b.reply(msg.Chat.ID, "No jobs yet. Send /generate <prompt> to create one.")
		return
	}

	var sb strings.Builder
	sb.WriteString("Recent jobs:\n")
	for _, j := range jobs {
		prompt := j.Prompt
		if r := []rune(prompt); len(r) > 40 {
			prompt = string(r[:40]) + "..."
		}
		fmt.Fprintf(&sb, "%s  %s  %d tokens  %s\n", j.CreatedAt.Format("02.01 15:04"), j.Status, j.Cost, prompt)
	}
	b.reply(msg.Chat.ID, sb.String())
}

func (b *Bot) handleTemplates(ctx context.Context, msg *tgbotapi.Message) {
	list, err := b.templates.ListActive(ctx)
	if err != nil {
		b.logger.Error().Err(err).Msg("template list failed")
		b.reply(msg.Chat.ID, "Something went wrong, please try again later.")
		return
	}
	if len(list) == 0 {
		b.reply(msg.Chat.ID, "No templates available right now.")
		return
	}
	var sb strings.Builder
	sb.WriteString("Templates (use /template <number>):\n")
	for i, t := range list {
		fmt.Fprintf(&sb, "%d. %s", i+1, t.Name)
		if t.Description != "" {
			fmt.Fprintf(&sb, " - %s", t.Description)
		}
		if t.CostMultiplier > 1 {
			fmt.Fprintf(&sb, " (x%d cost)", t.CostMultiplier)
		}
		sb.WriteString("\n")
	}
	b.reply(msg.Chat.ID, sb.String())
}

func (b *Bot) handleSettings(ctx context.Context, msg *tgbotapi.Message, account *domain.Account) {
	args := strings.Fields(msg.CommandArguments())
	if len(args) == 0 {
		b.reply(msg.Chat.ID, fmt.Sprintf(
			"Current settings:\nquality: %s\nsize: %s\nmodel: %s\n\nChange with /settings quality=high size=1024x1536",
			account.ImageQuality, account.ImageSize, account.Model))
		return
	}

	var settings domain.AccountSettings
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || value == "" {
			b.reply(msg.Chat.ID, "Settings are key=value pairs, e.g. /settings quality=high")
			return
		}
		v := value
		switch key {
		case "quality":
			settings.ImageQuality = &v
		case "size":
			settings.ImageSize = &v
		case "model":
			settings.Model = &v
		default:
			b.reply(msg.Chat.ID, fmt.Sprintf("Unknown setting %q. Supported: quality, size, model.", key))
			return
		}
	}

	updated, err := b.accounts.UpdateSettings(ctx, account.ID, settings)
	if err != nil {
		b.logger.Error().Err(err).Msg("settings update failed")
		b.reply(msg.Chat.ID, "Something went wrong, please try again later.")
		return
	}
	b.reply(msg.Chat.ID, fmt.Sprintf("Saved.\nquality: %s\nsize: %s\nmodel: %s",
		updated.ImageQuality, updated.ImageSize, updated.Model))
}

func (b *Bot) handleStats(ctx context.Context, msg *tgbotapi.Message, account *domain.Account) {
	if !b.isAdmin(account) {
		b.reply(msg.Chat.ID, "This command is for administrators only.")
		return
	}

	accounts, err := b.stats.TotalAccounts(ctx)
	if err != nil {
		b.statsError(msg.Chat.ID, err)
		return
	}
	jobsTotal, err := b.stats.TotalJobs(ctx)
	if err != nil {
		b.statsError(msg.Chat.ID, err)
		return
	}
	byStatus, err := b.stats.JobsByStatus(ctx)
	if err != nil {
		b.statsError(msg.Chat.ID, err)
		return
	}
	spent, err := b.stats.TotalTokensSpent(ctx)
	if err != nil {
		b.statsError(msg.Chat.ID, err)
		return
	}
	b.reply(msg.Chat.ID, formatStats(accounts, jobsTotal, byStatus, spent))
}

func (b *Bot) statsError(chatID int64, err error) {
	b.logger.Error().Err(err).Msg("stats query failed")
	b.reply(chatID, "Something went wrong, please try again later.")
}

func formatStats(accounts, jobs int64, byStatus map[domain.JobStatus]int64, spent int64) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Accounts: %d\nJobs: %d\n", accounts, jobs)
	for _, status := range []domain.JobStatus{domain.JobStatusPending, domain.JobStatusProcessing, domain.JobStatusDone, domain.JobStatusFailed} {
		if n, ok := byStatus[status]; ok {
			fmt.Fprintf(&sb, "  %s: %d\n", status, n)
		}
	}
	fmt.Fprintf(&sb, "Tokens spent: %d", spent)
	return sb.String()
}

func (b *Bot) handleGrant(ctx context.Context, msg *tgbotapi.Message, account *domain.Account) {
	if !b.isAdmin(account) {
		b.reply(msg.Chat.ID, "This command is for administrators only.")
		return
	}
	args := strings.Fields(msg.CommandArguments())
	if len(args) != 2 {
		b.reply(msg.Chat.ID, "Usage: /grant <telegram_id> <amount>")
		return
	}
	telegramID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		b.reply(msg.Chat.ID, "Usage: /grant <telegram_id> <amount>")
		return
	}
	amount, err := strconv.Atoi(args[1])
	if err != nil || amount <= 0 {
		b.reply(msg.Chat.ID, "Amount must be a positive integer.")
		return
	}

	target, err := b.accounts.GetByTelegramID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			b.reply(msg.Chat.ID, "No account with that Telegram ID.")
			return
		}
		b.logger.Error().Err(err).Msg("grant target lookup failed")
		b.reply(msg.Chat.ID, "Something went wrong, please try again later.")
		return
	}
	if err := b.granter.Credit(ctx, target.ID, amount); err != nil {
		b.logger.Error().Err(err).Msg("grant credit failed")
		b.reply(msg.Chat.ID, "Something went wrong, please try again later.")
		return
	}
	b.reply(msg.Chat.ID, fmt.Sprintf("Granted %d tokens to %s.", amount, target.FirstName))
	b.logger.Info().Int64("telegram_id", telegramID).Int("amount", amount).Msg("admin token grant")
}

func (b *Bot) isAdmin(account *domain.Account) bool {
	return b.adminID != 0 && account.TelegramID == b.adminID
}

// sourceFileID picks the highest-resolution photo attached to the message or
// to the message it replies to.
func sourceFileID(msg *tgbotapi.Message) string {
	if id := largestPhoto(msg.Photo); id != "" {
		return id
	}
	if msg.ReplyToMessage != nil {
		return largestPhoto(msg.ReplyToMessage.Photo)
	}
	return ""
}

func largestPhoto(photos *[]tgbotapi.PhotoSize) string {
	if photos == nil || len(*photos) == 0 {
		return ""
	}
	sizes := *photos
	return sizes[len(sizes)-1].FileID
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("send reply failed")
	}
}
