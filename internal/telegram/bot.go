package telegram

import (
	"context"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/dotastats-bot/internal/config"
	"github.com/dotastats-bot/internal/domain"
	"github.com/dotastats-bot/internal/metrics"
	"github.com/dotastats-bot/internal/quiz"
	"github.com/dotastats-bot/internal/service"
)

// Sender is the part of *tgbotapi.BotAPI the bot uses
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Service is the set of user actions the chat exposes
type Service interface {
	BindProfile(ctx context.Context, telegramID int64, ref string) (service.BindResult, error)
	Profile(ctx context.Context, telegramID int64) (service.ProfileView, error)
	Analyze(ctx context.Context, telegramID int64) ([]service.BenchmarkLine, error)
	AddFriend(ctx context.Context, telegramID int64, ref string) (domain.Friend, error)
	Friends(ctx context.Context, telegramID int64) ([]domain.Friend, error)
	AnswerQuiz(ctx context.Context, telegramID int64, correct bool) (service.QuizResult, error)
	Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
}

// Bot routes Telegram updates to the service
type Bot struct {
	api     Sender
	svc     Service
	bank    *quiz.Bank
	forms   *FormState
	limiter *rate.Limiter
	sem     *semaphore.Weighted
	workers int64
	config  *config.TelegramConfig
	logger  *slog.Logger
}

// NewBot creates a bot
func NewBot(api Sender, svc Service, bank *quiz.Bank, cfg *config.TelegramConfig, logger *slog.Logger) *Bot {
	workers := int64(cfg.Workers)
	if workers <= 0 {
		workers = 1
	}
	return &Bot{
		api:     api,
		svc:     svc,
		bank:    bank,
		forms:   NewFormState(),
		limiter: rate.NewLimiter(rate.Limit(cfg.SendRate), cfg.SendBurst),
		sem:     semaphore.NewWeighted(workers),
		workers: workers,
		config:  cfg,
		logger:  logger,
	}
}

// Run handles updates until ctx is cancelled or the channel closes. Every
// update gets its own goroutine; at most cfg.Workers run at once. Handlers
// in flight are allowed to finish before Run returns.
func (b *Bot) Run(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	defer b.drain()

	for {
		select {
		case <-ctx.Done():
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			// an update already taken off the channel is always handled
			_ = b.sem.Acquire(context.Background(), 1)
			go func() {
				defer b.sem.Release(1)
				b.HandleUpdate(context.WithoutCancel(ctx), upd)
			}()
		}
	}
}

func (b *Bot) drain() {
	_ = b.sem.Acquire(context.Background(), b.workers)
	b.sem.Release(b.workers)
}

// HandleUpdate processes one update synchronously
func (b *Bot) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("update handler panicked", "update_id", upd.UpdateID, "panic", r)
		}
	}()

	switch {
	case upd.CallbackQuery != nil:
		metrics.UpdatesHandled.WithLabelValues("callback").Inc()
		b.handleCallback(ctx, b.requestLogger(upd.CallbackQuery.From), upd.CallbackQuery)
	case upd.Message != nil && upd.Message.From != nil:
		metrics.UpdatesHandled.WithLabelValues("message").Inc()
		b.handleMessage(ctx, b.requestLogger(upd.Message.From), upd.Message)
	}
}

func (b *Bot) requestLogger(from *tgbotapi.User) *slog.Logger {
	logger := b.logger.With("request_id", uuid.NewString())
	if from != nil {
		logger = logger.With("telegram_id", from.ID)
	}
	return logger
}

func (b *Bot) send(ctx context.Context, logger *slog.Logger, c tgbotapi.Chattable) {
	if err := b.limiter.Wait(ctx); err != nil {
		logger.Warn("send rate limiter aborted", "error", err)
		return
	}
	if _, err := b.api.Send(c); err != nil {
		logger.Error("failed to send telegram message", "error", err)
	}
}

func (b *Bot) reply(ctx context.Context, logger *slog.Logger, chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	b.send(ctx, logger, msg)
}

func (b *Bot) replyWithMenu(ctx context.Context, logger *slog.Logger, chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainKeyboard()
	b.send(ctx, logger, msg)
}

func (b *Bot) edit(ctx context.Context, logger *slog.Logger, q *tgbotapi.CallbackQuery, text string, kb *tgbotapi.InlineKeyboardMarkup) {
	if q.Message == nil {
		return
	}
	edit := tgbotapi.NewEditMessageText(q.Message.Chat.ID, q.Message.MessageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	edit.ReplyMarkup = kb
	b.send(ctx, logger, edit)
}
