package telegram

import (
	"context"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const quizLeaderboardSize = 5

func (b *Bot) handleMessage(ctx context.Context, logger *slog.Logger, msg *tgbotapi.Message) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}
	userID := msg.From.ID
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		// a new command abandons any half-finished form
		b.forms.clear(userID)
		b.handleCommand(ctx, logger, msg.Command(), strings.TrimSpace(msg.CommandArguments()), userID, chatID)
		return
	}

	switch b.forms.take(userID) {
	case stepAwaitProfile:
		b.bind(ctx, logger, userID, chatID, text)
		return
	case stepAwaitFriend:
		b.addFriend(ctx, logger, userID, chatID, text)
		return
	}

	switch text {
	case buttonProfile:
		b.profile(ctx, logger, userID, chatID)
	case buttonAnalyze:
		b.analyze(ctx, logger, userID, chatID)
	case buttonQuiz:
		b.quizMenu(ctx, logger, chatID)
	case buttonFriends:
		b.friends(ctx, logger, userID, chatID)
	case buttonTop:
		b.leaderboard(ctx, logger, chatID, 0)
	case buttonHelp:
		b.reply(ctx, logger, chatID, helpText)
	default:
		if strings.Contains(text, "steamcommunity.com") {
			b.bind(ctx, logger, userID, chatID, text)
			return
		}
		b.reply(ctx, logger, chatID, "Use the menu buttons or send a link to your Steam profile.")
	}
}

func (b *Bot) handleCommand(ctx context.Context, logger *slog.Logger, command, args string, userID, chatID int64) {
	switch command {
	case "start":
		b.replyWithMenu(ctx, logger, chatID, welcomeText)
	case "help":
		b.reply(ctx, logger, chatID, helpText)
	case "bind":
		if args == "" {
			b.forms.set(userID, stepAwaitProfile)
			b.reply(ctx, logger, chatID, "🔗 Send a link to your Steam profile:")
			return
		}
		b.bind(ctx, logger, userID, chatID, args)
	case "profile":
		b.profile(ctx, logger, userID, chatID)
	case "analyze":
		b.analyze(ctx, logger, userID, chatID)
	case "addfriend":
		if args == "" {
			b.forms.set(userID, stepAwaitFriend)
			b.reply(ctx, logger, chatID, "🔗 Send a link to your friend's Steam profile:")
			return
		}
		b.addFriend(ctx, logger, userID, chatID, args)
	case "friends":
		b.friends(ctx, logger, userID, chatID)
	case "quiz":
		b.quizMenu(ctx, logger, chatID)
	case "top":
		b.leaderboard(ctx, logger, chatID, 0)
	default:
		b.reply(ctx, logger, chatID, "Unknown command. See /help")
	}
}

func (b *Bot) bind(ctx context.Context, logger *slog.Logger, userID, chatID int64, ref string) {
	res, err := b.svc.BindProfile(ctx, userID, ref)
	if err != nil {
		logger.Warn("bind failed", "ref", ref, "error", err)
		b.reply(ctx, logger, chatID, errorText(err))
		return
	}
	b.replyWithMenu(ctx, logger, chatID, bindText(res))
}

func (b *Bot) profile(ctx context.Context, logger *slog.Logger, userID, chatID int64) {
	view, err := b.svc.Profile(ctx, userID)
	if err != nil {
		logger.Warn("profile failed", "error", err)
		b.reply(ctx, logger, chatID, errorText(err))
		return
	}
	b.reply(ctx, logger, chatID, profileText(view))
}

func (b *Bot) analyze(ctx context.Context, logger *slog.Logger, userID, chatID int64) {
	lines, err := b.svc.Analyze(ctx, userID)
	if err != nil {
		logger.Warn("analyze failed", "error", err)
		b.reply(ctx, logger, chatID, errorText(err))
		return
	}
	b.reply(ctx, logger, chatID, analyzeText(lines))
}

func (b *Bot) addFriend(ctx context.Context, logger *slog.Logger, userID, chatID int64, ref string) {
	friend, err := b.svc.AddFriend(ctx, userID, ref)
	if err != nil {
		logger.Warn("add friend failed", "ref", ref, "error", err)
		b.reply(ctx, logger, chatID, errorText(err))
		return
	}
	b.reply(ctx, logger, chatID, "✅ Friend "+escape(friend.FriendName)+" added!")
}

func (b *Bot) friends(ctx context.Context, logger *slog.Logger, userID, chatID int64) {
	friends, err := b.svc.Friends(ctx, userID)
	if err != nil {
		logger.Warn("listing friends failed", "error", err)
		b.reply(ctx, logger, chatID, errorText(err))
		return
	}
	b.reply(ctx, logger, chatID, friendsText(friends))
}

func (b *Bot) leaderboard(ctx context.Context, logger *slog.Logger, chatID int64, limit int) {
	entries, err := b.svc.Leaderboard(ctx, limit)
	if err != nil {
		logger.Warn("leaderboard failed", "error", err)
		b.reply(ctx, logger, chatID, errorText(err))
		return
	}
	b.reply(ctx, logger, chatID, leaderboardText(entries))
}

func (b *Bot) quizMenu(ctx context.Context, logger *slog.Logger, chatID int64) {
	msg := tgbotapi.NewMessage(chatID, "🎮 <b>Dota 2 quiz</b>\n\nTest your knowledge!")
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = quizMenuKeyboard()
	b.send(ctx, logger, msg)
}
