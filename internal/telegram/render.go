package telegram

import (
	"errors"
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/dotastats-bot/internal/domain"
	"github.com/dotastats-bot/internal/quiz"
	"github.com/dotastats-bot/internal/service"
)

// Reply keyboard buttons
const (
	buttonProfile = "👤 Profile"
	buttonAnalyze = "📊 Analyze"
	buttonQuiz    = "🎮 Quiz"
	buttonFriends = "👥 Friends"
	buttonTop     = "🏆 Top players"
	buttonHelp    = "ℹ️ Help"
)

const welcomeText = "🎮 <b>Welcome to DotaStats Bot!</b>\n\n" +
	"Send a link to your Steam profile to bind it:\n" +
	"• https://steamcommunity.com/profiles/76561198...\n" +
	"• https://steamcommunity.com/id/your_name\n\n" +
	"Or use the /bind command"

const helpText = "🆘 <b>Help</b>\n\n" +
	"<b>Commands:</b>\n" +
	"/start - getting started\n" +
	"/bind - bind your Steam profile\n" +
	"/profile - your profile\n" +
	"/analyze - performance analysis\n" +
	"/addfriend - add a friend\n" +
	"/friends - your friends\n" +
	"/quiz - Dota 2 quiz\n" +
	"/top - quiz leaderboard\n" +
	"\n<b>Or use the menu buttons!</b>"

func mainKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(buttonProfile), tgbotapi.NewKeyboardButton(buttonAnalyze)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(buttonQuiz), tgbotapi.NewKeyboardButton(buttonFriends)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(buttonTop), tgbotapi.NewKeyboardButton(buttonHelp)),
	)
	kb.ResizeKeyboard = true
	return kb
}

func quizMenuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎯 Start", callbackQuizStart),
			tgbotapi.NewInlineKeyboardButtonData("🏆 Leaders", callbackQuizTop),
		),
	)
}

// questionKeyboard lays the options out two per row
func questionKeyboard(q quiz.Question) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for i, option := range q.Options {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(option, answerCallback(q.ID, i)))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func escape(s string) string {
	return html.EscapeString(s)
}

// errorText maps a service error to the reply shown to the user
func errorText(err error) string {
	switch {
	case errors.Is(err, domain.ErrStorageUnavailable):
		return "⚠️ Storage is unavailable right now. Please try again later."
	case errors.Is(err, domain.ErrNotBound):
		return "❌ Profile not bound. Use /bind"
	case errors.Is(err, domain.ErrUnrecognizedProfile):
		return "❌ Could not recognize the profile."
	case errors.Is(err, domain.ErrNoStats):
		return "❌ Could not fetch data."
	default:
		return "❌ Something went wrong. Please try again."
	}
}

func bindText(res service.BindResult) string {
	return fmt.Sprintf("✅ Profile bound!\n👤 Player: %s\n🆔 Account ID: %d",
		escape(res.Name), res.AccountID)
}

func profileText(view service.ProfileView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "👤 <b>%s</b>\n", escape(view.Name))
	if view.HasMMR {
		fmt.Fprintf(&b, "🎯 MMR: %d\n", view.MMR)
	} else {
		b.WriteString("🎯 MMR: unknown\n")
	}

	b.WriteString("\n<b>Recent games:</b>\n")
	if len(view.Matches) == 0 {
		b.WriteString("no recent matches\n")
	}
	for _, m := range view.Matches {
		outcome := "❌"
		if m.Won {
			outcome = "✅"
		}
		fmt.Fprintf(&b, "%s %s: %s\n", outcome, escape(m.Hero), m.KDA)
	}
	return b.String()
}

func analyzeText(lines []service.BenchmarkLine) string {
	var b strings.Builder
	b.WriteString("📊 <b>Performance analysis:</b>\n\n")
	for _, l := range lines {
		fmt.Fprintf(&b, "%s: %.1f (better than %.1f%% of players)\n", l.Label, l.Value, l.Percentile*100)
	}
	return b.String()
}

func friendsText(friends []domain.Friend) string {
	if len(friends) == 0 {
		return "You have no friends saved yet. Add one with:\n/addfriend steam_link"
	}

	var b strings.Builder
	b.WriteString("👥 <b>Your friends:</b>\n\n")
	for _, f := range friends {
		name := f.FriendName
		if name == "" {
			name = "Friend"
		}
		fmt.Fprintf(&b, "• %s (ID: %d)\n", escape(name), f.FriendAccountID)
	}
	return b.String()
}

func leaderboardText(entries []domain.LeaderboardEntry) string {
	var b strings.Builder
	b.WriteString("🏆 <b>Top players:</b>\n\n")
	if len(entries) == 0 {
		b.WriteString("Nobody has scored yet. Try the /quiz!")
	}
	for _, e := range entries {
		fmt.Fprintf(&b, "%d. ID %d: %d points\n", e.Rank, e.TelegramID, e.Score)
	}
	return b.String()
}

func quizResultText(res service.QuizResult, q quiz.Question) string {
	switch {
	case !res.Correct:
		return fmt.Sprintf("❌ Wrong! The answer is %s.", escape(q.CorrectOption()))
	case res.Recorded:
		return fmt.Sprintf("✅ Correct! +%d points", res.Points)
	default:
		return "✅ Correct! Bind your profile with /bind to earn points."
	}
}
