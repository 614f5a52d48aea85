package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Callback data
const (
	callbackQuizStart    = "quiz:start"
	callbackQuizTop      = "quiz:top"
	callbackAnswerPrefix = "quiz:answer:"
)

func answerCallback(questionID, option int) string {
	return fmt.Sprintf("%s%d:%d", callbackAnswerPrefix, questionID, option)
}

// parseAnswer decodes quiz:answer:<question>:<option>
func parseAnswer(data string) (questionID, option int, ok bool) {
	rest, found := strings.CutPrefix(data, callbackAnswerPrefix)
	if !found {
		return 0, 0, false
	}
	q, o, found := strings.Cut(rest, ":")
	if !found {
		return 0, 0, false
	}
	questionID, err := strconv.Atoi(q)
	if err != nil {
		return 0, 0, false
	}
	option, err = strconv.Atoi(o)
	if err != nil {
		return 0, 0, false
	}
	return questionID, option, true
}

func (b *Bot) handleCallback(ctx context.Context, logger *slog.Logger, q *tgbotapi.CallbackQuery) {
	notice := ""
	// Telegram keeps a spinner on the button until the callback is answered
	defer func() {
		if _, err := b.api.Request(tgbotapi.NewCallback(q.ID, notice)); err != nil {
			logger.Debug("failed to answer callback", "error", err)
		}
	}()

	switch {
	case q.Data == callbackQuizStart:
		question := b.bank.Random()
		kb := questionKeyboard(question)
		b.edit(ctx, logger, q, "❓ "+escape(question.Text), &kb)

	case q.Data == callbackQuizTop:
		entries, err := b.svc.Leaderboard(ctx, quizLeaderboardSize)
		if err != nil {
			logger.Warn("leaderboard failed", "error", err)
			b.edit(ctx, logger, q, errorText(err), nil)
			return
		}
		b.edit(ctx, logger, q, leaderboardText(entries), nil)

	case strings.HasPrefix(q.Data, callbackAnswerPrefix):
		questionID, option, ok := parseAnswer(q.Data)
		if !ok {
			notice = "This question has expired"
			return
		}
		correct, ok := b.bank.Check(questionID, option)
		if !ok {
			notice = "This question has expired"
			return
		}
		question, _ := b.bank.Get(questionID)

		res, err := b.svc.AnswerQuiz(ctx, q.From.ID, correct)
		if err != nil {
			logger.Warn("recording quiz answer failed", "error", err)
			b.edit(ctx, logger, q, errorText(err), nil)
			return
		}
		b.edit(ctx, logger, q, quizResultText(res, question), nil)

	default:
		logger.Debug("unknown callback", "data", q.Data)
	}
}
