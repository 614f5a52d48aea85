package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dotastats-bot/internal/config"
	"github.com/dotastats-bot/internal/domain"
	"github.com/dotastats-bot/internal/kafka"
	"github.com/dotastats-bot/internal/metrics"
	"github.com/dotastats-bot/internal/opendota"
	"github.com/dotastats-bot/internal/storage"
)

const (
	profileMatchFetch = 5
	profileMatchShow  = 3
)

// ProfileResolver turns a user-supplied reference into an account id
type ProfileResolver interface {
	Resolve(ctx context.Context, ref string) (int64, bool)
}

// StatsClient is the read-only stats API
type StatsClient interface {
	GetPlayer(ctx context.Context, accountID int64) (*opendota.Player, error)
	GetRecentMatches(ctx context.Context, accountID int64, limit int) []opendota.RecentMatch
	GetBenchmarks(ctx context.Context, accountID int64) (*opendota.Benchmarks, error)
	HeroNames(ctx context.Context) opendota.HeroNames
}

// ScoreBoard is the optional fast leaderboard mirror
type ScoreBoard interface {
	IncrementScore(ctx context.Context, telegramID, delta int64) (int64, error)
	GetTopN(ctx context.Context, n int) ([]domain.LeaderboardEntry, error)
}

// BindResult describes a successful profile binding
type BindResult struct {
	AccountID int64
	Name      string
}

// MatchLine is one rendered recent match
type MatchLine struct {
	Hero string
	KDA  string
	Won  bool
}

// ProfileView is what /profile shows
type ProfileView struct {
	AccountID int64
	Name      string
	MMR       int
	HasMMR    bool
	Matches   []MatchLine
}

// BenchmarkLine is one metric of /analyze
type BenchmarkLine struct {
	Metric     string
	Label      string
	Value      float64
	Percentile float64
}

// QuizResult is the outcome of one quiz answer
type QuizResult struct {
	Correct  bool
	Recorded bool
	Points   int64
}

var benchmarkMetrics = []struct{ key, label string }{
	{"gold_per_min", "GPM"},
	{"xp_per_min", "XPM"},
	{"hero_damage_per_min", "Hero damage/min"},
	{"kills_per_min", "Kills/min"},
}

// BotService implements the user actions behind the chat commands
type BotService struct {
	resolver   ProfileResolver
	stats      StatsClient
	store      storage.Store
	scoreBoard ScoreBoard
	publisher  kafka.Publisher
	config     *config.Config
	logger     *slog.Logger
}

// NewBotService creates the bot service. store may be nil, in which case
// every action that needs storage fails with domain.ErrStorageUnavailable.
func NewBotService(
	resolver ProfileResolver,
	stats StatsClient,
	store storage.Store,
	cfg *config.Config,
	logger *slog.Logger,
) *BotService {
	return &BotService{
		resolver:  resolver,
		stats:     stats,
		store:     store,
		publisher: kafka.NopPublisher{},
		config:    cfg,
		logger:    logger,
	}
}

// SetScoreBoard enables the leaderboard mirror
func (s *BotService) SetScoreBoard(board ScoreBoard) {
	s.scoreBoard = board
}

// SetPublisher enables activity events
func (s *BotService) SetPublisher(p kafka.Publisher) {
	s.publisher = p
}

// StorageAvailable reports whether the service runs with a store
func (s *BotService) StorageAvailable() bool {
	return s.store != nil
}

// BindProfile resolves ref, confirms the account has stats and stores the binding
func (s *BotService) BindProfile(ctx context.Context, telegramID int64, ref string) (BindResult, error) {
	if s.store == nil {
		return BindResult{}, domain.ErrStorageUnavailable
	}

	accountID, ok := s.resolver.Resolve(ctx, ref)
	if !ok {
		return BindResult{}, domain.ErrUnrecognizedProfile
	}

	player, err := s.stats.GetPlayer(ctx, accountID)
	if err != nil {
		return BindResult{}, fmt.Errorf("%w: %w", domain.ErrNoStats, err)
	}

	if err := s.store.BindUser(ctx, telegramID, accountID); err != nil {
		return BindResult{}, s.storageError("bind_user", err)
	}

	metrics.ProfilesBound.Inc()
	s.publish(ctx, domain.ActivityEvent{
		Type:       domain.ActivityProfileBound,
		TelegramID: telegramID,
		AccountID:  accountID,
	})

	s.logger.Info("profile bound", "telegram_id", telegramID, "account_id", accountID)
	return BindResult{AccountID: accountID, Name: player.Name("Player")}, nil
}

// Profile fetches the bound player's summary and latest matches
func (s *BotService) Profile(ctx context.Context, telegramID int64) (ProfileView, error) {
	accountID, err := s.boundAccount(ctx, telegramID)
	if err != nil {
		return ProfileView{}, err
	}

	player, err := s.stats.GetPlayer(ctx, accountID)
	if err != nil {
		return ProfileView{}, fmt.Errorf("%w: %w", domain.ErrNoStats, err)
	}

	view := ProfileView{
		AccountID: accountID,
		Name:      player.Name("Unknown"),
	}
	view.MMR, view.HasMMR = player.EstimatedMMR()

	matches := s.stats.GetRecentMatches(ctx, accountID, profileMatchFetch)
	if len(matches) > profileMatchShow {
		matches = matches[:profileMatchShow]
	}
	var heroes opendota.HeroNames
	if len(matches) > 0 {
		heroes = s.stats.HeroNames(ctx)
	}
	for _, m := range matches {
		view.Matches = append(view.Matches, MatchLine{
			Hero: heroes.Name(m.HeroID),
			KDA:  m.KDA(),
			Won:  m.Won(),
		})
	}
	return view, nil
}

// Analyze returns the bound player's benchmark percentiles
func (s *BotService) Analyze(ctx context.Context, telegramID int64) ([]BenchmarkLine, error) {
	accountID, err := s.boundAccount(ctx, telegramID)
	if err != nil {
		return nil, err
	}

	bench, err := s.stats.GetBenchmarks(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrNoStats, err)
	}

	var lines []BenchmarkLine
	for _, m := range benchmarkMetrics {
		point, ok := bench.Latest(m.key)
		if !ok {
			continue
		}
		lines = append(lines, BenchmarkLine{
			Metric:     m.key,
			Label:      m.label,
			Value:      point.Value,
			Percentile: point.Percentile,
		})
	}
	if len(lines) == 0 {
		return nil, domain.ErrNoStats
	}
	return lines, nil
}

// AddFriend resolves ref and saves it to the user's friend list
func (s *BotService) AddFriend(ctx context.Context, telegramID int64, ref string) (domain.Friend, error) {
	if s.store == nil {
		return domain.Friend{}, domain.ErrStorageUnavailable
	}

	accountID, ok := s.resolver.Resolve(ctx, ref)
	if !ok {
		return domain.Friend{}, domain.ErrUnrecognizedProfile
	}

	player, err := s.stats.GetPlayer(ctx, accountID)
	if err != nil {
		return domain.Friend{}, fmt.Errorf("%w: %w", domain.ErrNoStats, err)
	}
	name := player.Name("Friend")

	if err := s.store.AddFriend(ctx, telegramID, accountID, name); err != nil {
		if errors.Is(err, domain.ErrNotBound) {
			return domain.Friend{}, err
		}
		return domain.Friend{}, s.storageError("add_friend", err)
	}

	s.publish(ctx, domain.ActivityEvent{
		Type:       domain.ActivityFriendAdded,
		TelegramID: telegramID,
		AccountID:  accountID,
	})

	return domain.Friend{
		OwnerID:         telegramID,
		FriendAccountID: accountID,
		FriendName:      name,
		AddedAt:         time.Now(),
	}, nil
}

// Friends lists the user's saved friends, newest first
func (s *BotService) Friends(ctx context.Context, telegramID int64) ([]domain.Friend, error) {
	if s.store == nil {
		return nil, domain.ErrStorageUnavailable
	}

	friends, err := s.store.GetFriends(ctx, telegramID)
	if err != nil {
		return nil, s.storageError("get_friends", err)
	}
	return friends, nil
}

// AnswerQuiz awards points for a correct answer. Users without a binding
// get Recorded=false and no row is created for them.
func (s *BotService) AnswerQuiz(ctx context.Context, telegramID int64, correct bool) (QuizResult, error) {
	if !correct {
		return QuizResult{}, nil
	}
	if s.store == nil {
		return QuizResult{Correct: true}, domain.ErrStorageUnavailable
	}

	points := s.config.Quiz.Points
	applied, err := s.store.UpdateScore(ctx, telegramID, points)
	if err != nil {
		return QuizResult{Correct: true}, s.storageError("update_score", err)
	}
	if !applied {
		return QuizResult{Correct: true}, nil
	}

	if s.scoreBoard != nil {
		if _, err := s.scoreBoard.IncrementScore(ctx, telegramID, points); err != nil {
			s.logger.Warn("failed to mirror score", "telegram_id", telegramID, "error", err)
		}
	}

	s.publish(ctx, domain.ActivityEvent{
		Type:       domain.ActivityQuizCorrect,
		TelegramID: telegramID,
		Points:     points,
	})

	return QuizResult{Correct: true, Recorded: true, Points: points}, nil
}

// Leaderboard returns the top quiz scores. The mirror is preferred when it
// is configured and healthy; the store answers otherwise.
func (s *BotService) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	// Validate limit
	if limit <= 0 {
		limit = s.config.Leaderboard.DefaultLimit
	}
	if limit > s.config.Leaderboard.MaxLimit {
		limit = s.config.Leaderboard.MaxLimit
	}

	if s.scoreBoard != nil {
		entries, err := s.scoreBoard.GetTopN(ctx, limit)
		if err == nil {
			return entries, nil
		}
		s.logger.Warn("leaderboard mirror unavailable, reading store", "error", err)
	}

	if s.store == nil {
		return nil, domain.ErrStorageUnavailable
	}

	entries, err := s.store.GetLeaderboard(ctx, limit)
	if err != nil {
		return nil, s.storageError("get_leaderboard", err)
	}
	return entries, nil
}

func (s *BotService) boundAccount(ctx context.Context, telegramID int64) (int64, error) {
	if s.store == nil {
		return 0, domain.ErrStorageUnavailable
	}

	accountID, err := s.store.GetAccountID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, domain.ErrNotBound) {
			return 0, err
		}
		return 0, s.storageError("get_account_id", err)
	}
	return accountID, nil
}

func (s *BotService) storageError(op string, err error) error {
	metrics.StorageErrors.WithLabelValues(op).Inc()
	s.logger.Error("storage operation failed", "operation", op, "error", err)
	return fmt.Errorf("%s: %w", op, err)
}

// publish never fails the calling action
func (s *BotService) publish(ctx context.Context, event domain.ActivityEvent) {
	event.ID = uuid.NewString()
	event.Timestamp = time.Now().UTC()
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish activity event", "type", event.Type, "error", err)
	}
}
