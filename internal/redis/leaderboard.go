package redis

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/dotastats-bot/internal/config"
	"github.com/dotastats-bot/internal/domain"
)

// QuizKey is the sorted set mirroring quiz scores, member = telegram id
const QuizKey = "leaderboard:quiz:realtime"

// ScoreBoard is a Redis mirror of the stored quiz scores
type ScoreBoard struct {
	client *redis.Client
	key    string
	logger *slog.Logger
}

// NewScoreBoard connects to Redis and returns the quiz score mirror
func NewScoreBoard(ctx context.Context, cfg *config.RedisConfig, logger *slog.Logger) (*ScoreBoard, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Test connection
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return NewScoreBoardWithClient(client, logger), nil
}

// NewScoreBoardWithClient wraps an existing client
func NewScoreBoardWithClient(client *redis.Client, logger *slog.Logger) *ScoreBoard {
	return &ScoreBoard{
		client: client,
		key:    QuizKey,
		logger: logger,
	}
}

// Close closes the Redis connection
func (s *ScoreBoard) Close() error {
	return s.client.Close()
}

// Ping checks Redis is reachable
func (s *ScoreBoard) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func member(telegramID int64) string {
	return strconv.FormatInt(telegramID, 10)
}

// IncrementScore adds delta to a user's mirrored score
func (s *ScoreBoard) IncrementScore(ctx context.Context, telegramID, delta int64) (int64, error) {
	newScore, err := s.client.ZIncrBy(ctx, s.key, float64(delta), member(telegramID)).Result()
	if err != nil {
		return 0, fmt.Errorf("incrementing score: %w", err)
	}
	return int64(newScore), nil
}

// GetTopN returns the top n users (descending order)
func (s *ScoreBoard) GetTopN(ctx context.Context, n int) ([]domain.LeaderboardEntry, error) {
	results, err := s.client.ZRevRangeWithScores(ctx, s.key, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("getting top n: %w", err)
	}

	entries := make([]domain.LeaderboardEntry, 0, len(results))
	for i, result := range results {
		raw, _ := result.Member.(string)
		telegramID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.logger.Warn("skipping malformed leaderboard member", "member", raw)
			continue
		}
		entries = append(entries, domain.LeaderboardEntry{
			Rank:       int64(i + 1),
			TelegramID: telegramID,
			Score:      int64(result.Score),
		})
	}
	return entries, nil
}

// Count returns the number of mirrored users
func (s *ScoreBoard) Count(ctx context.Context) (int64, error) {
	count, err := s.client.ZCard(ctx, s.key).Result()
	if err != nil {
		return 0, fmt.Errorf("getting count: %w", err)
	}
	return count, nil
}

// ReplaceAll swaps the mirror contents for scores in one transaction
func (s *ScoreBoard) ReplaceAll(ctx context.Context, scores map[int64]int64) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key)

	if len(scores) > 0 {
		members := make([]redis.Z, 0, len(scores))
		for telegramID, score := range scores {
			members = append(members, redis.Z{
				Score:  float64(score),
				Member: member(telegramID),
			})
		}
		pipe.ZAdd(ctx, s.key, members...)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("replacing scores: %w", err)
	}
	return nil
}
