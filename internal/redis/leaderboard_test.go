package redis_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/dotastats-bot/internal/config"
	"github.com/dotastats-bot/internal/redis"
)

func newScoreBoard(t *testing.T) *redis.ScoreBoard {
	t.Helper()
	if testing.Short() {
		t.Skip("redis container skipped in short mode")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("redis container unavailable: %v", err)
	}
	t.Cleanup(func() { container.Terminate(ctx) })

	addr, err := container.Endpoint(ctx, "")
	require.NoError(t, err)

	board, err := redis.NewScoreBoard(ctx, &config.RedisConfig{
		Addr:         addr,
		PoolSize:     4,
		DialTimeout:  time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { board.Close() })
	return board
}

func TestScoreBoard(t *testing.T) {
	board := newScoreBoard(t)
	ctx := context.Background()

	require.NoError(t, board.ReplaceAll(ctx, map[int64]int64{1: 10, 2: 40, 3: 20}))

	score, err := board.IncrementScore(ctx, 1, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(60), score)

	top, err := board.GetTopN(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, int64(1), top[0].TelegramID)
	assert.Equal(t, int64(60), top[0].Score)
	assert.Equal(t, int64(1), top[0].Rank)
	assert.Equal(t, int64(2), top[1].TelegramID)
	assert.Equal(t, int64(2), top[1].Rank)

	count, err := board.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestReplaceAllDropsStaleMembers(t *testing.T) {
	board := newScoreBoard(t)
	ctx := context.Background()

	require.NoError(t, board.ReplaceAll(ctx, map[int64]int64{1: 10, 2: 20}))
	require.NoError(t, board.ReplaceAll(ctx, map[int64]int64{3: 5}))

	top, err := board.GetTopN(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, int64(3), top[0].TelegramID)

	require.NoError(t, board.ReplaceAll(ctx, nil))
	count, err := board.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestNewScoreBoardUnreachable(t *testing.T) {
	_, err := redis.NewScoreBoard(context.Background(), &config.RedisConfig{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}

func TestIncrementUnreachable(t *testing.T) {
	client := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	board := redis.NewScoreBoardWithClient(client, slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer board.Close()

	_, err := board.IncrementScore(context.Background(), 1, 10)
	assert.Error(t, err)
}
