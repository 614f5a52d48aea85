package sqlite_test

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotastats-bot/internal/config"
	"github.com/dotastats-bot/internal/sqlite"
	"github.com/dotastats-bot/internal/storage"
	"github.com/dotastats-bot/internal/storage/storetest"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func openRepo(t *testing.T, path string) *sqlite.Repository {
	t.Helper()
	repo, err := sqlite.NewRepository(&config.DatabaseConfig{SQLitePath: path}, testLogger)
	require.NoError(t, err)
	require.NoError(t, repo.Init(context.Background()))
	return repo
}

func TestRepository(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storage.Store {
		repo := openRepo(t, filepath.Join(t.TempDir(), "users.db"))
		t.Cleanup(func() { repo.Close() })
		return repo
	})
}

func TestFriendTimestampsStoredInUTC(t *testing.T) {
	local := time.Local
	time.Local = time.FixedZone("UTC+3", 3*60*60)
	t.Cleanup(func() { time.Local = local })

	repo := openRepo(t, filepath.Join(t.TempDir(), "users.db"))
	defer repo.Close()
	ctx := context.Background()

	before := time.Now()
	require.NoError(t, repo.AddFriend(ctx, 5, 123, "utc"))

	friends, err := repo.GetFriends(ctx, 5)
	require.NoError(t, err)
	require.Len(t, friends, 1)

	_, offset := friends[0].AddedAt.Zone()
	assert.Zero(t, offset)
	assert.WithinDuration(t, before, friends[0].AddedAt, 5*time.Second)
}

func TestFriendsWithoutBinding(t *testing.T) {
	repo := openRepo(t, filepath.Join(t.TempDir(), "users.db"))
	defer repo.Close()
	ctx := context.Background()

	require.NoError(t, repo.AddFriend(ctx, 77, 123, "early"))
	friends, err := repo.GetFriends(ctx, 77)
	require.NoError(t, err)
	require.Len(t, friends, 1)
	assert.Equal(t, "early", friends[0].FriendName)
}

func TestDataSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.db")
	ctx := context.Background()

	repo := openRepo(t, path)
	require.NoError(t, repo.BindUser(ctx, 1, 52345678))
	_, err := repo.UpdateScore(ctx, 1, 20)
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	repo = openRepo(t, path)
	defer repo.Close()

	got, err := repo.GetAccountID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(52345678), got)

	scores, err := repo.GetAllScores(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(20), scores[1])
}

func TestConcurrentScoreUpdates(t *testing.T) {
	repo := openRepo(t, filepath.Join(t.TempDir(), "users.db"))
	defer repo.Close()
	ctx := context.Background()
	require.NoError(t, repo.BindUser(ctx, 1, 1))

	done := make(chan error, 20)
	for i := 0; i < 20; i++ {
		go func() {
			_, err := repo.UpdateScore(ctx, 1, 10)
			done <- err
		}()
	}
	for i := 0; i < 20; i++ {
		require.NoError(t, <-done)
	}

	scores, err := repo.GetAllScores(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(200), scores[1])
}
