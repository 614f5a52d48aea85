package postgres_test

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/dotastats-bot/internal/config"
	"github.com/dotastats-bot/internal/domain"
	"github.com/dotastats-bot/internal/postgres"
	"github.com/dotastats-bot/internal/storage"
	"github.com/dotastats-bot/internal/storage/storetest"
)

var connString string

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("dotastats"),
		tcpostgres.WithUsername("bot"),
		tcpostgres.WithPassword("bot"),
		testcontainers.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "postgres container unavailable, skipping: %v\n", err)
		os.Exit(m.Run())
	}

	connString, err = container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		panic(err)
	}

	code := m.Run()

	container.Terminate(ctx)
	os.Exit(code)
}

func newRepo(t *testing.T) *postgres.Repository {
	t.Helper()
	if connString == "" {
		t.Skip("postgres container not available")
	}
	ctx := context.Background()

	repo, err := postgres.NewRepository(ctx, &config.DatabaseConfig{
		URL:             connString,
		MaxConnections:  5,
		MinConnections:  1,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: time.Minute,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	require.NoError(t, repo.Init(ctx))
	t.Cleanup(func() { repo.Close() })

	conn, err := pgx.Connect(ctx, connString)
	require.NoError(t, err)
	defer conn.Close(ctx)
	_, err = conn.Exec(ctx, `TRUNCATE friends, users RESTART IDENTITY`)
	require.NoError(t, err)

	return repo
}

func TestRepository(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storage.Store {
		return newRepo(t)
	})
}

func TestAddFriendRequiresBinding(t *testing.T) {
	repo := newRepo(t)

	err := repo.AddFriend(context.Background(), 404, 123, "orphan")
	assert.ErrorIs(t, err, domain.ErrNotBound)
}

func TestNewRepositoryBadURL(t *testing.T) {
	_, err := postgres.NewRepository(context.Background(), &config.DatabaseConfig{
		URL: "postgres://bot@127.0.0.1:1/none?connect_timeout=1",
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, err)
}
