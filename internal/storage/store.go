// Package storage defines the persistence contract shared by the embedded
// SQLite engine and the networked PostgreSQL engine, and picks one of them
// once at startup.
package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dotastats-bot/internal/config"
	"github.com/dotastats-bot/internal/domain"
	"github.com/dotastats-bot/internal/postgres"
	"github.com/dotastats-bot/internal/sqlite"
)

// Store persists user bindings, friend lists and quiz scores
type Store interface {
	// Init creates the schema if it does not exist. Safe to call on every start.
	Init(ctx context.Context) error

	// BindUser inserts a binding or replaces its account id, keeping the score
	BindUser(ctx context.Context, telegramID, accountID int64) error

	// GetAccountID returns domain.ErrNotBound when the user never bound a profile
	GetAccountID(ctx context.Context, telegramID int64) (int64, error)

	AddFriend(ctx context.Context, ownerID, friendAccountID int64, friendName string) error

	// GetFriends lists friends newest first
	GetFriends(ctx context.Context, ownerID int64) ([]domain.Friend, error)

	// UpdateScore adds delta to the user's score. It reports false and creates
	// nothing when the user has no binding. A negative delta is rejected with
	// domain.ErrInvalidRequest.
	UpdateScore(ctx context.Context, telegramID, delta int64) (bool, error)

	// GetLeaderboard returns up to limit users by score, highest first
	GetLeaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)

	// GetAllScores returns every user's score, keyed by Telegram id
	GetAllScores(ctx context.Context) (map[int64]int64, error)

	Ping(ctx context.Context) error
	Close() error
}

// Engine names the backing database
type Engine string

const (
	EnginePostgres Engine = "postgres"
	EngineSQLite   Engine = "sqlite"
)

// EngineFor reports which engine the configuration selects
func EngineFor(cfg *config.DatabaseConfig) Engine {
	if cfg.UsePostgres() {
		return EnginePostgres
	}
	return EngineSQLite
}

// Open connects to the configured engine and ensures the schema exists
func Open(ctx context.Context, cfg *config.DatabaseConfig, logger *slog.Logger) (Store, error) {
	var (
		store Store
		err   error
	)

	switch EngineFor(cfg) {
	case EnginePostgres:
		logger.Info("using PostgreSQL storage")
		store, err = postgres.NewRepository(ctx, cfg, logger)
	default:
		logger.Info("using SQLite storage", "path", cfg.SQLitePath)
		store, err = sqlite.NewRepository(cfg, logger)
	}
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	if err := store.Init(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("initializing storage: %w", err)
	}
	return store, nil
}
