package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dotastats-bot/internal/config"
	"github.com/dotastats-bot/internal/domain"
)

// foreign_key_violation
const codeForeignKeyViolation = "23503"

// Repository provides PostgreSQL-based data access
type Repository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewRepository creates a new PostgreSQL repository
func NewRepository(ctx context.Context, cfg *config.DatabaseConfig, logger *slog.Logger) (*Repository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &Repository{
		pool:   pool,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

// Ping checks the database is reachable
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Init executes the schema migrations
func (r *Repository) Init(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			telegram_id BIGINT PRIMARY KEY,
			account_id BIGINT NOT NULL,
			score BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS friends (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT REFERENCES users(telegram_id),
			friend_account_id BIGINT NOT NULL,
			friend_name TEXT,
			added_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_friends_user ON friends(user_id, added_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_users_score ON users(score DESC)`,
	}

	for _, migration := range migrations {
		_, err := r.pool.Exec(ctx, migration)
		if err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	r.logger.Info("database migrations completed")
	return nil
}

// BindUser inserts or updates a user's bound account, leaving the score alone
func (r *Repository) BindUser(ctx context.Context, telegramID, accountID int64) error {
	query := `
		INSERT INTO users (telegram_id, account_id)
		VALUES ($1, $2)
		ON CONFLICT (telegram_id)
		DO UPDATE SET account_id = EXCLUDED.account_id
	`
	if _, err := r.pool.Exec(ctx, query, telegramID, accountID); err != nil {
		return fmt.Errorf("binding user: %w", err)
	}
	return nil
}

// GetAccountID retrieves the account bound to a Telegram user
func (r *Repository) GetAccountID(ctx context.Context, telegramID int64) (int64, error) {
	var accountID int64
	err := r.pool.QueryRow(ctx, `SELECT account_id FROM users WHERE telegram_id = $1`, telegramID).Scan(&accountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrNotBound
		}
		return 0, fmt.Errorf("getting account id: %w", err)
	}
	return accountID, nil
}

// AddFriend appends a friend record. The owner must have a binding.
func (r *Repository) AddFriend(ctx context.Context, ownerID, friendAccountID int64, friendName string) error {
	query := `
		INSERT INTO friends (user_id, friend_account_id, friend_name)
		VALUES ($1, $2, $3)
	`
	if _, err := r.pool.Exec(ctx, query, ownerID, friendAccountID, friendName); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == codeForeignKeyViolation {
			return domain.ErrNotBound
		}
		return fmt.Errorf("adding friend: %w", err)
	}
	return nil
}

// GetFriends lists a user's friends, newest first
func (r *Repository) GetFriends(ctx context.Context, ownerID int64) ([]domain.Friend, error) {
	query := `
		SELECT id, user_id, friend_account_id, COALESCE(friend_name, ''), added_at
		FROM friends
		WHERE user_id = $1
		ORDER BY added_at DESC, id DESC
	`
	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing friends: %w", err)
	}
	defer rows.Close()

	friends := []domain.Friend{}
	for rows.Next() {
		var f domain.Friend
		if err := rows.Scan(&f.ID, &f.OwnerID, &f.FriendAccountID, &f.FriendName, &f.AddedAt); err != nil {
			return nil, fmt.Errorf("scanning friend: %w", err)
		}
		friends = append(friends, f)
	}
	return friends, rows.Err()
}

// UpdateScore increments a bound user's score by delta. Scores never go down.
func (r *Repository) UpdateScore(ctx context.Context, telegramID, delta int64) (bool, error) {
	if delta < 0 {
		return false, fmt.Errorf("updating score by %d: %w", delta, domain.ErrInvalidRequest)
	}
	result, err := r.pool.Exec(ctx, `UPDATE users SET score = score + $1 WHERE telegram_id = $2`, delta, telegramID)
	if err != nil {
		return false, fmt.Errorf("updating score: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// GetLeaderboard retrieves the top users by score
func (r *Repository) GetLeaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = domain.DefaultLeaderboardLimit
	}

	rows, err := r.pool.Query(ctx, `SELECT telegram_id, score FROM users ORDER BY score DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("getting leaderboard: %w", err)
	}
	defer rows.Close()

	entries := []domain.LeaderboardEntry{}
	for rows.Next() {
		entry := domain.LeaderboardEntry{Rank: int64(len(entries) + 1)}
		if err := rows.Scan(&entry.TelegramID, &entry.Score); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// GetAllScores retrieves every user's score (for the leaderboard mirror)
func (r *Repository) GetAllScores(ctx context.Context) (map[int64]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT telegram_id, score FROM users`)
	if err != nil {
		return nil, fmt.Errorf("getting all scores: %w", err)
	}
	defer rows.Close()

	scores := make(map[int64]int64)
	for rows.Next() {
		var telegramID, score int64
		if err := rows.Scan(&telegramID, &score); err != nil {
			return nil, fmt.Errorf("scanning score: %w", err)
		}
		scores[telegramID] = score
	}
	return scores, rows.Err()
}
