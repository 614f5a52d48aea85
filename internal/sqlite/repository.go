package sqlite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/dotastats-bot/internal/config"
	"github.com/dotastats-bot/internal/domain"
)

type userRow struct {
	TelegramID int64     `gorm:"column:telegram_id;primaryKey;autoIncrement:false"`
	AccountID  int64     `gorm:"column:account_id;not null"`
	Score      int64     `gorm:"column:score;not null;default:0;index:idx_users_score,sort:desc"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (userRow) TableName() string { return "users" }

// friendRow has no foreign key: friends may be saved before a profile is bound
type friendRow struct {
	ID              int64     `gorm:"column:id;primaryKey;autoIncrement"`
	UserID          int64     `gorm:"column:user_id;index:idx_friends_user"`
	FriendAccountID int64     `gorm:"column:friend_account_id;not null"`
	FriendName      string    `gorm:"column:friend_name"`
	AddedAt         time.Time `gorm:"column:added_at;autoCreateTime"`
}

func (friendRow) TableName() string { return "friends" }

// Repository provides SQLite-file data access through gorm
type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewRepository opens (creating if needed) the SQLite database file
func NewRepository(cfg *config.DatabaseConfig, log *slog.Logger) (*Repository, error) {
	gormLogger := logger.New(
		slog.NewLogLogger(log.Handler(), slog.LevelWarn),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)

	// timestamps are stored as text and sorted as text, so they must share one offset
	db, err := gorm.Open(sqlite.Open(cfg.SQLitePath+"?_busy_timeout=5000"), &gorm.Config{
		Logger:  gormLogger,
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sqlite handle: %w", err)
	}
	// one writer at a time; sqlite would otherwise answer "database is locked"
	sqlDB.SetMaxOpenConns(1)

	return &Repository{
		db:     db,
		logger: log,
	}, nil
}

// Init creates the tables if they are missing
func (r *Repository) Init(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&userRow{}, &friendRow{}); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	r.logger.Info("database migrations completed")
	return nil
}

// Ping checks the database file is usable
func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the database file
func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// BindUser inserts or updates a user's bound account, leaving the score alone
func (r *Repository) BindUser(ctx context.Context, telegramID, accountID int64) error {
	row := userRow{TelegramID: telegramID, AccountID: accountID}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "telegram_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"account_id"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("binding user: %w", err)
	}
	return nil
}

// GetAccountID retrieves the account bound to a Telegram user
func (r *Repository) GetAccountID(ctx context.Context, telegramID int64) (int64, error) {
	var row userRow
	err := r.db.WithContext(ctx).
		Select("account_id").
		Where("telegram_id = ?", telegramID).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, domain.ErrNotBound
		}
		return 0, fmt.Errorf("getting account id: %w", err)
	}
	return row.AccountID, nil
}

// AddFriend appends a friend record
func (r *Repository) AddFriend(ctx context.Context, ownerID, friendAccountID int64, friendName string) error {
	row := friendRow{UserID: ownerID, FriendAccountID: friendAccountID, FriendName: friendName}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("adding friend: %w", err)
	}
	return nil
}

// GetFriends lists a user's friends, newest first
func (r *Repository) GetFriends(ctx context.Context, ownerID int64) ([]domain.Friend, error) {
	var rows []friendRow
	err := r.db.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Order("added_at DESC").
		Order("id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("listing friends: %w", err)
	}

	friends := make([]domain.Friend, 0, len(rows))
	for _, row := range rows {
		friends = append(friends, domain.Friend{
			ID:              row.ID,
			OwnerID:         row.UserID,
			FriendAccountID: row.FriendAccountID,
			FriendName:      row.FriendName,
			AddedAt:         row.AddedAt,
		})
	}
	return friends, nil
}

// UpdateScore increments a bound user's score by delta. Scores never go down.
func (r *Repository) UpdateScore(ctx context.Context, telegramID, delta int64) (bool, error) {
	if delta < 0 {
		return false, fmt.Errorf("updating score by %d: %w", delta, domain.ErrInvalidRequest)
	}
	result := r.db.WithContext(ctx).
		Model(&userRow{}).
		Where("telegram_id = ?", telegramID).
		UpdateColumn("score", gorm.Expr("score + ?", delta))
	if result.Error != nil {
		return false, fmt.Errorf("updating score: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// GetLeaderboard retrieves the top users by score
func (r *Repository) GetLeaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = domain.DefaultLeaderboardLimit
	}

	var rows []userRow
	err := r.db.WithContext(ctx).
		Select("telegram_id", "score").
		Order("score DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("getting leaderboard: %w", err)
	}

	entries := make([]domain.LeaderboardEntry, 0, len(rows))
	for i, row := range rows {
		entries = append(entries, domain.LeaderboardEntry{
			Rank:       int64(i + 1),
			TelegramID: row.TelegramID,
			Score:      row.Score,
		})
	}
	return entries, nil
}

// GetAllScores retrieves every user's score (for the leaderboard mirror)
func (r *Repository) GetAllScores(ctx context.Context) (map[int64]int64, error) {
	var rows []userRow
	if err := r.db.WithContext(ctx).Select("telegram_id", "score").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("getting all scores: %w", err)
	}

	scores := make(map[int64]int64, len(rows))
	for _, row := range rows {
		scores[row.TelegramID] = row.Score
	}
	return scores, nil
}
