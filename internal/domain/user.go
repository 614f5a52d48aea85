package domain

import "time"

// UserBinding links a Telegram user to a Dota 2 account
type UserBinding struct {
	TelegramID int64     `json:"telegram_id"`
	AccountID  int64     `json:"account_id"`
	Score      int64     `json:"score"`
	CreatedAt  time.Time `json:"created_at"`
}

// Friend is a profile a user saved to their friend list
type Friend struct {
	ID              int64     `json:"id"`
	OwnerID         int64     `json:"owner_id"`
	FriendAccountID int64     `json:"friend_account_id"`
	FriendName      string    `json:"friend_name"`
	AddedAt         time.Time `json:"added_at"`
}

// LeaderboardEntry represents a single entry in the quiz leaderboard
type LeaderboardEntry struct {
	Rank       int64 `json:"rank"`
	TelegramID int64 `json:"telegram_id"`
	Score      int64 `json:"score"`
}

// DefaultLeaderboardLimit applies when a caller asks for a non-positive number of entries
const DefaultLeaderboardLimit = 10
