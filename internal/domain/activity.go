package domain

import "time"

// ActivityType names what a user did
type ActivityType string

const (
	ActivityProfileBound ActivityType = "profile_bound"
	ActivityFriendAdded  ActivityType = "friend_added"
	ActivityQuizCorrect  ActivityType = "quiz_correct"
)

// ActivityEvent is published for every successful user action that changes stored state
type ActivityEvent struct {
	ID         string       `json:"id"`
	Type       ActivityType `json:"type"`
	TelegramID int64        `json:"telegram_id"`
	AccountID  int64        `json:"account_id,omitempty"`
	Points     int64        `json:"points,omitempty"`
	Timestamp  time.Time    `json:"timestamp"`
}
