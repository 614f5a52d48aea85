package kafka

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dotastats-bot/internal/domain"
)

// Tally counts consumed activity events per type and per user
type Tally struct {
	mu     sync.Mutex
	byType map[domain.ActivityType]int64
	users  map[int64]struct{}
	points int64
	logger *slog.Logger
}

// NewTally creates an empty tally
func NewTally(logger *slog.Logger) *Tally {
	return &Tally{
		byType: make(map[domain.ActivityType]int64),
		users:  make(map[int64]struct{}),
		logger: logger,
	}
}

// HandleActivity implements ActivitySink
func (t *Tally) HandleActivity(_ context.Context, events []domain.ActivityEvent) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, e := range events {
		t.byType[e.Type]++
		t.users[e.TelegramID] = struct{}{}
		t.points += e.Points
		t.logger.Debug("activity", "type", e.Type, "telegram_id", e.TelegramID, "event_id", e.ID)
	}
	return nil
}

// TallySnapshot is a point-in-time copy of a Tally
type TallySnapshot struct {
	ByType      map[domain.ActivityType]int64
	ActiveUsers int
	Points      int64
}

// Snapshot copies the current counters
func (t *Tally) Snapshot() TallySnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	byType := make(map[domain.ActivityType]int64, len(t.byType))
	for k, v := range t.byType {
		byType[k] = v
	}
	return TallySnapshot{
		ByType:      byType,
		ActiveUsers: len(t.users),
		Points:      t.points,
	}
}
