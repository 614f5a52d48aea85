package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dotastats-bot/internal/config"
)

// ScoreSource is the source of truth for quiz scores
type ScoreSource interface {
	GetAllScores(ctx context.Context) (map[int64]int64, error)
}

// ScoreMirror receives a full copy of the scores
type ScoreMirror interface {
	ReplaceAll(ctx context.Context, scores map[int64]int64) error
}

// SyncWorker periodically rebuilds the leaderboard mirror from the store
type SyncWorker struct {
	source  ScoreSource
	mirror  ScoreMirror
	config  *config.SyncConfig
	logger  *slog.Logger
	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
	running bool
}

// NewSyncWorker creates a new sync worker
func NewSyncWorker(source ScoreSource, mirror ScoreMirror, cfg *config.SyncConfig, logger *slog.Logger) *SyncWorker {
	return &SyncWorker{
		source: source,
		mirror: mirror,
		config: cfg,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start begins the background sync process
func (w *SyncWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info("sync worker started", "interval", w.config.Interval)

	go w.run(ctx)
	return nil
}

// Stop stops the background sync process
func (w *SyncWorker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	w.logger.Info("sync worker stopped")
	return nil
}

func (w *SyncWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			if err := w.RunOnce(ctx); err != nil {
				w.logger.Error("leaderboard sync failed", "error", err)
			}
		}
	}
}

// RunOnce copies every stored score into the mirror
func (w *SyncWorker) RunOnce(ctx context.Context) error {
	startTime := time.Now()

	scores, err := w.source.GetAllScores(ctx)
	if err != nil {
		return err
	}

	if err := w.mirror.ReplaceAll(ctx, scores); err != nil {
		return err
	}

	w.logger.Debug("leaderboard sync completed",
		"duration", time.Since(startTime),
		"users", len(scores),
	)
	return nil
}

// IsRunning returns whether the worker is currently running
func (w *SyncWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
