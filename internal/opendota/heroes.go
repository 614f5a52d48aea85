package opendota

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// HeroRetryInterval is how long a failed load is remembered before the
// next lookup tries again
const HeroRetryInterval = 30 * time.Second

// HeroNames is a read-only snapshot of the hero table
type HeroNames map[int]string

// Name returns the hero's display name or "Hero <id>" when unknown
func (n HeroNames) Name(heroID int) string {
	if name, ok := n[heroID]; ok && name != "" {
		return name
	}
	return fmt.Sprintf("Hero %d", heroID)
}

// HeroCache is a populate-once table of hero id to display name.
// Reads after the first successful population take no lock.
type HeroCache struct {
	names         atomic.Pointer[HeroNames]
	mu            sync.Mutex
	retryAt       time.Time
	retryInterval time.Duration
	now           func() time.Time
	file          string
	fetch         func(ctx context.Context) (map[int]string, error)
	logger        *slog.Logger
}

// NewHeroCache creates a cache that reads file first and falls back to fetch
func NewHeroCache(file string, fetch func(ctx context.Context) (map[int]string, error), logger *slog.Logger) *HeroCache {
	return &HeroCache{
		retryInterval: HeroRetryInterval,
		now:           time.Now,
		file:          file,
		fetch:         fetch,
		logger:        logger,
	}
}

// Names returns the whole table, loading it on first use. The snapshot is
// empty while the table is unavailable.
func (h *HeroCache) Names(ctx context.Context) HeroNames {
	return h.load(ctx)
}

// Len returns the number of cached heroes, zero before the first load
func (h *HeroCache) Len() int {
	if names := h.names.Load(); names != nil {
		return len(*names)
	}
	return 0
}

func (h *HeroCache) load(ctx context.Context) HeroNames {
	if names := h.names.Load(); names != nil {
		return *names
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if names := h.names.Load(); names != nil {
		return *names
	}
	if h.now().Before(h.retryAt) {
		return nil
	}

	names, err := readHeroFile(h.file)
	if err != nil {
		h.logger.Debug("hero file unavailable, fetching from api", "file", h.file, "error", err)
		names, err = h.fetch(ctx)
		if err != nil {
			h.retryAt = h.now().Add(h.retryInterval)
			h.logger.Error("failed to load hero names", "error", err, "retry_at", h.retryAt)
			return nil
		}
	}

	table := HeroNames(names)
	h.names.Store(&table)
	h.logger.Info("hero names loaded", "count", len(names))
	return table
}

// readHeroFile reads a {"<id>": "<name>"} JSON file
func readHeroFile(path string) (map[int]string, error) {
	if path == "" {
		return nil, os.ErrNotExist
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing hero file: %w", err)
	}

	names := make(map[int]string, len(raw))
	for key, name := range raw {
		id, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		names[id] = name
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("hero file %s is empty", path)
	}
	return names, nil
}
