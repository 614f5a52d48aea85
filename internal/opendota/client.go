// Package opendota is a best-effort client for the public OpenDota API.
// Every call is a single attempt bounded by its own timeout; failures are
// logged and reported as "no data" rather than propagated.
package opendota

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dotastats-bot/internal/config"
	"github.com/dotastats-bot/internal/metrics"
)

// ErrNoData is returned when the API could not produce a usable answer
var ErrNoData = errors.New("no data from stats api")

// DefaultMatchLimit is used when callers pass a non-positive limit
const DefaultMatchLimit = 20

// Client talks to the OpenDota REST API
type Client struct {
	http    *http.Client
	baseURL string
	config  *config.OpenDotaConfig
	heroes  *HeroCache
	logger  *slog.Logger
}

// NewClient creates a stats client together with its hero-name cache
func NewClient(cfg *config.OpenDotaConfig, logger *slog.Logger) *Client {
	c := &Client{
		http:    &http.Client{},
		baseURL: cfg.BaseURL,
		config:  cfg,
		logger:  logger,
	}
	c.heroes = NewHeroCache(cfg.HeroesFile, c.fetchHeroes, logger)
	return c
}

// Heroes returns the client's hero-name cache
func (c *Client) Heroes() *HeroCache {
	return c.heroes
}

// HeroNames returns a snapshot of the hero table for rendering several matches
func (c *Client) HeroNames(ctx context.Context) HeroNames {
	return c.heroes.Names(ctx)
}

// GetPlayer fetches the profile summary for an account
func (c *Client) GetPlayer(ctx context.Context, accountID int64) (*Player, error) {
	var player Player
	path := "/players/" + strconv.FormatInt(accountID, 10)
	if err := c.getJSON(ctx, path, c.config.ProfileTimeout, &player); err != nil {
		c.fail("player", accountID, err)
		return nil, ErrNoData
	}
	return &player, nil
}

// GetRecentMatches returns up to limit recent matches, or an empty slice on any failure
func (c *Client) GetRecentMatches(ctx context.Context, accountID int64, limit int) []RecentMatch {
	if limit <= 0 {
		limit = DefaultMatchLimit
	}

	var raw json.RawMessage
	path := "/players/" + strconv.FormatInt(accountID, 10) + "/recentMatches"
	if err := c.getJSON(ctx, path, c.config.MatchesTimeout, &raw); err != nil {
		c.fail("recent_matches", accountID, err)
		return []RecentMatch{}
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		c.logger.Warn("recent matches response is not a list", "account_id", accountID)
		return []RecentMatch{}
	}

	var matches []RecentMatch
	if err := json.Unmarshal(trimmed, &matches); err != nil {
		c.fail("recent_matches", accountID, err)
		return []RecentMatch{}
	}
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// GetBenchmarks fetches percentile benchmarks for an account
func (c *Client) GetBenchmarks(ctx context.Context, accountID int64) (*Benchmarks, error) {
	var bench Benchmarks
	path := "/players/" + strconv.FormatInt(accountID, 10) + "/benchmarks"
	if err := c.getJSON(ctx, path, c.config.BenchmarksTimeout, &bench); err != nil {
		c.fail("benchmarks", accountID, err)
		return nil, ErrNoData
	}
	return &bench, nil
}

type heroConstant struct {
	LocalizedName string `json:"localized_name"`
}

// fetchHeroes loads the hero table from GET /constants/heroes
func (c *Client) fetchHeroes(ctx context.Context) (map[int]string, error) {
	var payload map[string]heroConstant
	if err := c.getJSON(ctx, "/constants/heroes", c.config.HeroesTimeout, &payload); err != nil {
		metrics.UpstreamErrors.WithLabelValues("heroes").Inc()
		return nil, err
	}

	names := make(map[int]string, len(payload))
	for key, hero := range payload {
		id, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		names[id] = hero.LocalizedName
	}
	return names, nil
}

// getJSON performs one GET and decodes a 200 response into out
func (c *Client) getJSON(ctx context.Context, path string, timeout time.Duration, out any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.UpstreamDuration.WithLabelValues("opendota").Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("requesting %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("requesting %s: unexpected status %d", path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}

func (c *Client) fail(endpoint string, accountID int64, err error) {
	metrics.UpstreamErrors.WithLabelValues(endpoint).Inc()
	c.logger.Error("stats api request failed",
		"endpoint", endpoint,
		"account_id", accountID,
		"error", err,
	)
}
