package steam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dotastats-bot/internal/config"
)

// ErrVanityNotFound is returned when Steam does not know the vanity name
var ErrVanityNotFound = errors.New("vanity url not found")

// Client resolves Steam vanity URLs through the Steam Web API
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	timeout time.Duration
	logger  *slog.Logger
}

// NewClient creates a vanity resolver. It returns nil when no API key is
// configured, which disables vanity resolution for the process lifetime.
func NewClient(cfg *config.SteamConfig, logger *slog.Logger) *Client {
	if cfg.APIKey == "" {
		return nil
	}
	return &Client{
		http:    &http.Client{},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		timeout: cfg.Timeout,
		logger:  logger,
	}
}

type vanityResponse struct {
	Response struct {
		Success int    `json:"success"`
		SteamID string `json:"steamid"`
		Message string `json:"message"`
	} `json:"response"`
}

// ResolveVanity returns the Steam64 id behind a vanity name
func (c *Client) ResolveVanity(ctx context.Context, vanity string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("vanityurl", vanity)
	endpoint := c.baseURL + "/ISteamUser/ResolveVanityURL/v1/?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("building vanity request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("resolving vanity url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("resolving vanity url: unexpected status %d", resp.StatusCode)
	}

	var body vanityResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decoding vanity response: %w", err)
	}
	if body.Response.Success != 1 {
		c.logger.Debug("vanity url not resolved", "vanity", vanity, "message", body.Response.Message)
		return 0, ErrVanityNotFound
	}

	steam64, err := strconv.ParseInt(body.Response.SteamID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing steamid: %w", err)
	}
	return steam64, nil
}
