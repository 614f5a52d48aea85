package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotastats-bot/internal/domain"
	"github.com/dotastats-bot/internal/handler"
)

type fakeLeaderboard struct {
	entries []domain.LeaderboardEntry
	err     error
	limit   int
}

func (f *fakeLeaderboard) Leaderboard(_ context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	f.limit = limit
	return f.entries, f.err
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func newServer(t *testing.T, lb *fakeLeaderboard, store handler.Pinger) *httptest.Server {
	t.Helper()
	h := handler.NewHandler(lb, store, handler.StatusInfo{Engine: "sqlite"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	srv := httptest.NewServer(h.Router())
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string) (int, handler.APIResponse) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body handler.APIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestHealthAndPing(t *testing.T) {
	srv := newServer(t, &fakeLeaderboard{}, fakePinger{})

	status, body := getJSON(t, srv.URL+"/health")
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, body.Success)

	resp, err := http.Get(srv.URL + "/ping")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "pong", string(raw))
}

func TestReady(t *testing.T) {
	srv := newServer(t, &fakeLeaderboard{}, fakePinger{})
	status, _ := getJSON(t, srv.URL+"/ready")
	assert.Equal(t, http.StatusOK, status)

	srv = newServer(t, &fakeLeaderboard{}, fakePinger{err: errors.New("locked")})
	status, body := getJSON(t, srv.URL+"/ready")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, domain.ErrStorageUnavailable.Error(), body.Error)

	srv = newServer(t, &fakeLeaderboard{}, nil)
	status, _ = getJSON(t, srv.URL+"/ready")
	assert.Equal(t, http.StatusServiceUnavailable, status)
}

func TestStatus(t *testing.T) {
	srv := newServer(t, &fakeLeaderboard{}, fakePinger{})
	status, body := getJSON(t, srv.URL+"/status")
	assert.Equal(t, http.StatusOK, status)

	data, ok := body.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "running", data["status"])
	assert.Contains(t, data, "system")
	features, ok := data["features"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "sqlite", features["storage_engine"])
}

func TestStatusPage(t *testing.T) {
	srv := newServer(t, &fakeLeaderboard{}, nil)
	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, string(raw), "Dota2 Stats Bot")
	assert.Contains(t, string(raw), "unavailable")
}

func TestMetrics(t *testing.T) {
	srv := newServer(t, &fakeLeaderboard{}, nil)
	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLeaderboard(t *testing.T) {
	lb := &fakeLeaderboard{entries: []domain.LeaderboardEntry{{Rank: 1, TelegramID: 7, Score: 30}}}
	srv := newServer(t, lb, nil)

	status, body := getJSON(t, srv.URL+"/api/v1/leaderboard?limit=3")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 3, lb.limit)
	entries, ok := body.Data.([]interface{})
	require.True(t, ok)
	assert.Len(t, entries, 1)

	status, _ = getJSON(t, srv.URL+"/api/v1/leaderboard?limit=abc")
	assert.Equal(t, http.StatusBadRequest, status)

	lb.err = domain.ErrStorageUnavailable
	status, _ = getJSON(t, srv.URL+"/api/v1/leaderboard")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, 0, lb.limit)

	lb.err = errors.New("boom")
	status, body = getJSON(t, srv.URL+"/api/v1/leaderboard")
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, domain.ErrInternalError.Error(), body.Error)
}
