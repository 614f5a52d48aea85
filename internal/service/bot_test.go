package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotastats-bot/internal/config"
	"github.com/dotastats-bot/internal/domain"
	"github.com/dotastats-bot/internal/opendota"
	"github.com/dotastats-bot/internal/service"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// memStore is an in-memory storage.Store
type memStore struct {
	mu      sync.Mutex
	users   map[int64]*domain.UserBinding
	friends []domain.Friend
	failAll error
}

func newMemStore() *memStore {
	return &memStore{users: map[int64]*domain.UserBinding{}}
}

func (m *memStore) Init(context.Context) error { return nil }

func (m *memStore) BindUser(_ context.Context, telegramID, accountID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return m.failAll
	}
	if u, ok := m.users[telegramID]; ok {
		u.AccountID = accountID
		return nil
	}
	m.users[telegramID] = &domain.UserBinding{TelegramID: telegramID, AccountID: accountID}
	return nil
}

func (m *memStore) GetAccountID(_ context.Context, telegramID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return 0, m.failAll
	}
	u, ok := m.users[telegramID]
	if !ok {
		return 0, domain.ErrNotBound
	}
	return u.AccountID, nil
}

func (m *memStore) AddFriend(_ context.Context, ownerID, friendAccountID int64, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return m.failAll
	}
	m.friends = append(m.friends, domain.Friend{
		ID: int64(len(m.friends) + 1), OwnerID: ownerID, FriendAccountID: friendAccountID, FriendName: name,
	})
	return nil
}

func (m *memStore) GetFriends(_ context.Context, ownerID int64) ([]domain.Friend, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return nil, m.failAll
	}
	out := []domain.Friend{}
	for i := len(m.friends) - 1; i >= 0; i-- {
		if m.friends[i].OwnerID == ownerID {
			out = append(out, m.friends[i])
		}
	}
	return out, nil
}

func (m *memStore) UpdateScore(_ context.Context, telegramID, delta int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return false, m.failAll
	}
	u, ok := m.users[telegramID]
	if !ok {
		return false, nil
	}
	u.Score += delta
	return true, nil
}

func (m *memStore) GetLeaderboard(_ context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAll != nil {
		return nil, m.failAll
	}
	entries := []domain.LeaderboardEntry{}
	for _, u := range m.users {
		entries = append(entries, domain.LeaderboardEntry{TelegramID: u.TelegramID, Score: u.Score})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Score > entries[j].Score })
	if len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = int64(i + 1)
	}
	return entries, nil
}

func (m *memStore) GetAllScores(context.Context) (map[int64]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	scores := map[int64]int64{}
	for id, u := range m.users {
		scores[id] = u.Score
	}
	return scores, nil
}

func (m *memStore) Ping(context.Context) error { return m.failAll }
func (m *memStore) Close() error               { return nil }

type fakeResolver map[string]int64

func (f fakeResolver) Resolve(_ context.Context, ref string) (int64, bool) {
	id, ok := f[ref]
	return id, ok
}

type fakeStats struct {
	players   map[int64]*opendota.Player
	matches   []opendota.RecentMatch
	bench     *opendota.Benchmarks
	heroLoads int
}

func (f *fakeStats) GetPlayer(_ context.Context, id int64) (*opendota.Player, error) {
	if p, ok := f.players[id]; ok {
		return p, nil
	}
	return nil, opendota.ErrNoData
}

func (f *fakeStats) GetRecentMatches(_ context.Context, _ int64, limit int) []opendota.RecentMatch {
	if len(f.matches) > limit {
		return f.matches[:limit]
	}
	return f.matches
}

func (f *fakeStats) GetBenchmarks(context.Context, int64) (*opendota.Benchmarks, error) {
	if f.bench == nil {
		return nil, opendota.ErrNoData
	}
	return f.bench, nil
}

func (f *fakeStats) HeroNames(context.Context) opendota.HeroNames {
	f.heroLoads++
	return opendota.HeroNames{74: "Invoker"}
}

type fakeBoard struct {
	increments map[int64]int64
	top        []domain.LeaderboardEntry
	err        error
}

func (f *fakeBoard) IncrementScore(_ context.Context, id, delta int64) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.increments[id] += delta
	return f.increments[id], nil
}

func (f *fakeBoard) GetTopN(context.Context, int) ([]domain.LeaderboardEntry, error) {
	return f.top, f.err
}

type recordingPublisher struct {
	events []domain.ActivityEvent
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, e domain.ActivityEvent) error {
	r.events = append(r.events, e)
	return r.err
}

func (r *recordingPublisher) Close() error { return nil }

func named(name string) *opendota.Player {
	return &opendota.Player{Profile: opendota.Profile{PersonaName: name}}
}

const miracle = int64(105248644)

func newService(store *memStore) (*service.BotService, *fakeStats) {
	stats := &fakeStats{players: map[int64]*opendota.Player{miracle: named("Miracle-"), 777: named("")}}
	resolver := fakeResolver{
		"https://steamcommunity.com/profiles/76561198065514372": miracle,
		"777": 777,
		"555": 555,
	}
	cfg := config.DefaultConfig()
	if store == nil {
		return service.NewBotService(resolver, stats, nil, cfg, discard), stats
	}
	return service.NewBotService(resolver, stats, store, cfg, discard), stats
}

func TestBindProfile(t *testing.T) {
	store := newMemStore()
	svc, _ := newService(store)
	pub := &recordingPublisher{}
	svc.SetPublisher(pub)

	res, err := svc.BindProfile(context.Background(), 1, "https://steamcommunity.com/profiles/76561198065514372")
	require.NoError(t, err)
	assert.Equal(t, miracle, res.AccountID)
	assert.Equal(t, "Miracle-", res.Name)

	got, err := store.GetAccountID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, miracle, got)

	require.Len(t, pub.events, 1)
	assert.Equal(t, domain.ActivityProfileBound, pub.events[0].Type)
	assert.NotEmpty(t, pub.events[0].ID)
}

func TestBindProfileErrors(t *testing.T) {
	svc, _ := newService(newMemStore())
	ctx := context.Background()

	_, err := svc.BindProfile(ctx, 1, "garbage")
	assert.ErrorIs(t, err, domain.ErrUnrecognizedProfile)

	_, err = svc.BindProfile(ctx, 1, "555")
	assert.ErrorIs(t, err, domain.ErrNoStats)

	res, err := svc.BindProfile(ctx, 1, "777")
	require.NoError(t, err)
	assert.Equal(t, "Player", res.Name)
}

func TestBindPublishFailureDoesNotFail(t *testing.T) {
	svc, _ := newService(newMemStore())
	svc.SetPublisher(&recordingPublisher{err: errors.New("broker down")})

	_, err := svc.BindProfile(context.Background(), 1, "777")
	assert.NoError(t, err)
}

func TestNilStoreFailsClosed(t *testing.T) {
	svc, _ := newService(nil)
	ctx := context.Background()
	assert.False(t, svc.StorageAvailable())

	_, err := svc.BindProfile(ctx, 1, "777")
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	_, err = svc.Profile(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	_, err = svc.Analyze(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	_, err = svc.AddFriend(ctx, 1, "777")
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	_, err = svc.Friends(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	_, err = svc.AnswerQuiz(ctx, 1, true)
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	_, err = svc.Leaderboard(ctx, 10)
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)

	res, err := svc.AnswerQuiz(ctx, 1, false)
	require.NoError(t, err)
	assert.False(t, res.Correct)
}

func TestProfile(t *testing.T) {
	store := newMemStore()
	svc, stats := newService(store)
	ctx := context.Background()

	_, err := svc.Profile(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrNotBound)

	tier := 55
	stats.players[miracle].RankTier = &tier
	stats.matches = []opendota.RecentMatch{
		{HeroID: 74, Kills: 12, Deaths: 1, Assists: 9, PlayerSlot: 0, RadiantWin: true},
		{HeroID: 1, PlayerSlot: 128, RadiantWin: true},
		{HeroID: 1, PlayerSlot: 129, RadiantWin: false},
		{HeroID: 1},
		{HeroID: 1},
	}
	require.NoError(t, store.BindUser(ctx, 1, miracle))

	view, err := svc.Profile(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Miracle-", view.Name)
	assert.True(t, view.HasMMR)
	assert.Equal(t, 3610, view.MMR)
	require.Len(t, view.Matches, 3)
	assert.Equal(t, service.MatchLine{Hero: "Invoker", KDA: "12/1/9", Won: true}, view.Matches[0])
	assert.Equal(t, "Hero 1", view.Matches[1].Hero)
	assert.False(t, view.Matches[1].Won)
	assert.True(t, view.Matches[2].Won)
	assert.Equal(t, 1, stats.heroLoads, "hero table is read once per profile")
}

func TestProfileStatsUnavailable(t *testing.T) {
	store := newMemStore()
	svc, _ := newService(store)
	require.NoError(t, store.BindUser(context.Background(), 1, 555))

	_, err := svc.Profile(context.Background(), 1)
	assert.ErrorIs(t, err, domain.ErrNoStats)
	assert.ErrorIs(t, err, opendota.ErrNoData)
}

func TestAnalyze(t *testing.T) {
	store := newMemStore()
	svc, stats := newService(store)
	ctx := context.Background()
	require.NoError(t, store.BindUser(ctx, 1, miracle))

	_, err := svc.Analyze(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrNoStats)

	var bench opendota.Benchmarks
	require.NoError(t, bench.UnmarshalJSON([]byte(`{"result":{
		"gold_per_min":[{"percentile":0.5,"value":450},{"percentile":0.95,"value":720}],
		"kills_per_min":[{"percentile":0.8,"value":0.31}]
	}}`)))
	stats.bench = &bench

	lines, err := svc.Analyze(ctx, 1)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "gold_per_min", lines[0].Metric)
	assert.Equal(t, 720.0, lines[0].Value)
	assert.Equal(t, 0.95, lines[0].Percentile)
	assert.Equal(t, "kills_per_min", lines[1].Metric)
}

func TestFriends(t *testing.T) {
	store := newMemStore()
	svc, _ := newService(store)
	ctx := context.Background()

	_, err := svc.AddFriend(ctx, 1, "nope")
	assert.ErrorIs(t, err, domain.ErrUnrecognizedProfile)

	f, err := svc.AddFriend(ctx, 1, "777")
	require.NoError(t, err)
	assert.Equal(t, "Friend", f.FriendName)

	_, err = svc.AddFriend(ctx, 1, "https://steamcommunity.com/profiles/76561198065514372")
	require.NoError(t, err)

	friends, err := svc.Friends(ctx, 1)
	require.NoError(t, err)
	require.Len(t, friends, 2)
	assert.Equal(t, "Miracle-", friends[0].FriendName)
	assert.Equal(t, int64(777), friends[1].FriendAccountID)
}

func TestAnswerQuiz(t *testing.T) {
	store := newMemStore()
	svc, _ := newService(store)
	board := &fakeBoard{increments: map[int64]int64{}}
	pub := &recordingPublisher{}
	svc.SetScoreBoard(board)
	svc.SetPublisher(pub)
	ctx := context.Background()

	res, err := svc.AnswerQuiz(ctx, 1, true)
	require.NoError(t, err)
	assert.True(t, res.Correct)
	assert.False(t, res.Recorded)
	assert.Empty(t, board.increments)

	scores, _ := store.GetAllScores(ctx)
	assert.Empty(t, scores)

	require.NoError(t, store.BindUser(ctx, 1, miracle))
	res, err = svc.AnswerQuiz(ctx, 1, true)
	require.NoError(t, err)
	assert.True(t, res.Recorded)
	assert.Equal(t, int64(10), res.Points)
	assert.Equal(t, int64(10), board.increments[1])

	res, err = svc.AnswerQuiz(ctx, 1, false)
	require.NoError(t, err)
	assert.False(t, res.Correct)

	scores, _ = store.GetAllScores(ctx)
	assert.Equal(t, int64(10), scores[1])
	require.Len(t, pub.events, 1)
	assert.Equal(t, domain.ActivityQuizCorrect, pub.events[0].Type)
	assert.WithinDuration(t, time.Now(), pub.events[0].Timestamp, time.Minute)
}

func TestLeaderboardPrefersMirror(t *testing.T) {
	store := newMemStore()
	svc, _ := newService(store)
	ctx := context.Background()
	require.NoError(t, store.BindUser(ctx, 1, 1))
	_, _ = store.UpdateScore(ctx, 1, 30)

	mirrored := []domain.LeaderboardEntry{{Rank: 1, TelegramID: 9, Score: 99}}
	board := &fakeBoard{top: mirrored}
	svc.SetScoreBoard(board)

	entries, err := svc.Leaderboard(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, mirrored, entries)

	board.err = errors.New("redis down")
	entries, err = svc.Leaderboard(ctx, 5)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(1), entries[0].TelegramID)
	assert.Equal(t, int64(30), entries[0].Score)
}

func TestStorageFailureIsWrapped(t *testing.T) {
	store := newMemStore()
	store.failAll = errors.New("disk full")
	svc, _ := newService(store)

	_, err := svc.Friends(context.Background(), 1)
	require.Error(t, err)
	assert.False(t, domain.IsUserFacing(err))
	assert.ErrorIs(t, err, store.failAll)
}
