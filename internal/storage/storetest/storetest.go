// Package storetest holds behaviour checks every storage engine must pass.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dotastats-bot/internal/domain"
	"github.com/dotastats-bot/internal/storage"
)

// Run exercises a store. newStore must return an initialized, empty store.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	t.Run("InitIsIdempotent", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Init(context.Background()))
		require.NoError(t, s.Init(context.Background()))
	})

	t.Run("BindRoundTrip", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.BindUser(ctx, 1001, 52345678))
		got, err := s.GetAccountID(ctx, 1001)
		require.NoError(t, err)
		assert.Equal(t, int64(52345678), got)
	})

	t.Run("UnboundUser", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetAccountID(context.Background(), 42)
		assert.ErrorIs(t, err, domain.ErrNotBound)
	})

	t.Run("RebindKeepsScore", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.BindUser(ctx, 7, 100))
		updated, err := s.UpdateScore(ctx, 7, 30)
		require.NoError(t, err)
		require.True(t, updated)

		require.NoError(t, s.BindUser(ctx, 7, 200))
		got, err := s.GetAccountID(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, int64(200), got)

		scores, err := s.GetAllScores(ctx)
		require.NoError(t, err)
		assert.Equal(t, map[int64]int64{7: 30}, scores)
	})

	t.Run("UpdateScoreUnboundCreatesNothing", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		updated, err := s.UpdateScore(ctx, 99, 10)
		require.NoError(t, err)
		assert.False(t, updated)

		_, err = s.GetAccountID(ctx, 99)
		assert.ErrorIs(t, err, domain.ErrNotBound)

		board, err := s.GetLeaderboard(ctx, 10)
		require.NoError(t, err)
		assert.Empty(t, board)
	})

	t.Run("ScoresAccumulate", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.BindUser(ctx, 5, 1))
		for i := 0; i < 3; i++ {
			_, err := s.UpdateScore(ctx, 5, 10)
			require.NoError(t, err)
		}

		scores, err := s.GetAllScores(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(30), scores[5])
	})

	t.Run("NegativeDeltaRejected", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.BindUser(ctx, 6, 1))
		_, err := s.UpdateScore(ctx, 6, 30)
		require.NoError(t, err)

		applied, err := s.UpdateScore(ctx, 6, -50)
		assert.ErrorIs(t, err, domain.ErrInvalidRequest)
		assert.False(t, applied)

		scores, err := s.GetAllScores(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(30), scores[6])
	})

	t.Run("FriendsNewestFirst", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.BindUser(ctx, 10, 1))
		require.NoError(t, s.AddFriend(ctx, 10, 111, "first"))
		require.NoError(t, s.AddFriend(ctx, 10, 222, "second"))
		require.NoError(t, s.AddFriend(ctx, 10, 333, ""))

		friends, err := s.GetFriends(ctx, 10)
		require.NoError(t, err)
		require.Len(t, friends, 3)
		assert.Equal(t, int64(333), friends[0].FriendAccountID)
		assert.Equal(t, "", friends[0].FriendName)
		assert.Equal(t, int64(222), friends[1].FriendAccountID)
		assert.Equal(t, "first", friends[2].FriendName)
		for _, f := range friends {
			assert.Equal(t, int64(10), f.OwnerID)
			assert.False(t, f.AddedAt.IsZero())
		}
	})

	t.Run("FriendsAreAppendOnly", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.BindUser(ctx, 10, 1))
		require.NoError(t, s.AddFriend(ctx, 10, 111, "dup"))
		require.NoError(t, s.AddFriend(ctx, 10, 111, "dup"))

		friends, err := s.GetFriends(ctx, 10)
		require.NoError(t, err)
		assert.Len(t, friends, 2)
	})

	t.Run("FriendsOfOtherUsersHidden", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.BindUser(ctx, 10, 1))
		require.NoError(t, s.BindUser(ctx, 20, 2))
		require.NoError(t, s.AddFriend(ctx, 10, 111, "mine"))

		friends, err := s.GetFriends(ctx, 20)
		require.NoError(t, err)
		assert.NotNil(t, friends)
		assert.Empty(t, friends)
	})

	t.Run("LeaderboardOrderAndLimit", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for id, score := range map[int64]int64{1: 10, 2: 50, 3: 30, 4: 0} {
			require.NoError(t, s.BindUser(ctx, id, id*100))
			if score > 0 {
				_, err := s.UpdateScore(ctx, id, score)
				require.NoError(t, err)
			}
		}

		board, err := s.GetLeaderboard(ctx, 3)
		require.NoError(t, err)
		require.Len(t, board, 3)
		assert.Equal(t, domain.LeaderboardEntry{Rank: 1, TelegramID: 2, Score: 50}, board[0])
		assert.Equal(t, domain.LeaderboardEntry{Rank: 2, TelegramID: 3, Score: 30}, board[1])
		assert.Equal(t, domain.LeaderboardEntry{Rank: 3, TelegramID: 1, Score: 10}, board[2])

		all, err := s.GetLeaderboard(ctx, 100)
		require.NoError(t, err)
		assert.Len(t, all, 4)
	})

	t.Run("LeaderboardWithTies", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for i, score := range []int64{5, 30, 10, 30} {
			id := int64(i + 1)
			require.NoError(t, s.BindUser(ctx, id, id))
			_, err := s.UpdateScore(ctx, id, score)
			require.NoError(t, err)
		}

		board, err := s.GetLeaderboard(ctx, 3)
		require.NoError(t, err)
		require.Len(t, board, 3)
		assert.Equal(t, int64(30), board[0].Score)
		assert.Equal(t, int64(30), board[1].Score)
		assert.Equal(t, int64(10), board[2].Score)
		assert.ElementsMatch(t, []int64{2, 4}, []int64{board[0].TelegramID, board[1].TelegramID})
	})

	t.Run("LeaderboardDefaultLimit", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for id := int64(1); id <= domain.DefaultLeaderboardLimit+2; id++ {
			require.NoError(t, s.BindUser(ctx, id, id))
		}

		board, err := s.GetLeaderboard(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, board, domain.DefaultLeaderboardLimit)
	})

	t.Run("Ping", func(t *testing.T) {
		s := newStore(t)
		assert.NoError(t, s.Ping(context.Background()))
	})
}
