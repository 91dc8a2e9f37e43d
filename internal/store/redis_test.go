package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slidrapp/slidr/internal/models"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := NewRedisStore(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestRedisStorePresentationCache(t *testing.T) {
	s, mr := newTestRedisStore(t)
	ctx := context.Background()

	miss, err := s.GetCachedPresentation(ctx, "abc")
	require.NoError(t, err)
	assert.Nil(t, miss)

	// Unrendered documents are skipped.
	require.NoError(t, s.CachePresentation(ctx, &models.Presentation{ID: "abc"}))
	assert.False(t, mr.Exists("presentation:abc"))

	rendered := time.Now().UTC()
	p := &models.Presentation{ID: "abc", Title: "Deck", Pages: []string{"a", "b"}, Rendered: &rendered}
	require.NoError(t, s.CachePresentation(ctx, p))
	assert.Equal(t, presentationTTL, mr.TTL("presentation:abc"))

	got, err := s.GetCachedPresentation(ctx, "abc")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Deck", got.Title)
	assert.Equal(t, []string{"a", "b"}, got.Pages)

	require.NoError(t, s.InvalidatePresentation(ctx, "abc"))
	got, err = s.GetCachedPresentation(ctx, "abc")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisStoreReactions(t *testing.T) {
	s, mr := newTestRedisStore(t)
	ctx := context.Background()

	total, err := s.TotalReactions(ctx)
	require.NoError(t, err)
	assert.Zero(t, total)

	require.NoError(t, s.IncrementReaction(ctx, "abc", "love"))
	require.NoError(t, s.IncrementReaction(ctx, "abc", "love"))
	require.NoError(t, s.IncrementReaction(ctx, "abc", "clap"))
	require.NoError(t, s.IncrementReaction(ctx, "xyz", "love"))

	counts, err := s.GetReactionCounts(ctx, "abc")
	require.NoError(t, err)
	assert.ElementsMatch(t, []models.ReactionCount{
		{Kind: "love", Count: 2},
		{Kind: "clap", Count: 1},
	}, counts)
	assert.Equal(t, reactionTTL, mr.TTL("session:abc:reactions"))

	empty, err := s.GetReactionCounts(ctx, "none")
	require.NoError(t, err)
	assert.Empty(t, empty)

	total, err = s.TotalReactions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
}

func TestRedisStorePing(t *testing.T) {
	s, mr := newTestRedisStore(t)
	require.NoError(t, s.Ping(context.Background()))

	mr.Close()
	assert.Error(t, s.Ping(context.Background()))
}

func TestNewRedisStoreRejectsBadURL(t *testing.T) {
	_, err := NewRedisStore(context.Background(), "not a url")
	assert.Error(t, err)
}

func TestNewRedisStoreFromClient(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStoreFromClient(client)
	defer s.Close()

	assert.Same(t, client, s.Client())
	require.NoError(t, s.Ping(context.Background()))
}
