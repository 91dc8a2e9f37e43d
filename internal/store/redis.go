package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/slidrapp/slidr/internal/metrics"
	"github.com/slidrapp/slidr/internal/models"
)

const (
	presentationTTL = time.Hour
	reactionTTL     = 7 * 24 * time.Hour

	reactionTotalKey = "reactions:total"
)

// RedisStore handles Redis operations for caching and reaction tallies.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis store.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Client exposes the underlying client for the sync transport and rate limiter.
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	start := time.Now()
	err := s.client.Ping(ctx).Err()
	metrics.RedisLatency.Observe(time.Since(start).Seconds())
	return err
}

// presentationKey returns the cache key for a presentation document.
func presentationKey(id string) string {
	return fmt.Sprintf("presentation:%s", id)
}

// reactionsKey returns the hash holding a session's reaction tallies.
func reactionsKey(session string) string {
	return fmt.Sprintf("session:%s:reactions", session)
}

// CachePresentation stores a rendered presentation. Unrendered documents are
// still changing and are never cached.
func (s *RedisStore) CachePresentation(ctx context.Context, p *models.Presentation) error {
	if p == nil || p.Rendered == nil {
		return nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, presentationKey(p.ID), data, presentationTTL).Err()
}

// GetCachedPresentation returns the cached document or nil on a miss.
func (s *RedisStore) GetCachedPresentation(ctx context.Context, id string) (*models.Presentation, error) {
	start := time.Now()
	data, err := s.client.Get(ctx, presentationKey(id)).Bytes()
	metrics.RedisLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var p models.Presentation
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// InvalidatePresentation drops a cached document.
func (s *RedisStore) InvalidatePresentation(ctx context.Context, id string) error {
	return s.client.Del(ctx, presentationKey(id)).Err()
}

// IncrementReaction counts one reaction of kind in session.
func (s *RedisStore) IncrementReaction(ctx context.Context, session, kind string) error {
	key := reactionsKey(session)

	pipe := s.client.Pipeline()
	pipe.HIncrBy(ctx, key, kind, 1)
	pipe.Expire(ctx, key, reactionTTL)
	pipe.Incr(ctx, reactionTotalKey)
	_, err := pipe.Exec(ctx)
	return err
}

// GetReactionCounts returns the reaction tallies of a session.
func (s *RedisStore) GetReactionCounts(ctx context.Context, session string) ([]models.ReactionCount, error) {
	fields, err := s.client.HGetAll(ctx, reactionsKey(session)).Result()
	if err != nil {
		return nil, err
	}

	counts := make([]models.ReactionCount, 0, len(fields))
	for kind, value := range fields {
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			continue
		}
		counts = append(counts, models.ReactionCount{Kind: kind, Count: n})
	}
	return counts, nil
}

// TotalReactions returns the number of reactions counted across all sessions.
func (s *RedisStore) TotalReactions(ctx context.Context) (int64, error) {
	n, err := s.client.Get(ctx, reactionTotalKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}
