// Package progresscache caches participant progress summaries in Redis.
// Progress is read on every poll of the participant UI; the cache absorbs
// that load and is invalidated whenever a judgement or withdrawal changes
// the underlying counts. Cache failures degrade to store reads.
package progresscache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"quorum/internal/scoring/models"
	id "quorum/pkg/domain"
)

const progressKeyPrefix = "quorum:progress:"

// Cache is a Redis-backed read-through cache for progress summaries.
// A nil *Cache is a valid no-op cache, for deployments without Redis.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *Cache {
	if client == nil {
		return nil
	}
	return &Cache{client: client, ttl: ttl}
}

// Get returns the cached progress, or (nil, false) on miss or any Redis
// failure.
func (c *Cache) Get(ctx context.Context, participantID id.ParticipantID) (*models.Progress, bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, progressKeyPrefix+participantID.String()).Bytes()
	if err != nil {
		return nil, false
	}
	var progress models.Progress
	if err := json.Unmarshal(raw, &progress); err != nil {
		return nil, false
	}
	return &progress, true
}

// Put stores a progress summary with the configured TTL. Best effort.
func (c *Cache) Put(ctx context.Context, participantID id.ParticipantID, progress *models.Progress) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(progress)
	if err != nil {
		return
	}
	c.client.Set(ctx, progressKeyPrefix+participantID.String(), raw, c.ttl)
}

// Invalidate drops the cached entries of the given participants.
func (c *Cache) Invalidate(ctx context.Context, participantIDs ...id.ParticipantID) {
	if c == nil || len(participantIDs) == 0 {
		return
	}
	keys := make([]string, len(participantIDs))
	for i, participantID := range participantIDs {
		keys[i] = progressKeyPrefix + participantID.String()
	}
	c.client.Del(ctx, keys...)
}
