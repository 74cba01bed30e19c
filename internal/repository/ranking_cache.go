package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "business-ranking-workers/internal/common/errors"
	"business-ranking-workers/internal/models"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultRankingTTL       = 7 * 24 * time.Hour
	DefaultRankingRetention = 2 * DefaultRankingTTL
)

// RankingCache stores one leaderboard per (city, category, ranking type).
// An entry goes stale after ttl but stays readable until retention passes,
// so callers can still serve it when they accept stale data.
type RankingCache struct {
	client    redis.Cmdable
	ttl       time.Duration
	retention time.Duration
	now       func() time.Time
}

func NewRankingCache(client redis.Cmdable, ttl, retention time.Duration) *RankingCache {
	if ttl <= 0 {
		ttl = DefaultRankingTTL
	}
	if retention < ttl {
		retention = 2 * ttl
	}
	return &RankingCache{client: client, ttl: ttl, retention: retention, now: time.Now}
}

// WithClock returns a copy of c that reads the time from now.
func (c *RankingCache) WithClock(now func() time.Time) *RankingCache {
	cp := *c
	cp.now = now
	return &cp
}

func RankingKey(city, category string, rankingType models.RankingType) string {
	return fmt.Sprintf("ranking:%s:%s:%s", keyPart(city), keyPart(category), rankingType)
}

func keyPart(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "-")
}

// Put replaces the entry for the key with a new version. The single SET is
// the publish point, so readers see either the old or the new leaderboard.
func (c *RankingCache) Put(ctx context.Context, city, category string, rankingType models.RankingType, rankings []models.RankedBusiness) (*models.RankingCacheEntry, error) {
	key := RankingKey(city, category, rankingType)

	version, err := c.client.Incr(ctx, key+":version").Result()
	if err != nil {
		return nil, apperrors.NewCacheFailedError(key, err)
	}

	if rankings == nil {
		rankings = []models.RankedBusiness{}
	}
	now := c.now().UTC()
	entry := &models.RankingCacheEntry{
		City:        city,
		Category:    category,
		RankingType: rankingType,
		Version:     version,
		LastUpdated: now,
		ExpiresAt:   now.Add(c.ttl),
		Rankings:    rankings,
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("encode ranking entry: %w", err)
	}
	if err := c.client.Set(ctx, key, payload, c.retention).Err(); err != nil {
		return nil, apperrors.NewCacheFailedError(key, err)
	}
	return entry, nil
}

// Get returns the entry for the key, or nil when none is retained.
func (c *RankingCache) Get(ctx context.Context, city, category string, rankingType models.RankingType) (*models.RankingCacheEntry, error) {
	key := RankingKey(city, category, rankingType)

	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewCacheFailedError(key, err)
	}

	var entry models.RankingCacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("decode ranking entry %s: %w", key, err)
	}
	return &entry, nil
}

// Stale reports whether entry has passed its expiry at the cache's clock.
func (c *RankingCache) Stale(entry *models.RankingCacheEntry) bool {
	return entry.Stale(c.now())
}
