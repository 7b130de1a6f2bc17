package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultCacheTTL = 10 * time.Minute

// CachedStore is a read-through Redis cache in front of another Store.
// Progress reads are cached per user. Every write for a user bumps a version
// counter, and a cached entry is served only while it carries the current
// version, so a read that loaded rows before a concurrent write cannot pin
// them in the cache. Cache failures fall back to the underlying store.
type CachedStore struct {
	next   Store
	client *redis.Client
	ttl    time.Duration
}

type cacheEntry struct {
	Version int64             `json:"version"`
	Records map[string]Record `json:"records"`
}

// NewCachedStore wraps next. A zero ttl uses ten minutes.
func NewCachedStore(next Store, client *redis.Client, ttl time.Duration) *CachedStore {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachedStore{next: next, client: client, ttl: ttl}
}

func progressKey(userID string) string {
	return "tutor:progress:" + userID
}

func versionKey(userID string) string {
	return "tutor:progress:version:" + userID
}

func (c *CachedStore) Progress(ctx context.Context, userID string) (map[string]Record, error) {
	version, entry, cacheErr := c.lookup(ctx, userID)
	switch {
	case cacheErr != nil:
		slog.Warn("progress cache read failed", "user_id", userID, "error", cacheErr)
	case entry != nil && entry.Version == version:
		return entry.Records, nil
	}

	out, err := c.next.Progress(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cacheErr != nil {
		return out, nil
	}

	data, err := json.Marshal(cacheEntry{Version: version, Records: out})
	if err != nil {
		return nil, fmt.Errorf("marshal progress: %w", err)
	}
	if err := c.client.Set(ctx, progressKey(userID), data, c.ttl).Err(); err != nil {
		slog.Warn("progress cache write failed", "user_id", userID, "error", err)
	}
	return out, nil
}

// lookup returns the user's current version and cached entry. A missing or
// corrupt entry is returned as nil.
func (c *CachedStore) lookup(ctx context.Context, userID string) (int64, *cacheEntry, error) {
	vals, err := c.client.MGet(ctx, progressKey(userID), versionKey(userID)).Result()
	if err != nil {
		return 0, nil, err
	}

	var version int64
	if s, ok := vals[1].(string); ok {
		if version, err = strconv.ParseInt(s, 10, 64); err != nil {
			return 0, nil, fmt.Errorf("parse cache version: %w", err)
		}
	}

	raw, ok := vals[0].(string)
	if !ok {
		return version, nil, nil
	}
	var e cacheEntry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		slog.Warn("discarding corrupt progress cache entry", "user_id", userID)
		return version, nil, nil
	}
	return version, &e, nil
}

func (c *CachedStore) FinalTestResults(ctx context.Context, userID, lessonID string) ([]FinalTestResult, error) {
	return c.next.FinalTestResults(ctx, userID, lessonID)
}

func (c *CachedStore) SaveProgress(ctx context.Context, u Update) error {
	if err := c.next.SaveProgress(ctx, u); err != nil {
		return err
	}
	c.invalidate(ctx, u.UserID)
	return nil
}

func (c *CachedStore) SaveQuizResult(ctx context.Context, r QuizResult) error {
	return c.next.SaveQuizResult(ctx, r)
}

func (c *CachedStore) SaveFinalTestResult(ctx context.Context, r FinalTestResult) error {
	return c.next.SaveFinalTestResult(ctx, r)
}

// invalidate bumps the user's version and drops the entry. The version key
// outlives any entry so an expired counter cannot revive a stale one.
func (c *CachedStore) invalidate(ctx context.Context, userID string) {
	vkey := versionKey(userID)
	pipe := c.client.TxPipeline()
	pipe.Incr(ctx, vkey)
	pipe.Expire(ctx, vkey, 2*c.ttl)
	pipe.Del(ctx, progressKey(userID))
	if _, err := pipe.Exec(ctx); err != nil {
		slog.Warn("progress cache invalidation failed", "user_id", userID, "error", err)
	}
}
