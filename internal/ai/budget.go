package ai

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// BudgetChecker checks and records a learner's AI token usage for the current
// day.
type BudgetChecker interface {
	// Check returns true if the user has budget remaining.
	Check(ctx context.Context, userID string) (bool, error)
	// Record adds token usage for the user.
	Record(ctx context.Context, userID string, tokens int) error
	// Usage returns today's usage and the budget (0 means unlimited).
	Usage(ctx context.Context, userID string) (used int64, budget int64, err error)
}

// InMemoryBudget is a process-local budget tracker for development and tests.
// Usage resets at midnight UTC, the same window RedisBudget uses.
type InMemoryBudget struct {
	mu           sync.RWMutex
	defaultLimit int64
	budgets      map[string]int64      // user -> budget override
	usage        map[string]dailyUsage // user -> tokens used in day
	now          func() time.Time
}

type dailyUsage struct {
	day    string
	tokens int64
}

// NewInMemoryBudget creates a budget tracker. A zero defaultLimit means
// unlimited unless SetBudget is called for a user.
func NewInMemoryBudget(defaultLimit int64) *InMemoryBudget {
	return &InMemoryBudget{
		defaultLimit: defaultLimit,
		budgets:      make(map[string]int64),
		usage:        make(map[string]dailyUsage),
		now:          time.Now,
	}
}

// SetBudget overrides the token budget for a user.
func (b *InMemoryBudget) SetBudget(userID string, tokens int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.budgets[userID] = tokens
}

func (b *InMemoryBudget) limit(userID string) int64 {
	if v, ok := b.budgets[userID]; ok {
		return v
	}
	return b.defaultLimit
}

func (b *InMemoryBudget) today() string {
	return b.now().UTC().Format("20060102")
}

// used returns today's tokens for userID; counts from earlier days are zero.
func (b *InMemoryBudget) used(userID string) int64 {
	u := b.usage[userID]
	if u.day != b.today() {
		return 0
	}
	return u.tokens
}

func (b *InMemoryBudget) Check(_ context.Context, userID string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	limit := b.limit(userID)
	if limit <= 0 {
		return true, nil
	}
	return b.used(userID) < limit, nil
}

func (b *InMemoryBudget) Record(_ context.Context, userID string, tokens int) error {
	if tokens < 0 {
		return fmt.Errorf("tokens must be non-negative, got %d", tokens)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.usage[userID] = dailyUsage{day: b.today(), tokens: b.used(userID) + int64(tokens)}
	return nil
}

func (b *InMemoryBudget) Usage(_ context.Context, userID string) (int64, int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.used(userID), b.limit(userID), nil
}

// RedisBudget tracks daily usage in Redis so every replica sees the same
// counters. Keys expire two days after their window opens.
type RedisBudget struct {
	client *redis.Client
	limit  int64
	now    func() time.Time
}

// NewRedisBudget creates a Redis-backed budget with a per-user daily limit.
func NewRedisBudget(client *redis.Client, dailyLimit int64) *RedisBudget {
	return &RedisBudget{client: client, limit: dailyLimit, now: time.Now}
}

func (b *RedisBudget) key(userID string) string {
	return "tutor:budget:" + b.now().UTC().Format("20060102") + ":" + userID
}

func (b *RedisBudget) Check(ctx context.Context, userID string) (bool, error) {
	if b.limit <= 0 {
		return true, nil
	}
	used, err := b.used(ctx, userID)
	if err != nil {
		return false, err
	}
	return used < b.limit, nil
}

func (b *RedisBudget) Record(ctx context.Context, userID string, tokens int) error {
	if tokens < 0 {
		return fmt.Errorf("tokens must be non-negative, got %d", tokens)
	}
	key := b.key(userID)
	pipe := b.client.TxPipeline()
	pipe.IncrBy(ctx, key, int64(tokens))
	pipe.Expire(ctx, key, 48*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	return nil
}

func (b *RedisBudget) Usage(ctx context.Context, userID string) (int64, int64, error) {
	used, err := b.used(ctx, userID)
	if err != nil {
		return 0, 0, err
	}
	return used, b.limit, nil
}

func (b *RedisBudget) used(ctx context.Context, userID string) (int64, error) {
	v, err := b.client.Get(ctx, b.key(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read usage: %w", err)
	}
	return v, nil
}
