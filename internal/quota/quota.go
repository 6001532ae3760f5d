// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package quota enforces the chat backend's daily demo allowance.
//
// Each client key (normally the client IP) may make Limit chat requests per
// UTC day. Counters live in Redis when a URL is configured so several
// server replicas share them, and in process memory otherwise.
package quota

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed bool
	Used    int
	Limit   int // 0 means unlimited
	ResetAt time.Time
}

// Remaining returns how many requests are left today.
func (d Decision) Remaining() int {
	if d.Limit == 0 {
		return -1
	}
	if r := d.Limit - d.Used; r > 0 {
		return r
	}
	return 0
}

// Limiter counts requests per key per day.
type Limiter interface {
	// Allow records one request for key and reports whether it fits.
	Allow(ctx context.Context, key string) (Decision, error)
	// SetLimit changes the daily allowance. 0 disables the quota.
	SetLimit(limit int)
	// Backend names the counter store, for logs.
	Backend() string
	Close() error
}

// New returns a Redis-backed limiter when redisURL is set and reachable,
// and an in-memory one otherwise.
func New(ctx context.Context, redisURL string, limit int, logger zerolog.Logger) Limiter {
	if redisURL == "" {
		return NewMemory(limit, nil)
	}
	rl, err := NewRedis(ctx, redisURL, limit)
	if err != nil {
		logger.Warn().Err(err).Msg("redis quota store unavailable, counting in memory")
		return NewMemory(limit, nil)
	}
	return rl
}

func dayOf(t time.Time) (string, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start.Format("2006-01-02"), start.Add(24 * time.Hour)
}

// =============================================================================
// MEMORY
// =============================================================================

// Memory keeps counters in process memory. Counters from previous days are
// dropped when the day rolls over.
type Memory struct {
	limit atomic.Int64
	now   func() time.Time

	mu     sync.Mutex
	day    string
	counts map[string]int
}

// NewMemory creates an in-memory limiter. A nil now uses time.Now.
func NewMemory(limit int, now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	m := &Memory{now: now, counts: make(map[string]int)}
	m.limit.Store(int64(limit))
	return m
}

// Allow implements Limiter.
func (m *Memory) Allow(_ context.Context, key string) (Decision, error) {
	limit := int(m.limit.Load())
	day, reset := dayOf(m.now())

	m.mu.Lock()
	defer m.mu.Unlock()

	if day != m.day {
		m.day = day
		m.counts = make(map[string]int)
	}
	if limit == 0 {
		return Decision{Allowed: true, ResetAt: reset}, nil
	}
	used := m.counts[key]
	if used >= limit {
		return Decision{Allowed: false, Used: used, Limit: limit, ResetAt: reset}, nil
	}
	used++
	m.counts[key] = used
	return Decision{Allowed: true, Used: used, Limit: limit, ResetAt: reset}, nil
}

// SetLimit implements Limiter.
func (m *Memory) SetLimit(limit int) { m.limit.Store(int64(limit)) }

// Backend implements Limiter.
func (m *Memory) Backend() string { return "memory" }

// Close implements Limiter.
func (m *Memory) Close() error { return nil }

// =============================================================================
// REDIS
// =============================================================================

// Redis keeps counters in Redis under folio:quota:<day>:<key>, expiring
// shortly after the day ends.
type Redis struct {
	client *redis.Client
	limit  atomic.Int64
	now    func() time.Time
}

// NewRedis connects to redisURL and verifies it with PING.
func NewRedis(ctx context.Context, redisURL string, limit int) (*Redis, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	opt.DialTimeout = 2 * time.Second
	opt.MaxRetries = -1

	client := redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	r := &Redis{client: client, now: time.Now}
	r.limit.Store(int64(limit))
	return r, nil
}

// Key returns the Redis key counting key's requests on day.
func Key(day, key string) string {
	return "folio:quota:" + day + ":" + key
}

// Allow implements Limiter. The counter is incremented before comparing,
// so rejected requests still count; the client is over quota either way.
func (r *Redis) Allow(ctx context.Context, key string) (Decision, error) {
	limit := int(r.limit.Load())
	day, reset := dayOf(r.now())
	if limit == 0 {
		return Decision{Allowed: true, ResetAt: reset}, nil
	}

	k := Key(day, key)
	pipe := r.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireAt(ctx, k, reset.Add(time.Hour))
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, fmt.Errorf("quota increment failed: %w", err)
	}

	used := int(incr.Val())
	return Decision{
		Allowed: used <= limit,
		Used:    used,
		Limit:   limit,
		ResetAt: reset,
	}, nil
}

// SetLimit implements Limiter.
func (r *Redis) SetLimit(limit int) { r.limit.Store(int64(limit)) }

// Backend implements Limiter.
func (r *Redis) Backend() string { return "redis" }

// Close implements Limiter.
func (r *Redis) Close() error { return r.client.Close() }
