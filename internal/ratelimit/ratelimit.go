// Package ratelimit counts requests per (identity, action) in fixed windows.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Clock is the time source; tests pass a fixed one.
type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// Store increments the counter for key and returns the new value. The counter
// must disappear no earlier than expireAt.
type Store interface {
	Incr(ctx context.Context, key string, expireAt time.Time) (int64, error)
}

// Result describes one Allow decision.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

type Limiter struct {
	store  Store
	clock  Clock
	window time.Duration
	prefix string
}

func New(store Store, clock Clock, window time.Duration) *Limiter {
	if clock == nil {
		clock = ClockFunc(time.Now)
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{store: store, clock: clock, window: window, prefix: "rl"}
}

func (l *Limiter) Window() time.Duration { return l.window }

// Allow records one hit for identity on action. The limit+1th hit inside a
// window is refused; the count starts over when the next window begins.
func (l *Limiter) Allow(ctx context.Context, identity, action string, limit int) (Result, error) {
	now := l.clock.Now()
	start := now.Truncate(l.window)
	end := start.Add(l.window)
	key := fmt.Sprintf("%s:%s:%s:%d", l.prefix, action, identity, start.Unix())

	n, err := l.store.Incr(ctx, key, end)
	if err != nil {
		return Result{Allowed: true, Limit: limit, Remaining: limit}, fmt.Errorf("rate limit incr: %w", err)
	}
	res := Result{Limit: limit, Remaining: limit - int(n)}
	if res.Remaining < 0 {
		res.Remaining = 0
	}
	if n > int64(limit) {
		res.RetryAfter = end.Sub(now)
		return res, nil
	}
	res.Allowed = true
	return res, nil
}

type sweeper interface {
	Sweep(now time.Time) int
}

// Sweep drops expired counters when the store keeps them in process.
func (l *Limiter) Sweep() int {
	if s, ok := l.store.(sweeper); ok {
		return s.Sweep(l.clock.Now())
	}
	return 0
}
