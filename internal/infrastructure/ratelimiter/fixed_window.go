package ratelimiter

import (
	"sync"
	"time"
)

type Limiter interface {
	Allow(key string) (bool, time.Duration)
}

// FixedWindowRateLimiter counts requests per source within a fixed time
// frame. Expired windows are pruned opportunistically once the map grows.
type FixedWindowRateLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	frame   time.Duration
}

type window struct {
	count   int
	resetAt time.Time
}

func NewFixedWindowRateLimiter(limit int, frame time.Duration) *FixedWindowRateLimiter {
	if limit <= 0 {
		limit = 20
	}
	if frame <= 0 {
		frame = 5 * time.Second
	}

	return &FixedWindowRateLimiter{
		windows: make(map[string]*window),
		limit:   limit,
		frame:   frame,
	}
}

func (rl *FixedWindowRateLimiter) Allow(key string) (bool, time.Duration) {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, ok := rl.windows[key]
	if !ok || now.After(w.resetAt) {
		if len(rl.windows) > 1024 {
			rl.prune(now)
		}
		rl.windows[key] = &window{count: 1, resetAt: now.Add(rl.frame)}
		return true, 0
	}

	if w.count >= rl.limit {
		return false, time.Until(w.resetAt)
	}

	w.count++
	return true, 0
}

// prune removes expired windows; callers must hold rl.mu.
func (rl *FixedWindowRateLimiter) prune(now time.Time) {
	for key, w := range rl.windows {
		if now.After(w.resetAt) {
			delete(rl.windows, key)
		}
	}
}
