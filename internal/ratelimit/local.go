package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// LocalLimiter keeps a token bucket per client in process memory. A client
// may burst the full limit and then refills at limit/window.
type LocalLimiter struct {
	mu        sync.Mutex
	clients   map[string]*localClient
	limit     int
	window    time.Duration
	interval  time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type localClient struct {
	bucket   *rate.Limiter
	lastSeen time.Time
}

func NewLocalLimiter(limit int, window time.Duration) *LocalLimiter {
	return &LocalLimiter{
		clients:  make(map[string]*localClient),
		limit:    limit,
		window:   window,
		interval: window / time.Duration(limit),
		now:      time.Now,
	}
}

func (l *LocalLimiter) Allow(_ context.Context, key string) (*Result, error) {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	l.evict(now)
	c, ok := l.clients[key]
	if !ok {
		c = &localClient{bucket: rate.NewLimiter(rate.Every(l.interval), l.limit)}
		l.clients[key] = c
	}
	c.lastSeen = now

	allowed := c.bucket.AllowN(now, 1)
	tokens := c.bucket.TokensAt(now)
	res := &Result{Allowed: allowed, Remaining: max(int(tokens), 0), ResetAt: now, Limit: l.limit}
	if tokens < 1 {
		res.ResetAt = now.Add(time.Duration((1 - tokens) * float64(l.interval)))
	}
	return res, nil
}

// evict drops clients idle for a whole window, at most once per window;
// their bucket would be full again anyway.
func (l *LocalLimiter) evict(now time.Time) {
	if now.Sub(l.lastSweep) < l.window {
		return
	}
	l.lastSweep = now
	for k, c := range l.clients {
		if now.Sub(c.lastSeen) > l.window {
			delete(l.clients, k)
		}
	}
}
