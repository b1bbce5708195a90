package middleware

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// RateLimiter implements a fixed-window in-memory limiter keyed by player
type RateLimiter struct {
	limits map[uuid.UUID]*playerLimit
	mu     sync.RWMutex

	maxRequests int
	window      time.Duration
	now         func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

type playerLimit struct {
	requests  int
	resetTime time.Time
}

// NewRateLimiter creates a new rate limiter and starts its cleanup goroutine.
// Call Stop when done.
func NewRateLimiter(maxRequests int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		limits:      make(map[uuid.UUID]*playerLimit),
		maxRequests: maxRequests,
		window:      window,
		now:         time.Now,
		stop:        make(chan struct{}),
	}

	go rl.cleanup(5 * time.Minute)

	return rl
}

// Allow records one request for the player and reports whether it fits the window
func (rl *RateLimiter) Allow(player uuid.UUID) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()

	limit, exists := rl.limits[player]
	if !exists || now.After(limit.resetTime) {
		rl.limits[player] = &playerLimit{
			requests:  1,
			resetTime: now.Add(rl.window),
		}
		return true
	}

	if limit.requests >= rl.maxRequests {
		return false
	}

	limit.requests++
	return true
}

// Remaining returns remaining requests for the player in the current window
func (rl *RateLimiter) Remaining(player uuid.UUID) int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	limit, exists := rl.limits[player]
	if !exists || rl.now().After(limit.resetTime) {
		return rl.maxRequests
	}

	remaining := rl.maxRequests - limit.requests
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (rl *RateLimiter) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.mu.Lock()
			now := rl.now()
			for player, limit := range rl.limits {
				if now.After(limit.resetTime) {
					delete(rl.limits, player)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Stop ends the cleanup goroutine. Safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// Reset clears all rate limits (useful for testing)
func (rl *RateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.limits = make(map[uuid.UUID]*playerLimit)
}
