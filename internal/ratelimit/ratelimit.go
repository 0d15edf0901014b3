package ratelimit

import (
	"sync"
	"time"
)

// Limiter bounds the rate of inbound events on one connection. Tokens refill
// continuously at rate per second up to capacity; each accepted event spends
// one. Excess events are dropped by the caller, not queued.
type Limiter struct {
	mu       sync.Mutex
	rate     float64
	capacity float64
	tokens   float64
	last     time.Time
}

func NewLimiter(rate float64, burst int) *Limiter {
	return &Limiter{
		rate:     rate,
		capacity: float64(burst),
		tokens:   float64(burst),
		last:     time.Now(),
	}
}

// Allow reports whether one event may proceed now.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	l.tokens += now.Sub(l.last).Seconds() * l.rate
	l.last = now
	if l.tokens > l.capacity {
		l.tokens = l.capacity
	}

	if l.tokens < 1 {
		return false
	}
	l.tokens--
	return true
}
