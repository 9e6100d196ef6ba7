package worker

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter throttles mapper applications per mapper id. Mappers that front
// a metered upstream (a scoring oracle, a sensor gateway) can be given
// their own rate with SetMapperRate.
type Limiter struct {
	limiters     map[string]*rate.Limiter
	mu           sync.RWMutex
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a limiter. A non-positive rate means unlimited.
func NewLimiter(perSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 5
	}

	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}

	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  limit,
		defaultBurst: burst,
	}
}

// Wait blocks until mapperID may be applied again or ctx is done
func (l *Limiter) Wait(ctx context.Context, mapperID string) error {
	return l.get(mapperID).Wait(ctx)
}

// Allow reports whether mapperID may be applied now without waiting
func (l *Limiter) Allow(mapperID string) bool {
	return l.get(mapperID).Allow()
}

func (l *Limiter) get(mapperID string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[mapperID]
	l.mu.RUnlock()

	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if limiter, exists := l.limiters[mapperID]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
	l.limiters[mapperID] = limiter

	return limiter
}

// SetMapperRate overrides the rate for one mapper id
func (l *Limiter) SetMapperRate(mapperID string, perSecond float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if burst <= 0 {
		burst = l.defaultBurst
	}
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}

	l.limiters[mapperID] = rate.NewLimiter(limit, burst)
}
