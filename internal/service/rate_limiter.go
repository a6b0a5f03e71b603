package service

import (
	"sync"

	"golang.org/x/time/rate"

	"github.com/goleaf/petssocnnetworkmobile-sub009/internal/models"
)

// RateLimiter bounds how fast jobs of each type may be enqueued. Every job
// type gets its own token bucket so a burst of one type cannot starve the
// others.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[models.JobType]*rate.Limiter

	limit rate.Limit
	burst int
}

// NewRateLimiter creates a limiter allowing perSecond sustained enqueues
// per job type with the given burst.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[models.JobType]*rate.Limiter),
		limit:    rate.Limit(perSecond),
		burst:    burst,
	}
}

// Allow reports whether one more job of the given type may be enqueued now.
func (rl *RateLimiter) Allow(jobType models.JobType) bool {
	rl.mu.Lock()
	limiter, ok := rl.limiters[jobType]
	if !ok {
		limiter = rate.NewLimiter(rl.limit, rl.burst)
		rl.limiters[jobType] = limiter
	}
	rl.mu.Unlock()

	return limiter.Allow()
}
