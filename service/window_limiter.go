package service

import (
	"context"
	"fmt"
	"time"

	"toolx/entity"
	"toolx/repository"
)

// WindowLimiter allows at most max requests per key in each fixed window.
type WindowLimiter struct {
	store  repository.StateStore
	clock  Clock
	name   string
	max    int
	window time.Duration
}

// NewWindowLimiter creates a fixed-window limiter. name namespaces its keys.
func NewWindowLimiter(store repository.StateStore, clock Clock, name string, max int, window time.Duration) *WindowLimiter {
	return &WindowLimiter{
		store:  store,
		clock:  clock,
		name:   name,
		max:    max,
		window: window,
	}
}

// Allow counts one request for key and rejects it with *entity.RateLimitedError when the
// window is already full. Rejected requests do not count.
func (l *WindowLimiter) Allow(ctx context.Context, key string) error {
	now := l.clock.Now()
	var denied *entity.RateLimitedError

	err := repository.UpdateJSON(ctx, l.store, l.name+":"+key, func(rec *entity.WindowRecord, found bool) (*time.Duration, bool, error) {
		denied = nil

		if !found || !now.Before(rec.ResetAt(l.window)) {
			rec.WindowStart = now
			rec.Count = 0
		}

		remaining := rec.ResetAt(l.window).Sub(now)
		if rec.Count >= l.max {
			denied = &entity.RateLimitedError{
				Reason:     "Too many requests, please try again later",
				RetryAfter: retryAfterSeconds(remaining),
			}
			return nil, false, nil
		}

		rec.Count++
		return repository.Keep(remaining), false, nil
	})
	if err != nil {
		return fmt.Errorf("failed to check %s limit: %w", l.name, err)
	}
	if denied != nil {
		return denied
	}
	return nil
}

// RouteLimitKey keys the request-code limiter by email, falling back to the client IP.
func RouteLimitKey(email, ip string) string {
	if email != "" {
		return "email:" + email
	}
	return "ip:" + ip
}
