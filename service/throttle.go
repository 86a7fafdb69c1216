package service

import (
	"context"
	"fmt"
	"time"

	"toolx/config"
	"toolx/entity"
	"toolx/repository"
)

const (
	hourWindow = time.Hour
	dayWindow  = 24 * time.Hour
)

// Throttle enforces a minimum interval plus hourly and daily caps per identity.
// Budget is consumed when a request is admitted, whatever happens downstream.
type Throttle struct {
	store repository.StateStore
	clock Clock
	cfg   config.Throttle
}

// NewThrottle creates a throttle.
func NewThrottle(store repository.StateStore, clock Clock, cfg config.Throttle) *Throttle {
	return &Throttle{store: store, clock: clock, cfg: cfg}
}

// Check admits or rejects one request for identity. A rejection is a *entity.RateLimitedError.
func (t *Throttle) Check(ctx context.Context, identity string) error {
	now := t.clock.Now()
	var denied *entity.RateLimitedError

	err := repository.UpdateJSON(ctx, t.store, "throttle:"+identity, func(rec *entity.ThrottleRecord, _ bool) (*time.Duration, bool, error) {
		denied = nil

		if !rec.LastRequestAt.IsZero() && t.cfg.MinInterval > 0 {
			if elapsed := now.Sub(rec.LastRequestAt); elapsed < t.cfg.MinInterval {
				denied = &entity.RateLimitedError{
					Reason:     "Please wait before requesting another OTP",
					RetryAfter: retryAfterSeconds(t.cfg.MinInterval - elapsed),
				}
				return nil, false, nil
			}
		}

		if rec.HourWindowStart.IsZero() || now.Sub(rec.HourWindowStart) >= hourWindow {
			rec.HourWindowStart = now
			rec.HourCount = 0
		}
		if rec.DayWindowStart.IsZero() || now.Sub(rec.DayWindowStart) >= dayWindow {
			rec.DayWindowStart = now
			rec.DayCount = 0
		}

		if rec.HourCount >= t.cfg.MaxPerHour {
			denied = &entity.RateLimitedError{
				Reason:     "Too many OTP requests in the last hour",
				RetryAfter: retryAfterSeconds(rec.HourWindowStart.Add(hourWindow).Sub(now)),
			}
			return nil, false, nil
		}
		if rec.DayCount >= t.cfg.MaxPerDay {
			denied = &entity.RateLimitedError{
				Reason:     "Too many OTP requests today",
				RetryAfter: retryAfterSeconds(rec.DayWindowStart.Add(dayWindow).Sub(now)),
			}
			return nil, false, nil
		}

		rec.LastRequestAt = now
		rec.HourCount++
		rec.DayCount++
		return repository.Keep(dayWindow), false, nil
	})
	if err != nil {
		return fmt.Errorf("failed to check throttle: %w", err)
	}
	if denied != nil {
		return denied
	}
	return nil
}
