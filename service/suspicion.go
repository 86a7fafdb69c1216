package service

import (
	"context"
	"fmt"
	"time"

	"toolx/config"
	"toolx/entity"
	"toolx/pkg/logger"
	"toolx/repository"
)

const (
	suspicionWindow = time.Minute
	// Scores outlive the counting window; an idle identity is forgotten after this long.
	suspicionRecordTTL = 24 * time.Hour
	emailChurnPenalty  = 3
)

// SuspicionDecision is the non-blocking outcome of Evaluate.
type SuspicionDecision struct {
	Suspicious bool
	Score      int
}

// SuspicionTracker scores request behavior per IP and per email and locks both when the
// score crosses the threshold.
type SuspicionTracker struct {
	store  repository.StateStore
	clock  Clock
	cfg    config.Suspicion
	logger *logger.Logger
}

// NewSuspicionTracker creates a suspicion tracker.
func NewSuspicionTracker(store repository.StateStore, clock Clock, cfg config.Suspicion, logger *logger.Logger) *SuspicionTracker {
	return &SuspicionTracker{store: store, clock: clock, cfg: cfg, logger: logger}
}

func ipStatsKey(ip string) string       { return "susp:ip:" + ip }
func emailStatsKey(email string) string { return "susp:email:" + email }
func ipLockKey(ip string) string        { return "lock:ip:" + ip }
func emailLockKey(email string) string  { return "lock:email:" + email }

// Evaluate records one request from ip for email. It returns *entity.LockedError when either
// side is locked or becomes locked by this request.
func (t *SuspicionTracker) Evaluate(ctx context.Context, ip, email string, invalidDomain bool) (SuspicionDecision, error) {
	now := t.clock.Now()

	ipScore, err := t.bump(ctx, ipStatsKey(ip), now, func(rec *entity.SuspicionRecord) {
		rec.AddEmail(email)
		if len(rec.Emails) >= t.cfg.EmailsPerMinuteThreshold {
			rec.Score += emailChurnPenalty
		}
		if invalidDomain {
			rec.Score += t.cfg.InvalidDomainPenalty
		}
	})
	if err != nil {
		return SuspicionDecision{}, err
	}

	emailScore := 0
	if email != "" {
		emailScore, err = t.bump(ctx, emailStatsKey(email), now, func(rec *entity.SuspicionRecord) {
			if invalidDomain {
				rec.Score += t.cfg.InvalidDomainPenalty
			}
		})
		if err != nil {
			return SuspicionDecision{}, err
		}
	}

	unlockAt, err := t.activeLock(ctx, ip, email, now)
	if err != nil {
		return SuspicionDecision{}, err
	}
	if unlockAt.After(now) {
		return SuspicionDecision{}, &entity.LockedError{RetryAfter: retryAfterSeconds(unlockAt.Sub(now))}
	}

	score := max(ipScore, emailScore)
	if score >= t.cfg.LockThreshold {
		unlockAt = now.Add(t.cfg.LockDuration)
		if err := t.lock(ctx, ip, email, unlockAt); err != nil {
			return SuspicionDecision{}, err
		}
		t.logger.Warnw("Locking IP and email after suspicious activity",
			"ip", ip, "email", email, "score", score, "unlock_at", unlockAt)
		return SuspicionDecision{Score: score}, &entity.LockedError{RetryAfter: retryAfterSeconds(unlockAt.Sub(now))}
	}

	return SuspicionDecision{
		Suspicious: score >= t.cfg.SuspiciousScore,
		Score:      score,
	}, nil
}

// bump rolls the counting window, counts the request, applies penalties and returns the score.
func (t *SuspicionTracker) bump(ctx context.Context, key string, now time.Time, penalize func(rec *entity.SuspicionRecord)) (int, error) {
	score := 0
	err := repository.UpdateJSON(ctx, t.store, key, func(rec *entity.SuspicionRecord, found bool) (*time.Duration, bool, error) {
		if !found || now.Sub(rec.WindowStart) >= suspicionWindow {
			rec.WindowStart = now
			rec.Count = 0
			rec.Emails = nil
		}
		rec.Count++
		penalize(rec)
		score = rec.Score
		return repository.Keep(suspicionRecordTTL), false, nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to update suspicion record: %w", err)
	}
	return score, nil
}

// activeLock returns the later unlock time of the ip and email locks (zero when none).
func (t *SuspicionTracker) activeLock(ctx context.Context, ip, email string, now time.Time) (time.Time, error) {
	keys := []string{ipLockKey(ip)}
	if email != "" {
		keys = append(keys, emailLockKey(email))
	}

	var until time.Time
	for _, key := range keys {
		var lock entity.LockRecord
		found, err := repository.GetJSON(ctx, t.store, key, &lock)
		if err != nil {
			return time.Time{}, fmt.Errorf("failed to read lock: %w", err)
		}
		if found && lock.UnlockAt.After(now) && lock.UnlockAt.After(until) {
			until = lock.UnlockAt
		}
	}
	return until, nil
}

// lock blocks both ip and email and restarts their scoring, so tracking begins again from
// zero once the lock runs out.
func (t *SuspicionTracker) lock(ctx context.Context, ip, email string, unlockAt time.Time) error {
	setLock := func(key string) error {
		return repository.UpdateJSON(ctx, t.store, key, func(rec *entity.LockRecord, _ bool) (*time.Duration, bool, error) {
			rec.UnlockAt = unlockAt
			return repository.Keep(t.cfg.LockDuration), false, nil
		})
	}
	resetScore := func(key string) error {
		return repository.UpdateJSON(ctx, t.store, key, func(rec *entity.SuspicionRecord, found bool) (*time.Duration, bool, error) {
			if !found {
				return nil, false, nil
			}
			rec.Score = 0
			return repository.Keep(suspicionRecordTTL), false, nil
		})
	}

	if err := setLock(ipLockKey(ip)); err != nil {
		return fmt.Errorf("failed to lock ip: %w", err)
	}
	if err := resetScore(ipStatsKey(ip)); err != nil {
		return fmt.Errorf("failed to reset ip score: %w", err)
	}
	if email == "" {
		return nil
	}
	if err := setLock(emailLockKey(email)); err != nil {
		return fmt.Errorf("failed to lock email: %w", err)
	}
	if err := resetScore(emailStatsKey(email)); err != nil {
		return fmt.Errorf("failed to reset email score: %w", err)
	}
	return nil
}
