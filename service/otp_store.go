package service

import (
	"context"
	"fmt"
	"time"

	"toolx/entity"
	"toolx/repository"
)

// OTPStore keeps one code per email with a fixed TTL.
type OTPStore struct {
	store     repository.StateStore
	clock     Clock
	ttl       time.Duration
	singleUse bool
}

// NewOTPStore creates an OTP store. With reuseEnabled=false a code is deleted by its first
// successful verification.
func NewOTPStore(store repository.StateStore, clock Clock, ttl time.Duration, reuseEnabled bool) *OTPStore {
	return &OTPStore{
		store:     store,
		clock:     clock,
		ttl:       ttl,
		singleUse: !reuseEnabled,
	}
}

func otpKey(email string) string {
	return "otp:" + email
}

// Set stores a fresh code for email, replacing any previous one.
func (s *OTPStore) Set(ctx context.Context, email, code string) error {
	now := s.clock.Now()
	record := entity.OTPRecord{
		Code:      code,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}

	err := repository.UpdateJSON(ctx, s.store, otpKey(email), func(rec *entity.OTPRecord, _ bool) (*time.Duration, bool, error) {
		*rec = record
		return repository.Keep(s.ttl), false, nil
	})
	if err != nil {
		return fmt.Errorf("failed to store OTP: %w", err)
	}
	return nil
}

// Verify reports whether code matches the active record for email. Mismatched or expired
// attempts leave the record as it is.
func (s *OTPStore) Verify(ctx context.Context, email, code string) (bool, error) {
	now := s.clock.Now()
	valid := false

	err := repository.UpdateJSON(ctx, s.store, otpKey(email), func(rec *entity.OTPRecord, found bool) (*time.Duration, bool, error) {
		valid = found && rec.Code == code && rec.ActiveAt(now)
		if valid && s.singleUse {
			return nil, true, nil
		}
		return nil, false, nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to verify OTP: %w", err)
	}
	return valid, nil
}
