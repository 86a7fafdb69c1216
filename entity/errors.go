package entity

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidOTP is returned for wrong and expired codes alike.
	ErrInvalidOTP = errors.New("invalid or expired OTP")
	// ErrChallengeFailed means the submitted captcha token did not verify.
	ErrChallengeFailed = errors.New("captcha verification failed")
	// ErrUnauthorized is returned when a bearer token is missing or invalid.
	ErrUnauthorized = errors.New("unauthorized")
)

// ValidationError reports malformed input.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// RateLimitedError reports a throttled request. RetryAfter is in seconds.
type RateLimitedError struct {
	Reason     string
	RetryAfter int
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited: %s (retry after %ds)", e.Reason, e.RetryAfter)
}

// LockedError reports a temporary lock set by suspicion tracking.
type LockedError struct {
	RetryAfter int
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("temporarily locked (retry after %ds)", e.RetryAfter)
}

// ChallengeRequiredError asks the client to solve a captcha and resubmit.
type ChallengeRequiredError struct {
	Provider string
	SiteKey  string
}

func (e *ChallengeRequiredError) Error() string {
	return "captcha required"
}

// DeliveryFailedError wraps a delivery failure that happened after the code was stored.
type DeliveryFailedError struct {
	Err error
}

func (e *DeliveryFailedError) Error() string {
	return fmt.Sprintf("failed to deliver OTP: %v", e.Err)
}

func (e *DeliveryFailedError) Unwrap() error {
	return e.Err
}
