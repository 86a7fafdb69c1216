package entity

import (
	"time"
)

// OTPRecord is the code currently issued for one email. A new request overwrites it.
type OTPRecord struct {
	Code      string    `json:"code"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ActiveAt reports whether the record is still usable at now.
func (r OTPRecord) ActiveAt(now time.Time) bool {
	return now.Before(r.ExpiresAt)
}

// RequestOTPRequest represents the request to send an OTP code
type RequestOTPRequest struct {
	Email        string `json:"email"`
	CaptchaToken string `json:"captchaToken,omitempty"`
}

// VerifyOTPRequest represents the request to verify an OTP code
type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required"`
	OTP   string `json:"otp" validate:"required"`
}

// RequestOTPResponse represents a successful request-code call
type RequestOTPResponse struct {
	OK bool `json:"ok" example:"true"`
}

// AuthResponse represents the verify-code response with the session token
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TestOTPResponse is returned by the test-only code lookup endpoint
type TestOTPResponse struct {
	OTP *string `json:"otp"`
}
