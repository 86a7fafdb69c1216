package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"toolx/entity"
	"toolx/pkg/logger"
	"toolx/repository"
	"toolx/validator"
)

// OTPSender delivers a code to an email address.
type OTPSender interface {
	SendOTP(ctx context.Context, email, code string) error
}

// CodeObserver is told about every issued code. Production wiring leaves it nil; tests and
// the optional test endpoint use a CodeRecorder.
type CodeObserver interface {
	CodeIssued(email, code string)
}

// CodeRecorder remembers the last code issued per email.
type CodeRecorder struct {
	mu    sync.RWMutex
	codes map[string]string
}

// NewCodeRecorder creates an empty recorder.
func NewCodeRecorder() *CodeRecorder {
	return &CodeRecorder{codes: make(map[string]string)}
}

func (r *CodeRecorder) CodeIssued(email, code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes[email] = code
}

// LastCode returns the last code issued for email.
func (r *CodeRecorder) LastCode(email string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	code, ok := r.codes[NormalizeEmail(email)]
	return code, ok
}

// OTPRequest is the input of the request-code pipeline.
type OTPRequest struct {
	Email        string
	CaptchaToken string
	ClientIP     string
}

// guardContext is threaded through the guard stages; each stage may read what earlier stages
// concluded.
type guardContext struct {
	email         string
	clientIP      string
	captchaToken  string
	invalidDomain bool
	suspicious    bool
}

type guardStage struct {
	name string
	run  func(ctx context.Context, gc *guardContext) error
}

// OTPService interface defines OTP business operations
type OTPService interface {
	RequestOTP(ctx context.Context, req OTPRequest) error
	VerifyOTP(ctx context.Context, email, code string) (*entity.AuthResponse, error)
}

// OTPServiceDeps groups the collaborators of the OTP service. Guards left nil are skipped;
// LimitsDisabled skips all of them.
type OTPServiceDeps struct {
	RouteLimiter  *WindowLimiter
	Domains       *validator.EmailDomainValidator
	Suspicion     *SuspicionTracker
	Captcha       *CaptchaGuard
	Throttle      *Throttle
	VerifyLimiter *WindowLimiter

	Store    *OTPStore
	Sender   OTPSender
	Tokens   JWTService
	Users    repository.UserRepository
	Observer CodeObserver

	CodeLength            int
	DeliveryTimeout       time.Duration
	PenalizeInvalidDomain bool
	LimitsDisabled        bool
}

// otpService implements OTPService interface
type otpService struct {
	deps   OTPServiceDeps
	stages []guardStage
	logger *logger.Logger
}

// NewOTPService creates a new OTP service instance
func NewOTPService(deps OTPServiceDeps, logger *logger.Logger) OTPService {
	s := &otpService{deps: deps, logger: logger}
	if !deps.LimitsDisabled {
		s.stages = s.buildStages()
	} else {
		logger.Warnw("OTP request guards are disabled")
	}
	return s
}

// buildStages fixes the guard order: route limit, email domain, suspicion, captcha, throttle.
func (s *otpService) buildStages() []guardStage {
	var stages []guardStage

	if s.deps.RouteLimiter != nil {
		stages = append(stages, guardStage{"route_limit", func(ctx context.Context, gc *guardContext) error {
			return s.deps.RouteLimiter.Allow(ctx, RouteLimitKey(gc.email, gc.clientIP))
		}})
	}
	if s.deps.Domains != nil {
		stages = append(stages, guardStage{"email_domain", s.checkDomain})
	}
	if s.deps.Suspicion != nil {
		stages = append(stages, guardStage{"suspicion", func(ctx context.Context, gc *guardContext) error {
			decision, err := s.deps.Suspicion.Evaluate(ctx, gc.clientIP, gc.email, gc.invalidDomain)
			gc.suspicious = decision.Suspicious
			return err
		}})
	}
	if s.deps.Captcha != nil {
		stages = append(stages, guardStage{"captcha", func(ctx context.Context, gc *guardContext) error {
			return s.deps.Captcha.Check(ctx, gc.suspicious, gc.captchaToken, gc.clientIP)
		}})
	}
	if s.deps.Throttle != nil {
		stages = append(stages, guardStage{"throttle", func(ctx context.Context, gc *guardContext) error {
			return s.deps.Throttle.Check(ctx, identityKey(gc.email, gc.clientIP))
		}})
	}

	return stages
}

// checkDomain rejects bad emails. With PenalizeInvalidDomain the rejection is also reported to
// the suspicion tracker before the request ends.
func (s *otpService) checkDomain(ctx context.Context, gc *guardContext) error {
	err := s.deps.Domains.Validate(gc.email)
	if err == nil {
		return nil
	}

	gc.invalidDomain = true
	if s.deps.PenalizeInvalidDomain && s.deps.Suspicion != nil && gc.email != "" {
		if _, serr := s.deps.Suspicion.Evaluate(ctx, gc.clientIP, gc.email, true); serr != nil {
			var locked *entity.LockedError
			if !errors.As(serr, &locked) {
				s.logger.Errorw("Failed to record invalid domain", "email", gc.email, "error", serr)
			}
		}
	}
	return err
}

// RequestOTP runs the guard pipeline and, if every guard passes, issues and delivers a code.
// The first rejecting guard ends the request with its error.
func (s *otpService) RequestOTP(ctx context.Context, req OTPRequest) error {
	gc := &guardContext{
		email:        NormalizeEmail(req.Email),
		clientIP:     req.ClientIP,
		captchaToken: strings.TrimSpace(req.CaptchaToken),
	}

	for _, stage := range s.stages {
		if err := stage.run(ctx, gc); err != nil {
			s.logger.Warnw("OTP request rejected", "stage", stage.name, "email", gc.email, "ip", gc.clientIP, "error", err)
			return err
		}
	}

	if gc.email == "" {
		return &entity.ValidationError{Reason: "Email is required"}
	}

	code, err := generateOTPCode(s.deps.CodeLength)
	if err != nil {
		return fmt.Errorf("failed to generate OTP code: %w", err)
	}

	if err := s.deps.Store.Set(ctx, gc.email, code); err != nil {
		return err
	}
	if s.deps.Observer != nil {
		s.deps.Observer.CodeIssued(gc.email, code)
	}

	sendCtx := ctx
	if s.deps.DeliveryTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, s.deps.DeliveryTimeout)
		defer cancel()
	}

	// The code stays valid even when delivery fails; the throttle budget is already spent.
	if err := s.deps.Sender.SendOTP(sendCtx, gc.email, code); err != nil {
		s.logger.Errorw("Failed to deliver OTP", "email", gc.email, "error", err)
		return &entity.DeliveryFailedError{Err: err}
	}

	s.logger.Infow("OTP issued", "email", gc.email, "ip", gc.clientIP)
	return nil
}

// VerifyOTP checks code for email and issues a session token on success. Wrong and expired
// codes are both reported as entity.ErrInvalidOTP.
func (s *otpService) VerifyOTP(ctx context.Context, email, code string) (*entity.AuthResponse, error) {
	email = NormalizeEmail(email)
	if email == "" || code == "" {
		return nil, &entity.ValidationError{Reason: "Email and OTP are required"}
	}

	if s.deps.VerifyLimiter != nil {
		if err := s.deps.VerifyLimiter.Allow(ctx, email); err != nil {
			s.logger.Warnw("OTP verification throttled", "email", email, "error", err)
			return nil, err
		}
	}

	ok, err := s.deps.Store.Verify(ctx, email, code)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.logger.Warnw("Invalid or expired OTP", "email", email)
		return nil, entity.ErrInvalidOTP
	}

	auth, err := s.deps.Tokens.GenerateToken(ctx, email)
	if err != nil {
		return nil, err
	}

	if s.deps.Users != nil {
		s.recordLogin(ctx, email)
	}

	return auth, nil
}

// recordLogin creates the user on first login or bumps last_login_at. Failures only get logged.
func (s *otpService) recordLogin(ctx context.Context, email string) {
	user, err := s.deps.Users.GetByEmail(ctx, email)
	if err != nil {
		s.logger.Errorw("Failed to get user", "email", email, "error", err)
		return
	}

	if user == nil {
		user, err = s.deps.Users.Create(ctx, email)
		if err != nil {
			s.logger.Errorw("Failed to create user", "email", email, "error", err)
			return
		}
		s.logger.Infow("New user registered", "user_id", user.ID, "email", email)
		return
	}

	if err := s.deps.Users.UpdateLastLogin(ctx, email); err != nil {
		s.logger.Errorw("Failed to update last login", "email", email, "error", err)
	}
}

// NormalizeEmail trims and lowercases an email for use as an identity key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func identityKey(email, ip string) string {
	if email != "" {
		return email
	}
	return ip
}

// generateOTPCode returns a uniformly random numeric code of the given length.
func generateOTPCode(length int) (string, error) {
	maxValue := big.NewInt(1)
	for i := 0; i < length; i++ {
		maxValue.Mul(maxValue, big.NewInt(10))
	}

	randomNumber, err := rand.Int(rand.Reader, maxValue)
	if err != nil {
		return "", fmt.Errorf("failed to generate random number: %w", err)
	}

	return fmt.Sprintf("%0*d", length, randomNumber), nil
}
