package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"toolx/config"
	"toolx/entity"
	"toolx/pkg/logger"
	"toolx/repository"
	"toolx/test"
	"toolx/validator"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type otpFixture struct {
	clock    *test.FakeClock
	store    *repository.MemoryStateStore
	sender   *test.StubSender
	recorder *CodeRecorder
	service  OTPService
}

func newOTPFixture(t *testing.T, mutate func(deps *OTPServiceDeps)) *otpFixture {
	t.Helper()

	clock := test.NewFakeClock()
	store := test.NewMemoryStore(clock)
	sender := &test.StubSender{}
	recorder := NewCodeRecorder()
	log := logger.NewNop()

	deps := OTPServiceDeps{
		RouteLimiter: NewWindowLimiter(store, clock, "otp_route", 3, 5*time.Minute),
		Domains:      validator.NewEmailDomainValidator(nil, nil),
		Suspicion:    NewSuspicionTracker(store, clock, testSuspicionConfig, log),
		Captcha:      NewCaptchaGuard(config.Captcha{}, nil, log),
		Throttle: NewThrottle(store, clock, config.Throttle{
			MinInterval: 30 * time.Second,
			MaxPerHour:  5,
			MaxPerDay:   20,
		}),
		Store:           NewOTPStore(store, clock, 5*time.Minute, true),
		Sender:          sender,
		Tokens:          NewJWTService(config.JWT{Secret: "test-secret", ExpirationTime: time.Hour}, clock, log, nil),
		Observer:        recorder,
		CodeLength:      6,
		DeliveryTimeout: time.Second,
	}
	if mutate != nil {
		mutate(&deps)
	}

	return &otpFixture{
		clock:    clock,
		store:    store,
		sender:   sender,
		recorder: recorder,
		service:  NewOTPService(deps, log),
	}
}

func (f *otpFixture) request(email, ip string) error {
	return f.service.RequestOTP(context.Background(), OTPRequest{Email: email, ClientIP: ip})
}

func TestOTPService_RequestAndVerify(t *testing.T) {
	f := newOTPFixture(t, nil)

	require.NoError(t, f.request("  User@Example.com ", "203.0.113.1"))
	require.Equal(t, 1, f.sender.Count())
	assert.Equal(t, "user@example.com", f.sender.Sent[0].Email)
	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), f.sender.Sent[0].Code)

	code, ok := f.recorder.LastCode("USER@example.com")
	require.True(t, ok)
	assert.Equal(t, f.sender.Sent[0].Code, code)

	auth, err := f.service.VerifyOTP(context.Background(), "user@example.com", code)
	require.NoError(t, err)
	assert.NotEmpty(t, auth.Token)

	_, err = f.service.VerifyOTP(context.Background(), "user@example.com", "not-the-code")
	assert.ErrorIs(t, err, entity.ErrInvalidOTP)
}

func TestOTPService_VerifyMissingFields(t *testing.T) {
	f := newOTPFixture(t, nil)

	_, err := f.service.VerifyOTP(context.Background(), " ", "123456")
	var validationErr *entity.ValidationError
	assert.True(t, errors.As(err, &validationErr))

	_, err = f.service.VerifyOTP(context.Background(), "user@example.com", "")
	assert.True(t, errors.As(err, &validationErr))
}

func TestOTPService_SingleUseCode(t *testing.T) {
	f := newOTPFixture(t, func(deps *OTPServiceDeps) {
		deps.Store = NewOTPStore(deps.Store.store, deps.Store.clock, 5*time.Minute, false)
	})

	require.NoError(t, f.request("user@example.com", "203.0.113.1"))
	code, _ := f.recorder.LastCode("user@example.com")

	_, err := f.service.VerifyOTP(context.Background(), "user@example.com", code)
	require.NoError(t, err)

	_, err = f.service.VerifyOTP(context.Background(), "user@example.com", code)
	assert.ErrorIs(t, err, entity.ErrInvalidOTP)
}

func TestOTPService_ExpiredCode(t *testing.T) {
	f := newOTPFixture(t, nil)

	require.NoError(t, f.request("user@example.com", "203.0.113.1"))
	code, _ := f.recorder.LastCode("user@example.com")

	f.clock.Advance(5 * time.Minute)
	_, err := f.service.VerifyOTP(context.Background(), "user@example.com", code)
	assert.ErrorIs(t, err, entity.ErrInvalidOTP)
}

func TestOTPService_RouteLimiterRejectsFourthRequest(t *testing.T) {
	f := newOTPFixture(t, nil)

	for i := 0; i < 3; i++ {
		require.NoError(t, f.request("user@example.com", "203.0.113.1"), "request %d", i+1)
		f.clock.Advance(31 * time.Second)
	}

	rateErr := requireRateLimited(t, f.request("user@example.com", "203.0.113.1"))
	assert.Equal(t, int((5*time.Minute - 3*31*time.Second).Seconds()), rateErr.RetryAfter)
	assert.Equal(t, 3, f.sender.Count())
}

func TestOTPService_ThrottleRejectsQuickRepeat(t *testing.T) {
	f := newOTPFixture(t, nil)

	require.NoError(t, f.request("user@example.com", "203.0.113.1"))
	rateErr := requireRateLimited(t, f.request("user@example.com", "203.0.113.1"))
	assert.Equal(t, 30, rateErr.RetryAfter)
}

func TestOTPService_DomainRejectedBeforeSuspicionAndThrottle(t *testing.T) {
	f := newOTPFixture(t, nil)

	err := f.request("user@mailinator.com", "203.0.113.1")
	var validationErr *entity.ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "Email domain is not supported", validationErr.Reason)

	// throttle was never reached, so a valid email from the same client is admitted
	assert.NoError(t, f.request("user@example.com", "203.0.113.1"))

	_, found, err := f.store.Get(context.Background(), "throttle:user@mailinator.com")
	require.NoError(t, err)
	assert.False(t, found)
	_, found, err = f.store.Get(context.Background(), "susp:email:user@mailinator.com")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestOTPService_PenalizeInvalidDomain(t *testing.T) {
	f := newOTPFixture(t, func(deps *OTPServiceDeps) {
		deps.PenalizeInvalidDomain = true
	})

	for i := 1; i <= 5; i++ {
		err := f.request(fmt.Sprintf("user%d@mailinator.com", i), "203.0.113.1")
		var validationErr *entity.ValidationError
		require.True(t, errors.As(err, &validationErr), "domain errors still win: %v", err)
	}

	// the fifth rejection pushed the IP over the lock threshold
	requireLocked(t, f.request("user@example.com", "203.0.113.1"))
}

func TestOTPService_CaptchaStageSeesSuspicion(t *testing.T) {
	f := newOTPFixture(t, func(deps *OTPServiceDeps) {
		cfg := config.Captcha{Enabled: true, Provider: ProviderHCaptcha, SiteKey: "site-key"}
		provider, err := NewCaptchaProvider(cfg)
		require.NoError(t, err)
		deps.Captcha = NewCaptchaGuard(cfg, provider, logger.NewNop())
	})

	for i := 1; i <= 4; i++ {
		require.NoError(t, f.request(fmt.Sprintf("user%d@example.com", i), "203.0.113.1"))
	}

	err := f.request("user5@example.com", "203.0.113.1")
	var challengeErr *entity.ChallengeRequiredError
	require.True(t, errors.As(err, &challengeErr), "got %v", err)
	assert.Equal(t, ProviderHCaptcha, challengeErr.Provider)
	assert.Equal(t, "site-key", challengeErr.SiteKey)
}

func TestOTPService_MissingEmailFallsBackToIP(t *testing.T) {
	f := newOTPFixture(t, nil)

	for i := 0; i < 3; i++ {
		err := f.request("", "203.0.113.1")
		var validationErr *entity.ValidationError
		require.True(t, errors.As(err, &validationErr))
		assert.Equal(t, "Email is required", validationErr.Reason)
	}

	requireRateLimited(t, f.request("", "203.0.113.1"))
}

func TestOTPService_DeliveryFailureKeepsCode(t *testing.T) {
	f := newOTPFixture(t, nil)
	f.sender.Err = errors.New("smtp down")

	err := f.request("user@example.com", "203.0.113.1")
	var deliveryErr *entity.DeliveryFailedError
	require.True(t, errors.As(err, &deliveryErr))

	code, ok := f.recorder.LastCode("user@example.com")
	require.True(t, ok)

	_, err = f.service.VerifyOTP(context.Background(), "user@example.com", code)
	assert.NoError(t, err, "the stored code stays valid")

	f.sender.Err = nil
	requireRateLimited(t, f.request("user@example.com", "203.0.113.1"))
}

func TestOTPService_LimitsDisabled(t *testing.T) {
	f := newOTPFixture(t, func(deps *OTPServiceDeps) {
		deps.LimitsDisabled = true
	})

	for i := 0; i < 10; i++ {
		require.NoError(t, f.request("user@example.com", "203.0.113.1"))
	}
	assert.Equal(t, 10, f.sender.Count())

	err := f.request("", "203.0.113.1")
	var validationErr *entity.ValidationError
	assert.True(t, errors.As(err, &validationErr))
}

func TestOTPService_VerifyLimiter(t *testing.T) {
	f := newOTPFixture(t, func(deps *OTPServiceDeps) {
		deps.VerifyLimiter = NewWindowLimiter(deps.Store.store, deps.Store.clock, "otp_verify", 3, 5*time.Minute)
	})

	require.NoError(t, f.request("user@example.com", "203.0.113.1"))
	code, _ := f.recorder.LastCode("user@example.com")

	for i := 0; i < 3; i++ {
		_, err := f.service.VerifyOTP(context.Background(), "user@example.com", "000000")
		assert.ErrorIs(t, err, entity.ErrInvalidOTP)
	}

	_, err := f.service.VerifyOTP(context.Background(), "user@example.com", code)
	requireRateLimited(t, err)
}

func TestGenerateOTPCode(t *testing.T) {
	for _, length := range []int{4, 6, 10} {
		code, err := generateOTPCode(length)
		require.NoError(t, err)
		assert.Len(t, code, length)
		assert.Regexp(t, regexp.MustCompile(`^\d+$`), code)
	}
}

type stubUsers struct {
	users      map[string]*entity.User
	created    []string
	lastLogins []string
	getErr     error
	nextID     int
}

func (s *stubUsers) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.users[email], nil
}

func (s *stubUsers) Create(_ context.Context, email string) (*entity.User, error) {
	s.nextID++
	user := &entity.User{ID: s.nextID, Email: email}
	s.users[email] = user
	s.created = append(s.created, email)
	return user, nil
}

func (s *stubUsers) UpdateLastLogin(_ context.Context, email string) error {
	s.lastLogins = append(s.lastLogins, email)
	return nil
}

func TestOTPService_RecordsLogins(t *testing.T) {
	users := &stubUsers{users: map[string]*entity.User{}}
	f := newOTPFixture(t, func(deps *OTPServiceDeps) {
		deps.Users = users
	})

	login := func() {
		t.Helper()
		require.NoError(t, f.request("user@example.com", "203.0.113.1"))
		code, _ := f.recorder.LastCode("user@example.com")
		_, err := f.service.VerifyOTP(context.Background(), "user@example.com", code)
		require.NoError(t, err)
		f.clock.Advance(time.Minute)
	}

	login()
	assert.Equal(t, []string{"user@example.com"}, users.created)
	assert.Empty(t, users.lastLogins)

	login()
	assert.Len(t, users.created, 1)
	assert.Equal(t, []string{"user@example.com"}, users.lastLogins)
}

func TestOTPService_UserStoreFailureDoesNotBlockLogin(t *testing.T) {
	users := &stubUsers{users: map[string]*entity.User{}, getErr: errors.New("connection refused")}
	f := newOTPFixture(t, func(deps *OTPServiceDeps) {
		deps.Users = users
	})

	require.NoError(t, f.request("user@example.com", "203.0.113.1"))
	code, _ := f.recorder.LastCode("user@example.com")

	auth, err := f.service.VerifyOTP(context.Background(), "user@example.com", code)
	require.NoError(t, err)
	assert.NotEmpty(t, auth.Token)
	assert.Empty(t, users.created)
}
