package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "HTTP_SERVER_PORT", "DATABASE_HOST", "REDIS_HOST", "CAPTCHA_ENABLED", "TRUSTED_PROXIES"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTPServer.Port)
	assert.Equal(t, 100, cfg.HTTPServer.GlobalRequestsPerMinute)
	assert.False(t, cfg.Database.Enabled)
	assert.False(t, cfg.Redis.Enabled)

	assert.Equal(t, 6, cfg.OTP.Length)
	assert.Equal(t, 5*time.Minute, cfg.OTP.ExpirationTime)
	assert.True(t, cfg.OTP.ReuseEnabled)
	assert.Zero(t, cfg.OTP.VerifyMaxAttempts)
	assert.False(t, cfg.OTP.TestEndpoints)

	assert.Equal(t, 30*time.Second, cfg.Throttle.MinInterval)
	assert.Equal(t, 5, cfg.Throttle.MaxPerHour)
	assert.Equal(t, 20, cfg.Throttle.MaxPerDay)

	assert.Equal(t, 3, cfg.RouteLimit.MaxRequests)
	assert.Equal(t, 5*time.Minute, cfg.RouteLimit.WindowDuration)

	assert.Equal(t, 5, cfg.Suspicion.EmailsPerMinuteThreshold)
	assert.Equal(t, 2, cfg.Suspicion.InvalidDomainPenalty)
	assert.Equal(t, 3, cfg.Suspicion.SuspiciousScore)
	assert.Equal(t, 10, cfg.Suspicion.LockThreshold)
	assert.Equal(t, 15*time.Minute, cfg.Suspicion.LockDuration)

	assert.False(t, cfg.Captcha.Enabled)
	assert.Equal(t, "recaptcha_v3", cfg.Captcha.Provider)
	assert.Equal(t, 0.5, cfg.Captcha.MinScore)

	assert.Equal(t, "demo", cfg.Subscriptions.Source)
	assert.False(t, cfg.Subscriptions.AuthRequired)
	assert.False(t, cfg.LimitsDisabled)
	assert.Empty(t, cfg.HTTPServer.TrustedProxies)
}

func TestParseTrustedProxy(t *testing.T) {
	ipNet, err := ParseTrustedProxy("192.0.2.10")
	require.NoError(t, err)
	assert.Equal(t, "192.0.2.10/32", ipNet.String())

	ipNet, err = ParseTrustedProxy("2001:db8::1")
	require.NoError(t, err)
	assert.Equal(t, "2001:db8::1/128", ipNet.String())

	ipNet, err = ParseTrustedProxy("10.1.2.3/8")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.0/8", ipNet.String())

	_, err = ParseTrustedProxy("proxy.internal")
	assert.Error(t, err)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "3000")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com,")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("OTP_MIN_INTERVAL_SEC", "10")
	t.Setenv("LOCK_MINUTES", "30")
	t.Setenv("EMAIL_DENY_DOMAINS", " Spam.example , junk.example")
	t.Setenv("SMTP_USER", "mailer@example.com")
	t.Setenv("SMTP_PASS", "abcd efgh ijkl mnop")
	t.Setenv("ENABLE_AUTH", "true")
	t.Setenv("CAPTCHA_ENABLED", "true")
	t.Setenv("CAPTCHA_PROVIDER", "hcaptcha")
	t.Setenv("OTP_LENGTH", "not-a-number")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8,192.0.2.10")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.HTTPServer.Port)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.HTTPServer.AllowedOrigins)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "cache", cfg.Redis.Host)
	assert.Equal(t, 10*time.Second, cfg.Throttle.MinInterval)
	assert.Equal(t, 30*time.Minute, cfg.Suspicion.LockDuration)
	assert.Equal(t, []string{"spam.example", "junk.example"}, cfg.EmailDomains.Deny)
	assert.Equal(t, "abcdefghijklmnop", cfg.SMTP.Password, "app passwords are pasted with spaces")
	assert.Equal(t, "mailer@example.com", cfg.SMTP.From)
	assert.True(t, cfg.Subscriptions.AuthRequired)
	assert.Equal(t, "hcaptcha", cfg.Captcha.Provider)
	assert.Equal(t, 6, cfg.OTP.Length, "unparsable values fall back to the default")
	assert.Equal(t, []string{"10.0.0.0/8", "192.0.2.10"}, cfg.HTTPServer.TrustedProxies)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			OTP:           OTP{Length: 6, ExpirationTime: time.Minute},
			Subscriptions: Subscriptions{Source: "demo"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "short otp", mutate: func(cfg *Config) { cfg.OTP.Length = 3 }, wantErr: "OTP_LENGTH"},
		{name: "long otp", mutate: func(cfg *Config) { cfg.OTP.Length = 11 }, wantErr: "OTP_LENGTH"},
		{name: "zero ttl", mutate: func(cfg *Config) { cfg.OTP.ExpirationTime = 0 }, wantErr: "OTP_EXPIRATION_TIME"},
		{
			name: "unknown captcha provider",
			mutate: func(cfg *Config) {
				cfg.Captcha.Enabled = true
				cfg.Captcha.Provider = "turnstile"
			},
			wantErr: "CAPTCHA_PROVIDER",
		},
		{
			name:   "unknown provider ignored while captcha is off",
			mutate: func(cfg *Config) { cfg.Captcha.Provider = "turnstile" },
		},
		{
			name:    "postgres without database",
			mutate:  func(cfg *Config) { cfg.Subscriptions.Source = "postgres" },
			wantErr: "DATABASE_HOST",
		},
		{
			name: "postgres with database",
			mutate: func(cfg *Config) {
				cfg.Subscriptions.Source = "postgres"
				cfg.Database.Enabled = true
			},
		},
		{
			name:   "trusted proxies",
			mutate: func(cfg *Config) { cfg.HTTPServer.TrustedProxies = []string{"10.0.0.0/8", "192.0.2.10", "2001:db8::/32"} },
		},
		{
			name:    "bad trusted proxy",
			mutate:  func(cfg *Config) { cfg.HTTPServer.TrustedProxies = []string{"10.0.0.0/33"} },
			wantErr: "TRUSTED_PROXIES",
		},
		{name: "unknown source", mutate: func(cfg *Config) { cfg.Subscriptions.Source = "csv" }, wantErr: "SUBSCRIPTIONS_SOURCE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
