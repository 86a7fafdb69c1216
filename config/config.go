package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Application struct {
	GracefulShutdownTimeout time.Duration
}

type HTTPServer struct {
	Port           int
	AllowedOrigins []string
	// Global per-IP budget applied to every route.
	GlobalRequestsPerMinute int
	// TrustedProxies lists CIDRs whose X-Forwarded-For is believed. Empty means the
	// socket peer address is the client IP.
	TrustedProxies []string
}

type Database struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

type Redis struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type Logger struct {
	Level string
	Mode  string // development or production
}

type Swagger struct {
	Enabled bool `json:"enabled"`
}

type JWT struct {
	Secret         string
	ExpirationTime time.Duration
}

type OTP struct {
	Length          int
	ExpirationTime  time.Duration
	ReuseEnabled    bool
	DeliveryTimeout time.Duration
	// VerifyMaxAttempts caps verify attempts per email within one OTP lifetime. Zero disables the cap.
	VerifyMaxAttempts int
	TestEndpoints     bool
}

// Throttle configures the per-identity minimum interval / hourly / daily limiter.
type Throttle struct {
	MinInterval time.Duration
	MaxPerHour  int
	MaxPerDay   int
}

// RouteLimit configures the fixed-window limiter that runs first on the request-code route.
type RouteLimit struct {
	MaxRequests    int
	WindowDuration time.Duration
}

type Suspicion struct {
	EmailsPerMinuteThreshold int
	InvalidDomainPenalty     int
	SuspiciousScore          int
	LockThreshold            int
	LockDuration             time.Duration
	PenalizeInvalidDomain    bool
}

type Captcha struct {
	Enabled  bool
	AlwaysOn bool
	Provider string
	SiteKey  string
	Secret   string
	MinScore float64
	Timeout  time.Duration
	// VerifyURL overrides the provider's default verification endpoint.
	VerifyURL string
}

type EmailDomains struct {
	Allow []string
	Deny  []string
}

type SMTP struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

type Alerts struct {
	Enabled  bool
	CronSpec string
	Timezone string
	CC       string
}

type Bot struct {
	SendURL string
	ChatID  string
	Timeout time.Duration
}

type LinkPreview struct {
	Timeout  time.Duration
	MaxBytes int64
	// AllowPrivate lets previews reach loopback and private addresses (local development).
	AllowPrivate bool
}

type Subscriptions struct {
	Source       string // demo or postgres
	DemoFile     string
	AuthRequired bool
}

type Config struct {
	Application   Application
	HTTPServer    HTTPServer
	Database      Database
	Redis         Redis
	Logger        Logger
	Swagger       Swagger
	JWT           JWT
	OTP           OTP
	Throttle      Throttle
	RouteLimit    RouteLimit
	Suspicion     Suspicion
	Captcha       Captcha
	EmailDomains  EmailDomains
	SMTP          SMTP
	Alerts        Alerts
	Bot           Bot
	Subscriptions Subscriptions
	LinkPreview   LinkPreview
	// LimitsDisabled turns off every guard on the request-code route (dev/testing only).
	LimitsDisabled bool
}

// Load reads configuration from the environment, after loading a .env file if one exists.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{
		Application: Application{
			GracefulShutdownTimeout: parseDurationWithDefault("APPLICATION_GRACEFUL_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		HTTPServer: HTTPServer{
			Port:                    parseIntWithDefault("HTTP_SERVER_PORT", 8080),
			AllowedOrigins:          parseList("ALLOWED_ORIGINS", false),
			GlobalRequestsPerMinute: parseIntWithDefault("HTTP_GLOBAL_REQUESTS_PER_MINUTE", 100),
			TrustedProxies:          parseList("TRUSTED_PROXIES", false),
		},
		Database: Database{
			Enabled:  os.Getenv("DATABASE_HOST") != "",
			Host:     getEnvWithDefault("DATABASE_HOST", "db"),
			Port:     parseIntWithDefault("DATABASE_PORT", 5432),
			User:     getEnvWithDefault("DATABASE_USER", "toolx"),
			Password: getEnvWithDefault("DATABASE_PASSWORD", "toolx"),
			Name:     getEnvWithDefault("DATABASE_NAME", "toolx"),
			SSLMode:  getEnvWithDefault("DATABASE_SSL_MODE", "disable"),
		},
		Logger: Logger{
			Level: getEnvWithDefault("LOGGER_LEVEL", "info"),
			Mode:  getEnvWithDefault("LOGGER_MODE", "production"),
		},
		Swagger: Swagger{
			Enabled: getEnvBoolWithDefault("SWAGGER_ENABLED", true),
		},
		JWT: JWT{
			Secret:         getEnvWithDefault("JWT_SECRET", "dev-secret-key-change-me"),
			ExpirationTime: parseDurationWithDefault("JWT_EXPIRATION_TIME", 7*24*time.Hour),
		},
		OTP: OTP{
			Length:            parseIntWithDefault("OTP_LENGTH", 6),
			ExpirationTime:    parseDurationWithDefault("OTP_EXPIRATION_TIME", 5*time.Minute),
			ReuseEnabled:      getEnvBoolWithDefault("OTP_REUSE_ENABLED", true),
			DeliveryTimeout:   parseDurationWithDefault("OTP_DELIVERY_TIMEOUT", 10*time.Second),
			VerifyMaxAttempts: parseIntWithDefault("OTP_VERIFY_MAX_ATTEMPTS", 0),
			TestEndpoints:     getEnvBoolWithDefault("OTP_TEST_ENDPOINTS", false),
		},
		Redis: Redis{
			Enabled:  os.Getenv("REDIS_HOST") != "",
			Host:     getEnvWithDefault("REDIS_HOST", "redis"),
			Port:     parseIntWithDefault("REDIS_PORT", 6379),
			Password: getEnvWithDefault("REDIS_PASSWORD", ""),
			DB:       parseIntWithDefault("REDIS_DB", 0),
		},
		Throttle: Throttle{
			MinInterval: time.Duration(parseIntWithDefault("OTP_MIN_INTERVAL_SEC", 30)) * time.Second,
			MaxPerHour:  parseIntWithDefault("OTP_MAX_PER_HOUR", 5),
			MaxPerDay:   parseIntWithDefault("OTP_MAX_PER_DAY", 20),
		},
		RouteLimit: RouteLimit{
			MaxRequests:    parseIntWithDefault("OTP_ROUTE_MAX_REQUESTS", 3),
			WindowDuration: parseDurationWithDefault("OTP_ROUTE_WINDOW", 5*time.Minute),
		},
		Suspicion: Suspicion{
			EmailsPerMinuteThreshold: parseIntWithDefault("SUSPICIOUS_IP_EMAILS_PER_MIN", 5),
			InvalidDomainPenalty:     parseIntWithDefault("SUSPICIOUS_INVALID_DOMAIN_PENALTY", 2),
			SuspiciousScore:          parseIntWithDefault("SUSPICIOUS_SCORE", 3),
			LockThreshold:            parseIntWithDefault("LOCK_THRESHOLD", 10),
			LockDuration:             time.Duration(parseIntWithDefault("LOCK_MINUTES", 15)) * time.Minute,
			PenalizeInvalidDomain:    getEnvBoolWithDefault("SUSPICIOUS_PENALIZE_INVALID_DOMAIN", false),
		},
		Captcha: Captcha{
			Enabled:   getEnvBoolWithDefault("CAPTCHA_ENABLED", false),
			AlwaysOn:  getEnvBoolWithDefault("CAPTCHA_ALWAYS_ON", false),
			Provider:  getEnvWithDefault("CAPTCHA_PROVIDER", "recaptcha_v3"),
			SiteKey:   getEnvWithDefault("CAPTCHA_SITE_KEY", ""),
			Secret:    getEnvWithDefault("CAPTCHA_SECRET", ""),
			MinScore:  parseFloatWithDefault("CAPTCHA_MIN_SCORE", 0.5),
			Timeout:   parseDurationWithDefault("CAPTCHA_TIMEOUT", 5*time.Second),
			VerifyURL: getEnvWithDefault("CAPTCHA_VERIFY_URL", ""),
		},
		EmailDomains: EmailDomains{
			Allow: parseList("EMAIL_ALLOW_DOMAINS", true),
			Deny:  parseList("EMAIL_DENY_DOMAINS", true),
		},
		SMTP: SMTP{
			Host:     getEnvWithDefault("SMTP_HOST", "smtp.gmail.com"),
			Port:     parseIntWithDefault("SMTP_PORT", 465),
			User:     getEnvWithDefault("SMTP_USER", ""),
			Password: strings.Join(strings.Fields(os.Getenv("SMTP_PASS")), ""),
		},
		Alerts: Alerts{
			Enabled:  getEnvBoolWithDefault("ALERT_ENABLED", false),
			CronSpec: getEnvWithDefault("ALERT_CRON_SPEC", "0 21 * * *"),
			Timezone: getEnvWithDefault("ALERT_CRON_TZ", getEnvWithDefault("TZ", "Asia/Ho_Chi_Minh")),
			CC:       getEnvWithDefault("ALERT_CC", ""),
		},
		Bot: Bot{
			SendURL: getEnvWithDefault("ZALO_BOT_SEND_URL", ""),
			ChatID:  getEnvWithDefault("ZALO_BOT_CHAT_ID", ""),
			Timeout: parseDurationWithDefault("ZALO_BOT_TIMEOUT", 10*time.Second),
		},
		Subscriptions: Subscriptions{
			Source:       getEnvWithDefault("SUBSCRIPTIONS_SOURCE", "demo"),
			DemoFile:     getEnvWithDefault("SUBSCRIPTIONS_DEMO_FILE", "data/demo-subscriptions.json"),
			AuthRequired: getEnvBoolWithDefault("ENABLE_AUTH", false),
		},
		LinkPreview: LinkPreview{
			Timeout:      parseDurationWithDefault("LINK_PREVIEW_TIMEOUT", 8*time.Second),
			MaxBytes:     int64(parseIntWithDefault("LINK_PREVIEW_MAX_BYTES", 1<<20)),
			AllowPrivate: getEnvBoolWithDefault("LINK_PREVIEW_ALLOW_PRIVATE", false),
		},
		LimitsDisabled: getEnvBoolWithDefault("LIMITS_DISABLED", false),
	}
	cfg.SMTP.From = getEnvWithDefault("SMTP_FROM", cfg.SMTP.User)

	// PORT is what most hosting platforms inject
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.HTTPServer.Port = p
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects combinations the service cannot run with.
func (c *Config) Validate() error {
	if c.OTP.Length < 4 || c.OTP.Length > 10 {
		return fmt.Errorf("OTP_LENGTH must be between 4 and 10, got %d", c.OTP.Length)
	}
	if c.OTP.ExpirationTime <= 0 {
		return fmt.Errorf("OTP_EXPIRATION_TIME must be positive")
	}
	for _, proxy := range c.HTTPServer.TrustedProxies {
		if _, err := ParseTrustedProxy(proxy); err != nil {
			return err
		}
	}
	if c.Captcha.Enabled {
		switch c.Captcha.Provider {
		case "recaptcha_v3", "hcaptcha":
		default:
			return fmt.Errorf("unsupported CAPTCHA_PROVIDER %q", c.Captcha.Provider)
		}
	}
	switch c.Subscriptions.Source {
	case "demo":
	case "postgres":
		if !c.Database.Enabled {
			return fmt.Errorf("SUBSCRIPTIONS_SOURCE=postgres requires DATABASE_HOST")
		}
	default:
		return fmt.Errorf("unsupported SUBSCRIPTIONS_SOURCE %q", c.Subscriptions.Source)
	}
	return nil
}

// ParseTrustedProxy accepts a CIDR or a bare IP, which is treated as a single-host range.
func ParseTrustedProxy(value string) (*net.IPNet, error) {
	if !strings.Contains(value, "/") {
		ip := net.ParseIP(value)
		if ip == nil {
			return nil, fmt.Errorf("invalid TRUSTED_PROXIES entry %q", value)
		}
		bits := 128
		if ip.To4() != nil {
			ip = ip.To4()
			bits = 32
		}
		return &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)}, nil
	}

	_, ipNet, err := net.ParseCIDR(value)
	if err != nil {
		return nil, fmt.Errorf("invalid TRUSTED_PROXIES entry %q", value)
	}
	return ipNet, nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func parseFloatWithDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func parseDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBoolWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// parseList splits a comma separated variable, dropping empty items.
func parseList(key string, lower bool) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}

	var out []string
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if lower {
			item = strings.ToLower(item)
		}
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
