package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"toolx/config"
	"toolx/entity"
	"toolx/pkg/logger"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	ProviderRecaptchaV3 = "recaptcha_v3"
	ProviderHCaptcha    = "hcaptcha"

	recaptchaVerifyURL = "https://www.google.com/recaptcha/api/siteverify"
	hcaptchaVerifyURL  = "https://hcaptcha.com/siteverify"
)

// CaptchaResult is a provider's verdict. Score is nil for pass/fail providers.
type CaptchaResult struct {
	Success bool
	Score   *float64
}

// CaptchaProvider verifies a client-solved challenge token.
type CaptchaProvider interface {
	Name() string
	Verify(ctx context.Context, token, remoteIP string) (CaptchaResult, error)
}

type siteVerifyResponse struct {
	Success    bool     `json:"success"`
	Score      *float64 `json:"score,omitempty"`
	ErrorCodes []string `json:"error-codes,omitempty"`
}

// siteVerifyProvider talks to the "siteverify" form API shared by reCAPTCHA and hCaptcha.
type siteVerifyProvider struct {
	name   string
	url    string
	secret string
	scored bool
	client *retryablehttp.Client
}

// NewCaptchaProvider returns the provider named in cfg.
func NewCaptchaProvider(cfg config.Captcha) (CaptchaProvider, error) {
	p := &siteVerifyProvider{
		name:   cfg.Provider,
		secret: cfg.Secret,
		url:    cfg.VerifyURL,
		client: newRetryableClient(cfg.Timeout, 1),
	}

	switch cfg.Provider {
	case ProviderRecaptchaV3:
		p.scored = true
		if p.url == "" {
			p.url = recaptchaVerifyURL
		}
	case ProviderHCaptcha:
		if p.url == "" {
			p.url = hcaptchaVerifyURL
		}
	default:
		return nil, fmt.Errorf("unsupported captcha provider %q", cfg.Provider)
	}

	return p, nil
}

func (p *siteVerifyProvider) Name() string {
	return p.name
}

func (p *siteVerifyProvider) Verify(ctx context.Context, token, remoteIP string) (CaptchaResult, error) {
	form := url.Values{
		"secret":   {p.secret},
		"response": {token},
		"remoteip": {remoteIP},
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, p.url, strings.NewReader(form.Encode()))
	if err != nil {
		return CaptchaResult{}, fmt.Errorf("failed to build captcha request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return CaptchaResult{}, fmt.Errorf("captcha verification request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return CaptchaResult{}, fmt.Errorf("captcha provider returned status %d", resp.StatusCode)
	}

	var body siteVerifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return CaptchaResult{}, fmt.Errorf("failed to decode captcha response: %w", err)
	}

	result := CaptchaResult{Success: body.Success}
	if p.scored {
		result.Score = body.Score
	}
	return result, nil
}

// CaptchaGuard asks for a challenge when captcha is always on or the request looks suspicious.
type CaptchaGuard struct {
	cfg      config.Captcha
	provider CaptchaProvider
	logger   *logger.Logger
}

// NewCaptchaGuard creates a captcha guard. provider may be nil when cfg.Enabled is false.
func NewCaptchaGuard(cfg config.Captcha, provider CaptchaProvider, logger *logger.Logger) *CaptchaGuard {
	return &CaptchaGuard{cfg: cfg, provider: provider, logger: logger}
}

// Check returns nil when the request may proceed, *entity.ChallengeRequiredError when the
// client has to solve a challenge first, or entity.ErrChallengeFailed when the token did not
// verify. Provider errors and timeouts count as failures.
func (g *CaptchaGuard) Check(ctx context.Context, suspicious bool, token, remoteIP string) error {
	if !g.cfg.Enabled || g.provider == nil {
		return nil
	}
	if !g.cfg.AlwaysOn && !suspicious {
		return nil
	}

	if token == "" {
		return &entity.ChallengeRequiredError{
			Provider: g.provider.Name(),
			SiteKey:  g.cfg.SiteKey,
		}
	}

	verifyCtx := ctx
	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		verifyCtx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	result, err := g.provider.Verify(verifyCtx, token, remoteIP)
	if err != nil {
		g.logger.Errorw("Captcha verification error", "provider", g.provider.Name(), "error", err)
		return entity.ErrChallengeFailed
	}

	if !result.Success {
		return entity.ErrChallengeFailed
	}
	if result.Score != nil && *result.Score < g.cfg.MinScore {
		g.logger.Warnw("Captcha score below minimum", "score", *result.Score, "min_score", g.cfg.MinScore)
		return entity.ErrChallengeFailed
	}

	return nil
}
