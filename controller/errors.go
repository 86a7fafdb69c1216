package controller

import (
	"errors"
	"net/http"
	"strconv"

	"toolx/entity"

	"github.com/labstack/echo/v4"
)

// writeGuardError maps a typed pipeline error onto its HTTP response. Unknown errors become 500
// with fallback as the message.
func writeGuardError(ctx echo.Context, err error, fallback string) error {
	var (
		validationErr *entity.ValidationError
		rateErr       *entity.RateLimitedError
		lockedErr     *entity.LockedError
		challengeErr  *entity.ChallengeRequiredError
		deliveryErr   *entity.DeliveryFailedError
	)

	switch {
	case errors.As(err, &validationErr):
		return ctx.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": validationErr.Reason,
		})
	case errors.As(err, &rateErr):
		ctx.Response().Header().Set("Retry-After", strconv.Itoa(rateErr.RetryAfter))
		return ctx.JSON(http.StatusTooManyRequests, map[string]interface{}{
			"error":   "Too many requests. Please try again later.",
			"seconds": rateErr.RetryAfter,
		})
	case errors.As(err, &lockedErr):
		ctx.Response().Header().Set("Retry-After", strconv.Itoa(lockedErr.RetryAfter))
		return ctx.JSON(http.StatusForbidden, map[string]interface{}{
			"error":   "Temporarily locked due to suspicious activity",
			"seconds": lockedErr.RetryAfter,
		})
	case errors.As(err, &challengeErr):
		return ctx.JSON(http.StatusUnauthorized, map[string]interface{}{
			"error":           "Captcha required",
			"requireCaptcha":  true,
			"captchaProvider": challengeErr.Provider,
			"siteKey":         challengeErr.SiteKey,
		})
	case errors.Is(err, entity.ErrChallengeFailed):
		return ctx.JSON(http.StatusUnauthorized, map[string]interface{}{
			"error":          "Captcha verification failed",
			"requireCaptcha": true,
		})
	case errors.Is(err, entity.ErrInvalidOTP):
		return ctx.JSON(http.StatusUnauthorized, map[string]interface{}{
			"error": "Invalid or expired OTP",
		})
	case errors.As(err, &deliveryErr):
		return ctx.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to send OTP",
		})
	}

	return ctx.JSON(http.StatusInternalServerError, map[string]interface{}{
		"error": fallback,
	})
}
