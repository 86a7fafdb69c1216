package controller

import (
	"net/http"

	"toolx/entity"
	"toolx/pkg/logger"
	"toolx/service"
	"toolx/validator"

	"github.com/labstack/echo/v4"
)

// OTPController handles OTP-related HTTP requests
type OTPController struct {
	otpService service.OTPService
	recorder   *service.CodeRecorder
	validator  *validator.Validator
	logger     *logger.Logger
}

// NewOTPController creates a new OTP controller instance. recorder backs the test-only code
// lookup and may be nil.
func NewOTPController(otpService service.OTPService, recorder *service.CodeRecorder, validator *validator.Validator, logger *logger.Logger) *OTPController {
	return &OTPController{
		otpService: otpService,
		recorder:   recorder,
		validator:  validator,
		logger:     logger,
	}
}

// RequestCode handles OTP generation and sending
// @Summary Request OTP
// @Description Run the abuse guards and email a one-time code
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body entity.RequestOTPRequest true "Request OTP"
// @Success 200 {object} entity.RequestOTPResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Failure 429 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /auth/request-code [post]
func (c *OTPController) RequestCode(ctx echo.Context) error {
	var req entity.RequestOTPRequest

	if err := ctx.Bind(&req); err != nil {
		c.logger.Warnw("Failed to bind request", "error", err)
		return ctx.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":   "Invalid request format",
			"details": err.Error(),
		})
	}

	err := c.otpService.RequestOTP(ctx.Request().Context(), service.OTPRequest{
		Email:        req.Email,
		CaptchaToken: req.CaptchaToken,
		ClientIP:     ctx.RealIP(),
	})
	if err != nil {
		return writeGuardError(ctx, err, "Failed to send OTP")
	}

	return ctx.JSON(http.StatusOK, entity.RequestOTPResponse{OK: true})
}

// VerifyCode handles OTP verification and authentication
// @Summary Verify OTP
// @Description Verify the emailed code and issue a session token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body entity.VerifyOTPRequest true "Verify OTP Request"
// @Success 200 {object} entity.AuthResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 429 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /auth/verify-code [post]
func (c *OTPController) VerifyCode(ctx echo.Context) error {
	var req entity.VerifyOTPRequest

	if err := ctx.Bind(&req); err != nil {
		c.logger.Warnw("Failed to bind request", "error", err)
		return ctx.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":   "Invalid request format",
			"details": err.Error(),
		})
	}

	if err := c.validator.ValidateStruct(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":   "Email and OTP are required",
			"details": err.Error(),
		})
	}

	auth, err := c.otpService.VerifyOTP(ctx.Request().Context(), req.Email, req.OTP)
	if err != nil {
		return writeGuardError(ctx, err, "Verification failed")
	}

	c.logger.Infow("OTP verified successfully", "email", service.NormalizeEmail(req.Email))
	return ctx.JSON(http.StatusOK, auth)
}

// TestOTP returns the last code issued for an email. Only mounted when test endpoints are on.
func (c *OTPController) TestOTP(ctx echo.Context) error {
	resp := entity.TestOTPResponse{}
	if c.recorder != nil {
		if code, ok := c.recorder.LastCode(ctx.Param("email")); ok {
			resp.OTP = &code
		}
	}
	return ctx.JSON(http.StatusOK, resp)
}
