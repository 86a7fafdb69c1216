package controller

import (
	"errors"
	"net/http"

	"toolx/entity"
	"toolx/pkg/logger"
	"toolx/service"

	"github.com/labstack/echo/v4"
)

// Context keys set by the bearer middleware.
const (
	ContextKeyClaims = "claims"
	ContextKeyToken  = "token"
)

// AuthController handles authentication-related operations
type AuthController struct {
	jwtService service.JWTService
	logger     *logger.Logger
}

// NewAuthController creates a new auth controller
func NewAuthController(jwtService service.JWTService, logger *logger.Logger) *AuthController {
	return &AuthController{
		jwtService: jwtService,
		logger:     logger,
	}
}

// LogoutRequest represents the logout request body
type LogoutRequest struct {
	LogoutAll bool `json:"logout_all,omitempty"` // Optional: logout from all devices
}

// @Summary Logout user
// @Description Revoke the presented session token, or every session of the user
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body LogoutRequest false "Logout options"
// @Security BearerAuth
// @Success 200 {object} entity.LogoutResponse
// @Failure 401 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Failure 501 {object} map[string]interface{}
// @Router /auth/logout [post]
func (c *AuthController) Logout(ctx echo.Context) error {
	claims, _ := ctx.Get(ContextKeyClaims).(*service.JWTClaims)
	tokenString, _ := ctx.Get(ContextKeyToken).(string)
	if claims == nil || tokenString == "" {
		return ctx.JSON(http.StatusUnauthorized, map[string]interface{}{
			"error": "Unauthorized",
		})
	}

	var req LogoutRequest
	if err := ctx.Bind(&req); err != nil {
		// body is optional
		req = LogoutRequest{}
	}

	reqCtx := ctx.Request().Context()
	if req.LogoutAll {
		revoked, err := c.jwtService.RevokeAllUserTokens(reqCtx, claims.Email)
		if err != nil {
			return c.revokeFailed(ctx, claims.Email, err)
		}
		c.logger.Infow("User logged out from all devices", "email", claims.Email, "sessions", revoked)
		return ctx.JSON(http.StatusOK, entity.LogoutResponse{Message: "Successfully logged out from all devices"})
	}

	if err := c.jwtService.RevokeToken(reqCtx, tokenString); err != nil {
		return c.revokeFailed(ctx, claims.Email, err)
	}
	c.logger.Infow("User logged out", "email", claims.Email)
	return ctx.JSON(http.StatusOK, entity.LogoutResponse{Message: "Successfully logged out"})
}

func (c *AuthController) revokeFailed(ctx echo.Context, email string, err error) error {
	if errors.Is(err, service.ErrRevocationUnavailable) {
		return ctx.JSON(http.StatusNotImplemented, map[string]interface{}{
			"error": "Logout requires a session store",
		})
	}

	c.logger.Errorw("Failed to revoke session", "email", email, "error", err)
	return ctx.JSON(http.StatusInternalServerError, map[string]interface{}{
		"error": "Failed to logout",
	})
}
