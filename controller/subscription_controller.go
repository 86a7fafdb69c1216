package controller

import (
	"errors"
	"net/http"

	"toolx/entity"
	"toolx/pkg/logger"
	"toolx/service"

	"github.com/labstack/echo/v4"
)

// SubscriptionController serves a user's subscriptions
type SubscriptionController struct {
	subscriptionService service.SubscriptionService
	authRequired        bool
	logger              *logger.Logger
}

// NewSubscriptionController creates a subscription controller. With authRequired the email
// comes from the session token, otherwise from the email query parameter.
func NewSubscriptionController(subscriptionService service.SubscriptionService, authRequired bool, logger *logger.Logger) *SubscriptionController {
	return &SubscriptionController{
		subscriptionService: subscriptionService,
		authRequired:        authRequired,
		logger:              logger,
	}
}

// ListSubscriptions godoc
// @Summary List subscriptions
// @Description List the subscriptions of a user ordered by next billing date
// @Tags Subscriptions
// @Produce json
// @Param email query string false "Email (ignored when auth is enabled)"
// @Security BearerAuth
// @Success 200 {object} entity.SubscriptionsResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /subscriptions [get]
func (c *SubscriptionController) ListSubscriptions(ctx echo.Context) error {
	email := ctx.QueryParam("email")
	if c.authRequired {
		claims, _ := ctx.Get(ContextKeyClaims).(*service.JWTClaims)
		if claims == nil {
			return ctx.JSON(http.StatusUnauthorized, map[string]interface{}{
				"error": "Unauthorized",
			})
		}
		email = claims.Email
	}

	subs, err := c.subscriptionService.ListByEmail(ctx.Request().Context(), email)
	if err != nil {
		var validationErr *entity.ValidationError
		if errors.As(err, &validationErr) {
			return ctx.JSON(http.StatusBadRequest, map[string]interface{}{
				"error": validationErr.Reason,
			})
		}
		return ctx.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to load subscriptions",
		})
	}

	return ctx.JSON(http.StatusOK, entity.SubscriptionsResponse{Subscriptions: subs})
}
