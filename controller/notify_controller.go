package controller

import (
	"errors"
	"net/http"

	"toolx/entity"
	"toolx/pkg/logger"
	"toolx/service"
	"toolx/validator"

	"github.com/labstack/echo/v4"
)

// NotifyController relays payment confirmations to the operator's chat bot
type NotifyController struct {
	notifier  *service.BotNotifier
	validator *validator.Validator
	logger    *logger.Logger
}

// NewNotifyController creates a notify controller
func NewNotifyController(notifier *service.BotNotifier, validator *validator.Validator, logger *logger.Logger) *NotifyController {
	return &NotifyController{
		notifier:  notifier,
		validator: validator,
		logger:    logger,
	}
}

// ConfirmOrder godoc
// @Summary Confirm renewal payment
// @Description Send a renewal order summary to the operator chat
// @Tags Notifications
// @Accept json
// @Produce json
// @Param request body entity.ConfirmRequest true "Order"
// @Success 200 {object} entity.ConfirmResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /notify/confirm [post]
func (c *NotifyController) ConfirmOrder(ctx echo.Context) error {
	var req entity.ConfirmRequest

	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":   "Invalid request format",
			"details": err.Error(),
		})
	}

	if err := c.validator.ValidateStruct(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "order is required",
		})
	}

	c.logger.Infow("Incoming order confirmation", "email", req.Order.Email, "item", req.Order.Item.Name)

	result, err := c.notifier.SendConfirmNotification(ctx.Request().Context(), req.Order)
	if err != nil {
		c.logger.Errorw("Failed to notify bot", "error", err)

		var botErr *service.BotError
		if errors.As(err, &botErr) {
			return ctx.JSON(botErr.Status, map[string]interface{}{
				"error":    botErr.Message,
				"status":   botErr.Status,
				"response": botErr.Response,
			})
		}
		return ctx.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error":  err.Error(),
			"status": http.StatusInternalServerError,
		})
	}

	return ctx.JSON(http.StatusOK, entity.ConfirmResponse{OK: true, Result: result})
}
