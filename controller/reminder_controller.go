package controller

import (
	"net/http"

	"toolx/entity"
	"toolx/pkg/logger"
	"toolx/service"
	"toolx/validator"

	"github.com/labstack/echo/v4"
)

// ReminderController exposes manual reminder runs for demos
type ReminderController struct {
	reminders *service.ReminderService
	clock     service.Clock
	validator *validator.Validator
	logger    *logger.Logger
}

// NewReminderController creates a reminder controller
func NewReminderController(reminders *service.ReminderService, clock service.Clock, validator *validator.Validator, logger *logger.Logger) *ReminderController {
	return &ReminderController{
		reminders: reminders,
		clock:     clock,
		validator: validator,
		logger:    logger,
	}
}

// SampleRequest asks for a sample reminder email
type SampleRequest struct {
	Email string `json:"email" validate:"required,email_shape"`
	Tag   string `json:"tag,omitempty"`
}

// TriggerReminders godoc
// @Summary Run reminders now
// @Description Run the renewal reminder sweep immediately
// @Tags Demo
// @Produce json
// @Success 200 {object} entity.ReminderRunResponse
// @Failure 500 {object} map[string]interface{}
// @Router /__demo__/trigger-reminders [post]
func (c *ReminderController) TriggerReminders(ctx echo.Context) error {
	count, err := c.reminders.CheckExpiringAndNotify(ctx.Request().Context(), c.clock.Now())
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to run reminders",
		})
	}

	return ctx.JSON(http.StatusOK, entity.ReminderRunResponse{OK: true, Reminders: count})
}

// SendSample godoc
// @Summary Send a sample reminder
// @Description Email a sample renewal reminder to an address
// @Tags Demo
// @Accept json
// @Produce json
// @Param request body SampleRequest true "Sample"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /__demo__/send-sample [post]
func (c *ReminderController) SendSample(ctx echo.Context) error {
	var req SampleRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":   "Invalid request format",
			"details": err.Error(),
		})
	}

	if err := c.validator.ValidateStruct(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]interface{}{
			"error":   "A valid email is required",
			"details": err.Error(),
		})
	}

	tag, err := c.reminders.SendSample(ctx.Request().Context(), req.Email, req.Tag, c.clock.Now())
	if err != nil {
		c.logger.Errorw("Failed to send sample reminder", "email", req.Email, "error", err)
		return ctx.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to send sample email",
		})
	}

	return ctx.JSON(http.StatusOK, map[string]interface{}{
		"ok":  true,
		"tag": tag,
	})
}
