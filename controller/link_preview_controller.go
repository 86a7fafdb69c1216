package controller

import (
	"errors"
	"net/http"

	"toolx/entity"
	"toolx/pkg/logger"
	"toolx/service"

	"github.com/labstack/echo/v4"
)

// LinkPreviewController serves preview cards for subscription links
type LinkPreviewController struct {
	previews *service.LinkPreviewService
	logger   *logger.Logger
}

// NewLinkPreviewController creates a link preview controller
func NewLinkPreviewController(previews *service.LinkPreviewService, logger *logger.Logger) *LinkPreviewController {
	return &LinkPreviewController{previews: previews, logger: logger}
}

// Preview godoc
// @Summary Link preview
// @Description Fetch a page server-side and return its title, description, image and favicon
// @Tags Tools
// @Produce json
// @Param url query string true "Page URL (http or https)"
// @Success 200 {object} entity.LinkPreview
// @Failure 400 {object} map[string]interface{}
// @Failure 502 {object} map[string]interface{}
// @Router /link-preview [get]
func (c *LinkPreviewController) Preview(ctx echo.Context) error {
	preview, err := c.previews.Preview(ctx.Request().Context(), ctx.QueryParam("url"))
	if err != nil {
		var validationErr *entity.ValidationError
		var upstreamErr *service.UpstreamError

		switch {
		case errors.As(err, &validationErr):
			return ctx.JSON(http.StatusBadRequest, map[string]interface{}{
				"error": validationErr.Reason,
			})
		case errors.Is(err, service.ErrBlockedAddress):
			return ctx.JSON(http.StatusBadRequest, map[string]interface{}{
				"error": "url is not allowed",
			})
		case errors.As(err, &upstreamErr):
			return ctx.JSON(http.StatusBadGateway, map[string]interface{}{
				"error":  "failed to fetch target",
				"status": upstreamErr.Status,
			})
		default:
			c.logger.Errorw("Link preview failed", "url", ctx.QueryParam("url"), "error", err)
			return ctx.JSON(http.StatusBadGateway, map[string]interface{}{
				"error": "failed to fetch target",
			})
		}
	}

	ctx.Response().Header().Set("Cache-Control", "public, max-age=300")
	return ctx.JSON(http.StatusOK, preview)
}
