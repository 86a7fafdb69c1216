package handler

import (
	"toolx/config"
	"toolx/controller"
	_ "toolx/docs" // Import for swagger docs
	"toolx/pkg/logger"
	"toolx/service"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
)

// Controllers groups the HTTP controllers mounted by RegisterRoutes
type Controllers struct {
	OTP          *controller.OTPController
	Auth         *controller.AuthController
	Health       *controller.HealthController
	Subscription *controller.SubscriptionController
	Notify       *controller.NotifyController
	Reminder     *controller.ReminderController
	LinkPreview  *controller.LinkPreviewController
}

// RegisterRoutes registers all HTTP routes and middleware
func RegisterRoutes(
	e *echo.Echo,
	controllers Controllers,
	jwtService service.JWTService,
	cfg *config.Config,
	logger *logger.Logger,
) {
	extractor, err := ClientIPExtractor(cfg.HTTPServer.TrustedProxies)
	if err != nil {
		// config.Validate rejects these; fall back to the socket peer
		logger.Errorw("Ignoring trusted proxies", "error", err)
		extractor = echo.ExtractIPDirect()
	}
	e.IPExtractor = extractor

	// Add common middleware
	e.Use(middleware.Recover())
	e.Use(middleware.Secure())
	e.Use(CORSMiddleware(cfg.HTTPServer.AllowedOrigins))
	e.Use(RequestLoggerMiddleware(logger))
	if cfg.HTTPServer.GlobalRequestsPerMinute > 0 {
		e.Use(GlobalRateLimiterMiddleware(cfg.HTTPServer.GlobalRequestsPerMinute, logger))
	}

	requireAuth := JWTMiddleware(jwtService, logger)

	// Swagger documentation
	if cfg.Swagger.Enabled {
		e.GET("/swagger/*", echoSwagger.WrapHandler)
	}

	api := e.Group("/api")
	api.GET("/health", controllers.Health.HealthCheck)

	authGroup := api.Group("/auth")
	authGroup.POST("/request-code", controllers.OTP.RequestCode)
	authGroup.POST("/verify-code", controllers.OTP.VerifyCode)
	authGroup.POST("/logout", controllers.Auth.Logout, requireAuth)

	if cfg.Subscriptions.AuthRequired {
		api.GET("/subscriptions", controllers.Subscription.ListSubscriptions, requireAuth)
	} else {
		api.GET("/subscriptions", controllers.Subscription.ListSubscriptions)
	}

	api.GET("/link-preview", controllers.LinkPreview.Preview)
	api.POST("/notify/confirm", controllers.Notify.ConfirmOrder)

	demo := api.Group("/__demo__")
	demo.POST("/trigger-reminders", controllers.Reminder.TriggerReminders)
	demo.POST("/send-sample", controllers.Reminder.SendSample)

	if cfg.OTP.TestEndpoints {
		logger.Warnw("Test endpoints are enabled; never run this in production")
		api.GET("/__test__/otp/:email", controllers.OTP.TestOTP)
	}
}
