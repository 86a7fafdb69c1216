package handler

import (
	"net/http"
	"strings"
	"time"

	"toolx/config"
	"toolx/controller"
	"toolx/pkg/logger"
	"toolx/service"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// JWTMiddleware creates a bearer token authentication middleware
func JWTMiddleware(jwtService service.JWTService, logger *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path

			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				logger.Warnw("Missing Authorization header", "path", path)
				return unauthorized(c, "Missing Authorization header")
			}

			if !strings.HasPrefix(authHeader, "Bearer ") {
				logger.Warnw("Invalid Authorization header format", "path", path)
				return unauthorized(c, "Invalid Authorization header format")
			}

			tokenString := strings.TrimSpace(authHeader[7:])

			claims, err := jwtService.ValidateToken(c.Request().Context(), tokenString)
			if err != nil {
				logger.Warnw("Invalid JWT token", "path", path, "error", err)
				return unauthorized(c, "Invalid or expired token")
			}

			c.Set(controller.ContextKeyClaims, claims)
			c.Set(controller.ContextKeyToken, tokenString)

			logger.Debugw("JWT authentication successful", "email", claims.Email, "path", path)
			return next(c)
		}
	}
}

func unauthorized(c echo.Context, details string) error {
	c.Response().Header().Set(echo.HeaderWWWAuthenticate, `Bearer realm="toolx"`)
	return c.JSON(http.StatusUnauthorized, map[string]interface{}{
		"error":   "Unauthorized",
		"details": details,
	})
}

// ClientIPExtractor decides where RealIP comes from. Without trusted proxies it is the socket
// peer, so forwarding headers sent by clients are ignored. With trusted proxies the
// X-Forwarded-For chain is walked back only through those ranges.
func ClientIPExtractor(trustedProxies []string) (echo.IPExtractor, error) {
	if len(trustedProxies) == 0 {
		return echo.ExtractIPDirect(), nil
	}

	options := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, proxy := range trustedProxies {
		ipNet, err := config.ParseTrustedProxy(proxy)
		if err != nil {
			return nil, err
		}
		options = append(options, echo.TrustIPRange(ipNet))
	}
	return echo.ExtractIPFromXFFHeader(options...), nil
}

// CORSMiddleware allows the given origins, or every origin when the list is empty
func CORSMiddleware(allowedOrigins []string) echo.MiddlewareFunc {
	origins := allowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{
			echo.HeaderContentType,
			echo.HeaderAuthorization,
			"X-Requested-With",
		},
		ExposeHeaders: []string{"Retry-After"},
	})
}

// GlobalRateLimiterMiddleware caps every client IP at perMinute requests per minute
func GlobalRateLimiterMiddleware(perMinute int, logger *logger.Logger) echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(float64(perMinute) / 60),
		Burst:     perMinute,
		ExpiresIn: 3 * time.Minute,
	})

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			logger.Warnw("Global rate limit exceeded", "ip", identifier, "path", c.Request().URL.Path)
			c.Response().Header().Set("Retry-After", "60")
			return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
				"error":   "Too many requests. Please try again later.",
				"seconds": 60,
			})
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusForbidden, map[string]interface{}{
				"error": "Unable to identify client",
			})
		},
	})
}

// RequestLoggerMiddleware creates a request logging middleware
func RequestLoggerMiddleware(logger *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			logger.Infow("HTTP Request",
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", c.Response().Status,
				"remote_addr", c.RealIP(),
				"user_agent", c.Request().UserAgent(),
				"latency", time.Since(start).String(),
			)

			return nil
		}
	}
}
