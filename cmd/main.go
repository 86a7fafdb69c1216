package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"toolx/config"
	"toolx/controller"
	_ "toolx/docs" // Import for swagger
	"toolx/handler"
	"toolx/migrations"
	"toolx/pkg/logger"
	"toolx/repository"
	"toolx/service"
	"toolx/validator"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
)

// @title ToolX API
// @version 1.0
// @description Subscription tracker backend with email OTP sign-in and renewal reminders
// @contact.name API Support
// @contact.email support@example.com
// @host localhost:8080
// @BasePath /api
// @schemes http https
// @securityDefinitions.apiKey BearerAuth
// @in header
// @name Authorization
// @description Enter JWT Bearer token in format: Bearer {token}
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(cfg.Logger.Level, cfg.Logger.Mode)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Infow("Starting ToolX service",
		"version", "1.0.0",
		"port", cfg.HTTPServer.Port,
		"log_level", cfg.Logger.Level,
		"log_mode", cfg.Logger.Mode,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clock := service.SystemClock{}

	location, err := time.LoadLocation(cfg.Alerts.Timezone)
	if err != nil {
		log.Warnw("Unknown alert timezone, falling back to UTC", "timezone", cfg.Alerts.Timezone, "error", err)
		location = time.UTC
	}

	// Postgres is optional
	var db *sqlx.DB
	if cfg.Database.Enabled {
		db, err = connectDB(ctx, cfg, log)
		if err != nil {
			log.Fatalw("Failed to connect to database", "error", err)
		}
		defer db.Close()

		log.Infow("Database connected successfully",
			"host", cfg.Database.Host,
			"port", cfg.Database.Port,
			"database", cfg.Database.Name,
		)

		if err := migrations.RunMigrations(ctx, db.DB, log); err != nil {
			log.Fatalw("Failed to run database migrations", "error", err)
		}
		log.Infow("Database migrations completed successfully")
	}

	// Guard state lives in Redis when configured so every instance sees the same counters
	var (
		store        repository.StateStore
		tokenService *service.TokenService
	)
	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Fatalw("Failed to connect to Redis", "error", err)
		}
		log.Infow("Redis connected successfully", "host", cfg.Redis.Host, "port", cfg.Redis.Port)

		store = repository.NewRedisStateStore(redisClient, "toolx:", log.Named("state"))
		tokenService = service.NewTokenService(redisClient, log)
	} else {
		memStore := repository.NewMemoryStateStore(clock.Now)
		store = memStore
		go startCleanupRoutine(ctx, memStore, log)
		log.Warnw("REDIS_HOST not set, guard state is kept in process memory")
	}

	// Initialize validator
	v := validator.New()

	// Initialize repositories
	var (
		userRepo repository.UserRepository
		subRepo  repository.SubscriptionRepository
	)
	if db != nil {
		userRepo = repository.NewUserRepository(db)
	}
	if cfg.Subscriptions.Source == "postgres" {
		subRepo = repository.NewPostgresSubscriptionRepository(db)
	} else {
		subRepo = repository.NewDemoSubscriptionRepository(cfg.Subscriptions.DemoFile)
	}

	// Initialize services
	mailer := service.NewMailer(cfg.SMTP, cfg.Alerts.CC, cfg.OTP.ExpirationTime, log.Named("mailer"))
	jwtService := service.NewJWTService(cfg.JWT, clock, log, tokenService)

	var captchaProvider service.CaptchaProvider
	if cfg.Captcha.Enabled {
		captchaProvider, err = service.NewCaptchaProvider(cfg.Captcha)
		if err != nil {
			log.Fatalw("Failed to configure captcha", "error", err)
		}
	}

	var recorder *service.CodeRecorder
	deps := service.OTPServiceDeps{
		RouteLimiter: service.NewWindowLimiter(store, clock, "otp_route", cfg.RouteLimit.MaxRequests, cfg.RouteLimit.WindowDuration),
		Domains:      validator.NewEmailDomainValidator(cfg.EmailDomains.Allow, cfg.EmailDomains.Deny),
		Suspicion:    service.NewSuspicionTracker(store, clock, cfg.Suspicion, log.Named("suspicion")),
		Captcha:      service.NewCaptchaGuard(cfg.Captcha, captchaProvider, log.Named("captcha")),
		Throttle:     service.NewThrottle(store, clock, cfg.Throttle),

		Store:  service.NewOTPStore(store, clock, cfg.OTP.ExpirationTime, cfg.OTP.ReuseEnabled),
		Sender: mailer,
		Tokens: jwtService,
		Users:  userRepo,

		CodeLength:            cfg.OTP.Length,
		DeliveryTimeout:       cfg.OTP.DeliveryTimeout,
		PenalizeInvalidDomain: cfg.Suspicion.PenalizeInvalidDomain,
		LimitsDisabled:        cfg.LimitsDisabled,
	}
	if cfg.OTP.VerifyMaxAttempts > 0 {
		deps.VerifyLimiter = service.NewWindowLimiter(store, clock, "otp_verify", cfg.OTP.VerifyMaxAttempts, cfg.OTP.ExpirationTime)
	}
	if cfg.OTP.TestEndpoints {
		recorder = service.NewCodeRecorder()
		deps.Observer = recorder
	}

	otpService := service.NewOTPService(deps, log.Named("otp"))
	subscriptionService := service.NewSubscriptionService(subRepo, log)
	reminderService := service.NewReminderService(subRepo, mailer, cfg.Alerts.Enabled, log.Named("reminder"))
	botNotifier := service.NewBotNotifier(cfg.Bot, location, log.Named("bot"))
	linkPreviews := service.NewLinkPreviewService(cfg.LinkPreview, log.Named("link_preview"))

	// Initialize controllers
	controllers := handler.Controllers{
		OTP:          controller.NewOTPController(otpService, recorder, v, log),
		Auth:         controller.NewAuthController(jwtService, log),
		Health:       controller.NewHealthController(),
		Subscription: controller.NewSubscriptionController(subscriptionService, cfg.Subscriptions.AuthRequired, log),
		Notify:       controller.NewNotifyController(botNotifier, v, log),
		Reminder:     controller.NewReminderController(reminderService, clock, v, log),
		LinkPreview:  controller.NewLinkPreviewController(linkPreviews, log),
	}

	// Schedule the daily reminder sweep
	scheduler := cron.New(cron.WithLocation(location))
	_, err = scheduler.AddFunc(cfg.Alerts.CronSpec, func() {
		runCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
		defer cancel()
		count, err := reminderService.CheckExpiringAndNotify(runCtx, clock.Now())
		if err != nil {
			log.Errorw("Scheduled reminder run failed", "error", err)
			return
		}
		log.Infow("Scheduled reminder run completed", "reminders", count)
	})
	if err != nil {
		log.Fatalw("Invalid reminder schedule", "spec", cfg.Alerts.CronSpec, "error", err)
	}
	scheduler.Start()
	log.Infow("Reminder scheduler started", "spec", cfg.Alerts.CronSpec, "timezone", location.String())

	// Initialize Echo server
	e := echo.New()
	e.HideBanner = true

	// Register routes
	handler.RegisterRoutes(e, controllers, jwtService, cfg, log)

	// Start server in a goroutine
	serverAddr := fmt.Sprintf(":%d", cfg.HTTPServer.Port)
	go func() {
		log.Infow("Starting HTTP server", "address", serverAddr)
		if err := e.Start(serverAddr); err != nil && err != http.ErrServerClosed {
			log.Fatalw("Failed to start server", "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	<-ctx.Done()

	log.Infow("Shutting down server gracefully...")

	// Create a deadline for graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Application.GracefulShutdownTimeout)
	defer shutdownCancel()

	<-scheduler.Stop().Done()

	// Attempt graceful shutdown
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Failed to shutdown server gracefully", "error", err)
		os.Exit(1)
	}

	log.Infow("Server shutdown completed successfully")
}

func connectDB(ctx context.Context, cfg *config.Config, log *logger.Logger) (*sqlx.DB, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)

	var db *sqlx.DB
	var err error

	// Retry connection up to 30 times with 1 second delay
	for i := 0; i < 30; i++ {
		db, err = sqlx.ConnectContext(ctx, "postgres", connStr)
		if err == nil {
			break
		}

		log.Warnw("Database connection attempt failed", "attempt", i+1, "max_attempts", 30, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second):
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database after 30 attempts: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

// startCleanupRoutine drops expired guard records from the in-memory store
func startCleanupRoutine(ctx context.Context, store *repository.MemoryStateStore, logger *logger.Logger) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := store.Purge()
			logger.Debugw("Cleanup routine completed", "removed", removed, "remaining", store.Len())
		}
	}
}
