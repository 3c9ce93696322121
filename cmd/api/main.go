package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tarqumi/agency-api/config"
	"github.com/tarqumi/agency-api/pkg/api/handlers"
	custommw "github.com/tarqumi/agency-api/pkg/api/middleware"
	"github.com/tarqumi/agency-api/pkg/cache"
	"github.com/tarqumi/agency-api/pkg/contact"
	"github.com/tarqumi/agency-api/pkg/database"
	"github.com/tarqumi/agency-api/pkg/domain"
	"github.com/tarqumi/agency-api/pkg/email"
	"github.com/tarqumi/agency-api/pkg/gate"
	"github.com/tarqumi/agency-api/pkg/jobs"
	"github.com/tarqumi/agency-api/pkg/logger"
	"github.com/tarqumi/agency-api/pkg/mailqueue"
	"github.com/tarqumi/agency-api/pkg/metrics"
	custommiddleware "github.com/tarqumi/agency-api/pkg/middleware"
	"github.com/tarqumi/agency-api/pkg/notify"
	"github.com/tarqumi/agency-api/pkg/spam"
)

func main() {
	// Load .env if present; real deployments set the environment directly
	_ = godotenv.Load()

	cfg := config.Load()
	appLog := logger.New(cfg.LogLevel, cfg.LogFormat)
	log.Printf("🔧 Configuration loaded (environment: %s)", cfg.APIEnvironment)

	// Initialize Sentry for error tracking
	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.SentryEnvironment,
			AttachStacktrace: true,
		})
		if err != nil {
			log.Printf("⚠️  Failed to initialize Sentry: %v", err)
		} else {
			log.Printf("✅ Sentry initialized (environment: %s)", cfg.SentryEnvironment)
			defer sentry.Flush(2 * time.Second)
		}
	} else {
		log.Printf("ℹ️  Sentry disabled (no DSN configured)")
	}

	// Initialize database
	db, err := database.NewClient(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	if err := database.Migrate(db); err != nil {
		log.Fatalf("❌ Failed to run migrations: %v", err)
	}
	log.Printf("✅ Database migrated")

	// Initialize Redis cache
	redisClient, err := cache.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	// Initialize Prometheus metrics
	prometheusMetrics := metrics.New()
	log.Printf("✅ Prometheus metrics initialized")

	// Initialize services
	clock := domain.SystemClock()
	mailer := email.NewMailer(cfg.SendGridAPIKey, appLog)

	submissionGate := gate.New(db, redisClient, clock, appLog, gate.Config{
		RateLimit:          cfg.ContactRateLimit,
		RateLimitWindow:    cfg.ContactRateLimitWindow,
		AutoBlockThreshold: cfg.AutoBlockThreshold,
		BlockDuration:      cfg.BlockDuration,
	})
	scorer := spam.NewScorer(cfg.SpamScoreThreshold)
	dispatcher := notify.New(cfg.EmailFromAddress, cfg.EmailFromName, cfg.MailMaxAttempts, appLog)
	worker := mailqueue.New(db, mailer, clock, appLog, prometheusMetrics, cfg.MailSendTimeout, cfg.MailWorkers)
	contactService := contact.NewService(db, submissionGate, scorer, dispatcher, clock, appLog, prometheusMetrics, worker)

	// Initialize cron manager for background jobs
	cronManager := jobs.NewCronManager(worker, submissionGate, appLog)
	if err := cronManager.SetupJobs(); err != nil {
		log.Fatalf("❌ Failed to setup cron jobs: %v", err)
	}
	cronManager.Start()
	log.Printf("✅ Cron jobs started (queue drain every minute, block purge daily 3AM)")

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true

	globalRateLimiter := custommiddleware.NewRateLimiter(cfg.RateLimitRequestsPerMinute, cfg.RateLimitBurst)

	// Global middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	if cfg.SentryDSN != "" {
		e.Use(sentryecho.New(sentryecho.Options{
			Repanic: true,
		}))
	}

	e.Use(prometheusMetrics.Middleware())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.CORSAllowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization},
	}))
	e.Use(middleware.Secure())
	e.Use(globalRateLimiter.Middleware())

	// Initialize handlers
	contactHandler := handlers.NewContactHandler(contactService)
	healthHandler := handlers.NewHealthHandler(db, redisClient)

	// Health and metrics endpoints (public)
	e.GET("/health", healthHandler.Check)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := e.Group("/api/v1")

	// Public contact endpoint. The gate enforces the per-IP submission
	// window on top of the global limiter.
	v1.POST("/contact", contactHandler.Submit)

	// Moderation routes (require staff JWT)
	admin := v1.Group("/admin", custommw.JWTMiddleware(cfg.JWTSecret))
	{
		admin.GET("/contact-submissions", contactHandler.List)
		admin.GET("/contact-submissions/statistics", contactHandler.Statistics)
		admin.POST("/contact-submissions/bulk/status", contactHandler.BulkUpdateStatus)
		admin.POST("/contact-submissions/bulk/delete", contactHandler.BulkDelete)
		admin.GET("/contact-submissions/:id", contactHandler.Get)
		admin.PATCH("/contact-submissions/:id/status", contactHandler.UpdateStatus)
		admin.POST("/contact-submissions/:id/spam", contactHandler.MarkSpam)
		admin.DELETE("/contact-submissions/:id", contactHandler.Delete)
	}

	// Start server
	address := fmt.Sprintf("%s:%s", cfg.APIHost, cfg.APIPort)
	log.Printf("🚀 Tarqumi agency API starting on %s", address)
	log.Printf("🛡️  Rate limiting: %d req/min global, %d contact submissions per %s per IP",
		cfg.RateLimitRequestsPerMinute, cfg.ContactRateLimit, cfg.ContactRateLimitWindow)
	log.Printf("📬 Mail delivery: %d workers, %d attempts max, %s send timeout",
		cfg.MailWorkers, cfg.MailMaxAttempts, cfg.MailSendTimeout)

	go func() {
		if err := e.Start(address); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")

	cronManager.Stop()
	log.Println("✅ Cron jobs stopped")

	// Let in-flight delivery attempts finish before closing the database
	worker.Shutdown()
	log.Println("✅ Mail queue drained")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server gracefully stopped")
}
