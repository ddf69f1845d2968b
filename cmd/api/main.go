package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/BradenHooton/gatehouse/internal/auth"
	"github.com/BradenHooton/gatehouse/internal/background"
	"github.com/BradenHooton/gatehouse/internal/config"
	"github.com/BradenHooton/gatehouse/internal/database"
	"github.com/BradenHooton/gatehouse/internal/handlers"
	middlewareCustom "github.com/BradenHooton/gatehouse/internal/middleware"
	"github.com/BradenHooton/gatehouse/internal/models"
	"github.com/BradenHooton/gatehouse/internal/repositories"
	"github.com/BradenHooton/gatehouse/internal/routes"
	"github.com/BradenHooton/gatehouse/internal/services"
	pkgauth "github.com/BradenHooton/gatehouse/pkg/auth"
	pkghttp "github.com/BradenHooton/gatehouse/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	bootLogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		bootLogger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.Server.LogLevel)}))
	slog.SetDefault(logger)

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	if cfg.Auth.SecretKeyGenerated {
		logger.Warn("SECRET_KEY not set, using a generated key; sessions will not survive a restart")
	}

	// Provision the admin credential
	credential, err := adminCredential(&cfg.Admin, cfg.Auth.PasswordHashIterations, logger)
	if err != nil {
		logger.Error("failed to provision admin credential", slog.Any("error", err))
		os.Exit(1)
	}

	ipConfig, err := pkghttp.NewIPConfig(cfg.Server.TrustedProxies)
	if err != nil {
		logger.Error("invalid trusted proxies", slog.Any("error", err))
		os.Exit(1)
	}

	// Optional audit trail database
	var db *database.DB
	var auditRepo services.AuditRepository
	var healthChecker handlers.HealthChecker
	if cfg.Database.Enabled() {
		db, err = database.NewConnection(&cfg.Database, logger)
		if err != nil {
			logger.Error("failed to connect to database", slog.Any("error", err))
			os.Exit(1)
		}
		defer db.Close()

		migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err = db.Migrate(migrateCtx)
		cancel()
		if err != nil {
			logger.Error("failed to run migrations", slog.Any("error", err))
			os.Exit(1)
		}

		auditRepo = repositories.NewAuditLogRepository(db)
		healthChecker = db
	} else {
		logger.Info("DATABASE_URL not set, audit events are logged only")
	}

	// Optional lockout alerts
	var notifier services.LockoutNotifier
	if cfg.Alerts.Enabled() {
		sesCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		sesNotifier, err := services.NewAWSSESLockoutNotifier(sesCtx, cfg.Alerts.AWSRegion, cfg.Alerts.From, cfg.Alerts.Recipient, logger)
		cancel()
		if err != nil {
			logger.Error("failed to initialize lockout alerts", slog.Any("error", err))
			os.Exit(1)
		}
		notifier = sesNotifier
	}

	// Initialize repositories
	credentialRepo := repositories.NewCredentialRepository(*credential)
	sessionRepo := repositories.NewSessionRepository()
	loginAttemptRepo := repositories.NewLoginAttemptRepository()

	// Initialize security components
	tokenManager := auth.NewTokenManager(cfg.Auth.SecretKey)
	csrfManager := auth.NewCSRFTokenManager()
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelay:   cfg.Auth.FailureDelayBase,
		RandomDelay: cfg.Auth.FailureDelayRandom,
	})

	// Initialize services
	auditService := services.NewAuditService(auditRepo, cfg.Database.AuditRetentionDays, logger)

	rateLimitService := services.NewRateLimitService(loginAttemptRepo, services.RateLimitConfig{
		MaxLoginAttempts: cfg.Auth.MaxLoginAttempts,
		LockoutDuration:  cfg.Auth.LockoutDuration,
	}, notifier, logger)

	authService, err := services.NewAuthService(
		credentialRepo,
		sessionRepo,
		tokenManager,
		rateLimitService,
		auditService,
		timingDelay,
		services.AuthConfig{
			SessionTimeout:         cfg.Auth.SessionTimeout,
			PasswordHashIterations: cfg.Auth.PasswordHashIterations,
			ReferenceHash:          credential.PasswordHash,
		},
		logger,
	)
	if err != nil {
		logger.Error("failed to initialize auth service", slog.Any("error", err))
		os.Exit(1)
	}

	statusService := services.NewStatusService(sessionRepo, rateLimitService, services.StatusConfig{
		SessionTimeout:   cfg.Auth.SessionTimeout,
		MaxLoginAttempts: cfg.Auth.MaxLoginAttempts,
		LockoutDuration:  cfg.Auth.LockoutDuration,
	})

	// Initialize cleanup manager
	var auditCleaner background.AuditCleaner
	if auditService.Persistent() {
		auditCleaner = auditService
	}
	cleanupManager := background.NewCleanupManager(sessionRepo, rateLimitService, csrfManager, auditCleaner, logger, cfg.Auth.CleanupInterval)

	// Initialize handlers
	cookies := auth.CookieConfig{Domain: cfg.Server.CookieDomain, Secure: cfg.Server.CookieSecure}
	authHandler := handlers.NewAuthHandler(authService, csrfManager, ipConfig, cookies, logger)
	adminHandler := handlers.NewAdminHandler(statusService, auditService)
	healthHandler := handlers.NewHealthHandler(healthChecker)

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middlewareCustom.SecureLogger(logger, ipConfig))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, routes.Dependencies{
		AuthHandler:    authHandler,
		AdminHandler:   adminHandler,
		HealthHandler:  healthHandler,
		Validator:      authService,
		CSRF:           csrfManager,
		IPConfig:       ipConfig,
		Cookies:        cookies,
		LoginRateLimit: cfg.Server.LoginRateLimitPerMinute,
		Logger:         logger,
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start cleanup task
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	// Start server
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	select {
	case <-sigChan:
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		logger.Error("server error", slog.Any("error", err))
		exitCode = 1
	}

	cleanupManager.Stop()
	cleanupCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		exitCode = 1
	}

	if exitCode != 0 {
		if db != nil {
			db.Close()
		}
		os.Exit(exitCode)
	}

	logger.Info("server stopped gracefully")
}

// adminCredential builds the provisioned credential. A plaintext password is
// hashed once here and never kept.
func adminCredential(admin *config.AdminConfig, iterations int, logger *slog.Logger) (*models.Credential, error) {
	if admin.PasswordHash != "" {
		return &models.Credential{Username: admin.Username, PasswordHash: admin.PasswordHash}, nil
	}

	if err := pkgauth.ValidatePassword(admin.Password); err != nil {
		logger.Warn("ADMIN_PASSWORD does not meet the password policy", slog.Any("error", err))
	}

	hash, err := pkgauth.NewHasher(iterations).Hash(admin.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash admin password: %w", err)
	}
	admin.Password = ""

	return &models.Credential{Username: admin.Username, PasswordHash: hash}, nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
