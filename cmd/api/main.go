package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/pprof"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/sirupsen/logrus"

	"github.com/vidshare/api/internal/auth"
	"github.com/vidshare/api/internal/comments"
	"github.com/vidshare/api/internal/config"
	"github.com/vidshare/api/internal/logging"
	"github.com/vidshare/api/internal/metrics"
	"github.com/vidshare/api/internal/middleware"
	"github.com/vidshare/api/internal/routes"
	"github.com/vidshare/api/internal/secrets"
	"github.com/vidshare/api/internal/store"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger := logging.New(cfg)

	// Initialize metrics
	if err := metrics.Init(); err != nil {
		logger.WithError(err).Fatal("Failed to initialize metrics")
	}

	ctx := context.Background()

	// Initialize tracing
	tracingShutdown, err := middleware.InitTracing(cfg, logging.GetVersion(), logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to setup tracing")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracingShutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("Failed to shutdown tracing")
		}
	}()

	// Secrets Manager is only needed when a secret is sourced from it
	var secretGetter middleware.SecretGetter
	if cfg.JWT.SecretFromSecrets || cfg.Redis.PasswordFromSecrets {
		client, err := secrets.NewClient(&cfg.AWS, logger)
		if err != nil {
			logger.WithError(err).Fatal("Failed to initialize Secrets Manager client")
		}
		secretGetter = client
	}

	jwtSecret := cfg.JWT.Secret
	if cfg.JWT.SecretFromSecrets {
		jwtSecret, err = secretGetter.GetString(ctx, cfg.JWTSecretName())
		if err != nil {
			logger.WithError(err).Fatal("Failed to resolve JWT secret")
		}
		logger.Info("JWT secret fetched from AWS Secrets Manager")
	}

	tokens, err := auth.NewTokenService(jwtSecret, cfg.JWT.Issuer)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize token service")
	}

	hasher, err := auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize password hasher")
	}

	stores, err := store.New(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize store")
	}
	defer stores.Close()

	authenticator, err := auth.NewAuthenticator(stores.Users, hasher, tokens, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize authenticator")
	}

	commentService := comments.NewService(stores.Comments, logger)

	// Initialize middleware manager
	middlewareManager, err := middleware.NewManager(ctx, cfg, auth.NewAccessGate(tokens), secretGetter, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize middleware manager")
	}
	defer func() {
		if err := middlewareManager.Close(); err != nil {
			logger.WithError(err).Error("Failed to close middleware resources")
		}
	}()

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Vidshare API",
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorHandler: routes.ErrorHandler(logger),
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORS.AllowOrigins,
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,token,Idempotency-Key,X-Request-ID",
		MaxAge:       86400,
	}))
	app.Use(otelfiber.Middleware())

	if cfg.Server.Environment != "production" {
		// pprof at /debug/pprof/
		app.Use(pprof.New())
	}

	routes.Setup(app, routes.Dependencies{
		Config:        cfg,
		Logger:        logger,
		Middleware:    middlewareManager,
		Stores:        stores,
		Authenticator: authenticator,
		Comments:      commentService,
	})

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		logger.Info("Gracefully shutting down...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.WithError(err).Error("Server shutdown failed")
		}
	}()

	logger.WithFields(logrus.Fields{
		"port":   cfg.Server.Port,
		"store":  stores.Driver,
		"redis":  cfg.Redis.Enabled,
		"issuer": cfg.JWT.Issuer,
	}).Info("Starting Vidshare API server")
	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		logger.WithError(err).Fatal("Server failed to start")
	}
}
