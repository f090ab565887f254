package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stylara/outfit-engine/internal/config"
	"github.com/stylara/outfit-engine/internal/database"
	"github.com/stylara/outfit-engine/internal/handlers"
	"github.com/stylara/outfit-engine/internal/middleware"
	"github.com/stylara/outfit-engine/internal/services"
	"github.com/stylara/outfit-engine/internal/validation"
)

type App struct {
	config   *config.Config
	logger   *logrus.Logger
	db       *database.Database
	services *services.Services
	handlers *handlers.Handlers
	router   *gin.Engine
}

func New(cfg *config.Config) (*App, error) {
	app := &App{
		config: cfg,
		logger: setupLogger(cfg),
	}

	db, err := database.New(cfg, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	svcs, err := services.New(cfg, app.logger, db)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}
	app.services = svcs

	app.handlers = handlers.New(app.logger, svcs)

	if err := app.setupRouter(); err != nil {
		return nil, fmt.Errorf("failed to set up router: %w", err)
	}

	return app, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("Shutting down application...")

	if err := a.services.Publisher.Close(); err != nil {
		a.logger.WithError(err).Error("Error closing event publisher")
	}

	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).Error("Error closing database connections")
		return err
	}

	return nil
}

func setupLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}

func (a *App) setupRouter() error {
	if a.config.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	schemaValidator, err := validation.NewSchemaValidator()
	if err != nil {
		return err
	}
	validationMiddleware := middleware.NewValidationMiddleware(schemaValidator)

	router := gin.New()

	// Global middleware
	router.Use(middleware.RequestLogger(a.logger))
	router.Use(middleware.Recovery(a.logger))
	router.Use(middleware.CORS(a.config))

	// Health and metrics endpoints (no auth required)
	router.GET("/health", a.handlers.Health.Check)
	router.GET("/metrics", a.handlers.Metrics.Scrape)

	// API routes
	api := router.Group("/api/v1")
	{
		api.Use(middleware.Authenticate(a.services.Auth, a.logger))
		api.Use(middleware.RateLimit(a.services.RateLimit, a.logger))

		outfits := api.Group("/outfits")
		{
			outfits.POST("/generate",
				validationMiddleware.ValidateGenerateOutfit(),
				a.handlers.Outfit.Generate)
			outfits.POST("/feedback",
				validationMiddleware.ValidateOutfitFeedback(),
				a.handlers.Outfit.Feedback)
		}
	}

	a.router = router
	return nil
}
