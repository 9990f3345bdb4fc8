package api

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Conceptual-Machines/maestro-api/internal/api/handlers"
	apimiddleware "github.com/Conceptual-Machines/maestro-api/internal/api/middleware"
	"github.com/Conceptual-Machines/maestro-api/internal/config"
	"github.com/Conceptual-Machines/maestro-api/internal/metrics"
	"github.com/Conceptual-Machines/maestro-api/internal/middleware"
	"github.com/Conceptual-Machines/maestro-api/internal/services"
)

func SetupRouter(db *gorm.DB, cfg *config.Config, cloudwatch *metrics.Client, version string) (*gin.Engine, error) {
	router := gin.New()

	// Recovery middleware (must be first)
	router.Use(apimiddleware.RecoverWithSentry())

	// Sentry middleware for error tracking
	router.Use(apimiddleware.SentryMiddleware())

	// Request tracking and structured logging
	router.Use(apimiddleware.RequestTracking())

	// CORS middleware
	router.Use(apimiddleware.CORS())

	// Services shared by the handlers below
	grammarService, err := services.NewGrammarService(db)
	if err != nil {
		return nil, err
	}
	parseService := services.NewParseService(grammarService, db, cfg)
	clarifierService := services.NewClarifierService(parseService, cfg)

	// Health check
	healthHandler := handlers.NewHealthHandler(db)
	router.GET("/health", healthHandler.HealthCheck)

	// Metrics endpoint
	metricsHandler := handlers.NewMetricsHandler(version, grammarService)
	router.GET("/api/metrics", metricsHandler.GetMetrics)

	// Identity middleware for the API groups. In gateway mode the edge
	// proxy has already authenticated the caller; in jwt mode tokens and
	// API keys are checked here; in none mode everyone is anonymous.
	var identity gin.HandlerFunc
	switch {
	case cfg.IsGatewayMode():
		identity = apimiddleware.GatewayAuth()
	case cfg.IsJWTMode():
		identity = middleware.JWTAuth(db, cfg)
	default:
		identity = apimiddleware.NoAuth()
	}

	// Parsing API v1
	v1 := router.Group("/api/v1")
	v1.Use(identity)
	{
		parseHandler := handlers.NewParseHandler(parseService, cloudwatch)
		v1.POST("/parse", parseHandler.Parse)
		v1.POST("/parse/debug", parseHandler.ParseDebug)
		v1.GET("/parse/history", parseHandler.History)

		clarifyHandler := handlers.NewClarifyHandler(clarifierService, cloudwatch)
		v1.POST("/clarify", clarifyHandler.Clarify)

		// Grammar management; mutations are admin only
		grammarsHandler := handlers.NewGrammarsHandler(grammarService)
		v1.GET("/grammars", grammarsHandler.List)
		v1.GET("/grammars/:name", grammarsHandler.Get)
		v1.POST("/grammars", middleware.AdminRequired(cfg), grammarsHandler.Upload)
		v1.DELETE("/grammars/:name", middleware.AdminRequired(cfg), grammarsHandler.Delete)
	}

	// Admin API routes (admin only)
	admin := router.Group("/api/admin")
	admin.Use(identity, middleware.AdminRequired(cfg))
	{
		adminHandler := handlers.NewAdminHandler(db)
		admin.POST("/keys", adminHandler.CreateKey)
		admin.GET("/keys", adminHandler.ListKeys)
		admin.DELETE("/keys/:id", adminHandler.RevokeKey)
	}

	return router, nil
}
