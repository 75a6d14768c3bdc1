package server

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/arcana-labs/arcana-backend/internal/handlers"
	"github.com/arcana-labs/arcana-backend/internal/middleware"
	"github.com/arcana-labs/arcana-backend/internal/platform/envutil"
)

type RouterConfig struct {
	SubjectMiddleware *middleware.SubjectMiddleware
	ReadingHandler    *handlers.ReadingHandler
	PersonaHandler    *handlers.PersonaHandler
	CardHandler       *handlers.CardHandler
	SpreadHandler     *handlers.SpreadHandler
	MetricsHandler    http.Handler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// Cors
	origins := strings.Split(envutil.String("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173"), ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "X-User-ID"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)
	if cfg.MetricsHandler != nil {
		router.GET("/metrics", gin.WrapH(cfg.MetricsHandler))
	}

	api := router.Group("/api")
	api.Use(cfg.SubjectMiddleware.ResolveSubject())
	{
		// Readings
		api.POST("/readings", cfg.ReadingHandler.StartReading)
		api.GET("/readings/:sessionID", cfg.ReadingHandler.GetState)
		api.DELETE("/readings/:sessionID", cfg.ReadingHandler.Reset)
		api.POST("/readings/:sessionID/chat", cfg.ReadingHandler.Chat)
		// Catalog
		api.GET("/cards", cfg.CardHandler.ListCards)
		api.POST("/cards/draw", cfg.CardHandler.Draw)
		api.GET("/spreads", cfg.SpreadHandler.ListSpreads)
		api.GET("/spreads/:spreadID", cfg.SpreadHandler.GetSpread)
		// Subject
		api.GET("/me/persona", cfg.PersonaHandler.GetPersona)
		api.POST("/me/feedback", cfg.PersonaHandler.Feedback)
		api.GET("/me/spreads", cfg.SpreadHandler.ListMine)
		api.GET("/me/readings", cfg.ReadingHandler.RecentReadings)
		api.GET("/me/patterns", cfg.ReadingHandler.Patterns)
		api.DELETE("/me/data", cfg.ReadingHandler.ClearUserData)
	}

	return router
}
