package main

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arcana-labs/arcana-backend/internal/cache"
	"github.com/arcana-labs/arcana-backend/internal/db"
	"github.com/arcana-labs/arcana-backend/internal/handlers"
	"github.com/arcana-labs/arcana-backend/internal/jobs"
	"github.com/arcana-labs/arcana-backend/internal/metrics"
	"github.com/arcana-labs/arcana-backend/internal/middleware"
	"github.com/arcana-labs/arcana-backend/internal/platform/envutil"
	"github.com/arcana-labs/arcana-backend/internal/platform/logger"
	"github.com/arcana-labs/arcana-backend/internal/platform/openai"
	"github.com/arcana-labs/arcana-backend/internal/repos"
	"github.com/arcana-labs/arcana-backend/internal/server"
	"github.com/arcana-labs/arcana-backend/internal/services"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Cache
	log.Info("Setting up cache from main...")
	store, err := cache.NewRedis(log)
	if err != nil {
		log.Warn("Redis unavailable, falling back to in-process cache", "error", err)
		store = cache.NewMemory()
	}

	// Metrics
	collector := metrics.NewCollector()

	// Repos
	log.Info("Setting up Repos from main...")
	themeRepo := repos.NewThemeRepo(thePG, log)
	cardRepo := repos.NewCardRepo(thePG, log)
	spreadRepo := repos.NewSpreadRepo(thePG, log)
	userThemeRepo := repos.NewUserThemeRepo(thePG, log)

	// Services
	log.Info("Setting up Services from main...")
	openaiClient, err := openai.NewClient(log)
	if err != nil {
		log.Error("Could not init OpenAIClient", "error", err)
		os.Exit(1)
	}
	catalogService := services.NewCatalogService(log, store, collector, cardRepo, themeRepo, spreadRepo)
	if err := catalogService.SeedDefaults(context.Background()); err != nil {
		log.Warn("Seeding default spreads failed", "error", err)
	}
	personaService := services.NewPersonaService(thePG, log, collector, userThemeRepo, catalogService)
	cardSelector := services.NewCardSelector(log, collector, catalogService, openaiClient)
	readingService := services.NewReadingService(log, collector, store, catalogService, cardSelector, personaService, openaiClient, userThemeRepo)

	// Background decay
	decayWorker := jobs.NewDecayWorker(log, personaService)
	decayWorker.Start(context.Background())

	// Handlers
	log.Info("Setting up handlers from main...")
	readingHandler := handlers.NewReadingHandler(log, readingService)
	personaHandler := handlers.NewPersonaHandler(personaService)
	cardHandler := handlers.NewCardHandler(catalogService, cardSelector, personaService)
	spreadHandler := handlers.NewSpreadHandler(catalogService)

	// Middleware
	subjectMiddleware := middleware.NewSubjectMiddleware(log)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		SubjectMiddleware: subjectMiddleware,
		ReadingHandler:    readingHandler,
		PersonaHandler:    personaHandler,
		CardHandler:       cardHandler,
		SpreadHandler:     spreadHandler,
		MetricsHandler:    promhttp.HandlerFor(collector.Registry(), promhttp.HandlerOpts{}),
	})

	port := envutil.String("PORT", "8080")
	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Warn("Server failed", "error", err)
	}
}
