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

	"careerclips-backend/internal/config"
	"careerclips-backend/internal/database"
	"careerclips-backend/internal/handlers"
	"careerclips-backend/internal/middleware"
	"careerclips-backend/internal/repository"
	"careerclips-backend/internal/router"
	"careerclips-backend/internal/services"
	"careerclips-backend/internal/websocket"
	"careerclips-backend/internal/worker"
)

func main() {
	log.Println("🚀 Starting CareerClips Backend...")
	ctx := context.Background()

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL, database.DefaultPoolSettings)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(ctx, pool, cfg.MigrationsDir); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Initialize Repositories ────
	videoRepo := repository.NewVideoRepo(pool)
	signalRepo := repository.NewUserSignalRepo(pool)
	embeddingRepo := repository.NewEmbeddingRepo(pool)
	jobRepo := repository.NewJobRepo(pool)
	embeddingCache := repository.NewEmbeddingCache(redisClients.PubSub, time.Duration(cfg.ProfileEmbeddingTTLMinutes)*time.Minute)

	// ──── Step 5: Initialize Gemini Client ────
	youtubeService := services.NewYouTubeService()
	geminiService, err := services.NewGeminiService(
		cfg.GeminiAPIKey,
		cfg.GeminiModel,
		cfg.GeminiEmbeddingModel,
		cfg.GeminiConcurrentReqs,
		youtubeService,
	)
	if err != nil {
		log.Fatalf("✗ Gemini client initialization failed: %v", err)
	}
	defer geminiService.Close()
	log.Printf("✓ Gemini client initialized (%s)", cfg.GeminiModel)

	// ──── Initialize Services ────
	taxonomy := services.DefaultTaxonomy()
	classifier := services.NewCategoryClassifier(taxonomy, cfg.DefaultCategory)
	analyzer := services.NewContentAnalyzer(geminiService, cfg.AnalyzerMaxPromptTokens)
	pipeline := services.NewEnrichmentPipeline(videoRepo, youtubeService, geminiService, analyzer, classifier)
	indexer := services.NewVideoIndexer(videoRepo, geminiService, embeddingRepo, cfg.GeminiEmbeddingModel)
	publisher := services.NewStatusPublisher(redisClients.PubSub)

	engine := services.NewRecommendationEngine(
		services.RecommendationDeps{
			Catalog:    videoRepo,
			Signals:    signalRepo,
			Embeddings: embeddingRepo,
			Embedder:   geminiService,
			Completer:  geminiService,
			Cache:      embeddingCache,
		},
		services.RecommendationConfig{
			Taxonomy:               taxonomy,
			SemanticCandidateLimit: cfg.SemanticCandidateLimit,
			SemanticConcurrency:    cfg.GeminiConcurrentReqs,
			MinProfileTextLength:   cfg.MinProfileTextLength,
		},
	)

	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	ingestLimiter := middleware.NewRateLimiter(redisClients.PubSub, "ingest", cfg.IngestRateLimitPerMinute, time.Minute)
	queue := worker.NewQueue(redisClients.Queue)

	// ──── Initialize Handlers ────
	videoHandler := handlers.NewVideoHandler(videoRepo, jobRepo, queue, youtubeService, taxonomy)
	recommendationHandler := handlers.NewRecommendationHandler(engine)
	signalHandler := handlers.NewSignalHandler(signalRepo, videoRepo)
	jobHandler := handlers.NewJobHandler(jobRepo)

	// ──── Step 6: Start Job Worker Pool ────
	workerPool := worker.NewPool(redisClients.Queue, pipeline, indexer, jobRepo, publisher, cfg.WorkerCount)
	workerPool.Start()
	log.Printf("✓ Worker pool started (%d goroutines)", cfg.WorkerCount)

	staleSweeper := services.NewStaleSweeper(videoRepo, time.Duration(cfg.StaleProcessingMinutes)*time.Minute)
	staleSweeper.Start()

	// ──── Step 7: Start WebSocket Hub ────
	wsHub := websocket.NewHub(redisClients.PubSub, jwtAuth, services.UserChannel)
	log.Println("✓ WebSocket hub started")

	// ──── Step 8: Start HTTP Server ────
	r := router.New(
		jwtAuth,
		ingestLimiter,
		videoHandler,
		recommendationHandler,
		signalHandler,
		jobHandler,
		wsHub,
		map[string]router.HealthChecker{
			"postgres": pool.Ping,
			"redis":    func(ctx context.Context) error { return redisClients.Queue.Ping(ctx).Err() },
		},
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)

		wsHub.Close()
		staleSweeper.Stop()
		workerPool.Stop()
	}()

	log.Printf("✓ CareerClips Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
	<-done
	log.Println("Shutdown complete")
}
