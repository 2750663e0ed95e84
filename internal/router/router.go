package router

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"careerclips-backend/internal/handlers"
	"careerclips-backend/internal/middleware"
	"careerclips-backend/internal/websocket"
)

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker func(ctx context.Context) error

func New(
	jwtAuth *middleware.JWTAuth,
	ingestLimiter *middleware.RateLimiter,
	videoHandler *handlers.VideoHandler,
	recommendationHandler *handlers.RecommendationHandler,
	signalHandler *handlers.SignalHandler,
	jobHandler *handlers.JobHandler,
	wsHub *websocket.Hub,
	health map[string]HealthChecker,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)

	r.Get("/health", healthHandler(health))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Video Routes ────
		r.Route("/videos", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.With(ingestLimiter.Middleware).Post("/", videoHandler.Ingest)
			r.Get("/{id}", videoHandler.Get)
			r.With(ingestLimiter.Middleware).Post("/{id}/reprocess", videoHandler.Reprocess)
			r.Put("/{id}/feedback", signalHandler.SetFeedback)
			r.Post("/{id}/watch", signalHandler.RecordWatch)
		})

		// ──── Job Routes ────
		r.Route("/jobs", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/{id}", jobHandler.Get)
		})

		// ──── Recommendation Routes ────
		r.Route("/recommendations", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/", recommendationHandler.List)
			r.Get("/enhanced", recommendationHandler.ListEnhanced)
		})

		// ──── Profile Routes ────
		r.Route("/profile", func(r chi.Router) {
			r.Use(jwtAuth.Middleware)
			r.Get("/", signalHandler.GetProfile)
			r.Put("/", signalHandler.UpdateProfile)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}

func healthHandler(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := `{"status":"ok"}`
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				body = `{"status":"degraded","failing":"` + name + `"}`
				break
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}
}
