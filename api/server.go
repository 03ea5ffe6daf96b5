/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     zerolog access log (method, path, status, bytes, duration)
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the dashboard front end

ROUTE GROUPS:
  /api/sessions/*       Planning sessions (matrix, practical view, export)
  /api/scenarios/*      Saved scenarios
  /api/demos            Demo datasets
  /api/health           Liveness

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(requestLogger(h.Log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": h.Sessions.Len()})
		})

		r.Get("/demos", h.ListDemos)

		// Session routes
		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", h.ListSessions)
			r.Post("/", h.CreateSession)
			r.Post("/demo", h.LoadDemo)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetSession)
				r.Delete("/", h.DeleteSession)
				r.Get("/export", h.ExportSession)

				r.Get("/matrix", h.GetMatrix)
				r.Put("/matrix/rates", h.SetMatrixRate)
				r.Post("/matrix/distribute", h.DistributeMatrix)
				r.Post("/matrix/recompute", h.RecomputeMatrix)
				r.Get("/aggregated", h.GetAggregated)
				r.Get("/breakdown", h.GetBreakdown)
				r.Get("/budget", h.GetBudget)

				r.Get("/practical", h.GetPractical)
				r.Put("/practical/rates", h.SetPracticalRate)
				r.Post("/practical/distribute", h.DistributePractical)
				r.Post("/practical/recompute", h.RecomputePractical)
				r.Post("/practical/company-total", h.ApplyCompanyTotal)
				r.Post("/practical/reseed", h.ReseedPractical)

				r.Post("/scenarios", h.SaveScenario)
				r.Post("/scenarios/{scenarioID}/load", h.LoadScenario)
			})
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Delete("/", h.ResetScenarios)
			r.Get("/{scenarioID}", h.GetScenario)
			r.Delete("/{scenarioID}", h.DeleteScenario)
		})
	})

	return r
}

// requestLogger writes one zerolog line per request.
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				ev := logger.Info()
				if status >= http.StatusInternalServerError {
					ev = logger.Error()
				}
				ev.Str("request_id", middleware.GetReqID(r.Context())).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", status).
					Int("bytes", ww.BytesWritten()).
					Dur("duration", time.Since(start)).
					Msg("request")
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
