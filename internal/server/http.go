package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// HTTPOptions configures the HTTP handler.
type HTTPOptions struct {
	// AuthToken guards the JSON write API. Empty disables auth.
	AuthToken string

	// CORSOrigins lists the origins allowed to call the JSON API.
	CORSOrigins []string
}

// NewHTTPHandler returns an http.Handler with all routes registered.
func (s *CalendarServer) NewHTTPHandler(opts HTTPOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Last-Event-ID", "X-Givecal-Client"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/", s.handleCalendarPage)
	r.Get("/cells/{id}", s.handleDialogPage)
	r.Post("/cells/{id}/pledge", s.handlePledgeForm)

	requireToken := func(next http.Handler) http.Handler {
		return AuthMiddleware(opts.AuthToken, next)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.With(requireToken).Get("/viewers", s.handleViewers)
		r.Get("/grid", s.handleGetGrid)
		r.Get("/share", s.handleGetShare)
		r.Post("/links", s.handleComposeLinks)

		r.Route("/pledges", func(r chi.Router) {
			r.Get("/", s.handleListPledges)
			r.Get("/stream", s.handleEventStream)
			r.Get("/{id}", s.handleGetPledge)
			r.With(requireToken).Put("/{id}", s.handlePutPledge)
		})
	})

	return r
}

// handleHealth handles GET /v1/health.
func (s *CalendarServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"mode":          s.board.Mode().String(),
		"last_event_id": s.sseHub.lastID(),
		"viewers":       s.viewers.Watching(),
	})
}

// handleViewers handles GET /v1/viewers. Viewer keys can be addresses, so
// the roster sits behind the write token.
func (s *CalendarServer) handleViewers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"watching": s.viewers.Watching(),
		"viewers":  s.viewers.Roster(),
	})
}

// requestLogger logs one line per request with slog.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func jsonBytes(v any) ([]byte, error) {
	return json.Marshal(v)
}
