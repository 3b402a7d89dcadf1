package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"quantquery/pkg/quantquery"
)

// NewRouter builds the HTTP API router. staticDir, when non-empty, is
// served read-only under /static/visuals/ for generated charts.
func NewRouter(core *quantquery.Core, staticDir string) http.Handler {
	logger := slog.Default()
	if core != nil {
		if coreLogger := core.Logger(); coreLogger != nil {
			logger = coreLogger
		}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	// Compress sits outside the logging middlewares so handlers receive the
	// logging ResponseWriter; chi's compress wrapper hides SetErrorMessage.
	r.Use(middleware.Compress(5))
	r.Use(requestLoggingMiddleware(logger))
	r.Use(recoveryLoggingMiddleware(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	h := &handler{core: core}

	r.Get("/api/health", h.health)
	r.Post("/api/analysis", h.runAnalysis)
	r.Get("/api/analysis/history", h.getAnalysisHistory)

	if staticDir != "" {
		r.Handle("/static/visuals/*", chartFileServer(staticDir))
	}

	return r
}

type handler struct {
	core *quantquery.Core
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// chartFileServer serves rendered chart files. Charts are immutable once
// written, but filenames are random, so caching is left to the client.
func chartFileServer(dir string) http.Handler {
	fileServer := http.StripPrefix("/static/visuals/", http.FileServer(http.Dir(dir)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		fileServer.ServeHTTP(w, r)
	})
}
