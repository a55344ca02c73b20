// internal/api/router.go
package api

import (
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"netwatch/internal/config"
	"netwatch/internal/database"
	"netwatch/internal/metrics"
	"netwatch/internal/view"
)

// NewRouter registers every API route. m may be nil when metrics are disabled.
func NewRouter(cfg *config.Config, db *database.DB, l Loader, m *metrics.Metrics, opts view.Options) *mux.Router {
	router := mux.NewRouter()

	var observer RenderObserver
	if m != nil {
		observer = m
	}

	NewLoadHandler(db, l).RegisterRoutes(router)
	NewViewHandler(l, opts, observer).RegisterRoutes(router)
	NewOverrideHandler(db, l).RegisterRoutes(router)
	NewStatusHandler(db, l, cfg).RegisterRoutes(router)

	if m != nil && cfg.Advanced.MetricsEnabled {
		router.Handle(cfg.Advanced.MetricsEndpoint, m.Handler()).Methods("GET")
	}

	return router
}

// WithCORS wraps h with the configured CORS policy
func WithCORS(cfg *config.Config, h http.Handler) http.Handler {
	corsMiddleware := handlers.CORS(
		handlers.AllowedOrigins(cfg.Server.AllowedOrigins),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)
	return corsMiddleware(h)
}
