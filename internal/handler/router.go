package handler

import (
	"cmp"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/pkordes/travel-journal/internal/middleware"
	"github.com/pkordes/travel-journal/spec"
)

// multipartOverhead is the slack allowed on top of MaxRestoreBytes for the
// multipart framing around an uploaded archive.
const multipartOverhead = 1 << 20

// Identity headers used when RouterConfig leaves them empty.
const (
	DefaultUserHeader = "X-Authenticated-User"
	DefaultRoleHeader = "X-Authenticated-Role"
)

// RouterConfig carries the cross-cutting settings of the HTTP surface.
type RouterConfig struct {
	Logger      *slog.Logger
	CORSOrigins []string
	UserHeader  string
	RoleHeader  string
	// Metrics serves GET /metrics when set.
	Metrics http.Handler
}

// NewRouter builds the chi router for s.
//
// Middleware is applied in order: RequestID → RealIP → Logger → Recoverer → CORS.
// Trip and restore routes additionally require an identity; the restore route
// caps the request body.
func NewRouter(s *Server, cfg RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = s.log
	}
	userHeader := cmp.Or(cfg.UserHeader, DefaultUserHeader)
	roleHeader := cmp.Or(cfg.RoleHeader, DefaultRoleHeader)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(log))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins, userHeader, roleHeader))

	r.Get("/healthz", s.GetHealth)
	r.Get("/openapi.yaml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(spec.OpenAPI)
	})
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.NewIdentity(userHeader, roleHeader))

		r.Get("/trips/{id}/export", s.ExportTrip)
		r.Get("/trips/{id}/export/size", s.EstimateExport)

		restore := r.With()
		if s.maxRestoreBytes > 0 {
			restore = r.With(middleware.NewMaxBodySizeHandler(s.maxRestoreBytes + multipartOverhead))
		}
		restore.Post("/restore", s.RestoreArchive)
	})

	return r
}
