package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"guidinghand/pkg/platform/middleware/request"
	"guidinghand/pkg/platform/middleware/requesttime"
)

const (
	requestTimeout = 30 * time.Second
	maxBodyBytes   = 1 << 20
)

// Registrar is implemented by every domain handler and the health handler.
type Registrar interface {
	Register(r chi.Router)
}

// RouterConfig carries the cross-cutting settings of the public router.
type RouterConfig struct {
	AllowedOrigins []string
	Metrics        *request.Metrics
	// Clock overrides the per-request pinned time. Nil means time.Now.
	Clock func() time.Time
}

// NewRouter wires the middleware stack, /metrics, and every handler.
// Handlers stay thin and delegate to their domain services.
func NewRouter(cfg RouterConfig, logger *slog.Logger, handlers ...Registrar) http.Handler {
	r := chi.NewRouter()

	r.Use(request.Recovery(logger))
	r.Use(request.RequestID)
	r.Use(request.ClientIP)
	r.Use(request.Logger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(chimiddleware.Timeout(requestTimeout))
	r.Use(request.BodyLimit(maxBodyBytes))
	r.Use(request.ContentTypeJSON)
	if cfg.Clock != nil {
		r.Use(requesttime.WithClock(cfg.Clock))
	} else {
		r.Use(requesttime.Middleware)
	}
	r.Use(request.Latency(cfg.Metrics))

	r.Handle("/metrics", promhttp.Handler())
	for _, h := range handlers {
		h.Register(r)
	}
	return r
}
