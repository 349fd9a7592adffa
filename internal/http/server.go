package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/middleware/ratelimit"
	"ledger/internal/middleware/security"
	"ledger/internal/middleware/trace"
	"ledger/internal/services"
	"ledger/internal/storage"
)

// MovementAPI is what the handlers need from the service layer.
type MovementAPI interface {
	CreateMovement(ctx context.Context, m core.Movement) (core.Movement, error)
	GetMovement(ctx context.Context, id int64) (core.Movement, error)
	UpdateMovement(ctx context.Context, m core.Movement) error
	DeleteMovement(ctx context.Context, id int64) error
	ListMovements(ctx context.Context, f storage.Filter) ([]core.Movement, error)
	Dashboard(ctx context.Context) (services.Dashboard, error)
	Ping(ctx context.Context) error
}

// Config holds what the server needs besides the service.
type Config struct {
	Addr               string
	ShowDebugErrors    bool
	RateLimitPerMinute int
	Engine             storage.Engine
	DatabaseURL        string
	Startup            storage.StartupStatus
}

type Server struct {
	http.Server
	api         MovementAPI
	logger      *log.Logger
	cfg         Config
	errors      errorResponder
	rateLimiter *ratelimit.Limiter

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(cfg Config, api MovementAPI, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.FromContext(context.Background())
	}

	limiterCfg := ratelimit.DefaultConfig()
	if cfg.RateLimitPerMinute > 0 {
		limiterCfg.RequestsPerMinute = cfg.RateLimitPerMinute
		limiterCfg.Burst = cfg.RateLimitPerMinute
	}

	s := &Server{
		api:         api,
		logger:      logger.WithComponent(log.ComponentHTTP),
		cfg:         cfg,
		errors:      errorResponder{showDebug: cfg.ShowDebugErrors},
		rateLimiter: ratelimit.NewLimiter(limiterCfg),
	}

	s.Server = http.Server{
		Addr:         cfg.Addr,
		Handler:      s.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(trace.NewMiddleware(s.logger, security.ExtractClientIP).Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.rateLimiter.Middleware(security.ExtractClientIP, s.handleRateLimited,
		http.MethodPost, http.MethodPut, http.MethodDelete))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("Ruta no encontrada").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "Método no permitido").Write(w)
	})

	r.Get("/", s.handleDashboard)
	r.Get("/health", s.handleHealth)
	r.Get("/healthz", handleLiveness)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/movements", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Post("/income", s.handleCreate(core.Income))
		r.Post("/expense", s.handleCreate(core.Expense))

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGet)
			r.Post("/", s.handleUpdate)
			r.Put("/", s.handleUpdate)
			r.Delete("/", s.handleDelete)
			r.Post("/delete", s.handleDelete)
		})
	})

	return r
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	TooManyRequestsError().Write(w)
}

// Shutdown gracefully shuts down the server and the rate limiter cleanup.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}
