// Package http serves the reporting and beneficiary API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/justinas/alice"

	"billview/internal/cache"
	"billview/internal/core"
	"billview/internal/log"
	"billview/internal/middleware/ratelimit"
	"billview/internal/middleware/security"
	"billview/internal/middleware/trace"
	"billview/internal/report"
	"billview/internal/services"
	"billview/internal/source"
	"billview/internal/storage"
)

// SnapshotLoader provides the record snapshot reports are computed from.
type SnapshotLoader interface {
	Load(ctx context.Context) (source.Snapshot, error)
	Refresh(ctx context.Context) (source.Snapshot, error)
	State() source.State
}

// Beneficiaries is the registration use case.
type Beneficiaries interface {
	List(ctx context.Context) ([]core.Beneficiary, error)
	Submit(ctx context.Context, op core.MutationOp, b core.Beneficiary) (services.SubmitResult, error)
	Mutation(ctx context.Context, mutationID string) (storage.Mutation, error)
}

// OutboxStats reports mutation counts for the health endpoint.
type OutboxStats interface {
	Counts(ctx context.Context) (map[core.MutationStatus]int, error)
}

// Options configures a Server.
type Options struct {
	Addr               string
	CORSAllowedOrigins []string
	MutationRateLimit  int
	TrustedProxies     []string
	ReportCacheSize    int
	ReportCacheTTL     time.Duration
}

// Dependencies are the collaborators behind the routes. Outbox may be nil.
type Dependencies struct {
	Loader        SnapshotLoader
	Beneficiaries Beneficiaries
	Regions       source.RegionLookup
	Outbox        OutboxStats
}

type Server struct {
	http.Server

	deps     Dependencies
	engine   *report.Engine
	memo     *cache.LRUCache[[]report.Group]
	caches   *cache.Manager
	limiter  *ratelimit.Limiter
	tracer   *trace.Middleware
	clientIP *security.ClientIP
	logger   *log.Logger

	shutdownOnce sync.Once
}

// NewServer wires middleware and routes, returning a ready-to-run server.
func NewServer(opts Options, deps Dependencies, logger *log.Logger) (*Server, error) {
	if logger == nil {
		logger = log.Wrap(nil)
	}
	clientIP, err := security.NewClientIP(opts.TrustedProxies...)
	if err != nil {
		return nil, err
	}
	if opts.ReportCacheSize <= 0 {
		opts.ReportCacheSize = 256
	}

	memo := cache.NewLRUCache[[]report.Group](opts.ReportCacheSize, opts.ReportCacheTTL)
	caches := cache.NewManager(logger.Logger)
	caches.Register("report_groups", memo)
	sweep := opts.ReportCacheTTL
	if sweep <= 0 {
		sweep = 5 * time.Minute
	}
	caches.StartCleanup(sweep)

	s := &Server{
		Server: http.Server{
			Addr:              opts.Addr,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		deps:     deps,
		engine:   report.NewEngine(memo),
		memo:     memo,
		caches:   caches,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{Requests: opts.MutationRateLimit, Period: time.Minute}, logger),
		tracer:   trace.NewMiddleware(logger, clientIP.Extract),
		clientIP: clientIP,
		logger:   logger.WithComponent(log.ComponentHTTP),
	}
	s.Handler = s.routes(opts)
	return s, nil
}

func (s *Server) routes(opts Options) http.Handler {
	router := chi.NewRouter()
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Request-ID", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	global := alice.New(s.recoverPanic, s.tracer.Middleware, headers.Middleware).Then
	router.Use(global)

	limited := s.limiter.Middleware(s.clientIP.Extract, func(w http.ResponseWriter, r *http.Request) {
		errorResponse(w, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
	})

	router.Get("/healthz", s.handleHealth)

	v1 := chi.NewRouter()
	v1.Route("/report", func(r chi.Router) {
		r.Get("/options", s.handleOptions)
		r.Get("/chart", s.handleChart)
		r.Get("/detail", s.handleDetail)
		r.Get("/detail/export.xlsx", s.handleExportExcel)
		r.Get("/detail/export.html", s.handleExportHTML)
		r.Post("/refresh", s.handleRefresh)
	})
	v1.Route("/beneficiaries", func(r chi.Router) {
		r.Get("/", s.handleListBeneficiaries)
		r.With(limited).Post("/", s.handleCreateBeneficiary)
		r.With(limited).Put("/{id}", s.handleUpdateBeneficiary)
		r.With(limited).Delete("/{id}", s.handleDeleteBeneficiary)
	})
	v1.Get("/mutations/{id}", s.handleMutationStatus)
	v1.Get("/regions", s.handleRegion)

	router.Mount("/api/v1", v1)
	router.NotFound(func(w http.ResponseWriter, r *http.Request) { notFound(w, "route") })
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		errorResponse(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return router
}

func (s *Server) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				w.Header().Set("Connection", "close")
				s.logger.ErrorContext(r.Context(), "Handler panic", "panic", rec, log.FieldPath, r.URL.Path)
				errorResponse(w, http.StatusInternalServerError, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Shutdown stops background goroutines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
