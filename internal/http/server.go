package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"adspend/internal/cache"
	"adspend/internal/dashboard"
	applog "adspend/internal/log"
	"adspend/internal/metrics"
	"adspend/internal/middleware/ratelimit"
	"adspend/internal/middleware/security"
	"adspend/internal/middleware/trace"
	appweb "adspend/web"
)

const (
	cacheCleanupInterval = 10 * time.Minute
	staticMaxAge         = 3600
)

// Options configures a Server. Zero values fall back to defaults.
type Options struct {
	Metrics        *metrics.Metrics
	Logger         *applog.Logger
	RateLimit      ratelimit.Config
	TrustedProxies []string
	SuggestLimit   int
}

// Server is the dashboard HTTP server.
type Server struct {
	http.Server

	ctrl      *dashboard.Controller
	templates *template.Template
	metrics   *metrics.Metrics
	logger    *applog.Logger

	limiter  *ratelimit.Limiter
	detector *security.Detector
	caches   *cache.Manager

	suggestLimit int
	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(addr string, ctrl *dashboard.Controller, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	if opts.RateLimit.RequestsPerMinute <= 0 {
		opts.RateLimit = ratelimit.DefaultConfig()
	}
	if opts.SuggestLimit <= 0 {
		opts.SuggestLimit = dashboard.DefaultSuggestLimit
	}

	s := &Server{
		ctrl:         ctrl,
		metrics:      opts.Metrics,
		logger:       logger.WithComponent(applog.ComponentHTTP),
		limiter:      ratelimit.NewLimiter(opts.RateLimit),
		detector:     security.NewDetector(),
		caches:       cache.NewManager(),
		suggestLimit: opts.SuggestLimit,
	}
	for _, cidr := range opts.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			s.logger.Warn("Ignoring invalid trusted proxy", "cidr", cidr, applog.FieldError, err)
		}
	}

	s.caches.Register(ctrl.ViewCache())
	s.caches.StartCleanup(cacheCleanupInterval)

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates", applog.FieldError, err)
	}
	s.templates = t

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	tm := trace.NewMiddleware(s.logger, s.detector.ExtractClientIP, s.detector.IsSuspicious, s.metrics)

	r := chi.NewRouter()
	r.Use(tm.Middleware)
	r.Use(security.Headers(security.DefaultHeadersConfig()))

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.With(security.StaticAssetMiddleware(staticMaxAge)).Handle("/static/*", static)
	} else {
		s.logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	r.Get("/", s.handleIndex)
	r.Route("/ui", func(r chi.Router) {
		r.Get("/dashboard", s.handleDashboard)
		r.Get("/suggest", s.handleSuggest)
		r.With(s.limiter.Middleware(s.detector.ExtractClientIP, s.handleRateLimited)).
			Post("/refresh", s.handleRefresh)
	})
	r.Route("/api", func(r chi.Router) {
		r.Get("/summary", s.handleSummary)
	})

	return r
}

// Shutdown stops background routines and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
