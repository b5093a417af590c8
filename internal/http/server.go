package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"roadrich/internal/cache"
	applog "roadrich/internal/log"
	"roadrich/internal/middleware/ratelimit"
	"roadrich/internal/middleware/security"
	"roadrich/internal/middleware/trace"
	"roadrich/internal/nav"
	"roadrich/internal/services"
)

// SessionCookie names the cookie holding the navigation session ID.
const SessionCookie = "rr_session"

// Services are the use cases the API exposes.
type Services struct {
	Auth      *services.AuthService
	Expenses  *services.ExpenseService
	Dashboard *services.DashboardService
	Analysis  *services.AnalysisService
	Reports   *services.ReportService
}

// Options tune the server. Zero values take the defaults below.
type Options struct {
	SessionTTL        time.Duration
	MaxSessions       int
	SecureCookies     bool
	RequestsPerMinute int
	Logger            *applog.Logger
	// Ready reports whether dependencies are reachable for /readyz.
	Ready func(ctx context.Context) error
	Clock func() time.Time
	// Caches are expired in the background alongside the session cache.
	Caches map[string]cache.Cleaner
	// TrustedProxies are CIDRs whose X-Forwarded-For header is believed.
	TrustedProxies []string
}

const (
	defaultSessionTTL  = 7 * 24 * time.Hour
	defaultMaxSessions = 10000
	cacheCleanupEvery  = 10 * time.Minute
)

type Server struct {
	http.Server
	svc      Services
	sessions *nav.Sessions
	caches   *cache.Manager
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	logger   *applog.Logger
	opts     Options

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, svc Services, opts Options) *Server {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = defaultSessionTTL
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = defaultMaxSessions
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}

	s := &Server{
		svc:      svc,
		sessions: nav.NewSessions(opts.MaxSessions, opts.SessionTTL),
		caches:   cache.NewManager(),
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RequestsPerMinute}),
		detector: security.NewDetector(),
		logger:   logger,
		opts:     opts,
	}
	for _, cidr := range opts.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", "cidr", cidr, "error", err)
		}
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, logger)

	s.caches.Register("sessions", s.sessions.Cache())
	for name, c := range opts.Caches {
		s.caches.Register(name, c)
	}
	s.caches.StartCleanup(context.Background(), cacheCleanupEvery)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/auth/signup", s.handleSignUp)
	mux.HandleFunc("POST /api/auth/signin", s.handleSignIn)
	mux.HandleFunc("POST /api/auth/signout", s.handleSignOut)
	mux.HandleFunc("GET /api/session", s.handleSession)
	mux.HandleFunc("POST /api/nav", s.handleNav)
	mux.HandleFunc("POST /api/onboarding", s.requireUser(s.handleOnboarding))

	mux.HandleFunc("GET /api/dashboard", s.requireUser(s.handleDashboard))
	mux.HandleFunc("GET /api/analysis", s.requireUser(s.handleAnalysis))
	mux.HandleFunc("GET /api/reports/{year}/{month}", s.requireUser(s.handleReport))

	mux.HandleFunc("GET /api/categories", s.requireUser(s.handleListCategories))
	mux.HandleFunc("POST /api/categories", s.requireUser(s.handleCreateCategory))
	mux.HandleFunc("PUT /api/categories/{id}", s.requireUser(s.handleUpdateCategory))
	mux.HandleFunc("DELETE /api/categories/{id}", s.requireUser(s.handleDeleteCategory))

	mux.HandleFunc("GET /api/expenses", s.requireUser(s.handleListExpenses))
	mux.HandleFunc("POST /api/expenses", s.requireUser(s.handleCreateExpense))
	mux.HandleFunc("PUT /api/expenses/{id}", s.requireUser(s.handleUpdateExpense))
	mux.HandleFunc("DELETE /api/expenses/{id}", s.requireUser(s.handleDeleteExpense))

	s.Addr = addr
	s.Handler = s.middleware(mux)
	s.ReadTimeout = 10 * time.Second
	s.ReadHeaderTimeout = 5 * time.Second
	s.WriteTimeout = 30 * time.Second
	s.IdleTimeout = 60 * time.Second
	s.MaxHeaderBytes = 1 << 16
	return s
}

// middleware wraps h, outermost first: tracing, the request logger,
// security headers, suspicious request logging, then rate limiting of
// writes.
func (s *Server) middleware(h http.Handler) http.Handler {
	limited := s.limiter.Middleware(s.detector.ExtractClientIP, isWrite, func(w http.ResponseWriter, r *http.Request) {
		slog.WarnContext(r.Context(), "Rate limit exceeded",
			applog.FieldComponent, applog.ComponentRateLimit,
			"client_ip", s.detector.ExtractClientIP(r),
			"method", r.Method,
			"path", r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, please try again later").Write(w)
	})(h)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	withLogger := applog.Middleware(s.logger)
	withRequestID := applog.RequestIDMiddleware(func(r *http.Request) string {
		return trace.GetRequestID(r.Context())
	})
	return s.tracer.Middleware(withLogger(withRequestID(headers.Middleware(s.detector.Middleware(limited)))))
}

func isWrite(r *http.Request) bool {
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return true
}

// Sessions exposes the navigation sessions, mainly for tests.
func (s *Server) Sessions() *nav.Sessions {
	return s.sessions
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.opts.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.opts.Ready(ctx); err != nil {
			slog.WarnContext(r.Context(), "Readiness check failed", "error", err)
			ServiceUnavailableError("not ready").Write(w)
			return
		}
	}
	NewJSONResponse().Body(map[string]any{
		"status":        "ready",
		"sessions":      s.sessions.Len(),
		"requests":      s.tracer.Total(),
		"suspicious":    s.detector.Suspicious(),
		"rateLimited":   s.limiter.Rejected(),
		"activeClients": s.limiter.ActiveClients(),
	}).Write(w)
}
