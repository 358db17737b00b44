package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	applog "smartfinance/internal/log"
	"smartfinance/internal/services"
)

// Options configures a Server. Zero values pick sensible defaults.
type Options struct {
	Logger *applog.Logger

	// Ping checks the storage backend for /readyz. Nil means always ready.
	Ping func(ctx context.Context) error

	// LastSaved reports when a snapshot key was last written, shown by
	// /readyz. Nil omits the check.
	LastSaved func(ctx context.Context, key string) (time.Time, error)

	// RequestsPerMinute bounds mutating requests per client IP.
	RequestsPerMinute int

	// Now replaces time.Now in the rate limiter.
	Now func() time.Time
}

type Server struct {
	http.Server
	ledger      *services.Ledger
	logger      *applog.Logger
	ping        func(ctx context.Context) error
	lastSaved   func(ctx context.Context, key string) (time.Time, error)
	rateLimiter *rateLimiter
	metrics     *securityMetrics
	started     time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server serving the JSON API on addr.
func NewServer(addr string, ledger *services.Ledger, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	s := &Server{
		ledger:      ledger,
		logger:      logger,
		ping:        opts.Ping,
		lastSaved:   opts.LastSaved,
		rateLimiter: newRateLimiter(opts.RequestsPerMinute, opts.Now),
		metrics:     &securityMetrics{},
		started:     time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("DELETE /api/transactions", s.handleClearTransactions)
	mux.HandleFunc("PUT /api/transactions/{id}", s.handleEditTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)
	mux.HandleFunc("POST /api/transactions/{id}/pay", s.handlePayTransaction)
	mux.HandleFunc("POST /api/transactions/{id}/unpay", s.handleUnpayTransaction)
	mux.HandleFunc("PUT /api/groups/{groupId}/amount", s.handleEditGroupAmount)
	mux.HandleFunc("DELETE /api/groups/{groupId}", s.handleDeleteGroup)

	mux.HandleFunc("GET /api/view", s.handleView)
	mux.HandleFunc("GET /api/chart", s.handleChart)
	mux.HandleFunc("GET /api/insights", s.handleInsights)
	mux.HandleFunc("GET /api/features", s.handleFeatures)

	mux.HandleFunc("GET /api/goals", s.handleGetGoals)
	mux.HandleFunc("PUT /api/goals", s.handlePutGoals)
	mux.HandleFunc("GET /api/cards", s.handleListCards)
	mux.HandleFunc("POST /api/cards", s.handleCreateCard)
	mux.HandleFunc("DELETE /api/cards/{id}", s.handleDeleteCard)
	mux.HandleFunc("GET /api/envelopes", s.handleListEnvelopes)
	mux.HandleFunc("POST /api/envelopes", s.handleCreateEnvelope)
	mux.HandleFunc("DELETE /api/envelopes/{id}", s.handleDeleteEnvelope)
	mux.HandleFunc("GET /api/preferences", s.handleGetPreferences)
	mux.HandleFunc("PUT /api/preferences", s.handlePutPreferences)
	mux.HandleFunc("GET /api/theme", s.handleGetTheme)
	mux.HandleFunc("PUT /api/theme", s.handlePutTheme)

	mux.HandleFunc("GET /api/export", s.handleExport)
	mux.HandleFunc("POST /api/import", s.handleImport)
	mux.HandleFunc("POST /api/reset", s.handleReset)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           applog.Middleware(logger)(s.withSecurity(mux)),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// withSecurity tags the request with an id, applies security headers and
// rate-limits mutating requests per client IP.
func (s *Server) withSecurity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := generateRequestID()
		clientIP := extractClientIP(r)

		reqLogger := applog.FromContext(r.Context()).With(
			applog.NewFields().WithRequestID(requestID).WithClientIP(clientIP).ToSlice()...)
		ctx := context.WithValue(r.Context(), applog.LoggerContextKey, reqLogger)
		r = r.WithContext(ctx)

		w.Header().Set("X-Request-ID", requestID)
		setSecurityHeaders(w.Header())

		if detectSuspiciousRequest(r, s.metrics) {
			reqLogger.WarnContext(ctx, "Suspicious request detected",
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path,
				applog.FieldUserAgent, r.Header.Get("User-Agent"))
		}

		if r.Method != http.MethodGet && r.Method != http.MethodHead && !s.rateLimiter.allow(clientIP, s.metrics) {
			reqLogger.WarnContext(ctx, "Rate limit exceeded", applog.FieldMethod, r.Method, applog.FieldPath, r.URL.Path)
			TooManyRequestsError("60").Write(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Shutdown stops the rate limiter and gracefully shuts the server down.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// writeError maps err onto a response and logs unexpected failures.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	resp := ErrorFor(err)
	if resp.statusCode >= http.StatusInternalServerError {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			applog.FieldPath, r.URL.Path, applog.FieldError, err.Error())
	}
	resp.Write(w)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	NewJSONResponse().Status(status).Body(v).Write(w)
}
