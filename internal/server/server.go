package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/bunseokbot/iban-validator/internal/audit"
	"github.com/bunseokbot/iban-validator/internal/detector"
	"github.com/bunseokbot/iban-validator/internal/metrics"
	"github.com/bunseokbot/iban-validator/internal/redactor"
	"github.com/bunseokbot/iban-validator/internal/validator"
)

const (
	auditSource     = "http"
	maxBodyBytes    = 1 << 20
	requestTimeout  = 30 * time.Second
	defaultMaxBatch = 100
)

// Options configures a Server
type Options struct {
	// MaxBatch caps the number of IBANs in one batch request
	MaxBatch int

	// RateLimitPerMinute limits requests per client, 0 disables it
	RateLimitPerMinute int

	// Masking is applied to audit entries and redaction responses
	Masking redactor.MaskingStrategy

	// Gatherer is served on /metrics when set
	Gatherer prometheus.Gatherer

	// TrustForwardedHeaders takes the client address from X-Forwarded-For
	// and X-Real-IP. Only enable it behind a proxy that overwrites them.
	TrustForwardedHeaders bool
}

// Server exposes the validator over HTTP
type Server struct {
	validator *validator.Validator
	redactor  *redactor.Redactor
	audit     audit.AuditLogger
	metrics   *metrics.Metrics
	logger    logr.Logger
	limiter   *ClientLimiter
	gatherer  prometheus.Gatherer
	masking   redactor.MaskingStrategy
	maxBatch  int

	trustForwardedHeaders bool
}

// New creates a server. auditLogger and m may be nil.
func New(v *validator.Validator, auditLogger audit.AuditLogger, m *metrics.Metrics, logger logr.Logger, opts Options) *Server {
	if auditLogger == nil {
		auditLogger = audit.NewNoOpLogger()
	}
	if opts.MaxBatch <= 0 {
		opts.MaxBatch = defaultMaxBatch
	}
	switch {
	case opts.Masking == (redactor.MaskingStrategy{}):
		opts.Masking = redactor.DefaultStrategy
	case opts.Masking.Type == "":
		opts.Masking.Type = redactor.DefaultStrategy.Type
	}

	s := &Server{
		validator: v,
		redactor:  redactor.NewRedactor(detector.NewEngine(v), opts.Masking),
		audit:     auditLogger,
		metrics:   m,
		logger:    logger,
		gatherer:  opts.Gatherer,
		masking:   opts.Masking,
		maxBatch:  opts.MaxBatch,

		trustForwardedHeaders: opts.TrustForwardedHeaders,
	}
	if opts.RateLimitPerMinute > 0 {
		s.limiter = NewClientLimiter(opts.RateLimitPerMinute)
	}
	return s
}

// Handler returns the HTTP handler serving the API, probes and metrics
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if s.trustForwardedHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(s.withLogger)
	r.Use(middleware.Recoverer)

	r.Handle("/healthz", http.StripPrefix("/healthz", &healthz.Handler{
		Checks: map[string]healthz.Checker{"ping": healthz.Ping},
	}))
	r.Handle("/readyz", http.StripPrefix("/readyz", &healthz.Handler{
		Checks: map[string]healthz.Checker{"registry": s.registryLoaded},
	}))
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		r.Use(s.rateLimit)
		r.Use(s.observeLatency)

		r.Get("/iban/{iban}", s.handleValidate)
		r.Post("/iban/validate", s.handleValidateBatch)
		r.Get("/sepa/{code}", s.handleSEPA)
		r.Get("/countries", s.handleCountries)
		r.Post("/redact", s.handleRedact)
	})

	return r
}

// RunPruner periodically drops idle rate limiter buckets until ctx is done
func (s *Server) RunPruner(ctx context.Context, interval time.Duration) {
	if s.limiter == nil {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pruneLimiter()
		}
	}
}

// pruneLimiter reports the counters of the current buckets, then drops
// the idle ones
func (s *Server) pruneLimiter() {
	stats := s.limiter.AllStats()
	var allowed, blocked int64
	for _, st := range stats {
		allowed += st.Allowed
		blocked += st.Blocked
	}

	removed := s.limiter.Prune()
	remaining := s.limiter.Len()
	s.metrics.SetRateLimiterClients(remaining)
	s.logger.V(1).Info("rate limiter buckets", "clients", len(stats), "allowed", allowed, "blocked", blocked,
		"removed", removed, "remaining", remaining)
}

func (s *Server) registryLoaded(_ *http.Request) error {
	if s.validator.Registry().Len() == 0 {
		return errors.New("registry is empty")
	}
	return nil
}

// withLogger stores a request scoped logger in the context
func (s *Server) withLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := s.logger.WithValues("requestId", middleware.GetReqID(r.Context()))
		next.ServeHTTP(w, r.WithContext(log.IntoContext(r.Context(), logger)))
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow(clientAddress(r)) {
			s.metrics.IncrementRateLimited()
			w.Header().Set("Retry-After", strconv.Itoa(s.retryAfterSeconds()))
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// retryAfterSeconds is the time one token takes to refill
func (s *Server) retryAfterSeconds() int {
	return max(1, 60/s.limiter.ratePerMinute)
}

func (s *Server) observeLatency(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		s.metrics.ObserveRequestLatency(route, time.Since(start))
	})
}
