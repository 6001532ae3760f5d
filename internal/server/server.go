// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/folio/internal/backend"
	"github.com/jeranaias/folio/internal/cloud"
	"github.com/jeranaias/folio/internal/config"
	"github.com/jeranaias/folio/internal/logger"
	"github.com/jeranaias/folio/internal/metrics"
	"github.com/jeranaias/folio/internal/quota"
	"github.com/jeranaias/folio/internal/storage"
)

// Request limits.
const (
	// MaxRequestBodySize is the maximum allowed request body size (1MB).
	MaxRequestBodySize = 1 << 20

	// MaxMessageRunes bounds a single chat message.
	MaxMessageRunes = 4000

	// SessionHeader optionally scopes stored history to a browser session.
	SessionHeader = backend.SessionHeader
)

// Error details returned to the widget. They are shown verbatim.
const (
	DetailUpstreamAuth      = "🔑 Invalid Mistral API key. Check MISTRAL_API_KEY in backend/.env"
	DetailUpstreamRateLimit = "⏳ Mistral rate limit reached. Please try again later!"
	DetailEmptyMessage      = "Message must not be empty."
	DetailInvalidBody       = "Request body must be JSON like {\"message\": \"...\"}."
	DetailTooLarge          = "Request body too large."
)

var sessionPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Upstream is the model provider the chat handler calls.
type Upstream interface {
	Chat(ctx context.Context, messages []cloud.ChatMessage) (string, error)
	Model() string
}

// History persists chat turns.
type History interface {
	Append(ctx context.Context, session, role, content string) (int64, error)
	Recent(ctx context.Context, session string, limit int) ([]storage.Entry, error)
	Ping(ctx context.Context) error
}

// Options configures a Server.
type Options struct {
	Addr               string
	SystemPrompt       string
	HistoryLimit       int
	AllowedOrigins     []string
	TrustedProxies     []string
	RateLimitPerMinute int
	RateBurst          int
	MetricsEnabled     bool
	ShutdownTimeout    time.Duration

	// ContactEmail is named in the daily quota detail.
	ContactEmail string

	Quota   quota.Limiter
	Metrics *metrics.Metrics
	Logger  *logger.Logger
}

// OptionsFromConfig builds Options from the [server] section of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Addr:               cfg.Addr(),
		HistoryLimit:       cfg.Server.HistoryLimit,
		AllowedOrigins:     cfg.Server.AllowedOrigins,
		TrustedProxies:     cfg.Server.TrustedProxies,
		RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
		RateBurst:          cfg.Server.RateBurst,
		MetricsEnabled:     cfg.Server.MetricsEnabled,
		ShutdownTimeout:    time.Duration(cfg.Server.ShutdownTimeoutSeconds) * time.Second,
	}
}

// Server is the chat backend the widget posts to.
type Server struct {
	opts     Options
	upstream Upstream
	history  History

	router     chi.Router
	httpServer *http.Server
	mu         sync.Mutex

	cors    *CORSConfig
	limiter *RateLimiter
	ips     *ClientIPResolver
	quota   quota.Limiter
	metrics *metrics.Metrics
	log     *logger.Logger
	httpLog zerolog.Logger
}

// New creates a server. Missing Quota, Metrics and Logger get defaults
// (no quota, a private registry, a no-op logger).
func New(upstream Upstream, history History, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.Quota == nil {
		opts.Quota = quota.NewMemory(0, nil)
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = config.DefaultHistoryLimit
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	if opts.Addr == "" {
		opts.Addr = "127.0.0.1:8000"
	}

	proxies := opts.TrustedProxies
	if len(proxies) == 0 {
		proxies = DefaultTrustedProxies
	}
	ips, err := NewClientIPResolver(proxies)
	if err != nil {
		hl := opts.Logger.HTTP()
		hl.Warn().Err(err).Msg("ignoring invalid trusted proxies")
	}

	s := &Server{
		opts:     opts,
		upstream: upstream,
		history:  history,
		cors:     NewCORSConfig(opts.AllowedOrigins),
		limiter:  NewRateLimiter(opts.RateLimitPerMinute, opts.RateBurst),
		ips:      ips,
		quota:    opts.Quota,
		metrics:  opts.Metrics,
		log:      opts.Logger,
		httpLog:  opts.Logger.HTTP(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(RecoveryMiddleware(s.httpLog))
	r.Use(LoggingMiddleware(s.httpLog, s.ips, s.metrics))
	r.Use(SecurityHeadersMiddleware)
	r.Use(CORSMiddleware(s.cors))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not found.")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed.")
	})

	r.Get("/health", s.handleHealth)
	if s.opts.MetricsEnabled {
		r.Handle("/metrics", s.metrics.Handler())
	}
	r.With(RateLimitMiddleware(s.limiter, s.ips, s.metrics)).Post("/api/chat", s.handleChat)

	s.router = r
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.opts.Addr
}

// ============================================================================
// Lifecycle
// ============================================================================

func (s *Server) prepare() *http.Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s.httpServer
}

func (s *Server) serve(srv *http.Server, ln net.Listener) error {
	s.log.LogServerReady(ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		s.limiter.Stop()
		return fmt.Errorf("listen %s: %w", s.opts.Addr, err)
	}
	srv := s.prepare()
	errCh := make(chan error, 1)
	go func() { errCh <- s.serve(srv, ln) }()

	select {
	case err := <-errCh:
		s.limiter.Stop()
		return err
	case <-ctx.Done():
	}

	s.log.LogServerShutdown(context.Cause(ctx).Error())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// Reload applies the hot-reloadable parts of cfg: CORS origins, rate
// limits, the daily quota and the log level.
func (s *Server) Reload(cfg *config.Config) {
	s.cors.SetOrigins(cfg.Server.AllowedOrigins)
	s.limiter.SetRate(cfg.Server.RateLimitPerMinute, cfg.Server.RateBurst)
	s.quota.SetLimit(cfg.Server.DailyQuota)
	logger.SetLevel(cfg.Log.Level)
	s.httpLog.Info().
		Strs("origins", s.cors.Origins()).
		Int("rate_per_minute", cfg.Server.RateLimitPerMinute).
		Int("daily_quota", cfg.Server.DailyQuota).
		Str("log_level", cfg.Log.Level).
		Msg("configuration reloaded")
}

// ============================================================================
// Handlers
// ============================================================================

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var req backend.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, DetailTooLarge)
			return
		}
		writeError(w, http.StatusBadRequest, DetailInvalidBody)
		return
	}

	message := norm.NFC.String(strings.TrimSpace(req.Message))
	if message == "" {
		s.metrics.ObserveChat("invalid")
		writeError(w, http.StatusBadRequest, DetailEmptyMessage)
		return
	}
	if utf8.RuneCountInString(message) > MaxMessageRunes {
		s.metrics.ObserveChat("invalid")
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Message too long (max %d characters).", MaxMessageRunes))
		return
	}

	clientIP := s.ips.ClientIP(r)
	ctx := r.Context()
	log := s.httpLog.With().
		Str("request_id", chimw.GetReqID(ctx)).
		Str("client", clientIP).
		Logger()

	decision, err := s.quota.Allow(ctx, clientIP)
	if err != nil {
		log.Warn().Err(err).Str("backend", s.quota.Backend()).Msg("quota check failed, allowing request")
	} else if !decision.Allowed {
		s.metrics.QuotaRejections.Inc()
		s.metrics.ObserveChat("quota")
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(time.Until(decision.ResetAt).Seconds())+1))
		writeError(w, http.StatusTooManyRequests, s.quotaDetail())
		return
	}

	session := sessionKey(r, clientIP)

	if _, err := s.history.Append(ctx, session, storage.RoleUser, message); err != nil {
		s.fail(w, log, fmt.Errorf("store user message: %w", err))
		return
	}
	s.metrics.HistoryRows.Inc()

	recent, err := s.history.Recent(ctx, session, s.opts.HistoryLimit)
	if err != nil {
		s.fail(w, log, fmt.Errorf("load history: %w", err))
		return
	}

	messages := make([]cloud.ChatMessage, 0, len(recent)+1)
	messages = append(messages, cloud.ChatMessage{Role: cloud.RoleSystem, Content: s.opts.SystemPrompt})
	for _, e := range recent {
		messages = append(messages, cloud.ChatMessage{Role: e.Role, Content: e.Content})
	}

	start := time.Now()
	reply, err := s.upstream.Chat(ctx, messages)
	elapsed := time.Since(start)
	if err != nil {
		s.metrics.ObserveUpstream(s.upstream.Model(), "error", elapsed)
		switch {
		case errors.Is(err, cloud.ErrAuthFailed), errors.Is(err, cloud.ErrNotConfigured):
			log.Error().Err(err).Msg("upstream rejected credentials")
			s.metrics.ObserveChat("upstream_auth")
			writeError(w, http.StatusUnauthorized, DetailUpstreamAuth)
		case errors.Is(err, cloud.ErrRateLimited):
			log.Warn().Err(err).Msg("upstream rate limited")
			s.metrics.ObserveChat("upstream_rate_limited")
			writeError(w, http.StatusTooManyRequests, DetailUpstreamRateLimit)
		default:
			s.fail(w, log, err)
		}
		return
	}
	s.metrics.ObserveUpstream(s.upstream.Model(), "ok", elapsed)

	if _, err := s.history.Append(ctx, session, storage.RoleAssistant, reply); err != nil {
		s.fail(w, log, fmt.Errorf("store reply: %w", err))
		return
	}
	s.metrics.HistoryRows.Inc()
	s.metrics.ObserveChat("ok")

	log.Debug().Dur("upstream", elapsed).Int("context", len(messages)).Msg("chat answered")
	writeJSON(w, http.StatusOK, backend.ChatResponse{Response: reply})
}

func (s *Server) fail(w http.ResponseWriter, log zerolog.Logger, err error) {
	log.Error().Err(err).Msg("chat failed")
	s.metrics.ObserveChat("error")
	writeError(w, http.StatusInternalServerError, "Server error: "+err.Error())
}

func (s *Server) quotaDetail() string {
	if s.opts.ContactEmail == "" {
		return "⏳ Demo limit reached for today. Try again tomorrow!"
	}
	return fmt.Sprintf("⏳ Demo limit reached for today. Try again tomorrow or email %s!", s.opts.ContactEmail)
}

// sessionKey scopes stored history: a well-formed session header wins,
// otherwise the client address.
func sessionKey(r *http.Request, clientIP string) string {
	if id := strings.TrimSpace(r.Header.Get(SessionHeader)); sessionPattern.MatchString(id) {
		return "s:" + id
	}
	return "ip:" + clientIP
}

type healthResponse struct {
	Status             string  `json:"status"`
	Model              string  `json:"model"`
	Quota              string  `json:"quota"`
	UptimeSeconds      float64 `json:"uptime_seconds"`
	UpstreamConfigured bool    `json:"upstream_configured"`
	Error              string  `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:        "ok",
		Model:         s.upstream.Model(),
		Quota:         s.quota.Backend(),
		UptimeSeconds: s.metrics.Uptime().Seconds(),
	}
	if c, ok := s.upstream.(interface{ IsConfigured() bool }); ok {
		resp.UpstreamConfigured = c.IsConfigured()
	} else {
		resp.UpstreamConfigured = true
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.history.Ping(ctx); err != nil {
		resp.Status = "degraded"
		resp.Error = err.Error()
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ============================================================================
// Helpers
// ============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, backend.ErrorResponse{Detail: detail})
}
