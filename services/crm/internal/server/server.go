package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"patorama/internal/metrics"
	"patorama/internal/ratelimit"
	"patorama/internal/security"
	"patorama/internal/util"
	"patorama/pkg/domain"
	"patorama/services/crm/internal/app"
)

const maxJSONBodyBytes = 1 << 20

// Config wires required dependencies for the HTTP server.
type Config struct {
	App *app.App
	// LoginLimiter throttles POST /api/auth/login per client IP. Nil disables
	// throttling.
	LoginLimiter   *ratelimit.FixedWindowLimiter
	Alerter        *security.AuditAlerter
	Metrics        *metrics.HTTPMetrics
	TrustedProxies *util.TrustedProxies
	CORSOrigins    []string
	Version        string
	Environment    string
}

// Server exposes the CRM HTTP API.
type Server struct {
	app            *app.App
	router         *mux.Router
	loginLimiter   *ratelimit.FixedWindowLimiter
	alerter        *security.AuditAlerter
	metrics        *metrics.HTTPMetrics
	trustedProxies *util.TrustedProxies
	corsOrigins    []string
	version        string
	environment    string
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("app is required")
	}
	version := cfg.Version
	if version == "" {
		version = "1.0.0"
	}
	s := &Server{
		app:            cfg.App,
		router:         mux.NewRouter(),
		loginLimiter:   cfg.LoginLimiter,
		alerter:        cfg.Alerter,
		metrics:        cfg.Metrics,
		trustedProxies: cfg.TrustedProxies,
		corsOrigins:    cfg.CORSOrigins,
		version:        version,
		environment:    cfg.Environment,
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	h := util.WithSecurityHeaders(s.trustedProxies, util.WithCORS(s.corsOrigins, s.router))
	h = util.WithRequestLog("crm", s.trustedProxies, h)
	return util.WithRequestID(h)
}

func (s *Server) routes() {
	r := s.router
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Route not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
		r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	// auth
	api.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	api.Handle("/auth/logout", s.authenticated(s.handleLogout)).Methods(http.MethodPost)
	api.Handle("/auth/me", s.authenticated(s.handleMe)).Methods(http.MethodGet)

	api.Handle("/users", s.authenticated(s.handleListUsers)).Methods(http.MethodGet)
	api.Handle("/users", s.authenticated(s.handleCreateUser)).Methods(http.MethodPost)
	api.Handle("/dashboard/stats", s.authenticated(s.handleDashboardStats)).Methods(http.MethodGet)

	// customers
	api.Handle("/customers", s.authenticated(s.handleListCustomers)).Methods(http.MethodGet)
	api.Handle("/customers", s.authenticated(s.handleCreateCustomer)).Methods(http.MethodPost)
	api.Handle("/customers/{id}", s.authenticated(s.handleGetCustomer)).Methods(http.MethodGet)
	api.Handle("/customers/{id}", s.authenticated(s.handleUpdateCustomer)).Methods(http.MethodPatch)
	api.Handle("/customers/{id}", s.authenticated(s.handleDeleteCustomer)).Methods(http.MethodDelete)

	// catalog
	api.Handle("/products", s.authenticated(s.handleListProducts)).Methods(http.MethodGet)
	api.Handle("/products", s.authenticated(s.handleCreateProduct)).Methods(http.MethodPost)
	api.Handle("/products/{id}", s.authenticated(s.handleGetProduct)).Methods(http.MethodGet)
	api.Handle("/products/{id}/variants", s.authenticated(s.handleAddVariant)).Methods(http.MethodPost)

	// jobs
	api.Handle("/jobs", s.authenticated(s.handleCreateJob)).Methods(http.MethodPost)
	api.Handle("/jobs", s.authenticated(s.handleListJobs)).Methods(http.MethodGet)
	api.Handle("/jobs/{id}", s.authenticated(s.handleGetJob)).Methods(http.MethodGet)
	api.Handle("/jobs/{id}", s.authenticated(s.handleUpdateJob)).Methods(http.MethodPatch)
	api.Handle("/jobs/{id}", s.authenticated(s.handleDeleteJob)).Methods(http.MethodDelete)

	// uploads
	api.Handle("/uploads", s.authenticated(s.handleUpload)).Methods(http.MethodPost)
	api.Handle("/uploads/job/{job_id}", s.authenticated(s.handleListUploads)).Methods(http.MethodGet)
	api.Handle("/uploads/{id}/download", s.authenticated(s.handleDownloadUpload)).Methods(http.MethodGet)
	api.Handle("/uploads/{id}", s.authenticated(s.handleMarkFinal)).Methods(http.MethodPatch)
	api.Handle("/uploads/{id}", s.authenticated(s.handleDeleteUpload)).Methods(http.MethodDelete)

	// notifications
	api.Handle("/notifications", s.authenticated(s.handleListNotifications)).Methods(http.MethodGet)
	api.Handle("/notifications/mark-all-read", s.authenticated(s.handleMarkAllRead)).Methods(http.MethodPost)
	api.Handle("/notifications/{id}/read", s.authenticated(s.handleMarkRead)).Methods(http.MethodPatch)

	// invoices
	api.Handle("/invoices", s.authenticated(s.handleListInvoices)).Methods(http.MethodGet)
	api.Handle("/invoices", s.authenticated(s.handleCreateInvoice)).Methods(http.MethodPost)
	api.Handle("/invoices/{id}/sync-xero", s.authenticated(s.handleSyncInvoice)).Methods(http.MethodPost)
	api.Handle("/invoices/{id}/payment-status", s.authenticated(s.handlePaymentStatus)).Methods(http.MethodGet)
}

// auth wrappers
type authHandler func(http.ResponseWriter, *http.Request, domain.User)

func (s *Server) authenticated(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, _ := bearerToken(r)
		user, err := s.app.Authenticate(r.Context(), token)
		if err != nil {
			s.audit(r, "auth.authorize", "fail")
			s.writeAppError(w, r, err)
			return
		}
		next(w, r, user)
	})
}

func (s *Server) audit(r *http.Request, event, outcome string, attrs ...any) {
	ip := util.ClientIP(r, s.trustedProxies)
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"method", r.Method,
		"ip", ip,
	}
	logAttrs = append(logAttrs, attrs...)
	logger := util.LoggerFromContext(r.Context())
	if outcome == "success" {
		logger.Info("security_event", logAttrs...)
	} else {
		logger.Warn("security_event", logAttrs...)
	}
	if s.alerter == nil {
		return
	}
	res, err := s.alerter.Observe(r.Context(), event, outcome, ip)
	if err != nil {
		logger.Warn("security alert evaluation failed", "event", event, "err", err)
		return
	}
	if res.Triggered {
		logger.Error("security_alert", "event", event, "outcome", outcome, "ip", ip,
			"count", res.Count, "threshold", res.Threshold, "window", res.Window.String())
	}
}

func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, limiter *ratelimit.FixedWindowLimiter, event, msg string) bool {
	if limiter == nil {
		return true
	}
	key := r.URL.Path + "|" + util.ClientIP(r, s.trustedProxies)
	if limiter.Allow(r.Context(), key) {
		return true
	}
	s.audit(r, event, "rate_limited")
	w.Header().Set("Retry-After", "60")
	writeError(w, http.StatusTooManyRequests, msg)
	return false
}

// writeAppError maps application errors to HTTP statuses. Causes of internal
// errors are logged and never sent to clients.
func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	msg := "Internal server error"
	var appErr *app.Error
	if errors.As(err, &appErr) {
		msg = appErr.Message()
	}
	switch {
	case errors.Is(err, app.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, app.ErrInvalidCredentials), errors.Is(err, app.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, app.ErrForbidden):
		status = http.StatusForbidden
		s.audit(r, "authz.forbidden", "fail")
	case errors.Is(err, app.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, app.ErrConflict):
		status = http.StatusConflict
	default:
		util.LoggerFromContext(r.Context()).Error("request failed", "path", r.URL.Path, "err", err)
	}
	writeError(w, status, msg)
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

// decodeJSON reads a JSON body into dst. Unknown keys are ignored.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
		case errors.Is(err, io.EOF):
			writeError(w, http.StatusBadRequest, "Request body is required")
		default:
			writeError(w, http.StatusBadRequest, "Invalid request body")
		}
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid "+name)
		return 0, false
	}
	return id, true
}

// queryInt returns 0 for missing or malformed values so defaults apply.
func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get(key)))
	if err != nil {
		return 0
	}
	return n
}

func queryID(r *http.Request, key string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(r.URL.Query().Get(key)), 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}
