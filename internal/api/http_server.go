package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"propdesk/internal/config"
	"propdesk/internal/domain"
	"propdesk/internal/metrics"
	"propdesk/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// HTTPServer exposes the booking workflow to the role-specific dashboards.
type HTTPServer struct {
	cfg       config.APIConfig
	svc       domain.WorkflowService
	slaWindow time.Duration
	server    *http.Server
	roles     *RoleGate
	logger    *zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, svc domain.WorkflowService, slaWindow time.Duration, logger *zerolog.Logger) *HTTPServer {
	mux := http.NewServeMux()
	srv := &HTTPServer{cfg: cfg, svc: svc, slaWindow: slaWindow, logger: logger}
	srv.roles = NewRoleGate(cfg)
	srv.routes(mux)

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           loggingMiddleware(mux, logger),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

func (s *HTTPServer) routes(mux *http.ServeMux) {
	gate := s.roles.Require
	const (
		admin    = models.RoleSuperAdmin
		broker   = models.RoleBroker
		sales    = models.RoleSalesHead
		accounts = models.RoleAccounts
		customer = models.RoleCustomer
	)

	mux.HandleFunc("GET /healthz", s.handleHealthz)

	mux.Handle("GET /api/v1/stats", gate(s.handleStats))
	mux.Handle("GET /api/v1/properties", gate(s.handleListProperties))

	mux.Handle("GET /api/v1/brokers", gate(s.handleListBrokers, admin, broker))
	mux.Handle("POST /api/v1/brokers", gate(s.handleAddBroker, admin))
	mux.Handle("DELETE /api/v1/brokers/{id}", gate(s.handleDeleteBroker, admin))

	mux.Handle("GET /api/v1/customers", gate(s.handleListCustomers, admin, broker))
	mux.Handle("POST /api/v1/customers", gate(s.handleRegisterCustomer, broker))
	mux.Handle("GET /api/v1/customers/{id}", gate(s.handleGetCustomer, admin, broker, customer))
	mux.Handle("GET /api/v1/customers/{id}/bookings", gate(s.handleListCustomerBookings, admin, broker, customer))
	mux.Handle("POST /api/v1/customers/{id}/otp", gate(s.handleIssueCode, broker))
	mux.Handle("POST /api/v1/customers/{id}/verify", gate(s.handleVerifyCustomer, broker, customer))
	mux.Handle("POST /api/v1/customers/{id}/reminders", gate(s.handleSendReminder, broker))

	mux.Handle("GET /api/v1/bookings", gate(s.handleListBookings))
	mux.Handle("GET /api/v1/bookings/{id}", gate(s.handleGetBooking))
	mux.Handle("POST /api/v1/bookings/{id}/sales/approve", gate(s.handleSalesApprove, sales))
	mux.Handle("POST /api/v1/bookings/{id}/sales/discard", gate(s.handleSalesDiscard, sales))
	mux.Handle("POST /api/v1/bookings/{id}/accounts/approve", gate(s.handleAccountsApprove, accounts))
	mux.Handle("POST /api/v1/bookings/{id}/accounts/discard", gate(s.handleAccountsDiscard, accounts))
	mux.Handle("POST /api/v1/bookings/{id}/resubmit", gate(s.handleResubmit, broker))

	mux.Handle("GET /api/v1/transactions", gate(s.handleListTransactions, admin, accounts))
	mux.Handle("GET /api/v1/transactions/export", gate(s.handleExport, admin, accounts))

	mux.Handle("POST /api/v1/reset", gate(s.handleReset, admin))
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler is the routed handler including middleware.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func loggingMiddleware(next http.Handler, logger *zerolog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		// ServeMux fills in Pattern on the way through.
		endpoint := r.Pattern
		if endpoint == "" {
			endpoint = "unmatched"
		}
		metrics.IncHTTP(endpoint, statusClass(recorder.status))

		logger.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("dur", time.Since(start)).
			Msg("http request")
	})
}

func statusClass(code int) string {
	return strconv.Itoa(code/100) + "xx"
}

// statusFor maps workflow errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case domain.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidCode):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrAlreadyVerified), errors.Is(err, domain.ErrDuplicateID):
		return http.StatusConflict
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrReasonRequired), errors.Is(err, domain.ErrMessageRequired):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *HTTPServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func decodeJSON(r *http.Request, v any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body", domain.ErrValidation)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
