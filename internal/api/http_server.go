package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"appointly/internal/booking"
	"appointly/internal/config"
	"appointly/internal/database"
	"appointly/internal/domain"
	"appointly/internal/models"
	"appointly/internal/service"

	"github.com/rs/zerolog"
)

// BookingExporter renders bookings of a period into a spreadsheet.
type BookingExporter interface {
	Write(ctx context.Context, w io.Writer, from, to time.Time, bookings []models.StoredBooking) error
}

// HealthChecker reports whether the scheduling store is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Services are the application services the HTTP API exposes.
type Services struct {
	Bookings   domain.BookingService
	Attendance domain.AttendanceService
	Directory  domain.Directory
	Drafts     domain.DraftService
	Exporter   BookingExporter
	Health     HealthChecker
}

// HTTPServer is the JSON API of the scheduling service.
type HTTPServer struct {
	cfg      config.APIConfig
	services Services
	server   *http.Server
	auth     *HTTPAuth
	logger   *zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, services Services, logger *zerolog.Logger) *HTTPServer {
	mux := http.NewServeMux()
	srv := &HTTPServer{cfg: cfg, services: services, logger: logger}
	srv.auth = NewHTTPAuth(cfg)

	mux.HandleFunc("GET /healthz", srv.handleHealthz)
	mux.HandleFunc("GET /readyz", srv.handleReadyz)
	mux.HandleFunc("GET /api/v1/variants", srv.handleVariants)

	mux.HandleFunc("POST /api/v1/bookings", srv.handleCreateBooking)
	mux.HandleFunc("POST /api/v1/bookings/validate", srv.handleValidateBooking)
	mux.HandleFunc("GET /api/v1/bookings", srv.handleListBookings)
	mux.HandleFunc("GET /api/v1/bookings/export", srv.handleExportBookings)
	mux.HandleFunc("GET /api/v1/bookings/{id}", srv.handleGetBooking)
	mux.HandleFunc("POST /api/v1/bookings/{id}/respond", srv.handleRespond)

	mux.HandleFunc("POST /api/v1/drafts", srv.handleStartDraft)
	mux.HandleFunc("GET /api/v1/drafts", srv.handleGetDraft)
	mux.HandleFunc("PATCH /api/v1/drafts", srv.handleUpdateDraft)
	mux.HandleFunc("DELETE /api/v1/drafts", srv.handleDiscardDraft)
	mux.HandleFunc("POST /api/v1/drafts/submit", srv.handleSubmitDraft)

	mux.HandleFunc("GET /api/v1/directory/{kind}", srv.handleDirectory)

	handler := loggingMiddleware(logger, mux, recoverMiddleware(logger, srv.auth.Wrap(mux)))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}

	return srv
}

// Handler returns the fully wrapped handler.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	Field string `json:"field,omitempty"`
}

// writeServiceError maps core and service errors onto HTTP statuses. Store
// errors are not interpreted and end up as 500.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	body := errorBody{Error: err.Error(), Code: booking.Code(err)}

	var status int
	switch {
	case booking.IsValidation(err), errors.Is(err, booking.ErrInvalidDecision):
		status = http.StatusUnprocessableEntity
		var vErr *booking.ValidationError
		if errors.As(err, &vErr) {
			body.Field = vErr.Field
		}
	case errors.Is(err, booking.ErrPermissionDenied):
		status = http.StatusForbidden
	case errors.Is(err, booking.ErrUnknownAttendee):
		status = http.StatusNotFound
	case errors.Is(err, database.ErrBookingNotFound), errors.Is(err, service.ErrNoDraft):
		status = http.StatusNotFound
		body.Code = "not_found"
	case errors.Is(err, booking.ErrAlreadyResponded):
		status = http.StatusConflict
	case errors.Is(err, service.ErrRateLimited):
		status = http.StatusTooManyRequests
		body.Code = "rate_limited"
	case errors.Is(err, service.ErrInvalidRange):
		status = http.StatusBadRequest
		body.Code = "invalid_range"
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, status, body)
}

// decodeJSON reads a strict JSON body.
func decodeJSON(r *http.Request, v any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}
