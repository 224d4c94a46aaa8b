package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"appointly/internal/booking"
	"appointly/internal/export"
	"appointly/internal/models"
)

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.services.Health != nil {
		if err := s.services.Health.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "store unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *HTTPServer) handleVariants(w http.ResponseWriter, _ *http.Request) {
	policies := booking.Policies()
	out := make([]map[string]any, 0, len(models.Variants))
	for _, v := range models.Variants {
		out = append(out, map[string]any{"variant": v, "policy": policies[v]})
	}
	writeJSON(w, http.StatusOK, map[string]any{"variants": out})
}

// requireActor writes 401 and returns false when the request is anonymous.
func requireActor(w http.ResponseWriter, r *http.Request) (models.Actor, bool) {
	actor, ok := ActorFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, errNoActor.Error())
		return models.Actor{}, false
	}
	return actor, true
}

func requireReader(w http.ResponseWriter, r *http.Request) bool {
	actor, ok := requireActor(w, r)
	if !ok {
		return false
	}
	if !canRead(actor) {
		writeError(w, http.StatusForbidden, booking.ErrPermissionDenied.Error())
		return false
	}
	return true
}

func (s *HTTPServer) decodeBooking(w http.ResponseWriter, r *http.Request) (models.BookingRequest, bool) {
	var body bookingRequestBody
	if err := decodeJSON(r, &body); err != nil {
		s.writeDecodeError(w, err)
		return models.BookingRequest{}, false
	}
	req, err := body.toRequest()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return models.BookingRequest{}, false
	}
	return req, true
}

// writeDecodeError: a recurrence carrying both end modes is a recurrence
// error, everything else is a malformed body.
func (s *HTTPServer) writeDecodeError(w http.ResponseWriter, err error) {
	if errors.Is(err, models.ErrConflictingTermination) {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{
			Error: err.Error(),
			Code:  "invalid_termination",
			Field: "recurrence",
		})
		return
	}
	writeError(w, http.StatusBadRequest, "invalid JSON body")
}

func (s *HTTPServer) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	req, ok := s.decodeBooking(w, r)
	if !ok {
		return
	}

	stored, err := s.services.Bookings.CreateBooking(r.Context(), actor, req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

func (s *HTTPServer) handleValidateBooking(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	req, ok := s.decodeBooking(w, r)
	if !ok {
		return
	}

	confirmed, err := s.services.Bookings.Preview(r.Context(), actor, req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, confirmed)
}

func (s *HTTPServer) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	if !requireReader(w, r) {
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	stored, err := s.services.Bookings.GetBooking(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

// periodFromQuery reads from/to; both default to a week starting today.
func periodFromQuery(r *http.Request) (time.Time, time.Time, error) {
	q := r.URL.Query()
	from := models.TruncateDay(time.Now())
	to := from.AddDate(0, 0, 7)

	if raw := strings.TrimSpace(q.Get("from")); raw != "" {
		d, err := parseDate(raw)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		from = d
		if q.Get("to") == "" {
			to = from.AddDate(0, 0, 7)
		}
	}
	if raw := strings.TrimSpace(q.Get("to")); raw != "" {
		d, err := parseDate(raw)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		to = d
	}
	return from, to, nil
}

func (s *HTTPServer) handleListBookings(w http.ResponseWriter, r *http.Request) {
	if !requireReader(w, r) {
		return
	}
	from, to, err := periodFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	list, err := s.services.Bookings.ListBookings(r.Context(), from, to)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if list == nil {
		list = []models.StoredBooking{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"from":     from.Format(models.DateLayout),
		"to":       to.Format(models.DateLayout),
		"bookings": list,
	})
}

func (s *HTTPServer) handleExportBookings(w http.ResponseWriter, r *http.Request) {
	if !requireReader(w, r) {
		return
	}
	if s.services.Exporter == nil {
		writeError(w, http.StatusNotImplemented, "export is not configured")
		return
	}
	from, to, err := periodFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	list, err := s.services.Bookings.ListBookings(r.Context(), from, to)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.FileName(from, to)+`"`)
	if err := s.services.Exporter.Write(r.Context(), w, from, to, list); err != nil {
		// заголовки уже могли уйти клиенту
		s.logger.Error().Err(err).Msg("export bookings")
	}
}

func (s *HTTPServer) handleRespond(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	var body respondBody
	if err := decodeJSON(r, &body); err != nil {
		s.writeDecodeError(w, err)
		return
	}
	decision := models.AttendeeStatus(strings.ToLower(strings.TrimSpace(body.Decision)))

	attendee, err := s.services.Attendance.Respond(r.Context(), actor, id, decision)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, attendee)
}

func (s *HTTPServer) handleStartDraft(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var body draftStartBody
	if err := decodeJSON(r, &body); err != nil {
		s.writeDecodeError(w, err)
		return
	}

	draft, err := s.services.Drafts.Start(r.Context(), actor, parseVariant(body.Variant))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, draft)
}

func (s *HTTPServer) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	draft, err := s.services.Drafts.Get(r.Context(), actor)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

func (s *HTTPServer) handleUpdateDraft(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	var body draftPatchBody
	if err := decodeJSON(r, &body); err != nil {
		s.writeDecodeError(w, err)
		return
	}
	patch, err := body.toPatch()
	if err != nil {
		if errors.Is(err, models.ErrConflictingTermination) {
			s.writeDecodeError(w, err)
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	draft, err := s.services.Drafts.Update(r.Context(), actor, patch)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

func (s *HTTPServer) handleDiscardDraft(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	if err := s.services.Drafts.Discard(r.Context(), actor); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleSubmitDraft(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	stored, err := s.services.Drafts.Submit(r.Context(), actor)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

func (s *HTTPServer) handleDirectory(w http.ResponseWriter, r *http.Request) {
	if !requireReader(w, r) {
		return
	}

	var (
		list any
		err  error
	)
	switch kind := r.PathValue("kind"); kind {
	case "employees":
		list, err = s.services.Directory.ListEmployees(r.Context())
	case "clients":
		list, err = s.services.Directory.ListClients(r.Context())
	case "services":
		list, err = s.services.Directory.ListServices(r.Context())
	default:
		writeError(w, http.StatusNotFound, "unknown directory "+kind)
		return
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": list})
}
