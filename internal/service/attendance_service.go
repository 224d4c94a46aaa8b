package service

import (
	"context"
	"errors"
	"time"

	"appointly/internal/booking"
	"appointly/internal/database"
	"appointly/internal/domain"
	"appointly/internal/events"
	"appointly/internal/models"

	"github.com/rs/zerolog"
)

// AttendanceService lets a meeting attendee accept or decline for themselves.
type AttendanceService struct {
	store    domain.AttendeeStore
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
	now      func() time.Time
}

func NewAttendanceService(store domain.AttendeeStore, eventBus domain.EventPublisher, logger *zerolog.Logger) *AttendanceService {
	return &AttendanceService{store: store, eventBus: eventBus, logger: logger, now: time.Now}
}

func (s *AttendanceService) Attendees(ctx context.Context, bookingID int64) ([]models.Attendee, error) {
	return s.store.GetAttendees(ctx, bookingID)
}

func (s *AttendanceService) Respond(ctx context.Context, actor models.Actor, bookingID int64, decision models.AttendeeStatus) (models.Attendee, error) {
	attendees, err := s.store.GetAttendees(ctx, bookingID)
	if err != nil {
		return models.Attendee{}, err
	}

	_, updated, err := booking.Respond(attendees, actor.Party(), actor.ID, decision, s.now().UTC())
	if err != nil {
		return models.Attendee{}, err
	}

	// the row may have changed since it was read; the store only updates a pending row
	if err := s.store.UpdateAttendeeStatus(ctx, bookingID, updated); err != nil {
		switch {
		case errors.Is(err, database.ErrAttendeeNotPending):
			return models.Attendee{}, booking.ErrAlreadyResponded
		case errors.Is(err, database.ErrAttendeeNotFound):
			return models.Attendee{}, booking.ErrUnknownAttendee
		}
		return models.Attendee{}, err
	}

	s.logger.Info().
		Int64("booking_id", bookingID).
		Str("party_id", updated.PartyID).
		Str("party_kind", string(updated.PartyKind)).
		Str("status", string(updated.Status)).
		Msg("attendee responded")

	if s.eventBus != nil {
		if err := s.eventBus.PublishJSON(events.EventAttendeeResponded, events.AttendeeRespondedPayload{
			BookingID: bookingID,
			PartyID:   updated.PartyID,
			PartyKind: string(updated.PartyKind),
			Status:    string(updated.Status),
			At:        *updated.RespondedAt,
		}); err != nil {
			s.logger.Error().Err(err).Msg("publish attendee_responded")
		}
	}
	return updated, nil
}
