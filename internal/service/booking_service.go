package service

import (
	"context"
	"errors"
	"time"

	"appointly/internal/booking"
	"appointly/internal/domain"
	"appointly/internal/events"
	"appointly/internal/metrics"
	"appointly/internal/models"

	"github.com/rs/zerolog"
)

// ErrInvalidRange is returned when a listing range ends before it starts.
var ErrInvalidRange = errors.New("invalid date range")

// BookingService runs the validate, authorize and assemble pipeline and hands
// the result to the scheduling store.
type BookingService struct {
	pipeline  *booking.Pipeline
	store     domain.BookingStore
	reminders domain.ReminderSender
	eventBus  domain.EventPublisher
	logger    *zerolog.Logger
}

func NewBookingService(
	pipeline *booking.Pipeline,
	store domain.BookingStore,
	reminders domain.ReminderSender,
	eventBus domain.EventPublisher,
	logger *zerolog.Logger,
) *BookingService {
	if pipeline == nil {
		pipeline = booking.NewPipeline(nil)
	}
	return &BookingService{
		pipeline:  pipeline,
		store:     store,
		reminders: reminders,
		eventBus:  eventBus,
		logger:    logger,
	}
}

// Preview runs the pipeline without submitting.
func (s *BookingService) Preview(_ context.Context, actor models.Actor, req models.BookingRequest) (models.ConfirmedBooking, error) {
	confirmed, err := s.pipeline.Confirm(actor, req)
	if err != nil {
		s.reject(actor, req, err)
		return models.ConfirmedBooking{}, err
	}
	return confirmed, nil
}

func (s *BookingService) CreateBooking(ctx context.Context, actor models.Actor, req models.BookingRequest) (*models.StoredBooking, error) {
	confirmed, err := s.pipeline.Confirm(actor, req)
	if err != nil {
		s.reject(actor, req, err)
		return nil, err
	}

	// Ошибки хранилища возвращаются как есть
	id, err := s.store.Submit(ctx, confirmed)
	if err != nil {
		s.logger.Error().Err(err).Str("actor_id", actor.ID).Str("variant", string(confirmed.Variant)).Msg("submit booking")
		return nil, err
	}

	metrics.IncBookingSubmitted(string(confirmed.Variant))
	s.logger.Info().
		Int64("booking_id", id).
		Str("variant", string(confirmed.Variant)).
		Str("timestamp", confirmed.Timestamp).
		Str("actor_id", actor.ID).
		Msg("booking submitted")

	stored := &models.StoredBooking{ID: id, ConfirmedBooking: confirmed, CreatedAt: time.Now().UTC()}
	s.publishSubmitted(stored)

	if needsReminder(confirmed) {
		s.dispatchReminder(ctx, id)
	}
	return stored, nil
}

func (s *BookingService) GetBooking(ctx context.Context, id int64) (*models.StoredBooking, error) {
	return s.store.GetBooking(ctx, id)
}

func (s *BookingService) ListBookings(ctx context.Context, from, to time.Time) ([]models.StoredBooking, error) {
	if to.Before(from) {
		return nil, ErrInvalidRange
	}
	return s.store.ListBookings(ctx, from, to)
}

func needsReminder(b models.ConfirmedBooking) bool {
	return (b.Variant == models.VariantOneTime || b.Variant == models.VariantSeries) && b.HasClient()
}

// dispatchReminder never fails the booking: it is already stored.
func (s *BookingService) dispatchReminder(ctx context.Context, id int64) {
	if s.reminders == nil {
		return
	}
	if err := s.reminders.SendReminder(ctx, id); err != nil {
		s.logger.Warn().Err(err).Int64("booking_id", id).Msg("reminder dispatch failed")
		metrics.IncReminder("failed")
		s.publish(events.EventReminderFailed, events.ReminderFailedPayload{BookingID: id, Error: err.Error()})
	}
}

func (s *BookingService) reject(actor models.Actor, req models.BookingRequest, err error) {
	reason := booking.Code(err)
	if reason == "" {
		reason = "other"
	}
	metrics.IncBookingRejected(reason)
	s.logger.Debug().Err(err).Str("actor_id", actor.ID).Str("variant", string(req.Variant)).Str("reason", reason).Msg("booking rejected")
}

func (s *BookingService) publishSubmitted(b *models.StoredBooking) {
	employees := b.EmployeeIDs
	if len(employees) == 0 && b.EmployeeID != "" {
		employees = []string{b.EmployeeID}
	}
	clients := b.ClientIDs
	if len(clients) == 0 && b.ClientID != "" {
		clients = []string{b.ClientID}
	}
	s.publish(events.EventBookingSubmitted, events.BookingSubmittedPayload{
		BookingID: b.ID,
		Variant:   string(b.Variant),
		Timestamp: b.Timestamp,
		Employees: employees,
		Clients:   clients,
		ServiceID: b.ServiceID,
		CreatedBy: b.CreatedBy,
	})
}

func (s *BookingService) publish(eventType string, payload interface{}) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Msg("publish event error")
	}
}
