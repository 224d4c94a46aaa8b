package service

import (
	"context"
	"errors"
	"time"

	"appointly/internal/booking"
	"appointly/internal/domain"
	"appointly/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrNoDraft     = errors.New("no draft in progress")
	ErrRateLimited = errors.New("too many draft updates")
)

// BookingCreator submits a finished request.
type BookingCreator interface {
	CreateBooking(ctx context.Context, actor models.Actor, req models.BookingRequest) (*models.StoredBooking, error)
}

// DraftService builds a booking request one field at a time. Nothing reaches
// the scheduling store until Submit.
type DraftService struct {
	repo     domain.DraftRepository
	bookings BookingCreator
	limit    int
	window   time.Duration
	logger   *zerolog.Logger
	now      func() time.Time
}

func NewDraftService(repo domain.DraftRepository, bookings BookingCreator, limit int, window time.Duration, logger *zerolog.Logger) *DraftService {
	if limit <= 0 {
		limit = models.DraftRateLimit
	}
	if window <= 0 {
		window = models.DraftRateWindow * time.Second
	}
	return &DraftService{
		repo:     repo,
		bookings: bookings,
		limit:    limit,
		window:   window,
		logger:   logger,
		now:      time.Now,
	}
}

// Start replaces any previous draft of the actor with an empty one.
func (s *DraftService) Start(ctx context.Context, actor models.Actor, variant models.Variant) (*models.Draft, error) {
	if !variant.Valid() {
		return nil, booking.ErrUnknownVariant
	}
	if err := s.allow(ctx, actor); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	draft := &models.Draft{
		ID:        uuid.NewString(),
		ActorID:   actor.ID,
		Request:   models.BookingRequest{Variant: variant},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.SetDraft(ctx, draft); err != nil {
		return nil, err
	}

	s.logger.Debug().Str("actor_id", actor.ID).Str("draft_id", draft.ID).Str("variant", string(variant)).Msg("draft started")
	return draft, nil
}

func (s *DraftService) Get(ctx context.Context, actor models.Actor) (*models.Draft, error) {
	draft, err := s.repo.GetDraft(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if draft == nil {
		return nil, ErrNoDraft
	}
	return draft, nil
}

// Update applies the whole patch in one save, so a patch is stored entirely or not at all.
func (s *DraftService) Update(ctx context.Context, actor models.Actor, patch models.DraftPatch) (*models.Draft, error) {
	return s.mutate(ctx, actor, func(req *models.BookingRequest) {
		patch.Apply(req)
	})
}

// SetUntil switches the series to end on a date, dropping any count.
func (s *DraftService) SetUntil(ctx context.Context, actor models.Actor, until time.Time) (*models.Draft, error) {
	return s.Update(ctx, actor, models.DraftPatch{Until: &until})
}

// SetAfterCount switches the series to end after n occurrences, dropping any date.
func (s *DraftService) SetAfterCount(ctx context.Context, actor models.Actor, n int) (*models.Draft, error) {
	return s.Update(ctx, actor, models.DraftPatch{Count: &n})
}

func (s *DraftService) Discard(ctx context.Context, actor models.Actor) error {
	return s.repo.ClearDraft(ctx, actor.ID)
}

// Submit sends the draft through the booking pipeline. A rejected draft is
// kept so the actor can fix the offending field.
func (s *DraftService) Submit(ctx context.Context, actor models.Actor) (*models.StoredBooking, error) {
	draft, err := s.Get(ctx, actor)
	if err != nil {
		return nil, err
	}

	stored, err := s.bookings.CreateBooking(ctx, actor, draft.Request)
	if err != nil {
		return nil, err
	}

	if err := s.repo.ClearDraft(ctx, actor.ID); err != nil {
		s.logger.Warn().Err(err).Str("actor_id", actor.ID).Msg("clear submitted draft")
	}
	return stored, nil
}

func (s *DraftService) mutate(ctx context.Context, actor models.Actor, fn func(*models.BookingRequest)) (*models.Draft, error) {
	if err := s.allow(ctx, actor); err != nil {
		return nil, err
	}
	draft, err := s.Get(ctx, actor)
	if err != nil {
		return nil, err
	}

	fn(&draft.Request)
	draft.UpdatedAt = s.now().UTC()

	if err := s.repo.SetDraft(ctx, draft); err != nil {
		return nil, err
	}
	return draft, nil
}

func (s *DraftService) allow(ctx context.Context, actor models.Actor) error {
	ok, err := s.repo.CheckRateLimit(ctx, actor.ID, s.limit, s.window)
	if err != nil {
		return err
	}
	if !ok {
		return ErrRateLimited
	}
	return nil
}
