package repository

import (
	"context"
	"sync"
	"time"

	"appointly/internal/domain"
	"appointly/internal/models"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverDraftRepository serves drafts from primary and switches to fallback
// on the first primary error. Primary is retried once per recoveryInterval.
type FailoverDraftRepository struct {
	primary  domain.DraftRepository
	fallback domain.DraftRepository
	logger   *zerolog.Logger

	mu        sync.Mutex
	down      bool
	lastCheck time.Time
}

func NewFailoverDraftRepository(primary, fallback domain.DraftRepository, logger *zerolog.Logger) *FailoverDraftRepository {
	return &FailoverDraftRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// usePrimary reports whether the next call should go to primary.
func (r *FailoverDraftRepository) usePrimary() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.down {
		return true
	}
	if time.Since(r.lastCheck) > recoveryInterval {
		r.lastCheck = time.Now()
		return true
	}
	return false
}

func (r *FailoverDraftRepository) report(op string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		if r.down {
			r.logger.Info().Str("op", op).Msg("primary draft repository recovered")
		}
		r.down = false
		return
	}
	if !r.down {
		r.logger.Error().Err(err).Str("op", op).Msg("primary draft repository failed, falling back to memory")
	}
	r.down = true
	r.lastCheck = time.Now()
}

// IsDown reports whether calls currently go to the fallback.
func (r *FailoverDraftRepository) IsDown() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.down
}

func (r *FailoverDraftRepository) GetDraft(ctx context.Context, actorID string) (*models.Draft, error) {
	if r.usePrimary() {
		draft, err := r.primary.GetDraft(ctx, actorID)
		r.report("get", err)
		if err == nil {
			return draft, nil
		}
	}
	return r.fallback.GetDraft(ctx, actorID)
}

func (r *FailoverDraftRepository) SetDraft(ctx context.Context, draft *models.Draft) error {
	if r.usePrimary() {
		err := r.primary.SetDraft(ctx, draft)
		r.report("set", err)
		if err == nil {
			return nil
		}
	}
	return r.fallback.SetDraft(ctx, draft)
}

func (r *FailoverDraftRepository) ClearDraft(ctx context.Context, actorID string) error {
	// clear both sides so a draft written during an outage does not resurface
	_ = r.fallback.ClearDraft(ctx, actorID)
	if r.usePrimary() {
		err := r.primary.ClearDraft(ctx, actorID)
		r.report("clear", err)
	}
	return nil
}

func (r *FailoverDraftRepository) CheckRateLimit(ctx context.Context, actorID string, limit int, window time.Duration) (bool, error) {
	if r.usePrimary() {
		allowed, err := r.primary.CheckRateLimit(ctx, actorID, limit, window)
		r.report("rate_limit", err)
		if err == nil {
			return allowed, nil
		}
	}
	return r.fallback.CheckRateLimit(ctx, actorID, limit, window)
}
