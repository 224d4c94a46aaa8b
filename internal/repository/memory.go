package repository

import (
	"context"
	"sync"
	"time"

	"appointly/internal/models"
)

// MemoryDraftRepository is the in-process draft store used when Redis is
// absent or down.
type MemoryDraftRepository struct {
	mu     sync.Mutex
	drafts map[string]memoryDraft
	rates  map[string]*rateLimitEntry
	ttl    time.Duration
	now    func() time.Time
}

type memoryDraft struct {
	draft     models.Draft
	expiresAt time.Time
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

func NewMemoryDraftRepository(ttl time.Duration) *MemoryDraftRepository {
	return &MemoryDraftRepository{
		drafts: make(map[string]memoryDraft),
		rates:  make(map[string]*rateLimitEntry),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (r *MemoryDraftRepository) GetDraft(_ context.Context, actorID string) (*models.Draft, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.drafts[actorID]
	if !ok {
		return nil, nil
	}
	if r.ttl > 0 && r.now().After(entry.expiresAt) {
		delete(r.drafts, actorID)
		return nil, nil
	}
	out := copyDraft(entry.draft)
	return &out, nil
}

func (r *MemoryDraftRepository) SetDraft(_ context.Context, draft *models.Draft) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.drafts[draft.ActorID] = memoryDraft{
		draft:     copyDraft(*draft),
		expiresAt: r.now().Add(r.ttl),
	}
	return nil
}

func (r *MemoryDraftRepository) ClearDraft(_ context.Context, actorID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.drafts, actorID)
	return nil
}

func (r *MemoryDraftRepository) CheckRateLimit(_ context.Context, actorID string, limit int, window time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	entry, ok := r.rates[actorID]
	if !ok || now.After(entry.expiresAt) {
		entry = &rateLimitEntry{expiresAt: now.Add(window)}
		r.rates[actorID] = entry
	}
	entry.count++
	return entry.count <= limit, nil
}

func copyDraft(d models.Draft) models.Draft {
	d.Request = d.Request.Clone()
	return d
}
