package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"legalcheck-backend/config"
	"legalcheck-backend/logger"
	"legalcheck-backend/models"
	"legalcheck-backend/observability"
	"legalcheck-backend/repository"

	"go.opentelemetry.io/otel/attribute"
)

// ExplanationStore persists cached explanations. Lookup returns
// repository.ErrNotFound when absent; Store never overwrites and returns the
// entry that won.
type ExplanationStore interface {
	Lookup(ctx context.Context, revisionID int64) (*models.ExplanationCacheEntry, error)
	Store(ctx context.Context, revisionID int64, exp models.Explanation) (*models.ExplanationCacheEntry, error)
	Replace(ctx context.Context, revisionID int64, exp models.Explanation) (*models.ExplanationCacheEntry, error)
	Delete(ctx context.Context, revisionID int64) error
}

// ExplanationCache coordinates the per-revision explanation cache.
type ExplanationCache struct {
	store  ExplanationStore
	policy string
	ttl    time.Duration
	now    func() time.Time
	log    *logger.Logger
}

// ExplanationCacheOption configures an ExplanationCache
type ExplanationCacheOption func(*ExplanationCache)

// ExplanationCacheWithPolicy sets the overwrite policy and its TTL
func ExplanationCacheWithPolicy(policy string, ttl time.Duration) ExplanationCacheOption {
	return func(c *ExplanationCache) {
		c.policy = policy
		c.ttl = ttl
	}
}

// ExplanationCacheWithClock sets the time source
func ExplanationCacheWithClock(now func() time.Time) ExplanationCacheOption {
	return func(c *ExplanationCache) {
		c.now = now
	}
}

// NewExplanationCache creates a coordinator. The default policy is
// create-if-absent.
func NewExplanationCache(store ExplanationStore, log *logger.Logger, opts ...ExplanationCacheOption) *ExplanationCache {
	c := &ExplanationCache{
		store:  store,
		policy: config.CachePolicyCreateIfAbsent,
		now:    time.Now,
		log:    log,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup returns the cached entry, or nil when there is none.
func (c *ExplanationCache) Lookup(ctx context.Context, revisionID int64) (*models.ExplanationCacheEntry, error) {
	e, err := c.store.Lookup(ctx, revisionID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return e, err
}

// GetOrCreate returns the existing entry for revisionID and discards
// candidate, or stores candidate when there is none. Under the
// refresh-after-TTL policy an entry older than the TTL is replaced.
func (c *ExplanationCache) GetOrCreate(ctx context.Context, revisionID int64, candidate models.Explanation) (*models.ExplanationCacheEntry, error) {
	ctx, span := observability.StartSpan(ctx, "explanations.get_or_create",
		attribute.Int64("revision.id", revisionID))
	defer span.End()

	existing, err := c.Lookup(ctx, revisionID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up explanation: %w", err)
	}
	if existing != nil {
		if !c.expired(existing) {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return existing, nil
		}
		c.log.Info("refreshing expired explanation", "revision_id", revisionID, "updated_at", existing.UpdatedAt)
		span.SetAttributes(attribute.Bool("cache.refreshed", true))
		return c.store.Replace(ctx, revisionID, candidate)
	}
	return c.store.Store(ctx, revisionID, candidate)
}

// Invalidate drops the entry so the next answer for the revision is cached.
func (c *ExplanationCache) Invalidate(ctx context.Context, revisionID int64) error {
	return c.store.Delete(ctx, revisionID)
}

func (c *ExplanationCache) expired(e *models.ExplanationCacheEntry) bool {
	if c.policy != config.CachePolicyRefreshAfterTTL || c.ttl <= 0 {
		return false
	}
	return c.now().Sub(e.UpdatedAt) > c.ttl
}

// MemoryExplanationStore is an in-process ExplanationStore.
type MemoryExplanationStore struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[int64]models.ExplanationCacheEntry
}

// NewMemoryExplanationStore creates an empty store.
func NewMemoryExplanationStore() *MemoryExplanationStore {
	return &MemoryExplanationStore{now: time.Now, entries: map[int64]models.ExplanationCacheEntry{}}
}

var _ ExplanationStore = (*MemoryExplanationStore)(nil)
var _ ExplanationStore = (*repository.ExplanationCacheRepository)(nil)

func (m *MemoryExplanationStore) Lookup(ctx context.Context, revisionID int64) (*models.ExplanationCacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[revisionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (m *MemoryExplanationStore) Store(ctx context.Context, revisionID int64, exp models.Explanation) (*models.ExplanationCacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.entries[revisionID]; ok {
		return &e, nil
	}
	now := m.now()
	e := models.ExplanationCacheEntry{RevisionID: revisionID, Explanation: exp, CreatedAt: now, UpdatedAt: now}
	m.entries[revisionID] = e
	return &e, nil
}

func (m *MemoryExplanationStore) Replace(ctx context.Context, revisionID int64, exp models.Explanation) (*models.ExplanationCacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	e, ok := m.entries[revisionID]
	if !ok {
		e = models.ExplanationCacheEntry{RevisionID: revisionID, CreatedAt: now}
	}
	e.Explanation = exp
	e.UpdatedAt = now
	m.entries[revisionID] = e
	return &e, nil
}

func (m *MemoryExplanationStore) Delete(ctx context.Context, revisionID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, revisionID)
	return nil
}
