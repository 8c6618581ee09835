package accessory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Logger defines the logging interface used by the Registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Cache is the accessory cache the reconciler works against.
type Cache interface {
	// FindByID returns a copy of the record with the given UUID.
	FindByID(uuid string) (*Record, bool)

	// Upsert persists the record and updates the cache.
	Upsert(ctx context.Context, r *Record) error
}

// Registry is an in-memory cache over a Repository.
//
// RefreshCache must complete before any reconciliation so that records from
// earlier runs are matched instead of re-registered.
//
// All public methods are thread-safe. Records handed out are copies.
type Registry struct {
	repo    Repository
	cache   map[string]*Record
	cacheMu sync.RWMutex
	logger  Logger
}

var _ Cache = (*Registry)(nil)

// NewRegistry creates a registry on repo.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		cache:  make(map[string]*Record),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// RefreshCache reloads every record from the repository. Corrupt rows are
// logged and left out; the remaining records are still cached.
func (r *Registry) RefreshCache(ctx context.Context) error {
	records, err := r.repo.List(ctx)
	switch {
	case errors.Is(err, ErrCorruptRecord):
		r.logger.Warn("skipping unreadable cached accessories", "error", err)
	case err != nil:
		return fmt.Errorf("loading accessories: %w", err)
	}

	fresh := make(map[string]*Record, len(records))
	for _, rec := range records {
		r.logger.Debug("loading accessory from cache", "name", rec.DisplayName, "uuid", rec.UUID)
		fresh[rec.UUID] = rec.Clone()
	}

	r.cacheMu.Lock()
	r.cache = fresh
	r.cacheMu.Unlock()

	r.logger.Info("accessory cache restored", "count", len(records))
	return nil
}

// FindByID looks a record up by UUID.
func (r *Registry) FindByID(uuid string) (*Record, bool) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	rec, ok := r.cache[uuid]
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

// Upsert persists rec and then caches it. The cache is left untouched when
// the write fails.
func (r *Registry) Upsert(ctx context.Context, rec *Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	stored := rec.Clone()
	stored.UpdatedAt = time.Now().UTC()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = stored.UpdatedAt
	}

	if err := r.repo.Save(ctx, stored); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.cache[stored.UUID] = stored
	r.cacheMu.Unlock()
	return nil
}

// Remove deletes a record from storage and cache.
func (r *Registry) Remove(ctx context.Context, uuid string) error {
	if err := r.repo.Delete(ctx, uuid); err != nil {
		return err
	}
	r.cacheMu.Lock()
	delete(r.cache, uuid)
	r.cacheMu.Unlock()
	return nil
}

// List returns copies of all cached records ordered by entity id.
func (r *Registry) List() []*Record {
	r.cacheMu.RLock()
	out := make([]*Record, 0, len(r.cache))
	for _, rec := range r.cache {
		out = append(out, rec.Clone())
	}
	r.cacheMu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].EntityID() < out[j].EntityID() })
	return out
}

// Count returns the number of cached records.
func (r *Registry) Count() int {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return len(r.cache)
}
