// Package binding keeps a serialized type name pointing at the same
// declaration across renames.
package binding

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"symtrack/internal/identity"
)

// PropertyStorage is the host's string property store.
type PropertyStorage interface {
	GetString(key string) (string, bool)
	SetString(key, value string) error
}

// Resolver maps a possibly stale name to its current declaration.
// *identity.Registry implements it.
type Resolver interface {
	Resolve(ctx context.Context, name identity.SymbolicName) (identity.Resolution, bool, error)
}

// SyncResult describes what Sync observed and did.
type SyncResult struct {
	Stored     identity.SymbolicName `json:"stored"`
	Resolution identity.Resolution   `json:"resolution"`
	Found      bool                  `json:"found"`
	Rewritten  bool                  `json:"rewritten"`
}

// Reference is one serialized type name held in a PropertyStorage under key.
type Reference struct {
	storage  PropertyStorage
	key      string
	resolver Resolver
	logger   *slog.Logger
}

// NewReference binds key in storage to resolver. logger may be nil.
func NewReference(storage PropertyStorage, key string, resolver Resolver, logger *slog.Logger) *Reference {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Reference{
		storage:  storage,
		key:      key,
		resolver: resolver,
		logger:   logger,
	}
}

// Key returns the property key.
func (r *Reference) Key() string {
	return r.key
}

// Name returns the stored name without resolving it.
func (r *Reference) Name() identity.SymbolicName {
	v, _ := r.storage.GetString(r.key)
	return identity.SymbolicName(v)
}

// Sync resolves the stored name and rewrites it when the declaration now has
// a different name. An unresolvable name is left as is and reported with
// Found false. Registry persistence errors are returned alongside a valid
// result.
func (r *Reference) Sync(ctx context.Context) (SyncResult, error) {
	stored := r.Name()
	result := SyncResult{Stored: stored}
	if stored == "" {
		return result, nil
	}

	res, found, resolveErr := r.resolver.Resolve(ctx, stored)
	result.Resolution = res
	result.Found = found
	if !found || res.Name == stored {
		return result, resolveErr
	}

	if err := r.storage.SetString(r.key, string(res.Name)); err != nil {
		return result, fmt.Errorf("failed to rewrite %s: %w", r.key, err)
	}
	result.Rewritten = true

	r.logger.Info("reference updated to current name",
		"key", r.key,
		"from", string(stored),
		"to", string(res.Name),
	)
	return result, resolveErr
}

// Set resolves name and stores the current name it resolves to. Nothing is
// stored when name does not resolve.
func (r *Reference) Set(ctx context.Context, name identity.SymbolicName) (identity.Resolution, bool, error) {
	res, found, resolveErr := r.resolver.Resolve(ctx, name)
	if !found {
		return res, false, resolveErr
	}
	if err := r.storage.SetString(r.key, string(res.Name)); err != nil {
		return res, true, fmt.Errorf("failed to store %s: %w", r.key, err)
	}
	return res, true, resolveErr
}

// MapStorage is an in-memory PropertyStorage.
type MapStorage struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMapStorage creates a MapStorage seeded with values.
func NewMapStorage(values map[string]string) *MapStorage {
	m := &MapStorage{values: make(map[string]string, len(values))}
	for k, v := range values {
		m.values[k] = v
	}
	return m
}

// GetString implements PropertyStorage.
func (m *MapStorage) GetString(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

// SetString implements PropertyStorage.
func (m *MapStorage) SetString(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

// Snapshot returns a copy of all values.
func (m *MapStorage) Snapshot() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out
}
