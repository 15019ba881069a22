package identity

import (
	"context"
	"log/slog"
	"sync"

	"symtrack/internal/errors"
)

// DiagnosticKind classifies conditions the registry tolerates but hosts may
// want to warn about.
type DiagnosticKind string

const (
	// DuplicateCurrentName means two records share a current name; the first
	// registered one wins resolution.
	DuplicateCurrentName DiagnosticKind = "duplicate-current-name"
	// OrphanedRecord means a record's identity no longer resolves to a declaration.
	OrphanedRecord DiagnosticKind = "orphaned-record"
)

// Diagnostic describes one tolerated inconsistency.
type Diagnostic struct {
	Kind DiagnosticKind   `json:"kind"`
	Name SymbolicName     `json:"name,omitempty"`
	IDs  []StableIdentity `json:"ids"`
}

// DiagnosticHook receives diagnostics after each full refresh.
type DiagnosticHook func(Diagnostic)

// Registry owns every RenameHistoryRecord for one store scope and resolves
// possibly stale names against them. All methods are serialized through one
// mutex, so saves happen in mutation order.
type Registry struct {
	mu        sync.Mutex
	store     Store
	source    SymbolSource
	logger    *slog.Logger
	onDiag    DiagnosticHook
	records   []*RenameHistoryRecord
	refreshed bool
	loadErr   error
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithDiagnosticHook installs a hook for tolerated inconsistencies.
func WithDiagnosticHook(hook DiagnosticHook) Option {
	return func(r *Registry) {
		r.onDiag = hook
	}
}

// Open constructs a registry and loads its records from store.
// On a load failure the registry is still returned, starting empty, together
// with the error; the error stays available through LoadError.
func Open(ctx context.Context, store Store, source SymbolSource, opts ...Option) (*Registry, error) {
	r := &Registry{
		store:  store,
		source: source,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		r.loadErr = errors.NewSymtrackError(errors.LoadFailed, "failed to load registry", err)
		r.logger.Error("registry load failed, starting empty",
			"error", err.Error(),
		)
		return r, r.loadErr
	}

	r.records = make([]*RenameHistoryRecord, 0, len(loaded))
	for i := range loaded {
		rec := loaded[i]
		if err := rec.Validate(); err != nil {
			r.logger.Warn("skipping invalid persisted record",
				"index", i,
				"error", err.Error(),
			)
			continue
		}
		if rec.PreviousNames == nil {
			rec.PreviousNames = []SymbolicName{}
		}
		r.records = append(r.records, &rec)
	}

	r.logger.Debug("registry loaded",
		"records", len(r.records),
	)

	return r, nil
}

// LoadError returns the error from the initial load, if any.
func (r *Registry) LoadError() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadErr
}

// Refresh updates every record against the symbol source. Without force it is
// a no-op once per epoch. A persistence failure is returned but the in-memory
// update stands.
func (r *Registry) Refresh(ctx context.Context, force bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refreshLocked(ctx, force)
}

// Invalidate starts a new epoch: the next Refresh or Resolve sweeps all
// records again. Records are not touched.
func (r *Registry) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refreshed = false
}

// Track adds a record for id under name with an empty history and persists.
func (r *Registry) Track(ctx context.Context, id StableIdentity, name SymbolicName) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.trackLocked(ctx, id, name, "")
}

// Save persists the current records unconditionally.
func (r *Registry) Save(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.persistLocked(ctx)
}

// Prune removes records whose identity no longer resolves, after a forced
// refresh, and persists the result. It returns the removed records. When the
// source is a Scanner and its scan fails nothing is removed.
func (r *Registry) Prune(ctx context.Context) ([]RenameHistoryRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sc, ok := r.source.(Scanner); ok {
		if err := sc.Scan(ctx); err != nil {
			r.logger.Error("source scan failed, not pruning",
				"records", len(r.records),
				"error", err.Error(),
			)
			return nil, err
		}
	}

	refreshErr := r.refreshLocked(ctx, true)

	kept := r.records[:0]
	var removed []RenameHistoryRecord
	for _, rec := range r.records {
		if rec.orphaned {
			removed = append(removed, rec.Clone())
			continue
		}
		kept = append(kept, rec)
	}
	for i := len(kept); i < len(r.records); i++ {
		r.records[i] = nil
	}
	r.records = kept

	if len(removed) == 0 {
		return nil, refreshErr
	}

	r.logger.Info("pruned orphaned records",
		"removed", len(removed),
		"remaining", len(r.records),
	)

	if err := r.persistLocked(ctx); err != nil {
		return removed, err
	}
	return removed, refreshErr
}

// Records returns a copy of all records in registration order.
func (r *Registry) Records() []RenameHistoryRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]RenameHistoryRecord, len(r.records))
	for i, rec := range r.records {
		out[i] = rec.Clone()
	}
	return out
}

// Orphans returns copies of the records the last refresh could not resolve.
func (r *Registry) Orphans() []RenameHistoryRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []RenameHistoryRecord
	for _, rec := range r.records {
		if rec.orphaned {
			out = append(out, rec.Clone())
		}
	}
	return out
}

// Len returns the number of tracked records.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

func (r *Registry) refreshLocked(ctx context.Context, force bool) error {
	if r.refreshed && !force {
		return nil
	}

	mutated := false
	for _, rec := range r.records {
		before := rec.CurrentName
		ok, changed := rec.Update(ctx, r.source)
		if !ok {
			r.logger.Debug("tracked identity no longer declared",
				"id", string(rec.ID),
				"last_name", string(rec.CurrentName),
			)
			continue
		}
		if changed {
			mutated = true
			r.logger.Info("detected rename",
				"id", string(rec.ID),
				"from", string(before),
				"to", string(rec.CurrentName),
			)
		}
	}

	r.refreshed = true
	r.emitDiagnosticsLocked()

	if !mutated {
		return nil
	}
	return r.persistLocked(ctx)
}

func (r *Registry) trackLocked(ctx context.Context, id StableIdentity, name SymbolicName, handle string) error {
	rec := NewRecord(id, name)
	if err := rec.Validate(); err != nil {
		return err
	}
	rec.LastHandle = handle
	r.records = append(r.records, rec)

	r.logger.Info("tracking new identity",
		"id", string(id),
		"name", string(name),
	)

	return r.persistLocked(ctx)
}

// persistLocked saves a snapshot of the records. Failures are reported but
// the in-memory state is kept.
func (r *Registry) persistLocked(ctx context.Context) error {
	snapshot := make([]RenameHistoryRecord, len(r.records))
	for i, rec := range r.records {
		snapshot[i] = rec.Clone()
	}

	if err := r.store.Save(ctx, snapshot); err != nil {
		r.logger.Error("failed to persist registry",
			"records", len(snapshot),
			"error", err.Error(),
		)
		return errors.NewSymtrackError(errors.PersistenceFailed, "failed to save registry", err)
	}
	return nil
}

func (r *Registry) emitDiagnosticsLocked() {
	emit := func(d Diagnostic) {
		if r.onDiag != nil {
			r.onDiag(d)
		}
	}

	byName := make(map[SymbolicName][]StableIdentity)
	var order []SymbolicName
	for _, rec := range r.records {
		if rec.orphaned {
			emit(Diagnostic{Kind: OrphanedRecord, Name: rec.CurrentName, IDs: []StableIdentity{rec.ID}})
		}
		if _, seen := byName[rec.CurrentName]; !seen {
			order = append(order, rec.CurrentName)
		}
		byName[rec.CurrentName] = append(byName[rec.CurrentName], rec.ID)
	}

	for _, name := range order {
		if ids := byName[name]; len(ids) > 1 {
			r.logger.Warn("multiple identities share a current name",
				"name", string(name),
				"count", len(ids),
			)
			emit(Diagnostic{Kind: DuplicateCurrentName, Name: name, IDs: ids})
		}
	}
}
