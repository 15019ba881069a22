package identity

import (
	"context"
)

// ResolutionPass names the step of Resolve that produced a match.
type ResolutionPass string

const (
	// PassCurrentName means the input matched a record's current name
	PassCurrentName ResolutionPass = "current-name"
	// PassPreviousName means the input matched a name in a record's rename history
	PassPreviousName ResolutionPass = "previous-name"
	// PassDirect means the input was found by a live lookup in the source
	PassDirect ResolutionPass = "direct"
)

// Resolution is the outcome of resolving a possibly stale name.
type Resolution struct {
	Requested SymbolicName   `json:"requested"`
	Name      SymbolicName   `json:"name"`         // Current name the request resolves to
	ID        StableIdentity `json:"id,omitempty"` // Empty when resolved literally without tracking
	Handle    string         `json:"handle,omitempty"`
	Pass      ResolutionPass `json:"pass"`
	Tracked   bool           `json:"tracked"`            // The registry holds a record for ID
	Adopted   bool           `json:"adopted,omitempty"`  // The record was created by this call
	Orphaned  bool           `json:"orphaned,omitempty"` // ID no longer resolves; Name and Handle are last known
}

// Redirected reports whether the requested name differs from the resolved one.
func (r Resolution) Redirected() bool {
	return r.Requested != r.Name
}

// Resolve maps name to the declaration it refers to now. Records are matched
// on current names first, then on rename history, both in registration
// order; an untracked live declaration is adopted as a new record.
//
// found is false when nothing matches. err reports persistence failures of
// the refresh or adoption this call triggered; the returned resolution is
// still valid in that case.
func (r *Registry) Resolve(ctx context.Context, name SymbolicName) (res Resolution, found bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	refreshErr := r.refreshLocked(ctx, false)

	if rec := r.matchCurrentLocked(name); rec != nil {
		return resolutionFor(name, rec, PassCurrentName), true, refreshErr
	}

	if rec := r.matchPreviousLocked(name); rec != nil {
		r.logger.Debug("resolved through rename history",
			"requested", string(name),
			"current", string(rec.CurrentName),
			"id", string(rec.ID),
		)
		return resolutionFor(name, rec, PassPreviousName), true, refreshErr
	}

	decl, ok := r.source.ResolveDirectly(ctx, name)
	if !ok {
		r.logger.Debug("name not resolved",
			"requested", string(name),
		)
		return Resolution{Requested: name}, false, refreshErr
	}

	res = Resolution{
		Requested: name,
		Name:      name,
		Handle:    decl.Handle,
		Pass:      PassDirect,
	}

	if !decl.Trackable() {
		return res, true, refreshErr
	}

	if rec := r.recordForLocked(decl.ID); rec != nil {
		// Renamed since the last refresh of this epoch. Bring the record up to
		// date so the old name joins its history.
		before := rec.CurrentName
		ok, changed := rec.Update(ctx, r.source)
		if !ok || !changed {
			return resolutionFor(name, rec, PassDirect), true, refreshErr
		}
		r.logger.Info("detected rename",
			"id", string(rec.ID),
			"from", string(before),
			"to", string(rec.CurrentName),
		)
		if err := r.persistLocked(ctx); err != nil {
			return resolutionFor(name, rec, PassDirect), true, err
		}
		return resolutionFor(name, rec, PassDirect), true, refreshErr
	}

	res.ID = decl.ID
	res.Tracked = true
	res.Adopted = true

	if err := r.trackLocked(ctx, decl.ID, name, decl.Handle); err != nil {
		return res, true, err
	}
	return res, true, refreshErr
}

// History returns the record whose current or previous names include name,
// using the same precedence as Resolve. It does not adopt new records.
func (r *Registry) History(ctx context.Context, name SymbolicName) (RenameHistoryRecord, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.refreshLocked(ctx, false)

	rec := r.matchCurrentLocked(name)
	if rec == nil {
		rec = r.matchPreviousLocked(name)
	}
	if rec == nil {
		return RenameHistoryRecord{}, false, err
	}
	return rec.Clone(), true, err
}

func (r *Registry) matchCurrentLocked(name SymbolicName) *RenameHistoryRecord {
	for _, rec := range r.records {
		if rec.CurrentName == name {
			return rec
		}
	}
	return nil
}

func (r *Registry) matchPreviousLocked(name SymbolicName) *RenameHistoryRecord {
	for _, rec := range r.records {
		if rec.HasPreviousName(name) {
			return rec
		}
	}
	return nil
}

func (r *Registry) recordForLocked(id StableIdentity) *RenameHistoryRecord {
	for _, rec := range r.records {
		if rec.ID == id {
			return rec
		}
	}
	return nil
}

func resolutionFor(requested SymbolicName, rec *RenameHistoryRecord, pass ResolutionPass) Resolution {
	return Resolution{
		Requested: requested,
		Name:      rec.CurrentName,
		ID:        rec.ID,
		Handle:    rec.LastHandle,
		Pass:      pass,
		Tracked:   true,
		Orphaned:  rec.orphaned,
	}
}
