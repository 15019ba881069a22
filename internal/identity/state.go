package identity

import "context"

// RenameHistoryRecord tracks one stable identity and every name it has been
// declared under. PreviousNames is append-only and in rename order.
type RenameHistoryRecord struct {
	ID            StableIdentity `json:"id" yaml:"id" toml:"id"`
	CurrentName   SymbolicName   `json:"currentName" yaml:"currentName" toml:"currentName"`
	PreviousNames []SymbolicName `json:"previousNames" yaml:"previousNames" toml:"previousNames"`

	// LastHandle is the host reference seen by the latest lookup. It is
	// written with the record but a handle change alone does not trigger a save.
	LastHandle string `json:"lastHandle,omitempty" yaml:"lastHandle,omitempty" toml:"lastHandle,omitempty"`

	// Process-local, not persisted
	orphaned bool
}

// NewRecord creates a record with an empty rename history.
func NewRecord(id StableIdentity, name SymbolicName) *RenameHistoryRecord {
	return &RenameHistoryRecord{
		ID:            id,
		CurrentName:   name,
		PreviousNames: []SymbolicName{},
	}
}

// Update asks the source for the name currently declared at the record's
// identity. It returns false when the identity no longer resolves; the record
// is then marked orphaned but left untouched. changed reports whether the
// record's names were mutated.
func (r *RenameHistoryRecord) Update(ctx context.Context, source SymbolSource) (ok bool, changed bool) {
	decl, found := source.CurrentNameOf(ctx, r.ID)
	if !found {
		r.orphaned = true
		return false, false
	}

	r.orphaned = false
	r.LastHandle = decl.Handle

	if decl.Name == r.CurrentName {
		return true, false
	}

	old := r.CurrentName
	if old != "" && !r.lastPreviousIs(old) {
		r.PreviousNames = append(r.PreviousNames, old)
	}
	r.CurrentName = decl.Name

	return true, true
}

// HasPreviousName reports whether name appears in the rename history.
func (r *RenameHistoryRecord) HasPreviousName(name SymbolicName) bool {
	for _, prev := range r.PreviousNames {
		if prev == name {
			return true
		}
	}
	return false
}

// IsOrphaned returns true if the last refresh found no declaration for the record.
func (r *RenameHistoryRecord) IsOrphaned() bool {
	return r.orphaned
}

// Handle returns the last known host reference for the declaration. For an
// orphan this is where the declaration was last seen.
func (r *RenameHistoryRecord) Handle() string {
	return r.LastHandle
}

// Clone returns a deep copy of the record, including process-local state.
func (r *RenameHistoryRecord) Clone() RenameHistoryRecord {
	c := *r
	c.PreviousNames = append([]SymbolicName{}, r.PreviousNames...)
	return c
}

// Validate checks if the record is valid
func (r *RenameHistoryRecord) Validate() error {
	if r.ID == "" {
		return &ValidationError{Field: "ID", Message: "stable identity cannot be empty"}
	}

	if r.CurrentName == "" {
		return &ValidationError{Field: "CurrentName", Message: "current name cannot be empty"}
	}

	for _, prev := range r.PreviousNames {
		if prev == "" {
			return &ValidationError{Field: "PreviousNames", Message: "previous names cannot contain empty entries"}
		}
	}

	return nil
}

func (r *RenameHistoryRecord) lastPreviousIs(name SymbolicName) bool {
	n := len(r.PreviousNames)
	return n > 0 && r.PreviousNames[n-1] == name
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "validation error on field " + e.Field + ": " + e.Message
}
