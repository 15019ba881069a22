package identity

import "context"

// StableIdentity is an opaque token naming the place a symbol is declared
// (for the filesystem source: the GUID in the declaring file's sidecar).
// It is never reused for another declaration and survives renames.
type StableIdentity string

// SymbolicName is the mutable, human-meaningful name currently used to refer
// to a declaration, e.g. a fully qualified type name.
type SymbolicName string

// Declaration is what a SymbolSource knows about one live declaration.
type Declaration struct {
	ID     StableIdentity `json:"id,omitempty"` // Empty when the declaration is not eligible for tracking
	Name   SymbolicName   `json:"name"`
	Handle string         `json:"handle,omitempty"` // Host reference (file path for the filesystem source)
}

// Trackable reports whether the declaration carries a stable identity.
func (d Declaration) Trackable() bool {
	return d.ID != ""
}

// SymbolSource maps stable identities to the names currently declared at
// them. Implementations decide eligibility; an ineligible declaration is
// returned by ResolveDirectly with an empty ID.
type SymbolSource interface {
	// CurrentNameOf returns the declaration currently found at id, or false
	// if the identity no longer resolves to any declaration.
	CurrentNameOf(ctx context.Context, id StableIdentity) (Declaration, bool)

	// ResolveDirectly looks name up as a live declaration.
	ResolveDirectly(ctx context.Context, name SymbolicName) (Declaration, bool)
}

// Scanner is implemented by sources whose sweep can fail as a whole, for
// example when a source root is missing. Prune refuses to run when Scan
// fails, since every identity would then look gone.
type Scanner interface {
	Scan(ctx context.Context) error
}

// Store persists the registry's records for one scope.
// Load must return an empty slice and nil error when nothing was persisted.
type Store interface {
	Load(ctx context.Context) ([]RenameHistoryRecord, error)
	Save(ctx context.Context, records []RenameHistoryRecord) error
}

// EligibilityFunc decides whether a declaration may be tracked.
type EligibilityFunc func(Declaration) bool

// AllEligible accepts every declaration.
func AllEligible(Declaration) bool { return true }
