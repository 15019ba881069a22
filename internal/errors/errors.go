package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// SymbolNotFound indicates a name matched no tracked record and no live declaration
	SymbolNotFound ErrorCode = "SYMBOL_NOT_FOUND"
	// PersistenceFailed indicates the registry could not be written to its store
	PersistenceFailed ErrorCode = "PERSISTENCE_FAILED"
	// LoadFailed indicates the persisted registry could not be read
	LoadFailed ErrorCode = "LOAD_FAILED"
	// InconsistentSource indicates the symbol source reported conflicting declarations
	InconsistentSource ErrorCode = "INCONSISTENT_SOURCE"
	// SourceUnavailable indicates the symbol source could not be scanned
	SourceUnavailable ErrorCode = "SOURCE_UNAVAILABLE"
	// ScopeInvalid indicates an unknown store scope
	ScopeInvalid ErrorCode = "SCOPE_INVALID"
	// ConfigInvalid indicates the configuration failed validation
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// OpenDocs suggests opening documentation
	OpenDocs FixActionType = "open-docs"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
	URL         string        `json:"url,omitempty"`
}

// SymtrackError represents an error with code, message, and suggestions
type SymtrackError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// NewSymtrackError creates a new SymtrackError.
// Suggested fixes default to the ones registered for the code.
func NewSymtrackError(code ErrorCode, message string, cause error) *SymtrackError {
	return &SymtrackError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: GetSuggestedFixes(code),
	}
}

// Error implements the error interface
func (e *SymtrackError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *SymtrackError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *SymtrackError) WithDetails(details interface{}) *SymtrackError {
	e.Details = details
	return e
}

// Is matches another SymtrackError with the same code, so callers can write
// errors.Is(err, &SymtrackError{Code: PersistenceFailed}).
func (e *SymtrackError) Is(target error) bool {
	t, ok := target.(*SymtrackError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// HasCode reports whether err is, or wraps, a SymtrackError with the given code.
func HasCode(err error, code ErrorCode) bool {
	var se *SymtrackError
	if !stderrors.As(err, &se) {
		return false
	}
	return se.Code == code
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	LoadFailed: {
		{
			Type:        RunCommand,
			Command:     "symtrack refresh --force",
			Safe:        true,
			Description: "Rebuild the registry from the current declarations; the unreadable store is copied aside first",
		},
	},
	PersistenceFailed: {
		{
			Type:        RunCommand,
			Command:     "symtrack config show",
			Safe:        true,
			Description: "Check the configured store backend and location",
		},
	},
	SourceUnavailable: {
		{
			Type:        RunCommand,
			Command:     "symtrack config show",
			Safe:        true,
			Description: "Check the configured source roots",
		},
	},
	ScopeInvalid: {
		{
			Type:        OpenDocs,
			Description: "Valid scopes are 'project' and 'user'",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
