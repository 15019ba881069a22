package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"symtrack/internal/errors"
)

const (
	// StateDirName is the per-project state directory under the project root
	StateDirName = ".symtrack"
	// HomeEnvVar overrides the user-scope state directory
	HomeEnvVar = "SYMTRACK_HOME"
	// AppName is the directory name under the user config directory
	AppName = "symtrack"
)

// Scope selects where a registry's records live.
type Scope string

const (
	// ScopeProject keeps records with the project, shared by everyone working on it
	ScopeProject Scope = "project"
	// ScopeUser keeps records in the user's configuration directory
	ScopeUser Scope = "user"
)

// ParseScope converts a string to a Scope.
func ParseScope(s string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(s))) {
	case ScopeProject, "":
		return ScopeProject, nil
	case ScopeUser:
		return ScopeUser, nil
	default:
		return "", errors.NewSymtrackError(errors.ScopeInvalid,
			fmt.Sprintf("unknown scope %q (want project or user)", s), nil)
	}
}

// GetUserHome returns the user-scope state directory.
// Uses SYMTRACK_HOME if set, otherwise <user config dir>/symtrack.
func GetUserHome() (string, error) {
	if home := os.Getenv(HomeEnvVar); home != "" {
		return home, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine user config directory: %w", err)
	}
	return filepath.Join(dir, AppName), nil
}

// StateDir returns the state directory for scope. projectRoot is only used
// for the project scope.
func StateDir(scope Scope, projectRoot string) (string, error) {
	switch scope {
	case ScopeProject:
		root, err := filepath.Abs(projectRoot)
		if err != nil {
			return "", err
		}
		return filepath.Join(root, StateDirName), nil
	case ScopeUser:
		return GetUserHome()
	default:
		return "", errors.NewSymtrackError(errors.ScopeInvalid,
			fmt.Sprintf("unknown scope %q", scope), nil)
	}
}

// EnsureStateDir returns the state directory for scope, creating it if needed.
func EnsureStateDir(scope Scope, projectRoot string) (string, error) {
	dir, err := StateDir(scope, projectRoot)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create state directory %s: %w", dir, err)
	}
	return dir, nil
}

// CanonicalizePath converts an absolute path to a root-relative path with
// forward slashes, resolving symlinks where the path exists.
func CanonicalizePath(absolutePath string, root string) (string, error) {
	resolved, err := filepath.EvalSymlinks(absolutePath)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", err
		}
		resolved = absolutePath
	}

	rootResolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		if !os.IsNotExist(err) {
			return "", err
		}
		rootResolved = root
	}

	rel, err := filepath.Rel(rootResolved, resolved)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// IsWithinRoot checks if a path is inside root
func IsWithinRoot(path string, root string) bool {
	canonical, err := CanonicalizePath(path, root)
	if err != nil {
		return false
	}
	return canonical != ".." && !strings.HasPrefix(canonical, "../")
}
