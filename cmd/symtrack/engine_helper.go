package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"symtrack/internal/config"
	"symtrack/internal/docstore"
	"symtrack/internal/errors"
	"symtrack/internal/identity"
	"symtrack/internal/paths"
	"symtrack/internal/slogutil"
	"symtrack/internal/source"
	"symtrack/internal/storage"
)

// newExtractor builds the declaration extractor; tests replace it.
var newExtractor = source.NewTreeSitterExtractor

// engine wires configuration, store, source and registry for one command.
type engine struct {
	root        string
	cfg         *config.Config
	scope       paths.Scope
	stateDir    string
	logger      *slog.Logger
	source      *source.FileSource
	registry    *identity.Registry
	diagnostics []identity.Diagnostic
	loadErr     error
	storePath   string
	backupPath  string
	closers     []func() error
}

// openEngine loads configuration and opens the registry. A registry whose
// store could not be read is still returned, empty, with loadErr set.
func openEngine(ctx context.Context) (*engine, error) {
	root, err := getProjectRoot()
	if err != nil {
		return nil, err
	}

	cfg, err := config.LoadConfig(root)
	if err != nil {
		return nil, errors.NewSymtrackError(errors.ConfigInvalid, "failed to load config", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.NewSymtrackError(errors.ConfigInvalid, "invalid config", err)
	}

	logger := newLogger(cfg)

	scopeName := cfg.Scope
	if scopeFlag != "" {
		scopeName = scopeFlag
	}
	scope, err := paths.ParseScope(scopeName)
	if err != nil {
		return nil, err
	}

	stateDir, err := paths.EnsureStateDir(scope, root)
	if err != nil {
		return nil, errors.NewSymtrackError(errors.PersistenceFailed, "failed to prepare state directory", err)
	}

	e := &engine{
		root:     root,
		cfg:      cfg,
		scope:    scope,
		stateDir: stateDir,
		logger:   logger,
	}

	store, err := e.openStore()
	if err != nil {
		_ = e.Close()
		return nil, err
	}

	e.source = source.New(root, sourceOptions(cfg, logger))

	reg, err := identity.Open(ctx, store, e.source,
		identity.WithLogger(logger.With(slogutil.ComponentKey, "registry")),
		identity.WithDiagnosticHook(func(d identity.Diagnostic) {
			e.diagnostics = append(e.diagnostics, d)
		}),
	)
	if err != nil {
		e.loadErr = err
		logger.Warn("continuing with an empty registry",
			"error", err.Error(),
		)
		// The next save replaces the store, so keep a copy of what could not be read.
		backup, backupErr := backupStore(e.storePath, time.Now())
		if backupErr != nil {
			_ = e.Close()
			return nil, errors.NewSymtrackError(errors.PersistenceFailed, "failed to back up unreadable store", backupErr)
		}
		e.backupPath = backup
		if backup != "" {
			logger.Warn("unreadable store copied",
				"path", e.storePath,
				"backup", backup,
			)
		}
	}
	e.registry = reg

	return e, nil
}

func (e *engine) openStore() (identity.Store, error) {
	switch e.cfg.Store.Backend {
	case "file":
		format, err := docstore.ParseFormat(e.cfg.Store.Format)
		if err != nil {
			return nil, errors.NewSymtrackError(errors.ConfigInvalid, "invalid store format", err)
		}
		store := docstore.New(e.stateDir, string(e.scope), docstore.Options{
			Format:   format,
			Compress: e.cfg.Store.Compress,
			Logger:   e.logger.With(slogutil.ComponentKey, "docstore"),
		})
		e.storePath = store.Path()
		return store, nil
	default:
		db, err := storage.Open(e.stateDir, e.logger.With(slogutil.ComponentKey, "storage"))
		if err != nil {
			return nil, errors.NewSymtrackError(errors.LoadFailed, "failed to open database", err)
		}
		e.closers = append(e.closers, db.Close)
		e.storePath = db.Path()
		return storage.NewRegistryStore(db, string(e.scope)), nil
	}
}

func sourceOptions(cfg *config.Config, logger *slog.Logger) source.Options {
	opts := source.Options{
		Roots:             cfg.Source.Roots,
		Extensions:        cfg.Source.Extensions,
		Ignore:            cfg.Source.Ignore,
		MetaExtension:     cfg.Source.MetaExtension,
		CreateMissingMeta: cfg.Source.CreateMissingMeta,
		Extractor:         newExtractor(),
		CacheTTL:          time.Duration(cfg.Source.CacheTtlSeconds) * time.Second,
		Logger:            logger.With(slogutil.ComponentKey, "source"),
	}
	if cfg.Source.RequireFileNameMatch {
		opts.Eligible = source.FileNameMatch
	}
	return opts
}

// sourceRoots returns the configured source roots as absolute paths.
func (e *engine) sourceRoots() []string {
	roots := make([]string, 0, len(e.cfg.Source.Roots))
	for _, r := range e.cfg.Source.Roots {
		if !filepath.IsAbs(r) {
			r = filepath.Join(e.root, r)
		}
		roots = append(roots, r)
	}
	return roots
}

// Close releases the store.
func (e *engine) Close() error {
	var firstErr error
	for _, c := range e.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	e.closers = nil
	return firstErr
}

// getProjectRoot returns --root or the working directory.
func getProjectRoot() (string, error) {
	if rootFlag != "" {
		return filepath.Abs(rootFlag)
	}
	return os.Getwd()
}

// newLogger creates the stderr logger. CLI verbosity flags win over the
// configured level.
func newLogger(cfg *config.Config) *slog.Logger {
	level := slogutil.LevelFromString(cfg.Logging.Level)
	if verbosity > 0 || quiet {
		level = slogutil.LevelFromVerbosity(verbosity, quiet)
	}
	return slogutil.NewFormattedLogger(os.Stderr, level, cfg.Logging.Format)
}

// newContext creates a new context for command execution.
func newContext() context.Context {
	return context.Background()
}

// parseFormat validates a --format flag value.
func parseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatHuman, "":
		return FormatHuman, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

// backupStore copies an unreadable store file next to itself and returns
// the copy's path, or "" when there is no file to keep.
func backupStore(path string, now time.Time) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	backup := path + ".unreadable-" + now.UTC().Format("20060102T150405Z")
	if err := os.WriteFile(backup, data, 0o600); err != nil {
		return "", err
	}
	return backup, nil
}

// warnings collects the load error and any non-fatal errors for output.
func (e *engine) warnings(errs ...error) []string {
	var out []string
	if e.loadErr != nil {
		out = append(out, e.loadErr.Error())
	}
	if e.backupPath != "" {
		out = append(out, "unreadable store kept at "+e.backupPath)
	}
	for _, err := range errs {
		if err != nil {
			out = append(out, err.Error())
		}
	}
	return out
}

// firstError returns the first non-nil error.
func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
