// Package docstore persists registry records as a single document file,
// one file per scope, for projects that want the registry under version
// control rather than in a database.
package docstore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"symtrack/internal/identity"
)

// documentVersion is bumped when the document layout changes.
const documentVersion = 1

type document struct {
	Version int                            `json:"version" yaml:"version" toml:"version"`
	Scope   string                         `json:"scope" yaml:"scope" toml:"scope"`
	Records []identity.RenameHistoryRecord `json:"records" yaml:"records" toml:"records"`
}

// Options configures a Store.
type Options struct {
	Format   Format
	Compress bool // Wrap the encoded document in zstd; adds .zst to the file name
	Logger   *slog.Logger
}

// Store reads and writes <dir>/<scope>.<format>[.zst].
type Store struct {
	path     string
	scope    string
	format   Format
	compress bool
	logger   *slog.Logger
}

// New creates a store for scope under dir. The directory is created on the
// first save.
func New(dir, scope string, opts Options) *Store {
	format := opts.Format
	if format == "" {
		format = FormatJSON
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	name := scope + format.Ext()
	if opts.Compress {
		name += ".zst"
	}

	return &Store{
		path:     filepath.Join(dir, name),
		scope:    scope,
		format:   format,
		compress: opts.Compress,
		logger:   logger,
	}
}

// Path returns the document file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the records. A missing file yields an empty slice.
func (s *Store) Load(_ context.Context) ([]identity.RenameHistoryRecord, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return []identity.RenameHistoryRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}

	if s.compress {
		data, err = decompress(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress %s: %w", s.path, err)
		}
	}

	var doc document
	if err := decode(s.format, data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", s.path, err)
	}
	if doc.Version > documentVersion {
		return nil, fmt.Errorf("%s has version %d, newer than supported %d", s.path, doc.Version, documentVersion)
	}

	if doc.Records == nil {
		doc.Records = []identity.RenameHistoryRecord{}
	}
	for i := range doc.Records {
		if doc.Records[i].PreviousNames == nil {
			doc.Records[i].PreviousNames = []identity.SymbolicName{}
		}
	}

	return doc.Records, nil
}

// Save replaces the document atomically: the new content is written to a
// temporary file in the same directory and renamed over the old one.
func (s *Store) Save(_ context.Context, records []identity.RenameHistoryRecord) error {
	doc := &document{
		Version: documentVersion,
		Scope:   s.scope,
		Records: records,
	}
	if doc.Records == nil {
		doc.Records = []identity.RenameHistoryRecord{}
	}

	data, err := encode(s.format, doc)
	if err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}
	if s.compress {
		data, err = compress(data)
		if err != nil {
			return fmt.Errorf("failed to compress records: %w", err)
		}
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return err
	}

	s.logger.Debug("saved registry document",
		"path", s.path,
		"records", len(records),
	)
	return nil
}
