// Package source implements identity.SymbolSource over a directory tree.
// A source file's stable identity is the GUID in its sidecar meta file; the
// name declared at that identity is the first eligible top-level type found
// in the file.
package source

import (
	"context"
	stderrors "errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"symtrack/internal/errors"
	"symtrack/internal/identity"
	"symtrack/internal/paths"
)

const (
	DefaultCacheTTL        = 5 * time.Minute
	DefaultCleanupInterval = 10 * time.Minute
)

// Extractor lists the fully qualified top-level type names declared in a
// source file.
type Extractor interface {
	Extract(ctx context.Context, lang Language, src []byte) ([]string, error)
}

// Options configures a FileSource. Zero values select defaults.
type Options struct {
	Roots             []string // Relative to the project root unless absolute
	Extensions        []string
	Ignore            []string // Directory names skipped during the walk
	MetaExtension     string
	CreateMissingMeta bool
	Eligible          identity.EligibilityFunc
	Extractor         Extractor
	CacheTTL          time.Duration
	Logger            *slog.Logger
}

// FileSource scans a project tree lazily and serves lookups from an index
// that is rebuilt after Invalidate.
type FileSource struct {
	root      string
	roots     []string
	exts      map[string]bool
	ignore    map[string]bool
	metaExt   string
	createMet bool
	eligible  identity.EligibilityFunc
	extractor Extractor
	parsed    *gocache.Cache
	logger    *slog.Logger

	mu  sync.Mutex
	idx *index
}

type index struct {
	byID   map[identity.StableIdentity]identity.Declaration
	byName map[identity.SymbolicName]identity.Declaration
	files  int
}

// parsedFile is cached per path and reused while size and mtime match.
type parsedFile struct {
	modTime time.Time
	size    int64
	names   []string
}

// New creates a FileSource rooted at root.
func New(root string, opts Options) *FileSource {
	s := &FileSource{
		root:      root,
		roots:     opts.Roots,
		exts:      make(map[string]bool),
		ignore:    make(map[string]bool),
		metaExt:   opts.MetaExtension,
		createMet: opts.CreateMissingMeta,
		eligible:  opts.Eligible,
		extractor: opts.Extractor,
		logger:    opts.Logger,
	}

	if len(s.roots) == 0 {
		s.roots = []string{"."}
	}
	exts := opts.Extensions
	if len(exts) == 0 {
		exts = []string{".cs", ".go", ".java"}
	}
	for _, ext := range exts {
		s.exts[strings.ToLower(ext)] = true
	}
	for _, name := range opts.Ignore {
		s.ignore[name] = true
	}
	if s.metaExt == "" {
		s.metaExt = DefaultMetaExtension
	}
	if s.eligible == nil {
		s.eligible = identity.AllEligible
	}
	if s.extractor == nil {
		s.extractor = NewTreeSitterExtractor()
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}

	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	s.parsed = gocache.New(ttl, DefaultCleanupInterval)

	return s
}

// Root returns the project root.
func (s *FileSource) Root() string {
	return s.root
}

// CurrentNameOf implements identity.SymbolSource.
func (s *FileSource) CurrentNameOf(ctx context.Context, id identity.StableIdentity) (identity.Declaration, bool) {
	idx := s.ensureIndex(ctx)
	decl, ok := idx.byID[id]
	return decl, ok
}

// ResolveDirectly implements identity.SymbolSource. Declarations that are
// not eligible, or whose file has no sidecar, come back without an ID.
func (s *FileSource) ResolveDirectly(ctx context.Context, name identity.SymbolicName) (identity.Declaration, bool) {
	idx := s.ensureIndex(ctx)
	decl, ok := idx.byName[name]
	return decl, ok
}

// Invalidate drops the index so the next lookup rescans the tree. Parsed
// files stay cached and are reused when unchanged.
func (s *FileSource) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.idx = nil
}

// Scan rebuilds the index now and reports scan failures.
func (s *FileSource) Scan(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.scan(ctx)
	if err != nil {
		return errors.NewSymtrackError(errors.SourceUnavailable, "failed to scan source tree", err)
	}
	s.idx = idx
	return nil
}

// Declarations returns every indexed declaration, trackable or not, sorted
// by name.
func (s *FileSource) Declarations(ctx context.Context) []identity.Declaration {
	idx := s.ensureIndex(ctx)
	out := make([]identity.Declaration, 0, len(idx.byName))
	for _, decl := range idx.byName {
		out = append(out, decl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *FileSource) ensureIndex(ctx context.Context) *index {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.idx != nil {
		return s.idx
	}

	idx, err := s.scan(ctx)
	if err != nil {
		// Not cached, so the next lookup retries.
		s.logger.Error("source scan failed",
			"root", s.root,
			"error", err.Error(),
		)
		return idx
	}
	s.idx = idx
	return idx
}

func (s *FileSource) scan(ctx context.Context) (*index, error) {
	start := time.Now()
	idx := &index{
		byID:   make(map[identity.StableIdentity]identity.Declaration),
		byName: make(map[identity.SymbolicName]identity.Declaration),
	}

	for _, root := range s.roots {
		dir := root
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(s.root, root)
		}

		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if d.IsDir() {
				if path != dir && s.ignore[d.Name()] {
					return filepath.SkipDir
				}
				return nil
			}
			if !s.exts[strings.ToLower(filepath.Ext(path))] {
				return nil
			}
			s.indexFile(ctx, path, idx)
			return nil
		})
		if err != nil {
			return idx, err
		}
	}

	s.logger.Debug("source scan complete",
		"files", idx.files,
		"declarations", len(idx.byName),
		"identities", len(idx.byID),
		"duration", time.Since(start),
	)
	return idx, nil
}

func (s *FileSource) indexFile(ctx context.Context, path string, idx *index) {
	names, err := s.declarations(ctx, path)
	if err != nil {
		s.logger.Warn("skipping unparseable file",
			"path", path,
			"error", err.Error(),
		)
		return
	}
	idx.files++

	handle, err := paths.CanonicalizePath(path, s.root)
	if err != nil {
		handle = filepath.ToSlash(path)
	}

	id := s.identityOf(path)
	if id != "" {
		if prev, dup := idx.byID[id]; dup {
			s.logger.Warn("sidecar guid reused, ignoring second file",
				"guid", string(id),
				"first", prev.Handle,
				"second", handle,
			)
			id = ""
		}
	}

	for _, name := range names {
		decl := identity.Declaration{Name: identity.SymbolicName(name), Handle: handle}

		if id != "" {
			candidate := decl
			candidate.ID = id
			if s.eligible(candidate) {
				decl = candidate
				idx.byID[id] = decl
				id = ""
			}
		}

		if prev, dup := idx.byName[decl.Name]; dup {
			s.logger.Warn("type declared more than once, keeping first",
				"name", name,
				"first", prev.Handle,
				"second", handle,
			)
			continue
		}
		idx.byName[decl.Name] = decl
	}
}

// declarations returns the type names in path, from cache when the file is
// unchanged.
func (s *FileSource) declarations(ctx context.Context, path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if v, ok := s.parsed.Get(path); ok {
		if pf, ok := v.(parsedFile); ok && pf.size == info.Size() && pf.modTime.Equal(info.ModTime()) {
			return pf.names, nil
		}
	}

	lang, ok := LanguageFromPath(path)
	if !ok {
		return nil, nil
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	names, err := s.extractor.Extract(ctx, lang, src)
	if err != nil {
		return nil, err
	}

	s.parsed.SetDefault(path, parsedFile{
		modTime: info.ModTime(),
		size:    info.Size(),
		names:   names,
	})
	return names, nil
}

func (s *FileSource) identityOf(path string) identity.StableIdentity {
	metaPath := MetaPath(path, s.metaExt)

	meta, err := ReadMeta(metaPath)
	if err == nil {
		return identity.StableIdentity(meta.GUID)
	}

	if !stderrors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("unreadable sidecar, file has no identity",
			"path", metaPath,
			"error", err.Error(),
		)
		return ""
	}
	if !s.createMet {
		return ""
	}

	meta, err = WriteMeta(metaPath)
	if err != nil {
		s.logger.Warn("failed to create sidecar",
			"path", metaPath,
			"error", err.Error(),
		)
		return ""
	}
	s.logger.Info("created sidecar",
		"path", metaPath,
		"guid", meta.GUID,
	)
	return identity.StableIdentity(meta.GUID)
}

// FileNameMatch accepts a declaration whose simple name equals its file's
// base name, the convention that makes a file's identity name one type.
func FileNameMatch(d identity.Declaration) bool {
	base := filepath.Base(filepath.FromSlash(d.Handle))
	base = strings.TrimSuffix(base, filepath.Ext(base))

	name := string(d.Name)
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return name != "" && name == base
}
