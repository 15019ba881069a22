// Package watcher turns file system changes under the source roots into
// registry checkpoints: after a quiet period every registered Invalidator is
// told to start a new epoch.
package watcher

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// EventType represents the type of file system event
type EventType int

const (
	EventCreate EventType = iota
	EventModify
	EventDelete
	EventRename
)

// String returns a string representation of the event type
func (e EventType) String() string {
	switch e {
	case EventCreate:
		return "create"
	case EventModify:
		return "modify"
	case EventDelete:
		return "delete"
	case EventRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Event represents a file system event
type Event struct {
	Type      EventType
	Path      string
	Timestamp time.Time
}

// Invalidator is anything that caches source state per epoch, such as
// identity.Registry and source.FileSource.
type Invalidator interface {
	Invalidate()
}

// ChangeHandler is called with each debounced batch, after invalidation.
type ChangeHandler func(events []Event)

// Config contains watcher configuration
type Config struct {
	DebounceMs     int      `json:"debounceMs" mapstructure:"debounceMs"`
	Extensions     []string `json:"extensions" mapstructure:"extensions"`
	MetaExtension  string   `json:"metaExtension" mapstructure:"metaExtension"`
	IgnorePatterns []string `json:"ignorePatterns" mapstructure:"ignorePatterns"`
}

// DefaultConfig returns the default watcher configuration
func DefaultConfig() Config {
	return Config{
		DebounceMs:    500,
		Extensions:    []string{".cs", ".go", ".java"},
		MetaExtension: ".meta",
		IgnorePatterns: []string{
			".git",
			".symtrack",
			"node_modules",
			"vendor",
			"*.tmp",
			"*~",
		},
	}
}

// Watcher watches source roots and invalidates its targets on change.
type Watcher struct {
	config  Config
	logger  *slog.Logger
	handler ChangeHandler
	targets []Invalidator
	exts    map[string]bool

	fsw     *fsnotify.Watcher
	batch   *BatchDebouncer
	done    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	roots   []string
	running bool
	batches int
}

// New creates a new file system watcher. handler may be nil.
func New(config Config, logger *slog.Logger, handler ChangeHandler, targets ...Invalidator) *Watcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	w := &Watcher{
		config:  config,
		logger:  logger,
		handler: handler,
		targets: targets,
		exts:    make(map[string]bool),
	}
	for _, ext := range config.Extensions {
		w.exts[strings.ToLower(ext)] = true
	}
	if config.MetaExtension != "" {
		w.exts[strings.ToLower(config.MetaExtension)] = true
	}
	w.batch = NewBatchDebouncer(time.Duration(config.DebounceMs)*time.Millisecond, w.emit)
	return w
}

// Start watches every directory under roots. Directories created later are
// added as their create events arrive.
func (w *Watcher) Start(roots ...string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("watcher already started")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	w.fsw = fsw

	w.roots = append(w.roots, roots...)
	for _, root := range roots {
		if err := w.addTree(root); err != nil {
			_ = fsw.Close()
			w.roots = nil
			return err
		}
	}

	w.done = make(chan struct{})
	w.running = true
	w.wg.Add(1)
	go w.loop()

	w.logger.Info("watching source roots",
		"roots", strings.Join(roots, ","),
		"debounce_ms", w.config.DebounceMs,
	)
	return nil
}

// Stop stops watching and drops pending events.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	close(w.done)
	w.mu.Unlock()

	err := w.fsw.Close()
	w.wg.Wait()
	w.batch.Cancel()

	w.logger.Info("watcher stopped")
	return err
}

// Flush emits pending events now instead of waiting for the quiet period.
func (w *Watcher) Flush() {
	w.batch.Flush()
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.IsIgnored(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watching directory %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error",
				"error", err.Error(),
			)

		case <-w.done:
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if w.IsIgnored(event.Name) {
		return
	}

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.mu.Lock()
			if w.running {
				if err := w.addTree(event.Name); err != nil {
					w.logger.Warn("failed to watch new directory",
						"path", event.Name,
						"error", err.Error(),
					)
				}
			}
			w.mu.Unlock()
			return
		}
	}

	if !w.IsRelevant(event.Name) {
		return
	}

	evType, ok := eventTypeOf(event.Op)
	if !ok {
		return
	}
	w.batch.Add(Event{Type: evType, Path: event.Name, Timestamp: time.Now()})
}

func (w *Watcher) emit(events []Event) {
	for _, t := range w.targets {
		t.Invalidate()
	}

	w.mu.Lock()
	w.batches++
	w.mu.Unlock()

	w.logger.Debug("source changes detected",
		"events", len(events),
	)
	if w.handler != nil {
		w.handler(events)
	}
}

func eventTypeOf(op fsnotify.Op) (EventType, bool) {
	switch {
	case op&fsnotify.Create != 0:
		return EventCreate, true
	case op&fsnotify.Remove != 0:
		return EventDelete, true
	case op&fsnotify.Rename != 0:
		return EventRename, true
	case op&fsnotify.Write != 0:
		return EventModify, true
	default:
		return 0, false
	}
}

// IsRelevant reports whether a file change can affect declarations.
func (w *Watcher) IsRelevant(path string) bool {
	return w.exts[strings.ToLower(filepath.Ext(path))]
}

// IsIgnored checks if any path component below the watched root matches an
// ignore pattern
func (w *Watcher) IsIgnored(path string) bool {
	rel := path
	for _, root := range w.roots {
		if r, err := filepath.Rel(root, path); err == nil && r != ".." && !strings.HasPrefix(r, ".."+string(filepath.Separator)) {
			rel = r
			break
		}
	}

	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if part == "" {
			continue
		}
		for _, pattern := range w.config.IgnorePatterns {
			if matched, _ := filepath.Match(pattern, part); matched {
				return true
			}
		}
	}
	return false
}

// WatchedRoots returns the roots passed to Start
func (w *Watcher) WatchedRoots() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string{}, w.roots...)
}

// Stats returns watcher statistics
func (w *Watcher) Stats() map[string]interface{} {
	w.mu.Lock()
	defer w.mu.Unlock()

	return map[string]interface{}{
		"running":        w.running,
		"roots":          len(w.roots),
		"debounceMs":     w.config.DebounceMs,
		"ignorePatterns": len(w.config.IgnorePatterns),
		"batches":        w.batches,
	}
}
