package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"symtrack/internal/slogutil"
)

type countingInvalidator struct {
	n atomic.Int32
}

func (c *countingInvalidator) Invalidate() {
	c.n.Add(1)
}

func TestEventTypeString(t *testing.T) {
	tests := []struct {
		eventType EventType
		want      string
	}{
		{EventCreate, "create"},
		{EventModify, "modify"},
		{EventDelete, "delete"},
		{EventRename, "rename"},
		{EventType(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := tt.eventType.String()
			if got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.DebounceMs != 500 {
		t.Errorf("DebounceMs = %d, want 500", config.DebounceMs)
	}
	if config.MetaExtension != ".meta" {
		t.Errorf("MetaExtension = %q, want .meta", config.MetaExtension)
	}
	if len(config.IgnorePatterns) == 0 {
		t.Error("IgnorePatterns should not be empty")
	}
}

func TestWatcherIsRelevant(t *testing.T) {
	w := New(DefaultConfig(), slogutil.NewDiscardLogger(), nil)

	tests := []struct {
		path string
		want bool
	}{
		{"Assets/Player.cs", true},
		{"Assets/Player.cs.meta", true},
		{"pkg/game.go", true},
		{"Foo.JAVA", true},
		{"README.md", false},
		{"Assets/Player.prefab", false},
	}
	for _, tt := range tests {
		if got := w.IsRelevant(tt.path); got != tt.want {
			t.Errorf("IsRelevant(%s) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestWatcherIsIgnored(t *testing.T) {
	w := New(DefaultConfig(), slogutil.NewDiscardLogger(), nil)

	tests := []struct {
		path string
		want bool
	}{
		{"src/Player.cs", false},
		{".git/index", true},
		{"node_modules/pkg/index.js", true},
		{"src/vendor/lib.go", true},
		{"src/Player.cs~", true},
		{"build/out.tmp", true},
	}
	for _, tt := range tests {
		if got := w.IsIgnored(tt.path); got != tt.want {
			t.Errorf("IsIgnored(%s) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestWatcherStopWithoutStart(t *testing.T) {
	w := New(DefaultConfig(), slogutil.NewDiscardLogger(), nil)
	if err := w.Stop(); err != nil {
		t.Errorf("Stop() without Start = %v", err)
	}
}

func TestWatcherStartMissingRoot(t *testing.T) {
	w := New(DefaultConfig(), slogutil.NewDiscardLogger(), nil)
	if err := w.Start(filepath.Join(t.TempDir(), "missing")); err == nil {
		_ = w.Stop()
		t.Fatal("expected error for missing root")
	}
}

func TestWatcherInvalidatesOnChange(t *testing.T) {
	root := t.TempDir()
	cfg := DefaultConfig()
	cfg.DebounceMs = 100

	target := &countingInvalidator{}
	batches := make(chan []Event, 4)
	w := New(cfg, slogutil.NewDiscardLogger(), func(events []Event) {
		batches <- events
	}, target)

	if err := w.Start(root); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() { _ = w.Stop() })

	if err := os.WriteFile(filepath.Join(root, "Player.cs"), []byte("class Player {}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "notes.md"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case events := <-batches:
		if len(events) != 1 {
			t.Errorf("expected one collapsed event for Player.cs, got %d: %+v", len(events), events)
		}
		if filepath.Base(events[0].Path) != "Player.cs" {
			t.Errorf("event path = %s, want Player.cs", events[0].Path)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change batch")
	}

	if target.n.Load() < 1 {
		t.Error("Invalidate was not called")
	}

	if roots := w.WatchedRoots(); len(roots) != 1 || roots[0] != root {
		t.Errorf("WatchedRoots() = %v, want [%s]", roots, root)
	}
	stats := w.Stats()
	if stats["running"] != true || stats["batches"].(int) < 1 {
		t.Errorf("Stats() = %v, want running with at least one batch", stats)
	}
	if err := w.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if w.Stats()["running"] != false {
		t.Error("Stats() still reports running after Stop")
	}
}

func TestWatcherWatchesNewDirectories(t *testing.T) {
	root := t.TempDir()
	cfg := DefaultConfig()
	cfg.DebounceMs = 20

	batches := make(chan []Event, 4)
	w := New(cfg, slogutil.NewDiscardLogger(), func(events []Event) {
		batches <- events
	})
	if err := w.Start(root); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() { _ = w.Stop() })

	sub := filepath.Join(root, "Scripts")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	// Give the loop a moment to register the new directory.
	deadline := time.Now().Add(5 * time.Second)
	for {
		if err := os.WriteFile(filepath.Join(sub, "Enemy.cs"), []byte("class Enemy {}"), 0o644); err != nil {
			t.Fatal(err)
		}
		select {
		case <-batches:
			return
		case <-time.After(200 * time.Millisecond):
		}
		if time.Now().After(deadline) {
			t.Fatal("no events from new subdirectory")
		}
	}
}

func TestNewBatchDebouncer(t *testing.T) {
	b := NewBatchDebouncer(100*time.Millisecond, func([]Event) {})
	if b.EventCount() != 0 {
		t.Errorf("EventCount = %d, want 0", b.EventCount())
	}
}

func TestBatchDebouncerAdd(t *testing.T) {
	var mu sync.Mutex
	var received []Event

	b := NewBatchDebouncer(50*time.Millisecond, func(events []Event) {
		mu.Lock()
		received = events
		mu.Unlock()
	})

	b.Add(Event{Type: EventCreate, Path: "/a.cs"})
	b.Add(Event{Type: EventModify, Path: "/b.cs"})
	b.Add(Event{Type: EventModify, Path: "/a.cs"})

	if b.EventCount() != 2 {
		t.Errorf("EventCount = %d, want 2 (same path collapses)", b.EventCount())
	}

	time.Sleep(150 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 2 {
		t.Fatalf("received %d events, want 2", len(received))
	}
	if received[0].Path != "/a.cs" || received[0].Type != EventModify {
		t.Errorf("first event = %+v, want latest event for /a.cs", received[0])
	}
}

func TestBatchDebouncerCancel(t *testing.T) {
	var called atomic.Bool
	b := NewBatchDebouncer(50*time.Millisecond, func([]Event) { called.Store(true) })

	b.Add(Event{Type: EventCreate, Path: "/a.cs"})
	b.Cancel()

	time.Sleep(100 * time.Millisecond)

	if called.Load() {
		t.Error("emit should not be called after Cancel")
	}
	if b.EventCount() != 0 {
		t.Errorf("EventCount = %d after Cancel, want 0", b.EventCount())
	}
}

func TestBatchDebouncerFlush(t *testing.T) {
	var count atomic.Int32
	b := NewBatchDebouncer(time.Hour, func(events []Event) { count.Add(int32(len(events))) })

	b.Add(Event{Type: EventCreate, Path: "/a.cs"})
	b.Add(Event{Type: EventCreate, Path: "/b.cs"})
	b.Flush()

	if count.Load() != 2 {
		t.Errorf("flushed %d events, want 2", count.Load())
	}
}

func TestBatchDebouncerNoEmitWithNoEvents(t *testing.T) {
	var called atomic.Bool
	b := NewBatchDebouncer(10*time.Millisecond, func([]Event) { called.Store(true) })

	b.Flush()

	if called.Load() {
		t.Error("emit should not be called with no events")
	}
}
