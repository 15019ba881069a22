package storage

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"symtrack/internal/identity"
	"symtrack/internal/slogutil"
)

func setupTestDB(t *testing.T) (*DB, string) {
	t.Helper()

	tmpDir := t.TempDir()

	db, err := Open(tmpDir, slogutil.NewDiscardLogger())
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close database: %v", err)
		}
	})

	return db, tmpDir
}

func TestDatabaseInitialization(t *testing.T) {
	db, tmpDir := setupTestDB(t)

	dbPath := filepath.Join(tmpDir, DatabaseFile)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Fatalf("Database file was not created at %s", dbPath)
	}
	if db.Path() != dbPath {
		t.Errorf("Path() = %q, want %q", db.Path(), dbPath)
	}

	version, err := db.getSchemaVersion()
	if err != nil {
		t.Fatalf("Failed to get schema version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("Expected schema version %d, got %d", currentSchemaVersion, version)
	}
}

func TestReopenExistingDatabase(t *testing.T) {
	tmpDir := t.TempDir()
	ctx := context.Background()

	db, err := Open(tmpDir, slogutil.NewDiscardLogger())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	store := NewRegistryStore(db, "project")
	if err := store.Save(ctx, []identity.RenameHistoryRecord{{ID: "a1", CurrentName: "Game.Player"}}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	db, err = Open(tmpDir, slogutil.NewDiscardLogger())
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer db.Close()

	recs, err := NewRegistryStore(db, "project").Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(recs) != 1 || recs[0].CurrentName != "Game.Player" {
		t.Errorf("Load() = %+v, want the saved record", recs)
	}
}

func TestRegistryStoreEmptyScope(t *testing.T) {
	db, _ := setupTestDB(t)

	recs, err := NewRegistryStore(db, "project").Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if recs == nil || len(recs) != 0 {
		t.Errorf("Load() = %#v, want empty non-nil slice", recs)
	}
}

func TestRegistryStoreRoundTrip(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()
	store := NewRegistryStore(db, "project")

	want := []identity.RenameHistoryRecord{
		{ID: "b7", CurrentName: "Game.Enemy", PreviousNames: []identity.SymbolicName{"Game.Foe", "Game.Baddie"}},
		{ID: "a1", CurrentName: "Game.Player", PreviousNames: []identity.SymbolicName{}},
		{ID: "c3", CurrentName: "Game.Dup", PreviousNames: []identity.SymbolicName{}},
		{ID: "c3", CurrentName: "Game.Dup", PreviousNames: []identity.SymbolicName{"Game.Old"}},
	}

	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
}

func TestRegistryStoreSaveReplaces(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()
	store := NewRegistryStore(db, "project")

	first := []identity.RenameHistoryRecord{
		{ID: "a1", CurrentName: "A", PreviousNames: []identity.SymbolicName{"Z"}},
		{ID: "b2", CurrentName: "B", PreviousNames: []identity.SymbolicName{}},
	}
	second := []identity.RenameHistoryRecord{
		{ID: "b2", CurrentName: "B2", PreviousNames: []identity.SymbolicName{"B"}},
	}

	if err := store.Save(ctx, first); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Save(ctx, second); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(got, second) {
		t.Errorf("Load() = %+v, want %+v", got, second)
	}
}

func TestRegistryStoreScopesAreIsolated(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()

	project := NewRegistryStore(db, "project")
	user := NewRegistryStore(db, "user")

	if err := project.Save(ctx, []identity.RenameHistoryRecord{{ID: "p", CurrentName: "P"}}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := user.Save(ctx, []identity.RenameHistoryRecord{{ID: "u", CurrentName: "U"}}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := user.Save(ctx, nil); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := project.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != "p" {
		t.Errorf("project Load() = %+v, want [p]", got)
	}

	got, err = user.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("user Load() = %+v, want empty", got)
	}
}

func TestRegistryStoreKeepsLastHandle(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()
	store := NewRegistryStore(db, "project")

	want := []identity.RenameHistoryRecord{
		{ID: "a1", CurrentName: "Game.Enemy", PreviousNames: []identity.SymbolicName{"Game.Foe"}, LastHandle: "Assets/Enemy.cs"},
	}
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != 1 || got[0].LastHandle != "Assets/Enemy.cs" || got[0].Handle() != "Assets/Enemy.cs" {
		t.Errorf("Load() = %+v, want handle Assets/Enemy.cs", got)
	}
}

func TestMigrateFromVersion1(t *testing.T) {
	tmpDir := t.TempDir()
	ctx := context.Background()

	conn, err := sql.Open("sqlite", filepath.Join(tmpDir, DatabaseFile))
	if err != nil {
		t.Fatalf("sql.Open() error = %v", err)
	}
	v1 := []string{
		"CREATE TABLE schema_version (version INTEGER NOT NULL)",
		"INSERT INTO schema_version (version) VALUES (1)",
		`CREATE TABLE tracked_symbols (
			scope TEXT NOT NULL,
			position INTEGER NOT NULL,
			stable_id TEXT NOT NULL,
			current_name TEXT NOT NULL,
			PRIMARY KEY (scope, position)
		)`,
		`CREATE TABLE previous_names (
			scope TEXT NOT NULL,
			position INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			name TEXT NOT NULL,
			PRIMARY KEY (scope, position, seq)
		)`,
		"INSERT INTO tracked_symbols VALUES ('project', 0, 'a1', 'Game.Player')",
	}
	for _, stmt := range v1 {
		if _, err := conn.Exec(stmt); err != nil {
			t.Fatalf("setup %q: %v", stmt, err)
		}
	}
	if err := conn.Close(); err != nil {
		t.Fatal(err)
	}

	db, err := Open(tmpDir, slogutil.NewDiscardLogger())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	version, err := db.getSchemaVersion()
	if err != nil || version != currentSchemaVersion {
		t.Fatalf("schema version = %d, %v, want %d", version, err, currentSchemaVersion)
	}

	store := NewRegistryStore(db, "project")
	recs, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(recs) != 1 || recs[0].CurrentName != "Game.Player" || recs[0].LastHandle != "" {
		t.Errorf("Load() = %+v, want migrated record without handle", recs)
	}

	recs[0].LastHandle = "Assets/Player.cs"
	if err := store.Save(ctx, recs); err != nil {
		t.Fatalf("Save() after migration error = %v", err)
	}
}

func TestRegistryStoreRejectsInvalidRows(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()
	store := NewRegistryStore(db, "project")

	if err := store.Save(ctx, []identity.RenameHistoryRecord{{ID: "ok", CurrentName: "Ok"}}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Save(ctx, []identity.RenameHistoryRecord{{ID: "", CurrentName: "Broken"}}); err == nil {
		t.Fatal("Save() should reject an empty stable id")
	}

	// The failed transaction leaves the previous state intact.
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != "ok" {
		t.Errorf("Load() = %+v, want [ok]", got)
	}
}

func TestRegistryOverSQLite(t *testing.T) {
	db, _ := setupTestDB(t)
	ctx := context.Background()
	store := NewRegistryStore(db, "project")

	src := &staticSource{decls: map[identity.StableIdentity]identity.SymbolicName{"g1": "Game.Player"}}
	reg, err := identity.Open(ctx, store, src)
	if err != nil {
		t.Fatalf("identity.Open() error = %v", err)
	}
	if _, found, err := reg.Resolve(ctx, "Game.Player"); !found || err != nil {
		t.Fatalf("Resolve() = %v, %v", found, err)
	}

	src.decls["g1"] = "Game.Hero"
	if err := reg.Refresh(ctx, true); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	reloaded, err := identity.Open(ctx, store, src)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	res, found, err := reloaded.Resolve(ctx, "Game.Player")
	if err != nil || !found {
		t.Fatalf("Resolve() after reload = %v, %v", found, err)
	}
	if res.Name != "Game.Hero" || res.ID != "g1" {
		t.Errorf("Resolve() after reload = %+v, want g1 as Game.Hero", res)
	}
}

type staticSource struct {
	decls map[identity.StableIdentity]identity.SymbolicName
}

func (s *staticSource) CurrentNameOf(_ context.Context, id identity.StableIdentity) (identity.Declaration, bool) {
	name, ok := s.decls[id]
	return identity.Declaration{ID: id, Name: name}, ok
}

func (s *staticSource) ResolveDirectly(_ context.Context, name identity.SymbolicName) (identity.Declaration, bool) {
	for id, n := range s.decls {
		if n == name {
			return identity.Declaration{ID: id, Name: n}, true
		}
	}
	return identity.Declaration{}, false
}
