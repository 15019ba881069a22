package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema version tracking
const currentSchemaVersion = 2

// initializeSchema creates all tables for a new database
func (db *DB) initializeSchema() error {
	return db.WithTx(context.Background(), func(tx *sql.Tx) error {
		if err := createSchemaVersionTable(tx); err != nil {
			return err
		}
		if err := createTrackedSymbolsTable(tx); err != nil {
			return err
		}
		if err := createPreviousNamesTable(tx); err != nil {
			return err
		}

		if err := setSchemaVersion(tx, currentSchemaVersion); err != nil {
			return err
		}

		db.logger.Info("Database schema initialized",
			"version", currentSchemaVersion,
		)

		return nil
	})
}

// runMigrations runs any pending schema migrations
func (db *DB) runMigrations() error {
	version, err := db.getSchemaVersion()
	if err != nil {
		return err
	}

	if version == currentSchemaVersion {
		db.logger.Debug("Database schema is up to date",
			"version", version,
		)
		return nil
	}

	if version > currentSchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}

	db.logger.Info("Running database migrations",
		"from_version", version,
		"to_version", currentSchemaVersion,
	)

	// A file without a schema_version row predates the registry tables.
	if version == 0 {
		return db.initializeSchema()
	}

	return db.WithTx(context.Background(), func(tx *sql.Tx) error {
		if version < 2 {
			if err := migrateV1ToV2(tx); err != nil {
				return err
			}
		}
		return setSchemaVersion(tx, currentSchemaVersion)
	})
}

// migrateV1ToV2 adds the last known handle to tracked symbols
func migrateV1ToV2(tx *sql.Tx) error {
	if _, err := tx.Exec("ALTER TABLE tracked_symbols ADD COLUMN last_handle TEXT NOT NULL DEFAULT ''"); err != nil {
		return fmt.Errorf("failed to add last_handle column: %w", err)
	}
	return nil
}

// getSchemaVersion gets the current schema version
func (db *DB) getSchemaVersion() (int, error) {
	var tableName string
	err := db.QueryRow(`
		SELECT name FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&tableName)

	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var version int
	err = db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return version, nil
}

// setSchemaVersion sets the schema version
func setSchemaVersion(tx *sql.Tx, version int) error {
	_, err := tx.Exec("DELETE FROM schema_version")
	if err != nil {
		return err
	}
	_, err = tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version)
	return err
}

// createSchemaVersionTable creates the schema_version tracking table
func createSchemaVersionTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`)
	return err
}

// createTrackedSymbolsTable creates the tracked_symbols table.
// position preserves registration order within a scope.
func createTrackedSymbolsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS tracked_symbols (
			scope TEXT NOT NULL,
			position INTEGER NOT NULL,
			stable_id TEXT NOT NULL CHECK(stable_id != ''),
			current_name TEXT NOT NULL CHECK(current_name != ''),
			last_handle TEXT NOT NULL DEFAULT '',

			PRIMARY KEY (scope, position)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create tracked_symbols table: %w", err)
	}

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_tracked_symbols_stable_id ON tracked_symbols(scope, stable_id)",
		"CREATE INDEX IF NOT EXISTS idx_tracked_symbols_current_name ON tracked_symbols(scope, current_name)",
	}

	for _, indexSQL := range indexes {
		if _, err := tx.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	return nil
}

// createPreviousNamesTable creates the previous_names table.
// seq is the chronological rename order within one record.
func createPreviousNamesTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS previous_names (
			scope TEXT NOT NULL,
			position INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			name TEXT NOT NULL CHECK(name != ''),

			PRIMARY KEY (scope, position, seq),
			FOREIGN KEY (scope, position) REFERENCES tracked_symbols(scope, position) ON DELETE CASCADE
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create previous_names table: %w", err)
	}

	if _, err := tx.Exec("CREATE INDEX IF NOT EXISTS idx_previous_names_name ON previous_names(scope, name)"); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}
