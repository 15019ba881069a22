package storage

import (
	"context"
	"database/sql"
	"fmt"

	"symtrack/internal/identity"
)

// RegistryStore persists registry records for one scope in the
// tracked_symbols and previous_names tables. It implements identity.Store.
type RegistryStore struct {
	db    *DB
	scope string
}

// NewRegistryStore creates a store for the given scope key
func NewRegistryStore(db *DB, scope string) *RegistryStore {
	return &RegistryStore{db: db, scope: scope}
}

// Scope returns the scope key the store reads and writes
func (s *RegistryStore) Scope() string {
	return s.scope
}

// Load returns the scope's records in registration order.
// An empty scope yields an empty slice.
func (s *RegistryStore) Load(ctx context.Context) ([]identity.RenameHistoryRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT position, stable_id, current_name, last_handle
		FROM tracked_symbols
		WHERE scope = ?
		ORDER BY position ASC
	`, s.scope)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracked symbols: %w", err)
	}
	defer rows.Close()

	records := []identity.RenameHistoryRecord{}
	byPosition := make(map[int]int)

	for rows.Next() {
		var position int
		var rec identity.RenameHistoryRecord
		if err := rows.Scan(&position, &rec.ID, &rec.CurrentName, &rec.LastHandle); err != nil {
			return nil, fmt.Errorf("failed to scan tracked symbol: %w", err)
		}
		rec.PreviousNames = []identity.SymbolicName{}
		byPosition[position] = len(records)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tracked symbols: %w", err)
	}
	rows.Close()

	if len(records) == 0 {
		return records, nil
	}

	prevRows, err := s.db.QueryContext(ctx, `
		SELECT position, name
		FROM previous_names
		WHERE scope = ?
		ORDER BY position ASC, seq ASC
	`, s.scope)
	if err != nil {
		return nil, fmt.Errorf("failed to query previous names: %w", err)
	}
	defer prevRows.Close()

	for prevRows.Next() {
		var position int
		var name identity.SymbolicName
		if err := prevRows.Scan(&position, &name); err != nil {
			return nil, fmt.Errorf("failed to scan previous name: %w", err)
		}
		idx, ok := byPosition[position]
		if !ok {
			continue
		}
		records[idx].PreviousNames = append(records[idx].PreviousNames, name)
	}
	if err := prevRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating previous names: %w", err)
	}

	return records, nil
}

// Save replaces the scope's records in one transaction
func (s *RegistryStore) Save(ctx context.Context, records []identity.RenameHistoryRecord) error {
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM previous_names WHERE scope = ?", s.scope); err != nil {
			return fmt.Errorf("failed to clear previous names: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM tracked_symbols WHERE scope = ?", s.scope); err != nil {
			return fmt.Errorf("failed to clear tracked symbols: %w", err)
		}

		symStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO tracked_symbols (scope, position, stable_id, current_name, last_handle)
			VALUES (?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer symStmt.Close()

		prevStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO previous_names (scope, position, seq, name)
			VALUES (?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer prevStmt.Close()

		for pos, rec := range records {
			if _, err := symStmt.ExecContext(ctx, s.scope, pos, string(rec.ID), string(rec.CurrentName), rec.LastHandle); err != nil {
				return fmt.Errorf("failed to insert tracked symbol %s: %w", rec.ID, err)
			}
			for seq, name := range rec.PreviousNames {
				if _, err := prevStmt.ExecContext(ctx, s.scope, pos, seq, string(name)); err != nil {
					return fmt.Errorf("failed to insert previous name for %s: %w", rec.ID, err)
				}
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	s.db.logger.Debug("saved registry",
		"scope", s.scope,
		"records", len(records),
	)

	return nil
}
