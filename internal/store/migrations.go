package store

import (
	"database/sql"
	"fmt"

	"finguard/internal/logging"
)

// Migration defines a column addition applied to existing databases.
type Migration struct {
	Table  string
	Column string
	Def    string
}

// pendingMigrations lists schema migrations for databases created before the
// column existed. CREATE TABLE in store.go already carries every column for
// fresh databases.
var pendingMigrations = []Migration{
	// Payment mode was added after the first transaction schema shipped.
	{"transactions", "mode", "TEXT"},
	// Source tagging (MANUAL vs IMPORT) for manual entry support.
	{"transactions", "source", "TEXT DEFAULT 'IMPORT'"},
	// Goal deadlines arrived with the planning capability.
	{"goals", "target_date", "TEXT"},
	// Loan interest tracking for liability summaries.
	{"loans", "interest_rate", "REAL DEFAULT 0"},
}

// RunMigrations applies pending column migrations.
func RunMigrations(db *sql.DB) error {
	applied := 0
	for _, m := range pendingMigrations {
		if !tableExists(db, m.Table) {
			continue
		}
		if columnExists(db, m.Table, m.Column) {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.Table, m.Column, m.Def)
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %s.%s failed: %w", m.Table, m.Column, err)
		}
		applied++
	}
	if applied > 0 {
		logging.Store("Applied %d schema migrations", applied)
	}
	return nil
}

func tableExists(db *sql.DB, table string) bool {
	var name string
	err := db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name = ?", table,
	).Scan(&name)
	return err == nil
}

func columnExists(db *sql.DB, table, column string) bool {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notNull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			continue
		}
		if name == column {
			return true
		}
	}
	return false
}
