package database

import (
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
)

// Schema is the full schema produced by applying every migration. Tests use
// it to build a catalog without running the migrator.
//
//go:embed sqlc/schema.sql
var Schema string

const schemaHeader = `-- Generated from internal/database/migrations/files by 'go generate ./internal/database'.
-- Edit the migrations, not this file.

`

// DumpSchema renders the tables and indexes of a migrated catalog, tables
// first, leaving out SQLite internals and the migration bookkeeping table.
func DumpSchema(db *sql.DB) (string, error) {
	rows, err := db.Query(`
		SELECT sql || ';'
		FROM sqlite_master
		WHERE type IN ('table', 'index')
		  AND sql IS NOT NULL
		  AND name NOT LIKE 'sqlite_%'
		  AND tbl_name != 'schema_migrations'
		ORDER BY CASE type WHEN 'table' THEN 1 ELSE 2 END, name`)
	if err != nil {
		return "", fmt.Errorf("reading sqlite_master: %w", err)
	}
	defer rows.Close()

	var b strings.Builder
	b.WriteString(schemaHeader)
	for rows.Next() {
		var stmt string
		if err := rows.Scan(&stmt); err != nil {
			return "", fmt.Errorf("scanning schema row: %w", err)
		}
		b.WriteString(stmt)
		b.WriteString("\n\n")
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("reading sqlite_master: %w", err)
	}
	return b.String(), nil
}
