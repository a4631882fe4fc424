// Package migrations holds the catalog's numbered, forward-only schema
// migrations and applies them with golang-migrate.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed files/*.sql
var migrationFiles embed.FS

// ErrNeedsMigration is returned by CheckDBMigrationStatus for a database
// that was never migrated.
var ErrNeedsMigration = errors.New("database has no schema version (needs migration)")

// Latest returns the highest migration number shipped with the binary.
var Latest = sync.OnceValues(func() (uint, error) {
	entries, err := fs.ReadDir(migrationFiles, "files")
	if err != nil {
		return 0, fmt.Errorf("reading migration files: %w", err)
	}
	var latest uint
	for _, e := range entries {
		prefix, _, ok := strings.Cut(e.Name(), "_")
		if !ok {
			continue
		}
		n, err := strconv.ParseUint(prefix, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("migration %s: bad version number", e.Name())
		}
		latest = max(latest, uint(n))
	}
	return latest, nil
})

// Status reports the applied schema version and the latest version shipped
// with the binary. current is 0 for a database that was never migrated.
func Status(db *sql.DB) (current, latest uint, dirty bool, err error) {
	latest, err = Latest()
	if err != nil {
		return 0, 0, false, err
	}

	// m is not closed: closing it would close db, which the caller owns.
	m, err := newMigrate(db)
	if err != nil {
		return 0, 0, false, err
	}
	current, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, latest, false, nil
	}
	if err != nil {
		return 0, 0, false, fmt.Errorf("reading schema version: %w", err)
	}
	return current, latest, dirty, nil
}

// CheckDBMigrationStatus returns nil when the database schema is exactly at
// the latest version and a descriptive error otherwise.
func CheckDBMigrationStatus(db *sql.DB) error {
	current, latest, dirty, err := Status(db)
	switch {
	case err != nil:
		return err
	case current == 0:
		return ErrNeedsMigration
	case dirty:
		return fmt.Errorf("database is in dirty state at version %d (migration failed previously)", current)
	case current < latest:
		return fmt.Errorf("database is at version %d but latest is %d (%d migrations behind)",
			current, latest, latest-current)
	case current > latest:
		return fmt.Errorf("database version %d is ahead of binary version %d (binary needs update)",
			current, latest)
	}
	return nil
}

// MigrateUp applies every pending migration. Each migration file runs in
// its own transaction.
func MigrateUp(db *sql.DB) error {
	m, err := newMigrate(db)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

func newMigrate(db *sql.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(migrationFiles, "files")
	if err != nil {
		return nil, fmt.Errorf("opening migration files: %w", err)
	}
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("creating migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		src.Close()
		return nil, fmt.Errorf("creating migrator: %w", err)
	}
	return m, nil
}
