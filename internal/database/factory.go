package database

import (
	"fmt"
	"os"
	"path/filepath"

	"usbb-go/internal/config"
	"usbb-go/internal/database/migrations"
	"usbb-go/internal/usbb"
)

// CatalogFileName is the catalog database file inside the data directory.
const CatalogFileName = "usbb.db"

// NewCatalogFromConfig opens the catalog selected by the database config
// and brings its schema up to date.
func NewCatalogFromConfig(cfg config.DatabaseConfig, logger usbb.Logger) (*SQLiteCatalog, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		return OpenCatalog(filepath.Join(cfg.DataDir, CatalogFileName), logger)
	case "memory":
		return OpenCatalog(":memory:", logger)
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}

// OpenCatalog opens the catalog at path and applies pending migrations. A
// file catalog that already has a schema is first copied to
// <path>.v<version>.bak so a failed upgrade can be undone by hand.
func OpenCatalog(path string, logger usbb.Logger) (*SQLiteCatalog, error) {
	if logger == nil {
		logger = usbb.NewNopLogger()
	}

	catalog, err := NewSQLiteCatalog(path)
	if err != nil {
		return nil, err
	}

	current, latest, dirty, err := migrations.Status(catalog.db)
	if err != nil {
		catalog.Close()
		return nil, err
	}
	if dirty {
		catalog.Close()
		return nil, fmt.Errorf("database is in dirty state at version %d (migration failed previously)", current)
	}

	if current < latest {
		if current > 0 && path != ":memory:" {
			backupPath := fmt.Sprintf("%s.v%d.bak", path, current)
			os.Remove(backupPath) // VACUUM INTO refuses to overwrite
			if err := catalog.BackupTo(backupPath); err != nil {
				catalog.Close()
				return nil, fmt.Errorf("backing up catalog before upgrade: %w", err)
			}
			logger.Info("catalog backed up before upgrade", "path", backupPath, "from", current, "to", latest)
		}
		if err := migrations.MigrateUp(catalog.db); err != nil {
			catalog.Close()
			return nil, err
		}
	}

	if err := catalog.CheckMigrations(); err != nil {
		catalog.Close()
		return nil, err
	}
	return catalog, nil
}
