package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"usbb-go/internal/database/migrations"
	"usbb-go/internal/database/sqlc"
	"usbb-go/internal/usbb"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteCatalog implements the usbb.Catalog interface using SQLite.
type SQLiteCatalog struct {
	db      *sql.DB
	queries *sqlc.Queries
	path    string
}

// NewSQLiteCatalog opens a SQLite catalog without touching its schema.
// path can be a file path or ":memory:" for in-memory database.
func NewSQLiteCatalog(path string) (*SQLiteCatalog, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return NewSQLiteCatalogFromDB(db, path), nil
}

// NewSQLiteCatalogFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly configured.
func NewSQLiteCatalogFromDB(db *sql.DB, path string) *SQLiteCatalog {
	return &SQLiteCatalog{
		db:      db,
		queries: sqlc.New(db),
		path:    path,
	}
}

// OpenConnection opens and configures a SQLite database connection.
// This is exported for use in tools and tests that need a properly configured SQLite connection.
// path can be a file path or ":memory:" for in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: an in-memory database lives and dies with its
	// connection, and SQLite serialises writers anyway. Queries must
	// therefore never be issued while rows or a transaction are open.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// Device operations

func (s *SQLiteCatalog) GetDevice(id string) (*usbb.Device, error) {
	row, err := s.queries.GetDevice(context.Background(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding device: %w", err)
	}
	return deviceFromRow(row), nil
}

func (s *SQLiteCatalog) GetDevices() ([]*usbb.Device, error) {
	rows, err := s.queries.ListDevices(context.Background())
	if err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}
	return devicesFromRows(rows), nil
}

func (s *SQLiteCatalog) GetDevicesByType(deviceType usbb.DeviceType) ([]*usbb.Device, error) {
	rows, err := s.queries.ListDevicesByType(context.Background(), string(deviceType))
	if err != nil {
		return nil, fmt.Errorf("listing %s devices: %w", deviceType, err)
	}
	return devicesFromRows(rows), nil
}

func (s *SQLiteCatalog) AddDevice(device *usbb.Device) error {
	if !device.DeviceType.Valid() {
		return fmt.Errorf("invalid device type %q", device.DeviceType)
	}
	err := s.queries.InsertDevice(context.Background(), sqlc.InsertDeviceParams{
		ID:          device.ID,
		DeviceType:  string(device.DeviceType),
		Name:        device.Name,
		Description: device.Description,
		Path:        device.Path,
		AddDate:     device.AddDate.UTC(),
	})
	if err != nil {
		return fmt.Errorf("inserting device: %w", err)
	}
	return nil
}

func (s *SQLiteCatalog) UpdateDevice(id string, update usbb.DeviceUpdate) error {
	n, err := s.queries.UpdateDevice(context.Background(), sqlc.UpdateDeviceParams{
		Name:        update.Name,
		Description: update.Description,
		Path:        update.Path,
		ID:          id,
	})
	return checkUpdated("updating device", id, n, err)
}

func (s *SQLiteCatalog) DeleteDevice(id string) error {
	// files rows go with it through ON DELETE CASCADE
	if _, err := s.queries.DeleteDevice(context.Background(), id); err != nil {
		return fmt.Errorf("deleting device: %w", err)
	}
	return nil
}

func (s *SQLiteCatalog) UpdateScanDate(id string, date time.Time) error {
	n, err := s.queries.UpdateDeviceScanDate(context.Background(), sqlc.UpdateDeviceScanDateParams{
		LastScanDate: sql.NullTime{Time: date.UTC(), Valid: true},
		ID:           id,
	})
	return checkUpdated("updating scan date", id, n, err)
}

func (s *SQLiteCatalog) UpdateLastBackupDate(id string, date time.Time) error {
	n, err := s.queries.UpdateDeviceLastBackupDate(context.Background(), sqlc.UpdateDeviceLastBackupDateParams{
		LastBackupDate: sql.NullTime{Time: date.UTC(), Valid: true},
		ID:             id,
	})
	return checkUpdated("updating last backup date", id, n, err)
}

func (s *SQLiteCatalog) UpdateSpaceInfo(id string, info usbb.SpaceInfo) error {
	n, err := s.queries.UpdateDeviceSpaceInfo(context.Background(), sqlc.UpdateDeviceSpaceInfoParams{
		FreeSpace:  info.FreeSpace,
		TotalSpace: info.TotalSpace,
		OrphanSize: info.OrphanSize,
		UsedSize:   info.UsedSize,
		ID:         id,
	})
	return checkUpdated("updating space info", id, n, err)
}

func (s *SQLiteCatalog) GetDeviceUsage(id string) (*usbb.DeviceUsage, error) {
	ctx := context.Background()
	used, err := s.queries.GetDeviceUsedSize(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("computing used size: %w", err)
	}
	usage := &usbb.DeviceUsage{UsedSize: used}

	device, err := s.GetDevice(id)
	if err != nil {
		return nil, err
	}
	if device != nil && device.IsBackup() {
		orphan, err := s.queries.GetDeviceOrphanSize(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("computing orphan size: %w", err)
		}
		usage.OrphanSize = orphan
	}
	return usage, nil
}

// File operations

func (s *SQLiteCatalog) AddFile(file *usbb.File) error {
	err := s.queries.InsertFile(context.Background(), sqlc.InsertFileParams{
		ID:           file.ID,
		DeviceID:     file.DeviceID,
		DeviceType:   string(file.DeviceType),
		RelativePath: file.RelativePath,
		MtimeMs:      file.MtimeMs,
		BirthtimeMs:  file.BirthtimeMs,
		Size:         file.Size,
		Hash:         file.Hash,
		Deleted:      file.Deleted,
		AddDate:      file.AddDate.UTC(),
		EditDate:     file.EditDate.UTC(),
	})
	if err != nil {
		return fmt.Errorf("inserting file: %w", err)
	}
	return nil
}

// DeleteFiles soft-deletes all ids in a single transaction.
func (s *SQLiteCatalog) DeleteFiles(ids []string, editDate time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	ctx := context.Background()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := s.queries.WithTx(tx)
	for _, id := range ids {
		err := qtx.SoftDeleteFile(ctx, sqlc.SoftDeleteFileParams{EditDate: editDate.UTC(), ID: id})
		if err != nil {
			return fmt.Errorf("deleting file %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *SQLiteCatalog) HardDeleteFile(id string) error {
	if err := s.queries.HardDeleteFile(context.Background(), id); err != nil {
		return fmt.Errorf("removing file: %w", err)
	}
	return nil
}

func (s *SQLiteCatalog) UndeleteFile(id string, editDate time.Time) error {
	n, err := s.queries.UndeleteFile(context.Background(), sqlc.UndeleteFileParams{EditDate: editDate.UTC(), ID: id})
	return checkUpdated("undeleting file", id, n, err)
}

func (s *SQLiteCatalog) GetFile(id string) (*usbb.File, error) {
	row, err := s.queries.GetFile(context.Background(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding file: %w", err)
	}
	return fileFromRow(row), nil
}

func (s *SQLiteCatalog) FileExists(id string) (bool, error) {
	exists, err := s.queries.FileExists(context.Background(), id)
	if err != nil {
		return false, fmt.Errorf("checking file: %w", err)
	}
	return exists != 0, nil
}

func (s *SQLiteCatalog) GetFilesByDevice(deviceID string, includeDeleted bool) ([]*usbb.File, error) {
	var rows []sqlc.File
	var err error
	if includeDeleted {
		rows, err = s.queries.ListAllFilesByDevice(context.Background(), deviceID)
	} else {
		rows, err = s.queries.ListFilesByDevice(context.Background(), deviceID)
	}
	if err != nil {
		return nil, fmt.Errorf("listing device files: %w", err)
	}
	return filesFromRows(rows), nil
}

func (s *SQLiteCatalog) GetFileIDsByDevice(deviceID string) ([]string, error) {
	ids, err := s.queries.ListFileIDsByDevice(context.Background(), deviceID)
	if err != nil {
		return nil, fmt.Errorf("listing file ids: %w", err)
	}
	return ids, nil
}

func (s *SQLiteCatalog) FindSimilarFiles(deviceID string, size int64, basename string, birthtimeMs, mtimeMs int64) ([]*usbb.File, error) {
	rows, err := s.queries.ListFilesBySizeAndTimes(context.Background(), sqlc.ListFilesBySizeAndTimesParams{
		DeviceID:    deviceID,
		Size:        size,
		BirthtimeMs: birthtimeMs,
		MtimeMs:     mtimeMs,
	})
	if err != nil {
		return nil, fmt.Errorf("finding similar files: %w", err)
	}

	// SQLite's lower() only folds ASCII, so the name is compared here.
	var result []*usbb.File
	for _, f := range filesFromRows(rows) {
		if strings.EqualFold(path.Base(f.RelativePath), basename) {
			result = append(result, f)
		}
	}
	return result, nil
}

func (s *SQLiteCatalog) FindFilesByPathPrefix(deviceID, prefix string) ([]*usbb.File, error) {
	rows, err := s.queries.ListFilesByPathPrefix(context.Background(), sqlc.ListFilesByPathPrefixParams{
		DeviceID: deviceID,
		Prefix:   prefix,
	})
	if err != nil {
		return nil, fmt.Errorf("finding files by prefix: %w", err)
	}
	return filesFromRows(rows), nil
}

func (s *SQLiteCatalog) FindFilesByHashAndDeviceType(hash string, deviceType usbb.DeviceType) ([]*usbb.File, error) {
	rows, err := s.queries.ListFilesByHashAndDeviceType(context.Background(), sqlc.ListFilesByHashAndDeviceTypeParams{
		Hash:       hash,
		DeviceType: string(deviceType),
	})
	if err != nil {
		return nil, fmt.Errorf("finding files by hash: %w", err)
	}
	return filesFromRows(rows), nil
}

func (s *SQLiteCatalog) GetSourceFilesPendingBackup(sourceDeviceID string) ([]*usbb.File, error) {
	rows, err := s.queries.ListSourceFilesPendingBackup(context.Background(), sourceDeviceID)
	if err != nil {
		return nil, fmt.Errorf("finding files pending backup: %w", err)
	}
	return filesFromRows(rows), nil
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteCatalog) Path() string {
	return s.path
}

// CheckMigrations verifies the database schema is up-to-date.
func (s *SQLiteCatalog) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// BackupTo creates a complete copy of the database at destPath using VACUUM INTO.
func (s *SQLiteCatalog) BackupTo(destPath string) error {
	_, err := s.db.Exec("VACUUM INTO ?", destPath)
	if err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteCatalog) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func checkUpdated(op, id string, n int64, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: no row with id %s", op, id)
	}
	return nil
}

func deviceFromRow(row sqlc.Device) *usbb.Device {
	d := &usbb.Device{
		ID:          row.ID,
		DeviceType:  usbb.DeviceType(row.DeviceType),
		Name:        row.Name,
		Description: row.Description,
		Path:        row.Path,
		AddDate:     row.AddDate,
		FreeSpace:   row.FreeSpace,
		TotalSpace:  row.TotalSpace,
		OrphanSize:  row.OrphanSize,
		UsedSize:    row.UsedSize,
	}
	if row.LastScanDate.Valid {
		t := row.LastScanDate.Time
		d.LastScanDate = &t
	}
	if row.LastBackupDate.Valid {
		t := row.LastBackupDate.Time
		d.LastBackupDate = &t
	}
	return d
}

func devicesFromRows(rows []sqlc.Device) []*usbb.Device {
	result := make([]*usbb.Device, len(rows))
	for i := range rows {
		result[i] = deviceFromRow(rows[i])
	}
	return result
}

func fileFromRow(row sqlc.File) *usbb.File {
	return &usbb.File{
		ID:           row.ID,
		DeviceID:     row.DeviceID,
		DeviceType:   usbb.DeviceType(row.DeviceType),
		RelativePath: row.RelativePath,
		MtimeMs:      row.MtimeMs,
		BirthtimeMs:  row.BirthtimeMs,
		Size:         row.Size,
		Hash:         row.Hash,
		Deleted:      row.Deleted,
		AddDate:      row.AddDate,
		EditDate:     row.EditDate,
	}
}

func filesFromRows(rows []sqlc.File) []*usbb.File {
	result := make([]*usbb.File, len(rows))
	for i := range rows {
		result[i] = fileFromRow(rows[i])
	}
	return result
}

// Compile-time check that SQLiteCatalog implements usbb.Catalog interface
var _ usbb.Catalog = (*SQLiteCatalog)(nil)
