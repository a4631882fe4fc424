package usbb

import "time"

// DeviceUpdate holds the user-editable device fields.
type DeviceUpdate struct {
	Name        string
	Description string
	Path        string
}

// SpaceInfo is the aggregate size information stored on a device.
type SpaceInfo struct {
	FreeSpace  int64
	TotalSpace int64
	OrphanSize int64
	UsedSize   int64
}

// DeviceUsage is computed by the catalog from a device's undeleted files.
type DeviceUsage struct {
	UsedSize   int64
	OrphanSize int64
}

// Catalog is the durable store of devices and file records.
// Lookups that find nothing return nil and no error.
type Catalog interface {
	// Device operations

	GetDevice(id string) (*Device, error)
	GetDevicesByType(deviceType DeviceType) ([]*Device, error)
	// GetDevices returns every device, sources first.
	GetDevices() ([]*Device, error)
	AddDevice(device *Device) error
	UpdateDevice(id string, update DeviceUpdate) error
	// DeleteDevice removes the device and all of its file records.
	DeleteDevice(id string) error
	UpdateScanDate(id string, date time.Time) error
	UpdateLastBackupDate(id string, date time.Time) error
	UpdateSpaceInfo(id string, info SpaceInfo) error
	// GetDeviceUsage sums undeleted file sizes. For backup devices OrphanSize
	// counts files whose hash has no undeleted source-side record.
	GetDeviceUsage(id string) (*DeviceUsage, error)

	// File operations

	AddFile(file *File) error
	// DeleteFiles soft-deletes the given records.
	DeleteFiles(ids []string, editDate time.Time) error
	HardDeleteFile(id string) error
	UndeleteFile(id string, editDate time.Time) error
	GetFile(id string) (*File, error)
	FileExists(id string) (bool, error)
	// GetFilesByDevice orders by add date then relative path.
	GetFilesByDevice(deviceID string, includeDeleted bool) ([]*File, error)
	// GetFileIDsByDevice returns the ids of undeleted records.
	GetFileIDsByDevice(deviceID string) ([]string, error)
	// FindSimilarFiles returns undeleted records on the device with the same
	// size, birthtime and mtime whose basename matches case-insensitively.
	FindSimilarFiles(deviceID string, size int64, basename string, birthtimeMs, mtimeMs int64) ([]*File, error)
	// FindFilesByPathPrefix returns undeleted records whose path starts with prefix.
	FindFilesByPathPrefix(deviceID, prefix string) ([]*File, error)
	// FindFilesByHashAndDeviceType returns undeleted records with the hash on any device of the type.
	FindFilesByHashAndDeviceType(hash string, deviceType DeviceType) ([]*File, error)
	// GetSourceFilesPendingBackup returns the device's undeleted files whose
	// hash has no undeleted record on any backup device.
	GetSourceFilesPendingBackup(sourceDeviceID string) ([]*File, error)

	// Close closes the catalog.
	Close() error
}
