package usbb

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// DeviceType distinguishes original data from replica targets.
type DeviceType string

const (
	DeviceTypeSource DeviceType = "source"
	DeviceTypeBackup DeviceType = "backup"
)

// Valid reports whether t is a known device type.
func (t DeviceType) Valid() bool {
	return t == DeviceTypeSource || t == DeviceTypeBackup
}

// Device is a registered filesystem root.
type Device struct {
	ID             string     `json:"id"`
	DeviceType     DeviceType `json:"deviceType"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	Path           string     `json:"path"`
	LastScanDate   *time.Time `json:"lastScanDate"`
	LastBackupDate *time.Time `json:"lastBackupDate"`
	AddDate        time.Time  `json:"addDate"`
	FreeSpace      int64      `json:"freeSpace"`
	TotalSpace     int64      `json:"totalSpace"`
	OrphanSize     int64      `json:"orphanSize"`
	UsedSize       int64      `json:"usedSize"`
}

// IsSource reports whether d holds original data.
func (d *Device) IsSource() bool { return d.DeviceType == DeviceTypeSource }

// IsBackup reports whether d is a replica target.
func (d *Device) IsBackup() bool { return d.DeviceType == DeviceTypeBackup }

// File is one version of a file on a device. A relative path may have many
// rows over time but at most one with Deleted unset.
type File struct {
	ID           string     `json:"id"`
	DeviceID     string     `json:"deviceId"`
	DeviceType   DeviceType `json:"deviceType"`
	RelativePath string     `json:"relativePath"`
	MtimeMs      int64      `json:"mtimeMs"`
	BirthtimeMs  int64      `json:"birthtimeMs"`
	Size         int64      `json:"size"`
	Hash         string     `json:"hash"`
	Deleted      bool       `json:"deleted"`
	AddDate      time.Time  `json:"addDate"`
	EditDate     time.Time  `json:"editDate"`
}

// Fingerprint is the cheap identity proxy for an unchanged file.
type Fingerprint struct {
	RelativePath string
	MtimeMs      int64
	BirthtimeMs  int64
	Size         int64
}

// FileID derives the catalog id of a file version on a device.
func FileID(deviceID string, fp Fingerprint) string {
	h := sha256.New()
	for _, part := range []string{
		deviceID,
		fp.RelativePath,
		strconv.FormatInt(fp.MtimeMs, 10),
		strconv.FormatInt(fp.BirthtimeMs, 10),
		strconv.FormatInt(fp.Size, 10),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// MetaFile is the JSON snapshot written to a device root as {id}.usbb.
type MetaFile struct {
	Device
	Files []*File `json:"files"`
}

// MetaFileName returns the marker file name for a device id.
func MetaFileName(deviceID string) string {
	return deviceID + ".usbb"
}
