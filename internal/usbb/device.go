package usbb

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"usbb-go/internal/fs"
)

// DeviceChanges lists the fields to change on a device. Nil fields are kept.
type DeviceChanges struct {
	Name        *string
	Description *string
	Path        *string
}

// IsOnline reports whether the device's marker file is present at its path.
func (s *Service) IsOnline(device *Device) bool {
	info, err := os.Stat(filepath.Join(device.Path, MetaFileName(device.ID)))
	return err == nil && info.Mode().IsRegular()
}

// CreateSource registers the directory at path as a source device.
func (s *Service) CreateSource(path, name, description string) (*Device, error) {
	return s.createDevice(DeviceTypeSource, path, name, description)
}

// CreateBackup registers the directory at path as a backup device.
func (s *Service) CreateBackup(path, name, description string) (*Device, error) {
	return s.createDevice(DeviceTypeBackup, path, name, description)
}

func (s *Service) createDevice(deviceType DeviceType, path, name, description string) (*Device, error) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return nil, Errorf(ErrDevicePathDoesNotExist, "path does not exist: %s", path)
	}

	if deviceType == DeviceTypeBackup && fs.RequiresDriveLetter {
		if !fs.HasDriveLetter(path) || !filepath.IsAbs(path) {
			return nil, Errorf(ErrPathNotSupported, "backup path must start with a drive letter: %s", path)
		}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving device path: %w", err)
	}

	marker, err := findMarker(abs)
	if err != nil {
		return nil, err
	}
	if marker != "" {
		return nil, Errorf(ErrExistingSource, "path already hosts device %s", marker)
	}

	device := &Device{
		ID:          s.idgen.New(),
		DeviceType:  deviceType,
		Name:        name,
		Description: description,
		Path:        abs,
		AddDate:     s.clock.Now(),
	}
	if err := s.catalog.AddDevice(device); err != nil {
		return nil, fmt.Errorf("adding device: %w", err)
	}
	if err := s.WriteMetaFile(device); err != nil {
		return nil, err
	}
	if _, err := s.RefreshDeviceStats(device); err != nil {
		s.logger.Warn("refreshing device stats", "device", device.Name, "error", err)
	}

	s.logger.Info("device created", "device_id", device.ID, "type", deviceType, "path", abs)
	return device, nil
}

// UpdateDevice applies changes to a device. A new path must already hold
// this device's marker file.
func (s *Service) UpdateDevice(id string, changes DeviceChanges) (*Device, error) {
	device, err := s.catalog.GetDevice(id)
	if err != nil {
		return nil, fmt.Errorf("loading device: %w", err)
	}
	if device == nil {
		return nil, NewError(ErrDeviceDoesNotExist, "")
	}

	update := DeviceUpdate{Name: device.Name, Description: device.Description, Path: device.Path}
	if changes.Name != nil {
		update.Name = *changes.Name
	}
	if changes.Description != nil {
		update.Description = *changes.Description
	}
	if changes.Path != nil {
		abs, err := filepath.Abs(*changes.Path)
		if err != nil {
			return nil, fmt.Errorf("resolving device path: %w", err)
		}
		if abs != device.Path {
			if !fs.Exists(filepath.Join(abs, MetaFileName(device.ID))) {
				return nil, Errorf(ErrPathDoesNotMatchDevice, "%s does not contain device %s", abs, device.ID)
			}
			update.Path = abs
		}
	}

	if err := s.catalog.UpdateDevice(id, update); err != nil {
		return nil, fmt.Errorf("updating device: %w", err)
	}
	device.Name, device.Description, device.Path = update.Name, update.Description, update.Path

	if s.IsOnline(device) {
		if err := s.WriteMetaFile(device); err != nil {
			return nil, err
		}
	}
	return device, nil
}

// RemoveDevice deletes a device and its file records from the catalog. The
// media and its marker file are left untouched.
func (s *Service) RemoveDevice(id string) error {
	device, err := s.catalog.GetDevice(id)
	if err != nil {
		return fmt.Errorf("loading device: %w", err)
	}
	if device == nil {
		return NewError(ErrDeviceDoesNotExist, "")
	}
	if err := s.catalog.DeleteDevice(id); err != nil {
		return fmt.Errorf("deleting device: %w", err)
	}
	s.logger.Info("device removed", "device_id", id, "name", device.Name)
	return nil
}

// GetDevice returns the device or a deviceDoesNotExist error.
func (s *Service) GetDevice(id string) (*Device, error) {
	device, err := s.catalog.GetDevice(id)
	if err != nil {
		return nil, fmt.Errorf("loading device: %w", err)
	}
	if device == nil {
		return nil, NewError(ErrDeviceDoesNotExist, "")
	}
	return device, nil
}

// ListDevices returns all registered devices.
func (s *Service) ListDevices() ([]*Device, error) {
	devices, err := s.catalog.GetDevices()
	if err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}
	return devices, nil
}

// requireDevice loads a device of the given type and checks it is online.
func (s *Service) requireDevice(id string, deviceType DeviceType) (*Device, error) {
	device, err := s.catalog.GetDevice(id)
	if err != nil {
		return nil, fmt.Errorf("loading device: %w", err)
	}
	if device == nil || device.DeviceType != deviceType {
		return nil, Errorf(ErrDeviceDoesNotExist, "%s device %s does not exist", deviceType, id)
	}
	if !s.IsOnline(device) {
		return nil, Errorf(ErrDeviceIsNotOnline, "device %s is not online", device.Name)
	}
	return device, nil
}

// WriteMetaFile rewrites the device's marker file with the device record and
// its undeleted files.
func (s *Service) WriteMetaFile(device *Device) error {
	current, err := s.catalog.GetDevice(device.ID)
	if err != nil {
		return fmt.Errorf("loading device: %w", err)
	}
	if current == nil {
		current = device
	}
	// The catalog does not know where the media is mounted right now.
	current.Path = device.Path

	files, err := s.catalog.GetFilesByDevice(device.ID, false)
	if err != nil {
		return fmt.Errorf("loading device files: %w", err)
	}
	if files == nil {
		files = []*File{}
	}

	data, err := json.MarshalIndent(&MetaFile{Device: *current, Files: files}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding meta-file: %w", err)
	}
	path := filepath.Join(device.Path, MetaFileName(device.ID))
	if err := fs.WriteFileAtomic(path, data, 0644); err != nil {
		return fmt.Errorf("writing meta-file %s: %w", path, err)
	}
	return nil
}

// ReadMetaFile finds and decodes the marker file at a device root. It
// returns nil when root holds no marker.
func ReadMetaFile(root string) (*MetaFile, error) {
	name, err := findMarker(root)
	if err != nil || name == "" {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(root, name))
	if err != nil {
		return nil, fmt.Errorf("reading meta-file: %w", err)
	}
	var meta MetaFile
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decoding meta-file %s: %w", name, err)
	}
	return &meta, nil
}

// findMarker returns the name of the first marker file in root, or "".
func findMarker(root string) (string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", root, err)
	}
	for _, e := range entries {
		if !e.IsDir() && fs.IsMarkerFileName(e.Name()) {
			return e.Name(), nil
		}
	}
	return "", nil
}
