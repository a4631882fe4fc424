package usbb

import (
	"usbb-go/internal/fs"
)

// DiskSpaceFunc reports the capacity of the filesystem holding a path.
type DiskSpaceFunc func(path string) (*fs.Space, error)

// Service coordinates the catalog and the filesystem to manage devices and
// run scan, backup, restore and dedup work.
type Service struct {
	catalog        Catalog
	logger         Logger
	clock          Clock
	idgen          IDGenerator
	ignorePatterns []string
	diskSpace      DiskSpaceFunc
}

// Option configures a Service.
type Option func(*Service)

// WithIgnorePatterns adds ignore patterns applied to every device scan, on
// top of the device's own ignore file.
func WithIgnorePatterns(patterns []string) Option {
	return func(s *Service) { s.ignorePatterns = append(s.ignorePatterns, patterns...) }
}

// WithDiskSpace replaces the free-space query.
func WithDiskSpace(fn DiskSpaceFunc) Option {
	return func(s *Service) { s.diskSpace = fn }
}

// NewService creates a Service with the provided dependencies.
func NewService(catalog Catalog, logger Logger, clock Clock, idgen IDGenerator, opts ...Option) *Service {
	if logger == nil {
		logger = NewNopLogger()
	}
	s := &Service{
		catalog:   catalog,
		logger:    logger,
		clock:     clock,
		idgen:     idgen,
		diskSpace: fs.DiskSpace,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Catalog returns the catalog the service operates on.
func (s *Service) Catalog() Catalog { return s.catalog }
