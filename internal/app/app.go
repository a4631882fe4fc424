package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"usbb-go/internal/config"
	"usbb-go/internal/database"
	"usbb-go/internal/fs"
	"usbb-go/internal/jobs"
	"usbb-go/internal/logging"
	"usbb-go/internal/usbb"
)

const closeTimeout = 30 * time.Second

// App is the application layer between the CLI and the usbb service. It
// builds every dependency from config, submits jobs and owns the catalog and
// log file until Close.
type App struct {
	cfg       *config.Config
	catalog   *database.SQLiteCatalog
	service   *usbb.Service
	scheduler *jobs.Scheduler
	factory   *jobs.Factory
	zl        zerolog.Logger
	logger    usbb.Logger
	logFile   io.Closer
}

// Option customises New.
type Option func(*options)

type options struct {
	output    io.Writer
	clock     usbb.Clock
	idgen     usbb.IDGenerator
	diskSpace usbb.DiskSpaceFunc
}

// WithLogOutput sends the process log to w instead of stderr.
func WithLogOutput(w io.Writer) Option {
	return func(o *options) { o.output = w }
}

// WithClock replaces the wall clock.
func WithClock(c usbb.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithIDGenerator replaces the device id generator.
func WithIDGenerator(g usbb.IDGenerator) Option {
	return func(o *options) { o.idgen = g }
}

// WithDiskSpace replaces the free space query.
func WithDiskSpace(fn usbb.DiskSpaceFunc) Option {
	return func(o *options) { o.diskSpace = fn }
}

// New creates a fully wired App from the given config.
// The caller must call Close when done.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	o := options{output: os.Stderr, clock: usbb.RealClock{}, idgen: usbb.HexIDGenerator{}, diskSpace: fs.DiskSpace}
	for _, opt := range opts {
		opt(&o)
	}
	cfg.Normalize()

	zl, logFile, err := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Dir:    cfg.Log.Dir,
		Output: o.output,
	})
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := logging.NewAdapter(zl)

	catalog, err := database.NewCatalogFromConfig(cfg.Database, logger)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("opening catalog: %w", err)
	}

	svc := usbb.NewService(catalog, logger, o.clock, o.idgen,
		usbb.WithIgnorePatterns(cfg.Scan.Ignore),
		usbb.WithDiskSpace(o.diskSpace))

	return &App{
		cfg:       cfg,
		catalog:   catalog,
		service:   svc,
		scheduler: jobs.NewScheduler(cfg.Jobs.HistorySize, logger, o.clock),
		factory:   jobs.NewFactory(svc),
		zl:        zl,
		logger:    logger,
		logFile:   logFile,
	}, nil
}

// Service exposes the domain service for read-only queries.
func (a *App) Service() *usbb.Service { return a.service }

// Scheduler exposes the job scheduler.
func (a *App) Scheduler() *jobs.Scheduler { return a.scheduler }

// AddDevice registers a source or backup device at rawPath.
func (a *App) AddDevice(deviceType usbb.DeviceType, rawPath, name, description string) (*usbb.Device, usbb.Result) {
	var (
		device *usbb.Device
		err    error
	)
	switch deviceType {
	case usbb.DeviceTypeSource:
		device, err = a.service.CreateSource(rawPath, name, description)
	case usbb.DeviceTypeBackup:
		device, err = a.service.CreateBackup(rawPath, name, description)
	default:
		err = fmt.Errorf("unknown device type %q", deviceType)
	}
	return device, usbb.ToResult(err, a.logger)
}

// UpdateDevice changes name, description or path of a device.
func (a *App) UpdateDevice(id string, changes usbb.DeviceChanges) (*usbb.Device, usbb.Result) {
	device, err := a.service.UpdateDevice(id, changes)
	return device, usbb.ToResult(err, a.logger)
}

// RemoveDevice forgets a device.
func (a *App) RemoveDevice(id string) usbb.Result {
	return usbb.ToResult(a.service.RemoveDevice(id), a.logger)
}

// ListDevices returns every device with fresh stats for the online ones.
func (a *App) ListDevices() ([]*usbb.Device, error) {
	devices, err := a.service.ListDevices()
	if err != nil {
		return nil, err
	}
	for _, d := range devices {
		if a.service.IsOnline(d) {
			if _, err := a.service.RefreshDeviceStats(d); err != nil {
				a.logger.Warn("refreshing device stats", "device", d.Name, "error", err)
			}
		}
	}
	return devices, nil
}

// Report builds a device report.
func (a *App) Report(ctx context.Context, id string, verify bool) (*usbb.DeviceReport, usbb.Result) {
	report, err := a.service.Report(ctx, id, verify)
	return report, usbb.ToResult(err, a.logger)
}

// SubmitScan queues a scan of the given devices, or of all devices when ids
// is empty.
func (a *App) SubmitScan(ids []string, fullScan bool) (string, usbb.Result) {
	if len(ids) == 0 {
		devices, err := a.service.ListDevices()
		if err != nil {
			return "", usbb.ToResult(err, a.logger)
		}
		for _, d := range devices {
			ids = append(ids, d.ID)
		}
	}
	for _, id := range ids {
		if _, err := a.service.GetDevice(id); err != nil {
			return "", usbb.ToResult(err, a.logger)
		}
	}
	return a.submit(a.factory.NewScanJob(jobs.ScanParams{DeviceIDs: ids, FullScan: fullScan}))
}

// SubmitBackup queues a backup of the given sources to one backup device.
func (a *App) SubmitBackup(sourceIDs []string, backupID string) (string, usbb.Result) {
	if err := a.checkType(backupID, usbb.DeviceTypeBackup); err != nil {
		return "", usbb.ToResult(err, a.logger)
	}
	for _, id := range sourceIDs {
		if err := a.checkType(id, usbb.DeviceTypeSource); err != nil {
			return "", usbb.ToResult(err, a.logger)
		}
	}
	return a.submit(a.factory.NewBackupJob(jobs.BackupParams{SourceDeviceIDs: sourceIDs, BackupDeviceID: backupID}))
}

// SubmitRestore queues a restore.
func (a *App) SubmitRestore(req usbb.RestoreRequest) (string, usbb.Result) {
	if err := a.checkType(req.BackupDeviceID, usbb.DeviceTypeBackup); err != nil {
		return "", usbb.ToResult(err, a.logger)
	}
	if err := a.checkType(req.SourceDeviceID, usbb.DeviceTypeSource); err != nil {
		return "", usbb.ToResult(err, a.logger)
	}
	return a.submit(a.factory.NewRestoreJob(req))
}

// SubmitDedup queues duplicate removal on the given backup devices.
func (a *App) SubmitDedup(ids []string) (string, usbb.Result) {
	for _, id := range ids {
		if err := a.checkType(id, usbb.DeviceTypeBackup); err != nil {
			return "", usbb.ToResult(err, a.logger)
		}
	}
	return a.submit(a.factory.NewDedupJob(jobs.DedupParams{DeviceIDs: ids}))
}

func (a *App) checkType(id string, deviceType usbb.DeviceType) error {
	device, err := a.service.GetDevice(id)
	if err != nil {
		return err
	}
	if device.DeviceType != deviceType {
		return usbb.Errorf(usbb.ErrDeviceDoesNotExist, "%s device %s does not exist", deviceType, id)
	}
	return nil
}

func (a *App) submit(job *jobs.Job) (string, usbb.Result) {
	if err := a.scheduler.Submit(job); err != nil {
		return "", usbb.ToResult(err, a.logger)
	}
	return job.ID, usbb.Result{}
}

// RunJob streams a submitted job's log to w until the job completes. If ctx
// ends first the job is cancelled and RunJob still waits for it to stop.
func (a *App) RunJob(ctx context.Context, id string, w io.Writer) (jobs.State, error) {
	streamCtx, stop := context.WithCancel(context.Background())
	defer stop()

	batches, err := a.scheduler.SubscribeLogs(streamCtx, id)
	if err != nil {
		return jobs.State{}, err
	}

	cancelled := false
	for {
		select {
		case batch, ok := <-batches:
			if !ok {
				return a.scheduler.Wait(context.Background(), id)
			}
			for _, entry := range batch {
				if err := WriteLogEntry(w, id, entry); err != nil {
					return jobs.State{}, fmt.Errorf("writing job log: %w", err)
				}
			}
		case <-ctx.Done():
			if !cancelled {
				cancelled = true
				if err := a.scheduler.Cancel(id); err != nil && !errors.Is(err, jobs.ErrJobNotFound) {
					return jobs.State{}, err
				}
			}
			ctx = context.Background()
		}
	}
}

// BackupCatalog writes a consistent copy of the catalog to dest.
func (a *App) BackupCatalog(dest string) error {
	return a.catalog.BackupTo(dest)
}

// Close cancels outstanding jobs, waits up to closeTimeout for them to stop
// and releases the catalog and log file.
func (a *App) Close() error {
	a.scheduler.CancelAll()
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	for _, st := range a.scheduler.List() {
		if !st.Completed {
			if _, err := a.scheduler.Wait(ctx, st.ID); err != nil {
				a.logger.Warn("job did not stop in time", "job_id", st.ID)
			}
		}
	}

	var firstErr error
	if err := a.catalog.Close(); err != nil {
		firstErr = fmt.Errorf("closing catalog: %w", err)
	}
	if err := a.logFile.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing log file: %w", err)
	}
	return firstErr
}
