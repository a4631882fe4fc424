package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Job Metrics
	JobsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "usbb_jobs_started_total",
			Help: "Total number of jobs that started running",
		},
		[]string{"job"},
	)

	JobsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "usbb_jobs_finished_total",
			Help: "Total number of jobs that reached a terminal status",
		},
		[]string{"job", "status"},
	)

	JobLogErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "usbb_job_log_errors_total",
			Help: "Total number of error-level lines logged by jobs",
		},
		[]string{"job"},
	)

	JobsTracked = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "usbb_jobs_tracked",
			Help: "Current number of jobs held in the scheduler history",
		},
	)

	// Scan Metrics
	FilesHashed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "usbb_files_hashed_total",
			Help: "Total number of files whose content was hashed during scans",
		},
	)

	FilesMoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "usbb_files_moved_total",
			Help: "Total number of moves detected without re-hashing",
		},
	)

	FilesMarkedDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "usbb_files_marked_deleted_total",
			Help: "Total number of file records soft-deleted by scans",
		},
	)

	// Copy Metrics
	FilesCopied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "usbb_files_copied_total",
			Help: "Total number of files copied",
		},
		[]string{"operation"}, // "backup", "restore"
	)

	BytesCopied = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "usbb_bytes_copied_total",
			Help: "Total number of bytes copied",
		},
		[]string{"operation"},
	)

	HashMismatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "usbb_hash_mismatches_total",
			Help: "Total number of copies whose hash differed from the catalog",
		},
		[]string{"operation"},
	)

	DuplicatesRemoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "usbb_duplicates_removed_total",
			Help: "Total number of duplicate files removed from backup devices",
		},
	)

	// Device Metrics
	DeviceUsedBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "usbb_device_used_bytes",
			Help: "Sum of undeleted file sizes per device",
		},
		[]string{"device"},
	)

	DeviceFreeBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "usbb_device_free_bytes",
			Help: "Free space on the filesystem holding the device",
		},
		[]string{"device"},
	)

	DeviceOrphanBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "usbb_device_orphan_bytes",
			Help: "Size of backup files with no matching source file",
		},
		[]string{"device"},
	)
)

// RecordCopy records a completed backup or restore copy.
func RecordCopy(operation string, bytes int64, hashMismatch bool) {
	FilesCopied.WithLabelValues(operation).Inc()
	BytesCopied.WithLabelValues(operation).Add(float64(bytes))
	if hashMismatch {
		HashMismatches.WithLabelValues(operation).Inc()
	}
}

// RecordJobStart records a job moving to running.
func RecordJobStart(job string) {
	JobsStarted.WithLabelValues(job).Inc()
}

// RecordJobFinish records a job reaching a terminal status.
func RecordJobFinish(job, status string, errorCount int) {
	JobsFinished.WithLabelValues(job, status).Inc()
	if errorCount > 0 {
		JobLogErrors.WithLabelValues(job).Add(float64(errorCount))
	}
}

// RecordDeviceSpace publishes a device's size information.
func RecordDeviceSpace(device string, used, free, orphan int64) {
	DeviceUsedBytes.WithLabelValues(device).Set(float64(used))
	DeviceFreeBytes.WithLabelValues(device).Set(float64(free))
	DeviceOrphanBytes.WithLabelValues(device).Set(float64(orphan))
}
