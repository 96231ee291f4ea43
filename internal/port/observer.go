package port

import (
	"time"

	"github.com/vertextoedge/image-loader/internal/domain"
)

// DownloadHistory persists per-URL outcomes for later inspection.
// It is never consulted to decide freshness.
type DownloadHistory interface {
	// Record stores one finished download for a run
	Record(runID string, result domain.DownloadResult) error

	// Close releases the underlying storage
	Close() error
}

// RunMetrics collects counters for a run
type RunMetrics interface {
	// ObserveDownload records one finished download
	ObserveDownload(result domain.DownloadResult)

	// ObserveRun records the end of a run
	ObserveRun(summary *domain.Summary, duration time.Duration)
}
