package event

import (
	"time"

	"github.com/vertextoedge/image-loader/internal/domain"
)

// Event names
const (
	NameDownloadFinished = "download.finished"
	NameRunStarted       = "run.started"
	NameRunCompleted     = "run.completed"
)

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	// EventName returns the name of the event
	EventName() string
	// OccurredAt returns when the event occurred
	OccurredAt() time.Time
}

// BaseEvent provides common fields for all events
type BaseEvent struct {
	Timestamp time.Time
}

// OccurredAt returns when the event occurred
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// DownloadFinished is raised when a URL reaches a terminal outcome
type DownloadFinished struct {
	BaseEvent
	RunID  string
	Result domain.DownloadResult
}

// EventName returns the event name
func (e DownloadFinished) EventName() string {
	return NameDownloadFinished
}

// NewDownloadFinished creates a new DownloadFinished event
func NewDownloadFinished(runID string, result domain.DownloadResult) DownloadFinished {
	return DownloadFinished{
		BaseEvent: BaseEvent{Timestamp: time.Now()},
		RunID:     runID,
		Result:    result,
	}
}

// RunStarted is raised once the destination is ready and dispatch begins
type RunStarted struct {
	BaseEvent
	RunID   string
	URLFile string
	DestDir string
	Workers int
	Force   bool
}

// EventName returns the event name
func (e RunStarted) EventName() string {
	return NameRunStarted
}

// NewRunStarted creates a new RunStarted event
func NewRunStarted(runID, urlFile, destDir string, workers int, force bool) RunStarted {
	return RunStarted{
		BaseEvent: BaseEvent{Timestamp: time.Now()},
		RunID:     runID,
		URLFile:   urlFile,
		DestDir:   destDir,
		Workers:   workers,
		Force:     force,
	}
}

// RunCompleted is raised after the worker pool has drained
type RunCompleted struct {
	BaseEvent
	Summary  *domain.Summary
	Duration time.Duration
}

// EventName returns the event name
func (e RunCompleted) EventName() string {
	return NameRunCompleted
}

// NewRunCompleted creates a new RunCompleted event
func NewRunCompleted(summary *domain.Summary, duration time.Duration) RunCompleted {
	return RunCompleted{
		BaseEvent: BaseEvent{Timestamp: time.Now()},
		Summary:   summary,
		Duration:  duration,
	}
}
