package event

import (
	"github.com/vertextoedge/image-loader/internal/port"
)

// HistoryHandler writes finished downloads to the history journal
type HistoryHandler struct {
	history port.DownloadHistory
}

// NewHistoryHandler creates a new HistoryHandler
func NewHistoryHandler(history port.DownloadHistory) *HistoryHandler {
	return &HistoryHandler{history: history}
}

// Handle records the download result
func (h *HistoryHandler) Handle(event DomainEvent) error {
	e, ok := event.(DownloadFinished)
	if !ok {
		return nil
	}
	return h.history.Record(e.RunID, e.Result)
}

// HandledEvents returns the events this handler handles
func (h *HistoryHandler) HandledEvents() []string {
	return []string{NameDownloadFinished}
}

// MetricsHandler feeds events into run metrics
type MetricsHandler struct {
	metrics port.RunMetrics
}

// NewMetricsHandler creates a new MetricsHandler
func NewMetricsHandler(metrics port.RunMetrics) *MetricsHandler {
	return &MetricsHandler{metrics: metrics}
}

// Handle updates metrics based on the event
func (h *MetricsHandler) Handle(event DomainEvent) error {
	switch e := event.(type) {
	case DownloadFinished:
		h.metrics.ObserveDownload(e.Result)
	case RunCompleted:
		h.metrics.ObserveRun(e.Summary, e.Duration)
	}
	return nil
}

// HandledEvents returns the events this handler handles
func (h *MetricsHandler) HandledEvents() []string {
	return []string{
		NameDownloadFinished,
		NameRunCompleted,
	}
}
