package domain

import (
	"sync"
	"time"
)

// DownloadResult represents the result of a single URL download
type DownloadResult struct {
	// URL is the trimmed entry from the URL file
	URL string

	// Target is the output path, empty when no response reached the writer
	Target string

	Outcome    Outcome
	StatusCode int

	// Bytes is the number of body bytes written to Target
	Bytes int64

	// Err is set for skipped and failed outcomes
	Err error

	StartedAt time.Time
	Duration  time.Duration
}

// Summary aggregates the results of one run.
// It is safe for concurrent use.
type Summary struct {
	RunID string

	mu         sync.Mutex
	counts     map[Outcome]int
	bytes      int64
	dispatched int
	failedURLs []string
}

// NewSummary creates an empty Summary for the given run
func NewSummary(runID string) *Summary {
	return &Summary{
		RunID:  runID,
		counts: make(map[Outcome]int),
	}
}

// MarkDispatched records that a URL was handed to the worker pool
func (s *Summary) MarkDispatched() {
	s.mu.Lock()
	s.dispatched++
	s.mu.Unlock()
}

// Add records a finished download
func (s *Summary) Add(r DownloadResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counts[r.Outcome]++
	s.bytes += r.Bytes
	if r.Outcome == OutcomeFailed {
		s.failedURLs = append(s.failedURLs, r.URL)
	}
}

// Count returns the number of results with the given outcome
func (s *Summary) Count(o Outcome) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[o]
}

// Completed returns the number of finished downloads
func (s *Summary) Completed() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, c := range s.counts {
		n += c
	}
	return n
}

// Dispatched returns the number of URLs handed to the worker pool
func (s *Summary) Dispatched() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dispatched
}

// Bytes returns the total number of bytes written
func (s *Summary) Bytes() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bytes
}

// FailedURLs returns a copy of the URLs that ended in OutcomeFailed
func (s *Summary) FailedURLs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.failedURLs))
	copy(out, s.failedURLs)
	return out
}
