package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/vertextoedge/image-loader/internal/domain"
	"github.com/vertextoedge/image-loader/internal/port"
)

// Ensure Store implements port.DownloadHistory
var _ port.DownloadHistory = (*Store)(nil)

// HistoryEntry is one recorded download
type HistoryEntry struct {
	ID         int64
	RunID      string
	URL        string
	Target     string
	Outcome    string
	StatusCode int
	Bytes      int64
	Error      string
	StartedAt  time.Time
	Duration   time.Duration
}

// Record stores one finished download for a run
func (s *Store) Record(runID string, r domain.DownloadResult) error {
	errMsg := ""
	if r.Err != nil {
		errMsg = r.Err.Error()
	}

	var startedMs int64
	if !r.StartedAt.IsZero() {
		startedMs = r.StartedAt.UnixMilli()
	}

	_, err := s.db.Exec(`
		INSERT INTO downloads (run_id, url, target, outcome, status_code, bytes, error, started_at_ms, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, runID, r.URL, r.Target, r.Outcome.String(), r.StatusCode, r.Bytes, errMsg, startedMs, r.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("failed to record download: %w", err)
	}
	return nil
}

// ListRun returns the entries of a run in insertion order
func (s *Store) ListRun(runID string) ([]*HistoryEntry, error) {
	rows, err := s.db.Query(`
		SELECT id, run_id, url, target, outcome, status_code, bytes, error, started_at_ms, duration_ms
		FROM downloads
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	defer rows.Close()

	var entries []*HistoryEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// RunStats returns the number of entries per outcome for a run
func (s *Store) RunStats(runID string) (map[string]int, error) {
	rows, err := s.db.Query(`
		SELECT outcome, COUNT(*)
		FROM downloads
		WHERE run_id = ?
		GROUP BY outcome
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]int)
	for rows.Next() {
		var outcome string
		var count int
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, err
		}
		stats[outcome] = count
	}
	return stats, rows.Err()
}

// LastForURL returns the most recent entry for url, or nil
func (s *Store) LastForURL(url string) (*HistoryEntry, error) {
	row := s.db.QueryRow(`
		SELECT id, run_id, url, target, outcome, status_code, bytes, error, started_at_ms, duration_ms
		FROM downloads
		WHERE url = ?
		ORDER BY id DESC
		LIMIT 1
	`, url)

	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return e, err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row scanner) (*HistoryEntry, error) {
	var e HistoryEntry
	var startedMs, durationMs int64
	err := row.Scan(&e.ID, &e.RunID, &e.URL, &e.Target, &e.Outcome, &e.StatusCode, &e.Bytes, &e.Error, &startedMs, &durationMs)
	if err != nil {
		return nil, err
	}
	if startedMs > 0 {
		e.StartedAt = time.UnixMilli(startedMs)
	}
	e.Duration = time.Duration(durationMs) * time.Millisecond
	return &e, nil
}
