package loader

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vertextoedge/image-loader/internal/domain"
	"github.com/vertextoedge/image-loader/internal/domain/event"
	"github.com/vertextoedge/image-loader/internal/port"
	"github.com/vertextoedge/image-loader/internal/util/ratelimiter"
	"go.uber.org/zap"
)

// maxLineSize bounds a single line of the URL file
const maxLineSize = 1024 * 1024

// Config contains loader configuration
type Config struct {
	Workers          int
	Force            bool
	ProgressInterval time.Duration
}

// DefaultConfig returns default loader configuration
func DefaultConfig() *Config {
	return &Config{
		Workers:          10,
		Force:            false,
		ProgressInterval: 5 * time.Second,
	}
}

// Loader fetches the URLs of a URL file into a destination directory
// using a fixed pool of workers
type Loader struct {
	config   *Config
	fetcher  port.Fetcher
	dest     port.Destination
	writer   *Writer
	events   event.EventDispatcher
	logger   *zap.Logger
	progress *ratelimiter.Limiter
}

// New creates a new Loader. The destination must already be bootstrapped.
func New(
	cfg *Config,
	fetcher port.Fetcher,
	dest port.Destination,
	events event.EventDispatcher,
	logger *zap.Logger,
) *Loader {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 10
	}
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = 5 * time.Second
	}
	if events == nil {
		events = event.NewNullDispatcher()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Loader{
		config:   cfg,
		fetcher:  fetcher,
		dest:     dest,
		writer:   NewWriter(dest, logger),
		events:   events,
		logger:   logger,
		progress: ratelimiter.New(cfg.ProgressInterval),
	}
}

// Run downloads every URL listed in urlFile and returns once all of them
// reached a terminal outcome. Per-URL failures are reported in the summary,
// not as an error. Cancelling ctx stops dispatching; Run still waits for
// in-flight downloads.
func (l *Loader) Run(ctx context.Context, urlFile string) (*domain.Summary, error) {
	f, err := os.Open(urlFile)
	if err != nil {
		return nil, domain.NewConfigError("url file", err)
	}
	defer f.Close()

	summary := domain.NewSummary(uuid.NewString())
	started := time.Now()

	l.logger.Debug("Starting downloading images...",
		zap.String("run_id", summary.RunID),
		zap.String("url_file", urlFile),
		zap.String("destination", l.dest.RootDir()),
		zap.Int("workers", l.config.Workers),
		zap.Bool("force", l.config.Force))
	l.events.Dispatch(event.NewRunStarted(summary.RunID, urlFile, l.dest.RootDir(), l.config.Workers, l.config.Force))

	jobs := make(chan string)
	var wg sync.WaitGroup
	for i := 0; i < l.config.Workers; i++ {
		wg.Add(1)
		go l.worker(ctx, i, jobs, summary, &wg)
	}

	readErr := l.dispatch(ctx, f, jobs, summary)

	// Join barrier: every dispatched URL finishes before Run returns
	close(jobs)
	wg.Wait()

	duration := time.Since(started)
	l.events.Dispatch(event.NewRunCompleted(summary, duration))

	l.logger.Info("run finished",
		zap.String("run_id", summary.RunID),
		zap.Int("dispatched", summary.Dispatched()),
		zap.Int("fetched", summary.Count(domain.OutcomeFetched)),
		zap.Int("not_modified", summary.Count(domain.OutcomeNotModified)),
		zap.Int("skipped_not_image", summary.Count(domain.OutcomeSkippedNotImage)),
		zap.Int("skipped_lock_conflict", summary.Count(domain.OutcomeSkippedLockConflict)),
		zap.Int("failed", summary.Count(domain.OutcomeFailed)),
		zap.Int64("bytes", summary.Bytes()),
		zap.Duration("duration", duration))

	if readErr != nil {
		return summary, domain.NewConfigError("url file", readErr)
	}
	return summary, nil
}

// dispatch feeds non-blank lines to the workers in file order
func (l *Loader) dispatch(ctx context.Context, f *os.File, jobs chan<- string, summary *domain.Summary) error {
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := scanner.Text()
		if !domain.IsRealString(line) {
			continue
		}

		if ctx.Err() != nil {
			l.logger.Warn("dispatch interrupted", zap.Int("dispatched", summary.Dispatched()))
			return nil
		}

		select {
		case jobs <- strings.TrimSpace(line):
			summary.MarkDispatched()
		case <-ctx.Done():
			l.logger.Warn("dispatch interrupted", zap.Int("dispatched", summary.Dispatched()))
			return nil
		}
	}

	return scanner.Err()
}

func (l *Loader) worker(ctx context.Context, workerID int, jobs <-chan string, summary *domain.Summary, wg *sync.WaitGroup) {
	defer wg.Done()

	workerName := fmt.Sprintf("worker-%d", workerID)
	l.logger.Debug("loader worker started", zap.String("worker", workerName))

	for rawURL := range jobs {
		result := l.process(ctx, rawURL)
		summary.Add(result)
		l.events.Dispatch(event.NewDownloadFinished(summary.RunID, result))
		l.logProgress(summary)
	}

	l.logger.Debug("loader worker stopped", zap.String("worker", workerName))
}

// process runs one URL to a terminal outcome. A panic ends in OutcomeFailed.
func (l *Loader) process(ctx context.Context, rawURL string) (result domain.DownloadResult) {
	result = domain.DownloadResult{
		URL:       rawURL,
		StartedAt: time.Now(),
	}

	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("download panicked",
				zap.String("url", rawURL),
				zap.Any("panic", r))
			result.Outcome = domain.OutcomeFailed
			result.Err = fmt.Errorf("panic: %v", r)
		}
		result.Duration = time.Since(result.StartedAt)
	}()

	err := l.download(ctx, rawURL, &result)
	result.Err = err
	if result.Outcome == domain.OutcomePending {
		result.Outcome = domain.OutcomeForError(err)
	}
	return result
}

func (l *Loader) download(ctx context.Context, rawURL string, result *domain.DownloadResult) error {
	token := ""
	if !l.config.Force {
		// A URL without a file name has nothing local to compare against
		if target, err := l.dest.TargetFor(rawURL); err == nil {
			token = l.dest.StalenessToken(target)
		}
	}

	l.logger.Debug("requesting image",
		zap.String("url", rawURL),
		zap.String("if_modified_since", token))

	resp, err := l.fetcher.Fetch(ctx, rawURL, token)
	if err != nil {
		l.logger.Error("request failed",
			zap.String("url", rawURL),
			zap.Error(err))
		return err
	}
	defer resp.Body.Close()

	result.StatusCode = resp.StatusCode

	switch resp.StatusCode {
	case 200:
		target, n, err := l.writer.Write(resp)
		result.Target = target
		result.Bytes = n
		return err

	case 304:
		result.Outcome = domain.OutcomeNotModified
		l.logger.Info("image not modified",
			zap.String("url", rawURL))
		return nil

	default:
		l.logger.Error("unexpected response status",
			zap.String("url", rawURL),
			zap.Int("status_code", resp.StatusCode),
			zap.String("status", resp.Status))
		return &domain.StatusError{Code: resp.StatusCode, Status: resp.Status}
	}
}

func (l *Loader) logProgress(summary *domain.Summary) {
	if ok, _ := l.progress.Allow(); !ok {
		return
	}
	l.logger.Info("progress",
		zap.String("run_id", summary.RunID),
		zap.Int("completed", summary.Completed()),
		zap.Int("dispatched", summary.Dispatched()))
}
