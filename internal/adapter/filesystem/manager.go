package filesystem

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/vertextoedge/image-loader/internal/domain"
	"github.com/vertextoedge/image-loader/internal/port"
)

const (
	// DefaultDirMode restricts the destination to owner and group
	DefaultDirMode os.FileMode = 0o750
	// DefaultFileMode is used for newly created output targets
	DefaultFileMode os.FileMode = 0o640
	// DefaultBufferSize is the copy buffer used for response bodies
	DefaultBufferSize = 256 * 1024
)

// Options configures the destination manager
type Options struct {
	DirMode    os.FileMode
	FileMode   os.FileMode
	BufferSize int
}

// Manager handles the destination directory
type Manager struct {
	rootDir    string
	fileMode   os.FileMode
	bufferSize int
}

// Ensure Manager implements port.Destination
var _ port.Destination = (*Manager)(nil)

// NewManager verifies or creates rootDir and returns a manager for it.
// Problems with the directory are returned as *domain.ConfigError.
func NewManager(rootDir string, opts Options) (*Manager, error) {
	if opts.DirMode == 0 {
		opts.DirMode = DefaultDirMode
	}
	if opts.FileMode == 0 {
		opts.FileMode = DefaultFileMode
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}

	if err := ensureDestDir(rootDir, opts.DirMode); err != nil {
		return nil, domain.NewConfigError("destination "+rootDir, err)
	}

	return &Manager{
		rootDir:    rootDir,
		fileMode:   opts.FileMode,
		bufferSize: opts.BufferSize,
	}, nil
}

func ensureDestDir(dir string, mode os.FileMode) error {
	if !domain.IsRealString(dir) {
		return domain.ErrInvalidInput
	}

	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := os.MkdirAll(dir, mode); err != nil {
			return fmt.Errorf("failed to create destination dir: %w", err)
		}
		// MkdirAll is subject to the umask
		if err := os.Chmod(dir, mode); err != nil {
			return fmt.Errorf("failed to set destination dir mode: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("failed to stat destination dir: %w", err)
	case !info.IsDir():
		return domain.ErrNotDirectory
	}

	if err := checkWritable(dir); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrNotWritable, err)
	}
	return nil
}

// RootDir returns the destination directory
func (m *Manager) RootDir() string {
	return m.rootDir
}

// TargetFor returns the output path for a resolved URL
func (m *Manager) TargetFor(rawURL string) (string, error) {
	return domain.OutputTarget(rawURL, m.rootDir)
}

// StalenessToken returns the If-Modified-Since value for path
func (m *Manager) StalenessToken(path string) string {
	return StalenessToken(path)
}

// WriteLocked copies r into path under an exclusive, non-blocking advisory
// lock. The file is only truncated once the lock is held; closing it
// releases the lock. A failed copy never leaves a file that looks fresh.
func (m *Manager) WriteLocked(path string, r io.Reader) (int64, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE, m.fileMode)
	if err != nil {
		return 0, fmt.Errorf("failed to open output file: %w", err)
	}

	if err := lockExclusive(f); err != nil {
		f.Close()
		if errors.Is(err, errLocked) {
			return 0, domain.NewSkippableError(domain.ErrLockConflict, path)
		}
		return 0, fmt.Errorf("failed to lock output file: %w", err)
	}

	if err := f.Truncate(0); err != nil {
		f.Close()
		return 0, fmt.Errorf("failed to truncate output file: %w", err)
	}

	buf := make([]byte, m.bufferSize)
	written, err := io.CopyBuffer(f, r, buf)
	if err != nil {
		discardPartial(f, path)
		return written, fmt.Errorf("failed to write file: %w", err)
	}

	if err := f.Sync(); err != nil {
		discardPartial(f, path)
		return written, fmt.Errorf("failed to sync file: %w", err)
	}

	if err := f.Close(); err != nil {
		// The lock is gone; only mark the file stale so the next run refetches it
		markStale(path)
		return written, fmt.Errorf("failed to close file: %w", err)
	}

	return written, nil
}

// discardPartial removes an incomplete target while f still holds its lock,
// then closes f. Where an open file cannot be removed it is emptied and
// given the epoch-zero mtime instead.
func discardPartial(f *os.File, path string) {
	if err := os.Remove(path); err != nil {
		f.Truncate(0)
		markStale(path)
	}
	f.Close()
}

// markStale sets the mtime of path to the epoch so a conditional GET
// always refetches it
func markStale(path string) {
	epoch := time.Unix(0, 0)
	os.Chtimes(path, epoch, epoch)
}
