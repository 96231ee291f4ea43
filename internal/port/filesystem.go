package port

import (
	"io"
)

// Destination defines the local directory that downloads are written into
type Destination interface {
	// RootDir returns the destination directory
	RootDir() string

	// TargetFor returns the output path for a resolved URL
	TargetFor(rawURL string) (string, error)

	// StalenessToken returns the If-Modified-Since value for a path.
	// A missing file yields the epoch-zero token.
	StalenessToken(path string) string

	// WriteLocked copies r into path while holding an exclusive,
	// non-blocking advisory lock on it.
	// Returns domain.ErrLockConflict (wrapped) without touching the file
	// when the lock is held elsewhere.
	WriteLocked(path string, r io.Reader) (int64, error)
}
