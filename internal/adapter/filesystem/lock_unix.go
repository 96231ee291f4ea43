//go:build !windows
// +build !windows

package filesystem

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// lockExclusive takes a non-blocking flock(2) exclusive lock on f.
// The lock is released when f is closed.
func lockExclusive(f *os.File) error {
	for {
		err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.EWOULDBLOCK):
			return errLocked
		default:
			return err
		}
	}
}
