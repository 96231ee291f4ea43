package filesystem

import "errors"

// errLocked is returned by lockExclusive when another open file description
// already holds the lock.
var errLocked = errors.New("file is locked")
