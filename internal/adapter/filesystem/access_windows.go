//go:build windows
// +build windows

package filesystem

import (
	"os"
)

// checkWritable verifies the process may create entries in dir
func checkWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".image-loader-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}
