package domain

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// IsRealString reports whether s has content other than whitespace
func IsRealString(s string) bool {
	return strings.TrimSpace(s) != ""
}

// OutputTarget returns the local path for a resolved URL: the final path
// segment joined with destDir. URLs sharing a basename map to the same target.
func OutputTarget(rawURL, destDir string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	name := path.Base(u.Path)
	switch name {
	case "", ".", "/", "..":
		return "", ErrNoFileName
	}

	return filepath.Join(destDir, name), nil
}
