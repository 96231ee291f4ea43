package filesystem

import (
	"net/http"
	"os"
	"time"
)

// EpochZeroToken is the staleness token for a missing local copy.
// Any remote resource is newer than it.
var EpochZeroToken = FormatHTTPDate(time.Unix(0, 0))

// FormatHTTPDate formats t as an RFC 7231 HTTP-date in GMT, dropping
// fractional seconds. The layout uses fixed English names, independent of
// the process locale.
func FormatHTTPDate(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(http.TimeFormat)
}

// StalenessToken returns the modification time of path as an HTTP-date,
// or EpochZeroToken when path cannot be stat'ed.
func StalenessToken(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return EpochZeroToken
	}
	return FormatHTTPDate(info.ModTime())
}
