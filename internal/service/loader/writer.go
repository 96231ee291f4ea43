package loader

import (
	"errors"
	"mime"
	"strings"

	"github.com/vertextoedge/image-loader/internal/domain"
	"github.com/vertextoedge/image-loader/internal/port"
	"go.uber.org/zap"
)

// Writer stores validated 200 responses in the destination directory
type Writer struct {
	dest   port.Destination
	logger *zap.Logger
}

// NewWriter creates a new Writer
func NewWriter(dest port.Destination, logger *zap.Logger) *Writer {
	return &Writer{
		dest:   dest,
		logger: logger,
	}
}

// Write checks the content type and copies the body to the output target
// of the response's final URL. It returns the target and the bytes written.
// Skips are returned as domain.SkippableError.
func (w *Writer) Write(resp *port.Response) (string, int64, error) {
	if !IsImageContentType(resp.ContentType) {
		w.logger.Error("response is not an image",
			zap.String("url", resp.FinalURL),
			zap.String("content_type", resp.ContentType))
		return "", 0, domain.NewSkippableError(domain.ErrNotImage, "content type "+resp.ContentType)
	}

	target, err := w.dest.TargetFor(resp.FinalURL)
	if err != nil {
		w.logger.Error("cannot derive output file name",
			zap.String("url", resp.FinalURL),
			zap.Error(err))
		return "", 0, err
	}

	n, err := w.dest.WriteLocked(target, resp.Body)
	if err != nil {
		if errors.Is(err, domain.ErrLockConflict) {
			w.logger.Error("output file is locked by another writer",
				zap.String("url", resp.FinalURL),
				zap.String("path", target))
		} else {
			w.logger.Error("failed to write image",
				zap.String("url", resp.FinalURL),
				zap.String("path", target),
				zap.Int64("bytes_written", n),
				zap.Error(err))
		}
		return target, n, err
	}

	w.logger.Info("image saved",
		zap.String("url", resp.FinalURL),
		zap.String("path", target),
		zap.Int64("bytes", n))

	return target, n, nil
}

// IsImageContentType reports whether a Content-Type header names an image
// media type. Parameters and case are ignored.
func IsImageContentType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType, _, _ = strings.Cut(contentType, ";")
		mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	}
	return strings.HasPrefix(mediaType, "image/")
}
