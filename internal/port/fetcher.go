package port

import (
	"context"
	"io"
)

// Response is an HTTP response whose Body must be closed by the caller.
// Closing the body returns the connection slot to the pool.
type Response struct {
	FinalURL    string
	StatusCode  int
	Status      string
	ContentType string
	Body        io.ReadCloser
}

// Fetcher issues GET requests through a shared connection pool.
// Implementations must be safe for concurrent use.
type Fetcher interface {
	// Fetch performs a GET for url. A non-empty token is sent as
	// If-Modified-Since.
	Fetch(ctx context.Context, url, token string) (*Response, error)
}
