package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/vertextoedge/image-loader/internal/port"
)

const (
	// DefaultTimeout bounds a whole request including the body read
	DefaultTimeout = 10 * time.Second
	// DefaultMaxConnections caps in-flight requests across all workers
	DefaultMaxConnections = 10
	// DefaultPoolGroups is the number of per-host idle pools kept warm
	DefaultPoolGroups = 10

	// maxDrainBytes is read from an abandoned body so the connection
	// can be reused
	maxDrainBytes = 64 * 1024
)

// Options configures the HTTP client
type Options struct {
	// Timeout for individual requests.
	// Default: 10s
	Timeout time.Duration

	// MaxConnections is the number of concurrent connections shared by
	// all workers, and the per-host connection limit.
	// Default: 10
	MaxConnections int

	// PoolGroups is the number of hosts whose idle connections are kept.
	// Default: 10
	PoolGroups int

	// UserAgent is sent with every request when set
	UserAgent string
}

// DefaultOptions returns options with the default pool sizes
func DefaultOptions() Options {
	return Options{
		Timeout:        DefaultTimeout,
		MaxConnections: DefaultMaxConnections,
		PoolGroups:     DefaultPoolGroups,
	}
}

// Client is the connection pool shared by all download workers.
// It is safe for concurrent use.
type Client struct {
	client    *http.Client
	transport *http.Transport
	slots     *semaphore.Weighted
	opts      Options
}

// Ensure Client implements port.Fetcher
var _ port.Fetcher = (*Client)(nil)

// NewClient creates a new HTTP client with the given options
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxConnections <= 0 {
		opts.MaxConnections = DefaultMaxConnections
	}
	if opts.PoolGroups <= 0 {
		opts.PoolGroups = DefaultPoolGroups
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,

		// Connection pooling
		MaxIdleConns:        opts.MaxConnections * opts.PoolGroups,
		MaxIdleConnsPerHost: opts.MaxConnections,
		MaxConnsPerHost:     opts.MaxConnections,
		IdleConnTimeout:     90 * time.Second,

		TLSHandshakeTimeout: 10 * time.Second,
		ForceAttemptHTTP2:   true,
	}

	return &Client{
		client: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
		},
		transport: transport,
		slots:     semaphore.NewWeighted(int64(opts.MaxConnections)),
		opts:      opts,
	}
}

// Options returns the effective options
func (c *Client) Options() Options {
	return c.opts
}

// Fetch performs a GET request for url. A non-empty token is sent as
// If-Modified-Since. The returned body holds a connection slot until it is
// closed; on error no slot is held.
func (c *Client) Fetch(ctx context.Context, url, token string) (*port.Response, error) {
	if err := c.slots.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("failed to acquire connection slot: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		c.slots.Release(1)
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if token != "" {
		req.Header.Set("If-Modified-Since", token)
	}
	if c.opts.UserAgent != "" {
		req.Header.Set("User-Agent", c.opts.UserAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.slots.Release(1)
		return nil, fmt.Errorf("request failed: %w", err)
	}

	return &port.Response{
		FinalURL:    resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		Status:      resp.Status,
		ContentType: resp.Header.Get("Content-Type"),
		Body: &slotBody{
			body:    resp.Body,
			release: func() { c.slots.Release(1) },
		},
	}, nil
}

// CloseIdleConnections closes pooled connections that are not in use
func (c *Client) CloseIdleConnections() {
	c.transport.CloseIdleConnections()
}

// slotBody returns its connection slot exactly once, on the first Close
type slotBody struct {
	body    io.ReadCloser
	release func()
	once    sync.Once
}

func (b *slotBody) Read(p []byte) (int, error) {
	return b.body.Read(p)
}

func (b *slotBody) Close() error {
	var err error
	b.once.Do(func() {
		// Drain a little so the connection goes back to the idle pool
		io.CopyN(io.Discard, b.body, maxDrainBytes)
		err = b.body.Close()
		b.release()
	})
	return err
}
