// Package transport performs the GET requests against the key-value server.
// A 2xx answer is a hit, any other status is a miss at that URL, and a request
// that never gets an answer is reported as ErrTransport.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/zebr0/zebr0-go/internal/buildinfo"
)

// ErrTransport is returned when the server could not be reached at all:
// malformed URL, connection refused, timeout.
var ErrTransport = errors.New("transport failure")

// DefaultTimeout bounds every request.
const DefaultTimeout = 10 * time.Second

// Response is the outcome of a successful exchange with the server.
type Response struct {
	Found bool
	Body  string
}

// Fetcher retrieves the value stored at a fully qualified URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Response, error)
}

// Ensure HTTP implements Fetcher at compile time.
var _ Fetcher = (*HTTP)(nil)

// HTTP is a Fetcher over net/http.
type HTTP struct {
	hc        *http.Client
	userAgent string
}

// New returns an HTTP fetcher whose requests give up after timeout.
// A non-positive timeout selects DefaultTimeout.
func New(timeout time.Duration) *HTTP {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTP{
		hc:        &http.Client{Timeout: timeout},
		userAgent: buildinfo.UserAgent(),
	}
}

// Fetch performs a GET on url.
func (t *HTTP) Fetch(ctx context.Context, url string) (Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Response{}, fmt.Errorf("%w: create request: %v", ErrTransport, err)
	}
	req.Header.Set("Accept", "text/plain")
	req.Header.Set("User-Agent", t.userAgent)

	resp, err := t.hc.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("%w: execute request: %v", ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, resp.Body)
		return Response{Found: false}, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("%w: read body: %v", ErrTransport, err)
	}
	return Response{Found: true, Body: string(body)}, nil
}
