package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// ErrClosed is returned by PostJSON when the client has been closed.
var ErrClosed = errors.New("http client is closed")

// maxBodyBytes caps how much of a response body is retained for
// diagnostics. Platform error payloads are small; anything bigger is
// noise.
const maxBodyBytes = 64 << 10

// Response carries the status and raw body of a completed POST.
type Response struct {
	Status int
	Body   []byte
}

// Text returns the raw body as a string, for logging.
func (r *Response) Text() string { return string(r.Body) }

// JSON decodes the body into v.
func (r *Response) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// Client is the HTTP resource used by notifiers. A Client may be closed;
// once closed it must refuse further requests rather than silently
// reconnecting, so that resource ownership stays with whoever created it.
type Client interface {
	PostJSON(ctx context.Context, url string, payload any) (*Response, error)
	Closed() bool
	Close()
}

// HTTPClient implements Client on net/http. The zero timeout leaves the
// underlying client's defaults in place.
type HTTPClient struct {
	hc *http.Client

	mu     sync.Mutex
	closed bool
}

func NewHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{hc: &http.Client{Timeout: timeout}}
}

func (c *HTTPClient) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Close marks the client closed and releases idle connections.
// Idempotent.
func (c *HTTPClient) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()
	c.hc.CloseIdleConnections()
}

func (c *HTTPClient) PostJSON(ctx context.Context, url string, payload any) (*Response, error) {
	if c.Closed() {
		return nil, ErrClosed
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return &Response{Status: resp.StatusCode, Body: b}, nil
}
