package notify

import (
	"context"
	"errors"
	"sync"

	"notifyd/internal/transport"
)

// ErrExternalClientClosed is returned when a caller-supplied HTTP client
// is closed (or was never provided) at send time. Recreating a borrowed
// client would extend its lifecycle behind the owner's back, so the
// operation fails instead.
var ErrExternalClientClosed = errors.New("external http client closed or not provided")

// Result classifies one delivery attempt.
//
// Delivered is the contract: senders never return an error for transport
// or platform failures, they return Delivered=false with the Status (when
// a response was received) and a short Reason. Details go to the log.
type Result struct {
	Delivered bool
	Status    int
	Reason    string
}

// Sender is a platform notifier.
type Sender interface {
	// Platform names the target platform ("discord", "telegram").
	Platform() string

	// Send delivers text, truncating to the platform limit. The only
	// non-nil error is ErrExternalClientClosed.
	Send(ctx context.Context, text string) (Result, error)

	// Acquire makes sure a usable transport exists. Idempotent.
	Acquire() error

	// Close releases an owned transport. Borrowed transports are left
	// untouched. Idempotent.
	Close()
}

// With acquires s's transport, runs fn, and always releases the owned
// transport on return, including when fn fails.
func With(s Sender, fn func(Sender) error) error {
	if err := s.Acquire(); err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

// handle manages the transport client for one sender.
//
// owned is true when the handle creates clients itself: an absent or
// closed client is replaced on demand. With a borrowed client (owned
// false) there is nothing to replace; ensure fails instead.
type handle struct {
	mu     sync.Mutex
	client transport.Client
	owned  bool

	// dial creates a fresh owned client; swapped out in tests.
	dial func() transport.Client
}

func newHandle(client transport.Client) *handle {
	h := &handle{
		dial: func() transport.Client { return transport.NewHTTPClient(0) },
	}
	if client != nil {
		h.client = client
	} else {
		h.owned = true
	}
	return h
}

func (h *handle) ensure() (transport.Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.client != nil && !h.client.Closed() {
		return h.client, nil
	}
	if !h.owned {
		return nil, ErrExternalClientClosed
	}
	h.client = h.dial()
	return h.client, nil
}

func (h *handle) release() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.owned || h.client == nil {
		return
	}
	if !h.client.Closed() {
		h.client.Close()
	}
}

// truncate cuts s to at most limit runes. The second return reports
// whether anything was cut.
func truncate(s string, limit int) (string, bool) {
	r := []rune(s)
	if len(r) <= limit {
		return s, false
	}
	return string(r[:limit]), true
}
