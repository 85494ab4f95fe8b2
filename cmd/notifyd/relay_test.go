package main

import (
	"context"
	"sync"
	"testing"
	"time"

	"notifyd/internal/config"
	"notifyd/internal/notify"
	"notifyd/pkg/logx"
)

// blockingSender parks inside Send until released, so tests can hold a
// delivery in flight.
type blockingSender struct {
	started chan struct{}
	release chan struct{}

	mu     sync.Mutex
	closed bool
}

func newBlockingSender() *blockingSender {
	return &blockingSender{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (s *blockingSender) Platform() string { return "discord" }

func (s *blockingSender) Send(context.Context, string) (notify.Result, error) {
	close(s.started)
	<-s.release
	return notify.Result{Delivered: true}, nil
}

func (s *blockingSender) Acquire() error { return nil }

func (s *blockingSender) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

func (s *blockingSender) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func TestSwapWaitsForInFlightDelivery(t *testing.T) {
	t.Parallel()

	bs := newBlockingSender()
	r := &relay{log: logx.Nop(), senders: []notify.Sender{bs}}

	delivered := make(chan struct{})
	go func() {
		r.deliver(context.Background(), "hi")
		close(delivered)
	}()
	<-bs.started

	swapped := make(chan struct{})
	go func() {
		r.swapSenders(nil)
		close(swapped)
	}()

	select {
	case <-swapped:
		t.Fatal("swap completed while a delivery was in flight")
	case <-time.After(50 * time.Millisecond):
	}
	if bs.isClosed() {
		t.Fatal("sender closed under an in-flight delivery")
	}

	close(bs.release)
	<-delivered
	<-swapped
	if !bs.isClosed() {
		t.Fatal("old sender not closed after the swap")
	}
}

func alertedConfig(token string) *config.Config {
	return &config.Config{
		Telegram: config.Telegram{BotToken: token, ChatID: "42"},
		Logging: config.Logging{
			Level: "info",
			Alert: config.LogAlert{Enabled: true, MinLevel: "error", RatePerSec: 1},
		},
	}
}

func TestApplyRebuildsAlertSender(t *testing.T) {
	svc, log := logx.New(logx.Config{Level: "info"})
	defer svc.Close()

	r := &relay{log: log}
	if err := r.applyAlert(alertedConfig("111:aaa"), svc); err != nil {
		t.Fatalf("applyAlert: %v", err)
	}
	first := r.alert
	if first == nil {
		t.Fatal("no alert sender built")
	}

	// Rotated credentials must produce a fresh alert sender.
	r.apply(alertedConfig("222:bbb"), svc)
	if r.alert == nil || r.alert == first {
		t.Fatal("alert sender not rebuilt on reload")
	}

	// Disabling the sink drops the sender.
	off := alertedConfig("222:bbb")
	off.Logging.Alert.Enabled = false
	r.apply(off, svc)
	if r.alert != nil {
		t.Fatal("alert sender kept with the sink disabled")
	}
}
