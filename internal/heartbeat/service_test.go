package heartbeat

import (
	"context"
	"sync"
	"testing"

	"notifyd/internal/notify"
	"notifyd/pkg/logx"
)

type fakeSender struct {
	mu       sync.Mutex
	platform string
	messages []string
	res      notify.Result
	err      error
}

func (f *fakeSender) Platform() string { return f.platform }

func (f *fakeSender) Send(_ context.Context, text string) (notify.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, text)
	return f.res, f.err
}

func (f *fakeSender) Acquire() error { return nil }
func (f *fakeSender) Close()         {}

func (f *fakeSender) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.messages...)
}

func walk(senders ...notify.Sender) func(func(notify.Sender)) {
	return func(fn func(notify.Sender)) {
		for _, s := range senders {
			fn(s)
		}
	}
}

func TestTickFansOutToAllSenders(t *testing.T) {
	t.Parallel()

	a := &fakeSender{platform: "discord", res: notify.Result{Delivered: true}}
	b := &fakeSender{platform: "telegram", res: notify.Result{Delivered: true}}
	s := New(Config{Enabled: true, Schedule: "@every 1h", Message: "still alive"},
		walk(a, b), logx.Nop())

	s.tick()

	for _, f := range []*fakeSender{a, b} {
		got := f.sent()
		if len(got) != 1 || got[0] != "still alive" {
			t.Fatalf("%s received %v, want [still alive]", f.platform, got)
		}
	}
}

func TestTickContinuesPastFailure(t *testing.T) {
	t.Parallel()

	failing := &fakeSender{platform: "discord", err: notify.ErrExternalClientClosed}
	healthy := &fakeSender{platform: "telegram", res: notify.Result{Delivered: true}}
	s := New(Config{Enabled: true, Schedule: "@every 1h", Message: "ping"},
		walk(failing, healthy), logx.Nop())

	s.tick()

	if len(healthy.sent()) != 1 {
		t.Fatal("failure on the first sender stopped the fan-out")
	}
}

func TestTickSeesSwappedSenders(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	current := []notify.Sender{&fakeSender{platform: "discord"}}
	s := New(Config{Enabled: true, Schedule: "@every 1h", Message: "ping"},
		func(fn func(notify.Sender)) {
			mu.Lock()
			defer mu.Unlock()
			for _, snd := range current {
				fn(snd)
			}
		}, logx.Nop())

	s.tick()

	replacement := &fakeSender{platform: "telegram"}
	mu.Lock()
	current = []notify.Sender{replacement}
	mu.Unlock()

	s.tick()
	if len(replacement.sent()) != 1 {
		t.Fatal("tick did not pick up the swapped sender set")
	}
}

func TestStartRejectsBadSchedule(t *testing.T) {
	t.Parallel()

	s := New(Config{Enabled: true, Schedule: "whenever", Message: "ping"},
		walk(), logx.Nop())
	if err := s.Start(); err == nil {
		t.Fatal("expected an error for an unparseable schedule")
	}
}

func TestDisabledServiceIsNoOp(t *testing.T) {
	t.Parallel()

	f := &fakeSender{platform: "discord"}
	s := New(Config{Enabled: false, Schedule: "@every 1ms", Message: "ping"},
		walk(f), logx.Nop())
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	s.Stop()
	if len(f.sent()) != 0 {
		t.Fatal("disabled service sent a heartbeat")
	}
}

func TestStopWithoutStart(t *testing.T) {
	t.Parallel()

	s := New(Config{}, nil, logx.Nop())
	s.Stop() // must not panic
}
