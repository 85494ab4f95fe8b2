package main

import (
	"bufio"
	"context"
	"os"
	"strings"
	"sync"

	"github.com/coreos/go-systemd/v22/daemon"

	"notifyd/internal/config"
	"notifyd/internal/heartbeat"
	"notifyd/internal/notify"
	"notifyd/pkg/logx"
)

// relay owns the live sender set. Senders are swapped wholesale on config
// reload; the swap waits for sends in flight on the old set, so an owned
// client is never closed (and lazily re-created) under a running send.
type relay struct {
	log logx.Logger

	mu      sync.RWMutex
	senders []notify.Sender

	alertMu sync.Mutex
	alert   notify.Sender
}

// forEachSender visits the live set under the read lock; visited senders
// stay alive until the callback returns.
func (r *relay) forEachSender(fn func(notify.Sender)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.senders {
		fn(s)
	}
}

func (r *relay) swapSenders(senders []notify.Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.senders {
		s.Close()
	}
	r.senders = senders
}

func (r *relay) closeSenders() { r.swapSenders(nil) }

func (r *relay) deliver(ctx context.Context, text string) {
	r.forEachSender(func(s notify.Sender) {
		if _, err := s.Send(ctx, text); err != nil {
			r.log.Error("delivery failed",
				logx.String("platform", s.Platform()), logx.Err(err))
		}
	})
}

// applyAlert points the log alert sink at a sender built from cfg,
// replacing (and closing) any previous one. A disabled sink detaches the
// alerter. The sender gets a no-op logger: a failing alert delivery must
// not produce records that re-enter the sink.
func (r *relay) applyAlert(cfg *config.Config, logSvc *logx.Service) error {
	r.alertMu.Lock()
	defer r.alertMu.Unlock()

	if !cfg.Logging.Alert.Enabled || !cfg.Telegram.Configured() {
		logSvc.SetAlerter(nil)
		if r.alert != nil {
			r.alert.Close()
			r.alert = nil
		}
		return nil
	}

	s, err := notify.NewTelegram(cfg.Telegram, nil, logx.Nop())
	if err != nil {
		return err
	}
	logSvc.SetAlerter(senderAlerter{s: s})
	if r.alert != nil {
		r.alert.Close()
	}
	r.alert = s
	return nil
}

func (r *relay) closeAlert() {
	r.alertMu.Lock()
	defer r.alertMu.Unlock()
	if r.alert != nil {
		r.alert.Close()
		r.alert = nil
	}
}

// apply reconfigures logging, rebuilds the sender set, and re-points the
// alert sink at the new credentials. Heartbeat schedule changes take
// effect on restart.
func (r *relay) apply(cfg *config.Config, logSvc *logx.Service) {
	logSvc.Apply(logxConfig(cfg.Logging))

	senders, err := buildSenders(cfg, nil, r.log)
	if err != nil {
		// The watcher only publishes validated configs, so this is
		// unreachable in practice; keep the old senders if it happens.
		r.log.Warn("sender rebuild failed, keeping previous senders", logx.Err(err))
		return
	}
	r.swapSenders(senders)

	if err := r.applyAlert(cfg, logSvc); err != nil {
		r.log.Warn("alert sender rebuild failed, keeping previous alerter", logx.Err(err))
	}
	r.log.Info("senders rebuilt", logx.Int("count", len(senders)))
}

func runRelay(ctx context.Context, cfgPath string, cfg *config.Config, logSvc *logx.Service, log logx.Logger) error {
	r := &relay{log: log}

	senders, err := buildSenders(cfg, nil, log)
	if err != nil {
		return err
	}
	r.senders = senders
	defer r.closeSenders()

	if err := r.applyAlert(cfg, logSvc); err != nil {
		return err
	}
	defer r.closeAlert()

	hb := heartbeat.New(heartbeat.Config{
		Enabled:  cfg.Heartbeat.Enabled,
		Schedule: cfg.Heartbeat.Schedule,
		Message:  cfg.Heartbeat.Message,
	}, r.forEachSender, log)
	if err := hb.Start(); err != nil {
		return err
	}
	defer hb.Stop()

	var wg sync.WaitGroup
	defer wg.Wait()

	if cfgPath != "" {
		w := config.NewWatcher(cfgPath, log)
		if _, err := w.Load(); err != nil {
			return err
		}
		updates := w.Subscribe()

		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = w.Watch(ctx)
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case next := <-updates:
					r.apply(next, logSvc)
				}
			}
		}()
	}

	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	defer func() { _, _ = daemon.SdNotify(false, daemon.SdNotifyStopping) }()

	log.Info("relay started", logx.Int("senders", len(senders)))

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(os.Stdin)
		sc.Buffer(make([]byte, 0, 64<<10), 1<<20)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			r.deliver(ctx, line)
		}
	}
}

// senderAlerter adapts a platform sender to the logx alert sink.
type senderAlerter struct {
	s notify.Sender
}

func (a senderAlerter) Alert(ctx context.Context, text string) {
	_, _ = a.s.Send(ctx, text)
}
