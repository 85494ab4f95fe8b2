// Package heartbeat periodically sends a liveness message through every
// configured platform so operators notice a dead relay (or a revoked
// credential) before they need it.
package heartbeat

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"notifyd/internal/notify"
	"notifyd/pkg/logx"
)

type Config struct {
	Enabled  bool
	Schedule string // cron spec or @every duration
	Message  string
}

type Service struct {
	cfg Config
	log logx.Logger

	// senders walks the live sender set on every tick, so callers may
	// swap their set (e.g. after a config reload) without restarting us.
	// The callback runs while the visited sender is guaranteed alive.
	senders func(func(notify.Sender))

	c *cron.Cron
}

func New(cfg Config, senders func(func(notify.Sender)), log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{cfg: cfg, log: log, senders: senders}
}

// Start registers the schedule and begins ticking. A disabled service
// starts as a no-op.
func (s *Service) Start() error {
	if !s.cfg.Enabled || s.senders == nil {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(s.cfg.Schedule, s.tick); err != nil {
		return fmt.Errorf("heartbeat: bad schedule %q: %w", s.cfg.Schedule, err)
	}
	c.Start()
	s.c = c

	s.log.Info("heartbeat started", logx.String("schedule", s.cfg.Schedule))
	return nil
}

// Stop halts the schedule and waits for an in-flight tick to finish.
// Safe to call on a never-started service.
func (s *Service) Stop() {
	if s.c == nil {
		return
	}
	<-s.c.Stop().Done()
	s.c = nil
}

func (s *Service) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.senders(func(snd notify.Sender) {
		res, err := snd.Send(ctx, s.cfg.Message)
		switch {
		case err != nil:
			s.log.Error("heartbeat send failed",
				logx.String("platform", snd.Platform()), logx.Err(err))
		case !res.Delivered:
			s.log.Warn("heartbeat not delivered",
				logx.String("platform", snd.Platform()),
				logx.Int("status", res.Status),
				logx.String("reason", res.Reason))
		default:
			s.log.Debug("heartbeat delivered", logx.String("platform", snd.Platform()))
		}
	})
}
