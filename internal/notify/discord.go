package notify

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"notifyd/internal/config"
	"notifyd/internal/transport"
	"notifyd/pkg/logx"
)

// discordMaxMessageLen is Discord's content length limit in characters.
const discordMaxMessageLen = 2000

// Discord sends messages through a Discord webhook. Success is an HTTP
// 204 with no body.
type Discord struct {
	cfg config.Discord
	log logx.Logger
	h   *handle
}

// NewDiscord validates cfg and builds the sender. A nil client means the
// sender creates and owns its own HTTP client lazily; a non-nil client is
// borrowed and never closed by the sender. No network activity happens
// here.
func NewDiscord(cfg config.Discord, client transport.Client, log logx.Logger) (*Discord, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	log = log.With(logx.String("platform", "discord"))

	if cfg.NonStandardURL() {
		log.Warn("webhook URL does not look like a standard Discord webhook URL")
	}

	return &Discord{cfg: cfg, log: log, h: newHandle(client)}, nil
}

func (d *Discord) Platform() string { return "discord" }

func (d *Discord) Acquire() error {
	_, err := d.h.ensure()
	return err
}

func (d *Discord) Close() { d.h.release() }

type discordPayload struct {
	Content string `json:"content"`
}

func (d *Discord) Send(ctx context.Context, text string) (Result, error) {
	log := d.log.With(logx.String("delivery_id", uuid.NewString()))

	client, err := d.h.ensure()
	if err != nil {
		log.Error("transport unavailable", logx.Err(err))
		return Result{Reason: err.Error()}, err
	}

	msg, cut := truncate(text, discordMaxMessageLen)
	if cut {
		log.Warn("message exceeds Discord limit, truncating", logx.Int("limit", discordMaxMessageLen))
	}

	resp, err := client.PostJSON(ctx, d.cfg.WebhookURL, discordPayload{Content: msg})
	if err != nil {
		log.Error("discord request failed", logx.Err(err))
		return Result{Reason: err.Error()}, nil
	}

	if resp.Status != http.StatusNoContent {
		log.Error("discord rejected message",
			logx.Int("status", resp.Status),
			logx.String("body", resp.Text()))
		return Result{Status: resp.Status, Reason: fmt.Sprintf("unexpected status %d", resp.Status)}, nil
	}

	log.Info("message delivered")
	return Result{Delivered: true, Status: resp.Status}, nil
}
