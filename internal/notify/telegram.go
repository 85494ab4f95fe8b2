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

// telegramMaxMessageLen is Telegram's text length limit in characters.
const telegramMaxMessageLen = 4096

const telegramAPIBase = "https://api.telegram.org"

// Telegram sends messages through the Telegram bot API. Success is an
// HTTP 200 whose body reports ok=true; a 200 with ok=false is a logical
// failure carrying an API description.
type Telegram struct {
	cfg config.Telegram
	log logx.Logger
	h   *handle

	// apiBase is fixed to the public API; tests point it elsewhere.
	apiBase string
}

// NewTelegram validates cfg and builds the sender. Client ownership works
// as in NewDiscord: nil means owned-and-lazy, non-nil means borrowed.
func NewTelegram(cfg config.Telegram, client transport.Client, log logx.Logger) (*Telegram, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	log = log.With(logx.String("platform", "telegram"))

	return &Telegram{cfg: cfg, log: log, h: newHandle(client), apiBase: telegramAPIBase}, nil
}

func (t *Telegram) Platform() string { return "telegram" }

func (t *Telegram) Acquire() error {
	_, err := t.h.ensure()
	return err
}

func (t *Telegram) Close() { t.h.release() }

func (t *Telegram) endpoint() string {
	return fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.cfg.BotToken)
}

type telegramPayload struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (t *Telegram) Send(ctx context.Context, text string) (Result, error) {
	log := t.log.With(logx.String("delivery_id", uuid.NewString()))

	client, err := t.h.ensure()
	if err != nil {
		log.Error("transport unavailable", logx.Err(err))
		return Result{Reason: err.Error()}, err
	}

	msg, cut := truncate(text, telegramMaxMessageLen)
	if cut {
		log.Warn("message exceeds Telegram limit, truncating", logx.Int("limit", telegramMaxMessageLen))
	}

	resp, err := client.PostJSON(ctx, t.endpoint(), telegramPayload{ChatID: t.cfg.ChatID, Text: msg})
	if err != nil {
		log.Error("telegram request failed", logx.Err(err))
		return Result{Reason: err.Error()}, nil
	}

	if resp.Status != http.StatusOK {
		log.Error("telegram rejected message",
			logx.Int("status", resp.Status),
			logx.String("body", resp.Text()))
		return Result{Status: resp.Status, Reason: fmt.Sprintf("unexpected status %d", resp.Status)}, nil
	}

	var api telegramResponse
	if err := resp.JSON(&api); err != nil {
		log.Error("telegram response is not valid JSON",
			logx.Err(err),
			logx.String("body", resp.Text()))
		return Result{Status: resp.Status, Reason: "invalid API response"}, nil
	}
	if !api.OK {
		reason := api.Description
		if reason == "" {
			reason = "unknown error"
		}
		log.Error("telegram API returned error", logx.String("description", reason))
		return Result{Status: resp.Status, Reason: reason}, nil
	}

	log.Info("message delivered")
	return Result{Delivered: true, Status: resp.Status}, nil
}
