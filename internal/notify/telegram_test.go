package notify

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"notifyd/internal/config"
	"notifyd/internal/transport"
)

func TestTelegramDelivered(t *testing.T) {
	t.Parallel()

	spy := &spyClient{resp: &transport.Response{Status: http.StatusOK, Body: []byte(`{"ok":true,"result":{"message_id":7}}`)}}
	tg, err := NewTelegram(validTelegram(), spy, logxNop())
	if err != nil {
		t.Fatalf("NewTelegram: %v", err)
	}

	res, err := tg.Send(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !res.Delivered {
		t.Fatalf("not delivered: %+v", res)
	}

	call := spy.calls[0]
	wantURL := "https://api.telegram.org/bot" + validTelegram().BotToken + "/sendMessage"
	if call.url != wantURL {
		t.Fatalf("url = %s, want %s", call.url, wantURL)
	}
	payload := call.payload.(telegramPayload)
	if payload.ChatID != validTelegram().ChatID {
		t.Fatalf("chat_id = %s", payload.ChatID)
	}
	if payload.Text != "hello" {
		t.Fatalf("text = %q", payload.Text)
	}
}

func TestTelegramLogicalFailure(t *testing.T) {
	t.Parallel()

	spy := &spyClient{resp: &transport.Response{
		Status: http.StatusOK,
		Body:   []byte(`{"ok":false,"description":"Bad Request: chat not found"}`),
	}}
	tg, err := NewTelegram(validTelegram(), spy, logxNop())
	if err != nil {
		t.Fatalf("NewTelegram: %v", err)
	}

	res, err := tg.Send(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.Delivered {
		t.Fatal("delivered despite ok=false")
	}
	if res.Status != http.StatusOK {
		t.Fatalf("status = %d, want 200", res.Status)
	}
	if res.Reason != "Bad Request: chat not found" {
		t.Fatalf("reason = %q", res.Reason)
	}
}

func TestTelegramHTTPFailure(t *testing.T) {
	t.Parallel()

	spy := &spyClient{resp: &transport.Response{Status: http.StatusForbidden, Body: []byte(`{"ok":false}`)}}
	tg, err := NewTelegram(validTelegram(), spy, logxNop())
	if err != nil {
		t.Fatalf("NewTelegram: %v", err)
	}

	res, err := tg.Send(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.Delivered {
		t.Fatal("delivered despite 403")
	}
	if res.Status != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", res.Status)
	}
}

func TestTelegramMalformedResponseBody(t *testing.T) {
	t.Parallel()

	spy := &spyClient{resp: &transport.Response{Status: http.StatusOK, Body: []byte("<html>gateway</html>")}}
	tg, err := NewTelegram(validTelegram(), spy, logxNop())
	if err != nil {
		t.Fatalf("NewTelegram: %v", err)
	}

	res, err := tg.Send(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.Delivered {
		t.Fatal("delivered despite undecodable body")
	}
}

func TestTelegramConstructionErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  config.Telegram
	}{
		{name: "missing token", cfg: config.Telegram{ChatID: "123"}},
		{name: "missing chat id", cfg: config.Telegram{BotToken: "123:abc"}},
		{name: "chat id not an integer", cfg: config.Telegram{BotToken: "123:abc", ChatID: "@channel"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			spy := &spyClient{}
			_, err := NewTelegram(tt.cfg, spy, logxNop())
			if !errors.Is(err, config.ErrInvalid) {
				t.Fatalf("err = %v, want config.ErrInvalid", err)
			}
			if spy.callCount() != 0 {
				t.Fatalf("calls = %d, want 0", spy.callCount())
			}
		})
	}
}

func TestTelegramNegativeChatID(t *testing.T) {
	t.Parallel()

	// Group chats have negative IDs; they must pass validation.
	cfg := config.Telegram{BotToken: "123:abc", ChatID: "-1001234567890"}
	if _, err := NewTelegram(cfg, &spyClient{}, logxNop()); err != nil {
		t.Fatalf("NewTelegram: %v", err)
	}
}

func TestTelegramTruncation(t *testing.T) {
	t.Parallel()

	spy := &spyClient{resp: &transport.Response{Status: http.StatusOK, Body: []byte(`{"ok":true}`)}}
	tg, err := NewTelegram(validTelegram(), spy, logxNop())
	if err != nil {
		t.Fatalf("NewTelegram: %v", err)
	}

	in := strings.Repeat("язык", telegramMaxMessageLen) // well over the limit, multibyte
	if _, err := tg.Send(context.Background(), in); err != nil {
		t.Fatalf("Send: %v", err)
	}

	payload := spy.calls[0].payload.(telegramPayload)
	if got := len([]rune(payload.Text)); got != telegramMaxMessageLen {
		t.Fatalf("sent %d runes, want %d", got, telegramMaxMessageLen)
	}
	if !strings.HasPrefix(in, payload.Text) {
		t.Fatal("truncation did not keep the message prefix")
	}
}
