package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"notifyd/internal/config"
	"notifyd/internal/notify"
	"notifyd/internal/transport"
	"notifyd/pkg/logx"
)

const usage = `usage: notifyd [-config path] <command>

commands:
  send <text...>   deliver one message to every configured platform
  relay            deliver each stdin line; supports heartbeat and
                   config hot reload

Credentials come from the environment (DISCORD_WEBHOOK_URL,
TELEGRAM_BOT_TOKEN, TELEGRAM_CHAT_ID) and override the config file.`

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "path to optional yaml config")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}

	logSvc, log := logx.New(logxConfig(cfg.Logging))
	defer logSvc.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch flag.Arg(0) {
	case "send":
		text := strings.Join(flag.Args()[1:], " ")
		if strings.TrimSpace(text) == "" {
			fmt.Fprintln(os.Stderr, "fatal: send needs a message")
			os.Exit(2)
		}
		os.Exit(runSend(ctx, cfg, text, log))
	case "relay":
		if err := runRelay(ctx, cfgPath, cfg, logSvc, log); err != nil {
			log.Error("relay stopped", logx.Err(err))
			os.Exit(1)
		}
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
}

func logxConfig(l config.Logging) logx.Config {
	return logx.Config{
		Level:   l.Level,
		Console: l.Console,
		File:    logx.FileConfig{Enabled: l.File.Enabled, Path: l.File.Path},
		Alert: logx.AlertConfig{
			Enabled:    l.Alert.Enabled,
			MinLevel:   l.Alert.MinLevel,
			RatePerSec: l.Alert.RatePerSec,
		},
	}
}

// buildSenders constructs one sender per configured platform. client may
// be nil (each sender owns a lazy client) or shared/borrowed.
func buildSenders(cfg *config.Config, client transport.Client, log logx.Logger) ([]notify.Sender, error) {
	var out []notify.Sender
	if cfg.Discord.Configured() {
		d, err := notify.NewDiscord(cfg.Discord, client, log)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if cfg.Telegram.Configured() {
		t, err := notify.NewTelegram(cfg.Telegram, client, log)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// runSend delivers text once per platform over a single shared client and
// reports a process exit code: 0 only if every delivery succeeded.
func runSend(ctx context.Context, cfg *config.Config, text string, log logx.Logger) int {
	client := transport.NewHTTPClient(15 * time.Second)
	defer client.Close()

	senders, err := buildSenders(cfg, client, log)
	if err != nil {
		log.Error("sender construction failed", logx.Err(err))
		return 1
	}

	code := 0
	for _, s := range senders {
		err := notify.With(s, func(s notify.Sender) error {
			res, err := s.Send(ctx, text)
			if err != nil {
				return err
			}
			if !res.Delivered {
				code = 1
			}
			return nil
		})
		if err != nil {
			log.Error("delivery failed", logx.String("platform", s.Platform()), logx.Err(err))
			code = 1
		}
	}
	return code
}
