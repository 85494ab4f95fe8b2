package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/robfig/cron/v3"
)

// Environment variables recognized by Load.
const (
	EnvDiscordWebhookURL = "DISCORD_WEBHOOK_URL"
	EnvTelegramBotToken  = "TELEGRAM_BOT_TOKEN"
	EnvTelegramChatID    = "TELEGRAM_CHAT_ID"
)

// WebhookURLPrefix is the usual prefix of a Discord webhook URL. URLs
// outside it are tolerated but flagged.
const WebhookURLPrefix = "https://discord.com/api/webhooks/"

// ErrInvalid wraps every validation failure so callers can classify
// configuration errors with errors.Is.
var ErrInvalid = errors.New("invalid config")

type Config struct {
	Discord   Discord   `koanf:"discord"`
	Telegram  Telegram  `koanf:"telegram"`
	Logging   Logging   `koanf:"logging"`
	Heartbeat Heartbeat `koanf:"heartbeat"`
}

// Discord configures the webhook notifier.
type Discord struct {
	WebhookURL string `koanf:"webhook_url"`
}

// Telegram configures the bot-API notifier. ChatID stays a string on the
// wire (Telegram accepts both forms) but must parse as an integer.
type Telegram struct {
	BotToken string `koanf:"bot_token"`
	ChatID   string `koanf:"chat_id"`
}

type Logging struct {
	Level   string   `koanf:"level"`
	Console bool     `koanf:"console"`
	File    LogFile  `koanf:"file"`
	Alert   LogAlert `koanf:"alert"`
}

type LogFile struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// LogAlert forwards records at/above MinLevel to the Telegram sender,
// throttled to RatePerSec.
type LogAlert struct {
	Enabled    bool   `koanf:"enabled"`
	MinLevel   string `koanf:"min_level"`
	RatePerSec int    `koanf:"rate_per_sec"`
}

// Heartbeat sends a periodic liveness message through every configured
// platform. Schedule is a cron spec or an @every duration.
type Heartbeat struct {
	Enabled  bool   `koanf:"enabled"`
	Schedule string `koanf:"schedule"`
	Message  string `koanf:"message"`
}

// Default returns the configuration used before any file or environment
// values are applied.
func Default() Config {
	return Config{
		Logging: Logging{
			Level:   "info",
			Console: true,
			Alert: LogAlert{
				MinLevel:   "error",
				RatePerSec: 1,
			},
		},
		Heartbeat: Heartbeat{
			Schedule: "@every 1h",
			Message:  "notifyd: heartbeat",
		},
	}
}

// Load builds a Config from defaults, the optional YAML file at path
// (empty path skips the file layer), and the environment. The result is
// not yet validated; call Validate before use.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}
	if err := k.Load(env.ProviderWithValue("", ".", envKeyValue), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// envKeyValue maps recognized environment variables onto config keys. An
// empty key return tells koanf to ignore the variable; empty values are
// ignored too, so an exported-but-blank credential does not clobber a
// file-provided one.
func envKeyValue(key, value string) (string, any) {
	if strings.TrimSpace(value) == "" {
		return "", nil
	}
	switch key {
	case EnvDiscordWebhookURL:
		return "discord.webhook_url", value
	case EnvTelegramBotToken:
		return "telegram.bot_token", value
	case EnvTelegramChatID:
		return "telegram.chat_id", value
	}
	return "", nil
}

// Configured reports whether any Discord credential is present.
func (d Discord) Configured() bool { return strings.TrimSpace(d.WebhookURL) != "" }

func (d Discord) Validate() error {
	if strings.TrimSpace(d.WebhookURL) == "" {
		return fmt.Errorf("%w: discord: missing webhook URL", ErrInvalid)
	}
	return nil
}

// NonStandardURL reports whether the webhook URL falls outside the usual
// Discord prefix. Callers warn on it; it is deliberately not an error.
func (d Discord) NonStandardURL() bool {
	return !strings.HasPrefix(d.WebhookURL, WebhookURLPrefix)
}

// Configured reports whether any Telegram credential is present. A
// partially filled section is "configured" so that Validate can reject it
// instead of the section being silently skipped.
func (t Telegram) Configured() bool {
	return strings.TrimSpace(t.BotToken) != "" || strings.TrimSpace(t.ChatID) != ""
}

func (t Telegram) Validate() error {
	if strings.TrimSpace(t.BotToken) == "" {
		return fmt.Errorf("%w: telegram: missing bot token", ErrInvalid)
	}
	if strings.TrimSpace(t.ChatID) == "" {
		return fmt.Errorf("%w: telegram: missing chat id", ErrInvalid)
	}
	if _, err := strconv.ParseInt(strings.TrimSpace(t.ChatID), 10, 64); err != nil {
		return fmt.Errorf("%w: telegram: chat id must be a valid integer", ErrInvalid)
	}
	return nil
}

// Validate checks the whole config. At least one platform must be
// configured, and every configured section must be complete.
func (c *Config) Validate() error {
	if !c.Discord.Configured() && !c.Telegram.Configured() {
		return fmt.Errorf("%w: no platform configured (set %s or %s/%s)",
			ErrInvalid, EnvDiscordWebhookURL, EnvTelegramBotToken, EnvTelegramChatID)
	}
	if c.Discord.Configured() {
		if err := c.Discord.Validate(); err != nil {
			return err
		}
	}
	if c.Telegram.Configured() {
		if err := c.Telegram.Validate(); err != nil {
			return err
		}
	}
	if c.Heartbeat.Enabled {
		if _, err := cron.ParseStandard(c.Heartbeat.Schedule); err != nil {
			return fmt.Errorf("%w: heartbeat: bad schedule %q: %v", ErrInvalid, c.Heartbeat.Schedule, err)
		}
		if strings.TrimSpace(c.Heartbeat.Message) == "" {
			return fmt.Errorf("%w: heartbeat: empty message", ErrInvalid)
		}
	}
	if c.Logging.Alert.Enabled && !c.Telegram.Configured() {
		return fmt.Errorf("%w: logging.alert requires a configured telegram section", ErrInvalid)
	}
	return nil
}
