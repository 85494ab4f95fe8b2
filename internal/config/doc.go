// Package config loads and validates notifyd's configuration.
//
// Configuration is layered: struct defaults, then an optional YAML file,
// then the process environment. The environment always wins, and carries
// the platform credentials:
//
//	DISCORD_WEBHOOK_URL
//	TELEGRAM_BOT_TOKEN
//	TELEGRAM_CHAT_ID
//
// Validation happens once, before anything touches the network. A config
// that fails validation is never committed, so no partially-valid config
// is ever observable.
package config
