// Package config manages application configuration from environment variables,
// config files, and default values.
package config

import (
	"errors"
	"time"
)

// ErrValidation wraps every configuration validation failure.
var ErrValidation = errors.New("validation error")

// Transport modes.
const (
	ModePolling = "polling"
	ModeWebhook = "webhook"
)

// Config defines the application configuration. Values can be set via environment
// variables prefixed with BOT_ (e.g., BOT_TELEGRAM_TOKEN) or through config.yaml.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Status    StatusConfig    `mapstructure:"status"`
	Roster    []RosterEntry   `mapstructure:"roster"    validate:"required,min=1,dive"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Sheets    SheetsConfig    `mapstructure:"sheets"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Messages  MessagesConfig  `mapstructure:"messages"`

	location *time.Location
}

// LoggerConfig controls log output.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// TelegramConfig holds Bot API credentials and transport settings.
type TelegramConfig struct {
	Token string `mapstructure:"token" validate:"required"`
	Mode  string `mapstructure:"mode"  validate:"oneof=polling webhook"`
	// ChatID restricts status intake to one group chat; zero accepts any chat.
	ChatID  int64         `mapstructure:"chat_id"`
	Webhook WebhookConfig `mapstructure:"webhook"`
}

// WebhookConfig configures the HTTP endpoint used in webhook mode.
type WebhookConfig struct {
	ListenAddr  string `mapstructure:"listen_addr"`
	Path        string `mapstructure:"path"         validate:"startswith=/"`
	URL         string `mapstructure:"url"          validate:"omitempty,url"`
	SecretToken string `mapstructure:"secret_token"`
	// Register calls setWebhook with URL at startup, creating the client eagerly.
	Register bool `mapstructure:"register"`
}

// StatusConfig defines the vocabulary and how records are stamped and acknowledged.
type StatusConfig struct {
	Keywords      []string `mapstructure:"keywords"       validate:"required,min=1,dive,required"`
	Timezone      string   `mapstructure:"timezone"       validate:"required"`
	ReplyTemplate string   `mapstructure:"reply_template" validate:"required"`
}

// RosterEntry maps a Telegram user ID to a preferred display name.
type RosterEntry struct {
	ID   int64  `mapstructure:"id"   validate:"required,ne=0"`
	Name string `mapstructure:"name" validate:"required"`
}

// DatabaseConfig selects the local store.
type DatabaseConfig struct {
	Driver       string        `mapstructure:"driver"        validate:"oneof=sqlite postgres"`
	DSN          string        `mapstructure:"dsn"           validate:"required"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"min=100ms,max=1m"`
}

// SheetsConfig configures the remote spreadsheet sink.
type SheetsConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	CredentialsJSON string        `mapstructure:"credentials_json"`
	CredentialsFile string        `mapstructure:"credentials_file"`
	SpreadsheetID   string        `mapstructure:"spreadsheet_id"`
	SpreadsheetName string        `mapstructure:"spreadsheet_name"`
	WorksheetName   string        `mapstructure:"worksheet_name" validate:"required_if=Enabled true"`
	Workers         int           `mapstructure:"workers"        validate:"min=1,max=32"`
	QueueSize       int           `mapstructure:"queue_size"     validate:"min=1,max=100000"`
	Timeout         time.Duration `mapstructure:"timeout"        validate:"min=1s,max=5m"`
	// RetryAttempts is the number of tries per row; BreakerFailures consecutive
	// failed rows pause remote writes for BreakerCooldown.
	RetryAttempts   uint          `mapstructure:"retry_attempts"   validate:"min=1,max=10"`
	BreakerFailures uint32        `mapstructure:"breaker_failures" validate:"min=1"`
	BreakerCooldown time.Duration `mapstructure:"breaker_cooldown" validate:"min=1s"`
}

// SchedulerConfig lists scheduled tasks by name.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks"`
}

// TaskConfig enables a task on a cron schedule (seconds field allowed).
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// MessagesConfig holds user-facing texts. %s in Welcome and Help is replaced
// by the list of statuses.
type MessagesConfig struct {
	Welcome     string `mapstructure:"welcome"      validate:"required"`
	Help        string `mapstructure:"help"         validate:"required"`
	TodayHeader string `mapstructure:"today_header" validate:"required"`
	TodayEmpty  string `mapstructure:"today_empty"  validate:"required"`
}

// Location returns the loaded status timezone. It is set by LoadConfig.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// RosterMap returns the roster keyed by user ID.
func (c *Config) RosterMap() map[int64]string {
	m := make(map[int64]string, len(c.Roster))
	for _, e := range c.Roster {
		m[e.ID] = e.Name
	}
	return m
}

// Warnings lists settings that are valid but probably not intended.
func (c *Config) Warnings() []string {
	var warns []string
	if c.Telegram.ChatID == 0 {
		warns = append(warns, "telegram.chat_id is 0: statuses are accepted from every chat the bot is in")
	}
	if !c.Sheets.Enabled {
		warns = append(warns, "sheets.enabled is false: statuses are stored locally only")
	}
	return warns
}
