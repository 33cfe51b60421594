package config

import (
	"time"

	"github.com/spf13/viper"
)

// Default values for configuration.
const (
	DefaultLogLevel = "info"

	DefaultTelegramMode   = ModePolling
	DefaultWebhookAddr    = ":8080"
	DefaultWebhookPath    = "/webhook"
	DefaultTimezone       = "Europe/Moscow"
	DefaultReplyTemplate  = "✅ Status '%s' saved."
	DefaultDBDriver       = "sqlite"
	DefaultDBDSN          = "animator_statuses.db"
	DefaultDBWriteTimeout = 5 * time.Second

	DefaultSheetsWorkers   = 2
	DefaultSheetsQueueSize = 256
	DefaultSheetsTimeout   = 30 * time.Second
	DefaultSheetsRetries   = 3
	DefaultBreakerFailures = 5
	DefaultBreakerCooldown = time.Minute
	DefaultSpreadsheetName = "АнимельБот"
	DefaultWorksheetName   = "Статусы"
)

// DefaultKeywords is the status vocabulary used when none is configured.
var DefaultKeywords = []string{"в пути", "на месте", "закончил"}

// Default user-facing texts.
var DefaultMessages = MessagesConfig{
	Welcome:     "Привет! Отправь статус: %s.",
	Help:        "Я записываю статусы из сообщений группы. Допустимые статусы: %s.\n/today - статусы за сегодня.",
	TodayHeader: "Статусы за сегодня:\n",
	TodayEmpty:  "Сегодня статусов ещё нет.",
}

// setDefaults sets default values for optional configuration parameters.
func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", DefaultLogLevel)
	v.SetDefault("logger.json", false)

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.mode", DefaultTelegramMode)
	v.SetDefault("telegram.chat_id", 0)
	v.SetDefault("telegram.webhook.listen_addr", DefaultWebhookAddr)
	v.SetDefault("telegram.webhook.path", DefaultWebhookPath)
	v.SetDefault("telegram.webhook.url", "")
	v.SetDefault("telegram.webhook.secret_token", "")
	v.SetDefault("telegram.webhook.register", false)

	v.SetDefault("status.keywords", DefaultKeywords)
	v.SetDefault("status.timezone", DefaultTimezone)
	v.SetDefault("status.reply_template", DefaultReplyTemplate)

	v.SetDefault("database.driver", DefaultDBDriver)
	v.SetDefault("database.dsn", DefaultDBDSN)
	v.SetDefault("database.write_timeout", DefaultDBWriteTimeout)

	v.SetDefault("sheets.enabled", false)
	v.SetDefault("sheets.credentials_json", "")
	v.SetDefault("sheets.credentials_file", "")
	v.SetDefault("sheets.spreadsheet_id", "")
	v.SetDefault("sheets.spreadsheet_name", DefaultSpreadsheetName)
	v.SetDefault("sheets.worksheet_name", DefaultWorksheetName)
	v.SetDefault("sheets.workers", DefaultSheetsWorkers)
	v.SetDefault("sheets.queue_size", DefaultSheetsQueueSize)
	v.SetDefault("sheets.timeout", DefaultSheetsTimeout)
	v.SetDefault("sheets.retry_attempts", DefaultSheetsRetries)
	v.SetDefault("sheets.breaker_failures", DefaultBreakerFailures)
	v.SetDefault("sheets.breaker_cooldown", DefaultBreakerCooldown)

	v.SetDefault("scheduler.tasks", map[string]any{
		"sql_maintenance": map[string]any{"enabled": true, "schedule": "0 0 4 * * *"},
	})

	v.SetDefault("messages.welcome", DefaultMessages.Welcome)
	v.SetDefault("messages.help", DefaultMessages.Help)
	v.SetDefault("messages.today_header", DefaultMessages.TodayHeader)
	v.SetDefault("messages.today_empty", DefaultMessages.TodayEmpty)
}
