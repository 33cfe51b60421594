package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// LoadConfig loads configuration from path (config.yaml when empty), a .env
// file in the working directory, and BOT_-prefixed environment variables.
// A missing config file is not an error; an invalid configuration is.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindEnv(v); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound):
		case path != "" && errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(cfg.Status.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown timezone %q: %w", ErrValidation, cfg.Status.Timezone, err)
	}
	cfg.location = loc

	return &cfg, nil
}

// bindEnv binds the conventional unprefixed variables and nested keys that
// AutomaticEnv cannot discover on its own.
func bindEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"telegram.token":          {"BOT_TELEGRAM_TOKEN", "BOT_TOKEN"},
		"sheets.credentials_json": {"BOT_SHEETS_CREDENTIALS_JSON", "GOOGLE_SHEETS_CREDENTIALS_JSON"},
		"sheets.spreadsheet_id":   {"BOT_SHEETS_SPREADSHEET_ID", "SPREADSHEET_ID"},
		"sheets.spreadsheet_name": {"BOT_SHEETS_SPREADSHEET_NAME", "SPREADSHEET_NAME"},
		"sheets.worksheet_name":   {"BOT_SHEETS_WORKSHEET_NAME", "WORKSHEET_NAME"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}
	return nil
}
