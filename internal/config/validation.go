package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validate checks struct tags first, then rules that span several fields.
func (c *Config) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed on %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	if c.Telegram.Mode == ModeWebhook && c.Telegram.Webhook.ListenAddr == "" {
		return fmt.Errorf("%w: telegram.webhook.listen_addr is required in webhook mode", ErrValidation)
	}
	if c.Telegram.Webhook.Register && c.Telegram.Webhook.URL == "" {
		return fmt.Errorf("%w: telegram.webhook.url is required when register is set", ErrValidation)
	}

	seen := make(map[int64]struct{}, len(c.Roster))
	for _, e := range c.Roster {
		if _, ok := seen[e.ID]; ok {
			return fmt.Errorf("%w: duplicate roster id %d", ErrValidation, e.ID)
		}
		seen[e.ID] = struct{}{}
	}

	kw := make(map[string]struct{}, len(c.Status.Keywords))
	for _, k := range c.Status.Keywords {
		key := strings.ToLower(strings.TrimSpace(k))
		if key == "" {
			return fmt.Errorf("%w: status.keywords contains a blank keyword", ErrValidation)
		}
		if _, ok := kw[key]; ok {
			return fmt.Errorf("%w: duplicate status keyword %q", ErrValidation, k)
		}
		kw[key] = struct{}{}
	}

	if c.Sheets.Enabled {
		if c.Sheets.CredentialsJSON == "" && c.Sheets.CredentialsFile == "" {
			return fmt.Errorf("%w: sheets credentials_json or credentials_file is required when sheets are enabled", ErrValidation)
		}
		if c.Sheets.SpreadsheetID == "" && c.Sheets.SpreadsheetName == "" {
			return fmt.Errorf("%w: sheets spreadsheet_id or spreadsheet_name is required when sheets are enabled", ErrValidation)
		}
	}

	return nil
}
