package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds the bot token and how updates are received.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	AdminID int64  `yaml:"admin_id" envconfig:"TELEGRAM_ADMIN_ID"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds of 0 selects the poller default.
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig is required when RunMode is webhook.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig is read by logger.InitLogger.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format      string `yaml:"format" envconfig:"LOG_FORMAT"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir" envconfig:"LOG_DIR"`
	BotFile     string `yaml:"bot_file"`
	ErrorsFile  string `yaml:"errors_file"`
	// Profile is "prod" unless set; "debug" and "dev" switch to key=value output.
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

const (
	RunModeWebhook  = "webhook"
	RunModeLongpoll = "longpoll"
)

// Update kinds accepted in rate_limit.exclude_updates.
const (
	UpdateCallback    = "callback"
	UpdateMessage     = "message"
	UpdateInlineQuery = "inline_query"
)

var updateKinds = []string{UpdateCallback, UpdateMessage, UpdateInlineQuery}

// RateLimitConfig throttles each user to one update per interval. Update
// kinds listed in ExcludeUpdates are never throttled.
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// Config aggregates the configuration that belongs to the reusable core.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// Decode fills dst from the YAML file at path, then applies environment
// overrides declared with envconfig tags.
func Decode(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := envconfig.Process("", dst); err != nil {
		return fmt.Errorf("apply env overrides: %w", err)
	}
	return nil
}

// Load reads and normalizes the core configuration.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates every section and canonicalizes enumerated values.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return errors.New("nil config")
	}
	if err := cfg.Telegram.normalize(); err != nil {
		return err
	}
	if cfg.Telegram.RunMode == RunModeWebhook {
		if err := cfg.Webhook.validate(); err != nil {
			return err
		}
	}
	return cfg.RateLimit.normalize()
}

func (t *TelegramConfig) normalize() error {
	if t.Token == "" {
		return errors.New("telegram token is required")
	}
	mode := strings.ToLower(strings.TrimSpace(t.RunMode))
	switch mode {
	case "", "polling":
		mode = RunModeLongpoll
	case RunModeLongpoll, RunModeWebhook:
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", t.RunMode)
	}
	if mode == RunModeLongpoll && t.LongPollTimeoutSeconds < 0 {
		return errors.New("telegram.longpoll_timeout_seconds must be >= 0")
	}
	t.RunMode = mode
	return nil
}

func (w WebhookConfig) validate() error {
	switch {
	case strings.TrimSpace(w.URL) == "":
		return errors.New("webhook.url is required when telegram.run_mode is 'webhook'")
	case strings.TrimSpace(w.Listen) == "":
		return errors.New("webhook.listen is required when telegram.run_mode is 'webhook'")
	case w.Port <= 0:
		return errors.New("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
	}
	return nil
}

func (r *RateLimitConfig) normalize() error {
	if r.IntervalMS < 0 {
		return errors.New("rate_limit.interval_ms must be >= 0")
	}
	for i, v := range r.ExcludeUpdates {
		kind := strings.ToLower(strings.TrimSpace(v))
		if kind != "" && !slices.Contains(updateKinds, kind) {
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: %s", v, strings.Join(updateKinds, ", "))
		}
		r.ExcludeUpdates[i] = kind
	}
	return nil
}
