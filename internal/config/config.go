// Package config loads the tarot bot configuration: the shared core
// settings plus database and reading options.
package config

import (
	"fmt"
	"time"

	coreconfig "github.com/landerpin123/uniq-tarot/core/config"
	coredatabase "github.com/landerpin123/uniq-tarot/core/database"
	"github.com/landerpin123/uniq-tarot/internal/reading"
	"github.com/landerpin123/uniq-tarot/internal/storage"
	"github.com/landerpin123/uniq-tarot/internal/tarot"
)

// DefaultHistoryLimit is how many readings /history shows.
const DefaultHistoryLimit = 5

// TarotConfig tunes the reading flow.
type TarotConfig struct {
	WelcomeBalance  *int              `yaml:"welcome_balance" envconfig:"TAROT_WELCOME_BALANCE"`
	CandidateWindow int               `yaml:"candidate_window" envconfig:"TAROT_CANDIDATE_WINDOW"`
	HistoryLimit    int               `yaml:"history_limit" envconfig:"TAROT_HISTORY_LIMIT"`
	HistoryTTL      string            `yaml:"history_ttl" envconfig:"TAROT_HISTORY_TTL"`
	Spreads         []tarot.SpreadDef `yaml:"spreads" ignored:"true"`
}

// Config is the full application configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database coredatabase.Config `yaml:"database"`
	Tarot    TarotConfig         `yaml:"tarot"`
}

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates every section and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return err
	}
	if err := cfg.Database.Normalize(); err != nil {
		return err
	}

	t := &cfg.Tarot
	if t.WelcomeBalance == nil {
		n := reading.DefaultWelcomeBalance
		t.WelcomeBalance = &n
	}
	if *t.WelcomeBalance < 0 {
		return fmt.Errorf("tarot.welcome_balance must be >= 0")
	}
	if t.CandidateWindow == 0 {
		t.CandidateWindow = reading.DefaultWindow
	}
	if t.CandidateWindow < 0 {
		return fmt.Errorf("tarot.candidate_window must be > 0")
	}
	if t.HistoryLimit == 0 {
		t.HistoryLimit = DefaultHistoryLimit
	}
	if t.HistoryLimit < 0 {
		return fmt.Errorf("tarot.history_limit must be > 0")
	}
	if t.HistoryTTL == "" {
		t.HistoryTTL = storage.DefaultHistoryTTL.String()
	}
	if _, err := cfg.HistoryTTL(); err != nil {
		return err
	}
	if len(t.Spreads) == 0 {
		t.Spreads = tarot.DefaultSpreadDefs()
	}
	return nil
}

// HistoryTTL parses tarot.history_ttl.
func (c *Config) HistoryTTL() (time.Duration, error) {
	d, err := time.ParseDuration(c.Tarot.HistoryTTL)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid tarot.history_ttl %q", c.Tarot.HistoryTTL)
	}
	return d, nil
}
