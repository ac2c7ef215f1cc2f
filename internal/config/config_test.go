package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	coredatabase "github.com/landerpin123/uniq-tarot/core/database"
	"github.com/landerpin123/uniq-tarot/internal/reading"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimal = `
telegram:
  token: test-token
  admin_id: 42
database:
  driver: sqlite
  path: tarot.db
`

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimal))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.CoreConfig().Telegram.Token != "test-token" || cfg.Telegram.AdminID != 42 {
		t.Fatalf("core = %+v", cfg.Telegram)
	}
	if cfg.Database.Driver != coredatabase.DriverSQLite || cfg.Database.MigrationsDir != coredatabase.DefaultMigrationsDir {
		t.Fatalf("database = %+v", cfg.Database)
	}
	if *cfg.Tarot.WelcomeBalance != reading.DefaultWelcomeBalance {
		t.Fatalf("welcome = %d", *cfg.Tarot.WelcomeBalance)
	}
	if cfg.Tarot.CandidateWindow != reading.DefaultWindow || cfg.Tarot.HistoryLimit != DefaultHistoryLimit {
		t.Fatalf("tarot = %+v", cfg.Tarot)
	}
	if ttl, err := cfg.HistoryTTL(); err != nil || ttl != 5*time.Minute {
		t.Fatalf("ttl = %s, %v", ttl, err)
	}
	if len(cfg.Tarot.Spreads) != 3 || cfg.Tarot.Spreads[2].Name != "Кельтский крест" {
		t.Fatalf("spreads = %+v", cfg.Tarot.Spreads)
	}
}

func TestLoadCustomTarotSection(t *testing.T) {
	body := minimal + `
tarot:
  welcome_balance: 0
  candidate_window: 5
  history_limit: 3
  history_ttl: 30s
  spreads:
    - name: Да/Нет
      price: 5
      cards: 1
`
	cfg, err := Load(writeConfig(t, body))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if *cfg.Tarot.WelcomeBalance != 0 {
		t.Fatalf("explicit zero welcome balance lost: %d", *cfg.Tarot.WelcomeBalance)
	}
	if cfg.Tarot.CandidateWindow != 5 || cfg.Tarot.HistoryLimit != 3 {
		t.Fatalf("tarot = %+v", cfg.Tarot)
	}
	if len(cfg.Tarot.Spreads) != 1 || cfg.Tarot.Spreads[0].Price != 5 {
		t.Fatalf("spreads = %+v", cfg.Tarot.Spreads)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("BOT_TOKEN", "env-token")
	t.Setenv("DB_PATH", "/tmp/env.db")
	t.Setenv("TAROT_WELCOME_BALANCE", "250")

	cfg, err := Load(writeConfig(t, minimal))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Telegram.Token != "env-token" || cfg.Database.Path != "/tmp/env.db" || *cfg.Tarot.WelcomeBalance != 250 {
		t.Fatalf("env overrides not applied: %+v / %+v / %d", cfg.Telegram, cfg.Database, *cfg.Tarot.WelcomeBalance)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"negative balance": minimal + "tarot:\n  welcome_balance: -1\n",
		"negative window":  minimal + "tarot:\n  candidate_window: -2\n",
		"bad ttl":          minimal + "tarot:\n  history_ttl: soon\n",
		"missing token":    "database:\n  driver: sqlite\n  path: x.db\n",
		"bad driver":       "telegram:\n  token: t\ndatabase:\n  driver: oracle\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, body)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil || !strings.Contains(err.Error(), "read config") {
		t.Fatalf("err = %v", err)
	}
}
