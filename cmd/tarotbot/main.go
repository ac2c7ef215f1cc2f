// Command tarotbot runs the tarot reading Telegram bot.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"

	"github.com/landerpin123/uniq-tarot/core/bootstrap"
	corecmd "github.com/landerpin123/uniq-tarot/core/cmd"
	tg "github.com/landerpin123/uniq-tarot/core/telegram"
	"github.com/landerpin123/uniq-tarot/internal/bot"
	"github.com/landerpin123/uniq-tarot/internal/config"
)

func main() {
	err := corecmd.Run(corecmd.Options{
		ConfigEnvVar:      "CONFIG_PATH",
		DefaultConfigPath: "config.yaml",
		LoadConfig:        loadConfig,
		Bootstrap:         bootstrapApp,
	})
	if err != nil {
		log.Fatal(err)
	}
}

func loadConfig(path string) (corecmd.ConfigCarrier, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func bootstrapApp(carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	cfg, ok := carrier.(*config.Config)
	if !ok {
		return nil, fmt.Errorf("unexpected config type %T", carrier)
	}
	res, err := bootstrap.Run(bootstrap.Options{
		Config:   cfg.CoreConfig(),
		Database: cfg.Database,
	})
	if err != nil {
		return nil, err
	}
	b, err := bot.Build(cfg, res.DB)
	if err != nil {
		_ = res.DB.Close()
		return nil, err
	}
	return &app{bot: b, db: res.DB}, nil
}

// app closes the database once the bot has drained its saves.
type app struct {
	bot *bot.Bot
	db  *sqlx.DB
}

func (a *app) TelegramRunOptions() (tg.RunOptions, error) {
	opts, err := a.bot.TelegramRunOptions()
	if err != nil {
		return tg.RunOptions{}, err
	}
	stop := opts.OnStop
	opts.OnStop = func(ctx context.Context, rt tg.Runtime) error {
		var stopErr error
		if stop != nil {
			stopErr = stop(ctx, rt)
		}
		return errors.Join(stopErr, a.db.Close())
	}
	return opts, nil
}
