// Package bootstrap prepares the infrastructure a bot needs before it can
// take updates: logging, a database handle and an up-to-date schema.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/landerpin123/uniq-tarot/core/config"
	coredatabase "github.com/landerpin123/uniq-tarot/core/database"
	"github.com/landerpin123/uniq-tarot/core/logger"
)

// Options select the configuration and, for tests, replace the steps.
type Options struct {
	Config   *coreconfig.Config
	Database coredatabase.Config

	LoggerInit func(*coreconfig.Config) error
	Connect    func(coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(coredatabase.Config) error
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	DB *sqlx.DB
}

// Run initializes the logger, connects and migrates. On a migration failure
// the handle is closed before returning.
func Run(opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, errors.New("bootstrap: nil config provided")
	}
	if opts.LoggerInit == nil {
		opts.LoggerInit = logger.InitLogger
	}
	if opts.Connect == nil {
		opts.Connect = coredatabase.Connect
	}
	if opts.Migrate == nil {
		opts.Migrate = coredatabase.RunMigrations
	}

	if err := opts.LoggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	start := time.Now()
	db, err := opts.Connect(opts.Database)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: database initialization failed: %w", err)
	}
	if err := opts.Migrate(opts.Database); err != nil {
		return nil, errors.Join(fmt.Errorf("bootstrap: migrations failed: %w", err), db.Close())
	}

	logger.Info(context.Background(), "bootstrap", "ready",
		slog.Int64("duration_ms", logger.Took(start).Milliseconds()),
	)
	return &Result{DB: db}, nil
}
