package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/landerpin123/uniq-tarot/core/logger"
)

const connectTimeout = 5 * time.Second

// sqlitePragmas run on every new sqlite handle. The pool has a single
// connection, so they hold for its lifetime.
var sqlitePragmas = []string{
	`PRAGMA foreign_keys = ON`,
	`PRAGMA busy_timeout = 5000`,
	`PRAGMA journal_mode = WAL`,
}

// Connect opens the configured database, sizes the pool and verifies the
// connection.
func Connect(cfg Config) (*sqlx.DB, error) {
	if err := cfg.Normalize(); err != nil {
		return nil, fmt.Errorf("db config: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	start := time.Now()
	db, err := open(ctx, cfg)
	attrs := append(cfg.logAttrs(), slog.Int64("duration_ms", logger.Took(start).Milliseconds()))
	if err != nil {
		logger.Error(ctx, "db", "connect", append(attrs,
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)...)
		return nil, err
	}
	logger.Info(ctx, "db", "connect", append(attrs, slog.String("status", "ok"))...)
	return db, nil
}

func open(ctx context.Context, cfg Config) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, cfg.Driver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxConnections)

	if cfg.Driver != DriverSQLite {
		return db, nil
	}
	for _, pragma := range sqlitePragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("db pragma %q: %w", pragma, err)
		}
	}
	return db, nil
}

// logAttrs names the database without credentials.
func (c Config) logAttrs() []slog.Attr {
	if c.Driver == DriverSQLite {
		return []slog.Attr{slog.String("driver", c.Driver), slog.String("db", c.Path)}
	}
	return []slog.Attr{
		slog.String("driver", c.Driver),
		slog.String("db", c.Name),
		slog.String("host", c.Host),
		slog.String("port", c.Port),
		slog.Int("count", c.MaxConnections),
	}
}

// WaitReady pings the database until it answers, ctx ends or timeout
// passes. A server that is still starting refuses connections for a while.
func WaitReady(ctx context.Context, cfg Config, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	db, err := sqlx.Open(cfg.Driver, cfg.DSN())
	if err != nil {
		return err
	}
	defer db.Close()

	tick := time.NewTicker(2 * time.Second)
	defer tick.Stop()
	for {
		err := db.PingContext(ctx)
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout reached waiting for database: %w", err)
		case <-tick.C:
		}
	}
}
