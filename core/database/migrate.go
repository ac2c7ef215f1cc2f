package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/landerpin123/uniq-tarot/core/logger"
)

// RunMigrations brings the schema up to the newest file in
// cfg.MigrationsDir. An up-to-date schema is not an error.
func RunMigrations(cfg Config) error {
	ctx := context.Background()
	if err := cfg.Normalize(); err != nil {
		return fmt.Errorf("db config: %w", err)
	}
	if err := migrateUp(ctx, cfg); err != nil {
		logger.Error(ctx, "db.migrate", "summary",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return err
	}
	return nil
}

func migrateUp(ctx context.Context, cfg Config) error {
	if cfg.Driver == DriverPostgres {
		if err := WaitReady(ctx, cfg, 30*time.Second); err != nil {
			return fmt.Errorf("database not ready: %w", err)
		}
	}

	dir, err := filepath.Abs(cfg.MigrationsDir)
	if err != nil {
		return fmt.Errorf("resolve migrations dir: %w", err)
	}
	files := upFiles(dir)
	preview, _ := logger.SummarizeStrings(files, 6)
	logger.Debug(ctx, "db.migrate", "resolve",
		slog.String("driver", cfg.Driver),
		slog.String("path", dir),
		slog.Int("count", len(files)),
		slog.String("payload", preview),
	)

	m, err := migrate.New("file://"+filepath.ToSlash(dir), cfg.MigrateURL())
	if err != nil {
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}
	defer m.Close()

	from := currentVersion(m)
	start := time.Now()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration execution failed: %w", err)
	}
	to := currentVersion(m)

	applied := selectApplied(files, from, to)
	appliedPreview, _ := logger.SummarizeStrings(applied, 6)
	logger.Info(ctx, "db.migrate", "summary",
		slog.String("status", "ok"),
		slog.Uint64("from_ver", from),
		slog.Uint64("to_ver", to),
		slog.Int("count", len(applied)),
		slog.String("payload", appliedPreview),
		slog.Int64("duration_ms", logger.Took(start).Milliseconds()),
	)
	return nil
}

// currentVersion is 0 for a database that was never migrated.
func currentVersion(m *migrate.Migrate) uint64 {
	v, _, err := m.Version()
	if err != nil {
		return 0
	}
	return uint64(v)
}

func upFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	return names
}

// selectApplied returns the files whose version lies in (from, to].
func selectApplied(files []string, from, to uint64) []string {
	var out []string
	for _, f := range files {
		prefix, _, _ := strings.Cut(f, "_")
		if v, err := strconv.ParseUint(prefix, 10, 64); err == nil && v > from && v <= to {
			out = append(out, f)
		}
	}
	return out
}
