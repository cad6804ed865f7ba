package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/m3rciful/todobot/core/logger"
)

const readyTimeout = 30 * time.Second

// migrationSet is the sorted list of *.up.sql files of a directory.
type migrationSet []string

func loadMigrationSet(dir string) migrationSet {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names migrationSet
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}

// between returns the files with from < version <= to.
func (s migrationSet) between(from, to uint64) migrationSet {
	var out migrationSet
	for _, f := range s {
		if v := parseVersion(f); v > from && v <= to {
			out = append(out, f)
		}
	}
	return out
}

// preview renders up to six names for the log.
func (s migrationSet) preview() []slog.Attr {
	attrs := []slog.Attr{slog.Int("files_total", len(s))}
	p, truncated := logger.SummarizeStrings(s, 6)
	if p != "" {
		attrs = append(attrs, slog.String("files_preview", p))
	}
	if truncated {
		attrs = append(attrs, slog.Bool("files_truncated", true))
	}
	return attrs
}

func parseVersion(name string) uint64 {
	prefix, _, _ := strings.Cut(name, "_")
	v, _ := strconv.ParseUint(prefix, 10, 64)
	return v
}

// RunMigrations waits for the database and applies every pending up migration from
// cfg.MigrationsDir.
func RunMigrations(ctx context.Context, cfg Config) error {
	dsn := cfg.URL()
	if err := WaitForPostgres(ctx, dsn, readyTimeout); err != nil {
		logger.Error(ctx, logger.CompMigrate, "db.migrate", slog.String("status", "fail"), slog.String("err", err.Error()))
		return fmt.Errorf("database not ready: %w", err)
	}

	dir, err := filepath.Abs(cfg.MigrationsDir)
	if err != nil {
		return fmt.Errorf("resolve migrations dir: %w", err)
	}
	files := loadMigrationSet(dir)
	if len(files) == 0 {
		return fmt.Errorf("no migrations found in %s", dir)
	}
	logger.Debug(ctx, logger.CompMigrate, "resolve", append([]slog.Attr{slog.String("path", dir)}, files.preview()...)...)

	m, err := migrate.New("file://"+dir, dsn)
	if err != nil {
		logger.Error(ctx, logger.CompMigrate, "db.migrate", slog.String("status", "fail"), slog.String("err", err.Error()))
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	from, _, _ := m.Version()
	start := time.Now()
	upErr := m.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		logger.Error(ctx, logger.CompMigrate, "apply",
			slog.String("status", "fail"),
			slog.String("err", upErr.Error()),
			slog.Duration("duration", logger.Took(start)),
		)
		return fmt.Errorf("migration execution failed: %w", upErr)
	}

	to, _, _ := m.Version()
	applied := files.between(uint64(from), uint64(to))
	if len(applied) > 0 {
		logger.Debug(ctx, logger.CompMigrate, "apply", applied.preview()...)
	}
	logger.Info(ctx, logger.CompMigrate, "summary",
		slog.Uint64("from_ver", uint64(from)),
		slog.Uint64("to_ver", uint64(to)),
		slog.Int("files", len(applied)),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}
