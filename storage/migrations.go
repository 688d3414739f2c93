package storage

import (
	"context"
	"database/sql"
	"embed"
	"io/fs"
	"log/slog"

	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func runMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	subFS, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return errors.Wrap(err, "create migrations sub fs")
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, subFS)
	if err != nil {
		return errors.Wrap(err, "create migration provider")
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return errors.Wrap(err, "run migrations")
	}

	for _, r := range results {
		logger.Debug("Applied migration", "source", r.Source.Path, "duration", r.Duration)
	}

	return nil
}
