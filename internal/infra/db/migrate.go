package db

import (
	"context"
	"embed"
	"fmt"
	"log/slog"

	"scheduled-mailer/internal/pkg/config"
	"scheduled-mailer/internal/pkg/errs"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var ErrMigrationFailed = errs.New("failed to apply migrations")

// Migrate brings the schema up to date with the embedded goose migrations.
func Migrate(ctx context.Context, cfg config.DBConfig, logger *slog.Logger) error {
	sqlDB, err := OpenSQL(cfg)
	if err != nil {
		return errs.Mark(err, ErrMigrationFailed)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			logger.WarnContext(ctx, "failed to close migration connection", slog.String("error", cerr.Error()))
		}
	}()

	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(gooseLogger{logger: logger})
	if cfg.MigrationTable != "" {
		goose.SetTableName(cfg.MigrationTable)
	}

	if err := goose.SetDialect("postgres"); err != nil {
		return errs.Mark(err, ErrMigrationFailed)
	}
	if err := goose.UpContext(ctx, sqlDB, "migrations"); err != nil {
		return errs.Mark(errs.Wrap(err, "goose up"), ErrMigrationFailed)
	}
	return nil
}

type gooseLogger struct {
	logger *slog.Logger
}

func (l gooseLogger) Fatalf(format string, v ...any) {
	l.logger.Error(fmt.Sprintf(format, v...), slog.String("component", "migrate"))
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.logger.Info(fmt.Sprintf(format, v...), slog.String("component", "migrate"))
}
