package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations"

// setupGoose points goose at the embedded migrations and the MySQL dialect.
// goose keeps this as package state, so it is set on every call.
func setupGoose(log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(zap.NewStdLog(log))
	if err := goose.SetDialect("mysql"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	return nil
}

// Migrate applies pending migrations and records them in goose_db_version,
// so each file runs once per database.
func Migrate(ctx context.Context, db *sql.DB, log *zap.Logger) error {
	if err := setupGoose(log); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db, migrationsDir); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}
