// Package migrate applies the embedded goose migrations.
package migrate

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/gokatarajesh/trivia-api/db"
)

const (
	migrationsDir = "migrations"
	versionTable  = "goose_db_version"
)

func configure() error {
	goose.SetBaseFS(db.Migrations)
	goose.SetTableName(versionTable)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return nil
}

// Up applies every pending migration.
func Up(ctx context.Context, conn *sql.DB) error {
	if err := configure(); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, conn, migrationsDir); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// Down rolls back the most recent migration.
func Down(ctx context.Context, conn *sql.DB) error {
	if err := configure(); err != nil {
		return err
	}
	if err := goose.DownContext(ctx, conn, migrationsDir); err != nil {
		return fmt.Errorf("migrate down: %w", err)
	}
	return nil
}

// Status prints the applied state of each migration through goose's logger.
func Status(ctx context.Context, conn *sql.DB) error {
	if err := configure(); err != nil {
		return err
	}
	if err := goose.StatusContext(ctx, conn, migrationsDir); err != nil {
		return fmt.Errorf("migrate status: %w", err)
	}
	return nil
}
