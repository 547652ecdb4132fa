package database

import (
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

const migrationDialect = "postgres"

// Migrator applies the goose migrations under dir to db.
type Migrator struct {
	db     *sql.DB
	dir    string
	logger *zap.Logger
}

func NewMigrator(db *sql.DB, dir string, logger *zap.Logger) (*Migrator, error) {
	if err := goose.SetDialect(migrationDialect); err != nil {
		return nil, fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return &Migrator{db: db, dir: dir, logger: logger}, nil
}

// Up applies every pending migration.
func (m *Migrator) Up() error {
	m.logger.Info("Applying pending migrations", zap.String("dir", m.dir))
	if err := goose.Up(m.db, m.dir); err != nil {
		m.logger.Error("Failed to apply migrations", zap.Error(err))
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	m.logVersion("Migrations applied")
	return nil
}

// Down reverts the most recent migration.
func (m *Migrator) Down() error {
	if err := goose.Down(m.db, m.dir); err != nil {
		return fmt.Errorf("failed to roll back migration: %w", err)
	}
	m.logVersion("Migration rolled back")
	return nil
}

// Status prints the goose status table and logs the current version.
func (m *Migrator) Status() error {
	if err := goose.Status(m.db, m.dir); err != nil {
		return fmt.Errorf("failed to read migration status: %w", err)
	}
	m.logVersion("Migration status")
	return nil
}

func (m *Migrator) logVersion(msg string) {
	version, err := goose.GetDBVersion(m.db)
	if err != nil {
		m.logger.Warn("Could not read schema version", zap.Error(err))
		return
	}
	m.logger.Info(msg, zap.Int64("version", version))
}

// RunMigrations applies pending migrations in one call, as the API does at boot.
func RunMigrations(db *sql.DB, dir string, logger *zap.Logger) error {
	m, err := NewMigrator(db, dir, logger)
	if err != nil {
		return err
	}
	return m.Up()
}
