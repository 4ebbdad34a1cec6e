package mysql

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"

	"pizzeria/internal/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrateDatabase runs Migrate over a dedicated connection opened with
// MigrationDSN and closes it afterwards.
func MigrateDatabase(cfg config.DatabaseConfig, logger *zap.Logger) error {
	db, err := sql.Open("mysql", MigrationDSN(cfg))
	if err != nil {
		return fmt.Errorf("opening migration connection: %w", err)
	}
	defer db.Close()

	return Migrate(db, logger)
}

// Migrate applies the embedded schema migrations. The connection must be
// opened with multiStatements enabled.
func Migrate(db *sql.DB, logger *zap.Logger) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("opening migrations: %w", err)
	}

	driver, err := migratemysql.WithInstance(db, &migratemysql.Config{})
	if err != nil {
		return fmt.Errorf("creating migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "mysql", driver)
	if err != nil {
		return fmt.Errorf("initializing migrations: %w", err)
	}

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("no new migrations to apply")
		return nil
	}
	if err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}

	logger.Info("migrations applied")
	return nil
}
