package mysql

import (
	"database/sql"
	"fmt"

	mysqldriver "github.com/go-sql-driver/mysql"

	"pizzeria/internal/config"
)

func NewConnection(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("mysql", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}

// DSN reports matched rather than changed rows, so an UPDATE that writes
// identical values still counts as found.
func DSN(cfg config.DatabaseConfig) string {
	return driverConfig(cfg).FormatDSN()
}

// MigrationDSN additionally allows multi-statement migration files. It is
// only used by the short-lived migration connection.
func MigrationDSN(cfg config.DatabaseConfig) string {
	dc := driverConfig(cfg)
	dc.MultiStatements = true
	return dc.FormatDSN()
}

func driverConfig(cfg config.DatabaseConfig) *mysqldriver.Config {
	dc := mysqldriver.NewConfig()
	dc.User = cfg.User
	dc.Passwd = cfg.Password
	dc.Net = "tcp"
	dc.Addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	dc.DBName = cfg.Name
	dc.ParseTime = true
	dc.ClientFoundRows = true
	return dc
}
