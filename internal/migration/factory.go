package migration

import (
	"fmt"

	"github.com/BaSui01/schemaflow/config"
)

// NewMigratorFromHistory creates a migrator for the run history
// database described by the config section. The DSN is passed through
// unchanged, so the migrator reaches the same database the store does.
func NewMigratorFromHistory(cfg config.HistoryConfig) (*Migrator, error) {
	return NewMigratorFromURL(cfg.Driver, cfg.DSN)
}

// NewMigratorFromURL creates a migrator from a driver name and a
// connection string.
func NewMigratorFromURL(driver, dsn string) (*Migrator, error) {
	dbType, err := ParseDatabaseType(driver)
	if err != nil {
		return nil, fmt.Errorf("invalid database type: %w", err)
	}
	return NewMigrator(&Config{
		DatabaseType: dbType,
		DatabaseURL:  dsn,
	})
}
