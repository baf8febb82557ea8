package migration

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/postgres/*.sql
var postgresFS embed.FS

//go:embed migrations/mysql/*.sql
var mysqlFS embed.FS

//go:embed migrations/sqlite/*.sql
var sqliteFS embed.FS

// DatabaseType selects the migration dialect.
type DatabaseType string

const (
	DatabaseTypePostgres DatabaseType = "postgres"
	DatabaseTypeMySQL    DatabaseType = "mysql"
	DatabaseTypeSQLite   DatabaseType = "sqlite"
)

// Status describes one known migration relative to the database state.
type Status struct {
	Version uint
	Name    string
	Applied bool
	Dirty   bool
}

// Info summarizes the database's migration state.
type Info struct {
	CurrentVersion    uint
	Dirty             bool
	TotalMigrations   int
	AppliedMigrations int
	PendingMigrations int
}

// Config configures a Migrator.
type Config struct {
	// DatabaseType selects the dialect: postgres, mysql, or sqlite.
	DatabaseType DatabaseType

	// DatabaseURL is the connection string, in the same form the
	// history store accepts for the matching driver.
	DatabaseURL string

	// TableName is the migrations bookkeeping table. Defaults to
	// schema_migrations.
	TableName string
}

// Migrator applies the embedded runs-table migrations.
type Migrator struct {
	config  *Config
	migrate *migrate.Migrate
	db      *sql.DB
	driver  database.Driver
}

// NewMigrator opens the database and prepares the embedded migration
// source for its dialect.
func NewMigrator(cfg *Config) (*Migrator, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required")
	}
	if cfg.TableName == "" {
		cfg.TableName = "schema_migrations"
	}

	m := &Migrator{config: cfg}
	if err := m.init(); err != nil {
		return nil, fmt.Errorf("failed to initialize migrator: %w", err)
	}
	return m, nil
}

func (m *Migrator) init() error {
	var err error

	m.db, err = m.openDatabase()
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	m.driver, err = m.databaseDriver()
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	src, err := m.sourceDriver()
	if err != nil {
		return fmt.Errorf("failed to create source driver: %w", err)
	}

	m.migrate, err = migrate.NewWithInstance("iofs", src, string(m.config.DatabaseType), m.driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return nil
}

func (m *Migrator) openDatabase() (*sql.DB, error) {
	var driverName string
	switch m.config.DatabaseType {
	case DatabaseTypePostgres:
		driverName = "postgres"
	case DatabaseTypeMySQL:
		driverName = "mysql"
	case DatabaseTypeSQLite:
		driverName = "sqlite3"
	default:
		return nil, fmt.Errorf("unsupported database type: %s", m.config.DatabaseType)
	}

	db, err := sql.Open(driverName, m.config.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

func (m *Migrator) databaseDriver() (database.Driver, error) {
	switch m.config.DatabaseType {
	case DatabaseTypePostgres:
		return postgres.WithInstance(m.db, &postgres.Config{MigrationsTable: m.config.TableName})
	case DatabaseTypeMySQL:
		return mysql.WithInstance(m.db, &mysql.Config{MigrationsTable: m.config.TableName})
	case DatabaseTypeSQLite:
		return sqlite3.WithInstance(m.db, &sqlite3.Config{MigrationsTable: m.config.TableName})
	default:
		return nil, fmt.Errorf("unsupported database type: %s", m.config.DatabaseType)
	}
}

func (m *Migrator) sourceDriver() (source.Driver, error) {
	fsys, path, err := m.migrationsFS()
	if err != nil {
		return nil, err
	}
	return iofs.New(fsys, path)
}

func (m *Migrator) migrationsFS() (fs.FS, string, error) {
	switch m.config.DatabaseType {
	case DatabaseTypePostgres:
		return postgresFS, "migrations/postgres", nil
	case DatabaseTypeMySQL:
		return mysqlFS, "migrations/mysql", nil
	case DatabaseTypeSQLite:
		return sqliteFS, "migrations/sqlite", nil
	default:
		return nil, "", fmt.Errorf("unsupported database type: %s", m.config.DatabaseType)
	}
}

// Up applies all pending migrations.
func (m *Migrator) Up(ctx context.Context) error {
	if err := m.migrate.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// Down rolls back the most recent migration.
func (m *Migrator) Down(ctx context.Context) error {
	if err := m.migrate.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration down failed: %w", err)
	}
	return nil
}

// Steps applies n migrations when positive and rolls back -n when
// negative.
func (m *Migrator) Steps(ctx context.Context, n int) error {
	if err := m.migrate.Steps(n); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration steps failed: %w", err)
	}
	return nil
}

// Force overwrites the recorded version without running migrations.
// It is the escape hatch for a dirty state.
func (m *Migrator) Force(ctx context.Context, version int) error {
	if err := m.migrate.Force(version); err != nil {
		return fmt.Errorf("migration force failed: %w", err)
	}
	return nil
}

// Version reports the current version and whether the state is dirty.
// A database with no applied migrations reports version 0.
func (m *Migrator) Version(ctx context.Context) (uint, bool, error) {
	version, dirty, err := m.migrate.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get version: %w", err)
	}
	return version, dirty, nil
}

// StatusAll lists every known migration with its applied state.
func (m *Migrator) StatusAll(ctx context.Context) ([]Status, error) {
	currentVersion, dirty, err := m.Version(ctx)
	if err != nil {
		return nil, err
	}
	migrations, err := m.availableMigrations()
	if err != nil {
		return nil, err
	}

	statuses := make([]Status, 0, len(migrations))
	for _, mig := range migrations {
		statuses = append(statuses, Status{
			Version: mig.version,
			Name:    mig.name,
			Applied: mig.version <= currentVersion,
			Dirty:   dirty && mig.version == currentVersion,
		})
	}
	return statuses, nil
}

// CurrentInfo summarizes the applied/pending counts.
func (m *Migrator) CurrentInfo(ctx context.Context) (*Info, error) {
	currentVersion, dirty, err := m.Version(ctx)
	if err != nil {
		return nil, err
	}
	migrations, err := m.availableMigrations()
	if err != nil {
		return nil, err
	}

	applied := 0
	for _, mig := range migrations {
		if mig.version <= currentVersion {
			applied++
		}
	}
	return &Info{
		CurrentVersion:    currentVersion,
		Dirty:             dirty,
		TotalMigrations:   len(migrations),
		AppliedMigrations: applied,
		PendingMigrations: len(migrations) - applied,
	}, nil
}

// Close releases the migrate instance and its database connection.
func (m *Migrator) Close() error {
	if m.migrate == nil {
		return nil
	}
	sourceErr, dbErr := m.migrate.Close()
	if err := errors.Join(sourceErr, dbErr); err != nil {
		return fmt.Errorf("failed to close migrator: %w", err)
	}
	return nil
}

type migrationFile struct {
	version uint
	name    string
}

// availableMigrations lists the embedded up migrations for the
// configured dialect, sorted by version.
func (m *Migrator) availableMigrations() ([]migrationFile, error) {
	fsys, path, err := m.migrationsFS()
	if err != nil {
		return nil, err
	}
	entries, err := fs.ReadDir(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	seen := make(map[uint]bool)
	var migrations []migrationFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".up.sql") {
			continue
		}
		parts := strings.SplitN(name, "_", 2)
		if len(parts) < 2 {
			continue
		}
		version, err := strconv.ParseUint(parts[0], 10, 32)
		if err != nil || seen[uint(version)] {
			continue
		}
		seen[uint(version)] = true
		migrations = append(migrations, migrationFile{
			version: uint(version),
			name:    strings.TrimSuffix(parts[1], ".up.sql"),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].version < migrations[j].version
	})
	return migrations, nil
}

// ParseDatabaseType normalizes a driver name to a DatabaseType.
func ParseDatabaseType(s string) (DatabaseType, error) {
	switch strings.ToLower(s) {
	case "postgres", "postgresql", "pg":
		return DatabaseTypePostgres, nil
	case "mysql", "mariadb":
		return DatabaseTypeMySQL, nil
	case "sqlite", "sqlite3":
		return DatabaseTypeSQLite, nil
	default:
		return "", fmt.Errorf("unsupported database type: %s", s)
	}
}
