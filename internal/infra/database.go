package infra

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"minimalgym/internal/model"

	"github.com/glebarez/sqlite"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const sqlitePrefix = "sqlite://"

// NewDatabase opens the store named by dsn. A sqlite://<path> DSN opens a
// pure-Go SQLite file and creates the schema with AutoMigrate; anything else
// is treated as a PostgreSQL URL whose schema is owned by the SQL migrations
// in migrations/, applied when runMigrations is set.
func NewDatabase(dsn string, runMigrations bool) (*gorm.DB, error) {
	cfg := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	}

	if path, ok := strings.CutPrefix(dsn, sqlitePrefix); ok {
		db, err := gorm.Open(sqlite.Open(path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"), cfg)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// SQLite has a single writer; one connection keeps transactions serial.
		sqlDB.SetMaxOpenConns(1)
		if err := AutoMigrate(db); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := gorm.Open(postgres.Open(dsn), cfg)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if runMigrations {
		if err := RunMigrations(dsn); err != nil {
			return nil, fmt.Errorf("migrations: %w", err)
		}
	}
	return db, nil
}

// RunMigrations applies the embedded SQL migrations to the PostgreSQL database
// at dsn. Already-applied migrations are a no-op.
func RunMigrations(dsn string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// AutoMigrate creates or updates every table from the GORM models. Used for
// SQLite stores and tests; PostgreSQL deployments use RunMigrations.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(model.All()...); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return nil
}
