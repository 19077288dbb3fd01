package database

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"

	"github.com/rpupo63/hundred-days/errs"
)

//go:embed migrations/postgres/*.sql migrations/sqlite3/*.sql
var migrationsFS embed.FS

// Migrate applies every pending up migration for the dialect. It is safe to
// run repeatedly. The migrate instance is not closed because closing it would
// close the *sql.DB shared with gorm.
func Migrate(db *gorm.DB, dialect Dialect) error {
	sqlDB, err := db.DB()
	if err != nil {
		return errs.NewMigrationError(string(dialect), err)
	}

	source, err := iofs.New(migrationsFS, "migrations/"+string(dialect))
	if err != nil {
		return errs.NewMigrationError(string(dialect), fmt.Errorf("load migrations: %w", err))
	}

	var driver migratedb.Driver
	switch dialect {
	case Postgres:
		driver, err = migratepg.WithInstance(sqlDB, &migratepg.Config{})
	case SQLite:
		driver, err = migratesqlite.WithInstance(sqlDB, &migratesqlite.Config{})
	default:
		err = fmt.Errorf("unknown dialect %q", dialect)
	}
	if err != nil {
		return errs.NewMigrationError(string(dialect), fmt.Errorf("create migrate driver: %w", err))
	}

	m, err := migrate.NewWithInstance("iofs", source, string(dialect), driver)
	if err != nil {
		return errs.NewMigrationError(string(dialect), fmt.Errorf("create migrate instance: %w", err))
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errs.NewMigrationError(string(dialect), err)
	}
	return nil
}
