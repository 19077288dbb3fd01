package database

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"

	"github.com/rpupo63/hundred-days/errs"
)

// Dialect names double as golang-migrate driver names.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite3"
)

const sqlitePrefix = "sqlite:///"

type Database struct {
	db          *gorm.DB
	dialect     Dialect
	projectRepo *ProjectRepo
}

// New initializes a new Database struct with each repository using a shared GORM database instance
func New(db *gorm.DB, dialect Dialect, opts ...ProjectRepoOption) Database {
	return Database{
		db:          db,
		dialect:     dialect,
		projectRepo: NewProjectRepo(db, opts...),
	}
}

func (d Database) ProjectRepo() *ProjectRepo {
	return d.projectRepo
}

// Migrate creates the schema if it is missing.
func (d Database) Migrate() error {
	return Migrate(d.db, d.dialect)
}

// Ping checks the primary connection.
func (d Database) Ping(ctx context.Context) error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return errs.NewDatabaseError("open", "connection", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return errs.NewDatabaseError("ping", "connection", err)
	}
	return nil
}

func (d Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// DialectorFor picks the gorm driver for a normalized connection string.
// sqlite:///path opens a file relative to the working directory,
// postgresql:// (or postgres://) URLs go to the pgx-backed postgres driver.
func DialectorFor(url string) (gorm.Dialector, Dialect, error) {
	switch {
	case strings.HasPrefix(url, sqlitePrefix):
		path := strings.TrimPrefix(url, sqlitePrefix)
		if path == "" {
			return nil, "", errs.NewConfigError("DATABASE_URL", fmt.Errorf("sqlite url %q has no path", url))
		}
		return sqlite.Open(path), SQLite, nil
	case strings.HasPrefix(url, "postgresql://"), strings.HasPrefix(url, "postgres://"):
		return postgres.New(postgres.Config{
			DSN:                  url,
			PreferSimpleProtocol: true,
		}), Postgres, nil
	default:
		return nil, "", errs.NewConfigError("DATABASE_URL", fmt.Errorf("unsupported scheme in %q", redact(url)))
	}
}

// Open connects to the store named by url. A non-empty replicaURL routes
// reads to that replica through dbresolver; writes stay on the primary.
func Open(url, replicaURL string) (*gorm.DB, Dialect, error) {
	dialector, dialect, err := DialectorFor(url)
	if err != nil {
		return nil, "", err
	}

	db, err := gorm.Open(dialector, newGormConfig())
	if err != nil {
		return nil, "", errs.NewDatabaseError("connect to", "database", err)
	}

	if replicaURL != "" {
		replica, replicaDialect, err := DialectorFor(replicaURL)
		if err != nil {
			return nil, "", err
		}
		if replicaDialect != dialect {
			return nil, "", errs.NewConfigError("DATABASE_REPLICA_URL", fmt.Errorf("replica dialect %s does not match primary %s", replicaDialect, dialect))
		}
		if err := db.Use(dbresolver.Register(dbresolver.Config{
			Replicas: []gorm.Dialector{replica},
			Policy:   dbresolver.RandomPolicy{},
		})); err != nil {
			return nil, "", errs.NewDatabaseError("register", "read replica", err)
		}
	}

	return db, dialect, nil
}

func newGormConfig() *gorm.Config {
	newLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             10 * time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	return &gorm.Config{
		PrepareStmt:    false,
		Logger:         newLogger,
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// redact hides credentials before a URL ends up in an error message.
func redact(url string) string {
	schemeEnd := strings.Index(url, "://")
	at := strings.LastIndex(url, "@")
	if schemeEnd < 0 || at < schemeEnd {
		return url
	}
	return url[:schemeEnd+3] + "***" + url[at:]
}
