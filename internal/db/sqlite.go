package db

import (
	"embed"
	"errors"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// ensureDir ensures the parent directory of the DB file exists
func ensureDir(dbFile string) error {
	dir := filepath.Dir(dbFile)
	return os.MkdirAll(dir, 0755)
}

// NewSQLiteDB opens the syllabus registry. ":memory:" is accepted for tests.
func NewSQLiteDB(dbFile string) (*sqlx.DB, error) {
	dsn, err := dataSource(dbFile)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "failed to connect to database")
	}

	if err := db.Ping(); err != nil {
		return nil, eris.Wrap(err, "failed to ping database")
	}

	// one connection keeps an in-memory database alive and serializes writers
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return db, nil
}

// RunMigrations applies the embedded migrations to an open database.
func RunMigrations(db *sqlx.DB) error {
	driver, err := sqlite.WithInstance(db.DB, &sqlite.Config{})
	if err != nil {
		return eris.Wrap(err, "failed to create migration driver")
	}

	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return eris.Wrap(err, "failed to open embedded migrations")
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return eris.Wrap(err, "failed to create migration instance")
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return eris.Wrap(err, "failed to run migrations")
	}

	return nil
}

func dataSource(dbFile string) (string, error) {
	if dbFile == ":memory:" {
		return dbFile, nil
	}

	absPath, err := filepath.Abs(dbFile)
	if err != nil {
		return "", eris.Wrap(err, "failed to get absolute database path")
	}

	if err := ensureDir(absPath); err != nil {
		return "", eris.Wrap(err, "failed to create database directory")
	}

	return absPath, nil
}
