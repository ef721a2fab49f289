package index

import (
	"database/sql"
	"fmt"
	"io"

	"github.com/golang-migrate/migrate/v4/database"
)

// sqliteDriver adapts an already-open *sql.DB (opened via the ncruces
// cgo-free sqlite3 driver) to golang-migrate's database.Driver interface.
// golang-migrate ships a built-in "sqlite3" driver, but it is hard-wired to
// mattn/go-sqlite3's cgo connection type; it cannot drive a *sql.DB opened
// through a different driver. This adapter is the minimal surface
// golang-migrate needs — schema_migrations bookkeeping plus statement
// execution — so the rest of the migration machinery (the embedded-fs
// source driver, Up()/Down(), forward-only versioning) is still the real
// golang-migrate library, not a hand-rolled replacement.
type sqliteDriver struct {
	db *sql.DB
}

const migrationsTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER NOT NULL PRIMARY KEY,
	dirty    INTEGER NOT NULL
)`

// newSQLiteDriver wraps db for use with migrate.NewWithInstance.
func newSQLiteDriver(db *sql.DB) (database.Driver, error) {
	if _, err := db.Exec(migrationsTable); err != nil {
		return nil, fmt.Errorf("creating schema_migrations: %w", err)
	}
	return &sqliteDriver{db: db}, nil
}

// Open is unused: this driver is always constructed via newSQLiteDriver
// against a pre-opened connection, never via a migrate:// URL.
func (d *sqliteDriver) Open(url string) (database.Driver, error) {
	return nil, fmt.Errorf("sqliteDriver: Open by URL is not supported, use newSQLiteDriver")
}

func (d *sqliteDriver) Close() error {
	return nil // the caller owns db's lifecycle
}

// Lock and Unlock are no-ops: migrations run during process startup before
// the index's own writer mutex is handed out to callers, so there is never
// a second concurrent migrator within this process, and cross-process
// migration is out of scope (see Non-goals).
func (d *sqliteDriver) Lock() error   { return nil }
func (d *sqliteDriver) Unlock() error { return nil }

func (d *sqliteDriver) Run(migration io.Reader) error {
	data, err := io.ReadAll(migration)
	if err != nil {
		return err
	}
	if _, err := d.db.Exec(string(data)); err != nil {
		return fmt.Errorf("executing migration: %w", err)
	}
	return nil
}

func (d *sqliteDriver) SetVersion(version int, dirty bool) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM schema_migrations"); err != nil {
		_ = tx.Rollback()
		return err
	}
	if version >= 0 {
		if _, err := tx.Exec("INSERT INTO schema_migrations (version, dirty) VALUES (?, ?)", version, dirty); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (d *sqliteDriver) Version() (version int, dirty bool, err error) {
	row := d.db.QueryRow("SELECT version, dirty FROM schema_migrations LIMIT 1")
	err = row.Scan(&version, &dirty)
	if err == sql.ErrNoRows {
		return database.NilVersion, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return version, dirty, nil
}

func (d *sqliteDriver) Drop() error {
	rows, err := d.db.Query(`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`)
	if err != nil {
		return err
	}
	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			_ = rows.Close()
			return err
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	_ = rows.Close()

	for _, t := range tables {
		if _, err := d.db.Exec(fmt.Sprintf(`DROP TABLE IF EXISTS "%s"`, t)); err != nil {
			return err
		}
	}
	return nil
}
