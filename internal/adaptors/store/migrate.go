package store

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed migrations
var migrations embed.FS

var gooseDialects = map[Dialect]string{
	DialectSQLite:   "sqlite3",
	DialectMySQL:    "mysql",
	DialectPostgres: "postgres",
}

// Migrate runs all pending migrations for the dialect.
func Migrate(db *sql.DB, dialect Dialect) error {
	gooseDialect, ok := gooseDialects[dialect]
	if !ok {
		return fmt.Errorf("no migrations for driver %q", dialect)
	}

	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect(gooseDialect); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations/"+string(dialect)); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	return nil
}
