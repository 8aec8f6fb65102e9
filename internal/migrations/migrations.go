// Package migrations embebe el esquema SQL y lo aplica con goose.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed postgres/*.sql sqlite/*.sql
var files embed.FS

// Dialectos soportados; el nombre coincide con el directorio embebido.
const (
	Postgres = "postgres"
	SQLite   = "sqlite"
)

// goose guarda base FS y dialecto en variables globales.
var gooseMu sync.Mutex

// gooseUpContext es un punto de inyeccion para tests.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Up aplica todas las migraciones pendientes del dialecto indicado.
func Up(ctx context.Context, db *sql.DB, dialect string) error {
	var gooseDialect string
	switch dialect {
	case Postgres:
		gooseDialect = "pgx"
	case SQLite:
		gooseDialect = "sqlite3"
	default:
		return fmt.Errorf("unsupported migration dialect %q", dialect)
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(files)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(gooseDialect); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, dialect); err != nil {
		return fmt.Errorf("migrate %s: %w", dialect, err)
	}
	return nil
}
