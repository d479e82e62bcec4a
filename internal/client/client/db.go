package client

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/workledger/internal/client/migrations"
	"github.com/dmitrijs2005/workledger/internal/client/repositories/entries"
	"github.com/dmitrijs2005/workledger/internal/client/repositories/settings"
	"github.com/dmitrijs2005/workledger/internal/dbx"
	"github.com/pressly/goose/v3"
)

// Repositories bundles the local stores.
type Repositories struct {
	Entries  *entries.SQLiteRepository
	Settings *settings.Store
}

func NewRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		Entries:  entries.NewSQLiteRepository(db),
		Settings: settings.NewStore(db),
	}
}

// RunMigrations applies the embedded migrations. It is idempotent.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return goose.UpContext(ctx, db, ".")
}

// InitDatabase opens (creating if needed) the database file and migrates it.
func InitDatabase(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := dbx.OpenSQLite(ctx, dsn)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate %s: %w", dsn, err)
	}
	return db, nil
}
