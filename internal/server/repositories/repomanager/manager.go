// Package repomanager vends dialect-specific repository implementations and
// runs the matching embedded goose migrations.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/fdcsync/internal/dbx"
	"github.com/dmitrijs2005/fdcsync/internal/server/repositories/fooditems"
	"github.com/dmitrijs2005/fdcsync/internal/server/repositories/settings"
	"github.com/pressly/goose/v3"
)

// Supported values of the database driver setting.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type RepositoryManager interface {
	// SQLDriver is the database/sql driver name to open connections with.
	SQLDriver() string
	RunMigrations(context.Context, *sql.DB) error
	FoodItems(db dbx.DBTX) fooditems.Repository
	Settings(db dbx.DBTX) settings.Repository
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// New returns the manager for the configured driver.
func New(driver string) (RepositoryManager, error) {
	switch driver {
	case DriverPostgres:
		return NewPostgresRepositoryManager(), nil
	case DriverSQLite:
		return NewSQLiteRepositoryManager(), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}
