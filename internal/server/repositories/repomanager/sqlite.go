package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/fdcsync/internal/dbx"
	"github.com/dmitrijs2005/fdcsync/internal/server/migrations"
	"github.com/dmitrijs2005/fdcsync/internal/server/repositories/fooditems"
	"github.com/dmitrijs2005/fdcsync/internal/server/repositories/settings"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// SQLiteRepositoryManager vends SQLite-backed repositories.
type SQLiteRepositoryManager struct{}

func NewSQLiteRepositoryManager() *SQLiteRepositoryManager {
	return &SQLiteRepositoryManager{}
}

func (m *SQLiteRepositoryManager) SQLDriver() string { return "sqlite" }

func (m *SQLiteRepositoryManager) FoodItems(db dbx.DBTX) fooditems.Repository {
	return fooditems.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Settings(db dbx.DBTX) settings.Repository {
	return settings.NewSQLiteRepository(db)
}

// RunMigrations applies the embedded sqlite migration set.
func (m *SQLiteRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.SQLite)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	return gooseUpContext(ctx, db, "sqlite")
}
