package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/fdcsync/internal/dbx"
	"github.com/dmitrijs2005/fdcsync/internal/server/migrations"
	"github.com/dmitrijs2005/fdcsync/internal/server/repositories/fooditems"
	"github.com/dmitrijs2005/fdcsync/internal/server/repositories/settings"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repositories.
type PostgresRepositoryManager struct{}

func NewPostgresRepositoryManager() *PostgresRepositoryManager {
	return &PostgresRepositoryManager{}
}

func (m *PostgresRepositoryManager) SQLDriver() string { return "pgx" }

// FoodItems returns a fooditems.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) FoodItems(db dbx.DBTX) fooditems.Repository {
	return fooditems.NewPostgresRepository(db)
}

// Settings returns a settings.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Settings(db dbx.DBTX) settings.Repository {
	return settings.NewPostgresRepository(db)
}

// RunMigrations applies the embedded postgres migration set.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Postgres)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	return gooseUpContext(ctx, db, "postgres")
}
