package fooditems

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fdcsync/internal/common"
	"github.com/dmitrijs2005/fdcsync/internal/dbx"
	"github.com/dmitrijs2005/fdcsync/internal/server/models"
)

const pgColumns = `id, fdc_id, data_type, description, brand_name, detail, detail_fetch_date, error_count, created_at, updated_at`

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db  dbx.DBTX
	now func() time.Time
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db, now: time.Now}
}

// WithClock replaces the clock used to compute staleness cutoffs.
func (r *PostgresRepository) WithClock(now func() time.Time) *PostgresRepository {
	r.now = now
	return r
}

// UpsertSummary inserts the item or overwrites its summary columns. Detail
// columns and error_count are left alone. An identical upsert is a no-op.
func (r *PostgresRepository) UpsertSummary(ctx context.Context, s models.FoodSummary) error {
	query := `
		INSERT INTO food_items (fdc_id, data_type, description, brand_name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (fdc_id)
		DO UPDATE SET
			data_type = EXCLUDED.data_type,
			description = EXCLUDED.description,
			brand_name = EXCLUDED.brand_name,
			updated_at = now()
			WHERE (food_items.data_type, food_items.description, food_items.brand_name)
				IS DISTINCT FROM (EXCLUDED.data_type, EXCLUDED.description, EXCLUDED.brand_name);
	`
	if _, err := r.db.ExecContext(ctx, query, s.FdcID, s.DataType, s.Description, s.BrandName); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// RecordDetailSuccess stores the detail document and fetch time. A missing
// item is created from the document's summary fields.
func (r *PostgresRepository) RecordDetailSuccess(ctx context.Context, fdcID int64, doc models.DetailDocument, fetchedAt time.Time) error {
	query := `
		INSERT INTO food_items (fdc_id, data_type, description, brand_name, detail, detail_fetch_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (fdc_id)
		DO UPDATE SET
			detail = EXCLUDED.detail,
			detail_fetch_date = EXCLUDED.detail_fetch_date,
			updated_at = now();
	`
	_, err := r.db.ExecContext(ctx, query,
		fdcID, doc.DataType, doc.Description, doc.BrandName, string(doc.Body), fetchedAt.UTC())
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// RecordDetailFailure increments error_count in place. Zero matched rows
// yield FailureNotFound rather than an error.
func (r *PostgresRepository) RecordDetailFailure(ctx context.Context, fdcID int64) (models.FailureOutcome, error) {
	query := `UPDATE food_items SET error_count = error_count + 1, updated_at = now() WHERE fdc_id = $1`
	res, err := r.db.ExecContext(ctx, query, fdcID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return models.FailureRecorded, nil
	case 0:
		return models.FailureNotFound, nil
	default:
		return 0, fmt.Errorf("unexpected rows affected: %d", n)
	}
}

// FindMissingDetail returns up to limit items without detail whose failure
// budget is not exhausted, ordered by fdc_id.
func (r *PostgresRepository) FindMissingDetail(ctx context.Context, limit int) ([]*models.FoodItem, error) {
	query := `SELECT ` + pgColumns + ` FROM food_items
		WHERE detail IS NULL AND error_count <= $1
		ORDER BY fdc_id
		LIMIT $2`
	return r.query(ctx, query, models.MaxDetailErrors, limit)
}

// FindStaleDetail returns up to limit items whose last successful fetch
// is strictly older than expiryDays, oldest first.
func (r *PostgresRepository) FindStaleDetail(ctx context.Context, expiryDays int, limit int) ([]*models.FoodItem, error) {
	query := `SELECT ` + pgColumns + ` FROM food_items
		WHERE detail_fetch_date < $1 AND error_count <= $2
		ORDER BY detail_fetch_date, fdc_id
		LIMIT $3`
	return r.query(ctx, query, staleCutoff(r.now(), expiryDays).UTC(), models.MaxDetailErrors, limit)
}

// GetByFdcID returns the item or common.ErrNotFound.
func (r *PostgresRepository) GetByFdcID(ctx context.Context, fdcID int64) (*models.FoodItem, error) {
	query := `SELECT ` + pgColumns + ` FROM food_items WHERE fdc_id = $1`
	item, err := scanPostgres(r.db.QueryRowContext(ctx, query, fdcID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return item, nil
}

// Stats counts items per data type.
func (r *PostgresRepository) Stats(ctx context.Context) ([]models.DataTypeStats, error) {
	query := `
		SELECT data_type,
			COUNT(*),
			COUNT(detail),
			COUNT(*) FILTER (WHERE detail IS NULL AND error_count <= $1),
			COUNT(*) FILTER (WHERE detail IS NULL AND error_count > $1)
		FROM food_items
		GROUP BY data_type
		ORDER BY data_type`
	rows, err := r.db.QueryContext(ctx, query, models.MaxDetailErrors)
	if err != nil {
		return nil, fmt.Errorf("failed to select stats: %w", err)
	}
	defer rows.Close()

	var result []models.DataTypeStats
	for rows.Next() {
		var s models.DataTypeStats
		if err := rows.Scan(&s.DataType, &s.Total, &s.Fetched, &s.Missing, &s.Exhausted); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...any) ([]*models.FoodItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select food items: %w", err)
	}
	defer rows.Close()

	var result []*models.FoodItem
	for rows.Next() {
		item, err := scanPostgres(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPostgres(s scanner) (*models.FoodItem, error) {
	var (
		item      models.FoodItem
		brand     sql.NullString
		detail    []byte
		fetchedAt sql.NullTime
	)
	if err := s.Scan(&item.ID, &item.FdcID, &item.DataType, &item.Description, &brand,
		&detail, &fetchedAt, &item.ErrorCount, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return nil, err
	}
	if brand.Valid {
		item.BrandName = &brand.String
	}
	if detail != nil {
		item.Detail = detail
	}
	if fetchedAt.Valid {
		t := fetchedAt.Time
		item.DetailFetchDate = &t
	}
	return &item, nil
}
