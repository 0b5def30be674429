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

// sqliteTimeLayout is fixed width, so comparing the stored text compares
// the instants.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

const sqliteColumns = pgColumns

// SQLiteRepository implements Repository over a dbx.DBTX bound to SQLite.
type SQLiteRepository struct {
	db  dbx.DBTX
	now func() time.Time
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

// WithClock replaces the clock used for bookkeeping timestamps and
// staleness cutoffs.
func (r *SQLiteRepository) WithClock(now func() time.Time) *SQLiteRepository {
	r.now = now
	return r
}

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(sqliteTimeLayout, s)
}

// UpsertSummary inserts the item or overwrites its summary columns. An
// identical upsert changes nothing, updated_at included.
func (r *SQLiteRepository) UpsertSummary(ctx context.Context, s models.FoodSummary) error {
	query := `INSERT INTO food_items (fdc_id, data_type, description, brand_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(fdc_id) DO UPDATE SET
			data_type = excluded.data_type,
			description = excluded.description,
			brand_name = excluded.brand_name,
			updated_at = excluded.updated_at
		WHERE food_items.data_type IS NOT excluded.data_type
			OR food_items.description IS NOT excluded.description
			OR food_items.brand_name IS NOT excluded.brand_name`
	now := formatTime(r.now())
	if _, err := r.db.ExecContext(ctx, query, s.FdcID, s.DataType, s.Description, s.BrandName, now, now); err != nil {
		return fmt.Errorf("failed to upsert food item: %w", err)
	}
	return nil
}

// RecordDetailSuccess stores the detail document and fetch time, creating
// the item from the document when it does not exist.
func (r *SQLiteRepository) RecordDetailSuccess(ctx context.Context, fdcID int64, doc models.DetailDocument, fetchedAt time.Time) error {
	query := `INSERT INTO food_items (fdc_id, data_type, description, brand_name, detail, detail_fetch_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(fdc_id) DO UPDATE SET
			detail = excluded.detail,
			detail_fetch_date = excluded.detail_fetch_date,
			updated_at = excluded.updated_at`
	now := formatTime(r.now())
	_, err := r.db.ExecContext(ctx, query,
		fdcID, doc.DataType, doc.Description, doc.BrandName, string(doc.Body), formatTime(fetchedAt), now, now)
	if err != nil {
		return fmt.Errorf("failed to store food detail: %w", err)
	}
	return nil
}

// RecordDetailFailure increments error_count in place.
func (r *SQLiteRepository) RecordDetailFailure(ctx context.Context, fdcID int64) (models.FailureOutcome, error) {
	query := `UPDATE food_items SET error_count = error_count + 1, updated_at = ? WHERE fdc_id = ?`
	res, err := r.db.ExecContext(ctx, query, formatTime(r.now()), fdcID)
	if err != nil {
		return 0, fmt.Errorf("failed to increment error count: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	switch n {
	case 1:
		return models.FailureRecorded, nil
	case 0:
		return models.FailureNotFound, nil
	default:
		return 0, fmt.Errorf("wrong rows affected count: %d", n)
	}
}

// FindMissingDetail returns up to limit items without detail and within
// their failure budget, ordered by fdc_id.
func (r *SQLiteRepository) FindMissingDetail(ctx context.Context, limit int) ([]*models.FoodItem, error) {
	query := `SELECT ` + sqliteColumns + ` FROM food_items
		WHERE detail IS NULL AND error_count <= ?
		ORDER BY fdc_id
		LIMIT ?`
	return r.query(ctx, query, models.MaxDetailErrors, limit)
}

// FindStaleDetail returns up to limit items fetched strictly before
// now - expiryDays, oldest first.
func (r *SQLiteRepository) FindStaleDetail(ctx context.Context, expiryDays int, limit int) ([]*models.FoodItem, error) {
	query := `SELECT ` + sqliteColumns + ` FROM food_items
		WHERE detail_fetch_date IS NOT NULL AND detail_fetch_date < ? AND error_count <= ?
		ORDER BY detail_fetch_date, fdc_id
		LIMIT ?`
	return r.query(ctx, query, formatTime(staleCutoff(r.now(), expiryDays)), models.MaxDetailErrors, limit)
}

// GetByFdcID returns the item or common.ErrNotFound.
func (r *SQLiteRepository) GetByFdcID(ctx context.Context, fdcID int64) (*models.FoodItem, error) {
	query := `SELECT ` + sqliteColumns + ` FROM food_items WHERE fdc_id = ?`
	item, err := scanSQLite(r.db.QueryRowContext(ctx, query, fdcID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return item, nil
}

// Stats counts items per data type.
func (r *SQLiteRepository) Stats(ctx context.Context) ([]models.DataTypeStats, error) {
	query := `SELECT data_type,
			COUNT(*),
			COUNT(detail),
			COALESCE(SUM(CASE WHEN detail IS NULL AND error_count <= ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN detail IS NULL AND error_count > ? THEN 1 ELSE 0 END), 0)
		FROM food_items
		GROUP BY data_type
		ORDER BY data_type`
	rows, err := r.db.QueryContext(ctx, query, models.MaxDetailErrors, models.MaxDetailErrors)
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

func (r *SQLiteRepository) query(ctx context.Context, query string, args ...any) ([]*models.FoodItem, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select food items: %w", err)
	}
	defer rows.Close()

	var result []*models.FoodItem
	for rows.Next() {
		item, err := scanSQLite(rows)
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

func scanSQLite(s scanner) (*models.FoodItem, error) {
	var (
		item                 models.FoodItem
		brand, detail, fetch sql.NullString
		created, updated     string
	)
	if err := s.Scan(&item.ID, &item.FdcID, &item.DataType, &item.Description, &brand,
		&detail, &fetch, &item.ErrorCount, &created, &updated); err != nil {
		return nil, err
	}
	if brand.Valid {
		item.BrandName = &brand.String
	}
	if detail.Valid {
		item.Detail = []byte(detail.String)
	}
	if fetch.Valid {
		t, err := parseTime(fetch.String)
		if err != nil {
			return nil, fmt.Errorf("parse detail_fetch_date: %w", err)
		}
		item.DetailFetchDate = &t
	}
	var err error
	if item.CreatedAt, err = parseTime(created); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if item.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &item, nil
}
