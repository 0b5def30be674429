// Package fooditems persists the food_items table: summary upserts from the
// bulk sync, detail results and failure counters from detail fetches, and
// the scans that select items for backfill and refresh.
package fooditems

import (
	"context"
	"time"

	"github.com/dmitrijs2005/fdcsync/internal/server/models"
)

// Repository is implemented by PostgresRepository and SQLiteRepository.
type Repository interface {
	UpsertSummary(ctx context.Context, s models.FoodSummary) error
	RecordDetailSuccess(ctx context.Context, fdcID int64, doc models.DetailDocument, fetchedAt time.Time) error
	RecordDetailFailure(ctx context.Context, fdcID int64) (models.FailureOutcome, error)
	FindMissingDetail(ctx context.Context, limit int) ([]*models.FoodItem, error)
	FindStaleDetail(ctx context.Context, expiryDays int, limit int) ([]*models.FoodItem, error)
	GetByFdcID(ctx context.Context, fdcID int64) (*models.FoodItem, error)
	Stats(ctx context.Context) ([]models.DataTypeStats, error)
}

// staleCutoff is the instant before which a detail fetch counts as stale.
func staleCutoff(now time.Time, expiryDays int) time.Time {
	return now.UTC().AddDate(0, 0, -expiryDays)
}
