// Package settings persists runtime overrides of the FDC settings as
// key/value rows.
package settings

import "context"

// Repository is implemented by PostgresRepository and SQLiteRepository.
type Repository interface {
	// Get returns the stored value or common.ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	All(ctx context.Context) (map[string]string, error)
}
