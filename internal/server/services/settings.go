// Package services contains the ingestion business logic: the settings
// snapshot taken by each job run and the FoodData Central sync jobs.
package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/fdcsync/internal/common"
	"github.com/dmitrijs2005/fdcsync/internal/dbx"
	"github.com/dmitrijs2005/fdcsync/internal/fdc"
	"github.com/dmitrijs2005/fdcsync/internal/server/config"
	"github.com/dmitrijs2005/fdcsync/internal/server/models"
	"github.com/dmitrijs2005/fdcsync/internal/server/repositories/repomanager"
)

// SettingsService reads and updates the runtime FDC settings. Stored values
// override the defaults from the static configuration.
type SettingsService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	defaults    models.FDCSettings
}

// DefaultSettings extracts the FDC settings defaults from cfg.
func DefaultSettings(cfg *config.Config) (models.FDCSettings, error) {
	types, err := parseDataTypes(cfg.EnabledDataTypes)
	if err != nil {
		return models.FDCSettings{}, err
	}
	if !validExpiryDays(cfg.DetailExpiryDays) {
		return models.FDCSettings{}, fmt.Errorf("%w: detail expiry days must be between 1 and %d, got %d",
			common.ErrInvalidSetting, models.MaxDetailExpiryDays, cfg.DetailExpiryDays)
	}
	return models.FDCSettings{
		APIKey:           cfg.FDCAPIKey,
		EnabledDataTypes: types,
		DetailExpiryDays: cfg.DetailExpiryDays,
	}, nil
}

func NewSettingsService(db *sql.DB, m repomanager.RepositoryManager, defaults models.FDCSettings) *SettingsService {
	return &SettingsService{db: db, repomanager: m, defaults: defaults.Clone()}
}

// Snapshot returns the effective settings. The result is a copy; later
// updates do not affect it.
func (s *SettingsService) Snapshot(ctx context.Context) (models.FDCSettings, error) {
	stored, err := s.repomanager.Settings(s.db).All(ctx)
	if err != nil {
		return models.FDCSettings{}, fmt.Errorf("load settings: %w", err)
	}

	st := s.defaults.Clone()
	for key, raw := range stored {
		if err := applySetting(&st, key, raw); err != nil {
			return models.FDCSettings{}, fmt.Errorf("stored setting %s: %w", key, err)
		}
	}
	return st, nil
}

// Update validates every value and writes them in one transaction. Nothing
// is written when any value is invalid.
func (s *SettingsService) Update(ctx context.Context, values map[string]string) error {
	normalized := make(map[string]string, len(values))
	for key, raw := range values {
		var st models.FDCSettings
		if err := applySetting(&st, key, raw); err != nil {
			return err
		}
		normalized[key] = encodeSetting(st, key)
	}

	keys := make([]string, 0, len(normalized))
	for k := range normalized {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Settings(tx)
		for _, k := range keys {
			if err := repo.Set(ctx, k, normalized[k]); err != nil {
				return fmt.Errorf("save setting %s: %w", k, err)
			}
		}
		return nil
	})
}

// applySetting parses raw as the value of key into st.
func applySetting(st *models.FDCSettings, key, raw string) error {
	switch key {
	case models.SettingAPIKey:
		v := strings.TrimSpace(raw)
		if v == "" {
			return fmt.Errorf("%w: %s must not be empty", common.ErrInvalidSetting, key)
		}
		st.APIKey = v
	case models.SettingEnabledDataTypes:
		var names []string
		if err := json.Unmarshal([]byte(raw), &names); err != nil {
			return fmt.Errorf("%w: %s must be a JSON array of strings", common.ErrInvalidSetting, key)
		}
		types, err := parseDataTypes(names)
		if err != nil {
			return err
		}
		st.EnabledDataTypes = types
	case models.SettingDetailExpiryDays:
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || !validExpiryDays(n) {
			return fmt.Errorf("%w: %s must be an integer between 1 and %d", common.ErrInvalidSetting, key, models.MaxDetailExpiryDays)
		}
		st.DetailExpiryDays = n
	default:
		return fmt.Errorf("%w: unknown key %q", common.ErrInvalidSetting, key)
	}
	return nil
}

func encodeSetting(st models.FDCSettings, key string) string {
	switch key {
	case models.SettingEnabledDataTypes:
		b, _ := json.Marshal(st.EnabledDataTypes)
		return string(b)
	case models.SettingDetailExpiryDays:
		return strconv.Itoa(st.DetailExpiryDays)
	default:
		return st.APIKey
	}
}

// parseDataTypes validates names and drops duplicates, keeping order.
func parseDataTypes(names []string) ([]fdc.DataType, error) {
	types := make([]fdc.DataType, 0, len(names))
	for _, n := range names {
		dt, err := fdc.ParseDataType(n)
		if err != nil {
			return nil, errors.Join(common.ErrInvalidSetting, err)
		}
		if !slices.Contains(types, dt) {
			types = append(types, dt)
		}
	}
	return types, nil
}

func validExpiryDays(n int) bool {
	return n >= 1 && n <= models.MaxDetailExpiryDays
}
