package models

import (
	"slices"

	"github.com/dmitrijs2005/fdcsync/internal/fdc"
)

// Keys of the settings table.
const (
	SettingAPIKey           = "fdc_api_key"
	SettingEnabledDataTypes = "fdc_enabled_data_types"
	SettingDetailExpiryDays = "fdc_detail_expiry_days"
)

// MaxDetailExpiryDays bounds fdc_detail_expiry_days to a hundred years.
const MaxDetailExpiryDays = 36500

// FDCSettings is the immutable view of the ingestion settings taken at the
// start of a job run. Dispatched detail jobs carry the snapshot of the job
// that dispatched them.
type FDCSettings struct {
	APIKey           string         `json:"api_key"`
	EnabledDataTypes []fdc.DataType `json:"enabled_data_types"`
	DetailExpiryDays int            `json:"detail_expiry_days"`
}

// Clone returns a deep copy.
func (s FDCSettings) Clone() FDCSettings {
	s.EnabledDataTypes = slices.Clone(s.EnabledDataTypes)
	return s
}
