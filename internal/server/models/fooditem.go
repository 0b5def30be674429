// Package models defines the persisted shapes produced by the ingestion
// pipeline and consumed by the recipe layer.
package models

import (
	"encoding/json"
	"time"
)

// MaxDetailErrors is the failure budget of a food item. Items whose
// ErrorCount exceeds it are no longer picked up by the backfill and
// refresh jobs.
const MaxDetailErrors = 5

// FoodItem is one row of food_items, keyed by the FoodData Central ID.
type FoodItem struct {
	ID int64

	// FdcID is the external identifier; unique and immutable.
	FdcID int64

	// DataType is the FDC discriminator ("Foundation", "SR Legacy", ...).
	DataType    string
	Description string
	// BrandName is set for Branded foods only.
	BrandName *string

	// Detail is the full food document, nil until a detail fetch succeeds.
	Detail json.RawMessage
	// DetailFetchDate is the time of the last successful detail fetch.
	DetailFetchDate *time.Time
	// ErrorCount counts failed detail fetches. It is never reset.
	ErrorCount int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DetailState is the position of a FoodItem in the detail-fetch lifecycle.
type DetailState string

const (
	DetailPending   DetailState = "pending"
	DetailFetched   DetailState = "fetched"
	DetailFailed    DetailState = "failed"
	DetailExhausted DetailState = "exhausted"
)

// State derives the lifecycle state from the stored fields.
func (f *FoodItem) State() DetailState {
	switch {
	case f.Detail != nil:
		return DetailFetched
	case f.ErrorCount > MaxDetailErrors:
		return DetailExhausted
	case f.ErrorCount > 0:
		return DetailFailed
	default:
		return DetailPending
	}
}

// FoodSummary carries the summary columns written by the bulk sync.
type FoodSummary struct {
	FdcID       int64
	DataType    string
	Description string
	BrandName   *string
}

// DetailDocument is a successfully fetched detail ready to persist. The
// summary fields are used only when the item does not exist yet.
type DetailDocument struct {
	DataType    string
	Description string
	BrandName   *string
	Body        json.RawMessage
}

// FailureOutcome is the result of recording a failed detail fetch.
type FailureOutcome int

const (
	// FailureRecorded means the error counter of the item was incremented.
	FailureRecorded FailureOutcome = iota + 1
	// FailureNotFound means no item matched, so nothing was incremented.
	FailureNotFound
)

func (o FailureOutcome) String() string {
	switch o {
	case FailureRecorded:
		return "recorded"
	case FailureNotFound:
		return "not_found"
	}
	return "unknown"
}

// DataTypeStats summarizes the store for one data type.
type DataTypeStats struct {
	DataType  string `json:"data_type"`
	Total     int64  `json:"total"`
	Fetched   int64  `json:"fetched"`
	Missing   int64  `json:"missing"`
	Exhausted int64  `json:"exhausted"`
}
