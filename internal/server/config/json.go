package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/fdcsync/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations
// accept "30s" style strings as well as integer nanoseconds.
type JsonConfig struct {
	DatabaseDriver   string         `json:"database_driver"`
	DatabaseDSN      string         `json:"database_dsn"`
	FDCBaseURL       string         `json:"fdc_base_url"`
	FDCAPIKey        string         `json:"fdc_api_key"`
	EnabledDataTypes []string       `json:"fdc_enabled_data_types"`
	DetailExpiryDays int            `json:"fdc_detail_expiry_days"`
	BatchLimit       int            `json:"batch_limit"`
	Workers          int            `json:"workers"`
	RequestRate      float64        `json:"request_rate"`
	RequestBurst     int            `json:"request_burst"`
	HTTPTimeout      timex.Duration `json:"http_timeout"`
	S3Bucket         string         `json:"s3_bucket"`
	S3Region         string         `json:"s3_region"`
	S3AccessKey      string         `json:"s3_access_key"`
	S3SecretKey      string         `json:"s3_secret_key"`
	S3BaseEndpoint   string         `json:"s3_base_endpoint"`
	S3UsePathStyle   bool           `json:"s3_use_path_style"`
	PushgatewayURL   string         `json:"pushgateway_url"`
	LogLevel         string         `json:"log_level"`
}

// parseJson overlays the file at path onto config. Keys absent from the
// file keep their current values.
func parseJson(path string, config *Config) error {
	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := JsonConfig{
		DatabaseDriver:   config.DatabaseDriver,
		DatabaseDSN:      config.DatabaseDSN,
		FDCBaseURL:       config.FDCBaseURL,
		FDCAPIKey:        config.FDCAPIKey,
		EnabledDataTypes: config.EnabledDataTypes,
		DetailExpiryDays: config.DetailExpiryDays,
		BatchLimit:       config.BatchLimit,
		Workers:          config.Workers,
		RequestRate:      config.RequestRate,
		RequestBurst:     config.RequestBurst,
		HTTPTimeout:      timex.Duration{Duration: config.HTTPTimeout},
		S3Bucket:         config.S3Bucket,
		S3Region:         config.S3Region,
		S3AccessKey:      config.S3AccessKey,
		S3SecretKey:      config.S3SecretKey,
		S3BaseEndpoint:   config.S3BaseEndpoint,
		S3UsePathStyle:   config.S3UsePathStyle,
		PushgatewayURL:   config.PushgatewayURL,
		LogLevel:         config.LogLevel,
	}
	if err := json.Unmarshal(file, &c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	config.DatabaseDriver = c.DatabaseDriver
	config.DatabaseDSN = c.DatabaseDSN
	config.FDCBaseURL = c.FDCBaseURL
	config.FDCAPIKey = c.FDCAPIKey
	config.EnabledDataTypes = c.EnabledDataTypes
	config.DetailExpiryDays = c.DetailExpiryDays
	config.BatchLimit = c.BatchLimit
	config.Workers = c.Workers
	config.RequestRate = c.RequestRate
	config.RequestBurst = c.RequestBurst
	config.HTTPTimeout = c.HTTPTimeout.Duration
	config.S3Bucket = c.S3Bucket
	config.S3Region = c.S3Region
	config.S3AccessKey = c.S3AccessKey
	config.S3SecretKey = c.S3SecretKey
	config.S3BaseEndpoint = c.S3BaseEndpoint
	config.S3UsePathStyle = c.S3UsePathStyle
	config.PushgatewayURL = c.PushgatewayURL
	config.LogLevel = c.LogLevel
	return nil
}
