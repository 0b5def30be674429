package config

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

// Flag names registered by RegisterFlags.
const (
	FlagConfig           = "config"
	FlagDatabaseDriver   = "db-driver"
	FlagDatabaseDSN      = "db-dsn"
	FlagFDCBaseURL       = "fdc-base-url"
	FlagFDCAPIKey        = "fdc-api-key"
	FlagEnabledDataTypes = "data-types"
	FlagDetailExpiryDays = "detail-expiry-days"
	FlagBatchLimit       = "batch-limit"
	FlagWorkers          = "workers"
	FlagRequestRate      = "request-rate"
	FlagRequestBurst     = "request-burst"
	FlagHTTPTimeout      = "http-timeout"
	FlagS3Bucket         = "s3-bucket"
	FlagS3Region         = "s3-region"
	FlagS3BaseEndpoint   = "s3-endpoint"
	FlagS3UsePathStyle   = "s3-path-style"
	FlagPushgatewayURL   = "pushgateway-url"
	FlagLogLevel         = "log-level"
)

// RegisterFlags defines the configuration flags on fs, showing the
// defaults in the help text.
func RegisterFlags(fs *pflag.FlagSet) {
	var d Config
	d.LoadDefaults()

	fs.StringP(FlagConfig, "c", "", "path to a JSON config file")
	fs.String(FlagDatabaseDriver, d.DatabaseDriver, "database driver (postgres|sqlite)")
	fs.StringP(FlagDatabaseDSN, "d", d.DatabaseDSN, "database DSN")
	fs.String(FlagFDCBaseURL, d.FDCBaseURL, "FoodData Central base URL")
	fs.String(FlagFDCAPIKey, d.FDCAPIKey, "default FoodData Central API key")
	fs.StringSlice(FlagEnabledDataTypes, d.EnabledDataTypes, "default enabled data types")
	fs.Int(FlagDetailExpiryDays, d.DetailExpiryDays, "default detail expiry in days")
	fs.Int(FlagBatchLimit, d.BatchLimit, "max items dispatched per backfill or refresh run")
	fs.IntP(FlagWorkers, "w", d.Workers, "number of queue workers")
	fs.Float64(FlagRequestRate, d.RequestRate, "FDC requests per second (0 disables throttling)")
	fs.Int(FlagRequestBurst, d.RequestBurst, "FDC request burst")
	fs.Duration(FlagHTTPTimeout, d.HTTPTimeout, "FDC HTTP timeout")
	fs.String(FlagS3Bucket, d.S3Bucket, "S3 bucket for detail archive (empty disables)")
	fs.String(FlagS3Region, d.S3Region, "S3 region")
	fs.String(FlagS3BaseEndpoint, d.S3BaseEndpoint, "S3 base endpoint")
	fs.Bool(FlagS3UsePathStyle, d.S3UsePathStyle, "use path-style S3 addressing")
	fs.String(FlagPushgatewayURL, d.PushgatewayURL, "Prometheus Pushgateway URL (empty disables)")
	fs.String(FlagLogLevel, d.LogLevel, "log level (debug|info|warn|error)")
}

// parseFlags copies the flags set explicitly on the command line into
// config. Flags left at their default do not override other sources.
func parseFlags(fs *pflag.FlagSet, config *Config) error {
	var err error
	fs.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case FlagDatabaseDriver:
			config.DatabaseDriver, err = fs.GetString(f.Name)
		case FlagDatabaseDSN:
			config.DatabaseDSN, err = fs.GetString(f.Name)
		case FlagFDCBaseURL:
			config.FDCBaseURL, err = fs.GetString(f.Name)
		case FlagFDCAPIKey:
			config.FDCAPIKey, err = fs.GetString(f.Name)
		case FlagEnabledDataTypes:
			config.EnabledDataTypes, err = fs.GetStringSlice(f.Name)
		case FlagDetailExpiryDays:
			config.DetailExpiryDays, err = fs.GetInt(f.Name)
		case FlagBatchLimit:
			config.BatchLimit, err = fs.GetInt(f.Name)
		case FlagWorkers:
			config.Workers, err = fs.GetInt(f.Name)
		case FlagRequestRate:
			config.RequestRate, err = fs.GetFloat64(f.Name)
		case FlagRequestBurst:
			config.RequestBurst, err = fs.GetInt(f.Name)
		case FlagHTTPTimeout:
			config.HTTPTimeout, err = fs.GetDuration(f.Name)
		case FlagS3Bucket:
			config.S3Bucket, err = fs.GetString(f.Name)
		case FlagS3Region:
			config.S3Region, err = fs.GetString(f.Name)
		case FlagS3BaseEndpoint:
			config.S3BaseEndpoint, err = fs.GetString(f.Name)
		case FlagS3UsePathStyle:
			config.S3UsePathStyle, err = fs.GetBool(f.Name)
		case FlagPushgatewayURL:
			config.PushgatewayURL, err = fs.GetString(f.Name)
		case FlagLogLevel:
			config.LogLevel, err = fs.GetString(f.Name)
		}
		if err != nil {
			err = fmt.Errorf("flag --%s: %w", f.Name, err)
		}
	})
	return err
}

// LoadConfig builds a Config from defaults, the JSON file named by
// --config, the process environment and explicitly set flags.
func LoadConfig(fs *pflag.FlagSet) (*Config, error) {
	return load(fs, os.LookupEnv)
}

func load(fs *pflag.FlagSet, lookup func(string) (string, bool)) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if path, _ := fs.GetString(FlagConfig); path != "" {
		if err := parseJson(path, cfg); err != nil {
			return nil, err
		}
	}
	applyEnv(cfg, lookup)
	if err := parseFlags(fs, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
