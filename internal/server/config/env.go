package config

// Environment variables honored by applyEnv.
const (
	EnvDatabaseDSN = "FDCSYNC_DATABASE_DSN"
	EnvAPIKey      = "FDC_API_KEY"
	EnvS3AccessKey = "FDCSYNC_S3_ACCESS_KEY"
	EnvS3SecretKey = "FDCSYNC_S3_SECRET_KEY"
)

// applyEnv overlays the secrets that are usually injected through the
// environment.
func applyEnv(config *Config, lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvDatabaseDSN); ok && v != "" {
		config.DatabaseDSN = v
	}
	if v, ok := lookup(EnvAPIKey); ok && v != "" {
		config.FDCAPIKey = v
	}
	if v, ok := lookup(EnvS3AccessKey); ok && v != "" {
		config.S3AccessKey = v
	}
	if v, ok := lookup(EnvS3SecretKey); ok && v != "" {
		config.S3SecretKey = v
	}
}
