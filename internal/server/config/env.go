package config

import (
	"time"

	"github.com/dmitrijs2005/dentdocs/internal/envx"
)

// parseEnv overlays DENTDOCS_* variables, loading .env first if present.
// Malformed durations panic, like malformed files and flags.
func parseEnv(config *Config) {
	if err := envx.LoadDotEnv(); err != nil {
		panic(err)
	}

	envx.String(&config.EndpointAddrGRPC, "GRPC_ADDR")
	envx.String(&config.EndpointAddrHTTP, "HTTP_ADDR")
	envx.String(&config.DatabaseDSN, "DATABASE_DSN")
	envx.String(&config.SecretKey, "SECRET_KEY")
	envx.String(&config.S3RootUser, "S3_ROOT_USER")
	envx.String(&config.S3RootPassword, "S3_ROOT_PASSWORD")
	envx.String(&config.S3Bucket, "S3_BUCKET")
	envx.String(&config.S3Region, "S3_REGION")
	envx.String(&config.S3BaseEndpoint, "S3_BASE_ENDPOINT")
	envx.String(&config.LogLevel, "LOG_LEVEL")

	for name, dst := range map[string]*time.Duration{
		"ACCESS_TOKEN_VALIDITY": &config.AccessTokenValidityDuration,
		"PRESIGN_TTL":           &config.PresignTTL,
		"PENDING_TTL":           &config.PendingTTL,
	} {
		if err := envx.Duration(dst, name); err != nil {
			panic(err)
		}
	}
}
