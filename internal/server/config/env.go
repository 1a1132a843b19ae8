package config

import (
	"os"
	"strconv"
	"time"
)

// parseEnv overlays Config fields from environment variables. Duration
// variables accept time.ParseDuration syntax ("15m", "168h").
func parseEnv(config *Config) {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	setDuration := func(key string, dst *time.Duration) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			}
		}
	}

	setString("HTTP_ADDR", &config.HTTPAddr)
	setString("DATABASE_DSN", &config.DatabaseDSN)
	setString("ACCESS_TOKEN_SECRET", &config.AccessTokenSecret)
	setString("REFRESH_TOKEN_SECRET", &config.RefreshTokenSecret)
	setDuration("ACCESS_TOKEN_EXPIRY", &config.AccessTokenValidityDuration)
	setDuration("REFRESH_TOKEN_EXPIRY", &config.RefreshTokenValidityDuration)
	setString("CLIENT_URL", &config.ClientOrigin)
	setString("SMTP_HOST", &config.SMTPHost)
	if v, ok := os.LookupEnv("SMTP_PORT"); ok && v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.SMTPPort = port
		}
	}
	setString("SMTP_USERNAME", &config.SMTPUsername)
	setString("SMTP_PASSWORD", &config.SMTPPassword)
	setString("SMTP_FROM", &config.SMTPFrom)
	setString("S3_ROOT_USER", &config.S3RootUser)
	setString("S3_ROOT_PASSWORD", &config.S3RootPassword)
	setString("S3_BUCKET", &config.S3Bucket)
	setString("S3_REGION", &config.S3Region)
	setString("S3_BASE_ENDPOINT", &config.S3BaseEndpoint)
}
