package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const envPrefix = "TOWNSQUARE_"

// parseEnv overlays TOWNSQUARE_* variables. Durations use Go syntax ("15m").
// A malformed value panics, like a malformed config file.
func parseEnv(config *Config) {
	envString("HTTP_ADDR", &config.EndpointAddrHTTP)
	envString("GRPC_ADDR", &config.EndpointAddrGRPC)
	envString("DATABASE_DSN", &config.DatabaseDSN)
	envString("SECRET_KEY", &config.SecretKey)
	envDuration("SESSION_VALIDITY", &config.SessionValidityDuration)
	envDuration("ADMIN_TOKEN_VALIDITY", &config.AdminTokenValidityDuration)
	envString("REDIS_ADDR", &config.RedisAddr)
	envString("REDIS_PASSWORD", &config.RedisPassword)
	envInt("REDIS_DB", &config.RedisDB)
	envDuration("VALIDATION_CACHE_TTL", &config.ValidationCacheTTL)
	envInt("LOGIN_MAX_ATTEMPTS", &config.LoginMaxAttempts)
	envDuration("LOGIN_ATTEMPT_WINDOW", &config.LoginAttemptWindow)
	envString("S3_ROOT_USER", &config.S3RootUser)
	envString("S3_ROOT_PASSWORD", &config.S3RootPassword)
	envString("S3_BUCKET", &config.S3Bucket)
	envString("S3_REGION", &config.S3Region)
	envString("S3_BASE_ENDPOINT", &config.S3BaseEndpoint)
	envString("S3_PUBLIC_BASE_URL", &config.S3PublicBaseURL)
	envString("LOG_LEVEL", &config.LogLevel)
	envDuration("HTTP_READ_TIMEOUT", &config.HTTPReadTimeout)
	envDuration("HTTP_WRITE_TIMEOUT", &config.HTTPWriteTimeout)
	envDuration("SHUTDOWN_TIMEOUT", &config.ShutdownTimeout)
	envBool("RUN_MIGRATIONS", &config.RunMigrations)
}

func envString(name string, dst *string) {
	if v, ok := os.LookupEnv(envPrefix + name); ok {
		*dst = v
	}
}

func envInt(name string, dst *int) {
	if v, ok := os.LookupEnv(envPrefix + name); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			panic(fmt.Errorf("%s%s: %w", envPrefix, name, err))
		}
		*dst = n
	}
}

func envBool(name string, dst *bool) {
	if v, ok := os.LookupEnv(envPrefix + name); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			panic(fmt.Errorf("%s%s: %w", envPrefix, name, err))
		}
		*dst = b
	}
}

func envDuration(name string, dst *time.Duration) {
	if v, ok := os.LookupEnv(envPrefix + name); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			panic(fmt.Errorf("%s%s: %w", envPrefix, name, err))
		}
		*dst = d
	}
}
