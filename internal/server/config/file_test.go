package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func Test_parseFile(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	t.Run("json", func(t *testing.T) {
		path := writeTempFile(t, "cfg.json", `{
			"endpoint_addr_http": "www.example:9000",
			"endpoint_addr_grpc": ":6000",
			"database_dsn": "postgres://db",
			"secret_key": "my_secret_key",
			"session_validity_duration": "48h",
			"admin_token_validity_duration": "90s",
			"redis_addr": "redis:6379",
			"login_max_attempts": 3,
			"s3_bucket": "bucket",
			"run_migrations": false
		}`)
		os.Args = []string{"testbin", "-config", path}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseFile(cfg)

		assert.Equal(t, "www.example:9000", cfg.EndpointAddrHTTP)
		assert.Equal(t, ":6000", cfg.EndpointAddrGRPC)
		assert.Equal(t, "postgres://db", cfg.DatabaseDSN)
		assert.Equal(t, "my_secret_key", cfg.SecretKey)
		assert.Equal(t, 48*time.Hour, cfg.SessionValidityDuration)
		assert.Equal(t, 90*time.Second, cfg.AdminTokenValidityDuration)
		assert.Equal(t, "redis:6379", cfg.RedisAddr)
		assert.Equal(t, 3, cfg.LoginMaxAttempts)
		assert.Equal(t, "bucket", cfg.S3Bucket)
		assert.False(t, cfg.RunMigrations)

		// untouched keys keep their defaults
		assert.Equal(t, 15*time.Minute, cfg.LoginAttemptWindow)
		assert.Equal(t, "us-east-1", cfg.S3Region)
	})

	t.Run("yaml", func(t *testing.T) {
		path := writeTempFile(t, "cfg.yml", "redis_addr: cache:6379\nvalidation_cache_ttl: 5s\nlogin_attempt_window: 10m\n")
		os.Args = []string{"testbin", "-c", path}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseFile(cfg)

		assert.Equal(t, "cache:6379", cfg.RedisAddr)
		assert.Equal(t, 5*time.Second, cfg.ValidationCacheTTL)
		assert.Equal(t, 10*time.Minute, cfg.LoginAttemptWindow)
	})

	t.Run("no file flag", func(t *testing.T) {
		os.Args = []string{"testbin"}
		cfg := &Config{SecretKey: "keep"}
		parseFile(cfg)
		assert.Equal(t, "keep", cfg.SecretKey)
	})

	t.Run("missing file panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", filepath.Join(t.TempDir(), "nope.json")}
		assert.Panics(t, func() { parseFile(&Config{}) })
	})

	t.Run("malformed json panics", func(t *testing.T) {
		path := writeTempFile(t, "bad.json", `{"secret_key": `)
		os.Args = []string{"testbin", "-c", path}
		assert.Panics(t, func() { parseFile(&Config{}) })
	})

	t.Run("bad duration panics", func(t *testing.T) {
		path := writeTempFile(t, "bad.yaml", "validation_cache_ttl: soon\n")
		os.Args = []string{"testbin", "-c", path}
		assert.Panics(t, func() { parseFile(&Config{}) })
	})
}
