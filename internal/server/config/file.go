package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/townsquare/internal/flagx"
	"github.com/dmitrijs2005/townsquare/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of the server configuration. The same
// struct decodes JSON and YAML; durations use timex.Duration so "15m" and
// integer nanoseconds both work. Absent keys leave the current value alone.
type FileConfig struct {
	EndpointAddrHTTP           string          `json:"endpoint_addr_http" yaml:"endpoint_addr_http"`
	EndpointAddrGRPC           string          `json:"endpoint_addr_grpc" yaml:"endpoint_addr_grpc"`
	DatabaseDSN                string          `json:"database_dsn" yaml:"database_dsn"`
	SecretKey                  string          `json:"secret_key" yaml:"secret_key"`
	SessionValidityDuration    *timex.Duration `json:"session_validity_duration" yaml:"session_validity_duration"`
	AdminTokenValidityDuration *timex.Duration `json:"admin_token_validity_duration" yaml:"admin_token_validity_duration"`
	RedisAddr                  string          `json:"redis_addr" yaml:"redis_addr"`
	RedisPassword              string          `json:"redis_password" yaml:"redis_password"`
	RedisDB                    *int            `json:"redis_db" yaml:"redis_db"`
	ValidationCacheTTL         *timex.Duration `json:"validation_cache_ttl" yaml:"validation_cache_ttl"`
	LoginMaxAttempts           *int            `json:"login_max_attempts" yaml:"login_max_attempts"`
	LoginAttemptWindow         *timex.Duration `json:"login_attempt_window" yaml:"login_attempt_window"`
	S3RootUser                 string          `json:"s3_root_user" yaml:"s3_root_user"`
	S3RootPassword             string          `json:"s3_root_password" yaml:"s3_root_password"`
	S3Bucket                   string          `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region                   string          `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint             string          `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	S3PublicBaseURL            string          `json:"s3_public_base_url" yaml:"s3_public_base_url"`
	LogLevel                   string          `json:"log_level" yaml:"log_level"`
	HTTPReadTimeout            *timex.Duration `json:"http_read_timeout" yaml:"http_read_timeout"`
	HTTPWriteTimeout           *timex.Duration `json:"http_write_timeout" yaml:"http_write_timeout"`
	ShutdownTimeout            *timex.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
	RunMigrations              *bool           `json:"run_migrations" yaml:"run_migrations"`
}

// parseFile loads the file named by -c / -config, if any, and overlays it
// on config. An unreadable or malformed file panics.
func parseFile(config *Config) {
	path := flagx.ConfigFileFlag()
	if path == "" {
		return
	}
	if err := applyFile(config, path); err != nil {
		panic(err)
	}
}

// applyFile overlays the file at path on config. YAML is chosen by the
// .yaml/.yml extension, JSON otherwise.
func applyFile(config *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	c := &FileConfig{}
	if flagx.IsYAML(path) {
		err = yaml.Unmarshal(data, c)
	} else {
		err = json.Unmarshal(data, c)
	}
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	c.apply(config)
	return nil
}

func (c *FileConfig) apply(config *Config) {
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.SessionValidityDuration, c.SessionValidityDuration)
	setDuration(&config.AdminTokenValidityDuration, c.AdminTokenValidityDuration)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisPassword, c.RedisPassword)
	if c.RedisDB != nil {
		config.RedisDB = *c.RedisDB
	}
	setDuration(&config.ValidationCacheTTL, c.ValidationCacheTTL)
	if c.LoginMaxAttempts != nil {
		config.LoginMaxAttempts = *c.LoginMaxAttempts
	}
	setDuration(&config.LoginAttemptWindow, c.LoginAttemptWindow)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.S3PublicBaseURL, c.S3PublicBaseURL)
	setString(&config.LogLevel, c.LogLevel)
	setDuration(&config.HTTPReadTimeout, c.HTTPReadTimeout)
	setDuration(&config.HTTPWriteTimeout, c.HTTPWriteTimeout)
	setDuration(&config.ShutdownTimeout, c.ShutdownTimeout)
	if c.RunMigrations != nil {
		config.RunMigrations = *c.RunMigrations
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
