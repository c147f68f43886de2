// Package config loads runtime configuration for the townsquare CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON or YAML file selected with -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the auth server
//	-s string   path of the local session store
//	-i int      keep-alive refresh interval (minutes)
//
// # File schema
//
//	server_url: http://127.0.0.1:8080
//	state_path: /home/me/.townsquare/client.db
//	refresh_interval: 1h
//	activity_refresh_throttle: 5m
//	request_timeout: 10s
package config
