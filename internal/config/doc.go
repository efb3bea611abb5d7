// Package config loads runtime configuration for the Signet CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJSON) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the account service
//	-s string   websocket URL of the realtime transport
//	-d string   path of the local database file
//	-t int      request timeout (seconds)
//
// # JSON schema
//
// The JSON loader uses timex.Duration for timeouts, so values can be either
// strings like "12s" or integer nanoseconds:
//
//	{
//	  "service_url": "https://chat.example.org",
//	  "socket_url": "wss://chat.example.org/v1/websocket",
//	  "database_path": "signet.db",
//	  "request_timeout": "12s"
//	}
//
// Primary API
//
//   - type Config                     — holds service endpoints and local paths
//   - func LoadConfig() *Config       — builds Config by applying defaults, JSON, then flags
//   - func (*Config) LoadDefaults()   — sets sensible defaults
//
// Note: This package does not read environment variables directly; use the
// JSON file or flags to configure values.
package config
