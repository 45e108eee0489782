// Package config loads runtime configuration for dentctl.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or --config.
//  3. DENTDOCS_* environment variables (a .env file is loaded first when present).
//  4. Command-line flags bound with (*Config).BindFlags.
//
// # JSON schema
//
// Durations may be strings like "30s" or integer nanoseconds:
//
//	{
//	  "transport": "grpc",
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "base_url": "http://127.0.0.1:8080",
//	  "access_token": "…",
//	  "reserve_timeout": "15s",
//	  "transfer_timeout": "10m",
//	  "confirm_timeout": "30s",
//	  "journal_path": "/home/me/.config/dentdocs/journal.db",
//	  "metrics_textfile": "",
//	  "log_level": "warn"
//	}
package config
