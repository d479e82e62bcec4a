// Package config loads runtime configuration for the workledger CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via flags: -c or -config.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string   default relay base URL
//	-d string   path of the local SQLite database
//	-p int      pull page size
//	-t int      relay request timeout (seconds)
//	-i int      background sync interval (seconds), 0 disables it
//	-l string   log format: console or json
//
// # JSON schema
//
// Durations use timex.Duration, so they can be strings like "30s" or
// integer nanoseconds. Absent keys keep their defaults.
//
//	{
//	  "server_url": "https://relay.example",
//	  "database_path": "/var/lib/workledger/ledger.db",
//	  "page_size": 200,
//	  "request_timeout": "15s",
//	  "sync_interval": "5m",
//	  "log_format": "json",
//	  "s3_bucket": "ledger-backups",
//	  "s3_region": "us-east-1",
//	  "s3_base_endpoint": "http://127.0.0.1:9000",
//	  "s3_access_key": "minioadmin",
//	  "s3_secret_key": "minioadmin",
//	  "s3_prefix": "workledger"
//	}
package config
