// Package config loads runtime configuration for the field capture client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the ingest server
//	-t string   device bearer token
//	-d string   data directory for the queue database and blobs
//	-q int      local storage quota in bytes (0 = unlimited)
//	-i int      online status check interval (seconds)
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals and timeouts, so values
// can be either strings like "3s" or integer nanoseconds:
//
//	{
//	  "server_endpoint_addr": "https://ingest.example.com",
//	  "device_token": "eyJhb...",
//	  "data_dir": "/var/lib/fieldsync",
//	  "quota_bytes": 2147483648,
//	  "online_check_interval": "3s",
//	  "upload_concurrency": 3,
//	  "retry_backoff_base": "5s",
//	  "retry_backoff_max": "5m"
//	}
//
// Scheduler tuning (upload_concurrency, slow_upload_concurrency,
// max_auto_retries, retry backoff, per-phase timeouts) is JSON-only; the
// short flags cover the values an inspector actually changes per run.
//
// Note: This package does not read environment variables directly; use the
// JSON file or flags to configure values.
package config
