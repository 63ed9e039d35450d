// Package logging provides structured logging for the wificfg service and CLI.
//
// This package wraps a zap logger with convenience functions for the logging
// patterns used throughout the service: HTTP request/response logging,
// connection events for the websocket feed, and configuration changes.
//
// # Log Levels
//
//   - Debug: Detailed debugging info (raw driver records, skipped form fields)
//   - Info: Normal operations (requests, scans, settings changes)
//   - Warn: Non-fatal issues (scan failures, driver anomalies)
//   - Error: Failures (startup, configuration writes)
//
// # Configuration
//
// Initialize logging at startup:
//
//	if err := logging.InitializeWithOptions(logging.Options{Level: "debug", File: "/var/log/wificfg.log"}); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// When File is set, entries are also written as JSON to a size-rotated file.
// With no level and no WIFICFG_LOG_LEVEL the logger is silent, which keeps CLI
// output clean.
//
// # Secrets
//
// LogSettingChange masks passwords unless debug logging is enabled.
package logging
