// Package logging provides structured logging for the JAP control panel.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the entire application.
//
// # Features
//
//   - JSON output for production (machine-parsable)
//   - Text output for development (human-readable)
//   - Line output ("[ts] [LEVEL] message key=value") for operators
//   - File output with size/age rotation
//   - Default fields (service, version) on all log entries
//
// # Configuration
//
// Logging is configured via the LoggingConfig in config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "line"     # json, text, line
//	  output: "file"     # stdout, stderr, file
//	  file:
//	    path: "/var/log/jappanel/panel.log"
//	    max_size: 10     # megabytes
//	    max_backups: 5
//	    max_age: 30      # days
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	defer logger.Close()
//	logger.Info("starting service", "port", 8080)
//
// Never log secrets such as MQTT passwords or InfluxDB tokens.
package logging
