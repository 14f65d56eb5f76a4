// Package logging provides structured logging for catcher.
//
// This package wraps Go's log/slog to provide JSON-formatted logs with
// context propagation support for debugging and post-hoc analysis. Watch
// sessions run unattended for hours, so the log file is the primary record
// of which rules fired, which lines were dropped, and why.
//
// # Features
//
//   - JSON-formatted structured logging via slog
//   - Configurable log levels (DEBUG, INFO, WARN, ERROR)
//   - Context propagation (session, component, rule)
//   - Log rotation with configurable size limits
//   - Optional gzip compression for rotated logs
//   - Log reading and filtering utilities for the `catcher logs` command
//   - Export to JSON, text, or CSV formats
//
// # Thread Safety
//
// All types in this package are safe for concurrent use. The [Logger] type
// uses Go's slog internally which is designed for concurrent access. The
// [RotatingWriter] type uses a mutex to protect file operations during
// rotation. Child loggers created via With* methods share the underlying
// writer safely.
//
// # Basic Usage
//
// Create a logger for a log directory:
//
//	logger, err := logging.NewLogger("/home/user/.catcher/logs", "INFO")
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	// Log messages at various levels
//	logger.Debug("detailed info", "key", "value")
//	logger.Info("operation completed", "duration_ms", 150)
//	logger.Warn("potential issue", "threshold", 100)
//	logger.Error("operation failed", "error", err.Error())
//
// # Context Propagation
//
// Create child loggers with persistent context attributes:
//
//	// Add session context
//	sessionLogger := logger.WithSession("build")
//
//	// Add component context
//	watcherLogger := sessionLogger.WithComponent("watcher")
//
//	// Add rule context
//	ruleLogger := watcherLogger.WithRule("Connection refused")
//
//	// All logs from ruleLogger will include session, component, and rule
//	ruleLogger.Info("action dispatched", "seq", 812)
//
// Output:
//
//	{"time":"...","level":"INFO","msg":"action dispatched","session":"build","component":"watcher","rule":"Connection refused","seq":812}
//
// # Log Rotation
//
// For long-running watch sessions, use log rotation to prevent unbounded
// growth:
//
//	config := logging.RotationConfig{
//	    MaxSizeMB:  10,    // Rotate when file exceeds 10MB
//	    MaxBackups: 3,     // Keep 3 backup files
//	    Compress:   true,  // Gzip compress rotated files
//	}
//
//	logger, err := logging.NewLoggerWithRotation("/home/user/.catcher/logs", "INFO", config)
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
// Rotated files are named: catcher.log.1, catcher.log.2, etc., where .1 is
// the most recent backup. When compression is enabled, rotated files become
// catcher.log.1.gz, etc.
//
// # Testing
//
// For testing, use [NopLogger] to discard all log output:
//
//	func TestSomething(t *testing.T) {
//	    logger := logging.NopLogger()
//	    // Use logger in tests without creating files
//	}
//
// # Reading and Filtering Logs
//
// Read and analyze logs after a session:
//
//	// Load all entries from the log file
//	entries, err := logging.ReadLog("/home/user/.catcher/logs/catcher.log")
//	if err != nil {
//	    return err
//	}
//
//	// Filter entries by various criteria
//	filter := logging.LogFilter{
//	    Level:     "WARN",                        // Minimum level
//	    Session:   "build",                       // Specific session
//	    Rule:      "Connection refused",          // Specific rule
//	    StartTime: time.Now().Add(-1 * time.Hour), // Last hour
//	}
//	filtered := logging.FilterEntries(entries, filter)
//
//	// Export to various formats
//	logging.ExportEntries(filtered, "errors.json", "json")
//	logging.ExportEntries(filtered, "errors.txt", "text")
//	logging.ExportEntries(filtered, "errors.csv", "csv")
//
// # Log Levels
//
// The package defines four log levels:
//
//   - [LevelDebug]: Detailed information for debugging
//   - [LevelInfo]: General operational information (default)
//   - [LevelWarn]: Warning conditions that may need attention
//   - [LevelError]: Error conditions that affect functionality
//
// Use [ValidLevels] to get the list of valid level strings, and [ParseLevel]
// to normalize user-provided level strings.
//
// # Configuration
//
// The logging system is typically configured via catcher's config file:
//
//	log:
//	  level: info
//	  max_size_mb: 10
//	  max_backups: 3
//	  compress: false
//
// See the config package for validation of these settings.
package logging
