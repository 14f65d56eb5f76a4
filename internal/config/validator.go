package config

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "dispatch.debounce_ms")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// sessionNameRegex validates session name characters.
// Session names become lock file names and log fields, so they need to stay
// filesystem-safe: alphanumeric start, then alphanumeric, dot, underscore, hyphen.
var sessionNameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validation bounds
const (
	maxSessionNameLength = 64

	maxReloadDebounceMs = 60000 // 1 minute

	minBufferSize = 1
	maxBufferSize = 1048576

	maxDebounceMs       = 600000 // 10 minutes
	maxActionTimeoutSec = 3600   // 1 hour
	minMaxConcurrent    = 1
	maxMaxConcurrent    = 128
	maxShutdownGraceSec = 300 // 5 minutes

	minLogSizeMB  = 1
	maxLogSizeMB  = 1000
	maxLogBackups = 100
)

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate session name
	errors = append(errors, c.validateSession()...)

	// Validate Rules config
	errors = append(errors, c.validateRules()...)

	// Validate Watch config
	errors = append(errors, c.validateWatch()...)

	// Validate Dispatch config
	errors = append(errors, c.validateDispatch()...)

	// Validate Log config
	errors = append(errors, c.validateLog()...)

	// Validate shell override
	errors = append(errors, c.validateShell()...)

	return errors
}

// validateSession validates the default session name
func (c *Config) validateSession() []ValidationError {
	var errors []ValidationError

	if c.Session == "" {
		errors = append(errors, ValidationError{
			Field:   "session",
			Value:   c.Session,
			Message: "must not be empty",
		})
		return errors
	}

	if len(c.Session) > maxSessionNameLength {
		errors = append(errors, ValidationError{
			Field:   "session",
			Value:   c.Session,
			Message: fmt.Sprintf("must be at most %d characters", maxSessionNameLength),
		})
	}

	if !sessionNameRegex.MatchString(c.Session) {
		errors = append(errors, ValidationError{
			Field:   "session",
			Value:   c.Session,
			Message: "must start with a letter or digit and contain only letters, digits, dots, underscores, and hyphens",
		})
	}

	return errors
}

// validateRules validates the rules file settings
func (c *Config) validateRules() []ValidationError {
	var errors []ValidationError

	if c.Rules.ReloadDebounceMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "rules.reload_debounce_ms",
			Value:   c.Rules.ReloadDebounceMs,
			Message: "must not be negative",
		})
	} else if c.Rules.ReloadDebounceMs > maxReloadDebounceMs {
		errors = append(errors, ValidationError{
			Field:   "rules.reload_debounce_ms",
			Value:   c.Rules.ReloadDebounceMs,
			Message: fmt.Sprintf("must be at most %d", maxReloadDebounceMs),
		})
	}

	return errors
}

// validateWatch validates the stream watching settings
func (c *Config) validateWatch() []ValidationError {
	var errors []ValidationError

	if c.Watch.BufferSize < minBufferSize {
		errors = append(errors, ValidationError{
			Field:   "watch.buffer_size",
			Value:   c.Watch.BufferSize,
			Message: fmt.Sprintf("must be at least %d", minBufferSize),
		})
	} else if c.Watch.BufferSize > maxBufferSize {
		errors = append(errors, ValidationError{
			Field:   "watch.buffer_size",
			Value:   c.Watch.BufferSize,
			Message: fmt.Sprintf("must be at most %d", maxBufferSize),
		})
	}

	return errors
}

// validateDispatch validates the action dispatch settings
func (c *Config) validateDispatch() []ValidationError {
	var errors []ValidationError

	if c.Dispatch.DebounceMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "dispatch.debounce_ms",
			Value:   c.Dispatch.DebounceMs,
			Message: "must not be negative (0 disables the loop guard)",
		})
	} else if c.Dispatch.DebounceMs > maxDebounceMs {
		errors = append(errors, ValidationError{
			Field:   "dispatch.debounce_ms",
			Value:   c.Dispatch.DebounceMs,
			Message: fmt.Sprintf("must be at most %d", maxDebounceMs),
		})
	}

	if !IsValidBusyPolicy(c.Dispatch.OnBusy) {
		errors = append(errors, ValidationError{
			Field:   "dispatch.on_busy",
			Value:   c.Dispatch.OnBusy,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidBusyPolicies(), ", ")),
		})
	}

	if c.Dispatch.ActionTimeoutSec < 0 {
		errors = append(errors, ValidationError{
			Field:   "dispatch.action_timeout_sec",
			Value:   c.Dispatch.ActionTimeoutSec,
			Message: "must not be negative (0 disables the timeout)",
		})
	} else if c.Dispatch.ActionTimeoutSec > maxActionTimeoutSec {
		errors = append(errors, ValidationError{
			Field:   "dispatch.action_timeout_sec",
			Value:   c.Dispatch.ActionTimeoutSec,
			Message: fmt.Sprintf("must be at most %d", maxActionTimeoutSec),
		})
	}

	if c.Dispatch.MaxConcurrent < minMaxConcurrent {
		errors = append(errors, ValidationError{
			Field:   "dispatch.max_concurrent",
			Value:   c.Dispatch.MaxConcurrent,
			Message: fmt.Sprintf("must be at least %d", minMaxConcurrent),
		})
	} else if c.Dispatch.MaxConcurrent > maxMaxConcurrent {
		errors = append(errors, ValidationError{
			Field:   "dispatch.max_concurrent",
			Value:   c.Dispatch.MaxConcurrent,
			Message: fmt.Sprintf("must be at most %d", maxMaxConcurrent),
		})
	}

	if c.Dispatch.ShutdownGraceSec < 0 {
		errors = append(errors, ValidationError{
			Field:   "dispatch.shutdown_grace_sec",
			Value:   c.Dispatch.ShutdownGraceSec,
			Message: "must not be negative",
		})
	} else if c.Dispatch.ShutdownGraceSec > maxShutdownGraceSec {
		errors = append(errors, ValidationError{
			Field:   "dispatch.shutdown_grace_sec",
			Value:   c.Dispatch.ShutdownGraceSec,
			Message: fmt.Sprintf("must be at most %d", maxShutdownGraceSec),
		})
	}

	return errors
}

// validateLog validates the logging settings
func (c *Config) validateLog() []ValidationError {
	var errors []ValidationError

	// Levels are matched case-insensitively so "INFO" and "info" both work
	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.Log.Level)) {
		errors = append(errors, ValidationError{
			Field:   "log.level",
			Value:   c.Log.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	if c.Log.MaxSizeMB < minLogSizeMB {
		errors = append(errors, ValidationError{
			Field:   "log.max_size_mb",
			Value:   c.Log.MaxSizeMB,
			Message: fmt.Sprintf("must be at least %d", minLogSizeMB),
		})
	} else if c.Log.MaxSizeMB > maxLogSizeMB {
		errors = append(errors, ValidationError{
			Field:   "log.max_size_mb",
			Value:   c.Log.MaxSizeMB,
			Message: fmt.Sprintf("must be at most %d", maxLogSizeMB),
		})
	}

	if c.Log.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "log.max_backups",
			Value:   c.Log.MaxBackups,
			Message: "must not be negative",
		})
	} else if c.Log.MaxBackups > maxLogBackups {
		errors = append(errors, ValidationError{
			Field:   "log.max_backups",
			Value:   c.Log.MaxBackups,
			Message: fmt.Sprintf("must be at most %d", maxLogBackups),
		})
	}

	return errors
}

// validateShell validates the shell override
func (c *Config) validateShell() []ValidationError {
	var errors []ValidationError

	if c.Shell != "" && strings.TrimSpace(c.Shell) == "" {
		errors = append(errors, ValidationError{
			Field:   "shell",
			Value:   c.Shell,
			Message: "must not be only whitespace",
		})
	}

	return errors
}
