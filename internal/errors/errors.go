// Package errors provides centralized error definitions and error handling utilities
// for the catcher codebase. It defines domain-specific errors, semantic error types,
// error constructors with context wrapping, and error classification helpers.
//
// # Error Types
//
// The package provides two categories of errors:
//
// Domain-specific errors represent errors from specific subsystems:
//   - ConfigError: errors loading or parsing rule configuration
//   - StreamError: errors reading the monitored output stream
//   - DispatchError: errors launching or completing a rule's action
//
// Semantic errors represent common error conditions:
//   - ValidationError: invalid input or state
//   - TimeoutError: operation timed out
//
// # Usage
//
// Creating errors:
//
//	// Domain-specific error
//	err := errors.NewConfigError("failed to read rules", baseErr).WithPath(path)
//
//	// Semantic error
//	err := errors.NewValidationError("pattern cannot be empty").WithField("pattern")
//
// Checking errors:
//
//	// Check for specific sentinel errors
//	if errors.Is(err, errors.ErrStreamClosed) { ... }
//
//	// Check for error types
//	var cfgErr *errors.ConfigError
//	if errors.As(err, &cfgErr) { ... }
//
//	// Use classification helpers
//	if errors.IsRetryable(err) { ... }
//	if errors.IsUserFacing(err) { ... }
//
// # Error Classification
//
// Errors can be classified by severity and behavior:
//   - Retryable: transient errors that may succeed on retry
//   - UserFacing: errors safe to display to users (vs internal errors)
//   - Severity: Debug, Info, Warning, Error, Critical
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Configuration-related sentinel errors
var (
	// ErrRulesFileNotFound indicates that the rules file does not exist.
	ErrRulesFileNotFound = New("rules file not found")
	// ErrNoRuleKey indicates that the rules document has no recognized top-level key.
	ErrNoRuleKey = New("no rules key in configuration")
	// ErrEmptyPattern indicates that a rule has a missing or empty pattern.
	ErrEmptyPattern = New("rule pattern is empty")
)

// Stream-related sentinel errors
var (
	// ErrStreamClosed indicates that the monitored output stream has ended.
	ErrStreamClosed = New("output stream closed")
	// ErrSourceStarted indicates that a stream source was started twice.
	ErrSourceStarted = New("stream source already started")
	// ErrWatcherStopped indicates that the watcher has reached its terminal state.
	ErrWatcherStopped = New("watcher is stopped")
	// ErrWatcherStarted indicates that a watcher was started twice.
	ErrWatcherStarted = New("watcher already started")
)

// Dispatch-related sentinel errors
var (
	// ErrRuleBusy indicates that a rule already has a running action.
	ErrRuleBusy = New("rule action already running")
	// ErrLoopSuppressed indicates that a firing was suppressed by the loop guard.
	ErrLoopSuppressed = New("firing suppressed by loop guard")
	// ErrDispatcherStopped indicates that the dispatcher is no longer accepting work.
	ErrDispatcherStopped = New("dispatcher stopped")
)

// Session-related sentinel errors
var (
	// ErrSessionActive indicates that a session is already being watched by
	// another process.
	ErrSessionActive = New("session is already being watched")
)

// General sentinel errors
var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrCanceled indicates that an operation was canceled.
	ErrCanceled = New("operation canceled")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// CatcherError is the base interface for all catcher errors.
// It extends the standard error interface with additional methods for
// error handling and classification.
type CatcherError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Is reports whether this error matches the target error.
	// This is used by errors.Is() for error comparison.
	Is(target error) bool

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the error is transient and the operation
	// may succeed on retry.
	IsRetryable() bool

	// IsUserFacing returns true if the error message is safe to display
	// to end users.
	IsUserFacing() bool
}

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	retryable  bool
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// ConfigError represents errors loading or parsing rule configuration.
// Configuration errors are recovered locally by retaining the last valid
// rule set; they are diagnostics, never fatal to the watch loop.
//
// Example:
//
//	err := errors.NewConfigError("failed to parse rules", baseErr)
//	err = err.WithPath("/home/me/.catcher/rules.json")
type ConfigError struct {
	baseError
	Path string
}

// NewConfigError creates a new ConfigError.
func NewConfigError(message string, cause error) *ConfigError {
	return &ConfigError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithPath adds the configuration file path to the error context.
func (e *ConfigError) WithPath(path string) *ConfigError {
	e.Path = path
	return e
}

// WithSeverity sets the error severity.
func (e *ConfigError) WithSeverity(s Severity) *ConfigError {
	e.severity = s
	return e
}

// Error returns the formatted error message.
func (e *ConfigError) Error() string {
	prefix := "config error"
	if e.Path != "" {
		prefix = fmt.Sprintf("config error [path=%s]", e.Path)
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ConfigError) Is(target error) bool {
	if _, ok := target.(*ConfigError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// StreamError represents errors reading the monitored output stream.
// A stream error terminates the watcher for that session; it is surfaced
// upward and not retried automatically.
//
// Example:
//
//	err := errors.NewStreamError("stream read failed", errors.ErrStreamClosed)
//	err = err.WithSession("default").WithSeq(1042)
type StreamError struct {
	baseError
	Session string
	Seq     uint64
}

// NewStreamError creates a new StreamError.
func NewStreamError(message string, cause error) *StreamError {
	return &StreamError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithSession adds the watch session name to the error context.
func (e *StreamError) WithSession(session string) *StreamError {
	e.Session = session
	return e
}

// WithSeq adds the last observed line sequence number to the error context.
func (e *StreamError) WithSeq(seq uint64) *StreamError {
	e.Seq = seq
	return e
}

// WithSeverity sets the error severity.
func (e *StreamError) WithSeverity(s Severity) *StreamError {
	e.severity = s
	return e
}

// Error returns the formatted error message.
func (e *StreamError) Error() string {
	var parts []string
	if e.Session != "" {
		parts = append(parts, fmt.Sprintf("session=%s", e.Session))
	}
	if e.Seq > 0 {
		parts = append(parts, fmt.Sprintf("seq=%d", e.Seq))
	}

	prefix := "stream error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("stream error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *StreamError) Is(target error) bool {
	if _, ok := target.(*StreamError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// DispatchError represents errors launching or completing a rule's action.
// Dispatch errors are recorded on the affected firing and never halt the
// watch loop.
//
// Example:
//
//	err := errors.NewDispatchError("action exited non-zero", cause)
//	err = err.WithRule("Connection refused", "retry.sh").WithExitCode(1)
type DispatchError struct {
	baseError
	Pattern  string
	Action   string
	ExitCode int
}

// NewDispatchError creates a new DispatchError.
func NewDispatchError(message string, cause error) *DispatchError {
	return &DispatchError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
		ExitCode: -1, // -1 indicates not set
	}
}

// WithRule adds the firing rule's pattern and action to the error context.
func (e *DispatchError) WithRule(pattern, action string) *DispatchError {
	e.Pattern = pattern
	e.Action = action
	return e
}

// WithExitCode adds the action's exit code to the error context.
func (e *DispatchError) WithExitCode(code int) *DispatchError {
	e.ExitCode = code
	return e
}

// WithSeverity sets the error severity.
func (e *DispatchError) WithSeverity(s Severity) *DispatchError {
	e.severity = s
	return e
}

// WithRetryable sets whether the error is retryable.
func (e *DispatchError) WithRetryable(r bool) *DispatchError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *DispatchError) Error() string {
	var parts []string
	if e.Pattern != "" {
		parts = append(parts, fmt.Sprintf("pattern=%q", e.Pattern))
	}
	if e.Action != "" {
		parts = append(parts, fmt.Sprintf("action=%q", e.Action))
	}
	if e.ExitCode >= 0 {
		parts = append(parts, fmt.Sprintf("exit=%d", e.ExitCode))
	}

	prefix := "dispatch error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("dispatch error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *DispatchError) Is(target error) bool {
	if _, ok := target.(*DispatchError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// ValidationError represents invalid input or state.
//
// Example:
//
//	err := errors.NewValidationError("pattern cannot be empty")
//	err = err.WithField("pattern").WithValue("")
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	var parts []string
	if e.Field != "" {
		parts = append(parts, fmt.Sprintf("field=%s", e.Field))
	}
	if e.Value != nil {
		parts = append(parts, fmt.Sprintf("value=%v", e.Value))
	}

	prefix := "validation error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("validation error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if errors.Is(target, ErrInvalidInput) {
		return true
	}
	return e.baseError.Is(target)
}

// TimeoutError represents an operation that timed out.
//
// Example:
//
//	err := errors.NewTimeoutError("waiting for action to finish", 30*time.Second)
//	fmt.Println(err) // "timeout error: waiting for action to finish (timeout: 30s)"
type TimeoutError struct {
	baseError
	Operation string
	Duration  time.Duration
}

// NewTimeoutError creates a new TimeoutError.
func NewTimeoutError(operation string, duration time.Duration) *TimeoutError {
	return &TimeoutError{
		baseError: baseError{
			message:    operation,
			severity:   SeverityWarning,
			retryable:  true, // Timeouts are generally retryable
			userFacing: true,
		},
		Operation: operation,
		Duration:  duration,
	}
}

// WithCause adds a cause to the error.
func (e *TimeoutError) WithCause(cause error) *TimeoutError {
	e.cause = cause
	return e
}

// WithRetryable sets whether the error is retryable (default true for timeouts).
func (e *TimeoutError) WithRetryable(r bool) *TimeoutError {
	e.retryable = r
	return e
}

// Error returns the formatted error message.
func (e *TimeoutError) Error() string {
	base := fmt.Sprintf("timeout error: %s (timeout: %s)", e.Operation, e.Duration)
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", base, e.cause)
	}
	return base
}

// Is checks if this error matches the target.
func (e *TimeoutError) Is(target error) bool {
	if _, ok := target.(*TimeoutError); ok {
		return true
	}
	if errors.Is(target, ErrTimeout) {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry. This checks for:
//   - Errors implementing CatcherError with IsRetryable() returning true
//   - TimeoutError instances
//   - Errors wrapping ErrTimeout
//
// Example:
//
//	if errors.IsRetryable(err) {
//	    time.Sleep(backoff)
//	    return retry(operation)
//	}
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	// Check if error implements CatcherError
	var catcherErr CatcherError
	if As(err, &catcherErr) {
		return catcherErr.IsRetryable()
	}

	// Check for known retryable sentinel errors
	if Is(err, ErrTimeout) {
		return true
	}

	return false
}

// IsUserFacing returns true if the error message is safe to display to end users.
// This checks for:
//   - Errors implementing CatcherError with IsUserFacing() returning true
//   - Semantic errors (ValidationError, TimeoutError)
//
// Example:
//
//	if errors.IsUserFacing(err) {
//	    displayToUser(err.Error())
//	} else {
//	    displayToUser("An internal error occurred")
//	    log.Error("internal error", "err", err)
//	}
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}

	// Check if error implements CatcherError
	var catcherErr CatcherError
	if As(err, &catcherErr) {
		return catcherErr.IsUserFacing()
	}

	// Semantic errors are always user-facing
	var validation *ValidationError
	var timeout *TimeoutError

	if As(err, &validation) || As(err, &timeout) {
		return true
	}

	return false
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement CatcherError.
//
// Example:
//
//	switch errors.GetSeverity(err) {
//	case errors.SeverityCritical:
//	    alertOperator(err)
//	case errors.SeverityError:
//	    log.Error("error occurred", "err", err)
//	case errors.SeverityWarning:
//	    log.Warn("warning", "err", err)
//	}
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	// Check if error implements CatcherError
	var catcherErr CatcherError
	if As(err, &catcherErr) {
		return catcherErr.Severity()
	}

	// Default to Error severity for unknown errors
	return SeverityError
}

// IsDomainError returns true if the error is a domain-specific error
// (ConfigError, StreamError, or DispatchError).
func IsDomainError(err error) bool {
	if err == nil {
		return false
	}

	var cfgErr *ConfigError
	var streamErr *StreamError
	var dispatchErr *DispatchError

	return As(err, &cfgErr) || As(err, &streamErr) || As(err, &dispatchErr)
}

// IsSemanticError returns true if the error is a semantic error
// (ValidationError or TimeoutError).
func IsSemanticError(err error) bool {
	if err == nil {
		return false
	}

	var validation *ValidationError
	var timeout *TimeoutError

	return As(err, &validation) || As(err, &timeout)
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
//
// Example:
//
//	err := errors.Wrap(baseErr, "failed to process line")
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
//
// Example:
//
//	err := errors.Wrapf(baseErr, "failed to load rules from %s", path)
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
