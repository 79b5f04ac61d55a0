// Package errors provides structured error handling for uplink.
// Errors carry a machine-readable code, the user-facing message shown in the
// UI, and optional target, operation and cause information.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents different types of errors that can occur.
type ErrorCode string

const (
	// General errors.
	CodeUnknown       ErrorCode = "UNKNOWN"
	CodeValidation    ErrorCode = "VALIDATION"
	CodeConfiguration ErrorCode = "CONFIGURATION"
	CodeTimeout       ErrorCode = "TIMEOUT"
	CodeCanceled      ErrorCode = "CANCELED"
	CodePermission    ErrorCode = "PERMISSION"
	CodeNotFound      ErrorCode = "NOT_FOUND"
	CodeConflict      ErrorCode = "CONFLICT"

	// Scan lifecycle errors.
	CodeScanInProgress ErrorCode = "SCAN_IN_PROGRESS"
	CodeBinaryNotFound ErrorCode = "BINARY_NOT_FOUND"
	CodeScanFailed     ErrorCode = "SCAN_FAILED"
	CodeTargetInvalid  ErrorCode = "TARGET_INVALID"
	CodeNoScanData     ErrorCode = "NO_SCAN_DATA"
	CodeParseFailed    ErrorCode = "PARSE_FAILED"
	CodeFollowupFailed ErrorCode = "FOLLOWUP_FAILED"

	// History errors.
	CodeDatabaseConnection ErrorCode = "DATABASE_CONNECTION"
	CodeDatabaseQuery      ErrorCode = "DATABASE_QUERY"
	CodeDatabaseMigration  ErrorCode = "DATABASE_MIGRATION"

	// File system errors.
	CodeFileWrite       ErrorCode = "FILE_WRITE"
	CodeDirectoryCreate ErrorCode = "DIRECTORY_CREATE"

	// Service errors.
	CodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	CodeRateLimited        ErrorCode = "RATE_LIMITED"
)

// UplinkError is the error type returned by scan, report and follow-up operations.
type UplinkError struct {
	Code      ErrorCode
	Message   string
	Target    string
	Operation string
	Cause     error
	Context   map[string]interface{}
}

// Error implements the error interface.
func (e *UplinkError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Target != "" {
		msg = fmt.Sprintf("%s (target: %s)", msg, e.Target)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying error for error unwrapping.
func (e *UplinkError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error.
func (e *UplinkError) WithContext(key string, value interface{}) *UplinkError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithOperation records the operation that failed.
func (e *UplinkError) WithOperation(op string) *UplinkError {
	e.Operation = op
	return e
}

// New creates a new error with the specified code and message.
func New(code ErrorCode, message string) *UplinkError {
	return &UplinkError{
		Code:    code,
		Message: message,
		Context: make(map[string]interface{}),
	}
}

// NewWithTarget creates an error for a specific target.
func NewWithTarget(code ErrorCode, message, target string) *UplinkError {
	e := New(code, message)
	e.Target = target
	return e
}

// Wrap wraps an existing error.
func Wrap(code ErrorCode, message string, err error) *UplinkError {
	e := New(code, message)
	e.Cause = err
	return e
}

// WrapWithTarget wraps an error with target information.
func WrapWithTarget(code ErrorCode, message, target string, err error) *UplinkError {
	e := Wrap(code, message, err)
	e.Target = target
	return e
}

// ConfigError represents configuration-related errors.
type ConfigError struct {
	Code    ErrorCode
	Message string
	Field   string
	Value   interface{}
	Cause   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// NewConfigFieldError creates a configuration error for a specific field.
func NewConfigFieldError(code ErrorCode, message, field string, value interface{}) *ConfigError {
	return &ConfigError{
		Code:    code,
		Message: message,
		Field:   field,
		Value:   value,
	}
}

// WrapConfigError wraps an existing error as a configuration error.
func WrapConfigError(code ErrorCode, message string, err error) *ConfigError {
	return &ConfigError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// GetCode extracts the error code from anywhere in the error chain.
func GetCode(err error) ErrorCode {
	var ue *UplinkError
	if stderrors.As(err, &ue) {
		return ue.Code
	}
	var ce *ConfigError
	if stderrors.As(err, &ce) {
		return ce.Code
	}
	return CodeUnknown
}

// IsCode checks if an error has a specific error code.
func IsCode(err error, code ErrorCode) bool {
	return err != nil && GetCode(err) == code
}

// UserMessage returns the text meant for the operator.
// Errors without a structured message fall back to err.Error().
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var ue *UplinkError
	if stderrors.As(err, &ue) {
		return ue.Message
	}
	var ce *ConfigError
	if stderrors.As(err, &ce) {
		return ce.Message
	}
	return err.Error()
}

// IsRetryable determines if an error indicates a retryable condition.
func IsRetryable(err error) bool {
	switch GetCode(err) {
	case CodeTimeout, CodeServiceUnavailable, CodeDatabaseConnection:
		return true
	default:
		return false
	}
}

// IsFatal determines if an error indicates a condition that should stop execution.
func IsFatal(err error) bool {
	switch GetCode(err) {
	case CodePermission, CodeConfiguration, CodeDatabaseMigration:
		return true
	default:
		return false
	}
}

// Operator-facing messages.
const (
	MsgTargetRequired  = "Please enter a target IP address."
	MsgScanInProgress  = "A scan is already in progress."
	MsgNmapNotFound    = "Error: Nmap not found. Please ensure it is installed and in your system's PATH."
	MsgCommandNotFound = "Error: Command not found. Please ensure it is installed and in your system's PATH."
	MsgNoScanData      = "There is no scan data to save. Please run a scan first."
	MsgNoResults       = "No scan results available."
	MsgVisualizerOpen  = "The visualizer window is already open."
)

// ErrTargetRequired is returned when the target field is blank.
func ErrTargetRequired() *UplinkError {
	return New(CodeTargetInvalid, MsgTargetRequired)
}

// ErrScanInProgress is returned when a second scan is started.
func ErrScanInProgress(target string) *UplinkError {
	return NewWithTarget(CodeScanInProgress, MsgScanInProgress, target)
}

// ErrNmapNotFound is returned when the nmap binary cannot be executed.
func ErrNmapNotFound(err error) *UplinkError {
	return Wrap(CodeBinaryNotFound, MsgNmapNotFound, err)
}

// ErrCommandNotFound is returned when a follow-up utility is missing.
func ErrCommandNotFound(command string, err error) *UplinkError {
	return Wrap(CodeBinaryNotFound, MsgCommandNotFound, err).WithContext("command", command)
}

// ErrNoScanData is returned when an action needs XML that does not exist yet.
func ErrNoScanData() *UplinkError {
	return New(CodeNoScanData, MsgNoScanData)
}

// ErrNoResults is returned when a follow-up has no host to act on.
func ErrNoResults() *UplinkError {
	return New(CodeNoScanData, MsgNoResults)
}

// ErrVisualizerOpen is returned when a second visualizer is requested.
func ErrVisualizerOpen() *UplinkError {
	return New(CodeConflict, MsgVisualizerOpen)
}

// ErrConfigInvalid creates an error for invalid configuration.
func ErrConfigInvalid(field string, value interface{}) *ConfigError {
	return NewConfigFieldError(CodeValidation, "Invalid configuration value", field, value)
}
