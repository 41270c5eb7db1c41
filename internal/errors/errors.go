package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// ConfigInvalid indicates a malformed config or feature definition file
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// UnknownFeature indicates a file names a feature that is not defined
	UnknownFeature ErrorCode = "UNKNOWN_FEATURE"
	// Consistency indicates unassigned files, duplicate assignments or overlapping globs
	Consistency ErrorCode = "CONSISTENCY"
	// ExternalUnavailable indicates an external collaborator could not be reached
	ExternalUnavailable ErrorCode = "EXTERNAL_UNAVAILABLE"
	// ExternalBadResponse indicates an external collaborator answered with unusable data
	ExternalBadResponse ErrorCode = "EXTERNAL_BAD_RESPONSE"
	// SnapshotStale indicates the persisted snapshot differs from the computed one
	SnapshotStale ErrorCode = "SNAPSHOT_STALE"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// EditFile suggests editing a file by hand
	EditFile FixActionType = "edit-file"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Path        string        `json:"path,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
}

// Error represents a featuremap error with code, message, and suggestions
type Error struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error
}

// New creates a new Error carrying the default suggested fixes for its code
func New(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: GetSuggestedFixes(code),
	}
}

// Newf creates a new Error with a formatted message and no cause
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// IsTransient reports whether the failure came from the environment rather
// than from the repository's own configuration.
func (e *Error) IsTransient() bool {
	return e.Code == ExternalUnavailable || e.Code == ExternalBadResponse
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) ErrorCode {
	var fe *Error
	if stderrors.As(err, &fe) {
		return fe.Code
	}
	return ""
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	SnapshotStale: {
		{
			Type:        RunCommand,
			Command:     "featuremap validate --autocorrect",
			Safe:        true,
			Description: "Regenerate .feature_map/assignments.yml",
		},
	},
	UnknownFeature: {
		{
			Type:        RunCommand,
			Command:     "featuremap new-feature <name>",
			Safe:        true,
			Description: "Define the missing feature",
		},
	},
	ConfigInvalid: {
		{
			Type:        EditFile,
			Path:        ".feature_map/config.yml",
			Description: "Fix the reported configuration field",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
