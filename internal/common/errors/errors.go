// Package errors provides standardized error handling for the assistant pipeline.
package errors

import (
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeMissingInput         ErrorCode = "MISSING_INPUT"
	ErrCodeClassificationFailed ErrorCode = "CLASSIFICATION_FAILED"

	ErrCodeCompletionTimeout ErrorCode = "COMPLETION_TIMEOUT"
	ErrCodeCompletionFailed  ErrorCode = "COMPLETION_FAILED"

	ErrCodeQueryGenerationFailed ErrorCode = "QUERY_GENERATION_FAILED"
	ErrCodeQueryRejected         ErrorCode = "QUERY_REJECTED"
	ErrCodeQueryTimeout          ErrorCode = "QUERY_TIMEOUT"
	ErrCodeQueryExecutionFailed  ErrorCode = "QUERY_EXECUTION_FAILED"

	ErrCodeDelegationFailed     ErrorCode = "DELEGATION_FAILED"
	ErrCodeEnvelopeUnrecognized ErrorCode = "ENVELOPE_UNRECOGNIZED"

	ErrCodeMemoryLoadFailed ErrorCode = "MEMORY_LOAD_FAILED"
	ErrCodeMemorySaveFailed ErrorCode = "MEMORY_SAVE_FAILED"

	ErrCodeExtractionFailed      ErrorCode = "EXTRACTION_FAILED"
	ErrCodeExtractionInvalidJSON ErrorCode = "EXTRACTION_INVALID_JSON"
	ErrCodeDatabaseInsertFailed  ErrorCode = "DATABASE_INSERT_FAILED"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// New creates a StandardError with the given code and message.
func New(code ErrorCode, message string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// WithDetails attaches free-form diagnostic text.
func (e *StandardError) WithDetails(details string) *StandardError {
	e.Details = details
	return e
}

// WithMetadata attaches structured diagnostic context, such as the raw model
// output or the attempted SQL text.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// NewCompletionTimeoutError is retryable: the completion service may recover.
func NewCompletionTimeoutError(details string) *StandardError {
	return New(ErrCodeCompletionTimeout, "Completion service call timed out", true).WithDetails(details)
}

// NewCompletionFailedError carries the raw model output when available.
func NewCompletionFailedError(details, rawOutput string) *StandardError {
	e := New(ErrCodeCompletionFailed, "Completion service call failed", true).WithDetails(details)
	if rawOutput != "" {
		e.WithMetadata("rawOutput", rawOutput)
	}
	return e
}

// NewQueryRejectedError is non-retryable: the generated query failed the
// read-only validation gate and was never executed.
func NewQueryRejectedError(query, reason string) *StandardError {
	return New(ErrCodeQueryRejected, "Generated query rejected by validation gate", false).
		WithDetails(reason).
		WithMetadata("attemptedQuery", query)
}

// NewQueryExecutionError carries the attempted query string for diagnosis.
func NewQueryExecutionError(query, details string) *StandardError {
	return New(ErrCodeQueryExecutionFailed, "Query execution failed", false).
		WithDetails(details).
		WithMetadata("attemptedQuery", query)
}

// NewDelegationError covers collaborator invocation failures.
func NewDelegationError(service, details string) *StandardError {
	return New(ErrCodeDelegationFailed, "Delegated service invocation failed", true).
		WithDetails(details).
		WithMetadata("service", service)
}

// NewExtractionInvalidJSONError carries the raw model output that failed to
// parse or validate.
func NewExtractionInvalidJSONError(rawOutput string) *StandardError {
	return New(ErrCodeExtractionInvalidJSON, "Model did not return valid structured JSON", false).
		WithMetadata("rawOutput", rawOutput)
}
