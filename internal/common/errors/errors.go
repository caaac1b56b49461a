// Package errors provides standardized error handling for the lookup
// workflow: every failure that crosses the worker boundary carries a code,
// a human-readable message and a retry policy.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// User input: the requested court label matched no dropdown option.
	ErrCodeCourtNotFound ErrorCode = "COURT_NOT_FOUND"

	// The results grid never reached a ready state. Usually portal
	// latency, worth retrying.
	ErrCodeResultTimeout ErrorCode = "RESULT_TIMEOUT"

	// A row matched but header/row extraction produced no usable columns.
	// Indicates a markup change; retrying will not help.
	ErrCodeExtractionFailed ErrorCode = "EXTRACTION_FAILED"

	// The automation layer failed outright (navigation error, browser
	// crash). Treated as transient.
	ErrCodeNavigationFailed ErrorCode = "NAVIGATION_FAILED"

	// Malformed job variables.
	ErrCodeParseError ErrorCode = "PARSE_ERROR"

	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeDatabaseInsertFailed     ErrorCode = "DATABASE_INSERT_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"

	// Another worker holds the scrape lease for the same docket key.
	// Retry after the lease expires.
	ErrCodeScrapeInProgress ErrorCode = "SCRAPE_IN_PROGRESS"
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

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	if e.ErrorVariables != nil {
		for k, v := range e.ErrorVariables {
			vars[k] = v
		}
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewCourtNotFoundError creates a non-retryable user-input error.
func NewCourtNotFoundError(courtLabel string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCourtNotFound,
		Message:   "Requested court not present in the portal dropdown",
		Details:   fmt.Sprintf("courtLabel: %s", courtLabel),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewResultTimeoutError creates a retryable grid-readiness timeout error.
func NewResultTimeoutError(timeout time.Duration) *StandardError {
	return &StandardError{
		Code:      ErrCodeResultTimeout,
		Message:   "Results grid did not become ready in time",
		Details:   fmt.Sprintf("timeout: %s", timeout),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewExtractionFailedError creates a non-retryable extraction error.
func NewExtractionFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeExtractionFailed,
		Message:   "Matched row yielded no usable columns",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewNavigationFailedError wraps an automation-layer fault, preserving the
// underlying cause as diagnostic text.
func NewNavigationFailedError(stage string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNavigationFailed,
		Message:   "Browser automation failure",
		Details:   fmt.Sprintf("stage: %s, error: %s", stage, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationFailedError creates a non-retryable input validation error.
func NewValidationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Lookup request validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseInsertFailedError creates a retryable database insert error.
func NewDatabaseInsertFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseInsertFailed,
		Message:   "Database insert operation failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query execution error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification delivery failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewScrapeInProgressError signals that the same docket key is being
// scraped by another worker right now.
func NewScrapeInProgressError(docketKey string) *StandardError {
	return &StandardError{
		Code:      ErrCodeScrapeInProgress,
		Message:   "A scrape for this docket key is already running",
		Details:   fmt.Sprintf("docketKey: %s", docketKey),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. Retry Policy
// ==========================

// GetRetryCount returns the recommended retry count per error code.
// Transient portal and infrastructure faults get a bounded retry; user
// input and markup-drift failures do not.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeResultTimeout,
		ErrCodeNavigationFailed,
		ErrCodeScrapeInProgress:
		return 2

	case ErrCodeDatabaseConnectionFailed,
		ErrCodeDatabaseInsertFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeNotificationSendFailed:
		return 3

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "COURT") || strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "PARSE"):
		return "INPUT"
	case strings.Contains(codeStr, "TIMEOUT") || strings.Contains(codeStr, "NAVIGATION"):
		return "PORTAL"
	case strings.Contains(codeStr, "EXTRACTION"):
		return "MARKUP"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY"):
		return "DATABASE"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	default:
		return "OTHER"
	}
}
