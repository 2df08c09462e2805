// Package errors provides standardized error handling for the scheduling pipeline.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeInvalidTaskMessage   ErrorCode = "INVALID_TASK_MESSAGE"
	ErrCodeUnsupportedInputType ErrorCode = "UNSUPPORTED_INPUT_TYPE"

	ErrCodeStorageRetrievalFailed ErrorCode = "STORAGE_RETRIEVAL_FAILED"
	ErrCodeOCRFailed              ErrorCode = "OCR_FAILED"
	ErrCodeOCRNoText              ErrorCode = "OCR_NO_TEXT"

	ErrCodeEntityExtractionFailed ErrorCode = "ENTITY_EXTRACTION_FAILED"
	ErrCodeNormalizationFailed    ErrorCode = "NORMALIZATION_FAILED"

	ErrCodeGuardrailRejected ErrorCode = "GUARDRAIL_REJECTED"

	ErrCodeAppointmentInsertFailed ErrorCode = "APPOINTMENT_INSERT_FAILED"
	ErrCodeStatusWriteFailed       ErrorCode = "STATUS_WRITE_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Retryable bool      `json:"retryable"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return e.Message
}

// ==========================
// 2. Error Constructors
// ==========================

// NewInvalidTaskMessageError marks a message the worker cannot decode; there is
// no job record to fail, so the message is dropped after logging.
func NewInvalidTaskMessageError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidTaskMessage,
		Message:   "task message failed validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnsupportedInputTypeError creates a non-retryable input type error.
func NewUnsupportedInputTypeError(inputType string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnsupportedInputType,
		Message:   fmt.Sprintf("unsupported input job type: %s", inputType),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStorageRetrievalFailedError wraps a missing or unreadable object.
// Message text matches the recorded failure the status API exposes.
func NewStorageRetrievalFailedError(err error) *StandardError {
	details := ""
	if err != nil {
		details = err.Error()
	}
	return &StandardError{
		Code:      ErrCodeStorageRetrievalFailed,
		Message:   "failed to get image from s3.",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewOCRFailedError creates a retryable text-extraction capability error.
func NewOCRFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeOCRFailed,
		Message:   "text extraction failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewOCRNoTextError marks an image from which no text could be recovered.
func NewOCRNoTextError() *StandardError {
	return &StandardError{
		Code:      ErrCodeOCRNoText,
		Message:   "no text found in the provided image",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewEntityExtractionFailedError creates a retryable extraction capability error.
func NewEntityExtractionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeEntityExtractionFailed,
		Message:   "entity extraction failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNormalizationFailedError creates a retryable normalization capability error.
func NewNormalizationFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNormalizationFailed,
		Message:   "date/time normalization failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewGuardrailRejectedError records a deliberate business rejection, not an
// infrastructure fault. Terminal status stays "failed"; this code is the
// distinguishing reason.
func NewGuardrailRejectedError(message string) *StandardError {
	return &StandardError{
		Code:      ErrCodeGuardrailRejected,
		Message:   message,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAppointmentInsertFailedError creates a retryable database insert error.
func NewAppointmentInsertFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAppointmentInsertFailed,
		Message:   "appointment insert failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewStatusWriteFailedError creates a retryable status store error.
func NewStatusWriteFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStatusWriteFailed,
		Message:   "status store write failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// CodeOf extracts the error code, or INTERNAL_ERROR for plain errors.
func CodeOf(err error) ErrorCode {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Code
	}
	return "INTERNAL_ERROR"
}

// Normalize ensures callers always have a StandardError to record.
func Normalize(err error) *StandardError {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}
	return &StandardError{
		Code:      "INTERNAL_ERROR",
		Message:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// IsBusinessRejection reports whether the failure is a deliberate guardrail
// decision rather than an infrastructure or capability fault.
func IsBusinessRejection(err error) bool {
	return CodeOf(err) == ErrCodeGuardrailRejected
}
