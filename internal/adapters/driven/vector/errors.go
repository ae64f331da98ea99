// Package vector holds the pieces shared by the durable index adapters:
// typed operation errors, memoized readiness, and score filtering.
package vector

import (
	"errors"
	"fmt"
)

// OperationErrorCode classifies a failed index operation.
type OperationErrorCode string

const (
	OperationErrorValidation      OperationErrorCode = "validation_failed"
	OperationErrorEncodeFailed    OperationErrorCode = "encode_failed"
	OperationErrorDecodeFailed    OperationErrorCode = "decode_failed"
	OperationErrorTransportFailed OperationErrorCode = "transport_failed"
	OperationErrorNotFound        OperationErrorCode = "not_found"
	OperationErrorRequestFailed   OperationErrorCode = "request_failed"
)

// OperationError is returned by the Pinecone and Qdrant adapters.
type OperationError struct {
	Provider   string
	Code       OperationErrorCode
	Operation  string
	StatusCode int
	Message    string
	Cause      error
}

func (e *OperationError) Error() string {
	if e == nil {
		return "vector operation failed"
	}
	head := fmt.Sprintf("%s %s failed (code=%s status=%d)", e.Provider, e.Operation, e.Code, e.StatusCode)
	switch {
	case e.Message != "":
		return head + ": " + e.Message
	case e.Cause != nil:
		return fmt.Sprintf("%s: %v", head, e.Cause)
	default:
		return head
	}
}

func (e *OperationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// OpErr builds an OperationError without a status code.
func OpErr(provider, op string, code OperationErrorCode, msg string, cause error) error {
	return &OperationError{
		Provider:  provider,
		Code:      code,
		Operation: op,
		Message:   msg,
		Cause:     cause,
	}
}

// IsNotFound reports whether err is an OperationError with code not_found.
func IsNotFound(err error) bool {
	var opErr *OperationError
	return errors.As(err, &opErr) && opErr.Code == OperationErrorNotFound
}

// TruncateBody shortens an error response body for messages.
func TruncateBody(raw []byte) string {
	const maxBytes = 512
	if len(raw) <= maxBytes {
		return string(raw)
	}
	return string(raw[:maxBytes]) + "..."
}
