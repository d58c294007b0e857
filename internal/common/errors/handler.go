package errors

import (
	"errors"
	"strings"
	"time"
)

// ErrorHandler normalizes and logs delivery-layer errors according to the
// propagation policy: transport and frame failures are absorbed here; only
// failed user-initiated actions travel upward.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// Absorb logs an error that must not propagate (transport, frame, fetch).
func (h *ErrorHandler) Absorb(err error, context string) {
	stdErr := Normalize(err)
	h.logger.Warn("absorbed delivery error", map[string]interface{}{
		"context":   context,
		"code":      string(stdErr.Code),
		"details":   stdErr.Details,
		"retryable": stdErr.Retryable,
	})
}

// Surface logs and returns an error that is reported to the caller. Only
// explicit user-initiated actions (send, mark-read) go through here.
func (h *ErrorHandler) Surface(err error, context string) error {
	stdErr := Normalize(err)
	h.logger.Error("surfaced delivery error", map[string]interface{}{
		"context": context,
		"code":    string(stdErr.Code),
		"details": stdErr.Details,
	})
	return stdErr
}

// Normalize ensures we always have a StandardError.
func Normalize(err error) *StandardError {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}
	return &StandardError{
		Code:      "INTERNAL_ERROR",
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: isTransient(err),
		Timestamp: time.Now().UTC(),
	}
}

// IsCode reports whether err carries the given standardized code.
func IsCode(err error, code ErrorCode) bool {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Code == code
	}
	return false
}

// isTransient checks if the error looks like a transient network failure.
func isTransient(err error) bool {
	msg := strings.ToLower(err.Error())
	transientPhrases := []string{
		"connection refused",
		"connection reset",
		"timeout",
		"deadline exceeded",
		"unavailable",
		"unreachable",
		"broken pipe",
		"unexpected eof",
	}
	for _, phrase := range transientPhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}
