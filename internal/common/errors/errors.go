// Package errors provides standardized error handling for the realtime
// delivery layer.
package errors

import (
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Transport errors. Always recoverable: the connection manager retries
	// with backoff and never surfaces these to a caller.
	ErrCodeChannelConnectFailed ErrorCode = "CHANNEL_CONNECT_FAILED"
	ErrCodeChannelDisconnected  ErrorCode = "CHANNEL_DISCONNECTED"
	ErrCodeChannelClosed        ErrorCode = "CHANNEL_CLOSED"

	// Frame errors. Dropped and logged, never user-visible.
	ErrCodeFrameDecodeFailed  ErrorCode = "FRAME_DECODE_FAILED"
	ErrCodeFrameUnknownKind   ErrorCode = "FRAME_UNKNOWN_KIND"
	ErrCodeFrameSchemaInvalid ErrorCode = "FRAME_SCHEMA_INVALID"

	// REST fetch errors. Absorbed: state defaults to empty/zero.
	ErrCodeHistoryFetchFailed  ErrorCode = "HISTORY_FETCH_FAILED"
	ErrCodeSnapshotFetchFailed ErrorCode = "SNAPSHOT_FETCH_FAILED"
	ErrCodeRoomListFailed      ErrorCode = "ROOM_LIST_FAILED"

	// User-initiated action errors. The only codes surfaced to callers.
	ErrCodeMessageSendFailed ErrorCode = "MESSAGE_SEND_FAILED"
	ErrCodeMarkReadFailed    ErrorCode = "MARK_READ_FAILED"

	// Auth errors.
	ErrCodeAuthTokenFailed  ErrorCode = "AUTH_TOKEN_FAILED"
	ErrCodeAuthTokenMissing ErrorCode = "AUTH_TOKEN_MISSING"
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
// 2. Error Constructors
// ==========================

// NewChannelConnectError creates a retryable transport error for a failed
// channel construction. Construction failure and runtime disconnect take the
// same retry path.
func NewChannelConnectError(key string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeChannelConnectFailed,
		Message:   "Failed to open push channel",
		Details:   err.Error(),
		Retryable: true,
		Metadata:  map[string]interface{}{"channel": key},
		Timestamp: time.Now().UTC(),
	}
}

// NewChannelDisconnectedError creates a retryable transport error.
func NewChannelDisconnectedError(key string, err error) *StandardError {
	details := "remote close"
	if err != nil {
		details = err.Error()
	}
	return &StandardError{
		Code:      ErrCodeChannelDisconnected,
		Message:   "Push channel disconnected",
		Details:   details,
		Retryable: true,
		Metadata:  map[string]interface{}{"channel": key},
		Timestamp: time.Now().UTC(),
	}
}

// NewFrameDecodeError creates a non-retryable frame error. The frame is
// dropped, not redelivered.
func NewFrameDecodeError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeFrameDecodeFailed,
		Message:   "Failed to decode inbound frame",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewFrameSchemaError creates a non-retryable frame error for a payload that
// failed contract validation.
func NewFrameSchemaError(kind string, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeFrameSchemaInvalid,
		Message:   "Frame payload failed contract validation",
		Details:   details,
		Retryable: false,
		Metadata:  map[string]interface{}{"kind": kind},
		Timestamp: time.Now().UTC(),
	}
}

// NewHistoryFetchError creates a retryable REST error for a failed history
// page fetch.
func NewHistoryFetchError(roomID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeHistoryFetchFailed,
		Message:   "Failed to fetch chat history",
		Details:   err.Error(),
		Retryable: true,
		Metadata:  map[string]interface{}{"roomId": roomID},
		Timestamp: time.Now().UTC(),
	}
}

// NewSnapshotFetchError creates a retryable REST error for a failed
// notification snapshot fetch.
func NewSnapshotFetchError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSnapshotFetchFailed,
		Message:   "Failed to fetch notification snapshot",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewRoomListError creates a retryable REST error for a failed room listing.
func NewRoomListError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRoomListFailed,
		Message:   "Failed to list chat rooms",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewMessageSendError creates the one error surfaced to the calling UI
// action. The caller's composed input must be preserved for retry.
func NewMessageSendError(roomID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeMessageSendFailed,
		Message:   "Failed to send chat message",
		Details:   err.Error(),
		Retryable: true,
		Metadata:  map[string]interface{}{"roomId": roomID},
		Timestamp: time.Now().UTC(),
	}
}

// NewMarkReadError creates an error for a failed mark-all-read action.
func NewMarkReadError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeMarkReadFailed,
		Message:   "Failed to mark notifications read",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewAuthTokenError creates an error for a failed token fetch.
func NewAuthTokenError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAuthTokenFailed,
		Message:   "Failed to obtain access token",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewAuthTokenMissingError creates a non-retryable error for an absent token.
// Open fails fast on this: no retry loop is started.
func NewAuthTokenMissingError() *StandardError {
	return &StandardError{
		Code:      ErrCodeAuthTokenMissing,
		Message:   "No access token available",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}
