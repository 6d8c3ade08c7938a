package types

import (
	"errors"
	"fmt"
)

// ErrorKind classifies SDK failures so callers can branch on the category
// rather than matching message strings.
type ErrorKind string

const (
	// KindInvalidParams means the request was malformed and rejected before
	// any network call.
	KindInvalidParams ErrorKind = "invalid_params"

	// KindRemoteUnavailable means the transport could not reach the remote
	// service.
	KindRemoteUnavailable ErrorKind = "remote_unavailable"

	// KindTimeout means the call's deadline elapsed. The remote outcome is
	// indeterminate: a timed-out operation may still have completed remotely.
	KindTimeout ErrorKind = "timeout"

	// KindCanceled means the caller's context was canceled before the call
	// finished. The remote outcome is unknown, as with a timeout.
	KindCanceled ErrorKind = "canceled"

	// KindSessionClosed means the session handle was deleted and the call
	// was rejected locally without network access.
	KindSessionClosed ErrorKind = "session_closed"

	// KindAgentClosed means the browser agent was closed and the call was
	// rejected locally.
	KindAgentClosed ErrorKind = "agent_closed"

	// KindAgentBusy means another act/observe/extract call was already in
	// flight on the same browser agent.
	KindAgentBusy ErrorKind = "agent_busy"

	// KindValidation means an extracted payload did not conform to the
	// caller's schema.
	KindValidation ErrorKind = "validation_error"

	// KindRemoteRejected means the remote service returned a semantic
	// failure, for example an action target that does not exist.
	KindRemoteRejected ErrorKind = "remote_rejected"
)

// Error is the SDK's typed error. It records the failure category, the
// request id of the attempted call, and, for validation failures, the
// offending field path.
type Error struct {
	// Kind is the failure category.
	Kind ErrorKind

	// RequestID identifies the call that failed. Locally generated when the
	// call never reached the network.
	RequestID string

	// FieldPath is the dotted path of the first non-conforming field for
	// KindValidation errors (for example "items[2].price"). Empty otherwise.
	FieldPath string

	// Message is the human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	if e.FieldPath != "" {
		return fmt.Sprintf("%s: %s (field %s)", e.Kind, e.Message, e.FieldPath)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a typed error with a formatted message.
func NewError(kind ErrorKind, requestID, format string, args ...any) *Error {
	return &Error{
		Kind:      kind,
		RequestID: requestID,
		Message:   fmt.Sprintf(format, args...),
	}
}

// WrapError creates a typed error around an underlying cause.
func WrapError(kind ErrorKind, requestID string, err error) *Error {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &Error{Kind: kind, RequestID: requestID, Message: msg, Err: err}
}

// KindOf extracts the error kind from err. Returns an empty kind when err is
// nil or carries no *Error in its chain.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err's chain contains an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
