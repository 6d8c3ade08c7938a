// Package transport defines the wire contract between the SDK and the AGB
// remote services: the control plane (session create/list/delete) and the
// per-capability module endpoints (code, command, filesystem, oss, browser).
//
// Every call is a single JSON POST to <endpoint>/v1/<capability>/<operation>
// carrying the session id (when session-scoped) and an operation payload, and
// every response uses the same envelope:
//
//	{"request_id": "...", "success": true, "data": {...}}
//	{"request_id": "...", "success": false, "error_message": "..."}
//
// The Caller interface is the seam used by tests to substitute a fake
// control plane and fake module endpoints for the real HTTP client.
package transport

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Capability names one logical remote endpoint.
type Capability string

const (
	CapabilitySession    Capability = "session"
	CapabilityCode       Capability = "code"
	CapabilityCommand    Capability = "command"
	CapabilityFileSystem Capability = "filesystem"
	CapabilityOSS        Capability = "oss"
	CapabilityBrowser    Capability = "browser"
)

// Request is one remote call. SessionID is empty only for control-plane
// operations that are not scoped to a session (create, list).
type Request struct {
	// Capability selects the logical remote endpoint.
	Capability Capability

	// Operation is the endpoint-specific operation name, for example
	// "create", "execute", "read_file".
	Operation string

	// SessionID is the owning session's id for session-scoped calls.
	SessionID string

	// Payload is the operation-specific request body. Marshaled as the
	// "payload" field of the POST body. May be nil.
	Payload any

	// Timeout bounds the call. The caller layer guarantees it is always
	// set; the transport applies it as the context deadline.
	Timeout time.Duration
}

// Response is the decoded remote envelope.
type Response struct {
	// RequestID is the remote-assigned correlation id.
	RequestID string `json:"request_id"`

	// Success reports whether the remote service accepted and completed the
	// operation.
	Success bool `json:"success"`

	// ErrorMessage is set iff Success is false.
	ErrorMessage string `json:"error_message,omitempty"`

	// Data is the operation-specific payload. May be present in partial
	// form on failure; callers decode it only when they know the shape.
	Data json.RawMessage `json:"data,omitempty"`
}

// Caller executes one remote call. Implementations must honor req.Timeout
// and return a typed *types.Error (never a bare error) describing transport
// failures; a non-nil Response with Success=false represents a remote
// semantic failure, not a transport error.
type Caller interface {
	Call(ctx context.Context, req *Request) (*Response, error)
}

// LocalRequestID generates a correlation id for calls that fail before
// reaching the network, so every failure carries a usable request id.
func LocalRequestID() string {
	return "local-" + uuid.New().String()
}
