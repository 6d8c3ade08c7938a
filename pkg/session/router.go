package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/agbcloud/agb-go/pkg/transport"
	"github.com/agbcloud/agb-go/pkg/types"
)

// Default per-module timeouts, applied when the caller does not supply one.
// Shell commands are expected to be quick; code execution routinely runs
// installs and long scripts.
const (
	DefaultCommandTimeout    = 30 * time.Second
	DefaultCodeTimeout       = 300 * time.Second
	DefaultFileSystemTimeout = 60 * time.Second
	DefaultOSSTimeout        = 60 * time.Second
	DefaultSessionTimeout    = 60 * time.Second
	DefaultBrowserTimeout    = 60 * time.Second
)

// Router is the per-session dispatcher. Every capability call flows through
// it: the router rejects calls on closed sessions before any network access,
// stamps the session identity onto the request, and guarantees a deadline is
// always applied.
type Router struct {
	session *Session
	caller  transport.Caller
}

// Dispatch performs one remote call for the given capability and operation.
// A zero timeout selects the capability's default; there is no unbounded
// wait. The returned error is always a *types.Error.
func (r *Router) Dispatch(ctx context.Context, capability transport.Capability, operation string, payload any, timeout time.Duration) (*transport.Response, error) {
	if r.session.Closed() {
		return nil, types.NewError(types.KindSessionClosed, transport.LocalRequestID(),
			"session %s is closed", r.session.sessionID)
	}
	if timeout <= 0 {
		timeout = defaultTimeout(capability)
	}
	return r.caller.Call(ctx, &transport.Request{
		Capability: capability,
		Operation:  operation,
		SessionID:  r.session.sessionID,
		Payload:    payload,
		Timeout:    timeout,
	})
}

// Bound returns the router restricted to one capability. The browser agent
// holds a bound router so it can dispatch without knowing session internals.
func (r *Router) Bound(capability transport.Capability) *BoundRouter {
	return &BoundRouter{router: r, capability: capability}
}

// BoundRouter dispatches for a single capability.
type BoundRouter struct {
	router     *Router
	capability transport.Capability
}

// Dispatch performs one remote call against the bound capability.
func (b *BoundRouter) Dispatch(ctx context.Context, operation string, payload any, timeout time.Duration) (*transport.Response, error) {
	return b.router.Dispatch(ctx, b.capability, operation, payload, timeout)
}

func defaultTimeout(capability transport.Capability) time.Duration {
	switch capability {
	case transport.CapabilityCommand:
		return DefaultCommandTimeout
	case transport.CapabilityCode:
		return DefaultCodeTimeout
	case transport.CapabilityFileSystem:
		return DefaultFileSystemTimeout
	case transport.CapabilityOSS:
		return DefaultOSSTimeout
	case transport.CapabilityBrowser:
		return DefaultBrowserTimeout
	default:
		return DefaultSessionTimeout
	}
}

// failResult converts a dispatch error into a failure envelope, preserving
// the request id carried by the typed error.
func failResult(err error) types.Result {
	var typed *types.Error
	if errors.As(err, &typed) && typed.RequestID != "" {
		return types.Fail(typed.RequestID, err)
	}
	return types.Fail(transport.LocalRequestID(), err)
}

// remoteErr wraps a remote semantic failure as a typed error.
func remoteErr(resp *transport.Response) error {
	return types.NewError(types.KindRemoteRejected, resp.RequestID, "%s", resp.ErrorMessage)
}

// decodeData unmarshals a response payload, reporting a malformed remote
// payload as a remote failure tied to the response's request id.
func decodeData(resp *transport.Response, v any) error {
	if len(resp.Data) == 0 {
		return types.NewError(types.KindRemoteRejected, resp.RequestID, "response carried no payload")
	}
	if err := json.Unmarshal(resp.Data, v); err != nil {
		return types.NewError(types.KindRemoteRejected, resp.RequestID, "undecodable response payload: %v", err)
	}
	return nil
}
