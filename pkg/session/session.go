// Package session implements the client-side representation of one remote
// AGB sandbox: the session handle, the per-session module router, and the
// typed capability modules (code, command, filesystem, oss, browser).
//
// # Lifecycle
//
// Sessions are created only by the client's Create call, never directly.
// A handle stays valid until the client deletes it; after deletion every
// module call fails fast locally with a session_closed error, without any
// network access.
//
// # Capability modules
//
// The capability set is fixed and resolved statically: Code, Command,
// FileSystem, OSS, and Browser are typed accessors on the handle, not
// runtime probes. All module calls flow through the session's Router, which
// stamps the session identity, enforces the closed check, and applies a
// module-specific default timeout whenever the caller does not supply one.
package session

import (
	"context"
	"sync"

	"github.com/agbcloud/agb-go/pkg/browser"
	"github.com/agbcloud/agb-go/pkg/transport"
	"github.com/agbcloud/agb-go/pkg/types"
)

// Session is the in-memory handle for one remote sandbox.
type Session struct {
	sessionID string
	imageID   string

	mu     sync.RWMutex
	labels map[string]string
	closed bool

	router *Router

	code       *CodeModule
	command    *CommandModule
	filesystem *FileSystemModule
	oss        *OSSModule

	browser     *browser.Agent
	browserOpts []browser.Option
}

// New creates a session handle for a remote sandbox already created by the
// control plane. Called by the client's Create and List paths; SDK users
// never construct sessions directly.
func New(sessionID, imageID string, labels map[string]string, caller transport.Caller, opts ...browser.Option) *Session {
	s := &Session{
		sessionID:   sessionID,
		imageID:     imageID,
		labels:      copyLabels(labels),
		browserOpts: opts,
	}
	s.router = &Router{session: s, caller: caller}
	s.code = &CodeModule{router: s.router}
	s.command = &CommandModule{router: s.router}
	s.filesystem = &FileSystemModule{router: s.router}
	s.oss = &OSSModule{router: s.router}
	return s
}

// SessionID returns the control-plane-assigned session id.
func (s *Session) SessionID() string {
	return s.sessionID
}

// ImageID returns the sandbox template this session was created from.
func (s *Session) ImageID() string {
	return s.imageID
}

// Labels returns a copy of the locally known labels.
func (s *Session) Labels() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyLabels(s.labels)
}

// Closed reports whether the handle has been deleted.
func (s *Session) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// MarkClosed transitions the handle to its terminal state. Called by the
// client after a successful delete; idempotent.
func (s *Session) MarkClosed() {
	s.mu.Lock()
	s.closed = true
	agent := s.browser
	s.mu.Unlock()
	if agent != nil {
		agent.MarkClosed()
	}
}

// Code returns the code-execution module.
func (s *Session) Code() *CodeModule {
	return s.code
}

// Command returns the shell-command module.
func (s *Session) Command() *CommandModule {
	return s.command
}

// FileSystem returns the sandbox filesystem module.
func (s *Session) FileSystem() *FileSystemModule {
	return s.filesystem
}

// OSS returns the object-storage module.
func (s *Session) OSS() *OSSModule {
	return s.oss
}

// Browser returns the session's browser agent, creating it on first use.
// The agent shares the session's transport and fails alongside the session:
// deleting the session closes the agent.
func (s *Session) Browser() *browser.Agent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.browser == nil {
		s.browser = browser.NewAgent(s.router.Bound(transport.CapabilityBrowser), s.browserOpts...)
		if s.closed {
			s.browser.MarkClosed()
		}
	}
	return s.browser
}

// SetLabels replaces the session's labels on the control plane and, on
// success, locally.
func (s *Session) SetLabels(ctx context.Context, labels map[string]string) *types.LabelResult {
	resp, err := s.router.Dispatch(ctx, transport.CapabilitySession, "set_labels", map[string]any{
		"labels": labels,
	}, 0)
	if err != nil {
		return &types.LabelResult{Result: failResult(err)}
	}
	if !resp.Success {
		return &types.LabelResult{Result: types.Fail(resp.RequestID, remoteErr(resp))}
	}

	s.mu.Lock()
	s.labels = copyLabels(labels)
	s.mu.Unlock()

	return &types.LabelResult{Result: types.Ok(resp.RequestID), Labels: copyLabels(labels)}
}

// GetLabels fetches the session's labels from the control plane. The remote
// view wins over the local copy: labels set out-of-band by other processes
// are reflected.
func (s *Session) GetLabels(ctx context.Context) *types.LabelResult {
	resp, err := s.router.Dispatch(ctx, transport.CapabilitySession, "get_labels", nil, 0)
	if err != nil {
		return &types.LabelResult{Result: failResult(err)}
	}
	if !resp.Success {
		return &types.LabelResult{Result: types.Fail(resp.RequestID, remoteErr(resp))}
	}

	var payload struct {
		Labels map[string]string `json:"labels"`
	}
	if err := decodeData(resp, &payload); err != nil {
		return &types.LabelResult{Result: failResult(err)}
	}

	s.mu.Lock()
	s.labels = copyLabels(payload.Labels)
	s.mu.Unlock()

	return &types.LabelResult{Result: types.Ok(resp.RequestID), Labels: payload.Labels}
}

// Info fetches the control plane's record of this session.
func (s *Session) Info(ctx context.Context) *types.InfoResult {
	resp, err := s.router.Dispatch(ctx, transport.CapabilitySession, "info", nil, 0)
	if err != nil {
		return &types.InfoResult{Result: failResult(err)}
	}
	if !resp.Success {
		return &types.InfoResult{Result: types.Fail(resp.RequestID, remoteErr(resp))}
	}

	var info types.SessionInfo
	if err := decodeData(resp, &info); err != nil {
		return &types.InfoResult{Result: failResult(err)}
	}
	return &types.InfoResult{Result: types.Ok(resp.RequestID), Info: info}
}

func copyLabels(labels map[string]string) map[string]string {
	if labels == nil {
		return nil
	}
	out := make(map[string]string, len(labels))
	for k, v := range labels {
		out[k] = v
	}
	return out
}
