// Package client implements the AGB client: the process-wide registry that
// creates, tracks, and tears down remote sandbox sessions against the AGB
// control plane.
//
// Example:
//
//	agb, err := client.New(client.WithAPIKey("..."))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result := agb.Create(ctx, &client.CreateSessionParams{
//	    Labels: map[string]string{"env": "test"},
//	})
//	if !result.Success {
//	    log.Fatal(result.ErrorMessage)
//	}
//	sess := result.Session
//	defer agb.Delete(ctx, sess)
//
//	run := sess.Command().Execute(ctx, "ls /tmp", nil)
package client

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/gobwas/glob"

	"github.com/agbcloud/agb-go/pkg/browser"
	"github.com/agbcloud/agb-go/pkg/browser/interpret"
	"github.com/agbcloud/agb-go/pkg/config"
	"github.com/agbcloud/agb-go/pkg/logging"
	"github.com/agbcloud/agb-go/pkg/session"
	"github.com/agbcloud/agb-go/pkg/transport"
	"github.com/agbcloud/agb-go/pkg/types"
)

const (
	// DefaultImageID is the sandbox template used when params carry none.
	DefaultImageID = "agb-code-space-1"

	// BrowserImageID is the sandbox template with browser support.
	BrowserImageID = "agb-browser-use-1"
)

// Client is the session registry. It holds the only shared mutable state in
// the SDK: the table of live session handles, guarded by a coarse lock.
// Handles returned from Create are owned by the caller; the registry touches
// them again only to flip the closed flag on delete.
type Client struct {
	cfg         *config.Config
	caller      transport.Caller
	logger      *logging.Logger
	browserOpts []browser.Option

	mu       sync.RWMutex
	sessions map[string]*session.Session
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	configOpts  []config.Option
	caller      transport.Caller
	browserOpts []browser.Option
	interp      browser.Interpreter
}

// WithAPIKey sets the API key explicitly instead of reading AGB_API_KEY.
func WithAPIKey(key string) Option {
	return func(o *clientOptions) {
		o.configOpts = append(o.configOpts, config.WithAPIKey(key))
	}
}

// WithEndpoint overrides the control-plane endpoint.
func WithEndpoint(endpoint string) Option {
	return func(o *clientOptions) {
		o.configOpts = append(o.configOpts, config.WithEndpoint(endpoint))
	}
}

// WithTransport substitutes the remote transport. Tests use this to run the
// whole SDK against a fake control plane.
func WithTransport(caller transport.Caller) Option {
	return func(o *clientOptions) {
		o.caller = caller
	}
}

// WithInterpreter sets the perception/action service for browser agents
// created by this client's sessions.
func WithInterpreter(i browser.Interpreter) Option {
	return func(o *clientOptions) {
		o.interp = i
	}
}

// WithBrowserOptions passes additional options to every browser agent.
func WithBrowserOptions(opts ...browser.Option) Option {
	return func(o *clientOptions) {
		o.browserOpts = append(o.browserOpts, opts...)
	}
}

// New constructs a client. Configuration is resolved once (explicit options,
// then environment, then the config file) and is immutable afterwards. A
// missing API key is the only construction failure besides a malformed
// config file.
//
// When no interpreter is configured and OPENAI_API_KEY is set, browser
// agents default to the OpenAI-backed interpreter.
func New(opts ...Option) (*Client, error) {
	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}

	cfg, err := config.Load(o.configOpts...)
	if err != nil {
		return nil, err
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required (pass client.WithAPIKey or set %s)", config.EnvAPIKey)
	}

	caller := o.caller
	if caller == nil {
		caller = transport.NewHTTPClient(cfg.Endpoint, cfg.APIKey)
	}

	browserOpts := o.browserOpts
	switch {
	case o.interp != nil:
		browserOpts = append(browserOpts, browser.WithInterpreter(o.interp))
	case os.Getenv("OPENAI_API_KEY") != "":
		provider, err := interpret.NewProvider("")
		if err == nil {
			browserOpts = append(browserOpts, browser.WithInterpreter(provider))
		}
	}

	logger, _ := logging.NewLogger("client")
	return &Client{
		cfg:         cfg,
		caller:      caller,
		logger:      logger,
		browserOpts: browserOpts,
		sessions:    make(map[string]*session.Session),
	}, nil
}

// CreateSessionParams are the optional inputs to Create, passed through
// verbatim to the control plane.
type CreateSessionParams struct {
	// Labels organize sessions; the control plane enforces no uniqueness.
	Labels map[string]string

	// ImageID selects the sandbox template. Empty selects DefaultImageID.
	ImageID string
}

// SessionResult is the outcome of creating a session.
type SessionResult struct {
	types.Result

	// Session is the registered handle. Set iff Success.
	Session *session.Session
}

// SessionListResult is the outcome of listing sessions.
type SessionListResult struct {
	types.Result

	// Sessions are the handles in remote-reported order.
	Sessions []*session.Session
}

// Create asks the control plane for a new sandbox session. On success the
// handle is registered locally before it is returned; on failure nothing is
// registered. Exactly one remote call, no implicit retries.
func (c *Client) Create(ctx context.Context, params *CreateSessionParams) *SessionResult {
	if params == nil {
		params = &CreateSessionParams{}
	}
	imageID := params.ImageID
	if imageID == "" {
		imageID = DefaultImageID
	}

	resp, err := c.caller.Call(ctx, &transport.Request{
		Capability: transport.CapabilitySession,
		Operation:  "create",
		Payload: map[string]any{
			"image_id": imageID,
			"labels":   params.Labels,
		},
		Timeout: c.cfg.Timeout,
	})
	if err != nil {
		return &SessionResult{Result: failEnvelope(err)}
	}
	if !resp.Success {
		return &SessionResult{Result: types.Fail(resp.RequestID, remoteErr(resp))}
	}

	var info types.SessionInfo
	if err := decode(resp, &info); err != nil {
		return &SessionResult{Result: failEnvelope(err)}
	}
	if info.SessionID == "" {
		terr := types.NewError(types.KindRemoteRejected, resp.RequestID, "create response carried no session id")
		return &SessionResult{Result: types.Fail(resp.RequestID, terr)}
	}
	if info.ImageID == "" {
		info.ImageID = imageID
	}
	labels := info.Labels
	if labels == nil {
		labels = params.Labels
	}

	handle := session.New(info.SessionID, info.ImageID, labels, c.caller, c.browserOpts...)

	c.mu.Lock()
	c.sessions[info.SessionID] = handle
	c.mu.Unlock()

	c.logger.Infof("created session %s (image %s)", info.SessionID, info.ImageID)
	return &SessionResult{Result: types.Ok(resp.RequestID), Session: handle}
}

// List returns the control plane's view of live sessions in remote-reported
// order. Sessions created by other processes appear; handles deleted
// out-of-band disappear. The local registry is refreshed best-effort: known
// handles are reused so capability modules keep working across List calls.
func (c *Client) List(ctx context.Context) *SessionListResult {
	resp, err := c.caller.Call(ctx, &transport.Request{
		Capability: transport.CapabilitySession,
		Operation:  "list",
		Timeout:    c.cfg.Timeout,
	})
	if err != nil {
		return &SessionListResult{Result: failEnvelope(err)}
	}
	if !resp.Success {
		return &SessionListResult{Result: types.Fail(resp.RequestID, remoteErr(resp))}
	}

	var payload struct {
		Sessions []types.SessionInfo `json:"sessions"`
	}
	if err := decode(resp, &payload); err != nil {
		return &SessionListResult{Result: failEnvelope(err)}
	}

	c.mu.Lock()
	handles := make([]*session.Session, 0, len(payload.Sessions))
	for _, info := range payload.Sessions {
		if existing, ok := c.sessions[info.SessionID]; ok && !existing.Closed() {
			handles = append(handles, existing)
			continue
		}
		handle := session.New(info.SessionID, info.ImageID, info.Labels, c.caller, c.browserOpts...)
		c.sessions[info.SessionID] = handle
		handles = append(handles, handle)
	}
	c.mu.Unlock()

	return &SessionListResult{Result: types.Ok(resp.RequestID), Sessions: handles}
}

// ListMatching lists sessions and filters them client-side by label glob
// patterns of the form "key=value-glob", for example "env=prod*". Order is
// preserved. A malformed pattern fails with invalid_params before any
// network access.
func (c *Client) ListMatching(ctx context.Context, patterns ...string) *SessionListResult {
	type labelMatcher struct {
		key     string
		matcher glob.Glob
	}
	matchers := make([]labelMatcher, 0, len(patterns))
	for _, pattern := range patterns {
		key, valuePattern, ok := splitPattern(pattern)
		if !ok {
			terr := types.NewError(types.KindInvalidParams, transport.LocalRequestID(),
				"label pattern %q is not of the form key=value", pattern)
			return &SessionListResult{Result: failEnvelope(terr)}
		}
		g, err := glob.Compile(valuePattern)
		if err != nil {
			terr := types.NewError(types.KindInvalidParams, transport.LocalRequestID(),
				"invalid label pattern %q: %v", pattern, err)
			return &SessionListResult{Result: failEnvelope(terr)}
		}
		matchers = append(matchers, labelMatcher{key: key, matcher: g})
	}

	result := c.List(ctx)
	if !result.Success {
		return result
	}

	filtered := make([]*session.Session, 0, len(result.Sessions))
	for _, s := range result.Sessions {
		labels := s.Labels()
		matched := true
		for _, m := range matchers {
			value, ok := labels[m.key]
			if !ok || !m.matcher.Match(value) {
				matched = false
				break
			}
		}
		if matched {
			filtered = append(filtered, s)
		}
	}
	return &SessionListResult{Result: result.Result, Sessions: filtered}
}

// Delete tears down a session. Idempotent from the caller's perspective:
// deleting an already-deleted handle is a local success-shaped no-op with no
// remote call. After a successful delete the handle is closed and removed
// from the registry; any later module call on it fails fast locally with
// session_closed.
func (c *Client) Delete(ctx context.Context, s *session.Session) *types.DeleteResult {
	if s == nil {
		terr := types.NewError(types.KindInvalidParams, transport.LocalRequestID(), "session must not be nil")
		return &types.DeleteResult{Result: failEnvelope(terr)}
	}
	if s.Closed() {
		return &types.DeleteResult{Result: types.Ok(transport.LocalRequestID())}
	}

	resp, err := c.caller.Call(ctx, &transport.Request{
		Capability: transport.CapabilitySession,
		Operation:  "delete",
		SessionID:  s.SessionID(),
		Timeout:    c.cfg.Timeout,
	})
	if err != nil {
		return &types.DeleteResult{Result: failEnvelope(err)}
	}
	if !resp.Success {
		return &types.DeleteResult{Result: types.Fail(resp.RequestID, remoteErr(resp))}
	}

	s.MarkClosed()
	c.mu.Lock()
	delete(c.sessions, s.SessionID())
	c.mu.Unlock()

	c.logger.Infof("deleted session %s", s.SessionID())
	return &types.DeleteResult{Result: types.Ok(resp.RequestID)}
}

// Get returns the locally registered handle for a session id, if any.
func (c *Client) Get(sessionID string) (*session.Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.sessions[sessionID]
	return s, ok
}

func splitPattern(pattern string) (key, value string, ok bool) {
	for i := 0; i < len(pattern); i++ {
		if pattern[i] == '=' {
			if i == 0 {
				return "", "", false
			}
			return pattern[:i], pattern[i+1:], true
		}
	}
	return "", "", false
}
