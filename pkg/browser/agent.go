package browser

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agbcloud/agb-go/pkg/logging"
	"github.com/agbcloud/agb-go/pkg/transport"
	"github.com/agbcloud/agb-go/pkg/types"
)

// Dispatcher is the slice of the session router the agent needs: one remote
// call against the owning session's browser endpoint. Satisfied by
// session.BoundRouter and by test fakes.
type Dispatcher interface {
	Dispatch(ctx context.Context, operation string, payload any, timeout time.Duration) (*transport.Response, error)
}

// Connector establishes a Driver against a CDP endpoint. The production
// connector is ConnectCDP; tests substitute stubs.
type Connector func(ctx context.Context, endpointURL string) (Driver, error)

// Agent drives one session's remote browser. See the package documentation
// for the lifecycle and concurrency model.
type Agent struct {
	dispatcher Dispatcher
	interp     Interpreter
	connect    Connector
	logger     *logging.Logger

	mu          sync.Mutex
	state       State
	endpointURL string
	driver      Driver
}

// Option configures an Agent.
type Option func(*Agent)

// WithInterpreter sets the perception/action service implementation.
func WithInterpreter(i Interpreter) Option {
	return func(a *Agent) {
		a.interp = i
	}
}

// WithConnector overrides how the agent connects to the CDP endpoint.
func WithConnector(c Connector) Option {
	return func(a *Agent) {
		a.connect = c
	}
}

// NewAgent creates an agent in the Uninitialized state. Called by the
// session's Browser accessor; SDK users obtain agents from sessions.
func NewAgent(dispatcher Dispatcher, opts ...Option) *Agent {
	logger, _ := logging.NewLogger("browser")
	a := &Agent{
		dispatcher: dispatcher,
		connect:    ConnectCDP,
		logger:     logger,
		state:      StateUninitialized,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// State returns the agent's current lifecycle state.
func (a *Agent) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// EndpointURL returns the remote browser's CDP endpoint, empty before a
// successful Initialize.
func (a *Agent) EndpointURL() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.endpointURL
}

// Initialize starts the remote browser process and connects the driver to
// its CDP endpoint. Valid from Uninitialized and, for a fresh start after
// Close, from Closed. A failure rolls the agent back to Uninitialized, so
// Initialize is retryable. Calling it on a Ready agent is a success-shaped
// no-op returning the existing endpoint.
func (a *Agent) Initialize(ctx context.Context, opts *InitializeOptions) *InitializeResult {
	if opts == nil {
		opts = &InitializeOptions{}
	}

	a.mu.Lock()
	switch a.state {
	case StateReady:
		endpoint := a.endpointURL
		a.mu.Unlock()
		return &InitializeResult{Result: types.Ok(transport.LocalRequestID()), EndpointURL: endpoint}
	case StateBusy, StateInitializing:
		a.mu.Unlock()
		err := types.NewError(types.KindAgentBusy, transport.LocalRequestID(), "agent has a call in flight")
		return &InitializeResult{Result: types.Fail(err.RequestID, err)}
	}
	a.state = StateInitializing
	a.mu.Unlock()

	payload := map[string]any{"stealth": opts.Stealth}
	if opts.Viewport != nil {
		payload["viewport"] = opts.Viewport
	}
	if opts.UserAgent != "" {
		payload["user_agent"] = opts.UserAgent
	}

	resp, err := a.dispatcher.Dispatch(ctx, "initialize", payload, opts.Timeout)
	if err != nil {
		a.rollback()
		return &InitializeResult{Result: failEnvelope(err)}
	}
	if !resp.Success {
		a.rollback()
		err := types.NewError(types.KindRemoteRejected, resp.RequestID, "%s", resp.ErrorMessage)
		return &InitializeResult{Result: types.Fail(resp.RequestID, err)}
	}

	var data struct {
		EndpointURL string `json:"endpoint_url"`
	}
	if err := json.Unmarshal(resp.Data, &data); err != nil || data.EndpointURL == "" {
		a.rollback()
		terr := types.NewError(types.KindRemoteRejected, resp.RequestID, "initialize response carried no endpoint")
		return &InitializeResult{Result: types.Fail(resp.RequestID, terr)}
	}

	driver, err := a.connect(ctx, data.EndpointURL)
	if err != nil {
		// The remote browser started but we cannot drive it; release it so
		// a retry starts clean.
		_, _ = a.dispatcher.Dispatch(ctx, "stop", nil, 0)
		a.rollback()
		terr := types.WrapError(types.KindRemoteUnavailable, resp.RequestID, err)
		return &InitializeResult{Result: types.Fail(resp.RequestID, terr)}
	}

	a.mu.Lock()
	if a.state != StateInitializing {
		// Close intervened while we were connecting; its terminal state
		// wins. Release what we just acquired.
		a.mu.Unlock()
		_ = driver.Close()
		_, _ = a.dispatcher.Dispatch(ctx, "stop", nil, 0)
		terr := types.NewError(types.KindAgentClosed, resp.RequestID, "agent closed during initialize")
		return &InitializeResult{Result: types.Fail(resp.RequestID, terr)}
	}
	a.endpointURL = data.EndpointURL
	a.driver = driver
	a.state = StateReady
	a.mu.Unlock()

	a.logger.Infof("browser initialized, endpoint %s", data.EndpointURL)
	return &InitializeResult{Result: types.Ok(resp.RequestID), EndpointURL: data.EndpointURL}
}

func (a *Agent) rollback() {
	a.mu.Lock()
	if a.state == StateInitializing {
		a.state = StateUninitialized
	}
	a.mu.Unlock()
}

// Close releases the remote browser process. Valid from any state; calls
// after Close fail with agent_closed until a new Initialize.
func (a *Agent) Close(ctx context.Context) *types.DeleteResult {
	a.mu.Lock()
	if a.state == StateClosed {
		a.mu.Unlock()
		return &types.DeleteResult{Result: types.Ok(transport.LocalRequestID())}
	}
	driver := a.driver
	wasReady := a.state == StateReady || a.state == StateBusy
	a.state = StateClosed
	a.driver = nil
	a.mu.Unlock()

	if driver != nil {
		if err := driver.Close(); err != nil {
			a.logger.Warnf("driver close failed: %v", err)
		}
	}
	if !wasReady {
		return &types.DeleteResult{Result: types.Ok(transport.LocalRequestID())}
	}

	resp, err := a.dispatcher.Dispatch(ctx, "stop", nil, 0)
	if err != nil {
		// Session-level deletion tears the remote browser down anyway;
		// report the failure but stay closed.
		return &types.DeleteResult{Result: failEnvelope(err)}
	}
	if !resp.Success {
		rerr := types.NewError(types.KindRemoteRejected, resp.RequestID, "%s", resp.ErrorMessage)
		return &types.DeleteResult{Result: types.Fail(resp.RequestID, rerr)}
	}
	return &types.DeleteResult{Result: types.Ok(resp.RequestID)}
}

// MarkClosed transitions the agent to Closed without a remote call. Used by
// the session when the whole sandbox is deleted.
func (a *Agent) MarkClosed() {
	a.mu.Lock()
	driver := a.driver
	a.state = StateClosed
	a.driver = nil
	a.mu.Unlock()
	if driver != nil {
		_ = driver.Close()
	}
}

// begin claims the agent for one operation, transitioning Ready → Busy.
func (a *Agent) begin() (Driver, *types.Error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch a.state {
	case StateClosed:
		return nil, types.NewError(types.KindAgentClosed, transport.LocalRequestID(), "agent is closed")
	case StateBusy, StateInitializing:
		return nil, types.NewError(types.KindAgentBusy, transport.LocalRequestID(), "agent has a call in flight")
	case StateUninitialized:
		return nil, types.NewError(types.KindInvalidParams, transport.LocalRequestID(), "agent is not initialized")
	}
	a.state = StateBusy
	return a.driver, nil
}

// end releases the agent after one operation, Busy → Ready. Close may have
// intervened, in which case the terminal state wins.
func (a *Agent) end() {
	a.mu.Lock()
	if a.state == StateBusy {
		a.state = StateReady
	}
	a.mu.Unlock()
}

// requestID assigns the correlation id for one act/observe/extract call.
// The interpreter is a separate collaborator with no envelope of its own,
// so the agent owns id assignment here.
func requestID() string {
	return "agent-" + uuid.New().String()
}

func failEnvelope(err error) types.Result {
	var typed *types.Error
	if errors.As(err, &typed) && typed.RequestID != "" {
		return types.Fail(typed.RequestID, err)
	}
	return types.Fail(transport.LocalRequestID(), err)
}
