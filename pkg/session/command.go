package session

import (
	"context"
	"time"

	"github.com/agbcloud/agb-go/pkg/transport"
	"github.com/agbcloud/agb-go/pkg/types"
)

// CommandModule executes shell commands inside the session's sandbox.
type CommandModule struct {
	router *Router
}

// ExecOptions bounds one command execution.
type ExecOptions struct {
	// Timeout bounds the execution. Zero selects DefaultCommandTimeout.
	Timeout time.Duration
}

// Execute runs a shell command and returns its combined output and exit
// code. A timed-out command may still be running in the sandbox; callers
// that need certainty should follow up with an idempotent probe.
func (m *CommandModule) Execute(ctx context.Context, command string, opts *ExecOptions) *types.CommandResult {
	if command == "" {
		err := types.NewError(types.KindInvalidParams, transport.LocalRequestID(), "command must not be empty")
		return &types.CommandResult{Result: failResult(err)}
	}

	var timeout time.Duration
	if opts != nil {
		timeout = opts.Timeout
	}

	resp, err := m.router.Dispatch(ctx, transport.CapabilityCommand, "execute", map[string]any{
		"command": command,
	}, timeout)
	if err != nil {
		return &types.CommandResult{Result: failResult(err)}
	}
	if !resp.Success {
		return &types.CommandResult{Result: types.Fail(resp.RequestID, remoteErr(resp))}
	}

	var payload struct {
		Output   string `json:"output"`
		ExitCode int    `json:"exit_code"`
	}
	if err := decodeData(resp, &payload); err != nil {
		return &types.CommandResult{Result: failResult(err)}
	}
	return &types.CommandResult{
		Result:   types.Ok(resp.RequestID),
		Output:   payload.Output,
		ExitCode: payload.ExitCode,
	}
}
