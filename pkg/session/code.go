package session

import (
	"context"
	"time"

	"github.com/agbcloud/agb-go/pkg/transport"
	"github.com/agbcloud/agb-go/pkg/types"
)

// Languages the sandbox code runtime accepts. Validated locally so a typo
// fails before the network round-trip.
const (
	LanguagePython     = "python"
	LanguageJavaScript = "javascript"
)

// CodeModule runs code inside the session's sandbox runtime.
type CodeModule struct {
	router *Router
}

// RunOptions bounds one code execution.
type RunOptions struct {
	// Timeout bounds the execution. Zero selects DefaultCodeTimeout.
	Timeout time.Duration
}

// Run executes code in the given language and returns its combined output.
// Language must be LanguagePython or LanguageJavaScript; anything else is an
// invalid_params failure with no network access.
func (m *CodeModule) Run(ctx context.Context, code, language string, opts *RunOptions) *types.CodeResult {
	if language != LanguagePython && language != LanguageJavaScript {
		err := types.NewError(types.KindInvalidParams, transport.LocalRequestID(),
			"unsupported language %q (supported: %s, %s)", language, LanguagePython, LanguageJavaScript)
		return &types.CodeResult{Result: failResult(err)}
	}
	if code == "" {
		err := types.NewError(types.KindInvalidParams, transport.LocalRequestID(), "code must not be empty")
		return &types.CodeResult{Result: failResult(err)}
	}

	var timeout time.Duration
	if opts != nil {
		timeout = opts.Timeout
	}

	resp, err := m.router.Dispatch(ctx, transport.CapabilityCode, "run", map[string]any{
		"code":     code,
		"language": language,
	}, timeout)
	if err != nil {
		return &types.CodeResult{Result: failResult(err)}
	}
	if !resp.Success {
		return &types.CodeResult{Result: types.Fail(resp.RequestID, remoteErr(resp))}
	}

	var payload struct {
		Output string `json:"output"`
	}
	if err := decodeData(resp, &payload); err != nil {
		return &types.CodeResult{Result: failResult(err)}
	}
	return &types.CodeResult{Result: types.Ok(resp.RequestID), Output: payload.Output}
}
