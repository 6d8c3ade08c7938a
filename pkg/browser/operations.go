package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/agbcloud/agb-go/pkg/types"
)

// Act carries out one natural-language action: the interpreter turns the
// instruction plus current page context into an ordered primitive sequence,
// and the agent executes the primitives against the remote browser.
//
// Execution stops at the first primitive failure; the result's Completed
// slice preserves partial progress either way. A deadline elapsing
// mid-sequence cancels the remaining primitives and reports a timeout with
// whatever progress was recorded, never a silent truncation; a context the
// caller cancels is reported as canceled, not a timeout. Act is not
// retried automatically; a timed-out primitive may still have taken effect
// remotely.
func (a *Agent) Act(ctx context.Context, req *ActRequest) *ActResult {
	reqID := requestID()
	if req == nil || req.Instruction == "" {
		err := types.NewError(types.KindInvalidParams, reqID, "instruction must not be empty")
		return &ActResult{Result: types.Fail(reqID, err), Completed: []string{}}
	}

	driver, terr := a.begin()
	if terr != nil {
		return &ActResult{Result: types.Fail(terr.RequestID, terr), Completed: []string{}}
	}
	defer a.end()

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultActTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	completed := []string{}

	page, err := capturePage(ctx, driver)
	if err != nil {
		return &ActResult{Result: types.Fail(reqID, classify(ctx, reqID, err)), Completed: completed}
	}

	primitives, err := a.interpreter(reqID).Interpret(ctx, req.Instruction, page)
	if err != nil {
		return &ActResult{Result: types.Fail(reqID, classify(ctx, reqID, err)), Completed: completed}
	}
	a.logger.Debugf("act %q interpreted into %d primitives", req.Instruction, len(primitives))

	for _, p := range primitives {
		if ctxErr := ctx.Err(); ctxErr != nil {
			kind := types.KindTimeout
			reason := "deadline elapsed"
			if errors.Is(ctxErr, context.Canceled) {
				kind = types.KindCanceled
				reason = "canceled"
			}
			terr := types.NewError(kind, reqID,
				"%s after %d of %d primitives", reason, len(completed), len(primitives))
			return &ActResult{Result: types.Fail(reqID, terr), Completed: completed}
		}
		if err := execute(ctx, driver, p); err != nil {
			typed := classify(ctx, reqID, err)
			a.logger.Warnf("act primitive %q failed: %v", p.Describe(), err)
			return &ActResult{Result: types.Fail(reqID, typed), Completed: completed}
		}
		completed = append(completed, p.Describe())
	}

	return &ActResult{Result: types.Ok(reqID), Completed: completed}
}

// Observe returns a bounded, order-preserving list of candidate elements
// matching the instruction. An empty list is a valid success. Observe is
// read-only and safe to retry on timeout.
func (a *Agent) Observe(ctx context.Context, req *ObserveRequest) *ObserveResult {
	reqID := requestID()
	if req == nil || req.Instruction == "" {
		err := types.NewError(types.KindInvalidParams, reqID, "instruction must not be empty")
		return &ObserveResult{Result: types.Fail(reqID, err)}
	}

	driver, terr := a.begin()
	if terr != nil {
		return &ObserveResult{Result: types.Fail(terr.RequestID, terr)}
	}
	defer a.end()

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultObserveTimeout
	}
	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	page, err := capturePage(ctx, driver)
	if err != nil {
		return &ObserveResult{Result: types.Fail(reqID, classify(ctx, reqID, err))}
	}

	elements, err := a.interpreter(reqID).Observe(ctx, req.Instruction, page, maxResults)
	if err != nil {
		return &ObserveResult{Result: types.Fail(reqID, classify(ctx, reqID, err))}
	}
	if len(elements) > maxResults {
		elements = elements[:maxResults]
	}
	if elements == nil {
		elements = []ObservedElement{}
	}
	return &ObserveResult{Result: types.Ok(reqID), Elements: elements}
}

// Extract requests structured data for the instruction and validates it
// field-by-field against the request schema before returning it. A payload
// that does not conform is a validation_error naming the offending field
// path; the raw unvalidated payload is never surfaced. Extract is read-only
// and safe to retry on timeout.
func (a *Agent) Extract(ctx context.Context, req *ExtractRequest) *ExtractResult {
	reqID := requestID()
	if req == nil || req.Instruction == "" {
		err := types.NewError(types.KindInvalidParams, reqID, "instruction must not be empty")
		return &ExtractResult{Result: types.Fail(reqID, err)}
	}
	if err := req.Schema.Check(); err != nil {
		terr := types.WrapError(types.KindInvalidParams, reqID, err)
		return &ExtractResult{Result: types.Fail(reqID, terr)}
	}

	driver, terr := a.begin()
	if terr != nil {
		return &ExtractResult{Result: types.Fail(terr.RequestID, terr)}
	}
	defer a.end()

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultExtractTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	page, err := capturePage(ctx, driver)
	if err != nil {
		return &ExtractResult{Result: types.Fail(reqID, classify(ctx, reqID, err))}
	}

	raw, err := a.interpreter(reqID).Extract(ctx, req.Instruction, req.Schema, page)
	if err != nil {
		return &ExtractResult{Result: types.Fail(reqID, classify(ctx, reqID, err))}
	}

	if violation := req.Schema.Validate(raw); violation != nil {
		terr := &types.Error{
			Kind:      types.KindValidation,
			RequestID: reqID,
			FieldPath: violation.Path,
			Message:   violation.Reason,
		}
		a.logger.Warnf("extract %q rejected: %v", req.Instruction, violation)
		return &ExtractResult{Result: types.Fail(reqID, terr)}
	}
	return &ExtractResult{Result: types.Ok(reqID), Data: raw}
}

// interpreter returns the configured interpreter or a stand-in that fails
// with a configuration hint, so a missing interpreter surfaces as a typed
// failure instead of a nil dereference.
func (a *Agent) interpreter(reqID string) Interpreter {
	if a.interp != nil {
		return a.interp
	}
	return unconfiguredInterpreter{reqID: reqID}
}

// capturePage snapshots the current page for the interpreter.
func capturePage(ctx context.Context, driver Driver) (*PageContext, error) {
	url, err := driver.URL(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read page url: %w", err)
	}
	title, err := driver.Title(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read page title: %w", err)
	}
	html, err := driver.Content(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read page content: %w", err)
	}
	return &PageContext{URL: url, Title: title, Text: CondenseHTML(html, DefaultContextLimit)}, nil
}

// execute runs one primitive against the driver.
func execute(ctx context.Context, driver Driver, p Primitive) error {
	switch p.Kind {
	case PrimitiveNavigate:
		return driver.Navigate(ctx, p.Value)
	case PrimitiveClick:
		return driver.Click(ctx, p.Selector)
	case PrimitiveFill:
		return driver.Fill(ctx, p.Selector, p.Value)
	case PrimitivePress:
		return driver.Press(ctx, p.Selector, p.Value)
	case PrimitiveScroll:
		return driver.Scroll(ctx, p.Value)
	case PrimitiveWait:
		return driver.WaitFor(ctx, p.Selector)
	default:
		return fmt.Errorf("unknown primitive kind %q", p.Kind)
	}
}

// classify maps an operation error onto the SDK's error kinds: deadline
// expiry wins over whatever the underlying call reported, typed errors pass
// through, everything else is a remote rejection.
func classify(ctx context.Context, reqID string, err error) error {
	if ctx.Err() == context.DeadlineExceeded || errors.Is(err, context.DeadlineExceeded) {
		return types.WrapError(types.KindTimeout, reqID, err)
	}
	if ctx.Err() == context.Canceled || errors.Is(err, context.Canceled) {
		return types.WrapError(types.KindCanceled, reqID, err)
	}
	var typed *types.Error
	if errors.As(err, &typed) {
		return err
	}
	return types.WrapError(types.KindRemoteRejected, reqID, err)
}

type unconfiguredInterpreter struct {
	reqID string
}

func (u unconfiguredInterpreter) err() error {
	return types.NewError(types.KindInvalidParams, u.reqID,
		"no interpreter configured: pass browser.WithInterpreter or set %s", "OPENAI_API_KEY")
}

func (u unconfiguredInterpreter) Interpret(context.Context, string, *PageContext) ([]Primitive, error) {
	return nil, u.err()
}

func (u unconfiguredInterpreter) Observe(context.Context, string, *PageContext, int) ([]ObservedElement, error) {
	return nil, u.err()
}

func (u unconfiguredInterpreter) Extract(context.Context, string, *Schema, *PageContext) (json.RawMessage, error) {
	return nil, u.err()
}
