package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/agbcloud/agb-go/pkg/types"
)

// Default per-operation timeouts. Act covers multi-step sequences and gets
// the widest bound; Observe and Extract are single round-trips.
const (
	DefaultActTimeout     = 120 * time.Second
	DefaultObserveTimeout = 60 * time.Second
	DefaultExtractTimeout = 60 * time.Second

	// DefaultMaxResults bounds Observe candidate lists when the caller does
	// not specify a limit.
	DefaultMaxResults = 10
)

// State is the agent's lifecycle state.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateBusy
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateBusy:
		return "busy"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// InitializeOptions configures the remote browser process.
type InitializeOptions struct {
	// Viewport sets the browser viewport. Nil selects the remote default.
	Viewport *Viewport

	// UserAgent overrides the browser's user agent when non-empty.
	UserAgent string

	// Stealth enables the remote side's bot-detection mitigations.
	Stealth bool

	// Timeout bounds the initialize call. Zero selects the browser module's
	// default timeout.
	Timeout time.Duration
}

// Viewport is the browser viewport size in pixels.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// InitializeResult is the outcome of starting the remote browser.
type InitializeResult struct {
	types.Result

	// EndpointURL is the CDP endpoint of the remote browser. Callers may
	// connect their own tooling to it alongside the agent.
	EndpointURL string
}

// ActRequest asks the agent to carry out one natural-language action.
type ActRequest struct {
	// Instruction is the natural-language description of the action, for
	// example "click the login button".
	Instruction string

	// Timeout bounds the whole action, including interpretation and every
	// primitive. Zero selects DefaultActTimeout.
	Timeout time.Duration
}

// ActResult is the outcome of an Act call. On failure, Completed preserves
// partial progress: the descriptions of the primitives that executed before
// the failure, in order.
type ActResult struct {
	types.Result

	// Completed lists the primitives that executed successfully, in
	// execution order. On success it covers the whole sequence.
	Completed []string
}

// ObserveRequest asks the agent for candidate elements matching an
// instruction.
type ObserveRequest struct {
	// Instruction describes what to look for, for example "all links in the
	// navigation bar".
	Instruction string

	// MaxResults bounds the candidate list. Zero selects DefaultMaxResults.
	MaxResults int

	// Timeout bounds the call. Zero selects DefaultObserveTimeout.
	Timeout time.Duration
}

// ObserveResult is the outcome of an Observe call. An empty Elements slice
// with Success true means nothing matched; that is a valid answer, not a
// failure.
type ObserveResult struct {
	types.Result

	// Elements are the candidates in interpreter-reported order, truncated
	// to the request's MaxResults.
	Elements []ObservedElement
}

// ObservedElement is one candidate element.
type ObservedElement struct {
	// Selector locates the element, suitable for a follow-up Act.
	Selector string `json:"selector"`

	// Description says what the element is in the interpreter's words.
	Description string `json:"description"`

	// Role is the element's semantic role when known (button, link, input).
	Role string `json:"role,omitempty"`

	// Text is the element's visible text when known.
	Text string `json:"text,omitempty"`
}

// ExtractRequest asks the agent for structured data conforming to a schema.
type ExtractRequest struct {
	// Instruction describes what to extract, for example "the product name
	// and price of every item in the results list".
	Instruction string

	// Schema is the contract the extracted payload must satisfy. Required.
	Schema *Schema

	// Timeout bounds the call. Zero selects DefaultExtractTimeout.
	Timeout time.Duration
}

// ExtractResult is the outcome of an Extract call. Data is set only when the
// payload validated against the request schema; a non-conforming payload is
// reported as a validation_error naming the offending field and Data stays
// empty.
type ExtractResult struct {
	types.Result

	// Data is the validated payload.
	Data json.RawMessage
}

// Decode unmarshals the validated payload into v.
func (r *ExtractResult) Decode(v any) error {
	if !r.Success {
		return fmt.Errorf("cannot decode failed extraction: %s", r.ErrorMessage)
	}
	return json.Unmarshal(r.Data, v)
}

// PrimitiveKind identifies one primitive browser operation.
type PrimitiveKind string

const (
	PrimitiveNavigate PrimitiveKind = "navigate"
	PrimitiveClick    PrimitiveKind = "click"
	PrimitiveFill     PrimitiveKind = "fill"
	PrimitivePress    PrimitiveKind = "press"
	PrimitiveScroll   PrimitiveKind = "scroll"
	PrimitiveWait     PrimitiveKind = "wait"
)

// Primitive is one step of an interpreted action sequence.
type Primitive struct {
	// Kind selects the operation.
	Kind PrimitiveKind `json:"kind"`

	// Selector locates the target element. Unused for navigate and scroll.
	Selector string `json:"selector,omitempty"`

	// Value is the operation argument: the URL for navigate, the text for
	// fill, the key for press, the scroll delta in pixels for scroll.
	Value string `json:"value,omitempty"`
}

// Describe renders the primitive for progress reporting.
func (p Primitive) Describe() string {
	switch p.Kind {
	case PrimitiveNavigate:
		return fmt.Sprintf("navigate %s", p.Value)
	case PrimitiveScroll:
		return fmt.Sprintf("scroll %s", p.Value)
	case PrimitiveFill:
		return fmt.Sprintf("fill %s", p.Selector)
	case PrimitivePress:
		return fmt.Sprintf("press %s on %s", p.Value, p.Selector)
	default:
		return fmt.Sprintf("%s %s", p.Kind, p.Selector)
	}
}

// PageContext is the snapshot of the current page handed to the interpreter
// with every call.
type PageContext struct {
	// URL is the page's current address.
	URL string

	// Title is the page title.
	Title string

	// Text is the condensed page content: visible text plus interactive
	// elements with their selectors, bounded in size.
	Text string
}

// Interpreter is the opaque perception/action service. Implementations turn
// one instruction plus page context into primitives, candidates, or raw
// structured data; they never execute anything themselves.
type Interpreter interface {
	// Interpret returns the ordered primitive sequence realizing the
	// instruction on the given page.
	Interpret(ctx context.Context, instruction string, page *PageContext) ([]Primitive, error)

	// Observe returns up to maxResults candidate elements matching the
	// instruction, in relevance order. An empty slice means nothing
	// matched.
	Observe(ctx context.Context, instruction string, page *PageContext, maxResults int) ([]ObservedElement, error)

	// Extract returns raw structured data for the instruction. The agent
	// validates it against the caller's schema; implementations receive the
	// schema only to shape their answer.
	Extract(ctx context.Context, instruction string, schema *Schema, page *PageContext) (json.RawMessage, error)
}
