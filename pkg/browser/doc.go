// Package browser implements the session-scoped browser agent: natural-
// language action execution (Act), page observation (Observe), and
// schema-validated structured extraction (Extract) against a remotely hosted
// browser reachable over its CDP endpoint.
//
// # Architecture
//
// The agent composes three collaborators, all injectable for testing:
//
//  1. A capability router bound to the owning session's browser endpoint,
//     used to start and stop the remote browser process.
//  2. A Driver connected to the remote browser's CDP endpoint, used to run
//     primitive operations (navigate, click, fill, press, scroll, wait) and
//     to capture page context. The production driver is Playwright's
//     ConnectOverCDP.
//  3. An Interpreter, the opaque perception/action service that turns one
//     instruction plus page context into a primitive sequence, a candidate
//     element list, or raw structured data. The production interpreter calls
//     an OpenAI-compatible chat-completions API; the interpretation logic is
//     never reimplemented locally.
//
// # Lifecycle
//
// The agent is a state machine: Uninitialized → Initializing → Ready ⇄ Busy
// → Closed. Initialize starts the remote browser, records its CDP endpoint,
// and connects the driver; a failed Initialize rolls back to Uninitialized
// and may be retried. Close releases the remote browser from any state;
// every call on a closed agent fails with agent_closed.
//
// # Concurrency
//
// The remote browser is a single-threaded resource from the agent's point of
// view, so operations are serialized: while one Act, Observe, or Extract
// call is in flight the agent is Busy and a second call is rejected with
// agent_busy rather than queued. Agents on different sessions are fully
// independent.
//
// # Retry semantics
//
// Observe and Extract are read-only and safe to retry on timeout. Act is
// never retried automatically: a timed-out action may still complete
// remotely, and replaying a click or form submission can change remote state
// irreversibly. Act reports per-primitive partial progress so callers can
// decide what a retry would repeat.
package browser
