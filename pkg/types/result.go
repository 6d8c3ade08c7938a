// Package types defines the shared leaf types of the AGB SDK: the result
// envelope every operation returns, the typed results for each capability,
// and the error kinds used across the client, session, and browser layers.
//
// Every public SDK operation returns a result struct embedding Result rather
// than propagating errors through panics or bare error returns. Callers
// branch on Success before touching payload fields; on failure ErrorMessage
// describes what went wrong and RequestID correlates the call with remote
// logs even when the request never reached the network.
package types

// Result is the universal outcome envelope embedded by every typed result.
type Result struct {
	// RequestID correlates the call with remote service logs. It is always
	// present: assigned by the remote side when the call reached it, or
	// generated locally when the call failed before any network access.
	RequestID string

	// Success reports whether the operation completed as requested.
	Success bool

	// ErrorMessage describes the failure. Set iff Success is false.
	ErrorMessage string
}

// Ok returns a success envelope for the given request id.
func Ok(requestID string) Result {
	return Result{RequestID: requestID, Success: true}
}

// Fail returns a failure envelope carrying the error's message. A nil error
// yields an unspecified failure message rather than an empty one so callers
// never see a failed result with no explanation.
func Fail(requestID string, err error) Result {
	msg := "unspecified error"
	if err != nil {
		msg = err.Error()
	}
	return Result{RequestID: requestID, ErrorMessage: msg}
}

// DeleteResult is the outcome of deleting a session.
type DeleteResult struct {
	Result
}

// CodeResult is the outcome of running code inside a session.
type CodeResult struct {
	Result

	// Output is the combined stdout/stderr of the executed code.
	Output string
}

// CommandResult is the outcome of executing a shell command inside a session.
type CommandResult struct {
	Result

	// Output is the combined stdout/stderr of the command.
	Output string

	// ExitCode is the command's exit status. Only meaningful on success.
	ExitCode int
}

// FileResult is the outcome of reading a file from a session's filesystem.
type FileResult struct {
	Result

	// Content is the file's contents.
	Content string
}

// WriteResult is the outcome of writing a file into a session's filesystem.
type WriteResult struct {
	Result
}

// DirectoryResult is the outcome of listing a directory in a session.
type DirectoryResult struct {
	Result

	// Entries are the directory entries in remote-reported order.
	Entries []DirEntry
}

// DirEntry is one entry of a directory listing.
type DirEntry struct {
	Name  string `json:"name"`
	IsDir bool   `json:"is_dir"`
	Size  int64  `json:"size"`
}

// UploadResult is the outcome of uploading session data to object storage.
type UploadResult struct {
	Result
}

// DownloadResult is the outcome of downloading object-storage data into a
// session.
type DownloadResult struct {
	Result
}

// KeyListResult is the outcome of listing object-storage keys.
type KeyListResult struct {
	Result

	// Keys are the matching object keys in remote-reported order.
	Keys []string
}

// LabelResult is the outcome of reading a session's labels.
type LabelResult struct {
	Result

	// Labels is the label mapping as the remote control plane reports it.
	Labels map[string]string
}

// InfoResult is the outcome of querying a session's remote metadata.
type InfoResult struct {
	Result

	// Info carries the control plane's view of the session.
	Info SessionInfo
}

// SessionInfo is the control plane's record of one session.
type SessionInfo struct {
	SessionID string            `json:"session_id"`
	ImageID   string            `json:"image_id"`
	Labels    map[string]string `json:"labels,omitempty"`
}
