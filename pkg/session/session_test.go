package session

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agbcloud/agb-go/pkg/transport"
	"github.com/agbcloud/agb-go/pkg/types"
)

// recordingCaller captures every transport request and answers from a
// per-operation script. The call counter backs the no-network assertions.
type recordingCaller struct {
	mu        sync.Mutex
	requests  []*transport.Request
	responses map[string]*transport.Response
	errs      map[string]error
}

func newRecordingCaller() *recordingCaller {
	return &recordingCaller{
		responses: map[string]*transport.Response{},
		errs:      map[string]error{},
	}
}

func (c *recordingCaller) respond(operation string, data string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses[operation] = &transport.Response{
		RequestID: "req-" + operation,
		Success:   true,
		Data:      json.RawMessage(data),
	}
}

func (c *recordingCaller) fail(operation, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.responses[operation] = &transport.Response{
		RequestID:    "req-" + operation,
		Success:      false,
		ErrorMessage: message,
	}
}

func (c *recordingCaller) Call(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
	if err, ok := c.errs[req.Operation]; ok {
		return nil, err
	}
	if resp, ok := c.responses[req.Operation]; ok {
		return resp, nil
	}
	return &transport.Response{RequestID: "req-default", Success: true, Data: json.RawMessage(`{}`)}, nil
}

func (c *recordingCaller) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

func (c *recordingCaller) last() *transport.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.requests) == 0 {
		return nil
	}
	return c.requests[len(c.requests)-1]
}

func newTestSession(caller transport.Caller) *Session {
	return New("sess-123", "agb-code-space-1", map[string]string{"env": "test"}, caller)
}

func TestSession_Accessors(t *testing.T) {
	s := newTestSession(newRecordingCaller())
	assert.Equal(t, "sess-123", s.SessionID())
	assert.Equal(t, "agb-code-space-1", s.ImageID())
	assert.Equal(t, map[string]string{"env": "test"}, s.Labels())
	assert.False(t, s.Closed())
}

func TestSession_LabelsReturnsCopy(t *testing.T) {
	s := newTestSession(newRecordingCaller())
	labels := s.Labels()
	labels["env"] = "mutated"
	assert.Equal(t, "test", s.Labels()["env"])
}

func TestRouter_StampsSessionIdentity(t *testing.T) {
	caller := newRecordingCaller()
	s := newTestSession(caller)
	caller.respond("execute", `{"output": "ok", "exit_code": 0}`)

	result := s.Command().Execute(context.Background(), "ls", nil)
	require.True(t, result.Success, result.ErrorMessage)

	req := caller.last()
	assert.Equal(t, "sess-123", req.SessionID)
	assert.Equal(t, transport.CapabilityCommand, req.Capability)
}

func TestRouter_AppliesModuleDefaultTimeouts(t *testing.T) {
	tests := []struct {
		name string
		call func(s *Session) time.Duration
		want time.Duration
	}{
		{
			name: "command gets a short default",
			call: func(s *Session) time.Duration { return DefaultCommandTimeout },
			want: 30 * time.Second,
		},
		{
			name: "code gets a long default",
			call: func(s *Session) time.Duration { return DefaultCodeTimeout },
			want: 300 * time.Second,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.call(nil))
		})
	}

	caller := newRecordingCaller()
	s := newTestSession(caller)
	caller.respond("execute", `{"output": "", "exit_code": 0}`)
	caller.respond("run", `{"output": ""}`)

	s.Command().Execute(context.Background(), "ls", nil)
	assert.Equal(t, DefaultCommandTimeout, caller.last().Timeout)

	s.Code().Run(context.Background(), "print(1)", LanguagePython, nil)
	assert.Equal(t, DefaultCodeTimeout, caller.last().Timeout)

	s.Command().Execute(context.Background(), "sleep 1", &ExecOptions{Timeout: 2 * time.Second})
	assert.Equal(t, 2*time.Second, caller.last().Timeout)
}

func TestRouter_ClosedSessionFailsWithoutNetwork(t *testing.T) {
	caller := newRecordingCaller()
	s := newTestSession(caller)
	s.MarkClosed()

	result := s.Command().Execute(context.Background(), "ls", nil)
	require.False(t, result.Success)
	assert.Contains(t, result.ErrorMessage, "closed")
	assert.Equal(t, 0, caller.count(), "closed sessions must not reach the network")

	code := s.Code().Run(context.Background(), "print(1)", LanguagePython, nil)
	require.False(t, code.Success)
	file := s.FileSystem().ReadFile(context.Background(), "/tmp/x")
	require.False(t, file.Success)
	assert.Equal(t, 0, caller.count())
}

func TestCode_RejectsUnsupportedLanguageLocally(t *testing.T) {
	caller := newRecordingCaller()
	s := newTestSession(caller)

	result := s.Code().Run(context.Background(), "puts 1", "ruby", nil)
	require.False(t, result.Success)
	assert.Contains(t, result.ErrorMessage, "ruby")
	assert.NotEmpty(t, result.RequestID, "request id present even without a remote call")
	assert.Equal(t, 0, caller.count())
}

func TestCode_RunDecodesOutput(t *testing.T) {
	caller := newRecordingCaller()
	s := newTestSession(caller)
	caller.respond("run", `{"output": "hello\n"}`)

	result := s.Code().Run(context.Background(), `print("hello")`, LanguagePython, nil)
	require.True(t, result.Success, result.ErrorMessage)
	assert.Equal(t, "hello\n", result.Output)
	assert.Equal(t, "req-run", result.RequestID)
}

func TestCommand_RemoteFailureKeepsRequestID(t *testing.T) {
	caller := newRecordingCaller()
	s := newTestSession(caller)
	caller.fail("execute", "command not found")

	result := s.Command().Execute(context.Background(), "nope", nil)
	require.False(t, result.Success)
	assert.Equal(t, "req-execute", result.RequestID)
	assert.Contains(t, result.ErrorMessage, "command not found")
}

func TestFileSystem_RoundTrip(t *testing.T) {
	caller := newRecordingCaller()
	s := newTestSession(caller)
	caller.respond("read_file", `{"content": "data"}`)
	caller.respond("list_directory", `{"entries": [{"name": "a.txt", "is_dir": false, "size": 4}]}`)

	write := s.FileSystem().WriteFile(context.Background(), "/tmp/a.txt", "data")
	require.True(t, write.Success, write.ErrorMessage)

	read := s.FileSystem().ReadFile(context.Background(), "/tmp/a.txt")
	require.True(t, read.Success)
	assert.Equal(t, "data", read.Content)

	list := s.FileSystem().ListDirectory(context.Background(), "/tmp")
	require.True(t, list.Success)
	require.Len(t, list.Entries, 1)
	assert.Equal(t, "a.txt", list.Entries[0].Name)
}

func TestFileSystem_EmptyPathFailsLocally(t *testing.T) {
	caller := newRecordingCaller()
	s := newTestSession(caller)

	result := s.FileSystem().ReadFile(context.Background(), "")
	require.False(t, result.Success)
	assert.Equal(t, 0, caller.count())
}

func TestOSS_ListFiltersWithGlob(t *testing.T) {
	caller := newRecordingCaller()
	s := newTestSession(caller)
	caller.respond("list", `{"keys": ["reports/2026/jan.csv", "reports/2026/jan.pdf", "reports/2026/feb.csv"]}`)

	result := s.OSS().List(context.Background(), "reports/", "reports/*/[jf]*.csv")
	require.True(t, result.Success, result.ErrorMessage)
	assert.Equal(t, []string{"reports/2026/jan.csv", "reports/2026/feb.csv"}, result.Keys)
}

func TestOSS_ListRejectsBadPatternLocally(t *testing.T) {
	caller := newRecordingCaller()
	s := newTestSession(caller)

	result := s.OSS().List(context.Background(), "reports/", "[")
	require.False(t, result.Success)
	assert.Equal(t, 0, caller.count())
}

func TestOSS_UploadValidatesArgs(t *testing.T) {
	caller := newRecordingCaller()
	s := newTestSession(caller)

	result := s.OSS().Upload(context.Background(), "", "key")
	require.False(t, result.Success)
	assert.Equal(t, 0, caller.count())

	ok := s.OSS().Upload(context.Background(), "/tmp/report.csv", "reports/report.csv")
	require.True(t, ok.Success, ok.ErrorMessage)
	assert.Equal(t, transport.CapabilityOSS, caller.last().Capability)
}

func TestSession_SetLabelsUpdatesLocalCopy(t *testing.T) {
	caller := newRecordingCaller()
	s := newTestSession(caller)

	result := s.SetLabels(context.Background(), map[string]string{"env": "prod"})
	require.True(t, result.Success, result.ErrorMessage)
	assert.Equal(t, "prod", s.Labels()["env"])
}

func TestSession_GetLabelsPrefersRemoteView(t *testing.T) {
	caller := newRecordingCaller()
	s := newTestSession(caller)
	caller.respond("get_labels", `{"labels": {"env": "staging", "owner": "ops"}}`)

	result := s.GetLabels(context.Background())
	require.True(t, result.Success)
	assert.Equal(t, "staging", result.Labels["env"])
	assert.Equal(t, "staging", s.Labels()["env"], "remote labels replace the local copy")
}

func TestSession_TimeoutErrorSurfacesKind(t *testing.T) {
	caller := newRecordingCaller()
	caller.errs["execute"] = types.NewError(types.KindTimeout, "req-t", "deadline exceeded")
	s := newTestSession(caller)

	result := s.Command().Execute(context.Background(), "sleep 100", nil)
	require.False(t, result.Success)
	assert.Equal(t, "req-t", result.RequestID, "request id from the typed error is preserved")
}
