package client

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agbcloud/agb-go/pkg/transport"
)

// fakeControlPlane is an in-memory stand-in for the remote control plane and
// module endpoints. It assigns session ids, tracks live sessions, and counts
// every transport call.
type fakeControlPlane struct {
	mu       sync.Mutex
	nextID   int
	sessions map[string]map[string]string // session id -> labels
	images   map[string]string
	calls    int
	failNext string // operation name that should fail once
}

func newFakeControlPlane() *fakeControlPlane {
	return &fakeControlPlane{
		sessions: map[string]map[string]string{},
		images:   map[string]string{},
	}
}

func (f *fakeControlPlane) Call(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	reqID := fmt.Sprintf("req-%d", f.calls)

	if f.failNext == req.Operation {
		f.failNext = ""
		return &transport.Response{RequestID: reqID, Success: false, ErrorMessage: "injected failure"}, nil
	}

	switch req.Operation {
	case "create":
		f.nextID++
		id := fmt.Sprintf("sess-%04d", f.nextID)
		payload := req.Payload.(map[string]any)
		labels, _ := payload["labels"].(map[string]string)
		image, _ := payload["image_id"].(string)
		f.sessions[id] = labels
		f.images[id] = image
		data, _ := json.Marshal(map[string]any{
			"session_id": id,
			"image_id":   image,
			"labels":     labels,
		})
		return &transport.Response{RequestID: reqID, Success: true, Data: data}, nil
	case "list":
		infos := make([]map[string]any, 0, len(f.sessions))
		for id, labels := range f.sessions {
			infos = append(infos, map[string]any{
				"session_id": id,
				"image_id":   f.images[id],
				"labels":     labels,
			})
		}
		data, _ := json.Marshal(map[string]any{"sessions": infos})
		return &transport.Response{RequestID: reqID, Success: true, Data: data}, nil
	case "delete":
		delete(f.sessions, req.SessionID)
		return &transport.Response{RequestID: reqID, Success: true}, nil
	case "initialize":
		data, _ := json.Marshal(map[string]any{"endpoint_url": "ws://127.0.0.1:9222/devtools"})
		return &transport.Response{RequestID: reqID, Success: true, Data: data}, nil
	default:
		return &transport.Response{RequestID: reqID, Success: true, Data: json.RawMessage(`{}`)}, nil
	}
}

func (f *fakeControlPlane) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestClient(t *testing.T, plane *fakeControlPlane, opts ...Option) *Client {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("AGB_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	opts = append([]Option{WithAPIKey("test-key"), WithTransport(plane)}, opts...)
	c, err := New(opts...)
	require.NoError(t, err)
	return c
}

func TestNew_RequiresAPIKey(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("AGB_API_KEY", "")
	_, err := New()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AGB_API_KEY")
}

func TestCreate_RegistersHandle(t *testing.T) {
	plane := newFakeControlPlane()
	c := newTestClient(t, plane)

	result := c.Create(context.Background(), &CreateSessionParams{
		Labels: map[string]string{"env": "test"},
	})
	require.True(t, result.Success, result.ErrorMessage)
	require.NotNil(t, result.Session)
	assert.NotEmpty(t, result.Session.SessionID())
	assert.Equal(t, DefaultImageID, result.Session.ImageID())
	assert.Equal(t, "test", result.Session.Labels()["env"])

	registered, ok := c.Get(result.Session.SessionID())
	require.True(t, ok)
	assert.Same(t, result.Session, registered)
}

func TestCreate_FailureRegistersNothing(t *testing.T) {
	plane := newFakeControlPlane()
	plane.failNext = "create"
	c := newTestClient(t, plane)

	result := c.Create(context.Background(), nil)
	require.False(t, result.Success)
	assert.Nil(t, result.Session)
	assert.NotEmpty(t, result.RequestID, "failures still carry a request id")

	list := c.List(context.Background())
	require.True(t, list.Success)
	assert.Empty(t, list.Sessions)
}

func TestDelete_ClosedHandleFailsFastWithoutNetwork(t *testing.T) {
	plane := newFakeControlPlane()
	c := newTestClient(t, plane)

	created := c.Create(context.Background(), nil)
	require.True(t, created.Success)
	sess := created.Session

	deleted := c.Delete(context.Background(), sess)
	require.True(t, deleted.Success, deleted.ErrorMessage)
	assert.True(t, sess.Closed())

	before := plane.callCount()
	run := sess.Command().Execute(context.Background(), "ls", nil)
	require.False(t, run.Success)
	assert.Contains(t, run.ErrorMessage, "closed")
	assert.Equal(t, before, plane.callCount(), "module calls on a deleted session must not reach the network")
}

func TestDelete_IsIdempotent(t *testing.T) {
	plane := newFakeControlPlane()
	c := newTestClient(t, plane)

	created := c.Create(context.Background(), nil)
	require.True(t, created.Success)

	first := c.Delete(context.Background(), created.Session)
	require.True(t, first.Success)

	before := plane.callCount()
	second := c.Delete(context.Background(), created.Session)
	require.True(t, second.Success, "second delete is a success-shaped no-op")
	assert.Equal(t, before, plane.callCount(), "the no-op makes no remote call")
}

func TestDelete_NilSessionFails(t *testing.T) {
	c := newTestClient(t, newFakeControlPlane())
	result := c.Delete(context.Background(), nil)
	require.False(t, result.Success)
}

func TestList_ReflectsRemoteView(t *testing.T) {
	plane := newFakeControlPlane()
	c := newTestClient(t, plane)

	created := c.Create(context.Background(), nil)
	require.True(t, created.Success)

	// A session created by another process appears in the remote view.
	plane.mu.Lock()
	plane.sessions["sess-other"] = map[string]string{"owner": "elsewhere"}
	plane.images["sess-other"] = "agb-code-space-1"
	plane.mu.Unlock()

	list := c.List(context.Background())
	require.True(t, list.Success)
	require.Len(t, list.Sessions, 2)

	// The locally created handle is reused, not rebuilt.
	for _, s := range list.Sessions {
		if s.SessionID() == created.Session.SessionID() {
			assert.Same(t, created.Session, s)
		}
	}
}

func TestListMatching_FiltersByLabelGlob(t *testing.T) {
	plane := newFakeControlPlane()
	c := newTestClient(t, plane)

	for _, env := range []string{"prod-eu", "prod-us", "staging"} {
		result := c.Create(context.Background(), &CreateSessionParams{
			Labels: map[string]string{"env": env},
		})
		require.True(t, result.Success)
	}

	matched := c.ListMatching(context.Background(), "env=prod-*")
	require.True(t, matched.Success, matched.ErrorMessage)
	require.Len(t, matched.Sessions, 2)
	for _, s := range matched.Sessions {
		assert.Contains(t, s.Labels()["env"], "prod-")
	}
}

func TestListMatching_RejectsBadPatternLocally(t *testing.T) {
	plane := newFakeControlPlane()
	c := newTestClient(t, plane)

	before := plane.callCount()
	result := c.ListMatching(context.Background(), "no-equals-sign")
	require.False(t, result.Success)
	assert.Equal(t, before, plane.callCount())

	result = c.ListMatching(context.Background(), "env=[")
	require.False(t, result.Success)
	assert.Equal(t, before, plane.callCount())
}

func TestConcurrentCreateDelete(t *testing.T) {
	plane := newFakeControlPlane()
	c := newTestClient(t, plane)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result := c.Create(context.Background(), nil)
			if !assert.True(t, result.Success) {
				return
			}
			deleted := c.Delete(context.Background(), result.Session)
			assert.True(t, deleted.Success)
		}()
	}
	wg.Wait()

	list := c.List(context.Background())
	require.True(t, list.Success)
	assert.Empty(t, list.Sessions)
}
