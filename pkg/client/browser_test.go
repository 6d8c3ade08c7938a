package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agbcloud/agb-go/pkg/browser"
	"github.com/agbcloud/agb-go/pkg/types"
)

// pageDriver is an in-memory browser page. Click fails for selectors listed
// in missing, the way a real page rejects actions on elements that are not
// there.
type pageDriver struct {
	url     string
	html    string
	missing map[string]bool
	clicked []string
}

func (d *pageDriver) URL(ctx context.Context) (string, error)     { return d.url, nil }
func (d *pageDriver) Title(ctx context.Context) (string, error)   { return "Login", nil }
func (d *pageDriver) Content(ctx context.Context) (string, error) { return d.html, nil }
func (d *pageDriver) Navigate(ctx context.Context, url string) error {
	d.url = url
	return nil
}
func (d *pageDriver) Click(ctx context.Context, selector string) error {
	if d.missing[selector] {
		return fmt.Errorf("no element matches %s", selector)
	}
	d.clicked = append(d.clicked, selector)
	return nil
}
func (d *pageDriver) Fill(ctx context.Context, selector, value string) error { return nil }
func (d *pageDriver) Press(ctx context.Context, selector, key string) error  { return nil }
func (d *pageDriver) Scroll(ctx context.Context, delta string) error         { return nil }
func (d *pageDriver) WaitFor(ctx context.Context, selector string) error     { return nil }
func (d *pageDriver) Close() error                                           { return nil }

// clickInterpreter resolves every instruction to a single click on a fixed
// selector.
type clickInterpreter struct {
	selector string
}

func (i *clickInterpreter) Interpret(ctx context.Context, instruction string, page *browser.PageContext) ([]browser.Primitive, error) {
	return []browser.Primitive{{Kind: browser.PrimitiveClick, Selector: i.selector}}, nil
}

func (i *clickInterpreter) Observe(ctx context.Context, instruction string, page *browser.PageContext, maxResults int) ([]browser.ObservedElement, error) {
	return nil, errors.New("not used")
}

func (i *clickInterpreter) Extract(ctx context.Context, instruction string, schema *browser.Schema, page *browser.PageContext) (json.RawMessage, error) {
	return nil, errors.New("not used")
}

// Exercises the full path from session creation through a failing browser
// action: the agent initializes against the fake control plane, the
// interpreter proposes a click, the driver rejects it, and the failure
// surfaces as remote_rejected with no completed primitives.
func TestBrowserActThroughSession(t *testing.T) {
	plane := newFakeControlPlane()
	driver := &pageDriver{
		url:     "https://example.test/login",
		html:    `<html><body><button id="other">Other</button></body></html>`,
		missing: map[string]bool{"#login": true},
	}

	c := newTestClient(t, plane,
		WithInterpreter(&clickInterpreter{selector: "#login"}),
		WithBrowserOptions(browser.WithConnector(func(ctx context.Context, endpointURL string) (browser.Driver, error) {
			return driver, nil
		})),
	)

	created := c.Create(context.Background(), &CreateSessionParams{
		Labels:  map[string]string{"env": "test"},
		ImageID: BrowserImageID,
	})
	require.True(t, created.Success, created.ErrorMessage)

	agent := created.Session.Browser()
	init := agent.Initialize(context.Background(), nil)
	require.True(t, init.Success, init.ErrorMessage)
	assert.Equal(t, "ws://127.0.0.1:9222/devtools", init.EndpointURL)

	act := agent.Act(context.Background(), &browser.ActRequest{
		Instruction: "click the login button",
		Timeout:     5 * time.Second,
	})
	require.False(t, act.Success)
	assert.Empty(t, act.Completed, "the failing primitive completed nothing")
	assert.Contains(t, act.ErrorMessage, string(types.KindRemoteRejected))
	assert.NotEmpty(t, act.RequestID)

	// The agent is usable again after the failure.
	assert.Equal(t, browser.StateReady, agent.State())

	// A retried act against a fixed page succeeds.
	driver.missing = nil
	retry := agent.Act(context.Background(), &browser.ActRequest{Instruction: "click the login button"})
	require.True(t, retry.Success, retry.ErrorMessage)
	assert.Len(t, retry.Completed, 1)
	assert.Equal(t, []string{"#login"}, driver.clicked)
}

// A deleted session takes its browser agent down with it.
func TestBrowserAgentClosedWithSession(t *testing.T) {
	plane := newFakeControlPlane()
	c := newTestClient(t, plane,
		WithInterpreter(&clickInterpreter{selector: "#x"}),
		WithBrowserOptions(browser.WithConnector(func(ctx context.Context, endpointURL string) (browser.Driver, error) {
			return &pageDriver{}, nil
		})),
	)

	created := c.Create(context.Background(), &CreateSessionParams{ImageID: BrowserImageID})
	require.True(t, created.Success)

	agent := created.Session.Browser()
	init := agent.Initialize(context.Background(), nil)
	require.True(t, init.Success, init.ErrorMessage)

	deleted := c.Delete(context.Background(), created.Session)
	require.True(t, deleted.Success)

	act := agent.Act(context.Background(), &browser.ActRequest{Instruction: "click something"})
	require.False(t, act.Success)
	assert.Contains(t, act.ErrorMessage, string(types.KindAgentClosed))
}
