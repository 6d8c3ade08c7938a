package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/agbcloud/agb-go/pkg/types"
)

// envelope is the POST body sent to every endpoint.
type envelope struct {
	SessionID string `json:"session_id,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// HTTPClient is the production Caller. It posts JSON to
// <endpoint>/v1/<capability>/<operation> with bearer authentication.
type HTTPClient struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewHTTPClient creates a transport against the given endpoint. The
// http.Client carries no timeout of its own; per-call deadlines come from
// the request's Timeout field.
func NewHTTPClient(endpoint, apiKey string) *HTTPClient {
	return &HTTPClient{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{},
	}
}

// Call executes one remote call. Timeout is applied as a context deadline;
// deadline expiry maps to KindTimeout, connection failures to
// KindRemoteUnavailable. A decodable remote envelope is returned as-is even
// on HTTP error status, so semantic failures keep their remote request id.
func (c *HTTPClient) Call(ctx context.Context, req *Request) (*Response, error) {
	if req.Timeout <= 0 {
		return nil, types.NewError(types.KindInvalidParams, LocalRequestID(),
			"transport call without timeout: %s/%s", req.Capability, req.Operation)
	}

	ctx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	body, err := json.Marshal(envelope{SessionID: req.SessionID, Payload: req.Payload})
	if err != nil {
		return nil, types.WrapError(types.KindInvalidParams, LocalRequestID(), err)
	}

	url := fmt.Sprintf("%s/v1/%s/%s", c.endpoint, req.Capability, req.Operation)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, types.WrapError(types.KindInvalidParams, LocalRequestID(), err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			return nil, types.WrapError(types.KindTimeout, LocalRequestID(), err)
		}
		return nil, types.WrapError(types.KindRemoteUnavailable, LocalRequestID(), err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, types.WrapError(types.KindRemoteUnavailable, LocalRequestID(), err)
	}

	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, types.NewError(types.KindRemoteUnavailable, LocalRequestID(),
			"undecodable response from %s/%s (status %d)", req.Capability, req.Operation, httpResp.StatusCode)
	}
	if resp.RequestID == "" {
		resp.RequestID = LocalRequestID()
	}
	return &resp, nil
}
