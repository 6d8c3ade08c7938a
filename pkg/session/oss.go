package session

import (
	"context"

	"github.com/gobwas/glob"

	"github.com/agbcloud/agb-go/pkg/transport"
	"github.com/agbcloud/agb-go/pkg/types"
)

// OSSModule transfers data between the session's sandbox and the account's
// object storage. Transfers happen entirely on the remote side; the local
// client only issues the instruction.
type OSSModule struct {
	router *Router
}

// Upload copies a sandbox file to object storage under the given key.
func (m *OSSModule) Upload(ctx context.Context, path, key string) *types.UploadResult {
	if path == "" || key == "" {
		err := types.NewError(types.KindInvalidParams, transport.LocalRequestID(),
			"path and key must not be empty")
		return &types.UploadResult{Result: failResult(err)}
	}

	resp, err := m.router.Dispatch(ctx, transport.CapabilityOSS, "upload", map[string]any{
		"path": path,
		"key":  key,
	}, 0)
	if err != nil {
		return &types.UploadResult{Result: failResult(err)}
	}
	if !resp.Success {
		return &types.UploadResult{Result: types.Fail(resp.RequestID, remoteErr(resp))}
	}
	return &types.UploadResult{Result: types.Ok(resp.RequestID)}
}

// Download copies an object-storage object into the sandbox at the given
// path.
func (m *OSSModule) Download(ctx context.Context, key, path string) *types.DownloadResult {
	if path == "" || key == "" {
		err := types.NewError(types.KindInvalidParams, transport.LocalRequestID(),
			"key and path must not be empty")
		return &types.DownloadResult{Result: failResult(err)}
	}

	resp, err := m.router.Dispatch(ctx, transport.CapabilityOSS, "download", map[string]any{
		"key":  key,
		"path": path,
	}, 0)
	if err != nil {
		return &types.DownloadResult{Result: failResult(err)}
	}
	if !resp.Success {
		return &types.DownloadResult{Result: types.Fail(resp.RequestID, remoteErr(resp))}
	}
	return &types.DownloadResult{Result: types.Ok(resp.RequestID)}
}

// List returns object keys under prefix. When pattern is non-empty it is a
// glob ("reports/*.csv") applied client-side to the returned keys; order is
// preserved. A malformed pattern is an invalid_params failure before any
// network access.
func (m *OSSModule) List(ctx context.Context, prefix, pattern string) *types.KeyListResult {
	var matcher glob.Glob
	if pattern != "" {
		g, err := glob.Compile(pattern)
		if err != nil {
			typed := types.NewError(types.KindInvalidParams, transport.LocalRequestID(),
				"invalid key pattern %q: %v", pattern, err)
			return &types.KeyListResult{Result: failResult(typed)}
		}
		matcher = g
	}

	resp, err := m.router.Dispatch(ctx, transport.CapabilityOSS, "list", map[string]any{
		"prefix": prefix,
	}, 0)
	if err != nil {
		return &types.KeyListResult{Result: failResult(err)}
	}
	if !resp.Success {
		return &types.KeyListResult{Result: types.Fail(resp.RequestID, remoteErr(resp))}
	}

	var payload struct {
		Keys []string `json:"keys"`
	}
	if err := decodeData(resp, &payload); err != nil {
		return &types.KeyListResult{Result: failResult(err)}
	}

	keys := payload.Keys
	if matcher != nil {
		filtered := make([]string, 0, len(keys))
		for _, k := range keys {
			if matcher.Match(k) {
				filtered = append(filtered, k)
			}
		}
		keys = filtered
	}
	return &types.KeyListResult{Result: types.Ok(resp.RequestID), Keys: keys}
}
