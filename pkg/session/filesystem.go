package session

import (
	"context"

	"github.com/agbcloud/agb-go/pkg/transport"
	"github.com/agbcloud/agb-go/pkg/types"
)

// FileSystemModule reads and writes files inside the session's sandbox.
// These are plain request/response wrappers: the sandbox holds the state,
// the module holds none.
type FileSystemModule struct {
	router *Router
}

// ReadFile returns the contents of a file in the sandbox.
func (m *FileSystemModule) ReadFile(ctx context.Context, path string) *types.FileResult {
	if path == "" {
		err := types.NewError(types.KindInvalidParams, transport.LocalRequestID(), "path must not be empty")
		return &types.FileResult{Result: failResult(err)}
	}

	resp, err := m.router.Dispatch(ctx, transport.CapabilityFileSystem, "read_file", map[string]any{
		"path": path,
	}, 0)
	if err != nil {
		return &types.FileResult{Result: failResult(err)}
	}
	if !resp.Success {
		return &types.FileResult{Result: types.Fail(resp.RequestID, remoteErr(resp))}
	}

	var payload struct {
		Content string `json:"content"`
	}
	if err := decodeData(resp, &payload); err != nil {
		return &types.FileResult{Result: failResult(err)}
	}
	return &types.FileResult{Result: types.Ok(resp.RequestID), Content: payload.Content}
}

// WriteFile writes content to a file in the sandbox, creating parent
// directories as needed.
func (m *FileSystemModule) WriteFile(ctx context.Context, path, content string) *types.WriteResult {
	if path == "" {
		err := types.NewError(types.KindInvalidParams, transport.LocalRequestID(), "path must not be empty")
		return &types.WriteResult{Result: failResult(err)}
	}

	resp, err := m.router.Dispatch(ctx, transport.CapabilityFileSystem, "write_file", map[string]any{
		"path":    path,
		"content": content,
	}, 0)
	if err != nil {
		return &types.WriteResult{Result: failResult(err)}
	}
	if !resp.Success {
		return &types.WriteResult{Result: types.Fail(resp.RequestID, remoteErr(resp))}
	}
	return &types.WriteResult{Result: types.Ok(resp.RequestID)}
}

// ListDirectory lists a sandbox directory in remote-reported order.
func (m *FileSystemModule) ListDirectory(ctx context.Context, path string) *types.DirectoryResult {
	if path == "" {
		err := types.NewError(types.KindInvalidParams, transport.LocalRequestID(), "path must not be empty")
		return &types.DirectoryResult{Result: failResult(err)}
	}

	resp, err := m.router.Dispatch(ctx, transport.CapabilityFileSystem, "list_directory", map[string]any{
		"path": path,
	}, 0)
	if err != nil {
		return &types.DirectoryResult{Result: failResult(err)}
	}
	if !resp.Success {
		return &types.DirectoryResult{Result: types.Fail(resp.RequestID, remoteErr(resp))}
	}

	var payload struct {
		Entries []types.DirEntry `json:"entries"`
	}
	if err := decodeData(resp, &payload); err != nil {
		return &types.DirectoryResult{Result: failResult(err)}
	}
	return &types.DirectoryResult{Result: types.Ok(resp.RequestID), Entries: payload.Entries}
}
