package mcp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"file-review-server/internal/commit"
	"file-review-server/internal/config"
	"file-review-server/internal/filesystem"
	"file-review-server/internal/models"
	"file-review-server/internal/service"
	"file-review-server/internal/session"
)

func newTestProcessor(t *testing.T) *Processor {
	t.Helper()
	dir := t.TempDir()
	fs := filesystem.NewDefaultFileSystemAdapter()
	store := session.NewStore(zap.NewNop())
	engine := commit.NewEngine(fs, 2*time.Second, zap.NewNop())
	cfg := &config.Config{
		WorkingDirectory: dir,
		Transport:        "stdio",
		Port:             8080,
		MaxFileSizeMB:    10,
		MaxAnchorLength:  2000,
		MaxSuggestions:   5,
		LockTimeoutSec:   2,
		ReviewMode:       config.ReviewModeManual,
	}
	svc, err := service.NewDefaultReviewService(fs, store, engine, nil, cfg, zap.NewNop())
	require.NoError(t, err)
	return NewProcessor(svc)
}

func TestProcessInitialize(t *testing.T) {
	p := newTestProcessor(t)

	result, rpcErr := p.ProcessRequest(context.Background(), models.JSONRPCRequest{
		JSONRPC: "2.0", ID: 1, Method: "initialize",
	})
	require.Nil(t, rpcErr)

	init, ok := result.(*models.InitializeResponse)
	require.True(t, ok)
	assert.Equal(t, "file-review-server", init.ServerInfo.Name)
	assert.NotEmpty(t, init.ProtocolVersion)
}

func TestProcessToolsList(t *testing.T) {
	p := newTestProcessor(t)

	result, rpcErr := p.ProcessRequest(context.Background(), models.JSONRPCRequest{
		JSONRPC: "2.0", ID: 1, Method: "tools/list",
	})
	require.Nil(t, rpcErr)

	list, ok := result.(*models.ToolsListResponse)
	require.True(t, ok)

	names := make(map[string]models.ToolDefinition, len(list.Tools))
	for _, tool := range list.Tools {
		names[tool.Name] = tool
	}
	for _, want := range []string{"propose_edit", "resolve_review", "commit_review", "discard_session", "read_file", "list_files"} {
		_, ok := names[want]
		assert.True(t, ok, "missing tool %s", want)
	}
	assert.True(t, names["read_file"].Annotations.ReadOnlyHint)
	assert.True(t, names["propose_edit"].Annotations.DestructiveHint)
}

func TestProcessToolsCall(t *testing.T) {
	p := newTestProcessor(t)

	params, _ := json.Marshal(ToolCallParams{
		Name:      "propose_edit",
		Arguments: json.RawMessage(`{"path":"f.txt","anchor_text":"","replacement_text":"hello\n"}`),
	})
	result, rpcErr := p.ProcessRequest(context.Background(), models.JSONRPCRequest{
		JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: params,
	})
	require.Nil(t, rpcErr)

	toolResult, ok := result.(*models.MCPToolResult)
	require.True(t, ok)
	assert.False(t, toolResult.IsError)
	require.Len(t, toolResult.Content, 1)
	assert.Contains(t, toolResult.Content[0].Text, "pending_review")
}

func TestProcessToolCallServiceErrorIsToolError(t *testing.T) {
	p := newTestProcessor(t)

	params, _ := json.Marshal(ToolCallParams{
		Name:      "read_file",
		Arguments: json.RawMessage(`{"name":"missing.txt"}`),
	})
	result, rpcErr := p.ProcessRequest(context.Background(), models.JSONRPCRequest{
		JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: params,
	})
	require.Nil(t, rpcErr, "service failures are tool errors, not protocol errors")

	toolResult, ok := result.(*models.MCPToolResult)
	require.True(t, ok)
	assert.True(t, toolResult.IsError)
	assert.Contains(t, toolResult.Content[0].Text, "Error:")
}

func TestProcessUnknownTool(t *testing.T) {
	p := newTestProcessor(t)

	params, _ := json.Marshal(ToolCallParams{Name: "bogus", Arguments: json.RawMessage(`{}`)})
	result, rpcErr := p.ProcessRequest(context.Background(), models.JSONRPCRequest{
		JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: params,
	})
	require.Nil(t, rpcErr)

	toolResult, ok := result.(*models.MCPToolResult)
	require.True(t, ok)
	assert.True(t, toolResult.IsError)
	assert.Contains(t, toolResult.Content[0].Text, "Unknown tool")
}

func TestProcessUnknownMethod(t *testing.T) {
	p := newTestProcessor(t)

	_, rpcErr := p.ProcessRequest(context.Background(), models.JSONRPCRequest{
		JSONRPC: "2.0", ID: 1, Method: "resources/list",
	})
	require.NotNil(t, rpcErr)
	assert.Equal(t, -32601, rpcErr.Code)
}
