// Package mcp adapts the review operations to the Model Context Protocol
// method surface: initialize, tools/list, tools/call.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"file-review-server/internal/models"
	"file-review-server/internal/service"
	"file-review-server/internal/transport"
)

const (
	protocolVersion = "2024-11-05"
	serverName      = "file-review-server"
	serverVersion   = "1.0.0"
)

// ToolCallParams represents the parameters for a tools/call request.
type ToolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Processor handles MCP requests on top of the review service.
type Processor struct {
	service service.ReviewService
}

// NewProcessor creates a new Processor.
func NewProcessor(svc service.ReviewService) *Processor {
	return &Processor{service: svc}
}

// ProcessRequest dispatches one MCP JSON-RPC request. It returns the method
// result for protocol methods, or a JSON-RPC error for malformed requests.
// Tool-level failures are reported inside an MCPToolResult with IsError set,
// per MCP convention.
func (p *Processor) ProcessRequest(ctx context.Context, req models.JSONRPCRequest) (interface{}, *models.JSONRPCError) {
	switch req.Method {
	case "initialize":
		return &models.InitializeResponse{
			ProtocolVersion: protocolVersion,
			Capabilities:    models.Capabilities{},
			ServerInfo: models.ServerInfo{
				Name:        serverName,
				Version:     serverVersion,
				Description: "Human-in-the-loop file editing: every change is staged for review before it reaches disk.",
			},
		}, nil
	case "tools/list":
		return &models.ToolsListResponse{Tools: toolDefinitions()}, nil
	case "tools/call":
		var params ToolCallParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return nil, &models.JSONRPCError{
				Code:    -32602,
				Message: "Invalid parameters for tools/call: " + err.Error(),
			}
		}
		return p.handleToolCall(ctx, params.Name, params.Arguments)
	default:
		return nil, &models.JSONRPCError{
			Code:    -32601,
			Message: "Method not found: " + req.Method,
		}
	}
}

func (p *Processor) handleToolCall(ctx context.Context, toolName string, toolArgs json.RawMessage) (*models.MCPToolResult, *models.JSONRPCError) {
	if !isKnownTool(toolName) {
		return &models.MCPToolResult{
			Content: []models.MCPToolContent{{Type: "text", Text: "Error: Unknown tool '" + toolName + "'."}},
			IsError: true,
		}, nil
	}

	result, serviceErr := transport.Dispatch(ctx, p.service, toolName, toolArgs)
	if serviceErr != nil {
		return &models.MCPToolResult{
			Content: []models.MCPToolContent{{Type: "text", Text: formatToolError(serviceErr)}},
			IsError: true,
		}, nil
	}

	text, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, &models.JSONRPCError{
			Code:    -32603,
			Message: "Failed to encode tool result: " + err.Error(),
		}
	}
	return &models.MCPToolResult{
		Content: []models.MCPToolContent{{Type: "text", Text: string(text)}},
	}, nil
}

func isKnownTool(name string) bool {
	for _, def := range toolDefinitions() {
		if def.Name == name {
			return true
		}
	}
	return false
}

func formatToolError(serviceErr *models.ErrorDetail) string {
	if serviceErr == nil {
		return "Error: An unexpected error occurred, but no details were provided."
	}
	msg := fmt.Sprintf("Error: %s (Code: %d)", serviceErr.Message, serviceErr.Code)
	if serviceErr.Data != nil {
		if data, err := json.Marshal(serviceErr.Data); err == nil {
			msg += "\nDetails: " + string(data)
		}
	}
	return msg
}

func toolDefinitions() []models.ToolDefinition {
	return []models.ToolDefinition{
		{
			Name: "propose_edit",
			Description: "Stage a change to a file for human review. The anchor_text is replaced by " +
				"replacement_text; reserved anchors select create (empty), overwrite (OVERWRITE_FILE) or " +
				"append (APPEND_TO_FILE) mode. An edits list applies several replacements atomically. " +
				"Nothing is written to disk until the review is approved.",
			ArgumentsSchema: models.Schema{
				"type": "object",
				"properties": map[string]interface{}{
					"path":                 map[string]interface{}{"type": "string", "description": "Target file, relative to the working directory."},
					"anchor_text":          map[string]interface{}{"type": "string", "description": "Literal text to replace, or a reserved sentinel."},
					"replacement_text":     map[string]interface{}{"type": "string", "description": "Replacement text or full content for sentinel modes."},
					"edits":                map[string]interface{}{"type": "array", "description": "Ordered anchor/replacement pairs, all-or-nothing."},
					"expected_occurrences": map[string]interface{}{"type": "integer", "description": "Required anchor occurrence count; defaults to 1."},
					"bypass_anchor_limit":  map[string]interface{}{"type": "boolean", "description": "Disable the anchor length guard."},
					"session_id":           map[string]interface{}{"type": "string", "description": "Continue a revised session instead of starting from disk."},
				},
				"required": []string{"path"},
			},
			Annotations: models.ToolAnnotations{DestructiveHint: true},
		},
		{
			Name: "resolve_review",
			Description: "Deliver the reviewer's version of a staged file. Byte-identical content commits " +
				"the proposal to disk; any difference records a revision and keeps the session open.",
			ArgumentsSchema: models.Schema{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id":       map[string]interface{}{"type": "string"},
					"returned_content": map[string]interface{}{"type": "string", "description": "Full file body as the reviewer left it."},
				},
				"required": []string{"session_id", "returned_content"},
			},
			Annotations: models.ToolAnnotations{DestructiveHint: true},
		},
		{
			Name:        "commit_review",
			Description: "Retry the durable write for a session whose earlier commit failed.",
			ArgumentsSchema: models.Schema{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id": map[string]interface{}{"type": "string"},
				},
				"required": []string{"session_id"},
			},
			Annotations: models.ToolAnnotations{DestructiveHint: true},
		},
		{
			Name:        "discard_session",
			Description: "Abandon a staged proposal without writing anything to disk.",
			ArgumentsSchema: models.Schema{
				"type": "object",
				"properties": map[string]interface{}{
					"session_id": map[string]interface{}{"type": "string"},
				},
				"required": []string{"session_id"},
			},
			Annotations: models.ToolAnnotations{},
		},
		{
			Name:        "read_file",
			Description: "Read a file (optionally a line range) from the working directory.",
			ArgumentsSchema: models.Schema{
				"type": "object",
				"properties": map[string]interface{}{
					"name":       map[string]interface{}{"type": "string"},
					"start_line": map[string]interface{}{"type": "integer"},
					"end_line":   map[string]interface{}{"type": "integer"},
				},
				"required": []string{"name"},
			},
			Annotations: models.ToolAnnotations{ReadOnlyHint: true},
		},
		{
			Name:            "list_files",
			Description:     "List the non-hidden files in the working directory.",
			ArgumentsSchema: models.Schema{"type": "object", "properties": map[string]interface{}{}},
			Annotations:     models.ToolAnnotations{ReadOnlyHint: true},
		},
	}
}
