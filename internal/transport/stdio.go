package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"file-review-server/internal/errors"
	"file-review-server/internal/models"
	"file-review-server/internal/service"
)

// stdio line scanner buffer; staged file bodies travel inline in params.
const maxLineBytes = 64 * 1024 * 1024

// MCPRequestProcessor handles the MCP protocol methods (initialize,
// tools/list, tools/call) when the stdio transport is used as an MCP server.
type MCPRequestProcessor interface {
	ProcessRequest(ctx context.Context, req models.JSONRPCRequest) (interface{}, *models.JSONRPCError)
}

// StdioHandler handles JSON-RPC communication over standard input/output,
// one request per line.
type StdioHandler struct {
	service   service.ReviewService
	processor MCPRequestProcessor // nil disables the MCP methods
	logger    *zap.Logger
}

// NewStdioHandler creates a new StdioHandler. processor may be nil, in which
// case only the direct review methods are served.
func NewStdioHandler(svc service.ReviewService, processor MCPRequestProcessor, logger *zap.Logger) *StdioHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StdioHandler{service: svc, processor: processor, logger: logger}
}

func (h *StdioHandler) writeResponse(writer io.Writer, response models.JSONRPCResponse) {
	responseBytes, err := json.Marshal(response)
	if err != nil {
		h.logger.Error("marshaling JSON-RPC response", zap.Error(err), zap.Any("id", response.ID))
		fallback := models.JSONRPCResponse{
			JSONRPC: "2.0",
			ID:      response.ID,
			Error:   errors.ToJSONRPCError(errors.NewInternalError("Server error: failed to marshal response.")),
		}
		responseBytes, _ = json.Marshal(fallback)
	}
	if _, err := fmt.Fprintln(writer, string(responseBytes)); err != nil {
		h.logger.Error("writing JSON-RPC response", zap.Error(err))
	}
}

// Start processes JSON-RPC requests from input until EOF or ctx cancellation.
func (h *StdioHandler) Start(ctx context.Context, input io.Reader, output io.Writer) error {
	h.logger.Info("stdio JSON-RPC handler started")
	scanner := bufio.NewScanner(input)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lineBytes := scanner.Bytes()
		if len(bytes.TrimSpace(lineBytes)) == 0 {
			continue
		}

		var jsonReq models.JSONRPCRequest
		if err := json.Unmarshal(lineBytes, &jsonReq); err != nil {
			h.writeResponse(output, models.JSONRPCResponse{
				JSONRPC: "2.0",
				Error:   errors.ToJSONRPCError(errors.NewParseError(fmt.Sprintf("Invalid JSON received: %v", err))),
			})
			continue
		}

		jsonResp := models.JSONRPCResponse{JSONRPC: "2.0", ID: jsonReq.ID}

		if jsonReq.JSONRPC != "2.0" {
			jsonResp.Error = errors.ToJSONRPCError(errors.NewInvalidRequestError("Invalid JSON-RPC version. Must be '2.0'."))
			h.writeResponse(output, jsonResp)
			continue
		}
		if jsonReq.Method == "" {
			jsonResp.Error = errors.ToJSONRPCError(errors.NewInvalidRequestError("Method not specified."))
			h.writeResponse(output, jsonResp)
			continue
		}
		// Notifications carry no ID and expect no response.
		if strings.HasPrefix(jsonReq.Method, "notifications/") {
			continue
		}

		if h.processor != nil && isMCPMethod(jsonReq.Method) {
			result, rpcErr := h.processor.ProcessRequest(ctx, jsonReq)
			if rpcErr != nil {
				jsonResp.Error = rpcErr
			} else {
				jsonResp.Result = result
			}
			h.writeResponse(output, jsonResp)
			continue
		}

		result, serviceErr := Dispatch(ctx, h.service, jsonReq.Method, jsonReq.Params)
		if serviceErr != nil {
			rpcError := errors.ToJSONRPCError(serviceErr)
			if rpcError.Data == nil {
				rpcError.Data = &models.JSONRPCErrorData{}
			}
			rpcError.Data.Operation = jsonReq.Method
			if rpcError.Data.Timestamp == "" {
				rpcError.Data.Timestamp = time.Now().UTC().Format(time.RFC3339)
			}
			jsonResp.Error = rpcError
		} else {
			jsonResp.Result = result
		}
		h.writeResponse(output, jsonResp)
	}

	if err := scanner.Err(); err != nil {
		h.logger.Error("reading from stdio", zap.Error(err))
		return err
	}
	h.logger.Info("stdio JSON-RPC handler finished")
	return nil
}

func isMCPMethod(method string) bool {
	switch method {
	case "initialize", "tools/list", "tools/call":
		return true
	}
	return false
}

// Dispatch routes a decoded method name and raw params to the service. It is
// shared by the stdio transport and the MCP tools/call path.
func Dispatch(ctx context.Context, svc service.ReviewService, method string, params json.RawMessage) (interface{}, *models.ErrorDetail) {
	switch method {
	case "propose_edit":
		var req models.ProposeEditRequest
		if errDetail := decodeParams(params, method, &req); errDetail != nil {
			return nil, errDetail
		}
		return noNilResult(svc.ProposeEdit(ctx, req))
	case "resolve_review":
		var req models.ResolveReviewRequest
		if errDetail := decodeParams(params, method, &req); errDetail != nil {
			return nil, errDetail
		}
		return noNilResult(svc.ResolveReview(req))
	case "commit_review":
		var req models.CommitReviewRequest
		if errDetail := decodeParams(params, method, &req); errDetail != nil {
			return nil, errDetail
		}
		return noNilResult(svc.CommitReview(req))
	case "discard_session":
		var req models.DiscardSessionRequest
		if errDetail := decodeParams(params, method, &req); errDetail != nil {
			return nil, errDetail
		}
		return noNilResult(svc.DiscardSession(req))
	case "read_file":
		var req models.ReadFileRequest
		if errDetail := decodeParams(params, method, &req); errDetail != nil {
			return nil, errDetail
		}
		return noNilResult(svc.ReadFile(req))
	case "list_files":
		var req models.ListFilesRequest
		if errDetail := decodeParams(params, method, &req); errDetail != nil {
			return nil, errDetail
		}
		return noNilResult(svc.ListFiles(req))
	default:
		return nil, errors.NewMethodNotFoundError(method)
	}
}

func decodeParams(params json.RawMessage, method string, dst interface{}) *models.ErrorDetail {
	if len(params) == 0 || string(params) == "null" {
		return nil
	}
	if err := json.Unmarshal(params, dst); err != nil {
		return errors.NewValidationError(fmt.Sprintf("invalid params for %s: %v", method, err), nil)
	}
	return nil
}

// noNilResult collapses a typed nil service response into an untyped nil so
// json encoding never sees a non-nil interface holding a nil pointer.
func noNilResult[T any](resp *T, errDetail *models.ErrorDetail) (interface{}, *models.ErrorDetail) {
	if errDetail != nil {
		return nil, errDetail
	}
	return resp, nil
}
