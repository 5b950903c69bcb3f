package errors

import (
	"fmt"
	"net/http"
	"time"

	"file-review-server/internal/models"
)

// JSON-RPC error codes (as per the JSON-RPC 2.0 specification).
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Application-specific error codes. Every one of these is a recoverable,
// structured response; the engine has no fatal internal error class.
const (
	// CodeFileSystemError covers ambient file system failures (not found,
	// permission denied). The specific kind lives in the data payload.
	CodeFileSystemError = -32001

	// CodeMatchError: the anchor occurred zero times or an unexpected
	// number of times. Data carries bounded suggestions or line numbers,
	// never file content.
	CodeMatchError = -32010

	// CodePreconditionError: create against an existing path, or append
	// against a missing one.
	CodePreconditionError = -32011

	// CodeSessionError: unknown, stale, or already-consumed session ID.
	CodeSessionError = -32012

	// CodeWriteError: commit-time I/O failure. The session survives so the
	// commit can be retried.
	CodeWriteError = -32013

	// CodeSizeLimitError: anchor exceeds the configured length limit and the
	// bypass flag was not set.
	CodeSizeLimitError = -32014
)

// NewErrorDetail creates a new ErrorDetail.
func NewErrorDetail(code int, message string, data interface{}) *models.ErrorDetail {
	return &models.ErrorDetail{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// NewParseError creates an ErrorDetail for JSON parsing errors.
func NewParseError(details string) *models.ErrorDetail {
	return NewErrorDetail(CodeParseError, "Parse error", map[string]string{"details": details})
}

// NewInvalidRequestError creates an ErrorDetail for invalid JSON-RPC Request objects.
func NewInvalidRequestError(details string) *models.ErrorDetail {
	return NewErrorDetail(CodeInvalidRequest, "Invalid Request", map[string]string{"details": details})
}

// NewMethodNotFoundError creates an ErrorDetail when a JSON-RPC method is not found.
func NewMethodNotFoundError(methodName string) *models.ErrorDetail {
	return NewErrorDetail(CodeMethodNotFound, "Method not found", map[string]string{"method": methodName})
}

// NewValidationError creates an ErrorDetail for requests whose fields resolve
// to no mode, or to more than one (e.g. a batch list combined with
// single-anchor fields).
func NewValidationError(summary string, paramIssues map[string]interface{}) *models.ErrorDetail {
	data := map[string]interface{}{"details": summary}
	if paramIssues != nil {
		data["param_issues"] = paramIssues
	}
	return NewErrorDetail(CodeInvalidParams, summary, data)
}

// NewInternalError creates an ErrorDetail for unexpected server errors.
func NewInternalError(details string) *models.ErrorDetail {
	return NewErrorDetail(CodeInternalError, "Internal error", map[string]string{"details": details})
}

// NewMatchZeroError reports an anchor that occurred nowhere in the content.
// Suggestions are ranked near-match candidates; the list is bounded by the
// matcher, regardless of file size.
func NewMatchZeroError(filename string, expected int, suggestions []models.Suggestion) *models.ErrorDetail {
	return NewErrorDetail(CodeMatchError,
		fmt.Sprintf("No occurrence of anchor_text found in '%s'", filename),
		map[string]interface{}{
			"filename":    filename,
			"occurrences": 0,
			"expected":    expected,
			"suggestions": suggestions,
			"type":        "match_zero",
		})
}

// NewMatchCountError reports an anchor whose occurrence count differs from
// the expected count. Lines lists every matching line so the caller can
// disambiguate or raise expected_occurrences.
func NewMatchCountError(filename string, occ int, expected int, lines []int) *models.ErrorDetail {
	return NewErrorDetail(CodeMatchError,
		fmt.Sprintf("anchor_text found %d times in '%s', expected %d", occ, filename, expected),
		map[string]interface{}{
			"filename":    filename,
			"occurrences": occ,
			"expected":    expected,
			"lines":       lines,
			"type":        "match_count",
		})
}

// NewPreconditionError reports a mode whose file-existence precondition does
// not hold (create of an existing path, append to a missing one).
func NewPreconditionError(filename, requirement string) *models.ErrorDetail {
	return NewErrorDetail(CodePreconditionError,
		fmt.Sprintf("Precondition failed for '%s': %s", filename, requirement),
		map[string]interface{}{
			"filename": filename,
			"details":  requirement,
			"type":     "precondition",
		})
}

// NewSessionError reports an unknown or already-consumed session ID.
func NewSessionError(sessionID, details string) *models.ErrorDetail {
	return NewErrorDetail(CodeSessionError,
		fmt.Sprintf("Unknown session '%s': %s", sessionID, details),
		map[string]interface{}{
			"session_id": sessionID,
			"details":    details,
			"type":       "session",
		})
}

// NewWriteError reports a commit-time I/O failure. The staged session is
// preserved so the commit can be retried without re-proposing.
func NewWriteError(filename, details string) *models.ErrorDetail {
	return NewErrorDetail(CodeWriteError,
		fmt.Sprintf("Failed to write '%s': %s", filename, details),
		map[string]interface{}{
			"filename": filename,
			"details":  details,
			"type":     "write",
		})
}

// NewSizeLimitError reports an oversized anchor submitted without the bypass flag.
func NewSizeLimitError(filename string, length, limit int) *models.ErrorDetail {
	return NewErrorDetail(CodeSizeLimitError,
		fmt.Sprintf("anchor_text is %d characters, limit is %d; split the change into smaller edits or set bypass_anchor_limit", length, limit),
		map[string]interface{}{
			"filename": filename,
			"length":   length,
			"limit":    limit,
			"type":     "size_limit",
		})
}

// NewFileSystemError creates a generic file system ErrorDetail.
func NewFileSystemError(filename, operation, details string) *models.ErrorDetail {
	return NewErrorDetail(CodeFileSystemError, "File system error", map[string]interface{}{
		"filename":  filename,
		"operation": operation,
		"details":   details,
	})
}

// NewFileNotFoundError creates an ErrorDetail for file not found errors.
func NewFileNotFoundError(filename, operation string) *models.ErrorDetail {
	return NewErrorDetail(CodeFileSystemError, fmt.Sprintf("File '%s' not found", filename), map[string]interface{}{
		"filename":  filename,
		"operation": operation,
		"type":      "file_not_found",
	})
}

// NewPermissionDeniedError creates an ErrorDetail for permission denied errors.
func NewPermissionDeniedError(filename, operation string) *models.ErrorDetail {
	return NewErrorDetail(CodeFileSystemError, fmt.Sprintf("Permission denied for file '%s'", filename), map[string]interface{}{
		"filename":  filename,
		"operation": operation,
		"type":      "permission_denied",
	})
}

// NewFileTooLargeError creates an ErrorDetail for files exceeding size limits.
func NewFileTooLargeError(filename string, size int64, maxSizeMB int) *models.ErrorDetail {
	return NewErrorDetail(CodeFileSystemError,
		fmt.Sprintf("File '%s' exceeds maximum allowed size of %d MB", filename, maxSizeMB),
		map[string]interface{}{
			"filename":    filename,
			"size":        size,
			"max_size_mb": maxSizeMB,
			"type":        "file_too_large",
		})
}

// ToErrorResponse converts an ErrorDetail to an HTTP models.ErrorResponse.
func ToErrorResponse(errDetail *models.ErrorDetail) *models.ErrorResponse {
	if errDetail == nil {
		return nil
	}
	return &models.ErrorResponse{Error: *errDetail}
}

// ToJSONRPCError converts an ErrorDetail to a models.JSONRPCError, lifting
// known data fields (filename, suggestions, occurrence counts) into the
// structured error data.
func ToJSONRPCError(errDetail *models.ErrorDetail) *models.JSONRPCError {
	if errDetail == nil {
		return nil
	}
	rpcErr := &models.JSONRPCError{
		Code:    errDetail.Code,
		Message: errDetail.Message,
	}
	if errDetail.Data == nil {
		return rpcErr
	}

	data := &models.JSONRPCErrorData{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	switch m := errDetail.Data.(type) {
	case map[string]string:
		data.Filename = m["filename"]
		data.Operation = m["operation"]
		data.Details = m["details"]
	case map[string]interface{}:
		if v, ok := m["filename"].(string); ok {
			data.Filename = v
		}
		if v, ok := m["operation"].(string); ok {
			data.Operation = v
		}
		if v, ok := m["details"].(string); ok {
			data.Details = v
		}
		if v, ok := m["occurrences"].(int); ok {
			data.Occurrences = &v
		}
		if v, ok := m["expected"].(int); ok {
			data.Expected = &v
		}
		if v, ok := m["lines"].([]int); ok {
			data.Lines = v
		}
		if v, ok := m["suggestions"].([]models.Suggestion); ok {
			data.Suggestions = v
		}
	default:
		data.Details = fmt.Sprintf("%v", errDetail.Data)
	}
	rpcErr.Data = data
	return rpcErr
}

// MapErrorToHTTPStatus maps an internal error code to an HTTP status code.
func MapErrorToHTTPStatus(errorCode int, errDetail *models.ErrorDetail) int {
	switch errorCode {
	case CodeParseError, CodeInvalidRequest, CodeInvalidParams:
		return http.StatusBadRequest
	case CodeMethodNotFound:
		return http.StatusNotFound
	case CodeInternalError:
		return http.StatusInternalServerError
	case CodeMatchError, CodePreconditionError:
		return http.StatusConflict
	case CodeSessionError:
		return http.StatusNotFound
	case CodeWriteError:
		return http.StatusInternalServerError
	case CodeSizeLimitError:
		return http.StatusRequestEntityTooLarge
	case CodeFileSystemError:
		if errDetail != nil {
			if m, ok := errDetail.Data.(map[string]interface{}); ok {
				switch m["type"] {
				case "file_not_found":
					return http.StatusNotFound
				case "permission_denied":
					return http.StatusForbidden
				case "file_too_large":
					return http.StatusRequestEntityTooLarge
				}
			}
		}
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
