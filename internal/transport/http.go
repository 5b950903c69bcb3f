package transport

import (
	"context"
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"file-review-server/internal/errors"
	"file-review-server/internal/models"
	"file-review-server/internal/service"
)

const (
	defaultReadTimeout  = 60 * time.Second
	defaultWriteTimeout = 60 * time.Second
	// Watch-mode propose calls block on a human reviewer, so the write
	// timeout has to outlast a coffee break, not a request parse.
	watchWriteTimeout = 30 * time.Minute

	defaultMaxRequestSizeMB = 50
)

// HTTPHandler exposes the review operations as HTTP POST endpoints.
type HTTPHandler struct {
	service    service.ReviewService
	maxReqSize int64
	logger     *zap.Logger
	Server     *http.Server
}

// NewHTTPHandler creates a new HTTPHandler.
func NewHTTPHandler(svc service.ReviewService, logger *zap.Logger) *HTTPHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPHandler{
		service:    svc,
		maxReqSize: int64(defaultMaxRequestSizeMB) * 1024 * 1024,
		logger:     logger,
		Server:     &http.Server{},
	}
}

// RegisterRoutes sets up the HTTP routes for the handler.
func (h *HTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/propose_edit", h.handle("propose_edit"))
	mux.HandleFunc("/resolve_review", h.handle("resolve_review"))
	mux.HandleFunc("/commit_review", h.handle("commit_review"))
	mux.HandleFunc("/discard_session", h.handle("discard_session"))
	mux.HandleFunc("/read_file", h.handle("read_file"))
	mux.HandleFunc("/list_files", h.handle("list_files"))
	mux.HandleFunc("/health", h.handleHealthCheck)
}

func (h *HTTPHandler) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			h.logger.Error("encoding JSON response", zap.Error(err))
		}
	}
}

func (h *HTTPHandler) writeJSONErrorResponse(w http.ResponseWriter, httpStatusCode int, errorDetail *models.ErrorDetail) {
	if errorDetail == nil {
		errorDetail = errors.NewInternalError("An unexpected error occurred and error details were lost.")
		httpStatusCode = http.StatusInternalServerError
	}
	h.writeJSONResponse(w, httpStatusCode, models.ErrorResponse{Error: *errorDetail})
}

func (h *HTTPHandler) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handle builds the POST handler for one review method. Body decoding and
// error mapping are identical across methods; only the dispatch differs.
func (h *HTTPHandler) handle(method string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			errDetail := errors.NewInvalidRequestError(fmt.Sprintf("Method %s not allowed for /%s. Use POST.", r.Method, method))
			h.writeJSONErrorResponse(w, http.StatusMethodNotAllowed, errDetail)
			return
		}
		contentType := r.Header.Get("Content-Type")
		if !strings.HasPrefix(contentType, "application/json") {
			errDetail := errors.NewInvalidRequestError("Invalid Content-Type header. Must be 'application/json'.")
			h.writeJSONErrorResponse(w, http.StatusUnsupportedMediaType, errDetail)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, h.maxReqSize)
		defer func() { _ = r.Body.Close() }()

		body, errDetail := h.readBody(r)
		if errDetail != nil {
			h.writeJSONErrorResponse(w, errors.MapErrorToHTTPStatus(errDetail.Code, errDetail), errDetail)
			return
		}

		result, serviceErr := Dispatch(r.Context(), h.service, method, body)
		if serviceErr != nil {
			h.writeJSONErrorResponse(w, errors.MapErrorToHTTPStatus(serviceErr.Code, serviceErr), serviceErr)
			return
		}
		h.writeJSONResponse(w, http.StatusOK, result)
	}
}

func (h *HTTPHandler) readBody(r *http.Request) (json.RawMessage, *models.ErrorDetail) {
	var raw json.RawMessage
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&raw); err != nil {
		var maxBytesErr *http.MaxBytesError
		var syntaxErr *json.SyntaxError
		switch {
		case stdErrors.As(err, &maxBytesErr):
			return nil, errors.NewInvalidRequestError(
				fmt.Sprintf("Request body exceeds maximum size of %dMB.", defaultMaxRequestSizeMB))
		case stdErrors.As(err, &syntaxErr):
			return nil, errors.NewParseError(
				fmt.Sprintf("Invalid JSON syntax at offset %d: %s", syntaxErr.Offset, syntaxErr.Error()))
		default:
			return nil, errors.NewParseError(fmt.Sprintf("Failed to decode request body: %v", err))
		}
	}
	return raw, nil
}

// StartServer configures and runs the HTTP server until Shutdown.
func (h *HTTPHandler) StartServer(port int) error {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	h.Server.Addr = fmt.Sprintf(":%d", port)
	h.Server.Handler = mux
	h.Server.ReadTimeout = defaultReadTimeout
	h.Server.WriteTimeout = watchWriteTimeout

	h.logger.Info("HTTP server starting", zap.Int("port", port))
	err := h.Server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		h.logger.Error("HTTP server error", zap.Error(err))
		return err
	}
	h.logger.Info("HTTP server shut down", zap.Int("port", port))
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (h *HTTPHandler) Shutdown(ctx context.Context) error {
	return h.Server.Shutdown(ctx)
}
