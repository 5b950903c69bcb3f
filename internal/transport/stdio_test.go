package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"file-review-server/internal/commit"
	"file-review-server/internal/config"
	"file-review-server/internal/errors"
	"file-review-server/internal/filesystem"
	"file-review-server/internal/models"
	"file-review-server/internal/service"
	"file-review-server/internal/session"
)

func newTestReviewService(t *testing.T) (service.ReviewService, string) {
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
	return svc, dir
}

func runStdio(t *testing.T, svc service.ReviewService, input string) []models.JSONRPCResponse {
	t.Helper()
	handler := NewStdioHandler(svc, nil, zap.NewNop())
	var out bytes.Buffer
	require.NoError(t, handler.Start(context.Background(), strings.NewReader(input), &out))

	var responses []models.JSONRPCResponse
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		if line == "" {
			continue
		}
		var resp models.JSONRPCResponse
		require.NoError(t, json.Unmarshal([]byte(line), &resp))
		responses = append(responses, resp)
	}
	return responses
}

func TestStdioParseError(t *testing.T) {
	svc, _ := newTestReviewService(t)
	responses := runStdio(t, svc, "not json\n")
	require.Len(t, responses, 1)
	require.NotNil(t, responses[0].Error)
	assert.Equal(t, errors.CodeParseError, responses[0].Error.Code)
}

func TestStdioInvalidVersion(t *testing.T) {
	svc, _ := newTestReviewService(t)
	responses := runStdio(t, svc, `{"jsonrpc":"1.0","id":1,"method":"list_files"}`+"\n")
	require.Len(t, responses, 1)
	require.NotNil(t, responses[0].Error)
	assert.Equal(t, errors.CodeInvalidRequest, responses[0].Error.Code)
}

func TestStdioMethodNotFound(t *testing.T) {
	svc, _ := newTestReviewService(t)
	responses := runStdio(t, svc, `{"jsonrpc":"2.0","id":1,"method":"no_such_method"}`+"\n")
	require.Len(t, responses, 1)
	require.NotNil(t, responses[0].Error)
	assert.Equal(t, errors.CodeMethodNotFound, responses[0].Error.Code)
}

func TestStdioSkipsEmptyLinesAndNotifications(t *testing.T) {
	svc, _ := newTestReviewService(t)
	input := "\n" +
		`{"jsonrpc":"2.0","method":"notifications/initialized"}` + "\n" +
		`{"jsonrpc":"2.0","id":1,"method":"list_files"}` + "\n"
	responses := runStdio(t, svc, input)
	require.Len(t, responses, 1)
	assert.Nil(t, responses[0].Error)
}

func TestStdioProposeAndResolveRoundTrip(t *testing.T) {
	svc, dir := newTestReviewService(t)

	proposeLine := `{"jsonrpc":"2.0","id":1,"method":"propose_edit","params":{"path":"f.txt","anchor_text":"","replacement_text":"hello\n"}}` + "\n"
	responses := runStdio(t, svc, proposeLine)
	require.Len(t, responses, 1)
	require.Nil(t, responses[0].Error)

	result, err := json.Marshal(responses[0].Result)
	require.NoError(t, err)
	var propose models.ProposeEditResponse
	require.NoError(t, json.Unmarshal(result, &propose))
	assert.Equal(t, models.StatusPendingReview, propose.Status)
	require.NotEmpty(t, propose.SessionID)

	resolveLine := fmt.Sprintf(
		`{"jsonrpc":"2.0","id":2,"method":"resolve_review","params":{"session_id":%q,"returned_content":"hello\n"}}`+"\n",
		propose.SessionID)
	responses = runStdio(t, svc, resolveLine)
	require.Len(t, responses, 1)
	require.Nil(t, responses[0].Error)

	data, readErr := os.ReadFile(filepath.Join(dir, "f.txt"))
	require.NoError(t, readErr)
	assert.Equal(t, "hello\n", string(data))
}

func TestStdioErrorCarriesOperationContext(t *testing.T) {
	svc, _ := newTestReviewService(t)
	responses := runStdio(t, svc, `{"jsonrpc":"2.0","id":1,"method":"read_file","params":{"name":"missing.txt"}}`+"\n")
	require.Len(t, responses, 1)
	require.NotNil(t, responses[0].Error)
	require.NotNil(t, responses[0].Error.Data)
	assert.Equal(t, "read_file", responses[0].Error.Data.Operation)
	assert.NotEmpty(t, responses[0].Error.Data.Timestamp)
}

func TestDispatchUnknownMethod(t *testing.T) {
	svc, _ := newTestReviewService(t)
	_, errDetail := Dispatch(context.Background(), svc, "bogus", nil)
	require.NotNil(t, errDetail)
	assert.Equal(t, errors.CodeMethodNotFound, errDetail.Code)
}
