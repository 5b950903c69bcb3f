package commit

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"file-review-server/internal/errors"
	"file-review-server/internal/filesystem"
)

func newTestEngine() *Engine {
	return NewEngine(filesystem.NewDefaultFileSystemAdapter(), 2*time.Second, zap.NewNop())
}

func TestCommitWritesContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	e := newTestEngine()

	errDetail := e.Commit(path, "hello\n")
	require.Nil(t, errDetail)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))
}

func TestCommitOverwritesExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(path, []byte("old\n"), 0o644))

	e := newTestEngine()
	require.Nil(t, e.Commit(path, "new\n"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new\n", string(data))
}

func TestCommitFailureIsWriteError(t *testing.T) {
	dir := t.TempDir()
	// Target parent directory does not exist, so the atomic write fails.
	path := filepath.Join(dir, "missing", "f.txt")

	e := newTestEngine()
	errDetail := e.Commit(path, "content\n")
	require.NotNil(t, errDetail)
	assert.Equal(t, errors.CodeWriteError, errDetail.Code)
}

func TestCommitSerializesViaLockFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	e := newTestEngine()

	require.Nil(t, e.Commit(path, "first\n"))
	require.Nil(t, e.Commit(path, "second\n"), "lock must be released after each commit")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second\n", string(data))
}
