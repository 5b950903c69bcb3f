// Package commit performs the single mutating write of an approved review:
// lock the target, write the staged bytes atomically, unlock.
package commit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	apperrors "file-review-server/internal/errors"
	"file-review-server/internal/filesystem"
	"file-review-server/internal/models"
)

// ErrLockTimeout is returned when acquiring the commit lock times out.
var ErrLockTimeout = fmt.Errorf("timeout acquiring lock")

// lockPollInterval is the interval to sleep when polling for the lock.
const lockPollInterval = 10 * time.Millisecond

// Engine serializes commits to a target path against concurrent writers
// via an OS-level advisory lock on a sibling .lock file.
type Engine struct {
	fs          filesystem.FileSystemAdapter
	lockTimeout time.Duration
	logger      *zap.Logger
}

// NewEngine creates a commit engine writing through fs.
func NewEngine(fs filesystem.FileSystemAdapter, lockTimeout time.Duration, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{fs: fs, lockTimeout: lockTimeout, logger: logger}
}

// Commit writes content to path under an exclusive advisory lock. The write
// itself is atomic (temp file plus rename), so a failure at any point leaves
// the previous file content intact.
func (e *Engine) Commit(path, content string) *models.ErrorDetail {
	lock, err := e.acquire(path)
	if err != nil {
		e.logger.Warn("commit lock not acquired", zap.String("path", path), zap.Error(err))
		return apperrors.NewWriteError(path, err.Error())
	}
	defer func() { _ = lock.Unlock() }()

	if err := e.fs.WriteFileBytesAtomic(path, []byte(content), 0o644); err != nil {
		e.logger.Error("commit write failed", zap.String("path", path), zap.Error(err))
		return apperrors.NewWriteError(path, err.Error())
	}
	e.logger.Info("commit applied", zap.String("path", path), zap.Int("bytes", len(content)))
	return nil
}

func (e *Engine) acquire(path string) (*flock.Flock, error) {
	ctx, cancel := context.WithTimeout(context.Background(), e.lockTimeout)
	defer cancel()

	fileLock := flock.New(path + ".lock")
	locked, err := fileLock.TryLockContext(ctx, lockPollInterval)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, ErrLockTimeout
		}
		return nil, fmt.Errorf("error acquiring file lock for %s: %w", path, err)
	}
	if !locked {
		return nil, ErrLockTimeout
	}
	return fileLock, nil
}
