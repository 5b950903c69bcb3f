// Package reviewdir stages proposals on disk for file-based review. Each
// session gets its own directory holding the current file content alongside
// the proposed version; a reviewer edits (or leaves untouched) the proposed
// file in any editor, and the surface picks up the saved result.
package reviewdir

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"file-review-server/internal/filesystem"
)

const (
	currentPrefix  = "current_"
	proposedPrefix = "proposed_"

	// settleDelay lets rapid editor saves (write + rename dances) settle
	// before the proposed file is read back.
	settleDelay = 200 * time.Millisecond
)

// Surface stages review sessions under a base directory.
type Surface struct {
	mu      sync.Mutex
	baseDir string
	fs      filesystem.FileSystemAdapter
	logger  *zap.Logger
}

// NewSurface creates a review surface rooted at baseDir.
func NewSurface(baseDir string, fs filesystem.FileSystemAdapter, logger *zap.Logger) *Surface {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Surface{baseDir: baseDir, fs: fs, logger: logger}
}

// Stage writes the session's current and proposed file contents into a
// per-session directory and returns that directory. currentContent may be
// empty for new files; the current_ file is written regardless so the
// reviewer always sees both sides.
func (s *Surface) Stage(sessionID, name, currentContent, proposedContent string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Join(s.baseDir, sessionID)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating review directory: %w", err)
	}
	if err := s.fs.WriteFileBytesAtomic(filepath.Join(dir, currentPrefix+name), []byte(currentContent), 0o644); err != nil {
		return "", fmt.Errorf("staging current content: %w", err)
	}
	if err := s.fs.WriteFileBytesAtomic(filepath.Join(dir, proposedPrefix+name), []byte(proposedContent), 0o644); err != nil {
		return "", fmt.Errorf("staging proposed content: %w", err)
	}
	s.logger.Info("review staged",
		zap.String("session_id", sessionID),
		zap.String("dir", dir),
		zap.String("file", name))
	return dir, nil
}

// ProposedPath returns the path of the proposed file within a staged
// session directory.
func (s *Surface) ProposedPath(dir, name string) string {
	return filepath.Join(dir, proposedPrefix+name)
}

// AwaitReturn blocks until the proposed file in dir is saved by the
// reviewer, then reads it back. It returns the reviewer's version of the
// content, or the context's error if the wait is cancelled first.
func (s *Surface) AwaitReturn(ctx context.Context, dir, name string) (string, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return "", fmt.Errorf("creating watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(dir); err != nil {
		return "", fmt.Errorf("watching review directory: %w", err)
	}

	target := s.ProposedPath(dir, name)
	var settle *time.Timer
	var settleCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return "", fmt.Errorf("watcher closed")
			}
			if event.Name != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			// Restart the settle timer on every event so a burst of
			// saves is read back only once.
			if settle == nil {
				settle = time.NewTimer(settleDelay)
				settleCh = settle.C
			} else {
				if !settle.Stop() {
					<-settle.C
				}
				settle.Reset(settleDelay)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return "", fmt.Errorf("watcher closed")
			}
			s.logger.Warn("review watcher error", zap.Error(err))

		case <-settleCh:
			data, err := s.fs.ReadFileBytes(target)
			if err != nil {
				if os.IsNotExist(err) {
					// Editor may still be mid-rename; keep waiting.
					settle.Reset(settleDelay)
					continue
				}
				return "", fmt.Errorf("reading returned content: %w", err)
			}
			return string(data), nil
		}
	}
}

// Cleanup removes a staged session directory.
func (s *Surface) Cleanup(dir string) {
	if dir == "" {
		return
	}
	if err := s.fs.RemoveAll(dir); err != nil {
		s.logger.Warn("review cleanup failed", zap.String("dir", dir), zap.Error(err))
	}
}
