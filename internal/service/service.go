// Package service orchestrates the review lifecycle: classify the request,
// stage a proposal, arbitrate the human's return, commit or revise.
package service

import (
	"context"
	stdErrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"file-review-server/internal/commit"
	"file-review-server/internal/config"
	"file-review-server/internal/edit"
	"file-review-server/internal/errors"
	"file-review-server/internal/filesystem"
	"file-review-server/internal/match"
	"file-review-server/internal/models"
	"file-review-server/internal/review"
	"file-review-server/internal/reviewdir"
	"file-review-server/internal/session"
)

const maxPathLength = 1024

// ReviewService defines the engine's operation surface.
type ReviewService interface {
	ProposeEdit(ctx context.Context, req models.ProposeEditRequest) (*models.ProposeEditResponse, *models.ErrorDetail)
	ResolveReview(req models.ResolveReviewRequest) (*models.ResolveReviewResponse, *models.ErrorDetail)
	CommitReview(req models.CommitReviewRequest) (*models.CommitReviewResponse, *models.ErrorDetail)
	DiscardSession(req models.DiscardSessionRequest) (*models.DiscardSessionResponse, *models.ErrorDetail)
	ReadFile(req models.ReadFileRequest) (*models.ReadFileResponse, *models.ErrorDetail)
	ListFiles(req models.ListFilesRequest) (*models.ListFilesResponse, *models.ErrorDetail)
}

// DefaultReviewService implements ReviewService.
type DefaultReviewService struct {
	fsAdapter   filesystem.FileSystemAdapter
	store       *session.Store
	engine      *commit.Engine
	surface     *reviewdir.Surface // nil in manual mode
	workingDir  string
	maxFileSize int64
	matchCfg    match.Config
	logger      *zap.Logger
}

// NewDefaultReviewService creates the service. surface may be nil, which
// selects manual review mode.
func NewDefaultReviewService(
	fs filesystem.FileSystemAdapter,
	store *session.Store,
	engine *commit.Engine,
	surface *reviewdir.Surface,
	cfg *config.Config,
	logger *zap.Logger,
) (*DefaultReviewService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if fs == nil {
		return nil, fmt.Errorf("filesystem adapter is required")
	}
	if store == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if engine == nil {
		return nil, fmt.Errorf("commit engine is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	// Resolve the working directory through any symlinks once, so the
	// per-request containment check compares resolved paths with resolved
	// paths.
	workingDir, err := fs.EvalSymlinks(cfg.WorkingDirectory)
	if err != nil {
		return nil, fmt.Errorf("resolving working directory %s: %w", cfg.WorkingDirectory, err)
	}

	return &DefaultReviewService{
		fsAdapter:   fs,
		store:       store,
		engine:      engine,
		surface:     surface,
		workingDir:  workingDir,
		maxFileSize: int64(cfg.MaxFileSizeMB) * 1024 * 1024,
		matchCfg: match.Config{
			MaxAnchorLength: cfg.MaxAnchorLength,
			MaxSuggestions:  cfg.MaxSuggestions,
		},
		logger: logger,
	}, nil
}

// resolveAndValidatePath confines a relative path to the working directory
// and returns its absolute form plus its base name. The target file itself
// may not exist yet; its parent directory must.
func (s *DefaultReviewService) resolveAndValidatePath(relPath string) (string, string, *models.ErrorDetail) {
	if relPath == "" {
		return "", "", errors.NewValidationError("path is required", nil)
	}
	if len(relPath) > maxPathLength {
		return "", "", errors.NewValidationError(
			fmt.Sprintf("path length must not exceed %d characters", maxPathLength),
			map[string]interface{}{"length": len(relPath)})
	}
	if filepath.IsAbs(relPath) {
		return "", "", errors.NewValidationError("path must be relative to the working directory",
			map[string]interface{}{"path": relPath})
	}

	cleaned := filepath.Clean(filepath.Join(s.workingDir, relPath))
	rel, err := filepath.Rel(s.workingDir, cleaned)
	if err != nil {
		return "", "", errors.NewInternalError(fmt.Sprintf("relative path for %q: %v", relPath, err))
	}
	if rel == "." || strings.HasPrefix(rel, "..") {
		return "", "", errors.NewValidationError("path traversal attempt detected",
			map[string]interface{}{"path": relPath})
	}

	// The file may not exist yet (create mode), so symlink containment is
	// checked on the parent directory.
	resolvedDir, symlinkErr := s.fsAdapter.EvalSymlinks(filepath.Dir(cleaned))
	if symlinkErr != nil {
		if underlying := unwrapAll(symlinkErr); os.IsNotExist(underlying) {
			return "", "", errors.NewFileNotFoundError(relPath, "path_resolution")
		} else if os.IsPermission(underlying) {
			return "", "", errors.NewPermissionDeniedError(relPath, "path_resolution")
		}
		return "", "", errors.NewFileSystemError(relPath, "path_resolution",
			fmt.Sprintf("error evaluating symlinks: %v", symlinkErr))
	}
	if resolvedDir != s.workingDir && !strings.HasPrefix(resolvedDir, s.workingDir+string(filepath.Separator)) {
		return "", "", errors.NewValidationError("path escapes the working directory via symlink",
			map[string]interface{}{"path": relPath})
	}

	return cleaned, filepath.Base(cleaned), nil
}

// ProposeEdit implements the ReviewService interface. It stages a proposal
// and, in watch mode, blocks until the human acts on the review directory.
func (s *DefaultReviewService) ProposeEdit(ctx context.Context, req models.ProposeEditRequest) (*models.ProposeEditResponse, *models.ErrorDetail) {
	op, errDetail := edit.Classify(&req, s.matchCfg)
	if errDetail != nil {
		return nil, errDetail
	}

	var path, name, baseContent string
	var exists bool

	if req.SessionID != "" {
		// Continuation: edit against the session's staged content, not the
		// file on disk, so a multi-round review converges on one proposal.
		sess, ok := s.store.Get(req.SessionID)
		if !ok {
			return nil, errors.NewSessionError(req.SessionID, "no live session with this ID")
		}
		if req.Path != "" {
			resolved, _, errDetail := s.resolveAndValidatePath(req.Path)
			if errDetail != nil {
				return nil, errDetail
			}
			if resolved != sess.Path {
				return nil, errors.NewValidationError("path does not match the session's target file",
					map[string]interface{}{"path": req.Path, "session_id": req.SessionID})
			}
		}
		path, name = sess.Path, sess.Name
		baseContent, exists = sess.StagedContent, true
	} else {
		var errDetail *models.ErrorDetail
		path, name, errDetail = s.resolveAndValidatePath(req.Path)
		if errDetail != nil {
			return nil, errDetail
		}
		baseContent, exists, errDetail = s.loadContent(path, req.Path)
		if errDetail != nil {
			return nil, errDetail
		}
	}

	staged, errDetail := edit.Apply(op, req.Path, baseContent, exists, s.matchCfg)
	if errDetail != nil {
		return nil, errDetail
	}
	if int64(len(staged)) > s.maxFileSize {
		return nil, errors.NewFileTooLargeError(req.Path, int64(len(staged)), int(s.maxFileSize/(1024*1024)))
	}

	sess := s.store.Propose(path, name, baseContent, staged, op.Describe(name))

	if s.surface == nil {
		return &models.ProposeEditResponse{
			Status:    models.StatusPendingReview,
			SessionID: sess.ID,
			Message:   fmt.Sprintf("Staged %s; awaiting review via resolve_review.", sess.Description),
		}, nil
	}
	return s.watchReview(ctx, sess)
}

// watchReview stages the session on the review surface and blocks until
// the human saves the proposed file, then settles the outcome.
func (s *DefaultReviewService) watchReview(ctx context.Context, sess session.Session) (*models.ProposeEditResponse, *models.ErrorDetail) {
	dir, err := s.surface.Stage(sess.ID, sess.Name, sess.OriginalContent, sess.StagedContent)
	if err != nil {
		// The session stays live so the caller can fall back to
		// resolve_review.
		return nil, errors.NewWriteError(sess.Name, fmt.Sprintf("staging review directory: %v", err))
	}
	s.store.SetReviewDir(sess.ID, dir)

	returned, err := s.surface.AwaitReturn(ctx, dir, sess.Name)
	if err != nil {
		return nil, errors.NewSessionError(sess.ID,
			fmt.Sprintf("review wait ended without a result: %v; session remains open for resolve_review", err))
	}

	resolved, errDetail := s.settleReturn(sess, returned)
	if errDetail != nil {
		return nil, errDetail
	}
	return &models.ProposeEditResponse{
		Status:    resolved.Status,
		SessionID: resolved.SessionID,
		Message:   resolved.Message,
		Diff:      resolved.Diff,
	}, nil
}

// loadContent reads and normalizes the target file, or reports that it does
// not exist. displayName is the caller's relative path, used in errors.
func (s *DefaultReviewService) loadContent(path, displayName string) (string, bool, *models.ErrorDetail) {
	exists, err := s.fsAdapter.FileExists(path)
	if err != nil {
		if os.IsPermission(unwrapAll(err)) {
			return "", false, errors.NewPermissionDeniedError(displayName, "check_exists")
		}
		return "", false, errors.NewFileSystemError(displayName, "check_exists",
			fmt.Sprintf("error checking file existence: %v", err))
	}
	if !exists {
		return "", false, nil
	}

	stats, err := s.fsAdapter.GetFileStats(path)
	if err != nil {
		if os.IsPermission(unwrapAll(err)) {
			return "", false, errors.NewPermissionDeniedError(displayName, "get_stats")
		}
		return "", false, errors.NewFileSystemError(displayName, "get_stats",
			fmt.Sprintf("error getting file stats: %v", err))
	}
	if stats.IsDir {
		return "", false, errors.NewValidationError(
			fmt.Sprintf("path %q is a directory, not a file", displayName),
			map[string]interface{}{"path": displayName})
	}
	if stats.Size > s.maxFileSize {
		return "", false, errors.NewFileTooLargeError(displayName, stats.Size, int(s.maxFileSize/(1024*1024)))
	}

	content, err := s.fsAdapter.ReadFileBytes(path)
	if err != nil {
		if os.IsPermission(unwrapAll(err)) {
			return "", false, errors.NewPermissionDeniedError(displayName, "read_bytes")
		}
		return "", false, errors.NewFileSystemError(displayName, "read_bytes",
			fmt.Sprintf("error reading file content: %v", err))
	}
	if !s.fsAdapter.IsValidUTF8(content) {
		return "", false, errors.NewValidationError(
			fmt.Sprintf("file %q is not valid UTF-8", displayName),
			map[string]interface{}{"path": displayName})
	}

	return string(s.fsAdapter.NormalizeNewlines(content)), true, nil
}

/// settleReturn arbitrates the human's returned content for a session:
// byte-identical commits and consumes the session, anything else records a
// revision and keeps the session live.
func (s *DefaultReviewService) settleReturn(sess session.Session, returned string) (*models.ResolveReviewResponse, *models.ErrorDetail) {
	verdict := review.Resolve(sess.Name, sess.StagedContent, returned)

	if verdict.Status == models.StatusRevised {
		s.store.ReplaceStaged(sess.ID, returned)
		return &models.ResolveReviewResponse{
			Status:    models.StatusRevised,
			SessionID: sess.ID,
			Diff:      verdict.Diff,
			Message:   "Reviewer changed the proposal; session updated with their version.",
		}, nil
	}

	// A write failure leaves the session live so commit_review can retry
	// without the reviewer doing anything again.
	if errDetail := s.engine.Commit(sess.Path, sess.StagedContent); errDetail != nil {
		return nil, errDetail
	}
	s.consume(sess)
	return &models.ResolveReviewResponse{
		Status:    models.StatusCommitted,
		SessionID: sess.ID,
		Message:   fmt.Sprintf("Committed %s.", sess.Name),
	}, nil
}

// consume tears down a session after a successful commit or a discard.
func (s *DefaultReviewService) consume(sess session.Session) {
	s.store.Discard(sess.ID)
	if s.surface != nil && sess.ReviewDir != "" {
		s.surface.Cleanup(sess.ReviewDir)
	}
}

// ResolveReview implements the ReviewService interface.
func (s *DefaultReviewService) ResolveReview(req models.ResolveReviewRequest) (*models.ResolveReviewResponse, *models.ErrorDetail) {
	if req.SessionID == "" {
		return nil, errors.NewValidationError("session_id is required", nil)
	}
	sess, ok := s.store.Get(req.SessionID)
	if !ok {
		return nil, errors.NewSessionError(req.SessionID, "no live session with this ID")
	}
	return s.settleReturn(sess, req.ReturnedContent)
}

// CommitReview implements the ReviewService interface. It retries the
// durable write for a session whose earlier commit failed.
func (s *DefaultReviewService) CommitReview(req models.CommitReviewRequest) (*models.CommitReviewResponse, *models.ErrorDetail) {
	if req.SessionID == "" {
		return nil, errors.NewValidationError("session_id is required", nil)
	}
	sess, ok := s.store.Get(req.SessionID)
	if !ok {
		return nil, errors.NewSessionError(req.SessionID,
			"no live session with this ID; it may already be committed or discarded")
	}
	if errDetail := s.engine.Commit(sess.Path, sess.StagedContent); errDetail != nil {
		return nil, errDetail
	}
	s.consume(sess)
	return &models.CommitReviewResponse{
		Status:  models.StatusCommitted,
		Path:    sess.Name,
		Message: fmt.Sprintf("Committed %s.", sess.Name),
	}, nil
}

// DiscardSession implements the ReviewService interface.
func (s *DefaultReviewService) DiscardSession(req models.DiscardSessionRequest) (*models.DiscardSessionResponse, *models.ErrorDetail) {
	if req.SessionID == "" {
		return nil, errors.NewValidationError("session_id is required", nil)
	}
	sess, ok := s.store.Get(req.SessionID)
	if !ok {
		return nil, errors.NewSessionError(req.SessionID, "no live session with this ID")
	}
	s.consume(sess)
	return &models.DiscardSessionResponse{
		Discarded: true,
		Message:   fmt.Sprintf("Discarded staged proposal for %s.", sess.Name),
	}, nil
}

// ReadFile implements the ReviewService interface.
func (s *DefaultReviewService) ReadFile(req models.ReadFileRequest) (*models.ReadFileResponse, *models.ErrorDetail) {
	path, _, errDetail := s.resolveAndValidatePath(req.Name)
	if errDetail != nil {
		return nil, errDetail
	}

	if (req.StartLine != 0 && req.StartLine < 1) || (req.EndLine != 0 && req.EndLine < 1) {
		return nil, errors.NewValidationError("line numbers must be 1 or greater if specified",
			map[string]interface{}{"start_line": req.StartLine, "end_line": req.EndLine})
	}
	if req.StartLine > 0 && req.EndLine > 0 && req.StartLine > req.EndLine {
		return nil, errors.NewValidationError("start_line cannot be greater than end_line",
			map[string]interface{}{"start_line": req.StartLine, "end_line": req.EndLine})
	}

	content, exists, errDetail := s.loadContent(path, req.Name)
	if errDetail != nil {
		return nil, errDetail
	}
	if !exists {
		return nil, errors.NewFileNotFoundError(req.Name, "read")
	}

	lines := s.fsAdapter.SplitLines([]byte(content))
	total := len(lines)

	startLine, endLine := req.StartLine, req.EndLine
	if startLine == 0 {
		startLine = 1
	}
	if endLine == 0 || endLine > total {
		endLine = total
	}
	if total == 0 {
		if startLine > 1 {
			return nil, errors.NewValidationError(
				fmt.Sprintf("start_line %d is invalid for an empty file", startLine),
				map[string]interface{}{"start_line": startLine})
		}
		return &models.ReadFileResponse{Content: "", TotalLines: 0}, nil
	}
	if startLine > total {
		return nil, errors.NewValidationError(
			fmt.Sprintf("start_line %d is greater than total lines %d", startLine, total),
			map[string]interface{}{"start_line": startLine, "total_lines": total})
	}

	selected := lines[startLine-1 : endLine]
	return &models.ReadFileResponse{
		Content:    strings.Join(selected, "\n"),
		TotalLines: total,
		RangeRequested: &models.RangeRequested{
			StartLine: startLine,
			EndLine:   endLine,
		},
	}, nil
}

// ListFiles implements the ReviewService interface. It lists regular,
// non-hidden files in the working directory.
func (s *DefaultReviewService) ListFiles(_ models.ListFilesRequest) (*models.ListFilesResponse, *models.ErrorDetail) {
	entries, err := s.fsAdapter.ListDir(s.workingDir)
	if err != nil {
		if os.IsPermission(unwrapAll(err)) {
			return nil, errors.NewPermissionDeniedError(s.workingDir, "list_dir")
		}
		return nil, errors.NewFileSystemError(s.workingDir, "list_dir",
			fmt.Sprintf("failed to list directory: %v", err))
	}

	var files []models.FileInfo
	for _, entry := range entries {
		if entry.IsDir || entry.IsHidden {
			continue
		}
		files = append(files, models.FileInfo{
			Name:     entry.Name,
			Size:     entry.Size,
			Modified: entry.ModTime.UTC().Format(time.RFC3339),
			Readable: (entry.Mode & 0400) != 0,
			Writable: (entry.Mode & 0200) != 0,
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	return &models.ListFilesResponse{
		Files:      files,
		TotalCount: len(files),
		Directory:  s.workingDir,
	}, nil
}

// unwrapAll peels wrapped errors down to the root cause.
func unwrapAll(err error) error {
	for {
		unwrapped := stdErrors.Unwrap(err)
		if unwrapped == nil {
			return err
		}
		err = unwrapped
	}
}
