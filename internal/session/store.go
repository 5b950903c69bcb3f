// Package session owns the live staged proposals. The store is the only
// synchronization point in the engine: one live session per target path,
// all access mediated through Propose/Get/Discard.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// State tracks where a session sits in the review state machine. The two
// remaining states, NoSession and Committed, have no stored representation:
// absence from the store covers both.
type State string

const (
	StateProposed State = "proposed"
	StateRevised  State = "revised"
)

// Session exclusively owns a target path while live. It holds the full
// staged file content plus a description of the operation that produced it,
// and stays inert for however long the human takes to act.
type Session struct {
	// ID is the opaque handle the caller echoes back to continue a review.
	ID string
	// Path is the resolved absolute target path.
	Path string
	// Name is the caller-facing file name.
	Name string
	// OriginalContent is the file body the proposal was computed from.
	OriginalContent string
	// StagedContent is the full proposed file body. After a revision it
	// holds the human's latest version, not the stale original proposal.
	StagedContent string
	// Description summarizes the operation that produced the staged content.
	Description string
	// ReviewDir is the staging directory of the file-based review surface,
	// empty in manual mode.
	ReviewDir string
	State     State
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store maps target paths to at-most-one live session each.
type Store struct {
	mu     sync.Mutex
	byID   map[string]*Session
	byPath map[string]*Session
	logger *zap.Logger
}

// NewStore creates an empty session store.
func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		byID:   make(map[string]*Session),
		byPath: make(map[string]*Session),
		logger: logger,
	}
}

// Propose registers a staged proposal for path. If a session is already live
// for the path, its staged content and description are overwritten and its
// ID retained (supersession); otherwise a new session is created. Returns a
// snapshot of the resulting session.
func (s *Store) Propose(path, name, original, staged, description string) Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	if existing, ok := s.byPath[path]; ok {
		existing.OriginalContent = original
		existing.StagedContent = staged
		existing.Description = description
		existing.State = StateProposed
		existing.UpdatedAt = now
		s.logger.Info("session superseded",
			zap.String("session_id", existing.ID),
			zap.String("path", path))
		return *existing
	}

	sess := &Session{
		ID:              uuid.New().String(),
		Path:            path,
		Name:            name,
		OriginalContent: original,
		StagedContent:   staged,
		Description:     description,
		State:           StateProposed,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	s.byID[sess.ID] = sess
	s.byPath[path] = sess
	s.logger.Info("session created",
		zap.String("session_id", sess.ID),
		zap.String("path", path),
		zap.String("operation", description))
	return *sess
}

// Get returns a snapshot of the session with the given ID.
func (s *Store) Get(sessionID string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byID[sessionID]
	if !ok {
		return Session{}, false
	}
	return *sess, true
}

// GetByPath returns a snapshot of the live session for path, if any.
func (s *Store) GetByPath(path string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byPath[path]
	if !ok {
		return Session{}, false
	}
	return *sess, true
}

// ReplaceStaged swaps in the human's version as the session's staged content
// and marks the session revised, so a later diff is computed against the
// reviewer's latest state.
func (s *Store) ReplaceStaged(sessionID, content string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byID[sessionID]
	if !ok {
		return false
	}
	sess.StagedContent = content
	sess.State = StateRevised
	sess.UpdatedAt = time.Now().UTC()
	s.logger.Info("session revised", zap.String("session_id", sessionID))
	return true
}

// SetReviewDir records where the review surface staged the session.
func (s *Store) SetReviewDir(sessionID, dir string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byID[sessionID]
	if !ok {
		return false
	}
	sess.ReviewDir = dir
	return true
}

// Discard removes a session. Used both for explicit abandonment and for
// teardown after a successful commit.
func (s *Store) Discard(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.byID[sessionID]
	if !ok {
		return false
	}
	delete(s.byID, sessionID)
	delete(s.byPath, sess.Path)
	s.logger.Info("session discarded", zap.String("session_id", sessionID), zap.String("path", sess.Path))
	return true
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}
