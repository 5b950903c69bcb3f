package models

// ResolveReviewRequest delivers the content the human produced for a session.
// The review surface (or the caller, in manual mode) sends back whatever the
// reviewer saved; the engine decides what that means.
type ResolveReviewRequest struct {
	SessionID string `json:"session_id"`
	// ReturnedContent is the full file body as the human left it.
	ReturnedContent string `json:"returned_content"`
}

// ResolveReviewResponse reports how the human's action was classified.
// An identical return commits; a different return keeps the session alive
// with the human's version as the new staged content.
type ResolveReviewResponse struct {
	Status    string `json:"status"`
	SessionID string `json:"session_id,omitempty"`
	Diff      string `json:"diff,omitempty"`
	Message   string `json:"message"`
}

// CommitReviewRequest retries the durable write for a session whose earlier
// commit failed. Committing an already-consumed session is a SessionError.
type CommitReviewRequest struct {
	SessionID string `json:"session_id"`
}

// CommitReviewResponse reports a completed commit.
type CommitReviewResponse struct {
	Status  string `json:"status"`
	Path    string `json:"path"`
	Message string `json:"message"`
}

// DiscardSessionRequest abandons a staged proposal without writing anything.
type DiscardSessionRequest struct {
	SessionID string `json:"session_id"`
}

// DiscardSessionResponse confirms the discard.
type DiscardSessionResponse struct {
	Discarded bool   `json:"discarded"`
	Message   string `json:"message"`
}
