package models

// Reserved anchor values. They are parsed exactly once at the request
// boundary; nothing downstream ever compares against them again.
const (
	// CreateSentinel selects create mode. An empty anchor never means
	// "search for the empty string".
	CreateSentinel = ""
	// OverwriteSentinel selects full-file overwrite mode.
	OverwriteSentinel = "OVERWRITE_FILE"
	// AppendSentinel selects append-to-end mode.
	AppendSentinel = "APPEND_TO_FILE"
)

// EditPair is a single anchor/replacement item inside a batch edit.
type EditPair struct {
	// AnchorText is the literal text to find. AppendSentinel is the only
	// reserved value honoured inside a batch.
	AnchorText string `json:"anchor_text"`
	// ReplacementText is the text that replaces the anchor (or, for an
	// append item, the content appended to the end of the file).
	ReplacementText string `json:"replacement_text"`
}

// ProposeEditRequest asks the engine to stage a change against a file and
// put it in front of a human reviewer.
type ProposeEditRequest struct {
	// Path is the target file, relative to the working directory.
	Path string `json:"path"`
	// AnchorText is the literal text to replace, or one of the reserved
	// sentinels. Must be absent when Edits is non-empty.
	AnchorText string `json:"anchor_text"`
	// ReplacementText is the replacement for AnchorText, or the full content
	// for the create/overwrite/append modes.
	ReplacementText string `json:"replacement_text"`
	// Edits is an ordered batch of anchor/replacement pairs applied against
	// one working copy, all-or-nothing.
	Edits []EditPair `json:"edits,omitempty"`
	// ExpectedOccurrences is how many times AnchorText must occur for the
	// replace to proceed. Zero means the default of 1.
	ExpectedOccurrences int `json:"expected_occurrences,omitempty"`
	// BypassAnchorLimit disables the anchor length guard for legitimately
	// large contiguous replacements.
	BypassAnchorLimit bool `json:"bypass_anchor_limit,omitempty"`
	// SessionID resumes a revised session: the edit is applied against the
	// session's current staged content instead of the file on disk.
	SessionID string `json:"session_id,omitempty"`
}

// Status values for review responses.
const (
	StatusPendingReview = "pending_review"
	StatusCommitted     = "committed"
	StatusRevised       = "revised"
)

// Suggestion is one ranked near-match candidate returned when an anchor was
// not found. Snippet-sized, so a mismatch on a large file still yields a
// small response.
type Suggestion struct {
	// Line is the 1-based line where the candidate block starts.
	Line int `json:"line"`
	// Snippet is the first line of the candidate block, truncated.
	Snippet string `json:"snippet"`
	// Score is the similarity to the requested anchor in [0,1].
	Score float64 `json:"score"`
}

// ProposeEditResponse reports the outcome of a propose_edit call.
//
// In watch mode the call blocks until the human acts, so Status is
// "committed" or "revised". In manual mode Status is "pending_review" and the
// caller drives the review via resolve_review.
type ProposeEditResponse struct {
	Status    string `json:"status"`
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
	// Diff is the human's delta against the staged content, present when
	// Status is "revised".
	Diff string `json:"diff,omitempty"`
}
