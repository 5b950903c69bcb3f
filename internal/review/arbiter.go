// Package review decides the fate of a returned review: byte-identical
// content approves the staged proposal, anything else is a revision.
package review

import (
	"file-review-server/internal/models"
)

// Verdict is the arbiter's decision on a returned file body.
type Verdict struct {
	// Status is StatusCommitted for approval, StatusRevised otherwise.
	Status string
	// Diff is a unified diff from staged to returned content; empty on
	// approval.
	Diff string
}

// Resolve compares the staged content against what the reviewer returned.
// Equality, byte for byte, means approval. Any difference means the human
// edited the proposal; the verdict carries a unified diff of their changes
// so the caller can see exactly what was altered.
func Resolve(name, staged, returned string) Verdict {
	if staged == returned {
		return Verdict{Status: models.StatusCommitted}
	}
	return Verdict{
		Status: models.StatusRevised,
		Diff:   UnifiedDiff(name, staged, returned),
	}
}
