// Package edit turns raw edit requests into typed operations and applies
// them to file content. Sentinel anchors are interpreted here, once; every
// later stage works with the tagged Operation only.
package edit

import (
	"fmt"
	"strings"

	"file-review-server/internal/errors"
	"file-review-server/internal/match"
	"file-review-server/internal/models"
)

// Kind discriminates the edit operation variants.
type Kind int

const (
	KindSingleReplace Kind = iota
	KindBatchReplace
	KindCreateFile
	KindOverwriteFile
	KindAppendToEnd
)

func (k Kind) String() string {
	switch k {
	case KindSingleReplace:
		return "single_replace"
	case KindBatchReplace:
		return "batch_replace"
	case KindCreateFile:
		return "create_file"
	case KindOverwriteFile:
		return "overwrite_file"
	case KindAppendToEnd:
		return "append_to_end"
	default:
		return "unknown"
	}
}

// BatchItem is one classified entry of a batch operation. Append items have
// no anchor and cannot fail matching.
type BatchItem struct {
	Append      bool
	Anchor      string
	Replacement string
}

// Operation is the tagged union a request resolves to. Exactly one variant's
// fields are meaningful, per Kind.
type Operation struct {
	Kind Kind

	// SingleReplace
	Anchor      string
	Replacement string
	Expected    int

	// CreateFile / OverwriteFile / AppendToEnd payload
	Content string

	// BatchReplace
	Batch []BatchItem
}

// Describe renders a short human-readable summary for session bookkeeping.
func (op *Operation) Describe(path string) string {
	switch op.Kind {
	case KindBatchReplace:
		return fmt.Sprintf("%s: %d edits against %s", op.Kind, len(op.Batch), path)
	default:
		return fmt.Sprintf("%s against %s", op.Kind, path)
	}
}

// Classify maps a raw request onto exactly one operation, in strict priority
// order: batch list first, then the reserved sentinels, then single replace.
// Supplying both a batch list and single-anchor fields is rejected, never
// merged or silently ignored. The anchor length guard is enforced here for
// every literal anchor.
func Classify(req *models.ProposeEditRequest, cfg match.Config) (*Operation, *models.ErrorDetail) {
	if len(req.Edits) > 0 {
		if req.AnchorText != "" || req.ReplacementText != "" {
			return nil, errors.NewValidationError(
				"edits cannot be combined with anchor_text/replacement_text; use one or the other",
				map[string]interface{}{"edits": len(req.Edits)})
		}
		items := make([]BatchItem, 0, len(req.Edits))
		for i, pair := range req.Edits {
			switch pair.AnchorText {
			case models.AppendSentinel:
				items = append(items, BatchItem{Append: true, Replacement: pair.ReplacementText})
			case models.CreateSentinel, models.OverwriteSentinel:
				return nil, errors.NewValidationError(
					fmt.Sprintf("edit %d: anchor_text %q is not valid inside a batch", i, pair.AnchorText),
					map[string]interface{}{"edit_index": i})
			default:
				anchor := normalizeNewlines(pair.AnchorText)
				if match.ExceedsLimit(anchor, req.BypassAnchorLimit, cfg) {
					return nil, errors.NewSizeLimitError(req.Path, len(anchor), cfg.MaxAnchorLength)
				}
				items = append(items, BatchItem{Anchor: anchor, Replacement: pair.ReplacementText})
			}
		}
		return &Operation{Kind: KindBatchReplace, Batch: items}, nil
	}

	switch req.AnchorText {
	case models.CreateSentinel:
		return &Operation{Kind: KindCreateFile, Content: req.ReplacementText}, nil
	case models.OverwriteSentinel:
		return &Operation{Kind: KindOverwriteFile, Content: req.ReplacementText}, nil
	case models.AppendSentinel:
		return &Operation{Kind: KindAppendToEnd, Content: req.ReplacementText}, nil
	}

	anchor := normalizeNewlines(req.AnchorText)
	if match.ExceedsLimit(anchor, req.BypassAnchorLimit, cfg) {
		return nil, errors.NewSizeLimitError(req.Path, len(anchor), cfg.MaxAnchorLength)
	}
	expected := req.ExpectedOccurrences
	if expected == 0 {
		expected = 1
	}
	if expected < 0 {
		return nil, errors.NewValidationError(
			"expected_occurrences must be positive",
			map[string]interface{}{"expected_occurrences": req.ExpectedOccurrences})
	}
	return &Operation{
		Kind:        KindSingleReplace,
		Anchor:      anchor,
		Replacement: req.ReplacementText,
		Expected:    expected,
	}, nil
}

// normalizeNewlines converts \r\n and bare \r to \n. File content is
// normalized the same way on load, so anchors authored on any platform match.
func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}
