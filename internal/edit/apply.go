package edit

import (
	"fmt"
	"strings"

	"file-review-server/internal/errors"
	"file-review-server/internal/match"
	"file-review-server/internal/models"
)

// Apply runs an operation against one in-memory working copy and returns the
// full proposed content. Nothing is staged by this package; a returned error
// means no observable effect of any kind.
//
// path is used only for error reporting. exists reports whether the target
// currently exists, which drives the create/append preconditions.
func Apply(op *Operation, path, content string, exists bool, cfg match.Config) (string, *models.ErrorDetail) {
	switch op.Kind {
	case KindCreateFile:
		if exists {
			return "", errors.NewPreconditionError(path, "create requires that the file does not already exist; use the overwrite sentinel to replace it")
		}
		return op.Content, nil

	case KindOverwriteFile:
		return op.Content, nil

	case KindAppendToEnd:
		if !exists {
			return "", errors.NewPreconditionError(path, "append requires an existing file; use create for new files")
		}
		return appendToEnd(content, op.Content), nil

	case KindSingleReplace:
		if op.Anchor == op.Replacement {
			return "", errors.NewValidationError("no changes to apply: replacement_text equals anchor_text", nil)
		}
		if !exists {
			return "", errors.NewFileNotFoundError(path, "single_replace")
		}
		if _, failure := match.Verify(content, op.Anchor, op.Expected, cfg); failure != nil {
			return "", matchErrorDetail(path, failure)
		}
		return strings.ReplaceAll(content, op.Anchor, op.Replacement), nil

	case KindBatchReplace:
		if !exists {
			return "", errors.NewFileNotFoundError(path, "batch_replace")
		}
		return applyBatch(op.Batch, path, content, cfg)

	default:
		return "", errors.NewInternalError(fmt.Sprintf("unhandled operation kind %d", op.Kind))
	}
}

// applyBatch applies items in array order against one evolving working copy.
// Each non-append item must match exactly once in the copy as it stands when
// the item's turn comes. Any match failure aborts the whole batch; append
// items cannot fail but do not rescue a sibling's failure.
func applyBatch(items []BatchItem, path, content string, cfg match.Config) (string, *models.ErrorDetail) {
	working := content
	for i, item := range items {
		if item.Append {
			working = appendToEnd(working, item.Replacement)
			continue
		}
		if _, failure := match.Verify(working, item.Anchor, 1, cfg); failure != nil {
			detail := matchErrorDetail(path, failure)
			detail.Message = fmt.Sprintf("edit %d: %s", i, detail.Message)
			return "", detail
		}
		working = strings.Replace(working, item.Anchor, item.Replacement, 1)
	}
	return working, nil
}

// appendToEnd concatenates content onto the file body, inserting a newline
// when the body does not already end with one.
func appendToEnd(content, addition string) string {
	if content != "" && !strings.HasSuffix(content, "\n") {
		return content + "\n" + addition
	}
	return content + addition
}

func matchErrorDetail(path string, f *match.Failure) *models.ErrorDetail {
	if f.Occurrences == 0 {
		return errors.NewMatchZeroError(path, f.Expected, f.Suggestions)
	}
	return errors.NewMatchCountError(path, f.Occurrences, f.Expected, f.Lines)
}
