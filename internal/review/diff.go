package review

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

const diffContextLines = 3

type lineKind int

const (
	lineContext lineKind = iota
	lineAdded
	lineRemoved
)

// lineOp is a single line of the diff with its position in each version.
type lineOp struct {
	kind    lineKind
	oldLine int // 0-based, -1 for additions
	newLine int // 0-based, -1 for removals
	content string
}

type hunk struct {
	oldStart, oldCount int
	newStart, newCount int
	lines              []lineOp
}

// UnifiedDiff renders the human's revisions to a staged proposal as a
// unified diff with three lines of context. The left side is the staged
// content, the right side is what the reviewer returned.
func UnifiedDiff(name, staged, returned string) string {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0

	// Line-level reduction keeps the diff aligned on newline boundaries.
	a, b, lineArray := dmp.DiffLinesToChars(staged, returned)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCleanupSemantic(diffs)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	ops := diffsToLineOps(diffs)
	hunks := groupHunks(ops, diffContextLines)
	if len(hunks) == 0 {
		return ""
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "--- a/%s (staged)\n", name)
	fmt.Fprintf(&sb, "+++ b/%s (returned)\n", name)
	for _, h := range hunks {
		fmt.Fprintf(&sb, "@@ -%d,%d +%d,%d @@\n", h.oldStart, h.oldCount, h.newStart, h.newCount)
		for _, op := range h.lines {
			switch op.kind {
			case lineAdded:
				sb.WriteString("+")
			case lineRemoved:
				sb.WriteString("-")
			default:
				sb.WriteString(" ")
			}
			sb.WriteString(op.content)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func diffsToLineOps(diffs []diffmatchpatch.Diff) []lineOp {
	var ops []lineOp
	oldLine, newLine := 0, 0

	for _, d := range diffs {
		lines := strings.Split(d.Text, "\n")
		// The last split element after a trailing newline is empty.
		if len(lines) > 0 && lines[len(lines)-1] == "" {
			lines = lines[:len(lines)-1]
		}
		for _, line := range lines {
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				ops = append(ops, lineOp{lineContext, oldLine, newLine, line})
				oldLine++
				newLine++
			case diffmatchpatch.DiffDelete:
				ops = append(ops, lineOp{lineRemoved, oldLine, -1, line})
				oldLine++
			case diffmatchpatch.DiffInsert:
				ops = append(ops, lineOp{lineAdded, -1, newLine, line})
				newLine++
			}
		}
	}
	return ops
}

func groupHunks(ops []lineOp, context int) []hunk {
	var hunks []hunk
	var cur *hunk
	lastChange := -1

	for i, op := range ops {
		if op.kind != lineContext {
			if cur == nil {
				cur = &hunk{}
				start := i - context
				if start < 0 {
					start = 0
				}
				for j := start; j < i; j++ {
					cur.lines = append(cur.lines, ops[j])
				}
				cur.oldStart = ops[start].oldLine + 1
				cur.newStart = ops[start].newLine + 1
				if ops[start].oldLine < 0 {
					cur.oldStart = 0
				}
				if ops[start].newLine < 0 {
					cur.newStart = 0
				}
			}
			lastChange = i
		}

		if cur != nil {
			cur.lines = append(cur.lines, op)
			if op.kind == lineContext && i-lastChange >= context {
				// Peek ahead: only close if the next change is far enough
				// away that the hunks would not overlap.
				if nextChangeBeyond(ops, i, context) {
					finishHunk(cur)
					hunks = append(hunks, *cur)
					cur = nil
				}
			}
		}
	}

	if cur != nil {
		finishHunk(cur)
		hunks = append(hunks, *cur)
	}
	return hunks
}

// nextChangeBeyond reports whether no change occurs within context lines
// after position i.
func nextChangeBeyond(ops []lineOp, i, context int) bool {
	end := i + context
	if end > len(ops)-1 {
		end = len(ops) - 1
	}
	for j := i + 1; j <= end; j++ {
		if ops[j].kind != lineContext {
			return false
		}
	}
	return true
}

func finishHunk(h *hunk) {
	for _, op := range h.lines {
		if op.kind != lineAdded {
			h.oldCount++
		}
		if op.kind != lineRemoved {
			h.newCount++
		}
	}
}
