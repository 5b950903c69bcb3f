// Package match implements literal anchor matching over file content.
// Anchors are agent-authored text; matching is plain substring search so
// results stay predictable and auditable. When an anchor is absent, an
// approximate pass produces a small ranked candidate list instead of the
// file body.
package match

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"

	"file-review-server/internal/models"
)

const snippetMaxLen = 120

// Config bounds the matcher's inputs and outputs.
type Config struct {
	// MaxAnchorLength is the anchor size guard. Oversized anchors are
	// rejected unless the request sets the bypass flag; small unique anchors
	// match more reliably than pasted blocks.
	MaxAnchorLength int
	// MaxSuggestions bounds the ranked candidate list on a zero-occurrence
	// failure.
	MaxSuggestions int
}

// Result reports a successful occurrence check.
type Result struct {
	// Occurrences is the literal occurrence count of the anchor.
	Occurrences int
	// Offsets are the byte offsets of each occurrence, in order.
	Offsets []int
	// Lines are the 1-based line numbers of each occurrence.
	Lines []int
}

// Failure describes an occurrence-count mismatch. Exactly one of
// Suggestions (zero occurrences) and Lines (wrong count) is populated.
type Failure struct {
	Occurrences int
	Expected    int
	Lines       []int
	Suggestions []models.Suggestion
}

// Count finds every literal occurrence of anchor in content.
func Count(content, anchor string) Result {
	res := Result{}
	if anchor == "" {
		return res
	}
	from := 0
	for {
		i := strings.Index(content[from:], anchor)
		if i < 0 {
			break
		}
		off := from + i
		res.Offsets = append(res.Offsets, off)
		res.Lines = append(res.Lines, 1+strings.Count(content[:off], "\n"))
		from = off + len(anchor)
	}
	res.Occurrences = len(res.Offsets)
	return res
}

// Verify checks that anchor occurs exactly expected times in content.
// On a zero count the Failure carries ranked near-match suggestions; on any
// other mismatch it carries the matching line numbers so the caller can
// disambiguate or raise the expected count.
func Verify(content, anchor string, expected int, cfg Config) (*Result, *Failure) {
	res := Count(content, anchor)
	if res.Occurrences == expected {
		return &res, nil
	}
	f := &Failure{Occurrences: res.Occurrences, Expected: expected}
	if res.Occurrences == 0 {
		f.Suggestions = Suggest(content, anchor, cfg.MaxSuggestions)
	} else {
		f.Lines = res.Lines
	}
	return nil, f
}

// ExceedsLimit reports whether the anchor trips the length guard.
func ExceedsLimit(anchor string, bypass bool, cfg Config) bool {
	if bypass || cfg.MaxAnchorLength <= 0 {
		return false
	}
	return len(anchor) > cfg.MaxAnchorLength
}

// Suggest ranks blocks of content by similarity to the anchor and returns at
// most max candidates. The window height follows the anchor's line count, so
// multi-line anchors are compared against multi-line blocks.
func Suggest(content, anchor string, max int) []models.Suggestion {
	if max <= 0 || anchor == "" || content == "" {
		return nil
	}

	lines := strings.Split(content, "\n")
	anchorLines := strings.Split(anchor, "\n")
	window := len(anchorLines)
	if window > len(lines) {
		window = len(lines)
	}

	dmp := diffmatchpatch.New()

	type candidate struct {
		line  int
		score float64
	}
	var cands []candidate
	for i := 0; i+window <= len(lines); i++ {
		block := strings.Join(lines[i:i+window], "\n")
		if s := similarity(dmp, block, anchor); s > 0 {
			cands = append(cands, candidate{line: i + 1, score: s})
		}
	}

	// A bitap pass catches near-matches that straddle line boundaries; its
	// hit is folded into the candidate set at that line's window.
	if len(anchor) <= dmp.MatchMaxBits {
		if off := dmp.MatchMain(content, anchor, 0); off >= 0 {
			line := 1 + strings.Count(content[:off], "\n")
			found := false
			for _, c := range cands {
				if c.line == line {
					found = true
					break
				}
			}
			if !found {
				start := line - 1
				end := start + window
				if end > len(lines) {
					end = len(lines)
				}
				block := strings.Join(lines[start:end], "\n")
				cands = append(cands, candidate{line: line, score: similarity(dmp, block, anchor)})
			}
		}
	}

	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].score != cands[j].score {
			return cands[i].score > cands[j].score
		}
		return cands[i].line < cands[j].line
	})
	if len(cands) > max {
		cands = cands[:max]
	}

	out := make([]models.Suggestion, 0, len(cands))
	for _, c := range cands {
		out = append(out, models.Suggestion{
			Line:    c.line,
			Snippet: snippet(lines[c.line-1]),
			Score:   c.score,
		})
	}
	return out
}

// similarity is a normalized Levenshtein ratio in [0,1].
func similarity(dmp *diffmatchpatch.DiffMatchPatch, a, b string) float64 {
	if a == b {
		return 1
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 1
	}
	diffs := dmp.DiffMain(a, b, false)
	lev := dmp.DiffLevenshtein(diffs)
	if lev >= longest {
		return 0
	}
	return 1 - float64(lev)/float64(longest)
}

func snippet(line string) string {
	if len(line) <= snippetMaxLen {
		return line
	}
	// Back up to a rune boundary so truncation never emits invalid UTF-8.
	cut := snippetMaxLen
	for cut > 0 && !utf8.RuneStart(line[cut]) {
		cut--
	}
	return line[:cut]
}
