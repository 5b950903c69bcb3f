package match

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/google/go-cmp/cmp"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCfg = Config{MaxAnchorLength: 2000, MaxSuggestions: 5}

func TestCount(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		anchor      string
		wantCount   int
		wantOffsets []int
		wantLines   []int
	}{
		{
			name:      "absent anchor",
			content:   "A\nB\nC\n",
			anchor:    "X",
			wantCount: 0,
		},
		{
			name:        "unique anchor",
			content:     "A\nB\nC\n",
			anchor:      "B",
			wantCount:   1,
			wantOffsets: []int{2},
			wantLines:   []int{2},
		},
		{
			name:        "repeated anchor reports every line",
			content:     "foo\nbar\nfoo\n",
			anchor:      "foo",
			wantCount:   2,
			wantOffsets: []int{0, 8},
			wantLines:   []int{1, 3},
		},
		{
			name:        "multi-line anchor",
			content:     "A\nB\nC\n",
			anchor:      "B\nC",
			wantCount:   1,
			wantOffsets: []int{2},
			wantLines:   []int{2},
		},
		{
			name:      "empty anchor never matches",
			content:   "anything",
			anchor:    "",
			wantCount: 0,
		},
		{
			name:        "non-overlapping scan",
			content:     "aaaa",
			anchor:      "aa",
			wantCount:   2,
			wantOffsets: []int{0, 2},
			wantLines:   []int{1, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Count(tt.content, tt.anchor)
			assert.Equal(t, tt.wantCount, got.Occurrences)
			if diff := cmp.Diff(tt.wantOffsets, got.Offsets); diff != "" {
				t.Errorf("offsets mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantLines, got.Lines); diff != "" {
				t.Errorf("lines mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestVerify(t *testing.T) {
	t.Run("exact expected count succeeds", func(t *testing.T) {
		res, failure := Verify("A\nB\nC\n", "B", 1, testCfg)
		require.Nil(t, failure)
		require.NotNil(t, res)
		assert.Equal(t, 1, res.Occurrences)
	})

	t.Run("zero occurrences yields suggestions", func(t *testing.T) {
		res, failure := Verify("alpha\nbeta\ngamma\n", "betta", 1, testCfg)
		require.Nil(t, res)
		require.NotNil(t, failure)
		assert.Equal(t, 0, failure.Occurrences)
		assert.Equal(t, 1, failure.Expected)
		assert.Empty(t, failure.Lines)
		require.NotEmpty(t, failure.Suggestions)
		assert.Equal(t, 2, failure.Suggestions[0].Line)
	})

	t.Run("count mismatch yields line numbers", func(t *testing.T) {
		res, failure := Verify("foo\nbar\nfoo\n", "foo", 1, testCfg)
		require.Nil(t, res)
		require.NotNil(t, failure)
		assert.Equal(t, 2, failure.Occurrences)
		assert.Equal(t, []int{1, 3}, failure.Lines)
		assert.Empty(t, failure.Suggestions)
	})

	t.Run("expected count above one", func(t *testing.T) {
		res, failure := Verify("foo\nbar\nfoo\n", "foo", 2, testCfg)
		require.Nil(t, failure)
		assert.Equal(t, 2, res.Occurrences)
	})
}

func TestExceedsLimit(t *testing.T) {
	long := strings.Repeat("x", 2001)

	assert.False(t, ExceedsLimit("short", false, testCfg))
	assert.True(t, ExceedsLimit(long, false, testCfg))
	assert.False(t, ExceedsLimit(long, true, testCfg), "bypass disables the guard")
	assert.False(t, ExceedsLimit(long, false, Config{MaxAnchorLength: 0}), "zero limit disables the guard")
}

func TestSuggest(t *testing.T) {
	t.Run("near match ranks first", func(t *testing.T) {
		content := "package main\n\nfunc handleRequest() {\n\treturn\n}\n"
		got := Suggest(content, "func handleRequests() {", 5)
		require.NotEmpty(t, got)
		assert.Equal(t, 3, got[0].Line)
		assert.Greater(t, got[0].Score, 0.8)
	})

	t.Run("bounded by max", func(t *testing.T) {
		content := strings.Repeat("similar line\n", 50)
		got := Suggest(content, "similar lines", 5)
		assert.LessOrEqual(t, len(got), 5)
	})

	t.Run("empty inputs", func(t *testing.T) {
		assert.Nil(t, Suggest("", "anchor", 5))
		assert.Nil(t, Suggest("content", "", 5))
		assert.Nil(t, Suggest("content", "anchor", 0))
	})

	t.Run("snippet is truncated", func(t *testing.T) {
		longLine := strings.Repeat("a", 300)
		got := Suggest(longLine+"\n", strings.Repeat("a", 290), 5)
		require.NotEmpty(t, got)
		assert.LessOrEqual(t, len(got[0].Snippet), 120)
	})

	t.Run("snippet truncation keeps valid UTF-8", func(t *testing.T) {
		// The leading byte shifts every two-byte rune off even offsets, so a
		// byte-offset cut at 120 would land mid-rune.
		longLine := "a" + strings.Repeat("é", 200)
		got := Suggest(longLine+"\n", "a"+strings.Repeat("é", 190), 5)
		require.NotEmpty(t, got)
		assert.LessOrEqual(t, len(got[0].Snippet), 120)
		assert.True(t, utf8.ValidString(got[0].Snippet))
	})

	t.Run("multi-line anchor uses multi-line windows", func(t *testing.T) {
		content := "one\ntwo\nthree\nfour\n"
		got := Suggest(content, "two\nthre", 5)
		require.NotEmpty(t, got)
		assert.Equal(t, 2, got[0].Line)
	})
}

func TestSimilarity(t *testing.T) {
	dmp := diffmatchpatch.New()
	assert.Equal(t, 1.0, similarity(dmp, "same", "same"))
	assert.Equal(t, 0.0, similarity(dmp, "abc", "xyz"))
	mid := similarity(dmp, "hello world", "hello wrld")
	assert.Greater(t, mid, 0.8)
	assert.Less(t, mid, 1.0)
}
