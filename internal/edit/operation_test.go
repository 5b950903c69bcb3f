package edit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"file-review-server/internal/errors"
	"file-review-server/internal/match"
	"file-review-server/internal/models"
)

var classifyCfg = match.Config{MaxAnchorLength: 2000, MaxSuggestions: 5}

func TestClassifySentinels(t *testing.T) {
	tests := []struct {
		name     string
		req      models.ProposeEditRequest
		wantKind Kind
	}{
		{
			name:     "empty anchor selects create",
			req:      models.ProposeEditRequest{Path: "f.txt", ReplacementText: "hello\n"},
			wantKind: KindCreateFile,
		},
		{
			name:     "overwrite sentinel",
			req:      models.ProposeEditRequest{Path: "f.txt", AnchorText: "OVERWRITE_FILE", ReplacementText: "new\n"},
			wantKind: KindOverwriteFile,
		},
		{
			name:     "append sentinel",
			req:      models.ProposeEditRequest{Path: "f.txt", AnchorText: "APPEND_TO_FILE", ReplacementText: "tail\n"},
			wantKind: KindAppendToEnd,
		},
		{
			name:     "plain anchor selects single replace",
			req:      models.ProposeEditRequest{Path: "f.txt", AnchorText: "old", ReplacementText: "new"},
			wantKind: KindSingleReplace,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, errDetail := Classify(&tt.req, classifyCfg)
			require.Nil(t, errDetail)
			assert.Equal(t, tt.wantKind, op.Kind)
		})
	}
}

func TestClassifySingleReplaceDefaults(t *testing.T) {
	op, errDetail := Classify(&models.ProposeEditRequest{
		Path: "f.txt", AnchorText: "old", ReplacementText: "new",
	}, classifyCfg)
	require.Nil(t, errDetail)
	assert.Equal(t, 1, op.Expected, "expected_occurrences defaults to 1")

	op, errDetail = Classify(&models.ProposeEditRequest{
		Path: "f.txt", AnchorText: "old", ReplacementText: "new", ExpectedOccurrences: 3,
	}, classifyCfg)
	require.Nil(t, errDetail)
	assert.Equal(t, 3, op.Expected)
}

func TestClassifyNormalizesAnchorNewlines(t *testing.T) {
	op, errDetail := Classify(&models.ProposeEditRequest{
		Path: "f.txt", AnchorText: "A\r\nB\rC", ReplacementText: "X",
	}, classifyCfg)
	require.Nil(t, errDetail)
	assert.Equal(t, "A\nB\nC", op.Anchor, "CRLF and CR anchors match LF-normalized content")

	op, errDetail = Classify(&models.ProposeEditRequest{
		Path:  "f.txt",
		Edits: []models.EditPair{{AnchorText: "A\r\nB", ReplacementText: "X"}},
	}, classifyCfg)
	require.Nil(t, errDetail)
	require.Len(t, op.Batch, 1)
	assert.Equal(t, "A\nB", op.Batch[0].Anchor)
}

func TestClassifyNegativeExpected(t *testing.T) {
	_, errDetail := Classify(&models.ProposeEditRequest{
		Path: "f.txt", AnchorText: "old", ReplacementText: "new", ExpectedOccurrences: -1,
	}, classifyCfg)
	require.NotNil(t, errDetail)
	assert.Equal(t, errors.CodeInvalidParams, errDetail.Code)
}

func TestClassifyAnchorLengthGuard(t *testing.T) {
	long := strings.Repeat("x", 2001)

	_, errDetail := Classify(&models.ProposeEditRequest{
		Path: "f.txt", AnchorText: long, ReplacementText: "new",
	}, classifyCfg)
	require.NotNil(t, errDetail)
	assert.Equal(t, errors.CodeSizeLimitError, errDetail.Code)

	op, errDetail := Classify(&models.ProposeEditRequest{
		Path: "f.txt", AnchorText: long, ReplacementText: "new", BypassAnchorLimit: true,
	}, classifyCfg)
	require.Nil(t, errDetail)
	assert.Equal(t, KindSingleReplace, op.Kind)
}

func TestClassifyBatch(t *testing.T) {
	t.Run("batch with append item", func(t *testing.T) {
		op, errDetail := Classify(&models.ProposeEditRequest{
			Path: "f.txt",
			Edits: []models.EditPair{
				{AnchorText: "a", ReplacementText: "b"},
				{AnchorText: "APPEND_TO_FILE", ReplacementText: "tail"},
			},
		}, classifyCfg)
		require.Nil(t, errDetail)
		require.Equal(t, KindBatchReplace, op.Kind)
		require.Len(t, op.Batch, 2)
		assert.False(t, op.Batch[0].Append)
		assert.True(t, op.Batch[1].Append)
	})

	t.Run("batch combined with single anchor fields is rejected", func(t *testing.T) {
		_, errDetail := Classify(&models.ProposeEditRequest{
			Path:       "f.txt",
			AnchorText: "a", ReplacementText: "b",
			Edits: []models.EditPair{{AnchorText: "c", ReplacementText: "d"}},
		}, classifyCfg)
		require.NotNil(t, errDetail)
		assert.Equal(t, errors.CodeInvalidParams, errDetail.Code)
	})

	t.Run("create and overwrite sentinels invalid inside batch", func(t *testing.T) {
		for _, anchor := range []string{"", "OVERWRITE_FILE"} {
			_, errDetail := Classify(&models.ProposeEditRequest{
				Path:  "f.txt",
				Edits: []models.EditPair{{AnchorText: anchor, ReplacementText: "x"}},
			}, classifyCfg)
			require.NotNil(t, errDetail, "anchor %q", anchor)
			assert.Equal(t, errors.CodeInvalidParams, errDetail.Code)
		}
	})

	t.Run("batch anchor length guard", func(t *testing.T) {
		_, errDetail := Classify(&models.ProposeEditRequest{
			Path:  "f.txt",
			Edits: []models.EditPair{{AnchorText: strings.Repeat("x", 2001), ReplacementText: "y"}},
		}, classifyCfg)
		require.NotNil(t, errDetail)
		assert.Equal(t, errors.CodeSizeLimitError, errDetail.Code)
	})
}
