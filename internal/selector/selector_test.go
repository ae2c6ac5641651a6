package selector_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"reelrun/internal/rerrors"
	"reelrun/internal/selector"
)

func TestGetWalksQuotedAndIndexSteps(t *testing.T) {
	root := map[string]any{
		"widgets": []any{
			map[string]any{"id": "a"},
			map[string]any{"id": "b"},
		},
	}
	sel, err := selector.Compile("'widgets'[1]'id'")
	require.NoError(t, err)

	v, ok := sel.Get(root)
	require.True(t, ok)
	require.Equal(t, "b", v)
}

func TestGetBareRootReturnsRootItself(t *testing.T) {
	sel, err := selector.Compile(".")
	require.NoError(t, err)
	root := map[string]any{"a": 1}
	v, ok := sel.Get(root)
	require.True(t, ok)
	require.Equal(t, root, v)
}

func TestGetMissingKeyIsCleanMissNotError(t *testing.T) {
	sel, err := selector.Compile("'missing'")
	require.NoError(t, err)
	_, ok := sel.Get(map[string]any{"a": 1})
	require.False(t, ok)
}

func TestGetOutOfRangeIndexIsCleanMiss(t *testing.T) {
	sel, err := selector.Compile("[5]")
	require.NoError(t, err)
	_, ok := sel.Get([]any{1, 2})
	require.False(t, ok)
}

func TestCompileRejectsMalformedGrammar(t *testing.T) {
	cases := []string{"", "''", "[abc]", "[1", "'unterminated"}
	for _, c := range cases {
		_, err := selector.Compile(c)
		require.Error(t, err, c)
		var rerr *rerrors.Error
		require.ErrorAs(t, err, &rerr)
		require.Equal(t, rerrors.SelectorParse, rerr.Kind)
	}
}

func TestSetOverwritesExistingLeaf(t *testing.T) {
	root := map[string]any{"widgets": []any{map[string]any{"id": "a"}}}
	sel, err := selector.Compile("'widgets'[0]'id'")
	require.NoError(t, err)

	ok := sel.Set(root, "replaced")
	require.True(t, ok)
	require.Equal(t, "replaced", root["widgets"].([]any)[0].(map[string]any)["id"])
}

func TestSetFailsWhenIntermediateMissing(t *testing.T) {
	sel, err := selector.Compile("'widgets'[0]'id'")
	require.NoError(t, err)
	ok := sel.Set(map[string]any{}, "x")
	require.False(t, ok)
}

func TestGetRawDecodesJSONFirst(t *testing.T) {
	v, ok, err := selector.GetRaw([]byte(`{"a":{"b":1}}`), "'a'.'b'")
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 1, v)
}
