package doctree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitAndJoin(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, Split("/a//b/"))
	assert.Empty(t, Split("/"))
	assert.Equal(t, "a/b/c", Join("a/", "/b", "c"))
	assert.Equal(t, "a/b", Clean("//a/b/"))
}

func TestRelated(t *testing.T) {
	assert.True(t, Related("matches/x", "matches/x/gameState/tiePot"))
	assert.True(t, Related("matches/x/gameState", "matches/x"))
	assert.True(t, Related("", "anything"))
	assert.False(t, Related("matches/x", "matches/y"))
	assert.False(t, Related("matches/x/players", "matches/x/gameState"))
}

func TestSetGetDelete(t *testing.T) {
	var tree any
	v, err := Normalize(map[string]int{"a": 1})
	require.NoError(t, err)

	tree, err = Set(tree, "root/child", v)
	require.NoError(t, err)
	got, ok := Get(tree, "root/child/a")
	require.True(t, ok)
	assert.Equal(t, 1.0, got)

	before := tree
	tree, err = Set(tree, "root/child/a", nil)
	require.NoError(t, err)

	_, ok = Get(tree, "root")
	assert.False(t, ok, "empty maps are pruned")
	_, ok = Get(before, "root/child/a")
	assert.True(t, ok, "earlier snapshots are not modified")
}

func TestNormalizePrunesEmpty(t *testing.T) {
	v, err := Normalize(map[string]any{"keep": 1, "gone": map[string]any{}})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"keep": 1.0}, v)

	v, err = Normalize(map[string]any{})
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestDecodeAndMarshal(t *testing.T) {
	tree, err := Set(nil, "m/x", "hello")
	require.NoError(t, err)

	raw, err := Marshal(tree, "m")
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":"hello"}`, string(raw))

	raw, err = Marshal(tree, "missing")
	require.NoError(t, err)
	assert.Nil(t, raw)

	var out struct{ X string }
	require.NoError(t, Decode(map[string]any{"X": "y"}, &out))
	assert.Equal(t, "y", out.X)
}

func TestSetRootMustBeObject(t *testing.T) {
	_, err := Set(nil, "", "scalar")
	assert.Error(t, err)
}
