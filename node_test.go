package refx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeGet(t *testing.T) {
	obj := ObjectNode()
	obj.Set("name", StringNode("ada"))
	obj.Set("level", NumberNode("3"))

	require.NotNil(t, obj.Get("name"))
	assert.Equal(t, "ada", obj.Get("name").Str)
	assert.Nil(t, obj.Get("Name"), "Get is exact-match only")
	assert.Nil(t, obj.Get("missing"))
	assert.Nil(t, StringNode("x").Get("name"), "non-object nodes have no keys")
}

func TestNodeLookupTwoPhase(t *testing.T) {
	tests := []struct {
		name       string
		keys       []string
		lookup     string
		wantKey    string
		wantFound  bool
	}{
		{
			name:      "exact match wins over earlier case-insensitive match",
			keys:      []string{"NAME", "name"},
			lookup:    "name",
			wantKey:   "name",
			wantFound: true,
		},
		{
			name:      "case-insensitive fallback picks first in insertion order",
			keys:      []string{"NAME", "NaMe"},
			lookup:    "name",
			wantKey:   "NAME",
			wantFound: true,
		},
		{
			name:      "no match",
			keys:      []string{"level"},
			lookup:    "name",
			wantFound: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj := ObjectNode()
			for _, k := range tt.keys {
				obj.Set(k, StringNode(k))
			}
			_, key, found := obj.Lookup(tt.lookup)
			assert.Equal(t, tt.wantFound, found)
			if tt.wantFound {
				assert.Equal(t, tt.wantKey, key)
			}
		})
	}
}

func TestNodeIsNull(t *testing.T) {
	var nothing *Node
	assert.True(t, nothing.IsNull())
	assert.True(t, NullNode().IsNull())
	assert.False(t, BoolNode(false).IsNull())
}

func TestNodeGetString(t *testing.T) {
	obj := ObjectNode()
	obj.Set("tag", StringNode("Circle, geometry"))
	obj.Set("count", NumberNode("1"))

	got, ok := obj.GetString("tag")
	require.True(t, ok)
	assert.Equal(t, "Circle, geometry", got)

	_, ok = obj.GetString("count")
	assert.False(t, ok, "non-string values do not satisfy GetString")
}
