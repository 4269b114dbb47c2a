package chain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindString(t *testing.T) {
	assert.Equal(t, "arguments", RootArguments.String())
	assert.Equal(t, "options", OptionsBag.String())
	assert.Equal(t, "preset", Preset.String())
	assert.Equal(t, "unknown", Kind(99).String())
}

func TestRootOnlyBuildsSingleEntry(t *testing.T) {
	root := &Entry{Kind: RootArguments, Options: map[string]any{}, Location: "arguments"}

	entries, err := RootOnly{}.Build(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Same(t, root, entries[0])
}
