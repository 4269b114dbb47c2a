package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/vk/passforge/internal/cfgerr"
	"github.com/vk/passforge/internal/chain"
	"github.com/vk/passforge/internal/descriptor"
	"github.com/vk/passforge/internal/plugin"
)

// staticChain appends a fixed sequence of entries after the root entry.
type staticChain []*chain.Entry

func (c staticChain) Build(_ context.Context, root *chain.Entry) ([]*chain.Entry, error) {
	return append([]*chain.Entry{root}, c...), nil
}

// noneChain reports "no applicable configuration".
type noneChain struct{}

func (noneChain) Build(context.Context, *chain.Entry) ([]*chain.Entry, error) {
	return nil, nil
}

type mapLookup map[string]any

func (m mapLookup) Resolve(name, dir string) (descriptor.Resolved, error) {
	v, ok := m[name]
	if !ok {
		return descriptor.Resolved{}, &cfgerr.ResolutionError{Msg: fmt.Sprintf("unknown name %q", name)}
	}
	return descriptor.Resolved{Path: "registry:" + name, Value: v}, nil
}

// spec returns a fresh inline plugin spec carrying the given name.
func spec(name string) map[string]any {
	return map[string]any{"name": name}
}

// entryWithPlugins builds an options-bag entry declaring the given plugins.
func entryWithPlugins(location string, plugins ...any) *chain.Entry {
	return &chain.Entry{
		Kind:     chain.OptionsBag,
		Options:  map[string]any{"plugins": plugins},
		Location: location,
	}
}

func passNames(items []Item) []string {
	names := make([]string, len(items))
	for i, item := range items {
		names[i] = item.Plugin.Name
	}
	return names
}

func TestRunNoApplicableConfiguration(t *testing.T) {
	r := New(Config{Chain: noneChain{}})

	result, err := r.Run(context.Background(), map[string]any{})
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestRunEmptyRootYieldsDefaults(t *testing.T) {
	r := New(Config{})

	result, err := r.Run(context.Background(), map[string]any{})
	require.NoError(t, err)
	require.NotNil(t, result)

	require.Len(t, result.Passes, 1)
	assert.Empty(t, result.Passes[0])
	assert.Equal(t, true, result.Options["babelrc"])
	assert.Equal(t, true, result.Options["code"])
	assert.Equal(t, "auto", result.Options["compact"])
	assert.Equal(t, false, result.Options["sourceMaps"])
	assert.Empty(t, result.Options["plugins"])
}

func TestRunDefaultsAreOverridable(t *testing.T) {
	r := New(Config{})

	result, err := r.Run(context.Background(), map[string]any{"comments": false, "compact": true})
	require.NoError(t, err)
	assert.Equal(t, false, result.Options["comments"])
	assert.Equal(t, true, result.Options["compact"])
}

func TestDeclarationOrderInversion(t *testing.T) {
	r := New(Config{Chain: staticChain{
		entryWithPlugins("e1", spec("A")),
		entryWithPlugins("e2", spec("B")),
	}})

	result, err := r.Run(context.Background(), map[string]any{})
	require.NoError(t, err)

	// The later-merged entry's plugin executes first.
	assert.Equal(t, []string{"B", "A"}, passNames(result.Passes[0]))
}

func TestPluginsKeepRelativeOrderWithinEntry(t *testing.T) {
	r := New(Config{Chain: staticChain{
		entryWithPlugins("e1", spec("one"), spec("two"), spec("three")),
	}})

	result, err := r.Run(context.Background(), map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two", "three"}, passNames(result.Passes[0]))
}

func TestPresetPluginsRunAfterOwnPlugins(t *testing.T) {
	preset := map[string]any{"plugins": []any{spec("from-preset")}}
	r := New(Config{Presets: mapLookup{"p": preset}})

	result, err := r.Run(context.Background(), map[string]any{
		"presets": []any{"p"},
		"plugins": []any{spec("own")},
	})
	require.NoError(t, err)

	require.Len(t, result.Passes, 1)
	assert.Equal(t, []string{"own", "from-preset"}, passNames(result.Passes[0]))
}

func TestNestedPresetsResolveDepthFirst(t *testing.T) {
	inner := map[string]any{"plugins": []any{spec("inner")}}
	outer := map[string]any{
		"presets": []any{"inner"},
		"plugins": []any{spec("outer")},
	}
	r := New(Config{Presets: mapLookup{"inner": inner, "outer": outer}})

	result, err := r.Run(context.Background(), map[string]any{
		"presets": []any{"outer"},
		"plugins": []any{spec("root")},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"root", "outer", "inner"}, passNames(result.Passes[0]))
}

func TestPerPresetPassIsolation(t *testing.T) {
	p1 := map[string]any{"plugins": []any{spec("p1-a"), spec("p1-b")}}
	p2 := map[string]any{"plugins": []any{spec("p2-a")}}
	r := New(Config{Presets: mapLookup{"p1": p1, "p2": p2}})

	result, err := r.Run(context.Background(), map[string]any{
		"passPerPreset": true,
		"presets":       []any{"p1", "p2"},
		"plugins":       []any{spec("main")},
	})
	require.NoError(t, err)

	// Main pass, then one pass per preset in declaration order.
	require.Len(t, result.Passes, 3)
	assert.Equal(t, []string{"main"}, passNames(result.Passes[0]))
	assert.Equal(t, []string{"p1-a", "p1-b"}, passNames(result.Passes[1]))
	assert.Equal(t, []string{"p2-a"}, passNames(result.Passes[2]))
}

func TestPassPerPresetMustBeBoolean(t *testing.T) {
	r := New(Config{})

	_, err := r.Run(context.Background(), map[string]any{"passPerPreset": "yes"})
	var cfg *cfgerr.ConfigError
	require.ErrorAs(t, err, &cfg)
	assert.Contains(t, cfg.Msg, ".passPerPreset must be a boolean")
}

func TestPresetOptionsAreOverriddenByDeclaringEntry(t *testing.T) {
	preset := map[string]any{
		"comments":   false,
		"sourceType": "script",
	}
	r := New(Config{Presets: mapLookup{"p": preset}})

	result, err := r.Run(context.Background(), map[string]any{
		"presets":    []any{"p"},
		"sourceType": "module",
	})
	require.NoError(t, err)

	// The preset merged first, so the declaring entry wins conflicts while
	// non-conflicting preset options survive.
	assert.Equal(t, "module", result.Options["sourceType"])
	assert.Equal(t, false, result.Options["comments"])
}

func TestListOptionsAccumulateAcrossEntries(t *testing.T) {
	r := New(Config{Chain: staticChain{
		{Kind: chain.OptionsBag, Options: map[string]any{"only": []any{"src/**"}}, Location: "e1"},
		{Kind: chain.OptionsBag, Options: map[string]any{"only": []any{"lib/**"}}, Location: "e2"},
	}})

	result, err := r.Run(context.Background(), map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, []any{"src/**", "lib/**"}, result.Options["only"])
}

func TestFactorySharedBetweenEntriesInstantiatedOnce(t *testing.T) {
	calls := 0
	factory := plugin.Factory(func(*plugin.Context, map[string]any, string) (map[string]any, error) {
		calls++
		return spec("shared"), nil
	})
	r := New(Config{Chain: staticChain{
		entryWithPlugins("e1", []any{factory, map[string]any{"a": 1}}),
		entryWithPlugins("e2", []any{factory, map[string]any{"b": 2}}),
	}})

	result, err := r.Run(context.Background(), map[string]any{})
	require.NoError(t, err)

	require.Len(t, result.Passes[0], 2)
	assert.Same(t, result.Passes[0][0].Plugin, result.Passes[0][1].Plugin)
	assert.Equal(t, 1, calls)
}

func TestCacheSharedAcrossRuns(t *testing.T) {
	calls := 0
	factory := plugin.Factory(func(*plugin.Context, map[string]any, string) (map[string]any, error) {
		calls++
		return spec("shared"), nil
	})
	r := New(Config{})
	args := map[string]any{"plugins": []any{factory}}

	first, err := r.Run(context.Background(), args)
	require.NoError(t, err)
	second, err := r.Run(context.Background(), args)
	require.NoError(t, err)

	assert.Same(t, first.Passes[0][0].Plugin, second.Passes[0][0].Plugin)
	assert.Equal(t, 1, calls)
}

func TestRunErrorAnnotatedWithFilenameOnce(t *testing.T) {
	boom := errors.New("boom")
	factory := plugin.Factory(func(*plugin.Context, map[string]any, string) (map[string]any, error) {
		return nil, boom
	})
	preset := map[string]any{"plugins": []any{factory}}
	r := New(Config{Presets: mapLookup{"p": preset}})

	_, err := r.Run(context.Background(), map[string]any{
		"filename": "src/app.js",
		"presets":  []any{"p"},
	})
	require.Error(t, err)
	require.ErrorIs(t, err, boom)

	msg := err.Error()
	assert.True(t, strings.HasPrefix(msg, "[passforge] src/app.js:"), "got %q", msg)
	assert.Equal(t, 1, strings.Count(msg, "[passforge]"))
	assert.Equal(t, 1, strings.Count(msg, "(while processing:"))
}

func TestRunErrorWithoutFilename(t *testing.T) {
	r := New(Config{})

	_, err := r.Run(context.Background(), map[string]any{"wibble": true})
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "[passforge] unknown:"), "got %q", err.Error())
}

func TestIdempotentResolution(t *testing.T) {
	preset := map[string]any{"plugins": []any{spec("from-preset")}}
	r := New(Config{Presets: mapLookup{"p": preset}})

	first, err := r.Run(context.Background(), map[string]any{
		"presets": []any{"p"},
		"plugins": []any{spec("a"), []any{spec("b"), map[string]any{"opt": 1}}},
	})
	require.NoError(t, err)

	second, err := r.Run(context.Background(), first.Options)
	require.NoError(t, err)

	require.Len(t, second.Passes, len(first.Passes))
	require.Len(t, second.Passes[0], len(first.Passes[0]))
	for i := range first.Passes[0] {
		assert.Same(t, first.Passes[0][i].Plugin, second.Passes[0][i].Plugin, "index %d", i)
	}
}

func TestMainPassOrderProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 8).Draw(t, "entries")
		entries := make(staticChain, n)
		want := make([]string, n)
		for i := range entries {
			name := fmt.Sprintf("plugin-%d", i)
			entries[i] = entryWithPlugins(fmt.Sprintf("e%d", i), spec(name))
			// Reverse of merge order.
			want[n-1-i] = name
		}
		r := New(Config{Chain: entries})

		result, err := r.Run(context.Background(), map[string]any{})
		if err != nil {
			t.Fatalf("resolution failed: %v", err)
		}
		got := passNames(result.Passes[0])
		if len(got) != n {
			t.Fatalf("main pass has %d plugins, want %d", len(got), n)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("main pass %v, want %v", got, want)
			}
		}
	})
}

func TestScalarMergeLastWinsProperty(t *testing.T) {
	keys := []string{"comments", "minified", "retainLines", "highlightCode"}
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 6).Draw(t, "entries")
		entries := make(staticChain, n)
		want := map[string]any{}
		for i := range entries {
			bag := map[string]any{}
			for _, key := range keys {
				if rapid.Bool().Draw(t, fmt.Sprintf("set-%s-%d", key, i)) {
					value := rapid.Bool().Draw(t, fmt.Sprintf("value-%s-%d", key, i))
					bag[key] = value
					want[key] = value
				}
			}
			entries[i] = &chain.Entry{Kind: chain.OptionsBag, Options: bag, Location: fmt.Sprintf("e%d", i)}
		}
		r := New(Config{Chain: entries})

		result, err := r.Run(context.Background(), map[string]any{})
		if err != nil {
			t.Fatalf("resolution failed: %v", err)
		}
		for key, value := range want {
			if result.Options[key] != value {
				t.Fatalf("option %s = %v, want %v", key, result.Options[key], value)
			}
		}
	})
}
