package cache

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"unicode"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/edi9999/dmenu-extended/pkg/config"
	"github.com/edi9999/dmenu-extended/pkg/index"
	"github.com/edi9999/dmenu-extended/pkg/item"
	"github.com/edi9999/dmenu-extended/pkg/plugin"
)

func discard() *log.Logger {
	return log.New(io.Discard)
}

type fakeBinaries struct {
	names  []string
	err    error
	filter []bool
}

func (f *fakeBinaries) Scan(filter bool) ([]string, error) {
	f.filter = append(f.filter, filter)
	return f.names, f.err
}

type fakeFiles struct {
	result index.Result
	err    error
	opts   index.Options
}

func (f *fakeFiles) Index(_ context.Context, opts index.Options) (index.Result, error) {
	f.opts = opts
	return f.result, f.err
}

type fakePlugins struct {
	descriptors []plugin.Descriptor
	reloads     int
}

func (f *fakePlugins) Plugins() []plugin.Descriptor { return f.descriptors }

func (f *fakePlugins) Reload() []plugin.Descriptor {
	f.reloads++
	return f.descriptors
}

func noop(context.Context, plugin.Host) error { return nil }

func settingsFor(prefs config.Preferences) *config.Settings {
	return &config.Settings{
		Configuration: config.DefaultConfiguration(),
		Preferences:   prefs,
	}
}

func TestBuild_EndToEnd(t *testing.T) {
	root := t.TempDir()
	for _, rel := range []string{"a.txt", "ab.txt", ".hidden/c.txt"} {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, nil, 0644))
	}

	pluginDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(pluginDir, "calculator.toml"), []byte(`
title = "Calculator"
command = "gnome-calculator"
`), 0644))
	registry := plugin.NewRegistry(pluginDir, discard())
	defer registry.Close()

	prefs := config.DefaultPreferences()
	prefs.ValidExtensions = []string{"txt"}
	prefs.WatchFolders = []string{root}
	prefs.ExcludeFolders = []string{}

	store := NewStore(filepath.Join(t.TempDir(), "cache.txt"), discard())
	b := NewBuilder(settingsFor(prefs), index.NewWalker(discard()), &fakeBinaries{names: []string{"vim"}}, registry, store, discard())

	items, err := b.Build(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Calculator",
		"vim",
		filepath.Join(root, "a.txt"),
		filepath.Join(root, "ab.txt"),
	}, item.Labels(items))

	assert.Equal(t, item.Item{Label: "Calculator", Kind: item.Plugin, PluginID: "calculator.toml"}, items[0])
	assert.Equal(t, item.Binary, items[1].Kind)
	assert.Equal(t, item.File, items[2].Kind)
}

func TestBuild_GroupsAndSources(t *testing.T) {
	files := &fakeFiles{result: index.Result{
		Files:   []string{"/home/u/notes.txt", "/home/u/a.txt"},
		Folders: []string{"/home/u/docs"},
	}}
	bins := &fakeBinaries{names: []string{"firefox", "vi"}}
	plugins := &fakePlugins{descriptors: []plugin.Descriptor{
		{ID: "search.toml", Plugin: plugin.Func("Search", false, noop)},
		{ID: "builtin:settings", Plugin: plugin.Func("Settings", true, noop), Builtin: true},
	}}

	prefs := config.DefaultPreferences()
	prefs.WatchFolders = []string{"/home/u"}
	prefs.ExcludeFolders = []string{"/home/u/tmp/"}
	prefs.ValidExtensions = []string{"txt", ".md"}
	prefs.IncludeItems = []string{"ssh server"}
	prefs.FollowSymlinks = true
	filter := false
	prefs.FilterBinaries = &filter

	b := NewBuilder(settingsFor(prefs), files, bins, plugins, nil, discard())
	items, err := b.Build(context.Background(), true)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Search",
		"* Settings",
		"vi",
		"firefox",
		"ssh server",
		"/home/u/docs",
		"/home/u/a.txt",
		"/home/u/notes.txt",
	}, item.Labels(items))

	assert.Equal(t, index.Options{
		Roots:          []string{"/home/u"},
		Exclude:        []string{"/home/u/tmp"},
		Extensions:     []string{".txt", ".md"},
		FollowSymlinks: true,
	}, files.opts)
	assert.Equal(t, []bool{false}, bins.filter)
	assert.Equal(t, 1, plugins.reloads)

	assert.Equal(t, item.Include, items[4].Kind)
	assert.Equal(t, item.Folder, items[5].Kind)
}

func TestBuild_EmptyGroupsKeepOrder(t *testing.T) {
	tests := []struct {
		name    string
		plugins []plugin.Descriptor
		bins    []string
		files   []string
		want    []string
	}{
		{
			name: "no plugins",
			bins: []string{"htop"}, files: []string{"/x"},
			want: []string{"htop", "/x"},
		},
		{
			name:    "no binaries",
			plugins: []plugin.Descriptor{{ID: "p", Plugin: plugin.Func("A long plugin title", false, noop)}},
			files:   []string{"/x"},
			want:    []string{"A long plugin title", "/x"},
		},
		{
			name:    "no user items",
			plugins: []plugin.Descriptor{{ID: "p", Plugin: plugin.Func("Plugin", false, noop)}},
			bins:    []string{"z"},
			want:    []string{"Plugin", "z"},
		},
		{
			name: "nothing",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prefs := config.DefaultPreferences()
			b := NewBuilder(settingsFor(prefs),
				&fakeFiles{result: index.Result{Files: tt.files}},
				&fakeBinaries{names: tt.bins},
				&fakePlugins{descriptors: tt.plugins},
				nil, discard())

			items, err := b.Build(context.Background(), false)
			require.NoError(t, err)
			assert.Equal(t, tt.want, item.Labels(items))
		})
	}
}

func TestBuild_RejectsMultilineLabels(t *testing.T) {
	prefs := config.DefaultPreferences()
	prefs.IncludeItems = []string{"good", "bad\nlabel", "", "also\rbad"}

	b := NewBuilder(settingsFor(prefs), &fakeFiles{}, &fakeBinaries{}, &fakePlugins{}, nil, discard())
	items, err := b.Build(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, []string{"good"}, item.Labels(items))
}

func TestBuild_BinaryScanFailureIsNotFatal(t *testing.T) {
	prefs := config.DefaultPreferences()
	prefs.IncludeItems = []string{"x"}

	b := NewBuilder(settingsFor(prefs), &fakeFiles{}, &fakeBinaries{err: errors.New("no /usr/bin")}, &fakePlugins{}, nil, discard())
	items, err := b.Build(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, item.Labels(items))
}

func TestBuild_IndexErrorAborts(t *testing.T) {
	b := NewBuilder(settingsFor(config.DefaultPreferences()),
		&fakeFiles{err: context.Canceled}, &fakeBinaries{}, &fakePlugins{}, nil, discard())

	_, err := b.Build(context.Background(), false)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuild_DefaultPreferences(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	require.NoError(t, os.WriteFile(filepath.Join(home, "todo.txt"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(home, "song.flac"), nil, 0644))

	docs := t.TempDir()
	prefsPath := filepath.Join(docs, "preferences.toml")
	require.NoError(t, os.WriteFile(prefsPath, []byte("# nothing set\n"), 0644))

	prefs, err := config.LoadPreferences(prefsPath, discard())
	require.NoError(t, err)

	b := NewBuilder(settingsFor(prefs), index.NewWalker(discard()), &fakeBinaries{}, &fakePlugins{}, nil, discard())
	items, err := b.Build(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(home, "todo.txt")}, item.Labels(items))
}

func TestRegenerate_SavesCache(t *testing.T) {
	prefs := config.DefaultPreferences()
	prefs.IncludeItems = []string{"ssh box"}

	store := NewStore(filepath.Join(t.TempDir(), "nested", "cache.txt"), discard())
	b := NewBuilder(settingsFor(prefs), &fakeFiles{}, &fakeBinaries{names: []string{"vim"}},
		&fakePlugins{descriptors: []plugin.Descriptor{{ID: "calc.lua", Plugin: plugin.Func("Calc", false, noop)}}},
		store, discard())

	res, err := b.Regenerate(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, SaveOK, res.Status)

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Equal(t, "Calc\nvim\nssh box\n", string(data))

	tags, err := os.ReadFile(store.TagsPath())
	require.NoError(t, err)
	assert.Equal(t, "plugin:calc.lua\nbinary\ninclude\n", string(tags))
}

func TestOrder_Property(t *testing.T) {
	label := rapid.StringMatching(`[a-z]{1,6}`)

	rapid.Check(t, func(t *rapid.T) {
		groups := make([][]item.Item, 3)
		for g, kind := range []item.Kind{item.Plugin, item.Binary, item.File} {
			labels := rapid.SliceOf(label).Draw(t, "group"+strconv.Itoa(g))
			for i, l := range labels {
				// PluginID carries the discovery position
				groups[g] = append(groups[g], item.Item{Label: l, Kind: kind, PluginID: strconv.Itoa(i)})
			}
		}

		out := Order(groups[0], groups[1], groups[2])
		require.Len(t, out, len(groups[0])+len(groups[1])+len(groups[2]))

		offset := 0
		for g, kind := range []item.Kind{item.Plugin, item.Binary, item.File} {
			part := out[offset : offset+len(groups[g])]
			offset += len(groups[g])
			for i := range part {
				require.Equal(t, kind, part[i].Kind)
				if i == 0 {
					continue
				}
				prev, cur := part[i-1], part[i]
				require.LessOrEqual(t, len(prev.Label), len(cur.Label))
				if len(prev.Label) == len(cur.Label) {
					p, _ := strconv.Atoi(prev.PluginID)
					c, _ := strconv.Atoi(cur.PluginID)
					require.Less(t, p, c, "equal lengths keep discovery order")
				}
			}
		}
	})
}

func TestStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "cache.txt"), discard())

	printable := rapid.StringOf(rapid.RuneFrom([]rune{' ', '\t'}, unicode.L, unicode.N, unicode.P, unicode.S))

	rapid.Check(t, func(t *rapid.T) {
		labels := rapid.SliceOf(printable).Draw(t, "labels")

		res, err := store.Save(item.Of(item.Include, labels...))
		require.NoError(t, err)
		require.Equal(t, SaveOK, res.Status)

		loaded, ok := store.Load()
		require.True(t, ok)

		want := []string{}
		if len(labels) > 0 {
			want = strings.Split(strings.Join(labels, "\n"), "\n")
		}
		require.Equal(t, want, item.Labels(loaded))
		for _, it := range loaded {
			require.Equal(t, item.Include, it.Kind)
		}
	})
}

func TestStore_LoadAbsent(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "cache.txt"), discard())
	items, ok := store.Load()
	assert.False(t, ok)
	assert.Nil(t, items)
}

func TestStore_LoadWithoutTags(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "cache.txt"), discard())

	_, err := store.Save([]item.Item{
		{Label: "Calc", Kind: item.Plugin, PluginID: "calc.toml"},
		{Label: "vim", Kind: item.Binary},
	})
	require.NoError(t, err)

	items, ok := store.Load()
	require.True(t, ok)
	assert.Equal(t, item.Item{Label: "Calc", Kind: item.Plugin, PluginID: "calc.toml"}, items[0])

	// a cache edited by hand no longer lines up with its tags
	require.NoError(t, os.WriteFile(store.Path(), []byte("Calc\nvim\nemacs\n"), 0644))
	items, ok = store.Load()
	require.True(t, ok)
	assert.Equal(t, []item.Item{{Label: "Calc"}, {Label: "vim"}, {Label: "emacs"}}, items)

	require.NoError(t, os.Remove(store.TagsPath()))
	items, ok = store.Load()
	require.True(t, ok)
	assert.Len(t, items, 3)
	assert.Equal(t, item.Unknown, items[0].Kind)
}

func TestStore_PartialSave(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "cache.txt"), discard())

	res, err := store.Save(item.Of(item.File, "/ok/one", "/bad/\x00nul", "/ok/two", "/bad/\xff"))
	require.NoError(t, err)
	assert.Equal(t, SavePartial, res.Status)
	assert.Equal(t, []string{"/bad/\x00nul", "/bad/\xff"}, res.Excluded)

	items, ok := store.Load()
	require.True(t, ok)
	assert.Equal(t, []string{"/ok/one", "/ok/two"}, item.Labels(items))
}

func TestStore_SaveFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))

	store := NewStore(filepath.Join(blocker, "cache.txt"), discard())
	res, err := store.Save(item.Of(item.Binary, "vim"))
	assert.Error(t, err)
	assert.Equal(t, SaveFailed, res.Status)
	assert.Empty(t, res.Excluded)
}

func TestPrintable(t *testing.T) {
	tests := []struct {
		label string
		want  bool
	}{
		{"/home/u/Résumé.pdf", true},
		{"with\ttab", true},
		{"日本語", true},
		{"bell\a", false},
		{"nul\x00", false},
		{"bad\xffutf8", false},
		{"esc\x1b[0m", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Printable(tt.label), "%q", tt.label)
	}
}

func TestEnsureLoaded(t *testing.T) {
	t.Run("existing cache is not rebuilt", func(t *testing.T) {
		store := NewStore(filepath.Join(t.TempDir(), "cache.txt"), discard())
		_, err := store.Save(item.Of(item.Binary, "vim"))
		require.NoError(t, err)

		items, err := store.EnsureLoaded(context.Background(), func(context.Context) error {
			t.Fatal("rebuild must not run")
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"vim"}, item.Labels(items))
	})

	t.Run("missing cache is rebuilt once", func(t *testing.T) {
		store := NewStore(filepath.Join(t.TempDir(), "cache.txt"), discard())
		calls := 0
		items, err := store.EnsureLoaded(context.Background(), func(context.Context) error {
			calls++
			_, err := store.Save(item.Of(item.Binary, "htop"))
			return err
		})
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
		assert.Equal(t, []string{"htop"}, item.Labels(items))
	})

	t.Run("rebuild that fails", func(t *testing.T) {
		store := NewStore(filepath.Join(t.TempDir(), "cache.txt"), discard())
		_, err := store.EnsureLoaded(context.Background(), func(context.Context) error {
			return errors.New("disk full")
		})
		assert.ErrorIs(t, err, ErrUnavailable)
		assert.ErrorContains(t, err, "disk full")
	})

	t.Run("rebuild that writes nothing", func(t *testing.T) {
		store := NewStore(filepath.Join(t.TempDir(), "cache.txt"), discard())
		_, err := store.EnsureLoaded(context.Background(), func(context.Context) error { return nil })
		assert.ErrorIs(t, err, ErrUnavailable)
	})
}
