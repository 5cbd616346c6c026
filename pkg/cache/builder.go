package cache

import (
	"context"
	"fmt"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/edi9999/dmenu-extended/pkg/config"
	"github.com/edi9999/dmenu-extended/pkg/index"
	"github.com/edi9999/dmenu-extended/pkg/item"
	"github.com/edi9999/dmenu-extended/pkg/plugin"
)

// FileIndexer walks the watch folders
type FileIndexer interface {
	Index(ctx context.Context, opts index.Options) (index.Result, error)
}

// BinarySource lists system binaries
type BinarySource interface {
	Scan(filter bool) ([]string, error)
}

// PluginSource provides the plugins whose titles go into the cache
type PluginSource interface {
	Plugins() []plugin.Descriptor
	Reload() []plugin.Descriptor
}

// Builder aggregates every source into the ordered cache
type Builder struct {
	settings *config.Settings
	files    FileIndexer
	binaries BinarySource
	plugins  PluginSource
	store    *Store
	logger   *log.Logger
}

// NewBuilder creates a Builder
func NewBuilder(settings *config.Settings, files FileIndexer, binaries BinarySource, plugins PluginSource, store *Store, logger *log.Logger) *Builder {
	return &Builder{
		settings: settings,
		files:    files,
		binaries: binaries,
		plugins:  plugins,
		store:    store,
		logger:   logger,
	}
}

// Build returns the cache contents: plugin titles, then system binaries,
// then user items. Each group is stably sorted by label length so labels
// of equal length keep their discovery order.
func (b *Builder) Build(ctx context.Context, reloadPlugins bool) ([]item.Item, error) {
	prefs := b.settings.Preferences
	cfg := b.settings.Configuration

	b.logger.Info("Scanning user binaries")
	names, err := b.binaries.Scan(prefs.ShouldFilterBinaries(cfg))
	if err != nil {
		b.logger.Warn("binary scan failed", "err", err)
	}
	binaries := b.accept(item.Of(item.Binary, names...))
	b.debugStep("binaries", binaries)

	b.logger.Info("Loading available plugins")
	var descriptors []plugin.Descriptor
	if reloadPlugins {
		descriptors = b.plugins.Reload()
	} else {
		descriptors = b.plugins.Plugins()
	}
	plugins := make([]item.Item, 0, len(descriptors))
	for _, d := range descriptors {
		plugins = append(plugins, item.Item{
			Label:    d.DisplayTitle(cfg.SubmenuIndicator),
			Kind:     item.Plugin,
			PluginID: d.ID,
		})
	}
	plugins = b.accept(plugins)
	b.debugStep("plugins", plugins)

	b.logger.Info("Scanning files and folders")
	result, err := b.files.Index(ctx, index.Options{
		Roots:          prefs.Watched(),
		Exclude:        prefs.Excluded(),
		Extensions:     prefs.Extensions(),
		FollowSymlinks: prefs.FollowSymlinks,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to index watch folders: %w", err)
	}

	user := make([]item.Item, 0, len(result.Folders)+len(result.Files)+len(prefs.IncludeItems))
	user = append(user, item.Of(item.Folder, result.Folders...)...)
	user = append(user, item.Of(item.File, result.Files...)...)
	user = append(user, item.Of(item.Include, prefs.IncludeItems...)...)
	user = b.accept(user)
	b.debugStep("user items", user)

	return Order(plugins, binaries, user), nil
}

// Regenerate builds the cache and saves it
func (b *Builder) Regenerate(ctx context.Context, reloadPlugins bool) (SaveResult, error) {
	items, err := b.Build(ctx, reloadPlugins)
	if err != nil {
		return SaveResult{Status: SaveFailed}, err
	}

	b.logger.Info("Saving cache", "path", b.store.Path(), "items", len(items))
	res, err := b.store.Save(items)
	if err != nil {
		return res, err
	}
	if res.Status == SavePartial {
		b.logger.Warn("some items were not saved", "excluded", len(res.Excluded))
	}
	return res, nil
}

// Order concatenates the groups after sorting each by label length
func Order(plugins, binaries, user []item.Item) []item.Item {
	out := make([]item.Item, 0, len(plugins)+len(binaries)+len(user))
	for _, group := range [][]item.Item{plugins, binaries, user} {
		sorted := slices.Clone(group)
		SortByLength(sorted)
		out = append(out, sorted...)
	}
	return out
}

// SortByLength sorts items by byte length of the label, keeping the order
// of equal lengths
func SortByLength(items []item.Item) {
	slices.SortStableFunc(items, func(a, b item.Item) int {
		return len(a.Label) - len(b.Label)
	})
}

// accept drops labels that cannot be stored as one cache line
func (b *Builder) accept(items []item.Item) []item.Item {
	out := items[:0]
	for _, it := range items {
		if !item.ValidLabel(it.Label) {
			b.logger.Warn("rejecting item", "kind", it.Kind, "item", fmt.Sprintf("%q", it.Label))
			continue
		}
		out = append(out, it)
	}
	return out
}

func (b *Builder) debugStep(step string, items []item.Item) {
	first := item.Labels(items[:min(5, len(items))])
	b.logger.Debug(step, "first", first, "total", len(items))
}
