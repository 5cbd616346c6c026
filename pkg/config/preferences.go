package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"github.com/edi9999/dmenu-extended/internal/utils"
)

// Preferences describe what gets indexed
type Preferences struct {
	ValidExtensions []string `toml:"valid_extensions"`
	WatchFolders    []string `toml:"watch_folders"`
	ExcludeFolders  []string `toml:"exclude_folders"`
	IncludeItems    []string `toml:"include_items"`
	// FilterBinaries is nil when the preferences document does not set it
	FilterBinaries *bool `toml:"filter_binaries"`
	FollowSymlinks bool  `toml:"follow_simlinks"`
}

// preferencesFile is read from disk, pointers mark keys that were present
type preferencesFile struct {
	ValidExtensions *[]string `toml:"valid_extensions"`
	WatchFolders    *[]string `toml:"watch_folders"`
	ExcludeFolders  *[]string `toml:"exclude_folders"`
	IncludeItems    *[]string `toml:"include_items"`
	FilterBinaries  *bool     `toml:"filter_binaries"`
	FollowSymlinks  *bool     `toml:"follow_simlinks"`
}

// DefaultPreferences returns the preferences used for absent keys
func DefaultPreferences() Preferences {
	return Preferences{
		ValidExtensions: []string{
			"py", "svg", "pdf", "txt", "png", "jpg", "gif",
			"php", "tex", "odf", "ods", "avi", "mpg", "mp3",
		},
		WatchFolders:   []string{"~/"},
		ExcludeFolders: []string{},
		IncludeItems:   []string{},
		FollowSymlinks: false,
	}
}

// LoadPreferences reads the preferences document at path.
// A missing document yields the defaults.
func LoadPreferences(path string, logger *log.Logger) (Preferences, error) {
	prefs := DefaultPreferences()

	var file preferencesFile
	found, err := decodeDocument(path, &file, logger)
	if err != nil || !found {
		return prefs, err
	}

	if file.ValidExtensions != nil {
		prefs.ValidExtensions = *file.ValidExtensions
	}
	if file.WatchFolders != nil {
		prefs.WatchFolders = *file.WatchFolders
	}
	if file.ExcludeFolders != nil {
		prefs.ExcludeFolders = *file.ExcludeFolders
	}
	if file.IncludeItems != nil {
		prefs.IncludeItems = *file.IncludeItems
	}
	prefs.FilterBinaries = file.FilterBinaries
	if file.FollowSymlinks != nil {
		prefs.FollowSymlinks = *file.FollowSymlinks
	}

	return prefs, nil
}

// Extensions returns the valid extensions, each with a leading dot
func (p Preferences) Extensions() []string {
	out := make([]string, 0, len(p.ValidExtensions))
	for _, ext := range p.ValidExtensions {
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, ext)
	}
	return out
}

// Watched returns the watch folders with ~ expanded
func (p Preferences) Watched() []string {
	return expandAll(p.WatchFolders)
}

// Excluded returns the exclude folders with ~ expanded and otherwise
// unchanged, since they are matched exactly against folder paths
func (p Preferences) Excluded() []string {
	out := make([]string, 0, len(p.ExcludeFolders))
	for _, e := range p.ExcludeFolders {
		out = append(out, utils.ExpandHome(e))
	}
	return out
}

// ShouldFilterBinaries resolves the binary filter flag. The preferences
// value wins, the configuration value is the fallback.
func (p Preferences) ShouldFilterBinaries(cfg Configuration) bool {
	if p.FilterBinaries != nil {
		return *p.FilterBinaries
	}
	return cfg.FilterBinaries
}

func expandAll(paths []string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		out = append(out, filepath.Clean(utils.ExpandHome(p)))
	}
	return out
}

// AddIncludeItem appends label to include_items in the preferences document.
// It reports false when the label was already present.
func AddIncludeItem(path, label string) (bool, error) {
	return editIncludeItems(path, func(items []string) ([]string, bool) {
		if slices.Contains(items, label) {
			return items, false
		}
		return append(items, label), true
	})
}

// RemoveIncludeItem removes every occurrence of label from include_items.
// It reports false when nothing was removed.
func RemoveIncludeItem(path, label string) (bool, error) {
	return editIncludeItems(path, func(items []string) ([]string, bool) {
		out := slices.DeleteFunc(slices.Clone(items), func(s string) bool { return s == label })
		return out, len(out) != len(items)
	})
}

// editIncludeItems rewrites the document through a generic map so that
// keys this version does not know about survive the edit
func editIncludeItems(path string, edit func([]string) ([]string, bool)) (bool, error) {
	doc := map[string]any{}
	if _, err := toml.DecodeFile(path, &doc); err != nil && !os.IsNotExist(err) {
		return false, &ParseError{Path: path, Err: err}
	}

	var items []string
	switch raw := doc["include_items"].(type) {
	case nil:
	case []any:
		for _, v := range raw {
			s, ok := v.(string)
			if !ok {
				return false, &ParseError{Path: path, Err: fmt.Errorf("include_items: expected strings, got %T", v)}
			}
			items = append(items, s)
		}
	default:
		return false, &ParseError{Path: path, Err: fmt.Errorf("include_items: expected a list, got %T", raw)}
	}

	items, changed := edit(items)
	if !changed {
		return false, nil
	}
	doc["include_items"] = items

	if err := writeDocument(path, doc); err != nil {
		return false, err
	}
	return true, nil
}

func writeDocument(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(v); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}
