package dispatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/edi9999/dmenu-extended/internal/utils"
	"github.com/edi9999/dmenu-extended/pkg/config"
	"github.com/edi9999/dmenu-extended/pkg/item"
)

// Dispatch acts on label. Labels found in items are routed by their tag;
// anything else is treated as typed input.
func (s *Session) Dispatch(ctx context.Context, label string, items []item.Item) error {
	it, ok := find(items, label)
	if !ok {
		return s.handleInput(ctx, label, true)
	}

	s.logger.Debug("dispatching", "item", label, "tag", it.Tag())
	switch it.Kind {
	case item.Plugin:
		if p, ok := s.registry.Lookup(it.PluginID); ok {
			return s.runPlugin(ctx, p)
		}
		s.logger.Warn("plugin from cache is gone", "plugin", it.PluginID)
	case item.File:
		return s.opener.OpenFile(label)
	case item.Folder:
		return s.opener.OpenDirectory(label)
	case item.Binary:
		return s.opener.Execute(ctx, label, true)
	}
	return s.handleInput(ctx, label, false)
}

// handleInput routes text that carries no usable tag: include items,
// untagged cache lines and whatever the user typed. Only typed text can
// edit the include items.
func (s *Session) handleInput(ctx context.Context, text string, typed bool) error {
	switch {
	case typed && len(text) > 1 && text[0] == '+':
		return s.editIncludeItems(ctx, strings.TrimSpace(text[1:]), config.AddIncludeItem)
	case typed && len(text) > 1 && text[0] == '-':
		return s.editIncludeItems(ctx, strings.TrimSpace(text[1:]), config.RemoveIncludeItem)
	case strings.HasSuffix(text, ";"):
		return s.opener.OpenTerminal(strings.TrimSuffix(text, ";"), true)
	case isURL(text):
		return s.opener.OpenURL(text)
	}

	path := utils.ExpandHome(text)
	if utils.IsDirectory(path) {
		return s.opener.OpenDirectory(path)
	}
	if utils.FileExists(path) {
		return s.opener.OpenFile(path)
	}

	if d, ok := s.registry.FindTitle(text, s.settings.Configuration.SubmenuIndicator); ok {
		return s.runPlugin(ctx, d.Plugin)
	}

	return s.opener.Execute(ctx, text, true)
}

// editIncludeItems changes include_items in the preferences document,
// reloads it and regenerates the cache
func (s *Session) editIncludeItems(ctx context.Context, label string, edit func(path, label string) (bool, error)) error {
	if !item.ValidLabel(label) {
		return fmt.Errorf("invalid item %q", label)
	}

	path := s.settings.Paths.Preferences
	changed, err := edit(path, label)
	if err != nil {
		return err
	}
	if !changed {
		s.logger.Info("include items unchanged", "item", label)
		return nil
	}

	prefs, err := config.LoadPreferences(path, s.logger)
	if err != nil {
		return err
	}
	s.settings.Preferences = prefs
	return s.RegenerateCache(ctx, false)
}

func isURL(text string) bool {
	for _, prefix := range []string{"http://", "https://", "www."} {
		if strings.HasPrefix(text, prefix) {
			return true
		}
	}
	return false
}

// find returns the first item whose label equals label
func find(items []item.Item, label string) (item.Item, bool) {
	for _, it := range items {
		if it.Label == label {
			return it, true
		}
	}
	return item.Item{}, false
}
