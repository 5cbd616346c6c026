// Package dispatch runs one launcher invocation: it makes sure the cache
// exists, shows it through the selector and routes the chosen label back
// to whoever produced it.
package dispatch

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"

	"github.com/edi9999/dmenu-extended/pkg/cache"
	"github.com/edi9999/dmenu-extended/pkg/config"
	"github.com/edi9999/dmenu-extended/pkg/index"
	"github.com/edi9999/dmenu-extended/pkg/item"
	"github.com/edi9999/dmenu-extended/pkg/launch"
	"github.com/edi9999/dmenu-extended/pkg/plugin"
	"github.com/edi9999/dmenu-extended/pkg/selector"
)

const errorCachingData = "Error caching data"

// Session holds everything one invocation needs. It is the Host handed
// to running plugins.
type Session struct {
	settings *config.Settings
	selector *selector.Selector
	opener   *launch.Opener
	registry *plugin.Registry
	store    *cache.Store
	builder  *cache.Builder
	logger   *log.Logger
}

// New wires a session from the loaded settings
func New(settings *config.Settings, sel *selector.Selector, opener *launch.Opener, logger *log.Logger) *Session {
	cfg := settings.Configuration
	registry := plugin.NewRegistry(settings.Paths.Plugins, logger)
	store := cache.NewStore(settings.Paths.Cache, logger)
	binaries := index.BinaryScanner{
		BinDir:          cfg.BinaryDir,
		DesktopDir:      cfg.DesktopDir,
		ExcludePrefixes: cfg.BinaryExcludePrefixes,
	}

	s := &Session{
		settings: settings,
		selector: sel,
		opener:   opener,
		registry: registry,
		store:    store,
		logger:   logger,
	}
	s.builder = cache.NewBuilder(settings, index.NewWalker(logger), binaries, registry, store, logger)
	registry.AddBuiltin(settingsPluginID, newSettingsPlugin(settings.Paths))
	return s
}

// Registry returns the plugin registry of this session
func (s *Session) Registry() *plugin.Registry {
	return s.registry
}

// Close releases the loaded plugins
func (s *Session) Close() error {
	return s.registry.Close()
}

// Run shows the main menu and acts on the selection. Dismissing the
// selector is not an error.
func (s *Session) Run(ctx context.Context) error {
	items, err := s.store.EnsureLoaded(ctx, func(ctx context.Context) error {
		_, err := s.Rebuild(ctx, false)
		return err
	})
	if err != nil {
		if _, menuErr := s.selector.Menu(ctx, []string{errorCachingData}, ""); menuErr != nil && !selector.IsCancelled(menuErr) {
			s.logger.Error("cannot report cache error", "err", menuErr)
		}
		return err
	}

	label, err := s.selector.Menu(ctx, item.Labels(items), "")
	if err != nil {
		if selector.IsCancelled(err) {
			return nil
		}
		return err
	}

	return s.Dispatch(ctx, label, items)
}

// Rebuild regenerates and saves the cache
func (s *Session) Rebuild(ctx context.Context, reloadPlugins bool) (cache.SaveResult, error) {
	return s.builder.Regenerate(ctx, reloadPlugins)
}

// ============================================================================
// plugin.Host
// ============================================================================

func (s *Session) Menu(ctx context.Context, items []string, prompt string) (string, error) {
	return s.selector.Menu(ctx, items, prompt)
}

func (s *Session) Select(ctx context.Context, items []string, prompt string) (int, error) {
	return s.selector.Select(ctx, items, prompt)
}

func (s *Session) OpenFile(path string) error {
	return s.opener.OpenFile(path)
}

func (s *Session) OpenDirectory(path string) error {
	return s.opener.OpenDirectory(path)
}

func (s *Session) OpenURL(url string) error {
	return s.opener.OpenURL(url)
}

func (s *Session) OpenTerminal(command string, hold bool) error {
	return s.opener.OpenTerminal(command, hold)
}

func (s *Session) Execute(ctx context.Context, command string, fork bool) error {
	return s.opener.Execute(ctx, command, fork)
}

func (s *Session) RegenerateCache(ctx context.Context, reloadPlugins bool) error {
	res, err := s.Rebuild(ctx, reloadPlugins)
	if err != nil {
		return err
	}
	s.logger.Info("cache regenerated", "status", res.Status)
	return nil
}

// runPlugin runs p with this session as its host. A plugin menu that was
// dismissed ends the run quietly.
func (s *Session) runPlugin(ctx context.Context, p plugin.Plugin) error {
	s.logger.Debug("running plugin", "title", p.Title())
	err := p.Run(ctx, s)
	if errors.Is(err, selector.ErrCancelled) {
		return nil
	}
	return err
}
