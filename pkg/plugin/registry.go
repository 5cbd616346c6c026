package plugin

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

// Factory builds a plugin from a file in the plugin folder
type Factory func(path string) (Plugin, error)

// Registry discovers and holds the loaded plugins for one invocation.
// Loading happens once, on first use, unless Reload is called.
type Registry struct {
	dir       string
	factories map[string]Factory
	builtins  []Descriptor
	loaded    []Descriptor
	retired   []Descriptor
	failures  []*LoadError
	isLoaded  bool
	logger    *log.Logger
}

// NewRegistry creates a registry over dir with the TOML descriptor and Lua
// factories installed
func NewRegistry(dir string, logger *log.Logger) *Registry {
	r := &Registry{
		dir:       dir,
		factories: make(map[string]Factory),
		logger:    logger,
	}
	r.RegisterFactory(".toml", LoadDescriptor)
	r.RegisterFactory(".lua", LoadLua)
	return r
}

// RegisterFactory installs the factory for files with extension ext
func (r *Registry) RegisterFactory(ext string, f Factory) {
	r.factories[ext] = f
}

// AddBuiltin registers a plugin that does not come from the plugin folder.
// Builtins survive reloads.
func (r *Registry) AddBuiltin(id string, p Plugin) {
	r.builtins = append(r.builtins, Descriptor{ID: id, Plugin: p, Builtin: true})
}

// Plugins returns the loaded plugins, loading them on first call
func (r *Registry) Plugins() []Descriptor {
	if !r.isLoaded {
		r.load()
	}
	out := make([]Descriptor, 0, len(r.loaded)+len(r.builtins))
	out = append(out, r.loaded...)
	return append(out, r.builtins...)
}

// Reload reads the plugin folder again. The replaced plugins stay open until
// Close since one of them may be the plugin that asked for the reload.
func (r *Registry) Reload() []Descriptor {
	r.retired = append(r.retired, r.loaded...)
	r.load()
	return r.Plugins()
}

// Lookup finds a plugin by identifier
func (r *Registry) Lookup(id string) (Plugin, bool) {
	for _, d := range r.Plugins() {
		if d.ID == id {
			return d.Plugin, true
		}
	}
	return nil, false
}

// FindTitle finds the plugin whose display title equals label
func (r *Registry) FindTitle(label, submenuIndicator string) (Descriptor, bool) {
	for _, d := range r.Plugins() {
		if d.DisplayTitle(submenuIndicator) == label {
			return d, true
		}
	}
	return Descriptor{}, false
}

// Failures returns the plugins that were skipped during the last load
func (r *Registry) Failures() []*LoadError {
	return r.failures
}

// Close releases resources held by loaded and replaced plugins
func (r *Registry) Close() error {
	var errs []error
	for _, d := range append(r.retired, r.loaded...) {
		if c, ok := d.Plugin.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	r.retired = nil
	r.loaded = nil
	r.isLoaded = false
	return errors.Join(errs...)
}

// load reads every plugin file. A file that fails is skipped and recorded;
// the other plugins still load.
func (r *Registry) load() {
	r.isLoaded = true
	r.loaded = nil
	r.failures = nil

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			r.logger.Warn("cannot read plugin folder", "path", r.dir, "err", err)
		}
		return
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		factory, ok := r.factories[filepath.Ext(name)]
		if !ok {
			r.logger.Debug("ignoring file in plugin folder", "file", name)
			continue
		}

		p, err := factory(filepath.Join(r.dir, name))
		if err == nil && p.Title() == "" {
			err = errors.New("plugin has no title")
		}
		if err != nil {
			loadErr := &LoadError{ID: name, Err: err}
			r.failures = append(r.failures, loadErr)
			r.logger.Warn("skipping plugin", "plugin", name, "err", err)
			if c, ok := p.(io.Closer); ok {
				c.Close()
			}
			continue
		}

		r.loaded = append(r.loaded, Descriptor{ID: name, Plugin: p})
	}
}
