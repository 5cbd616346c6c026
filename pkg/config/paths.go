package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/edi9999/dmenu-extended/internal/utils"
)

// Paths lists the files dmenu-extended keeps under its config directory
type Paths struct {
	Base          string
	Configuration string
	Preferences   string
	Cache         string
	Plugins       string
}

// DefaultPaths returns the paths under $XDG_CONFIG_HOME/dmenu-extended
func DefaultPaths() Paths {
	return NewPaths(filepath.Join(utils.ConfigDir(), "dmenu-extended"))
}

// NewPaths returns the paths under base
func NewPaths(base string) Paths {
	return Paths{
		Base:          base,
		Configuration: filepath.Join(base, "configuration.toml"),
		Preferences:   filepath.Join(base, "preferences.toml"),
		Cache:         filepath.Join(base, "cache.txt"),
		Plugins:       filepath.Join(base, "plugins"),
	}
}

// Settings bundles both documents for one invocation
type Settings struct {
	Paths         Paths
	Configuration Configuration
	Preferences   Preferences
}

// Load reads the configuration and then the preferences document
func Load(paths Paths, logger *log.Logger) (*Settings, error) {
	cfg, err := LoadConfiguration(paths.Configuration, logger)
	if err != nil {
		return nil, err
	}

	prefs, err := LoadPreferences(paths.Preferences, logger)
	if err != nil {
		return nil, err
	}

	return &Settings{
		Paths:         paths,
		Configuration: cfg,
		Preferences:   prefs,
	}, nil
}

// InitUserFiles creates the plugin folder and writes default documents that
// do not exist yet. Existing documents are never overwritten. It returns the
// paths that were created.
func InitUserFiles(paths Paths) ([]string, error) {
	var created []string

	if !utils.IsDirectory(paths.Plugins) {
		if err := os.MkdirAll(paths.Plugins, 0755); err != nil {
			return nil, fmt.Errorf("failed to create plugins folder: %w", err)
		}
		created = append(created, paths.Plugins)
	}

	if !utils.FileExists(paths.Configuration) {
		if err := writeDocument(paths.Configuration, desktopDefaults(DefaultConfiguration())); err != nil {
			return created, err
		}
		created = append(created, paths.Configuration)
	}

	if !utils.FileExists(paths.Preferences) {
		if err := writeDocument(paths.Preferences, DefaultPreferences()); err != nil {
			return created, err
		}
		created = append(created, paths.Preferences)
	}

	return created, nil
}

// desktopDefaults prefers GNOME helpers when they are installed
func desktopDefaults(cfg Configuration) Configuration {
	if utils.FileExists("/usr/bin/gnome-open") {
		cfg.FileOpener = "gnome-open"
		cfg.WebBrowser = "gnome-open"
		cfg.FileBrowser = "gnome-open"
	}
	if utils.FileExists("/usr/bin/gnome-terminal") {
		cfg.Terminal = "gnome-terminal"
	}
	return cfg
}
