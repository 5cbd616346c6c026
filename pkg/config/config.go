// Package config provides the settings documents for dmenu-extended.
// Configuration controls how external programs are invoked, preferences
// control what gets indexed. Both are TOML documents merged over built-in
// defaults, so any subset of keys may be absent.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
)

// Configuration describes how the selector and the openers are invoked
type Configuration struct {
	Selector              string   `toml:"selector"`
	DmenuArgs             []string `toml:"dmenu_args"`
	SelectorTimeout       string   `toml:"selector_timeout"`
	Terminal              string   `toml:"terminal"`
	FileBrowser           string   `toml:"filebrowser"`
	WebBrowser            string   `toml:"webbrowser"`
	FileOpener            string   `toml:"fileopener"`
	SubmenuIndicator      string   `toml:"submenu_indicator"`
	FilterBinaries        bool     `toml:"filter_binaries"`
	BinaryDir             string   `toml:"binary_dir"`
	DesktopDir            string   `toml:"desktop_dir"`
	BinaryExcludePrefixes []string `toml:"binary_exclude_prefixes"`
}

// configurationFile is read from disk, pointers mark keys that were present
type configurationFile struct {
	Selector              *string   `toml:"selector"`
	DmenuArgs             *[]string `toml:"dmenu_args"`
	SelectorTimeout       *string   `toml:"selector_timeout"`
	Terminal              *string   `toml:"terminal"`
	FileBrowser           *string   `toml:"filebrowser"`
	WebBrowser            *string   `toml:"webbrowser"`
	FileOpener            *string   `toml:"fileopener"`
	SubmenuIndicator      *string   `toml:"submenu_indicator"`
	FilterBinaries        *bool     `toml:"filter_binaries"`
	BinaryDir             *string   `toml:"binary_dir"`
	DesktopDir            *string   `toml:"desktop_dir"`
	BinaryExcludePrefixes *[]string `toml:"binary_exclude_prefixes"`
}

// DefaultConfiguration returns the configuration used for absent keys
func DefaultConfiguration() Configuration {
	return Configuration{
		Selector: "dmenu",
		DmenuArgs: []string{
			"-b",
			"-i",
			"-nf", "#888888",
			"-nb", "#1D1F21",
			"-sf", "#ffffff",
			"-sb", "#1D1F21",
			"-fn", "-*-terminus-medium-r-*-*-16-*-*-*-*-*-*-*",
			"-l", "30",
		},
		SelectorTimeout:       "10m",
		Terminal:              "xterm",
		FileBrowser:           "xdg-open",
		WebBrowser:            "xdg-open",
		FileOpener:            "xdg-open",
		SubmenuIndicator:      "* ",
		FilterBinaries:        true,
		BinaryDir:             "/usr/bin",
		DesktopDir:            "/usr/share/applications",
		BinaryExcludePrefixes: []string{"gpk"},
	}
}

// Timeout returns the bounded wait for one selector interaction.
// Zero means no timeout.
func (c Configuration) Timeout() time.Duration {
	d, err := parseTimeout(c.SelectorTimeout)
	if err != nil {
		return 0
	}
	return d
}

func parseTimeout(s string) (time.Duration, error) {
	if s == "" || s == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", s)
	}
	return d, nil
}

// LoadConfiguration reads the configuration document at path.
// A missing document yields the defaults.
func LoadConfiguration(path string, logger *log.Logger) (Configuration, error) {
	cfg := DefaultConfiguration()

	var file configurationFile
	found, err := decodeDocument(path, &file, logger)
	if err != nil {
		return cfg, err
	}
	if !found {
		return cfg, nil
	}

	mergeConfiguration(&cfg, &file)

	if _, err := parseTimeout(cfg.SelectorTimeout); err != nil {
		return cfg, &ParseError{Path: path, Err: fmt.Errorf("selector_timeout: %w", err)}
	}

	return cfg, nil
}

// mergeConfiguration overrides defaults with the keys present in the file
func mergeConfiguration(merged *Configuration, user *configurationFile) {
	if user.Selector != nil && *user.Selector != "" {
		merged.Selector = *user.Selector
	}
	if user.DmenuArgs != nil {
		merged.DmenuArgs = *user.DmenuArgs
	}
	if user.SelectorTimeout != nil {
		merged.SelectorTimeout = *user.SelectorTimeout
	}

	// Openers
	if user.Terminal != nil && *user.Terminal != "" {
		merged.Terminal = *user.Terminal
	}
	if user.FileBrowser != nil && *user.FileBrowser != "" {
		merged.FileBrowser = *user.FileBrowser
	}
	if user.WebBrowser != nil && *user.WebBrowser != "" {
		merged.WebBrowser = *user.WebBrowser
	}
	if user.FileOpener != nil && *user.FileOpener != "" {
		merged.FileOpener = *user.FileOpener
	}

	// An empty indicator is a valid choice
	if user.SubmenuIndicator != nil {
		merged.SubmenuIndicator = *user.SubmenuIndicator
	}

	// Binary scan
	if user.FilterBinaries != nil {
		merged.FilterBinaries = *user.FilterBinaries
	}
	if user.BinaryDir != nil && *user.BinaryDir != "" {
		merged.BinaryDir = *user.BinaryDir
	}
	if user.DesktopDir != nil && *user.DesktopDir != "" {
		merged.DesktopDir = *user.DesktopDir
	}
	if user.BinaryExcludePrefixes != nil {
		merged.BinaryExcludePrefixes = *user.BinaryExcludePrefixes
	}
}

// decodeDocument decodes a TOML document into v. It reports found=false
// without error when the document does not exist.
func decodeDocument(path string, v any, logger *log.Logger) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, &ParseError{Path: path, Err: err}
	}

	md, err := toml.Decode(string(data), v)
	if err != nil {
		return false, &ParseError{Path: path, Err: err}
	}

	if logger != nil {
		for _, key := range md.Undecoded() {
			logger.Warn("ignoring unrecognized key", "file", path, "key", key.String())
		}
	}

	return true, nil
}
