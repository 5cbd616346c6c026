// Package plugin provides the plugin system for dmenu-extended.
// Plugins live as files in the plugin folder and are turned into Plugin
// values by a factory chosen from the file extension. Each plugin shows a
// title in the main menu and acts when that title is chosen.
package plugin

import (
	"context"
	"fmt"
)

// Plugin is one loaded extension
type Plugin interface {
	Title() string
	IsSubmenu() bool
	Run(ctx context.Context, host Host) error
}

// Host is what a running plugin may use: the selector and the openers
type Host interface {
	Menu(ctx context.Context, items []string, prompt string) (string, error)
	Select(ctx context.Context, items []string, prompt string) (int, error)
	OpenFile(path string) error
	OpenDirectory(path string) error
	OpenURL(url string) error
	OpenTerminal(command string, hold bool) error
	Execute(ctx context.Context, command string, fork bool) error
	RegenerateCache(ctx context.Context, reloadPlugins bool) error
}

// Descriptor pairs a plugin with its identifier, the plugin's filename
type Descriptor struct {
	ID      string
	Plugin  Plugin
	Builtin bool
}

// DisplayTitle returns the title as shown in the menu
func (d Descriptor) DisplayTitle(submenuIndicator string) string {
	if d.Plugin.IsSubmenu() {
		return submenuIndicator + d.Plugin.Title()
	}
	return d.Plugin.Title()
}

// LoadError records a plugin file that could not be loaded
type LoadError struct {
	ID  string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("plugin %s: %v", e.ID, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// basePlugin carries the fields every plugin shares
type basePlugin struct {
	title   string
	submenu bool
}

func (b basePlugin) Title() string {
	return b.title
}

func (b basePlugin) IsSubmenu() bool {
	return b.submenu
}

type funcPlugin struct {
	basePlugin
	run func(context.Context, Host) error
}

func (f funcPlugin) Run(ctx context.Context, host Host) error {
	return f.run(ctx, host)
}

// Func adapts a function into a Plugin
func Func(title string, submenu bool, run func(ctx context.Context, host Host) error) Plugin {
	return funcPlugin{basePlugin: basePlugin{title: title, submenu: submenu}, run: run}
}
