package dispatch

import (
	"context"

	"github.com/edi9999/dmenu-extended/internal/utils"
	"github.com/edi9999/dmenu-extended/pkg/config"
	"github.com/edi9999/dmenu-extended/pkg/plugin"
)

const settingsPluginID = "builtin:settings"

type settingsAction struct {
	label string
	run   func(ctx context.Context, host plugin.Host) error
}

// newSettingsPlugin builds the Settings submenu that is always present
func newSettingsPlugin(paths config.Paths) plugin.Plugin {
	actions := []settingsAction{
		{"Rebuild cache", func(ctx context.Context, host plugin.Host) error {
			return host.RegenerateCache(ctx, false)
		}},
		{"Reload plugins and rebuild cache", func(ctx context.Context, host plugin.Host) error {
			return host.RegenerateCache(ctx, true)
		}},
		{"Edit configuration", func(_ context.Context, host plugin.Host) error {
			return host.OpenFile(paths.Configuration)
		}},
		{"Edit preferences", func(_ context.Context, host plugin.Host) error {
			return host.OpenFile(paths.Preferences)
		}},
		{"Open plugin folder", func(_ context.Context, host plugin.Host) error {
			if err := utils.EnsureDir(paths.Plugins); err != nil {
				return err
			}
			return host.OpenDirectory(paths.Plugins)
		}},
	}

	labels := make([]string, len(actions))
	for i, a := range actions {
		labels[i] = a.label
	}

	return plugin.Func("Settings", true, func(ctx context.Context, host plugin.Host) error {
		i, err := host.Select(ctx, labels, "Settings")
		if err != nil || i < 0 {
			return err
		}
		return actions[i].run(ctx, host)
	})
}
