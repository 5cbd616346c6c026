package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/edi9999/dmenu-extended/pkg/cache"
	"github.com/edi9999/dmenu-extended/pkg/config"
	"github.com/edi9999/dmenu-extended/pkg/dispatch"
	"github.com/edi9999/dmenu-extended/pkg/launch"
	"github.com/edi9999/dmenu-extended/pkg/plugin"
	"github.com/edi9999/dmenu-extended/pkg/selector"
	"github.com/edi9999/dmenu-extended/pkg/utils"
)

// app carries the flags and shared services of one invocation
type app struct {
	debug     bool
	configDir string
	logger    *log.Logger
	notifier  *utils.Notifier
	// openDocument opens a broken settings document for editing
	openDocument func(cfg config.Configuration, path string) error
}

func newApp() *app {
	return &app{
		notifier:     utils.NewNotifier(),
		openDocument: openDocument,
	}
}

// NewRootCommand builds the dmenu-extended command tree
func NewRootCommand(version string) *cobra.Command {
	return newRootCommand(newApp(), version)
}

func newRootCommand(a *app, version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dmenu-extended",
		Short: "Launch files, folders, programs and plugins through dmenu",
		Long: `dmenu-extended indexes your files, folders, installed programs and plugins
into a cache and shows it through dmenu (or rofi, fzf, bemenu, fuzzel, wofi).
The chosen entry is opened, run or handed to the plugin that produced it.

Type "+item" to always include item, "-item" to remove it again, and end a
command with ";" to run it in a terminal.`,
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			a.setupLogger(cmd.ErrOrStderr())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd.Context())
		},
	}

	rootCmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "log debug output")
	rootCmd.PersistentFlags().StringVar(&a.configDir, "config-dir", "", "settings folder (default $XDG_CONFIG_HOME/dmenu-extended)")

	rootCmd.AddCommand(
		newRebuildCommand(a),
		newInitCommand(a),
		newPluginsCommand(a),
		newVersionCommand(version),
	)

	return rootCmd
}

func (a *app) setupLogger(w io.Writer) {
	level := log.InfoLevel
	if a.debug {
		level = log.DebugLevel
	}
	a.logger = log.NewWithOptions(w, log.Options{
		Prefix: "dmenu-extended",
		Level:  level,
	})
	a.notifier.Logger = a.logger
}

func (a *app) paths() config.Paths {
	if a.configDir != "" {
		return config.NewPaths(a.configDir)
	}
	return config.DefaultPaths()
}

// loadSettings creates missing user files and reads both documents. A
// document that fails to parse is opened for editing.
func (a *app) loadSettings() (*config.Settings, error) {
	paths := a.paths()

	created, err := config.InitUserFiles(paths)
	if err != nil {
		return nil, err
	}
	for _, path := range created {
		a.logger.Info("created", "path", path)
	}

	settings, err := config.Load(paths, a.logger)
	if err == nil {
		return settings, nil
	}

	var parseErr *config.ParseError
	if !errors.As(err, &parseErr) {
		return nil, err
	}

	cfg, cfgErr := config.LoadConfiguration(paths.Configuration, a.logger)
	if cfgErr != nil {
		cfg = config.DefaultConfiguration()
	}
	if openErr := a.openDocument(cfg, parseErr.Path); openErr != nil {
		a.logger.Error("cannot open document for editing", "path", parseErr.Path, "err", openErr)
	}
	a.notifier.Error("dmenu-extended", fmt.Sprintf("Fix %s and try again", parseErr.Path))
	return nil, err
}

func openDocument(cfg config.Configuration, path string) error {
	return launch.New(cfg, log.New(io.Discard)).OpenFile(path)
}

func (a *app) run(ctx context.Context) error {
	settings, err := a.loadSettings()
	if err != nil {
		return err
	}

	cfg := settings.Configuration
	sel := selector.New(cfg.Selector, cfg.DmenuArgs, selector.WithTimeout(cfg.Timeout()))
	if err := sel.Check(); err != nil {
		a.notifier.Error("dmenu-extended", err.Error())
		return err
	}

	session := dispatch.New(settings, sel, launch.New(cfg, a.logger), a.logger)
	defer session.Close()

	err = session.Run(ctx)
	var procErr *selector.ProcessError
	if errors.As(err, &procErr) {
		a.notifier.Error("dmenu-extended", err.Error())
	}
	return err
}

func newRebuildCommand(a *app) *cobra.Command {
	var reloadPlugins bool

	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Regenerate the cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := a.loadSettings()
			if err != nil {
				return err
			}

			session := dispatch.New(settings, nil, launch.New(settings.Configuration, a.logger), a.logger)
			defer session.Close()

			res, err := session.Rebuild(cmd.Context(), reloadPlugins)
			if err != nil {
				return err
			}
			if res.Status == cache.SavePartial {
				a.notifier.Notify("dmenu-extended", fmt.Sprintf("%d items could not be cached", len(res.Excluded)))
			}
			fmt.Fprint(cmd.OutOrStdout(), renderRebuild(settings.Paths.Cache, res))
			return nil
		},
	}

	cmd.Flags().BoolVar(&reloadPlugins, "reload-plugins", false, "reload plugins before rebuilding")
	return cmd
}

func newInitCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write the default settings documents and the plugin folder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := a.paths()
			created, err := config.InitUserFiles(paths)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), renderInit(paths, created))
			return nil
		},
	}
}

func newPluginsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "List the plugins found in the plugin folder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := a.loadSettings()
			if err != nil {
				return err
			}

			session := dispatch.New(settings, nil, launch.New(settings.Configuration, a.logger), a.logger)
			defer session.Close()

			registry := session.Registry()
			fmt.Fprint(cmd.OutOrStdout(), renderPlugins(
				settings.Paths.Plugins,
				registry.Plugins(),
				registry.Failures(),
				settings.Configuration.SubmenuIndicator,
				plugin.Kinds(),
			))
			return nil
		},
	}
}

func newVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "dmenu-extended version %s\n", version)
		},
	}
}
