package plugin

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/mitchellh/mapstructure"

	"github.com/edi9999/dmenu-extended/internal/utils"
)

// KindFactory builds a plugin of one kind from the descriptor's options
type KindFactory func(base basePlugin, submenuSet bool, options map[string]any) (Plugin, error)

// kinds is the dispatch table for descriptor files, keyed by `kind`
var kinds = map[string]KindFactory{
	"command":   newCommandPlugin,
	"url":       newURLPlugin,
	"websearch": newWebSearchPlugin,
	"menu":      newMenuPlugin,
}

// Kinds returns the descriptor kinds in alphabetical order
func Kinds() []string {
	names := make([]string, 0, len(kinds))
	for name := range kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadDescriptor reads a TOML plugin descriptor:
//
//	kind = "command"
//	title = "Update system"
//	command = "sudo pacman -Syu"
//	terminal = true
func LoadDescriptor(path string) (Plugin, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	doc := map[string]any{}
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return nil, err
	}

	kind := "command"
	if v, ok := doc["kind"]; ok {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("kind must be a string")
		}
		kind = s
	}
	factory, ok := kinds[kind]
	if !ok {
		return nil, fmt.Errorf("unknown plugin kind %q (known: %s)", kind, strings.Join(Kinds(), ", "))
	}

	var header struct {
		Title     string `mapstructure:"title"`
		IsSubmenu *bool  `mapstructure:"is_submenu"`
	}
	if err := decodeOptions(doc, &header); err != nil {
		return nil, err
	}

	base := basePlugin{title: header.Title}
	if header.IsSubmenu != nil {
		base.submenu = *header.IsSubmenu
	}
	return factory(base, header.IsSubmenu != nil, doc)
}

func decodeOptions(options map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(options)
}

// ============================================================================
// command
// ============================================================================

// CommandConfig runs a shell command
type CommandConfig struct {
	Command  string `mapstructure:"command"`
	Terminal bool   `mapstructure:"terminal"`
	Hold     bool   `mapstructure:"hold"`
}

type commandPlugin struct {
	basePlugin
	cfg CommandConfig
}

func newCommandPlugin(base basePlugin, _ bool, options map[string]any) (Plugin, error) {
	var cfg CommandConfig
	if err := decodeOptions(options, &cfg); err != nil {
		return nil, err
	}
	if cfg.Command == "" {
		return nil, fmt.Errorf("command plugin needs a command")
	}
	return &commandPlugin{basePlugin: base, cfg: cfg}, nil
}

func (p *commandPlugin) Run(ctx context.Context, host Host) error {
	return runCommand(ctx, host, p.cfg.Command, p.cfg.Terminal, p.cfg.Hold)
}

func runCommand(ctx context.Context, host Host, command string, terminal, hold bool) error {
	if terminal {
		return host.OpenTerminal(command, hold)
	}
	return host.Execute(ctx, command, true)
}

// ============================================================================
// url
// ============================================================================

// URLConfig opens a fixed url
type URLConfig struct {
	URL string `mapstructure:"url"`
}

type urlPlugin struct {
	basePlugin
	cfg URLConfig
}

func newURLPlugin(base basePlugin, _ bool, options map[string]any) (Plugin, error) {
	var cfg URLConfig
	if err := decodeOptions(options, &cfg); err != nil {
		return nil, err
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("url plugin needs a url")
	}
	return &urlPlugin{basePlugin: base, cfg: cfg}, nil
}

func (p *urlPlugin) Run(_ context.Context, host Host) error {
	return host.OpenURL(p.cfg.URL)
}

// ============================================================================
// websearch
// ============================================================================

// WebSearchConfig asks for a query and opens url with %s replaced by it
type WebSearchConfig struct {
	URL         string   `mapstructure:"url"`
	Prompt      string   `mapstructure:"prompt"`
	Suggestions []string `mapstructure:"suggestions"`
}

type webSearchPlugin struct {
	basePlugin
	cfg WebSearchConfig
}

func newWebSearchPlugin(base basePlugin, _ bool, options map[string]any) (Plugin, error) {
	var cfg WebSearchConfig
	if err := decodeOptions(options, &cfg); err != nil {
		return nil, err
	}
	if !strings.Contains(cfg.URL, "%s") {
		return nil, fmt.Errorf("websearch url must contain %%s")
	}
	if cfg.Prompt == "" {
		cfg.Prompt = "Search:"
	}
	return &webSearchPlugin{basePlugin: base, cfg: cfg}, nil
}

func (p *webSearchPlugin) Run(ctx context.Context, host Host) error {
	query, err := host.Menu(ctx, p.cfg.Suggestions, p.cfg.Prompt)
	if err != nil {
		return err
	}
	return host.OpenURL(strings.ReplaceAll(p.cfg.URL, "%s", url.QueryEscape(query)))
}

// ============================================================================
// menu
// ============================================================================

// MenuEntry is one line of a submenu. Exactly one action is used, in the
// order command, url, path. Confirm asks before acting.
type MenuEntry struct {
	Label    string `mapstructure:"label"`
	Command  string `mapstructure:"command"`
	Terminal bool   `mapstructure:"terminal"`
	Hold     bool   `mapstructure:"hold"`
	URL      string `mapstructure:"url"`
	Path     string `mapstructure:"path"`
	Confirm  bool   `mapstructure:"confirm"`
}

// MenuConfig lists the submenu entries
type MenuConfig struct {
	Prompt  string      `mapstructure:"prompt"`
	Entries []MenuEntry `mapstructure:"entries"`
}

type menuPlugin struct {
	basePlugin
	cfg MenuConfig
}

func newMenuPlugin(base basePlugin, submenuSet bool, options map[string]any) (Plugin, error) {
	var cfg MenuConfig
	if err := decodeOptions(options, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Entries) == 0 {
		return nil, fmt.Errorf("menu plugin needs entries")
	}
	for i, e := range cfg.Entries {
		if e.Label == "" {
			return nil, fmt.Errorf("menu entry %d has no label", i+1)
		}
		if e.Command == "" && e.URL == "" && e.Path == "" {
			return nil, fmt.Errorf("menu entry %q has no command, url or path", e.Label)
		}
	}
	if !submenuSet {
		base.submenu = true
	}
	if cfg.Prompt == "" {
		cfg.Prompt = base.title
	}
	return &menuPlugin{basePlugin: base, cfg: cfg}, nil
}

func (p *menuPlugin) Run(ctx context.Context, host Host) error {
	labels := make([]string, len(p.cfg.Entries))
	for i, e := range p.cfg.Entries {
		labels[i] = e.Label
	}

	i, err := host.Select(ctx, labels, p.cfg.Prompt)
	if err != nil {
		return err
	}
	if i < 0 {
		return nil
	}

	e := p.cfg.Entries[i]
	if e.Confirm {
		ok, err := confirm(ctx, host, e.Label)
		if err != nil || !ok {
			return err
		}
	}

	switch {
	case e.Command != "":
		return runCommand(ctx, host, e.Command, e.Terminal, e.Hold)
	case e.URL != "":
		return host.OpenURL(e.URL)
	default:
		path := utils.ExpandHome(e.Path)
		info, err := os.Stat(path)
		if err == nil && info.IsDir() {
			return host.OpenDirectory(path)
		}
		return host.OpenFile(path)
	}
}

func confirm(ctx context.Context, host Host, label string) (bool, error) {
	i, err := host.Select(ctx, []string{"No", "Yes"}, label+"?")
	if err != nil {
		return false, err
	}
	return i == 1, nil
}
