package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/edi9999/dmenu-extended/pkg/cache"
	"github.com/edi9999/dmenu-extended/pkg/config"
	"github.com/edi9999/dmenu-extended/pkg/plugin"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242")).
			Italic(true)
)

func renderRebuild(path string, res cache.SaveResult) string {
	var sb strings.Builder

	sb.WriteString(headerStyle.Render("Cache rebuilt"))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("Path:"), valueStyle.Render(path)))
	sb.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("Status:"), valueStyle.Render(res.Status.String())))

	if len(res.Excluded) > 0 {
		sb.WriteString(labelStyle.Render("Excluded (not printable):"))
		sb.WriteString("\n")
		for _, label := range res.Excluded {
			sb.WriteString(errorStyle.Render(fmt.Sprintf("  • %q", label)))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func renderInit(paths config.Paths, created []string) string {
	var sb strings.Builder

	if len(created) == 0 {
		sb.WriteString(headerStyle.Render("Already initialized"))
		sb.WriteString("\n")
	} else {
		sb.WriteString(headerStyle.Render("Created"))
		sb.WriteString("\n")
		for _, path := range created {
			sb.WriteString(valueStyle.Render("  • " + path))
			sb.WriteString("\n")
		}
	}

	sb.WriteString(hintStyle.Render(fmt.Sprintf("Edit %s and %s, then run 'dmenu-extended rebuild'.",
		paths.Configuration, paths.Preferences)))
	sb.WriteString("\n")
	return sb.String()
}

func renderPlugins(dir string, plugins []plugin.Descriptor, failures []*plugin.LoadError, indicator string, kinds []string) string {
	var sb strings.Builder

	sb.WriteString(headerStyle.Render("Plugins"))
	sb.WriteString(" ")
	sb.WriteString(valueStyle.Render(dir))
	sb.WriteString("\n")

	for _, d := range plugins {
		source := d.ID
		if d.Builtin {
			source = "built-in"
		}
		sb.WriteString(fmt.Sprintf("  %s %s\n",
			labelStyle.Render(d.DisplayTitle(indicator)),
			valueStyle.Render("("+source+")")))
	}

	if len(failures) > 0 {
		sb.WriteString("\n")
		sb.WriteString(labelStyle.Render("Skipped:"))
		sb.WriteString("\n")
		for _, f := range failures {
			sb.WriteString(errorStyle.Render("  • " + f.Error()))
			sb.WriteString("\n")
		}
	}

	sb.WriteString("\n")
	sb.WriteString(hintStyle.Render("Descriptor kinds: " + strings.Join(kinds, ", ") + ". Lua scripts end in .lua."))
	sb.WriteString("\n")
	return sb.String()
}
