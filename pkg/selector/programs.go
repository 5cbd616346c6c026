package selector

import "path/filepath"

// program describes how a known selector takes its mode and prompt flags
type program struct {
	// base args are required for the program to act as a line selector
	base   []string
	prompt func(string) []string
}

func dashP(prompt string) []string {
	return []string{"-p", prompt}
}

var programs = map[string]program{
	"dmenu":  {prompt: dashP},
	"bemenu": {prompt: dashP},
	"rofi":   {base: []string{"-dmenu"}, prompt: dashP},
	"wofi":   {base: []string{"--dmenu"}, prompt: dashP},
	"fuzzel": {base: []string{"--dmenu"}, prompt: func(p string) []string {
		return []string{"--prompt", p + " "}
	}},
	"fzf": {prompt: func(p string) []string {
		return []string{"--prompt", p + "> "}
	}},
}

// lookupProgram returns the preset for name, dmenu-compatible by default
func lookupProgram(name string) program {
	if p, ok := programs[filepath.Base(name)]; ok {
		return p
	}
	return programs["dmenu"]
}

// buildArgs returns <base...> <configured...> [prompt flags]
func buildArgs(name string, configured []string, prompt string) []string {
	p := lookupProgram(name)
	args := make([]string, 0, len(p.base)+len(configured)+2)
	args = append(args, p.base...)
	args = append(args, configured...)
	if prompt != "" {
		args = append(args, p.prompt(prompt)...)
	}
	return args
}
