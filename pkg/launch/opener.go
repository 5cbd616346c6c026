// Package launch opens files, folders and urls and runs commands with the
// programs named in the configuration. Configured programs are shell words,
// so "gnome-terminal --hide-menubar" or "firefox --new-tab" work as-is.
package launch

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"
	"mvdan.cc/sh/v3/shell"
	"mvdan.cc/sh/v3/syntax"

	"github.com/edi9999/dmenu-extended/pkg/config"
)

// holdSuffix keeps a terminal open after its command finishes
const holdSuffix = "; echo '\nFinished!\n\nPress any key to close terminal'; read var"

// Spawner runs argv. Detached processes are started in their own process
// group and not waited on.
type Spawner func(ctx context.Context, argv []string, detach bool) error

// Opener dispatches to the configured helper programs
type Opener struct {
	fileOpener  string
	fileBrowser string
	webBrowser  string
	terminal    string
	logger      *log.Logger
	spawn       Spawner
}

// New creates an Opener from the configuration
func New(cfg config.Configuration, logger *log.Logger) *Opener {
	return &Opener{
		fileOpener:  cfg.FileOpener,
		fileBrowser: cfg.FileBrowser,
		webBrowser:  cfg.WebBrowser,
		terminal:    cfg.Terminal,
		logger:      logger,
		spawn:       spawnProcess,
	}
}

// WithSpawner replaces process creation, used by tests
func (o *Opener) WithSpawner(s Spawner) *Opener {
	o.spawn = s
	return o
}

// OpenFile opens path with the file opener
func (o *Opener) OpenFile(path string) error {
	o.logger.Info("opening file", "path", path, "with", o.fileOpener)
	return o.detached(o.fileOpener, path)
}

// OpenDirectory opens path with the file browser
func (o *Opener) OpenDirectory(path string) error {
	o.logger.Info("opening folder", "path", path, "with", o.fileBrowser)
	return o.detached(o.fileBrowser, path)
}

// OpenURL opens url with the web browser
func (o *Opener) OpenURL(url string) error {
	url = strings.ReplaceAll(url, " ", "%20")
	o.logger.Info("opening url", "url", url, "with", o.webBrowser)
	return o.detached(o.webBrowser, url)
}

// OpenTerminal runs command through sh inside the terminal. With hold the
// terminal waits for a key press before closing.
func (o *Opener) OpenTerminal(command string, hold bool) error {
	if err := Validate(command); err != nil {
		return err
	}
	if hold {
		command += holdSuffix
	}
	o.logger.Info("running in terminal", "command", command, "terminal", o.terminal)
	return o.detached(o.terminal, "-e", "sh", "-c", command)
}

// Execute runs command through sh. With fork the process is detached,
// otherwise Execute waits for it, bounded by ctx.
func (o *Opener) Execute(ctx context.Context, command string, fork bool) error {
	if err := Validate(command); err != nil {
		return err
	}
	o.logger.Info("executing", "command", command, "fork", fork)
	return o.spawn(ctx, []string{"sh", "-c", command}, fork)
}

func (o *Opener) detached(program string, args ...string) error {
	words, err := shell.Fields(program, os.Getenv)
	if err != nil {
		return fmt.Errorf("invalid helper command %q: %w", program, err)
	}
	if len(words) == 0 {
		return fmt.Errorf("no helper command configured")
	}
	return o.spawn(context.Background(), append(words, args...), true)
}

// Validate rejects text that does not parse as a shell command
func Validate(command string) error {
	if strings.TrimSpace(command) == "" {
		return fmt.Errorf("empty command")
	}
	if _, err := syntax.NewParser().Parse(strings.NewReader(command), ""); err != nil {
		return fmt.Errorf("invalid command %q: %w", command, err)
	}
	return nil
}

func spawnProcess(ctx context.Context, argv []string, detach bool) error {
	if !detach {
		cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		return cmd.Run()
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = os.Environ()
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
		Pgid:    0,
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s: %w", argv[0], err)
	}
	go cmd.Wait()
	return nil
}
