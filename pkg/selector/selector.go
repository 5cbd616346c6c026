// Package selector drives the external line selector (dmenu, rofi, fzf,
// bemenu, fuzzel, wofi). Candidates are written to its stdin, one per line,
// and the chosen line is read back from its stdout.
package selector

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/edi9999/dmenu-extended/internal/utils"
)

// Runner starts name with args, feeds stdin and returns stdout
type Runner func(ctx context.Context, name string, args []string, stdin io.Reader) ([]byte, error)

// Selector is one configured selector program
type Selector struct {
	program string
	args    []string
	timeout time.Duration
	run     Runner
}

// Option configures a Selector
type Option func(*Selector)

// WithTimeout bounds each interaction. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(s *Selector) { s.timeout = d }
}

// WithRunner replaces process execution
func WithRunner(r Runner) Option {
	return func(s *Selector) { s.run = r }
}

// New creates a Selector for program with the configured args
func New(program string, args []string, opts ...Option) *Selector {
	s := &Selector{
		program: program,
		args:    append([]string{}, args...),
		run:     execRunner,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Check reports a ProcessError when the selector program is not installed
func (s *Selector) Check() error {
	if !utils.CommandExists(s.program) {
		return &ProcessError{Program: s.program, Err: exec.ErrNotFound}
	}
	return nil
}

// Menu shows items and returns the chosen line with surrounding newlines
// trimmed. The text is whatever the selector printed, which may be typed
// input rather than one of the items.
func (s *Selector) Menu(ctx context.Context, items []string, prompt string) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	args := buildArgs(s.program, s.args, prompt)
	stdin := strings.NewReader(strings.Join(items, "\n"))

	output, err := s.run(ctx, s.program, args, stdin)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", &ProcessError{Program: s.program, Err: ctxErr}
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 && len(output) == 0 {
			return "", ErrCancelled
		}
		return "", &ProcessError{Program: s.program, Err: err}
	}

	result := strings.Trim(string(output), "\n")
	if result == "" {
		return "", ErrCancelled
	}
	return result, nil
}

// Select shows items and returns the index of the first item, in original
// order, that is contained in the chosen text. Containment tolerates
// selectors that decorate or echo extra text; a label that is a substring
// of an earlier label's match resolves to the earlier one. It returns -1
// when nothing matches.
func (s *Selector) Select(ctx context.Context, items []string, prompt string) (int, error) {
	result, err := s.Menu(ctx, items, prompt)
	if err != nil {
		return -1, err
	}
	return Match(items, result), nil
}

// Match returns the index of the first item contained in result, or -1
func Match(items []string, result string) int {
	for i, item := range items {
		if strings.Contains(result, item) {
			return i
		}
	}
	return -1
}

func execRunner(ctx context.Context, name string, args []string, stdin io.Reader) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	// fzf draws its interface on stderr
	cmd.Stderr = os.Stderr
	return cmd.Output()
}
