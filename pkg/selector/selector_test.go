package selector

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	name  string
	args  []string
	stdin string
}

func fakeRunner(output string, err error, calls *[]call) Runner {
	return func(ctx context.Context, name string, args []string, stdin io.Reader) ([]byte, error) {
		data, _ := io.ReadAll(stdin)
		*calls = append(*calls, call{name: name, args: args, stdin: string(data)})
		return []byte(output), err
	}
}

func TestMenu_PipesItemsAndPrompt(t *testing.T) {
	var calls []call
	s := New("dmenu", []string{"-i", "-l", "30"}, WithRunner(fakeRunner("vim\n", nil, &calls)))

	got, err := s.Menu(context.Background(), []string{"htop", "vim"}, "Run")

	require.NoError(t, err)
	assert.Equal(t, "vim", got)
	require.Len(t, calls, 1)
	assert.Equal(t, "dmenu", calls[0].name)
	assert.Equal(t, []string{"-i", "-l", "30", "-p", "Run"}, calls[0].args)
	assert.Equal(t, "htop\nvim", calls[0].stdin)
}

func TestMenu_NoPrompt(t *testing.T) {
	var calls []call
	s := New("dmenu", []string{"-b"}, WithRunner(fakeRunner("x", nil, &calls)))

	_, err := s.Menu(context.Background(), []string{"x"}, "")

	require.NoError(t, err)
	assert.Equal(t, []string{"-b"}, calls[0].args)
}

func TestMenu_ProgramPresets(t *testing.T) {
	tests := []struct {
		program string
		want    []string
	}{
		{"dmenu", []string{"-i", "-p", "Go"}},
		{"/usr/local/bin/bemenu", []string{"-i", "-p", "Go"}},
		{"rofi", []string{"-dmenu", "-i", "-p", "Go"}},
		{"fzf", []string{"-i", "--prompt", "Go> "}},
		{"fuzzel", []string{"--dmenu", "-i", "--prompt", "Go "}},
		{"my-selector", []string{"-i", "-p", "Go"}},
	}

	for _, tt := range tests {
		t.Run(tt.program, func(t *testing.T) {
			var calls []call
			s := New(tt.program, []string{"-i"}, WithRunner(fakeRunner("a", nil, &calls)))
			_, err := s.Menu(context.Background(), []string{"a"}, "Go")
			require.NoError(t, err)
			assert.Equal(t, tt.want, calls[0].args)
		})
	}
}

func TestMenu_TrimsOnlyNewlines(t *testing.T) {
	var calls []call
	s := New("dmenu", nil, WithRunner(fakeRunner("\n  padded label \n\n", nil, &calls)))

	got, err := s.Menu(context.Background(), nil, "")

	require.NoError(t, err)
	assert.Equal(t, "  padded label ", got)
}

func TestMenu_EmptyOutputIsCancel(t *testing.T) {
	var calls []call
	s := New("dmenu", nil, WithRunner(fakeRunner("\n", nil, &calls)))

	_, err := s.Menu(context.Background(), []string{"a"}, "")

	assert.True(t, IsCancelled(err))
}

func TestMenu_StartFailureIsProcessError(t *testing.T) {
	var calls []call
	s := New("dmenu", nil, WithRunner(fakeRunner("", exec.ErrNotFound, &calls)))

	_, err := s.Menu(context.Background(), []string{"a"}, "")

	var procErr *ProcessError
	require.ErrorAs(t, err, &procErr)
	assert.Equal(t, "dmenu", procErr.Program)
	assert.ErrorIs(t, err, exec.ErrNotFound)
	assert.False(t, IsCancelled(err))
}

func TestSelect_FirstContainmentMatch(t *testing.T) {
	var calls []call
	s := New("dmenu", nil, WithRunner(fakeRunner("Notes\n", nil, &calls)))
	items := []string{"Notes", "Notes Archive"}

	i, err := s.Select(context.Background(), items, "")
	require.NoError(t, err)
	assert.Equal(t, 0, i)
}

func TestSelect_DecoratedEcho(t *testing.T) {
	var calls []call
	s := New("dmenu", nil, WithRunner(fakeRunner("> Calculator <", nil, &calls)))

	i, err := s.Select(context.Background(), []string{"Terminal", "Calculator"}, "")

	require.NoError(t, err)
	assert.Equal(t, 1, i)
}

func TestSelect_NoMatch(t *testing.T) {
	var calls []call
	s := New("dmenu", nil, WithRunner(fakeRunner("something typed", nil, &calls)))

	i, err := s.Select(context.Background(), []string{"Notes"}, "")
	require.NoError(t, err)
	assert.Equal(t, -1, i)
}

func TestCheck(t *testing.T) {
	assert.NoError(t, New("sh", nil).Check())

	err := New("dmenu-extended-missing-selector", nil).Check()
	var procErr *ProcessError
	require.ErrorAs(t, err, &procErr)
	assert.Equal(t, "dmenu-extended-missing-selector", procErr.Program)
	assert.ErrorIs(t, err, exec.ErrNotFound)
}

func TestMatch_SubstringRisk(t *testing.T) {
	// The first candidate contained in the text wins, even if a later one is exact
	assert.Equal(t, 0, Match([]string{"Notes", "Notes Archive"}, "Notes Archive"))
	assert.Equal(t, 1, Match([]string{"Notes Archive", "Notes"}, "Notes"))
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	path := filepath.Join(t.TempDir(), "selector")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755))
	return path
}

func TestMenu_RealProcess(t *testing.T) {
	// Prints the last stdin line, like picking the bottom entry
	script := writeScript(t, `tail -n 1`)
	s := New(script, nil)

	got, err := s.Menu(context.Background(), []string{"first", "second"}, "")

	require.NoError(t, err)
	assert.Equal(t, "second", got)
}

func TestMenu_RealProcessEscape(t *testing.T) {
	script := writeScript(t, `cat > /dev/null; exit 1`)
	s := New(script, nil)

	_, err := s.Menu(context.Background(), []string{"first"}, "")

	assert.ErrorIs(t, err, ErrCancelled)
}

func TestMenu_Timeout(t *testing.T) {
	script := writeScript(t, `exec sleep 5`)
	s := New(script, nil, WithTimeout(100*time.Millisecond))

	start := time.Now()
	_, err := s.Menu(context.Background(), []string{"first"}, "")

	var procErr *ProcessError
	require.ErrorAs(t, err, &procErr)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), 4*time.Second)
}
