// Package utils provides desktop notifications for errors that cannot be
// shown through the selector, for example when the selector itself fails
// to start.
package utils

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
)

// Notifier sends notifications through dunstify or notify-send. When
// running from a terminal the message is written to Terminal instead.
type Notifier struct {
	Tool     string
	Timeout  int
	Terminal io.Writer
	Logger   *log.Logger
}

// NewNotifier detects the notification tool. Terminal is set when stderr
// is a terminal.
func NewNotifier() *Notifier {
	n := &Notifier{
		Tool:    detectNotificationTool(),
		Timeout: 5000,
	}
	if isatty.IsTerminal(os.Stderr.Fd()) {
		n.Terminal = os.Stderr
	}
	return n
}

// Notify sends a normal notification
func (n *Notifier) Notify(title, message string) {
	n.send(title, message, "normal")
}

// Error sends a critical notification
func (n *Notifier) Error(title, message string) {
	n.send(title, message, "critical")
}

func (n *Notifier) send(title, message, urgency string) {
	if n.Terminal != nil {
		fmt.Fprintf(n.Terminal, "[%s] %s\n", title, message)
		return
	}
	if cmd := n.command(title, message, urgency); cmd != nil {
		cmd.Env = os.Environ()
		if err := cmd.Start(); err != nil && n.Logger != nil {
			n.Logger.Debug("failed to send notification", "tool", n.Tool, "err", err)
		}
	}
}

func (n *Notifier) command(title, message, urgency string) *exec.Cmd {
	timeout := n.Timeout
	if timeout <= 0 {
		timeout = 5000
	}

	switch n.Tool {
	case "dunstify", "notify-send":
		return exec.Command(n.Tool,
			"-u", urgency,
			"-t", strconv.Itoa(timeout),
			title,
			message)
	default:
		return nil
	}
}

// detectNotificationTool detects which notification tool is available
func detectNotificationTool() string {
	for _, tool := range []string{"dunstify", "notify-send"} {
		if _, err := exec.LookPath(tool); err == nil {
			return tool
		}
	}
	return ""
}
