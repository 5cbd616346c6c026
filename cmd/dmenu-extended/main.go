package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/edi9999/dmenu-extended/pkg/config"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCommand(version).ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode is 2 for a settings document that needs fixing, 1 otherwise
func exitCode(err error) int {
	var parseErr *config.ParseError
	if errors.As(err, &parseErr) {
		return 2
	}
	return 1
}
