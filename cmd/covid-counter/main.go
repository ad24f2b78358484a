// Package main provides the entry point for the covid-counter client.
package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/sipico/covid-counter-client/internal/cli"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = ""

// run executes the command tree with args and returns the exit code.
// This is separated from main() to enable testing.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if version != "" {
		cli.Version = version
	}

	root := cli.NewRootCommand(cli.FromEnvironment)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
