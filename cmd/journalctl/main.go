// Package main is the entry point of journalctl, the operator CLI for trip
// archives.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkordes/travel-journal/cmd/journalctl/cli"
)

var (
	version = "0.0.1-dev"
	commit  = "main"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCommand(cli.VersionInfo{Version: version, Commit: commit})
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
