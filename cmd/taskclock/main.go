// Package main provides the entry point for the taskclock CLI.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mrz1836/taskclock/internal/cli"
	"github.com/mrz1836/taskclock/internal/errors"
)

// Set via ldflags at build time.
var (
	version = "dev"     //nolint:gochecknoglobals // ldflags target
	commit  = "none"    //nolint:gochecknoglobals // ldflags target
	date    = "unknown" //nolint:gochecknoglobals // ldflags target
)

func main() {
	ctx := context.Background()
	err := cli.Execute(ctx, cli.BuildInfo{Version: version, Commit: commit, Date: date})
	if err != nil {
		msg, action := errors.Actionable(err)
		_, _ = fmt.Fprintln(os.Stderr, "Error:", msg)
		if action != "" {
			_, _ = fmt.Fprintln(os.Stderr, action)
		}
	}
	os.Exit(cli.ExitCodeForError(err))
}
