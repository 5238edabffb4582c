// Package main is the entry point for the pktedit CLI.
package main

import (
	"os"

	"pktedit/internal/cli"
	"pktedit/internal/logging"
)

// Build-time variables set via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	info := cli.BuildInfo{
		Version: version,
		Commit:  commit,
		Date:    date,
	}

	rootCmd := cli.NewRootCommand(info)

	if err := rootCmd.Execute(); err != nil {
		logging.New(logging.ResolveLevel("")).Error("command failed", logging.FieldError, err)
		return 1
	}

	return 0
}
