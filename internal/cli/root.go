// Package cli provides the Cobra command structure for pktedit.
package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"pktedit/internal/logging"
)

// BuildInfo holds build-time version information.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// rootFlags are shared by every command.
type rootFlags struct {
	configPath string
	logLevel   string
	logFile    string

	logOut *os.File
}

// NewRootCommand creates the root pktedit command with all subcommands.
func NewRootCommand(info BuildInfo) *cobra.Command {
	flags := &rootFlags{}
	edit := &editFlags{}

	rootCmd := &cobra.Command{
		Use:   "pktedit [file]",
		Short: "Edit a raw payload as decoded text, hex and ASCII side by side",
		Long: `pktedit opens a byte payload in three synchronized panes: the text
decoded with a selectable charset, a hex dump and an ASCII dump.

Edits are made in the text pane and land in the bytes exactly where the
encoded text sits, so the untouched bytes stay as they were. Large payloads
open as a read-only preview until the whole payload is requested.

When no file is given the payload is read from standard input.`,
		Args:    cobra.MaximumNArgs(1),
		Version: info.Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// The editor owns the terminal; only its subcommands log to stderr.
			logger, err := flags.openLogger(cmd == cmd.Root())
			if err != nil {
				return err
			}
			cmd.SetContext(logging.WithLogger(cmd.Context(), logger))
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			flags.closeLog()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(cmd, flags, edit, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags.
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "",
		"log level: debug, info, warn, error (default from "+logging.LevelEnvVar+")")
	rootCmd.PersistentFlags().StringVar(&flags.logFile, "log-file", "", "write logs to this file")

	rootCmd.Flags().StringVar(&edit.charset, "charset", "", "charset of the text pane, or AUTO")
	rootCmd.Flags().StringVarP(&edit.out, "out", "o", "", "write the edited bytes here on quit (- for stdout)")
	rootCmd.Flags().BoolVar(&edit.all, "all", false, "open large payloads in full instead of a preview")

	rootCmd.AddCommand(newInitCommand(flags))
	rootCmd.AddCommand(newDumpCommand(flags))
	rootCmd.AddCommand(newVersionCommand(info))

	return rootCmd
}

func newVersionCommand(info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("pktedit %s (commit %s, built %s)\n", info.Version, info.Commit, info.Date)
		},
	}
}

// openLogger builds the session logger and makes it the default. With
// --log-file everything goes to that file; otherwise an interactive session
// logs nothing and other commands log to stderr.
func (f *rootFlags) openLogger(interactive bool) (*log.Logger, error) {
	level := logging.ResolveLevel(f.logLevel)

	var logger *log.Logger
	switch {
	case f.logFile != "":
		out, err := os.OpenFile(f.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, outputFilePermissions)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		f.logOut = out
		logger = logging.NewWithWriter(out, level)
	case interactive:
		logger = logging.Discard()
	default:
		logger = logging.New(level)
	}

	logging.SetDefault(logger)
	return logger, nil
}

func (f *rootFlags) closeLog() {
	if f.logOut != nil {
		_ = f.logOut.Close()
		f.logOut = nil
	}
}
