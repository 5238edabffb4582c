package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pktedit/internal/config"
	"pktedit/internal/logging"
)

// initFlags holds the flags for the init command.
type initFlags struct {
	force bool
}

func newInitCommand(root *rootFlags) *cobra.Command {
	flags := &initFlags{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Long: `Write the default theme and editor settings to the config file
(~/.config/pktedit/pktedit.toml, or the path given with --config).

Examples:
  pktedit init                      Create the default config
  pktedit init --force              Overwrite an existing config
  pktedit init --config ./my.toml   Write to a custom path`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd, root, flags)
		},
	}

	cmd.Flags().BoolVarP(&flags.force, "force", "f", false, "Overwrite existing configuration file")

	return cmd
}

func runInit(cmd *cobra.Command, root *rootFlags, flags *initFlags) error {
	logger := logging.FromContext(cmd.Context())

	path := root.configPath
	if path == "" {
		path = config.ConfigPath()
	}

	if _, err := os.Stat(path); err == nil && !flags.force {
		return fmt.Errorf("file %q already exists; use --force to overwrite", path)
	}

	if err := config.DefaultConfig().SaveTo(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	logger.Debug("config written", logging.FieldPath, path)
	cmd.Printf("Created %s\n", path)
	return nil
}
