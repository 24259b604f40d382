// Package cli holds the wavelet commands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type globalOptions struct {
	configPath string
}

// NewRootCmd builds the command tree. Without a subcommand it runs the TUI.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           "wavelet",
		Short:         "A small music player with a shared playback session",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default: ./config.toml)")

	run := newRunCmd(opts)
	root.RunE = run.RunE
	root.AddCommand(
		run,
		newServeCmd(opts),
		newCatalogCmd(opts),
		newCtlCmd(opts),
		newWatchCmd(opts),
	)
	return root
}

// Execute executes the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
