// Package cli holds the gowiz root command.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/willibrandon/gowiz/cmd/gowiz/output"
)

// Console is the global console for CLI commands
var Console *output.Console

// NewRootCommand creates the root command without subcommands.
func NewRootCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "gowiz",
		Short: "Package dependency resolver",
		Long: `gowiz resolves package requests against a catalogue of YAML or JSON
definitions and prints the packages to use, dependencies first.

Definition paths come from gowiz.yaml, the --definition-path flag and the
GOWIZ_DEFINITION_PATH environment variable.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Run: func(cmd *cobra.Command, args []string) {
			// Show help when no command is provided
			_ = cmd.Help()
		},
	}
}

var rootCmd = NewRootCommand()

func init() {
	Console = output.DefaultConsole()
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// SetupVersion configures version information after variables are set
func SetupVersion() {
	rootCmd.SetVersionTemplate(GetFullVersion() + "\n")
	rootCmd.Version = GetVersion()
}

// AddCommand adds a command to the root command
func AddCommand(cmd *cobra.Command) {
	rootCmd.AddCommand(cmd)
}
