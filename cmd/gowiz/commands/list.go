package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/willibrandon/gowiz/cmd/gowiz/output"
	"github.com/willibrandon/gowiz/core"
)

// NewListCommand creates the list command
func NewListCommand(console *output.Console) *cobra.Command {
	opts := &commonOptions{}

	cmd := &cobra.Command{
		Use:   "list [NAME...]",
		Short: "List available definitions",
		Long: `List the definitions found in the definition paths, ordered by qualified
identifier and descending version. Names restrict the listing to matching
definition identifiers.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd, opts)
			if err != nil {
				return err
			}
			console.SetVerbosity(s.verbosity)

			if len(s.definitionPaths) == 0 {
				return errNoDefinitionPaths
			}

			repo, err := core.LoadRepository(cmd.Context(), s.definitionPaths...)
			if err != nil {
				return err
			}

			defs := repo.Definitions()
			if len(args) > 0 {
				defs = filterDefinitions(defs, args)
			}

			console.PrintDefinitions(defs)
			console.Detail("%d definitions in %s", len(defs), strings.Join(s.definitionPaths, ", "))
			return nil
		},
	}

	addCommonFlags(cmd, opts)
	return cmd
}

func filterDefinitions(defs []*core.Definition, names []string) []*core.Definition {
	var kept []*core.Definition
	for _, def := range defs {
		for _, name := range names {
			if def.Identifier == name || def.QualifiedIdentifier() == name {
				kept = append(kept, def)
				break
			}
		}
	}
	return kept
}
