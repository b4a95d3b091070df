package output

import (
	"errors"
	"strings"

	"github.com/willibrandon/gowiz/core"
	"github.com/willibrandon/gowiz/core/resolver"
)

// PrintPackages writes one qualified identifier per line to stdout.
// Detailed verbosity appends the definition description.
func (c *Console) PrintPackages(packages []*core.Package) {
	detailed := c.GetVerbosity() >= VerbosityDetailed
	for _, pkg := range packages {
		if detailed && pkg.Description != "" {
			c.Printf("%s\t%s\n", pkg.QualifiedIdentifier, pkg.Description)
			continue
		}
		c.Println(pkg.QualifiedIdentifier)
	}
}

// PrintDefinitions writes the available definitions to stdout.
func (c *Console) PrintDefinitions(defs []*core.Definition) {
	for _, def := range defs {
		line := def.QualifiedIdentifier()
		if def.Version != nil {
			line += " " + def.Version.String()
		}
		if len(def.Variants) > 0 {
			names := make([]string, len(def.Variants))
			for i, v := range def.Variants {
				names[i] = v.Identifier
			}
			line += " [" + strings.Join(names, ", ") + "]"
		}
		if def.Description != "" {
			line += "\t" + def.Description
		}
		c.Println(line)
	}
}

// ReportError renders a resolution failure to stderr, one line per
// conflicting requirement or invalid node.
func (c *Console) ReportError(err error) {
	var conflictsErr *resolver.GraphConflictsError
	var invalidErr *resolver.GraphInvalidNodesError

	switch {
	case errors.As(err, &conflictsErr):
		c.Error("conflicting requirements for %s", strings.Join(conflictsErr.Definitions(), ", "))
		for _, record := range conflictsErr.Conflicts {
			c.write(c.err, ColorConflict, "  * ", "%s", record.String())
		}

	case errors.As(err, &invalidErr):
		c.Error("the dependency graph is invalid")
		for _, identifier := range invalidErr.Identifiers() {
			for _, nodeErr := range invalidErr.Errors[identifier] {
				c.write(c.err, ColorWarning, "  * ", "%s: %v", identifier, nodeErr)
			}
		}

	default:
		c.Error("%v", err)
	}
}
