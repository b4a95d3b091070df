package output

import (
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/willibrandon/gowiz/core"
	"github.com/willibrandon/gowiz/core/resolver"
)

// SchemaVersion is the version of the JSON output contract
const SchemaVersion = "1.0.0"

// ResolveOutput represents the JSON output of the resolve command
type ResolveOutput struct {
	SchemaVersion string              `json:"schemaVersion"`
	Requirements  []string            `json:"requirements"`
	Packages      []PackageOutput     `json:"packages"`
	Error         *ResolveErrorOutput `json:"error,omitempty"`
	ElapsedMs     int64               `json:"elapsedMs"`
}

// PackageOutput represents one resolved package in JSON output
type PackageOutput struct {
	Identifier  string `json:"identifier"`
	Definition  string `json:"definition"`
	Namespace   string `json:"namespace,omitempty"`
	Version     string `json:"version,omitempty"`
	Variant     string `json:"variant,omitempty"`
	Description string `json:"description,omitempty"`
}

// ResolveErrorOutput describes a failed resolution in JSON output
type ResolveErrorOutput struct {
	Message   string              `json:"message"`
	Conflicts []ConflictOutput    `json:"conflicts,omitempty"`
	Invalid   map[string][]string `json:"invalid,omitempty"`
}

// ConflictOutput is one conflicting requirement
type ConflictOutput struct {
	Requirement string   `json:"requirement"`
	Parents     []string `json:"parents"`
	Conflicting []string `json:"conflicting"`
}

// NewResolveOutput builds the JSON document of a resolution.
func NewResolveOutput(requests []string, packages []*core.Package, err error, elapsed time.Duration) *ResolveOutput {
	out := &ResolveOutput{
		SchemaVersion: SchemaVersion,
		Requirements:  requests,
		Packages:      make([]PackageOutput, 0, len(packages)),
		ElapsedMs:     elapsed.Milliseconds(),
	}

	for _, pkg := range packages {
		out.Packages = append(out.Packages, PackageOutput{
			Identifier:  pkg.QualifiedIdentifier,
			Definition:  pkg.DefinitionIdentifier,
			Namespace:   pkg.Namespace,
			Version:     pkg.Version.String(),
			Variant:     pkg.VariantName,
			Description: pkg.Description,
		})
	}

	if err != nil {
		out.Error = newErrorOutput(err)
	}
	return out
}

func newErrorOutput(err error) *ResolveErrorOutput {
	out := &ResolveErrorOutput{Message: err.Error()}

	var conflictsErr *resolver.GraphConflictsError
	if errors.As(err, &conflictsErr) {
		for _, record := range conflictsErr.Conflicts {
			out.Conflicts = append(out.Conflicts, ConflictOutput{
				Requirement: record.Requirement.String(),
				Parents:     record.Identifiers,
				Conflicting: record.ConflictingIdentifiers,
			})
		}
	}

	var invalidErr *resolver.GraphInvalidNodesError
	if errors.As(err, &invalidErr) {
		out.Invalid = make(map[string][]string, len(invalidErr.Errors))
		for identifier, errs := range invalidErr.Errors {
			for _, nodeErr := range errs {
				out.Invalid[identifier] = append(out.Invalid[identifier], nodeErr.Error())
			}
		}
	}

	return out
}

// WriteJSON writes v as indented JSON
func WriteJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
