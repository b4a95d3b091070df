// Package core provides the package catalogue: requirements, definitions,
// the concrete packages extracted from them and the repository that serves
// requirements.
//
// A Definition is a named, optionally namespaced and versioned package
// specification that may be split into mutually exclusive variants. A
// Package is one concrete instantiation of a definition (one version and,
// when the definition declares variants, one variant).
package core

import (
	"github.com/willibrandon/gowiz/version"
)

// Variant is a named alternative sub-configuration of a definition.
type Variant struct {
	// Identifier is the variant label
	Identifier string

	// Requirements are appended to the definition requirements
	Requirements []Requirement
}

// Definition represents a package definition.
type Definition struct {
	// Identifier is the definition name
	Identifier string

	// Namespace is the optional qualifier ("" when none)
	Namespace string

	// Version is nil for unversioned definitions
	Version *version.Version

	// Description is a short human-readable summary
	Description string

	// Requirements are the dependencies of every package of the definition
	Requirements []Requirement

	// Conditions must resolve in the graph before a package is included
	Conditions []Requirement

	// Variants are listed in declaration order (earliest = highest priority)
	Variants []Variant

	// Path is the file the definition was loaded from ("" when built in memory)
	Path string
}

// QualifiedIdentifier returns "ns::name", or "name" without namespace.
func (d *Definition) QualifiedIdentifier() string {
	return qualify(d.Namespace, d.Identifier)
}

// Key returns the identity of the definition within a repository.
func (d *Definition) Key() string {
	if d.Version == nil {
		return d.QualifiedIdentifier()
	}
	return d.QualifiedIdentifier() + "==" + d.Version.Normalized()
}

// Package represents one concrete, fully-resolved instantiation of a definition.
//
// Packages are immutable once extracted.
type Package struct {
	// Identifier is "name[variant]==version"
	Identifier string

	// QualifiedIdentifier is Identifier prefixed with "ns::" when namespaced
	QualifiedIdentifier string

	// DefinitionIdentifier is the namespace-qualified definition name
	DefinitionIdentifier string

	// Name is the definition name
	Name string

	// Namespace is "" when the definition has none
	Namespace string

	// Version is nil for unversioned definitions
	Version *version.Version

	// VariantName is "" when the definition has no variants
	VariantName string

	// VariantIndex is the declaration position of the variant, or -1
	VariantIndex int

	// Description is copied from the definition
	Description string

	// Requirements are definition requirements followed by variant requirements
	Requirements []Requirement

	// Conditions are the activation conditions of the definition
	Conditions []Requirement
}

// NewPackage creates the package for a definition and variant position.
// Use variantIndex -1 for definitions without variants.
func NewPackage(def *Definition, variantIndex int) *Package {
	pkg := &Package{
		Name:                 def.Identifier,
		Namespace:            def.Namespace,
		DefinitionIdentifier: def.QualifiedIdentifier(),
		Version:              def.Version,
		VariantIndex:         -1,
		Description:          def.Description,
		Requirements:         append([]Requirement(nil), def.Requirements...),
		Conditions:           append([]Requirement(nil), def.Conditions...),
	}

	if variantIndex >= 0 && variantIndex < len(def.Variants) {
		variant := def.Variants[variantIndex]
		pkg.VariantName = variant.Identifier
		pkg.VariantIndex = variantIndex
		pkg.Requirements = append(pkg.Requirements, variant.Requirements...)
	}

	identifier := def.Identifier
	if pkg.VariantName != "" {
		identifier += "[" + pkg.VariantName + "]"
	}
	if def.Version != nil {
		identifier += "==" + def.Version.String()
	}

	pkg.Identifier = identifier
	pkg.QualifiedIdentifier = qualify(def.Namespace, identifier)
	return pkg
}

// String returns the qualified identifier.
func (p *Package) String() string {
	return p.QualifiedIdentifier
}

func qualify(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + NamespaceSeparator + name
}
