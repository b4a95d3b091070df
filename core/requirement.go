package core

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/willibrandon/gowiz/version"
)

// NamespaceSeparator separates a namespace from a definition name.
const NamespaceSeparator = "::"

var requirementPattern = regexp.MustCompile(
	`^\s*(?:(::)|([A-Za-z0-9_.\-]+)::)?([A-Za-z0-9_.\-]+)\s*(?:\[\s*([A-Za-z0-9_.\-]+)\s*\])?\s*(.*?)\s*$`,
)

// Requirement represents a request for a definition.
//
// Syntax:
//
//	name                 - any version of name
//	ns::name >=1, <2     - namespaced name with a specifier
//	::name               - name from a definition without namespace
//	name[variant]==1.0   - a specific variant
type Requirement struct {
	// Name is the definition identifier
	Name string

	// Namespace is the explicit namespace, or "" when none was given
	Namespace string

	// NoNamespace is set when the requirement used the "::name" form
	NoNamespace bool

	// Variant is the requested variant, or "" for any variant
	Variant string

	// Specifier restricts acceptable versions; nil accepts every version
	Specifier *version.Specifier
}

// ParseRequirement parses a requirement string.
//
// Errors wrap ErrInvalidRequirement, or ErrInvalidVersion when only the
// specifier is malformed.
func ParseRequirement(s string) (Requirement, error) {
	m := requirementPattern.FindStringSubmatch(s)
	if m == nil {
		return Requirement{}, fmt.Errorf("%w: %q", ErrInvalidRequirement, s)
	}

	spec, err := version.ParseSpecifier(m[5])
	if err != nil {
		return Requirement{}, fmt.Errorf("%w: %q: %v", ErrInvalidVersion, s, err)
	}

	return Requirement{
		Name:        m[3],
		Namespace:   m[2],
		NoNamespace: m[1] != "",
		Variant:     m[4],
		Specifier:   spec,
	}, nil
}

// MustParseRequirement parses a requirement and panics on error.
func MustParseRequirement(s string) Requirement {
	req, err := ParseRequirement(s)
	if err != nil {
		panic(err)
	}
	return req
}

// ParseRequirements parses every requirement string in order.
func ParseRequirements(values []string) ([]Requirement, error) {
	reqs := make([]Requirement, 0, len(values))
	for _, value := range values {
		req, err := ParseRequirement(value)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

// QualifiedName returns "ns::name", "::name" or "name".
func (r Requirement) QualifiedName() string {
	switch {
	case r.NoNamespace:
		return NamespaceSeparator + r.Name
	case r.Namespace != "":
		return r.Namespace + NamespaceSeparator + r.Name
	default:
		return r.Name
	}
}

// String returns the canonical form of the requirement.
func (r Requirement) String() string {
	var b strings.Builder
	b.WriteString(r.QualifiedName())
	if r.Variant != "" {
		b.WriteString("[" + r.Variant + "]")
	}
	if r.Specifier != nil {
		b.WriteString(" " + r.Specifier.String())
	}
	return b.String()
}

// MatchesDefinition reports whether a definition with the given namespace
// and name can serve the requirement, ignoring version and variant.
func (r Requirement) MatchesDefinition(namespace, name string) bool {
	if r.Name != name {
		return false
	}
	switch {
	case r.NoNamespace:
		return namespace == ""
	case r.Namespace != "":
		return r.Namespace == namespace
	default:
		return true
	}
}
