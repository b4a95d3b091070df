package version

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// clausePattern matches one comparison clause such as ">=1.2" or "==0.1.0".
var clausePattern = regexp.MustCompile(`^(==|!=|>=|<=|=|>|<|~|\^)?\s*([0-9A-Za-z.+\-]+)$`)

// Specifier represents a set of version comparison clauses.
//
// All clauses must hold for a version to be contained. A nil *Specifier
// means "any version".
//
// Syntax:
//
//	>=1.0, <2     - 1.0.0 ≤ x < 2.0.0
//	==0.1.0       - x = 0.1.0
//	!=1.5.0       - any version except 1.5.0
//	~1.2.3        - 1.2.3 ≤ x < 1.3.0
//	^1.2.3        - 1.2.3 ≤ x < 2.0.0
type Specifier struct {
	clauses     []clause
	constraints *semver.Constraints
}

type clause struct {
	operator string
	version  *Version
}

// String renders the clause with a normalized version so short forms such
// as "1" never take on wildcard semantics.
func (c clause) String() string {
	return c.operator + c.version.Normalized()
}

// semverString renders the clause in the constraint syntax of the semver library.
func (c clause) semverString() string {
	op := c.operator
	if op == "==" {
		op = "="
	}
	return op + c.version.Normalized()
}

// ParseSpecifier parses comma separated comparison clauses.
//
// An empty string returns a nil specifier, which contains every version.
func ParseSpecifier(s string) (*Specifier, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	parts := strings.Split(s, ",")
	clauses := make([]clause, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("invalid specifier %q: empty clause", s)
		}

		m := clausePattern.FindStringSubmatch(part)
		if m == nil {
			return nil, fmt.Errorf("invalid specifier clause %q", part)
		}

		v, err := Parse(m[2])
		if err != nil {
			return nil, fmt.Errorf("invalid specifier clause %q: %w", part, err)
		}

		op := m[1]
		if op == "" || op == "=" {
			op = "=="
		}
		clauses = append(clauses, clause{operator: op, version: v})
	}

	return newSpecifier(clauses)
}

// MustParseSpecifier parses a specifier and panics on error.
func MustParseSpecifier(s string) *Specifier {
	spec, err := ParseSpecifier(s)
	if err != nil {
		panic(err)
	}
	return spec
}

func newSpecifier(clauses []clause) (*Specifier, error) {
	rendered := make([]string, len(clauses))
	for i, c := range clauses {
		rendered[i] = c.semverString()
	}

	constraints, err := semver.NewConstraint(strings.Join(rendered, ", "))
	if err != nil {
		return nil, fmt.Errorf("invalid specifier %q: %w", strings.Join(rendered, ","), err)
	}

	return &Specifier{clauses: clauses, constraints: constraints}, nil
}

// Contains reports whether the version satisfies every clause.
//
// A nil specifier contains every version, including a missing one. A
// non-nil specifier never contains a missing version.
func (s *Specifier) Contains(v *Version) bool {
	if s == nil {
		return true
	}
	if v == nil {
		return false
	}
	return s.constraints.Check(v.sv)
}

// Intersect returns a specifier holding the clauses of both specifiers.
//
// Duplicated clauses are kept once and clause order is preserved.
func (s *Specifier) Intersect(other *Specifier) (*Specifier, error) {
	if s == nil {
		return other, nil
	}
	if other == nil {
		return s, nil
	}

	seen := make(map[string]bool, len(s.clauses)+len(other.clauses))
	clauses := make([]clause, 0, len(s.clauses)+len(other.clauses))
	for _, c := range append(append([]clause{}, s.clauses...), other.clauses...) {
		key := c.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		clauses = append(clauses, c)
	}

	return newSpecifier(clauses)
}

// FindBestMatch returns the highest version contained in the specifier.
//
// Returns nil if no version is contained.
func (s *Specifier) FindBestMatch(versions []*Version) *Version {
	var best *Version
	for _, v := range versions {
		if s.Contains(v) && (best == nil || v.GreaterThan(best)) {
			best = v
		}
	}
	return best
}

// String returns the canonical form of the specifier, or "" when nil.
func (s *Specifier) String() string {
	if s == nil {
		return ""
	}

	parts := make([]string, len(s.clauses))
	for i, c := range s.clauses {
		parts[i] = c.String()
	}
	return strings.Join(parts, ", ")
}
