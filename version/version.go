// Package version provides semantic version parsing, comparison and
// version specifiers for package definitions.
//
// Versions follow SemVer 2.0 with lenient parsing of short forms, so "1"
// and "1.2" are accepted and normalized to "1.0.0" and "1.2.0".
//
// Example:
//
//	v, err := version.Parse("1.2.3-beta.1")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(v.Major(), v.Minor(), v.Patch()) // 1 2 3
package version

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Version represents a package version.
//
// The zero value is not usable; create versions with Parse or MustParse.
type Version struct {
	sv *semver.Version

	// originalString preserves the original version string
	originalString string
}

// Parse parses a version string into a Version.
//
// Returns an error if the version string is empty or invalid.
func Parse(s string) (*Version, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("version string cannot be empty")
	}

	sv, err := semver.NewVersion(s)
	if err != nil {
		return nil, fmt.Errorf("invalid version %q: %w", s, err)
	}

	return &Version{sv: sv, originalString: s}, nil
}

// MustParse parses a version string and panics on error.
// Use this only when you know the version string is valid.
func MustParse(s string) *Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// Major returns the major version number.
func (v *Version) Major() uint64 { return v.sv.Major() }

// Minor returns the minor version number.
func (v *Version) Minor() uint64 { return v.sv.Minor() }

// Patch returns the patch version number.
func (v *Version) Patch() uint64 { return v.sv.Patch() }

// Prerelease returns the prerelease label, or "" for a release version.
func (v *Version) Prerelease() string { return v.sv.Prerelease() }

// String returns the version as originally written.
func (v *Version) String() string {
	if v == nil {
		return ""
	}
	if v.originalString != "" {
		return v.originalString
	}
	return v.sv.String()
}

// Normalized returns the canonical Major.Minor.Patch[-Prerelease][+Metadata] form.
func (v *Version) Normalized() string {
	return v.sv.String()
}

// Compare returns -1, 0 or 1 when v is lower than, equal to or greater than other.
//
// A nil version sorts before every non-nil version, which is how unversioned
// definitions are ordered against versioned ones.
func (v *Version) Compare(other *Version) int {
	switch {
	case v == nil && other == nil:
		return 0
	case v == nil:
		return -1
	case other == nil:
		return 1
	}
	return v.sv.Compare(other.sv)
}

// Equals reports whether both versions are equal. Build metadata is ignored.
func (v *Version) Equals(other *Version) bool {
	return v.Compare(other) == 0
}

// GreaterThan reports whether v is greater than other.
func (v *Version) GreaterThan(other *Version) bool {
	return v.Compare(other) > 0
}

// LessThan reports whether v is lower than other.
func (v *Version) LessThan(other *Version) bool {
	return v.Compare(other) < 0
}
