package output

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/willibrandon/gowiz/core"
	"github.com/willibrandon/gowiz/core/resolver"
	"github.com/willibrandon/gowiz/version"
)

func newTestConsole(verbosity Verbosity) (*Console, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	c := NewConsole(&out, &errOut, verbosity)
	c.SetColors(false)
	return c, &out, &errOut
}

func testPackage(name, ver, description string) *core.Package {
	return core.NewPackage(&core.Definition{
		Identifier:  name,
		Version:     version.MustParse(ver),
		Description: description,
	}, -1)
}

func TestParseVerbosity(t *testing.T) {
	tests := []struct {
		input   string
		want    Verbosity
		wantErr bool
	}{
		{"", VerbosityNormal, false},
		{"q", VerbosityQuiet, false},
		{"Quiet", VerbosityQuiet, false},
		{"detailed", VerbosityDetailed, false},
		{"diag", VerbosityDiagnostic, false},
		{"chatty", VerbosityNormal, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseVerbosity(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseVerbosity(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseVerbosity(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestConsole_VerbosityFiltering(t *testing.T) {
	tests := []struct {
		name      string
		verbosity Verbosity
		write     func(*Console)
		want      string
	}{
		{"quiet hides info", VerbosityQuiet, func(c *Console) { c.Info("info") }, ""},
		{"quiet keeps errors", VerbosityQuiet, func(c *Console) { c.Error("boom") }, "Error: boom\n"},
		{"normal shows warnings", VerbosityNormal, func(c *Console) { c.Warning("careful") }, "Warning: careful\n"},
		{"normal shows success", VerbosityNormal, func(c *Console) { c.Success("done") }, "done\n"},
		{"normal hides details", VerbosityNormal, func(c *Console) { c.Detail("detail") }, ""},
		{"detailed shows details", VerbosityDetailed, func(c *Console) { c.Detail("detail %d", 1) }, "detail 1\n"},
		{"detailed hides debug", VerbosityDetailed, func(c *Console) { c.Debug("debug") }, ""},
		{"diagnostic shows debug", VerbosityDiagnostic, func(c *Console) { c.Debug("debug") }, "[DEBUG] debug\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, out, errOut := newTestConsole(tt.verbosity)
			tt.write(c)

			if out.Len() != 0 {
				t.Errorf("stdout = %q, want nothing", out.String())
			}
			if errOut.String() != tt.want {
				t.Errorf("stderr = %q, want %q", errOut.String(), tt.want)
			}
		})
	}
}

func TestConsole_PrintPackages(t *testing.T) {
	packages := []*core.Package{
		testPackage("lib", "1.0.0", "The library"),
		testPackage("app", "2.0", ""),
	}

	c, out, _ := newTestConsole(VerbosityNormal)
	c.PrintPackages(packages)
	if got := out.String(); got != "lib==1.0.0\napp==2.0\n" {
		t.Errorf("PrintPackages() = %q", got)
	}

	c, out, _ = newTestConsole(VerbosityDetailed)
	c.PrintPackages(packages)
	if got := out.String(); got != "lib==1.0.0\tThe library\napp==2.0\n" {
		t.Errorf("PrintPackages() detailed = %q", got)
	}
}

func TestConsole_ReportError(t *testing.T) {
	conflicts := &resolver.GraphConflictsError{Conflicts: []resolver.ConflictRecord{{
		Requirement:            core.MustParseRequirement("lib<2"),
		Identifiers:            []string{"x==1.0.0"},
		ConflictingIdentifiers: []string{"y==1.0.0"},
	}}}
	invalid := &resolver.GraphInvalidNodesError{Errors: map[string][]error{
		"root": {errors.New("unknown: no definition named \"unknown\"")},
	}}

	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			"conflicts",
			conflicts,
			"Error: conflicting requirements for lib\n  * lib <2.0.0 [x==1.0.0] conflicts with [y==1.0.0]\n",
		},
		{
			"invalid nodes",
			invalid,
			"Error: the dependency graph is invalid\n  * root: unknown: no definition named \"unknown\"\n",
		},
		{
			"other",
			resolver.ErrResolutionTimeout,
			"Error: resolution timed out\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, errOut := newTestConsole(VerbosityNormal)
			c.ReportError(tt.err)
			if errOut.String() != tt.want {
				t.Errorf("ReportError() = %q, want %q", errOut.String(), tt.want)
			}
		})
	}
}

func TestConsole_PrintDefinitions(t *testing.T) {
	defs := []*core.Definition{
		{Identifier: "tool", Namespace: "ns", Version: version.MustParse("1.0.0"),
			Variants: []core.Variant{{Identifier: "cpu"}, {Identifier: "gpu"}}},
		{Identifier: "plain", Description: "No version"},
	}

	c, out, _ := newTestConsole(VerbosityNormal)
	c.PrintDefinitions(defs)

	want := "ns::tool 1.0.0 [cpu, gpu]\nplain\tNo version\n"
	if out.String() != want {
		t.Errorf("PrintDefinitions() = %q, want %q", out.String(), want)
	}
}

func TestNewResolveOutput(t *testing.T) {
	packages := []*core.Package{testPackage("lib", "1.0.0", "")}
	invalid := &resolver.GraphInvalidNodesError{Errors: map[string][]error{
		"app==1.0.0": {errors.New("missing: not found")},
	}}

	ok := NewResolveOutput([]string{"lib"}, packages, nil, 1500*time.Millisecond)
	if ok.Error != nil || len(ok.Packages) != 1 || ok.ElapsedMs != 1500 {
		t.Errorf("NewResolveOutput() = %+v", ok)
	}
	if ok.Packages[0].Version != "1.0.0" || ok.Packages[0].Definition != "lib" {
		t.Errorf("package output = %+v", ok.Packages[0])
	}

	failed := NewResolveOutput([]string{"app"}, nil, invalid, 0)
	if failed.Error == nil || len(failed.Packages) != 0 {
		t.Fatalf("NewResolveOutput() = %+v", failed)
	}
	if got := failed.Error.Invalid["app==1.0.0"]; len(got) != 1 || got[0] != "missing: not found" {
		t.Errorf("invalid output = %v", failed.Error.Invalid)
	}

	var buf bytes.Buffer
	if err := WriteJSON(&buf, failed); err != nil {
		t.Fatalf("WriteJSON() failed: %v", err)
	}
	if !strings.Contains(buf.String(), `"packages": []`) {
		t.Errorf("JSON should render an empty package list, got %s", buf.String())
	}
}
