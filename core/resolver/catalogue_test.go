package resolver

import (
	"sync"
	"testing"

	"github.com/willibrandon/gowiz/core"
	"github.com/willibrandon/gowiz/version"
)

// definition builds a definition; ver may be empty for unversioned ones.
func definition(id, ver string, reqs ...string) *core.Definition {
	def := &core.Definition{Identifier: id}
	if ver != "" {
		def.Version = version.MustParse(ver)
	}
	for _, r := range reqs {
		def.Requirements = append(def.Requirements, core.MustParseRequirement(r))
	}
	return def
}

func namespaced(ns string, def *core.Definition) *core.Definition {
	def.Namespace = ns
	return def
}

func conditioned(def *core.Definition, conditions ...string) *core.Definition {
	for _, c := range conditions {
		def.Conditions = append(def.Conditions, core.MustParseRequirement(c))
	}
	return def
}

func withVariants(def *core.Definition, variants ...core.Variant) *core.Definition {
	def.Variants = append(def.Variants, variants...)
	return def
}

func variant(name string, reqs ...string) core.Variant {
	v := core.Variant{Identifier: name}
	for _, r := range reqs {
		v.Requirements = append(v.Requirements, core.MustParseRequirement(r))
	}
	return v
}

func requirements(values ...string) []core.Requirement {
	reqs := make([]core.Requirement, len(values))
	for i, value := range values {
		reqs[i] = core.MustParseRequirement(value)
	}
	return reqs
}

func newRepository(t *testing.T, defs ...*core.Definition) *core.Repository {
	t.Helper()
	repo, err := core.NewRepository(defs...)
	if err != nil {
		t.Fatalf("NewRepository() failed: %v", err)
	}
	return repo
}

// scenarioRepository holds the catalogue shared by the end-to-end tests:
//
//	A -> C>=0.3.2,<1 -> D==0.1.0
//	G -> B<0.2.0 -> D>=0.1.0 -> E>=2 -> F>=0.2
//	             -> F>=1
func scenarioRepository(t *testing.T) *core.Repository {
	t.Helper()
	return newRepository(t,
		definition("A", "0.2.0", "C>=0.3.2,<1"),
		definition("A", "0.1.0"),
		definition("C", "0.3.2", "D==0.1.0"),
		definition("C", "1.0.0"),
		definition("D", "0.1.0"),
		definition("D", "0.1.4", "E>=2"),
		definition("E", "2.3.0", "F>=0.2"),
		definition("F", "0.9.0"),
		definition("F", "1.0.0"),
		definition("G", "2.0.2", "B<0.2.0"),
		definition("B", "0.1.0", "D>=0.1.0", "F>=1"),
		definition("B", "0.3.0"),
	)
}

func packageIdentifiers(packages []*core.Package) []string {
	ids := make([]string, len(packages))
	for i, pkg := range packages {
		ids[i] = pkg.QualifiedIdentifier
	}
	return ids
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// countingCatalogue counts Extract calls per requirement.
type countingCatalogue struct {
	catalogue Catalogue

	mu    sync.Mutex
	calls map[string]int
}

func newCountingCatalogue(catalogue Catalogue) *countingCatalogue {
	return &countingCatalogue{catalogue: catalogue, calls: make(map[string]int)}
}

func (c *countingCatalogue) Extract(req core.Requirement, counter core.NamespaceCounter) ([]*core.Package, error) {
	c.mu.Lock()
	c.calls[req.String()]++
	c.mu.Unlock()
	return c.catalogue.Extract(req, counter)
}

func (c *countingCatalogue) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := 0
	for _, n := range c.calls {
		total += n
	}
	return total
}
