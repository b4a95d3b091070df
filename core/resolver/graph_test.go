package resolver

import (
	"errors"
	"testing"

	"github.com/willibrandon/gowiz/core"
)

func mustLookup(t *testing.T, g *Graph, identifier string) *Node {
	t.Helper()
	node, ok := g.Lookup(identifier)
	if !ok {
		t.Fatalf("node %q not found in graph", identifier)
	}
	return node
}

func TestGraph_UpdateFromRequirements(t *testing.T) {
	g := NewGraph(scenarioRepository(t), nil, nil)
	g.UpdateFromRequirements(requirements("A", "G"), RootID)

	expected := []string{
		"A==0.2.0", "G==2.0.2", "C==0.3.2", "B==0.1.0",
		"D==0.1.0", "D==0.1.4", "F==1.0.0", "E==2.3.0",
	}

	nodes := g.Nodes()
	if len(nodes) != len(expected) {
		t.Fatalf("Nodes() returned %d nodes, want %d", len(nodes), len(expected))
	}
	for i, node := range nodes {
		if node.Identifier() != expected[i] {
			t.Errorf("node %d = %s, want %s (breadth-first creation order)", i, node.Identifier(), expected[i])
		}
		if node.ID != NodeID(i+1) {
			t.Errorf("node %s has handle %d, want %d", node.Identifier(), node.ID, i+1)
		}
	}

	a := mustLookup(t, g, "A==0.2.0")
	link, ok := g.Link(RootID, a.ID)
	if !ok || link.Weight != 1 {
		t.Errorf("Link(root, A) = (%+v, %v), want weight 1", link, ok)
	}

	b := mustLookup(t, g, "B==0.1.0")
	f := mustLookup(t, g, "F==1.0.0")
	link, ok = g.Link(b.ID, f.ID)
	if !ok || link.Weight != 2 {
		t.Errorf("Link(B, F) = (%+v, %v), want weight 2", link, ok)
	}
	if link.Requirement.String() != "F >=1.0.0" {
		t.Errorf("Link(B, F) requirement = %q, want %q", link.Requirement.String(), "F >=1.0.0")
	}

	// F is requested by B and by E: one node, two parents
	e := mustLookup(t, g, "E==2.3.0")
	parents := f.Parents()
	if len(parents) != 2 || parents[0] != b.ID || parents[1] != e.ID {
		t.Errorf("F parents = %v, want [%d %d]", parents, b.ID, e.ID)
	}
}

func TestGraph_LowerWeightLinkWins(t *testing.T) {
	repo := newRepository(t, definition("X", "1.0.0"), definition("Y", "1.0.0"))

	g := NewGraph(repo, nil, nil)
	g.UpdateFromRequirements(requirements("X>=1", "X"), RootID)

	x := mustLookup(t, g, "X==1.0.0")
	link, _ := g.Link(RootID, x.ID)
	if link.Weight != 1 || link.Requirement.String() != "X >=1.0.0" {
		t.Errorf("Link(root, X) = %+v, want first requirement with weight 1", link)
	}

	g = NewGraph(repo, nil, nil)
	g.UpdateFromRequirements(requirements("Y", "X"), RootID)
	g.UpdateFromRequirements(requirements("X>=1"), RootID)

	x = mustLookup(t, g, "X==1.0.0")
	link, _ = g.Link(RootID, x.ID)
	if link.Weight != 1 || link.Requirement.String() != "X >=1.0.0" {
		t.Errorf("Link(root, X) = %+v, want lower weight link to overwrite", link)
	}
}

func TestGraph_ExtractionErrorsRecorded(t *testing.T) {
	repo := newRepository(t,
		definition("A", "1.0.0", "missing", "B"),
		definition("B", "1.0.0"),
	)

	g := NewGraph(repo, nil, nil)
	g.UpdateFromRequirements(requirements("A", "unknown>2"), RootID)

	a := mustLookup(t, g, "A==1.0.0")
	errs := g.Errors(a.ID)
	if len(errs) != 1 || !errors.Is(errs[0], core.ErrRequestNotFound) {
		t.Errorf("Errors(A) = %v, want one request not found error", errs)
	}

	rootErrs := g.Errors(RootID)
	if len(rootErrs) != 1 || !errors.Is(rootErrs[0], core.ErrRequestNotFound) {
		t.Errorf("Errors(root) = %v, want one request not found error", rootErrs)
	}

	// expansion continues past the failing requirement
	if _, ok := g.Lookup("B==1.0.0"); !ok {
		t.Error("B should have been added despite the failing sibling requirement")
	}
}

func TestGraph_ConditionedPackagesDeferred(t *testing.T) {
	repo := newRepository(t,
		definition("A", "1.1.0"),
		conditioned(definition("B", "1.0.0", "C>0.1.0"), "A<1"),
		definition("C", "0.5.0"),
	)

	g := NewGraph(repo, nil, nil)
	g.UpdateFromRequirements(requirements("A==1.1.0", "B"), RootID)

	if _, ok := g.Lookup("B==1.0.0"); ok {
		t.Error("conditioned package should not be added during expansion")
	}
	if g.ConditionedCount() != 1 {
		t.Errorf("ConditionedCount() = %d, want 1", g.ConditionedCount())
	}

	distances := g.stabilize()
	if _, ok := g.Lookup("B==1.0.0"); ok {
		t.Error("conditioned package with failing condition should not be promoted")
	}
	if len(distances) != 2 {
		t.Errorf("stabilize() returned %d distances, want root and A", len(distances))
	}
}

func TestGraph_Find(t *testing.T) {
	g := NewGraph(scenarioRepository(t), nil, nil)
	g.UpdateFromRequirements(requirements("A", "G"), RootID)

	tests := []struct {
		requirement string
		expected    []string
	}{
		{"D", []string{"D==0.1.4", "D==0.1.0"}},
		{"D<0.1.4", []string{"D==0.1.0"}},
		{"::D", []string{"D==0.1.4", "D==0.1.0"}},
		{"other::D", nil},
		{"D[V1]", nil},
		{"F>1", nil},
		{"Z", nil},
	}

	for _, tt := range tests {
		t.Run(tt.requirement, func(t *testing.T) {
			var found []string
			for _, id := range g.Find(core.MustParseRequirement(tt.requirement)) {
				node, _ := g.Node(id)
				found = append(found, node.Identifier())
			}
			if !equalStrings(found, tt.expected) {
				t.Errorf("Find(%s) = %v, want %v", tt.requirement, found, tt.expected)
			}
		})
	}
}

func TestGraph_ComputeDistances(t *testing.T) {
	g := NewGraph(scenarioRepository(t), nil, nil)
	g.UpdateFromRequirements(requirements("A", "G"), RootID)

	distances := g.ComputeDistances()

	expected := map[string]struct {
		value  int
		parent string
	}{
		"A==0.2.0": {1, RootIdentifier},
		"G==2.0.2": {2, RootIdentifier},
		"C==0.3.2": {2, "A==0.2.0"},
		"B==0.1.0": {3, "G==2.0.2"},
		"D==0.1.0": {3, "C==0.3.2"},
		"D==0.1.4": {4, "B==0.1.0"},
		"F==1.0.0": {5, "B==0.1.0"},
		"E==2.3.0": {5, "D==0.1.4"},
	}

	for identifier, want := range expected {
		node := mustLookup(t, g, identifier)
		got, ok := distances[node.ID]
		if !ok {
			t.Errorf("%s has no distance", identifier)
			continue
		}
		if got.Value != want.value || g.identifier(got.Parent) != want.parent {
			t.Errorf("%s distance = (%d, %s), want (%d, %s)",
				identifier, got.Value, g.identifier(got.Parent), want.value, want.parent)
		}
	}
}

func TestGraph_RemovedNodesAreUnreachable(t *testing.T) {
	g := NewGraph(scenarioRepository(t), nil, nil)
	g.UpdateFromRequirements(requirements("A", "G"), RootID)

	d := mustLookup(t, g, "D==0.1.4")
	g.removeNode(d.ID)

	if g.Exists(d.ID) {
		t.Fatal("removed node still exists")
	}

	distances := g.ComputeDistances()
	e := mustLookup(t, g, "E==2.3.0")
	if _, ok := distances[e.ID]; ok {
		t.Error("E should be unreachable once D==0.1.4 is removed")
	}

	b := mustLookup(t, g, "B==0.1.0")
	for _, child := range g.Children(b.ID) {
		if child == d.ID {
			t.Error("Children() should skip removed nodes")
		}
	}
	if _, ok := g.Link(b.ID, d.ID); ok {
		t.Error("Link() to a removed node should not be returned")
	}
}

func TestGraph_RemoveAndRelink(t *testing.T) {
	g := NewGraph(scenarioRepository(t), nil, nil)
	g.UpdateFromRequirements(requirements("A", "G"), RootID)

	old := mustLookup(t, g, "D==0.1.4")
	replacement := mustLookup(t, g, "D==0.1.0")
	b := mustLookup(t, g, "B==0.1.0")

	if err := g.removeAndRelink([]NodeID{old.ID}, nil); err != nil {
		t.Fatalf("removeAndRelink() failed: %v", err)
	}

	link, ok := g.Link(b.ID, replacement.ID)
	if !ok {
		t.Fatal("B should be relinked to D==0.1.0")
	}
	if link.Weight != 1 || link.Requirement.String() != "D >=0.1.0" {
		t.Errorf("relinked link = %+v, want original requirement and weight", link)
	}

	parents := replacement.Parents()
	if len(parents) != 2 {
		t.Errorf("D==0.1.0 parents = %v, want C and B", parents)
	}
}

func TestGraph_RemoveAndRelinkFailure(t *testing.T) {
	g := NewGraph(scenarioRepository(t), nil, nil)
	g.UpdateFromRequirements(requirements("A", "G"), RootID)

	c := mustLookup(t, g, "C==0.3.2")
	err := g.removeAndRelink([]NodeID{c.ID}, nil)

	var resolutionErr *GraphResolutionError
	if !errors.As(err, &resolutionErr) {
		t.Fatalf("removeAndRelink() error = %v, want *GraphResolutionError", err)
	}
}

func TestGraph_Clone(t *testing.T) {
	g := NewGraph(scenarioRepository(t), nil, nil)
	g.UpdateFromRequirements(requirements("A", "G"), RootID)

	clone := g.Clone()
	d := mustLookup(t, clone, "D==0.1.4")
	if err := clone.removeAndRelink([]NodeID{d.ID}, nil); err != nil {
		t.Fatalf("removeAndRelink() failed: %v", err)
	}

	if !g.Exists(d.ID) {
		t.Error("removing from the clone changed the original graph")
	}

	b := mustLookup(t, g, "B==0.1.0")
	replacement := mustLookup(t, g, "D==0.1.0")
	if _, ok := g.Link(b.ID, replacement.ID); ok {
		t.Error("relinking in the clone changed the original links")
	}
	if len(replacement.Parents()) != 1 {
		t.Error("relinking in the clone changed the original parent sets")
	}
	if len(clone.Nodes()) != len(g.Nodes())-1 {
		t.Errorf("clone has %d nodes, want %d", len(clone.Nodes()), len(g.Nodes())-1)
	}
}

func TestGraph_Divide(t *testing.T) {
	repo := newRepository(t,
		withVariants(definition("A", "1.0.0"),
			variant("V4", "B>=4"),
			variant("V3", "B>=3,<4"),
			variant("V2", "B>=2,<3"),
			variant("V1", "B>=1,<2"),
		),
		definition("B", "1.0.0"),
		definition("B", "2.0.0"),
		definition("B", "3.0.0"),
		definition("B", "4.0.0"),
	)

	g := NewGraph(repo, nil, nil)
	g.UpdateFromRequirements(requirements("A"), RootID)

	if n := len(g.VariantConflicts()); n != 1 {
		t.Fatalf("VariantConflicts() returned %d clusters, want 1", n)
	}

	graphs, err := g.Divide()
	if err != nil {
		t.Fatalf("Divide() failed: %v", err)
	}

	expected := []string{"A[V4]==1.0.0", "A[V3]==1.0.0", "A[V2]==1.0.0", "A[V1]==1.0.0"}
	if len(graphs) != len(expected) {
		t.Fatalf("Divide() returned %d graphs, want %d", len(graphs), len(expected))
	}

	for i, divided := range graphs {
		var kept []string
		for _, id := range divided.Find(core.MustParseRequirement("A")) {
			node, _ := divided.Node(id)
			kept = append(kept, node.Identifier())
		}
		if len(kept) != 1 || kept[0] != expected[i] {
			t.Errorf("graph %d keeps %v, want [%s]", i, kept, expected[i])
		}
		if len(divided.VariantConflicts()) != 0 {
			t.Errorf("graph %d still has variant conflicts", i)
		}
	}

	if len(g.VariantConflicts()) != 1 {
		t.Error("Divide() should not modify the divided graph")
	}
}

func TestGraph_DivideCombinations(t *testing.T) {
	repo := newRepository(t,
		withVariants(definition("A", "1.0.0"), variant("V1"), variant("V2")),
		withVariants(definition("B", "1.0.0"), variant("W1"), variant("W2")),
	)

	g := NewGraph(repo, nil, nil)
	g.UpdateFromRequirements(requirements("A", "B"), RootID)

	graphs, err := g.Divide()
	if err != nil {
		t.Fatalf("Divide() failed: %v", err)
	}

	expected := [][]string{
		{"A[V1]==1.0.0", "B[W1]==1.0.0"},
		{"A[V1]==1.0.0", "B[W2]==1.0.0"},
		{"A[V2]==1.0.0", "B[W1]==1.0.0"},
		{"A[V2]==1.0.0", "B[W2]==1.0.0"},
	}
	if len(graphs) != len(expected) {
		t.Fatalf("Divide() returned %d graphs, want %d", len(graphs), len(expected))
	}

	for i, divided := range graphs {
		var kept []string
		for _, node := range divided.Nodes() {
			kept = append(kept, node.Identifier())
		}
		if !equalStrings(kept, expected[i]) {
			t.Errorf("graph %d keeps %v, want %v", i, kept, expected[i])
		}
	}
}

func TestGraph_DivideSkipsUnlinkableCandidates(t *testing.T) {
	repo := newRepository(t,
		withVariants(definition("A", "1.0.0"), variant("V2"), variant("V1")),
		definition("X", "1.0.0", "A[V1]"),
	)

	g := NewGraph(repo, nil, nil)
	g.UpdateFromRequirements(requirements("A", "X"), RootID)

	graphs, err := g.Divide()
	if err != nil {
		t.Fatalf("Divide() failed: %v", err)
	}
	if len(graphs) != 1 {
		t.Fatalf("Divide() returned %d graphs, want 1", len(graphs))
	}
	if _, ok := graphs[0].Lookup("A[V1]==1.0.0"); !ok {
		t.Error("the only candidate should keep A[V1]")
	}
}

func TestGraph_NamespaceCount(t *testing.T) {
	repo := newRepository(t,
		namespaced("maya", definition("mtoa", "1.0.0", "maya")),
		namespaced("maya", definition("maya", "2020")),
		namespaced("houdini", definition("maya", "1.0.0")),
	)

	g := NewGraph(repo, nil, nil)
	g.UpdateFromRequirements(requirements("mtoa"), RootID)

	if _, ok := g.Lookup("maya::maya==2020"); !ok {
		t.Error("bare maya should resolve to the namespace already used by mtoa")
	}
	if count := g.NamespaceCount()["maya"]; count != 2 {
		t.Errorf("NamespaceCount()[maya] = %d, want 2", count)
	}
}

func TestGraph_FindBareNameAcrossNamespaces(t *testing.T) {
	repo := newRepository(t,
		namespaced("maya", definition("mtoa", "1.0.0", "maya")),
		namespaced("maya", definition("maya", "2020")),
		namespaced("houdini", definition("maya", "1.0.0")),
	)

	tests := []struct {
		name        string
		requests    []string
		requirement string
		expected    []string
	}{
		{
			name:        "bare name keeps the extracted namespace",
			requests:    []string{"mtoa", "houdini::maya"},
			requirement: "maya",
			expected:    []string{"maya::maya==2020"},
		},
		{
			name:        "bare name outside the extracted namespace",
			requests:    []string{"mtoa", "houdini::maya"},
			requirement: "maya<2000",
			expected:    nil,
		},
		{
			name:        "explicit namespace",
			requests:    []string{"mtoa", "houdini::maya"},
			requirement: "houdini::maya",
			expected:    []string{"houdini::maya==1.0.0"},
		},
		{
			name:        "bare name never extracted",
			requests:    []string{"maya::maya", "houdini::maya"},
			requirement: "maya",
			expected:    []string{"maya::maya==2020", "houdini::maya==1.0.0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGraph(repo, nil, nil)
			g.UpdateFromRequirements(requirements(tt.requests...), RootID)

			var found []string
			for _, id := range g.Find(core.MustParseRequirement(tt.requirement)) {
				node, _ := g.Node(id)
				found = append(found, node.Identifier())
			}
			if !equalStrings(found, tt.expected) {
				t.Errorf("Find(%s) = %v, want %v", tt.requirement, found, tt.expected)
			}

			clone := g.Clone()
			if got := len(clone.Find(core.MustParseRequirement(tt.requirement))); got != len(tt.expected) {
				t.Errorf("clone Find(%s) returned %d nodes, want %d", tt.requirement, got, len(tt.expected))
			}
		})
	}
}
