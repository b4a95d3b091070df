package resolver

import (
	"slices"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/willibrandon/gowiz/core"
	"github.com/willibrandon/gowiz/observability"
)

// Catalogue serves requirements with concrete packages.
// *core.Repository and *CachedCatalogue implement it.
type Catalogue interface {
	Extract(req core.Requirement, counter core.NamespaceCounter) ([]*core.Package, error)
}

// Graph is the dependency graph of one resolution branch.
//
// Removing a node only drops it from the node index and its own outgoing
// links. Links pointing to a removed node stay in place and every
// traversal checks Exists before following them, so removal is O(1).
//
// A Graph is not safe for concurrent use. Clones share no mutable state.
type Graph struct {
	catalogue Catalogue
	observer  Observer
	logger    observability.Logger

	nextID     NodeID
	handles    map[string]NodeID
	identities map[NodeID]string
	nodes      map[NodeID]*Node
	links      map[NodeID]map[NodeID]Link

	// definition identifier -> handles, in creation order
	definitions    map[string][]NodeID
	definitionKeys []string

	// "definition==version" -> handles of variant nodes, in creation order
	variantClusters map[string][]NodeID
	clusterKeys     []string

	conditioned []conditionedEntry
	promoted    mapset.Set[NodeID]
	dropped     mapset.Set[string]

	namespaceCount core.NamespaceCounter
	errors         map[NodeID][]error

	// bare requirement name -> namespace the catalogue resolved it to
	bareNamespaces map[string]string
}

// queuedRequirement is a pending expansion step.
type queuedRequirement struct {
	requirement core.Requirement
	parent      NodeID
	weight      int
}

// NewGraph creates an empty graph. A nil observer or logger disables the
// corresponding output.
func NewGraph(catalogue Catalogue, observer Observer, logger observability.Logger) *Graph {
	if observer == nil {
		observer = NopObserver{}
	}
	if logger == nil {
		logger = observability.NewNullLogger()
	}

	g := &Graph{
		catalogue:       catalogue,
		observer:        observer,
		logger:          logger,
		handles:         make(map[string]NodeID),
		identities:      make(map[NodeID]string),
		nodes:           make(map[NodeID]*Node),
		links:           make(map[NodeID]map[NodeID]Link),
		definitions:     make(map[string][]NodeID),
		variantClusters: make(map[string][]NodeID),
		promoted:        mapset.NewThreadUnsafeSet[NodeID](),
		dropped:         mapset.NewThreadUnsafeSet[string](),
		namespaceCount:  make(core.NamespaceCounter),
		errors:          make(map[NodeID][]error),
		bareNamespaces:  make(map[string]string),
	}

	g.observer.Record(EventGraphCreated, map[string]any{"origin": ""})
	return g
}

// UpdateFromRequirements expands the graph breadth-first from requirements
// requested by parent.
//
// Requirement weights are their 1-based positions. Catalogue failures are
// recorded against the requesting node and stop that branch only.
func (g *Graph) UpdateFromRequirements(reqs []core.Requirement, parent NodeID) {
	queue := make([]queuedRequirement, 0, len(reqs))
	for i, req := range reqs {
		queue = append(queue, queuedRequirement{requirement: req, parent: parent, weight: i + 1})
	}
	g.expand(queue)
}

func (g *Graph) expand(queue []queuedRequirement) {
	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		packages, err := g.catalogue.Extract(item.requirement, g.namespaceCount)
		if err != nil {
			g.logger.Verbose("Cannot extract {Requirement} for {Parent}: {Error}",
				item.requirement.String(), g.identifier(item.parent), err)
			g.errors[item.parent] = append(g.errors[item.parent], err)
			continue
		}
		g.recordNamespace(item.requirement, packages)

		for _, pkg := range packages {
			queue = append(queue, g.place(pkg, item.requirement, item.parent, item.weight)...)
		}
	}
}

// recordNamespace remembers the namespace serving a bare requirement name.
func (g *Graph) recordNamespace(req core.Requirement, packages []*core.Package) {
	if req.Namespace != "" || req.NoNamespace || len(packages) == 0 {
		return
	}
	g.bareNamespaces[req.Name] = packages[0].Namespace
}

// place adds pkg under parent, or defers it when it declares conditions
// and is not in the graph yet.
func (g *Graph) place(pkg *core.Package, req core.Requirement, parent NodeID, weight int) []queuedRequirement {
	if id, ok := g.handles[pkg.QualifiedIdentifier]; !ok || !g.Exists(id) {
		if len(pkg.Conditions) > 0 {
			if !g.dropped.Contains(pkg.QualifiedIdentifier) {
				g.conditioned = append(g.conditioned, conditionedEntry{
					requirement: req,
					pkg:         pkg,
					parent:      parent,
					weight:      weight,
				})
				g.observer.Record(EventNodeConditioned, map[string]any{
					"identifier": pkg.QualifiedIdentifier,
					"parent":     g.identifier(parent),
				})
			}
			return nil
		}
	}

	_, queue := g.addPackage(pkg, req, parent, weight)
	return queue
}

// addPackage links pkg under parent, creating its node when needed. The
// requirements of a newly created node are returned for expansion.
func (g *Graph) addPackage(
	pkg *core.Package,
	req core.Requirement,
	parent NodeID,
	weight int,
) (NodeID, []queuedRequirement) {
	id, created := g.ensureNode(pkg)
	g.nodes[id].parents.Add(parent)
	g.setLink(parent, id, req, weight)

	if !created {
		return id, nil
	}

	queue := make([]queuedRequirement, 0, len(pkg.Requirements))
	for i, r := range pkg.Requirements {
		queue = append(queue, queuedRequirement{requirement: r, parent: id, weight: i + 1})
	}
	return id, queue
}

func (g *Graph) ensureNode(pkg *core.Package) (NodeID, bool) {
	identifier := pkg.QualifiedIdentifier

	id, known := g.handles[identifier]
	if known && g.Exists(id) {
		return id, false
	}
	if !known {
		g.nextID++
		id = g.nextID
		g.handles[identifier] = id
		g.identities[id] = identifier
	}

	g.nodes[id] = newNode(id, pkg)

	if !slices.Contains(g.definitions[pkg.DefinitionIdentifier], id) {
		if _, ok := g.definitions[pkg.DefinitionIdentifier]; !ok {
			g.definitionKeys = append(g.definitionKeys, pkg.DefinitionIdentifier)
		}
		g.definitions[pkg.DefinitionIdentifier] = append(g.definitions[pkg.DefinitionIdentifier], id)
	}

	if pkg.VariantName != "" {
		key := clusterKey(pkg)
		if !slices.Contains(g.variantClusters[key], id) {
			if _, ok := g.variantClusters[key]; !ok {
				g.clusterKeys = append(g.clusterKeys, key)
			}
			g.variantClusters[key] = append(g.variantClusters[key], id)
		}
	}

	if pkg.Namespace != "" {
		g.namespaceCount[pkg.Namespace]++
	}

	observability.GraphNodesCreatedTotal.Inc()
	g.logger.Verbose("Created node {NodeId} for {Package}", id, identifier)
	g.observer.Record(EventNodeCreated, map[string]any{"identifier": identifier})

	return id, true
}

func clusterKey(pkg *core.Package) string {
	if pkg.Version == nil {
		return pkg.DefinitionIdentifier
	}
	return pkg.DefinitionIdentifier + "==" + pkg.Version.Normalized()
}

// setLink creates the link from parent to child. An existing link with a
// lower weight is kept.
func (g *Graph) setLink(parent, child NodeID, req core.Requirement, weight int) {
	children, ok := g.links[parent]
	if !ok {
		children = make(map[NodeID]Link)
		g.links[parent] = children
	}

	if existing, ok := children[child]; ok && existing.Weight < weight {
		return
	}

	children[child] = Link{Requirement: req, Weight: weight}
	g.observer.Record(EventLinkCreated, map[string]any{
		"parent":      g.identifier(parent),
		"child":       g.identifier(child),
		"requirement": req.String(),
		"weight":      weight,
	})
}

// Exists reports whether a node is in the graph. The root always exists.
func (g *Graph) Exists(id NodeID) bool {
	if id == RootID {
		return true
	}
	_, ok := g.nodes[id]
	return ok
}

// Node returns a node in the graph.
func (g *Graph) Node(id NodeID) (*Node, bool) {
	node, ok := g.nodes[id]
	return node, ok
}

// Lookup returns the node holding the package with the given qualified identifier.
func (g *Graph) Lookup(identifier string) (*Node, bool) {
	id, ok := g.handles[identifier]
	if !ok {
		return nil, false
	}
	return g.Node(id)
}

// Nodes returns every node in the graph ordered by handle.
func (g *Graph) Nodes() []*Node {
	nodes := make([]*Node, 0, len(g.nodes))
	for _, node := range g.nodes {
		nodes = append(nodes, node)
	}
	slices.SortFunc(nodes, func(a, b *Node) int { return int(a.ID - b.ID) })
	return nodes
}

// Link returns the link between two existing nodes.
func (g *Graph) Link(parent, child NodeID) (Link, bool) {
	if !g.Exists(parent) || !g.Exists(child) {
		return Link{}, false
	}
	link, ok := g.links[parent][child]
	return link, ok
}

// Children returns the existing children of a node ordered by handle.
func (g *Graph) Children(id NodeID) []NodeID {
	children := make([]NodeID, 0, len(g.links[id]))
	for child := range g.links[id] {
		if g.Exists(child) {
			children = append(children, child)
		}
	}
	slices.Sort(children)
	return children
}

// Errors returns the extraction errors recorded for a node.
func (g *Graph) Errors(id NodeID) []error {
	return g.errors[id]
}

// ConditionedCount returns the number of packages waiting for their conditions.
func (g *Graph) ConditionedCount() int {
	return len(g.conditioned)
}

// NamespaceCount returns a copy of the namespace usage counter.
func (g *Graph) NamespaceCount() core.NamespaceCounter {
	counter := make(core.NamespaceCounter, len(g.namespaceCount))
	for ns, count := range g.namespaceCount {
		counter[ns] = count
	}
	return counter
}

// identifier renders a handle for errors and events, removed nodes included.
func (g *Graph) identifier(id NodeID) string {
	if id == RootID {
		return RootIdentifier
	}
	return g.identities[id]
}

// Find returns the nodes serving req, by descending version then handle.
//
// A node matches when its definition matches the requirement name and
// namespace, its variant matches the requested one (if any) and its version
// is contained in the specifier. A bare name only matches the namespace the
// catalogue served it from in this graph, or any namespace when it was
// never extracted.
func (g *Graph) Find(req core.Requirement) []NodeID {
	namespace, pinned := "", false
	if req.Namespace == "" && !req.NoNamespace {
		namespace, pinned = g.bareNamespaces[req.Name]
	}

	var found []NodeID
	for id, node := range g.nodes {
		pkg := node.Package
		if !req.MatchesDefinition(pkg.Namespace, pkg.Name) {
			continue
		}
		if pinned && pkg.Namespace != namespace {
			continue
		}
		if req.Variant != "" && req.Variant != pkg.VariantName {
			continue
		}
		if !req.Specifier.Contains(pkg.Version) {
			continue
		}
		found = append(found, id)
	}

	slices.SortFunc(found, func(a, b NodeID) int {
		if c := g.nodes[b].Package.Version.Compare(g.nodes[a].Package.Version); c != 0 {
			return c
		}
		return int(a - b)
	})
	return found
}

// ComputeDistances returns the shortest path from the root to every
// reachable node, root included, using link weights as costs.
func (g *Graph) ComputeDistances() map[NodeID]Distance {
	distances := map[NodeID]Distance{RootID: {Value: 0, Parent: RootID}}

	queue := NewDistanceQueue()
	queue.Push(RootID, 0)

	for {
		id, distance, ok := queue.Pop()
		if !ok {
			break
		}

		for _, child := range g.Children(id) {
			candidate := distance + g.links[id][child].Weight
			if current, ok := distances[child]; ok && current.Value <= candidate {
				continue
			}
			distances[child] = Distance{Value: candidate, Parent: id}
			queue.Push(child, candidate)
		}
	}

	g.observer.Record(EventDistancesComputed, map[string]any{"reachable": len(distances) - 1})
	return distances
}

// stabilize recomputes distances, trims conditioned nodes whose conditions
// no longer hold and promotes deferred ones whose conditions now hold,
// until neither changes the graph. Unreachable nodes are then removed.
func (g *Graph) stabilize() map[NodeID]Distance {
	for {
		distances := g.ComputeDistances()

		if g.trimConditioned(distances) {
			continue
		}
		if g.promoteConditioned(distances) {
			continue
		}

		g.removeUnreachable(distances)
		return distances
	}
}

// conditionsHold reports whether every condition finds a reachable node.
func (g *Graph) conditionsHold(conditions []core.Requirement, distances map[NodeID]Distance) bool {
	for _, condition := range conditions {
		satisfied := false
		for _, id := range g.Find(condition) {
			if _, ok := distances[id]; ok {
				satisfied = true
				break
			}
		}
		if !satisfied {
			return false
		}
	}
	return true
}

// trimConditioned removes promoted nodes whose conditions fail. A trimmed
// package is never deferred again within this graph.
func (g *Graph) trimConditioned(distances map[NodeID]Distance) bool {
	ids := g.promoted.ToSlice()
	slices.Sort(ids)

	removed := false
	for _, id := range ids {
		node, ok := g.nodes[id]
		if !ok {
			g.promoted.Remove(id)
			continue
		}
		if g.conditionsHold(node.Package.Conditions, distances) {
			continue
		}

		g.logger.Verbose("Conditions of {Package} no longer hold", node.Identifier())
		g.removeNode(id)
		g.promoted.Remove(id)
		g.dropped.Add(node.Identifier())
		removed = true
	}
	return removed
}

// promoteConditioned adds every deferred package whose parent is reachable
// and whose conditions hold.
func (g *Graph) promoteConditioned(distances map[NodeID]Distance) bool {
	var (
		remaining []conditionedEntry
		queue     []queuedRequirement
		promoted  bool
	)

	for _, entry := range g.conditioned {
		if g.dropped.Contains(entry.pkg.QualifiedIdentifier) {
			continue
		}
		if _, ok := distances[entry.parent]; !ok || !g.conditionsHold(entry.pkg.Conditions, distances) {
			remaining = append(remaining, entry)
			continue
		}

		g.logger.Verbose("Conditions of {Package} hold", entry.pkg.QualifiedIdentifier)
		id, items := g.addPackage(entry.pkg, entry.requirement, entry.parent, entry.weight)
		g.promoted.Add(id)
		queue = append(queue, items...)
		promoted = true
	}

	g.conditioned = remaining
	g.expand(queue)
	return promoted
}

func (g *Graph) removeUnreachable(distances map[NodeID]Distance) {
	var unreachable []NodeID
	for id := range g.nodes {
		if _, ok := distances[id]; !ok {
			unreachable = append(unreachable, id)
		}
	}
	slices.Sort(unreachable)

	for _, id := range unreachable {
		g.removeNode(id)
	}
}

// removeNode drops a node and its outgoing links.
func (g *Graph) removeNode(id NodeID) {
	node, ok := g.nodes[id]
	if !ok {
		return
	}

	delete(g.nodes, id)
	delete(g.links, id)
	delete(g.errors, id)

	g.logger.Verbose("Removed node {NodeId} for {Package}", id, node.Identifier())
	g.observer.Record(EventNodeRemoved, map[string]any{"identifier": node.Identifier()})
}

// removeAndRelink removes nodes and links every surviving parent to the
// nodes now serving its requirement.
//
// The requirement is the one of the removed link unless replacement is
// given. A surviving parent left without any match is a fatal
// GraphResolutionError.
func (g *Graph) removeAndRelink(ids []NodeID, replacement *core.Requirement) error {
	type edge struct {
		parent NodeID
		child  NodeID
		link   Link
	}

	var edges []edge
	for _, id := range ids {
		node, ok := g.nodes[id]
		if !ok {
			continue
		}
		for _, parent := range node.Parents() {
			if link, ok := g.links[parent][id]; ok {
				edges = append(edges, edge{parent: parent, child: id, link: link})
			}
		}
	}

	for _, id := range ids {
		g.removeNode(id)
	}

	for _, e := range edges {
		if !g.Exists(e.parent) {
			continue
		}
		delete(g.links[e.parent], e.child)

		req := e.link.Requirement
		if replacement != nil {
			req = *replacement
		}

		found := g.Find(req)
		if len(found) == 0 {
			return newResolutionError(nil, "cannot relink %s to %q after removing %s",
				g.identifier(e.parent), req.String(), g.identifier(e.child))
		}

		for _, id := range found {
			g.nodes[id].parents.Add(e.parent)
			g.setLink(e.parent, id, req, e.link.Weight)
		}
	}

	return nil
}

// Clone returns a structurally independent copy of the graph. Packages are
// immutable and shared.
func (g *Graph) Clone() *Graph {
	clone := &Graph{
		catalogue:       g.catalogue,
		observer:        g.observer,
		logger:          g.logger,
		nextID:          g.nextID,
		handles:         make(map[string]NodeID, len(g.handles)),
		identities:      make(map[NodeID]string, len(g.identities)),
		nodes:           make(map[NodeID]*Node, len(g.nodes)),
		links:           make(map[NodeID]map[NodeID]Link, len(g.links)),
		definitions:     make(map[string][]NodeID, len(g.definitions)),
		definitionKeys:  slices.Clone(g.definitionKeys),
		variantClusters: make(map[string][]NodeID, len(g.variantClusters)),
		clusterKeys:     slices.Clone(g.clusterKeys),
		conditioned:     slices.Clone(g.conditioned),
		promoted:        g.promoted.Clone(),
		dropped:         g.dropped.Clone(),
		namespaceCount:  g.NamespaceCount(),
		errors:          make(map[NodeID][]error, len(g.errors)),
		bareNamespaces:  make(map[string]string, len(g.bareNamespaces)),
	}

	for identifier, id := range g.handles {
		clone.handles[identifier] = id
	}
	for id, identifier := range g.identities {
		clone.identities[id] = identifier
	}
	for id, node := range g.nodes {
		clone.nodes[id] = node.clone()
	}
	for parent, children := range g.links {
		copied := make(map[NodeID]Link, len(children))
		for child, link := range children {
			copied[child] = link
		}
		clone.links[parent] = copied
	}
	for key, ids := range g.definitions {
		clone.definitions[key] = slices.Clone(ids)
	}
	for key, ids := range g.variantClusters {
		clone.variantClusters[key] = slices.Clone(ids)
	}
	for id, errs := range g.errors {
		clone.errors[id] = slices.Clone(errs)
	}
	for name, ns := range g.bareNamespaces {
		clone.bareNamespaces[name] = ns
	}

	clone.observer.Record(EventGraphCreated, map[string]any{"origin": "clone", "nodes": len(clone.nodes)})
	return clone
}

// validate checks the error lists of reachable nodes, root included.
func (g *Graph) validate(distances map[NodeID]Distance) error {
	invalid := make(map[string][]error)
	for id, errs := range g.errors {
		if len(errs) == 0 || !g.Exists(id) {
			continue
		}
		if _, ok := distances[id]; !ok {
			continue
		}
		invalid[g.identifier(id)] = slices.Clone(errs)
	}

	if len(invalid) > 0 {
		return &GraphInvalidNodesError{Errors: invalid}
	}

	if len(g.nodes) == 0 {
		return newResolutionError(ErrNoValidPackages, "the dependency graph is empty")
	}

	return nil
}

// extract returns the packages of reachable nodes, every child before its
// parents.
//
// Among the nodes whose children are all placed, the one with the greatest
// distance comes first, then the one with the greatest handle, so a node
// created while expanding another one precedes it. A cycle is broken at
// its first node in that order.
func (g *Graph) extract(distances map[NodeID]Distance) []*core.Package {
	ids := make([]NodeID, 0, len(g.nodes))
	for id := range g.nodes {
		if _, ok := distances[id]; ok {
			ids = append(ids, id)
		}
	}

	slices.SortFunc(ids, func(a, b NodeID) int {
		if da, db := distances[a].Value, distances[b].Value; da != db {
			return db - da
		}
		return int(b - a)
	})

	ids = g.topologicalOrder(ids)

	packages := make([]*core.Package, len(ids))
	identifiers := make([]string, len(ids))
	for i, id := range ids {
		packages[i] = g.nodes[id].Package
		identifiers[i] = packages[i].QualifiedIdentifier
	}

	g.observer.Record(EventPackagesExtracted, map[string]any{"packages": identifiers})
	return packages
}

// topologicalOrder reorders ids so that every child of a link between two
// of them comes before the parent. The order of ids is the priority among
// nodes ready at the same time.
func (g *Graph) topologicalOrder(ids []NodeID) []NodeID {
	included := mapset.NewThreadUnsafeSet(ids...)
	pending := make(map[NodeID]int, len(ids))
	parents := make(map[NodeID][]NodeID, len(ids))

	for _, parent := range ids {
		for _, child := range g.Children(parent) {
			if child == parent || !included.Contains(child) {
				continue
			}
			pending[parent]++
			parents[child] = append(parents[child], parent)
		}
	}

	ordered := make([]NodeID, 0, len(ids))
	placed := mapset.NewThreadUnsafeSet[NodeID]()

	for len(ordered) < len(ids) {
		next := RootID
		for _, id := range ids {
			if placed.Contains(id) {
				continue
			}
			if next == RootID {
				next = id
			}
			if pending[id] == 0 {
				next = id
				break
			}
		}

		placed.Add(next)
		ordered = append(ordered, next)
		for _, parent := range parents[next] {
			pending[parent]--
		}
	}

	return ordered
}
