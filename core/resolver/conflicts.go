package resolver

import (
	"context"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/willibrandon/gowiz/core"
	"github.com/willibrandon/gowiz/observability"
)

// parentRequest is the requirement one parent used to reach a conflicting node.
type parentRequest struct {
	node        NodeID
	parent      NodeID
	requirement core.Requirement
	weight      int
}

// Conflicts returns the groups of reachable nodes sharing a definition
// identifier, in definition creation order.
func (g *Graph) Conflicts(distances map[NodeID]Distance) [][]NodeID {
	var groups [][]NodeID
	for _, key := range g.definitionKeys {
		var group []NodeID
		for _, id := range g.definitions[key] {
			if _, ok := distances[id]; ok && g.Exists(id) {
				group = append(group, id)
			}
		}
		if len(group) > 1 {
			groups = append(groups, group)
		}
	}
	return groups
}

// nearestConflict picks the conflicting node closest to the root, lowest
// handle first, with the group it belongs to.
func nearestConflict(groups [][]NodeID, distances map[NodeID]Distance) (NodeID, []NodeID) {
	best, bestGroup := RootID, []NodeID(nil)
	for _, group := range groups {
		for _, id := range group {
			if bestGroup == nil ||
				distances[id].Value < distances[best].Value ||
				(distances[id].Value == distances[best].Value && id < best) {
				best, bestGroup = id, group
			}
		}
	}
	return best, bestGroup
}

// resolveConflicts replaces conflicting nodes by the packages serving the
// combination of their parents' requirements, nearest conflict first, until
// no conflict remains, and returns the distances of the resulting graph.
//
// Returns errDivisionRequired when the graph holds variant conflicts,
// *GraphConflictsError for incompatible requirements and
// *GraphResolutionError when parents cannot be relinked.
func (g *Graph) resolveConflicts(ctx context.Context, checkBudget func() error) (map[NodeID]Distance, error) {
	for {
		if err := checkBudget(); err != nil {
			return nil, err
		}

		distances := g.stabilize()
		if len(g.VariantConflicts()) > 0 {
			return nil, errDivisionRequired
		}

		groups := g.Conflicts(distances)
		if len(groups) == 0 {
			return distances, nil
		}

		id, group := nearestConflict(groups, distances)
		node := g.nodes[id]

		identifiers := make([]string, len(group))
		for i, member := range group {
			identifiers[i] = g.identifier(member)
		}
		g.logger.Debug("Resolving conflict for {Definition} between {Packages}", node.Definition(), identifiers)
		g.observer.Record(EventConflictsIdentified, map[string]any{
			"identifier": node.Identifier(),
			"conflicts":  identifiers,
		})

		requests := g.parentRequests(group)
		if err := g.checkCompatibility(requests); err != nil {
			return nil, err
		}

		combined, err := combineRequirements(node.Package, requests)
		if err != nil {
			return nil, err
		}

		packages, err := g.catalogue.Extract(combined, g.namespaceCount)
		if err != nil {
			g.logger.Debug("No package serves {Requirement}: {Error}", combined.String(), err)
			return nil, g.unsatisfiable(requests)
		}

		survivors := mapset.NewThreadUnsafeSet[string]()
		var queue []queuedRequirement
		for _, pkg := range packages {
			survivors.Add(pkg.QualifiedIdentifier)
			if h, ok := g.handles[pkg.QualifiedIdentifier]; ok && g.Exists(h) {
				continue
			}
			for _, request := range requests {
				if g.Exists(request.parent) {
					queue = append(queue, g.place(pkg, combined, request.parent, request.weight)...)
				}
			}
		}
		g.expand(queue)

		var obsolete []NodeID
		for _, member := range group {
			if !survivors.Contains(g.identifier(member)) {
				obsolete = append(obsolete, member)
			}
		}
		if err := g.removeAndRelink(obsolete, &combined); err != nil {
			return nil, err
		}

		observability.ConflictsResolvedTotal.Inc()
		observability.RecordConflict(ctx, node.Definition(), len(group))
	}
}

// parentRequests returns the links from existing parents to the group nodes.
func (g *Graph) parentRequests(group []NodeID) []parentRequest {
	var requests []parentRequest
	for _, id := range group {
		for _, parent := range g.nodes[id].Parents() {
			if !g.Exists(parent) {
				continue
			}
			link, ok := g.links[parent][id]
			if !ok {
				continue
			}
			requests = append(requests, parentRequest{
				node:        id,
				parent:      parent,
				requirement: link.Requirement,
				weight:      link.Weight,
			})
		}
	}
	return requests
}

// checkCompatibility compares the requirements reaching different nodes
// pairwise. Two requirements are incompatible when neither accepts the
// node selected by the other, or when they request different variants.
func (g *Graph) checkCompatibility(requests []parentRequest) error {
	var recorder conflictRecorder
	for i, a := range requests {
		for _, b := range requests[i+1:] {
			if a.node == b.node || g.compatible(a, b) {
				continue
			}
			recorder.add(a.requirement, g.identifier(a.parent), g.identifier(b.parent))
			recorder.add(b.requirement, g.identifier(b.parent), g.identifier(a.parent))
		}
	}
	return recorder.err()
}

func (g *Graph) compatible(a, b parentRequest) bool {
	if a.requirement.Variant != "" && b.requirement.Variant != "" &&
		a.requirement.Variant != b.requirement.Variant {
		return false
	}

	va := g.nodes[a.node].Package.Version
	vb := g.nodes[b.node].Package.Version
	return a.requirement.Specifier.Contains(vb) || b.requirement.Specifier.Contains(va)
}

// unsatisfiable reports every requirement of a group whose combination
// matches no package.
func (g *Graph) unsatisfiable(requests []parentRequest) error {
	var recorder conflictRecorder
	for _, a := range requests {
		var others []string
		for _, b := range requests {
			if b.parent != a.parent || b.node != a.node {
				others = append(others, g.identifier(b.parent))
			}
		}
		recorder.add(a.requirement, g.identifier(a.parent), others...)
	}
	return recorder.err()
}

// combineRequirements merges the requirements of a group into one
// requirement for the definition of pkg.
func combineRequirements(pkg *core.Package, requests []parentRequest) (core.Requirement, error) {
	combined := core.Requirement{
		Name:        pkg.Name,
		Namespace:   pkg.Namespace,
		NoNamespace: pkg.Namespace == "",
	}

	var names []string
	for _, request := range requests {
		req := request.requirement
		if req.Name != pkg.Name {
			return core.Requirement{}, newResolutionError(nil,
				"cannot combine requirements %q and %q with different names", pkg.Name, req.String())
		}

		spec, err := combined.Specifier.Intersect(req.Specifier)
		if err != nil {
			return core.Requirement{}, newResolutionError(err, "cannot combine requirements for %q", pkg.Name)
		}
		combined.Specifier = spec

		if req.Variant != "" && !slices.Contains(names, req.Variant) {
			names = append(names, req.Variant)
			combined.Variant = req.Variant
		}
	}

	if len(names) > 1 {
		return core.Requirement{}, newResolutionError(nil,
			"cannot combine requirements for %q with variants %v", pkg.Name, names)
	}

	return combined, nil
}
