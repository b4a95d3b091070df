package resolver

import (
	"slices"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/willibrandon/gowiz/core"
)

// NodeID is the handle of a node within a Graph and its clones.
//
// Handles are allocated in creation order and never reused for another
// package identity; a removed node keeps its handle if it is revived.
type NodeID int

// RootID is the handle of the synthetic root. It never owns a Node.
const RootID NodeID = 0

// RootIdentifier names the synthetic root in errors and events.
const RootIdentifier = "root"

// Node owns one package of a Graph.
type Node struct {
	// ID is the node handle
	ID NodeID

	// Package is the concrete package placed in the graph
	Package *core.Package

	parents mapset.Set[NodeID]
}

func newNode(id NodeID, pkg *core.Package) *Node {
	return &Node{
		ID:      id,
		Package: pkg,
		parents: mapset.NewThreadUnsafeSet[NodeID](),
	}
}

// Identifier returns the qualified identifier of the package.
func (n *Node) Identifier() string {
	return n.Package.QualifiedIdentifier
}

// Definition returns the qualified definition identifier of the package.
func (n *Node) Definition() string {
	return n.Package.DefinitionIdentifier
}

// Parents returns the handles of every node that ever requested this one,
// sorted ascending. Some may no longer exist in the graph.
func (n *Node) Parents() []NodeID {
	parents := n.parents.ToSlice()
	slices.Sort(parents)
	return parents
}

func (n *Node) clone() *Node {
	return &Node{
		ID:      n.ID,
		Package: n.Package,
		parents: n.parents.Clone(),
	}
}

// Link is the edge from a parent to a child node.
type Link struct {
	// Requirement is the requirement the parent used to reach the child
	Requirement core.Requirement

	// Weight is the 1-based position of the requirement in the parent's list
	Weight int
}

// conditionedEntry is a package held back until its conditions resolve.
type conditionedEntry struct {
	requirement core.Requirement
	pkg         *core.Package
	parent      NodeID
	weight      int
}

// Distance is the shortest path data of a reachable node.
type Distance struct {
	// Value is the accumulated link weight from the root
	Value int

	// Parent is the predecessor on the shortest path
	Parent NodeID
}
