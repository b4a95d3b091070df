package resolver

import (
	"slices"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// VariantConflicts returns the variant clusters holding nodes with at least
// two distinct variant labels. Each cluster lists its existing nodes by
// creation order.
func (g *Graph) VariantConflicts() [][]NodeID {
	var clusters [][]NodeID
	for _, key := range g.clusterKeys {
		var live []NodeID
		labels := mapset.NewThreadUnsafeSet[string]()
		for _, id := range g.variantClusters[key] {
			if node, ok := g.nodes[id]; ok {
				live = append(live, id)
				labels.Add(node.Package.VariantName)
			}
		}
		if labels.Cardinality() > 1 {
			clusters = append(clusters, live)
		}
	}
	return clusters
}

// resetVariantClusters drops removed nodes from the variant cluster index.
func (g *Graph) resetVariantClusters() {
	var keys []string
	for _, key := range g.clusterKeys {
		var live []NodeID
		for _, id := range g.variantClusters[key] {
			if g.Exists(id) {
				live = append(live, id)
			}
		}
		if len(live) == 0 {
			delete(g.variantClusters, key)
			continue
		}
		g.variantClusters[key] = live
		keys = append(keys, key)
	}
	g.clusterKeys = keys
}

// Divide splits a graph holding variant conflicts into one clone per
// combination of surviving variants, highest priority first.
//
// Each cluster contributes one candidate per distinct label in variant
// declaration order. Combinations iterate the last cluster fastest. Every
// node of a cluster not carrying the chosen label is removed from the clone
// and its parents are relinked. Combinations whose relinking fails are
// skipped; when all fail the last error is returned.
func (g *Graph) Divide() ([]*Graph, error) {
	clusters := g.VariantConflicts()
	if len(clusters) == 0 {
		return nil, nil
	}

	options := make([][]mapset.Set[NodeID], len(clusters))
	for i, cluster := range clusters {
		options[i] = g.variantCandidates(cluster)
	}

	var (
		graphs  []*Graph
		lastErr error
	)

	combine(options, func(removal mapset.Set[NodeID]) {
		ids := removal.ToSlice()
		slices.Sort(ids)

		clone := g.Clone()
		if err := clone.removeAndRelink(ids, nil); err != nil {
			g.logger.Debug("Skipping variant combination: {Error}", err)
			lastErr = err
			return
		}
		clone.resetVariantClusters()
		graphs = append(graphs, clone)
	})

	g.observer.Record(EventGraphDivided, map[string]any{
		"clusters":   len(clusters),
		"candidates": len(graphs),
	})

	if len(graphs) == 0 {
		return nil, lastErr
	}
	return graphs, nil
}

// variantCandidates returns one removal set per distinct label of a
// cluster, ordered by variant declaration.
func (g *Graph) variantCandidates(cluster []NodeID) []mapset.Set[NodeID] {
	type group struct {
		label string
		index int
		ids   []NodeID
	}

	var groups []*group
	for _, id := range cluster {
		pkg := g.nodes[id].Package
		i := slices.IndexFunc(groups, func(gr *group) bool { return gr.label == pkg.VariantName })
		if i < 0 {
			groups = append(groups, &group{label: pkg.VariantName, index: pkg.VariantIndex})
			i = len(groups) - 1
		}
		groups[i].ids = append(groups[i].ids, id)
		groups[i].index = min(groups[i].index, pkg.VariantIndex)
	}

	slices.SortStableFunc(groups, func(a, b *group) int {
		if a.index != b.index {
			return a.index - b.index
		}
		return strings.Compare(a.label, b.label)
	})

	candidates := make([]mapset.Set[NodeID], len(groups))
	for i, kept := range groups {
		removal := mapset.NewThreadUnsafeSet[NodeID]()
		for _, other := range groups {
			if other != kept {
				removal.Append(other.ids...)
			}
		}
		candidates[i] = removal
	}
	return candidates
}

// combine calls fn with the union of one removal set per cluster for every
// combination, the first cluster varying slowest.
func combine(options [][]mapset.Set[NodeID], fn func(mapset.Set[NodeID])) {
	for _, o := range options {
		if len(o) == 0 {
			return
		}
	}

	indices := make([]int, len(options))
	for {
		removal := mapset.NewThreadUnsafeSet[NodeID]()
		for i, j := range indices {
			removal = removal.Union(options[i][j])
		}
		fn(removal)

		k := len(indices) - 1
		for ; k >= 0; k-- {
			indices[k]++
			if indices[k] < len(options[k]) {
				break
			}
			indices[k] = 0
		}
		if k < 0 {
			return
		}
	}
}
