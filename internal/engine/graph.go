package engine

import (
	"featuregraph/internal/catalog"
	"featuregraph/pkg/types"
)

// graph is the DAG of feature nodes: an arena of Feature values addressed
// by index, plus an adjacency list from producer index to consumer index.
// Immutable after construction and safe to share read-only across
// concurrent Calculate() invocations (spec.md §5's shared-resource
// policy). Grounded on original_source/arkin/src/pipeline.rs's
// Pipeline::from_config, generalized from petgraph's DiGraph to a plain
// index arena since the node set never changes after construction.
type graph struct {
	nodes    []catalog.Feature
	indexOf  map[types.NodeId]int
	edges    [][]int // edges[i] = indices of nodes that consume node i's output
	inDegree []int   // template in-degree per node, copied fresh per Calculate()
	order    []int   // topological order of node indices, computed once
}

// newGraph builds the DAG from an ordered feature list, resolving every
// non-base source to its unique producer and rejecting cycles.
func newGraph(features []catalog.Feature) (*graph, error) {
	indexOf := make(map[types.NodeId]int, len(features))
	for i, f := range features {
		if _, dup := indexOf[f.ID()]; dup {
			return nil, newConfigError("duplicate feature id %q", f.ID())
		}
		indexOf[f.ID()] = i
	}

	edges := make([][]int, len(features))
	inDegree := make([]int, len(features))

	for consumer, f := range features {
		for _, source := range f.Sources() {
			if types.IsIngestedIdentifier(types.FeatureId(source)) {
				continue
			}
			producer, ok := indexOf[source]
			if !ok {
				return nil, newConfigError("feature %q: unresolved source %q", f.ID(), source)
			}
			edges[producer] = append(edges[producer], consumer)
			inDegree[consumer]++
		}
	}

	order, err := topoSort(len(features), edges, inDegree)
	if err != nil {
		return nil, err
	}

	return &graph{
		nodes:    features,
		indexOf:  indexOf,
		edges:    edges,
		inDegree: inDegree,
		order:    order,
	}, nil
}

// topoSort runs Kahn's algorithm once at construction time to produce a
// deterministic node order and to detect cycles (a cycle leaves nodes
// whose in-degree never reaches zero).
func topoSort(n int, edges [][]int, inDegree []int) ([]int, error) {
	working := make([]int, n)
	copy(working, inDegree)

	queue := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if working[i] == 0 {
			queue = append(queue, i)
		}
	}

	order := make([]int, 0, n)
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)
		for _, next := range edges[node] {
			working[next]--
			if working[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if len(order) != n {
		return nil, newConfigError("cycle detected in feature graph")
	}
	return order, nil
}
