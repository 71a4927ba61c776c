// Package fngraph implements a generic directed graph over comparable
// keys and arbitrary payloads, plus the layered topological sort the
// engine uses to find which formulas can run in parallel. An edge
// A -> B means "A depends on B": B must be computed before A.
package fngraph

// Graph stores payloads keyed by K, together with each node's
// outgoing edges (its declared dependencies) and the inverse incoming
// edges (who depends on it). Every key present in data is also a key
// in outgoing, even when its dependency list is empty.
type Graph[K comparable, V any] struct {
	data     map[K]V
	outgoing map[K]map[K]struct{}
	incoming map[K]map[K]struct{}
}

// New creates an empty Graph.
func New[K comparable, V any]() *Graph[K, V] {
	return &Graph[K, V]{
		data:     make(map[K]V),
		outgoing: make(map[K]map[K]struct{}),
		incoming: make(map[K]map[K]struct{}),
	}
}

// AddNode inserts a payload under key with its declared outgoing
// edges (dependencies). Re-adding an existing key is an error — the
// caller (the engine) surfaces this as a dependency error covering the
// whole batch, since a duplicate formula name makes the batch
// ambiguous.
func (g *Graph[K, V]) AddNode(key K, payload V, dependsOn []K) error {
	if _, exists := g.outgoing[key]; exists {
		return errDuplicateNode
	}

	g.data[key] = payload

	deps := make(map[K]struct{}, len(dependsOn))
	for _, dep := range dependsOn {
		deps[dep] = struct{}{}
		if g.incoming[dep] == nil {
			g.incoming[dep] = make(map[K]struct{})
		}
		g.incoming[dep][key] = struct{}{}
	}
	g.outgoing[key] = deps

	return nil
}

// Get returns the payload stored under key.
func (g *Graph[K, V]) Get(key K) (V, bool) {
	v, ok := g.data[key]
	return v, ok
}

// Contains reports whether key names a node in the graph.
func (g *Graph[K, V]) Contains(key K) bool {
	_, ok := g.outgoing[key]
	return ok
}

// errDuplicateNode is returned by AddNode for a repeated key.
var errDuplicateNode = duplicateNodeError{}

type duplicateNodeError struct{}

func (duplicateNodeError) Error() string { return "node with the provided key already exists" }

// TopologicalSort partitions the graph into layers safe to execute in
// parallel, plus the set of nodes that could not be placed in any
// layer (detached — their dependency closure is missing from the
// graph, or they sit on a cycle; both surface the same way, per
// spec.md §4.4 and §9).
//
// Layer 0 holds every node with no outgoing edges. Each following
// layer holds every remaining node whose declared dependencies are
// all already satisfied by a previous layer. The process stops once a
// round adds nothing; whatever is left over is detached.
func (g *Graph[K, V]) TopologicalSort() (layers [][]K, detached []K) {
	layer0 := make([]K, 0)

	for key, deps := range g.outgoing {
		if len(deps) == 0 {
			layer0 = append(layer0, key)
		}
	}

	satisfied := make(map[K]struct{}, len(layer0))
	for _, k := range layer0 {
		satisfied[k] = struct{}{}
	}

	if len(layer0) > 0 {
		layers = [][]K{layer0}

		for {
			prev := layers[len(layers)-1]
			candidates := make(map[K]struct{})

			for _, key := range prev {
				for candidate := range g.incoming[key] {
					if g.Contains(candidate) {
						if _, done := satisfied[candidate]; !done {
							candidates[candidate] = struct{}{}
						}
					}
				}
			}

			current := make([]K, 0, len(candidates))
			for candidate := range candidates {
				if allSatisfied(g.outgoing[candidate], satisfied) {
					current = append(current, candidate)
				}
			}

			if len(current) == 0 {
				break
			}
			for _, k := range current {
				satisfied[k] = struct{}{}
			}
			layers = append(layers, current)
		}
	}

	// Every node never placed in a layer cannot be computed in this
	// batch: it is missing a dependency outright, sits on a cycle, or
	// transitively depends on one. All three surface identically.
	for key := range g.outgoing {
		if _, ok := satisfied[key]; !ok {
			detached = append(detached, key)
		}
	}

	return layers, detached
}

func allSatisfied[K comparable](deps map[K]struct{}, satisfied map[K]struct{}) bool {
	for dep := range deps {
		if _, ok := satisfied[dep]; !ok {
			return false
		}
	}
	return true
}
