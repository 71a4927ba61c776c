package fngraph

import "testing"

func layerSet(layer []string) map[string]bool {
	s := make(map[string]bool, len(layer))
	for _, k := range layer {
		s[k] = true
	}
	return s
}

func TestTopologicalSortIndependentNodes(t *testing.T) {
	g := New[string, int]()
	for i, name := range []string{"a", "b", "c"} {
		if err := g.AddNode(name, i, nil); err != nil {
			t.Fatalf("AddNode(%s): %v", name, err)
		}
	}

	layers, detached := g.TopologicalSort()
	if len(detached) != 0 {
		t.Fatalf("detached = %v, want none", detached)
	}
	if len(layers) != 1 || len(layers[0]) != 3 {
		t.Fatalf("layers = %v, want one layer of 3", layers)
	}
}

func TestTopologicalSortChain(t *testing.T) {
	g := New[string, int]()
	_ = g.AddNode("a", 0, nil)
	_ = g.AddNode("b", 0, nil)
	_ = g.AddNode("c", 0, []string{"a", "b"})
	_ = g.AddNode("d", 0, []string{"b"})
	_ = g.AddNode("e", 0, []string{"c", "d"})

	layers, detached := g.TopologicalSort()
	if len(detached) != 0 {
		t.Fatalf("detached = %v, want none", detached)
	}
	if len(layers) != 3 {
		t.Fatalf("len(layers) = %d, want 3", len(layers))
	}
	if !layerSet(layers[0])["a"] || !layerSet(layers[0])["b"] {
		t.Fatalf("layer 0 = %v, want {a,b}", layers[0])
	}
	if !layerSet(layers[1])["c"] || !layerSet(layers[1])["d"] {
		t.Fatalf("layer 1 = %v, want {c,d}", layers[1])
	}
	if !layerSet(layers[2])["e"] {
		t.Fatalf("layer 2 = %v, want {e}", layers[2])
	}
}

func TestTopologicalSortMissingDependencyIsDetached(t *testing.T) {
	g := New[string, int]()
	_ = g.AddNode("x", 0, []string{"does_not_exist"})

	layers, detached := g.TopologicalSort()
	if len(layers) != 0 {
		t.Fatalf("layers = %v, want none", layers)
	}
	if len(detached) != 1 || detached[0] != "x" {
		t.Fatalf("detached = %v, want [x]", detached)
	}
}

func TestTopologicalSortCycleIsDetached(t *testing.T) {
	g := New[string, int]()
	_ = g.AddNode("a", 0, []string{"b"})
	_ = g.AddNode("b", 0, []string{"a"})

	layers, detached := g.TopologicalSort()
	if len(layers) != 0 {
		t.Fatalf("layers = %v, want none", layers)
	}
	if len(detached) != 2 {
		t.Fatalf("detached = %v, want both cycle members", detached)
	}
}

func TestTopologicalSortCycleWithDownstreamDependent(t *testing.T) {
	g := New[string, int]()
	_ = g.AddNode("a", 0, []string{"b"})
	_ = g.AddNode("b", 0, []string{"a"})
	_ = g.AddNode("c", 0, []string{"a"})

	_, detached := g.TopologicalSort()
	if len(detached) != 3 {
		t.Fatalf("detached = %v, want all three nodes", detached)
	}
}

func TestAddNodeDuplicateFails(t *testing.T) {
	g := New[string, int]()
	if err := g.AddNode("a", 1, nil); err != nil {
		t.Fatalf("first AddNode: %v", err)
	}
	if err := g.AddNode("a", 2, nil); err == nil {
		t.Fatal("expected error on duplicate key")
	}
}
