package dissect

import (
	"fmt"
)

// node is a (type, name pattern) vertex of the dissection graph.
type node struct {
	typ  string
	name string
}

func (n node) id() string {
	return MakeID(n.typ, n.name)
}

// edge is either a dissector output (via != nil) or a type remapping (via == nil).
type edge struct {
	from node
	to   node
	// base is the name of the field that was dissected to produce to.
	// For a remapping this is the base of the dissection that triggered it, which is what wildcard subscriptions match against.
	base  string
	via   *entry
	casts Casts
}

func (e *edge) remapping() bool {
	return e.via == nil
}

// graph is the dissection graph reachable from a root type, with explicit adjacency in both directions.
type graph struct {
	root  node
	nodes []node
	depth map[string]int
	edges []*edge
	into  map[string][]*edge
	outOf map[string][]*edge
}

// buildGraph walks the catalog forward from the root, breadth first.
// Nodes deeper than maxDepth are not expanded, which guarantees termination when dissectors feed each other in a cycle.
func buildGraph(catalog *Catalog, rootType string, remaps Remappings, maxDepth int) (*graph, error) {
	g := &graph{
		root:  node{typ: rootType},
		depth: map[string]int{},
		into:  map[string][]*edge{},
		outOf: map[string][]*edge{},
	}
	consumers := catalog.consumers()
	if len(consumers[rootType]) == 0 {
		return nil, fmt.Errorf("%w: nothing consumes the root type '%s'", ErrMissingDissectors, rootType)
	}
	for _, es := range consumers {
		for _, e := range es {
			if err := validateOutputs(e); err != nil {
				return nil, err
			}
		}
	}

	remapNames := remaps.Names()
	g.depth[g.root.id()] = 0
	queue := []node{g.root}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		depth := g.depth[n.id()]
		if depth >= maxDepth {
			continue
		}
		for _, e := range consumers[n.typ] {
			for _, out := range e.dissector.Outputs() {
				to := node{typ: out.Type, name: childName(n.name, out.Name)}
				casts := out.Casts
				if casts == 0 {
					casts = StringOnly
				}
				if g.addEdge(&edge{from: n, to: to, base: n.name, via: e, casts: casts}, depth+1) {
					queue = append(queue, to)
				}
				for _, name := range remapNames {
					if !matchName(to.name, name) {
						continue
					}
					for _, typ := range remaps.Types(name) {
						if typ == to.typ {
							return nil, fmt.Errorf("%w: '%s' is already of type %s", ErrSelfRemapping, name, typ)
						}
						remapped := node{typ: typ, name: name}
						if g.addEdge(&edge{from: to, to: remapped, base: n.name, casts: StringOnly}, depth+1) {
							queue = append(queue, remapped)
						}
					}
				}
			}
		}
	}
	return g, nil
}

// addEdge records e and returns true if its target node was not seen before.
func (g *graph) addEdge(e *edge, depth int) bool {
	for _, existing := range g.outOf[e.from.id()] {
		if existing.to == e.to && existing.via == e.via && existing.base == e.base {
			return false
		}
	}
	g.edges = append(g.edges, e)
	g.into[e.to.id()] = append(g.into[e.to.id()], e)
	g.outOf[e.from.id()] = append(g.outOf[e.from.id()], e)
	if _, seen := g.depth[e.to.id()]; seen {
		return false
	}
	g.depth[e.to.id()] = depth
	g.nodes = append(g.nodes, e.to)
	return true
}

func validateOutputs(e *entry) error {
	if e.dissector.InputType() == "" {
		return fmt.Errorf("%w: '%s' has no input type", ErrInvalidDissector, e.name)
	}
	for _, out := range e.dissector.Outputs() {
		if out.Type == "" || out.Name == "" {
			return fmt.Errorf("%w: '%s' declares an output without type or name", ErrInvalidDissector, e.name)
		}
		if _, err := ParsePath(MakeID(out.Type, out.Name)); err != nil {
			return fmt.Errorf("%w: '%s' declares output '%s:%s'", ErrInvalidDissector, e.name, out.Type, out.Name)
		}
	}
	return nil
}

// paths lists every node id except the root, in discovery order.
func (g *graph) paths() []string {
	paths := make([]string, len(g.nodes))
	for i, n := range g.nodes {
		paths[i] = n.id()
	}
	return paths
}

// producers returns the edges that can satisfy a requested path.
func (g *graph) producers(fp FieldPath) []*edge {
	var found []*edge
	for _, e := range g.edges {
		if e.to.typ != fp.Type {
			continue
		}
		if fp.Wildcard {
			if matchName(e.base, fp.Name) || (fp.Name != "" && e.to.name == fp.Name+wildcardSuffix) {
				found = append(found, e)
			}
			continue
		}
		if matchName(e.to.name, fp.Name) {
			found = append(found, e)
		}
	}
	return found
}
