package graph

import "unicode/utf8"

const defaultGroup = 1

type pairKey struct{ a, b string }

func newPairKey(x, y string) pairKey {
	if y < x {
		x, y = y, x
	}
	return pairKey{a: x, b: y}
}

// Graph is an undirected character graph. It keeps insertion order of nodes
// and edges so exports are deterministic. A Graph is not safe for concurrent
// mutation.
type Graph struct {
	nodes   []Node
	nodeIdx map[string]int
	edges   []Edge
	edgeIdx map[pairKey]int
}

func New() *Graph {
	return &Graph{
		nodeIdx: make(map[string]int),
		edgeIdx: make(map[pairKey]int),
	}
}

// Build folds results into a fresh graph in the given order.
func Build(results ...ExtractionResult) *Graph {
	g := New()
	for _, r := range results {
		g.Merge(r)
	}
	return g
}

// Merge folds one extraction result into the graph.
//
// A known entity keeps its type and only takes the new description when it is
// strictly longer. A known pair gets its weight bumped and keeps its label.
// Relationship endpoints that were never seen are added as untyped nodes and
// stay untyped, even when an entity record for them arrives later.
func (g *Graph) Merge(r ExtractionResult) {
	for _, e := range r.Entities {
		g.mergeEntity(e)
	}
	for _, rel := range r.Relationships {
		g.mergeRelationship(rel)
	}
}

func (g *Graph) mergeEntity(e Entity) {
	if e.Name == "" {
		return
	}
	i, ok := g.nodeIdx[e.Name]
	if !ok {
		g.addNode(Node{ID: e.Name, Type: e.Type, Description: e.Description, Group: defaultGroup})
		return
	}

	n := &g.nodes[i]
	if utf8.RuneCountInString(e.Description) > utf8.RuneCountInString(n.Description) {
		n.Description = e.Description
	}
}

func (g *Graph) mergeRelationship(rel Relationship) {
	if rel.Source == "" || rel.Target == "" {
		return
	}
	for _, name := range []string{rel.Source, rel.Target} {
		if _, ok := g.nodeIdx[name]; !ok {
			g.addNode(Node{ID: name, Group: defaultGroup})
		}
	}

	key := newPairKey(rel.Source, rel.Target)
	if i, ok := g.edgeIdx[key]; ok {
		g.edges[i].Weight++
		return
	}
	g.edgeIdx[key] = len(g.edges)
	g.edges = append(g.edges, Edge{
		Source:      rel.Source,
		Target:      rel.Target,
		Type:        rel.Type,
		Description: rel.Description,
		Weight:      1,
	})
}

func (g *Graph) addNode(n Node) {
	g.nodeIdx[n.ID] = len(g.nodes)
	g.nodes = append(g.nodes, n)
}

// Node returns the node called name.
func (g *Graph) Node(name string) (Node, bool) {
	i, ok := g.nodeIdx[name]
	if !ok {
		return Node{}, false
	}
	return g.nodes[i], true
}

// Edge returns the edge between a and b in either direction.
func (g *Graph) Edge(a, b string) (Edge, bool) {
	i, ok := g.edgeIdx[newPairKey(a, b)]
	if !ok {
		return Edge{}, false
	}
	return g.edges[i], true
}

// Nodes returns a copy of all nodes in insertion order.
func (g *Graph) Nodes() []Node {
	return append([]Node(nil), g.nodes...)
}

// Edges returns a copy of all edges in insertion order.
func (g *Graph) Edges() []Edge {
	return append([]Edge(nil), g.edges...)
}

func (g *Graph) NodeCount() int { return len(g.nodes) }
func (g *Graph) EdgeCount() int { return len(g.edges) }
