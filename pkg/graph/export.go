package graph

import (
	"encoding/json"
	"fmt"
)

// NodeLink is the serialized form of a Graph, laid out the way graph
// front-ends such as d3-force expect it.
type NodeLink struct {
	Nodes []Node `json:"nodes"`
	Links []Edge `json:"links"`
}

// NodeLink returns the graph in node-link form. Empty graphs produce empty
// lists rather than null.
func (g *Graph) NodeLink() NodeLink {
	nl := NodeLink{Nodes: g.Nodes(), Links: g.Edges()}
	if nl.Nodes == nil {
		nl.Nodes = []Node{}
	}
	if nl.Links == nil {
		nl.Links = []Edge{}
	}
	return nl
}

func (g *Graph) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.NodeLink())
}

// Parse reads a node-link document back into a Graph.
func Parse(data []byte) (*Graph, error) {
	var nl NodeLink
	if err := json.Unmarshal(data, &nl); err != nil {
		return nil, fmt.Errorf("decode node-link graph: %w", err)
	}

	g := New()
	for _, n := range nl.Nodes {
		if _, dup := g.nodeIdx[n.ID]; dup {
			return nil, fmt.Errorf("duplicate node %q", n.ID)
		}
		g.addNode(n)
	}
	for _, e := range nl.Links {
		key := newPairKey(e.Source, e.Target)
		if _, dup := g.edgeIdx[key]; dup {
			return nil, fmt.Errorf("duplicate link %q - %q", e.Source, e.Target)
		}
		for _, name := range []string{e.Source, e.Target} {
			if _, ok := g.nodeIdx[name]; !ok {
				return nil, fmt.Errorf("link references unknown node %q", name)
			}
		}
		g.edgeIdx[key] = len(g.edges)
		g.edges = append(g.edges, e)
	}
	return g, nil
}
