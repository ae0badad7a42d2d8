package linage

import (
	"sort"
	"strings"
	"sync"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Node is a typed graph vertex. Nodes returned by Graph and Query are copies;
// changing them does not change the graph.
type Node struct {
	ID         NodeID                 `json:"id" yaml:"id"`
	Kind       NodeKind               `json:"kind" yaml:"kind"`
	Name       string                 `json:"name" yaml:"name"`
	Attributes map[string]interface{} `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	handle     int64
}

// Attribute returns a kind specific attribute
func (n *Node) Attribute(name string) interface{} {
	if n.Attributes == nil {
		return nil
	}
	return n.Attributes[name]
}

// clone copies the node so that later additions to the graph do not show through
func (n *Node) clone() *Node {
	result := *n
	if n.Attributes != nil {
		result.Attributes = make(map[string]interface{}, len(n.Attributes))
		for k, v := range n.Attributes {
			if values, ok := v.([]string); ok {
				v = append([]string(nil), values...)
			}
			result.Attributes[k] = v
		}
	}
	return &result
}

func snapshot(nodes []*Node) []*Node {
	if nodes == nil {
		return nil
	}
	result := make([]*Node, len(nodes))
	for i, node := range nodes {
		result[i] = node.clone()
	}
	return result
}

// Edge is a typed directed relation; at most one edge exists per (from, to, kind)
type Edge struct {
	From       NodeID   `json:"source" yaml:"source"`
	To         NodeID   `json:"target" yaml:"target"`
	Kind       EdgeKind `json:"kind" yaml:"kind"`
	Condition  string   `json:"condition,omitempty" yaml:"condition,omitempty"`
	Expression string   `json:"expression,omitempty" yaml:"expression,omitempty"`
	Label      string   `json:"label,omitempty" yaml:"label,omitempty"`
}

type edgeKey struct {
	from, to NodeID
	kind     EdgeKind
}

type documentState struct {
	fingerprint uint64
}

// Graph is an append-only lineage graph. It is populated only through a Builder;
// reads are safe for concurrent use and are serialized against additions.
type Graph struct {
	mux         sync.RWMutex
	nodes       map[NodeID]*Node
	nodeOrder   []NodeID
	byHandle    map[int64]NodeID
	edges       map[edgeKey]*Edge
	edgeOrder   []edgeKey
	out         map[NodeID][]*Edge
	in          map[NodeID][]*Edge
	tables      map[TableKey]NodeID
	connections map[string][]NodeID // upper-cased connection name and id
	documents   map[string]*documentState
	topology    *simple.DirectedGraph
	dropped     int
}

// New creates an empty graph
func New() *Graph {
	return &Graph{
		nodes:       map[NodeID]*Node{},
		byHandle:    map[int64]NodeID{},
		edges:       map[edgeKey]*Edge{},
		out:         map[NodeID][]*Edge{},
		in:          map[NodeID][]*Edge{},
		tables:      map[TableKey]NodeID{},
		connections: map[string][]NodeID{},
		documents:   map[string]*documentState{},
		topology:    simple.NewDirectedGraph(),
	}
}

// addNode returns the existing node with the id, or registers a new one.
// Attributes of an existing node are extended, never replaced.
func (g *Graph) addNode(id NodeID, kind NodeKind, name string, attributes map[string]interface{}) (*Node, bool) {
	if node, ok := g.nodes[id]; ok {
		for k, v := range attributes {
			if _, exists := node.Attributes[k]; !exists && !isEmpty(v) {
				if node.Attributes == nil {
					node.Attributes = map[string]interface{}{}
				}
				node.Attributes[k] = v
			}
		}
		return node, false
	}
	handle := g.topology.NewNode()
	g.topology.AddNode(handle)
	node := &Node{ID: id, Kind: kind, Name: name, Attributes: compact(attributes), handle: handle.ID()}
	g.nodes[id] = node
	g.byHandle[handle.ID()] = id
	g.nodeOrder = append(g.nodeOrder, id)
	return node, true
}

// addEdge registers an edge between two existing nodes; it reports whether the edge is new
func (g *Graph) addEdge(edge *Edge) bool {
	from, ok := g.nodes[edge.From]
	if !ok {
		return false
	}
	to, ok := g.nodes[edge.To]
	if !ok {
		return false
	}
	key := edgeKey{from: edge.From, to: edge.To, kind: edge.Kind}
	if existing, ok := g.edges[key]; ok {
		if existing.Condition == "" {
			existing.Condition = edge.Condition
		}
		if existing.Expression == "" {
			existing.Expression = edge.Expression
		}
		return false
	}
	g.edges[key] = edge
	g.edgeOrder = append(g.edgeOrder, key)
	g.out[edge.From] = append(g.out[edge.From], edge)
	g.in[edge.To] = append(g.in[edge.To], edge)
	if from.handle != to.handle && !g.topology.HasEdgeFromTo(from.handle, to.handle) {
		g.topology.SetEdge(g.topology.NewEdge(simple.Node(from.handle), simple.Node(to.handle)))
	}
	return true
}

// Node returns a copy of the node with the id
func (g *Graph) Node(id NodeID) (*Node, bool) {
	g.mux.RLock()
	defer g.mux.RUnlock()
	node, ok := g.nodes[id]
	if !ok {
		return nil, false
	}
	return node.clone(), true
}

// Nodes returns copies of all nodes in insertion order
func (g *Graph) Nodes() []*Node {
	g.mux.RLock()
	defer g.mux.RUnlock()
	result := make([]*Node, 0, len(g.nodeOrder))
	for _, id := range g.nodeOrder {
		result = append(result, g.nodes[id].clone())
	}
	return result
}

// Edges returns copies of all edges in insertion order
func (g *Graph) Edges() []*Edge {
	g.mux.RLock()
	defer g.mux.RUnlock()
	result := make([]*Edge, 0, len(g.edgeOrder))
	for _, key := range g.edgeOrder {
		edge := *g.edges[key]
		result = append(result, &edge)
	}
	return result
}

// HasEdge reports whether an edge of the kind connects the nodes
func (g *Graph) HasEdge(from, to NodeID, kind EdgeKind) bool {
	g.mux.RLock()
	defer g.mux.RUnlock()
	_, ok := g.edges[edgeKey{from: from, to: to, kind: kind}]
	return ok
}

// Len returns the node and edge counts
func (g *Graph) Len() (nodes int, edges int) {
	g.mux.RLock()
	defer g.mux.RUnlock()
	return len(g.nodes), len(g.edges)
}

// ResolveTable returns the Table node id for a reference without creating it
func (g *Graph) ResolveTable(name string) (NodeID, bool) {
	g.mux.RLock()
	defer g.mux.RUnlock()
	ids := g.lookupTables(name)
	if len(ids) == 0 {
		return "", false
	}
	return ids[0], true
}

// lookupTables resolves a table reference: the parsed (schema, name) key, then the full
// dataset name; a bare name that matches neither selects every table with that name
func (g *Graph) lookupTables(name string) []NodeID {
	key := ParseTableName(name)
	if key.IsZero() {
		return nil
	}
	if id, ok := g.tables[key]; ok {
		return []NodeID{id}
	}
	if id, ok := g.tables[DatasetKey(name)]; ok {
		return []NodeID{id}
	}
	if key.Schema != "" {
		return nil
	}
	var result []NodeID
	for _, id := range g.nodeOrder {
		node := g.nodes[id]
		if node.Kind == KindTable && strings.EqualFold(node.Name, key.Name) {
			result = append(result, id)
		}
	}
	return result
}

func (g *Graph) lookupConnection(name string) (NodeID, bool) {
	ids := g.connections[strings.ToUpper(strings.TrimSpace(name))]
	if len(ids) == 0 {
		return "", false
	}
	return ids[0], true
}

func (g *Graph) registerConnection(id NodeID, names ...string) {
	for _, name := range names {
		key := strings.ToUpper(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		registered := false
		for _, candidate := range g.connections[key] {
			if candidate == id {
				registered = true
				break
			}
		}
		if !registered {
			g.connections[key] = append(g.connections[key], id)
		}
	}
}

// components returns weakly connected node sets ordered by size then first id
func (g *Graph) components() [][]NodeID {
	var result [][]NodeID
	for _, component := range topo.ConnectedComponents(graph.Undirect{G: g.topology}) {
		ids := make([]NodeID, 0, len(component))
		for _, node := range component {
			ids = append(ids, g.byHandle[node.ID()])
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		result = append(result, ids)
	}
	sort.Slice(result, func(i, j int) bool {
		if len(result[i]) != len(result[j]) {
			return len(result[i]) > len(result[j])
		}
		return result[i][0] < result[j][0]
	})
	return result
}

func compact(attributes map[string]interface{}) map[string]interface{} {
	result := map[string]interface{}{}
	for k, v := range attributes {
		if !isEmpty(v) {
			result[k] = v
		}
	}
	return result
}

func isEmpty(value interface{}) bool {
	switch actual := value.(type) {
	case nil:
		return true
	case string:
		return actual == ""
	case []string:
		return len(actual) == 0
	}
	return false
}
