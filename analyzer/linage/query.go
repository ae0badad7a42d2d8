package linage

import (
	"math"
	"strings"

	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

// Containment groups the direct Contains successors of a document
type Containment struct {
	Connections []*Node `json:"connections,omitempty" yaml:"connections,omitempty"`
	Parameters  []*Node `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Tasks       []*Node `json:"tasks,omitempty" yaml:"tasks,omitempty"`
	Tables      []*Node `json:"tables,omitempty" yaml:"tables,omitempty"`
}

// Dependencies holds the direct Precedes neighbors of a task
type Dependencies struct {
	Predecessors []*Node `json:"predecessors,omitempty" yaml:"predecessors,omitempty"`
	Successors   []*Node `json:"successors,omitempty" yaml:"successors,omitempty"`
}

// Lineage holds the tables one hop upstream and downstream of a table
type Lineage struct {
	Upstream   []*Node `json:"upstream,omitempty" yaml:"upstream,omitempty"`
	Downstream []*Node `json:"downstream,omitempty" yaml:"downstream,omitempty"`
}

// Importance holds degree metrics of a node
type Importance struct {
	InDegree    int `json:"inDegree" yaml:"inDegree"`
	OutDegree   int `json:"outDegree" yaml:"outDegree"`
	TotalDegree int `json:"totalDegree" yaml:"totalDegree"`
}

// Stats summarizes the graph
type Stats struct {
	TotalNodes          int              `json:"totalNodes" yaml:"totalNodes"`
	TotalEdges          int              `json:"totalEdges" yaml:"totalEdges"`
	Nodes               map[NodeKind]int `json:"nodes" yaml:"nodes"`
	Edges               map[EdgeKind]int `json:"edges" yaml:"edges"`
	Documents           int              `json:"documents" yaml:"documents"`
	Components          int              `json:"components" yaml:"components"`
	WeaklyConnected     bool             `json:"weaklyConnected" yaml:"weaklyConnected"`
	DroppedDependencies int              `json:"droppedDependencies" yaml:"droppedDependencies"`
}

// Query answers read-only questions over a graph. Every operation returns an empty
// result when nothing matches, and returned nodes are copies.
type Query struct {
	graph *Graph
}

// NewQuery creates a query engine over the graph
func NewQuery(graph *Graph) *Query {
	return &Query{graph: graph}
}

// FindByType returns the nodes of a kind in insertion order
func (q *Query) FindByType(kind NodeKind) []*Node {
	g := q.graph
	g.mux.RLock()
	defer g.mux.RUnlock()
	var result []*Node
	for _, id := range g.nodeOrder {
		if node := g.nodes[id]; node.Kind == kind {
			result = append(result, node.clone())
		}
	}
	return result
}

// FindByName returns nodes whose name equals name, optionally restricted to kinds
func (q *Query) FindByName(name string, kinds ...NodeKind) []*Node {
	return q.filter(kinds, func(node *Node) bool {
		return node.Name == name
	})
}

// Search returns nodes whose name contains term, case-insensitive
func (q *Query) Search(term string, kinds ...NodeKind) []*Node {
	term = strings.ToLower(term)
	return q.filter(kinds, func(node *Node) bool {
		return strings.Contains(strings.ToLower(node.Name), term)
	})
}

func (q *Query) filter(kinds []NodeKind, accept func(node *Node) bool) []*Node {
	g := q.graph
	g.mux.RLock()
	defer g.mux.RUnlock()
	var result []*Node
	for _, id := range g.nodeOrder {
		node := g.nodes[id]
		if !hasKind(kinds, node.Kind) || !accept(node) {
			continue
		}
		result = append(result, node.clone())
	}
	return result
}

func hasKind(kinds []NodeKind, kind NodeKind) bool {
	if len(kinds) == 0 {
		return true
	}
	for _, candidate := range kinds {
		if candidate == kind {
			return true
		}
	}
	return false
}

// ContainmentOf groups what a document contains; the id may be a Document node id or a document id
func (q *Query) ContainmentOf(documentID string) *Containment {
	g := q.graph
	g.mux.RLock()
	defer g.mux.RUnlock()
	result := &Containment{}
	id := NodeID(documentID)
	if _, ok := g.nodes[id]; !ok {
		id = DocumentID(documentID)
	}
	for _, edge := range g.out[id] {
		if edge.Kind != Contains {
			continue
		}
		node := g.nodes[edge.To].clone()
		switch node.Kind {
		case KindConnection:
			result.Connections = append(result.Connections, node)
		case KindParameter:
			result.Parameters = append(result.Parameters, node)
		case KindTask:
			result.Tasks = append(result.Tasks, node)
		case KindTable:
			result.Tables = append(result.Tables, node)
		}
	}
	return result
}

// DependenciesOf returns the direct Precedes neighbors of a task
func (q *Query) DependenciesOf(taskID NodeID) *Dependencies {
	g := q.graph
	g.mux.RLock()
	defer g.mux.RUnlock()
	return &Dependencies{
		Predecessors: snapshot(g.predecessors(taskID, Precedes)),
		Successors:   snapshot(g.successors(taskID, Precedes)),
	}
}

// ReadersOf returns the tasks reading the table
func (q *Query) ReadersOf(table string) []*Node {
	g := q.graph
	g.mux.RLock()
	defer g.mux.RUnlock()
	return snapshot(g.tableNeighbors(table, ReadsFrom))
}

// WritersOf returns the tasks writing the table
func (q *Query) WritersOf(table string) []*Node {
	g := q.graph
	g.mux.RLock()
	defer g.mux.RUnlock()
	return snapshot(g.tableNeighbors(table, WritesTo))
}

// TablesReadBy returns the tables a task reads
func (q *Query) TablesReadBy(taskID NodeID) []*Node {
	g := q.graph
	g.mux.RLock()
	defer g.mux.RUnlock()
	return snapshot(g.successors(taskID, ReadsFrom))
}

// TablesWrittenBy returns the tables a task writes
func (q *Query) TablesWrittenBy(taskID NodeID) []*Node {
	g := q.graph
	g.mux.RLock()
	defer g.mux.RUnlock()
	return snapshot(g.successors(taskID, WritesTo))
}

// TraceLineage returns the tables one hop away through a task: upstream are the tables read
// by the table's writers, downstream the tables written by its readers. Direct Transforms
// edges between tables contribute their immediate neighbors.
func (q *Query) TraceLineage(table string, direction Direction) *Lineage {
	g := q.graph
	g.mux.RLock()
	defer g.mux.RUnlock()
	result := &Lineage{}
	tables := g.lookupTables(table)
	if len(tables) == 0 {
		return result
	}
	self := map[NodeID]bool{}
	for _, id := range tables {
		self[id] = true
	}
	upstream := newNodeSet(self)
	downstream := newNodeSet(self)
	for _, id := range tables {
		if direction.upstream() {
			for _, writer := range g.predecessors(id, WritesTo) {
				upstream.add(g.successors(writer.ID, ReadsFrom)...)
			}
			upstream.add(g.predecessors(id, Transforms)...)
		}
		if direction.downstream() {
			for _, reader := range g.predecessors(id, ReadsFrom) {
				downstream.add(g.successors(reader.ID, WritesTo)...)
			}
			downstream.add(g.successors(id, Transforms)...)
		}
	}
	result.Upstream = snapshot(upstream.nodes)
	result.Downstream = snapshot(downstream.nodes)
	return result
}

// ShortestPath returns the node ids on a shortest directed path, or false when none exists
func (q *Query) ShortestPath(from, to NodeID) ([]NodeID, bool) {
	g := q.graph
	g.mux.RLock()
	defer g.mux.RUnlock()
	source, ok := g.nodes[from]
	if !ok {
		return nil, false
	}
	target, ok := g.nodes[to]
	if !ok {
		return nil, false
	}
	shortest := path.DijkstraFrom(simple.Node(source.handle), g.topology)
	nodes, weight := shortest.To(target.handle)
	if len(nodes) == 0 || math.IsInf(weight, 1) {
		return nil, false
	}
	result := make([]NodeID, 0, len(nodes))
	for _, node := range nodes {
		result = append(result, g.byHandle[node.ID()])
	}
	return result, true
}

// ConnectedComponents returns the node sets of the undirected projection, largest first
func (q *Query) ConnectedComponents() [][]NodeID {
	g := q.graph
	g.mux.RLock()
	defer g.mux.RUnlock()
	return g.components()
}

// NodeImportance returns degree metrics, or false for an unknown node
func (q *Query) NodeImportance(id NodeID) (*Importance, bool) {
	g := q.graph
	g.mux.RLock()
	defer g.mux.RUnlock()
	if _, ok := g.nodes[id]; !ok {
		return nil, false
	}
	in, out := len(g.in[id]), len(g.out[id])
	return &Importance{InDegree: in, OutDegree: out, TotalDegree: in + out}, true
}

// Stats returns node and edge counts per kind and connectivity
func (q *Query) Stats() *Stats {
	g := q.graph
	g.mux.RLock()
	defer g.mux.RUnlock()
	result := &Stats{
		TotalNodes:          len(g.nodes),
		TotalEdges:          len(g.edges),
		Nodes:               map[NodeKind]int{},
		Edges:               map[EdgeKind]int{},
		Documents:           len(g.documents),
		DroppedDependencies: g.dropped,
	}
	for _, kind := range NodeKinds {
		result.Nodes[kind] = 0
	}
	for _, kind := range EdgeKinds {
		result.Edges[kind] = 0
	}
	for _, node := range g.nodes {
		result.Nodes[node.Kind]++
	}
	for _, edge := range g.edges {
		result.Edges[edge.Kind]++
	}
	components := g.components()
	result.Components = len(components)
	result.WeaklyConnected = len(components) == 1
	return result
}

func (g *Graph) successors(id NodeID, kind EdgeKind) []*Node {
	var result []*Node
	for _, edge := range g.out[id] {
		if edge.Kind == kind {
			result = append(result, g.nodes[edge.To])
		}
	}
	return result
}

func (g *Graph) predecessors(id NodeID, kind EdgeKind) []*Node {
	var result []*Node
	for _, edge := range g.in[id] {
		if edge.Kind == kind {
			result = append(result, g.nodes[edge.From])
		}
	}
	return result
}

// tableNeighbors returns the tasks linked to the resolved tables by kind, de-duplicated
func (g *Graph) tableNeighbors(table string, kind EdgeKind) []*Node {
	set := newNodeSet(nil)
	for _, id := range g.lookupTables(table) {
		for _, node := range g.predecessors(id, kind) {
			if node.Kind == KindTask {
				set.add(node)
			}
		}
	}
	return set.nodes
}

type nodeSet struct {
	seen  map[NodeID]bool
	nodes []*Node
}

func newNodeSet(exclude map[NodeID]bool) *nodeSet {
	seen := map[NodeID]bool{}
	for id := range exclude {
		seen[id] = true
	}
	return &nodeSet{seen: seen}
}

func (s *nodeSet) add(nodes ...*Node) {
	for _, node := range nodes {
		if node == nil || s.seen[node.ID] {
			continue
		}
		s.seen[node.ID] = true
		s.nodes = append(s.nodes, node)
	}
}
