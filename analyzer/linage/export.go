package linage

// NodeLinkNode is a node of the node-link dump
type NodeLinkNode struct {
	ID         NodeID                 `json:"id" yaml:"id"`
	Type       NodeKind               `json:"type" yaml:"type"`
	Properties map[string]interface{} `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// NodeLinkEdge is an edge of the node-link dump
type NodeLinkEdge struct {
	Source     NodeID                 `json:"source" yaml:"source"`
	Target     NodeID                 `json:"target" yaml:"target"`
	Type       EdgeKind               `json:"type" yaml:"type"`
	Properties map[string]interface{} `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// NodeLink is the full node and edge set in insertion order
type NodeLink struct {
	Directed bool           `json:"directed" yaml:"directed"`
	Nodes    []NodeLinkNode `json:"nodes" yaml:"nodes"`
	Links    []NodeLinkEdge `json:"links" yaml:"links"`
}

// NodeLink returns a snapshot of the graph; properties are copied
func (g *Graph) NodeLink() *NodeLink {
	g.mux.RLock()
	defer g.mux.RUnlock()
	result := &NodeLink{
		Directed: true,
		Nodes:    make([]NodeLinkNode, 0, len(g.nodeOrder)),
		Links:    make([]NodeLinkEdge, 0, len(g.edgeOrder)),
	}
	for _, id := range g.nodeOrder {
		node := g.nodes[id]
		properties := map[string]interface{}{"name": node.Name}
		for k, v := range node.Attributes {
			properties[k] = v
		}
		result.Nodes = append(result.Nodes, NodeLinkNode{ID: id, Type: node.Kind, Properties: properties})
	}
	for _, key := range g.edgeOrder {
		edge := g.edges[key]
		properties := map[string]interface{}{}
		if edge.Condition != "" {
			properties["condition"] = edge.Condition
		}
		if edge.Expression != "" {
			properties["expression"] = edge.Expression
		}
		if edge.Label != "" {
			properties["label"] = edge.Label
		}
		result.Links = append(result.Links, NodeLinkEdge{Source: edge.From, Target: edge.To, Type: edge.Kind, Properties: properties})
	}
	return result
}
