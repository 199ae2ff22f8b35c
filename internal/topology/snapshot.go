package topology

import "encoding/json"

type NodeKind string

const (
	NodeKindMonitored NodeKind = "monitored"
	// NodeKindInferred marks a neighbor that is referenced but not in the current device list.
	NodeKindInferred NodeKind = "inferred"
)

type GraphNode struct {
	ID      string   `json:"id"`
	Label   string   `json:"label"`
	Kind    NodeKind `json:"kind"`
	Tooltip string   `json:"title"`

	// idxDevice is only set for monitored nodes.
	idxDevice int64
}

type GraphEdge struct {
	ID    string `json:"id"`
	From  string `json:"from"`
	To    string `json:"to"`
	Label string `json:"label"`
}

// Snapshot is the graph produced by one Build. It is never mutated once built.
type Snapshot struct {
	nodes     []GraphNode
	edges     []GraphEdge
	nodeIndex map[string]int
	edgeIndex map[string]int
}

func newSnapshot(nodes []GraphNode, edges []GraphEdge) Snapshot {
	s := Snapshot{
		nodes:     nodes,
		edges:     edges,
		nodeIndex: make(map[string]int, len(nodes)),
		edgeIndex: make(map[string]int, len(edges)),
	}
	for i, n := range nodes {
		s.nodeIndex[n.ID] = i
	}
	for i, e := range edges {
		s.edgeIndex[e.ID] = i
	}
	return s
}

// Nodes returns a copy of the snapshot's nodes in build order.
func (s Snapshot) Nodes() []GraphNode {
	return append([]GraphNode{}, s.nodes...)
}

// Edges returns a copy of the snapshot's edges in build order.
func (s Snapshot) Edges() []GraphEdge {
	return append([]GraphEdge{}, s.edges...)
}

func (s Snapshot) NodeCount() int { return len(s.nodes) }
func (s Snapshot) EdgeCount() int { return len(s.edges) }

func (s Snapshot) Empty() bool {
	return len(s.nodes) == 0 && len(s.edges) == 0
}

func (s Snapshot) Node(id string) (GraphNode, bool) {
	i, ok := s.nodeIndex[id]
	if !ok {
		return GraphNode{}, false
	}
	return s.nodes[i], true
}

func (s Snapshot) Edge(id string) (GraphEdge, bool) {
	i, ok := s.edgeIndex[id]
	if !ok {
		return GraphEdge{}, false
	}
	return s.edges[i], true
}

// touches reports whether edge e has nodeID at either end.
func (e GraphEdge) touches(nodeID string) bool {
	return e.From == nodeID || e.To == nodeID
}

type snapshotJSON struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

func (s Snapshot) MarshalJSON() ([]byte, error) {
	out := snapshotJSON{Nodes: s.nodes, Edges: s.edges}
	if out.Nodes == nil {
		out.Nodes = []GraphNode{}
	}
	if out.Edges == nil {
		out.Edges = []GraphEdge{}
	}
	return json.Marshal(out)
}
