package topology

import "strings"

type Mode string

const (
	ModeIdle          Mode = "idle"
	ModeNodeSelected  Mode = "node_selected"
	ModeSearchFocused Mode = "search_focused"
	ModeEdgeHovered   Mode = "edge_hovered"
)

// State is the interaction state of one rendered snapshot.
//
// Target is the node id for NodeSelected/SearchFocused and the edge id for
// EdgeHovered. Resume holds the state a hover interrupted.
type State struct {
	Mode   Mode   `json:"mode"`
	Target string `json:"target,omitempty"`
	Resume *State `json:"resume,omitempty"`
}

func Idle() State {
	return State{Mode: ModeIdle}
}

type GestureKind string

const (
	GestureSelectNode   GestureKind = "selectNode"
	GestureDeselect     GestureKind = "deselect"
	GestureSearch       GestureKind = "search"
	GestureHoverEdge    GestureKind = "hoverEdge"
	GestureBlurEdge     GestureKind = "blurEdge"
	GestureReset        GestureKind = "reset"
	GestureActivateNode GestureKind = "activateNode"
)

// GestureKinds lists every gesture ApplyGesture understands.
var GestureKinds = []GestureKind{
	GestureSelectNode,
	GestureDeselect,
	GestureSearch,
	GestureHoverEdge,
	GestureBlurEdge,
	GestureReset,
	GestureActivateNode,
}

type Gesture struct {
	Kind   GestureKind `json:"kind"`
	Target string      `json:"target,omitempty"`
}

type NodeUpdate struct {
	ID string `json:"id"`
	NodeAttributes
}

// EdgeUpdate always sets arrow visibility; Color is nil when only the arrow changes.
type EdgeUpdate struct {
	ID        string  `json:"id"`
	Color     *string `json:"color,omitempty"`
	ShowArrow bool    `json:"show_arrow"`
}

// FocusScale is the zoom level requested when a search focuses a node.
const FocusScale = 1.5

type Focus struct {
	NodeID string  `json:"node_id"`
	Scale  float64 `json:"scale"`
}

// NavigationIntent asks the host to open the detail view of a monitored device.
type NavigationIntent struct {
	IdxDevice int64  `json:"idx_device"`
	SysName   string `json:"sys_name"`
}

type SignalKind string

const (
	SignalNotFound       SignalKind = "not_found"
	SignalNotNavigable   SignalKind = "not_navigable"
	SignalUnknownGesture SignalKind = "unknown_gesture"
)

// Signal reports a gesture that could not be honoured. It is a warning, not an error.
type Signal struct {
	Kind    SignalKind  `json:"kind"`
	Gesture GestureKind `json:"gesture"`
	Target  string      `json:"target,omitempty"`
}

// Delta is the set of renderer commands produced by one gesture.
type Delta struct {
	Nodes       []NodeUpdate      `json:"nodes,omitempty"`
	Edges       []EdgeUpdate      `json:"edges,omitempty"`
	Focus       *Focus            `json:"focus,omitempty"`
	ClearSearch bool              `json:"clear_search,omitempty"`
	Restore     *Snapshot         `json:"restore,omitempty"`
	Navigate    *NavigationIntent `json:"navigate,omitempty"`
	Signal      *Signal           `json:"signal,omitempty"`
}

// ApplyGesture computes the next state and the renderer delta for one gesture.
// It has no side effects; the same inputs always give the same outputs.
func ApplyGesture(s Snapshot, st State, g Gesture) (State, Delta) {
	switch g.Kind {
	case GestureSelectNode:
		if _, ok := s.Node(g.Target); !ok {
			return st, signalDelta(SignalNotFound, g)
		}
		return State{Mode: ModeNodeSelected, Target: g.Target}, emphasisDelta(s, g.Target)

	case GestureDeselect:
		return Idle(), baselineDelta(s)

	case GestureSearch:
		n, ok := findNode(s, g.Target)
		if !ok {
			return st, signalDelta(SignalNotFound, g)
		}
		d := emphasisDelta(s, n.ID)
		d.Focus = &Focus{NodeID: n.ID, Scale: FocusScale}
		return State{Mode: ModeSearchFocused, Target: n.ID}, d

	case GestureHoverEdge:
		if _, ok := s.Edge(g.Target); !ok {
			return st, signalDelta(SignalNotFound, g)
		}
		base := st
		var d Delta
		if st.Mode == ModeEdgeHovered {
			base = resumeOf(st)
			if st.Target != g.Target {
				d.Edges = append(d.Edges, EdgeUpdate{ID: st.Target, ShowArrow: false})
			}
		}
		d.Edges = append(d.Edges, EdgeUpdate{ID: g.Target, ShowArrow: true})
		return State{Mode: ModeEdgeHovered, Target: g.Target, Resume: &base}, d

	case GestureBlurEdge:
		if st.Mode != ModeEdgeHovered || st.Target != g.Target {
			return st, Delta{}
		}
		return resumeOf(st), Delta{Edges: []EdgeUpdate{{ID: g.Target, ShowArrow: false}}}

	case GestureReset:
		return Reset(s)

	case GestureActivateNode:
		n, ok := s.Node(g.Target)
		if !ok {
			return st, signalDelta(SignalNotFound, g)
		}
		if n.Kind != NodeKindMonitored {
			return st, signalDelta(SignalNotNavigable, g)
		}
		return st, Delta{Navigate: &NavigationIntent{IdxDevice: n.idxDevice, SysName: n.ID}}

	default:
		return st, signalDelta(SignalUnknownGesture, g)
	}
}

// Reset returns the Idle state and a delta restoring s exactly as built.
func Reset(s Snapshot) (State, Delta) {
	d := baselineDelta(s)
	restore := s
	d.Restore = &restore
	d.ClearSearch = true
	return Idle(), d
}

func resumeOf(st State) State {
	if st.Resume == nil {
		return Idle()
	}
	return *st.Resume
}

// findNode resolves a search term by id first, then by case-insensitive label.
func findNode(s Snapshot, term string) (GraphNode, bool) {
	term = strings.TrimSpace(term)
	if term == "" {
		return GraphNode{}, false
	}
	if n, ok := s.Node(term); ok {
		return n, true
	}
	for _, n := range s.nodes {
		if strings.EqualFold(n.Label, term) {
			return n, true
		}
	}
	return GraphNode{}, false
}

func emphasisDelta(s Snapshot, nodeID string) Delta {
	d := Delta{
		Nodes: make([]NodeUpdate, 0, len(s.nodes)),
		Edges: make([]EdgeUpdate, 0, len(s.edges)),
	}
	for _, n := range s.nodes {
		attrs := NodeAttributes{Color: ColorDimmed, FontColor: ColorDimmedFont}
		if n.ID == nodeID {
			attrs = NodeAttributes{Color: ColorSelected, FontColor: ColorSelectedFont}
		}
		d.Nodes = append(d.Nodes, NodeUpdate{ID: n.ID, NodeAttributes: attrs})
	}
	for _, e := range s.edges {
		color := ColorEdgeDimmed
		if e.touches(nodeID) {
			color = ColorEdgeHighlight
		}
		d.Edges = append(d.Edges, EdgeUpdate{ID: e.ID, Color: &color, ShowArrow: false})
	}
	return d
}

func baselineDelta(s Snapshot) Delta {
	d := Delta{
		Nodes: make([]NodeUpdate, 0, len(s.nodes)),
		Edges: make([]EdgeUpdate, 0, len(s.edges)),
	}
	for _, n := range s.nodes {
		d.Nodes = append(d.Nodes, NodeUpdate{ID: n.ID, NodeAttributes: defaultNodeAttributes(n)})
	}
	for _, e := range s.edges {
		attrs := defaultEdgeAttributes()
		color := attrs.Color
		d.Edges = append(d.Edges, EdgeUpdate{ID: e.ID, Color: &color, ShowArrow: attrs.ShowArrow})
	}
	return d
}

func signalDelta(kind SignalKind, g Gesture) Delta {
	return Delta{Signal: &Signal{Kind: kind, Gesture: g.Kind, Target: g.Target}}
}
