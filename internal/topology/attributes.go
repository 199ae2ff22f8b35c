package topology

// Palette used for node and edge emphasis. Values are vis-network color strings.
const (
	ColorMonitored     = "#97C2FC"
	ColorInferred      = "#D3D3D3"
	ColorFont          = "#343434"
	ColorEdge          = "#848484"
	ColorSelected      = "#FF8C00"
	ColorSelectedFont  = "#000000"
	ColorDimmed        = "rgba(200,200,200,0.5)"
	ColorDimmedFont    = "#BBBBBB"
	ColorEdgeHighlight = "#FF8C00"
	ColorEdgeDimmed    = "rgba(200,200,200,0.3)"
)

// NodeAttributes are the renderer attributes the core controls for one node.
type NodeAttributes struct {
	Color     string `json:"color"`
	FontColor string `json:"font_color"`
}

// EdgeAttributes are the renderer attributes the core controls for one edge.
type EdgeAttributes struct {
	Color     string `json:"color"`
	ShowArrow bool   `json:"show_arrow"`
}

// Attributes is the full visual state of a rendered snapshot.
type Attributes struct {
	Nodes map[string]NodeAttributes `json:"nodes"`
	Edges map[string]EdgeAttributes `json:"edges"`
}

// Baseline returns the attributes of a freshly built snapshot.
func Baseline(s Snapshot) Attributes {
	a := Attributes{
		Nodes: make(map[string]NodeAttributes, len(s.nodes)),
		Edges: make(map[string]EdgeAttributes, len(s.edges)),
	}
	for _, n := range s.nodes {
		a.Nodes[n.ID] = defaultNodeAttributes(n)
	}
	for _, e := range s.edges {
		a.Edges[e.ID] = defaultEdgeAttributes()
	}
	return a
}

// Apply folds a delta into a copy of a, the same way a renderer would.
//
// A delta that restores a snapshot replaces the node and edge sets before its
// updates are applied.
func (a Attributes) Apply(d Delta) Attributes {
	var out Attributes
	if d.Restore != nil {
		out = Baseline(*d.Restore)
	} else {
		out = a.clone()
	}
	for _, u := range d.Nodes {
		if _, ok := out.Nodes[u.ID]; !ok {
			continue
		}
		out.Nodes[u.ID] = u.NodeAttributes
	}
	for _, u := range d.Edges {
		cur, ok := out.Edges[u.ID]
		if !ok {
			continue
		}
		if u.Color != nil {
			cur.Color = *u.Color
		}
		cur.ShowArrow = u.ShowArrow
		out.Edges[u.ID] = cur
	}
	return out
}

func (a Attributes) clone() Attributes {
	out := Attributes{
		Nodes: make(map[string]NodeAttributes, len(a.Nodes)),
		Edges: make(map[string]EdgeAttributes, len(a.Edges)),
	}
	for k, v := range a.Nodes {
		out.Nodes[k] = v
	}
	for k, v := range a.Edges {
		out.Edges[k] = v
	}
	return out
}

func defaultNodeAttributes(n GraphNode) NodeAttributes {
	color := ColorMonitored
	if n.Kind == NodeKindInferred {
		color = ColorInferred
	}
	return NodeAttributes{Color: color, FontColor: ColorFont}
}

func defaultEdgeAttributes() EdgeAttributes {
	return EdgeAttributes{Color: ColorEdge}
}
