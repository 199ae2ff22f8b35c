package topology

import "strings"

// DefaultSuggestLimit is used when Suggest is called with a non-positive limit.
const DefaultSuggestLimit = 5

// Suggest returns up to limit node labels containing prefix, ignoring case, in
// node order. A blank prefix hides suggestions entirely; otherwise prefix is
// matched as typed, surrounding spaces included.
func Suggest(prefix string, nodes []GraphNode, limit int) []string {
	if strings.TrimSpace(prefix) == "" {
		return []string{}
	}
	needle := strings.ToLower(prefix)
	if limit <= 0 {
		limit = DefaultSuggestLimit
	}

	out := make([]string, 0, limit)
	for _, n := range nodes {
		if len(out) == limit {
			break
		}
		if strings.Contains(strings.ToLower(n.Label), needle) {
			out = append(out, n.Label)
		}
	}
	return out
}
