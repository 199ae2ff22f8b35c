package topology

import (
	"reflect"
	"testing"
)

func labelled(labels ...string) []GraphNode {
	out := make([]GraphNode, 0, len(labels))
	for _, l := range labels {
		out = append(out, GraphNode{ID: l, Label: l})
	}
	return out
}

func TestSuggest(t *testing.T) {
	nodes := labelled("Device1", "Device2", "Other", "Core 2")

	tests := []struct {
		name   string
		prefix string
		limit  int
		want   []string
	}{
		{name: "case insensitive in node order", prefix: "dev", limit: 5, want: []string{"Device1", "Device2"}},
		{name: "substring not just prefix", prefix: "ice2", limit: 5, want: []string{"Device2"}},
		{name: "limit caps results", prefix: "e", limit: 2, want: []string{"Device1", "Device2"}},
		{name: "default limit", prefix: "e", limit: 0, want: []string{"Device1", "Device2", "Other", "Core 2"}},
		{name: "empty prefix hides suggestions", prefix: "", limit: 5, want: []string{}},
		{name: "blank prefix hides suggestions", prefix: "  ", limit: 5, want: []string{}},
		{name: "no match", prefix: "router", limit: 5, want: []string{}},
		{name: "leading space is part of the match", prefix: " dev", limit: 5, want: []string{}},
		{name: "inner space matches", prefix: "e 2", limit: 5, want: []string{"Core 2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Suggest(tt.prefix, nodes, tt.limit); !reflect.DeepEqual(tt.want, got) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestSuggest_KeepsOriginalOrder(t *testing.T) {
	nodes := labelled("zeta-sw", "alpha-sw", "mid-sw")
	want := []string{"zeta-sw", "alpha-sw", "mid-sw"}
	if got := Suggest("SW", nodes, 5); !reflect.DeepEqual(want, got) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestSuggest_DefaultLimitIsFive(t *testing.T) {
	nodes := labelled("sw1", "sw2", "sw3", "sw4", "sw5", "sw6")
	if got := Suggest("sw", nodes, -1); len(got) != DefaultSuggestLimit {
		t.Fatalf("expected %d suggestions, got %v", DefaultSuggestLimit, got)
	}
}
