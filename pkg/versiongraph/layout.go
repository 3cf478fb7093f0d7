// Package versiongraph lays out a rule set history as a commit graph: one row per
// version (newest first), one column per branch lane, and a stable color per lane.
package versiongraph

import (
	"sort"
	"strings"
	"time"
)

// DefaultPalette is used when no palette is configured.
var DefaultPalette = []string{"#2563eb", "#16a34a", "#d97706", "#dc2626", "#7c3aed", "#0891b2", "#db2777", "#4b5563"}

// EdgeKind describes how an edge is drawn.
type EdgeKind string

// Edge kinds.
const (
	EdgeStraight EdgeKind = "straight"
	EdgeElbow    EdgeKind = "elbow"
)

// Node is one version in the history.
type Node struct {
	ID        string
	Parents   []string
	CreatedAt time.Time
}

// Placement is the grid position and color of a node.
type Placement struct {
	ID    string `json:"id"`
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Color string `json:"color"`
}

// Edge connects a child to one of its parents.
type Edge struct {
	From string   `json:"from"`
	To   string   `json:"to"`
	Kind EdgeKind `json:"kind"`
}

// Layout is the rendered graph.
type Layout struct {
	Nodes   []Placement `json:"nodes"`
	Edges   []Edge      `json:"edges"`
	Columns int         `json:"columns"`
}

// Build computes the layout. The result depends only on the set of nodes, not
// on their input order. Parents missing from nodes are ignored.
func Build(nodes []Node, palette []string) Layout {
	if len(palette) == 0 {
		palette = DefaultPalette
	}

	ordered := append([]Node(nil), nodes...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].CreatedAt.After(ordered[j].CreatedAt)
		}
		return ordered[i].ID < ordered[j].ID
	})

	known := make(map[string]bool, len(ordered))
	for _, n := range ordered {
		known[n.ID] = true
	}

	// lanes[i] holds the id the lane is waiting for; "" marks a free lane.
	var lanes []string
	column := make(map[string]int, len(ordered))

	for _, n := range ordered {
		x := -1
		for i, expected := range lanes {
			if expected != n.ID {
				continue
			}
			if x == -1 {
				x = i
			} else {
				lanes[i] = ""
			}
		}
		if x == -1 {
			x = lowestFree(lanes)
			if x == len(lanes) {
				lanes = append(lanes, "")
			}
		}
		column[n.ID] = x
		lanes[x] = ""

		first := true
		for _, parent := range sortedParents(n.Parents) {
			if !known[parent] {
				continue
			}
			if first {
				lanes[x] = parent
				first = false
				continue
			}
			if indexOf(lanes, parent) >= 0 {
				continue
			}
			slot := lowestFree(lanes)
			if slot == len(lanes) {
				lanes = append(lanes, "")
			}
			lanes[slot] = parent
		}
	}

	layout := Layout{Nodes: make([]Placement, 0, len(ordered))}
	segmentEnds := make(map[int][]string)
	for _, n := range ordered {
		x := column[n.ID]
		continues := false
		for _, parent := range sortedParents(n.Parents) {
			if !known[parent] {
				continue
			}
			kind := EdgeElbow
			if column[parent] == x {
				kind = EdgeStraight
				continues = true
			}
			layout.Edges = append(layout.Edges, Edge{From: n.ID, To: parent, Kind: kind})
		}
		if !continues {
			segmentEnds[x] = append(segmentEnds[x], n.ID)
		}
		if x+1 > layout.Columns {
			layout.Columns = x + 1
		}
	}

	colors := assignColors(segmentEnds, palette)
	for y, n := range ordered {
		x := column[n.ID]
		layout.Nodes = append(layout.Nodes, Placement{ID: n.ID, X: x, Y: y, Color: colors[x]})
	}
	return layout
}

// assignColors keys each column by its sorted segment-ending ids so the same
// history always yields the same colors, whatever order columns were opened in.
func assignColors(segmentEnds map[int][]string, palette []string) map[int]string {
	type lane struct {
		column int
		key    string
	}
	lanes := make([]lane, 0, len(segmentEnds))
	for column, ids := range segmentEnds {
		sorted := append([]string(nil), ids...)
		sort.Strings(sorted)
		lanes = append(lanes, lane{column: column, key: strings.Join(sorted, "\x00")})
	}
	sort.Slice(lanes, func(i, j int) bool {
		if lanes[i].key != lanes[j].key {
			return lanes[i].key < lanes[j].key
		}
		return lanes[i].column < lanes[j].column
	})

	colors := make(map[int]string, len(lanes))
	for i, l := range lanes {
		colors[l.column] = palette[i%len(palette)]
	}
	return colors
}

func lowestFree(lanes []string) int {
	for i, expected := range lanes {
		if expected == "" {
			return i
		}
	}
	return len(lanes)
}

func indexOf(lanes []string, id string) int {
	for i, expected := range lanes {
		if expected == id {
			return i
		}
	}
	return -1
}

func sortedParents(parents []string) []string {
	if len(parents) < 2 {
		return parents
	}
	out := append([]string(nil), parents...)
	sort.Strings(out)
	return out
}
