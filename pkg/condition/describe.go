package condition

import (
	"fmt"
	"sort"
	"strings"
)

// Describe renders node as a compact single-line expression for listings and
// exports, e.g. `Slot.type = "flu-shot" AND COUNT(Appointment{doctor="d1"}) >= 3`.
func Describe(node Node) string {
	switch n := node.(type) {
	case *PropertyNode:
		return fmt.Sprintf("%s.%s %s %s", n.Entity, n.Attr, n.Op, literal(n.Value)) + scope(n.TimeStart, n.TimeEnd)
	case *CountNode:
		return fmt.Sprintf("COUNT(%s%s) %s %s", n.Entity, describeFilter(n.Filter), n.Op, literal(n.Value)) + scope(n.TimeStart, n.TimeEnd)
	case *TimeRangeFreeNode:
		return fmt.Sprintf("FREE(%s +%s)", n.Start, n.Duration) + scope(n.TimeOfDayStart, n.TimeEnd)
	case *AdjacentNode:
		return fmt.Sprintf("ADJACENT %s %s%s", n.Direction, n.Entity, describeFilter(n.Filter)) + scope(n.TimeStart, n.TimeEnd)
	case *AndNode:
		return describeGroup("AND", "TRUE", n.Children)
	case *OrNode:
		return describeGroup("OR", "FALSE", n.Children)
	case *NotNode:
		return "NOT " + wrap(n.Child)
	case nil:
		return "<empty>"
	}
	return fmt.Sprintf("<%T>", node)
}

func describeGroup(op, empty string, children []Node) string {
	if len(children) == 0 {
		return empty
	}
	parts := make([]string, len(children))
	for i, child := range children {
		parts[i] = wrap(child)
	}
	return strings.Join(parts, " "+op+" ")
}

// wrap parenthesises composite children so precedence stays unambiguous.
func wrap(node Node) string {
	switch n := node.(type) {
	case *AndNode:
		if len(n.Children) > 1 {
			return "(" + Describe(n) + ")"
		}
	case *OrNode:
		if len(n.Children) > 1 {
			return "(" + Describe(n) + ")"
		}
	}
	return Describe(node)
}

func describeFilter(filter map[string]any) string {
	if len(filter) == 0 {
		return ""
	}
	keys := make([]string, 0, len(filter))
	for key := range filter {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		if key == FilterOverlaps {
			if flag, ok := filter[key].(bool); ok && flag {
				parts = append(parts, FilterOverlaps)
			}
			continue
		}
		parts = append(parts, key+"="+literal(filter[key]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func literal(value any) string {
	switch v := value.(type) {
	case string:
		return fmt.Sprintf("%q", v)
	case nil:
		return "null"
	}
	if items, ok := asList(value); ok {
		parts := make([]string, len(items))
		for i, item := range items {
			parts[i] = literal(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return stringify(value)
}

func scope(start, end string) string {
	if start == "" && end == "" {
		return ""
	}
	return fmt.Sprintf(" @%s-%s", start, end)
}
