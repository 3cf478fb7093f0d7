// Package condition implements the scheduling rule condition language: a closed
// set of expression-tree nodes, their JSON wire format, a structural validator
// and a pure evaluator that turns a rule list into a BLOCK/ALLOW decision.
package condition

import (
	"bytes"
	"encoding/json"
	"fmt"

	appErrors "github.com/noah-isme/practice-rules-api/pkg/errors"
)

// Node type discriminators used on the wire.
const (
	TypeProperty      = "Property"
	TypeCount         = "Count"
	TypeTimeRangeFree = "TimeRangeFree"
	TypeAdjacent      = "Adjacent"
	TypeAnd           = "AND"
	TypeOr            = "OR"
	TypeNot           = "NOT"
)

// Entities a node can read from.
const (
	EntitySlot        = "Slot"
	EntityContext     = "Context"
	EntityAppointment = "Appointment"
)

// TimeRangeFree anchors.
const (
	AnchorSlotStart = "Slot.start"
	AnchorSlotEnd   = "Slot.end"
)

// Adjacent directions.
const (
	DirectionBefore = "before"
	DirectionAfter  = "after"
)

// FilterOverlaps is the reserved filter key requiring overlap with the slot.
const FilterOverlaps = "overlaps"

// Node is one element of a condition tree. The set of implementations is closed.
type Node interface {
	nodeType() string
}

// PropertyNode compares an attribute of the slot or the evaluation context.
type PropertyNode struct {
	Entity    string   `json:"entity"`
	Attr      string   `json:"attr"`
	Op        Operator `json:"op"`
	Value     any      `json:"value"`
	TimeStart string   `json:"timeStart,omitempty"`
	TimeEnd   string   `json:"timeEnd,omitempty"`
}

// CountNode counts matching appointments and compares the count to Value.
type CountNode struct {
	Entity    string         `json:"entity"`
	Filter    map[string]any `json:"filter"`
	Op        Operator       `json:"op"`
	Value     any            `json:"value"`
	TimeStart string         `json:"timeStart,omitempty"`
	TimeEnd   string         `json:"timeEnd,omitempty"`
}

// TimeRangeFreeNode holds when no appointment overlaps [anchor, anchor+Duration).
type TimeRangeFreeNode struct {
	Start          string `json:"start"`
	Duration       string `json:"duration"`
	TimeOfDayStart string `json:"timeOfDayStart,omitempty"`
	TimeEnd        string `json:"timeEnd,omitempty"`
}

// AdjacentNode holds when a matching appointment touches the slot boundary.
type AdjacentNode struct {
	Entity    string         `json:"entity"`
	Filter    map[string]any `json:"filter"`
	Direction string         `json:"direction"`
	TimeStart string         `json:"timeStart,omitempty"`
	TimeEnd   string         `json:"timeEnd,omitempty"`
}

// AndNode is true when every child is true (vacuously true when empty).
type AndNode struct {
	Children []Node
}

// OrNode is true when any child is true (false when empty).
type OrNode struct {
	Children []Node
}

// NotNode negates its child.
type NotNode struct {
	Child Node
}

func (*PropertyNode) nodeType() string      { return TypeProperty }
func (*CountNode) nodeType() string         { return TypeCount }
func (*TimeRangeFreeNode) nodeType() string { return TypeTimeRangeFree }
func (*AdjacentNode) nodeType() string      { return TypeAdjacent }
func (*AndNode) nodeType() string           { return TypeAnd }
func (*OrNode) nodeType() string            { return TypeOr }
func (*NotNode) nodeType() string           { return TypeNot }

// Condition wraps a Node so it can be embedded in JSON documents.
type Condition struct {
	Node Node
}

// MarshalJSON implements json.Marshaler.
func (c Condition) MarshalJSON() ([]byte, error) {
	return Encode(c.Node)
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Condition) UnmarshalJSON(data []byte) error {
	node, err := Decode(data)
	if err != nil {
		return err
	}
	c.Node = node
	return nil
}

// Encode renders a node in its wire format.
func Encode(node Node) ([]byte, error) {
	switch n := node.(type) {
	case *PropertyNode:
		return marshal(struct {
			Type string `json:"type"`
			*PropertyNode
		}{TypeProperty, n})
	case *CountNode:
		return marshal(struct {
			Type string `json:"type"`
			*CountNode
		}{TypeCount, n})
	case *TimeRangeFreeNode:
		return marshal(struct {
			Type string `json:"type"`
			*TimeRangeFreeNode
		}{TypeTimeRangeFree, n})
	case *AdjacentNode:
		return marshal(struct {
			Type string `json:"type"`
			*AdjacentNode
		}{TypeAdjacent, n})
	case *AndNode:
		return encodeGroup(TypeAnd, n.Children)
	case *OrNode:
		return encodeGroup(TypeOr, n.Children)
	case *NotNode:
		child, err := Encode(n.Child)
		if err != nil {
			return nil, err
		}
		return marshal(struct {
			Type  string          `json:"type"`
			Child json.RawMessage `json:"child"`
		}{TypeNot, child})
	case nil:
		return nil, appErrors.Clone(appErrors.ErrInvalidConditionType, "condition node is nil")
	default:
		return nil, appErrors.Clone(appErrors.ErrInvalidConditionType, fmt.Sprintf("unsupported condition node %T", node))
	}
}

func encodeGroup(kind string, children []Node) ([]byte, error) {
	encoded := make([]json.RawMessage, 0, len(children))
	for _, child := range children {
		raw, err := Encode(child)
		if err != nil {
			return nil, err
		}
		encoded = append(encoded, raw)
	}
	return marshal(struct {
		Type     string            `json:"type"`
		Children []json.RawMessage `json:"children"`
	}{kind, encoded})
}

// Decode parses a node from its wire format. Numbers are kept as json.Number so
// that re-encoding reproduces the original text.
func Decode(data []byte) (Node, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := decodeJSON(data, &head); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid condition JSON")
	}

	switch head.Type {
	case TypeProperty:
		var n PropertyNode
		if err := decodeJSON(data, &n); err != nil {
			return nil, decodeFailure(head.Type, err)
		}
		return &n, nil
	case TypeCount:
		var n CountNode
		if err := decodeJSON(data, &n); err != nil {
			return nil, decodeFailure(head.Type, err)
		}
		return &n, nil
	case TypeTimeRangeFree:
		var n TimeRangeFreeNode
		if err := decodeJSON(data, &n); err != nil {
			return nil, decodeFailure(head.Type, err)
		}
		return &n, nil
	case TypeAdjacent:
		var n AdjacentNode
		if err := decodeJSON(data, &n); err != nil {
			return nil, decodeFailure(head.Type, err)
		}
		return &n, nil
	case TypeAnd, TypeOr:
		var group struct {
			Children []json.RawMessage `json:"children"`
		}
		if err := decodeJSON(data, &group); err != nil {
			return nil, decodeFailure(head.Type, err)
		}
		children := make([]Node, 0, len(group.Children))
		for _, raw := range group.Children {
			child, err := Decode(raw)
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}
		if head.Type == TypeAnd {
			return &AndNode{Children: children}, nil
		}
		return &OrNode{Children: children}, nil
	case TypeNot:
		var not struct {
			Child json.RawMessage `json:"child"`
		}
		if err := decodeJSON(data, &not); err != nil {
			return nil, decodeFailure(head.Type, err)
		}
		if len(not.Child) == 0 || bytes.Equal(not.Child, []byte("null")) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "NOT condition requires a child")
		}
		child, err := Decode(not.Child)
		if err != nil {
			return nil, err
		}
		return &NotNode{Child: child}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrInvalidConditionType, fmt.Sprintf("unknown condition type %q", head.Type))
	}
}

func decodeFailure(kind string, err error) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, fmt.Sprintf("invalid %s condition", kind))
}

// marshal encodes without HTML escaping so operators such as ">=" survive verbatim.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func decodeJSON(data []byte, dest any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(dest)
}
