package condition

import (
	"encoding/json"
	"fmt"
)

// Validate checks untyped condition JSON and returns every structural problem as
// a path-qualified message such as "root.children[1]: missing 'op' field for
// Property". An empty result means Decode will succeed and the tree is well formed.
func Validate(raw []byte) []string {
	var doc any
	if err := decodeJSON(raw, &doc); err != nil {
		return []string{fmt.Sprintf("root: invalid JSON: %v", err)}
	}
	v := &validator{}
	v.node("root", doc)
	return v.problems
}

type validator struct {
	problems []string
}

func (v *validator) addf(path, format string, args ...any) {
	v.problems = append(v.problems, path+": "+fmt.Sprintf(format, args...))
}

func (v *validator) node(path string, value any) {
	obj, ok := value.(map[string]any)
	if !ok {
		v.addf(path, "condition must be an object")
		return
	}
	kind, ok := obj["type"].(string)
	if !ok {
		v.addf(path, "missing 'type' field")
		return
	}

	switch kind {
	case TypeProperty:
		v.entity(path, obj, kind, EntitySlot, EntityContext)
		v.requiredString(path, obj, "attr", kind)
		v.operator(path, obj, kind)
		v.timeScope(path, obj, "timeStart", "timeEnd")
	case TypeCount:
		v.entity(path, obj, kind, EntityAppointment)
		v.filter(path, obj, kind)
		v.operator(path, obj, kind)
		v.timeScope(path, obj, "timeStart", "timeEnd")
	case TypeTimeRangeFree:
		if start, ok := v.requiredString(path, obj, "start", kind); ok && start != AnchorSlotStart && start != AnchorSlotEnd {
			v.addf(path, "'start' must be %s or %s for %s", AnchorSlotStart, AnchorSlotEnd, kind)
		}
		if duration, ok := v.requiredString(path, obj, "duration", kind); ok {
			if _, err := ParseDuration(duration); err != nil {
				v.addf(path, "invalid 'duration' %q for %s", duration, kind)
			}
		}
		v.timeScope(path, obj, "timeOfDayStart", "timeEnd")
	case TypeAdjacent:
		v.entity(path, obj, kind, EntityAppointment)
		v.filter(path, obj, kind)
		if direction, ok := v.requiredString(path, obj, "direction", kind); ok && direction != DirectionBefore && direction != DirectionAfter {
			v.addf(path, "'direction' must be %s or %s for %s", DirectionBefore, DirectionAfter, kind)
		}
		v.timeScope(path, obj, "timeStart", "timeEnd")
	case TypeAnd, TypeOr:
		children, present := obj["children"]
		if !present {
			v.addf(path, "missing 'children' field for %s", kind)
			return
		}
		list, ok := children.([]any)
		if !ok {
			v.addf(path, "'children' must be an array for %s", kind)
			return
		}
		for i, child := range list {
			v.node(fmt.Sprintf("%s.children[%d]", path, i), child)
		}
	case TypeNot:
		child, present := obj["child"]
		if !present || child == nil {
			v.addf(path, "missing 'child' field for %s", kind)
			return
		}
		v.node(path+".child", child)
	default:
		v.addf(path, "unknown condition type %q", kind)
	}
}

func (v *validator) requiredString(path string, obj map[string]any, field, kind string) (string, bool) {
	raw, present := obj[field]
	if !present {
		v.addf(path, "missing '%s' field for %s", field, kind)
		return "", false
	}
	text, ok := raw.(string)
	if !ok || text == "" {
		v.addf(path, "'%s' must be a non-empty string for %s", field, kind)
		return "", false
	}
	return text, true
}

func (v *validator) entity(path string, obj map[string]any, kind string, allowed ...string) {
	entity, ok := v.requiredString(path, obj, "entity", kind)
	if !ok {
		return
	}
	for _, candidate := range allowed {
		if entity == candidate {
			return
		}
	}
	v.addf(path, "invalid 'entity' %q for %s (allowed: %v)", entity, kind, allowed)
}

func (v *validator) operator(path string, obj map[string]any, kind string) {
	op, ok := v.requiredString(path, obj, "op", kind)
	if _, present := obj["value"]; !present {
		v.addf(path, "missing 'value' field for %s", kind)
	}
	if !ok {
		return
	}
	operator := Operator(op)
	if !operator.Valid() {
		v.addf(path, "unknown operator %q for %s", op, kind)
		return
	}
	if operator == OpIn || operator == OpNotIn {
		if _, isList := obj["value"].([]any); !isList {
			v.addf(path, "'value' must be an array for operator %s", op)
		}
	}
	if kind == TypeCount {
		switch operator {
		case OpIn, OpNotIn:
		default:
			if _, isNumber := obj["value"].(json.Number); !isNumber {
				v.addf(path, "'value' must be a number for %s", kind)
			}
		}
	}
}

func (v *validator) filter(path string, obj map[string]any, kind string) {
	raw, present := obj["filter"]
	if !present {
		v.addf(path, "missing 'filter' field for %s", kind)
		return
	}
	filter, ok := raw.(map[string]any)
	if !ok {
		v.addf(path, "'filter' must be an object for %s", kind)
		return
	}
	if overlaps, present := filter[FilterOverlaps]; present {
		if _, ok := overlaps.(bool); !ok {
			v.addf(path, "'filter.%s' must be a boolean", FilterOverlaps)
		}
	}
}

func (v *validator) timeScope(path string, obj map[string]any, startField, endField string) {
	for _, field := range []string{startField, endField} {
		raw, present := obj[field]
		if !present {
			continue
		}
		text, ok := raw.(string)
		if !ok {
			v.addf(path, "'%s' must be an HH:MM string", field)
			continue
		}
		if _, err := ParseTimeOfDay(text); err != nil {
			v.addf(path, "invalid '%s' %q (expected HH:MM)", field, text)
		}
	}
}
