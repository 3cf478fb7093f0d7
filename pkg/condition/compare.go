package condition

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	appErrors "github.com/noah-isme/practice-rules-api/pkg/errors"
)

// Operator is a comparison operator.
type Operator string

// Supported operators.
const (
	OpEqual        Operator = "="
	OpNotEqual     Operator = "!="
	OpLess         Operator = "<"
	OpGreater      Operator = ">"
	OpLessEqual    Operator = "<="
	OpGreaterEqual Operator = ">="
	OpIn           Operator = "IN"
	OpNotIn        Operator = "NOT_IN"
)

// Valid reports whether op belongs to the fixed operator set.
func (op Operator) Valid() bool {
	switch op {
	case OpEqual, OpNotEqual, OpLess, OpGreater, OpLessEqual, OpGreaterEqual, OpIn, OpNotIn:
		return true
	}
	return false
}

// ComparisonError describes operands that cannot be compared with an operator.
type ComparisonError struct {
	Operator  Operator `json:"operator"`
	Left      any      `json:"left"`
	Right     any      `json:"right"`
	LeftType  string   `json:"leftType"`
	RightType string   `json:"rightType"`
	Reason    string   `json:"reason"`
}

// Error implements the error interface.
func (e *ComparisonError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("cannot apply %s to %v (%s) and %v (%s): %s", e.Operator, e.Left, e.LeftType, e.Right, e.RightType, e.Reason)
}

// Compare applies op to left and right.
func Compare(left any, op Operator, right any) (bool, error) {
	switch op {
	case OpEqual:
		return valuesEqual(left, right), nil
	case OpNotEqual:
		return !valuesEqual(left, right), nil
	case OpLess, OpGreater, OpLessEqual, OpGreaterEqual:
		l, lok := toNumber(left)
		r, rok := toNumber(right)
		if !lok || !rok {
			return false, typeMismatch(op, left, right, "operands must be numbers, ISO datetimes or HH:MM[:SS] times")
		}
		switch op {
		case OpLess:
			return l < r, nil
		case OpGreater:
			return l > r, nil
		case OpLessEqual:
			return l <= r, nil
		default:
			return l >= r, nil
		}
	case OpIn, OpNotIn:
		items, ok := asList(right)
		if !ok {
			return false, typeMismatch(op, left, right, "right operand must be an array")
		}
		needle := stringify(left)
		found := false
		for _, item := range items {
			if stringify(item) == needle {
				found = true
				break
			}
		}
		if op == OpIn {
			return found, nil
		}
		return !found, nil
	default:
		return false, appErrors.Clone(appErrors.ErrUnknownOperator, fmt.Sprintf("unknown operator %q", op))
	}
}

func typeMismatch(op Operator, left, right any, reason string) error {
	cause := &ComparisonError{
		Operator:  op,
		Left:      left,
		Right:     right,
		LeftType:  typeName(left),
		RightType: typeName(right),
		Reason:    reason,
	}
	return appErrors.Wrap(cause, appErrors.ErrTypeMismatch.Code, appErrors.ErrTypeMismatch.Status, fmt.Sprintf("type mismatch for operator %s", op))
}

// toNumber tries, in order: plain number, ISO datetime (Unix ms), HH:MM[:SS] (minutes).
func toNumber(value any) (float64, bool) {
	if f, ok := numeric(value); ok {
		return f, true
	}
	text, ok := value.(string)
	if !ok {
		return 0, false
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0, false
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil && !math.IsNaN(f) {
		return f, true
	}
	if ts, err := ParseDateTime(trimmed); err == nil {
		return float64(ts.UnixMilli()), true
	}
	return clockMinutes(trimmed)
}

// numeric converts Go and JSON number representations to float64.
func numeric(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

// canonical rewrites numbers to float64 and slices/maps to []any/map[string]any
// so structurally equal values compare equal regardless of their Go types.
func canonical(value any) any {
	if f, ok := numeric(value); ok {
		return f
	}
	switch v := value.(type) {
	case nil, string, bool:
		return v
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = canonical(item)
		}
		return out
	}
	if items, ok := asList(value); ok {
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = canonical(item)
		}
		return out
	}
	return value
}

func valuesEqual(left, right any) bool {
	return reflect.DeepEqual(canonical(left), canonical(right))
}

func asList(value any) ([]any, bool) {
	if list, ok := value.([]any); ok {
		return list, true
	}
	rv := reflect.ValueOf(value)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, false
	}
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return v
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	}
	if f, ok := numeric(value); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprint(value)
}

func typeName(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number:
		return "number"
	}
	if _, ok := numeric(value); ok {
		return "number"
	}
	if _, ok := asList(value); ok {
		return "array"
	}
	if _, ok := value.(map[string]any); ok {
		return "object"
	}
	return fmt.Sprintf("%T", value)
}
