package condition

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateAcceptsWellFormedTree(t *testing.T) {
	doc := `{"type":"AND","children":[
		{"type":"Property","entity":"Slot","attr":"type","op":"IN","value":["checkup","flu-shot"],"timeStart":"08:00","timeEnd":"12:00"},
		{"type":"Count","entity":"Appointment","filter":{"overlaps":true},"op":"<","value":3},
		{"type":"NOT","child":{"type":"TimeRangeFree","start":"Slot.start","duration":"1h30min"}},
		{"type":"Adjacent","entity":"Appointment","filter":{"doctor":"d1"},"direction":"after"}
	]}`
	assert.Empty(t, Validate([]byte(doc)))
}

func TestValidateReportsEveryProblemWithPath(t *testing.T) {
	doc := `{"type":"AND","children":[
		{"type":"Property","entity":"Slot","attr":"type","op":"=","value":"x"},
		{"type":"Property","entity":"Slot","attr":"type","value":"x"},
		{"type":"OR","children":[{"type":"Count","entity":"Slot","filter":{},"op":"~","value":1}]},
		{"type":"NOT","child":{"type":"TimeRangeFree","start":"Slot.middle","duration":"soon","timeEnd":"25:00"}},
		{"type":"Adjacent","entity":"Appointment","direction":"sideways"},
		{"type":"Property","entity":"Context","attr":"age","op":"IN","value":5},
		{"type":"Mystery"}
	]}`
	problems := Validate([]byte(doc))

	assert.Contains(t, problems, "root.children[1]: missing 'op' field for Property")
	assert.Contains(t, problems, `root.children[2].children[0]: invalid 'entity' "Slot" for Count (allowed: [Appointment])`)
	assert.Contains(t, problems, `root.children[2].children[0]: unknown operator "~" for Count`)
	assert.Contains(t, problems, "root.children[3].child: 'start' must be Slot.start or Slot.end for TimeRangeFree")
	assert.Contains(t, problems, `root.children[3].child: invalid 'duration' "soon" for TimeRangeFree`)
	assert.Contains(t, problems, `root.children[3].child: invalid 'timeEnd' "25:00" (expected HH:MM)`)
	assert.Contains(t, problems, "root.children[4]: missing 'filter' field for Adjacent")
	assert.Contains(t, problems, "root.children[4]: 'direction' must be before or after for Adjacent")
	assert.Contains(t, problems, "root.children[5]: 'value' must be an array for operator IN")
	assert.Contains(t, problems, `root.children[6]: unknown condition type "Mystery"`)
	assert.Len(t, problems, 10)
}

func TestValidateRejectsNonObjects(t *testing.T) {
	assert.Equal(t, []string{"root: condition must be an object"}, Validate([]byte(`[]`)))
	assert.Equal(t, []string{"root: missing 'type' field"}, Validate([]byte(`{}`)))
	assert.Len(t, Validate([]byte(`{"type":`)), 1)
	assert.Equal(t, []string{"root: missing 'children' field for OR"}, Validate([]byte(`{"type":"OR"}`)))
	assert.Equal(t, []string{"root: missing 'child' field for NOT"}, Validate([]byte(`{"type":"NOT","child":null}`)))
}
