package condition

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/practice-rules-api/pkg/errors"
)

func TestConditionRoundTripIsExact(t *testing.T) {
	docs := []string{
		`{"type":"Property","entity":"Slot","attr":"type","op":"=","value":"flu-shot"}`,
		`{"type":"Property","entity":"Context","attr":"age","op":">=","value":18.50,"timeStart":"22:00","timeEnd":"02:00"}`,
		`{"type":"Count","entity":"Appointment","filter":{"doctor":"d1","overlaps":true},"op":">=","value":3}`,
		`{"type":"TimeRangeFree","start":"Slot.end","duration":"1h30min","timeOfDayStart":"08:00","timeEnd":"12:00"}`,
		`{"type":"Adjacent","entity":"Appointment","filter":{"type":"surgery"},"direction":"before"}`,
		`{"type":"AND","children":[]}`,
		`{"type":"OR","children":[{"type":"NOT","child":{"type":"AND","children":[]}},{"type":"Property","entity":"Slot","attr":"duration","op":"IN","value":[15,30]}]}`,
	}
	for _, doc := range docs {
		var cond Condition
		require.NoError(t, json.Unmarshal([]byte(doc), &cond), doc)
		encoded, err := Encode(cond.Node)
		require.NoError(t, err, doc)
		assert.Equal(t, doc, string(encoded))

		wrapped, err := json.Marshal(cond)
		require.NoError(t, err, doc)
		assert.JSONEq(t, doc, string(wrapped))
	}
}

func TestDecodeBuildsTypedNodes(t *testing.T) {
	node, err := Decode([]byte(`{"type":"NOT","child":{"type":"Count","entity":"Appointment","filter":{},"op":"<","value":2,"timeStart":"08:00"}}`))
	require.NoError(t, err)

	not, ok := node.(*NotNode)
	require.True(t, ok)
	count, ok := not.Child.(*CountNode)
	require.True(t, ok)
	assert.Equal(t, OpLess, count.Op)
	assert.Equal(t, json.Number("2"), count.Value)
	assert.Equal(t, "08:00", count.TimeStart)
	assert.Empty(t, count.TimeEnd)
}

func TestDecodeRejectsUnknownType(t *testing.T) {
	_, err := Decode([]byte(`{"type":"XOR","children":[]}`))
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidConditionType.Code))

	_, err = Decode([]byte(`{"type":"AND","children":[{"type":"Maybe"}]}`))
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidConditionType.Code))

	_, err = Decode([]byte(`{"type":"NOT"}`))
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
}

func TestEncodeRejectsNilNode(t *testing.T) {
	_, err := Encode(nil)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidConditionType.Code))

	_, err = Encode(&AndNode{Children: []Node{nil}})
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidConditionType.Code))
}
