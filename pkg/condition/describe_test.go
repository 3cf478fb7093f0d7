package condition

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribe(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "property with scope",
			raw:  `{"type":"Property","entity":"Slot","attr":"type","op":"=","value":"flu-shot","timeStart":"22:00","timeEnd":"02:00"}`,
			want: `Slot.type = "flu-shot" @22:00-02:00`,
		},
		{
			name: "count with sorted filter",
			raw:  `{"type":"Count","entity":"Appointment","filter":{"overlaps":true,"doctor":"d1"},"op":">=","value":3}`,
			want: `COUNT(Appointment{doctor="d1", overlaps}) >= 3`,
		},
		{
			name: "in list",
			raw:  `{"type":"Property","entity":"Context","attr":"weekday","op":"IN","value":["sat","sun"]}`,
			want: `Context.weekday IN ["sat", "sun"]`,
		},
		{
			name: "nested groups",
			raw: `{"type":"AND","children":[
				{"type":"TimeRangeFree","start":"Slot.end","duration":"30min"},
				{"type":"NOT","child":{"type":"OR","children":[
					{"type":"Adjacent","entity":"Appointment","filter":{"type":"surgery"},"direction":"before"},
					{"type":"AND","children":[]}
				]}}
			]}`,
			want: `FREE(Slot.end +30min) AND NOT (ADJACENT before Appointment{type="surgery"} OR TRUE)`,
		},
		{
			name: "empty or",
			raw:  `{"type":"OR","children":[]}`,
			want: "FALSE",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var cond Condition
			require.NoError(t, json.Unmarshal([]byte(tc.raw), &cond))
			assert.Equal(t, tc.want, Describe(cond.Node))
		})
	}
}
