package condition

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/practice-rules-api/pkg/errors"
)

func TestCompareOrdering(t *testing.T) {
	cases := []struct {
		left  any
		op    Operator
		right any
		want  bool
	}{
		{3, OpGreaterEqual, json.Number("3"), true},
		{2, OpLess, 2.5, true},
		{"10", OpGreater, 9, true},
		{"2024-05-01T10:00:00Z", OpLess, "2024-05-01T10:30:00Z", true},
		{"2024-05-01T12:00:00+02:00", OpLessEqual, "2024-05-01T10:00:00Z", true},
		{"08:30", OpLess, "09:00", true},
		{"08:30:30", OpGreater, "08:30", true},
		{45, OpGreaterEqual, "00:45", true},
	}
	for _, tc := range cases {
		got, err := Compare(tc.left, tc.op, tc.right)
		require.NoError(t, err, "%v %s %v", tc.left, tc.op, tc.right)
		assert.Equal(t, tc.want, got, "%v %s %v", tc.left, tc.op, tc.right)
	}
}

func TestCompareTypeMismatchCarriesOperands(t *testing.T) {
	_, err := Compare("flu-shot", OpGreater, 3)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrTypeMismatch.Code))

	var cmpErr *ComparisonError
	require.True(t, errors.As(err, &cmpErr))
	assert.Equal(t, OpGreater, cmpErr.Operator)
	assert.Equal(t, "flu-shot", cmpErr.Left)
	assert.Equal(t, "string", cmpErr.LeftType)
	assert.Equal(t, 3, cmpErr.Right)
	assert.Equal(t, "number", cmpErr.RightType)

	_, err = Compare(true, OpLess, 1)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrTypeMismatch.Code))
}

func TestCompareEquality(t *testing.T) {
	ok, err := Compare(30, OpEqual, json.Number("30"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Compare("30", OpEqual, 30)
	require.NoError(t, err)
	assert.False(t, ok, "strings are not coerced for equality")

	ok, err = Compare([]any{"a", json.Number("1")}, OpEqual, []string{"a", "1"})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = Compare(map[string]any{"n": 1}, OpEqual, map[string]any{"n": json.Number("1")})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Compare("checkup", OpNotEqual, "flu-shot")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCompareMembership(t *testing.T) {
	ok, err := Compare("flu-shot", OpIn, []any{"checkup", "flu-shot"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Compare(30, OpIn, []any{"30", "45"})
	require.NoError(t, err)
	assert.True(t, ok, "membership compares stringified values")

	ok, err = Compare("x", OpNotIn, []string{"a", "b"})
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = Compare("x", OpIn, "x,y")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrTypeMismatch.Code))
}

func TestCompareUnknownOperator(t *testing.T) {
	_, err := Compare(1, Operator("LIKE"), 1)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnknownOperator.Code))
}
