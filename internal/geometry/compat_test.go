package geometry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCompatTable() *CompatibilityTable {
	return &CompatibilityTable{Rules: []CompatibilityRule{
		{
			Operation:  OpDistance,
			KindA:      KindPoint,
			KindB:      KindLine,
			Dimensions: []int{2, 3},
			ResultKind: "scalar",
			FormulaID:  "point_line_distance",
		},
		{
			Operation:   OpIntersection,
			KindA:       KindLine,
			KindB:       KindPlane,
			Dimensions:  []int{3},
			Directional: true,
			ResultKind:  "point",
			FormulaID:   "line_plane_intersection",
		},
		{
			Operation:  OpArea,
			KindA:      KindCircle,
			Dimensions: []int{2},
			ResultKind: "scalar",
			FormulaID:  "circle_area",
		},
	}}
}

func TestCompatibilityValidateSymmetricRuleMatchesBothOrderings(t *testing.T) {
	table := testCompatTable()

	fwd, err := table.Validate(OpDistance, KindPoint, KindLine, 3)
	require.NoError(t, err)
	rev, err := table.Validate(OpDistance, KindLine, KindPoint, 3)
	require.NoError(t, err)

	assert.Equal(t, fwd.FormulaID, rev.FormulaID)
	assert.Equal(t, "point_line_distance", fwd.FormulaID)
}

func TestCompatibilityValidateDirectionalRuleMatchesDeclaredOrderOnly(t *testing.T) {
	table := testCompatTable()

	_, err := table.Validate(OpIntersection, KindLine, KindPlane, 3)
	require.NoError(t, err)

	_, err = table.Validate(OpIntersection, KindPlane, KindLine, 3)
	var unsupported *UnsupportedCombinationError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, KindPlane, unsupported.KindA)
}

func TestCompatibilityValidateDimensionFiltering(t *testing.T) {
	table := testCompatTable()

	_, err := table.Validate(OpDistance, KindPoint, KindLine, 2)
	assert.NoError(t, err)

	_, err = table.Validate(OpIntersection, KindLine, KindPlane, 2)
	var unsupported *UnsupportedCombinationError
	assert.True(t, errors.As(err, &unsupported))
}

func TestCompatibilityValidateUnaryRule(t *testing.T) {
	table := testCompatTable()

	rule, err := table.Validate(OpArea, KindCircle, "", 2)
	require.NoError(t, err)
	assert.Equal(t, "circle_area", rule.FormulaID)

	// A unary rule never matches a binary lookup.
	_, err = table.Validate(OpArea, KindCircle, KindCircle, 2)
	assert.Error(t, err)
}

func TestCompatibilityValidateUnknownCombination(t *testing.T) {
	table := testCompatTable()

	_, err := table.Validate(OpDistance, KindSphere, KindSphere, 3)
	var unsupported *UnsupportedCombinationError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, OpDistance, unsupported.Operation)
}

func TestCompatibleKinds(t *testing.T) {
	table := testCompatTable()

	pairs := table.CompatibleKinds(OpDistance)
	require.Len(t, pairs, 1)
	assert.Equal(t, [2]ShapeKind{KindPoint, KindLine}, pairs[0])

	unary := table.CompatibleKinds(OpArea)
	require.Len(t, unary, 1)
	assert.Equal(t, ShapeKind(""), unary[0][1])

	assert.Empty(t, table.CompatibleKinds(OpVolume))
}

func TestCompatibilityTableFormulasAreKnown(t *testing.T) {
	for _, rule := range testCompatTable().Rules {
		assert.True(t, KnownFormula(rule.FormulaID), "formula %s", rule.FormulaID)
	}
}
