package geometry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticSource is a fixed table snapshot for pipeline tests.
type staticSource struct {
	tables *TableSet
}

func (s staticSource) Snapshot() *TableSet  { return s.tables }
func (s staticSource) DefaultModel() string { return "fx-test" }

func testSource() staticSource {
	compat := &CompatibilityTable{Rules: []CompatibilityRule{
		{
			Operation:  OpDistance,
			KindA:      KindPoint,
			KindB:      KindPoint,
			Dimensions: []int{2, 3},
			ResultKind: "scalar",
			FormulaID:  "point_point_distance",
		},
		{
			Operation:  OpIntersection,
			KindA:      KindLine,
			KindB:      KindLine,
			Dimensions: []int{2, 3},
			ResultKind: "point",
			FormulaID:  "line_line_intersection",
		},
		{
			Operation:  OpArea,
			KindA:      KindCircle,
			Dimensions: []int{2},
			ResultKind: "scalar",
			FormulaID:  "circle_area",
		},
	}}

	instr := testInstructionTables()
	set := instr.Models["fx-test"]
	set.Symbols["3"] = "[3]"
	set.Symbols["4"] = "[4]"
	set.Symbols["6"] = "[6]"
	set.Symbols["8"] = "[8]"
	set.Symbols["9"] = "[9]"
	set.Templates["point_point_distance"] = []TemplateSlot{
		{Step: "distance"},
		{Symbol: "="},
	}
	instr.Models["fx-test"] = set

	return staticSource{tables: &TableSet{Compatibility: *compat, Instructions: *instr}}
}

func distanceRequest() OperationRequest {
	return OperationRequest{
		Operation:       OpDistance,
		ShapeA:          point(3, 1, 2, 3),
		ShapeB:          &ShapeDescriptor{Kind: KindPoint, Dimension: 3, Parameters: []float64{4, 5, 6}},
		CalculatorModel: "fx-test",
	}
}

func TestPipelineRunCompletes(t *testing.T) {
	p := NewPipeline(testSource())
	assert.Equal(t, StateReceived, p.State())

	res, err := p.Run(context.Background(), distanceRequest())
	require.NoError(t, err)

	assert.Equal(t, StateCompleted, p.State())
	assert.Equal(t, StateCompleted, res.State)
	assert.Equal(t, "point_point_distance", res.Rule.FormulaID)
	assert.InDelta(t, 5.196152422706632, res.Calculation.Values["distance"], 1e-9)
	assert.Equal(t, []string{"[sqrt]", "[(]", "[2]", "[7]", "[)]", "[EXE]"}, res.Keylog.Tokens)
}

func TestPipelineRejectsInvalidArity(t *testing.T) {
	req := distanceRequest()
	req.ShapeB = nil

	p := NewPipeline(testSource())
	_, err := p.Run(context.Background(), req)

	var invalid *InvalidShapeError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, StateRejected, p.State())
	assert.Equal(t, "invalid_shape", ErrorCode(err))
}

func TestPipelineRejectsDimensionMismatchBeforeTableLookup(t *testing.T) {
	// The table would otherwise match point-point, so a rule hit here would
	// mean the dimension check ran too late.
	req := distanceRequest()
	req.ShapeB = &ShapeDescriptor{Kind: KindPoint, Dimension: 2, Parameters: []float64{4, 5}}

	p := NewPipeline(testSource())
	_, err := p.Run(context.Background(), req)

	var unsupported *UnsupportedCombinationError
	require.True(t, errors.As(err, &unsupported))
	assert.Contains(t, unsupported.Detail, "different dimensions")
	assert.Equal(t, StateRejected, p.State())
}

func TestPipelineRejectsUnsupportedCombination(t *testing.T) {
	req := OperationRequest{
		Operation:       OpDistance,
		ShapeA:          circle(0, 0, 5),
		ShapeB:          &ShapeDescriptor{Kind: KindCircle, Dimension: 2, Parameters: []float64{1, 1, 2}},
		CalculatorModel: "fx-test",
	}

	p := NewPipeline(testSource())
	_, err := p.Run(context.Background(), req)

	assert.Equal(t, "unsupported_combination", ErrorCode(err))
	assert.Equal(t, StateRejected, p.State())
}

func TestPipelineFailsOnDegenerateGeometry(t *testing.T) {
	req := OperationRequest{
		Operation:       OpIntersection,
		ShapeA:          line(3, 0, 0, 0, 1, 1, 0),
		ShapeB:          &ShapeDescriptor{Kind: KindLine, Dimension: 3, Parameters: []float64{0, 1, 0, 2, 2, 0}},
		CalculatorModel: "fx-test",
	}

	p := NewPipeline(testSource())
	_, err := p.Run(context.Background(), req)

	var degen *DegenerateGeometryError
	require.True(t, errors.As(err, &degen))
	assert.Equal(t, ReasonParallel, degen.Reason)
	assert.Equal(t, StateFailed, p.State())
	assert.Equal(t, "degenerate_geometry", ErrorCode(err))
}

func TestPipelineFailsOnMissingEncodingRule(t *testing.T) {
	req := distanceRequest()
	req.CalculatorModel = "fx-000"

	p := NewPipeline(testSource())
	_, err := p.Run(context.Background(), req)

	assert.Equal(t, "missing_encoding_rule", ErrorCode(err))
	assert.Equal(t, StateFailed, p.State())
}

func TestPipelineValidateOnly(t *testing.T) {
	p := NewPipeline(testSource())

	rule, err := p.Validate(context.Background(), distanceRequest())
	require.NoError(t, err)
	assert.Equal(t, "point_point_distance", rule.FormulaID)
}

func TestErrorCodeUnknownErrorIsInternal(t *testing.T) {
	assert.Equal(t, "internal_error", ErrorCode(errors.New("boom")))
}

// swappingSource serves one snapshot to the first Snapshot call and a
// different one to every later call, like a reload landing mid-request.
type swappingSource struct {
	first *TableSet
	rest  *TableSet
	calls int
}

func (s *swappingSource) Snapshot() *TableSet {
	s.calls++
	if s.calls == 1 {
		return s.first
	}
	return s.rest
}

func (s *swappingSource) DefaultModel() string { return "fx-test" }

func TestPipelineRunUsesSingleSnapshot(t *testing.T) {
	// The replacement snapshot drops the area rule and its template. A run
	// that validated against the old tables but encoded against the new ones
	// would fail with a missing template that neither snapshot alone produces.
	replacement := &TableSet{
		Compatibility: CompatibilityTable{Rules: []CompatibilityRule{{
			Operation:  OpVolume,
			KindA:      KindSphere,
			Dimensions: []int{3},
			ResultKind: "scalar",
			FormulaID:  "sphere_volume",
		}}},
		Instructions: InstructionTables{Models: map[string]InstructionSet{
			"fx-test": {
				Symbols:   map[string]string{"3": "[3]", "^": "[^]", "=": "[EXE]"},
				Templates: map[string][]TemplateSlot{"sphere_volume": {{Step: "radius_cubed"}, {Symbol: "="}}},
			},
		}},
	}

	src := &swappingSource{first: testSource().tables, rest: replacement}
	p := NewPipeline(src)

	req := OperationRequest{
		Operation:       OpArea,
		ShapeA:          circle(0, 0, 5),
		CalculatorModel: "fx-test",
	}
	res, err := p.Run(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, StateCompleted, res.State)
	assert.Equal(t, []string{"[pi]", "[x]", "[5]", "[^]", "[2]", "[EXE]"}, res.Keylog.Tokens)
	assert.Equal(t, 1, src.calls)
}
