package geometry

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracer is the geometry domain's dedicated OpenTelemetry tracer.
var tracer = otel.Tracer("geometry")

// PipelineState is the orchestrator's position in the request lifecycle.
type PipelineState string

const (
	StateReceived  PipelineState = "received"
	StateValidated PipelineState = "validated"
	StateComputed  PipelineState = "computed"
	StateEncoded   PipelineState = "encoded"
	StateCompleted PipelineState = "completed"
	StateRejected  PipelineState = "rejected"
	StateFailed    PipelineState = "failed"
)

// TableSet is one immutable snapshot of the static tables: the compatibility
// rules and the per-model instruction sets that were loaded together. A
// snapshot is never mutated after construction; a reload builds a fresh one.
type TableSet struct {
	Compatibility CompatibilityTable
	Instructions  InstructionTables
}

// TableSource supplies the static table snapshot a pipeline run works
// against. Snapshot must return both tables from a single read, so a caller
// never observes a compatibility table paired with instruction tables from a
// different reload; the config provider satisfies this with one atomic
// pointer swap.
type TableSource interface {
	Snapshot() *TableSet
	DefaultModel() string
}

// PipelineResult is the successful outcome of one orchestrated request.
type PipelineResult struct {
	State       PipelineState     `json:"state"`
	Rule        CompatibilityRule `json:"rule"`
	Calculation CalculationResult `json:"calculation"`
	Keylog      KeylogResult      `json:"keylog"`
}

// Pipeline sequences Validate -> Compute -> Encode over one immutable table
// snapshot. A pipeline is cheap to construct; build one per request so an
// in-flight request never observes a table reload.
type Pipeline struct {
	tables *TableSet
	state  PipelineState
}

// NewPipeline captures the source's current table snapshot with a single
// read; every stage of the run works against that one snapshot.
func NewPipeline(src TableSource) *Pipeline {
	return &Pipeline{
		tables: src.Snapshot(),
		state:  StateReceived,
	}
}

// State returns the pipeline's current lifecycle state.
func (p *Pipeline) State() PipelineState { return p.state }

// Run drives a request through the full pipeline. A validator failure leaves
// the pipeline Rejected; a fatal degenerate computation or a missing encoding
// rule leaves it Failed. Stages never run past the first failure.
func (p *Pipeline) Run(ctx context.Context, req OperationRequest) (*PipelineResult, error) {
	rule, err := p.Validate(ctx, req)
	if err != nil {
		p.state = StateRejected
		return nil, err
	}
	p.state = StateValidated

	result, err := p.compute(ctx, rule, req)
	if err != nil {
		p.state = StateFailed
		return nil, err
	}
	p.state = StateComputed

	keylog, err := p.encode(ctx, req, result)
	if err != nil {
		p.state = StateFailed
		return nil, err
	}
	p.state = StateEncoded

	p.state = StateCompleted
	return &PipelineResult{
		State:       StateCompleted,
		Rule:        rule,
		Calculation: result,
		Keylog:      keylog,
	}, nil
}

// Validate runs only the request and combination validation stage.
func (p *Pipeline) Validate(ctx context.Context, req OperationRequest) (CompatibilityRule, error) {
	_, span := tracer.Start(ctx, "geometry.validate",
		trace.WithAttributes(attribute.String("geometry.operation", string(req.Operation))),
	)
	defer span.End()

	if err := req.Validate(); err != nil {
		return spanFail(span, CompatibilityRule{}, err)
	}

	var kindB ShapeKind
	if req.ShapeB != nil {
		kindB = req.ShapeB.Kind
		// Dimension mismatches fail before any table lookup.
		if req.ShapeB.Dimension != req.ShapeA.Dimension {
			return spanFail(span, CompatibilityRule{}, &UnsupportedCombinationError{
				Operation: req.Operation,
				KindA:     req.ShapeA.Kind,
				KindB:     kindB,
				Detail:    "shapes have different dimensions",
			})
		}
	}

	rule, err := p.tables.Compatibility.Validate(req.Operation, req.ShapeA.Kind, kindB, req.ShapeA.Dimension)
	if err != nil {
		return spanFail(span, CompatibilityRule{}, err)
	}

	span.SetAttributes(attribute.String("geometry.formula_id", rule.FormulaID))
	span.SetStatus(codes.Ok, "")
	return rule, nil
}

func (p *Pipeline) compute(ctx context.Context, rule CompatibilityRule, req OperationRequest) (CalculationResult, error) {
	_, span := tracer.Start(ctx, "geometry.compute",
		trace.WithAttributes(attribute.String("geometry.formula_id", rule.FormulaID)),
	)
	defer span.End()

	result, err := Compute(rule.FormulaID, req.ShapeA, req.ShapeB)
	if err != nil {
		return spanFail(span, CalculationResult{}, err)
	}

	if result.Status == StatusDegenerate {
		return spanFail(span, CalculationResult{}, &DegenerateGeometryError{
			Reason:    result.Reason,
			FormulaID: rule.FormulaID,
		})
	}

	span.SetAttributes(attribute.Int("geometry.steps", len(result.Steps)))
	span.SetStatus(codes.Ok, "")
	return result, nil
}

func (p *Pipeline) encode(ctx context.Context, req OperationRequest, result CalculationResult) (KeylogResult, error) {
	_, span := tracer.Start(ctx, "geometry.encode",
		trace.WithAttributes(attribute.String("geometry.model", req.CalculatorModel)),
	)
	defer span.End()

	keylog, err := p.tables.Instructions.Encode(req.Operation, result, req.CalculatorModel)
	if err != nil {
		return spanFail(span, KeylogResult{}, err)
	}

	span.SetAttributes(attribute.Int("geometry.keylog_tokens", len(keylog.Tokens)))
	span.SetStatus(codes.Ok, "")
	return keylog, nil
}

func spanFail[T any](span trace.Span, zero T, err error) (T, error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return zero, err
}

// ErrorCode maps a pipeline error to its wire-level code. Unrecognized errors
// map to internal_error.
func ErrorCode(err error) string {
	var (
		invalid     *InvalidShapeError
		unsupported *UnsupportedCombinationError
		degen       *DegenerateGeometryError
		missing     *MissingEncodingRuleError
	)
	switch {
	case errors.As(err, &invalid):
		return "invalid_shape"
	case errors.As(err, &unsupported):
		return "unsupported_combination"
	case errors.As(err, &degen):
		return "degenerate_geometry"
	case errors.As(err, &missing):
		return "missing_encoding_rule"
	}
	return "internal_error"
}
