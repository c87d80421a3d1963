package geometry

import "fmt"

// DegenerateReason names why a geometric operation has no unique answer.
type DegenerateReason string

const (
	ReasonParallel   DegenerateReason = "parallel"
	ReasonCoincident DegenerateReason = "coincident"
	ReasonZeroVector DegenerateReason = "zero_vector"
	ReasonSkew       DegenerateReason = "skew"
	ReasonDisjoint   DegenerateReason = "disjoint"
)

// InvalidShapeError reports a descriptor that violates its kind's parameter
// invariants, or a request with the wrong arity for its operation.
type InvalidShapeError struct {
	Kind   ShapeKind
	Detail string
}

func (e *InvalidShapeError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Kind, e.Detail)
}

// UnsupportedCombinationError reports an (operation, kinds, dimension) tuple
// with no compatibility rule.
type UnsupportedCombinationError struct {
	Operation Operation
	KindA     ShapeKind
	KindB     ShapeKind // empty for unary operations
	Detail    string
}

func (e *UnsupportedCombinationError) Error() string {
	msg := fmt.Sprintf("unsupported combination: %s over %s", e.Operation, e.KindA)
	if e.KindB != "" {
		msg += fmt.Sprintf(" and %s", e.KindB)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// DegenerateGeometryError reports a well-formed input for which the requested
// operation has no unique well-defined answer.
type DegenerateGeometryError struct {
	Reason    DegenerateReason
	FormulaID string
}

func (e *DegenerateGeometryError) Error() string {
	return fmt.Sprintf("degenerate geometry in %s: %s", e.FormulaID, e.Reason)
}

// MissingEncodingRuleError reports incomplete instruction-table configuration:
// either no keystroke template for the pairing, or an unmapped symbol.
type MissingEncodingRuleError struct {
	Operation Operation
	Symbol    string // empty when the whole template is missing
	Model     string
}

func (e *MissingEncodingRuleError) Error() string {
	if e.Symbol != "" {
		return fmt.Sprintf("no keystroke mapping for symbol %q on model %s", e.Symbol, e.Model)
	}
	return fmt.Sprintf("no keystroke template for %s on model %s", e.Operation, e.Model)
}
