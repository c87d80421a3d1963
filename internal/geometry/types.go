package geometry

import "fmt"

// ShapeKind identifies one of the closed set of supported shapes.
type ShapeKind string

const (
	KindPoint  ShapeKind = "point"
	KindLine   ShapeKind = "line"
	KindPlane  ShapeKind = "plane"
	KindCircle ShapeKind = "circle"
	KindSphere ShapeKind = "sphere"
)

// ShapeKinds lists every supported kind in a stable order.
var ShapeKinds = []ShapeKind{KindPoint, KindLine, KindPlane, KindCircle, KindSphere}

// Operation identifies one of the closed set of supported operations.
type Operation string

const (
	OpDistance     Operation = "distance"
	OpIntersection Operation = "intersection"
	OpArea         Operation = "area"
	OpVolume       Operation = "volume"
	OpLineEquation Operation = "line_equation"
)

// Operations lists every supported operation in a stable order.
var Operations = []Operation{OpDistance, OpIntersection, OpArea, OpVolume, OpLineEquation}

// Binary reports whether the operation takes two shapes.
func (o Operation) Binary() bool {
	return o == OpDistance || o == OpIntersection
}

// Known reports whether the operation is part of the supported set.
func (o Operation) Known() bool {
	for _, op := range Operations {
		if o == op {
			return true
		}
	}
	return false
}

// ShapeDescriptor is an immutable symbolic description of a shape. The
// parameter layout is fixed per kind:
//
//	point:  coordinates (dimension values)
//	line:   point followed by direction vector (2 × dimension values)
//	plane:  coefficients a, b, c, d of ax+by+cz+d=0 (3D only)
//	circle: center x, y and radius (2D only)
//	sphere: center x, y, z and radius (3D only)
type ShapeDescriptor struct {
	Kind       ShapeKind `json:"kind" yaml:"kind"`
	Dimension  int       `json:"dimension" yaml:"dimension"`
	Parameters []float64 `json:"parameters" yaml:"parameters"`
}

// Validate checks the parameter count and semantics for the descriptor's kind.
func (s ShapeDescriptor) Validate() error {
	if s.Dimension != 2 && s.Dimension != 3 {
		return &InvalidShapeError{Kind: s.Kind, Detail: fmt.Sprintf("dimension must be 2 or 3, got %d", s.Dimension)}
	}

	switch s.Kind {
	case KindPoint:
		if len(s.Parameters) != s.Dimension {
			return &InvalidShapeError{Kind: s.Kind, Detail: fmt.Sprintf("point needs %d coordinates, got %d", s.Dimension, len(s.Parameters))}
		}
	case KindLine:
		if len(s.Parameters) != 2*s.Dimension {
			return &InvalidShapeError{Kind: s.Kind, Detail: fmt.Sprintf("line needs point and direction (%d values), got %d", 2*s.Dimension, len(s.Parameters))}
		}
	case KindPlane:
		if s.Dimension != 3 {
			return &InvalidShapeError{Kind: s.Kind, Detail: "plane is only defined in 3 dimensions"}
		}
		if len(s.Parameters) != 4 {
			return &InvalidShapeError{Kind: s.Kind, Detail: fmt.Sprintf("plane needs 4 coefficients, got %d", len(s.Parameters))}
		}
	case KindCircle:
		if s.Dimension != 2 {
			return &InvalidShapeError{Kind: s.Kind, Detail: "circle is only defined in 2 dimensions"}
		}
		if len(s.Parameters) != 3 {
			return &InvalidShapeError{Kind: s.Kind, Detail: fmt.Sprintf("circle needs center and radius (3 values), got %d", len(s.Parameters))}
		}
		if s.Parameters[2] <= 0 {
			return &InvalidShapeError{Kind: s.Kind, Detail: "radius must be > 0"}
		}
	case KindSphere:
		if s.Dimension != 3 {
			return &InvalidShapeError{Kind: s.Kind, Detail: "sphere is only defined in 3 dimensions"}
		}
		if len(s.Parameters) != 4 {
			return &InvalidShapeError{Kind: s.Kind, Detail: fmt.Sprintf("sphere needs center and radius (4 values), got %d", len(s.Parameters))}
		}
		if s.Parameters[3] <= 0 {
			return &InvalidShapeError{Kind: s.Kind, Detail: "radius must be > 0"}
		}
	default:
		return &InvalidShapeError{Kind: s.Kind, Detail: "unknown shape kind"}
	}

	return nil
}

// point returns the shape's anchor point embedded in 3D (z = 0 for 2D shapes).
func (s ShapeDescriptor) point() vec3 {
	switch s.Kind {
	case KindPoint, KindLine, KindCircle, KindSphere:
		v := vec3{}
		for i := 0; i < s.Dimension && i < len(s.Parameters); i++ {
			v[i] = s.Parameters[i]
		}
		return v
	}
	return vec3{}
}

// direction returns a line's direction vector embedded in 3D.
func (s ShapeDescriptor) direction() vec3 {
	v := vec3{}
	for i := 0; i < s.Dimension; i++ {
		v[i] = s.Parameters[s.Dimension+i]
	}
	return v
}

// normal returns a plane's normal vector.
func (s ShapeDescriptor) normal() vec3 {
	return vec3{s.Parameters[0], s.Parameters[1], s.Parameters[2]}
}

// offset returns a plane's constant coefficient d.
func (s ShapeDescriptor) offset() float64 {
	return s.Parameters[3]
}

// radius returns a circle's or sphere's radius.
func (s ShapeDescriptor) radius() float64 {
	return s.Parameters[len(s.Parameters)-1]
}

// OperationRequest is a single request to the pipeline.
type OperationRequest struct {
	Operation       Operation        `json:"operation" yaml:"operation"`
	ShapeA          ShapeDescriptor  `json:"shape_a" yaml:"shape_a"`
	ShapeB          *ShapeDescriptor `json:"shape_b,omitempty" yaml:"shape_b,omitempty"`
	CalculatorModel string           `json:"calculator_model" yaml:"calculator_model"`
}

// Validate checks arity and per-shape parameter invariants. shape_b must be
// present exactly for binary operations.
func (r OperationRequest) Validate() error {
	if !r.Operation.Known() {
		return &InvalidShapeError{Kind: r.ShapeA.Kind, Detail: fmt.Sprintf("unknown operation %q", r.Operation)}
	}
	if r.Operation.Binary() && r.ShapeB == nil {
		return &InvalidShapeError{Kind: r.ShapeA.Kind, Detail: fmt.Sprintf("%s is a binary operation: shape_b is required", r.Operation)}
	}
	if !r.Operation.Binary() && r.ShapeB != nil {
		return &InvalidShapeError{Kind: r.ShapeA.Kind, Detail: fmt.Sprintf("%s is a unary operation: shape_b must be absent", r.Operation)}
	}
	if err := r.ShapeA.Validate(); err != nil {
		return err
	}
	if r.ShapeB != nil {
		if err := r.ShapeB.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ResultStatus classifies a kernel computation.
type ResultStatus string

const (
	StatusOk         ResultStatus = "ok"
	StatusDegenerate ResultStatus = "degenerate"
)

// Step is one algebraic sub-result of a manual derivation. The expression
// uses the symbolic alphabet the encoder's instruction tables map to
// keystrokes (digits, + - * / ( ) ^ , = and the function names sqrt, abs, pi).
type Step struct {
	Name       string  `json:"name"`
	Expression string  `json:"expression"`
	Value      float64 `json:"value"`
}

// CalculationResult is the kernel's output for one formula evaluation.
type CalculationResult struct {
	FormulaID string             `json:"formula_id"`
	Values    map[string]float64 `json:"values"`
	Steps     []Step             `json:"steps"`
	Status    ResultStatus       `json:"status"`
	Reason    DegenerateReason   `json:"reason,omitempty"`
	Kind      string             `json:"result_kind"`
}

// value returns the named numeric value.
func (r CalculationResult) value(name string) (float64, bool) {
	v, ok := r.Values[name]
	return v, ok
}

// step returns the named intermediate step.
func (r CalculationResult) step(name string) (Step, bool) {
	for _, s := range r.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return Step{}, false
}

// KeylogResult is the ordered keystroke sequence reproducing a calculation on
// one calculator model. Concatenating Tokens in order yields the final keylog.
type KeylogResult struct {
	Tokens []string `json:"tokens"`
	Model  string   `json:"model"`
}

// String concatenates the keystroke atoms in press order.
func (k KeylogResult) String() string {
	out := ""
	for _, t := range k.Tokens {
		out += t
	}
	return out
}
