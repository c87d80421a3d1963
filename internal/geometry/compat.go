package geometry

// CompatibilityRule declares one legal (operation, kinds, dimensions) tuple
// and the kernel formula it maps to. Rules are table data loaded at startup;
// the validator never special-cases a kind pairing in code.
type CompatibilityRule struct {
	Operation  Operation `yaml:"operation" json:"operation"`
	KindA      ShapeKind `yaml:"kind_a" json:"kind_a"`
	KindB      ShapeKind `yaml:"kind_b,omitempty" json:"kind_b,omitempty"`
	Dimensions []int     `yaml:"dimensions" json:"dimensions"`
	// Directional marks a rule that only matches (kind_a, kind_b) in the
	// declared order. Symmetric rules (the default) match both orderings.
	Directional bool   `yaml:"directional,omitempty" json:"directional,omitempty"`
	ResultKind  string `yaml:"result_kind" json:"result_kind"`
	FormulaID   string `yaml:"formula_id" json:"formula_id"`
}

func (r CompatibilityRule) allowsDimension(dim int) bool {
	for _, d := range r.Dimensions {
		if d == dim {
			return true
		}
	}
	return false
}

// CompatibilityTable is the immutable set of legal combinations. It is loaded
// once at startup (or swapped whole on reload) and never mutated.
type CompatibilityTable struct {
	Rules []CompatibilityRule `yaml:"rules" json:"rules"`
}

// Validate looks up the rule for the candidate combination. kindB is empty
// for unary operations. For binary operations both orderings of the kinds are
// tried unless the matching rule is marked directional.
func (t *CompatibilityTable) Validate(op Operation, kindA, kindB ShapeKind, dimension int) (CompatibilityRule, error) {
	for _, r := range t.Rules {
		if r.Operation != op || !r.allowsDimension(dimension) {
			continue
		}
		if r.KindA == kindA && r.KindB == kindB {
			return r, nil
		}
		if !r.Directional && r.KindA == kindB && r.KindB == kindA && kindB != "" {
			return r, nil
		}
	}
	return CompatibilityRule{}, &UnsupportedCombinationError{Operation: op, KindA: kindA, KindB: kindB}
}

// CompatibleKinds returns the kind pairings the table allows for an
// operation, in table order. For unary operations the second element of each
// pair is empty.
func (t *CompatibilityTable) CompatibleKinds(op Operation) [][2]ShapeKind {
	var pairs [][2]ShapeKind
	for _, r := range t.Rules {
		if r.Operation == op {
			pairs = append(pairs, [2]ShapeKind{r.KindA, r.KindB})
		}
	}
	return pairs
}
