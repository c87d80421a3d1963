package geometry

import (
	"fmt"
	"sort"
	"strings"
)

// TemplateSlot is one position in a keystroke template. Exactly one field is
// set:
//
//	literal — a raw keystroke atom emitted as-is
//	symbol  — a symbolic token resolved through the model's symbol table
//	value   — a named numeric value from the calculation, rendered digit by digit
//	step    — a named intermediate step whose expression is rendered token by token
type TemplateSlot struct {
	Literal string `yaml:"literal,omitempty" json:"literal,omitempty"`
	Symbol  string `yaml:"symbol,omitempty" json:"symbol,omitempty"`
	Value   string `yaml:"value,omitempty" json:"value,omitempty"`
	Step    string `yaml:"step,omitempty" json:"step,omitempty"`
}

// Validate rejects a slot that sets no field or more than one. The table
// loader runs this at startup so a malformed template fails the load instead
// of silently dropping keystrokes at encode time.
func (s TemplateSlot) Validate() error {
	set := 0
	for _, f := range []string{s.Literal, s.Symbol, s.Value, s.Step} {
		if f != "" {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("template slot must set exactly one of literal, symbol, value, step (got %d)", set)
	}
	return nil
}

// InstructionSet is one calculator model's instruction table: the symbol map
// plus the per-formula keystroke templates. Model differences live entirely
// here; the encoder has no per-model branches.
type InstructionSet struct {
	Symbols   map[string]string         `yaml:"symbols" json:"symbols"`
	Templates map[string][]TemplateSlot `yaml:"templates" json:"templates"`
}

// InstructionTables holds the instruction sets of every supported model,
// keyed by model identifier. Loaded once at startup and treated as read-only.
type InstructionTables struct {
	Models map[string]InstructionSet `yaml:"models" json:"models"`
}

// ModelIDs returns the supported model identifiers, sorted.
func (t *InstructionTables) ModelIDs() []string {
	ids := make([]string, 0, len(t.Models))
	for id := range t.Models {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Encode translates a calculation into the keystroke sequence for one model.
// The template is looked up by the result's formula id, falling back to the
// operation name so a table may share one template across formulas. Encoding
// is a pure function of its inputs; identical inputs yield identical tokens.
func (t *InstructionTables) Encode(op Operation, result CalculationResult, model string) (KeylogResult, error) {
	set, ok := t.Models[model]
	if !ok {
		return KeylogResult{}, &MissingEncodingRuleError{Operation: op, Model: model}
	}

	template, ok := set.Templates[result.FormulaID]
	if !ok {
		template, ok = set.Templates[string(op)]
	}
	if !ok {
		return KeylogResult{}, &MissingEncodingRuleError{Operation: op, Model: model}
	}

	enc := encoder{set: set, op: op, model: model}
	for _, slot := range template {
		switch {
		case slot.Literal != "":
			enc.tokens = append(enc.tokens, slot.Literal)
		case slot.Symbol != "":
			if err := enc.emitSymbol(slot.Symbol); err != nil {
				return KeylogResult{}, err
			}
		case slot.Value != "":
			v, found := result.value(slot.Value)
			if !found {
				return KeylogResult{}, &MissingEncodingRuleError{Operation: op, Symbol: "value:" + slot.Value, Model: model}
			}
			if err := enc.emitExpression(fnum(v)); err != nil {
				return KeylogResult{}, err
			}
		case slot.Step != "":
			s, found := result.step(slot.Step)
			if !found {
				return KeylogResult{}, &MissingEncodingRuleError{Operation: op, Symbol: "step:" + slot.Step, Model: model}
			}
			if err := enc.emitExpression(s.Expression); err != nil {
				return KeylogResult{}, err
			}
		default:
			// The table loader rejects empty slots; reaching one here means
			// the tables bypassed validation.
			return KeylogResult{}, &MissingEncodingRuleError{Operation: op, Symbol: "empty slot", Model: model}
		}
	}

	return KeylogResult{Tokens: enc.tokens, Model: model}, nil
}

type encoder struct {
	set    InstructionSet
	op     Operation
	model  string
	tokens []string
}

func (e *encoder) emitSymbol(sym string) error {
	atom, ok := e.set.Symbols[sym]
	if !ok {
		return &MissingEncodingRuleError{Operation: e.op, Symbol: sym, Model: e.model}
	}
	e.tokens = append(e.tokens, atom)
	return nil
}

// emitExpression tokenizes a step expression and maps every token through the
// symbol table. Multi-character function names (sqrt, abs, pi, ...) match
// greedily and map to a single atom; every other character maps on its own.
// Whitespace separates tokens and produces no keystroke.
func (e *encoder) emitExpression(expr string) error {
	multi := e.multiCharSymbols()

	i := 0
	for i < len(expr) {
		if expr[i] == ' ' {
			i++
			continue
		}

		matched := false
		for _, sym := range multi {
			if strings.HasPrefix(expr[i:], sym) {
				if err := e.emitSymbol(sym); err != nil {
					return err
				}
				i += len(sym)
				matched = true
				break
			}
		}
		if matched {
			continue
		}

		if err := e.emitSymbol(string(expr[i])); err != nil {
			return err
		}
		i++
	}
	return nil
}

// multiCharSymbols returns the model's multi-character symbols, longest
// first, so greedy matching is deterministic.
func (e *encoder) multiCharSymbols() []string {
	var multi []string
	for sym := range e.set.Symbols {
		if len(sym) > 1 {
			multi = append(multi, sym)
		}
	}
	sort.Slice(multi, func(a, b int) bool {
		if len(multi[a]) != len(multi[b]) {
			return len(multi[a]) > len(multi[b])
		}
		return multi[a] < multi[b]
	})
	return multi
}
