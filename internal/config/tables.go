package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"github.com/singed2905/api/internal/geometry"
)

//go:embed defaults/compatibility.yaml
var defaultCompatibility []byte

//go:embed defaults/instructions.yaml
var defaultInstructions []byte

// Tables is one immutable snapshot of the static configuration the geometry
// core reads. Snapshots are never mutated after construction; reload builds a
// fresh one and swaps the provider's pointer.
type Tables = geometry.TableSet

// LoadTables builds a table snapshot. With an empty dir the embedded defaults
// are used; otherwise compatibility.yaml and instructions.yaml must both
// exist in dir and parse. A missing or malformed explicit table is an error —
// startup fails rather than serving requests against a partial table set.
func LoadTables(dir string) (*Tables, error) {
	compatSrc, instrSrc := defaultCompatibility, defaultInstructions

	if dir != "" {
		var err error
		compatSrc, err = os.ReadFile(filepath.Join(dir, "compatibility.yaml"))
		if err != nil {
			return nil, fmt.Errorf("read compatibility table: %w", err)
		}
		instrSrc, err = os.ReadFile(filepath.Join(dir, "instructions.yaml"))
		if err != nil {
			return nil, fmt.Errorf("read instruction tables: %w", err)
		}
	}

	var t Tables
	if err := yaml.Unmarshal(compatSrc, &t.Compatibility); err != nil {
		return nil, fmt.Errorf("parse compatibility table: %w", err)
	}
	if err := yaml.Unmarshal(instrSrc, &t.Instructions); err != nil {
		return nil, fmt.Errorf("parse instruction tables: %w", err)
	}

	if err := validateTables(&t); err != nil {
		return nil, err
	}
	return &t, nil
}

func validateTables(t *Tables) error {
	if len(t.Compatibility.Rules) == 0 {
		return fmt.Errorf("compatibility table has no rules")
	}
	for _, r := range t.Compatibility.Rules {
		if !geometry.KnownFormula(r.FormulaID) {
			return fmt.Errorf("rule %s/%s references unknown formula %q", r.Operation, r.KindA, r.FormulaID)
		}
		if r.Operation.Binary() != (r.KindB != "") {
			return fmt.Errorf("rule %s/%s: kind_b arity does not match the operation", r.Operation, r.KindA)
		}
	}
	if len(t.Instructions.Models) == 0 {
		return fmt.Errorf("instruction tables define no calculator models")
	}
	for id, set := range t.Instructions.Models {
		for name, template := range set.Templates {
			for i, slot := range template {
				if err := slot.Validate(); err != nil {
					return fmt.Errorf("model %s, template %s, slot %d: %w", id, name, i+1, err)
				}
			}
		}
	}
	return nil
}

// Provider hands out the current table snapshot. Reload swaps one atomic
// pointer; requests that already captured a snapshot keep it, new requests
// observe the new tables. No lock is held on the read path.
type Provider struct {
	dir          string
	defaultModel string
	current      atomic.Pointer[Tables]
}

// NewProvider loads the initial snapshot and verifies the default model has
// an instruction set.
func NewProvider(dir, defaultModel string) (*Provider, error) {
	t, err := LoadTables(dir)
	if err != nil {
		return nil, err
	}
	if _, ok := t.Instructions.Models[defaultModel]; !ok {
		return nil, fmt.Errorf("default calculator model %q has no instruction set", defaultModel)
	}

	p := &Provider{dir: dir, defaultModel: defaultModel}
	p.current.Store(t)
	return p, nil
}

// Reload rebuilds the snapshot from disk and swaps it in. On failure the
// previous snapshot stays in effect.
func (p *Provider) Reload() error {
	t, err := LoadTables(p.dir)
	if err != nil {
		return err
	}
	if _, ok := t.Instructions.Models[p.defaultModel]; !ok {
		return fmt.Errorf("default calculator model %q has no instruction set", p.defaultModel)
	}
	p.current.Store(t)
	return nil
}

// Snapshot implements geometry.TableSource: the current immutable table set,
// read with a single atomic load so callers never pair tables from two
// different reloads.
func (p *Provider) Snapshot() *Tables { return p.current.Load() }

// DefaultModel implements geometry.TableSource.
func (p *Provider) DefaultModel() string { return p.defaultModel }
