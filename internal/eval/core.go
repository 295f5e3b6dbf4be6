// Package eval defines the shared runtime types the evaluator's four
// stages (Fact Assembler, Rule Engine, Operation Executor, Flow Engine —
// spec §4.8-§4.12) all operate on: FactSet, VerdictSet, EntityStateMap,
// and Snapshot. These are built once per evaluation and never mutated
// after construction, except EntityStateMap, which a flow owns and
// mutates exclusively for its duration (spec §5).
package eval

import (
	"fmt"

	"github.com/tenor-lang/tenor/internal/decimal"
)

// Value holds one fact, verdict payload, or intermediate predicate result.
// The closed set of representations is bool, int64, decimal.Decimal,
// decimal.Money, string, []Value (List), and map[string]Value (Record) —
// mirroring the closed primitive/composite type grammar of spec §3.
type Value interface{}

// FactSet is the immutable, type-checked input fact map the Fact
// Assembler produces (spec §4.8).
type FactSet struct {
	values map[string]Value
}

func NewFactSet(values map[string]Value) *FactSet {
	cp := make(map[string]Value, len(values))
	for k, v := range values {
		cp[k] = v
	}
	return &FactSet{values: cp}
}

func (fs *FactSet) Get(factID string) (Value, bool) {
	v, ok := fs.values[factID]
	return v, ok
}

// WithOverride returns a FactSet sharing fs's values except id, which is
// bound to v — used to bind a quantifier variable for the duration of one
// predicate body evaluation without mutating the outer snapshot's facts.
func (fs *FactSet) WithOverride(id string, v Value) *FactSet {
	cp := make(map[string]Value, len(fs.values)+1)
	for k, val := range fs.values {
		cp[k] = val
	}
	cp[id] = v
	return &FactSet{values: cp}
}

// Verdict is one rule firing's output, with full derivation provenance
// (spec §4.10).
type Verdict struct {
	Type       string
	Payload    Value
	Provenance VerdictProvenance
}

// VerdictProvenance records which rule, at which stratum, produced a
// verdict, and which facts and prior verdicts it derived from — built by
// the ProvenanceCollector during predicate evaluation, not reconstructed
// afterward (spec §9).
type VerdictProvenance struct {
	RuleID      string
	Stratum     int
	FactsUsed   []string
	VerdictsUsed []string
}

// VerdictSet is the complete, ordered output of the Rule Engine (spec
// §4.10): verdicts appear in stratum-ascending, then rule-declaration,
// order.
type VerdictSet struct {
	ordered []Verdict
	byType  map[string]*Verdict
}

func NewVerdictSet() *VerdictSet {
	return &VerdictSet{byType: map[string]*Verdict{}}
}

func (vs *VerdictSet) Append(v Verdict) {
	vs.ordered = append(vs.ordered, v)
	stored := vs.ordered[len(vs.ordered)-1]
	vs.byType[v.Type] = &stored
}

func (vs *VerdictSet) Present(verdictType string) bool {
	_, ok := vs.byType[verdictType]
	return ok
}

func (vs *VerdictSet) Get(verdictType string) (Verdict, bool) {
	v, ok := vs.byType[verdictType]
	if !ok {
		return Verdict{}, false
	}
	return *v, true
}

func (vs *VerdictSet) All() []Verdict {
	return vs.ordered
}

// Snapshot is the immutable (facts, verdicts) pair captured at flow
// initiation (spec §4.12). Every predicate evaluated within the flow —
// and its sub-flows, by reference, never copied (spec §9) — uses this
// Snapshot, never a recomputed one.
type Snapshot struct {
	Facts    *FactSet
	Verdicts *VerdictSet
}

// InstanceKey identifies one runtime instance of an entity; "_default" is
// the single-instance sentinel (spec §4.11).
type InstanceKey struct {
	EntityID   string
	InstanceID string
}

const DefaultInstance = "_default"

// EntityStateMap is the mutable per-evaluation map of entity instance to
// current state label. It is owned and mutated exclusively by the flow
// that created it; sub-flows receive it by exclusive handoff for their
// duration (spec §5).
type EntityStateMap struct {
	states map[InstanceKey]string
}

func NewEntityStateMap() *EntityStateMap {
	return &EntityStateMap{states: map[InstanceKey]string{}}
}

func (m *EntityStateMap) Set(key InstanceKey, state string) {
	m.states[key] = state
}

func (m *EntityStateMap) Get(key InstanceKey) (string, bool) {
	s, ok := m.states[key]
	return s, ok
}

// Clone returns an independent copy, for callers that need to keep a
// prior state before flow.Run mutates the map in place.
func (m *EntityStateMap) Clone() *EntityStateMap {
	cp := &EntityStateMap{states: make(map[InstanceKey]string, len(m.states))}
	for k, v := range m.states {
		cp.states[k] = v
	}
	return cp
}

// MoneyValue decodes a Value expected to be a Money amount.
func MoneyValue(v Value) (decimal.Money, error) {
	m, ok := v.(decimal.Money)
	if !ok {
		return decimal.Money{}, fmt.Errorf("eval: expected Money, got %T", v)
	}
	return m, nil
}

// DecimalValue decodes a Value expected to be a Decimal.
func DecimalValue(v Value) (decimal.Decimal, error) {
	d, ok := v.(decimal.Decimal)
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("eval: expected Decimal, got %T", v)
	}
	return d, nil
}
