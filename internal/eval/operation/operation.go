// Package operation implements the Operation Executor (spec §4.11): the
// six-guard pipeline grounded on the grounding repo's SafeExecutor.Execute
// (pre-flight checks -> gating -> dispatch -> receipt), adapted from a
// network-facing dispatcher to a pure in-memory guard sequence. Any guard
// failure aborts with no state mutation.
package operation

import (
	"fmt"

	"github.com/tenor-lang/tenor/internal/elaborate"
	"github.com/tenor-lang/tenor/internal/eval"
	"github.com/tenor-lang/tenor/internal/eval/predicate"
	"github.com/tenor-lang/tenor/internal/lang/ast"
)

// FailureKind is the closed set of guard-rejection reasons spec §7 assigns
// to the evaluator's EvalError family.
type FailureKind string

const (
	FailurePersonaNotAuthorized FailureKind = "PersonaNotAuthorized"
	FailurePreconditionNotMet   FailureKind = "PreconditionNotMet"
	FailureEntityNotInSourceState FailureKind = "EntityNotInSourceState"
	FailureMissingOutcome       FailureKind = "MissingOutcome"
)

// Failure is a guard rejection: reportable, not a crash (spec §4.12
// "Failure semantics" — the step's on-failure handler decides what
// happens next).
type Failure struct {
	Kind            FailureKind
	EntityID        string
	CurrentState    string
	RequiredState   string
	MissingVerdicts []string
}

func (f *Failure) Error() string {
	switch f.Kind {
	case FailureEntityNotInSourceState:
		return fmt.Sprintf("%s: entity %q in state %q, required %q", f.Kind, f.EntityID, f.CurrentState, f.RequiredState)
	default:
		return string(f.Kind)
	}
}

// Provenance records one executed operation's guard trail and state
// transition, appended to the flow's provenance log (spec §4.11 step 6).
type Provenance struct {
	OpID             string
	Persona          string
	InstanceBindings map[string]string
	StateBefore      map[eval.InstanceKey]string
	StateAfter       map[eval.InstanceKey]string
	Outcome          string
}

// Execute runs the six-step guard pipeline of spec §4.11 against states,
// mutating it only on full success. bindings maps entity_id -> instance_id
// (optional; entities absent from bindings use eval.DefaultInstance).
func Execute(
	idx *elaborate.Index,
	opID string,
	persona string,
	facts *eval.FactSet,
	verdicts *eval.VerdictSet,
	states *eval.EntityStateMap,
	bindings map[string]string,
) (string, *Provenance, *Failure, error) {
	op, ok := idx.Operations[opID]
	if !ok {
		return "", nil, nil, fmt.Errorf("operation: undeclared operation %q", opID)
	}

	// 1. Persona guard.
	authorized := false
	for _, p := range op.AllowedPersonas {
		if p == persona {
			authorized = true
			break
		}
	}
	if !authorized {
		return "", nil, &Failure{Kind: FailurePersonaNotAuthorized}, nil
	}

	// 2. Precondition.
	var missingVerdicts []string
	if op.Precondition != nil {
		c := predicate.NewCollector()
		result, err := predicate.Eval(op.Precondition, facts, verdicts, c)
		if err != nil {
			return "", nil, nil, err
		}
		ok, _ := result.(bool)
		if !ok {
			for _, v := range c.Verdicts {
				if !verdicts.Present(v) {
					missingVerdicts = append(missingVerdicts, v)
				}
			}
			return "", nil, &Failure{Kind: FailurePreconditionNotMet, MissingVerdicts: missingVerdicts}, nil
		}
	}

	// 3. Resolve entity-instance bindings and snapshot current state. For a
	// single-outcome op every effect must hold its required from-state right
	// now (no outcome ambiguity is possible). A multi-outcome op defers the
	// guard to step 4, since which effect set applies depends on which
	// outcome's candidate group actually matches.
	resolvedBindings := map[string]string{}
	before := map[eval.InstanceKey]string{}
	for _, eff := range op.Effects {
		instance := bindings[eff.EntityID]
		if instance == "" {
			instance = eval.DefaultInstance
		}
		resolvedBindings[eff.EntityID] = instance
		key := eval.InstanceKey{EntityID: eff.EntityID, InstanceID: instance}
		current, _ := states.Get(key)
		before[key] = current
	}
	if len(op.Outcomes) == 1 {
		for _, eff := range op.Effects {
			key := eval.InstanceKey{EntityID: eff.EntityID, InstanceID: resolvedBindings[eff.EntityID]}
			if before[key] != eff.From {
				return "", nil, &Failure{
					Kind: FailureEntityNotInSourceState, EntityID: eff.EntityID,
					CurrentState: before[key], RequiredState: eff.From,
				}, nil
			}
		}
	}

	// 4. Outcome resolution.
	outcome, failure := resolveOutcome(op, resolvedBindings, before)
	if failure != nil {
		return "", nil, failure, nil
	}

	// 5. Effect application.
	after := map[eval.InstanceKey]string{}
	for _, eff := range op.Effects {
		if !effectAppliesToOutcome(eff, outcome) {
			continue
		}
		key := eval.InstanceKey{EntityID: eff.EntityID, InstanceID: resolvedBindings[eff.EntityID]}
		states.Set(key, eff.To)
		after[key] = eff.To
	}

	// 6. Record.
	prov := &Provenance{
		OpID: opID, Persona: persona, InstanceBindings: resolvedBindings,
		StateBefore: before, StateAfter: after, Outcome: outcome,
	}
	return outcome, prov, nil, nil
}

// resolveOutcome implements spec §4.11 step 4: single-outcome operations
// always resolve to their sole declared label. Multi-outcome operations
// group effects by the outcome label(s) they're scoped to (mandatory
// labeling for outcomes > 1 is enforced at Pass 5) and pick the outcome
// whose group's effects are *all* currently in their required from-state —
// the same disambiguator step 3's source-state guard already uses for
// single-outcome ops, applied per-candidate instead of globally. Silent
// fallback is prohibited: no matching group is EntityNotInSourceState, more
// than one matching group is MissingOutcome (an ambiguous bundle cannot be
// resolved by guessing).
func resolveOutcome(op *ast.OperationDecl, bindings map[string]string, before map[eval.InstanceKey]string) (string, *Failure) {
	if len(op.Outcomes) == 1 {
		return op.Outcomes[0], nil
	}

	var matched []string
	for _, outcome := range op.Outcomes {
		var group []ast.EffectSpec
		for _, eff := range op.Effects {
			if effectAppliesToOutcome(eff, outcome) {
				group = append(group, eff)
			}
		}
		if len(group) == 0 {
			continue
		}

		satisfied := true
		for _, eff := range group {
			key := eval.InstanceKey{EntityID: eff.EntityID, InstanceID: bindings[eff.EntityID]}
			if before[key] != eff.From {
				satisfied = false
				break
			}
		}
		if satisfied {
			matched = append(matched, outcome)
		}
	}

	switch len(matched) {
	case 0:
		return "", &Failure{Kind: FailureEntityNotInSourceState}
	case 1:
		return matched[0], nil
	default:
		return "", &Failure{Kind: FailureMissingOutcome}
	}
}

func effectAppliesToOutcome(eff ast.EffectSpec, outcome string) bool {
	if len(eff.Outcomes) == 0 {
		return true
	}
	for _, o := range eff.Outcomes {
		if o == outcome {
			return true
		}
	}
	return false
}
