// Package flow implements the Flow Engine (spec §4.12): frozen-snapshot
// step-graph execution over OperationStep/BranchStep/HandoffStep/
// SubFlowStep/ParallelStep, with deterministic ParallelStep sequencing
// (branch-declaration order, per spec §5) and a step-count ceiling
// guarding against pathological flows.
package flow

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/tenor-lang/tenor/internal/elaborate"
	"github.com/tenor-lang/tenor/internal/eval"
	"github.com/tenor-lang/tenor/internal/eval/operation"
	"github.com/tenor-lang/tenor/internal/eval/predicate"
	"github.com/tenor-lang/tenor/internal/lang/ast"
)

// DefaultStepLimit is the hard ceiling spec §5/§7 describes ("exceeding it
// returns EvalError::StepLimitExceeded").
const DefaultStepLimit = 1000

// EscalationHandoff records an Escalate on-failure outcome: the flow
// continues, but the acting persona has changed (spec §4.12).
type EscalationHandoff struct {
	ID        string
	AtStep    string
	ToPersona string
}

// FlowResult is the Flow Engine's terminal output (spec §4.12).
type FlowResult struct {
	FlowID            string
	InitiatingPersona string
	Outcome           string
	StepsExecuted     int
	EntityStateChanges []operation.Provenance
	Verdicts          *eval.VerdictSet
	Escalations       []EscalationHandoff
}

// EvalError is fatal to the current evaluation invocation (spec §4.12
// "Failure semantics": "An evaluator-internal error ... is fatal").
type EvalError struct {
	Kind    string
	Detail  string
}

func (e *EvalError) Error() string { return fmt.Sprintf("EvalError::%s: %s", e.Kind, e.Detail) }

// Run executes flowID to completion against the given snapshot and
// entity-state map (spec §4.12). states is mutated in place; callers that
// need to preserve a prior state must Clone() first.
func Run(idx *elaborate.Index, flowID string, snapshot *eval.Snapshot, states *eval.EntityStateMap, bindings map[string]string) (*FlowResult, error) {
	f, ok := idx.Flows[flowID]
	if !ok {
		return nil, &EvalError{Kind: "FlowError", Detail: "undeclared flow " + flowID}
	}

	r := &runner{idx: idx, flow: f, snapshot: snapshot, states: states, bindings: bindings, limit: DefaultStepLimit}
	outcome, err := r.execFrom(f.Entry)
	if err != nil {
		return nil, err
	}

	return &FlowResult{
		FlowID: flowID, InitiatingPersona: f.InitiatingPersona, Outcome: outcome,
		StepsExecuted: r.stepsExecuted, EntityStateChanges: r.provenance,
		Verdicts: snapshot.Verdicts, Escalations: r.escalations,
	}, nil
}

type runner struct {
	idx      *elaborate.Index
	flow     *ast.FlowDecl
	snapshot *eval.Snapshot
	states   *eval.EntityStateMap
	bindings map[string]string
	limit    int

	stepsExecuted int
	provenance    []operation.Provenance
	escalations   []EscalationHandoff
	persona       string
}

func (r *runner) execFrom(stepID string) (string, error) {
	r.persona = r.flow.InitiatingPersona
	current := stepID
	for {
		r.stepsExecuted++
		if r.stepsExecuted > r.limit {
			return "", &EvalError{Kind: "StepLimitExceeded", Detail: fmt.Sprintf("exceeded %d steps", r.limit)}
		}
		step, ok := r.flow.Steps[current]
		if !ok {
			return "", &EvalError{Kind: "FlowError", Detail: "step " + current + " does not resolve"}
		}

		target, terminal, err := r.execStep(step)
		if err != nil {
			return "", err
		}
		if terminal != "" {
			return terminal, nil
		}
		current = target
	}
}

// execStep runs one step and returns either a next step id (target != "")
// or a terminal outcome (terminal != "").
func (r *runner) execStep(step ast.Step) (target, terminal string, err error) {
	switch s := step.(type) {
	case *ast.OperationStep:
		return r.execOperationStep(s)
	case *ast.BranchStep:
		c := predicate.NewCollector()
		v, err := predicate.Eval(s.Condition, r.snapshot.Facts, r.snapshot.Verdicts, c)
		if err != nil {
			return "", "", err
		}
		b, _ := v.(bool)
		t := s.IfFalse
		if b {
			t = s.IfTrue
		}
		return r.resolveTarget(t)
	case *ast.HandoffStep:
		r.persona = s.ToPersona
		if s.Next == "" {
			return "", "", &EvalError{Kind: "FlowError", Detail: "handoff step " + s.Id + " has no next step"}
		}
		return s.Next, "", nil
	case *ast.SubFlowStep:
		return r.execSubFlowStep(s)
	case *ast.ParallelStep:
		return r.execParallelStep(s)
	default:
		return "", "", &EvalError{Kind: "FlowError", Detail: fmt.Sprintf("unknown step kind %T", step)}
	}
}

func (r *runner) resolveTarget(t ast.StepTarget) (target, terminal string, err error) {
	if t.IsTerminal() {
		return "", t.Terminal, nil
	}
	return t.StepID, "", nil
}

func (r *runner) execOperationStep(s *ast.OperationStep) (target, terminal string, err error) {
	persona := s.Persona
	if persona == "" {
		persona = r.persona
	}
	outcome, prov, failure, err := operation.Execute(r.idx, s.Op, persona, r.snapshot.Facts, r.snapshot.Verdicts, r.states, r.bindings)
	if err != nil {
		return "", "", err
	}
	if failure != nil {
		return r.handleFailure(s.Id, s.OnFailure)
	}
	r.provenance = append(r.provenance, *prov)
	t, ok := s.Outcomes[outcome]
	if !ok {
		return "", "", &EvalError{Kind: "FlowError", Detail: "step " + s.Id + " has no handler for outcome " + outcome}
	}
	return r.resolveTarget(t)
}

// handleFailure implements the on_failure dispatch of spec §4.12:
// Terminate emits the named terminal outcome; Escalate records a handoff
// and continues at next; Compensate runs the declared compensation steps
// in reverse-chronological order then terminates with a failure outcome.
//
// Compensation evaluates against the same frozen snapshot as every other
// step (DESIGN.md Open Question 1); the snapshot is never rebuilt. Only the
// entity-state map changes, so each compensating operation sees the effects
// of those run before it. A compensation step that fails its guards is
// skipped without a provenance record; unknown or non-operation step ids
// are ignored.
func (r *runner) handleFailure(atStep string, of ast.OnFailure) (target, terminal string, err error) {
	switch of.Kind {
	case ast.OnFailureTerminate:
		return "", of.Terminal, nil
	case ast.OnFailureEscalate:
		r.escalations = append(r.escalations, EscalationHandoff{
			ID: uuid.NewString(), AtStep: atStep, ToPersona: of.ToPersona,
		})
		r.persona = of.ToPersona
		if of.Next == "" {
			return "", "failure", nil
		}
		return of.Next, "", nil
	case ast.OnFailureCompensate:
		for i := len(of.Compensation) - 1; i >= 0; i-- {
			compStepID := of.Compensation[i]
			compStep, ok := r.flow.Steps[compStepID]
			if !ok {
				continue
			}
			if os, ok := compStep.(*ast.OperationStep); ok {
				persona := os.Persona
				if persona == "" {
					persona = r.persona
				}
				_, prov, _, err := operation.Execute(r.idx, os.Op, persona, r.snapshot.Facts, r.snapshot.Verdicts, r.states, r.bindings)
				if err != nil {
					return "", "", err
				}
				if prov != nil {
					r.provenance = append(r.provenance, *prov)
				}
			}
		}
		return "", "failure", nil
	default:
		return "", "", &EvalError{Kind: "FlowError", Detail: "unknown on_failure kind"}
	}
}

func (r *runner) execSubFlowStep(s *ast.SubFlowStep) (target, terminal string, err error) {
	// Sub-flows borrow the parent's frozen snapshot by reference, never a
	// fresh one, and receive the entity-state map by exclusive handoff for
	// their duration (spec §4.12, §9).
	sub := &runner{idx: r.idx, flow: r.idx.Flows[s.Flow], snapshot: r.snapshot, states: r.states, bindings: r.bindings, limit: r.limit - r.stepsExecuted}
	outcome, err := sub.execFrom(sub.flow.Entry)
	r.stepsExecuted += sub.stepsExecuted
	r.provenance = append(r.provenance, sub.provenance...)
	r.escalations = append(r.escalations, sub.escalations...)
	if err != nil {
		return "", "", err
	}
	if outcome == "failure" {
		return r.handleFailure(s.Id, s.OnFailure)
	}
	return r.resolveTarget(s.OnSuccess)
}

// execParallelStep runs each branch serially, in branch-declaration order,
// against the same entity-state snapshot at join-start; Pass 5 guarantees
// branches touch disjoint entity sets, so serial execution is
// observationally equivalent to true concurrency (spec §4.12, §5).
func (r *runner) execParallelStep(s *ast.ParallelStep) (target, terminal string, err error) {
	anyFailure := false
	for _, branch := range s.Branches {
		for _, stepID := range branch.Steps {
			step, ok := r.flow.Steps[stepID]
			if !ok {
				return "", "", &EvalError{Kind: "FlowError", Detail: "parallel branch references unknown step " + stepID}
			}
			os, ok := step.(*ast.OperationStep)
			if !ok {
				return "", "", &EvalError{Kind: "FlowError", Detail: "parallel branch step " + stepID + " must be an operation step"}
			}
			persona := os.Persona
			if persona == "" {
				persona = r.persona
			}
			_, prov, failure, err := operation.Execute(r.idx, os.Op, persona, r.snapshot.Facts, r.snapshot.Verdicts, r.states, r.bindings)
			if err != nil {
				return "", "", err
			}
			if failure != nil {
				anyFailure = true
				continue
			}
			r.provenance = append(r.provenance, *prov)
		}
	}
	if anyFailure {
		return r.resolveTarget(s.Join.OnAnyFailure)
	}
	return r.resolveTarget(s.Join.OnAllSuccess)
}
