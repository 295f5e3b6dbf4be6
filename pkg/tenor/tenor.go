// Package tenor is the module's public entry point: Elaborate compiles
// source into a canonical bundle (spec §2's six passes), Evaluate runs one
// flow against an elaborated bundle (spec §4.8-§4.12), and EvaluateBatch
// fans independent evaluations out across goroutines at the host's
// discretion (spec §5: "An implementation MAY execute independent flows
// concurrently at the host level").
package tenor

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/tenor-lang/tenor/internal/diag"
	"github.com/tenor-lang/tenor/internal/elaborate"
	"github.com/tenor-lang/tenor/internal/eval"
	"github.com/tenor-lang/tenor/internal/eval/assembler"
	"github.com/tenor-lang/tenor/internal/eval/flow"
	"github.com/tenor-lang/tenor/internal/eval/rules"
)

// SourceProvider reads one source file by path during the Bundle pass.
type SourceProvider = elaborate.SourceProvider

// Bundle is the elaborated, canonically-serialized contract a Tenor host
// holds onto between evaluations.
type Bundle = elaborate.Result

// Elaborate compiles rootFile (and everything it imports) into a Bundle.
// On failure, the returned diagnostics are sorted deterministically
// (spec §9).
func Elaborate(contractID, rootFile string, read SourceProvider, logger *slog.Logger) (*Bundle, []diag.Diagnostic) {
	return elaborate.Elaborate(contractID, rootFile, read, logger)
}

// EvaluateRequest is one (facts, persona, flow) invocation against an
// already-elaborated Bundle.
type EvaluateRequest struct {
	Bundle    *Bundle
	RawFacts  map[string]interface{}
	Persona   string
	FlowID    string
	Bindings  map[string]string // entity_id -> instance_id, optional
}

// EvaluateResult is the caller-facing outcome of one flow evaluation: the
// verdicts derived from the frozen snapshot and the flow's terminal
// provenance (spec §4.10, §4.12).
type EvaluateResult struct {
	Verdicts *eval.VerdictSet
	Flow     *flow.FlowResult
}

// Evaluate assembles facts, derives verdicts, and runs one flow to
// completion, all against a single frozen snapshot (spec §9: "the snapshot
// is captured once, at flow entry, and never recomputed").
func Evaluate(req EvaluateRequest) (*EvaluateResult, error) {
	if req.Bundle == nil {
		return nil, fmt.Errorf("tenor: Evaluate requires an elaborated Bundle")
	}

	facts, diags := assembler.Assemble(req.Bundle.Index, req.Bundle.Resolved, req.RawFacts, nil)
	if len(diags) > 0 {
		return nil, fmt.Errorf("tenor: fact assembly failed: %s", diags[0].Message)
	}

	verdicts, err := rules.Evaluate(req.Bundle.Index, facts)
	if err != nil {
		return nil, fmt.Errorf("tenor: rule evaluation failed: %w", err)
	}

	snapshot := &eval.Snapshot{Facts: facts, Verdicts: verdicts}
	states := newInitialStateMap(req.Bundle.Index, req.Bindings)

	result, err := flow.Run(req.Bundle.Index, req.FlowID, snapshot, states, req.Bindings)
	if err != nil {
		return nil, fmt.Errorf("tenor: flow evaluation failed: %w", err)
	}

	return &EvaluateResult{Verdicts: verdicts, Flow: result}, nil
}

// newInitialStateMap seeds every declared entity's instance at its
// declared initial state (spec §3: "initial is the state a fresh instance
// occupies before any operation has transitioned it"). bindings maps
// entity_id -> instance_id the same way operation.Execute resolves them;
// an entity absent from bindings seeds eval.DefaultInstance.
func newInitialStateMap(idx *elaborate.Index, bindings map[string]string) *eval.EntityStateMap {
	states := eval.NewEntityStateMap()
	for id, e := range idx.Entities {
		instance := bindings[id]
		if instance == "" {
			instance = eval.DefaultInstance
		}
		states.Set(eval.InstanceKey{EntityID: id, InstanceID: instance}, e.Initial)
	}
	return states
}

// EvaluateBatch runs independent evaluation requests concurrently, bounded
// by ctx and by concurrencyLimit in-flight goroutines, and returns one
// result per request in input order. concurrencyLimit <= 0 means
// unbounded fan-out. A single request's failure does not cancel its
// siblings; it is reported at its own index (spec §5's host-level
// concurrency is explicitly opt-in and scoped to *independent*
// evaluations — nothing here shares mutable state across requests, since
// each gets its own FactSet/EntityStateMap).
func EvaluateBatch(ctx context.Context, reqs []EvaluateRequest, concurrencyLimit int) ([]*EvaluateResult, []error) {
	results := make([]*EvaluateResult, len(reqs))
	errs := make([]error, len(reqs))

	g, _ := errgroup.WithContext(ctx)
	if concurrencyLimit > 0 {
		g.SetLimit(concurrencyLimit)
	}
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			res, err := Evaluate(req)
			results[i] = res
			errs[i] = err
			return nil // per-request errors are reported, not fatal to the group
		})
	}
	_ = g.Wait()

	return results, errs
}
