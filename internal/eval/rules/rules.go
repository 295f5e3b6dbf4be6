// Package rules implements the stratified Rule Engine (spec §4.10): given
// a FactSet, it computes verdicts stratum by stratum in ascending order.
// Within a stratum rules are independent; stratum s's verdicts become
// visible to stratum s+1, never to same-stratum rules (enforced
// statically by elaborate.RunValidate's stratification check, spec
// invariant 4).
package rules

import (
	"sort"

	"github.com/tenor-lang/tenor/internal/elaborate"
	"github.com/tenor-lang/tenor/internal/eval"
	"github.com/tenor-lang/tenor/internal/eval/predicate"
	"github.com/tenor-lang/tenor/internal/lang/ast"
)

// Evaluate computes the complete, ordered VerdictSet for facts against
// every rule in idx (spec §5 ordering guarantee (i): "within a stratum,
// verdict order follows rule-declaration order").
func Evaluate(idx *elaborate.Index, facts *eval.FactSet) (*eval.VerdictSet, error) {
	byStratum := map[int][]*ast.RuleDecl{}
	for _, id := range idx.RuleOrder {
		r := idx.Rules[id]
		byStratum[r.Stratum] = append(byStratum[r.Stratum], r)
	}

	var strata []int
	for s := range byStratum {
		strata = append(strata, s)
	}
	sort.Ints(strata)

	verdicts := eval.NewVerdictSet()
	for _, s := range strata {
		for _, r := range byStratum[s] {
			c := predicate.NewCollector()
			result, err := predicate.Eval(r.Condition, facts, verdicts, c)
			if err != nil {
				return nil, err
			}
			fires, _ := result.(bool)
			if !fires {
				continue
			}
			payload, err := predicate.Eval(r.PayloadExpr, facts, verdicts, c)
			if err != nil {
				return nil, err
			}
			verdicts.Append(eval.Verdict{
				Type:    r.VerdictType,
				Payload: payload,
				Provenance: eval.VerdictProvenance{
					RuleID: r.Id, Stratum: s,
					FactsUsed: c.Facts, VerdictsUsed: c.Verdicts,
				},
			})
		}
	}
	return verdicts, nil
}
