package elaborate

import (
	"github.com/tenor-lang/tenor/internal/diag"
	"github.com/tenor-lang/tenor/internal/lang/ast"
)

// RunValidate is Pass 5 (spec §4.6): it enforces invariants 2-10 from
// spec §3 (invariant 1, identifier uniqueness, is already enforced by
// RunIndex since it must hold before a symbol table can even be built).
func RunValidate(idx *Index) *diag.Bag {
	bag := &diag.Bag{}
	checkReferences(idx, bag)
	checkEntityDAGs(idx, bag)
	checkStratification(idx, bag)
	checkOneRulePerVerdict(idx, bag)
	checkOperationOutcomes(idx, bag)
	checkFlows(idx, bag)
	checkSystems(idx, bag)
	return bag
}

// checkReferences enforces invariant 2: every reference resolves.
func checkReferences(idx *Index, bag *diag.Bag) {
	for id, op := range idx.Operations {
		for _, p := range op.AllowedPersonas {
			if _, ok := idx.Personas[p]; !ok {
				bag.Add(diag.New(diag.KindValidate, "validate",
					"operation \""+id+"\" references undeclared persona \""+p+"\"").On("operation", id).Build())
			}
		}
		for _, eff := range op.Effects {
			if _, ok := idx.Entities[eff.EntityID]; !ok {
				bag.Add(diag.New(diag.KindValidate, "validate",
					"operation \""+id+"\" effect references undeclared entity \""+eff.EntityID+"\"").On("operation", id).Build())
			}
		}
	}
	for id, f := range idx.Flows {
		if f.InitiatingPersona != "" {
			if _, ok := idx.Personas[f.InitiatingPersona]; !ok {
				bag.Add(diag.New(diag.KindValidate, "validate",
					"flow \""+id+"\" references undeclared persona \""+f.InitiatingPersona+"\"").On("flow", id).Build())
			}
		}
		for _, step := range f.Steps {
			if os, ok := step.(*ast.OperationStep); ok {
				if _, ok := idx.Operations[os.Op]; !ok {
					bag.Add(diag.New(diag.KindValidate, "validate",
						"flow \""+id+"\" step \""+os.Id+"\" references undeclared operation \""+os.Op+"\"").On("flow", id).Build())
				}
			}
			if sf, ok := step.(*ast.SubFlowStep); ok {
				if _, ok := idx.Flows[sf.Flow]; !ok {
					bag.Add(diag.New(diag.KindValidate, "validate",
						"flow \""+id+"\" step \""+sf.Id+"\" references undeclared flow \""+sf.Flow+"\"").On("flow", id).Build())
				}
			}
		}
	}
}

// checkEntityDAGs enforces invariant 3: each entity's transition graph is
// acyclic and its initial state exists.
func checkEntityDAGs(idx *Index, bag *diag.Bag) {
	for id, e := range idx.Entities {
		stateSet := map[string]bool{}
		for _, s := range e.States {
			stateSet[s] = true
		}
		if !stateSet[e.Initial] {
			bag.Add(diag.New(diag.KindValidate, "validate",
				"entity \""+id+"\" initial state \""+e.Initial+"\" is not a declared state").On("entity", id).Build())
		}
		adj := map[string][]string{}
		for _, t := range e.Transitions {
			adj[t.From] = append(adj[t.From], t.To)
		}
		visiting := map[string]bool{}
		done := map[string]bool{}
		var dfs func(s string) bool
		dfs = func(s string) bool {
			if done[s] {
				return false
			}
			if visiting[s] {
				return true
			}
			visiting[s] = true
			for _, next := range adj[s] {
				if dfs(next) {
					return true
				}
			}
			visiting[s] = false
			done[s] = true
			return false
		}
		for _, s := range e.States {
			if dfs(s) {
				bag.Add(diag.New(diag.KindValidate, "validate",
					"entity \""+id+"\" transition graph contains a cycle").On("entity", id).Build())
				break
			}
		}
	}
}

// checkStratification enforces invariant 4: a rule at stratum s may only
// reference, via verdict_present, verdicts produced at strata < s.
func checkStratification(idx *Index, bag *diag.Bag) {
	for id, r := range idx.Rules {
		walkVerdictRefs(r.Condition, func(verdictType string) {
			producerID := verdictProducer(idx, verdictType)
			producer, ok := idx.Rules[producerID]
			if !ok {
				bag.Add(diag.New(diag.KindValidate, "validate",
					"rule \""+id+"\" references undeclared verdict \""+verdictType+"\"").On("rule", id).Build())
				return
			}
			if producer.Stratum >= r.Stratum {
				bag.Add(diag.New(diag.KindValidate, "validate",
					"rule \""+id+"\" (stratum "+itoa(r.Stratum)+") references verdict \""+verdictType+
						"\" produced at stratum "+itoa(producer.Stratum)+"; must be strictly lower").
					On("rule", id).Build())
			}
		})
	}
}

func walkVerdictRefs(e ast.Expr, fn func(verdictType string)) {
	switch v := e.(type) {
	case ast.VerdictPresent:
		fn(v.VerdictType)
	case ast.BinaryExpr:
		walkVerdictRefs(v.Left, fn)
		walkVerdictRefs(v.Right, fn)
	case ast.NotExpr:
		walkVerdictRefs(v.Operand, fn)
	case ast.QuantifierExpr:
		walkVerdictRefs(v.Body, fn)
	}
}

// checkOneRulePerVerdict enforces invariant 5.
func checkOneRulePerVerdict(idx *Index, bag *diag.Bag) {
	producers := map[string][]string{}
	for id, r := range idx.Rules {
		producers[r.VerdictType] = append(producers[r.VerdictType], id)
	}
	for verdict, rules := range producers {
		if len(rules) > 1 {
			bag.Add(diag.New(diag.KindValidate, "validate",
				"verdict \""+verdict+"\" is produced by more than one rule: "+joinStrings(rules)).Build())
		}
	}
}

// checkOperationOutcomes enforces invariants 6 and 7.
func checkOperationOutcomes(idx *Index, bag *diag.Bag) {
	for id, op := range idx.Operations {
		outcomeSet := map[string]bool{}
		for _, o := range op.Outcomes {
			outcomeSet[o] = true
		}
		errSet := map[string]bool{}
		for _, e := range op.ErrorContract {
			if outcomeSet[e] {
				bag.Add(diag.New(diag.KindValidate, "validate",
					"operation \""+id+"\" label \""+e+"\" appears in both outcomes and error_contract").On("operation", id).Build())
			}
			errSet[e] = true
		}
		if len(op.Outcomes) > 1 {
			for _, eff := range op.Effects {
				if len(eff.Outcomes) == 0 {
					bag.Add(diag.New(diag.KindValidate, "validate",
						"operation \""+id+"\" has multiple outcomes; effect on entity \""+eff.EntityID+
							"\" must be labeled with the outcome(s) it applies under").On("operation", id).Build())
				}
			}
		}
	}
}

// checkFlows enforces invariants 6 (exhaustive OperationStep outcome
// handling), 8 (reachability), and 9 (ParallelStep disjointness).
func checkFlows(idx *Index, bag *diag.Bag) {
	for id, f := range idx.Flows {
		for _, step := range f.Steps {
			if os, ok := step.(*ast.OperationStep); ok {
				op, ok := idx.Operations[os.Op]
				if !ok {
					continue
				}
				declared := map[string]bool{}
				for _, o := range op.Outcomes {
					declared[o] = true
				}
				handled := map[string]bool{}
				for label := range os.Outcomes {
					handled[label] = true
				}
				for o := range declared {
					if !handled[o] {
						bag.Add(diag.New(diag.KindValidate, "validate",
							"flow \""+id+"\" step \""+os.Id+"\" does not handle outcome \""+o+"\" of operation \""+os.Op+"\"").
							On("flow", id).Build())
					}
				}
			}
		}

		reachable := map[string]bool{}
		var walk func(stepID string)
		walk = func(stepID string) {
			if stepID == "" || reachable[stepID] {
				return
			}
			step, ok := f.Steps[stepID]
			if !ok {
				bag.Add(diag.New(diag.KindValidate, "validate",
					"flow \""+id+"\" target \""+stepID+"\" does not resolve to a declared step").On("flow", id).Build())
				return
			}
			reachable[stepID] = true
			for _, t := range stepTargets(step) {
				if !t.IsTerminal() {
					walk(t.StepID)
				}
			}
		}
		walk(f.Entry)
		for stepID := range f.Steps {
			if !reachable[stepID] {
				bag.Add(diag.New(diag.KindValidate, "validate",
					"flow \""+id+"\" step \""+stepID+"\" is unreachable from entry").On("flow", id).Build())
			}
		}

		for _, step := range f.Steps {
			ps, ok := step.(*ast.ParallelStep)
			if !ok {
				continue
			}
			seen := map[string]string{}
			for _, branch := range ps.Branches {
				entities := map[string]bool{}
				for _, stepID := range branch.Steps {
					if os, ok := f.Steps[stepID].(*ast.OperationStep); ok {
						if op, ok := idx.Operations[os.Op]; ok {
							for _, eff := range op.Effects {
								entities[eff.EntityID] = true
							}
						}
					}
				}
				for e := range entities {
					if other, ok := seen[e]; ok {
						bag.Add(diag.New(diag.KindValidate, "validate",
							"flow \""+id+"\" parallel step \""+ps.Id+"\": branches \""+other+"\" and \""+branch.Id+
								"\" both effect entity \""+e+"\"").On("flow", id).Build())
					}
					seen[e] = branch.Id
				}
			}
		}
	}
}

func stepTargets(step ast.Step) []ast.StepTarget {
	switch s := step.(type) {
	case *ast.OperationStep:
		var out []ast.StepTarget
		for _, t := range s.Outcomes {
			out = append(out, t)
		}
		if s.OnFailure.Kind == ast.OnFailureEscalate && s.OnFailure.Next != "" {
			out = append(out, ast.StepTarget{StepID: s.OnFailure.Next})
		}
		return out
	case *ast.BranchStep:
		return []ast.StepTarget{s.IfTrue, s.IfFalse}
	case *ast.HandoffStep:
		if s.Next == "" {
			return nil
		}
		return []ast.StepTarget{{StepID: s.Next}}
	case *ast.SubFlowStep:
		out := []ast.StepTarget{s.OnSuccess}
		if s.OnFailure.Kind == ast.OnFailureEscalate && s.OnFailure.Next != "" {
			out = append(out, ast.StepTarget{StepID: s.OnFailure.Next})
		}
		return out
	case *ast.ParallelStep:
		out := []ast.StepTarget{s.Join.OnAllSuccess, s.Join.OnAnyFailure}
		for _, b := range s.Branches {
			for _, stepID := range b.Steps {
				out = append(out, ast.StepTarget{StepID: stepID})
			}
		}
		return out
	default:
		return nil
	}
}

// checkSystems enforces invariant 10: System triggers form an acyclic
// graph across member contracts.
func checkSystems(idx *Index, bag *diag.Bag) {
	for id, s := range idx.Systems {
		type node struct{ contract, flow string }
		adj := map[node][]node{}
		for _, t := range s.Triggers {
			from := node{t.SourceContract, t.SourceFlow}
			to := node{t.TargetContract, t.TargetFlow}
			adj[from] = append(adj[from], to)
		}
		visiting := map[node]bool{}
		done := map[node]bool{}
		var dfs func(n node) bool
		dfs = func(n node) bool {
			if done[n] {
				return false
			}
			if visiting[n] {
				return true
			}
			visiting[n] = true
			for _, next := range adj[n] {
				if dfs(next) {
					return true
				}
			}
			visiting[n] = false
			done[n] = true
			return false
		}
		for n := range adj {
			if dfs(n) {
				bag.Add(diag.New(diag.KindValidate, "validate",
					"system \""+id+"\" triggers contain a cycle").On("system", id).Build())
				break
			}
		}
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func joinStrings(ss []string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += ", "
		}
		out += s
	}
	return out
}
