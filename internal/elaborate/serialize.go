package elaborate

import (
	"github.com/tenor-lang/tenor/internal/diag"
	"github.com/tenor-lang/tenor/internal/interchange"
	"github.com/tenor-lang/tenor/internal/interchange/canon"
	"github.com/tenor-lang/tenor/internal/lang/ast"
)

// RunSerialize is Pass 6 (spec §4.7): it emits the canonical interchange
// envelope. Object keys are sorted by canon.Marshal; arrays (the
// constructs list, and any per-construct ordered sub-lists) preserve the
// declaration order captured in bundle.Constructs.
func RunSerialize(contractID string, bundle *Bundle, res *Resolved) ([]byte, *diag.Bag) {
	bag := &diag.Bag{}

	envelope := map[string]interface{}{
		"id":            contractID,
		"kind":          "Bundle",
		"tenor":         interchange.ShortVersion,
		"tenor_version": interchange.SemVersion,
	}

	var constructs []interface{}
	for _, c := range bundle.Constructs {
		entry := map[string]interface{}{
			"id":    c.ID(),
			"kind":  string(c.Kind()),
			"tenor": interchange.ShortVersion,
			"provenance": map[string]interface{}{
				"file": c.Position().File,
				"line": c.Position().Line,
			},
		}
		for k, v := range constructFields(c, res) {
			entry[k] = v
		}
		constructs = append(constructs, entry)
	}
	envelope["constructs"] = constructs

	out, err := canon.Marshal(envelope)
	if err != nil {
		bag.Add(diag.New(diag.KindSerialize, "serialize", "canonicalization failed: "+err.Error()).Build())
		return nil, bag
	}
	return out, bag
}

func constructFields(c ast.Construct, res *Resolved) map[string]interface{} {
	switch v := c.(type) {
	case *ast.FactDecl:
		return map[string]interface{}{
			"type":   typeToJSON(res.FactTypes[v.Id]),
			"source": v.Source,
		}
	case *ast.EntityDecl:
		transitions := make([]interface{}, len(v.Transitions))
		for i, t := range v.Transitions {
			transitions[i] = map[string]interface{}{"from": t.From, "to": t.To}
		}
		return map[string]interface{}{
			"states":      stringsToJSON(v.States),
			"initial":     v.Initial,
			"transitions": transitions,
		}
	case *ast.PersonaDecl:
		return map[string]interface{}{}
	case *ast.RuleDecl:
		var payload interface{}
		if v.PayloadExpr != nil {
			payload = exprToJSON(v.PayloadExpr, res)
		}
		return map[string]interface{}{
			"stratum":      v.Stratum,
			"condition":    exprToJSON(v.Condition, res),
			"verdict_type": v.VerdictType,
			"payload_expr": payload,
		}
	case *ast.OperationDecl:
		effects := make([]interface{}, len(v.Effects))
		for i, e := range v.Effects {
			effects[i] = map[string]interface{}{
				"entity": e.EntityID, "from": e.From, "to": e.To,
				"outcomes": stringsToJSON(e.Outcomes),
			}
		}
		var precond interface{}
		if v.Precondition != nil {
			precond = exprToJSON(v.Precondition, res)
		}
		return map[string]interface{}{
			"allowed_personas": stringsToJSON(v.AllowedPersonas),
			"precondition":     precond,
			"effects":          effects,
			"outcomes":         stringsToJSON(v.Outcomes),
			"error_contract":   stringsToJSON(v.ErrorContract),
		}
	case *ast.FlowDecl:
		steps := make([]interface{}, 0, len(v.StepOrder))
		for _, id := range v.StepOrder {
			steps = append(steps, stepToJSON(v.Steps[id], res))
		}
		return map[string]interface{}{
			"initiating_persona": v.InitiatingPersona,
			"entry":              v.Entry,
			"snapshot_mode":      "at_initiation",
			"steps":              steps,
		}
	case *ast.TypeDecl:
		return map[string]interface{}{"body": typeToJSON(res.TypeDecls[v.Id])}
	case *ast.SystemDecl:
		triggers := make([]interface{}, len(v.Triggers))
		for i, t := range v.Triggers {
			triggers[i] = map[string]interface{}{
				"source_contract": t.SourceContract, "source_flow": t.SourceFlow,
				"target_contract": t.TargetContract, "target_flow": t.TargetFlow,
			}
		}
		return map[string]interface{}{
			"members":         stringsToJSON(v.Members),
			"shared_personas": stringsToJSON(v.SharedPersonas),
			"shared_entities": stringsToJSON(v.SharedEntities),
			"triggers":        triggers,
		}
	default:
		return map[string]interface{}{}
	}
}

func stringsToJSON(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func typeToJSON(t ast.TypeExpr) interface{} {
	switch v := t.(type) {
	case ast.BoolType:
		return map[string]interface{}{"base": "bool"}
	case ast.IntType:
		m := map[string]interface{}{"base": "int"}
		if v.Min != nil {
			m["min"] = *v.Min
		}
		if v.Max != nil {
			m["max"] = *v.Max
		}
		return m
	case ast.DecimalType:
		return map[string]interface{}{"base": "decimal", "precision": v.Precision, "scale": v.Scale}
	case ast.MoneyType:
		return map[string]interface{}{"base": "money", "currency": v.Currency}
	case ast.TextType:
		m := map[string]interface{}{"base": "text"}
		if v.MaxLength != nil {
			m["max_length"] = *v.MaxLength
		}
		return m
	case ast.DateType:
		return map[string]interface{}{"base": "date"}
	case ast.DateTimeType:
		return map[string]interface{}{"base": "datetime"}
	case ast.DurationType:
		return map[string]interface{}{"base": "duration", "unit": string(v.Unit)}
	case ast.EnumType:
		return map[string]interface{}{"base": "enum", "values": stringsToJSON(v.Values)}
	case ast.RecordType:
		fields := map[string]interface{}{}
		for _, f := range v.Fields {
			fields[f.Name] = typeToJSON(f.Type)
		}
		return map[string]interface{}{"base": "record", "fields": fields}
	case ast.ListType:
		m := map[string]interface{}{"base": "list", "elem": typeToJSON(v.Elem)}
		if v.MaxLength != nil {
			m["max_length"] = *v.MaxLength
		}
		return m
	case ast.TaggedUnionType:
		variants := map[string]interface{}{}
		for _, variant := range v.Variants {
			variants[variant.Tag] = typeToJSON(variant.Record)
		}
		return map[string]interface{}{"base": "tagged_union", "tag_field": v.TagField, "variants": variants}
	case ast.NamedType:
		return map[string]interface{}{"base": "named", "name": v.Name}
	default:
		return nil
	}
}

// exprToJSON serializes e to its interchange node. res supplies the
// comparison_type annotation spec §4.5 requires on Int-vs-Decimal
// comparison nodes (recorded by RunTypeCheck against the node's position).
func exprToJSON(e ast.Expr, res *Resolved) interface{} {
	switch v := e.(type) {
	case ast.BoolLit:
		return map[string]interface{}{"node": "bool_lit", "value": v.Value}
	case ast.IntLit:
		return map[string]interface{}{"node": "int_lit", "value": v.Value}
	case ast.DecimalLit:
		return map[string]interface{}{"node": "decimal_lit", "value": v.Raw}
	case ast.StringLit:
		return map[string]interface{}{"node": "string_lit", "value": v.Value}
	case ast.FactRef:
		return map[string]interface{}{"node": "fact_ref", "fact": v.FactID}
	case ast.VerdictPresent:
		return map[string]interface{}{"node": "verdict_present", "verdict": v.VerdictType}
	case ast.NotExpr:
		return map[string]interface{}{"node": "not", "operand": exprToJSON(v.Operand, res)}
	case ast.BinaryExpr:
		m := map[string]interface{}{
			"node": "binary", "op": string(v.Op),
			"left": exprToJSON(v.Left, res), "right": exprToJSON(v.Right, res),
		}
		if ct, ok := res.ComparisonTypes[v.Pos]; ok {
			m["comparison_type"] = ct
		}
		return m
	case ast.QuantifierExpr:
		return map[string]interface{}{
			"node": "quantifier", "kind": string(v.Kind), "var": v.Var,
			"list_fact": v.ListFact, "body": exprToJSON(v.Body, res),
		}
	default:
		return nil
	}
}

func stepToJSON(step ast.Step, res *Resolved) interface{} {
	switch s := step.(type) {
	case *ast.OperationStep:
		outcomes := map[string]interface{}{}
		for k, t := range s.Outcomes {
			outcomes[k] = targetToJSON(t)
		}
		return map[string]interface{}{
			"id": s.Id, "kind": "operation", "op": s.Op, "persona": s.Persona,
			"outcomes": outcomes, "on_failure": onFailureToJSON(s.OnFailure),
		}
	case *ast.BranchStep:
		return map[string]interface{}{
			"id": s.Id, "kind": "branch", "condition": exprToJSON(s.Condition, res),
			"if_true": targetToJSON(s.IfTrue), "if_false": targetToJSON(s.IfFalse),
		}
	case *ast.HandoffStep:
		return map[string]interface{}{
			"id": s.Id, "kind": "handoff", "from_persona": s.FromPersona,
			"to_persona": s.ToPersona, "next": s.Next,
		}
	case *ast.SubFlowStep:
		return map[string]interface{}{
			"id": s.Id, "kind": "subflow", "flow": s.Flow,
			"on_success": targetToJSON(s.OnSuccess), "on_failure": onFailureToJSON(s.OnFailure),
		}
	case *ast.ParallelStep:
		branches := make([]interface{}, len(s.Branches))
		for i, b := range s.Branches {
			branches[i] = map[string]interface{}{"id": b.Id, "steps": stringsToJSON(b.Steps)}
		}
		return map[string]interface{}{
			"id": s.Id, "kind": "parallel", "branches": branches,
			"join": map[string]interface{}{
				"on_all_success": targetToJSON(s.Join.OnAllSuccess),
				"on_any_failure": targetToJSON(s.Join.OnAnyFailure),
			},
		}
	default:
		return nil
	}
}

func targetToJSON(t ast.StepTarget) interface{} {
	if t.IsTerminal() {
		return map[string]interface{}{"terminal": t.Terminal}
	}
	return map[string]interface{}{"step": t.StepID}
}

func onFailureToJSON(of ast.OnFailure) interface{} {
	m := map[string]interface{}{"kind": string(of.Kind)}
	switch of.Kind {
	case ast.OnFailureTerminate:
		m["terminal"] = of.Terminal
	case ast.OnFailureEscalate:
		m["to_persona"] = of.ToPersona
		m["next"] = of.Next
	case ast.OnFailureCompensate:
		m["compensation"] = stringsToJSON(of.Compensation)
	}
	return m
}
