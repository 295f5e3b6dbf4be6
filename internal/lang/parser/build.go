package parser

import (
	"strconv"

	"github.com/tenor-lang/tenor/internal/lang/ast"
	"github.com/tenor-lang/tenor/internal/lang/lexer"
)

func (p *Parser) buildFact(id string, pos ast.Pos, fs []field) *ast.FactDecl {
	d := &ast.FactDecl{Id: id, Pos: pos}
	if f, ok := findField(fs, "type"); ok {
		d.Type = fieldSub(f).parseTypeExpr()
	}
	if f, ok := findField(fs, "source"); ok {
		d.Source = rawString(f)
	}
	if f, ok := findField(fs, "default"); ok {
		d.Default = fieldSub(f).parseExpr()
	}
	if f, ok := findField(fs, "enum"); ok {
		d.EnumVals = parseIdentList(f)
	}
	return d
}

func (p *Parser) buildEntity(id string, pos ast.Pos, fs []field) *ast.EntityDecl {
	d := &ast.EntityDecl{Id: id, Pos: pos}
	if f, ok := findField(fs, "states"); ok {
		d.States = parseIdentList(f)
	}
	if f, ok := findField(fs, "initial"); ok {
		d.Initial = rawWord(f)
	}
	if f, ok := findField(fs, "transitions"); ok {
		d.Transitions = parseTransitionList(f)
	}
	return d
}

func parseTransitionList(f field) []ast.EntityTransition {
	sub := fieldSub(f)
	var out []ast.EntityTransition
	sub.expectPunct("[")
	for !sub.isPunct("]") && !sub.atEOF() {
		from, _ := sub.expectWord()
		sub.expectPunct("->")
		to, _ := sub.expectWord()
		out = append(out, ast.EntityTransition{From: from, To: to})
		if sub.isPunct(",") {
			sub.advance()
		}
	}
	return out
}

func (p *Parser) buildRule(id string, pos ast.Pos, fs []field) *ast.RuleDecl {
	d := &ast.RuleDecl{Id: id, Pos: pos}
	if f, ok := findField(fs, "stratum"); ok {
		n, _ := strconv.Atoi(rawWord(f))
		d.Stratum = n
	}
	if f, ok := findField(fs, "when"); ok {
		d.Condition = fieldSub(f).parseExpr()
	}
	if f, ok := findField(fs, "produce"); ok {
		sub := fieldSub(f)
		vt, _ := sub.expectWord()
		d.VerdictType = vt
		if sub.isPunct("=") {
			sub.advance()
			d.PayloadExpr = sub.parseExpr()
		}
	}
	return d
}

func (p *Parser) buildOperation(id string, pos ast.Pos, fs []field) *ast.OperationDecl {
	d := &ast.OperationDecl{Id: id, Pos: pos}
	if f, ok := findField(fs, "personas"); ok {
		d.AllowedPersonas = parseIdentList(f)
	}
	if f, ok := findField(fs, "precondition"); ok {
		d.Precondition = fieldSub(f).parseExpr()
	}
	if f, ok := findField(fs, "effects"); ok {
		d.Effects = parseEffectList(f)
	}
	if f, ok := findField(fs, "outcomes"); ok {
		d.Outcomes = parseIdentList(f)
	}
	if f, ok := findField(fs, "errors"); ok {
		d.ErrorContract = parseIdentList(f)
	}
	return d
}

func parseEffectList(f field) []ast.EffectSpec {
	sub := fieldSub(f)
	var out []ast.EffectSpec
	sub.expectPunct("[")
	for !sub.isPunct("]") && !sub.atEOF() {
		entity, _ := sub.expectWord()
		sub.expectPunct(":")
		from, _ := sub.expectWord()
		sub.expectPunct("->")
		to, _ := sub.expectWord()
		spec := ast.EffectSpec{EntityID: entity, From: from, To: to}
		if sub.isPunct("[") {
			sub.advance()
			for !sub.isPunct("]") && !sub.atEOF() {
				oc, _ := sub.expectWord()
				spec.Outcomes = append(spec.Outcomes, oc)
				if sub.isPunct(",") {
					sub.advance()
				}
			}
			sub.expectPunct("]")
		}
		out = append(out, spec)
		if sub.isPunct(",") {
			sub.advance()
		}
	}
	return out
}

func (p *Parser) buildFlow(id string, pos ast.Pos, fs []field) *ast.FlowDecl {
	d := &ast.FlowDecl{Id: id, Pos: pos, Steps: map[string]ast.Step{}}
	if f, ok := findField(fs, "persona"); ok {
		d.InitiatingPersona = rawWord(f)
	}
	if f, ok := findField(fs, "entry"); ok {
		d.Entry = rawWord(f)
	}
	if f, ok := findField(fs, "steps"); ok {
		d.Steps, d.StepOrder = parseStepMap(f)
	}
	return d
}

func parseStepMap(f field) (map[string]ast.Step, []string) {
	sub := fieldSub(f)
	steps := map[string]ast.Step{}
	var order []string
	sub.expectPunct("{")
	for !sub.isPunct("}") && !sub.atEOF() {
		id, _ := sub.expectWord()
		kind, _ := sub.expectWord()
		sub.expectPunct("{")
		body := sub.parseFields()
		sub.expectPunct("}")
		step := buildStep(id, kind, body)
		if step != nil {
			steps[id] = step
			order = append(order, id)
		}
	}
	return steps, order
}

func buildStep(id, kind string, fs []field) ast.Step {
	switch ast.StepKind(kind) {
	case ast.StepOperation:
		s := &ast.OperationStep{Id: id, Outcomes: map[string]ast.StepTarget{}}
		if f, ok := findField(fs, "op"); ok {
			s.Op = rawWord(f)
		}
		if f, ok := findField(fs, "persona"); ok {
			s.Persona = rawWord(f)
		}
		if f, ok := findField(fs, "outcomes"); ok {
			s.Outcomes = parseTargetMap(f)
		}
		if f, ok := findField(fs, "on_failure"); ok {
			s.OnFailure = parseOnFailure(f)
		}
		return s
	case ast.StepBranch:
		s := &ast.BranchStep{Id: id}
		if f, ok := findField(fs, "condition"); ok {
			s.Condition = fieldSub(f).parseExpr()
		}
		if f, ok := findField(fs, "if_true"); ok {
			s.IfTrue = parseTarget(fieldSub(f))
		}
		if f, ok := findField(fs, "if_false"); ok {
			s.IfFalse = parseTarget(fieldSub(f))
		}
		return s
	case ast.StepHandoff:
		s := &ast.HandoffStep{Id: id}
		if f, ok := findField(fs, "from_persona"); ok {
			s.FromPersona = rawWord(f)
		}
		if f, ok := findField(fs, "to_persona"); ok {
			s.ToPersona = rawWord(f)
		}
		if f, ok := findField(fs, "next"); ok {
			s.Next = rawWord(f)
		}
		return s
	case ast.StepSubFlow:
		s := &ast.SubFlowStep{Id: id}
		if f, ok := findField(fs, "flow"); ok {
			s.Flow = rawWord(f)
		}
		if f, ok := findField(fs, "on_success"); ok {
			s.OnSuccess = parseTarget(fieldSub(f))
		}
		if f, ok := findField(fs, "on_failure"); ok {
			s.OnFailure = parseOnFailure(f)
		}
		return s
	case ast.StepParallel:
		s := &ast.ParallelStep{Id: id}
		if f, ok := findField(fs, "branches"); ok {
			s.Branches = parseBranchList(f)
		}
		if f, ok := findField(fs, "join"); ok {
			s.Join = parseJoin(f)
		}
		return s
	default:
		return nil
	}
}

func parseTargetMap(f field) map[string]ast.StepTarget {
	sub := fieldSub(f)
	out := map[string]ast.StepTarget{}
	sub.expectPunct("{")
	for !sub.isPunct("}") && !sub.atEOF() {
		label, _ := sub.expectWord()
		sub.expectPunct(":")
		out[label] = parseTargetInline(sub)
		if sub.isPunct(",") {
			sub.advance()
		}
	}
	sub.expectPunct("}")
	return out
}

func parseTargetInline(sub *Parser) ast.StepTarget {
	if sub.isWord("Terminal") {
		sub.advance()
		sub.expectPunct("(")
		outcome, _ := sub.expectWord()
		sub.expectPunct(")")
		return ast.StepTarget{Terminal: outcome}
	}
	stepID, _ := sub.expectWord()
	return ast.StepTarget{StepID: stepID}
}

func parseTarget(sub *Parser) ast.StepTarget {
	return parseTargetInline(sub)
}

func parseOnFailure(f field) ast.OnFailure {
	sub := fieldSub(f)
	kind, _ := sub.expectWord()
	of := ast.OnFailure{Kind: ast.OnFailureKind(kind)}
	switch of.Kind {
	case ast.OnFailureTerminate:
		sub.expectPunct("(")
		of.Terminal, _ = sub.expectWord()
		sub.expectPunct(")")
	case ast.OnFailureEscalate:
		sub.expectPunct("(")
		of.ToPersona, _ = sub.expectWord()
		if sub.isPunct(",") {
			sub.advance()
			of.Next, _ = sub.expectWord()
		}
		sub.expectPunct(")")
	case ast.OnFailureCompensate:
		sub.expectPunct("(")
		for !sub.isPunct(")") && !sub.atEOF() {
			id, _ := sub.expectWord()
			of.Compensation = append(of.Compensation, id)
			if sub.isPunct(",") {
				sub.advance()
			}
		}
		sub.expectPunct(")")
	}
	return of
}

func parseBranchList(f field) []ast.ParallelBranch {
	sub := fieldSub(f)
	var out []ast.ParallelBranch
	sub.expectPunct("[")
	for !sub.isPunct("]") && !sub.atEOF() {
		id, _ := sub.expectWord()
		sub.expectPunct(":")
		sub.expectPunct("[")
		var steps []string
		for !sub.isPunct("]") && !sub.atEOF() {
			s, _ := sub.expectWord()
			steps = append(steps, s)
			if sub.isPunct(",") {
				sub.advance()
			}
		}
		sub.expectPunct("]")
		out = append(out, ast.ParallelBranch{Id: id, Steps: steps})
		if sub.isPunct(",") {
			sub.advance()
		}
	}
	sub.expectPunct("]")
	return out
}

func parseJoin(f field) ast.ParallelJoin {
	sub := fieldSub(f)
	j := ast.ParallelJoin{}
	sub.expectPunct("{")
	for !sub.isPunct("}") && !sub.atEOF() {
		name, _ := sub.expectWord()
		sub.expectPunct(":")
		target := parseTargetInline(sub)
		switch name {
		case "on_all_success":
			j.OnAllSuccess = target
		case "on_any_failure":
			j.OnAnyFailure = target
		}
		if sub.isPunct(",") {
			sub.advance()
		}
	}
	sub.expectPunct("}")
	return j
}

func (p *Parser) buildTypeDecl(id string, pos ast.Pos, fs []field) *ast.TypeDecl {
	d := &ast.TypeDecl{Id: id, Pos: pos}
	if f, ok := findField(fs, "body"); ok {
		d.Body = fieldSub(f).parseTypeExpr()
	}
	return d
}

func (p *Parser) buildSystem(id string, pos ast.Pos, fs []field) *ast.SystemDecl {
	d := &ast.SystemDecl{Id: id, Pos: pos}
	if f, ok := findField(fs, "members"); ok {
		d.Members = parseIdentList(f)
	}
	if f, ok := findField(fs, "shared_personas"); ok {
		d.SharedPersonas = parseIdentList(f)
	}
	if f, ok := findField(fs, "shared_entities"); ok {
		d.SharedEntities = parseIdentList(f)
	}
	if f, ok := findField(fs, "triggers"); ok {
		d.Triggers = parseTriggerList(f)
	}
	return d
}

func parseTriggerList(f field) []ast.SystemTrigger {
	sub := fieldSub(f)
	var out []ast.SystemTrigger
	sub.expectPunct("[")
	for !sub.isPunct("]") && !sub.atEOF() {
		sc, _ := sub.expectWord()
		sub.expectPunct(".")
		sf, _ := sub.expectWord()
		sub.expectPunct("->")
		tc, _ := sub.expectWord()
		sub.expectPunct(".")
		tf, _ := sub.expectWord()
		out = append(out, ast.SystemTrigger{SourceContract: sc, SourceFlow: sf, TargetContract: tc, TargetFlow: tf})
		if sub.isPunct(",") {
			sub.advance()
		}
	}
	sub.expectPunct("]")
	return out
}

func parseIdentList(f field) []string {
	sub := fieldSub(f)
	var out []string
	sub.expectPunct("[")
	for !sub.isPunct("]") && !sub.atEOF() {
		t := sub.cur()
		if t.Kind == lexer.String {
			out = append(out, t.Text)
			sub.advance()
		} else {
			w, ok := sub.expectWord()
			if !ok {
				break
			}
			out = append(out, w)
		}
		if sub.isPunct(",") {
			sub.advance()
		}
	}
	sub.expectPunct("]")
	return out
}

func rawWord(f field) string {
	if len(f.toks) == 0 {
		return ""
	}
	return f.toks[0].Text
}

func rawString(f field) string {
	if len(f.toks) == 0 {
		return ""
	}
	return f.toks[0].Text
}
