package elaborate

import (
	"github.com/tenor-lang/tenor/internal/decimal"
	"github.com/tenor-lang/tenor/internal/diag"
	"github.com/tenor-lang/tenor/internal/lang/ast"
)

// RunTypeCheck is Pass 4 (spec §4.5): it walks every predicate expression
// in every Rule condition/payload, Operation precondition, and Flow
// BranchStep condition, enforcing numeric promotion and requiring Bool for
// every condition.
func RunTypeCheck(idx *Index, res *Resolved) *diag.Bag {
	bag := &diag.Bag{}
	tc := &typeChecker{idx: idx, res: res, bag: bag}

	for id, r := range idx.Rules {
		t := tc.infer(r.Condition, "rule:"+id)
		tc.requireBool(t, "rule:"+id+" condition")
		if r.PayloadExpr != nil {
			tc.infer(r.PayloadExpr, "rule:"+id+" payload")
		}
	}
	for id, op := range idx.Operations {
		if op.Precondition != nil {
			t := tc.infer(op.Precondition, "operation:"+id)
			tc.requireBool(t, "operation:"+id+" precondition")
		}
	}
	for id, f := range idx.Flows {
		for _, step := range f.Steps {
			if bs, ok := step.(*ast.BranchStep); ok {
				t := tc.infer(bs.Condition, "flow:"+id+" branch:"+bs.Id)
				tc.requireBool(t, "flow:"+id+" branch "+bs.Id+" condition")
			}
		}
	}
	return bag
}

type typeChecker struct {
	idx *Index
	res *Resolved
	bag *diag.Bag
}

func (tc *typeChecker) requireBool(t ast.TypeExpr, where string) {
	if _, ok := t.(ast.BoolType); !ok && t != nil {
		tc.bag.Add(diag.New(diag.KindTypeCheck, "typecheck", where+" must have type Bool").Build())
	}
}

// infer computes the static type of e, reporting diagnostics for unresolved
// references, currency mismatches, and precision overflow (spec §4.5).
// It returns nil when the expression's type cannot be determined (after
// already reporting why).
func (tc *typeChecker) infer(e ast.Expr, where string) ast.TypeExpr {
	switch v := e.(type) {
	case ast.BoolLit:
		return ast.BoolType{}
	case ast.IntLit:
		return ast.IntType{}
	case ast.DecimalLit:
		lt := decimal.LiteralType(v.Raw)
		return ast.DecimalType{Precision: lt.Precision, Scale: lt.Scale}
	case ast.StringLit:
		return ast.TextType{}
	case ast.FactRef:
		t, ok := tc.res.FactTypes[v.FactID]
		if !ok {
			tc.bag.Add(diag.New(diag.KindTypeCheck, "typecheck",
				where+": unresolved fact reference \""+v.FactID+"\"").On("fact", v.FactID).Build())
			return nil
		}
		return t
	case ast.VerdictPresent:
		if _, ok := tc.idx.Rules[verdictProducer(tc.idx, v.VerdictType)]; !ok {
			tc.bag.Add(diag.New(diag.KindTypeCheck, "typecheck",
				where+": verdict_present references undeclared verdict \""+v.VerdictType+"\"").Build())
		}
		return ast.BoolType{}
	case ast.NotExpr:
		t := tc.infer(v.Operand, where)
		tc.requireBool(t, where+" not-operand")
		return ast.BoolType{}
	case ast.QuantifierExpr:
		listType, ok := tc.res.FactTypes[v.ListFact]
		if !ok {
			tc.bag.Add(diag.New(diag.KindTypeCheck, "typecheck",
				where+": quantifier over unresolved fact \""+v.ListFact+"\"").Build())
			return ast.BoolType{}
		}
		if _, ok := listType.(ast.ListType); !ok {
			tc.bag.Add(diag.New(diag.KindTypeCheck, "typecheck",
				where+": quantifier fact \""+v.ListFact+"\" is not List-typed").Build())
		}
		tc.infer(v.Body, where+" quantifier body")
		return ast.BoolType{}
	case ast.BinaryExpr:
		return tc.inferBinary(v, where)
	default:
		return nil
	}
}

func (tc *typeChecker) inferBinary(v ast.BinaryExpr, where string) ast.TypeExpr {
	lt := tc.infer(v.Left, where)
	rt := tc.infer(v.Right, where)

	switch v.Op {
	case ast.OpAnd, ast.OpOr:
		tc.requireBool(lt, where+" left operand")
		tc.requireBool(rt, where+" right operand")
		return ast.BoolType{}
	case ast.OpEq, ast.OpNeq, ast.OpLt, ast.OpLte, ast.OpGt, ast.OpGte:
		tc.checkComparable(lt, rt, where)
		tc.annotateComparison(v, lt, rt)
		return ast.BoolType{}
	case ast.OpAdd, ast.OpMul:
		return tc.inferArithmetic(lt, rt, where)
	default:
		return nil
	}
}

// checkComparable enforces: Int vs Decimal promotes (always legal); Money
// comparison requires identical currency (spec §4.5).
func (tc *typeChecker) checkComparable(lt, rt ast.TypeExpr, where string) {
	if lt == nil || rt == nil {
		return
	}
	lm, lok := lt.(ast.MoneyType)
	rm, rok := rt.(ast.MoneyType)
	if lok && rok {
		if lm.Currency != "" && rm.Currency != "" && lm.Currency != rm.Currency {
			tc.bag.Add(diag.New(diag.KindTypeCheck, "typecheck",
				where+": currency mismatch comparing Money("+lm.Currency+") to Money("+rm.Currency+")").Build())
		}
		return
	}
	if lok != rok {
		tc.bag.Add(diag.New(diag.KindTypeCheck, "typecheck", where+": cannot compare Money to non-Money").Build())
	}
}

// annotateComparison records spec §4.5's Int-vs-Decimal promotion
// annotation: a comparison between one Int and one Decimal operand
// promotes the Int side, and the node is tagged comparison_type: Decimal
// for Pass 6 to serialize.
func (tc *typeChecker) annotateComparison(v ast.BinaryExpr, lt, rt ast.TypeExpr) {
	_, lInt := lt.(ast.IntType)
	_, rDec := rt.(ast.DecimalType)
	_, rInt := rt.(ast.IntType)
	_, lDec := lt.(ast.DecimalType)
	if (lInt && rDec) || (rInt && lDec) {
		tc.res.ComparisonTypes[v.Pos] = "Decimal"
	}
}

// inferArithmetic implements the numeric-promotion table of spec §4.5.
func (tc *typeChecker) inferArithmetic(lt, rt ast.TypeExpr, where string) ast.TypeExpr {
	if lt == nil || rt == nil {
		return nil
	}
	_, lInt := lt.(ast.IntType)
	_, rInt := rt.(ast.IntType)
	if lInt && rInt {
		return ast.IntType{}
	}

	ld, lDec := lt.(ast.DecimalType)
	rd, rDec := rt.(ast.DecimalType)
	if lDec && rInt {
		return ld
	}
	if rDec && lInt {
		return rd
	}
	if lDec && rDec {
		resultPrecision := ld.Precision + rd.Scale
		resultScale := ld.Scale + rd.Scale
		if resultPrecision > 28 {
			tc.bag.Add(diag.New(diag.KindTypeCheck, "typecheck",
				where+": decimal arithmetic result precision exceeds 28").Build())
		}
		return ast.DecimalType{Precision: resultPrecision, Scale: resultScale}
	}

	lmon, lMoney := lt.(ast.MoneyType)
	if lMoney && rInt {
		return lmon
	}
	rmon, rMoney := rt.(ast.MoneyType)
	if rMoney && lInt {
		return rmon
	}
	if lMoney && rMoney {
		tc.bag.Add(diag.New(diag.KindTypeCheck, "typecheck", where+": Money * Money is undefined").Build())
		return nil
	}

	tc.bag.Add(diag.New(diag.KindTypeCheck, "typecheck", where+": incompatible operand types for arithmetic").Build())
	return nil
}

func verdictProducer(idx *Index, verdictType string) string {
	for id, r := range idx.Rules {
		if r.VerdictType == verdictType {
			return id
		}
	}
	return ""
}
