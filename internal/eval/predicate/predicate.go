// Package predicate implements the Predicate Evaluator (spec §4.9): a pure
// function over (expr, FactSet, VerdictSet, ProvenanceCollector). It
// short-circuits And/Or, uses fixed-point decimal arithmetic exclusively,
// and records every fact_ref/verdict_present it encounters into the
// collector — building provenance during evaluation rather than
// reconstructing it afterward (spec §9), the same discipline the
// grounding repo's deterministic-predicate validator enforces for its own
// closed function set.
package predicate

import (
	"fmt"

	"github.com/tenor-lang/tenor/internal/decimal"
	"github.com/tenor-lang/tenor/internal/eval"
	"github.com/tenor-lang/tenor/internal/lang/ast"
)

// Collector accumulates the derivation chain for one predicate evaluation:
// every fact and verdict read along the way. It is threaded through the
// recursion by value-sharing (a pointer), never reconstructed afterward.
type Collector struct {
	Facts    []string
	Verdicts []string
	seenFact map[string]bool
	seenVerd map[string]bool
}

func NewCollector() *Collector {
	return &Collector{seenFact: map[string]bool{}, seenVerd: map[string]bool{}}
}

func (c *Collector) recordFact(id string) {
	if !c.seenFact[id] {
		c.seenFact[id] = true
		c.Facts = append(c.Facts, id)
	}
}

func (c *Collector) recordVerdict(id string) {
	if !c.seenVerd[id] {
		c.seenVerd[id] = true
		c.Verdicts = append(c.Verdicts, id)
	}
}

// Eval evaluates e against (facts, verdicts), recording provenance into c.
// Arithmetic and comparison are fixed-point decimal only — native float
// never appears here (spec §9).
func Eval(e ast.Expr, facts *eval.FactSet, verdicts *eval.VerdictSet, c *Collector) (eval.Value, error) {
	switch v := e.(type) {
	case ast.BoolLit:
		return v.Value, nil
	case ast.IntLit:
		return v.Value, nil
	case ast.DecimalLit:
		return decimal.Parse(v.Raw, decimal.LiteralType(v.Raw))
	case ast.StringLit:
		return v.Value, nil
	case ast.FactRef:
		c.recordFact(v.FactID)
		val, ok := facts.Get(v.FactID)
		if !ok {
			return nil, fmt.Errorf("predicate: fact %q not present in assembled FactSet", v.FactID)
		}
		return val, nil
	case ast.VerdictPresent:
		c.recordVerdict(v.VerdictType)
		return verdicts.Present(v.VerdictType), nil
	case ast.NotExpr:
		operand, err := Eval(v.Operand, facts, verdicts, c)
		if err != nil {
			return nil, err
		}
		b, ok := operand.(bool)
		if !ok {
			return nil, fmt.Errorf("predicate: not operand is not Bool")
		}
		return !b, nil
	case ast.QuantifierExpr:
		return evalQuantifier(v, facts, verdicts, c)
	case ast.BinaryExpr:
		return evalBinary(v, facts, verdicts, c)
	default:
		return nil, fmt.Errorf("predicate: unsupported expression node %T", e)
	}
}

// evalQuantifier implements spec §4.9: forall is vacuously true on an
// empty list, exists is vacuously false; no unbounded quantification — the
// bound is always the length of the referenced List-typed fact.
func evalQuantifier(q ast.QuantifierExpr, facts *eval.FactSet, verdicts *eval.VerdictSet, c *Collector) (eval.Value, error) {
	c.recordFact(q.ListFact)
	raw, ok := facts.Get(q.ListFact)
	if !ok {
		return nil, fmt.Errorf("predicate: quantifier fact %q not present", q.ListFact)
	}
	list, ok := raw.([]eval.Value)
	if !ok {
		return nil, fmt.Errorf("predicate: quantifier fact %q is not a List", q.ListFact)
	}

	switch q.Kind {
	case ast.QuantForall:
		for _, elem := range list {
			bound := facts.WithOverride(q.Var, elem)
			v, err := Eval(q.Body, bound, verdicts, c)
			if err != nil {
				return nil, err
			}
			b, _ := v.(bool)
			if !b {
				return false, nil
			}
		}
		return true, nil
	case ast.QuantExists:
		for _, elem := range list {
			bound := facts.WithOverride(q.Var, elem)
			v, err := Eval(q.Body, bound, verdicts, c)
			if err != nil {
				return nil, err
			}
			b, _ := v.(bool)
			if b {
				return true, nil
			}
		}
		return false, nil
	default:
		return nil, fmt.Errorf("predicate: unknown quantifier kind %q", q.Kind)
	}
}

func evalBinary(v ast.BinaryExpr, facts *eval.FactSet, verdicts *eval.VerdictSet, c *Collector) (eval.Value, error) {
	switch v.Op {
	case ast.OpAnd:
		l, err := Eval(v.Left, facts, verdicts, c)
		if err != nil {
			return nil, err
		}
		lb, _ := l.(bool)
		if !lb {
			return false, nil // short-circuit
		}
		r, err := Eval(v.Right, facts, verdicts, c)
		if err != nil {
			return nil, err
		}
		rb, _ := r.(bool)
		return rb, nil
	case ast.OpOr:
		l, err := Eval(v.Left, facts, verdicts, c)
		if err != nil {
			return nil, err
		}
		lb, _ := l.(bool)
		if lb {
			return true, nil // short-circuit
		}
		r, err := Eval(v.Right, facts, verdicts, c)
		if err != nil {
			return nil, err
		}
		rb, _ := r.(bool)
		return rb, nil
	}

	l, err := Eval(v.Left, facts, verdicts, c)
	if err != nil {
		return nil, err
	}
	r, err := Eval(v.Right, facts, verdicts, c)
	if err != nil {
		return nil, err
	}

	switch v.Op {
	case ast.OpEq, ast.OpNeq, ast.OpLt, ast.OpLte, ast.OpGt, ast.OpGte:
		return compare(v.Op, l, r)
	case ast.OpAdd:
		return arith(v.Op, l, r)
	case ast.OpMul:
		return arith(v.Op, l, r)
	default:
		return nil, fmt.Errorf("predicate: unknown binary operator %q", v.Op)
	}
}

func toDecimal(v eval.Value) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case decimal.Decimal:
		return t, true
	case int64:
		return decimal.FromInt(t), true
	default:
		return decimal.Decimal{}, false
	}
}

func compare(op ast.BinOp, l, r eval.Value) (eval.Value, error) {
	if lm, ok := l.(decimal.Money); ok {
		rm, ok := r.(decimal.Money)
		if !ok {
			return nil, fmt.Errorf("predicate: cannot compare Money to non-Money")
		}
		eq, err := lm.Equal(rm)
		if err != nil {
			return nil, err
		}
		switch op {
		case ast.OpEq:
			return eq, nil
		case ast.OpNeq:
			return !eq, nil
		default:
			cmp := lm.Amount.Cmp(rm.Amount)
			return compareInts(op, cmp), nil
		}
	}

	if ld, ok := toDecimal(l); ok {
		if rd, ok := toDecimal(r); ok {
			switch op {
			case ast.OpEq:
				return ld.Equal(rd), nil
			case ast.OpNeq:
				return !ld.Equal(rd), nil
			default:
				return compareInts(op, ld.Cmp(rd)), nil
			}
		}
	}

	if lb, ok := l.(bool); ok {
		rb, _ := r.(bool)
		switch op {
		case ast.OpEq:
			return lb == rb, nil
		case ast.OpNeq:
			return lb != rb, nil
		default:
			return nil, fmt.Errorf("predicate: ordering comparison on Bool is not defined")
		}
	}

	if ls, ok := l.(string); ok {
		rs, _ := r.(string)
		switch op {
		case ast.OpEq:
			return ls == rs, nil
		case ast.OpNeq:
			return ls != rs, nil
		case ast.OpLt:
			return ls < rs, nil
		case ast.OpLte:
			return ls <= rs, nil
		case ast.OpGt:
			return ls > rs, nil
		case ast.OpGte:
			return ls >= rs, nil
		}
	}

	return nil, fmt.Errorf("predicate: unsupported comparison operand types %T, %T", l, r)
}

func compareInts(op ast.BinOp, cmp int) bool {
	switch op {
	case ast.OpLt:
		return cmp < 0
	case ast.OpLte:
		return cmp <= 0
	case ast.OpGt:
		return cmp > 0
	case ast.OpGte:
		return cmp >= 0
	default:
		return false
	}
}

// arith implements the numeric-promotion arithmetic of spec §4.5: Int op
// Int stays Int; any Decimal operand promotes per decimal.Decimal.Add/Mul;
// Money × Int scalar preserves currency.
func arith(op ast.BinOp, l, r eval.Value) (eval.Value, error) {
	if lm, ok := l.(decimal.Money); ok {
		if op != ast.OpMul {
			return nil, fmt.Errorf("predicate: Money only supports scalar multiplication")
		}
		scalar, ok := r.(int64)
		if !ok {
			return nil, fmt.Errorf("predicate: Money * non-Int scalar is undefined")
		}
		return lm.MulScalar(scalar)
	}

	li, lIsInt := l.(int64)
	ri, rIsInt := r.(int64)
	if lIsInt && rIsInt {
		switch op {
		case ast.OpAdd:
			return li + ri, nil
		case ast.OpMul:
			return li * ri, nil
		}
	}

	ld, lOK := toDecimal(l)
	rd, rOK := toDecimal(r)
	if lOK && rOK {
		switch op {
		case ast.OpAdd:
			return ld.Add(rd)
		case ast.OpMul:
			return ld.Mul(rd)
		}
	}

	return nil, fmt.Errorf("predicate: unsupported arithmetic operand types %T, %T", l, r)
}
