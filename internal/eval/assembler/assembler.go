// Package assembler implements the Fact Assembler (spec §4.8): it
// consumes raw JSON-decoded input values plus the bundle's resolved fact
// types and produces an immutable eval.FactSet, applying declared
// defaults and coercing each raw value per the declared type: Int from a
// JSON number, Decimal from a decimal string, Money from an
// {amount, currency} object. JSON numbers are rejected for Decimal and
// Money.
package assembler

import (
	"fmt"

	"github.com/tenor-lang/tenor/internal/decimal"
	"github.com/tenor-lang/tenor/internal/diag"
	"github.com/tenor-lang/tenor/internal/elaborate"
	"github.com/tenor-lang/tenor/internal/eval"
	"github.com/tenor-lang/tenor/internal/lang/ast"
)

// Assemble builds a FactSet from raw, already-JSON-decoded input values
// (fact_id -> value, per spec §6's facts.json shape), type-checking and
// defaulting each declared fact.
func Assemble(idx *elaborate.Index, res *elaborate.Resolved, raw map[string]interface{}, defaults map[string]ast.Expr) (*eval.FactSet, []diag.Diagnostic) {
	var bag diag.Bag
	values := map[string]eval.Value{}

	for id, decl := range idx.Facts {
		t := res.FactTypes[id]
		rawVal, present := raw[id]
		if !present {
			if decl.Default != nil {
				values[id] = evalLiteralDefault(decl.Default)
				continue
			}
			bag.Add(diag.New(diag.KindEval, "assemble", "missing fact \""+id+"\"").On("fact", id).Build())
			continue
		}
		v, err := coerce(rawVal, t)
		if err != nil {
			bag.Add(diag.New(diag.KindEval, "assemble",
				"fact \""+id+"\": "+err.Error()).On("fact", id).
				Classify(diag.ClassNonRetryable).Build())
			continue
		}
		values[id] = v
	}

	if !bag.Empty() {
		return nil, bag.Sorted()
	}
	return eval.NewFactSet(values), nil
}

func evalLiteralDefault(e ast.Expr) eval.Value {
	switch v := e.(type) {
	case ast.BoolLit:
		return v.Value
	case ast.IntLit:
		return v.Value
	case ast.StringLit:
		return v.Value
	case ast.DecimalLit:
		d, _ := decimal.Parse(v.Raw, decimal.LiteralType(v.Raw))
		return d
	default:
		return nil
	}
}

// coerce converts a raw JSON-decoded value to the Value representation
// matching t, per spec §4.8/§6 (Decimal and Money arrive as strings;
// everything else arrives as its natural JSON shape).
func coerce(raw interface{}, t ast.TypeExpr) (eval.Value, error) {
	switch tt := t.(type) {
	case ast.BoolType:
		b, ok := raw.(bool)
		if !ok {
			return nil, fmt.Errorf("expected Bool, got %T", raw)
		}
		return b, nil
	case ast.IntType:
		n, ok := asInt64(raw)
		if !ok {
			return nil, fmt.Errorf("expected Int, got %T", raw)
		}
		if tt.Min != nil && n < *tt.Min {
			return nil, fmt.Errorf("value %d below declared minimum %d", n, *tt.Min)
		}
		if tt.Max != nil && n > *tt.Max {
			return nil, fmt.Errorf("value %d above declared maximum %d", n, *tt.Max)
		}
		return n, nil
	case ast.DecimalType:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected Decimal as string, got %T", raw)
		}
		d, err := decimal.Parse(s, decimal.Type{Precision: tt.Precision, Scale: tt.Scale})
		if err != nil {
			return nil, err
		}
		return d, nil
	case ast.MoneyType:
		m, ok := raw.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("expected Money object, got %T", raw)
		}
		amountStr, _ := m["amount"].(string)
		currency, _ := m["currency"].(string)
		if tt.Currency != "" && currency != tt.Currency {
			return nil, fmt.Errorf("currency mismatch: declared %q, got %q", tt.Currency, currency)
		}
		d, err := decimal.Parse(amountStr, decimal.Type{Precision: 28, Scale: 2})
		if err != nil {
			return nil, err
		}
		return decimal.NewMoney(currency, d), nil
	case ast.TextType:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected Text, got %T", raw)
		}
		if tt.MaxLength != nil && len(s) > *tt.MaxLength {
			return nil, fmt.Errorf("text length %d exceeds max %d", len(s), *tt.MaxLength)
		}
		return s, nil
	case ast.DateType, ast.DateTimeType:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected date/datetime string, got %T", raw)
		}
		return s, nil
	case ast.DurationType:
		n, ok := asInt64(raw)
		if !ok {
			return nil, fmt.Errorf("expected Duration as integer, got %T", raw)
		}
		return n, nil
	case ast.EnumType:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected Enum value as string, got %T", raw)
		}
		for _, v := range tt.Values {
			if v == s {
				return s, nil
			}
		}
		return nil, fmt.Errorf("value %q is not one of the declared enum values", s)
	case ast.ListType:
		arr, ok := raw.([]interface{})
		if !ok {
			return nil, fmt.Errorf("expected List, got %T", raw)
		}
		if tt.MaxLength != nil && len(arr) > *tt.MaxLength {
			return nil, fmt.Errorf("list length %d exceeds max %d", len(arr), *tt.MaxLength)
		}
		out := make([]eval.Value, len(arr))
		for i, elem := range arr {
			v, err := coerce(elem, tt.Elem)
			if err != nil {
				return nil, fmt.Errorf("list element %d: %w", i, err)
			}
			out[i] = v
		}
		return out, nil
	case ast.RecordType:
		obj, ok := raw.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("expected Record, got %T", raw)
		}
		out := map[string]eval.Value{}
		for _, f := range tt.Fields {
			fv, present := obj[f.Name]
			if !present {
				return nil, fmt.Errorf("record missing field %q", f.Name)
			}
			v, err := coerce(fv, f.Type)
			if err != nil {
				return nil, fmt.Errorf("field %q: %w", f.Name, err)
			}
			out[f.Name] = v
		}
		return out, nil
	case ast.TaggedUnionType:
		obj, ok := raw.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("expected TaggedUnion object, got %T", raw)
		}
		tag, _ := obj[tt.TagField].(string)
		for _, variant := range tt.Variants {
			if variant.Tag == tag {
				return coerce(obj, variant.Record)
			}
		}
		return nil, fmt.Errorf("tag %q does not match any declared variant", tag)
	default:
		return nil, fmt.Errorf("unresolved or unsupported type %T", t)
	}
}

func asInt64(raw interface{}) (int64, bool) {
	switch n := raw.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}
