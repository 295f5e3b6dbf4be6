// Package decimal provides the fixed-point Decimal and Money types the
// evaluator uses for all arithmetic. Native binary floating point never
// appears on an evaluation path (spec §9: "Decimal math library, not
// floats").
package decimal

import (
	"fmt"
	"strings"

	shopspring "github.com/shopspring/decimal"
)

// MaxPrecision is the largest total digit count a Decimal(precision,scale)
// type may declare (spec §3).
const MaxPrecision = 28

// Type describes a Decimal's declared precision and scale. Two Decimal
// values of different Type may still compare equal (cross-scale equality,
// spec S4) but arithmetic between them promotes per the elaborator's
// numeric-promotion rules (spec §4.5).
type Type struct {
	Precision int
	Scale     int
}

// Validate checks the (precision, scale) pair against spec §3's bounds.
func (t Type) Validate() error {
	if t.Precision < 1 || t.Precision > MaxPrecision {
		return fmt.Errorf("decimal: precision %d out of range [1,%d]", t.Precision, MaxPrecision)
	}
	if t.Scale < 0 || t.Scale > t.Precision {
		return fmt.Errorf("decimal: scale %d out of range [0,%d]", t.Scale, t.Precision)
	}
	return nil
}

// Decimal is a fixed-point value tagged with the declared type it was
// produced under. Arithmetic results carry the promoted type computed by
// the caller (the elaborator statically infers it; the evaluator
// recomputes the same formula so the two always agree).
type Decimal struct {
	Type  Type
	Value shopspring.Decimal
}

// Parse builds a Decimal from the exact string representation preserved by
// the lexer/serializer (spec §4.1, §4.7: literals are "parsed as exact
// strings until type-checking").
func Parse(s string, t Type) (Decimal, error) {
	if err := t.Validate(); err != nil {
		return Decimal{}, err
	}
	v, err := shopspring.NewFromString(s)
	if err != nil {
		return Decimal{}, fmt.Errorf("decimal: invalid literal %q: %w", s, err)
	}
	return Decimal{Type: t, Value: v}, nil
}

// LiteralType computes the minimal (precision, scale) a decimal literal's
// exact string representation needs: scale is the digit count after the
// point, precision is the total significant digit count (integer digits
// plus scale). A literal is never typed at a blanket MaxPrecision — spec.md's
// "2.5" * "2.5" worked example would overflow promotedType's
// precision+scale sum on the very first literal-times-literal expression if
// it were.
func LiteralType(raw string) Type {
	s := strings.TrimPrefix(strings.TrimPrefix(raw, "-"), "+")

	intPart := s
	scale := 0
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart = s[:i]
		scale = len(s) - i - 1
	}

	intDigits := len(strings.TrimLeft(intPart, "0"))
	if intDigits == 0 {
		intDigits = 1
	}

	precision := intDigits + scale
	if precision < 1 {
		precision = 1
	}
	return Type{Precision: precision, Scale: scale}
}

// FromInt promotes an Int to Decimal(n,0), per the Decimal×Int promotion
// rule in spec §4.5.
func FromInt(n int64) Decimal {
	return Decimal{Type: Type{Precision: 19, Scale: 0}, Value: shopspring.NewFromInt(n)}
}

// String renders the exact decimal string at the value's declared scale.
func (d Decimal) String() string {
	return d.Value.StringFixed(int32(d.Type.Scale))
}

// Equal compares two Decimals by numeric value regardless of declared
// scale (spec S4: cross-scale decimal equality).
func (d Decimal) Equal(o Decimal) bool {
	return d.Value.Equal(o.Value)
}

func (d Decimal) Cmp(o Decimal) int {
	return d.Value.Cmp(o.Value)
}

// promotedType computes the result type of a Decimal op Decimal per
// spec §4.5: Decimal(p,s) op Decimal(p',s') -> Decimal(p+s', s+s'),
// validated against MaxPrecision.
func promotedType(a, b Type) (Type, error) {
	rt := Type{Precision: a.Precision + b.Scale, Scale: a.Scale + b.Scale}
	if rt.Precision > MaxPrecision {
		return Type{}, fmt.Errorf("decimal: result precision %d exceeds %d", rt.Precision, MaxPrecision)
	}
	return rt, nil
}

// Add returns a+b rounded banker's-half-to-even at the promoted scale.
func (d Decimal) Add(o Decimal) (Decimal, error) {
	rt, err := promotedType(d.Type, o.Type)
	if err != nil {
		return Decimal{}, err
	}
	sum := d.Value.Add(o.Value)
	return Decimal{Type: rt, Value: sum.RoundBank(int32(rt.Scale))}, nil
}

// Mul returns a*b rounded banker's-half-to-even at the promoted scale
// (spec S5: the mandatory half-to-even rounding rule).
func (d Decimal) Mul(o Decimal) (Decimal, error) {
	rt, err := promotedType(d.Type, o.Type)
	if err != nil {
		return Decimal{}, err
	}
	prod := d.Value.Mul(o.Value)
	return Decimal{Type: rt, Value: prod.RoundBank(int32(rt.Scale))}, nil
}

// RoundTo rebounds d to an explicit target scale using banker's rounding,
// used when a caller needs a result at a scale other than the naturally
// promoted one (e.g. a verdict payload type narrower than the computation).
func (d Decimal) RoundTo(scale int) Decimal {
	return Decimal{Type: Type{Precision: d.Type.Precision, Scale: scale}, Value: d.Value.RoundBank(int32(scale))}
}

// Money pairs a Decimal amount with a currency tag; there is no
// per-currency scale, and MulScalar rounds to scale 2 for every currency. Money comparisons and arithmetic require identical
// currencies (spec §4.5); Money×Money is undefined and never constructed.
type Money struct {
	Currency string
	Amount   Decimal
}

func NewMoney(currency string, amount Decimal) Money {
	return Money{Currency: currency, Amount: amount}
}

// Equal requires identical currency; a currency mismatch is a type error
// caught at elaboration (spec §4.5), so by the time Money values reach the
// evaluator a mismatch here indicates a bundle-inconsistency bug.
func (m Money) Equal(o Money) (bool, error) {
	if m.Currency != o.Currency {
		return false, fmt.Errorf("decimal: currency mismatch %q vs %q", m.Currency, o.Currency)
	}
	return m.Amount.Equal(o.Amount), nil
}

// MulScalar returns Money × Int scalar, preserving currency (spec §4.5).
func (m Money) MulScalar(scalar int64) (Money, error) {
	product, err := m.Amount.Mul(FromInt(scalar))
	if err != nil {
		return Money{}, err
	}
	return Money{Currency: m.Currency, Amount: product.RoundTo(2)}, nil
}

func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Currency, m.Amount.String())
}
