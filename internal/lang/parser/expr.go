package parser

import (
	"strconv"

	"github.com/tenor-lang/tenor/internal/lang/ast"
	"github.com/tenor-lang/tenor/internal/lang/lexer"
)

// parseExpr parses the closed predicate grammar of spec §4.1/§4.9:
// comparisons, boolean connectives, `+`/`*` arithmetic, bounded
// quantifiers, fact_ref, verdict_present, and literals.
func (p *Parser) parseExpr() ast.Expr {
	return p.parseOr()
}

func (p *Parser) parseOr() ast.Expr {
	left := p.parseAnd()
	for p.isWord("or") {
		pos := p.curPos()
		p.advance()
		right := p.parseAnd()
		left = ast.BinaryExpr{Op: ast.OpOr, Left: left, Right: right, Pos: pos}
	}
	return left
}

func (p *Parser) parseAnd() ast.Expr {
	left := p.parseNot()
	for p.isWord("and") {
		pos := p.curPos()
		p.advance()
		right := p.parseNot()
		left = ast.BinaryExpr{Op: ast.OpAnd, Left: left, Right: right, Pos: pos}
	}
	return left
}

func (p *Parser) parseNot() ast.Expr {
	if p.isWord("not") {
		pos := p.curPos()
		p.advance()
		return ast.NotExpr{Operand: p.parseNot(), Pos: pos}
	}
	return p.parseCompare()
}

var compareOps = map[string]ast.BinOp{
	"==": ast.OpEq, "!=": ast.OpNeq,
	"<": ast.OpLt, "<=": ast.OpLte, ">": ast.OpGt, ">=": ast.OpGte,
}

func (p *Parser) parseCompare() ast.Expr {
	left := p.parseAdd()
	t := p.cur()
	if t.Kind == lexer.Punct {
		if op, ok := compareOps[t.Text]; ok {
			pos := p.curPos()
			p.advance()
			right := p.parseAdd()
			return ast.BinaryExpr{Op: op, Left: left, Right: right, Pos: pos}
		}
	}
	return left
}

func (p *Parser) parseAdd() ast.Expr {
	left := p.parseMul()
	for p.isPunct("+") {
		pos := p.curPos()
		p.advance()
		right := p.parseMul()
		left = ast.BinaryExpr{Op: ast.OpAdd, Left: left, Right: right, Pos: pos}
	}
	return left
}

func (p *Parser) parseMul() ast.Expr {
	left := p.parsePrimary()
	for p.isPunct("*") {
		pos := p.curPos()
		p.advance()
		right := p.parsePrimary()
		left = ast.BinaryExpr{Op: ast.OpMul, Left: left, Right: right, Pos: pos}
	}
	return left
}

func (p *Parser) parsePrimary() ast.Expr {
	pos := p.curPos()
	t := p.cur()

	switch {
	case t.Kind == lexer.Int:
		p.advance()
		n, err := strconv.ParseInt(t.Text, 10, 64)
		if err != nil {
			p.errorf("invalid integer literal %q", t.Text)
		}
		return ast.IntLit{Value: n, Pos: pos}
	case t.Kind == lexer.Decimal:
		p.advance()
		return ast.DecimalLit{Raw: t.Text, Pos: pos}
	case t.Kind == lexer.String:
		p.advance()
		return ast.StringLit{Value: t.Text, Pos: pos}
	case p.isWord("true"):
		p.advance()
		return ast.BoolLit{Value: true, Pos: pos}
	case p.isWord("false"):
		p.advance()
		return ast.BoolLit{Value: false, Pos: pos}
	case p.isWord("fact_ref"):
		p.advance()
		p.expectPunct("(")
		id, _ := p.expectWord()
		p.expectPunct(")")
		return ast.FactRef{FactID: id, Pos: pos}
	case p.isWord("verdict_present"):
		p.advance()
		p.expectPunct("(")
		id, _ := p.expectWord()
		p.expectPunct(")")
		return ast.VerdictPresent{VerdictType: id, Pos: pos}
	case p.isWord("forall") || p.isWord("exists"):
		kind := ast.QuantForall
		if p.isWord("exists") {
			kind = ast.QuantExists
		}
		p.advance()
		v, _ := p.expectWord()
		if !p.isWord("in") {
			p.errorf("expected 'in' in quantifier")
		} else {
			p.advance()
		}
		list, _ := p.expectWord()
		p.expectPunct(":")
		body := p.parseExpr()
		return ast.QuantifierExpr{Kind: kind, Var: v, ListFact: list, Body: body, Pos: pos}
	case p.isPunct("("):
		p.advance()
		e := p.parseExpr()
		p.expectPunct(")")
		return e
	default:
		p.errorf("unexpected token %q in expression", t.Text)
		p.advance()
		return ast.BoolLit{Value: false, Pos: pos}
	}
}

// parseTypeExpr parses the closed type-expression grammar of spec §3.
func (p *Parser) parseTypeExpr() ast.TypeExpr {
	switch {
	case p.isWord("Bool"):
		p.advance()
		return ast.BoolType{}
	case p.isWord("Int"):
		p.advance()
		t := ast.IntType{}
		if p.isPunct("[") {
			p.advance()
			lo := p.parseIntBound()
			p.expectPunct(",")
			hi := p.parseIntBound()
			p.expectPunct("]")
			t.Min, t.Max = lo, hi
		}
		return t
	case p.isWord("Decimal"):
		p.advance()
		p.expectPunct("(")
		prec := p.parseIntLiteral()
		p.expectPunct(",")
		scale := p.parseIntLiteral()
		p.expectPunct(")")
		return ast.DecimalType{Precision: prec, Scale: scale}
	case p.isWord("Money"):
		p.advance()
		cur := ""
		if p.isPunct("(") {
			p.advance()
			cur, _ = p.expectWord()
			p.expectPunct(")")
		}
		return ast.MoneyType{Currency: cur}
	case p.isWord("Text"):
		p.advance()
		t := ast.TextType{}
		if p.isPunct("[") {
			p.advance()
			n := p.parseIntLiteral()
			t.MaxLength = &n
			p.expectPunct("]")
		}
		return t
	case p.isWord("Date"):
		p.advance()
		return ast.DateType{}
	case p.isWord("DateTime"):
		p.advance()
		return ast.DateTimeType{}
	case p.isWord("Duration"):
		p.advance()
		unit := ast.DurationSeconds
		if p.isPunct("(") {
			p.advance()
			w, _ := p.expectWord()
			unit = ast.DurationUnit(w)
			p.expectPunct(")")
		}
		return ast.DurationType{Unit: unit}
	case p.isWord("Enum"):
		p.advance()
		p.expectPunct("[")
		var vals []string
		for !p.isPunct("]") && !p.atEOF() {
			v, _ := p.expectWord()
			vals = append(vals, v)
			if p.isPunct(",") {
				p.advance()
			}
		}
		p.expectPunct("]")
		return ast.EnumType{Values: vals}
	case p.isWord("Record"):
		p.advance()
		p.expectPunct("{")
		var fields []ast.RecordField
		for !p.isPunct("}") && !p.atEOF() {
			name, _ := p.expectWord()
			p.expectPunct(":")
			ft := p.parseTypeExpr()
			fields = append(fields, ast.RecordField{Name: name, Type: ft})
			if p.isPunct(",") {
				p.advance()
			}
		}
		p.expectPunct("}")
		return ast.RecordType{Fields: fields}
	case p.isWord("List"):
		p.advance()
		p.expectPunct("<")
		elem := p.parseTypeExpr()
		p.expectPunct(">")
		lt := ast.ListType{Elem: elem}
		if p.isPunct("[") {
			p.advance()
			n := p.parseIntLiteral()
			lt.MaxLength = &n
			p.expectPunct("]")
		}
		return lt
	case p.isWord("TaggedUnion"):
		p.advance()
		p.expectPunct("{")
		tagField, _ := p.expectWord()
		p.expectPunct(":")
		var variants []ast.TaggedVariant
		for !p.isPunct("}") && !p.atEOF() {
			tag, _ := p.expectWord()
			p.expectPunct("->")
			rt := p.parseTypeExpr()
			rec, _ := rt.(ast.RecordType)
			variants = append(variants, ast.TaggedVariant{Tag: tag, Record: rec})
			if p.isPunct(",") {
				p.advance()
			}
		}
		p.expectPunct("}")
		return ast.TaggedUnionType{TagField: tagField, Variants: variants}
	default:
		pos := p.curPos()
		name, _ := p.expectWord()
		return ast.NamedType{Name: name, Pos: pos}
	}
}

func (p *Parser) parseIntLiteral() int {
	t := p.cur()
	if t.Kind != lexer.Int {
		p.errorf("expected integer, found %q", t.Text)
		return 0
	}
	p.advance()
	n, _ := strconv.Atoi(t.Text)
	return n
}

func (p *Parser) parseIntBound() *int64 {
	if p.isWord("_") {
		p.advance()
		return nil
	}
	t := p.cur()
	if t.Kind != lexer.Int {
		p.errorf("expected integer bound, found %q", t.Text)
		return nil
	}
	p.advance()
	n, _ := strconv.ParseInt(t.Text, 10, 64)
	return &n
}
