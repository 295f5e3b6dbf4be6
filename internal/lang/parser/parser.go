// Package parser implements Tenor's recursive-descent parser (spec §4.1,
// Pass 1a): it turns a token stream into the typed ast.File, recording the
// file's import paths. Following those imports across files (and detecting
// cycles) is done by the elaborator's Bundle pass, not here.
//
// Grammar (informal): a file is a sequence of imports followed by a
// sequence of top-level constructs. A construct is
// `<kind-keyword> <id> { <field>* }` where each field is `name: value ;`.
// Expressions are the closed predicate grammar of spec §4.1/§4.9.
package parser

import (
	"fmt"

	"github.com/tenor-lang/tenor/internal/lang/ast"
	"github.com/tenor-lang/tenor/internal/lang/lexer"
)

type Parser struct {
	file   string
	toks   []lexer.Token
	pos    int
	errs   []error
}

func New(file string, toks []lexer.Token) *Parser {
	return &Parser{file: file, toks: toks}
}

func (p *Parser) Errors() []error { return p.errs }

func (p *Parser) errorf(format string, args ...interface{}) {
	t := p.cur()
	p.errs = append(p.errs, fmt.Errorf("%s:%d:%d: %s", p.file, t.Line, t.Column, fmt.Sprintf(format, args...)))
}

func (p *Parser) cur() lexer.Token {
	if p.pos >= len(p.toks) {
		return lexer.Token{Kind: lexer.EOF}
	}
	return p.toks[p.pos]
}

func (p *Parser) curPos() ast.Pos {
	t := p.cur()
	return ast.Pos{File: p.file, Line: t.Line, Column: t.Column}
}

func (p *Parser) advance() lexer.Token {
	t := p.cur()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *Parser) atEOF() bool { return p.cur().Kind == lexer.EOF }

func (p *Parser) isWord(text string) bool {
	t := p.cur()
	return t.Kind == lexer.Word && t.Text == text
}

func (p *Parser) isPunct(text string) bool {
	t := p.cur()
	return t.Kind == lexer.Punct && t.Text == text
}

func (p *Parser) expectPunct(text string) bool {
	if !p.isPunct(text) {
		p.errorf("expected %q, found %q", text, p.cur().Text)
		return false
	}
	p.advance()
	return true
}

func (p *Parser) expectWord() (string, bool) {
	t := p.cur()
	if t.Kind != lexer.Word {
		p.errorf("expected identifier, found %q", t.Text)
		return "", false
	}
	p.advance()
	return t.Text, true
}

// ParseFile parses one file's import list and constructs.
func (p *Parser) ParseFile() *ast.File {
	f := &ast.File{Path: p.file}
	for p.isWord("import") {
		pos := p.curPos()
		p.advance()
		t := p.cur()
		if t.Kind != lexer.String {
			p.errorf("expected string path after import")
			break
		}
		p.advance()
		f.Imports = append(f.Imports, ast.Import{Path: t.Text, Pos: pos})
	}
	for !p.atEOF() {
		start := p.pos
		c := p.parseConstruct()
		if c != nil {
			f.Constructs = append(f.Constructs, c)
		} else if !p.atEOF() {
			// Recover: skip to the next `<kind-keyword> <id> {` header after
			// the token that began the failed construct, to keep collecting
			// diagnostics across the whole file (spec §9 batched reporting).
			p.pos = start + 1
		skip:
			for ; !p.atEOF(); p.advance() {
				t := p.cur()
				switch ast.ConstructKind(t.Text) {
				case ast.KindFact, ast.KindEntity, ast.KindPersona, ast.KindRule,
					ast.KindOperation, ast.KindFlow, ast.KindType, ast.KindSystem:
					if t.Kind == lexer.Word && p.pos+2 < len(p.toks) && p.toks[p.pos+1].Kind == lexer.Word &&
						p.toks[p.pos+2].Kind == lexer.Punct && p.toks[p.pos+2].Text == "{" {
						break skip
					}
				}
			}
		}
	}
	return f
}

func (p *Parser) parseConstruct() ast.Construct {
	pos := p.curPos()
	kind, ok := p.expectWord()
	if !ok {
		return nil
	}
	id, ok := p.expectWord()
	if !ok {
		return nil
	}
	if !p.expectPunct("{") {
		return nil
	}
	fields := p.parseFields()
	p.expectPunct("}")

	switch ast.ConstructKind(kind) {
	case ast.KindFact:
		return p.buildFact(id, pos, fields)
	case ast.KindEntity:
		return p.buildEntity(id, pos, fields)
	case ast.KindPersona:
		return &ast.PersonaDecl{Id: id, Pos: pos}
	case ast.KindRule:
		return p.buildRule(id, pos, fields)
	case ast.KindOperation:
		return p.buildOperation(id, pos, fields)
	case ast.KindFlow:
		return p.buildFlow(id, pos, fields)
	case ast.KindType:
		return p.buildTypeDecl(id, pos, fields)
	case ast.KindSystem:
		return p.buildSystem(id, pos, fields)
	default:
		p.errorf("unknown construct kind %q", kind)
		return nil
	}
}

// field is one `name: value ;` body entry. value is captured as the raw
// token span so each construct builder can reinterpret it per its own
// field grammar (type expr, predicate expr, list of ids, ...).
type field struct {
	name string
	toks []lexer.Token
}

func (p *Parser) parseFields() []field {
	var fs []field
	for !p.isPunct("}") && !p.atEOF() {
		name, ok := p.expectWord()
		if !ok {
			return fs
		}
		if !p.expectPunct(":") {
			return fs
		}
		start := p.pos
		depth := 0
		for !p.atEOF() {
			if p.isPunct("{") || p.isPunct("[") || p.isPunct("(") {
				depth++
			}
			if p.isPunct("}") || p.isPunct("]") || p.isPunct(")") {
				if depth == 0 {
					break
				}
				depth--
			}
			if p.isPunct(";") && depth == 0 {
				break
			}
			p.advance()
		}
		fs = append(fs, field{name: name, toks: p.toks[start:p.pos]})
		if p.isPunct(";") {
			p.advance()
		}
	}
	return fs
}

func fieldSub(f field) *Parser {
	return &Parser{file: "", toks: append(append([]lexer.Token{}, f.toks...), lexer.Token{Kind: lexer.EOF})}
}

func findField(fs []field, name string) (field, bool) {
	for _, f := range fs {
		if f.name == name {
			return f, true
		}
	}
	return field{}, false
}
