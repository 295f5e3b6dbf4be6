// Package elaborate implements the six-pass elaborator of spec §2/§4:
// Bundle, Index, Resolve, TypeCheck, Validate, Serialize. Each pass
// collects a diag.Bag of every recoverable error before returning; a pass
// with a non-empty bag aborts the pipeline (spec §9 "batched error
// reporting" — "subsequent passes do not run after the first pass that
// reports errors").
package elaborate

import (
	"path"
	"path/filepath"

	"github.com/tenor-lang/tenor/internal/diag"
	"github.com/tenor-lang/tenor/internal/lang/ast"
	"github.com/tenor-lang/tenor/internal/lang/lexer"
	"github.com/tenor-lang/tenor/internal/lang/parser"
)

// SourceProvider reads the raw contents of a .tenor source file by path,
// relative to the importing file's directory. Hosts back it with a real
// filesystem, an embedded FS, or an in-memory map; the elaborator itself
// never touches the OS directly (spec §6 "the core exposes no ... no
// filesystem").
type SourceProvider func(path string) (string, error)

// Bundle is Pass 1's output: the flat, deduplicated construct list ready
// for indexing.
type Bundle struct {
	Constructs []ast.Construct
}

// RunBundle parses rootFile and every file it (transitively) imports,
// merges them into one flat construct list, and rejects cross-file
// duplicate (kind, id) pairs (spec §4.2).
func RunBundle(rootFile string, read SourceProvider) (*Bundle, *diag.Bag) {
	bag := &diag.Bag{}
	b := &bundler{read: read, bag: bag, visiting: map[string]bool{}, done: map[string]bool{}}
	b.visit(rootFile, nil)
	if !bag.Empty() {
		return nil, bag
	}

	seen := map[string]ast.Construct{}
	out := &Bundle{}
	for _, f := range b.order {
		for _, c := range b.files[f].Constructs {
			key := string(c.Kind()) + "/" + c.ID()
			if prev, ok := seen[key]; ok {
				bag.Add(diag.New(diag.KindImport, "bundle",
					"duplicate construct "+key+" also declared in "+prev.Position().File).
					At(diag.Location{File: c.Position().File, Line: c.Position().Line, Column: c.Position().Column}).
					On(string(c.Kind()), c.ID()).Build())
				continue
			}
			seen[key] = c
			out.Constructs = append(out.Constructs, c)
		}
	}
	if !bag.Empty() {
		return nil, bag
	}
	return out, bag
}

type bundler struct {
	read     SourceProvider
	bag      *diag.Bag
	visiting map[string]bool
	done     map[string]bool
	files    map[string]*ast.File
	order    []string
}

func (b *bundler) visit(file string, importChain []string) {
	if b.files == nil {
		b.files = map[string]*ast.File{}
	}
	if b.done[file] {
		return
	}
	if b.visiting[file] {
		b.bag.Add(diag.New(diag.KindImport, "bundle", "import cycle detected at "+file).Build())
		return
	}
	b.visiting[file] = true
	defer func() { b.visiting[file] = false; b.done[file] = true }()

	src, err := b.read(file)
	if err != nil {
		b.bag.Add(diag.New(diag.KindImport, "bundle", "import not found: "+file).Build())
		return
	}

	lx := lexer.New(file, src)
	toks := lx.Tokenize()
	for _, e := range lx.Errors() {
		b.bag.Add(diag.New(diag.KindLex, "bundle", e.Error()).At(diag.Location{File: file}).Build())
	}

	ps := parser.New(file, toks)
	astFile := ps.ParseFile()
	for _, e := range ps.Errors() {
		b.bag.Add(diag.New(diag.KindParse, "bundle", e.Error()).At(diag.Location{File: file}).Build())
	}

	isTypeLibrary := len(astFile.Constructs) > 0
	for _, c := range astFile.Constructs {
		if c.Kind() != ast.KindType {
			isTypeLibrary = false
			break
		}
	}
	if isTypeLibrary && len(astFile.Imports) > 0 {
		b.bag.Add(diag.New(diag.KindImport, "bundle",
			"type library file "+file+" may not itself contain imports").
			At(diag.Location{File: file}).Build())
	}

	b.files[file] = astFile

	dir := filepath.Dir(file)
	for _, imp := range astFile.Imports {
		target := path.Clean(path.Join(dir, imp.Path))
		b.visit(target, append(importChain, file))
	}
	b.order = append(b.order, file)
}
