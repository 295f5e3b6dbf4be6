package elaborate

import (
	"github.com/tenor-lang/tenor/internal/diag"
	"github.com/tenor-lang/tenor/internal/lang/ast"
)

// Index is Pass 2's output: a symbol table per construct kind, shared
// read-only by every subsequent pass (spec §4.3).
type Index struct {
	Facts      map[string]*ast.FactDecl
	Entities   map[string]*ast.EntityDecl
	Personas   map[string]*ast.PersonaDecl
	Rules      map[string]*ast.RuleDecl
	Operations map[string]*ast.OperationDecl
	Flows      map[string]*ast.FlowDecl
	Types      map[string]*ast.TypeDecl
	Systems    map[string]*ast.SystemDecl

	// RuleOrder is every rule id in bundle declaration order — the rule
	// engine's same-stratum ordering (spec §5 ordering guarantee (i))
	// depends on this, not on sorting rule ids.
	RuleOrder []string

	// ids maps every construct id, regardless of kind, to its construct —
	// invariant 1 treats a same-name collision across kinds as an error
	// too ("cross-class collisions are errors").
	ids map[string]ast.Construct
}

func RunIndex(b *Bundle) (*Index, *diag.Bag) {
	bag := &diag.Bag{}
	idx := &Index{
		Facts: map[string]*ast.FactDecl{}, Entities: map[string]*ast.EntityDecl{},
		Personas: map[string]*ast.PersonaDecl{}, Rules: map[string]*ast.RuleDecl{},
		Operations: map[string]*ast.OperationDecl{}, Flows: map[string]*ast.FlowDecl{},
		Types: map[string]*ast.TypeDecl{}, Systems: map[string]*ast.SystemDecl{},
		ids: map[string]ast.Construct{},
	}

	for _, c := range b.Constructs {
		if prev, ok := idx.ids[c.ID()]; ok && prev.Kind() != c.Kind() {
			bag.Add(diag.New(diag.KindIndex, "index",
				"identifier \""+c.ID()+"\" declared as both "+string(prev.Kind())+" and "+string(c.Kind())).
				On(string(c.Kind()), c.ID()).Build())
		}
		idx.ids[c.ID()] = c

		switch v := c.(type) {
		case *ast.FactDecl:
			idx.Facts[v.Id] = v
		case *ast.EntityDecl:
			idx.Entities[v.Id] = v
		case *ast.PersonaDecl:
			idx.Personas[v.Id] = v
		case *ast.RuleDecl:
			idx.Rules[v.Id] = v
			idx.RuleOrder = append(idx.RuleOrder, v.Id)
		case *ast.OperationDecl:
			idx.Operations[v.Id] = v
		case *ast.FlowDecl:
			idx.Flows[v.Id] = v
		case *ast.TypeDecl:
			idx.Types[v.Id] = v
		case *ast.SystemDecl:
			idx.Systems[v.Id] = v
		}
	}

	return idx, bag
}

// Lookup finds any construct by id, regardless of kind.
func (idx *Index) Lookup(id string) (ast.Construct, bool) {
	c, ok := idx.ids[id]
	return c, ok
}
