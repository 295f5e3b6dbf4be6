package elaborate

import (
	"github.com/tenor-lang/tenor/internal/diag"
	"github.com/tenor-lang/tenor/internal/lang/ast"
)

// Resolved is Pass 3's output: every named type reference unfolded to its
// structural body (spec §4.4: "Tenor uses structural type equality, not
// nominal").
type Resolved struct {
	TypeDecls map[string]ast.TypeExpr // type id -> fully structural body
	FactTypes map[string]ast.TypeExpr // fact id -> fully structural declared type

	// ComparisonTypes records, by comparison-node position, the promoted
	// type an Int-vs-Decimal comparison was checked under (spec §4.5:
	// "the comparison node is annotated with comparison_type: Decimal").
	// Populated by RunTypeCheck (Pass 4); read back by RunSerialize
	// (Pass 6) when emitting the node's interchange JSON.
	ComparisonTypes map[ast.Pos]string
}

func RunResolve(idx *Index) (*Resolved, *diag.Bag) {
	bag := &diag.Bag{}
	r := &Resolved{
		TypeDecls:       map[string]ast.TypeExpr{},
		FactTypes:       map[string]ast.TypeExpr{},
		ComparisonTypes: map[ast.Pos]string{},
	}

	for id := range idx.Types {
		visiting := map[string]bool{}
		r.TypeDecls[id] = resolveNamed(id, idx, visiting, bag, "resolve")
	}
	for id, f := range idx.Facts {
		visiting := map[string]bool{}
		r.FactTypes[id] = resolveType(f.Type, idx, visiting, bag, "resolve")
	}
	return r, bag
}

// resolveNamed resolves the TypeDecl named id to its fully structural
// form, detecting self-reference cycles.
func resolveNamed(id string, idx *Index, visiting map[string]bool, bag *diag.Bag, pass string) ast.TypeExpr {
	if visiting[id] {
		bag.Add(diag.New(diag.KindResolve, pass, "type cycle detected at \""+id+"\"").On("type", id).Build())
		return ast.RecordType{}
	}
	decl, ok := idx.Types[id]
	if !ok {
		bag.Add(diag.New(diag.KindResolve, pass, "unresolved type reference \""+id+"\"").On("type", id).Build())
		return ast.RecordType{}
	}
	visiting[id] = true
	defer delete(visiting, id)
	return resolveType(decl.Body, idx, visiting, bag, pass)
}

// resolveType recursively unfolds every NamedType node reachable from t.
func resolveType(t ast.TypeExpr, idx *Index, visiting map[string]bool, bag *diag.Bag, pass string) ast.TypeExpr {
	switch v := t.(type) {
	case ast.NamedType:
		return resolveNamed(v.Name, idx, visiting, bag, pass)
	case ast.RecordType:
		fields := make([]ast.RecordField, len(v.Fields))
		for i, f := range v.Fields {
			fields[i] = ast.RecordField{Name: f.Name, Type: resolveType(f.Type, idx, visiting, bag, pass)}
		}
		return ast.RecordType{Fields: fields}
	case ast.ListType:
		return ast.ListType{Elem: resolveType(v.Elem, idx, visiting, bag, pass), MaxLength: v.MaxLength}
	case ast.TaggedUnionType:
		variants := make([]ast.TaggedVariant, len(v.Variants))
		for i, variant := range v.Variants {
			resolved := resolveType(variant.Record, idx, visiting, bag, pass)
			rec, _ := resolved.(ast.RecordType)
			variants[i] = ast.TaggedVariant{Tag: variant.Tag, Record: rec}
		}
		return ast.TaggedUnionType{TagField: v.TagField, Variants: variants}
	default:
		return t
	}
}
