package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenor-lang/tenor/internal/lang/ast"
	"github.com/tenor-lang/tenor/internal/lang/lexer"
	"github.com/tenor-lang/tenor/internal/lang/parser"
)

func parse(t *testing.T, src string) *ast.File {
	t.Helper()
	toks := lexer.New("t.tenor", src).Tokenize()
	p := parser.New("t.tenor", toks)
	f := p.ParseFile()
	require.Empty(t, p.Errors(), "parse errors: %v", p.Errors())
	return f
}

func TestParseFile_Fact(t *testing.T) {
	f := parse(t, `fact OrderTotal { type: Decimal(10, 2); }`)
	require.Len(t, f.Constructs, 1)
	fd, ok := f.Constructs[0].(*ast.FactDecl)
	require.True(t, ok)
	assert.Equal(t, "OrderTotal", fd.Id)
	dt, ok := fd.Type.(ast.DecimalType)
	require.True(t, ok)
	assert.Equal(t, 10, dt.Precision)
	assert.Equal(t, 2, dt.Scale)
}

func TestParseFile_FactWithDefault(t *testing.T) {
	f := parse(t, `fact IsPriority { type: Bool; default: false; }`)
	fd := f.Constructs[0].(*ast.FactDecl)
	lit, ok := fd.Default.(ast.BoolLit)
	require.True(t, ok)
	assert.False(t, lit.Value)
}

func TestParseFile_Entity(t *testing.T) {
	f := parse(t, `entity Order {
		states: [Placed, Shipped, Delivered];
		initial: Placed;
		transitions: [Placed -> Shipped, Shipped -> Delivered];
	}`)
	ed := f.Constructs[0].(*ast.EntityDecl)
	assert.Equal(t, []string{"Placed", "Shipped", "Delivered"}, ed.States)
	assert.Equal(t, "Placed", ed.Initial)
	require.Len(t, ed.Transitions, 2)
	assert.Equal(t, ast.EntityTransition{From: "Placed", To: "Shipped"}, ed.Transitions[0])
}

func TestParseFile_Rule(t *testing.T) {
	f := parse(t, `rule HighValue {
		stratum: 0;
		when: fact_ref(OrderTotal) > 1000;
		produce: Flagged = true;
	}`)
	rd := f.Constructs[0].(*ast.RuleDecl)
	assert.Equal(t, 0, rd.Stratum)
	assert.Equal(t, "Flagged", rd.VerdictType)
	bin, ok := rd.Condition.(ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.OpGt, bin.Op)
}

func TestParseFile_Operation(t *testing.T) {
	f := parse(t, `operation Ship {
		personas: [Warehouse];
		precondition: verdict_present(Flagged);
		effects: [Order: Placed -> Shipped];
		outcomes: [shipped];
		errors: [OutOfStock];
	}`)
	od := f.Constructs[0].(*ast.OperationDecl)
	assert.Equal(t, []string{"Warehouse"}, od.AllowedPersonas)
	require.Len(t, od.Effects, 1)
	assert.Equal(t, "Order", od.Effects[0].EntityID)
	assert.Equal(t, []string{"shipped"}, od.Outcomes)
	assert.Equal(t, []string{"OutOfStock"}, od.ErrorContract)
}

func TestParseFile_Flow(t *testing.T) {
	f := parse(t, `flow ShipOrder {
		persona: Warehouse;
		entry: DoShip;
		steps: {
			DoShip operation {
				op: Ship;
				outcomes: { shipped: Terminal(success) };
				on_failure: terminate(failure);
			}
		};
	}`)
	fd := f.Constructs[0].(*ast.FlowDecl)
	assert.Equal(t, "Warehouse", fd.InitiatingPersona)
	assert.Equal(t, "DoShip", fd.Entry)
	step, ok := fd.Steps["DoShip"].(*ast.OperationStep)
	require.True(t, ok)
	assert.Equal(t, "Ship", step.Op)
	target, ok := step.Outcomes["shipped"]
	require.True(t, ok)
	assert.Equal(t, "success", target.Terminal)
	assert.Equal(t, ast.OnFailureTerminate, step.OnFailure.Kind)
}

func TestParseFile_QuantifierExpr(t *testing.T) {
	f := parse(t, `rule AllItemsInStock {
		stratum: 0;
		when: forall item in Items: fact_ref(item);
		produce: Stocked = true;
	}`)
	rd := f.Constructs[0].(*ast.RuleDecl)
	q, ok := rd.Condition.(ast.QuantifierExpr)
	require.True(t, ok)
	assert.Equal(t, ast.QuantForall, q.Kind)
	assert.Equal(t, "Items", q.ListFact)
}

func TestParseFile_RecoversFromErrorAndKeepsParsingLaterConstructs(t *testing.T) {
	toks := lexer.New("t.tenor", "garbage !! tokens\nfact Good { type: Bool; }").Tokenize()
	p := parser.New("t.tenor", toks)
	f := p.ParseFile()
	assert.NotEmpty(t, p.Errors())
	found := false
	for _, c := range f.Constructs {
		if fd, ok := c.(*ast.FactDecl); ok && fd.Id == "Good" {
			found = true
		}
	}
	assert.True(t, found, "parser should recover and still parse the Good fact")
}

func TestParseFile_Import(t *testing.T) {
	toks := lexer.New("t.tenor", `import "shared/persona.tenor"`).Tokenize()
	p := parser.New("t.tenor", toks)
	f := p.ParseFile()
	require.Empty(t, p.Errors())
	require.Len(t, f.Imports, 1)
	assert.Equal(t, "shared/persona.tenor", f.Imports[0].Path)
}
