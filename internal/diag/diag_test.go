package diag_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tenor-lang/tenor/internal/diag"
)

func TestBuilder_BuildsDiagnostic(t *testing.T) {
	d := diag.New(diag.KindValidate, "validate", "entity DAG has a cycle").
		At(diag.Location{File: "order.tenor", Line: 12, Column: 3}).
		On("entity", "Order").
		Classify(diag.ClassNonRetryable).
		CausedBy("CYCLE", "Order.Shipped->Order.Placed").
		Build()

	assert.Equal(t, diag.KindValidate, d.Kind)
	assert.Equal(t, "entity", d.ConstructKind)
	assert.Equal(t, "Order", d.ConstructID)
	assert.Equal(t, diag.ClassNonRetryable, d.Classification)
	assert.Len(t, d.Cause, 1)
	assert.Contains(t, d.Error(), "order.tenor:12:3")
}

func TestDiagnostic_Error_NoLocation(t *testing.T) {
	d := diag.New(diag.KindEval, "eval", "missing fact").Build()
	assert.Equal(t, "eval[EVAL]: missing fact", d.Error())
}

func TestMessageHash_StableAcrossEqualMessages(t *testing.T) {
	a := diag.New(diag.KindEval, "eval", "missing fact x").Build()
	b := diag.New(diag.KindEval, "eval", "missing fact x").Build()
	assert.Equal(t, a.MessageHash(), b.MessageHash())

	c := diag.New(diag.KindEval, "eval", "missing fact y").Build()
	assert.NotEqual(t, a.MessageHash(), c.MessageHash())
}

func TestBag_SortedIsDeterministic(t *testing.T) {
	var bag diag.Bag
	bag.Add(diag.New(diag.KindValidate, "validate", "z error").On("rule", "R2").Build())
	bag.Add(diag.New(diag.KindValidate, "validate", "a error").On("rule", "R1").Build())
	bag.Addf(diag.KindTypeCheck, "typecheck", "bad type for %s", "x")

	assert.False(t, bag.Empty())
	assert.Len(t, bag.Items(), 3)

	sorted := bag.Sorted()
	assert.Equal(t, "typecheck", sorted[0].Pass)
	assert.Equal(t, "R1", sorted[1].ConstructID)
	assert.Equal(t, "R2", sorted[2].ConstructID)
}

func TestBag_Empty(t *testing.T) {
	var bag diag.Bag
	assert.True(t, bag.Empty())
}
