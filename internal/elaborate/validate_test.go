package elaborate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tenor-lang/tenor/internal/elaborate"
)

func TestRunValidate_UndeclaredPersonaReferenceIsError(t *testing.T) {
	idx := indexFrom(t, `
entity Order { states: [Placed]; initial: Placed; transitions: []; }
operation Ship {
	personas: [Ghost];
	precondition: true;
	effects: [];
	outcomes: [shipped];
	errors: [];
}
`)
	bag := elaborate.RunValidate(idx)
	assert.False(t, bag.Empty())
}

func TestRunValidate_UndeclaredEntityEffectIsError(t *testing.T) {
	idx := indexFrom(t, `
persona Warehouse { }
operation Ship {
	personas: [Warehouse];
	precondition: true;
	effects: [Ghost: A -> B];
	outcomes: [shipped];
	errors: [];
}
`)
	bag := elaborate.RunValidate(idx)
	assert.False(t, bag.Empty())
}

func TestRunValidate_EntityCycleIsError(t *testing.T) {
	idx := indexFrom(t, `
entity Order {
	states: [A, B, C];
	initial: A;
	transitions: [A -> B, B -> C, C -> A];
}
`)
	bag := elaborate.RunValidate(idx)
	assert.False(t, bag.Empty())
}

func TestRunValidate_EntityInitialStateMissingIsError(t *testing.T) {
	idx := indexFrom(t, `
entity Order { states: [A, B]; initial: Ghost; transitions: [A -> B]; }
`)
	bag := elaborate.RunValidate(idx)
	assert.False(t, bag.Empty())
}

func TestRunValidate_StratificationViolationIsError(t *testing.T) {
	idx := indexFrom(t, `
rule Low {
	stratum: 0;
	when: verdict_present(High);
	produce: Low = true;
}
rule High {
	stratum: 0;
	when: true;
	produce: High = true;
}
`)
	bag := elaborate.RunValidate(idx)
	assert.False(t, bag.Empty())
}

func TestRunValidate_StratificationOrderIsValid(t *testing.T) {
	idx := indexFrom(t, `
rule High {
	stratum: 0;
	when: true;
	produce: High = true;
}
rule Low {
	stratum: 1;
	when: verdict_present(High);
	produce: Low = true;
}
`)
	bag := elaborate.RunValidate(idx)
	assert.True(t, bag.Empty(), "validate: %v", bag.Sorted())
}

func TestRunValidate_OneRulePerVerdictViolation(t *testing.T) {
	idx := indexFrom(t, `
rule A {
	stratum: 0;
	when: true;
	produce: Flagged = true;
}
rule B {
	stratum: 0;
	when: false;
	produce: Flagged = true;
}
`)
	bag := elaborate.RunValidate(idx)
	assert.False(t, bag.Empty())
}

func TestRunValidate_OutcomeInBothOutcomesAndErrorsIsError(t *testing.T) {
	idx := indexFrom(t, `
operation Ship {
	personas: [];
	precondition: true;
	effects: [];
	outcomes: [shipped];
	errors: [shipped];
}
`)
	bag := elaborate.RunValidate(idx)
	assert.False(t, bag.Empty())
}

func TestRunValidate_MultiOutcomeEffectMustBeLabeled(t *testing.T) {
	idx := indexFrom(t, `
entity Order { states: [Placed, Shipped]; initial: Placed; transitions: [Placed -> Shipped]; }
operation Ship {
	personas: [];
	precondition: true;
	effects: [Order: Placed -> Shipped];
	outcomes: [shipped, backordered];
	errors: [];
}
`)
	bag := elaborate.RunValidate(idx)
	assert.False(t, bag.Empty())
}

func TestRunValidate_FlowMustHandleEveryOperationOutcome(t *testing.T) {
	idx := indexFrom(t, `
persona Warehouse { }
operation Ship {
	personas: [Warehouse];
	precondition: true;
	effects: [];
	outcomes: [shipped, backordered];
	errors: [];
}
flow ShipOrder {
	persona: Warehouse;
	entry: DoShip;
	steps: {
		DoShip operation {
			op: Ship;
			outcomes: { shipped: Terminal(success) };
			on_failure: terminate(failure);
		}
	};
}
`)
	bag := elaborate.RunValidate(idx)
	assert.False(t, bag.Empty())
}

func TestRunValidate_UnreachableStepIsError(t *testing.T) {
	idx := indexFrom(t, `
persona Warehouse { }
operation Ship {
	personas: [Warehouse];
	precondition: true;
	effects: [];
	outcomes: [shipped];
	errors: [];
}
flow ShipOrder {
	persona: Warehouse;
	entry: DoShip;
	steps: {
		DoShip operation {
			op: Ship;
			outcomes: { shipped: Terminal(success) };
			on_failure: terminate(failure);
		}
		Orphan operation {
			op: Ship;
			outcomes: { shipped: Terminal(success) };
			on_failure: terminate(failure);
		}
	};
}
`)
	bag := elaborate.RunValidate(idx)
	assert.False(t, bag.Empty())
}

func TestRunValidate_ParallelBranchesMustBeDisjoint(t *testing.T) {
	idx := indexFrom(t, `
persona Warehouse { }
entity Order { states: [Placed, Shipped]; initial: Placed; transitions: [Placed -> Shipped]; }
operation ShipA {
	personas: [Warehouse];
	precondition: true;
	effects: [Order: Placed -> Shipped];
	outcomes: [shipped];
	errors: [];
}
operation ShipB {
	personas: [Warehouse];
	precondition: true;
	effects: [Order: Placed -> Shipped];
	outcomes: [shipped];
	errors: [];
}
flow ShipOrder {
	persona: Warehouse;
	entry: Fork;
	steps: {
		Fork parallel {
			branches: [Left: [StepA], Right: [StepB]];
			join: { on_all_success: Terminal(success), on_any_failure: Terminal(failure) };
		}
		StepA operation {
			op: ShipA;
			outcomes: { shipped: Terminal(success) };
			on_failure: terminate(failure);
		}
		StepB operation {
			op: ShipB;
			outcomes: { shipped: Terminal(success) };
			on_failure: terminate(failure);
		}
	};
}
`)
	bag := elaborate.RunValidate(idx)
	assert.False(t, bag.Empty())
}

func TestRunValidate_SystemTriggerCycleIsError(t *testing.T) {
	idx := indexFrom(t, `
system Chain {
	members: [A, B];
	shared_personas: [];
	shared_entities: [];
	triggers: [A.Flow1 -> B.Flow2, B.Flow2 -> A.Flow1];
}
`)
	bag := elaborate.RunValidate(idx)
	assert.False(t, bag.Empty())
}
