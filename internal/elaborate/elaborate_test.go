package elaborate_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenor-lang/tenor/internal/elaborate"
	"github.com/tenor-lang/tenor/internal/interchange/schema"
)

// s1Files is a minimal multi-file contract exercising every pass: an
// imported persona, a fact, a two-state entity, a stratified rule, an
// operation gated on that rule's verdict, and a single-step flow.
var s1Files = map[string]string{
	"root.tenor": `
import "shared/persona.tenor"

fact OrderTotal { type: Decimal(10, 2); }

entity Order {
	states: [Placed, Shipped, Delivered];
	initial: Placed;
	transitions: [Placed -> Shipped, Shipped -> Delivered];
}

rule HighValue {
	stratum: 0;
	when: fact_ref(OrderTotal) > 1000;
	produce: Flagged = true;
}

operation Ship {
	personas: [Warehouse];
	precondition: verdict_present(Flagged);
	effects: [Order: Placed -> Shipped];
	outcomes: [shipped];
	errors: [OutOfStock];
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
`,
	"shared/persona.tenor": `persona Warehouse { }`,
}

func TestElaborate_FullPipelineSucceeds(t *testing.T) {
	result, diags := elaborate.Elaborate("contract-s1", "root.tenor", provider(s1Files), nil)
	require.Empty(t, diags, "%v", diags)
	require.NotNil(t, result)
	assert.Contains(t, result.Index.Operations, "Ship")
	assert.Contains(t, result.Index.Flows, "ShipOrder")

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(result.Canonical, &doc))
	assert.Equal(t, "contract-s1", doc["id"])
}

// TestElaborate_CanonicalOutputValidatesAgainstSchema confirms Pass 6's
// output isn't write-only: Elaborate itself validates it against the
// published schema before returning, and the bytes still validate
// independently (spec §8 property 3).
func TestElaborate_CanonicalOutputValidatesAgainstSchema(t *testing.T) {
	result, diags := elaborate.Elaborate("contract-s1", "root.tenor", provider(s1Files), nil)
	require.Empty(t, diags)
	require.NotNil(t, result)
	assert.NoError(t, schema.ValidateEnvelope(result.Canonical))
}

func TestElaborate_AbortsAfterFirstFailingPass(t *testing.T) {
	files := map[string]string{
		"root.tenor": `fact X { type: DoesNotExist; }`,
	}
	result, diags := elaborate.Elaborate("contract-bad", "root.tenor", provider(files), nil)
	assert.Nil(t, result)
	require.NotEmpty(t, diags)
	for _, d := range diags {
		assert.Equal(t, "RESOLVE", string(d.Kind))
	}
}

func TestElaborate_ParseErrorStopsPipelineBeforeIndex(t *testing.T) {
	files := map[string]string{
		"root.tenor": `fact !! { }`,
	}
	result, diags := elaborate.Elaborate("contract-bad", "root.tenor", provider(files), nil)
	assert.Nil(t, result)
	assert.NotEmpty(t, diags)
}
