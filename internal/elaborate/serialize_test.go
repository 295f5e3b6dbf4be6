package elaborate_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenor-lang/tenor/internal/elaborate"
)

func TestRunSerialize_ProducesValidEnvelope(t *testing.T) {
	files := map[string]string{
		"root.tenor": `fact OrderTotal { type: Decimal(10, 2); }`,
	}
	b, bag := elaborate.RunBundle("root.tenor", provider(files))
	require.True(t, bag.Empty())
	idx, bag := elaborate.RunIndex(b)
	require.True(t, bag.Empty())
	res, bag := elaborate.RunResolve(idx)
	require.True(t, bag.Empty())

	out, bag := elaborate.RunSerialize("contract-1", b, res)
	require.True(t, bag.Empty(), "serialize: %v", bag.Sorted())

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &doc))
	assert.Equal(t, "contract-1", doc["id"])
	assert.Equal(t, "Bundle", doc["kind"])
	constructs, ok := doc["constructs"].([]interface{})
	require.True(t, ok)
	require.Len(t, constructs, 1)
}

func TestRunSerialize_Deterministic(t *testing.T) {
	files := map[string]string{
		"root.tenor": `
fact A { type: Bool; }
fact B { type: Int; }
fact C { type: Text; }
`,
	}
	b, bag := elaborate.RunBundle("root.tenor", provider(files))
	require.True(t, bag.Empty())
	idx, bag := elaborate.RunIndex(b)
	require.True(t, bag.Empty())
	res, bag := elaborate.RunResolve(idx)
	require.True(t, bag.Empty())

	out1, bag := elaborate.RunSerialize("contract-1", b, res)
	require.True(t, bag.Empty())
	out2, bag := elaborate.RunSerialize("contract-1", b, res)
	require.True(t, bag.Empty())
	assert.Equal(t, out1, out2)
}

func TestRunSerialize_RuleIncludesPayloadExpr(t *testing.T) {
	files := map[string]string{
		"root.tenor": `
rule Flag {
	stratum: 0;
	when: true;
	produce: Flagged = 42;
}
`,
	}
	b, bag := elaborate.RunBundle("root.tenor", provider(files))
	require.True(t, bag.Empty())
	idx, bag := elaborate.RunIndex(b)
	require.True(t, bag.Empty())
	res, bag := elaborate.RunResolve(idx)
	require.True(t, bag.Empty())
	bag = elaborate.RunTypeCheck(idx, res)
	require.True(t, bag.Empty())

	out, bag := elaborate.RunSerialize("contract-1", b, res)
	require.True(t, bag.Empty())

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &doc))
	constructs := doc["constructs"].([]interface{})
	rule := constructs[0].(map[string]interface{})
	payload, ok := rule["payload_expr"].(map[string]interface{})
	require.True(t, ok, "payload_expr missing from serialized rule: %v", rule)
	assert.Equal(t, "int_lit", payload["node"])
	assert.Equal(t, float64(42), payload["value"])
}

func TestRunSerialize_IntVsDecimalComparisonGetsComparisonTypeAnnotation(t *testing.T) {
	files := map[string]string{
		"root.tenor": `
fact OrderTotal { type: Decimal(10, 2); }
rule HighValue {
	stratum: 0;
	when: fact_ref(OrderTotal) > 1000;
	produce: Flagged = true;
}
`,
	}
	b, bag := elaborate.RunBundle("root.tenor", provider(files))
	require.True(t, bag.Empty())
	idx, bag := elaborate.RunIndex(b)
	require.True(t, bag.Empty())
	res, bag := elaborate.RunResolve(idx)
	require.True(t, bag.Empty())
	bag = elaborate.RunTypeCheck(idx, res)
	require.True(t, bag.Empty())

	out, bag := elaborate.RunSerialize("contract-1", b, res)
	require.True(t, bag.Empty())

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &doc))
	var rule map[string]interface{}
	for _, c := range doc["constructs"].([]interface{}) {
		m := c.(map[string]interface{})
		if m["kind"] == "rule" {
			rule = m
		}
	}
	require.NotNil(t, rule)
	condition := rule["condition"].(map[string]interface{})
	assert.Equal(t, "Decimal", condition["comparison_type"])
}

func TestRunSerialize_PreservesConstructDeclarationOrder(t *testing.T) {
	files := map[string]string{
		"root.tenor": `
fact Zebra { type: Bool; }
fact Apple { type: Bool; }
`,
	}
	b, bag := elaborate.RunBundle("root.tenor", provider(files))
	require.True(t, bag.Empty())
	idx, bag := elaborate.RunIndex(b)
	require.True(t, bag.Empty())
	res, bag := elaborate.RunResolve(idx)
	require.True(t, bag.Empty())

	out, bag := elaborate.RunSerialize("contract-1", b, res)
	require.True(t, bag.Empty())

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &doc))
	constructs := doc["constructs"].([]interface{})
	first := constructs[0].(map[string]interface{})
	assert.Equal(t, "Zebra", first["id"])
}
