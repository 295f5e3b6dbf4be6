package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tenor-lang/tenor/internal/interchange/schema"
)

func TestValidateEnvelope_Valid(t *testing.T) {
	doc := []byte(`{
		"id": "contract-1",
		"kind": "Bundle",
		"tenor": "1.0",
		"tenor_version": "1.0.0",
		"constructs": [
			{
				"id": "OrderPlaced",
				"kind": "fact",
				"tenor": "1.0",
				"provenance": {"file": "order.tenor", "line": 3}
			}
		]
	}`)
	assert.NoError(t, schema.ValidateEnvelope(doc))
}

func TestValidateEnvelope_MissingRequiredField(t *testing.T) {
	doc := []byte(`{"id": "contract-1", "kind": "Bundle", "tenor": "1.0", "constructs": []}`)
	assert.Error(t, schema.ValidateEnvelope(doc))
}

func TestValidateEnvelope_UnknownConstructKind(t *testing.T) {
	doc := []byte(`{
		"id": "contract-1",
		"kind": "Bundle",
		"tenor": "1.0",
		"tenor_version": "1.0.0",
		"constructs": [
			{"id": "X", "kind": "not-a-real-kind", "tenor": "1.0", "provenance": {"file": "x.tenor", "line": 1}}
		]
	}`)
	assert.Error(t, schema.ValidateEnvelope(doc))
}

func TestValidateEnvelope_InvalidJSON(t *testing.T) {
	assert.Error(t, schema.ValidateEnvelope([]byte(`not json`)))
}
