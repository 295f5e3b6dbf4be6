// Package schema validates a serialized interchange envelope against a
// published JSON Schema (spec §6): the envelope fields and each
// construct's common fields and kind tag. It is also the supplemented, testable artifact SPEC_FULL.md
// calls for rather than a documentation aside. Grounded on the compiler
// pattern used to validate tool-call payloads in the grounding repo's
// policy firewall: jsonschema.NewCompiler, Draft2020, AddResource, Compile.
package schema

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const envelopeSchemaURL = "tenor://schema/envelope.json"

// EnvelopeSchema is the JSON Schema document validating the top-level
// envelope shape of spec §6. Each construct is checked for its common
// fields {id, kind, tenor, provenance} and for a kind from the closed tag
// set (spec §3); kind-specific fields are not validated.
const EnvelopeSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["id", "kind", "tenor", "tenor_version", "constructs"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "kind": {"const": "Bundle"},
    "tenor": {"type": "string"},
    "tenor_version": {"type": "string"},
    "constructs": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "kind", "tenor", "provenance"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "kind": {
            "enum": ["fact", "entity", "persona", "rule", "operation", "flow", "type", "system"]
          },
          "tenor": {"type": "string"},
          "provenance": {
            "type": "object",
            "required": ["file", "line"],
            "properties": {
              "file": {"type": "string"},
              "line": {"type": "integer", "minimum": 1}
            }
          }
        }
      }
    }
  }
}`

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(envelopeSchemaURL, strings.NewReader(EnvelopeSchema)); err != nil {
			compileErr = fmt.Errorf("schema: add resource: %w", err)
			return
		}
		s, err := c.Compile(envelopeSchemaURL)
		if err != nil {
			compileErr = fmt.Errorf("schema: compile: %w", err)
			return
		}
		compiled = s
	})
	return compiled, compileErr
}

// ValidateEnvelope validates raw canonical envelope JSON against the
// published schema (spec §8 property 3: "every Pass 6 output validates
// against the published JSON Schema").
func ValidateEnvelope(envelopeJSON []byte) error {
	s, err := compiledSchema()
	if err != nil {
		return err
	}
	var doc interface{}
	if err := json.Unmarshal(envelopeJSON, &doc); err != nil {
		return fmt.Errorf("schema: invalid JSON: %w", err)
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("schema: envelope failed validation: %w", err)
	}
	return nil
}
