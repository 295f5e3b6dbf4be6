// Package interchange defines the canonical bundle document Pass 6 emits
// (spec §4.7, §6): the envelope, its constructs, and the {type,value}
// tagged numeric literal encoding.
package interchange

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// ShortVersion and SemVersion are the two top-level envelope version
// fields spec §6 mandates.
const (
	ShortVersion = "1.0"
	SemVersion   = "1.0.0"
)

// Envelope is the top-level interchange document (spec §6).
type Envelope struct {
	ID           string      `json:"id"`
	Kind         string      `json:"kind"`
	Tenor        string      `json:"tenor"`
	TenorVersion string      `json:"tenor_version"`
	Constructs   []Construct `json:"constructs"`
}

// Provenance records where a construct came from in source, carried on
// every construct per spec §6 ("{id, kind, tenor, provenance: {file, line}}").
type Provenance struct {
	File string `json:"file"`
	Line int    `json:"line"`
}

// Construct is one kind-tagged entry in the envelope's constructs array.
// Fields is a sorted-key JSON object holding the kind-specific attributes;
// the canon package is responsible for actually sorting keys at
// serialization time, so Fields is kept as a plain, unordered
// map[string]interface{} rather than raw bytes.
type Construct struct {
	ID         string                 `json:"id"`
	Kind       string                 `json:"kind"`
	Tenor      string                 `json:"tenor"`
	Provenance Provenance             `json:"provenance"`
	Fields     map[string]interface{} `json:"-"`
}

// NumberLiteral is the {type, value} tagged numeric encoding spec §6
// requires for Decimal and Money, preserving the exact string form.
type NumberLiteral struct {
	Type  NumberType  `json:"type"`
	Value interface{} `json:"value"`
}

type NumberType struct {
	Base      string `json:"base"` // "int" | "decimal" | "money"
	Precision int    `json:"precision,omitempty"`
	Scale     int    `json:"scale,omitempty"`
	Currency  string `json:"currency,omitempty"`
}

// CheckCompatibility enforces spec §6's versioning rule: "a downstream
// consumer MUST reject a bundle whose major version it does not support."
func CheckCompatibility(bundleVersion, supportedConstraint string) error {
	v, err := semver.NewVersion(bundleVersion)
	if err != nil {
		return fmt.Errorf("interchange: invalid tenor_version %q: %w", bundleVersion, err)
	}
	c, err := semver.NewConstraint(supportedConstraint)
	if err != nil {
		return fmt.Errorf("interchange: invalid supported constraint %q: %w", supportedConstraint, err)
	}
	if !c.Check(v) {
		return fmt.Errorf("interchange: bundle tenor_version %s does not satisfy %s", bundleVersion, supportedConstraint)
	}
	return nil
}
