// Package diag defines the structured diagnostic values every elaborator
// pass and the evaluator report instead of ad hoc error strings.
package diag

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
)

// Kind classifies a diagnostic by the elaborator pass (or evaluator stage)
// that raised it.
type Kind string

const (
	KindLex       Kind = "LEX"
	KindParse     Kind = "PARSE"
	KindImport    Kind = "IMPORT"
	KindIndex     Kind = "INDEX"
	KindResolve   Kind = "RESOLVE"
	KindTypeCheck Kind = "TYPECHECK"
	KindValidate  Kind = "VALIDATE"
	KindSerialize Kind = "SERIALIZE"
	KindEval      Kind = "EVAL"
)

// Classification mirrors the retry/compensation posture an error carries,
// grounded on the teacher's ErrorClassification enum.
type Classification string

const (
	ClassNonRetryable         Classification = "NON_RETRYABLE"
	ClassRetryable            Classification = "RETRYABLE"
	ClassCompensationRequired Classification = "COMPENSATION_REQUIRED"
)

// Location identifies where in source (or in a bundle) a diagnostic applies.
type Location struct {
	File   string `json:"file,omitempty"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

func (l Location) String() string {
	if l.File == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// Diagnostic is the single structured error/warning value used across the
// whole module: every pass and every evaluator guard produces these instead
// of bare strings.
type Diagnostic struct {
	Kind           Kind           `json:"kind"`
	Pass           string         `json:"pass"`
	Location       Location       `json:"location,omitempty"`
	Message        string         `json:"message"`
	ConstructKind  string         `json:"construct_kind,omitempty"`
	ConstructID    string         `json:"construct_id,omitempty"`
	Classification Classification `json:"classification,omitempty"`
	Cause          []Cause        `json:"cause_chain,omitempty"`
}

// Cause is one link in a diagnostic's causal chain.
type Cause struct {
	Code string `json:"code"`
	At   string `json:"at,omitempty"`
}

func (d Diagnostic) Error() string {
	if loc := d.Location.String(); loc != "" {
		return fmt.Sprintf("%s[%s]: %s (%s)", d.Pass, d.Kind, d.Message, loc)
	}
	return fmt.Sprintf("%s[%s]: %s", d.Pass, d.Kind, d.Message)
}

// MessageHash returns a short, stable hash of the diagnostic's message,
// used where a derivation record needs a provenance-stable error summary
// rather than the full free-text message.
func (d Diagnostic) MessageHash() string {
	sum := sha256.Sum256([]byte(d.Message))
	return hex.EncodeToString(sum[:8])
}

// Builder constructs a Diagnostic fluently, mirroring the teacher's
// ErrorIRBuilder.
type Builder struct {
	d Diagnostic
}

func New(kind Kind, pass, message string) *Builder {
	return &Builder{d: Diagnostic{Kind: kind, Pass: pass, Message: message}}
}

func (b *Builder) At(loc Location) *Builder {
	b.d.Location = loc
	return b
}

func (b *Builder) On(constructKind, constructID string) *Builder {
	b.d.ConstructKind = constructKind
	b.d.ConstructID = constructID
	return b
}

func (b *Builder) Classify(c Classification) *Builder {
	b.d.Classification = c
	return b
}

func (b *Builder) CausedBy(code, at string) *Builder {
	b.d.Cause = append(b.d.Cause, Cause{Code: code, At: at})
	return b
}

func (b *Builder) Build() Diagnostic {
	return b.d
}

// Bag collects diagnostics across a pass so that every recoverable error is
// reported in one batch rather than aborting on the first failure.
type Bag struct {
	items []Diagnostic
}

func (b *Bag) Add(d Diagnostic) {
	b.items = append(b.items, d)
}

func (b *Bag) Addf(kind Kind, pass, format string, args ...interface{}) {
	b.items = append(b.items, Diagnostic{Kind: kind, Pass: pass, Message: fmt.Sprintf(format, args...)})
}

func (b *Bag) Empty() bool {
	return len(b.items) == 0
}

func (b *Bag) Items() []Diagnostic {
	return b.items
}

// Sorted returns the bag's diagnostics in a deterministic order: by pass,
// then by construct id, then by message, mirroring the teacher's
// deterministic CompareErrors/SelectCanonicalError approach.
func (b *Bag) Sorted() []Diagnostic {
	out := make([]Diagnostic, len(b.items))
	copy(out, b.items)
	sort.Slice(out, func(i, j int) bool {
		a, c := out[i], out[j]
		if a.Pass != c.Pass {
			return a.Pass < c.Pass
		}
		if a.ConstructID != c.ConstructID {
			return a.ConstructID < c.ConstructID
		}
		return a.Message < c.Message
	})
	return out
}
