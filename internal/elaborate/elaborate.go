package elaborate

import (
	"log/slog"

	"github.com/tenor-lang/tenor/internal/diag"
	"github.com/tenor-lang/tenor/internal/interchange/schema"
)

// Result is the full output of a successful elaboration: the canonical
// envelope bytes plus the index and resolved types the evaluator needs to
// interpret them without re-parsing the canonical JSON.
type Result struct {
	Bundle    *Bundle
	Index     *Index
	Resolved  *Resolved
	Canonical []byte
}

// Elaborate runs all six passes in order (spec §2), aborting after the
// first pass that reports diagnostics (spec §9: "subsequent passes do not
// run after the first pass that reports errors").
func Elaborate(contractID, rootFile string, read SourceProvider, logger *slog.Logger) (*Result, []diag.Diagnostic) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Debug("elaborate: pass 1 bundle", "root", rootFile)
	bundle, bag := RunBundle(rootFile, read)
	if !bag.Empty() {
		return nil, bag.Sorted()
	}

	logger.Debug("elaborate: pass 2 index", "constructs", len(bundle.Constructs))
	idx, bag := RunIndex(bundle)
	if !bag.Empty() {
		return nil, bag.Sorted()
	}

	logger.Debug("elaborate: pass 3 resolve")
	resolved, bag := RunResolve(idx)
	if !bag.Empty() {
		return nil, bag.Sorted()
	}

	logger.Debug("elaborate: pass 4 typecheck")
	bag = RunTypeCheck(idx, resolved)
	if !bag.Empty() {
		return nil, bag.Sorted()
	}

	logger.Debug("elaborate: pass 5 validate")
	bag = RunValidate(idx)
	if !bag.Empty() {
		return nil, bag.Sorted()
	}

	logger.Debug("elaborate: pass 6 serialize")
	canonical, bag := RunSerialize(contractID, bundle, resolved)
	if !bag.Empty() {
		return nil, bag.Sorted()
	}

	// The canonical envelope is the portable contract artifact (spec §6);
	// validating it against its own published schema here, rather than
	// leaving it as unread output, is what makes Pass 6 round-trip instead
	// of being write-only.
	if err := schema.ValidateEnvelope(canonical); err != nil {
		bag.Add(diag.New(diag.KindSerialize, "serialize", "canonical envelope failed schema validation: "+err.Error()).Build())
		return nil, bag.Sorted()
	}

	return &Result{Bundle: bundle, Index: idx, Resolved: resolved, Canonical: canonical}, nil
}
