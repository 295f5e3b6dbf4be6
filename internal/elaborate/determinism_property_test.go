//go:build property
// +build property

package elaborate_test

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/tenor-lang/tenor/internal/elaborate"
)

func sourceWithFacts(n int, threshold int) string {
	var b bytes.Buffer
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "fact F%d { type: Int[0, 1000]; }\n", i)
	}
	fmt.Fprintf(&b, "rule R { stratum: 0; when: fact_ref(F0) > %d; produce: Hit = true; }\n", threshold)
	return b.String()
}

func elaborateOnce(t *testing.T, src string) ([]byte, bool) {
	t.Helper()
	read := func(path string) (string, error) {
		if path != "root.tenor" {
			return "", fmt.Errorf("not found: %s", path)
		}
		return src, nil
	}
	result, diags := elaborate.Elaborate("contract-1", "root.tenor", read, nil)
	if len(diags) > 0 {
		return nil, false
	}
	return result.Canonical, true
}

// TestElaborate_IsDeterministic backs spec §8 universal property 1:
// elab(src) = elab(src) byte-for-byte across runs.
func TestElaborate_IsDeterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("repeated elaboration of the same source is byte-identical", prop.ForAll(
		func(n int, threshold int) bool {
			src := sourceWithFacts(n, threshold)
			out1, ok1 := elaborateOnce(t, src)
			out2, ok2 := elaborateOnce(t, src)
			if ok1 != ok2 {
				return false
			}
			if !ok1 {
				return true
			}
			return bytes.Equal(out1, out2)
		},
		gen.IntRange(1, 8),
		gen.IntRange(0, 1000),
	))

	properties.TestingRun(t)
}
