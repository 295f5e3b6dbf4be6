//go:build property
// +build property

package flow_test

import (
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/tenor-lang/tenor/internal/elaborate"
	"github.com/tenor-lang/tenor/internal/eval"
	"github.com/tenor-lang/tenor/internal/eval/flow"
)

func buildSnapshotIndex(t *testing.T) *elaborate.Index {
	t.Helper()
	src := `
persona Warehouse { }
entity Order { states: [Placed, Shipped]; initial: Placed; transitions: [Placed -> Shipped]; }
operation Ship {
	personas: [Warehouse];
	precondition: true;
	effects: [Order: Placed -> Shipped];
	outcomes: [shipped];
	errors: [];
}
flow ShipThenCheck {
	persona: Warehouse;
	entry: DoShip;
	steps: {
		DoShip operation {
			op: Ship;
			outcomes: { shipped: Check };
			on_failure: terminate(failure);
		}
		Check branch {
			condition: verdict_present(AccountActive);
			if_true: Terminal(active);
			if_false: Terminal(inactive);
		}
	};
}
`
	read := func(path string) (string, error) {
		if path != "root.tenor" {
			return "", errors.New("not found")
		}
		return src, nil
	}
	b, bag := elaborate.RunBundle("root.tenor", read)
	if !bag.Empty() {
		t.Fatalf("bundle: %v", bag.Sorted())
	}
	idx, bag := elaborate.RunIndex(b)
	if !bag.Empty() {
		t.Fatalf("index: %v", bag.Sorted())
	}
	return idx
}

// TestRun_BranchSeesFrozenSnapshotRegardlessOfEarlierOperations backs spec
// §8 universal property 5 / scenario S3: an entity-state change mid-flow
// never changes what a later BranchStep's verdict_present sees, because the
// verdict set is captured once at flow entry and never recomputed.
func TestRun_BranchSeesFrozenSnapshotRegardlessOfEarlierOperations(t *testing.T) {
	idx := buildSnapshotIndex(t)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	properties := gopter.NewProperties(parameters)

	properties.Property("branch outcome depends only on the entry-time verdict, never on intervening state", prop.ForAll(
		func(accountActive bool) bool {
			verdicts := eval.NewVerdictSet()
			if accountActive {
				verdicts.Append(eval.Verdict{Type: "AccountActive"})
			}
			snapshot := &eval.Snapshot{Facts: eval.NewFactSet(nil), Verdicts: verdicts}
			states := eval.NewEntityStateMap()
			states.Set(eval.InstanceKey{EntityID: "Order", InstanceID: eval.DefaultInstance}, "Placed")

			result, err := flow.Run(idx, "ShipThenCheck", snapshot, states, nil)
			if err != nil {
				return false
			}

			if accountActive {
				return result.Outcome == "active"
			}
			return result.Outcome == "inactive"
		},
		gen.Bool(),
	))

	properties.TestingRun(t)
}
