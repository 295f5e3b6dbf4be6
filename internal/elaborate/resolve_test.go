package elaborate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenor-lang/tenor/internal/elaborate"
	"github.com/tenor-lang/tenor/internal/lang/ast"
)

func indexFrom(t *testing.T, src string) *elaborate.Index {
	t.Helper()
	files := map[string]string{"root.tenor": src}
	b, bag := elaborate.RunBundle("root.tenor", provider(files))
	require.True(t, bag.Empty(), "bundle: %v", bag.Sorted())
	idx, bag := elaborate.RunIndex(b)
	require.True(t, bag.Empty(), "index: %v", bag.Sorted())
	return idx
}

func TestRunResolve_UnfoldsNamedType(t *testing.T) {
	idx := indexFrom(t, `
type Money { body: Decimal(10, 2); }
fact Price { type: Money; }
`)
	res, bag := elaborate.RunResolve(idx)
	require.True(t, bag.Empty())
	dt, ok := res.FactTypes["Price"].(ast.DecimalType)
	require.True(t, ok)
	assert.Equal(t, 10, dt.Precision)
	assert.Equal(t, 2, dt.Scale)
}

func TestRunResolve_NestedRecordAndList(t *testing.T) {
	idx := indexFrom(t, `
fact Items { type: List<Decimal(10, 2)>; }
`)
	res, bag := elaborate.RunResolve(idx)
	require.True(t, bag.Empty())
	lt, ok := res.FactTypes["Items"].(ast.ListType)
	require.True(t, ok)
	_, ok = lt.Elem.(ast.DecimalType)
	assert.True(t, ok)
}

func TestRunResolve_SelfReferentialTypeCycleReportsDiagnostic(t *testing.T) {
	idx := indexFrom(t, `
type Loop { body: Loop; }
`)
	_, bag := elaborate.RunResolve(idx)
	assert.False(t, bag.Empty())
}

func TestRunResolve_UnresolvedNamedTypeReportsDiagnostic(t *testing.T) {
	idx := indexFrom(t, `
fact X { type: DoesNotExist; }
`)
	_, bag := elaborate.RunResolve(idx)
	assert.False(t, bag.Empty())
}
