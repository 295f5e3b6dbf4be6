package elaborate_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenor-lang/tenor/internal/elaborate"
)

func provider(files map[string]string) elaborate.SourceProvider {
	return func(path string) (string, error) {
		src, ok := files[path]
		if !ok {
			return "", errors.New("not found: " + path)
		}
		return src, nil
	}
}

func TestRunBundle_SingleFile(t *testing.T) {
	files := map[string]string{
		"root.tenor": `fact OrderTotal { type: Decimal(10, 2); }`,
	}
	b, bag := elaborate.RunBundle("root.tenor", provider(files))
	require.True(t, bag.Empty())
	require.Len(t, b.Constructs, 1)
	assert.Equal(t, "OrderTotal", b.Constructs[0].ID())
}

func TestRunBundle_FollowsImports(t *testing.T) {
	files := map[string]string{
		"root.tenor":   `import "shared.tenor"` + "\n" + `fact OrderTotal { type: Decimal(10, 2); }`,
		"shared.tenor": `persona Warehouse { }`,
	}
	b, bag := elaborate.RunBundle("root.tenor", provider(files))
	require.True(t, bag.Empty())
	require.Len(t, b.Constructs, 2)
}

func TestRunBundle_MissingImportReportsDiagnostic(t *testing.T) {
	files := map[string]string{
		"root.tenor": `import "missing.tenor"`,
	}
	_, bag := elaborate.RunBundle("root.tenor", provider(files))
	assert.False(t, bag.Empty())
}

func TestRunBundle_ImportCycleReportsDiagnostic(t *testing.T) {
	files := map[string]string{
		"a.tenor": `import "b.tenor"`,
		"b.tenor": `import "a.tenor"`,
	}
	_, bag := elaborate.RunBundle("a.tenor", provider(files))
	assert.False(t, bag.Empty())
}

func TestRunBundle_DuplicateConstructAcrossFiles(t *testing.T) {
	files := map[string]string{
		"root.tenor":   `import "other.tenor"` + "\n" + `fact OrderTotal { type: Bool; }`,
		"other.tenor":  `fact OrderTotal { type: Bool; }`,
	}
	_, bag := elaborate.RunBundle("root.tenor", provider(files))
	assert.False(t, bag.Empty())
}

func TestRunBundle_TypeLibraryCannotImport(t *testing.T) {
	files := map[string]string{
		"root.tenor":  `import "lib.tenor"`,
		"lib.tenor":   `import "other.tenor"` + "\n" + `type Money { body: Decimal(10, 2); }`,
		"other.tenor": `fact X { type: Bool; }`,
	}
	_, bag := elaborate.RunBundle("root.tenor", provider(files))
	assert.False(t, bag.Empty())
}
