package aot_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kvietkauskas/au-ttc/internal/aot"
	"github.com/kvietkauskas/au-ttc/internal/catalog"
	"github.com/kvietkauskas/au-ttc/internal/lower"
	"github.com/kvietkauskas/au-ttc/internal/span"
)

func TestEmitAnnotatesBoundNodesAndControllers(t *testing.T) {
	res := catalog.Default().Materialize(catalog.RootScope)
	alloc := &span.Allocator{}
	mod, _, err := lower.Lower(`<ul><li repeat.for="item of items">${item.name}</li></ul>`, lower.Options{
		File: "list.html", Resources: res, Alloc: alloc,
	})
	require.NoError(t, err)
	require.Len(t, mod.Templates, 1)

	out, err := aot.Emit(&mod.Templates[0])
	require.NoError(t, err)
	require.Contains(t, out, "au-start")
	require.Contains(t, out, "au-end")
	require.Contains(t, out, "<ul>")
}
