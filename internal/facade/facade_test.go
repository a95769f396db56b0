package facade_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kvietkauskas/au-ttc/internal/catalog"
	"github.com/kvietkauskas/au-ttc/internal/diag"
	"github.com/kvietkauskas/au-ttc/internal/facade"
	"github.com/kvietkauskas/au-ttc/internal/shape"
)

func TestCompileProducesDiagnosticsAndQuickInfo(t *testing.T) {
	fac := facade.New(catalog.Default())
	src := `<ul><li repeat.for="item of items">${item.name}</li></ul>`

	doc, err := fac.Compile("list.html", src, nil)
	require.NoError(t, err)
	require.NotNil(t, doc)

	offset := len(`<ul><li repeat.for="item of items">${`)
	info, ok := fac.GetQuickInfo("list.html", offset)
	require.True(t, ok)
	require.Equal(t, "item.name", info.Expression)
	require.False(t, info.Bad)
}

func TestCompileFlagsUnknownCustomElementWithDialectSyntaxAsWarning(t *testing.T) {
	fac := facade.New(catalog.Default())
	doc, err := fac.Compile("widget.html", `<my-widget value.bind="x"></my-widget>`, nil)
	require.NoError(t, err)

	var codes []string
	for _, d := range doc.Diagnostics.ForSurface(diag.SurfaceLSP) {
		codes = append(codes, d.Code)
	}
	require.Contains(t, codes, "aurelia/unknown-element")
}

func TestCompileSuppressesUnknownCustomElementWithNoDialectSyntax(t *testing.T) {
	fac := facade.New(catalog.Default())
	doc, err := fac.Compile("widget.html", `<sl-button class="primary">click</sl-button>`, nil)
	require.NoError(t, err)

	for _, d := range doc.Diagnostics.ForSurface(diag.SurfaceLSP) {
		require.NotEqual(t, "aurelia/unknown-element", d.Code)
	}

	var suppressedCodes []string
	for _, d := range doc.Diagnostics.Suppressed {
		suppressedCodes = append(suppressedCodes, d.Code)
		if d.Code == "aurelia/unknown-element" {
			require.Equal(t, "confidence-demotion", d.SuppressionReason)
		}
	}
	require.Contains(t, suppressedCodes, "aurelia/unknown-element")
}

func TestGetReferencesAndRenameEditsMatchOnlyTheIdentifier(t *testing.T) {
	fac := facade.New(catalog.Default())
	src := `<div>${k.length} - ${k}</div>`
	doc, err := fac.Compile("k.html", src, nil)
	require.NoError(t, err)
	require.NotNil(t, doc)

	offset := len(`<div>${`) // inside the first "k"
	refs := fac.GetReferences("k.html", offset)
	require.Len(t, refs, 2, "both occurrences of k should be found, not just the one under the cursor")

	edits := fac.GetRenameEdits("k.html", offset, "count")
	require.Len(t, edits, 2)
	for _, e := range edits {
		require.Equal(t, "count", e.NewText)
		require.Less(t, e.Span.End-e.Span.Start, len("k.length"), "the edit must cover only the \"k\" token, not the whole member expression")
	}
}

func TestGetCompletionsListsLocalsAndViewModelFields(t *testing.T) {
	fac := facade.New(catalog.Default())
	src := `<li repeat.for="item of items">${item.name}</li>`
	_, err := fac.Compile("row.html", src, nil)
	require.NoError(t, err)

	vmShape := shape.Object(map[string]*shape.Shape{"items": shape.ArrayOf(shape.ShapeAny)})
	offset := len(`<li repeat.for="item of items">${item`)
	items := fac.GetCompletions("row.html", offset, vmShape)

	var names []string
	for _, it := range items {
		names = append(names, it.Name)
	}
	require.Contains(t, names, "item")
	require.Contains(t, names, "items")
}
