// Package testdata runs the end-to-end scenarios from this compiler's
// design notes as table-driven tests against the full facade pipeline
// (C3-C8), the same way internal/facade's own tests exercise Compile, but
// scoped to the scenarios that motivated specific design decisions (S1-S6)
// rather than one feature at a time.
package testdata_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kvietkauskas/au-ttc/internal/catalog"
	"github.com/kvietkauskas/au-ttc/internal/diag"
	"github.com/kvietkauskas/au-ttc/internal/facade"
	"github.com/kvietkauskas/au-ttc/internal/shape"
)

// S1: a simple interpolation against a matching VM member produces no
// diagnostics, an overlay lambda referencing the VM field, and quick-info
// that reports the authored expression.
func TestS1SimpleInterpolationMatchingMember(t *testing.T) {
	fac := facade.New(catalog.Default())
	src := `<div>${title}</div>`
	doc, err := fac.Compile("s1.html", src, shape.Object(map[string]*shape.Shape{"title": shape.ShapeString}))
	require.NoError(t, err)
	require.Empty(t, doc.Diagnostics.ForSurface(diag.SurfaceLSP))
	require.Contains(t, doc.Overlay.Text, "vm.Title")

	offset := strings.Index(src, "title")
	info, ok := fac.GetQuickInfo("s1.html", offset)
	require.True(t, ok)
	require.Equal(t, "title", info.Expression)
	require.False(t, info.Bad)
}

// S2: binding an unknown property on a known custom element raises
// aurelia/unknown-bindable with a span over the binding's authored value.
func TestS2UnknownBindableOnKnownElement(t *testing.T) {
	cat := catalog.NewBuilder().
		RegisterElement(catalog.Element{Name: "my-el", Bindables: []catalog.Bindable{{Name: "value", TypeHint: "string"}}}).
		Build()
	fac := facade.New(cat)
	src := `<my-el foo.bind="bar"></my-el>`
	doc, err := fac.Compile("s2.html", src, nil)
	require.NoError(t, err)

	lsp := doc.Diagnostics.ForSurface(diag.SurfaceLSP)
	var found *diag.FinalizedDiagnostic
	for i, d := range lsp {
		if d.Code == "aurelia/unknown-bindable" {
			found = &lsp[i]
		}
	}
	require.NotNil(t, found, "expected an aurelia/unknown-bindable diagnostic")
	require.Equal(t, strings.Index(src, "bar"), found.Location.Span.Start)
}

// S3: repeat destructuring locals get their own frame fields, no
// diagnostics are raised, and renaming a destructured local only touches
// its template occurrences.
func TestS3RepeatDestructuringLocals(t *testing.T) {
	fac := facade.New(catalog.Default())
	src := `<li repeat.for="[k,v] of pairs">${k.length}${v}</li>`
	doc, err := fac.Compile("s3.html", src, nil)
	require.NoError(t, err)
	require.Empty(t, doc.Diagnostics.ForSurface(diag.SurfaceLSP))
	require.Contains(t, doc.Overlay.Text, "K any")
	require.Contains(t, doc.Overlay.Text, "V any")

	offset := strings.Index(src, "k.length")
	edits := fac.GetRenameEdits("s3.html", offset, "key")
	require.Len(t, edits, 1, "only the one occurrence of k in this template should be renamed")
	require.Equal(t, "key", edits[0].NewText)
}

// S4: a foreign dashed element with no dialect syntax anywhere in its
// subtree never surfaces aurelia/unknown-element to an editor; it is
// suppressed with a "confidence-demotion" reason instead.
func TestS4ConfidenceDemotedForeignElement(t *testing.T) {
	fac := facade.New(catalog.Default())
	doc, err := fac.Compile("s4.html", `<sl-button class="primary">click</sl-button>`, nil)
	require.NoError(t, err)

	for _, d := range doc.Diagnostics.ForSurface(diag.SurfaceLSP) {
		require.NotEqual(t, "aurelia/unknown-element", d.Code)
	}
	var demoted *diag.FinalizedDiagnostic
	for i, d := range doc.Diagnostics.Suppressed {
		if d.Code == "aurelia/unknown-element" {
			demoted = &doc.Diagnostics.Suppressed[i]
		}
	}
	require.NotNil(t, demoted)
	require.Equal(t, "confidence-demotion", demoted.SuppressionReason)
}

// S5: padding an earlier interpolation with whitespace must not shift a
// later diagnostic's span — only the edited interpolation's own offsets
// move.
func TestS5WhitespaceDoesNotShiftDownstreamSpans(t *testing.T) {
	fac := facade.New(catalog.Default())

	tight := `<p>${a}</p><p>${b | missing}</p>`
	padded := "<p>${\n   a\n  }</p><p>${b | missing}</p>"
	delta := len(padded) - len(tight)

	tightDoc, err := fac.Compile("s5-tight.html", tight, shape.Object(map[string]*shape.Shape{
		"a": shape.ShapeString, "b": shape.ShapeString,
	}))
	require.NoError(t, err)
	paddedDoc, err := fac.Compile("s5-padded.html", padded, shape.Object(map[string]*shape.Shape{
		"a": shape.ShapeString, "b": shape.ShapeString,
	}))
	require.NoError(t, err)

	tightSpan := converterSpan(t, tightDoc.Diagnostics)
	paddedSpan := converterSpan(t, paddedDoc.Diagnostics)

	require.Equal(t, tightSpan.Start, paddedSpan.Start-delta)
	require.Equal(t, tightSpan.End, paddedSpan.End-delta)
}

func converterSpan(t *testing.T, routed diag.RoutedDiagnostics) diagSpan {
	t.Helper()
	for _, d := range routed.ForSurface(diag.SurfaceLSP) {
		if d.Code == "aurelia/unknown-converter" {
			return diagSpan{Start: d.Location.Span.Start, End: d.Location.Span.End}
		}
	}
	t.Fatal("expected an aurelia/unknown-converter diagnostic")
	return diagSpan{}
}

type diagSpan struct{ Start, End int }

// S6: promise's then/catch branches get isolated frames — "data" is only
// visible (and only renamed) inside the then branch, "err" only in catch.
func TestS6PromiseThenCatchIsolation(t *testing.T) {
	fac := facade.New(catalog.Default())
	src := `<template promise.bind="p">` +
		`<span then.from-view="data">${data.toUpperCase()}</span>` +
		`<span catch.from-view="err">${err}</span>` +
		`</template>`
	doc, err := fac.Compile("s6.html", src, nil)
	require.NoError(t, err)
	require.Empty(t, doc.Diagnostics.ForSurface(diag.SurfaceLSP))

	offset := strings.Index(src, "data.toUpperCase")
	edits := fac.GetRenameEdits("s6.html", offset, "value")
	require.Len(t, edits, 1, "renaming data must only touch the then branch, not catch's err")
}
