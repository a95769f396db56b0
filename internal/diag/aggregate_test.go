package diag_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kvietkauskas/au-ttc/internal/diag"
	"github.com/kvietkauskas/au-ttc/internal/span"
)

func TestAggregateDeduplicatesIdenticalDiagnostics(t *testing.T) {
	q1 := diag.NewQueue(diag.PhaseLower)
	q1.Append(diag.Diagnostic{Code: "AU1203", Message: "bad expression", Location: diag.Location{URI: "a.html", Span: span.Span{Start: 1, End: 5}}, HasLocation: true})

	q2 := diag.NewQueue(diag.PhaseLower)
	q2.Append(diag.Diagnostic{Code: "AU1203", Message: "bad expression", Location: diag.Location{URI: "a.html", Span: span.Span{Start: 1, End: 5}}, HasLocation: true})

	out := diag.Aggregate(nil, q1, q2)
	require.Len(t, out.ForSurface(diag.SurfaceLSP), 1)
}

func TestAggregateDemotesLowConfidenceCatalogDiagnosticToSuppressed(t *testing.T) {
	q := diag.NewQueue(diag.PhaseBind)
	q.Append(diag.Diagnostic{
		Code: "aurelia/unknown-controller", Severity: diag.SeverityError, Message: "unknown controller",
		Location: diag.Location{URI: "a.html", Span: span.Span{Start: 0, End: 3}}, HasLocation: true,
		Confidence: diag.ConfidenceLow, HasConfidence: true,
	})

	out := diag.Aggregate(nil, q)
	require.Empty(t, out.ForSurface(diag.SurfaceLSP))
	require.Len(t, out.Suppressed, 1)
	require.Equal(t, "confidence-demotion", out.Suppressed[0].SuppressionReason)
	require.Equal(t, diag.SeverityError, out.Suppressed[0].Severity)
}

func TestAggregateSuppressesCascadingTypecheckDiagnostic(t *testing.T) {
	q := diag.NewQueue(diag.PhaseTypecheck)
	q.Append(diag.Diagnostic{
		Code: "aurelia/expr-type-mismatch", Severity: diag.SeverityError, Message: "unknown member",
		Location: diag.Location{URI: "a.html", Span: span.Span{Start: 0, End: 3}}, HasLocation: true,
		InstructionKey: "5:0", HasInstructionKey: true,
	})

	unresolved := diag.UnresolvedInstructions{"5:0": true}
	out := diag.Aggregate(unresolved, q)
	require.Empty(t, out.ForSurface(diag.SurfaceLSP))
	require.Len(t, out.Suppressed, 1)
	require.Contains(t, out.Suppressed[0].SuppressionReason, "already-unresolved")
}

func TestAggregateSortsByLocation(t *testing.T) {
	q := diag.NewQueue(diag.PhaseLower)
	q.Append(diag.Diagnostic{Code: "AU1203", Location: diag.Location{URI: "a.html", Span: span.Span{Start: 20, End: 25}}, HasLocation: true})
	q.Append(diag.Diagnostic{Code: "AU1203", Location: diag.Location{URI: "a.html", Span: span.Span{Start: 5, End: 8}}, HasLocation: true, Message: "first"})

	out := diag.Aggregate(nil, q)
	lsp := out.ForSurface(diag.SurfaceLSP)
	require.Len(t, lsp, 2)
	require.Equal(t, "first", lsp[0].Message)
}

func TestAggregateDedupeIgnoresMessageText(t *testing.T) {
	q := diag.NewQueue(diag.PhaseLower)
	q.Append(diag.Diagnostic{Code: "AU1203", Message: "first phrasing", Location: diag.Location{URI: "a.html", Span: span.Span{Start: 1, End: 5}}, HasLocation: true})
	q.Append(diag.Diagnostic{Code: "AU1203", Message: "different phrasing", Location: diag.Location{URI: "a.html", Span: span.Span{Start: 1, End: 5}}, HasLocation: true})

	out := diag.Aggregate(nil, q)
	require.Len(t, out.ForSurface(diag.SurfaceLSP), 1)
}

func TestTrimSpanStripsSurroundingWhitespace(t *testing.T) {
	text := `  item.id  `
	trimmed := diag.TrimSpan(text, span.Span{Start: 0, End: len(text)})
	require.Equal(t, "item.id", text[trimmed.Start:trimmed.End])
}

func TestTrimSpanLeavesWhitespaceOnlySpanUnchanged(t *testing.T) {
	text := `   `
	s := span.Span{Start: 0, End: len(text)}
	require.Equal(t, s, diag.TrimSpan(text, s))
}
