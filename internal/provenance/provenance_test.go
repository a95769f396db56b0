package provenance_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kvietkauskas/au-ttc/internal/overlay"
	"github.com/kvietkauskas/au-ttc/internal/provenance"
	"github.com/kvietkauskas/au-ttc/internal/span"
)

func TestLookupGeneratedAndSourceRoundTrip(t *testing.T) {
	mapping := []overlay.MappingEntry{
		{ExprID: 0, TemplateSpan: span.Span{Start: 10, End: 15}, OverlaySpan: span.Span{Start: 100, End: 130}},
		{ExprID: 1, TemplateSpan: span.Span{Start: 20, End: 30}, OverlaySpan: span.Span{Start: 140, End: 180}},
	}
	idx := provenance.Build("list.html", mapping)

	e, ok := idx.LookupGenerated(150)
	require.True(t, ok)
	require.Equal(t, span.ExprID(1), e.ExprID)

	e, ok = idx.LookupSource(12)
	require.True(t, ok)
	require.Equal(t, span.ExprID(0), e.ExprID)

	_, ok = idx.LookupSource(17)
	require.False(t, ok)
}

func TestLookupPrefersInnermostSpanAtSameStart(t *testing.T) {
	mapping := []overlay.MappingEntry{
		{ExprID: 0, TemplateSpan: span.Span{Start: 5, End: 40}, OverlaySpan: span.Span{Start: 0, End: 10}},
		{ExprID: 1, TemplateSpan: span.Span{Start: 5, End: 12}, OverlaySpan: span.Span{Start: 20, End: 25}},
	}
	idx := provenance.Build("card.html", mapping)

	e, ok := idx.LookupSource(8)
	require.True(t, ok)
	require.Equal(t, span.ExprID(1), e.ExprID, "innermost (shortest) span should win over an enclosing one")
}

func TestProjectGeneratedSpanExactMatch(t *testing.T) {
	want := span.Span{Start: 30, End: 36}
	mapping := []overlay.MappingEntry{
		{ExprID: 2, TemplateSpan: span.Span{Start: 8, End: 13}, OverlaySpan: want},
	}
	idx := provenance.Build("x.html", mapping)

	got, ok := idx.ProjectGeneratedSpan(span.Span{Start: 8, End: 13})
	require.True(t, ok)
	require.Equal(t, want, got)

	_, ok = idx.ProjectGeneratedSpan(span.Span{Start: 0, End: 1})
	require.False(t, ok)
}

func TestLookupSourceSegmentFindsHeadIdentifier(t *testing.T) {
	mapping := []overlay.MappingEntry{
		{
			ExprID:       0,
			TemplateSpan: span.Span{Start: 0, End: 13}, // "item.length" inside "${item.length}"
			OverlaySpan:  span.Span{Start: 100, End: 140},
			Segments: []overlay.Segment{
				{TemplateSpan: span.Span{Start: 2, End: 6}, OverlaySpan: span.Span{Start: 108, End: 115}, MemberPath: "o1.Item"},
			},
		},
	}
	idx := provenance.Build("list.html", mapping)

	seg, ok := idx.LookupSourceSegment(4)
	require.True(t, ok)
	require.Equal(t, "o1.Item", seg.MemberPath)

	seg, ok = idx.LookupGeneratedSegment(110)
	require.True(t, ok)
	require.Equal(t, "o1.Item", seg.MemberPath)

	named := idx.SegmentsNamed("Item")
	require.Len(t, named, 1)
	require.Equal(t, seg.TemplateSpan, named[0].TemplateSpan)
}

func TestProjectMemberSliceExactAndInterpolated(t *testing.T) {
	e := provenance.Entry{
		TemplateSpan: span.Span{Start: 10, End: 20},
		OverlaySpan:  span.Span{Start: 100, End: 140},
	}

	got := provenance.ProjectMemberSlice(e, 100, 140)
	require.Equal(t, e.TemplateSpan, got)

	got = provenance.ProjectMemberSlice(e, 100, 120) // first half of the overlay span
	require.Equal(t, 10, got.Start)
	require.Equal(t, 15, got.End)
}

func TestTemplateStats(t *testing.T) {
	mapping := []overlay.MappingEntry{
		{ExprID: 0, TemplateSpan: span.Span{Start: 0, End: 4}, OverlaySpan: span.Span{Start: 0, End: 10}},
		{ExprID: 1, TemplateSpan: span.Span{Start: 10, End: 16}, OverlaySpan: span.Span{Start: 20, End: 40}},
	}
	idx := provenance.Build("stats.html", mapping)

	stats := idx.TemplateStats()
	require.Equal(t, "stats.html", stats.URI)
	require.Equal(t, 2, stats.ExpressionCount)
	require.Equal(t, 10, stats.CoveredBytes)
}
