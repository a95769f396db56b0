// Package provenance implements the bidirectional span index (C7): given
// the generated overlay text and its template↔overlay mapping from C6, it
// answers "what template span produced this overlay position" and "what
// overlay position does this template span project to", dense enough to
// back an editor's hover/go-to-definition without re-walking the IR. It also
// indexes C6's member-level segments, so a reference/rename query can find
// the identifier under a cursor rather than only the whole expression
// covering it. Grounded on the teacher's ComponentError, which already
// carries File/Line/Column/Length for one direction (source -> error); this
// generalizes that into a two-way, queryable index instead of a one-shot
// annotation on a single error value.
package provenance

import (
	"sort"

	"github.com/kvietkauskas/au-ttc/internal/overlay"
	"github.com/kvietkauskas/au-ttc/internal/span"
)

// Entry is one indexed correspondence between a template span and the
// overlay span generated for it, plus the member-level segments (if any)
// discovered while rewriting its expression.
type Entry struct {
	ExprID       span.ExprID
	TemplateURI  string
	TemplateSpan span.Span
	OverlaySpan  span.Span
	Segments     []overlay.Segment
}

// SegmentMatch is one member-level correspondence: a single identifier's
// template span, the member path it was rewritten to, and that member
// path's span inside the generated overlay text.
type SegmentMatch struct {
	ExprID       span.ExprID
	TemplateSpan span.Span
	OverlaySpan  span.Span
	MemberPath   string
}

// Index is a dense, offset-sorted bidirectional map between one template
// file's authored spans and the overlay text generated for it.
type Index struct {
	templateURI string
	byTemplate  []Entry // sorted by TemplateSpan.Start
	byOverlay   []Entry // sorted by OverlaySpan.Start

	segByTemplate []SegmentMatch // sorted by TemplateSpan.Start
	segByOverlay  []SegmentMatch // sorted by OverlaySpan.Start
}

// Build constructs an Index from one template's overlay mapping. When two
// entries share the same starting offset (a degenerate zero-length
// expression span nested inside a larger one), the innermost — the one
// with the smaller span — wins lookups at that offset, matching how an
// editor expects hovering the innermost token to report the most specific
// symbol. The same innermost-wins rule applies to segment lookups.
func Build(templateURI string, mapping []overlay.MappingEntry) *Index {
	idx := &Index{templateURI: templateURI}
	for _, m := range mapping {
		idx.byTemplate = append(idx.byTemplate, Entry{
			ExprID: m.ExprID, TemplateURI: templateURI,
			TemplateSpan: m.TemplateSpan, OverlaySpan: m.OverlaySpan,
			Segments: m.Segments,
		})
		for _, s := range m.Segments {
			idx.segByTemplate = append(idx.segByTemplate, SegmentMatch{
				ExprID: m.ExprID, TemplateSpan: s.TemplateSpan,
				OverlaySpan: s.OverlaySpan, MemberPath: s.MemberPath,
			})
		}
	}
	idx.byOverlay = append(idx.byOverlay, idx.byTemplate...)
	idx.segByOverlay = append(idx.segByOverlay, idx.segByTemplate...)

	sort.SliceStable(idx.byTemplate, func(i, j int) bool {
		a, b := idx.byTemplate[i], idx.byTemplate[j]
		if a.TemplateSpan.Start != b.TemplateSpan.Start {
			return a.TemplateSpan.Start < b.TemplateSpan.Start
		}
		return a.TemplateSpan.Length() < b.TemplateSpan.Length()
	})
	sort.SliceStable(idx.byOverlay, func(i, j int) bool {
		a, b := idx.byOverlay[i], idx.byOverlay[j]
		if a.OverlaySpan.Start != b.OverlaySpan.Start {
			return a.OverlaySpan.Start < b.OverlaySpan.Start
		}
		return a.OverlaySpan.Length() < b.OverlaySpan.Length()
	})
	sort.SliceStable(idx.segByTemplate, func(i, j int) bool {
		a, b := idx.segByTemplate[i], idx.segByTemplate[j]
		if a.TemplateSpan.Start != b.TemplateSpan.Start {
			return a.TemplateSpan.Start < b.TemplateSpan.Start
		}
		return a.TemplateSpan.Length() < b.TemplateSpan.Length()
	})
	sort.SliceStable(idx.segByOverlay, func(i, j int) bool {
		a, b := idx.segByOverlay[i], idx.segByOverlay[j]
		if a.OverlaySpan.Start != b.OverlaySpan.Start {
			return a.OverlaySpan.Start < b.OverlaySpan.Start
		}
		return a.OverlaySpan.Length() < b.OverlaySpan.Length()
	})
	return idx
}

// LookupGenerated finds the innermost entry whose OverlaySpan covers
// offset, the projection used when a type-checker diagnostic lands inside
// the generated lambda and needs to be reported back against the template.
func (idx *Index) LookupGenerated(offset int) (Entry, bool) {
	return lookup(idx.byOverlay, offset, func(e Entry) span.Span { return e.OverlaySpan })
}

// LookupSource finds the innermost entry whose TemplateSpan covers offset,
// the projection used for hover/go-to-definition requests against the
// authored template.
func (idx *Index) LookupSource(offset int) (Entry, bool) {
	return lookup(idx.byTemplate, offset, func(e Entry) span.Span { return e.TemplateSpan })
}

// LookupSourceSegment finds the innermost identifier segment whose
// TemplateSpan covers offset — the member-aware lookup GetReferences and
// GetRenameEdits use to target exactly the identifier under a cursor
// ("k" in "${k.length}"), not the whole expression it sits in.
func (idx *Index) LookupSourceSegment(offset int) (SegmentMatch, bool) {
	return lookupSegment(idx.segByTemplate, offset, func(s SegmentMatch) span.Span { return s.TemplateSpan })
}

// LookupGeneratedSegment finds the innermost identifier segment whose
// OverlaySpan covers offset.
func (idx *Index) LookupGeneratedSegment(offset int) (SegmentMatch, bool) {
	return lookupSegment(idx.segByOverlay, offset, func(s SegmentMatch) span.Span { return s.OverlaySpan })
}

// SegmentsNamed returns every indexed segment whose MemberPath's final
// component (after the last '.') equals name, the building block
// GetReferences/GetRenameEdits use to find every occurrence of one
// identifier across the template.
func (idx *Index) SegmentsNamed(name string) []SegmentMatch {
	var out []SegmentMatch
	for _, s := range idx.segByTemplate {
		if lastPathComponent(s.MemberPath) == name {
			out = append(out, s)
		}
	}
	return out
}

func lastPathComponent(memberPath string) string {
	idx := -1
	for i := len(memberPath) - 1; i >= 0; i-- {
		if memberPath[i] == '.' {
			idx = i
			break
		}
	}
	if idx < 0 {
		return memberPath
	}
	return memberPath[idx+1:]
}

// ProjectGeneratedSpan maps a template-side span to its overlay-side span,
// if the span exactly matches one indexed expression.
func (idx *Index) ProjectGeneratedSpan(s span.Span) (span.Span, bool) {
	for _, e := range idx.byTemplate {
		if e.TemplateSpan == s {
			return e.OverlaySpan, true
		}
	}
	return span.Span{}, false
}

// ProjectMemberSlice maps an arbitrary overlay sub-slice [sliceStart,
// sliceEnd) inside e's lambda back to a best-effort template span, per the
// member-segment projection algorithm: a slice exactly covering e's whole
// OverlaySpan maps to its whole TemplateSpan; any other slice is located by
// its relative position (start/end ratio) within the overlay span and that
// same ratio is applied to the template span, clamped to stay inside it.
// This is the fallback for a slice that doesn't line up with any segment
// Build already indexed exactly; an exact segment match (via
// LookupGeneratedSegment) should always be preferred when one exists.
func ProjectMemberSlice(e Entry, sliceStart, sliceEnd int) span.Span {
	oStart, oEnd := e.OverlaySpan.Start, e.OverlaySpan.End
	tStart, tEnd := e.TemplateSpan.Start, e.TemplateSpan.End

	if sliceStart == oStart && sliceEnd == oEnd {
		return e.TemplateSpan
	}

	overlayLen := oEnd - oStart
	if overlayLen <= 0 {
		overlayLen = 1
	}
	sRatio := float64(sliceStart-oStart) / float64(overlayLen)
	eRatio := float64(sliceEnd-oStart) / float64(overlayLen)

	tLen := float64(tEnd - tStart)
	start := tStart + int(sRatio*tLen+0.5)
	end := tStart + int(eRatio*tLen+0.5)
	if start > end {
		start, end = end, start
	}
	if start < tStart {
		start = tStart
	}
	if end > tEnd {
		end = tEnd
	}
	return span.Span{Start: start, End: end}
}

// Stats summarizes one template's indexed expression coverage, the
// underlying data for a "templateStats" report.
type Stats struct {
	URI             string
	ExpressionCount int
	CoveredBytes    int
}

// TemplateStats computes Stats over the index.
func (idx *Index) TemplateStats() Stats {
	s := Stats{URI: idx.templateURI, ExpressionCount: len(idx.byTemplate)}
	for _, e := range idx.byTemplate {
		s.CoveredBytes += e.TemplateSpan.Length()
	}
	return s
}

// lookup performs a linear scan preferring the smallest covering span (the
// entry count per template is small enough — one per bound expression —
// that a sorted binary search would save little and cost readability).
func lookup(entries []Entry, offset int, spanOf func(Entry) span.Span) (Entry, bool) {
	var best Entry
	found := false
	for _, e := range entries {
		sp := spanOf(e)
		if !sp.Covers(offset) {
			continue
		}
		if !found || sp.Length() < spanOf(best).Length() {
			best = e
			found = true
		}
	}
	return best, found
}

func lookupSegment(entries []SegmentMatch, offset int, spanOf func(SegmentMatch) span.Span) (SegmentMatch, bool) {
	var best SegmentMatch
	found := false
	for _, e := range entries {
		sp := spanOf(e)
		if !sp.Covers(offset) {
			continue
		}
		if !found || sp.Length() < spanOf(best).Length() {
			best = e
			found = true
		}
	}
	return best, found
}
