package diag

import (
	"sort"
	"strconv"
	"strings"

	"github.com/kvietkauskas/au-ttc/internal/span"
)

// Regime buckets a diagnostic by how much the engine trusts its producer.
// Regime 1 diagnostics come from syntax-level stages (lower) and are never
// demoted. Regime 2 comes from catalog-dependent resolution (resolve) and is
// confidence-gated: a Low-confidence regime-2 diagnostic is moved to the
// suppressed list (severity unchanged) rather than shown, since it is as likely
// to be an unrecognized custom element as a real mistake. Regime 3 covers
// type-check diagnostics, which are suppressed outright when they cascade
// from an instruction C4 already flagged unknown (re-reporting the same
// unresolved reference twice, once from each stage, is noise).
type Regime int

const (
	RegimeSyntax Regime = iota
	RegimeCatalog
	RegimeTypecheck
)

func regimeOf(phase Phase) Regime {
	switch phase {
	case PhaseLower:
		return RegimeSyntax
	case PhaseTypecheck:
		return RegimeTypecheck
	default:
		return RegimeCatalog
	}
}

// FinalizedDiagnostic is a Diagnostic plus the engine's suppression verdict.
type FinalizedDiagnostic struct {
	Diagnostic
	IsSuppressed bool
	SuppressionReason string
}

// RoutedDiagnostics is C8's final output: diagnostics routed to the surface
// that should show them, plus everything demoted or cascade-dropped along
// the way, kept around so debugging tools can still enumerate it.
type RoutedDiagnostics struct {
	BySurface map[Surface][]FinalizedDiagnostic
	Suppressed []FinalizedDiagnostic
}

// ForSurface returns the finalized diagnostics routed to surface, or nil if
// none were routed there.
func (r RoutedDiagnostics) ForSurface(surface Surface) []FinalizedDiagnostic {
	return r.BySurface[surface]
}

// All returns every routed diagnostic (across all surfaces) followed by the
// suppressed ones, in that order. Callers that used to consume Aggregate's
// flat slice and don't care about routing can use this directly.
func (r RoutedDiagnostics) All() []FinalizedDiagnostic {
	var total int
	for _, v := range r.BySurface {
		total += len(v)
	}
	out := make([]FinalizedDiagnostic, 0, total+len(r.Suppressed))
	for _, surface := range sortedSurfaces(r.BySurface) {
		out = append(out, r.BySurface[surface]...)
	}
	out = append(out, r.Suppressed...)
	return out
}

func sortedSurfaces(bySurface map[Surface][]FinalizedDiagnostic) []Surface {
	surfaces := make([]Surface, 0, len(bySurface))
	for s := range bySurface {
		surfaces = append(surfaces, s)
	}
	sort.Slice(surfaces, func(i, j int) bool { return surfaces[i] < surfaces[j] })
	return surfaces
}

// UnresolvedInstructions is the set of InstructionKey strings (see
// internal/resolve.InstructionKey.String) that C4 could not resolve, used by
// Finalize to suppress cascading regime-3 diagnostics about the same
// instruction.
type UnresolvedInstructions map[string]bool

// Aggregate merges every queue's items, deduplicates identical reports,
// applies confidence-based demotion and cascade suppression, and routes the
// survivors into a RoutedDiagnostics by surface (defaulting to SurfaceLSP),
// deterministically sorted by (uri, span.start, span.end, code).
func Aggregate(unresolved UnresolvedInstructions, queues ...*Queue) RoutedDiagnostics {
	seen := map[string]bool{}
	var all []Diagnostic
	for _, q := range queues {
		for _, d := range q.Items() {
			key := dedupeKey(d)
			if seen[key] {
				continue
			}
			seen[key] = true
			all = append(all, d)
		}
	}
	sortDiagnostics(all)

	routed := RoutedDiagnostics{BySurface: map[Surface][]FinalizedDiagnostic{}}
	for _, d := range all {
		fd := finalize(d, unresolved)
		if fd.IsSuppressed {
			routed.Suppressed = append(routed.Suppressed, fd)
			continue
		}
		surface := fd.Surface
		if surface == "" {
			surface = SurfaceLSP
		}
		routed.BySurface[surface] = append(routed.BySurface[surface], fd)
	}
	return routed
}

func sortDiagnostics(all []Diagnostic) {
	sort.SliceStable(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if a.Location.URI != b.Location.URI {
			return a.Location.URI < b.Location.URI
		}
		if a.Location.Span.Start != b.Location.Span.Start {
			return a.Location.Span.Start < b.Location.Span.Start
		}
		if a.Location.Span.End != b.Location.Span.End {
			return a.Location.Span.End < b.Location.Span.End
		}
		return a.Code < b.Code
	})
}

// dedupeKey identifies a diagnostic by (code, uri, span.start, span.end)
// only: two diagnostics with the same code at the same location collapse
// even if their rendered messages differ.
func dedupeKey(d Diagnostic) string {
	return strings.Join([]string{
		d.Code, d.Location.URI,
		strconv.Itoa(d.Location.Span.Start), strconv.Itoa(d.Location.Span.End),
	}, "\x00")
}

func finalize(d Diagnostic, unresolved UnresolvedInstructions) FinalizedDiagnostic {
	switch regimeOf(d.Source) {
	case RegimeCatalog:
		if d.HasConfidence && d.Confidence == ConfidenceLow {
			return FinalizedDiagnostic{Diagnostic: d, IsSuppressed: true, SuppressionReason: "confidence-demotion"}
		}
	case RegimeTypecheck:
		if d.HasInstructionKey && unresolved[d.InstructionKey] {
			return FinalizedDiagnostic{Diagnostic: d, IsSuppressed: true, SuppressionReason: "cascades from an already-unresolved instruction"}
		}
	}
	return FinalizedDiagnostic{Diagnostic: d}
}

// TrimSpan narrows s to exclude any leading/trailing whitespace in text,
// so a diagnostic anchored to "a template-controller's whole attribute
// value" doesn't visually underline surrounding padding the author didn't
// write meaningfully (e.g. "  item.id  "). If s covers only whitespace, it
// is returned unchanged rather than collapsed to an empty span.
func TrimSpan(text string, s span.Span) span.Span {
	if s.Start < 0 || s.End > len(text) || s.Start >= s.End {
		return s
	}
	start, end := s.Start, s.End
	for start < end && isSpace(text[start]) {
		start++
	}
	for end > start && isSpace(text[end-1]) {
		end--
	}
	if start == end {
		return s
	}
	trimmed := s
	trimmed.Start, trimmed.End = start, end
	return trimmed
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
