package overlay

import (
	"fmt"
	"strings"

	"github.com/kvietkauskas/au-ttc/internal/bind"
	"github.com/kvietkauskas/au-ttc/internal/ir"
	"github.com/kvietkauskas/au-ttc/internal/span"
)

// MappingEntry pairs one expression table entry's authored template span
// with the byte span of the lambda emitted for it in the overlay text, plus
// the member-level segments discovered while rewriting it. This is what
// provenance indexes to project a diagnostic (or a rename/reference query)
// from one side to the other, at whole-expression or member granularity.
type MappingEntry struct {
	ExprID       span.ExprID
	TemplateSpan span.Span
	OverlaySpan  span.Span
	Segments     []Segment
}

// EmitResult is the generated overlay source plus its template↔overlay
// mapping.
type EmitResult struct {
	Text    string
	Mapping []MappingEntry
}

// Emit renders plan's frame types and one lambda function per expression
// table entry in mod, returning the full overlay text and its
// per-expression mapping. The view-model itself is left an opaque "any"
// parameter: resolving its real shape against a paired source file is
// internal/typecheck's job, not this stage's — overlay emission only needs
// to get every template-local identifier onto the right generated member
// path. Listener-binding expressions get a third "event any" parameter so
// a "$event" reference in their body resolves to a real symbol; a bad
// (unparseable) expression still gets a lambda, its body the
// "undefined /*bad*/" sentinel mapped back to the authored bad text, so a
// diagnostic anchored to it still has somewhere to project from.
func Emit(mod *ir.Module, plan *Plan, r *bind.Result) EmitResult {
	var b strings.Builder
	b.WriteString("// Code generated by the overlay stage. DO NOT EDIT.\n\n")

	for _, id := range plan.Order {
		t := plan.Types[id]
		fmt.Fprintf(&b, "type %s struct {\n", t.TypeName)
		for _, f := range t.Fields {
			fmt.Fprintf(&b, "\t%s %s\n", capitalize(f.Name), f.TypeHint)
		}
		b.WriteString("}\n\n")
	}

	listenerExprs := listenerExprSet(mod)

	result := EmitResult{}
	for _, entry := range mod.ExprTable {
		frameID, ok := r.FrameOfExpr(entry.ID)
		if !ok {
			continue
		}
		frameType, ok := plan.TypeOf(frameID)
		if !ok {
			continue
		}

		params := fmt.Sprintf("vm any, %s *%s", frameVar(frameID), frameType.TypeName)
		if listenerExprs[entry.ID] {
			params += ", event any"
		}

		if entry.Bad {
			start := b.Len()
			fmt.Fprintf(&b, "func Expr%d(%s) any { return undefined/*bad*/ }\n",
				int(entry.ID), params)
			end := b.Len()
			result.Mapping = append(result.Mapping, MappingEntry{
				ExprID:       entry.ID,
				TemplateSpan: entry.Span,
				OverlaySpan:  span.Span{Start: start, End: end},
			})
			continue
		}

		rewritten := RewriteExpr(entry.Code, entry.Span.Start, frameID, r)
		prefix := fmt.Sprintf("func Expr%d(%s) any { return ", int(entry.ID), params)
		start := b.Len()
		b.WriteString(prefix)
		exprTextStart := b.Len()
		b.WriteString(rewritten.Text)
		b.WriteString(" }\n")
		end := b.Len()

		segments := make([]Segment, len(rewritten.Segments))
		for i, s := range rewritten.Segments {
			segments[i] = Segment{
				TemplateSpan: s.TemplateSpan,
				OverlaySpan:  span.Span{Start: exprTextStart + s.OverlaySpan.Start, End: exprTextStart + s.OverlaySpan.End},
				MemberPath:   s.MemberPath,
			}
		}

		result.Mapping = append(result.Mapping, MappingEntry{
			ExprID:       entry.ID,
			TemplateSpan: entry.Span,
			OverlaySpan:  span.Span{Start: start, End: end},
			Segments:     segments,
		})
	}
	result.Text = b.String()
	return result
}

// listenerExprSet collects every ExprID bound as a listener (click.trigger,
// etc.) across mod, recursing into template-controller bodies, so Emit knows
// which lambdas need the extra "event" parameter $event resolves to.
func listenerExprSet(mod *ir.Module) map[span.ExprID]bool {
	set := map[span.ExprID]bool{}
	var walk func(rows []ir.InstructionRow)
	walk = func(rows []ir.InstructionRow) {
		for _, row := range rows {
			for _, instr := range row.Instructions {
				if instr.Kind == ir.InstrHydrateTemplateController {
					walk(instr.Body)
					continue
				}
				if instr.Kind != ir.InstrListenerBinding || !instr.Source.HasSource {
					continue
				}
				switch instr.Source.Kind {
				case ir.SourceExpr:
					set[instr.Source.ID] = true
				case ir.SourceInterp:
					for _, id := range instr.Source.Exprs {
						set[id] = true
					}
				}
			}
		}
	}
	for _, t := range mod.Templates {
		walk(t.Rows)
	}
	return set
}
