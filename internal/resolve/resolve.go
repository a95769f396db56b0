// Package resolve implements host resolution (C4): it walks a lowered
// ir.Module and links each instruction's authored target against the
// catalog, attaching a confidence tag to anything it could not verify
// instead of failing outright. Grounded on the teacher's checker.go, which
// applies the same "infer what's safe and obvious, stay quiet otherwise"
// discipline to expression shapes; here it's applied to element/attribute
// identity instead of expression types.
package resolve

import (
	"fmt"
	"strings"

	"github.com/kvietkauskas/au-ttc/internal/catalog"
	"github.com/kvietkauskas/au-ttc/internal/diag"
	"github.com/kvietkauskas/au-ttc/internal/ir"
	"github.com/kvietkauskas/au-ttc/internal/span"
)

// ElementResolution is what C4 learned about one element node.
type ElementResolution struct {
	Known      bool
	Custom     bool // tag looked like a custom element (hyphenated)
	Element    catalog.Element
	Confidence diag.Confidence
}

// InstructionKey identifies one instruction within a row, since a row can
// hold several (e.g. a node with both a click.trigger and a value.bind).
type InstructionKey struct {
	Node  span.NodeID
	Index int
}

// String renders the key the same way diag.Diagnostic.InstructionKey
// expects it, so a later phase can correlate a cascade-suppressed
// diagnostic back to the instruction that caused it.
func (k InstructionKey) String() string {
	return fmt.Sprintf("%d:%d", k.Node, k.Index)
}

// InstructionResolution is what C4 learned about one instruction's target.
type InstructionResolution struct {
	Known      bool
	Confidence diag.Confidence
}

// Result is the full output of a Resolve call.
type Result struct {
	Elements     map[span.NodeID]ElementResolution
	Instructions map[InstructionKey]InstructionResolution
}

// Element looks up a prior element resolution.
func (r *Result) Element(id span.NodeID) (ElementResolution, bool) {
	e, ok := r.Elements[id]
	return e, ok
}

// Instruction looks up a prior instruction resolution.
func (r *Result) Instruction(node span.NodeID, index int) (InstructionResolution, bool) {
	i, ok := r.Instructions[InstructionKey{Node: node, Index: index}]
	return i, ok
}

// Resolve links every element and instruction in mod against res, returning
// the resolution result and a diagnostics queue tagged link.
func Resolve(mod *ir.Module, res catalog.Resources) (*Result, *diag.Queue) {
	queue := diag.NewQueue(diag.PhaseLink)
	result := &Result{
		Elements:     map[span.NodeID]ElementResolution{},
		Instructions: map[InstructionKey]InstructionResolution{},
	}
	rs := &resolver{
		res: res, queue: queue, result: result, file: mod.File,
		tagByNode:    map[span.NodeID]string{},
		dialectNodes: map[span.NodeID]bool{},
	}
	for _, t := range mod.Templates {
		rs.markDialectRows(t.Rows)
		if t.Dom != nil {
			rs.walkDom(t.Dom)
		}
		rs.walkRows(t.Rows, "")
	}
	rs.resolveConverters(mod)
	return result, queue
}

// resolveConverters checks every "| name" value converter referenced across
// mod's expression table against the catalog. Unlike element/bindable
// resolution, an unknown converter carries no confidence gating: there is no
// "foreign dialect" ambiguity to account for, since "|" is never valid
// outside this compiler's own expression grammar extension.
func (r *resolver) resolveConverters(mod *ir.Module) {
	for _, entry := range mod.ExprTable {
		for _, ref := range entry.Converters {
			if r.res.HasValueConverter(ref.Name) {
				continue
			}
			r.queue.Append(diag.Diagnostic{
				Code:        "aurelia/unknown-converter",
				Severity:    diag.SeverityWarning,
				Message:     fmt.Sprintf("unknown value converter %q", ref.Name),
				Location:    diag.Location{URI: r.file, Span: ref.Span},
				HasLocation: true,
			}.WithData("resourceKind", "converter").WithData("name", ref.Name))
		}
	}
}

type resolver struct {
	res       catalog.Resources
	queue     *diag.Queue
	result    *Result
	file      string
	tagByNode map[span.NodeID]string

	// dialectNodes is the set of NodeIDs that carry at least one instruction
	// recognizable as Aurelia dialect syntax (a binding, a controller, a
	// <let>), as opposed to a plain literal HTML attribute. Used to decide
	// whether an unknown dashed element's entire subtree is dialect-free.
	dialectNodes map[span.NodeID]bool
}

// markDialectRows walks rows (recursively through template-controller
// bodies) and records which node each dialect-bearing instruction targets,
// ahead of the DOM walk so resolveElement can answer "does this element's
// subtree contain any dialect syntax at all" with a simple lookup.
func (r *resolver) markDialectRows(rows []ir.InstructionRow) {
	for _, row := range rows {
		for _, instr := range row.Instructions {
			if isDialectInstruction(instr) {
				r.dialectNodes[row.Target] = true
			}
			if instr.Kind == ir.InstrHydrateTemplateController {
				r.markDialectRows(instr.Body)
			}
		}
	}
}

// isDialectInstruction reports whether instr is authored Aurelia syntax
// (a binding source, a repeat iterator, a <let>, or a controller) rather
// than a plain literal HTML attribute/text value.
func isDialectInstruction(instr ir.Instruction) bool {
	switch {
	case instr.Kind == ir.InstrHydrateTemplateController:
		return true
	case instr.Source.HasSource:
		return true
	case instr.HasIterator:
		return true
	case len(instr.Lets) > 0:
		return true
	default:
		return false
	}
}

func (r *resolver) walkDom(n *ir.TemplateNode) {
	if n.Kind == ir.NodeElement {
		r.tagByNode[n.ID] = n.Tag
		r.resolveElement(n)
	}
	for _, c := range n.Children {
		r.walkDom(c)
	}
}

// subtreeHasDialectSyntax reports whether n or any descendant carries
// dialect-bearing syntax, per §4.4 item 3's "zero dialect syntax in its
// entire subtree" test for demoting an unknown element to low confidence.
func (r *resolver) subtreeHasDialectSyntax(n *ir.TemplateNode) bool {
	if r.dialectNodes[n.ID] {
		return true
	}
	for _, c := range n.Children {
		if r.subtreeHasDialectSyntax(c) {
			return true
		}
	}
	return false
}

func (r *resolver) resolveElement(n *ir.TemplateNode) {
	el, ok := r.res.LookupElement(n.Tag)
	custom := strings.Contains(n.Tag, "-")

	res := ElementResolution{Known: ok, Custom: custom, Element: el, Confidence: diag.ConfidenceHigh}
	if !ok && custom {
		if r.subtreeHasDialectSyntax(n) {
			res.Confidence = diag.ConfidenceMedium
		} else {
			res.Confidence = diag.ConfidenceLow
		}
		r.queue.Append(diag.Diagnostic{
			Code:        "aurelia/unknown-element",
			Severity:    diag.SeverityWarning,
			Message:     fmt.Sprintf("unknown custom element <%s>", n.Tag),
			Location:    diag.Location{URI: r.file, Span: n.Loc},
			HasLocation: true,
			Confidence:  res.Confidence,
			HasConfidence: true,
		}.WithData("resourceKind", "element").WithData("name", n.Tag))
	}
	r.result.Elements[n.ID] = res
}

// walkRows recurses through instruction rows, tracking the name of the
// template controller (if any) whose body is currently being walked, so
// that branch attributes (case/then/catch/pending/default-case) can be
// checked against their parent's registered valid branches.
func (r *resolver) walkRows(rows []ir.InstructionRow, parentController string) {
	for _, row := range rows {
		tag := r.tagByNode[row.Target]
		for idx, instr := range row.Instructions {
			switch instr.Kind {
			case ir.InstrHydrateTemplateController:
				r.resolveController(instr, parentController, row.Target)
				r.walkRows(instr.Body, instr.ControllerName)
			case ir.InstrPropertyBinding, ir.InstrListenerBinding:
				r.resolveBindable(instr, tag, row.Target, idx)
			}
		}
	}
}

func (r *resolver) resolveController(instr ir.Instruction, parentController string, node span.NodeID) {
	key := InstructionKey{Node: node, Index: 0}
	ctrl, ok := r.res.LookupController(instr.ControllerName)
	if !ok {
		r.result.Instructions[key] = InstructionResolution{Known: false, Confidence: diag.ConfidenceLow}
		r.queue.Append(diag.Diagnostic{
			Code:        "aurelia/unknown-controller",
			Severity:    diag.SeverityError,
			Message:     fmt.Sprintf("unknown template controller %q", instr.ControllerName),
			Location:    diag.Location{URI: r.file, Span: instr.Loc},
			HasLocation: true,
			Confidence:  diag.ConfidenceLow,
			HasConfidence: true,
			InstructionKey: key.String(),
			HasInstructionKey: true,
		}.WithData("resourceKind", "controller").WithData("name", instr.ControllerName))
		return
	}
	r.result.Instructions[key] = InstructionResolution{Known: true, Confidence: diag.ConfidenceHigh}

	if instr.Branch.Kind == ir.BranchNone {
		return
	}
	if parentController == "" {
		r.queue.Append(diag.Diagnostic{
			Code:        "aurelia/invalid-command-usage",
			Severity:    diag.SeverityError,
			Message:     fmt.Sprintf("%q has no enclosing controller to attach to", ctrl.Name),
			Location:    diag.Location{URI: r.file, Span: instr.Loc},
			HasLocation: true,
		}.WithData("resourceKind", "controller").WithData("name", ctrl.Name))
		return
	}
	parent, ok := r.res.LookupController(parentController)
	if ok && !containsFold(parent.ValidBranches, ctrl.Name) {
		r.queue.Append(diag.Diagnostic{
			Code:        "aurelia/invalid-command-usage",
			Severity:    diag.SeverityError,
			Message:     fmt.Sprintf("%q is not a valid branch of %q", ctrl.Name, parent.Name),
			Location:    diag.Location{URI: r.file, Span: instr.Loc},
			HasLocation: true,
		}.WithData("resourceKind", "controller").WithData("name", ctrl.Name))
	}
}

// resolveBindable checks a property/listener binding's target against a
// custom element's declared bindables. Native elements (no hyphen in the
// tag) are never checked here: DOM/property interop is assumed valid,
// mirroring how go-pages leaves plain HTML attributes untyped.
func (r *resolver) resolveBindable(instr ir.Instruction, tag string, node span.NodeID, idx int) {
	key := InstructionKey{Node: node, Index: idx}
	elRes, known := r.result.Elements[node]
	if !elRes.Custom {
		r.result.Instructions[key] = InstructionResolution{Known: true, Confidence: diag.ConfidenceHigh}
		return
	}
	if !known || !elRes.Known {
		// The element itself is already unresolved (aurelia/unknown-element
		// fired); avoid a cascading second diagnostic about its properties.
		r.result.Instructions[key] = InstructionResolution{Known: false, Confidence: diag.ConfidenceLow}
		return
	}

	for _, bindable := range elRes.Element.Bindables {
		if strings.EqualFold(bindable.Name, instr.Name) {
			r.result.Instructions[key] = InstructionResolution{Known: true, Confidence: diag.ConfidenceHigh}
			return
		}
	}

	r.result.Instructions[key] = InstructionResolution{Known: false, Confidence: diag.ConfidenceMedium}
	r.queue.Append(diag.Diagnostic{
		Code:        "aurelia/unknown-bindable",
		Severity:    diag.SeverityWarning,
		Message:     fmt.Sprintf("unknown bindable property %q on <%s>", instr.Name, tag),
		Location:    diag.Location{URI: r.file, Span: instr.Loc},
		HasLocation: true,
		Confidence:  diag.ConfidenceMedium,
		HasConfidence: true,
		InstructionKey: key.String(),
		HasInstructionKey: true,
	}.WithData("resourceKind", "bindable").WithData("name", instr.Name))
}

func containsFold(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}
