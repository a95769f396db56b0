// Package aot is a peripheral ahead-of-time hydration marker emitter: it
// renders the lowered DOM tree back out to markup with "au-start"/"au-end"
// comment markers bracketing every template-controller host, an "au"
// comment before every interpolated text node, and an "au-target"
// attribute on every other bound element, the shape a client-side hydration
// runtime needs to locate its targets without re-parsing the whole
// document. It is isolated from the core C3-C8 pipeline: nothing else in
// this module reads its output, and it consumes only one already-lowered
// *ir.TemplateIR.
//
// Grounded on the instruction-row/target-node shape internal/lower and
// internal/resolve already walk; built with github.com/beevik/etree, the
// teacher's own choice (chtml/component.go) for constructing and
// serializing an XML-shaped document tree, here repurposed from chtml's
// live-rendering use to a static markup-annotation pass.
package aot

import (
	"fmt"

	"github.com/beevik/etree"

	"github.com/kvietkauskas/au-ttc/internal/ir"
	"github.com/kvietkauskas/au-ttc/internal/span"
)

// Emit renders tmpl's DOM tree to annotated markup. Instruction rows are
// indexed by the node they target, so a hydration marker can be inserted
// around any node that carries bindings.
func Emit(tmpl *ir.TemplateIR) (string, error) {
	rowsByNode := map[span.NodeID][]ir.InstructionRow{}
	for _, row := range tmpl.Rows {
		rowsByNode[row.Target] = append(rowsByNode[row.Target], row)
	}

	doc := etree.NewDocument()
	if tmpl.Dom != nil {
		renderChildren(&doc.Element, []*ir.TemplateNode{tmpl.Dom}, rowsByNode)
	}
	doc.Indent(2)
	return doc.WriteToString()
}

func renderChildren(parent *etree.Element, nodes []*ir.TemplateNode, rowsByNode map[span.NodeID][]ir.InstructionRow) {
	for _, n := range nodes {
		renderNode(parent, n, rowsByNode)
	}
}

func renderNode(parent *etree.Element, n *ir.TemplateNode, rowsByNode map[span.NodeID][]ir.InstructionRow) {
	rows := rowsByNode[n.ID]
	hasController := false
	for _, row := range rows {
		for _, instr := range row.Instructions {
			if instr.Kind == ir.InstrHydrateTemplateController {
				hasController = true
			}
		}
	}

	switch n.Kind {
	case ir.NodeText:
		if n.Interp != nil {
			parent.CreateComment(fmt.Sprintf(`au target="%d"`, int(n.ID)))
		}
		parent.CreateText(n.Text)
		return
	case ir.NodeComment:
		parent.CreateComment(n.Text)
		return
	}

	if hasController {
		parent.CreateComment(fmt.Sprintf(`au-start target="%d"`, int(n.ID)))
	}

	el := parent.CreateElement(n.Tag)
	for _, a := range n.Attrs {
		el.CreateAttr(a.Key, a.Value)
	}
	if len(rows) > 0 && !hasController {
		el.CreateAttr("au-target", fmt.Sprintf("%d", int(n.ID)))
	}
	renderChildren(el, n.Children, rowsByNode)

	if hasController {
		parent.CreateComment(fmt.Sprintf(`au-end target="%d"`, int(n.ID)))
	}
}
