// Package bind implements scope binding (C5): it walks a resolved
// ir.Module and builds the frame forest each expression and instruction is
// evaluated against, publishing template-controller contextuals (repeat's
// $index/$first, promise's then/catch alias, <let>'s own properties) into
// the frame that owns them. Grounded on the teacher's scope.go, which
// already threads a parent-linked Scope chain through nested component
// instances; frames here are that same idea specialized to per-controller
// overlay/reuse semantics instead of per-component instances.
package bind

import (
	"fmt"
	"strings"

	"github.com/kvietkauskas/au-ttc/internal/catalog"
	"github.com/kvietkauskas/au-ttc/internal/diag"
	"github.com/kvietkauskas/au-ttc/internal/ir"
	"github.com/kvietkauskas/au-ttc/internal/span"
)

// SymbolKind classifies a name published into a frame.
type SymbolKind int

const (
	SymbolLocal SymbolKind = iota
	SymbolInjected
	SymbolLet
)

// LocalSymbol is one name visible within a Frame.
type LocalSymbol struct {
	Name     string
	Kind     SymbolKind
	TypeHint string
}

// Frame is one node of the scope-graph forest. The root frame has
// HasParent == false; every other frame was introduced by a scope-overlay
// controller (repeat/with/promise/then/catch) and its Node/ControllerName
// identify that controller's instruction.
type Frame struct {
	ID             span.FrameID
	Parent         span.FrameID
	HasParent      bool
	Depth          int
	Node           span.NodeID
	ControllerName string
	Locals         []LocalSymbol
}

// Result is the full scope graph produced by one Bind call.
type Result struct {
	Root      span.FrameID
	Frames    map[span.FrameID]*Frame
	ExprFrame map[span.ExprID]span.FrameID
	NodeFrame map[span.NodeID]span.FrameID
}

// Frame looks up a frame by ID.
func (r *Result) Frame(id span.FrameID) (*Frame, bool) {
	f, ok := r.Frames[id]
	return f, ok
}

// FrameOfExpr returns the frame an expression was bound into.
func (r *Result) FrameOfExpr(id span.ExprID) (span.FrameID, bool) {
	f, ok := r.ExprFrame[id]
	return f, ok
}

// Bind walks mod and produces the scope graph, resolving controller and
// branch metadata against res (for each controller's Scope behavior and
// Injected contextuals). It never fails: a controller or branch name it
// cannot resolve against res was already diagnosed by C4, so Bind simply
// reuses the enclosing frame and continues.
func Bind(mod *ir.Module, res catalog.Resources, alloc *span.Allocator) (*Result, *diag.Queue) {
	queue := diag.NewQueue(diag.PhaseBind)
	root := alloc.NextFrameID()
	result := &Result{
		Root:      root,
		Frames:    map[span.FrameID]*Frame{root: {ID: root}},
		ExprFrame: map[span.ExprID]span.FrameID{},
		NodeFrame: map[span.NodeID]span.FrameID{},
	}
	bd := &binder{res: res, alloc: alloc, result: result, queue: queue, file: mod.File}
	for _, t := range mod.Templates {
		bd.walkRows(t.Rows, root)
	}
	return result, queue
}

type binder struct {
	res    catalog.Resources
	alloc  *span.Allocator
	result *Result
	queue  *diag.Queue
	file   string
}

func (b *binder) walkRows(rows []ir.InstructionRow, frame span.FrameID) {
	for _, row := range rows {
		b.result.NodeFrame[row.Target] = frame
		for _, instr := range row.Instructions {
			if instr.Kind == ir.InstrHydrateTemplateController {
				b.bindController(instr, frame, row.Target)
				continue
			}
			b.assignExprFrame(instr, frame)
		}
	}
}

func (b *binder) assignExprFrame(instr ir.Instruction, frame span.FrameID) {
	if instr.Source.HasSource {
		switch instr.Source.Kind {
		case ir.SourceExpr:
			b.result.ExprFrame[instr.Source.ID] = frame
		case ir.SourceInterp:
			for _, id := range instr.Source.Exprs {
				b.result.ExprFrame[id] = frame
			}
		}
	}
	if instr.Kind == ir.InstrHydrateLetElement {
		f, ok := b.result.Frame(frame)
		if ok {
			for _, let := range instr.Lets {
				b.result.ExprFrame[let.Expr] = frame
				b.addLocal(f, LocalSymbol{Name: let.Name, Kind: SymbolLet}, instr.Loc)
			}
		}
	}
}

// bindController decides whether instr introduces a new overlay frame
// (repeat/with/promise/then/catch) or reuses its parent's (if/else/switch/
// case/default-case/pending/portal), publishes any fixed or user-aliased
// contextuals the controller's catalog entry declares, and binds the
// controller's own triggering expression in the *outer* frame: a repeat's
// "of" expression and a switch's value are evaluated against the scope the
// controller appears in, not the scope it creates.
func (b *binder) bindController(instr ir.Instruction, parentFrame span.FrameID, node span.NodeID) {
	b.result.NodeFrame[node] = parentFrame

	ctrl, ok := b.res.LookupController(instr.ControllerName)
	if !ok {
		b.walkRows(instr.Body, parentFrame)
		return
	}

	if instr.Source.HasSource && instr.Source.Kind == ir.SourceExpr {
		b.result.ExprFrame[instr.Source.ID] = parentFrame
	}
	if instr.HasIterator {
		b.result.ExprFrame[instr.IteratorOf] = parentFrame
	}
	if instr.Branch.HasExpr {
		b.result.ExprFrame[instr.Branch.Expr] = parentFrame
	}

	frame := parentFrame
	if ctrl.Scope == catalog.ScopeOverlay {
		id := b.alloc.NextFrameID()
		parent, _ := b.result.Frame(parentFrame)
		depth := 0
		if parent != nil {
			depth = parent.Depth + 1
		}
		f := &Frame{ID: id, Parent: parentFrame, HasParent: true, Depth: depth, Node: node, ControllerName: ctrl.Name}
		b.result.Frames[id] = f
		frame = id

		for _, iv := range ctrl.Injected {
			name := iv.Name
			if iv.UserAlias {
				if instr.Branch.Local == "" {
					continue
				}
				name = instr.Branch.Local
			}
			b.addLocal(f, LocalSymbol{Name: name, Kind: SymbolInjected, TypeHint: iv.TypeHint}, instr.Loc)
		}

		if strings.EqualFold(ctrl.Name, "repeat") {
			if len(instr.DestructuredLocals) > 0 {
				for _, l := range instr.DestructuredLocals {
					b.addLocal(f, LocalSymbol{Name: l, Kind: SymbolLocal}, instr.Loc)
				}
			} else if instr.LoopVar != "" {
				b.addLocal(f, LocalSymbol{Name: instr.LoopVar, Kind: SymbolLocal}, instr.Loc)
			}
		}
	}

	b.walkRows(instr.Body, frame)
}

// addLocal publishes sym into f, emitting AU1202 if the name already exists
// in this same frame (shadowing a name from an ancestor frame is fine and
// not checked here; only collisions within one frame are an error).
func (b *binder) addLocal(f *Frame, sym LocalSymbol, loc span.Span) {
	for _, existing := range f.Locals {
		if existing.Name == sym.Name {
			b.queue.Append(diag.Diagnostic{
				Code:        "AU1202",
				Severity:    diag.SeverityError,
				Message:     fmt.Sprintf("%q is already declared in this scope", sym.Name),
				Location:    diag.Location{URI: b.file, Span: loc},
				HasLocation: true,
			})
			return
		}
	}
	f.Locals = append(f.Locals, sym)
}
