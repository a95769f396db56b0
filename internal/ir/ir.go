// Package ir defines the intermediate representation produced by the
// lowering stage (C3): a DOM-shaped template tree plus an expression table
// and per-node instruction rows, generalized from the teacher's
// chtml.Node / chtml.Expr shapes (chtml/node.go, chtml/expr.go) into the
// tagged-union instruction model a lowering stage needs.
package ir

import "github.com/kvietkauskas/au-ttc/internal/span"

// NodeKind tags a TemplateNode.
type NodeKind int

const (
	NodeTemplate NodeKind = iota
	NodeElement
	NodeText
	NodeComment
)

// TemplateNode is one node of the lowered DOM tree.
type TemplateNode struct {
	ID       span.NodeID
	Kind     NodeKind
	Tag      string // element/template tag name, empty for text/comment
	NS       string
	Attrs    []RawAttribute
	Children []*TemplateNode
	Loc      span.Span

	// Interp is non-nil for NodeText nodes that contain one or more
	// ${...} interpolations.
	Interp *Interpolation
	// Text is the raw text for NodeText/NodeComment nodes.
	Text string
}

// RawAttribute is an authored attribute before C4 resolves its target.
type RawAttribute struct {
	Key    string
	Value  string
	Loc    span.Span
	ValLoc span.Span
}

// Interpolation captures a text node's "${...}" slices.
type Interpolation struct {
	Parts []string      // literal text runs, len(Parts) == len(Exprs)+1
	Exprs []span.ExprID // one entry per ${...} slice, in order
}

// ExpressionType classifies an expression table entry.
type ExpressionType int

const (
	IsProperty ExpressionType = iota
	IsIterator
	IsBindingBehavior
	IsInterpolationSlice
)

// ConverterRef names one value converter applied to an expression via
// "| name:args" syntax, with the span of just the name for diagnostics.
type ConverterRef struct {
	Name string
	Span span.Span
}

// ExprTableEntry is one row of the expression table.
type ExprTableEntry struct {
	ID   span.ExprID
	Code string // the bindable expression, with any "| converter" chain stripped
	Raw  string // the full authored text, converter chain included
	Span span.Span
	Type ExpressionType
	// GroupID is shared by every slice of the same interpolation, so C6 can
	// aggregate member segments across a group.
	GroupID int
	// Converters lists every value converter this expression pipes through,
	// in application order. C4 checks each by name against the catalog.
	Converters []ConverterRef
	// Bad is true when the expression failed to parse; Code still holds the
	// authored text (converter chain stripped) and the expression participates in no further
	// static analysis beyond an AU1203 diagnostic.
	Bad       bool
	BadReason string
}

// InstructionKind tags an Instruction.
type InstructionKind int

const (
	InstrPropertyBinding InstructionKind = iota
	InstrAttributeBinding
	InstrStylePropertyBinding
	InstrListenerBinding
	InstrRefBinding
	InstrTextBinding
	InstrIteratorBinding
	InstrSetProperty
	InstrSetAttribute
	InstrSetClassAttribute
	InstrSetStyleAttribute
	InstrHydrateElement
	InstrHydrateAttribute
	InstrHydrateTemplateController
	InstrHydrateLetElement
)

// BindingSourceKind distinguishes a single expression from an interpolation.
type BindingSourceKind int

const (
	SourceExpr BindingSourceKind = iota
	SourceInterp
)

// BindingSource is the authored right-hand side of a binding. HasSource
// distinguishes an explicitly-populated source from a zero-valued one: an
// instruction that never carries a source (a marker controller like else,
// or a literal Set* instruction) leaves BindingSource entirely unset, and
// callers must check HasSource before trusting Kind/ID/Exprs — otherwise
// the zero value of Kind (SourceExpr) and ID (expression 0) look like a
// real, if vacuous, binding.
type BindingSource struct {
	HasSource bool
	Kind      BindingSourceKind
	ID        span.ExprID   // meaningful when Kind == SourceExpr
	Exprs     []span.ExprID // meaningful when Kind == SourceInterp
	Parts     []string      // meaningful when Kind == SourceInterp
	Loc       span.Span
}

// BranchKind tags the branch metadata carried by nested template-controller
// instructions (switch/promise children).
type BranchKind int

const (
	BranchNone BranchKind = iota
	BranchCase
	BranchDefault
	BranchThen
	BranchCatch
	BranchPending
)

// Branch describes how a nested hydrate-template-controller instruction
// relates to its parent controller.
type Branch struct {
	Kind  BranchKind
	Expr  span.ExprID // meaningful for BranchCase
	HasExpr bool
	Local string // user alias, e.g. "data"/"error", or repeat/with local name
}

// LetBinding is one attribute of a <let> element.
type LetBinding struct {
	Name string
	Expr span.ExprID
}

// Instruction is a tagged union over every instruction variant.
type Instruction struct {
	Kind InstructionKind

	// Target name as authored (property/attribute/event name, resource
	// name for hydrate-* instructions). Canonical resolution happens in C4.
	Name string

	Source BindingSource // meaningful for *Binding kinds

	// Iterator header, meaningful for InstrHydrateTemplateController when the
	// controller's Trigger is TriggerIterator (repeat).
	IteratorOf  span.ExprID
	HasIterator bool
	LoopVar     string
	LoopIdx     string
	// Destructured locals, when the for-of declaration used a pattern like
	// "[k, v]" or "{a, b}"; empty when LoopVar alone is used.
	DestructuredLocals []string

	// ControllerName names the catalog controller for
	// InstrHydrateTemplateController instructions (repeat/if/with/...).
	ControllerName string
	Branch         Branch
	// Body holds the nested rows for a template-controller's content.
	Body []InstructionRow

	// Lets holds the per-attribute bindings of a <let> element.
	Lets []LetBinding

	// Literal is the authored value for Set* instructions (no binding).
	Literal string

	Loc span.Span
}

// InstructionRow binds a set of instructions to the node they target.
type InstructionRow struct {
	Target       span.NodeID
	Instructions []Instruction
}

// TemplateIR is the lowered form of one template (a file may in principle
// define more than one, mirroring chtml's per-file component boundary).
type TemplateIR struct {
	Name string
	Dom  *TemplateNode
	Rows []InstructionRow
}

// Module is the full output of C3 for one template file.
type Module struct {
	File      string
	Templates []TemplateIR
	ExprTable []ExprTableEntry
}

// Expr looks up an expression table entry by ID.
func (m *Module) Expr(id span.ExprID) (ExprTableEntry, bool) {
	if int(id) < 0 || int(id) >= len(m.ExprTable) {
		return ExprTableEntry{}, false
	}
	e := m.ExprTable[id]
	return e, e.ID == id
}
