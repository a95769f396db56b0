// Package lower implements the lowering stage (C3): it turns authored HTML
// template text into an ir.Module, a DOM-shaped tree of instruction rows
// plus a shared expression table. Grounded on the teacher's chtmlParser
// (chtml/parse.go): tokenize, interpret special attributes against a
// resource registry, recurse, and never throw on a bad expression — record
// it and keep going.
package lower

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/expr-lang/expr/parser"

	"github.com/kvietkauskas/au-ttc/internal/catalog"
	"github.com/kvietkauskas/au-ttc/internal/diag"
	"github.com/kvietkauskas/au-ttc/internal/ir"
	"github.com/kvietkauskas/au-ttc/internal/span"
)

// Options configures a single Lower call.
type Options struct {
	File      string
	Resources catalog.Resources
	Alloc     *span.Allocator
}

// Lower parses src (one template file's contents) into an ir.Module plus a
// diagnostics queue tagged lower. It never returns an error for malformed
// template content: authoring mistakes become diagnostics in the returned
// queue and lowering continues with a best-effort IR, so C4 onward always
// has something to resolve against. A non-nil error return means src could
// not be tokenized at all (e.g. the reader failed), which in practice only
// happens for I/O-backed sources.
func Lower(src string, opts Options) (*ir.Module, *diag.Queue, error) {
	queue := diag.NewQueue(diag.PhaseLower)
	raw, err := tokenizeDOM(opts.File, strings.NewReader(src), opts.Alloc)
	if err != nil {
		return nil, queue, err
	}

	mod := &ir.Module{File: opts.File}
	b := &builder{mod: mod, queue: queue, alloc: opts.Alloc, res: opts.Resources}

	dom := &ir.TemplateNode{ID: raw.ID, Kind: ir.NodeTemplate}
	var rows []ir.InstructionRow
	for _, child := range raw.Children {
		childNode, childRows := b.lowerNode(child)
		if childNode == nil {
			continue
		}
		dom.Children = append(dom.Children, childNode)
		rows = append(rows, childRows...)
	}

	mod.Templates = []ir.TemplateIR{{
		Name: templateName(opts.File),
		Dom:  dom,
		Rows: rows,
	}}
	return mod, queue, nil
}

func templateName(file string) string {
	base := file
	if i := strings.LastIndexAny(base, "/\\"); i >= 0 {
		base = base[i+1:]
	}
	return strings.TrimSuffix(base, ".html")
}

// builder carries the per-compilation state threaded through the recursive
// descent: the growing expression table, the diagnostics queue, the
// identifier allocator and the materialized resource view it lowers
// against. It is unexported and single-use, one per Lower call, the same
// way chtmlParser is scoped to a single parse.
type builder struct {
	mod      *ir.Module
	queue    *diag.Queue
	alloc    *span.Allocator
	res      catalog.Resources
	groupSeq int
}

// lowerNode converts one rawNode (and its subtree) into an ir.TemplateNode
// plus the flattened list of instruction rows it and its descendants
// produce. It never returns a nil node: whitespace-only text is kept as a
// plain NodeText node with no rows.
func (b *builder) lowerNode(n *rawNode) (*ir.TemplateNode, []ir.InstructionRow) {
	switch {
	case n.IsComment:
		return &ir.TemplateNode{ID: n.ID, Kind: ir.NodeComment, Text: n.Text, Loc: n.Loc}, nil
	case n.IsText:
		return b.lowerText(n)
	default:
		return b.lowerElement(n)
	}
}

func (b *builder) lowerText(n *rawNode) (*ir.TemplateNode, []ir.InstructionRow) {
	slices, err := LexInterpolation(n.Text)
	if err != nil {
		b.queue.Append(diag.Diagnostic{
			Code:     "AU1203",
			Severity: diag.SeverityError,
			Message:  fmt.Sprintf("malformed interpolation: %s", err),
			Location: diag.Location{URI: b.mod.File, Span: n.Loc},
			HasLocation: true,
		})
		return &ir.TemplateNode{ID: n.ID, Kind: ir.NodeText, Text: n.Text, Loc: n.Loc}, nil
	}
	if !HasInterpolation(slices) {
		return &ir.TemplateNode{ID: n.ID, Kind: ir.NodeText, Text: n.Text, Loc: n.Loc}, nil
	}

	groupID := b.groupSeq
	b.groupSeq++

	interp := &ir.Interpolation{}
	var exprs []span.ExprID
	for _, sl := range slices {
		if !sl.IsExpr {
			interp.Parts = append(interp.Parts, sl.Text)
			continue
		}
		if len(interp.Parts) == len(interp.Exprs) {
			interp.Parts = append(interp.Parts, "")
		}
		sp := span.Span{Start: n.Loc.Start + sl.Start, End: n.Loc.Start + sl.Start + sl.Length}
		id := b.addExpr(sl.Text, ir.IsInterpolationSlice, sp, groupID)
		interp.Exprs = append(interp.Exprs, id)
		exprs = append(exprs, id)
	}
	if len(interp.Parts) == len(interp.Exprs) {
		interp.Parts = append(interp.Parts, "")
	}

	node := &ir.TemplateNode{ID: n.ID, Kind: ir.NodeText, Text: n.Text, Loc: n.Loc, Interp: interp}
	row := ir.InstructionRow{
		Target: n.ID,
		Instructions: []ir.Instruction{{
			Kind: ir.InstrTextBinding,
			Source: ir.BindingSource{
				HasSource: true,
				Kind:      ir.SourceInterp,
				Exprs:     exprs,
				Parts:     interp.Parts,
				Loc:       n.Loc,
			},
			Loc: n.Loc,
		}},
	}
	return node, []ir.InstructionRow{row}
}

// structuralAttr is the subset of an authored attribute's interpretation
// that identifies it as a template controller rather than a plain binding.
type structuralAttr struct {
	attr       rawAttr
	controller catalog.Controller
	branch     ir.Branch
}

func (b *builder) lowerElement(n *rawNode) (*ir.TemplateNode, []ir.InstructionRow) {
	node := &ir.TemplateNode{ID: n.ID, Kind: ir.NodeElement, Tag: n.Tag, Loc: n.Loc}
	for _, a := range n.Attrs {
		node.Attrs = append(node.Attrs, ir.RawAttribute{Key: a.Key, Value: a.Value, ValLoc: a.ValueLoc})
	}

	var structural *structuralAttr
	var plain []rawAttr
	var lets []ir.LetBinding
	var instrs []ir.Instruction

	for _, a := range n.Attrs {
		if n.Tag == "let" {
			lets = append(lets, b.lowerLetBinding(a, n.Loc))
			continue
		}
		if ctrl, branch, ok := b.matchStructural(a); ok {
			if structural == nil {
				structural = &structuralAttr{attr: a, controller: ctrl, branch: branch}
			} else {
				// Only one structural controller attribute per element is
				// supported; extras degrade to plain attribute lowering so
				// they still surface in the IR rather than vanishing.
				plain = append(plain, a)
			}
			continue
		}
		plain = append(plain, a)
	}

	if n.Tag == "let" {
		var children []*ir.TemplateNode
		childRows := b.lowerChildrenInto(n, &children)
		node.Attrs = nil
		node.Children = children
		instrs = append(instrs, ir.Instruction{Kind: ir.InstrHydrateLetElement, Lets: lets, Loc: n.Loc})
		rows := []ir.InstructionRow{{Target: n.ID, Instructions: instrs}}
		return node, append(rows, childRows...)
	}

	for _, a := range plain {
		if instr, ok := b.lowerPlainAttribute(a, n); ok {
			instrs = append(instrs, instr)
		}
	}

	var bodyRows []ir.InstructionRow
	var children []*ir.TemplateNode
	for _, c := range n.Children {
		cn, cr := b.lowerNode(c)
		if cn == nil {
			continue
		}
		children = append(children, cn)
		bodyRows = append(bodyRows, cr...)
	}
	node.Children = children

	var rows []ir.InstructionRow
	if len(instrs) > 0 {
		rows = append(rows, ir.InstructionRow{Target: n.ID, Instructions: instrs})
	}

	if structural != nil {
		ctrlInstr := b.buildControllerInstruction(*structural, n.Loc, append(rows, bodyRows...))
		return node, []ir.InstructionRow{{Target: n.ID, Instructions: []ir.Instruction{ctrlInstr}}}
	}

	rows = append(rows, bodyRows...)
	return node, rows
}

// lowerChildrenInto is a helper used only by the <let> element branch,
// where the element itself never carries body rows.
func (b *builder) lowerChildrenInto(n *rawNode, out *[]*ir.TemplateNode) []ir.InstructionRow {
	var rows []ir.InstructionRow
	for _, c := range n.Children {
		cn, cr := b.lowerNode(c)
		if cn == nil {
			continue
		}
		*out = append(*out, cn)
		rows = append(rows, cr...)
	}
	return rows
}

func (b *builder) lowerLetBinding(a rawAttr, loc span.Span) ir.LetBinding {
	id := b.addExpr(a.Value, ir.IsProperty, a.ValueLoc, -1)
	name := a.Key
	if m := catalog.MatchAttributePattern(b.res.Patterns, a.Key); m.Matched {
		name = m.Target
	}
	return ir.LetBinding{Name: name, Expr: id}
}

// matchStructural reports whether a authored attribute names a registered
// template controller (the target part of a matched attribute pattern, e.g.
// "with" in "with.bind" or "repeat" in "repeat.for"), returning the
// controller and the branch metadata to attach to the wrapping instruction.
func (b *builder) matchStructural(a rawAttr) (catalog.Controller, ir.Branch, bool) {
	m := catalog.MatchAttributePattern(b.res.Patterns, a.Key)
	target := a.Key
	if m.Matched {
		target = m.Target
	}
	ctrl, ok := b.res.LookupController(target)
	if !ok {
		return catalog.Controller{}, ir.Branch{}, false
	}
	return ctrl, b.branchFor(ctrl, a), true
}

func (b *builder) branchFor(ctrl catalog.Controller, a rawAttr) ir.Branch {
	switch strings.ToLower(ctrl.Name) {
	case "case":
		id := b.addExpr(a.Value, ir.IsProperty, a.ValueLoc, -1)
		return ir.Branch{Kind: ir.BranchCase, Expr: id, HasExpr: true}
	case "default-case":
		return ir.Branch{Kind: ir.BranchDefault}
	case "then":
		return ir.Branch{Kind: ir.BranchThen, Local: a.Value}
	case "catch":
		return ir.Branch{Kind: ir.BranchCatch, Local: a.Value}
	case "pending":
		return ir.Branch{Kind: ir.BranchPending}
	default:
		return ir.Branch{Kind: ir.BranchNone}
	}
}

// buildControllerInstruction wraps body into a hydrate-template-controller
// instruction for ctrl, parsing a repeat.for header specially since its
// authored value is a declaration, not a plain expression.
func (b *builder) buildControllerInstruction(s structuralAttr, loc span.Span, body []ir.InstructionRow) ir.Instruction {
	instr := ir.Instruction{
		Kind:           ir.InstrHydrateTemplateController,
		ControllerName: s.controller.Name,
		Branch:         s.branch,
		Body:           body,
		Loc:            loc,
	}

	if s.controller.Trigger == catalog.TriggerIterator {
		header, err := ParseLoopHeader(s.attr.Value)
		if err != nil {
			b.queue.Append(diag.Diagnostic{
				Code:     "AU1201",
				Severity: diag.SeverityError,
				Message:  fmt.Sprintf("invalid repeat.for header: %s", err),
				Location: diag.Location{URI: b.mod.File, Span: s.attr.ValueLoc},
				HasLocation: true,
			})
			return instr
		}
		if len(header.Locals) == 2 && header.Locals[0] == header.Locals[1] {
			b.queue.Append(diag.Diagnostic{
				Code:     "AU1202",
				Severity: diag.SeverityError,
				Message:  fmt.Sprintf("duplicate repeat.for local %q", header.Locals[0]),
				Location: diag.Location{URI: b.mod.File, Span: s.attr.ValueLoc},
				HasLocation: true,
			})
		}
		id := b.addExpr(header.Of, ir.IsIterator, s.attr.ValueLoc, -1)
		instr.HasIterator = true
		instr.IteratorOf = id
		if len(header.Locals) > 0 {
			instr.LoopVar = header.Locals[0]
		}
		if len(header.Locals) > 1 {
			instr.LoopIdx = header.Locals[1]
			instr.DestructuredLocals = header.Locals
		}
		return instr
	}

	if s.controller.Trigger == catalog.TriggerValue && s.branch.Kind == ir.BranchNone {
		id := b.addExpr(s.attr.Value, ir.IsProperty, s.attr.ValueLoc, -1)
		instr.Source = ir.BindingSource{HasSource: true, Kind: ir.SourceExpr, ID: id, Loc: s.attr.ValueLoc}
	}
	return instr
}

// lowerPlainAttribute converts one non-structural authored attribute into a
// binding or literal-set instruction, dispatching through the catalog's
// attribute-pattern matcher and command registry the same way the
// teacher's parseSpecialAttrs dispatches on a fixed switch, generalized to
// be data-driven.
func (b *builder) lowerPlainAttribute(a rawAttr, n *rawNode) (ir.Instruction, bool) {
	m := catalog.MatchAttributePattern(b.res.Patterns, a.Key)
	if !m.Matched {
		return b.lowerUnmatchedAttribute(a, n)
	}

	cmd, hasCmd := b.res.LookupCommand(m.Command)
	loc := a.ValueLoc
	if loc.Zero() {
		loc = n.Loc
	}
	id := b.addExpr(a.Value, ir.IsProperty, loc, -1)
	src := ir.BindingSource{HasSource: true, Kind: ir.SourceExpr, ID: id, Loc: loc}

	if !hasCmd {
		return ir.Instruction{Kind: ir.InstrAttributeBinding, Name: m.Target, Source: src, Loc: loc}, true
	}

	switch cmd.Kind {
	case catalog.CommandListener:
		return ir.Instruction{Kind: ir.InstrListenerBinding, Name: m.Target, Source: src, Loc: loc}, true
	case catalog.CommandRef:
		return ir.Instruction{Kind: ir.InstrRefBinding, Name: m.Target, Source: src, Loc: loc}, true
	case catalog.CommandStyle:
		return ir.Instruction{Kind: ir.InstrStylePropertyBinding, Name: m.Target, Source: src, Loc: loc}, true
	case catalog.CommandAttribute:
		return ir.Instruction{Kind: ir.InstrAttributeBinding, Name: m.Target, Source: src, Loc: loc}, true
	default:
		return ir.Instruction{Kind: ir.InstrPropertyBinding, Name: m.Target, Source: src, Loc: loc}, true
	}
}

// lowerUnmatchedAttribute handles an attribute key with no registered
// binding-command pattern match: it is either a plain literal attribute, or
// a literal attribute whose value itself contains "${...}" interpolation.
func (b *builder) lowerUnmatchedAttribute(a rawAttr, n *rawNode) (ir.Instruction, bool) {
	slices, err := LexInterpolation(a.Value)
	loc := a.ValueLoc
	if loc.Zero() {
		loc = n.Loc
	}
	if err != nil || !HasInterpolation(slices) {
		return ir.Instruction{Kind: ir.InstrSetAttribute, Name: a.Key, Literal: a.Value, Loc: loc}, true
	}

	groupID := b.groupSeq
	b.groupSeq++
	var parts []string
	var exprs []span.ExprID
	for _, sl := range slices {
		if !sl.IsExpr {
			parts = append(parts, sl.Text)
			continue
		}
		if len(parts) == len(exprs) {
			parts = append(parts, "")
		}
		sp := span.Span{Start: loc.Start + sl.Start, End: loc.Start + sl.Start + sl.Length}
		id := b.addExpr(sl.Text, ir.IsInterpolationSlice, sp, groupID)
		exprs = append(exprs, id)
	}
	if len(parts) == len(exprs) {
		parts = append(parts, "")
	}

	kind := ir.InstrAttributeBinding
	switch strings.ToLower(a.Key) {
	case "class":
		kind = ir.InstrSetClassAttribute
	case "style":
		kind = ir.InstrSetStyleAttribute
	}
	return ir.Instruction{
		Kind: kind,
		Name: a.Key,
		Source: ir.BindingSource{
			HasSource: true,
			Kind:      ir.SourceInterp,
			Exprs:     exprs,
			Parts:     parts,
			Loc:       loc,
		},
		Loc: loc,
	}, true
}

// addExpr registers an expression in the module's expression table,
// attempting to parse it so that a malformed expression is recorded as bad
// rather than aborting the whole lowering pass. A trailing "| converter:arg"
// chain is split off before parsing, so the expr-lang parser only ever sees
// the bindable expression; each converter name is resolved by C4 against the
// catalog instead.
func (b *builder) addExpr(code string, typ ir.ExpressionType, sp span.Span, groupID int) span.ExprID {
	id := b.alloc.NextExprID()
	mainCode, converters := splitConverters(code, sp.Start)
	entry := ir.ExprTableEntry{ID: id, Code: mainCode, Raw: code, Span: sp, Type: typ, GroupID: groupID, Converters: converters}

	if strings.TrimSpace(mainCode) == "" {
		entry.Bad = true
		entry.BadReason = "empty expression"
	} else if _, err := parser.Parse(mainCode); err != nil {
		entry.Bad = true
		entry.BadReason = err.Error()
	}

	if int(id) != len(b.mod.ExprTable) {
		panic("lower: expression table allocation out of order: " + strconv.Itoa(int(id)))
	}
	b.mod.ExprTable = append(b.mod.ExprTable, entry)

	if entry.Bad {
		b.queue.Append(diag.Diagnostic{
			Code:     "AU1203",
			Severity: diag.SeverityError,
			Message:  fmt.Sprintf("invalid expression %q: %s", code, entry.BadReason),
			Location: diag.Location{URI: b.mod.File, Span: sp},
			HasLocation: true,
		})
	}
	return id
}

// splitConverters splits code on its top-level "|" characters (the
// value-converter pipe, never a bitwise-or: templates never need one and
// Aurelia's own expression grammar reserves "|" the same way), returning the
// bindable expression ahead of the first pipe and one ConverterRef per
// segment after it. base is code's absolute offset in the template, used to
// stamp each converter name's span. A converter segment's own "|
// name:arg1:arg2" argument list is kept in entry.Code's sibling data only as
// the leading identifier; argument expressions are not (yet) resolved
// against anything, matching how go-pages' own checker stops at the shape it
// can verify and says nothing about the rest.
func splitConverters(code string, base int) (string, []ir.ConverterRef) {
	positions := topLevelPipePositions(code)
	if len(positions) == 0 {
		return code, nil
	}
	main := code[:positions[0]]
	bounds := append(append([]int{}, positions...), len(code))
	var refs []ir.ConverterRef
	for i, p := range positions {
		seg := code[p+1 : bounds[i+1]]
		name, offset := converterName(seg)
		if name == "" {
			continue
		}
		abs := base + p + 1 + offset
		refs = append(refs, ir.ConverterRef{Name: name, Span: span.Span{Start: abs, End: abs + len(name)}})
	}
	return main, refs
}

// topLevelPipePositions finds every "|" in code that sits outside a string
// literal and outside any bracket nesting, and is not half of a "||"
// operator.
func topLevelPipePositions(code string) []int {
	var positions []int
	depth := 0
	var quote byte
	for i := 0; i < len(code); i++ {
		c := code[i]
		if quote != 0 {
			if c == '\\' {
				i++
				continue
			}
			if c == quote {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"', '`':
			quote = c
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case '|':
			if depth != 0 {
				continue
			}
			if i+1 < len(code) && code[i+1] == '|' {
				i++
				continue
			}
			if i > 0 && code[i-1] == '|' {
				continue
			}
			positions = append(positions, i)
		}
	}
	return positions
}

// converterName extracts a pipe segment's leading identifier (the converter
// name, ignoring any ":arg" parameters and surrounding whitespace) and its
// byte offset within seg.
func converterName(seg string) (string, int) {
	i := 0
	for i < len(seg) && (seg[i] == ' ' || seg[i] == '\t') {
		i++
	}
	start := i
	for i < len(seg) && isIdentByte(seg[i]) {
		i++
	}
	return seg[start:i], start
}

func isIdentByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
