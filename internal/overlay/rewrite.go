package overlay

import (
	"fmt"
	"sort"
	"strings"

	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"

	"github.com/kvietkauskas/au-ttc/internal/bind"
	"github.com/kvietkauskas/au-ttc/internal/span"
)

var reserved = map[string]bool{
	"true": true, "false": true, "nil": true, "and": true, "or": true,
	"not": true, "in": true, "matches": true, "contains": true,
	"let": true, "if": true, "else": true, "vm": true,
}

// Segment is one head-identifier rewrite recorded while generating an
// overlay lambda: TemplateSpan is the exact span of the authored identifier
// token, OverlaySpan the span of the member path it was rewritten to in the
// generated text, and MemberPath that generated text itself. This is what
// backs member-level (rather than whole-expression) reference/rename
// lookups in internal/provenance.
type Segment struct {
	TemplateSpan span.Span
	OverlaySpan  span.Span
	MemberPath   string
}

// rewriteResult is RewriteExpr's output before its OverlaySpans are shifted
// into the full overlay text's coordinate space (RewriteExpr only knows
// about the standalone expression snippet it rewrote).
type rewriteResult struct {
	Text     string
	Segments []Segment
}

// RewriteExpr rewrites code's free identifiers into member paths over the
// generated overlay types, resolving each one against the frame chain
// starting at frameID (innermost first, root last). It walks code's parsed
// expr-lang AST rather than pattern-matching the raw text, so it only ever
// touches genuine ast.IdentifierNode occurrences — string literal contents
// and trailing member-access field names are never rewritten, matching the
// same conservative "only the head of a.b.c moves" discipline
// chtml/checker.go applies to its own shape inference, generalized here from
// "infer a shape" to "generate a member path into the right frame's
// generated type". baseOffset is code's absolute start offset in the
// template file, used to stamp each Segment's TemplateSpan absolutely.
//
// "$this" always resolves to the view-model itself; "$parent.NAME" resolves
// NAME starting one frame out, skipping the current frame's own locals
// (deeper "$parent.$parent" chains are not supported — a single level
// covers the common then/catch/repeat nesting this compiler targets).
// "$event" resolves to the lambda's third parameter, injected by Emit for
// listener-binding expressions only.
func RewriteExpr(code string, baseOffset int, frameID span.FrameID, r *bind.Result) rewriteResult {
	tree, err := parser.Parse(code)
	if err != nil {
		return rewriteResult{Text: code}
	}

	outer := frameID
	if f, ok := r.Frame(frameID); ok && f.HasParent {
		outer = f.Parent
	}

	rw := &rewriter{code: code, baseOffset: baseOffset, frameID: frameID, outer: outer, r: r}
	rw.visit(tree.Node, false)
	return rw.build()
}

type replacement struct {
	from, to int
	text     string
}

type rewriter struct {
	code       string
	baseOffset int
	frameID    span.FrameID
	outer      span.FrameID
	r          *bind.Result
	repls      []replacement
}

// visit walks n looking for head identifiers to rewrite. memberProperty is
// true when n is the (non-computed) property side of a MemberNode — a
// trailing field name that is never itself a frame/view-model reference.
func (rw *rewriter) visit(n ast.Node, memberProperty bool) {
	if n == nil {
		return
	}
	switch node := n.(type) {
	case *ast.IdentifierNode:
		if memberProperty {
			return
		}
		rw.rewriteIdentifier(node)
	case *ast.MemberNode:
		if base, ok := node.Node.(*ast.IdentifierNode); ok && base.Value == "$parent" {
			rw.rewriteParentAccess(base, node.Property)
			return
		}
		rw.visit(node.Node, false)
		rw.visit(node.Property, true)
	case *ast.BinaryNode:
		rw.visit(node.Left, false)
		rw.visit(node.Right, false)
	case *ast.UnaryNode:
		rw.visit(node.Node, false)
	case *ast.ConditionalNode:
		rw.visit(node.Cond, false)
		rw.visit(node.Exp1, false)
		rw.visit(node.Exp2, false)
	case *ast.CallNode:
		rw.visit(node.Callee, false)
		for _, a := range node.Arguments {
			rw.visit(a, false)
		}
	case *ast.BuiltinNode:
		for _, a := range node.Arguments {
			rw.visit(a, false)
		}
	case *ast.ArrayNode:
		for _, el := range node.Nodes {
			rw.visit(el, false)
		}
	case *ast.MapNode:
		for _, pn := range node.Pairs {
			p, ok := pn.(*ast.PairNode)
			if !ok {
				continue
			}
			rw.visit(p.Key, true)
			rw.visit(p.Value, false)
		}
	case *ast.PointerNode, *ast.StringNode, *ast.IntegerNode, *ast.FloatNode, *ast.BoolNode, *ast.NilNode:
		// leaves; nothing to rewrite.
	default:
		// Unrecognized node kind (e.g. a newer expr-lang construct this
		// compiler hasn't been taught): leave its text untouched rather
		// than risk mangling it.
	}
}

func (rw *rewriter) rewriteIdentifier(node *ast.IdentifierNode) {
	loc := node.Location()
	switch node.Value {
	case "$event":
		rw.record(loc.From, loc.To, "event")
		return
	case "$this":
		rw.record(loc.From, loc.To, "vm")
		return
	}
	if reserved[node.Value] {
		return
	}
	rw.record(loc.From, loc.To, resolve(node.Value, rw.frameID, rw.r))
}

// rewriteParentAccess rewrites a whole "$parent.NAME" access as a single
// unit, resolving NAME one frame out from the current one.
func (rw *rewriter) rewriteParentAccess(base *ast.IdentifierNode, property ast.Node) {
	prop, ok := property.(*ast.IdentifierNode)
	if !ok {
		return
	}
	from := base.Location().From
	to := prop.Location().To
	rw.record(from, to, resolve(prop.Value, rw.outer, rw.r))
}

func (rw *rewriter) record(from, to int, text string) {
	rw.repls = append(rw.repls, replacement{from: from, to: to, text: text})
}

// build rebuilds rw.code with every recorded replacement substituted in,
// copying every other byte (including string literal contents) verbatim,
// and returns the matching Segments.
func (rw *rewriter) build() rewriteResult {
	sort.Slice(rw.repls, func(i, j int) bool { return rw.repls[i].from < rw.repls[j].from })

	var b strings.Builder
	var segs []Segment
	cursor := 0
	for _, rep := range rw.repls {
		if rep.from < cursor || rep.from > len(rw.code) || rep.to > len(rw.code) {
			continue // overlapping/out-of-range AST position; skip defensively
		}
		b.WriteString(rw.code[cursor:rep.from])
		start := b.Len()
		b.WriteString(rep.text)
		end := b.Len()
		segs = append(segs, Segment{
			TemplateSpan: span.Span{Start: rw.baseOffset + rep.from, End: rw.baseOffset + rep.to},
			OverlaySpan:  span.Span{Start: start, End: end},
			MemberPath:   rep.text,
		})
		cursor = rep.to
	}
	b.WriteString(rw.code[cursor:])
	return rewriteResult{Text: b.String(), Segments: segs}
}

// resolve finds which frame (from frameID up to the root) declares ident as
// a local, and returns the member-access path to it; if no frame declares
// it, ident is assumed to be a view-model member.
func resolve(ident string, frameID span.FrameID, r *bind.Result) string {
	cur := frameID
	for {
		f, ok := r.Frame(cur)
		if !ok {
			break
		}
		for _, loc := range f.Locals {
			if loc.Name == ident {
				return fmt.Sprintf("%s.%s", frameVar(cur), capitalize(ident))
			}
		}
		if !f.HasParent {
			break
		}
		cur = f.Parent
	}
	return "vm." + capitalize(ident)
}

func frameVar(id span.FrameID) string {
	return fmt.Sprintf("o%d", int(id))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	if strings.HasPrefix(s, "$") {
		return "X" + strings.ToUpper(s[1:2]) + s[2:]
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
