// Package typecheck is the external type-checker stand-in overlay/emit.go
// defers real view-model verification to. Rather than feeding generated
// overlay source through go/types, it walks each bound expression's own
// expr-lang AST directly and checks member accesses against a shape.Shape
// built from the frame chain (internal/bind) and the view-model's reflected
// shape (internal/reflectvm) — the same conservative, safe-and-obvious
// inference chtml/checker.go performs, generalized from chtml.Symbols to a
// frame-aware lookup and from chtml.TypeError to a queued diag.Diagnostic.
package typecheck

import (
	"fmt"

	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"

	"github.com/kvietkauskas/au-ttc/internal/bind"
	"github.com/kvietkauskas/au-ttc/internal/diag"
	"github.com/kvietkauskas/au-ttc/internal/ir"
	"github.com/kvietkauskas/au-ttc/internal/shape"
	"github.com/kvietkauskas/au-ttc/internal/span"
)

// Symbols maps an identifier visible at one point in a template to its
// shape.
type Symbols map[string]*shape.Shape

// memberError is the internal signal for an invalid member access; Check
// reports it as an AU2001 diagnostic rather than surfacing a Go error, since
// the engine's contract is that a type-check failure is always data, never
// a returned error.
type memberError struct {
	msg string
	pos int
}

// Check walks every non-bad expression table entry in mod, resolves its
// identifiers against the frame chain r describes (innermost frame first,
// falling back to vmShape's own fields), and returns the diagnostics queue
// of AU2001 findings: member access on a value whose shape is known and is
// not an object (an array is accepted only with an integer index). An
// unknown field on an object, or any member of an Any value, is not
// flagged. A resolution failure (the
// expression's frame is unknown, e.g. because C4 already flagged its owning
// instruction) is silently skipped: C8's aggregation step suppresses a
// regime-3 diagnostic cascading from an already-unresolved instruction
// anyway, so re-deriving one here would just be discarded downstream.
func Check(mod *ir.Module, r *bind.Result, vmShape *shape.Shape) *diag.Queue {
	queue := diag.NewQueue(diag.PhaseTypecheck)
	for _, entry := range mod.ExprTable {
		if entry.Bad {
			continue
		}
		frameID, ok := r.FrameOfExpr(entry.ID)
		if !ok {
			continue
		}
		tree, err := parser.Parse(entry.Code)
		if err != nil {
			continue
		}
		sym := buildSymbols(frameID, r, vmShape)
		if _, mErr := shapeOf(tree.Node, sym); mErr != nil {
			queue.Append(diag.Diagnostic{
				Code:     "AU2001",
				Severity: diag.SeverityWarning,
				Message:  mErr.msg,
				Location: diag.Location{URI: mod.File, Span: entry.Span},
				HasLocation: true,
			})
		}
	}
	return queue
}

// buildSymbols flattens vmShape's own fields (the implicit view-model scope
// every template expression sees) and then overrides/adds local names
// walking from the outermost frame to frameID, so an inner frame's local
// shadows a same-named vm member or outer local, matching scope-chain
// lookup order at evaluation time.
func buildSymbols(frameID span.FrameID, r *bind.Result, vmShape *shape.Shape) Symbols {
	sym := Symbols{}
	if vmShape != nil && vmShape.Kind == shape.KindObject {
		for k, v := range vmShape.Fields {
			sym[k] = v
		}
	}

	var chain []*bind.Frame
	for cur := frameID; ; {
		f, ok := r.Frame(cur)
		if !ok {
			break
		}
		chain = append(chain, f)
		if !f.HasParent {
			break
		}
		cur = f.Parent
	}
	for i := len(chain) - 1; i >= 0; i-- {
		for _, loc := range chain[i].Locals {
			sym[loc.Name] = shape.FromHint(loc.TypeHint)
		}
	}
	return sym
}

func shapeOf(n ast.Node, sym Symbols) (*shape.Shape, *memberError) {
	if n == nil {
		return shape.ShapeAny, nil
	}
	switch node := n.(type) {
	case *ast.IntegerNode, *ast.FloatNode:
		return shape.ShapeNumber, nil
	case *ast.BoolNode:
		return shape.ShapeBool, nil
	case *ast.StringNode:
		return shape.ShapeString, nil
	case *ast.NilNode:
		return shape.ShapeAny, nil
	case *ast.IdentifierNode:
		if s, ok := sym[node.Value]; ok && s != nil {
			return s, nil
		}
		return shape.ShapeAny, nil
	case *ast.MemberNode:
		obj, mErr := shapeOf(node.Node, sym)
		if mErr != nil {
			return shape.ShapeAny, mErr
		}
		return memberShape(obj, node, sym)
	case *ast.ArrayNode:
		var elem *shape.Shape
		for _, el := range node.Nodes {
			s, mErr := shapeOf(el, sym)
			if mErr != nil {
				return shape.ArrayOf(shape.ShapeAny), mErr
			}
			elem = elem.Merge(s)
		}
		if elem == nil {
			elem = shape.ShapeAny
		}
		return shape.ArrayOf(elem), nil
	case *ast.MapNode:
		fields := make(map[string]*shape.Shape, len(node.Pairs))
		for _, pn := range node.Pairs {
			p, ok := pn.(*ast.PairNode)
			if !ok {
				continue
			}
			key, ok := keyOf(p.Key)
			if !ok {
				continue
			}
			v, mErr := shapeOf(p.Value, sym)
			if mErr != nil {
				return shape.Object(fields), mErr
			}
			fields[key] = v
		}
		return shape.Object(fields), nil
	case *ast.ConditionalNode:
		t, mErr := shapeOf(node.Exp1, sym)
		if mErr != nil {
			return shape.ShapeAny, mErr
		}
		f, mErr := shapeOf(node.Exp2, sym)
		if mErr != nil {
			return shape.ShapeAny, mErr
		}
		return t.Merge(f), nil
	case *ast.UnaryNode:
		return shapeOf(node.Node, sym)
	case *ast.BinaryNode:
		if _, mErr := shapeOf(node.Left, sym); mErr != nil {
			return shape.ShapeAny, mErr
		}
		if _, mErr := shapeOf(node.Right, sym); mErr != nil {
			return shape.ShapeAny, mErr
		}
		return shape.ShapeAny, nil
	case *ast.CallNode:
		for _, a := range node.Arguments {
			if _, mErr := shapeOf(a, sym); mErr != nil {
				return shape.ShapeAny, mErr
			}
		}
		return shape.ShapeAny, nil
	case *ast.BuiltinNode:
		for _, a := range node.Arguments {
			if _, mErr := shapeOf(a, sym); mErr != nil {
				return shape.ShapeAny, mErr
			}
		}
		return shape.ShapeAny, nil
	default:
		return shape.ShapeAny, nil
	}
}

func memberShape(obj *shape.Shape, node *ast.MemberNode, sym Symbols) (*shape.Shape, *memberError) {
	loc := node.Location()

	if obj != nil && obj.Kind == shape.KindArray {
		if _, ok := node.Property.(*ast.IntegerNode); ok {
			if obj.Elem != nil {
				return obj.Elem, nil
			}
			return shape.ShapeAny, nil
		}
	}

	if obj == nil || obj.Kind == shape.Any {
		return shape.ShapeAny, nil
	}

	if obj.Kind != shape.KindObject {
		name := memberName(node.Property)
		objKind := "any"
		if obj != nil {
			objKind = obj.Kind.String()
		}
		return shape.ShapeAny, &memberError{
			msg: fmt.Sprintf("cannot access member %q on value of shape %s", name, objKind),
			pos: loc.From,
		}
	}

	switch prop := node.Property.(type) {
	case *ast.StringNode:
		return resolveField(obj, prop.Value), nil
	case *ast.IdentifierNode:
		return resolveField(obj, prop.Value), nil
	case *ast.MemberNode:
		return shapeOf(prop, sym)
	default:
		return shape.ShapeAny, nil
	}
}

func resolveField(obj *shape.Shape, name string) *shape.Shape {
	if obj.Fields != nil {
		if fs, ok := obj.Fields[name]; ok {
			return fs
		}
		// Known, closed object shape with no such field is still reported
		// Any rather than an error: the shape algebra is conservative and a
		// field genuinely absent from every branch that built this shape
		// could still be legitimate (e.g. an interface-typed view model).
	}
	if obj.Elem != nil && obj.Fields == nil {
		return obj.Elem
	}
	return shape.ShapeAny
}

func keyOf(n ast.Node) (string, bool) {
	switch k := n.(type) {
	case *ast.StringNode:
		return k.Value, true
	case *ast.IdentifierNode:
		return k.Value, true
	default:
		return "", false
	}
}
