// Package overlay implements the overlay plan and emission stage (C6): it
// turns the scope graph from bind into a tree of generated struct types (one
// per frame) and rewrites every bound expression into a member-access
// lambda over those types, so an external type checker can validate
// template expressions as if they were ordinary Go code. Grounded on the
// teacher's Shape/Symbols pairing in chtml/shape.go and checker.go: there,
// identifiers resolve against a flat Symbols map built per render; here the
// same resolution happens once, ahead of time, against the frame forest,
// and is baked into generated source instead of walked at render time.
package overlay

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kvietkauskas/au-ttc/internal/bind"
	"github.com/kvietkauskas/au-ttc/internal/span"
)

// Field is one generated struct field, corresponding to either a frame's
// local symbol or (for the root frame) left for the caller's view-model
// type to supply.
type Field struct {
	Name     string
	TypeHint string
}

// FrameType is the generated overlay type for one bind.Frame.
type FrameType struct {
	FrameID  span.FrameID
	TypeName string
	Parent   span.FrameID
	HasParent bool
	Fields   []Field
}

// Plan is the frame-to-type mapping C6 builds before emitting any text.
type Plan struct {
	Root   span.FrameID
	Types  map[span.FrameID]FrameType
	Order  []span.FrameID // deterministic emission order, root first
}

// TypeOf looks up the generated type for a frame.
func (p *Plan) TypeOf(id span.FrameID) (FrameType, bool) {
	t, ok := p.Types[id]
	return t, ok
}

// BuildPlan derives one FrameType per frame in r, named deterministically
// from the frame's ID so output is stable across identical input.
func BuildPlan(r *bind.Result) *Plan {
	plan := &Plan{Root: r.Root, Types: map[span.FrameID]FrameType{}}

	ids := make([]int, 0, len(r.Frames))
	for id := range r.Frames {
		ids = append(ids, int(id))
	}
	sort.Ints(ids)

	for _, i := range ids {
		id := span.FrameID(i)
		f := r.Frames[id]
		t := FrameType{
			FrameID:   id,
			TypeName:  frameTypeName(id),
			Parent:    f.Parent,
			HasParent: f.HasParent,
		}
		for _, loc := range f.Locals {
			t.Fields = append(t.Fields, Field{Name: loc.Name, TypeHint: typeHintOrAny(loc.TypeHint)})
		}
		plan.Types[id] = t
		plan.Order = append(plan.Order, id)
	}
	return plan
}

func frameTypeName(id span.FrameID) string {
	return fmt.Sprintf("Frame%d", int(id))
}

func typeHintOrAny(hint string) string {
	if strings.TrimSpace(hint) == "" {
		return "any"
	}
	return hint
}
