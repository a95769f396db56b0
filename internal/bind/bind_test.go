package bind_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kvietkauskas/au-ttc/internal/bind"
	"github.com/kvietkauskas/au-ttc/internal/catalog"
	"github.com/kvietkauskas/au-ttc/internal/ir"
	"github.com/kvietkauskas/au-ttc/internal/lower"
	"github.com/kvietkauskas/au-ttc/internal/span"
)

func resources() catalog.Resources {
	return catalog.Default().Materialize(catalog.RootScope)
}

func TestBindRepeatIntroducesOverlayFrameWithLocals(t *testing.T) {
	src := `<li repeat.for="item of items">${item}</li>`
	res := resources()
	alloc := &span.Allocator{}
	mod, lowerQueue, err := lower.Lower(src, lower.Options{File: "x.html", Resources: res, Alloc: alloc})
	require.NoError(t, err)
	require.Empty(t, lowerQueue.Items())

	result, queue := bind.Bind(mod, res, alloc)
	require.Empty(t, queue.Items())

	ctrl := mod.Templates[0].Rows[0].Instructions[0]
	require.Equal(t, ir.InstrHydrateTemplateController, ctrl.Kind)

	// The iterator's "of" expression binds in the root frame, not the
	// repeat's own overlay frame.
	iterFrame, ok := result.FrameOfExpr(ctrl.IteratorOf)
	require.True(t, ok)
	require.Equal(t, result.Root, iterFrame)

	// The body's text-binding expression binds in a child frame carrying
	// the "item" local.
	bodyRow := ctrl.Body[0]
	bodyInstr := bodyRow.Instructions[0]
	bodyFrame, ok := result.FrameOfExpr(bodyInstr.Source.Exprs[0])
	require.True(t, ok)
	require.NotEqual(t, result.Root, bodyFrame)

	f, ok := result.Frame(bodyFrame)
	require.True(t, ok)
	require.Equal(t, 1, f.Depth)
	found := false
	for _, l := range f.Locals {
		if l.Name == "item" {
			found = true
		}
	}
	require.True(t, found)
}

func TestBindIfReusesParentFrame(t *testing.T) {
	src := `<div if.bind="show">${show}</div>`
	res := resources()
	alloc := &span.Allocator{}
	mod, _, err := lower.Lower(src, lower.Options{File: "x.html", Resources: res, Alloc: alloc})
	require.NoError(t, err)

	result, queue := bind.Bind(mod, res, alloc)
	require.Empty(t, queue.Items())

	ctrl := mod.Templates[0].Rows[0].Instructions[0]
	bodyInstr := ctrl.Body[0].Instructions[0]
	bodyFrame, ok := result.FrameOfExpr(bodyInstr.Source.Exprs[0])
	require.True(t, ok)
	require.Equal(t, result.Root, bodyFrame)
}

func TestBindDuplicateLocalInSameFrame(t *testing.T) {
	src := `<li repeat.for="item of items"><let item.bind="1"></let></li>`
	res := resources()
	alloc := &span.Allocator{}
	mod, _, err := lower.Lower(src, lower.Options{File: "x.html", Resources: res, Alloc: alloc})
	require.NoError(t, err)

	_, queue := bind.Bind(mod, res, alloc)
	var codes []string
	for _, d := range queue.Items() {
		codes = append(codes, d.Code)
	}
	require.Contains(t, codes, "AU1202")
}
