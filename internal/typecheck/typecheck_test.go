package typecheck_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kvietkauskas/au-ttc/internal/bind"
	"github.com/kvietkauskas/au-ttc/internal/catalog"
	"github.com/kvietkauskas/au-ttc/internal/ir"
	"github.com/kvietkauskas/au-ttc/internal/lower"
	"github.com/kvietkauskas/au-ttc/internal/shape"
	"github.com/kvietkauskas/au-ttc/internal/span"
	"github.com/kvietkauskas/au-ttc/internal/typecheck"
)

func compile(t *testing.T, src string) (*ir.Module, *bind.Result) {
	t.Helper()
	res := catalog.Default().Materialize(catalog.RootScope)
	alloc := &span.Allocator{}
	mod, _, err := lower.Lower(src, lower.Options{File: "t.html", Resources: res, Alloc: alloc})
	require.NoError(t, err)
	bound, _ := bind.Bind(mod, res, alloc)
	return mod, bound
}

func TestCheckFlagsMemberAccessOnNonObject(t *testing.T) {
	mod, bound := compile(t, `<div>${title.nested}</div>`)
	vmShape := shape.Object(map[string]*shape.Shape{"title": shape.ShapeString})

	queue := typecheck.Check(mod, bound, vmShape)
	var codes []string
	for _, d := range queue.Items() {
		codes = append(codes, d.Code)
	}
	require.Contains(t, codes, "AU2001")
}

func TestCheckAllowsKnownObjectMemberAccess(t *testing.T) {
	mod, bound := compile(t, `<div>${user.name}</div>`)
	vmShape := shape.Object(map[string]*shape.Shape{
		"user": shape.Object(map[string]*shape.Shape{"name": shape.ShapeString}),
	})

	queue := typecheck.Check(mod, bound, vmShape)
	require.Empty(t, queue.Items())
}
