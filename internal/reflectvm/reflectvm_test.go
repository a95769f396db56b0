package reflectvm_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kvietkauskas/au-ttc/internal/reflectvm"
	"github.com/kvietkauskas/au-ttc/internal/shape"
)

type item struct {
	Name string
}

type viewModel struct {
	Title string
	Count int
	Items []item
	Tags  map[string]string `vm:"-"`
}

func TestShapeOfTypeBuildsObjectFromExportedFields(t *testing.T) {
	s := reflectvm.ShapeOfType(reflect.TypeOf(viewModel{}))
	require.Equal(t, shape.KindObject, s.Kind)
	require.Equal(t, shape.ShapeString, s.Fields["title"])
	require.Equal(t, shape.ShapeNumber, s.Fields["count"])
	require.Equal(t, shape.KindArray, s.Fields["items"].Kind)
	require.Equal(t, shape.KindObject, s.Fields["items"].Elem.Kind)
	require.Equal(t, shape.ShapeString, s.Fields["items"].Elem.Fields["name"])

	_, excluded := s.Fields["tags"]
	require.False(t, excluded, "vm:\"-\" field should be dropped")
}

func TestShapeOfValueNilIsAny(t *testing.T) {
	require.Equal(t, shape.ShapeAny, reflectvm.ShapeOfValue(nil))
}
