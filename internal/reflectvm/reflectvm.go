// Package reflectvm derives a shape.Shape for a view-model type via
// reflection, so internal/typecheck has something to check authored
// template expressions against without requiring a separate Go type-checker
// pass over the paired source file. Ported from the teacher's
// chtml/shape_reflect.go, generalized from chtml.Shape to shape.Shape and
// renamed fieldName's tag preference from "expr" (chtml's own interpolation
// tag) to "vm", the tag this compiler's paired view-model structs use to
// declare the name a template expression sees.
package reflectvm

import (
	"reflect"
	"strings"
	"unicode"

	"github.com/kvietkauskas/au-ttc/internal/shape"
)

// ShapeOfType constructs a shape.Shape from a reflect.Type; the result is
// the kind of vmShape facade.Compile accepts. Nothing in this module calls
// it outside its tests.
func ShapeOfType(rt reflect.Type) *shape.Shape {
	if rt == nil {
		return shape.ShapeAny
	}
	return shapeFromType(rt, make(map[reflect.Type]*shape.Shape))
}

// ShapeOfValue is a convenience wrapper for a live value's dynamic type,
// useful for a facade that already holds a constructed view-model instance
// (e.g. in an editor preview session) rather than only its static type.
func ShapeOfValue(v any) *shape.Shape {
	if v == nil {
		return shape.ShapeAny
	}
	return ShapeOfType(reflect.TypeOf(v))
}

func shapeFromType(rt reflect.Type, seen map[reflect.Type]*shape.Shape) *shape.Shape {
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if s, ok := seen[rt]; ok {
		return s
	}

	switch rt.Kind() {
	case reflect.Bool:
		return shape.ShapeBool
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return shape.ShapeNumber
	case reflect.String:
		return shape.ShapeString
	case reflect.Interface:
		return shape.ShapeAny
	case reflect.Slice, reflect.Array:
		return shape.ArrayOf(shapeFromType(rt.Elem(), seen))
	case reflect.Map:
		return shape.Object(nil)
	case reflect.Struct:
		if rt.PkgPath() == "time" && rt.Name() == "Time" {
			return shape.ShapeNumber
		}
		obj := make(map[string]*shape.Shape)
		res := shape.Object(obj)
		seen[rt] = res
		for i := 0; i < rt.NumField(); i++ {
			f := rt.Field(i)
			if f.PkgPath != "" {
				continue
			}
			name := fieldName(f)
			if name == "-" || name == "" {
				continue
			}
			obj[name] = shapeFromType(f.Type, seen)
		}
		return res
	default:
		return shape.ShapeAny
	}
}

func fieldName(f reflect.StructField) string {
	if v := f.Tag.Get("vm"); v != "" {
		return v
	}
	if v := f.Tag.Get("json"); v != "" {
		if idx := strings.IndexByte(v, ','); idx >= 0 {
			v = v[:idx]
		}
		return v
	}
	return toCamelCase(f.Name)
}

// toCamelCase lower-cases a Go exported field's leading rune, matching how
// an Aurelia template author references a view-model property ("Title" on
// the struct becomes "title" in the template).
func toCamelCase(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}
