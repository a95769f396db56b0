package resolve_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kvietkauskas/au-ttc/internal/catalog"
	"github.com/kvietkauskas/au-ttc/internal/diag"
	"github.com/kvietkauskas/au-ttc/internal/ir"
	"github.com/kvietkauskas/au-ttc/internal/resolve"
	"github.com/kvietkauskas/au-ttc/internal/span"
)

func TestResolveUnknownCustomElementWithDialectSyntaxIsMediumConfidence(t *testing.T) {
	res := catalog.Default().Materialize(catalog.RootScope)
	mod := &ir.Module{
		File: "x.html",
		Templates: []ir.TemplateIR{{
			Dom: &ir.TemplateNode{
				Kind: ir.NodeTemplate,
				Children: []*ir.TemplateNode{
					{ID: 1, Kind: ir.NodeElement, Tag: "my-widget"},
				},
			},
			Rows: []ir.InstructionRow{{
				Target: 1,
				Instructions: []ir.Instruction{{
					Kind: ir.InstrPropertyBinding, Name: "value",
					Source: ir.BindingSource{HasSource: true},
				}},
			}},
		}},
	}

	result, queue := resolve.Resolve(mod, res)

	elRes, ok := result.Element(1)
	require.True(t, ok)
	require.False(t, elRes.Known)
	require.True(t, elRes.Custom)
	require.Equal(t, diag.ConfidenceMedium, elRes.Confidence)

	var codes []string
	for _, d := range queue.Items() {
		codes = append(codes, d.Code)
	}
	require.Contains(t, codes, "aurelia/unknown-element")
}

func TestResolveUnknownCustomElementWithNoDialectSyntaxIsLowConfidence(t *testing.T) {
	res := catalog.Default().Materialize(catalog.RootScope)
	mod := &ir.Module{
		File: "x.html",
		Templates: []ir.TemplateIR{{
			Dom: &ir.TemplateNode{
				Kind: ir.NodeTemplate,
				Children: []*ir.TemplateNode{
					{ID: 1, Kind: ir.NodeElement, Tag: "sl-button", Children: []*ir.TemplateNode{
						{ID: 2, Kind: ir.NodeText},
					}},
				},
			},
		}},
	}

	result, queue := resolve.Resolve(mod, res)

	elRes, ok := result.Element(1)
	require.True(t, ok)
	require.False(t, elRes.Known)
	require.True(t, elRes.Custom)
	require.Equal(t, diag.ConfidenceLow, elRes.Confidence)

	var codes []string
	for _, d := range queue.Items() {
		codes = append(codes, d.Code)
	}
	require.Contains(t, codes, "aurelia/unknown-element")
}

func TestResolveKnownNativeElementNeverFlagged(t *testing.T) {
	res := catalog.Default().Materialize(catalog.RootScope)
	mod := &ir.Module{
		File: "x.html",
		Templates: []ir.TemplateIR{{
			Dom: &ir.TemplateNode{
				Kind: ir.NodeTemplate,
				Children: []*ir.TemplateNode{
					{ID: 1, Kind: ir.NodeElement, Tag: "div"},
				},
			},
			Rows: []ir.InstructionRow{{
				Target: 1,
				Instructions: []ir.Instruction{{Kind: ir.InstrPropertyBinding, Name: "title"}},
			}},
		}},
	}

	_, queue := resolve.Resolve(mod, res)
	require.Empty(t, queue.Items())
}

func TestResolveFlagsUnknownValueConverter(t *testing.T) {
	res := catalog.Default().Materialize(catalog.RootScope)
	mod := &ir.Module{
		File: "x.html",
		Templates: []ir.TemplateIR{{
			Dom: &ir.TemplateNode{Kind: ir.NodeTemplate},
		}},
		ExprTable: []ir.ExprTableEntry{{
			ID: 0, Code: "total ", Raw: "total | missing",
			Converters: []ir.ConverterRef{{Name: "missing", Span: span.Span{Start: 7, End: 14}}},
		}},
	}

	_, queue := resolve.Resolve(mod, res)
	var codes []string
	for _, d := range queue.Items() {
		codes = append(codes, d.Code)
	}
	require.Contains(t, codes, "aurelia/unknown-converter")
}

func TestResolveKnownValueConverterNotFlagged(t *testing.T) {
	res := catalog.NewBuilder().RegisterValueConverter("dateFormat").Build().Materialize(catalog.RootScope)
	mod := &ir.Module{
		File: "x.html",
		Templates: []ir.TemplateIR{{
			Dom: &ir.TemplateNode{Kind: ir.NodeTemplate},
		}},
		ExprTable: []ir.ExprTableEntry{{
			ID: 0, Code: "today ", Raw: "today | dateFormat",
			Converters: []ir.ConverterRef{{Name: "dateFormat", Span: span.Span{Start: 8, End: 18}}},
		}},
	}

	_, queue := resolve.Resolve(mod, res)
	require.Empty(t, queue.Items())
}

func TestResolveControllerBranchMisplacement(t *testing.T) {
	res := catalog.Default().Materialize(catalog.RootScope)
	mod := &ir.Module{
		File: "x.html",
		Templates: []ir.TemplateIR{{
			Dom: &ir.TemplateNode{Kind: ir.NodeTemplate},
			Rows: []ir.InstructionRow{{
				Target: 1,
				Instructions: []ir.Instruction{{
					Kind:           ir.InstrHydrateTemplateController,
					ControllerName: "case",
					Branch:         ir.Branch{Kind: ir.BranchCase, Expr: span.ExprID(0), HasExpr: true},
				}},
			}},
		}},
	}

	_, queue := resolve.Resolve(mod, res)
	var codes []string
	for _, d := range queue.Items() {
		codes = append(codes, d.Code)
	}
	require.Contains(t, codes, "aurelia/invalid-command-usage")
}
