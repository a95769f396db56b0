// Package facade is the language-service entry point: it owns the resource
// catalog, drives a template source through every compilation stage (C3
// lower, C4 resolve, C5 bind, C6 overlay plan+emit, C6 typecheck, C7
// provenance), and answers editor-style queries by projecting through the
// resulting provenance index. Grounded on the teacher's Handler in pages.go,
// which is the one place go-pages centralizes "take a request, run it
// through the template pipeline, answer with a result" — this package plays
// the same owning/dispatching role for editor requests instead of HTTP
// requests.
package facade

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/kvietkauskas/au-ttc/internal/bind"
	"github.com/kvietkauskas/au-ttc/internal/catalog"
	"github.com/kvietkauskas/au-ttc/internal/diag"
	"github.com/kvietkauskas/au-ttc/internal/ir"
	"github.com/kvietkauskas/au-ttc/internal/lower"
	"github.com/kvietkauskas/au-ttc/internal/overlay"
	"github.com/kvietkauskas/au-ttc/internal/provenance"
	"github.com/kvietkauskas/au-ttc/internal/resolve"
	"github.com/kvietkauskas/au-ttc/internal/shape"
	"github.com/kvietkauskas/au-ttc/internal/span"
	"github.com/kvietkauskas/au-ttc/internal/typecheck"
)

// Document is the full compiled artifact for one template source.
type Document struct {
	URI         string
	Source      string
	Module      *ir.Module
	Resolved    *resolve.Result
	Bound       *bind.Result
	Plan        *overlay.Plan
	Overlay     overlay.EmitResult
	Provenance  *provenance.Index
	Diagnostics diag.RoutedDiagnostics
}

// Facade owns a resource catalog and every document compiled against it.
type Facade struct {
	mu        sync.RWMutex
	resources catalog.Resources
	docs      map[string]*Document
}

// New creates a Facade backed by cat's root scope.
func New(cat *catalog.Catalog) *Facade {
	return &Facade{
		resources: cat.Materialize(catalog.RootScope),
		docs:      map[string]*Document{},
	}
}

// Compile runs uri's source through C3-C7 and stores the result. vmShape may
// be nil, in which case the typecheck stage only ever flags member access on
// values it already knows are non-object (every plain identifier resolves
// to Any and is never flagged).
func (f *Facade) Compile(uri, source string, vmShape *shape.Shape) (*Document, error) {
	alloc := &span.Allocator{}
	mod, lowerQueue, err := lower.Lower(source, lower.Options{File: uri, Resources: f.resources, Alloc: alloc})
	if err != nil {
		return nil, fmt.Errorf("lower %s: %w", uri, err)
	}

	resolved, resolveQueue := resolve.Resolve(mod, f.resources)
	bound, bindQueue := bind.Bind(mod, f.resources, alloc)
	plan := overlay.BuildPlan(bound)
	emitted := overlay.Emit(mod, plan, bound)
	typeQueue := typecheck.Check(mod, bound, vmShape)
	prov := provenance.Build(uri, emitted.Mapping)

	unresolved := diag.UnresolvedInstructions{}
	for key, instrRes := range resolved.Instructions {
		if !instrRes.Known {
			unresolved[key.String()] = true
		}
	}

	doc := &Document{
		URI: uri, Source: source, Module: mod,
		Resolved: resolved, Bound: bound, Plan: plan, Overlay: emitted, Provenance: prov,
		Diagnostics: diag.Aggregate(unresolved, lowerQueue, resolveQueue, bindQueue, typeQueue),
	}

	f.mu.Lock()
	f.docs[uri] = doc
	f.mu.Unlock()
	return doc, nil
}

func (f *Facade) doc(uri string) (*Document, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	d, ok := f.docs[uri]
	return d, ok
}

// Document returns uri's last-compiled artifact, for callers that need more
// than the narrow accessor methods below (e.g. printing provenance stats).
func (f *Facade) Document(uri string) (*Document, bool) {
	return f.doc(uri)
}

// GetDiagnostics returns uri's last-computed diagnostics routed to the lsp
// surface (the diagnostics an editor would actually show). Use
// GetRoutedDiagnostics for access to other surfaces or the suppressed list.
func (f *Facade) GetDiagnostics(uri string) []diag.FinalizedDiagnostic {
	d, ok := f.doc(uri)
	if !ok {
		return nil
	}
	return d.Diagnostics.ForSurface(diag.SurfaceLSP)
}

// GetRoutedDiagnostics returns uri's full C8 routing result: every surface's
// diagnostics plus the suppressed list.
func (f *Facade) GetRoutedDiagnostics(uri string) (diag.RoutedDiagnostics, bool) {
	d, ok := f.doc(uri)
	if !ok {
		return diag.RoutedDiagnostics{}, false
	}
	return d.Diagnostics, true
}

// QuickInfo is the hover-card content for one template offset.
type QuickInfo struct {
	Expression string
	Bad        bool
	BadReason  string
}

// GetQuickInfo reports the authored expression covering offset, if any.
func (f *Facade) GetQuickInfo(uri string, offset int) (QuickInfo, bool) {
	d, ok := f.doc(uri)
	if !ok {
		return QuickInfo{}, false
	}
	entry, ok := exprAt(d.Module, offset)
	if !ok {
		return QuickInfo{}, false
	}
	return QuickInfo{Expression: entry.Raw, Bad: entry.Bad, BadReason: entry.BadReason}, true
}

// GetDefinition projects a template-side offset to its generated overlay
// span, the closest analogue this compiler has to "go to definition" since
// the real declaration lives in a separately-compiled Go view-model file
// this stage never parses.
func (f *Facade) GetDefinition(uri string, offset int) (provenance.Entry, bool) {
	d, ok := f.doc(uri)
	if !ok {
		return provenance.Entry{}, false
	}
	return d.Provenance.LookupSource(offset)
}

// GetReferences returns the template span of every identifier that resolves
// to the same member path as the one at offset, using the member-aware
// segments internal/provenance indexed during overlay emission. Renaming
// "k" in "${k.length}" finds just the "k" token, not the whole expression
// it appears in, because the segment covering offset records "k"'s own
// span and the resolved member path every other occurrence of "k" in scope
// was rewritten to.
func (f *Facade) GetReferences(uri string, offset int) []span.Span {
	d, ok := f.doc(uri)
	if !ok {
		return nil
	}
	seg, ok := d.Provenance.LookupSourceSegment(offset)
	if !ok {
		return nil
	}
	var out []span.Span
	for _, s := range d.Provenance.SegmentsNamed(segmentName(seg.MemberPath)) {
		if s.MemberPath == seg.MemberPath {
			out = append(out, s.TemplateSpan)
		}
	}
	return out
}

// segmentName returns a member path's final component, e.g. "Name" for
// "o2.Item.Name" — the identifier portion GetReferences/GetRenameEdits
// match occurrences by.
func segmentName(memberPath string) string {
	i := strings.LastIndexByte(memberPath, '.')
	if i < 0 {
		return memberPath
	}
	return memberPath[i+1:]
}

// CompletionItem is one candidate identifier for an editor's completion list.
type CompletionItem struct {
	Name string
	Kind string // "local" | "view-model"
}

// GetCompletions lists every name visible at a template offset: the
// enclosing frame's locals (innermost first) plus the view-model's own
// fields, deduplicated by name with the innermost/local entry winning.
func (f *Facade) GetCompletions(uri string, offset int, vmShape *shape.Shape) []CompletionItem {
	d, ok := f.doc(uri)
	if !ok {
		return nil
	}
	entry, ok := exprAt(d.Module, offset)
	if !ok {
		return nil
	}
	frameID, ok := d.Bound.FrameOfExpr(entry.ID)
	if !ok {
		return nil
	}

	seen := map[string]bool{}
	var items []CompletionItem
	for cur := frameID; ; {
		fr, ok := d.Bound.Frame(cur)
		if !ok {
			break
		}
		for _, loc := range fr.Locals {
			if !seen[loc.Name] {
				seen[loc.Name] = true
				items = append(items, CompletionItem{Name: loc.Name, Kind: "local"})
			}
		}
		if !fr.HasParent {
			break
		}
		cur = fr.Parent
	}
	if vmShape != nil && vmShape.Fields != nil {
		names := make([]string, 0, len(vmShape.Fields))
		for name := range vmShape.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if !seen[name] {
				seen[name] = true
				items = append(items, CompletionItem{Name: name, Kind: "view-model"})
			}
		}
	}
	return items
}

// CodeAction is a suggested fix for one diagnostic.
type CodeAction struct {
	Title string
	Edits []TextEdit
}

// TextEdit replaces the text in Span with NewText.
type TextEdit struct {
	Span    span.Span
	NewText string
}

// GetCodeActions returns the fixes this engine knows how to offer for one
// diagnostic code. Currently only AU1203 (an expression that failed to
// parse) gets a suggestion, since every other diagnostic code describes a
// structural or semantic decision the engine cannot safely automate.
func (f *Facade) GetCodeActions(uri string, d diag.Diagnostic) []CodeAction {
	if d.Code != "AU1203" {
		return nil
	}
	sp := d.Location.Span
	text := ""
	if doc, ok := f.doc(uri); ok && sp.Start >= 0 && sp.Start <= sp.End && sp.End <= len(doc.Source) {
		text = doc.Source[sp.Start:sp.End]
	}
	return []CodeAction{{
		Title: "Wrap expression in a string literal",
		Edits: []TextEdit{{Span: sp, NewText: fmt.Sprintf("%q", text)}},
	}}
}

// GetRenameEdits renames the identifier at offset — which resolves to some
// member path via internal/provenance's segment index — to newName,
// returning one edit per occurrence of that identifier in scope. Unlike a
// whole-expression match, this correctly renames "item" inside
// "item.name": the segment covering "item" carries its own span, distinct
// from the ".name" trailing field it's never confused with.
func (f *Facade) GetRenameEdits(uri string, offset int, newName string) []TextEdit {
	d, ok := f.doc(uri)
	if !ok {
		return nil
	}
	seg, ok := d.Provenance.LookupSourceSegment(offset)
	if !ok {
		return nil
	}
	var edits []TextEdit
	for _, s := range d.Provenance.SegmentsNamed(segmentName(seg.MemberPath)) {
		if s.MemberPath == seg.MemberPath {
			edits = append(edits, TextEdit{Span: s.TemplateSpan, NewText: newName})
		}
	}
	return edits
}

func exprAt(mod *ir.Module, offset int) (ir.ExprTableEntry, bool) {
	var best ir.ExprTableEntry
	found := false
	for _, e := range mod.ExprTable {
		if !e.Span.Covers(offset) {
			continue
		}
		if !found || e.Span.Length() < best.Span.Length() {
			best = e
			found = true
		}
	}
	return best, found
}
