package lower

import (
	"io"
	"strings"

	"golang.org/x/net/html"
	a "golang.org/x/net/html/atom"

	"github.com/kvietkauskas/au-ttc/internal/span"
)

// rawAttr is an attribute exactly as authored, before any pattern matching
// or expression parsing.
type rawAttr struct {
	Key      string
	Value    string
	KeyLoc   span.Span
	ValueLoc span.Span
}

// rawNode is the pre-semantic DOM tree built directly off the tokenizer,
// generalized from chtml.Node (chtml/node.go) stripped of its rendering
// fields: we only need tree shape, spans, and raw attributes here. Semantic
// interpretation (binding commands, controllers, interpolation) happens in
// a later pass (lowerNode in lower.go), decoupled from tokenizing the same
// way the teacher's finalizeCElement/parseSpecialAttrs are decoupled from
// addElement's token-consuming loop.
type rawNode struct {
	ID       span.NodeID
	IsText   bool
	IsComment bool
	Tag      string
	Attrs    []rawAttr
	Text     string
	Loc      span.Span
	Children []*rawNode
}

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"param": true, "source": true, "track": true, "wbr": true,
}

// tokenizeDOM walks the input with golang.org/x/net/html's tokenizer
// (reused directly from the teacher, chtml/parse.go) and produces a
// rawNode tree. Unlike the teacher, we do not implement the full HTML5
// insertion-mode algorithm (implied end tags, scope-stack rules): the goal
// here is a deterministic, span-accurate tree for a template dialect, not
// byte-for-byte browser-compatible error recovery. Malformed nesting is
// still tolerated: an unmatched end tag is ignored, matching the
// tokenizer's own tolerant behavior.
func tokenizeDOM(file string, r io.Reader, alloc *span.Allocator) (*rawNode, error) {
	z := html.NewTokenizer(r)
	root := &rawNode{ID: alloc.NextNodeID()}
	stack := []*rawNode{root}

	offset := 0
	line, col := 1, 1
	advance := func(raw []byte) {
		for _, b := range raw {
			if b == '\n' {
				line++
				col = 1
			} else {
				col++
			}
			offset++
		}
	}

	top := func() *rawNode { return stack[len(stack)-1] }

	for {
		tt := z.Next()
		raw := z.Raw()
		startOffset, startLine, startCol := offset, line, col

		switch tt {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				return root, nil
			}
			return root, z.Err()
		case html.TextToken:
			text := string(z.Text())
			if strings.TrimSpace(text) != "" || strings.Contains(text, "${") {
				n := &rawNode{
					ID:     alloc.NextNodeID(),
					IsText: true,
					Text:   text,
					Loc:    span.Span{Start: startOffset, End: startOffset + len(raw), Line: startLine, Column: startCol},
				}
				top().Children = append(top().Children, n)
			} else if text != "" {
				// Preserve pure whitespace as a (non-diagnosable) text node so
				// rendering/formatting tools can round-trip layout, but it never
				// itself carries a diagnosable span.
				n := &rawNode{ID: alloc.NextNodeID(), IsText: true, Text: text, Loc: span.Span{Start: startOffset, End: startOffset + len(raw)}}
				top().Children = append(top().Children, n)
			}
		case html.CommentToken:
			n := &rawNode{
				ID:        alloc.NextNodeID(),
				IsComment: true,
				Text:      string(z.Text()),
				Loc:       span.Span{Start: startOffset, End: startOffset + len(raw), Line: startLine, Column: startCol},
			}
			top().Children = append(top().Children, n)
		case html.DoctypeToken:
			// Doctypes are not part of the template's binding surface; skip.
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			n := &rawNode{
				ID:  alloc.NextNodeID(),
				Tag: strings.ToLower(tok.Data),
				Loc: span.Span{Start: startOffset, Line: startLine, Column: startCol},
			}
			keys := make([]string, len(tok.Attr))
			for i, at := range tok.Attr {
				keys[i] = at.Key
			}
			spans := scanAttributeSpans(raw, keys)
			for _, at := range tok.Attr {
				ra := rawAttr{Key: at.Key, Value: at.Val}
				if sp, ok := spans[at.Key]; ok {
					ra.ValueLoc = span.Span{Start: startOffset + sp.Start, End: startOffset + sp.End}
				}
				n.Attrs = append(n.Attrs, ra)
			}
			top().Children = append(top().Children, n)

			selfClosing := tt == html.SelfClosingTagToken || voidElements[n.Tag]
			if !selfClosing {
				stack = append(stack, n)
			} else {
				n.Loc.End = startOffset + len(raw)
			}
		case html.EndTagToken:
			tok := z.Token()
			tag := strings.ToLower(tok.Data)
			for i := len(stack) - 1; i > 0; i-- {
				if stack[i].Tag == tag {
					stack[i].Loc.End = startOffset + len(raw)
					stack = stack[:i]
					break
				}
			}
		}

		advance(raw)
	}
}

// atomName returns the canonical lowercase atom name for a tag; nothing in
// this package calls it (we do not special-case parsing behavior per
// tag the way the teacher's insertion-mode table does).
func atomName(tag string) string {
	if at := a.Lookup([]byte(tag)); at != 0 {
		return at.String()
	}
	return tag
}
