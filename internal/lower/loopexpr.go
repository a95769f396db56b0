package lower

import (
	"fmt"
	"strings"
)

// LoopHeader is the parsed form of a "repeat.for" value, e.g.
// "item of items" or "[k, v] of pairs".
type LoopHeader struct {
	// Locals are the identifiers introduced by the declaration, in source
	// order. A plain "item of items" yields a single local; a
	// destructuring declaration "[k, v] of pairs" yields two.
	Locals []string
	Of     string // the collection expression source
}

// ParseLoopHeader parses the left-hand declaration of a repeat.for value.
// It supports a single identifier, and simple array/object destructuring
// (no defaults or rest elements — those are rare in template iteration
// headers and are rejected with AU1201 by the caller, matching the
// "invalid repeat header" diagnostic).
func ParseLoopHeader(s string) (LoopHeader, error) {
	idx := findTopLevelOf(s)
	if idx < 0 {
		return LoopHeader{}, fmt.Errorf("missing 'of' in repeat.for header")
	}
	left := strings.TrimSpace(s[:idx])
	right := strings.TrimSpace(s[idx+2:])
	if right == "" {
		return LoopHeader{}, fmt.Errorf("missing iterable expression in repeat.for header")
	}

	locals, err := parseLoopLocals(left)
	if err != nil {
		return LoopHeader{}, err
	}
	return LoopHeader{Locals: locals, Of: right}, nil
}

func findTopLevelOf(s string) int {
	depth := 0
	for i := 0; i+4 <= len(s); i++ {
		switch s[i] {
		case '[', '{', '(':
			depth++
		case ']', '}', ')':
			depth--
		}
		if depth == 0 && s[i] == 'o' && s[i+1] == 'f' {
			if (i == 0 || isSep(s[i-1])) && (i+2 == len(s) || isSep(s[i+2])) {
				return i
			}
		}
	}
	return -1
}

func isSep(b byte) bool {
	return b == ' ' || b == '\t'
}

func parseLoopLocals(left string) ([]string, error) {
	left = strings.TrimSpace(left)
	if left == "" {
		return nil, fmt.Errorf("missing loop variable")
	}
	if strings.HasPrefix(left, "[") || strings.HasPrefix(left, "{") {
		inner := strings.TrimSuffix(strings.TrimPrefix(left[1:], ""), "")
		end := strings.LastIndexAny(left, "]}")
		if end < 0 {
			return nil, fmt.Errorf("unterminated destructuring pattern")
		}
		inner = left[1:end]
		var locals []string
		for _, part := range strings.Split(inner, ",") {
			name := strings.TrimSpace(part)
			if name == "" {
				continue // elision in array pattern, e.g. "[, v]"
			}
			if eq := strings.Index(name, ":"); eq >= 0 {
				name = strings.TrimSpace(name[eq+1:]) // "{a: renamed}" binds "renamed"
			}
			if !isValidIdent(name) {
				return nil, fmt.Errorf("invalid destructured identifier %q", name)
			}
			locals = append(locals, name)
		}
		if len(locals) == 0 {
			return nil, fmt.Errorf("destructuring pattern introduces no locals")
		}
		return locals, nil
	}
	names := strings.Split(left, ",")
	var locals []string
	for _, n := range names {
		n = strings.TrimSpace(n)
		if !isValidIdent(n) {
			return nil, fmt.Errorf("invalid loop variable %q", n)
		}
		locals = append(locals, n)
	}
	if len(locals) > 2 {
		return nil, fmt.Errorf("too many loop variables")
	}
	return locals, nil
}

func isValidIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if i == 0 {
			if !(r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')) {
				return false
			}
		} else if !(r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return true
}
