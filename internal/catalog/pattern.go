package catalog

import "strings"

// MatchedAttribute is the result of applying the attribute-pattern matcher
// to one authored attribute key.
type MatchedAttribute struct {
	Target  string
	Command string
	Mode    BindingMode
	HasMode bool
	Pattern AttributePattern
	Matched bool
}

// MatchAttributePattern applies the longest-symbol-first matcher to an
// authored attribute key: the matching pattern with the most literal
// symbols wins (so "@PART:PART" outranks "@PART" and "PART.PART"), and
// registration order only breaks ties between equally specific patterns.
func MatchAttributePattern(patterns []AttributePattern, key string) MatchedAttribute {
	var best MatchedAttribute
	bestSymbols := -1

	for _, p := range patterns {
		if m, ok := tryMatch(p, key); ok {
			symbols := countSymbols(p.Pattern)
			if symbols > bestSymbols {
				bestSymbols = symbols
				best = m
			}
		}
	}
	return best
}

// countSymbols counts the non-PART literal characters in a pattern, used to
// prefer the most specific (longest-symbol) match among several candidates.
func countSymbols(pattern string) int {
	n := 0
	for i := 0; i < len(pattern); {
		if strings.HasPrefix(pattern[i:], "PART") {
			i += 4
			continue
		}
		n++
		i++
	}
	return n
}

// tryMatch attempts to match a single pattern against an attribute key,
// splitting "PART" placeholders on the pattern's literal symbols.
func tryMatch(p AttributePattern, key string) (MatchedAttribute, bool) {
	parts := splitPattern(p.Pattern)
	values, ok := matchParts(parts, key)
	if !ok {
		return MatchedAttribute{}, false
	}

	m := MatchedAttribute{Pattern: p, Matched: true}
	switch p.Interpretation {
	case InterpretTargetCommand:
		if len(values) < 2 {
			return MatchedAttribute{}, false
		}
		m.Target, m.Command = values[0], values[len(values)-1]
	case InterpretFixed:
		if len(values) < 1 {
			return MatchedAttribute{}, false
		}
		m.Target = values[0]
		m.Command = p.FixedCommand
	case InterpretFixedCommand:
		if len(values) < 1 {
			return MatchedAttribute{}, false
		}
		m.Target = values[0]
		m.Command = p.FixedCommand
		m.Mode = p.FixedMode
		m.HasMode = true
	case InterpretMappedFixedCommand:
		if len(values) < 1 {
			return MatchedAttribute{}, false
		}
		target := values[0]
		if mapped, ok := p.TargetMap[target]; ok {
			target = mapped
		}
		m.Target = target
		m.Command = p.FixedCommand
	case InterpretEventModifier:
		if len(values) < 2 {
			return MatchedAttribute{}, false
		}
		m.Target = values[0] + ":" + values[1] // event name + modifier, kept joined for downstream splitting
		m.Command = p.InjectCommand
	}
	return m, true
}

// splitPattern splits a pattern string like "PART.PART" or ":PART" into a
// sequence of tokens, alternating literal and "PART" placeholder markers.
func splitPattern(pattern string) []string {
	var toks []string
	i := 0
	for i < len(pattern) {
		if strings.HasPrefix(pattern[i:], "PART") {
			toks = append(toks, "PART")
			i += 4
			continue
		}
		// accumulate a literal run
		j := i
		for j < len(pattern) && !strings.HasPrefix(pattern[j:], "PART") {
			j++
		}
		toks = append(toks, pattern[i:j])
		i = j
	}
	return toks
}

// matchParts matches tokens (literal runs and "PART" placeholders) against
// key, returning the captured PART values in order.
func matchParts(toks []string, key string) ([]string, bool) {
	var values []string
	pos := 0
	for ti, tok := range toks {
		if tok == "PART" {
			// find where the next literal (if any) starts, to bound this PART's capture.
			end := len(key)
			if ti+1 < len(toks) {
				next := toks[ti+1]
				idx := strings.Index(key[pos:], next)
				if idx < 0 {
					return nil, false
				}
				end = pos + idx
			}
			if end <= pos {
				return nil, false
			}
			values = append(values, key[pos:end])
			pos = end
			continue
		}
		if !strings.HasPrefix(key[pos:], tok) {
			return nil, false
		}
		pos += len(tok)
	}
	if pos != len(key) {
		return nil, false
	}
	return values, true
}
