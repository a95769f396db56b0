package lower

// scanAttributeSpans scans a raw start-tag token to find attribute value
// byte offsets within the token, returning a span keyed by attribute name
// in encounter order. Ported from the teacher's chtml/attr_scanner.go,
// which exists for exactly this reason: golang.org/x/net/html's tokenizer
// does not expose per-attribute-value offsets, only the decoded key/value
// pair, so callers who need exact spans must re-scan the raw bytes.
func scanAttributeSpans(raw []byte, attrs []string) map[string]struct{ Start, End int } {
	result := make(map[string]struct{ Start, End int }, len(attrs))

	pos := 0
	if pos < len(raw) && raw[pos] == '<' {
		pos++
	}
	for pos < len(raw) && !isAttrSpace(raw[pos]) && raw[pos] != '>' && raw[pos] != '/' {
		pos++
	}

	attrIndex := 0
	for pos < len(raw) && attrIndex < len(attrs) {
		for pos < len(raw) && isAttrSpace(raw[pos]) {
			pos++
		}
		if pos >= len(raw) || raw[pos] == '>' || raw[pos] == '/' {
			break
		}

		for pos < len(raw) && raw[pos] != '=' && !isAttrSpace(raw[pos]) && raw[pos] != '>' && raw[pos] != '/' {
			pos++
		}
		for pos < len(raw) && isAttrSpace(raw[pos]) {
			pos++
		}
		if pos >= len(raw) || raw[pos] != '=' {
			attrIndex++
			continue
		}
		pos++
		for pos < len(raw) && isAttrSpace(raw[pos]) {
			pos++
		}
		if pos >= len(raw) {
			break
		}

		valueStart := pos
		var valueEnd int
		if raw[pos] == '"' || raw[pos] == '\'' {
			quote := raw[pos]
			pos++
			valueStart = pos
			for pos < len(raw) && raw[pos] != quote {
				if raw[pos] == '\\' && pos+1 < len(raw) {
					pos += 2
				} else {
					pos++
				}
			}
			valueEnd = pos
			if pos < len(raw) {
				pos++
			}
		} else {
			for pos < len(raw) && !isAttrSpace(raw[pos]) && raw[pos] != '>' && raw[pos] != '/' {
				pos++
			}
			valueEnd = pos
		}

		if attrIndex < len(attrs) {
			result[attrs[attrIndex]] = struct{ Start, End int }{valueStart, valueEnd}
		}
		attrIndex++
	}

	return result
}

func isAttrSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f'
}
