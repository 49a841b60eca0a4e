package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

// trailingComma matches a comma followed only by whitespace and a closer.
var trailingComma = regexp.MustCompile(`,(\s*[\]}])`)

// ParseOrRepair parses model output as a JSON object, applying repair when
// strict parsing fails. Returns nil when nothing salvageable remains.
//
// Repair steps, in order:
//  1. strip markdown code fences
//  2. remove trailing commas before ] / }
//  3. close missing brackets and braces by counting
//  4. trim a trailing incomplete key or value, then re-close
//  5. extract the first balanced {...} substring
func ParseOrRepair(raw string) map[string]any {
	raw = stripFences(raw)
	if obj := tryParse(raw); obj != nil {
		return obj
	}

	repaired := trailingComma.ReplaceAllString(raw, "$1")
	if obj := tryParse(repaired); obj != nil {
		return obj
	}

	if obj := tryParse(closeUnbalanced(repaired)); obj != nil {
		return obj
	}

	if obj := tryParse(closeUnbalanced(trimIncompleteTail(repaired))); obj != nil {
		return obj
	}

	if sub := firstBalancedObject(raw); sub != "" {
		if obj := tryParse(sub); obj != nil {
			return obj
		}
		if obj := tryParse(trailingComma.ReplaceAllString(sub, "$1")); obj != nil {
			return obj
		}
	}
	return nil
}

func tryParse(s string) map[string]any {
	s = strings.TrimSpace(s)
	if s == "" || s[0] != '{' {
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil
	}
	return obj
}

// stripFences removes a surrounding ```json ... ``` block if present.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// closeUnbalanced appends the closers for any brackets or braces left open,
// terminating an unclosed string first.
func closeUnbalanced(s string) string {
	var stack []byte
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{' || c == '[':
			stack = append(stack, c)
		case c == '}' || c == ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}
	var b strings.Builder
	b.WriteString(s)
	if inString {
		b.WriteByte('"')
	}
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == '{' {
			b.WriteByte('}')
		} else {
			b.WriteByte(']')
		}
	}
	return b.String()
}

// trimIncompleteTail cuts the text back to the last comma or opener at depth,
// discarding a trailing half-written key or value.
func trimIncompleteTail(s string) string {
	cut := -1
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == ',' || c == '{' || c == '[':
			cut = i
		}
	}
	if cut < 0 {
		return s
	}
	trimmed := s[:cut]
	if cut < len(s) && (s[cut] == '{' || s[cut] == '[') {
		trimmed = s[:cut+1]
	}
	return trimmed
}

// firstBalancedObject extracts the first balanced {...} substring, respecting
// strings and escapes.
func firstBalancedObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
