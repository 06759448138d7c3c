package pipeline

import (
	"encoding/json"
	"regexp"
	"strings"
)

// jsonSpan matches from the first opening bracket to the last closing one.
var jsonSpan = regexp.MustCompile(`(?s)[\[{].*[\]}]`)

// DecodeLenient turns model output into a JSON value without ever failing.
// Non-string input is returned as-is. Text that is not JSON is searched for an
// embedded array or object; if none parses, the result is an empty object.
func DecodeLenient(v any) any {
	if v == nil {
		return emptyObject()
	}
	s, ok := v.(string)
	if !ok {
		return v
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return emptyObject()
	}

	if parsed, ok := tryParse(s); ok {
		return parsed
	}

	// Models ignore "no code fences" often enough to strip them before the
	// span search.
	s = cleanModelJSON(s)
	if parsed, ok := tryParse(s); ok {
		return parsed
	}

	if span := jsonSpan.FindString(s); span != "" {
		if parsed, ok := tryParse(span); ok {
			return parsed
		}
	}

	return emptyObject()
}

func tryParse(s string) (any, bool) {
	var parsed any
	if err := json.Unmarshal([]byte(s), &parsed); err != nil {
		return nil, false
	}
	return parsed, true
}

func emptyObject() map[string]any {
	return map[string]any{}
}

// cleanModelJSON strips Markdown code fences around a model reply.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		// Drop the first line (``` or ```json).
		idx := strings.Index(s, "\n")
		if idx == -1 {
			return s
		}
		s = strings.TrimSpace(s[idx+1:])
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	return strings.TrimSpace(s)
}
