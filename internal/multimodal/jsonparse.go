package multimodal

import (
	"encoding/json"
	"strings"
)

// ParseJSON decodes a model answer into T. It tries the raw text first, then
// the body of a markdown code fence. When both fail it returns fallback and
// false.
func ParseJSON[T any](raw string, fallback T) (T, bool) {
	for _, candidate := range jsonCandidates(raw) {
		var v T
		if err := json.Unmarshal([]byte(candidate), &v); err == nil {
			return v, true
		}
	}
	return fallback, false
}

func jsonCandidates(raw string) []string {
	raw = strings.TrimSpace(raw)
	out := []string{raw}

	if body, ok := stripFences(raw); ok {
		out = append(out, body)
	}
	return out
}

func stripFences(s string) (string, bool) {
	open := strings.Index(s, "```")
	if open < 0 {
		return "", false
	}
	rest := s[open+3:]
	// drop the language hint on the fence line
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[nl+1:]
	}
	end := strings.LastIndex(rest, "```")
	if end < 0 {
		return strings.TrimSpace(rest), true
	}
	return strings.TrimSpace(rest[:end]), true
}
