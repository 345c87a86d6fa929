package llm

import "strings"

// StripFences removes markdown code fences that chat models wrap around JSON
// despite instructions, and trims surrounding whitespace.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
