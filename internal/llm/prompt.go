package llm

import (
	"encoding/json"
	"strconv"
	"strings"
	"unicode/utf8"
)

// maxPromptBytes caps how much document text goes into one prompt.
const maxPromptBytes = 12000

// BuildSystemPrompt composes the fixed instruction template: output schema,
// date format, and the no-commentary rule.
func BuildSystemPrompt() string {
	parts := []string{
		"You are an RFQ parser. Return ONLY JSON that matches the provided JSON Schema.",
		"Extract every requested product as an item with 'name', 'quantity', and, when visible, 'part_number' and 'delivery_region'.",
		"Use ISO-8601 dates (YYYY-MM-DD) for 'due_date'; omit it if no reply-by or due date is stated.",
		"Quantities are positive integers.",
		"Never output null. If a field is not present, omit it.",
		"Do not add commentary, markdown, or any text outside the JSON object.",
		"JSON Schema:\n" + mustJSON(BuildExtractionJSONSchema()),
	}
	return strings.Join(parts, " ")
}

// BuildUserPrompt concatenates the document body and each attachment text, in
// attachment order, into one prompt body.
func BuildUserPrompt(documentText string, attachmentTexts []string) string {
	var b strings.Builder
	b.WriteString("RFQ document:\n")
	b.WriteString(strings.TrimSpace(documentText))
	for i, att := range attachmentTexts {
		b.WriteString("\n\nAttachment ")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(":\n")
		b.WriteString(strings.TrimSpace(att))
	}
	s := b.String()
	if len(s) > maxPromptBytes {
		s = truncateAtRune(s, maxPromptBytes) + "\n…(truncated)"
	}
	return s
}

// truncateAtRune cuts s to at most n bytes, backing up so a multi-byte rune
// is never split.
func truncateAtRune(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
