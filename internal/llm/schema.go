package llm

// BuildExtractionJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a
// generic map. It is embedded in the prompt as the output contract and used
// locally to validate each model response before item-level validation runs.
func BuildExtractionJSONSchema() map[string]any {
	item := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"name":        map[string]any{"type": "string", "minLength": 1},
			"part_number": map[string]any{"type": "string"},
			// Models occasionally quote quantities; the validator coerces.
			"quantity":        map[string]any{"type": []string{"integer", "string"}},
			"delivery_region": map[string]any{"type": "string"},
		},
		"required": []string{"name", "quantity"},
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"due_date": map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`},
			"items": map[string]any{
				"type":  "array",
				"items": item,
			},
		},
		"required": []string{"items"},
	}
}
