package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

var validPriorities = map[string]struct{}{
	"LOW": {}, "MEDIUM": {}, "HIGH": {},
}

// ParseSuggestions extracts task suggestions from raw model output. Models
// frequently wrap JSON in markdown fences or add prose around it, so this
// takes the outermost JSON array it can find rather than requiring a clean
// body.
func ParseSuggestions(raw string) ([]Suggestion, error) {
	text := strings.TrimSpace(raw)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON array found in model response")
	}

	var parsed []Suggestion
	if err := json.Unmarshal([]byte(text[start:end+1]), &parsed); err != nil {
		return nil, fmt.Errorf("error parsing model response: %w", err)
	}

	suggestions := make([]Suggestion, 0, len(parsed))
	for _, s := range parsed {
		s.Title = strings.TrimSpace(s.Title)
		if s.Title == "" {
			continue
		}

		s.Priority = strings.ToUpper(strings.TrimSpace(s.Priority))
		if _, ok := validPriorities[s.Priority]; !ok {
			s.Priority = "MEDIUM"
		}

		s.Category = strings.ToLower(strings.TrimSpace(s.Category))

		if s.DueInDays < 0 {
			s.DueInDays = 0
		}

		suggestions = append(suggestions, s)
	}

	return suggestions, nil
}
