package ai

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are a home maintenance expert. You are shown a photo of a part of a home.
Identify maintenance tasks that are visible or likely needed based on what you see.

Respond with ONLY a JSON array, no prose, no markdown. Each element must have:
  "title": short imperative task name (required)
  "description": one or two sentences of detail
  "priority": one of "LOW", "MEDIUM", "HIGH"
  "category": one of "cleaning", "repair", "inspection", "replacement", "seasonal"
  "due_in_days": integer, suggested days until the task should be done

Return an empty array if no maintenance tasks are apparent. Do not invent
tasks for things that are not visible in the photo.`

var promptLanguages = map[string]string{
	"en":    "English",
	"en-GB": "English",
	"es":    "Spanish",
	"de":    "German",
	"fr":    "French",
	"pt":    "Portuguese",
}

// BuildPrompt assembles the system and user prompts for one analysis. The
// locale only affects the language of titles and descriptions; the JSON
// contract (keys, enums) stays English so parsing is locale independent.
func BuildPrompt(opts PromptOptions) (string, string) {
	var b strings.Builder
	b.WriteString("Analyze this photo for home maintenance tasks.")

	if opts.LocationName != "" {
		fmt.Fprintf(&b, " The photo was taken in: %s.", opts.LocationName)
	}
	if opts.Notes != "" {
		fmt.Fprintf(&b, " The homeowner adds: %s.", opts.Notes)
	}

	if lang, ok := promptLanguages[opts.Locale]; ok && lang != "English" {
		fmt.Fprintf(&b, " Write the title and description values in %s. Keep the JSON keys and the priority and category values in English.", lang)
	}

	return systemPrompt, b.String()
}
