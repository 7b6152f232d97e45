package ai

// ScoreConfidence estimates how trustworthy an analysis is. There is no
// ground truth to verify against, so this is a heuristic: a base score for a
// non-empty result, a bonus for returning a reasonable number of tasks, and
// the average completeness of the suggested fields. Clipped to [0, 1].
func ScoreConfidence(suggestions []Suggestion) float64 {
	if len(suggestions) == 0 {
		return 0
	}

	score := 0.3

	count := len(suggestions)
	if count > 3 {
		count = 3
	}
	score += 0.1 * float64(count)

	var completeness float64
	for _, s := range suggestions {
		var fields float64
		if s.Description != "" {
			fields += 0.25
		}
		if s.Priority != "" {
			fields += 0.25
		}
		if s.Category != "" {
			fields += 0.25
		}
		if s.DueInDays > 0 {
			fields += 0.25
		}
		completeness += fields
	}
	score += 0.4 * (completeness / float64(len(suggestions)))

	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	return score
}
