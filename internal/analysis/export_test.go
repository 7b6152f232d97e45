package analysis

import "time"

// SetAnalysisTimeout overrides the analysis deadline and returns a function
// that restores the previous value.
func SetAnalysisTimeout(d time.Duration) func() {
	prev := analysisTimeout
	analysisTimeout = d
	return func() { analysisTimeout = prev }
}
