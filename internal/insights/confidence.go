package insights

import "strings"

// Confidence score bounds and adjustments, per §4.G.
const (
	baseConfidence     = 100
	noToolsPenalty     = 15
	uncertaintyPenalty = 20
	qualityBonus       = 5
	domainToolBonus    = 10
	confidenceFloor    = 0
	confidenceCeiling  = 100
)

// uncertaintyPhrases flag a final answer that is hedging about missing or
// ambiguous data.
var uncertaintyPhrases = []string{
	"insufficient data",
	"cannot determine",
	"unable to determine",
	"not enough data",
	"too sparse",
}

// qualityPhrases flag a final answer that is citing its own analytical
// rigor.
var qualityPhrases = []string{
	"high confidence",
	"strong correlation",
	"well-supported",
	"clear trend",
}

// domainToolSubstrings mark tool calls the spec treats as evidence of
// deeper analysis (forecasting, pattern mining, budget scenarios).
var domainToolSubstrings = []string{"predict", "pattern", "budget"}

func computeConfidence(text string, toolNames []string) int {
	score := baseConfidence

	if len(toolNames) == 0 {
		score -= noToolsPenalty
	}

	lower := strings.ToLower(text)
	if containsAny(lower, uncertaintyPhrases) {
		score -= uncertaintyPenalty
	}
	if containsAny(lower, qualityPhrases) {
		score += qualityBonus
	}

	for _, name := range toolNames {
		ln := strings.ToLower(name)
		if containsAny(ln, domainToolSubstrings) {
			score += domainToolBonus
			break
		}
	}

	return clamp(score, confidenceFloor, confidenceCeiling)
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
