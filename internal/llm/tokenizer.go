package llm

// EstimateTokens provides the heuristic chars-per-token fallback the
// conversation runner uses for its own pruning budget (tokensPerChar in
// the runner config), distinct from whatever token accounting a given
// provider SDK does internally for billing.
func EstimateTokens(s string, tokensPerChar float64) int {
	if s == "" {
		return 0
	}
	return int(float64(len(s))*tokensPerChar) + 1
}

// EstimateTokensForMessages sums EstimateTokens over message content.
func EstimateTokensForMessages(msgs []Message, tokensPerChar float64) int {
	total := 0
	for _, m := range msgs {
		total += EstimateTokens(m.Content, tokensPerChar)
	}
	return total
}
