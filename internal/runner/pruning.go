package runner

import (
	"github.com/rs/zerolog"

	"wattwise/internal/llm"
)

const recentMessagesKept = 4

// pruneHistory enforces the conversation token budget: if the estimated
// token count already fits, history is returned unchanged. Otherwise it
// keeps the first message (the initial prompt) and the last four
// messages unconditionally, then stride-samples the middle so that
// first+middle+recent stays within limit. Tool-result content referenced
// by the last four messages is never in the dropped middle, since the
// last four are always kept whole.
func pruneHistory(history []llm.Message, limit int, tokensPerChar float64, logger *zerolog.Logger) []llm.Message {
	before := llm.EstimateTokensForMessages(history, tokensPerChar)
	if before <= limit || len(history) <= 1+recentMessagesKept {
		return history
	}

	first := history[0]
	firstTokens := llm.EstimateTokens(first.Content, tokensPerChar)

	recentStart := len(history) - recentMessagesKept
	recent := history[recentStart:]
	recentTokens := llm.EstimateTokensForMessages(recent, tokensPerChar)

	middle := history[1:recentStart]
	budget := limit - firstTokens - recentTokens

	kept := strideSampleMessages(middle, budget, tokensPerChar)

	pruned := make([]llm.Message, 0, 1+len(kept)+len(recent))
	pruned = append(pruned, first)
	pruned = append(pruned, kept...)
	pruned = append(pruned, recent...)

	if logger != nil {
		after := llm.EstimateTokensForMessages(pruned, tokensPerChar)
		logger.Debug().Int("beforeTokens", before).Int("afterTokens", after).
			Int("beforeMessages", len(history)).Int("afterMessages", len(pruned)).
			Msg("history pruned")
	}

	return pruned
}

// strideSampleMessages keeps an evenly-spaced subset of middle messages
// whose total estimated tokens fits within budget, widening the stride
// until it fits (or nothing remains).
func strideSampleMessages(middle []llm.Message, budget int, tokensPerChar float64) []llm.Message {
	if budget <= 0 || len(middle) == 0 {
		return nil
	}
	for stride := 1; stride <= len(middle); stride++ {
		var sample []llm.Message
		for i := 0; i < len(middle); i += stride {
			sample = append(sample, middle[i])
		}
		if llm.EstimateTokensForMessages(sample, tokensPerChar) <= budget {
			return sample
		}
	}
	return nil
}
