package runner

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"wattwise/internal/llm"
)

func TestPruneHistory_NoOpWhenWithinBudget(t *testing.T) {
	history := []llm.Message{
		{Role: "user", Content: "short initial prompt"},
		{Role: "assistant", Content: "ok"},
	}
	out := pruneHistory(history, 10_000, 0.25, nil)
	require.Equal(t, history, out)
}

func TestPruneHistory_KeepsFirstAndLastFourUnderBudget(t *testing.T) {
	big := strings.Repeat("x", 2000)
	history := []llm.Message{{Role: "user", Content: "initial prompt " + big}}
	for i := 0; i < 20; i++ {
		history = append(history, llm.Message{Role: "assistant", Content: big})
		history = append(history, llm.Message{Role: "user", Content: big})
	}

	out := pruneHistory(history, 2000, 0.25, nil)

	require.Equal(t, history[0], out[0])
	last4 := history[len(history)-4:]
	require.Equal(t, last4, out[len(out)-4:])
	require.Less(t, len(out), len(history))
}

func TestPruneHistory_NeverSplitsTooShortHistory(t *testing.T) {
	history := []llm.Message{
		{Role: "user", Content: strings.Repeat("y", 10000)},
		{Role: "assistant", Content: "a"},
		{Role: "user", Content: "b"},
	}
	out := pruneHistory(history, 1, 0.25, nil)
	require.Equal(t, history, out)
}
