package runner

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseResponse_StrictJSON(t *testing.T) {
	p, ok := parseResponse(`{"tool_call": "request_bms_data", "parameters": {"systemId": "sys1"}}`)
	require.True(t, ok)
	require.NotNil(t, p.ToolCall)
	require.Equal(t, "request_bms_data", p.ToolCall.Name)
}

func TestParseResponse_FencedJSONBlock(t *testing.T) {
	text := "Sure thing, here's my call:\n```json\n{\"final_answer\": \"## KEY FINDINGS\\nAll good\"}\n```\nLet me know."
	p, ok := parseResponse(text)
	require.True(t, ok)
	require.Contains(t, p.FinalAnswer, "KEY FINDINGS")
}

func TestParseResponse_BalancedSubstringFallback(t *testing.T) {
	text := `I think the answer is {"final_answer": "done"} and that's my reasoning trailing off`
	p, ok := parseResponse(text)
	require.True(t, ok)
	require.Equal(t, "done", p.FinalAnswer)
}

func TestParseResponse_BalancedSubstringIgnoresBracesInStrings(t *testing.T) {
	text := `Here it is: {"final_answer": "the set {a, b} matters"}`
	p, ok := parseResponse(text)
	require.True(t, ok)
	require.Equal(t, "the set {a, b} matters", p.FinalAnswer)
}

func TestParseResponse_FailsOnGarbage(t *testing.T) {
	_, ok := parseResponse("not json at all, just prose")
	require.False(t, ok)
}

func TestParseResponse_EmptyText(t *testing.T) {
	_, ok := parseResponse("   ")
	require.False(t, ok)
}

func TestLooksLikeDataNeedPhrase(t *testing.T) {
	require.True(t, looksLikeDataNeedPhrase("I need more data to answer that."))
	require.True(t, looksLikeDataNeedPhrase("This is Insufficient for a conclusion."))
	require.False(t, looksLikeDataNeedPhrase("Everything looks healthy."))
}
