package runner

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"wattwise/internal/engineerr"
	"wattwise/internal/llm"
	"wattwise/internal/tools"
)

// scriptedProvider returns one reply per call, in order; it sleeps before
// the call when a matching delay is set, letting tests exercise the
// per-iteration and total deadlines.
type scriptedProvider struct {
	replies []string
	delays  []time.Duration
	calls   int32
}

func (p *scriptedProvider) Chat(ctx context.Context, msgs []llm.Message, model string) (string, error) {
	i := int(atomic.AddInt32(&p.calls, 1)) - 1
	var delay time.Duration
	if i < len(p.delays) {
		delay = p.delays[i]
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if i >= len(p.replies) {
		return "", errors.New("scriptedProvider: out of scripted replies")
	}
	return p.replies[i], nil
}

type stubRegistry struct {
	schemas []tools.Schema
	dispatchResult json.RawMessage
	dispatchErr    error
	calls          []string
}

func (s *stubRegistry) Schemas() []tools.Schema { return s.schemas }
func (s *stubRegistry) Register(t tools.Tool)   {}
func (s *stubRegistry) Dispatch(ctx context.Context, name string, raw json.RawMessage) (json.RawMessage, error) {
	s.calls = append(s.calls, name)
	return s.dispatchResult, s.dispatchErr
}

func TestRun_FinalAnswerOnFirstTurn(t *testing.T) {
	provider := &scriptedProvider{replies: []string{`{"final_answer": "## KEY FINDINGS\nAll nominal."}`}}
	r := &Runner{LLM: provider, Tools: &stubRegistry{}}

	result, err := r.Run(context.Background(), "initial prompt", Options{}, Hooks{})
	require.NoError(t, err)
	require.Equal(t, "## KEY FINDINGS\nAll nominal.", result.FinalText)
	require.Equal(t, 1, result.Iterations)
	require.False(t, result.UsedFunctionCalling)
	require.Empty(t, result.Warning)
}

func TestRun_ToolCallThenFinalAnswer(t *testing.T) {
	provider := &scriptedProvider{replies: []string{
		`{"tool_call": "request_bms_data", "parameters": {"systemId": "sys1"}}`,
		`{"final_answer": "## KEY FINDINGS\nDone."}`,
	}}
	registry := &stubRegistry{dispatchResult: json.RawMessage(`{"data": [1,2,3]}`)}
	r := &Runner{LLM: provider, Tools: registry}

	var toolCallSeen, toolResultSeen bool
	hooks := Hooks{
		OnToolCall:   func(iteration int, tool string, params json.RawMessage) { toolCallSeen = true },
		OnToolResult: func(iteration int, tool string, result json.RawMessage, toolErr string) { toolResultSeen = true },
	}

	result, err := r.Run(context.Background(), "initial prompt", Options{}, hooks)
	require.NoError(t, err)
	require.Equal(t, "## KEY FINDINGS\nDone.", result.FinalText)
	require.True(t, result.UsedFunctionCalling)
	require.Len(t, result.ToolCalls, 1)
	require.Equal(t, "request_bms_data", result.ToolCalls[0].Tool)
	require.True(t, toolCallSeen)
	require.True(t, toolResultSeen)
	require.Equal(t, []string{"request_bms_data"}, registry.calls)
}

func TestRun_SubstantialUnparseableTreatedAsFinal(t *testing.T) {
	longText := strings.Repeat("The system looks healthy overall. ", 5)
	provider := &scriptedProvider{replies: []string{longText}}
	r := &Runner{LLM: provider, Tools: &stubRegistry{}}

	result, err := r.Run(context.Background(), "initial prompt", Options{}, Hooks{})
	require.NoError(t, err)
	require.Equal(t, strings.TrimSpace(longText), result.FinalText)
}

func TestRun_ShortUnparseableDemandsJSONThenSucceeds(t *testing.T) {
	provider := &scriptedProvider{replies: []string{
		"uh, sure",
		`{"final_answer": "## KEY FINDINGS\nok now."}`,
	}}
	r := &Runner{LLM: provider, Tools: &stubRegistry{}}

	result, err := r.Run(context.Background(), "initial prompt", Options{}, Hooks{})
	require.NoError(t, err)
	require.Equal(t, "## KEY FINDINGS\nok now.", result.FinalText)
	require.Equal(t, 2, result.Iterations)
}

func TestRun_DataNeedPhraseRestatesJSONShape(t *testing.T) {
	provider := &scriptedProvider{replies: []string{
		"I think I need more data before I can answer.",
		`{"final_answer": "## KEY FINDINGS\nresolved."}`,
	}}
	r := &Runner{LLM: provider, Tools: &stubRegistry{}}

	result, err := r.Run(context.Background(), "initial prompt", Options{}, Hooks{})
	require.NoError(t, err)
	require.Equal(t, "## KEY FINDINGS\nresolved.", result.FinalText)
}

func TestRun_TwoEmptyResponsesIsModelUnresponsive(t *testing.T) {
	provider := &scriptedProvider{replies: []string{"", ""}}
	r := &Runner{LLM: provider, Tools: &stubRegistry{}}

	var gotErr error
	hooks := Hooks{OnError: func(err error) { gotErr = err }}

	_, err := r.Run(context.Background(), "initial prompt", Options{}, hooks)
	require.Error(t, err)
	var unresponsive *engineerr.ModelUnresponsive
	require.ErrorAs(t, err, &unresponsive)
	require.ErrorAs(t, gotErr, &unresponsive)
}

func TestRun_ExhaustsIterationsReturnsFallbackWithWarning(t *testing.T) {
	replies := make([]string, 3)
	for i := range replies {
		replies[i] = `{"tool_call": "request_bms_data", "parameters": {}}`
	}
	provider := &scriptedProvider{replies: replies}
	registry := &stubRegistry{dispatchResult: json.RawMessage(`{"data": []}`)}
	r := &Runner{LLM: provider, Tools: registry}

	result, err := r.Run(context.Background(), "initial prompt", Options{MaxIterations: 3}, Hooks{})
	require.NoError(t, err)
	require.NotEmpty(t, result.Warning)
	require.Equal(t, 3, result.Iterations)
	require.Equal(t, fallbackText, result.FinalText)
}

func TestRun_IterationTimeoutIsDeadlineError(t *testing.T) {
	provider := &scriptedProvider{replies: []string{`{"final_answer": "late"}`}, delays: []time.Duration{50 * time.Millisecond}}
	r := &Runner{LLM: provider, Tools: &stubRegistry{}}

	_, err := r.Run(context.Background(), "initial prompt", Options{IterationTimeout: 5 * time.Millisecond, TotalTimeout: time.Second}, Hooks{})
	require.Error(t, err)
	var deadline *engineerr.Deadline
	require.ErrorAs(t, err, &deadline)
	require.Equal(t, "iteration", deadline.Scope)
}

func TestRun_TotalTimeoutIsDeadlineError(t *testing.T) {
	provider := &scriptedProvider{
		replies: []string{
			`{"tool_call": "request_bms_data", "parameters": {}}`,
			`{"final_answer": "too late"}`,
		},
		delays: []time.Duration{20 * time.Millisecond},
	}
	registry := &stubRegistry{dispatchResult: json.RawMessage(`{"data": []}`)}
	r := &Runner{LLM: provider, Tools: registry}

	_, err := r.Run(context.Background(), "initial prompt", Options{TotalTimeout: 10 * time.Millisecond, IterationTimeout: time.Second}, Hooks{})
	require.Error(t, err)
	var deadline *engineerr.Deadline
	require.ErrorAs(t, err, &deadline)
	require.Equal(t, "total", deadline.Scope)
}

func TestRun_HookPanicNeverAbortsLoop(t *testing.T) {
	provider := &scriptedProvider{replies: []string{`{"final_answer": "survived"}`}}
	r := &Runner{LLM: provider, Tools: &stubRegistry{}}
	hooks := Hooks{OnIterationStart: func(iteration int) { panic("boom") }}

	result, err := r.Run(context.Background(), "initial prompt", Options{}, hooks)
	require.NoError(t, err)
	require.Equal(t, "survived", result.FinalText)
}
