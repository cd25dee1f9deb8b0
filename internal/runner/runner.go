package runner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"wattwise/internal/engineerr"
	"wattwise/internal/llm"
	"wattwise/internal/observability"
	"wattwise/internal/tools"
)

const (
	unparseableSubstantialLen = 100
	maxEmptyResponseReminders = 2
)

// Runner drives the bounded ReAct loop against one LLM provider and one
// tool registry.
type Runner struct {
	LLM   llm.Provider
	Tools tools.Registry
	Model string
}

// Run executes the loop starting from a single initial prompt message
// until the model emits a final answer, the loop's bounds are exhausted,
// or a terminal error occurs.
func (r *Runner) Run(ctx context.Context, initialPrompt string, opts Options, hooks Hooks) (*Result, error) {
	opts = applyOptionDefaults(opts)
	log := observability.LoggerWithTrace(ctx)
	onHookPanic := func(v any) { log.Warn().Interface("panic", v).Msg("hook panicked") }

	history := []llm.Message{{Role: "user", Content: initialPrompt}}
	var toolCalls []ToolCallRecord
	emptyResponseStreak := 0
	start := time.Now()

	safeCall(onHookPanic, hooks.OnContextBuilt)

	for iteration := 1; iteration <= opts.MaxIterations; iteration++ {
		elapsed := time.Since(start)
		if elapsed > opts.TotalTimeout {
			err := &engineerr.Deadline{Scope: "total", Iteration: iteration, MaxIters: opts.MaxIterations, Elapsed: elapsed}
			safeCall(onHookPanic, func() { if hooks.OnError != nil { hooks.OnError(err) } })
			return nil, err
		}

		safeCall(onHookPanic, func() {
			if hooks.OnIterationStart != nil {
				hooks.OnIterationStart(iteration)
			}
		})

		history = pruneHistory(history, opts.ConversationTokenLimit, opts.TokensPerChar, log)

		transcript := flatten(history)
		safeCall(onHookPanic, func() {
			if hooks.OnPromptSent != nil {
				hooks.OnPromptSent(iteration, newPromptEvent(transcript))
			}
		})

		// The in-flight call is bounded by whichever deadline is tighter:
		// its own per-iteration timeout, or whatever remains of the total
		// budget. A suspension point must respect both (§5).
		remaining := opts.TotalTimeout - elapsed
		callTimeout := opts.IterationTimeout
		boundByTotal := remaining < callTimeout
		if boundByTotal {
			callTimeout = remaining
		}

		iterCtx, cancel := context.WithTimeout(ctx, callTimeout)
		response, err := r.LLM.Chat(iterCtx, history, r.Model)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				cancelErr := &engineerr.Cancelled{Scope: "llm_chat"}
				safeCall(onHookPanic, func() { if hooks.OnError != nil { hooks.OnError(cancelErr) } })
				return nil, cancelErr
			}
			scope := "iteration"
			if boundByTotal {
				scope = "total"
			}
			deadlineErr := &engineerr.Deadline{Scope: scope, Iteration: iteration, MaxIters: opts.MaxIterations, Elapsed: time.Since(start)}
			safeCall(onHookPanic, func() { if hooks.OnError != nil { hooks.OnError(deadlineErr) } })
			return nil, deadlineErr
		}

		safeCall(onHookPanic, func() {
			if hooks.OnResponseReceived != nil {
				hooks.OnResponseReceived(iteration, newPromptEvent(response))
			}
		})

		trimmed := strings.TrimSpace(response)
		if trimmed == "" {
			emptyResponseStreak++
			if emptyResponseStreak >= maxEmptyResponseReminders {
				err := &engineerr.ModelUnresponsive{Iteration: iteration}
				safeCall(onHookPanic, func() { if hooks.OnError != nil { hooks.OnError(err) } })
				return nil, err
			}
			history = append(history, llm.Message{Role: "assistant", Content: response})
			history = append(history, llm.Message{Role: "user", Content: emptyResponseReminder(iteration, opts.MaxIterations)})
			continue
		}
		emptyResponseStreak = 0

		result, ok := parseResponse(trimmed)
		if !ok {
			next, handled := r.recoverUnparseable(trimmed, iteration, opts, toolCalls, hooks, onHookPanic)
			if handled != nil {
				return handled, nil
			}
			history = append(history, llm.Message{Role: "assistant", Content: response})
			history = append(history, next)
			continue
		}

		if result.ToolCall != nil {
			history = append(history, llm.Message{Role: "assistant", Content: response})

			safeCall(onHookPanic, func() {
				if hooks.OnToolCall != nil {
					hooks.OnToolCall(iteration, result.ToolCall.Name, result.ToolCall.Parameters)
				}
			})

			raw, dispatchErr := r.Tools.Dispatch(ctx, result.ToolCall.Name, result.ToolCall.Parameters)
			if dispatchErr != nil {
				// Dispatch itself is documented to never return a Go error for
				// tool-level failures; a non-nil err here is an executor defect,
				// not a user-facing tool error, so it still becomes a user turn.
				note := fmt.Sprintf("Tool %q failed to execute: %v", result.ToolCall.Name, dispatchErr)
				toolCalls = append(toolCalls, ToolCallRecord{Iteration: iteration, Tool: result.ToolCall.Name, Parameters: result.ToolCall.Parameters, Error: note})
				safeCall(onHookPanic, func() {
					if hooks.OnToolResult != nil {
						hooks.OnToolResult(iteration, result.ToolCall.Name, nil, note)
					}
				})
				history = append(history, llm.Message{Role: "user", Content: note})
				continue
			}

			compacted := compactToolResult(raw)
			toolCalls = append(toolCalls, ToolCallRecord{Iteration: iteration, Tool: result.ToolCall.Name, Parameters: result.ToolCall.Parameters, Result: compacted})
			safeCall(onHookPanic, func() {
				if hooks.OnToolResult != nil {
					hooks.OnToolResult(iteration, result.ToolCall.Name, compacted, "")
				}
			})

			remaining := opts.MaxIterations - iteration
			reminder := fmt.Sprintf("Tool result for %q:\n%s\n\n(%d iteration(s) remaining. If you have sufficient data, emit a final_answer now.)", result.ToolCall.Name, string(compacted), remaining)
			history = append(history, llm.Message{Role: "user", Content: reminder})
			continue
		}

		safeCall(onHookPanic, func() {
			if hooks.OnPartialUpdate != nil {
				hooks.OnPartialUpdate(true, result.FinalAnswer)
			}
		})
		safeCall(onHookPanic, func() {
			if hooks.OnFinalAnswer != nil {
				hooks.OnFinalAnswer(result.FinalAnswer)
			}
		})
		return &Result{
			FinalText:           result.FinalAnswer,
			ToolCalls:           toolCalls,
			Iterations:          iteration,
			UsedFunctionCalling: len(toolCalls) > 0,
		}, nil
	}

	return &Result{
		FinalText:  fallbackText,
		ToolCalls:  toolCalls,
		Iterations: opts.MaxIterations,
		Warning:    "reached maxIterations without a final answer",
	}, nil
}

const fallbackText = "Analysis could not be completed within the allotted iterations. Please retry with a narrower question or check back once more data has accumulated."

// recoverUnparseable implements §4.F.3: a data-need phrase gets a
// restate-and-reemit turn, a substantial reply is treated as final, and
// anything else demands valid JSON. Returns a non-nil *Result only when
// the reply is adopted as the final answer.
func (r *Runner) recoverUnparseable(text string, iteration int, opts Options, toolCalls []ToolCallRecord, hooks Hooks, onHookPanic func(any)) (reply llm.Message, final *Result) {
	if looksLikeDataNeedPhrase(text) {
		return llm.Message{Role: "user", Content: "Your previous reply was not valid JSON but suggested you need more data. Re-emit your request as exactly one JSON value: {\"tool_call\": \"<name>\", \"parameters\": {...}}."}, nil
	}
	if len(text) >= unparseableSubstantialLen {
		safeCall(onHookPanic, func() {
			if hooks.OnPartialUpdate != nil {
				hooks.OnPartialUpdate(true, text)
			}
		})
		safeCall(onHookPanic, func() {
			if hooks.OnFinalAnswer != nil {
				hooks.OnFinalAnswer(text)
			}
		})
		return llm.Message{}, &Result{
			FinalText:           text,
			ToolCalls:           toolCalls,
			Iterations:          iteration,
			UsedFunctionCalling: len(toolCalls) > 0,
		}
	}
	return llm.Message{Role: "user", Content: "Your reply must be exactly one JSON value: either {\"tool_call\": \"<name>\", \"parameters\": {...}} or {\"final_answer\": \"<markdown string>\"}. Please re-emit."}, nil
}

func emptyResponseReminder(iteration, maxIterations int) string {
	return fmt.Sprintf("You returned an empty response on iteration %d of %d. You must respond with exactly one JSON value: either {\"tool_call\": \"<name>\", \"parameters\": {...}} or {\"final_answer\": \"<markdown string>\"}.", iteration, maxIterations)
}

func flatten(history []llm.Message) string {
	var b strings.Builder
	for i, m := range history {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%s] %s", m.Role, m.Content)
	}
	return b.String()
}

func applyOptionDefaults(opts Options) Options {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 10
	}
	if opts.IterationTimeout <= 0 {
		opts.IterationTimeout = 25 * time.Second
	}
	if opts.TotalTimeout <= 0 {
		opts.TotalTimeout = 58 * time.Second
	}
	if opts.ConversationTokenLimit <= 0 {
		opts.ConversationTokenLimit = 60_000
	}
	if opts.TokensPerChar <= 0 {
		opts.TokensPerChar = 0.25
	}
	return opts
}
