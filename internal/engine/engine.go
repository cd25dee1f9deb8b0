// Package engine wires the Context Assembler, Prompt Builder, Conversation
// Runner, and Output Formatter into the single entry point the trigger
// plane (cmd/insights, or any future HTTP/queue front end) calls:
// generateInsights, per spec §6.
package engine

import (
	"context"
	"time"

	assembler "wattwise/internal/context"
	"wattwise/internal/domain"
	"wattwise/internal/insights"
	"wattwise/internal/llm"
	"wattwise/internal/observability"
	"wattwise/internal/prompt"
	"wattwise/internal/runner"
	"wattwise/internal/tools"
)

// Deps are the long-lived collaborators a process builds once at startup.
type Deps struct {
	Assembler     *assembler.Assembler
	LLM           llm.Provider
	Tools         tools.Registry
	Model         string
	RunnerOptions runner.Options
}

// Input is one generateInsights call's per-request arguments.
type Input struct {
	SystemID   string
	Snapshot   domain.Snapshot
	UserPrompt string
	Mode       string // assembler.ModeSync | assembler.ModeBackground; defaults to sync
	// AssemblerBudget overrides the mode's default context-assembly time
	// budget; zero keeps the assembler's own per-mode default.
	AssemblerBudget time.Duration
	Hooks           runner.Hooks
}

// Generate runs one full insights cycle: assemble context, build the
// initial prompt, drive the bounded conversation loop, and format the
// result.
func Generate(ctx context.Context, deps Deps, in Input) (*insights.Result, error) {
	logger := observability.LoggerWithTrace(ctx)

	mode := in.Mode
	if mode == "" {
		mode = assembler.ModeSync
	}

	bundle := deps.Assembler.Assemble(ctx, in.SystemID, in.Snapshot, logger, assembler.Options{
		Mode:  mode,
		MaxMs: in.AssemblerBudget,
	})

	built := prompt.Build(prompt.Input{
		SystemID:   in.SystemID,
		Snapshot:   in.Snapshot,
		Bundle:     bundle,
		Tools:      deps.Tools.Schemas(),
		Mode:       mode,
		UserPrompt: in.UserPrompt,
	})

	r := &runner.Runner{LLM: deps.LLM, Tools: deps.Tools, Model: deps.Model}
	result, err := r.Run(ctx, built.SystemPrompt, deps.RunnerOptions, in.Hooks)
	if err != nil {
		return nil, err
	}

	toolNames := make([]string, 0, len(result.ToolCalls))
	for _, tc := range result.ToolCalls {
		toolNames = append(toolNames, tc.Tool)
	}

	payload := insights.Format(result.FinalText, toolNames, bundle, built.ContextSummary, time.Now().UTC().Format(time.RFC3339))

	return &insights.Result{
		Insights:            payload,
		ToolCalls:           result.ToolCalls,
		Iterations:          result.Iterations,
		UsedFunctionCalling: result.UsedFunctionCalling,
		Warning:             result.Warning,
	}, nil
}
