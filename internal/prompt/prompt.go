// Package prompt composes the initial prompt sent to the model: a fixed
// persona preamble, execution guidance tuned to the current run, the
// serialized tool catalog, the assembled context bundle rendered as
// headed sections, the mission statement, and the closed list of
// response rules. It also derives a compact, machine-consumable context
// summary for the caller's UI.
package prompt

import (
	"fmt"
	"strings"

	assembler "wattwise/internal/context"
	"wattwise/internal/domain"
	"wattwise/internal/tools"
)

// DefaultMissionStatement is used whenever the caller supplies none.
const DefaultMissionStatement = "Assess this system's battery health, energy sufficiency, and solar performance, and recommend any action the operator should take."

// personaPreamble is the fixed "battery guru" persona and its three goals.
const personaPreamble = `You are a battery-systems guru: a seasoned analyst who reads BMS telemetry the way a physician reads vitals. You have three standing goals, in priority order:
1. Battery health — protect the pack from damage and flag degradation early.
2. Energy sufficiency — confirm the system can meet its load from available generation and storage.
3. Proactive action — surface what the operator should do next, not just what happened.`

// descriptionTruncateLen bounds how much of a tool's description is
// serialized into the prompt; the full description lives in the schema
// for any caller that wants it.
const descriptionTruncateLen = 140

// Input is everything the builder needs to produce one initial prompt.
type Input struct {
	SystemID   string
	Snapshot   domain.Snapshot
	Bundle     *assembler.Bundle
	Tools      []tools.Schema
	Mode       string // assembler.ModeSync | assembler.ModeBackground
	UserPrompt string
}

// Built is the builder's output: the prompt text the runner sends as the
// initial message, plus the UI-facing summary.
type Built struct {
	SystemPrompt   string
	ContextSummary ContextSummary
}

// Build composes the initial prompt and its context summary.
func Build(in Input) *Built {
	var b strings.Builder

	b.WriteString(personaPreamble)
	b.WriteString("\n\n")
	b.WriteString(renderExecutionGuidance(in))
	b.WriteString("\n\n")
	b.WriteString(renderToolCatalog(in.Tools))
	b.WriteString("\n\n")
	b.WriteString(renderContextSections(in.Bundle, in.Snapshot))
	b.WriteString("\n\n")
	b.WriteString(renderMission(in.UserPrompt))
	b.WriteString("\n\n")
	b.WriteString(renderRules())

	return &Built{
		SystemPrompt:   b.String(),
		ContextSummary: BuildContextSummary(in.Snapshot, in.Bundle),
	}
}

// renderExecutionGuidance tailors instructions to the mode, how much of
// the context was preloaded, pack maturity, and solar predictability —
// the model is told when it can trust the preload versus when it must
// reach for a tool.
func renderExecutionGuidance(in Input) string {
	var lines []string
	lines = append(lines, "EXECUTION GUIDANCE:")

	if in.Mode == assembler.ModeBackground {
		lines = append(lines, "- Full analytics were preloaded for you below; prefer reading them over calling tools unless you need a narrower window or a scenario not shown.")
	} else {
		lines = append(lines, "- Only a lean context was preloaded (system profile, a 7-day summary, recent snapshots, night discharge, current weather). Call tools for anything else you need — full-window analytics, predictions, usage patterns, or energy budgets.")
	}

	if in.Bundle != nil {
		if in.Bundle.Meta.Truncated {
			lines = append(lines, "- Context assembly was cut short by its time budget; some sections below may be missing. Use tools to fill gaps rather than assuming absence means zero.")
		}
		if in.Bundle.BatteryFacts.BrandNewLikely {
			lines = append(lines, "- This pack's cycle count suggests it is new or near-new; treat any health score as provisional and avoid alarm over normal break-in variance.")
		}
		if in.Bundle.SolarVariance != nil && !in.Bundle.SolarVariance.WithinTolerance {
			lines = append(lines, "- Observed solar charging is outside the expected tolerance band; weigh this before attributing any shortfall to load alone.")
		}
	}

	return strings.Join(lines, "\n")
}

// renderToolCatalog serializes each tool's name, a truncated description,
// and its parameter names — enough for the model to choose and call a
// tool without the full schema bloating the prompt.
func renderToolCatalog(schemas []tools.Schema) string {
	var b strings.Builder
	b.WriteString("AVAILABLE TOOLS:")
	for _, s := range schemas {
		names := make([]string, 0, len(s.Parameters))
		for _, p := range s.Parameters {
			if p.Required {
				names = append(names, p.Name)
			} else {
				names = append(names, p.Name+"?")
			}
		}
		desc := s.Description
		if len(desc) > descriptionTruncateLen {
			desc = desc[:descriptionTruncateLen] + "…"
		}
		fmt.Fprintf(&b, "\n- %s(%s): %s", s.Name, strings.Join(names, ", "), desc)
	}
	return b.String()
}

func renderMission(userPrompt string) string {
	mission := userPrompt
	if strings.TrimSpace(mission) == "" {
		mission = DefaultMissionStatement
	}
	return "MISSION:\n" + mission
}

// responseRules is the closed list the model must obey; the runner and
// the output formatter rely on this vocabulary being restated here
// verbatim so the model's own language stays consistent with theirs.
var responseRules = []string{
	`Respond with exactly one JSON value per turn: either {"tool_call": "<name>", "parameters": {...}} or {"final_answer": "<markdown string>"}. No other text, no markdown fencing around the JSON itself.`,
	`"Battery autonomy" and "battery runtime" mean time until discharge at the current load. "Service life" and "lifetime" mean time until the pack should be replaced due to degradation. Never conflate these two.`,
	"When coverage of the relevant window is below 60%, do not report a specific energy deficit figure; state that data is too sparse for that claim instead.",
	"Energy deficits are only worth flagging outside a ±10% tolerance; solar variance is only worth flagging outside a ±15% tolerance band.",
	"Your final_answer markdown must include a `## KEY FINDINGS` section and a `## RECOMMENDATIONS` section, using 🔴/🟡/🟢 urgency markers on recommendations and citing the source analysis parenthetically in each bullet.",
	"Do not call a tool you already have an answer for in the preloaded context below; only call a tool for data that is genuinely missing or out of its window.",
}

func renderRules() string {
	var b strings.Builder
	b.WriteString("RESPONSE RULES:")
	for i, r := range responseRules {
		fmt.Fprintf(&b, "\n%d. %s", i+1, r)
	}
	return b.String()
}
