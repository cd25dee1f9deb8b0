// Package insights formats the Conversation Runner's raw final answer into
// the caller-facing payload: a confidence score derived from heuristics
// over the text and the tool trace, a markdown-wrapped brief, and the
// health/performance buckets and context summary the caller's UI renders
// alongside it.
package insights

import (
	assembler "wattwise/internal/context"
	"wattwise/internal/prompt"
)

// Payload is the formatted result returned alongside the raw model text.
type Payload struct {
	RawText        string                 `json:"rawText"`
	FormattedText  string                 `json:"formattedText"`
	HealthStatus   string                 `json:"healthStatus"`
	Performance    string                 `json:"performance"`
	ContextSummary prompt.ContextSummary  `json:"contextSummary"`
	Confidence     int                    `json:"confidence"`
}

// unknownBucket is used whenever the underlying analytic could not be
// computed (insufficient data) or never ran.
const unknownBucket = "unknown"

// Format builds the Payload from the runner's raw final text, the names of
// tools invoked during the run, and the context bundle assembled for it.
func Format(rawText string, toolNames []string, bundle *assembler.Bundle, summary prompt.ContextSummary, generatedAtRFC3339 string) *Payload {
	confidence := computeConfidence(rawText, toolNames)
	return &Payload{
		RawText:        rawText,
		FormattedText:  wrap(rawText, confidence, len(toolNames), generatedAtRFC3339),
		HealthStatus:   healthStatus(bundle),
		Performance:    performanceBucket(bundle),
		ContextSummary: summary,
		Confidence:     confidence,
	}
}

// healthStatus buckets the Battery Health composite score (§4.B.4) into a
// three-tier status; unknown when the underlying analytic didn't run.
func healthStatus(bundle *assembler.Bundle) string {
	if bundle == nil {
		return unknownBucket
	}
	health := bundle.Analytics.BatteryHealth.Value
	if health == nil {
		return unknownBucket
	}
	switch {
	case health.Score >= healthStatusHealthyFloor:
		return "healthy"
	case health.Score >= healthStatusDegradedFloor:
		return "degraded"
	default:
		return "critical"
	}
}

const (
	healthStatusHealthyFloor  = 85
	healthStatusDegradedFloor = 60
)

// performanceBucket surfaces the Solar Performance analytic's own bucket
// (§4.B.3) verbatim; unknown when solar performance could not be computed.
func performanceBucket(bundle *assembler.Bundle) string {
	if bundle == nil {
		return unknownBucket
	}
	perf := bundle.Analytics.SolarPerformance.Value
	if perf == nil || perf.PerformanceBucket == "" {
		return unknownBucket
	}
	return perf.PerformanceBucket
}
