package llm

import (
	"context"
	"encoding/json"
	"sync"

	"wattwise/internal/observability"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	mu                   sync.RWMutex
	enablePayloadLogging = false
	truncateBytes        = 0 // 0 means no truncation
)

// ConfigureLogging sets global behavior for prompt/response payload
// logging. Call once at startup with values from the main config.
func ConfigureLogging(enable bool, truncate int) {
	mu.Lock()
	defer mu.Unlock()
	enablePayloadLogging = enable
	truncateBytes = truncate
}

func shouldLog() (bool, int) {
	mu.RLock()
	defer mu.RUnlock()
	return enablePayloadLogging, truncateBytes
}

// StartRequestSpan starts a tracer span for an LLM request and sets common
// attributes.
func StartRequestSpan(ctx context.Context, operation, model string, messages int) (context.Context, trace.Span) {
	ctx, span := otel.Tracer("internal/llm").Start(ctx, operation)
	span.SetAttributes(attribute.String("llm.model", model), attribute.Int("llm.messages", messages))
	return ctx, span
}

// LogRedactedPrompt logs a redacted copy of the outgoing transcript at
// debug level. No-op unless payload logging is enabled.
func LogRedactedPrompt(ctx context.Context, msgs []Message) {
	ok, t := shouldLog()
	if !ok {
		return
	}
	log := observability.LoggerWithTrace(ctx)
	b, err := json.Marshal(msgs)
	if err != nil {
		return
	}
	red := observability.RedactJSON(b)
	logRedacted(log, "prompt", "llm_request", red, t)
}

// LogRedactedResponse logs a redacted copy of the response text at debug
// level. No-op unless payload logging is enabled.
func LogRedactedResponse(ctx context.Context, text string) {
	ok, t := shouldLog()
	if !ok {
		return
	}
	log := observability.LoggerWithTrace(ctx)
	b, err := json.Marshal(text)
	if err != nil {
		return
	}
	red := observability.RedactJSON(b)
	logRedacted(log, "response", "llm_response", red, t)
}

func logRedacted(log *zerolog.Logger, field, msg string, red json.RawMessage, truncate int) {
	if truncate > 0 && len(red) > truncate {
		preview, err := json.Marshal(map[string]any{"truncated": true, "preview": string(red[:truncate])})
		if err == nil {
			tmp := log.With().RawJSON(field, preview).Logger()
			tmp.Debug().Msg(msg)
			return
		}
	}
	tmp := log.With().RawJSON(field, red).Logger()
	tmp.Debug().Msg(msg)
}

// RecordTokenAttributes sets token count attributes on the provided span.
func RecordTokenAttributes(span trace.Span, promptTokens, completionTokens int) {
	if span == nil {
		return
	}
	span.SetAttributes(
		attribute.Int("llm.prompt_tokens", promptTokens),
		attribute.Int("llm.completion_tokens", completionTokens),
		attribute.Int("llm.total_tokens", promptTokens+completionTokens),
	)
}
