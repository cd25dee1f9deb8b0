// Package anthropic adapts the Anthropic Messages API to the portable
// llm.Provider contract. Streaming, extended thinking, and tool-use block
// handling are dropped: the reasoning loop here drives a plain turn-taking
// JSON-in-text protocol, one non-streaming request per iteration.
package anthropic

import (
	"context"
	"net/http"
	"strings"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"wattwise/internal/config"
	"wattwise/internal/llm"
	"wattwise/internal/observability"
)

const defaultMaxTokens int64 = 4096

type Client struct {
	sdk       anthropicsdk.Client
	model     string
	maxTokens int64
}

func New(cfg config.AnthropicConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(cfg.APIKey)),
		option.WithHTTPClient(httpClient),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimSuffix(base, "/")))
	}

	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &Client{
		sdk:       anthropicsdk.NewClient(opts...),
		maxTokens: maxTokens,
	}
}

// Chat sends the flattened transcript as a single request. The first
// system-role message, if present, becomes the Anthropic system prompt;
// everything else becomes alternating user/assistant text blocks.
func (c *Client) Chat(ctx context.Context, msgs []llm.Message, model string) (string, error) {
	var system []anthropicsdk.TextBlockParam
	var converted []anthropicsdk.MessageParam

	for _, m := range msgs {
		switch m.Role {
		case "system":
			system = append(system, anthropicsdk.TextBlockParam{Text: m.Content})
		case "user":
			converted = append(converted, anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(m.Content)))
		case "assistant":
			converted = append(converted, anthropicsdk.NewAssistantMessage(anthropicsdk.NewTextBlock(m.Content)))
		}
	}

	resolved := c.model
	if model != "" {
		resolved = model
	}

	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(resolved),
		Messages:  converted,
		System:    system,
		MaxTokens: c.maxTokens,
	}

	ctx, span := llm.StartRequestSpan(ctx, "anthropic.Chat", resolved, len(msgs))
	defer span.End()
	llm.LogRedactedPrompt(ctx, msgs)
	log := observability.LoggerWithTrace(ctx)

	start := time.Now()
	resp, err := c.sdk.Messages.New(ctx, params)
	dur := time.Since(start)
	if err != nil {
		span.RecordError(err)
		log.Error().Err(err).Str("model", resolved).Dur("duration", dur).Msg("anthropic_chat_error")
		return "", err
	}

	text := extractText(resp)
	llm.LogRedactedResponse(ctx, text)
	llm.RecordTokenAttributes(span, int(resp.Usage.InputTokens), int(resp.Usage.OutputTokens))

	log.Debug().
		Str("model", resolved).
		Dur("duration", dur).
		Int64("prompt_tokens", resp.Usage.InputTokens).
		Int64("completion_tokens", resp.Usage.OutputTokens).
		Msg("anthropic_chat_ok")

	return text, nil
}

func extractText(resp *anthropicsdk.Message) string {
	if resp == nil {
		return ""
	}
	var sb strings.Builder
	for _, block := range resp.Content {
		if tb, ok := block.AsAny().(anthropicsdk.TextBlock); ok {
			sb.WriteString(tb.Text)
		}
	}
	return sb.String()
}
