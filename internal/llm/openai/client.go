// Package openai adapts the OpenAI chat-completions API to the portable
// llm.Provider contract. The Responses API path, image generation, and
// Gemini-compatibility raw-HTTP fallback are dropped: this engine only
// needs one non-streaming chat-completions round trip per iteration.
package openai

import (
	"context"
	"net/http"
	"strings"
	"time"

	sdk "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"wattwise/internal/config"
	"wattwise/internal/llm"
	"wattwise/internal/observability"
)

type Client struct {
	sdk   sdk.Client
	model string
}

func New(cfg config.OpenAIConfig, httpClient *http.Client) *Client {
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
	return &Client{sdk: sdk.NewClient(opts...)}
}

func (c *Client) Chat(ctx context.Context, msgs []llm.Message, model string) (string, error) {
	params := sdk.ChatCompletionNewParams{
		Model:    sdk.ChatModel(c.pickModel(model)),
		Messages: adaptMessages(msgs),
	}

	ctx, span := llm.StartRequestSpan(ctx, "openai.Chat", string(params.Model), len(msgs))
	defer span.End()
	llm.LogRedactedPrompt(ctx, msgs)
	log := observability.LoggerWithTrace(ctx)

	start := time.Now()
	resp, err := c.sdk.Chat.Completions.New(ctx, params)
	dur := time.Since(start)
	if err != nil {
		span.RecordError(err)
		log.Error().Err(err).Str("model", string(params.Model)).Dur("duration", dur).Msg("openai_chat_error")
		return "", err
	}

	var text string
	if len(resp.Choices) > 0 {
		text = resp.Choices[0].Message.Content
	}
	llm.LogRedactedResponse(ctx, text)
	llm.RecordTokenAttributes(span, int(resp.Usage.PromptTokens), int(resp.Usage.CompletionTokens))

	log.Debug().
		Str("model", string(params.Model)).
		Dur("duration", dur).
		Int64("prompt_tokens", resp.Usage.PromptTokens).
		Int64("completion_tokens", resp.Usage.CompletionTokens).
		Msg("openai_chat_ok")

	return text, nil
}

func (c *Client) pickModel(model string) string {
	if model != "" {
		return model
	}
	if c.model != "" {
		return c.model
	}
	return string(sdk.ChatModelGPT4o)
}

func adaptMessages(msgs []llm.Message) []sdk.ChatCompletionMessageParamUnion {
	out := make([]sdk.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case "system":
			out = append(out, sdk.SystemMessage(m.Content))
		case "user":
			out = append(out, sdk.UserMessage(m.Content))
		case "assistant":
			out = append(out, sdk.AssistantMessage(m.Content))
		}
	}
	return out
}
