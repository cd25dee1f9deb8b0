package openai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"wattwise/internal/config"
	"wattwise/internal/llm"
)

func TestChat_ServerReturnsChoice(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hello"}}],"usage":{"prompt_tokens":10,"completion_tokens":2}}`))
	})
	srv := httptest.NewServer(h)
	defer srv.Close()

	cli := New(config.OpenAIConfig{APIKey: "test", BaseURL: srv.URL}, srv.Client())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	text, err := cli.Chat(ctx, []llm.Message{{Role: "user", Content: "hi"}}, "gpt-4o")
	require.NoError(t, err)
	require.Equal(t, "hello", text)
}

func TestAdaptMessages_RolesMapped(t *testing.T) {
	out := adaptMessages([]llm.Message{
		{Role: "system", Content: "sys"},
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "yo"},
	})
	require.Len(t, out, 3)
}
