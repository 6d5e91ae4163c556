package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatStub(t *testing.T, status int, body map[string]any) (*openAIProvider, *map[string]any) {
	t.Helper()
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)

	p, err := newOpenAI(OpenAIConfig{APIKey: "test-key", Model: "mini", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)
	return p, &got
}

func chatCompletion(content, finish string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]any{"role": "assistant", "content": content},
			"finish_reason": finish,
		}},
		"usage": map[string]any{"prompt_tokens": 40, "completion_tokens": 25, "total_tokens": 65},
	}
}

func TestOpenAI_StructuredEstimate(t *testing.T) {
	out := `{"skill":"Programacion","probability":0.6}`
	p, sent := chatStub(t, http.StatusOK, chatCompletion(out, "stop"))

	req := NewRequest("initial-mastery", "You estimate starting mastery.", "Learner: usuario_3")
	req.Schema = estimateSchema
	resp, err := p.Generate(context.Background(), req)
	require.NoError(t, err)

	assert.JSONEq(t, out, string(resp.Content))
	assert.Equal(t, Usage{InputTokens: 40, OutputTokens: 25}, resp.Usage)
	assert.Equal(t, StopEnd, resp.Stop)
	assert.Equal(t, "gpt-4o-mini", p.ModelID())

	msgs, ok := (*sent)["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "Learner: usuario_3", msgs[1].(map[string]any)["content"])

	format, ok := (*sent)["response_format"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "json_schema", format["type"])
	assert.Equal(t, "estimate", format["json_schema"].(map[string]any)["name"])
}

func TestOpenAI_LengthFinishTruncates(t *testing.T) {
	p, _ := chatStub(t, http.StatusOK, chatCompletion(`{"skill":`, "length"))

	req := NewRequest("initial-mastery", "", "estimate")
	req.Schema = estimateSchema
	_, err := p.Generate(context.Background(), req)
	var trunc *ErrMaxTokensExceeded
	assert.ErrorAs(t, err, &trunc)
}

func TestOpenAI_FreeTextPassesThrough(t *testing.T) {
	p, sent := chatStub(t, http.StatusOK, chatCompletion("usuario_3 looks like a beginner", "stop"))

	resp, err := p.Generate(context.Background(), NewRequest("profile", "", "describe"))
	require.NoError(t, err)
	assert.Equal(t, "usuario_3 looks like a beginner", string(resp.Content))
	assert.NotContains(t, *sent, "response_format")
}

func TestOpenAI_ErrorStatuses(t *testing.T) {
	apiError := func(kind string) map[string]any {
		return map[string]any{"error": map[string]any{"type": kind, "message": kind}}
	}

	p, _ := chatStub(t, http.StatusTooManyRequests, apiError("rate_limit_exceeded"))
	_, err := p.Generate(context.Background(), NewRequest("initial-mastery", "", "estimate"))
	var rl *ErrRateLimit
	assert.ErrorAs(t, err, &rl)

	p, _ = chatStub(t, http.StatusBadGateway, apiError("server_error"))
	_, err = p.Generate(context.Background(), NewRequest("initial-mastery", "", "estimate"))
	var unavail *ErrProviderUnavailable
	assert.ErrorAs(t, err, &unavail)
}

func TestOpenAI_EmptyChoices(t *testing.T) {
	body := chatCompletion("", "stop")
	body["choices"] = []map[string]any{}
	p, _ := chatStub(t, http.StatusOK, body)

	_, err := p.Generate(context.Background(), NewRequest("initial-mastery", "", "estimate"))
	var inv *ErrInvalidResponse
	assert.ErrorAs(t, err, &inv)
}

func TestOpenRouter(t *testing.T) {
	p, err := newOpenRouter(OpenRouterConfig{APIKey: "sk-or", Model: "google/gemini-2.5-flash"})
	require.NoError(t, err)
	assert.Equal(t, "google/gemini-2.5-flash", p.ModelID())

	p, err = newOpenRouter(OpenRouterConfig{APIKey: "sk-or", Model: "mini"})
	require.NoError(t, err)
	assert.Equal(t, "mini", p.ModelID(), "openrouter names are not aliased")

	_, err = newOpenRouter(OpenRouterConfig{Model: "google/gemini-2.5-flash"})
	assert.ErrorContains(t, err, "SKILLPATH_OPENROUTER_API_KEY")

	_, err = newOpenAI(OpenAIConfig{Model: "mini"})
	assert.ErrorContains(t, err, "SKILLPATH_OPENAI_API_KEY")
}
