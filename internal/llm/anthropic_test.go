package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// anthropicStub serves one canned Messages API reply and captures the
// decoded request body.
func anthropicStub(t *testing.T, status int, header http.Header, body map[string]any) (*anthropicProvider, *map[string]any) {
	t.Helper()
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		for k, v := range header {
			w.Header()[k] = v
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)

	p, err := newAnthropic(AnthropicConfig{APIKey: "test-key", Model: "haiku"}, option.WithBaseURL(srv.URL))
	require.NoError(t, err)
	return p, &got
}

func anthropicMessage(text, stop string) map[string]any {
	return map[string]any{
		"id":          "msg_01",
		"type":        "message",
		"role":        "assistant",
		"model":       "claude-haiku-4-5",
		"content":     []map[string]any{{"type": "text", "text": text}},
		"stop_reason": stop,
		"usage":       map[string]any{"input_tokens": 50, "output_tokens": 30},
	}
}

func anthropicError(kind string) map[string]any {
	return map[string]any{"type": "error", "error": map[string]any{"type": kind, "message": kind}}
}

func TestAnthropic_StructuredEstimate(t *testing.T) {
	out := `{"skill":"RedesNeuronales","probability":0.25}`
	p, sent := anthropicStub(t, http.StatusOK, nil, anthropicMessage(out, "end_turn"))

	req := NewRequest("initial-mastery", "You estimate starting mastery.", "Learner: usuario_2")
	req.Schema = estimateSchema
	resp, err := p.Generate(context.Background(), req)
	require.NoError(t, err)

	assert.JSONEq(t, out, string(resp.Content))
	assert.Equal(t, StopEnd, resp.Stop)
	assert.Equal(t, 80, resp.Usage.Total())
	assert.Equal(t, "claude-haiku-4-5", resp.Model)
	assert.Equal(t, "claude-haiku-4-5", p.ModelID())

	assert.Equal(t, "claude-haiku-4-5", (*sent)["model"])
	assert.EqualValues(t, defaultMaxTokens, (*sent)["max_tokens"])
	system, err := json.Marshal((*sent)["system"])
	require.NoError(t, err)
	assert.Contains(t, string(system), "You estimate starting mastery.")
}

func TestAnthropic_TruncatedStructuredOutput(t *testing.T) {
	p, _ := anthropicStub(t, http.StatusOK, nil, anthropicMessage(`{"skill":"Redes`, "max_tokens"))

	req := NewRequest("initial-mastery", "", "estimate")
	req.Schema = estimateSchema
	_, err := p.Generate(context.Background(), req)
	var trunc *ErrMaxTokensExceeded
	assert.ErrorAs(t, err, &trunc)
}

func TestAnthropic_SchemaViolation(t *testing.T) {
	p, _ := anthropicStub(t, http.StatusOK, nil, anthropicMessage(`{"skill":"RedesNeuronales"}`, "end_turn"))

	req := NewRequest("initial-mastery", "", "estimate")
	req.Schema = estimateSchema
	_, err := p.Generate(context.Background(), req)
	var inv *ErrInvalidResponse
	assert.ErrorAs(t, err, &inv)
}

func TestAnthropic_RateLimitCarriesRetryAfter(t *testing.T) {
	p, _ := anthropicStub(t, http.StatusTooManyRequests, http.Header{"Retry-After": {"2"}}, anthropicError("rate_limit_error"))

	_, err := p.Generate(context.Background(), NewRequest("initial-mastery", "", "estimate"))
	var rl *ErrRateLimit
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, 2*time.Second, rl.RetryAfter)
}

func TestAnthropic_ServerError(t *testing.T) {
	p, _ := anthropicStub(t, http.StatusInternalServerError, nil, anthropicError("api_error"))

	_, err := p.Generate(context.Background(), NewRequest("initial-mastery", "", "estimate"))
	var unavail *ErrProviderUnavailable
	assert.ErrorAs(t, err, &unavail)
}

func TestAnthropic_RequiresKey(t *testing.T) {
	_, err := newAnthropic(AnthropicConfig{Model: "haiku"})
	assert.ErrorContains(t, err, "SKILLPATH_ANTHROPIC_API_KEY")
}
