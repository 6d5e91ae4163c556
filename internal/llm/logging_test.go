package llm

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/skillpath/internal/store"
)

type recordingSink struct {
	mu     sync.Mutex
	events []store.LLMRequestEventData
	err    error
}

func (r *recordingSink) AppendLLMRequest(_ context.Context, data store.LLMRequestEventData) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, data)
	return r.err
}

func TestLogging_RecordsSuccess(t *testing.T) {
	mock := NewMock(MockReply{
		Content: `{"skills":[]}`,
		Usage:   Usage{InputTokens: 12, OutputTokens: 4},
	})
	sink := &recordingSink{}
	p := WithLogging(mock, ProviderMock, sink, nil)

	_, err := p.Generate(context.Background(), NewRequest("initial-mastery", "sys", "hello"))
	require.NoError(t, err)

	require.Len(t, sink.events, 1)
	ev := sink.events[0]
	assert.True(t, ev.Success)
	assert.Equal(t, "initial-mastery", ev.Purpose)
	assert.Equal(t, ProviderMock, ev.Provider)
	assert.Equal(t, "mock", ev.Model)
	assert.Equal(t, 12, ev.InputTokens)
	assert.Equal(t, 4, ev.OutputTokens)
	assert.Contains(t, ev.RequestBody, "[system]\nsys")
	assert.Contains(t, ev.RequestBody, "[user]\nhello")
	assert.Equal(t, `{"skills":[]}`, ev.ResponseBody)
}

func TestLogging_RecordsFailureAndSurvivesSinkError(t *testing.T) {
	mock := NewMock(MockReply{Err: &ErrProviderUnavailable{Err: errors.New("down")}})
	sink := &recordingSink{err: errors.New("disk full")}
	p := WithLogging(mock, ProviderMock, sink, nil)

	_, err := p.Generate(context.Background(), Request{})
	var unavail *ErrProviderUnavailable
	require.ErrorAs(t, err, &unavail)

	require.Len(t, sink.events, 1)
	assert.False(t, sink.events[0].Success)
	assert.Equal(t, "unknown", sink.events[0].Purpose)
	assert.Contains(t, sink.events[0].ErrorMessage, "down")
}

func TestLogging_NilRecorder(t *testing.T) {
	mock := NewMock(MockReply{Content: `{}`})
	p := WithLogging(mock, ProviderMock, nil, nil)

	_, err := p.Generate(context.Background(), Request{})
	assert.NoError(t, err)
	assert.Equal(t, mock.ModelID(), p.ModelID())
}

type slowProvider struct{}

func (slowProvider) Generate(ctx context.Context, _ Request) (*Response, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (slowProvider) ModelID() string { return "slow" }

func TestTimeout_CancelsSlowProvider(t *testing.T) {
	p := WithTimeout(slowProvider{}, 10*time.Millisecond)

	_, err := p.Generate(context.Background(), Request{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, "slow", p.ModelID())
}

func TestClassifyStatus(t *testing.T) {
	base := errors.New("boom")

	var rl *ErrRateLimit
	require.ErrorAs(t, classifyStatus(http.StatusTooManyRequests, http.Header{"Retry-After": {"3"}}, base), &rl)
	assert.Equal(t, 3*time.Second, rl.RetryAfter)

	require.ErrorAs(t, classifyStatus(http.StatusTooManyRequests, nil, base), &rl)
	assert.Zero(t, rl.RetryAfter)

	for _, status := range []int{0, http.StatusBadRequest, http.StatusBadGateway} {
		var unavail *ErrProviderUnavailable
		assert.ErrorAs(t, classifyStatus(status, nil, base), &unavail, "status %d", status)
		assert.ErrorIs(t, classifyStatus(status, nil, base), base)
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("SKILLPATH_LLM_PROVIDER", "openai")
	t.Setenv("SKILLPATH_OPENAI_API_KEY", "sk-env")
	t.Setenv("SKILLPATH_OPENAI_MODEL", "4o")

	cfg := ConfigFromEnv()
	assert.Equal(t, ProviderOpenAI, cfg.Provider)
	assert.Equal(t, "sk-env", cfg.OpenAI.APIKey)
	assert.Equal(t, "gpt-4o", ResolveModel(cfg.Provider, cfg.OpenAI.Model))
	assert.NoError(t, cfg.Validate())
}

func TestDiscoverConfig_PriorityOrder(t *testing.T) {
	for _, name := range []string{"GEMINI_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "OPENROUTER_API_KEY"} {
		t.Setenv(name, "")
	}
	_, ok := DiscoverConfig()
	assert.False(t, ok)

	t.Setenv("ANTHROPIC_API_KEY", "a")
	t.Setenv("OPENAI_API_KEY", "o")
	cfg, ok := DiscoverConfig()
	require.True(t, ok)
	assert.Equal(t, ProviderOpenAI, cfg.Provider)
	assert.Equal(t, "o", cfg.OpenAI.APIKey)
}

func TestNewProvider_Mock(t *testing.T) {
	reply := `{"skills":[{"skill":"Programacion","probability":0.5}]}`
	p, err := NewProvider(context.Background(), Config{Provider: ProviderMock, Mock: MockConfig{Reply: reply}}, nil, nil)
	require.NoError(t, err)
	for range 2 {
		resp, err := p.Generate(context.Background(), NewRequest("initial-mastery", "", "estimate"))
		require.NoError(t, err)
		assert.JSONEq(t, reply, string(resp.Content))
	}

	_, err = NewProvider(context.Background(), Config{Provider: ProviderAnthropic}, nil, nil)
	assert.ErrorContains(t, err, "SKILLPATH_ANTHROPIC_API_KEY")
}
