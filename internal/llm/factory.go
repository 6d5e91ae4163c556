package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/abhisek/skillpath/internal/store"
)

// NewProvider builds the configured vendor and wraps it as
// timeout → retry → logging → vendor, so the timeout bounds all attempts
// and every attempt is recorded. rec may be nil.
func NewProvider(ctx context.Context, cfg Config, rec store.LLMRequestRecorder, logger *slog.Logger) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		base Provider
		err  error
	)
	switch cfg.Provider {
	case ProviderAnthropic:
		base, err = newAnthropic(cfg.Anthropic)
	case ProviderOpenAI:
		base, err = newOpenAI(cfg.OpenAI)
	case ProviderOpenRouter:
		base, err = newOpenRouter(cfg.OpenRouter)
	case ProviderGemini:
		base, err = newGemini(ctx, cfg.Gemini)
	case ProviderMock:
		base = newConfiguredMock(cfg.Mock)
	}
	if err != nil {
		return nil, fmt.Errorf("%s provider: %w", cfg.Provider, err)
	}

	p := WithLogging(base, cfg.Provider, rec, logger)
	p = WithRetry(p, cfg.Retry)
	if cfg.Timeout > 0 {
		p = WithTimeout(p, cfg.Timeout)
	}
	return p, nil
}

func newConfiguredMock(cfg MockConfig) *Mock {
	m := NewMock()
	if cfg.Reply != "" {
		reply := json.RawMessage(cfg.Reply)
		m.Fallback = func(Request) (json.RawMessage, error) { return reply, nil }
	}
	return m
}

type timeoutProvider struct {
	inner   Provider
	timeout time.Duration
}

// WithTimeout cancels each Generate call after d.
func WithTimeout(p Provider, d time.Duration) Provider {
	return &timeoutProvider{inner: p, timeout: d}
}

func (t *timeoutProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.Generate(ctx, req)
}

func (t *timeoutProvider) ModelID() string { return t.inner.ModelID() }
