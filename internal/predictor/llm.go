package predictor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/abhisek/skillpath/internal/catalog"
	"github.com/abhisek/skillpath/internal/llm"
)

// PurposeInitialMastery labels LLM requests made by the LLM predictor.
const PurposeInitialMastery = "initial-mastery"

var initialMasterySchema = &llm.Schema{
	Name:        "initial-mastery",
	Description: "Estimated probability of a correct answer for each skill",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"skills": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"skill":       map[string]any{"type": "string"},
						"probability": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
					},
					"required":             []any{"skill", "probability"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"skills"},
		"additionalProperties": false,
	},
}

const initialMasterySystem = `You estimate a learner's starting mastery for an adaptive practice engine.
For every listed skill return the probability (0 to 1) that the learner answers
a typical question of that skill correctly. Use 0.5 when you have no signal.
Return every skill exactly once, using the skill names verbatim.`

type llmEstimate struct {
	Skills []struct {
		Skill       string  `json:"skill"`
		Probability float64 `json:"probability"`
	} `json:"skills"`
}

// LLM asks a language model for starting estimates, one request per learner.
type LLM struct {
	provider  llm.Provider
	maxTokens int
	hints     map[string]string
}

// LLMOption configures the LLM predictor.
type LLMOption func(*LLM)

// WithLearnerHints attaches a free-text profile per learner name that is
// included in the prompt.
func WithLearnerHints(hints map[string]string) LLMOption {
	return func(p *LLM) { p.hints = hints }
}

// NewLLM creates an LLM predictor.
func NewLLM(provider llm.Provider, opts ...LLMOption) *LLM {
	p := &LLM{provider: provider, maxTokens: 1024}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *LLM) InitialMastery(ctx context.Context, learner catalog.Learner, skill catalog.Skill) (float64, error) {
	values, err := p.InitialMasteries(ctx, learner, []catalog.Skill{skill})
	if err != nil {
		return 0, err
	}
	return values[0], nil
}

func (p *LLM) InitialMasteries(ctx context.Context, learner catalog.Learner, skills []catalog.Skill) ([]float64, error) {
	req := llm.NewRequest(PurposeInitialMastery, initialMasterySystem, p.prompt(learner, skills))
	req.Schema = initialMasterySchema
	req.MaxTokens = p.maxTokens
	resp, err := p.provider.Generate(ctx, req)
	if err != nil {
		return nil, unavailable(err)
	}

	var est llmEstimate
	if err := json.Unmarshal(resp.Content, &est); err != nil {
		return nil, unavailable(fmt.Errorf("decode estimate: %w", err))
	}
	byName := make(map[string]float64, len(est.Skills))
	for _, s := range est.Skills {
		byName[s.Skill] = s.Probability
	}

	out := make([]float64, len(skills))
	for i, s := range skills {
		v, ok := byName[s.Name]
		if !ok {
			return nil, unavailable(fmt.Errorf("estimate missing skill %q", s.Name))
		}
		out[i] = v
	}
	return out, nil
}

func (p *LLM) prompt(learner catalog.Learner, skills []catalog.Skill) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Learner: %s (id %d)\n", learner.Name, learner.ID)
	if h := p.hints[learner.Name]; h != "" {
		fmt.Fprintf(&b, "Profile: %s\n", h)
	}
	b.WriteString("Skills:\n")
	for _, s := range skills {
		fmt.Fprintf(&b, "- %s\n", s.Name)
	}
	return b.String()
}
