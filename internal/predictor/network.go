package predictor

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/abhisek/skillpath/internal/catalog"
)

// Activation names accepted in a weights file.
const (
	ActivationReLU    = "relu"
	ActivationSigmoid = "sigmoid"
	ActivationLinear  = "linear"
)

// DenseLayer is a fully connected layer. Kernel is indexed [input][output].
type DenseLayer struct {
	Kernel     [][]float64 `json:"kernel"`
	Bias       []float64   `json:"bias"`
	Activation string      `json:"activation"`
}

// NetworkWeights is the exported form of the trained model: one embedding
// table for learners, one for skills, and the dense stack applied to their
// concatenation. The last layer must produce a single sigmoid output.
type NetworkWeights struct {
	LearnerEmbedding [][]float64  `json:"user_embedding"`
	SkillEmbedding   [][]float64  `json:"skill_embedding"`
	Dense            []DenseLayer `json:"dense"`
}

// Network evaluates the embedding model in process.
type Network struct {
	w NetworkWeights
}

// LoadNetwork reads a weights file and validates its shapes.
func LoadNetwork(path string) (*Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read weights: %w", err)
	}
	var w NetworkWeights
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("parse weights: %w", err)
	}
	return NewNetwork(w)
}

// NewNetwork validates w and returns a Network.
func NewNetwork(w NetworkWeights) (*Network, error) {
	if len(w.LearnerEmbedding) == 0 || len(w.SkillEmbedding) == 0 {
		return nil, fmt.Errorf("embedding tables must not be empty")
	}
	userDim := len(w.LearnerEmbedding[0])
	for i, row := range w.LearnerEmbedding {
		if len(row) != userDim {
			return nil, fmt.Errorf("user embedding row %d has %d values, want %d", i, len(row), userDim)
		}
	}
	skillDim := len(w.SkillEmbedding[0])
	for i, row := range w.SkillEmbedding {
		if len(row) != skillDim {
			return nil, fmt.Errorf("skill embedding row %d has %d values, want %d", i, len(row), skillDim)
		}
	}
	if len(w.Dense) == 0 {
		return nil, fmt.Errorf("no dense layers")
	}

	in := userDim + skillDim
	for li, l := range w.Dense {
		if len(l.Kernel) != in {
			return nil, fmt.Errorf("dense %d: kernel has %d rows, want %d", li, len(l.Kernel), in)
		}
		out := len(l.Bias)
		for r, row := range l.Kernel {
			if len(row) != out {
				return nil, fmt.Errorf("dense %d: kernel row %d has %d values, want %d", li, r, len(row), out)
			}
		}
		switch l.Activation {
		case ActivationReLU, ActivationSigmoid, ActivationLinear, "":
		default:
			return nil, fmt.Errorf("dense %d: unsupported activation %q", li, l.Activation)
		}
		in = out
	}
	last := w.Dense[len(w.Dense)-1]
	if in != 1 || last.Activation != ActivationSigmoid {
		return nil, fmt.Errorf("last layer must be a single sigmoid unit")
	}
	return &Network{w: w}, nil
}

// InitialMastery runs the forward pass for learner and skill.
func (n *Network) InitialMastery(ctx context.Context, learner catalog.Learner, skill catalog.Skill) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, unavailable(err)
	}
	if learner.ID < 0 || learner.ID >= len(n.w.LearnerEmbedding) {
		return 0, unavailable(fmt.Errorf("learner id %d outside embedding table", learner.ID))
	}
	if skill.ID < 0 || skill.ID >= len(n.w.SkillEmbedding) {
		return 0, unavailable(fmt.Errorf("skill id %d outside embedding table", skill.ID))
	}

	x := make([]float64, 0, len(n.w.LearnerEmbedding[0])+len(n.w.SkillEmbedding[0]))
	x = append(x, n.w.LearnerEmbedding[learner.ID]...)
	x = append(x, n.w.SkillEmbedding[skill.ID]...)

	for _, l := range n.w.Dense {
		x = l.forward(x)
	}
	return x[0], nil
}

// InitialMasteries evaluates every skill for learner.
func (n *Network) InitialMasteries(ctx context.Context, learner catalog.Learner, skills []catalog.Skill) ([]float64, error) {
	out := make([]float64, len(skills))
	for i, s := range skills {
		v, err := n.InitialMastery(ctx, learner, s)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (l DenseLayer) forward(x []float64) []float64 {
	y := make([]float64, len(l.Bias))
	copy(y, l.Bias)
	for i, xi := range x {
		row := l.Kernel[i]
		for j := range y {
			y[j] += xi * row[j]
		}
	}
	for j := range y {
		switch l.Activation {
		case ActivationReLU:
			y[j] = math.Max(0, y[j])
		case ActivationSigmoid:
			y[j] = 1 / (1 + math.Exp(-y[j]))
		}
	}
	return y
}
