// Package predictor provides the initial mastery estimate for a learner and
// skill. Implementations include a local embedding network, a fixed table and
// an LLM-backed estimator.
package predictor

import (
	"context"
	"errors"
	"fmt"

	"github.com/abhisek/skillpath/internal/catalog"
)

// ErrUnavailable is returned when a predictor cannot produce an estimate.
var ErrUnavailable = errors.New("predictor unavailable")

// Predictor estimates the probability that learner answers a question of
// skill correctly.
type Predictor interface {
	InitialMastery(ctx context.Context, learner catalog.Learner, skill catalog.Skill) (float64, error)
}

// BatchPredictor estimates every skill in one call. The returned slice is
// aligned with skills.
type BatchPredictor interface {
	Predictor
	InitialMasteries(ctx context.Context, learner catalog.Learner, skills []catalog.Skill) ([]float64, error)
}

// Func adapts a function to the Predictor interface.
type Func func(ctx context.Context, learner catalog.Learner, skill catalog.Skill) (float64, error)

func (f Func) InitialMastery(ctx context.Context, learner catalog.Learner, skill catalog.Skill) (float64, error) {
	return f(ctx, learner, skill)
}

// unavailable wraps err so that errors.Is(err, ErrUnavailable) holds.
func unavailable(err error) error {
	if err == nil || errors.Is(err, ErrUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}
