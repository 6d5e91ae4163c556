package predictor

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/abhisek/skillpath/internal/catalog"
)

// FanoutOptions bounds how per-skill queries are issued.
type FanoutOptions struct {
	// Parallelism caps concurrent queries. Zero or less means one per skill.
	Parallelism int

	// Limiter, when set, paces individual queries.
	Limiter *rate.Limiter
}

// All returns an estimate for every skill, aligned with skills, or an error
// and no values. BatchPredictors are called once; other predictors are
// queried per skill concurrently and the first failure cancels the rest.
func All(ctx context.Context, p Predictor, learner catalog.Learner, skills []catalog.Skill, opts FanoutOptions) ([]float64, error) {
	if len(skills) == 0 {
		return nil, nil
	}

	if bp, ok := p.(BatchPredictor); ok {
		if opts.Limiter != nil {
			if err := opts.Limiter.Wait(ctx); err != nil {
				return nil, unavailable(fmt.Errorf("rate limit wait: %w", err))
			}
		}
		values, err := bp.InitialMasteries(ctx, learner, skills)
		if err != nil {
			return nil, unavailable(err)
		}
		if len(values) != len(skills) {
			return nil, unavailable(fmt.Errorf("batch returned %d values for %d skills", len(values), len(skills)))
		}
		return values, nil
	}

	values := make([]float64, len(skills))
	g, gctx := errgroup.WithContext(ctx)
	if opts.Parallelism > 0 {
		g.SetLimit(opts.Parallelism)
	}
	for i, skill := range skills {
		g.Go(func() error {
			if opts.Limiter != nil {
				if err := opts.Limiter.Wait(gctx); err != nil {
					return fmt.Errorf("skill %q: rate limit wait: %w", skill.Name, err)
				}
			}
			v, err := p.InitialMastery(gctx, learner, skill)
			if err != nil {
				return fmt.Errorf("skill %q: %w", skill.Name, err)
			}
			values[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, unavailable(err)
	}
	return values, nil
}
