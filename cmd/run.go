package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/abhisek/skillpath/internal/catalog"
	"github.com/abhisek/skillpath/internal/config"
	"github.com/abhisek/skillpath/internal/llm"
	"github.com/abhisek/skillpath/internal/logging"
	"github.com/abhisek/skillpath/internal/mastery"
	"github.com/abhisek/skillpath/internal/observability"
	"github.com/abhisek/skillpath/internal/predictor"
	"github.com/abhisek/skillpath/internal/question"
	"github.com/abhisek/skillpath/internal/session"
	"github.com/abhisek/skillpath/internal/store"
)

// runtime holds everything serve and play share.
type runtime struct {
	cfg     config.Config
	logger  *slog.Logger
	catalog *catalog.Catalog
	store   *store.Store // nil when the store is disabled
	metrics *observability.Metrics
	manager *session.Manager

	closers []func(context.Context) error
}

type runtimeOptions struct {
	// tui routes logs to a file and disables the stdout trace exporter,
	// since the terminal belongs to the UI.
	tui         bool
	traceWriter io.Writer
}

// setup loads the config and wires the engine: store, catalog, question
// source, predictor and session manager.
func setup(ctx context.Context, cmd *cobra.Command, opts runtimeOptions) (*runtime, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	dbPath, err := resolveDBPath(cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve DB path: %w", err)
	}
	if opts.tui {
		cfg.Telemetry.Tracing = false
		if cfg.Log.File == "" {
			cfg.Log.File = filepath.Join(filepath.Dir(dbPath), "skillpath.log")
		}
	}

	rt := &runtime{cfg: cfg}

	logger, logCloser, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	rt.logger = logger
	rt.closers = append(rt.closers, func(context.Context) error { return logCloser.Close() })

	if !cfg.Store.Disabled {
		st, err := store.Open(dbPath)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("open store: %w", err)
		}
		rt.store = st
		rt.closers = append(rt.closers, func(context.Context) error { return st.Close() })
	}

	if err := rt.build(ctx, opts); err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

func (rt *runtime) build(ctx context.Context, opts runtimeOptions) error {
	cfg := rt.cfg

	cat, err := catalog.Load(cfg.Data.Skills, cfg.Data.Learners)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	rt.catalog = cat

	questions, err := rt.questionSource(ctx)
	if err != nil {
		return err
	}

	pred, err := rt.predictor(ctx)
	if err != nil {
		return err
	}

	shutdown, err := observability.InitTracing(ctx, cfg.Telemetry.Tracing, opts.traceWriter, buildVersion())
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	rt.closers = append(rt.closers, shutdown)

	mcfg := session.Config{
		Catalog:   cat,
		Predictor: pred,
		Questions: questions,
		Updater: &mastery.Updater{
			CorrectStep:   cfg.Learning.CorrectStep,
			IncorrectStep: cfg.Learning.IncorrectStep,
		},
		Fanout: predictor.FanoutOptions{Parallelism: cfg.Predictor.Parallelism},
		Logger: rt.logger,
	}
	if cfg.Predictor.RatePerSecond > 0 {
		burst := max(cfg.Predictor.Burst, 1)
		mcfg.Fanout.Limiter = rate.NewLimiter(rate.Limit(cfg.Predictor.RatePerSecond), burst)
	}
	if rt.store != nil {
		mcfg.Recorder = rt.store.EventRepo()
		mcfg.Snapshots = rt.store.SnapshotRepo()
	}
	if cfg.Telemetry.Metrics {
		rt.metrics = observability.NewMetrics()
		mcfg.Metrics = rt.metrics
	}

	mgr, err := session.NewManager(mcfg)
	if err != nil {
		return err
	}
	rt.manager = mgr

	rt.logger.Info("engine ready",
		"skills", len(cat.Skills()), "learners", len(cat.Learners()),
		"predictor", cfg.Predictor.Kind, "questions", cfg.Data.QuestionSource)
	return nil
}

// questionSource returns the configured question catalog, starting a file
// watcher when enabled.
func (rt *runtime) questionSource(ctx context.Context) (question.Catalog, error) {
	cfg := rt.cfg.Data

	switch cfg.QuestionSource {
	case config.SourceSQLite:
		if rt.store == nil {
			return nil, errors.New("question source sqlite needs the store; unset store.disabled")
		}
		repo := rt.store.QuestionRepo()
		if cfg.Watch && cfg.Questions != "" {
			if _, err := question.Watch(ctx, cfg.Questions, repo, rt.logger); err != nil {
				return nil, fmt.Errorf("watch questions: %w", err)
			}
		}
		return repo, nil

	default:
		qs, err := question.LoadFile(cfg.Questions)
		if err != nil {
			return nil, fmt.Errorf("load questions: %w", err)
		}
		bank, err := question.NewMemoryCatalog(qs)
		if err != nil {
			return nil, fmt.Errorf("load questions: %w", err)
		}
		if cfg.Watch {
			if _, err := question.Watch(ctx, cfg.Questions, bank, rt.logger); err != nil {
				return nil, fmt.Errorf("watch questions: %w", err)
			}
		}
		return bank, nil
	}
}

func (rt *runtime) predictor(ctx context.Context) (predictor.Predictor, error) {
	cfg := rt.cfg
	switch cfg.Predictor.Kind {
	case config.PredictorNetwork:
		n, err := predictor.LoadNetwork(cfg.Predictor.Weights)
		if err != nil {
			return nil, fmt.Errorf("load network weights: %w", err)
		}
		return n, nil

	case config.PredictorLLM:
		var rec store.LLMRequestRecorder
		if rt.store != nil {
			rec = rt.store.EventRepo()
		}
		llmCfg := cfg.LLM
		if llmCfg.Validate() != nil {
			if found, ok := llm.DiscoverConfig(); ok {
				rt.logger.Info("using LLM provider found in environment", "provider", found.Provider)
				llmCfg = found
			}
		}
		provider, err := llm.NewProvider(ctx, llmCfg, rec, rt.logger)
		if err != nil {
			return nil, fmt.Errorf("LLM predictor: %w", err)
		}
		return predictor.NewLLM(provider, predictor.WithLearnerHints(cfg.Predictor.Hints)), nil

	default:
		t, err := predictor.LoadTable(cfg.Predictor.Table)
		if err != nil {
			return nil, fmt.Errorf("load mastery table: %w", err)
		}
		return t, nil
	}
}

// endAll ends every open session so their final standings are recorded.
func (rt *runtime) endAll(ctx context.Context) {
	for _, l := range rt.catalog.Learners() {
		if _, err := rt.manager.Session(l.Name); err != nil {
			continue
		}
		if err := rt.manager.End(ctx, l.Name); err != nil {
			rt.logger.Warn("failed to end session", "learner", l.Name, "error", err)
		}
	}
}

// Close releases resources in reverse order of acquisition.
func (rt *runtime) Close() {
	ctx := context.Background()
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](ctx); err != nil && rt.logger != nil {
			rt.logger.Warn("shutdown step failed", "error", err)
		}
	}
	rt.closers = nil
}
