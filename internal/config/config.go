// Package config loads skillpath settings from a YAML file layered over
// defaults and SKILLPATH_* environment variables.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/abhisek/skillpath/internal/llm"
)

// Predictor kinds.
const (
	PredictorNetwork = "network"
	PredictorTable   = "table"
	PredictorLLM     = "llm"
)

// Question sources.
const (
	SourceFile   = "file"
	SourceSQLite = "sqlite"
)

// Config is the full runtime configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Data      DataConfig      `yaml:"data"`
	Store     StoreConfig     `yaml:"store"`
	Predictor PredictorConfig `yaml:"predictor"`
	Learning  LearningConfig  `yaml:"learning"`
	Learner   LearnerConfig   `yaml:"learner"`
	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	LLM       llm.Config      `yaml:"llm" validate:"-"`
}

type ServerConfig struct {
	Addr           string        `yaml:"addr" validate:"required,hostname_port"`
	ReadTimeout    time.Duration `yaml:"read_timeout" validate:"gte=0"`
	WriteTimeout   time.Duration `yaml:"write_timeout" validate:"gte=0"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

type DataConfig struct {
	Skills         string `yaml:"skills" validate:"required"`
	Learners       string `yaml:"learners" validate:"required"`
	Questions      string `yaml:"questions" validate:"required_if=QuestionSource file"`
	QuestionSource string `yaml:"question_source" validate:"oneof=file sqlite"`
	Watch          bool   `yaml:"watch"`
}

type StoreConfig struct {
	// Path of the SQLite database. Empty resolves to the per-user default.
	Path     string `yaml:"path"`
	Disabled bool   `yaml:"disabled"`
}

type PredictorConfig struct {
	Kind          string  `yaml:"kind" validate:"oneof=network table llm"`
	Weights       string  `yaml:"weights" validate:"required_if=Kind network"`
	Table         string  `yaml:"table" validate:"required_if=Kind table"`
	Parallelism   int     `yaml:"parallelism" validate:"gte=0"`
	RatePerSecond float64 `yaml:"rate_per_second" validate:"gte=0"`
	Burst         int     `yaml:"burst" validate:"gte=0"`
	// Hints maps a learner name to a free-text profile for the llm predictor.
	Hints map[string]string `yaml:"hints"`
}

type LearningConfig struct {
	CorrectStep   float64 `yaml:"correct_step" validate:"gte=0,lte=1"`
	IncorrectStep float64 `yaml:"incorrect_step" validate:"gte=-1,lte=0"`
}

type LearnerConfig struct {
	Default string `yaml:"default"`
}

type LogConfig struct {
	Level      string `yaml:"level" validate:"oneof=debug info warn error"`
	Format     string `yaml:"format" validate:"oneof=text json"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `yaml:"max_backups" validate:"gte=0"`
}

type TelemetryConfig struct {
	Metrics bool `yaml:"metrics"`
	Tracing bool `yaml:"tracing"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:           ":8080",
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   30 * time.Second,
			AllowedOrigins: []string{"*"},
		},
		Data: DataConfig{
			Skills:         "data/skills.json",
			Learners:       "data/learners.json",
			Questions:      "data/questions.json",
			QuestionSource: SourceFile,
		},
		Predictor: PredictorConfig{
			Kind:  PredictorTable,
			Table: "data/mastery.yaml",
		},
		Learning: LearningConfig{
			CorrectStep:   0.05,
			IncorrectStep: -0.025,
		},
		Learner: LearnerConfig{Default: "usuario_1"},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Telemetry: TelemetryConfig{Metrics: true},
		LLM:       llm.DefaultConfig(),
	}
}

// Load reads path (optional; SKILLPATH_CONFIG when empty), applies
// environment overrides and validates the result. Relative data paths in
// the file are resolved against the file's directory.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("SKILLPATH_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := decode(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
		cfg.resolvePaths(filepath.Dir(path))
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	llm.ApplyEnv(&cfg.LLM)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) resolvePaths(base string) {
	for _, p := range []*string{
		&c.Data.Skills, &c.Data.Learners, &c.Data.Questions,
		&c.Predictor.Weights, &c.Predictor.Table,
		&c.Store.Path, &c.Log.File,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
}

var validate = validator.New()

// Validate checks field constraints, and the LLM provider settings when the
// LLM predictor is selected.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s fails %q", fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Predictor.Kind == PredictorLLM {
		if err := c.LLM.Validate(); err != nil {
			return fmt.Errorf("invalid config: llm: %w", err)
		}
	}
	return nil
}

func applyEnv(c *Config) error {
	strs := map[string]*string{
		"SKILLPATH_ADDR":            &c.Server.Addr,
		"SKILLPATH_SKILLS":          &c.Data.Skills,
		"SKILLPATH_LEARNERS":        &c.Data.Learners,
		"SKILLPATH_QUESTIONS":       &c.Data.Questions,
		"SKILLPATH_QUESTION_SOURCE": &c.Data.QuestionSource,
		"SKILLPATH_DB":              &c.Store.Path,
		"SKILLPATH_PREDICTOR":       &c.Predictor.Kind,
		"SKILLPATH_WEIGHTS":         &c.Predictor.Weights,
		"SKILLPATH_MASTERY_TABLE":   &c.Predictor.Table,
		"SKILLPATH_DEFAULT_LEARNER": &c.Learner.Default,
		"SKILLPATH_LOG_LEVEL":       &c.Log.Level,
		"SKILLPATH_LOG_FORMAT":      &c.Log.Format,
		"SKILLPATH_LOG_FILE":        &c.Log.File,
	}
	for name, field := range strs {
		if v := os.Getenv(name); v != "" {
			*field = v
		}
	}

	bools := map[string]*bool{
		"SKILLPATH_WATCH":   &c.Data.Watch,
		"SKILLPATH_METRICS": &c.Telemetry.Metrics,
		"SKILLPATH_TRACING": &c.Telemetry.Tracing,
		"SKILLPATH_NO_DB":   &c.Store.Disabled,
	}
	for name, field := range bools {
		v := os.Getenv(name)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*field = b
	}
	return nil
}
