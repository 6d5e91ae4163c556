package predictor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/abhisek/skillpath/internal/catalog"
)

// Table returns fixed probabilities keyed by learner and skill name.
//
//	default: 0.5
//	learners:
//	  usuario_1:
//	    Programacion: 0.30
type Table struct {
	Default  *float64                      `yaml:"default" json:"default"`
	Learners map[string]map[string]float64 `yaml:"learners" json:"learners"`
}

// LoadTable reads a YAML or JSON table file.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read table: %w", err)
	}
	var t Table
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &t)
	default:
		err = yaml.Unmarshal(data, &t)
	}
	if err != nil {
		return nil, fmt.Errorf("parse table: %w", err)
	}
	return &t, nil
}

// InitialMastery returns the table value, the default, or ErrUnavailable.
func (t *Table) InitialMastery(ctx context.Context, learner catalog.Learner, skill catalog.Skill) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, unavailable(err)
	}
	if v, ok := t.Learners[learner.Name][skill.Name]; ok {
		return v, nil
	}
	if t.Default != nil {
		return *t.Default, nil
	}
	return 0, fmt.Errorf("%w: no entry for learner %q skill %q", ErrUnavailable, learner.Name, skill.Name)
}
