package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoad_JSONPreservesFileOrder(t *testing.T) {
	skills := writeFile(t, "skills.json", `{"SistemasDigitales": 2, "Programacion": 0, "RedesNeuronales": 1}`)
	learners := writeFile(t, "learners.json", `{"usuario_7": 6, "usuario_1": 0}`)

	c, err := Load(skills, learners)
	require.NoError(t, err)

	assert.Equal(t, []string{"SistemasDigitales", "Programacion", "RedesNeuronales"}, c.SkillNames())
	s, ok := c.Skill("Programacion")
	require.True(t, ok)
	assert.Equal(t, 0, s.ID)
	assert.Equal(t, 1, s.Order)

	l, err := c.Learner("usuario_1")
	require.NoError(t, err)
	assert.Equal(t, 0, l.ID)
}

func TestLoad_YAML(t *testing.T) {
	skills := writeFile(t, "skills.yaml", "Programacion: 0\nRedesNeuronales: 1\n")
	learners := writeFile(t, "learners.yml", "ana: 3\n")

	c, err := Load(skills, learners)
	require.NoError(t, err)
	assert.Equal(t, []string{"Programacion", "RedesNeuronales"}, c.SkillNames())
	assert.Len(t, c.Learners(), 1)
}

func TestLoad_MultilineJSON(t *testing.T) {
	skills := writeFile(t, "skills.json", "{\n\t\"RedesNeuronales\": 1,\n\t\"Programacion\": 0\n}\n")
	learners := writeFile(t, "learners.json", `{"usuario_1": 0}`)

	c, err := Load(skills, learners)
	require.NoError(t, err)
	assert.Equal(t, []string{"RedesNeuronales", "Programacion"}, c.SkillNames())
}

func TestLoad_RejectsNonIntegerID(t *testing.T) {
	skills := writeFile(t, "skills.json", `{"A": "zero"}`)
	learners := writeFile(t, "learners.json", `{"u": 0}`)

	_, err := Load(skills, learners)
	assert.Error(t, err)
}

func TestLoad_RejectsDuplicateKeys(t *testing.T) {
	skills := writeFile(t, "skills.json", `{"A": 0, "A": 1}`)
	learners := writeFile(t, "learners.json", `{"u": 0}`)

	_, err := Load(skills, learners)
	assert.Error(t, err)
}

func TestLoad_RejectsNonObject(t *testing.T) {
	skills := writeFile(t, "skills.json", `["A", "B"]`)
	learners := writeFile(t, "learners.json", `{"u": 0}`)

	_, err := Load(skills, learners)
	assert.Error(t, err)
}

func TestNew_RequiresSkills(t *testing.T) {
	_, err := New(nil, []Learner{{Name: "u"}})
	assert.Error(t, err)
}

func TestLearner_Unknown(t *testing.T) {
	c, err := New([]Skill{{Name: "A"}}, []Learner{{Name: "u", ID: 0}})
	require.NoError(t, err)

	_, err = c.Learner("nobody")
	assert.True(t, errors.Is(err, ErrUnknownLearner))
}

func TestDefaultLearner(t *testing.T) {
	c, err := New([]Skill{{Name: "A"}}, []Learner{{Name: "usuario_9", ID: 8}, {Name: "usuario_1", ID: 0}})
	require.NoError(t, err)

	l, err := c.DefaultLearner("usuario_1")
	require.NoError(t, err)
	assert.Equal(t, "usuario_1", l.Name)

	l, err = c.DefaultLearner("missing")
	require.NoError(t, err)
	assert.Equal(t, "usuario_9", l.Name, "falls back to first mapped learner")
}

func TestDefaultLearner_Empty(t *testing.T) {
	c, err := New([]Skill{{Name: "A"}}, nil)
	require.NoError(t, err)

	_, err = c.DefaultLearner("x")
	assert.ErrorIs(t, err, ErrNoLearners)
}
