package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// namedID is one key/value pair of a name → id map file.
type namedID struct {
	Name string
	ID   int
}

// Load reads the skill map and learner map files and builds a Catalog.
// Both files may be JSON objects or YAML mappings.
func Load(skillPath, learnerPath string) (*Catalog, error) {
	skillPairs, err := readMapFile(skillPath)
	if err != nil {
		return nil, fmt.Errorf("load skill map: %w", err)
	}
	learnerPairs, err := readMapFile(learnerPath)
	if err != nil {
		return nil, fmt.Errorf("load learner map: %w", err)
	}

	skills := make([]Skill, len(skillPairs))
	for i, p := range skillPairs {
		skills[i] = Skill{Name: p.Name, ID: p.ID}
	}
	learners := make([]Learner, len(learnerPairs))
	for i, p := range learnerPairs {
		learners[i] = Learner{Name: p.Name, ID: p.ID}
	}
	return New(skills, learners)
}

func readMapFile(path string) ([]namedID, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return decodeMap(data)
}

// decodeMap walks the top-level mapping node so that key order survives.
// JSON documents parse as YAML flow mappings.
func decodeMap(data []byte) ([]namedID, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse map: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("empty map document")
	}
	m := doc.Content[0]
	if m.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("expected a mapping at line %d", m.Line)
	}

	var out []namedID
	seen := make(map[string]bool)
	for i := 0; i+1 < len(m.Content); i += 2 {
		key := m.Content[i].Value
		var id int
		if err := m.Content[i+1].Decode(&id); err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		if seen[key] {
			return nil, fmt.Errorf("duplicate key %q", key)
		}
		seen[key] = true
		out = append(out, namedID{Name: key, ID: id})
	}
	return out, nil
}
