package inference

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

const (
	// ModelFile is the artifact name inside the model directory
	ModelFile = "artwork_content_model.json"
	// DefaultModelDir is where the platform unpacks model artifacts
	DefaultModelDir = "/opt/ml/model"
	// MaxRecommendations caps the length of a response
	MaxRecommendations = 10
)

// Model maps an item to its most similar items, best first
type Model struct {
	similar map[int][]int
}

// NewModel builds a model from an in-memory similarity table
func NewModel(similar map[int][]int) *Model {
	return &Model{similar: similar}
}

// LoadModel reads the similarity table from dir. The file maps item ids to
// ordered [item id, score] pairs.
func LoadModel(dir string) (*Model, error) {
	path := filepath.Join(dir, ModelFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model: %w", err)
	}

	var raw map[string][][]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse model %s: %w", path, err)
	}

	similar := make(map[int][]int, len(raw))
	for key, pairs := range raw {
		id, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("invalid item id %q in model: %w", key, err)
		}
		items := make([]int, 0, len(pairs))
		for _, p := range pairs {
			if len(p) == 0 {
				continue
			}
			items = append(items, int(p[0]))
		}
		similar[id] = items
	}

	return &Model{similar: similar}, nil
}

// Recommend returns up to limit items similar to item
func (m *Model) Recommend(item, limit int) ([]int, bool) {
	items, ok := m.similar[item]
	if !ok {
		return nil, false
	}
	if len(items) > limit {
		items = items[:limit]
	}
	return append([]int(nil), items...), true
}

// Len returns the number of items the model knows
func (m *Model) Len() int {
	return len(m.similar)
}
