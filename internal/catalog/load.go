package catalog

import (
	"fmt"
	"os"

	"github.com/claude/repflow/internal/models"
	"gopkg.in/yaml.v3"
)

type catalogFile struct {
	Programs []models.Program `yaml:"programs"`
}

// LoadFile reads a YAML catalog:
//
//	programs:
//	  - id: weight_loss
//	    title: Weight Loss
//	    workouts:
//	      - id: w1
//	        exercises:
//	          - {id: squats, name: Squats, type: strength, reps: 15, sets: 3}
func LoadFile(path string) ([]models.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}
	programs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog file %s: %w", path, err)
	}
	return programs, nil
}

// Parse decodes a YAML catalog document.
func Parse(data []byte) ([]models.Program, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w: %w", models.ErrInvalid, err)
	}
	if len(f.Programs) == 0 {
		return nil, fmt.Errorf("catalog has no programs: %w", models.ErrInvalid)
	}
	return f.Programs, nil
}

func validate(programs []models.Program) error {
	seen := make(map[string]bool, len(programs))
	for _, p := range programs {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("%w: %w", models.ErrInvalid, err)
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate program %s: %w", p.ID, models.ErrInvalid)
		}
		seen[p.ID] = true
	}
	return nil
}
