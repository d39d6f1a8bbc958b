package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/aristath/factorlab/internal/modules/scoring"
)

// LoadScoringConfig returns the scoring configuration, optionally
// overridden by a yaml file. An empty path yields the defaults. The
// result is validated either way; a weight vector that does not sum to
// 1.0 is rejected before any evaluation runs.
func LoadScoringConfig(path string) (scoring.Config, error) {
	cfg := scoring.DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return scoring.Config{}, fmt.Errorf("failed to read scoring config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return scoring.Config{}, fmt.Errorf("failed to parse scoring config %s: %w", path, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return scoring.Config{}, err
	}
	return cfg, nil
}
