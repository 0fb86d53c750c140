package models

import (
	"encoding/json"
	"fmt"
)

type Hyperparameters struct {
	NumEpochs    int     `json:"num_epochs"`
	BatchSize    int     `json:"batch_size"`
	LearningRate float64 `json:"learning_rate"`
	Optimizer    string  `json:"optimizer"`
}

// ExperimentConfig is the typed view of Experiment.Config.
type ExperimentConfig struct {
	ModelType       string          `json:"model_type"`
	Hyperparameters Hyperparameters `json:"hyperparameters"`
}

// ParseExperimentConfig decodes the stored config and validates the fields
// the training loop depends on.
func ParseExperimentConfig(config JSONB) (ExperimentConfig, error) {
	var parsed ExperimentConfig

	data, err := json.Marshal(config)
	if err != nil {
		return parsed, fmt.Errorf("failed to encode experiment config: %w", err)
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return parsed, fmt.Errorf("failed to decode experiment config: %w", err)
	}

	if parsed.Hyperparameters.NumEpochs <= 0 {
		return parsed, fmt.Errorf("config requires hyperparameters.num_epochs > 0, got %d", parsed.Hyperparameters.NumEpochs)
	}

	return parsed, nil
}
