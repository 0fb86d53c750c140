package models

import (
	"strings"
	"testing"
)

func TestParseExperimentConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  JSONB
		wantErr string
	}{
		{
			name: "valid config",
			config: JSONB{
				"model_type": "multimodal_transformer",
				"hyperparameters": map[string]interface{}{
					"num_epochs":    10,
					"batch_size":    32,
					"learning_rate": 0.001,
					"optimizer":     "adamw",
				},
			},
		},
		{
			name: "missing num_epochs",
			config: JSONB{
				"model_type": "language_model",
				"hyperparameters": map[string]interface{}{
					"batch_size": 16,
				},
			},
			wantErr: "num_epochs",
		},
		{
			name: "zero epochs",
			config: JSONB{
				"hyperparameters": map[string]interface{}{
					"num_epochs": 0,
				},
			},
			wantErr: "num_epochs",
		},
		{
			name: "negative epochs",
			config: JSONB{
				"hyperparameters": map[string]interface{}{
					"num_epochs": -3,
				},
			},
			wantErr: "num_epochs",
		},
		{
			name:    "empty config",
			config:  JSONB{},
			wantErr: "num_epochs",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := ParseExperimentConfig(tt.config)

			if tt.wantErr != "" {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("expected error mentioning %q, got %q", tt.wantErr, err.Error())
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if parsed.ModelType != "multimodal_transformer" {
				t.Errorf("expected model_type multimodal_transformer, got %s", parsed.ModelType)
			}
			if parsed.Hyperparameters.NumEpochs != 10 {
				t.Errorf("expected 10 epochs, got %d", parsed.Hyperparameters.NumEpochs)
			}
			if parsed.Hyperparameters.Optimizer != "adamw" {
				t.Errorf("expected optimizer adamw, got %s", parsed.Hyperparameters.Optimizer)
			}
		})
	}
}

func TestJobStatusIsTerminal(t *testing.T) {
	tests := []struct {
		status   JobStatus
		terminal bool
	}{
		{JobStatusPending, false},
		{JobStatusRunning, false},
		{JobStatusCompleted, true},
		{JobStatusFailed, true},
		{JobStatusCancelled, true},
	}

	for _, tt := range tests {
		if got := tt.status.IsTerminal(); got != tt.terminal {
			t.Errorf("%s: expected IsTerminal %v, got %v", tt.status, tt.terminal, got)
		}
	}
}
