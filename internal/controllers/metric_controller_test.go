package controllers

import (
	"testing"

	"github.com/mldash/backend/internal/models"
)

func floatPtr(v float64) *float64 { return &v }

func metricFixture(epoch, step int, loss float64, accuracy *float64) models.Metric {
	return models.Metric{
		JobID:    "job-1",
		Epoch:    epoch,
		Step:     step,
		Loss:     loss,
		Accuracy: accuracy,
	}
}

func TestSampleMetrics(t *testing.T) {
	metrics := []models.Metric{
		metricFixture(0, 0, 2.4, nil),
		metricFixture(0, 25, 2.3, nil),
		metricFixture(0, 50, 2.2, nil),
		metricFixture(0, 75, 2.1, nil),
		metricFixture(0, 100, 2.0, nil),
	}

	tests := []struct {
		name      string
		stride    int
		wantSteps []int
	}{
		{"stride 1 keeps everything", 1, []int{0, 25, 50, 75, 100}},
		{"stride 2 keeps every other point", 2, []int{0, 50, 100}},
		{"stride larger than series keeps first", 10, []int{0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sampled := sampleMetrics(metrics, tt.stride)
			if len(sampled) != len(tt.wantSteps) {
				t.Fatalf("expected %d points, got %d", len(tt.wantSteps), len(sampled))
			}
			for i, step := range tt.wantSteps {
				if sampled[i].Step != step {
					t.Errorf("point %d: expected step %d, got %d", i, step, sampled[i].Step)
				}
			}
		})
	}

	if sampled := sampleMetrics(nil, 1); len(sampled) != 0 {
		t.Errorf("expected empty sample for empty input, got %d points", len(sampled))
	}
}

func TestBuildMetricSummary(t *testing.T) {
	metrics := []models.Metric{
		metricFixture(0, 0, 2.4, floatPtr(0.15)),
		metricFixture(0, 25, 1.1, floatPtr(0.42)),
		metricFixture(1, 0, 1.6, floatPtr(0.38)),
	}

	summary := buildMetricSummary(30, metrics)

	if summary["total_points"] != 30 {
		t.Errorf("expected total_points 30, got %v", summary["total_points"])
	}
	if summary["returned_points"] != 3 {
		t.Errorf("expected returned_points 3, got %v", summary["returned_points"])
	}
	if summary["best_loss"] != 1.1 {
		t.Errorf("expected best_loss 1.1, got %v", summary["best_loss"])
	}
	if summary["best_accuracy"] != 0.42 {
		t.Errorf("expected best_accuracy 0.42, got %v", summary["best_accuracy"])
	}
	if summary["current_loss"] != 1.6 {
		t.Errorf("expected current_loss 1.6, got %v", summary["current_loss"])
	}
	if summary["current_accuracy"] != 0.38 {
		t.Errorf("expected current_accuracy 0.38, got %v", summary["current_accuracy"])
	}
}

func TestBuildMetricSummaryEmpty(t *testing.T) {
	summary := buildMetricSummary(0, nil)

	if summary["returned_points"] != 0 {
		t.Errorf("expected returned_points 0, got %v", summary["returned_points"])
	}
	if summary["best_loss"] != 0.0 {
		t.Errorf("expected zero best_loss for empty series, got %v", summary["best_loss"])
	}
}
