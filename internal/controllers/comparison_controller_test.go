package controllers

import (
	"testing"

	"github.com/mldash/backend/internal/models"
)

func TestBuildMetricSeries(t *testing.T) {
	metrics := []models.Metric{
		metricFixture(0, 0, 2.4, floatPtr(0.15)),
		metricFixture(1, 0, 1.2, floatPtr(0.55)),
		metricFixture(2, 0, 0.8, floatPtr(0.72)),
	}

	series, ok := buildMetricSeries(metrics, "loss")
	if !ok {
		t.Fatal("expected a loss series")
	}
	if series.Min != 0.8 || series.Max != 2.4 || series.Final != 0.8 {
		t.Errorf("unexpected loss aggregates: min %f max %f final %f", series.Min, series.Max, series.Final)
	}
	if len(series.DataPoints) != 3 {
		t.Fatalf("expected 3 data points, got %d", len(series.DataPoints))
	}
	if series.DataPoints[1].Epoch != 1 || series.DataPoints[1].Value != 1.2 {
		t.Errorf("unexpected point: %+v", series.DataPoints[1])
	}
}

func TestBuildMetricSeriesSkipsMissingValues(t *testing.T) {
	metrics := []models.Metric{
		metricFixture(0, 0, 2.4, nil),
		metricFixture(1, 0, 1.2, floatPtr(0.55)),
		metricFixture(2, 0, 0.8, nil),
	}

	series, ok := buildMetricSeries(metrics, "accuracy")
	if !ok {
		t.Fatal("expected an accuracy series from the one carrying sample")
	}
	if len(series.DataPoints) != 1 {
		t.Fatalf("expected 1 data point, got %d", len(series.DataPoints))
	}
	if series.Min != 0.55 || series.Max != 0.55 || series.Final != 0.55 {
		t.Errorf("unexpected aggregates for single-point series: %+v", series)
	}
}

func TestBuildMetricSeriesUnknownMetric(t *testing.T) {
	metrics := []models.Metric{metricFixture(0, 0, 2.4, nil)}

	if _, ok := buildMetricSeries(metrics, "gradient_norm"); ok {
		t.Error("expected no series for unknown metric name")
	}
	if _, ok := buildMetricSeries(nil, "loss"); ok {
		t.Error("expected no series for empty metric list")
	}
}

func TestMetricValue(t *testing.T) {
	metric := models.Metric{
		Loss:           1.5,
		Accuracy:       floatPtr(0.6),
		LearningRate:   floatPtr(0.001),
		Throughput:     floatPtr(315),
		GPUUtilization: floatPtr(87.5),
	}

	tests := []struct {
		name  string
		want  float64
		found bool
	}{
		{"loss", 1.5, true},
		{"accuracy", 0.6, true},
		{"learning_rate", 0.001, true},
		{"throughput", 315, true},
		{"gpu_utilization", 87.5, true},
		{"memory", 0, false},
	}

	for _, tt := range tests {
		got, found := metricValue(&metric, tt.name)
		if found != tt.found || got != tt.want {
			t.Errorf("%s: expected (%f, %v), got (%f, %v)", tt.name, tt.want, tt.found, got, found)
		}
	}
}
