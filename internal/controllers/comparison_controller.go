package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mldash/backend/internal/logger"
	"github.com/mldash/backend/internal/models"
)

type ComparisonController struct {
	db *gorm.DB
}

func NewComparisonController(db *gorm.DB) *ComparisonController {
	return &ComparisonController{db: db}
}

type ComparisonRequest struct {
	ExperimentIDs []string `json:"experiment_ids" binding:"required,min=1"`
	Metrics       []string `json:"metrics" binding:"required,min=1"`
}

type comparisonPoint struct {
	Epoch int     `json:"epoch"`
	Value float64 `json:"value"`
}

type comparisonSeries struct {
	Min        float64           `json:"min"`
	Max        float64           `json:"max"`
	Final      float64           `json:"final"`
	DataPoints []comparisonPoint `json:"data_points"`
}

// CompareExperiments aggregates the latest job's metric series for each
// requested experiment.
func (cc *ComparisonController) CompareExperiments(c *gin.Context) {
	var req ComparisonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	comparison := make([]gin.H, 0, len(req.ExperimentIDs))
	for _, experimentID := range req.ExperimentIDs {
		var experiment models.Experiment
		if err := cc.db.Where("id = ?", experimentID).First(&experiment).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Experiment " + experimentID + " not found"})
			return
		}

		// Only the latest job counts for comparison; earlier attempts are
		// superseded.
		var job models.TrainingJob
		err := cc.db.Where("experiment_id = ?", experimentID).
			Order("created_at DESC").First(&job).Error
		if err != nil {
			continue
		}

		var metrics []models.Metric
		err = cc.db.Where("job_id = ?", job.ID).Order("epoch, step").Find(&metrics).Error
		if err != nil {
			logger.WithError(err, "comparison_controller").Error("Failed to fetch metrics for comparison")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch metrics"})
			return
		}

		series := make(map[string]comparisonSeries)
		for _, name := range req.Metrics {
			if s, ok := buildMetricSeries(metrics, name); ok {
				series[name] = s
			}
		}

		config, _ := models.ParseExperimentConfig(experiment.Config)
		comparison = append(comparison, gin.H{
			"experiment_id": experimentID,
			"name":          experiment.Name,
			"config": gin.H{
				"batch_size":    config.Hyperparameters.BatchSize,
				"learning_rate": config.Hyperparameters.LearningRate,
			},
			"metrics": series,
		})
	}

	c.JSON(http.StatusOK, gin.H{"comparison": comparison})
}

// buildMetricSeries extracts one named metric from an ordered sample list.
// Returns false when no sample carries the metric.
func buildMetricSeries(metrics []models.Metric, name string) (comparisonSeries, bool) {
	var series comparisonSeries

	for _, m := range metrics {
		value, ok := metricValue(&m, name)
		if !ok {
			continue
		}
		if len(series.DataPoints) == 0 {
			series.Min = value
			series.Max = value
		} else {
			if value < series.Min {
				series.Min = value
			}
			if value > series.Max {
				series.Max = value
			}
		}
		series.Final = value
		series.DataPoints = append(series.DataPoints, comparisonPoint{Epoch: m.Epoch, Value: value})
	}

	return series, len(series.DataPoints) > 0
}

func metricValue(m *models.Metric, name string) (float64, bool) {
	switch name {
	case "loss":
		return m.Loss, true
	case "accuracy":
		if m.Accuracy != nil {
			return *m.Accuracy, true
		}
	case "learning_rate":
		if m.LearningRate != nil {
			return *m.LearningRate, true
		}
	case "throughput":
		if m.Throughput != nil {
			return *m.Throughput, true
		}
	case "gpu_utilization":
		if m.GPUUtilization != nil {
			return *m.GPUUtilization, true
		}
	}
	return 0, false
}
