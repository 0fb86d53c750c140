package controllers

import (
	"math"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mldash/backend/internal/logger"
	"github.com/mldash/backend/internal/models"
)

type StatsController struct {
	db *gorm.DB
}

func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

type statusCount struct {
	Status string
	Count  int64
}

// GetStatsOverview aggregates the dashboard landing-page counters.
func (sc *StatsController) GetStatsOverview(c *gin.Context) {
	var experimentCounts []statusCount
	err := sc.db.Model(&models.Experiment{}).
		Select("status, count(*) as count").
		Group("status").Scan(&experimentCounts).Error
	if err != nil {
		logger.WithError(err, "stats_controller").Error("Failed to aggregate experiments")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stats"})
		return
	}

	experiments := gin.H{
		"total":     int64(0),
		"running":   int64(0),
		"completed": int64(0),
		"failed":    int64(0),
		"cancelled": int64(0),
	}
	var experimentTotal int64
	for _, row := range experimentCounts {
		experimentTotal += row.Count
		switch models.ExperimentStatus(row.Status) {
		case models.ExperimentStatusRunning, models.ExperimentStatusCompleted,
			models.ExperimentStatusFailed, models.ExperimentStatusCancelled:
			experiments[row.Status] = row.Count
		}
	}
	experiments["total"] = experimentTotal

	var datasetTotal int64
	var totalSizeBytes int64
	sc.db.Model(&models.Dataset{}).Count(&datasetTotal)
	sc.db.Model(&models.Dataset{}).Select("COALESCE(SUM(size_bytes), 0)").Scan(&totalSizeBytes)

	var modalityCounts []struct {
		Modality string
		Count    int64
	}
	sc.db.Model(&models.Dataset{}).
		Select("modality, count(*) as count").
		Group("modality").Scan(&modalityCounts)

	byModality := gin.H{
		"text":       int64(0),
		"image":      int64(0),
		"audio":      int64(0),
		"video":      int64(0),
		"multimodal": int64(0),
	}
	for _, row := range modalityCounts {
		if _, tracked := byModality[row.Modality]; tracked {
			byModality[row.Modality] = row.Count
		}
	}

	var activeJobs, queuedJobs int64
	sc.db.Model(&models.TrainingJob{}).Where("status = ?", models.JobStatusRunning).Count(&activeJobs)
	sc.db.Model(&models.TrainingJob{}).Where("status = ?", models.JobStatusPending).Count(&queuedJobs)

	var avgDurationMinutes float64
	sc.db.Model(&models.TrainingJob{}).
		Select("COALESCE(AVG(EXTRACT(EPOCH FROM (completed_at - started_at))) / 60, 0)").
		Where("status = ? AND started_at IS NOT NULL AND completed_at IS NOT NULL", models.JobStatusCompleted).
		Scan(&avgDurationMinutes)

	totalSizeGB := float64(totalSizeBytes) / math.Pow(1024, 3)

	c.JSON(http.StatusOK, gin.H{
		"experiments": experiments,
		"datasets": gin.H{
			"total":         datasetTotal,
			"by_modality":   byModality,
			"total_size_gb": math.Round(totalSizeGB*100) / 100,
		},
		"jobs": gin.H{
			"active":               activeJobs,
			"queued":               queuedJobs,
			"avg_duration_minutes": math.Round(avgDurationMinutes),
		},
	})
}
