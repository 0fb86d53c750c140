package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mldash/backend/internal/controllers"
	"github.com/mldash/backend/internal/services"
	"github.com/mldash/backend/internal/storage"
)

// SetupRoutes configures all application routes.
func SetupRoutes(r *gin.Engine, db *gorm.DB, trainingService *services.TrainingService, hub *services.NotificationHub, objectStore *storage.ObjectStore) {
	// Initialize controllers
	datasetController := controllers.NewDatasetController(db, objectStore)
	experimentController := controllers.NewExperimentController(db, trainingService)
	jobController := controllers.NewJobController(db)
	metricController := controllers.NewMetricController(db, hub)
	comparisonController := controllers.NewComparisonController(db)
	statsController := controllers.NewStatsController(db)

	// API routes
	api := r.Group("/api/v1")
	{
		datasets := api.Group("/datasets")
		{
			datasets.GET("", datasetController.GetDatasets)
			datasets.POST("", datasetController.CreateDataset)
			datasets.GET("/:id", datasetController.GetDataset)
			datasets.DELETE("/:id", datasetController.DeleteDataset)
			datasets.POST("/:id/upload", datasetController.UploadDatasetFile)
			datasets.GET("/:id/download", datasetController.DownloadDatasetFile)
		}

		experiments := api.Group("/experiments")
		{
			experiments.GET("", experimentController.GetExperiments)
			experiments.POST("", experimentController.CreateExperiment)
			experiments.GET("/:id", experimentController.GetExperiment)
			experiments.DELETE("/:id", experimentController.DeleteExperiment)
			experiments.POST("/:id/start", experimentController.StartExperiment)
			experiments.POST("/:id/cancel", experimentController.CancelExperiment)
		}

		jobs := api.Group("/jobs")
		{
			jobs.GET("/:jobId", jobController.GetJob)
			jobs.GET("/:jobId/metrics", metricController.GetJobMetrics)
			jobs.GET("/:jobId/metrics/stream", metricController.StreamJobMetrics)
		}

		api.POST("/comparison/experiments/compare", comparisonController.CompareExperiments)
		api.GET("/stats/overview", statsController.GetStatsOverview)
	}
}
