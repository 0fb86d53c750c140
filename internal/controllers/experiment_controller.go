package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/mldash/backend/internal/logger"
	"github.com/mldash/backend/internal/models"
	"github.com/mldash/backend/internal/services"
)

type ExperimentController struct {
	db              *gorm.DB
	trainingService *services.TrainingService
}

func NewExperimentController(db *gorm.DB, trainingService *services.TrainingService) *ExperimentController {
	return &ExperimentController{db: db, trainingService: trainingService}
}

type CreateExperimentRequest struct {
	Name        string       `json:"name" binding:"required"`
	Description string       `json:"description"`
	DatasetID   *string      `json:"dataset_id"`
	Config      models.JSONB `json:"config" binding:"required"`
	CreatedBy   string       `json:"created_by"`
	Tags        []string     `json:"tags"`
}

// currentJobBlock summarizes the latest job when it is still running; the
// frontend uses it for the live progress column.
func currentJobBlock(experiment *models.Experiment) gin.H {
	latest := experiment.LatestJob()
	if latest == nil || latest.Status != models.JobStatusRunning {
		return nil
	}
	return gin.H{
		"id":            latest.ID,
		"progress":      latest.Progress,
		"current_epoch": latest.CurrentEpoch,
		"total_epochs":  latest.TotalEpochs,
	}
}

func experimentResponse(experiment *models.Experiment) gin.H {
	var datasetName *string
	if experiment.Dataset != nil {
		datasetName = &experiment.Dataset.Name
	}
	tags := experiment.Tags
	if tags == nil {
		tags = pq.StringArray{}
	}
	return gin.H{
		"id":           experiment.ID,
		"name":         experiment.Name,
		"description":  experiment.Description,
		"dataset_id":   experiment.DatasetID,
		"status":       experiment.Status,
		"config":       experiment.Config,
		"created_by":   experiment.CreatedBy,
		"tags":         tags,
		"created_at":   experiment.CreatedAt,
		"started_at":   experiment.StartedAt,
		"completed_at": experiment.CompletedAt,
		"dataset_name": datasetName,
		"current_job":  currentJobBlock(experiment),
	}
}

func (ec *ExperimentController) GetExperiments(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	query := ec.db.Model(&models.Experiment{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if datasetID := c.Query("dataset_id"); datasetID != "" {
		query = query.Where("dataset_id = ?", datasetID)
	}

	var total int64
	query.Count(&total)

	if c.DefaultQuery("sort_by", "created_at") == "name" {
		query = query.Order("name " + sortOrder(c))
	} else {
		query = query.Order("created_at " + sortOrder(c))
	}

	var experiments []models.Experiment
	offset := (page - 1) * pageSize
	err := query.Preload("TrainingJobs").Preload("Dataset").
		Offset(offset).Limit(pageSize).Find(&experiments).Error
	if err != nil {
		logger.WithError(err, "experiment_controller").Error("Failed to fetch experiments")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch experiments"})
		return
	}

	responses := make([]gin.H, 0, len(experiments))
	for i := range experiments {
		responses = append(responses, experimentResponse(&experiments[i]))
	}

	c.JSON(http.StatusOK, gin.H{
		"data":       responses,
		"pagination": paginationBlock(total, page, pageSize),
	})
}

func (ec *ExperimentController) GetExperiment(c *gin.Context) {
	var experiment models.Experiment
	err := ec.db.Preload("TrainingJobs").Preload("Dataset").
		Where("id = ?", c.Param("id")).First(&experiment).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Experiment not found"})
		return
	}

	c.JSON(http.StatusOK, experimentResponse(&experiment))
}

func (ec *ExperimentController) CreateExperiment(c *gin.Context) {
	var req CreateExperimentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := models.ParseExperimentConfig(req.Config); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	experiment := models.Experiment{
		Name:        req.Name,
		Description: req.Description,
		DatasetID:   req.DatasetID,
		Status:      models.ExperimentStatusCreated,
		Config:      req.Config,
		CreatedBy:   req.CreatedBy,
		Tags:        pq.StringArray(req.Tags),
	}

	if err := ec.db.Create(&experiment).Error; err != nil {
		logger.WithError(err, "experiment_controller").Error("Failed to create experiment")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create experiment"})
		return
	}

	c.JSON(http.StatusCreated, experimentResponse(&experiment))
}

// StartExperiment creates a pending training job for the experiment and hands
// it to the training service.
func (ec *ExperimentController) StartExperiment(c *gin.Context) {
	var experiment models.Experiment
	if err := ec.db.Where("id = ?", c.Param("id")).First(&experiment).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Experiment not found"})
		return
	}

	if experiment.Status != models.ExperimentStatusCreated && experiment.Status != models.ExperimentStatusQueued {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Cannot start experiment with status: " + string(experiment.Status),
		})
		return
	}

	config, err := models.ParseExperimentConfig(experiment.Config)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job := models.TrainingJob{
		ExperimentID: experiment.ID,
		Status:       models.JobStatusPending,
		TotalEpochs:  config.Hyperparameters.NumEpochs,
	}
	if err := ec.db.Create(&job).Error; err != nil {
		logger.WithError(err, "experiment_controller").Error("Failed to create training job")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create training job"})
		return
	}

	now := time.Now().UTC()
	err = ec.db.Model(&experiment).Updates(map[string]interface{}{
		"status":     models.ExperimentStatusQueued,
		"started_at": &now,
	}).Error
	if err != nil {
		logger.WithError(err, "experiment_controller").Error("Failed to queue experiment")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue experiment"})
		return
	}

	ec.trainingService.Start(job.ID, config)

	logger.WithExperiment(experiment.ID).Info("Training job queued")

	c.JSON(http.StatusOK, gin.H{
		"experiment_id": experiment.ID,
		"job_id":        job.ID,
		"status":        models.ExperimentStatusQueued,
		"message":       "Training job queued successfully",
	})
}

// CancelExperiment flips the experiment and its running jobs to cancelled.
// The persisted job status is the sentinel the runner polls at epoch
// boundaries, so the runner winds down on its own.
func (ec *ExperimentController) CancelExperiment(c *gin.Context) {
	var experiment models.Experiment
	err := ec.db.Preload("TrainingJobs").
		Where("id = ?", c.Param("id")).First(&experiment).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Experiment not found"})
		return
	}

	if experiment.Status != models.ExperimentStatusQueued && experiment.Status != models.ExperimentStatusRunning {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Cannot cancel experiment with status: " + string(experiment.Status),
		})
		return
	}

	now := time.Now().UTC()
	err = ec.db.Model(&experiment).Updates(map[string]interface{}{
		"status":       models.ExperimentStatusCancelled,
		"completed_at": &now,
	}).Error
	if err != nil {
		logger.WithError(err, "experiment_controller").Error("Failed to cancel experiment")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel experiment"})
		return
	}

	for i := range experiment.TrainingJobs {
		job := &experiment.TrainingJobs[i]
		if job.Status != models.JobStatusRunning && job.Status != models.JobStatusPending {
			continue
		}
		err := ec.db.Model(&models.TrainingJob{}).Where("id = ?", job.ID).Updates(map[string]interface{}{
			"status":       models.JobStatusCancelled,
			"completed_at": &now,
		}).Error
		if err != nil {
			logger.WithError(err, "experiment_controller").Error("Failed to cancel training job")
		}
	}

	logger.WithExperiment(experiment.ID).Info("Experiment cancelled")

	c.JSON(http.StatusOK, gin.H{
		"experiment_id": experiment.ID,
		"status":        models.ExperimentStatusCancelled,
		"message":       "Experiment cancelled successfully",
	})
}

func (ec *ExperimentController) DeleteExperiment(c *gin.Context) {
	var experiment models.Experiment
	if err := ec.db.Where("id = ?", c.Param("id")).First(&experiment).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Experiment not found"})
		return
	}

	// Jobs and metrics go with the experiment via the cascade constraints.
	if err := ec.db.Delete(&experiment).Error; err != nil {
		logger.WithError(err, "experiment_controller").Error("Failed to delete experiment")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete experiment"})
		return
	}

	c.Status(http.StatusNoContent)
}
