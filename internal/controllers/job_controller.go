package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mldash/backend/internal/models"
)

type JobController struct {
	db *gorm.DB
}

func NewJobController(db *gorm.DB) *JobController {
	return &JobController{db: db}
}

func (jc *JobController) GetJob(c *gin.Context) {
	var job models.TrainingJob
	if err := jc.db.Where("id = ?", c.Param("jobId")).First(&job).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}

	c.JSON(http.StatusOK, job)
}
