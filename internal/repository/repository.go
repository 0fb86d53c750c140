package repository

import (
	"time"

	"github.com/mldash/backend/internal/models"
	"gorm.io/gorm"
)

// Repository implements the persistence contract consumed by the training
// service over gorm.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetJob retrieves a training job by ID. Returns gorm.ErrRecordNotFound when
// the job does not exist.
func (r *Repository) GetJob(id string) (*models.TrainingJob, error) {
	var job models.TrainingJob
	if err := r.db.Where("id = ?", id).First(&job).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// UpdateJob applies a partial update to a training job row.
func (r *Repository) UpdateJob(id string, fields map[string]interface{}) error {
	return r.db.Model(&models.TrainingJob{}).
		Where("id = ?", id).
		Updates(fields).Error
}

// InsertMetric appends one metric sample.
func (r *Repository) InsertMetric(metric *models.Metric) error {
	return r.db.Create(metric).Error
}

// UpdateExperimentStatus updates an experiment's lifecycle status.
func (r *Repository) UpdateExperimentStatus(experimentID string, status models.ExperimentStatus, completedAt *time.Time) error {
	fields := map[string]interface{}{
		"status": status,
	}
	if completedAt != nil {
		fields["completed_at"] = completedAt
	}
	return r.db.Model(&models.Experiment{}).
		Where("id = ?", experimentID).
		Updates(fields).Error
}

// ListActiveJobs lists all jobs that are not in a terminal state.
func (r *Repository) ListActiveJobs() ([]models.TrainingJob, error) {
	var jobs []models.TrainingJob
	err := r.db.Where("status NOT IN (?)", []models.JobStatus{
		models.JobStatusCompleted,
		models.JobStatusFailed,
		models.JobStatusCancelled,
	}).Order("created_at DESC").Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}
