package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

type ExperimentStatus string

const (
	ExperimentStatusCreated   ExperimentStatus = "created"
	ExperimentStatusQueued    ExperimentStatus = "queued"
	ExperimentStatusRunning   ExperimentStatus = "running"
	ExperimentStatusCompleted ExperimentStatus = "completed"
	ExperimentStatusFailed    ExperimentStatus = "failed"
	ExperimentStatusCancelled ExperimentStatus = "cancelled"
)

type Experiment struct {
	ID          string           `json:"id" gorm:"type:uuid;primaryKey"`
	Name        string           `json:"name" gorm:"type:varchar(255);not null"`
	Description string           `json:"description" gorm:"type:text"`
	DatasetID   *string          `json:"datasetId" gorm:"type:uuid;index"`
	Status      ExperimentStatus `json:"status" gorm:"type:varchar(50);not null;default:'created'"`
	Config      JSONB            `json:"config" gorm:"type:jsonb;not null"`
	CreatedBy   string           `json:"createdBy" gorm:"type:varchar(100)"`
	Tags        pq.StringArray   `json:"tags" gorm:"type:text[]"`
	CreatedAt   time.Time        `json:"createdAt"`
	StartedAt   *time.Time       `json:"startedAt"`
	CompletedAt *time.Time       `json:"completedAt"`

	// Relationships
	Dataset      *Dataset      `json:"dataset,omitempty" gorm:"foreignKey:DatasetID;constraint:OnDelete:SET NULL"`
	TrainingJobs []TrainingJob `json:"trainingJobs,omitempty" gorm:"foreignKey:ExperimentID;constraint:OnDelete:CASCADE"`
}

func (Experiment) TableName() string {
	return "experiments"
}

func (e *Experiment) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

// LatestJob returns the most recently created training job, or nil when the
// experiment has never been started. Only the latest job drives the
// experiment's displayed progress.
func (e *Experiment) LatestJob() *TrainingJob {
	var latest *TrainingJob
	for i := range e.TrainingJobs {
		job := &e.TrainingJobs[i]
		if latest == nil || job.CreatedAt.After(latest.CreatedAt) {
			latest = job
		}
	}
	return latest
}
