package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// IsTerminal reports whether no further status transitions are allowed.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

type TrainingJob struct {
	ID           string     `json:"id" gorm:"type:uuid;primaryKey"`
	ExperimentID string     `json:"experimentId" gorm:"type:uuid;not null;index"`
	Status       JobStatus  `json:"status" gorm:"type:varchar(50);not null;default:'pending'"`
	Progress     float64    `json:"progress" gorm:"default:0"`
	CurrentEpoch int        `json:"currentEpoch" gorm:"default:0"`
	TotalEpochs  int        `json:"totalEpochs" gorm:"not null"`
	ErrorMessage string     `json:"errorMessage" gorm:"type:text"`
	StartedAt    *time.Time `json:"startedAt"`
	CompletedAt  *time.Time `json:"completedAt"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`

	// Relationships
	Metrics []Metric `json:"metrics,omitempty" gorm:"foreignKey:JobID;constraint:OnDelete:CASCADE"`
}

func (TrainingJob) TableName() string {
	return "training_jobs"
}

func (j *TrainingJob) BeforeCreate(tx *gorm.DB) error {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	return nil
}
