package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Metric is one persisted training sample. Rows are append-only: per job the
// (epoch, step) pairs are unique and strictly increasing in insertion order.
type Metric struct {
	ID    string `json:"id" gorm:"type:uuid;primaryKey"`
	JobID string `json:"jobId" gorm:"type:uuid;not null;index;index:idx_metrics_job_epoch_step,priority:1"`
	Epoch int    `json:"epoch" gorm:"not null;index:idx_metrics_job_epoch_step,priority:2"`
	Step  int    `json:"step" gorm:"not null;index:idx_metrics_job_epoch_step,priority:3"`

	// Core metrics
	Loss         float64  `json:"loss" gorm:"not null"`
	Accuracy     *float64 `json:"accuracy"`
	LearningRate *float64 `json:"learningRate"`

	// Performance metrics
	Throughput     *float64 `json:"throughput"`
	GPUUtilization *float64 `json:"gpuUtilization"`
	MemoryUsedGB   *float64 `json:"memoryUsedGb"`

	CustomMetrics JSONB `json:"customMetrics" gorm:"type:jsonb"`

	Timestamp time.Time `json:"timestamp"`
}

func (Metric) TableName() string {
	return "metrics"
}

func (m *Metric) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}
