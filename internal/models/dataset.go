package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Modality string

const (
	ModalityText       Modality = "text"
	ModalityImage      Modality = "image"
	ModalityAudio      Modality = "audio"
	ModalityVideo      Modality = "video"
	ModalityMultimodal Modality = "multimodal"
)

type Dataset struct {
	ID          string     `json:"id" gorm:"type:uuid;primaryKey"`
	Name        string     `json:"name" gorm:"type:varchar(255);not null"`
	Modality    Modality   `json:"modality" gorm:"type:varchar(50);not null"`
	SizeBytes   int64      `json:"sizeBytes" gorm:"not null"`
	FileCount   int        `json:"fileCount" gorm:"not null"`
	Description string     `json:"description" gorm:"type:text"`
	StoragePath string     `json:"storagePath" gorm:"type:varchar(500)"`
	Metadata    JSONB      `json:"metadata" gorm:"type:jsonb"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt"`
}

func (Dataset) TableName() string {
	return "datasets"
}

func (d *Dataset) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}
