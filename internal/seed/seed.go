package seed

import (
	"fmt"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/mldash/backend/internal/models"
	"github.com/mldash/backend/internal/services"
)

// IsEmpty reports whether the database holds no datasets yet.
func IsEmpty(db *gorm.DB) (bool, error) {
	var count int64
	if err := db.Model(&models.Dataset{}).Count(&count).Error; err != nil {
		return false, err
	}
	return count == 0, nil
}

// Run populates the database with demo datasets, experiments and one
// completed training run with a full metric history, so the dashboard has
// something to show on first boot.
func Run(db *gorm.DB) error {
	datasets := []models.Dataset{
		{
			Name:        "ImageNet Subset 2024",
			Modality:    models.ModalityImage,
			SizeBytes:   15728640000,
			FileCount:   50000,
			Description: "Curated ImageNet subset for quick experimentation",
			StoragePath: "/data/images/imagenet-subset",
			Metadata: models.JSONB{
				"resolution": "224x224",
				"format":     "jpeg",
				"classes":    1000,
			},
		},
		{
			Name:        "Audio Samples 2026",
			Modality:    models.ModalityAudio,
			SizeBytes:   5368709120,
			FileCount:   10000,
			Description: "Speech recognition training data",
			StoragePath: "/data/audio/speech-2026",
			Metadata: models.JSONB{
				"sample_rate": 16000,
				"format":      "wav",
			},
		},
		{
			Name:        "Text Corpus Large",
			Modality:    models.ModalityText,
			SizeBytes:   2147483648,
			FileCount:   100000,
			Description: "Large text corpus for language modeling",
			Metadata: models.JSONB{
				"tokens":    50000000,
				"languages": []string{"en", "es", "fr"},
			},
		},
	}

	for i := range datasets {
		if err := db.Create(&datasets[i]).Error; err != nil {
			return fmt.Errorf("failed to seed dataset %s: %w", datasets[i].Name, err)
		}
	}

	now := time.Now().UTC()
	createdAt := now.Add(-48 * time.Hour)
	completedAt := now.Add(-24 * time.Hour)

	config := models.JSONB{
		"model_type": "multimodal_transformer",
		"hyperparameters": map[string]interface{}{
			"batch_size":    32,
			"learning_rate": 0.001,
			"optimizer":     "adamw",
			"num_epochs":    10,
		},
	}

	completed := models.Experiment{
		Name:        "Baseline Transformer",
		Description: "Reference run for the demo dashboard",
		DatasetID:   &datasets[0].ID,
		Status:      models.ExperimentStatusCompleted,
		Config:      config,
		CreatedBy:   "demo",
		Tags:        pq.StringArray{"vision", "transformer", "baseline"},
		CreatedAt:   createdAt,
		StartedAt:   &createdAt,
		CompletedAt: &completedAt,
	}
	if err := db.Create(&completed).Error; err != nil {
		return fmt.Errorf("failed to seed experiment: %w", err)
	}

	draft := models.Experiment{
		Name:        "LM Fine-tune Draft",
		Description: "Not started yet",
		DatasetID:   &datasets[2].ID,
		Status:      models.ExperimentStatusCreated,
		Config: models.JSONB{
			"model_type": "language_model",
			"hyperparameters": map[string]interface{}{
				"batch_size":    16,
				"learning_rate": 0.0005,
				"optimizer":     "adam",
				"num_epochs":    5,
			},
		},
		CreatedBy: "demo",
		Tags:      pq.StringArray{"nlp", "draft"},
	}
	if err := db.Create(&draft).Error; err != nil {
		return fmt.Errorf("failed to seed experiment: %w", err)
	}

	return seedCompletedRun(db, &completed, createdAt, completedAt)
}

// seedCompletedRun writes a finished job plus its full simulated metric
// history.
func seedCompletedRun(db *gorm.DB, experiment *models.Experiment, startedAt, completedAt time.Time) error {
	config, err := models.ParseExperimentConfig(experiment.Config)
	if err != nil {
		return err
	}
	totalEpochs := config.Hyperparameters.NumEpochs

	job := models.TrainingJob{
		ExperimentID: experiment.ID,
		Status:       models.JobStatusCompleted,
		Progress:     100,
		CurrentEpoch: totalEpochs - 1,
		TotalEpochs:  totalEpochs,
		StartedAt:    &startedAt,
		CompletedAt:  &completedAt,
	}
	if err := db.Create(&job).Error; err != nil {
		return fmt.Errorf("failed to seed training job: %w", err)
	}

	generator := services.NewMetricGenerator()
	interval := completedAt.Sub(startedAt) / time.Duration(totalEpochs*10)

	timestamp := startedAt
	for epoch := 0; epoch < totalEpochs; epoch++ {
		for step := 0; step < 250; step += 25 {
			sample := generator.Generate(epoch, step, totalEpochs)
			metric := models.Metric{
				JobID:        job.ID,
				Epoch:        epoch,
				Step:         step,
				Loss:         sample.Loss,
				Accuracy:     &sample.Accuracy,
				LearningRate: &sample.LearningRate,
				Throughput:   &sample.Throughput,
				Timestamp:    timestamp,
			}
			if err := db.Create(&metric).Error; err != nil {
				return fmt.Errorf("failed to seed metric: %w", err)
			}
			timestamp = timestamp.Add(interval)
		}
	}

	return nil
}
