package services

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/mldash/backend/internal/logger"
	"github.com/mldash/backend/internal/models"
)

// JobStore is the persistence contract the training loop depends on. UpdateJob
// applies a partial update so concurrent cancellation writes to other columns
// are never clobbered.
type JobStore interface {
	GetJob(id string) (*models.TrainingJob, error)
	UpdateJob(id string, fields map[string]interface{}) error
	InsertMetric(metric *models.Metric) error
	UpdateExperimentStatus(experimentID string, status models.ExperimentStatus, completedAt *time.Time) error
}

const (
	stepsPerEpoch = 250
	stepStride    = 25

	defaultEpochDelay = 2 * time.Second
)

// Internal loop-exit signals. Neither marks the job failed.
var (
	errJobCancelled = errors.New("job cancelled")
	errShuttingDown = errors.New("service shutting down")
)

// TrainingService drives simulated training runs. It keeps a registry of
// active runners keyed by job id and guarantees at most one runner per job.
type TrainingService struct {
	store     JobStore
	hub       *NotificationHub
	generator *MetricGenerator

	// epochDelay throttles the simulated training speed. Tests override it.
	epochDelay time.Duration
	stopChan   <-chan struct{}

	mu      sync.Mutex
	runners map[string]struct{}
}

func NewTrainingService(store JobStore, hub *NotificationHub, generator *MetricGenerator, stopChan <-chan struct{}) *TrainingService {
	delay := defaultEpochDelay
	if raw := os.Getenv("EPOCH_DELAY_MS"); raw != "" {
		if ms, err := strconv.Atoi(raw); err == nil && ms >= 0 {
			delay = time.Duration(ms) * time.Millisecond
		}
	}

	return &TrainingService{
		store:      store,
		hub:        hub,
		generator:  generator,
		epochDelay: delay,
		stopChan:   stopChan,
		runners:    make(map[string]struct{}),
	}
}

// Start launches a runner for the job. If the job already has an active
// runner the call is a silent no-op; if the job does not exist it is logged
// and ignored. Never blocks on the training loop itself.
func (ts *TrainingService) Start(jobID string, config models.ExperimentConfig) {
	ts.mu.Lock()
	if _, active := ts.runners[jobID]; active {
		ts.mu.Unlock()
		logger.Debug("Training job already has an active runner, ignoring start", map[string]interface{}{
			"job_id": jobID,
		})
		return
	}
	ts.runners[jobID] = struct{}{}
	ts.mu.Unlock()

	if _, err := ts.store.GetJob(jobID); err != nil {
		ts.removeRunner(jobID)
		logger.Error("Cannot start training for unknown job", map[string]interface{}{
			"job_id": jobID,
			"error":  err.Error(),
		})
		return
	}

	now := time.Now().UTC()
	if err := ts.store.UpdateJob(jobID, map[string]interface{}{
		"status":     models.JobStatusRunning,
		"started_at": &now,
	}); err != nil {
		ts.removeRunner(jobID)
		logger.Error("Failed to mark job as running", map[string]interface{}{
			"job_id": jobID,
			"error":  err.Error(),
		})
		return
	}

	logger.WithJob(jobID).Info("Starting training run")

	go ts.run(jobID, config)
}

// ActiveRunners returns the number of currently registered runners.
func (ts *TrainingService) ActiveRunners() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return len(ts.runners)
}

func (ts *TrainingService) removeRunner(jobID string) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	delete(ts.runners, jobID)
}

// run executes one job's state machine to a terminal state. All failures are
// contained here; nothing propagates to the supervisor or other runners.
func (ts *TrainingService) run(jobID string, config models.ExperimentConfig) {
	defer ts.removeRunner(jobID)
	defer func() {
		if r := recover(); r != nil {
			ts.markFailed(jobID, fmt.Sprintf("training runner panicked: %v", r))
		}
	}()

	err := ts.trainLoop(jobID, config)
	switch {
	case err == nil:
		logger.WithJob(jobID).Info("Training run completed")
	case errors.Is(err, errJobCancelled):
		// Status was already set to cancelled externally; just exit.
		logger.WithJob(jobID).Info("Training run cancelled")
	case errors.Is(err, errShuttingDown):
		logger.WithJob(jobID).Warn("Training run interrupted by shutdown")
	default:
		ts.markFailed(jobID, err.Error())
	}
}

func (ts *TrainingService) trainLoop(jobID string, config models.ExperimentConfig) error {
	totalEpochs := config.Hyperparameters.NumEpochs
	if totalEpochs <= 0 {
		return fmt.Errorf("invalid config: num_epochs must be > 0, got %d", totalEpochs)
	}

	var experimentID string
	var lastSample MetricSample
	lastStep := 0

	for epoch := 0; epoch < totalEpochs; epoch++ {
		// Cancellation is cooperative: re-read the persisted status at each
		// epoch boundary and stop without further writes if it was flipped.
		job, err := ts.store.GetJob(jobID)
		if err != nil {
			return fmt.Errorf("failed to reload job: %w", err)
		}
		if job.Status == models.JobStatusCancelled {
			return errJobCancelled
		}
		experimentID = job.ExperimentID

		for step := 0; step < stepsPerEpoch; step += stepStride {
			sample := ts.generator.Generate(epoch, step, totalEpochs)

			metric := &models.Metric{
				JobID:        jobID,
				Epoch:        epoch,
				Step:         step,
				Loss:         sample.Loss,
				Accuracy:     &sample.Accuracy,
				LearningRate: &sample.LearningRate,
				Throughput:   &sample.Throughput,
				Timestamp:    time.Now().UTC(),
			}
			if err := ts.store.InsertMetric(metric); err != nil {
				return fmt.Errorf("failed to persist metric: %w", err)
			}

			progress := float64(epoch*stepsPerEpoch+step) / float64(totalEpochs*stepsPerEpoch) * 100
			if err := ts.store.UpdateJob(jobID, map[string]interface{}{
				"current_epoch": epoch,
				"progress":      progress,
			}); err != nil {
				return fmt.Errorf("failed to update job progress: %w", err)
			}

			lastSample = sample
			lastStep = step
		}

		ts.hub.Publish(jobID, MetricUpdateEvent{
			Type:  "metric_update",
			JobID: jobID,
			Epoch: epoch,
			Step:  lastStep,
			Metrics: MetricValues{
				Loss:         lastSample.Loss,
				Accuracy:     lastSample.Accuracy,
				LearningRate: lastSample.LearningRate,
				Throughput:   lastSample.Throughput,
			},
			Timestamp: time.Now().UTC(),
		})

		// Simulated training time. The sole suspension point in the loop;
		// must not hold any lock so shutdown and cancellation stay prompt.
		select {
		case <-time.After(ts.epochDelay):
		case <-ts.stopChan:
			return errShuttingDown
		}
	}

	completedAt := time.Now().UTC()
	if err := ts.store.UpdateJob(jobID, map[string]interface{}{
		"status":       models.JobStatusCompleted,
		"progress":     100.0,
		"completed_at": &completedAt,
	}); err != nil {
		return fmt.Errorf("failed to mark job as completed: %w", err)
	}
	if err := ts.store.UpdateExperimentStatus(experimentID, models.ExperimentStatusCompleted, &completedAt); err != nil {
		return fmt.Errorf("failed to mark experiment as completed: %w", err)
	}

	ts.hub.Publish(jobID, JobCompleteEvent{
		Type:   "job_complete",
		JobID:  jobID,
		Status: string(models.JobStatusCompleted),
		FinalMetrics: FinalMetrics{
			Loss:     lastSample.Loss,
			Accuracy: lastSample.Accuracy,
		},
		CompletedAt: completedAt,
	})

	return nil
}

// AbortInterrupted fails jobs that were mid-run when the process last
// stopped. Called once at startup, before any new runs are accepted.
func (ts *TrainingService) AbortInterrupted(jobs []models.TrainingJob) {
	for i := range jobs {
		if jobs[i].Status != models.JobStatusRunning {
			continue
		}
		ts.markFailed(jobs[i].ID, "interrupted by server restart")
	}
}

// markFailed records a runtime failure on the job and its owning experiment,
// then notifies subscribers.
func (ts *TrainingService) markFailed(jobID, message string) {
	logger.WithJob(jobID).Error("Training run failed: " + message)

	completedAt := time.Now().UTC()
	if err := ts.store.UpdateJob(jobID, map[string]interface{}{
		"status":        models.JobStatusFailed,
		"error_message": message,
		"completed_at":  &completedAt,
	}); err != nil {
		logger.Error("Failed to mark job as failed", map[string]interface{}{
			"job_id": jobID,
			"error":  err.Error(),
		})
		return
	}

	if job, err := ts.store.GetJob(jobID); err == nil {
		if err := ts.store.UpdateExperimentStatus(job.ExperimentID, models.ExperimentStatusFailed, &completedAt); err != nil {
			logger.Error("Failed to mark experiment as failed", map[string]interface{}{
				"job_id":        jobID,
				"experiment_id": job.ExperimentID,
				"error":         err.Error(),
			})
		}
	}

	ts.hub.Publish(jobID, JobFailedEvent{
		Type:        "job_failed",
		JobID:       jobID,
		Status:      string(models.JobStatusFailed),
		Error:       message,
		CompletedAt: completedAt,
	})
}
