package services

import (
	"sync"
	"time"

	"github.com/mldash/backend/internal/logger"
)

// Observer receives event payloads for a subscribed job. Errors are logged
// and swallowed; they never affect the publishing runner or other observers.
type Observer func(event interface{}) error

type MetricValues struct {
	Loss         float64 `json:"loss"`
	Accuracy     float64 `json:"accuracy"`
	LearningRate float64 `json:"learning_rate"`
	Throughput   float64 `json:"throughput"`
}

type MetricUpdateEvent struct {
	Type      string       `json:"type"`
	JobID     string       `json:"job_id"`
	Epoch     int          `json:"epoch"`
	Step      int          `json:"step"`
	Metrics   MetricValues `json:"metrics"`
	Timestamp time.Time    `json:"timestamp"`
}

type FinalMetrics struct {
	Loss     float64 `json:"loss"`
	Accuracy float64 `json:"accuracy"`
}

type JobCompleteEvent struct {
	Type         string       `json:"type"`
	JobID        string       `json:"job_id"`
	Status       string       `json:"status"`
	FinalMetrics FinalMetrics `json:"final_metrics"`
	CompletedAt  time.Time    `json:"completed_at"`
}

type JobFailedEvent struct {
	Type        string    `json:"type"`
	JobID       string    `json:"job_id"`
	Status      string    `json:"status"`
	Error       string    `json:"error"`
	CompletedAt time.Time `json:"completed_at"`
}

// NotificationHub fans live job updates out to registered observers. The lock
// guards only the registry; delivery runs on a snapshot so a slow observer
// never blocks subscription changes for other jobs.
type NotificationHub struct {
	mu        sync.RWMutex
	observers map[string][]Observer
}

func NewNotificationHub() *NotificationHub {
	return &NotificationHub{
		observers: make(map[string][]Observer),
	}
}

// Subscribe registers an observer for updates on a job. Multiple observers
// per job are permitted.
func (h *NotificationHub) Subscribe(jobID string, observer Observer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.observers[jobID] = append(h.observers[jobID], observer)
}

// Unsubscribe removes all observers for a job.
func (h *NotificationHub) Unsubscribe(jobID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.observers, jobID)
}

// Publish delivers an event to every observer currently registered for the
// job, in registration order. Delivery is best-effort: one failing observer
// does not prevent delivery to the rest.
func (h *NotificationHub) Publish(jobID string, event interface{}) {
	h.mu.RLock()
	registered := h.observers[jobID]
	observers := make([]Observer, len(registered))
	copy(observers, registered)
	h.mu.RUnlock()

	for _, observer := range observers {
		h.deliver(jobID, observer, event)
	}
}

func (h *NotificationHub) deliver(jobID string, observer Observer, event interface{}) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Observer panicked during delivery", map[string]interface{}{
				"job_id": jobID,
				"panic":  r,
			})
		}
	}()

	if err := observer(event); err != nil {
		logger.Error("Failed to notify subscriber", map[string]interface{}{
			"job_id": jobID,
			"error":  err.Error(),
		})
	}
}
