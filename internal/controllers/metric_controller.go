package controllers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"gorm.io/gorm"

	"github.com/mldash/backend/internal/logger"
	"github.com/mldash/backend/internal/models"
	"github.com/mldash/backend/internal/services"
)

// streamBufferSize bounds how many undelivered events a streaming client may
// lag behind before updates are dropped for it.
const streamBufferSize = 64

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// CORS policy for the live channel is enforced at the proxy, not here.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type MetricController struct {
	db  *gorm.DB
	hub *services.NotificationHub
}

func NewMetricController(db *gorm.DB, hub *services.NotificationHub) *MetricController {
	return &MetricController{db: db, hub: hub}
}

// GetJobMetrics returns a job's metric history with optional epoch range
// filtering and stride-based downsampling.
func (mc *MetricController) GetJobMetrics(c *gin.Context) {
	jobID := c.Param("jobId")

	var job models.TrainingJob
	if err := mc.db.Where("id = ?", jobID).First(&job).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
		return
	}

	query := mc.db.Where("job_id = ?", jobID)
	if startEpoch, err := strconv.Atoi(c.DefaultQuery("start_epoch", "0")); err == nil {
		query = query.Where("epoch >= ?", startEpoch)
	}
	if raw := c.Query("end_epoch"); raw != "" {
		if endEpoch, err := strconv.Atoi(raw); err == nil {
			query = query.Where("epoch <= ?", endEpoch)
		}
	}

	var metrics []models.Metric
	if err := query.Order("epoch, step").Find(&metrics).Error; err != nil {
		logger.WithError(err, "metric_controller").Error("Failed to fetch metrics")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch metrics"})
		return
	}

	stride, _ := strconv.Atoi(c.DefaultQuery("step", "1"))
	if stride < 1 {
		stride = 1
	}
	sampled := sampleMetrics(metrics, stride)

	c.JSON(http.StatusOK, gin.H{
		"job_id":  jobID,
		"metrics": sampled,
		"summary": buildMetricSummary(len(metrics), sampled),
	})
}

// sampleMetrics keeps every stride-th point of an ordered series.
func sampleMetrics(metrics []models.Metric, stride int) []models.Metric {
	sampled := make([]models.Metric, 0, (len(metrics)+stride-1)/stride)
	for i := 0; i < len(metrics); i += stride {
		sampled = append(sampled, metrics[i])
	}
	return sampled
}

func buildMetricSummary(totalPoints int, metrics []models.Metric) gin.H {
	if len(metrics) == 0 {
		return gin.H{
			"total_points":     totalPoints,
			"returned_points":  0,
			"best_loss":        0.0,
			"best_accuracy":    0.0,
			"current_loss":     0.0,
			"current_accuracy": 0.0,
		}
	}

	bestLoss := metrics[0].Loss
	bestAccuracy := 0.0
	currentAccuracy := 0.0
	for _, m := range metrics {
		if m.Loss < bestLoss {
			bestLoss = m.Loss
		}
		if m.Accuracy != nil {
			if *m.Accuracy > bestAccuracy {
				bestAccuracy = *m.Accuracy
			}
			currentAccuracy = *m.Accuracy
		}
	}

	return gin.H{
		"total_points":     totalPoints,
		"returned_points":  len(metrics),
		"best_loss":        bestLoss,
		"best_accuracy":    bestAccuracy,
		"current_loss":     metrics[len(metrics)-1].Loss,
		"current_accuracy": currentAccuracy,
	}
}

// pongMessage is routed through the update channel so the connection has a
// single writer.
type pongMessage struct{}

// StreamJobMetrics upgrades the connection to a WebSocket and forwards live
// training events for the job until the client disconnects. The client may
// send "ping" as a liveness probe and receives "pong" back.
func (mc *MetricController) StreamJobMetrics(c *gin.Context) {
	jobID := c.Param("jobId")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.WithError(err, "metric_controller").Error("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	// Bridge from the runner's goroutine into this connection through a
	// buffered channel; the hub callback must never block on a slow client.
	updates := make(chan interface{}, streamBufferSize)
	mc.hub.Subscribe(jobID, func(event interface{}) error {
		select {
		case updates <- event:
			return nil
		default:
			return fmt.Errorf("stream buffer full for job %s, dropping event", jobID)
		}
	})
	defer mc.hub.Unsubscribe(jobID)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case event := <-updates:
				if _, ok := event.(pongMessage); ok {
					if err := conn.WriteMessage(websocket.TextMessage, []byte("pong")); err != nil {
						return
					}
					continue
				}
				if err := conn.WriteJSON(event); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	logger.WithJob(jobID).Debug("Metrics stream connected")

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if messageType == websocket.TextMessage && string(data) == "ping" {
			select {
			case updates <- pongMessage{}:
			default:
			}
		}
	}

	close(done)
	logger.WithJob(jobID).Debug("Metrics stream disconnected")
}
