package services

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// MetricSample is one synthetic training measurement.
type MetricSample struct {
	Loss         float64
	Accuracy     float64
	LearningRate float64
	Throughput   float64
}

// MetricGenerator produces simulated training metrics: exponential decay for
// loss, sigmoid growth for accuracy, linear decay for the learning rate and a
// noisy throughput around a fixed base. The random source is injectable so
// tests can be deterministic.
type MetricGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewMetricGenerator() *MetricGenerator {
	return NewMetricGeneratorWithSource(rand.New(rand.NewSource(time.Now().UnixNano())))
}

func NewMetricGeneratorWithSource(rng *rand.Rand) *MetricGenerator {
	return &MetricGenerator{rng: rng}
}

// Generate returns a metric sample for the given position in the training
// schedule. Callers must guarantee totalEpochs > 0.
func (g *MetricGenerator) Generate(epoch, step, totalEpochs int) MetricSample {
	progress := 0.0
	if totalEpochs > 0 {
		progress = float64(epoch) / float64(totalEpochs)
	}

	g.mu.Lock()
	lossNoise := g.rng.NormFloat64() * 0.05
	accuracyNoise := g.rng.NormFloat64() * 0.02
	throughputNoise := g.rng.NormFloat64() * 25
	g.mu.Unlock()

	loss := 2.5*math.Exp(-3.0*progress) + lossNoise
	loss = math.Max(0.01, loss)

	accuracy := 0.1 + (0.98-0.1)/(1+math.Exp(-5.0*(progress-0.5))) + accuracyNoise
	accuracy = clamp(accuracy, 0.0, 1.0)

	learningRate := 0.001 * (1 - progress*0.5)

	throughput := clamp(320+throughputNoise, 200, 400)

	return MetricSample{
		Loss:         loss,
		Accuracy:     accuracy,
		LearningRate: learningRate,
		Throughput:   throughput,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
