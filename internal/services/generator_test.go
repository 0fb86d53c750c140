package services

import (
	"math"
	"math/rand"
	"testing"
)

func TestGenerateBounds(t *testing.T) {
	generator := NewMetricGenerator()

	totalEpochs := 10
	for epoch := 0; epoch < totalEpochs; epoch++ {
		for step := 0; step < 250; step += 25 {
			sample := generator.Generate(epoch, step, totalEpochs)

			if sample.Loss < 0.01 {
				t.Errorf("epoch %d step %d: loss %f below floor 0.01", epoch, step, sample.Loss)
			}
			if sample.Accuracy < 0 || sample.Accuracy > 1 {
				t.Errorf("epoch %d step %d: accuracy %f outside [0, 1]", epoch, step, sample.Accuracy)
			}
			if sample.Throughput < 200 || sample.Throughput > 400 {
				t.Errorf("epoch %d step %d: throughput %f outside [200, 400]", epoch, step, sample.Throughput)
			}
		}
	}
}

func TestGenerateLearningRateSchedule(t *testing.T) {
	generator := NewMetricGenerator()

	tests := []struct {
		name        string
		epoch       int
		totalEpochs int
		expected    float64
	}{
		{"first epoch", 0, 10, 0.001},
		{"midpoint", 5, 10, 0.001 * (1 - 0.5*0.5)},
		{"last epoch", 9, 10, 0.001 * (1 - 0.9*0.5)},
		{"single epoch run", 0, 1, 0.001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sample := generator.Generate(tt.epoch, 0, tt.totalEpochs)
			if math.Abs(sample.LearningRate-tt.expected) > 1e-12 {
				t.Errorf("expected learning rate %g, got %g", tt.expected, sample.LearningRate)
			}
		})
	}
}

func TestGenerateLossDecays(t *testing.T) {
	// With a fixed seed the noise sequence is reproducible, and over a long
	// run the decay term dominates: early-epoch loss must exceed late-epoch
	// loss on average.
	generator := NewMetricGeneratorWithSource(rand.New(rand.NewSource(42)))

	totalEpochs := 20
	var earlySum, lateSum float64
	for i := 0; i < 10; i++ {
		earlySum += generator.Generate(0, i*25, totalEpochs).Loss
		lateSum += generator.Generate(totalEpochs-1, i*25, totalEpochs).Loss
	}

	if earlySum <= lateSum {
		t.Errorf("expected average loss to decay, early sum %f <= late sum %f", earlySum, lateSum)
	}
}

func TestGenerateDeterministicWithSeededSource(t *testing.T) {
	a := NewMetricGeneratorWithSource(rand.New(rand.NewSource(7)))
	b := NewMetricGeneratorWithSource(rand.New(rand.NewSource(7)))

	for i := 0; i < 50; i++ {
		sampleA := a.Generate(i%5, (i%10)*25, 5)
		sampleB := b.Generate(i%5, (i%10)*25, 5)
		if sampleA != sampleB {
			t.Fatalf("seeded generators diverged at draw %d: %+v vs %+v", i, sampleA, sampleB)
		}
	}
}

func TestGenerateConcurrentUse(t *testing.T) {
	generator := NewMetricGenerator()

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 100; j++ {
				sample := generator.Generate(j%10, (j%10)*25, 10)
				if sample.Loss < 0.01 {
					t.Errorf("loss %f below floor under concurrent use", sample.Loss)
				}
			}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
}
