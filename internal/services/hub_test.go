package services

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

type eventRecorder struct {
	mu     sync.Mutex
	events []interface{}
}

func (r *eventRecorder) observe(event interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *eventRecorder) snapshot() []interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]interface{}, len(r.events))
	copy(out, r.events)
	return out
}

func TestPublishWithoutSubscribers(t *testing.T) {
	hub := NewNotificationHub()

	// Must not panic or block.
	hub.Publish("job-1", MetricUpdateEvent{Type: "metric_update", JobID: "job-1"})
}

func TestPublishReachesAllObserversForJob(t *testing.T) {
	hub := NewNotificationHub()

	first := &eventRecorder{}
	second := &eventRecorder{}
	other := &eventRecorder{}

	hub.Subscribe("job-1", first.observe)
	hub.Subscribe("job-1", second.observe)
	hub.Subscribe("job-2", other.observe)

	hub.Publish("job-1", MetricUpdateEvent{Type: "metric_update", JobID: "job-1", Epoch: 3})

	for i, recorder := range []*eventRecorder{first, second} {
		events := recorder.snapshot()
		if len(events) != 1 {
			t.Fatalf("observer %d: expected 1 event, got %d", i, len(events))
		}
		update, ok := events[0].(MetricUpdateEvent)
		if !ok {
			t.Fatalf("observer %d: expected MetricUpdateEvent, got %T", i, events[0])
		}
		if update.Epoch != 3 {
			t.Errorf("observer %d: expected epoch 3, got %d", i, update.Epoch)
		}
	}

	if events := other.snapshot(); len(events) != 0 {
		t.Errorf("observer for another job received %d events", len(events))
	}
}

func TestUnsubscribeRemovesAllObservers(t *testing.T) {
	hub := NewNotificationHub()

	first := &eventRecorder{}
	second := &eventRecorder{}
	hub.Subscribe("job-1", first.observe)
	hub.Subscribe("job-1", second.observe)

	hub.Unsubscribe("job-1")
	hub.Publish("job-1", JobCompleteEvent{Type: "job_complete", JobID: "job-1"})

	if len(first.snapshot()) != 0 || len(second.snapshot()) != 0 {
		t.Error("observers still received events after unsubscribe")
	}
}

func TestFailingObserverDoesNotBlockOthers(t *testing.T) {
	hub := NewNotificationHub()

	recorder := &eventRecorder{}
	hub.Subscribe("job-1", func(event interface{}) error {
		return errors.New("connection reset")
	})
	hub.Subscribe("job-1", func(event interface{}) error {
		panic("observer bug")
	})
	hub.Subscribe("job-1", recorder.observe)

	hub.Publish("job-1", MetricUpdateEvent{Type: "metric_update", JobID: "job-1"})

	if len(recorder.snapshot()) != 1 {
		t.Error("healthy observer did not receive event after earlier observer failed")
	}
}

func TestPublishPreservesOrderPerObserver(t *testing.T) {
	hub := NewNotificationHub()

	recorder := &eventRecorder{}
	hub.Subscribe("job-1", recorder.observe)

	for epoch := 0; epoch < 5; epoch++ {
		hub.Publish("job-1", MetricUpdateEvent{Type: "metric_update", JobID: "job-1", Epoch: epoch})
	}

	events := recorder.snapshot()
	if len(events) != 5 {
		t.Fatalf("expected 5 events, got %d", len(events))
	}
	for i, event := range events {
		if update := event.(MetricUpdateEvent); update.Epoch != i {
			t.Errorf("event %d: expected epoch %d, got %d", i, i, update.Epoch)
		}
	}
}

func TestConcurrentSubscribeAndPublish(t *testing.T) {
	hub := NewNotificationHub()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		jobID := fmt.Sprintf("job-%d", i)
		recorder := &eventRecorder{}

		wg.Add(2)
		go func() {
			defer wg.Done()
			hub.Subscribe(jobID, recorder.observe)
		}()
		go func() {
			defer wg.Done()
			for n := 0; n < 20; n++ {
				hub.Publish(jobID, MetricUpdateEvent{Type: "metric_update", JobID: jobID, Epoch: n})
			}
		}()
	}
	wg.Wait()
}
