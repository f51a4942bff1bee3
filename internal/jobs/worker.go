// Package jobs runs the periodic maintenance loops: embedding backfill
// for chunks stored without a vector and expired-session cleanup.
package jobs

import (
	"context"
	"log"
	"time"
)

// JobProcessor is one unit of periodic work. ProcessJobs is invoked once
// per tick and must tolerate being called again after returning an error.
type JobProcessor interface {
	ProcessJobs(ctx context.Context) error
}

// Worker drives a JobProcessor on a fixed interval until stopped.
type Worker struct {
	processor    JobProcessor
	pollInterval time.Duration
	stopChan     chan struct{}
	doneChan     chan struct{}
}

// NewWorker creates a worker for the given processor.
func NewWorker(processor JobProcessor, pollInterval time.Duration) *Worker {
	return &Worker{
		processor:    processor,
		pollInterval: pollInterval,
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
}

// Start runs the polling loop. A failing tick is logged and the loop
// keeps going; transient oracle or database outages resolve themselves on
// a later tick.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	defer close(w.doneChan)

	log.Printf("jobs: worker started, poll interval %v", w.pollInterval)

	for {
		select {
		case <-ctx.Done():
			log.Println("jobs: worker stopped, context cancelled")
			return
		case <-w.stopChan:
			log.Println("jobs: worker stopped")
			return
		case <-ticker.C:
			if err := w.processor.ProcessJobs(ctx); err != nil {
				log.Printf("jobs: tick failed: %v", err)
			}
		}
	}
}

// Stop signals the loop to exit and waits for the current tick to finish.
func (w *Worker) Stop() {
	close(w.stopChan)
	<-w.doneChan
}
