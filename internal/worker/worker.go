package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"jan-server/services/helpdesk-api/internal/infrastructure/metrics"
)

// Worker processes tasks until the queue is closed.
type Worker struct {
	id          int
	tasks       <-chan Task
	taskTimeout time.Duration
	log         zerolog.Logger
}

// NewWorker creates a new background worker.
func NewWorker(id int, tasks <-chan Task, taskTimeout time.Duration, log zerolog.Logger) *Worker {
	return &Worker{
		id:          id,
		tasks:       tasks,
		taskTimeout: taskTimeout,
		log:         log.With().Int("worker_id", id).Str("component", "worker").Logger(),
	}
}

func (w *Worker) Start(ctx context.Context) {
	w.log.Debug().Msg("worker started")
	for task := range w.tasks {
		w.process(ctx, task)
	}
	w.log.Debug().Msg("worker stopped")
}

func (w *Worker) process(ctx context.Context, task Task) {
	taskCtx, cancel := context.WithTimeout(ctx, w.taskTimeout)
	defer cancel()

	start := time.Now()
	err := w.run(taskCtx, task)
	if err != nil {
		metrics.RecordBackgroundTask(task.Name, "error")
		w.log.Warn().Err(err).Str("task", task.Name).Dur("duration", time.Since(start)).Msg("background task failed")
		return
	}
	metrics.RecordBackgroundTask(task.Name, "ok")
	w.log.Debug().Str("task", task.Name).Dur("duration", time.Since(start)).Msg("background task completed")
}

// run converts a panicking task into an error so one bad task cannot kill the worker.
func (w *Worker) run(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task %s panicked: %v", task.Name, r)
		}
	}()
	return task.Run(ctx)
}
