// Package cleanup provides the background worker that evicts expired cache entries and
// prunes dead tenant connections.
package cleanup

import (
	"context"
	"time"

	"github.com/AtRiskMedia/consent-banner-go/internal/infrastructure/caching/interfaces"
	"github.com/AtRiskMedia/consent-banner-go/internal/infrastructure/observability/logging"
)

// Task is one periodic cleanup step returning how many items it removed.
type Task struct {
	Name string
	Run  func() int
}

// Worker handles background cleanup operations
type Worker struct {
	interval time.Duration
	tasks    []Task
	logger   *logging.ChanneledLogger
}

// NewWorker creates a worker running tasks every interval.
func NewWorker(interval time.Duration, logger *logging.ChanneledLogger, tasks ...Task) *Worker {
	return &Worker{interval: interval, tasks: tasks, logger: logger}
}

// SweepTask adapts a cache that needs eviction.
func SweepTask(s interfaces.Sweeper) Task {
	return Task{Name: "widget-cache", Run: s.Sweep}
}

// Start blocks until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Cache().Info("Cleanup worker started", "interval", w.interval, "tasks", len(w.tasks))
	for {
		select {
		case <-ctx.Done():
			w.logger.Shutdown().Info("Cleanup worker stopping")
			return
		case <-ticker.C:
			w.RunOnce()
		}
	}
}

// RunOnce executes every task once. A panicking task is logged and skipped.
func (w *Worker) RunOnce() map[string]int {
	start := time.Now()
	results := make(map[string]int, len(w.tasks))
	for _, task := range w.tasks {
		results[task.Name] = w.run(task)
	}
	w.logger.Cache().Debug("Cleanup pass completed", "results", results, "duration", time.Since(start))
	return results
}

func (w *Worker) run(task Task) (n int) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Cache().Error("Cleanup task panicked", "task", task.Name, "panic", r)
			n = 0
		}
	}()
	return task.Run()
}
