// Package worker runs periodic maintenance tasks for the entitlement store:
// downgrading accounts whose paid tier has expired and purging daily-usage
// markers that can no longer affect any gate decision.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dona-app/entitlement/internal/metrics"
)

// Task is a single unit of maintenance work. Tasks must be safe to run
// repeatedly and concurrently with live traffic.
type Task interface {
	// Name identifies the task in logs and metrics.
	Name() string

	// Run performs one sweep and reports how many rows it touched.
	Run(ctx context.Context) (int64, error)
}

// Worker runs registered maintenance tasks on a fixed interval.
type Worker struct {
	tasks  []Task
	config Config
	logger *slog.Logger

	// Synchronization
	wg     sync.WaitGroup
	stopCh chan struct{}
}

// New creates a new Worker with the given configuration.
// The worker must be started with Start() and stopped with Stop().
func New(config Config, logger *slog.Logger) (*Worker, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Worker{
		config: config,
		logger: logger,
		stopCh: make(chan struct{}),
	}, nil
}

// Register adds a maintenance task to the worker. Call this before Start().
func (w *Worker) Register(task Task) {
	w.tasks = append(w.tasks, task)
	w.logger.Debug("Registered maintenance task", "task", task.Name())
}

// Start begins the maintenance loop. An initial sweep runs immediately so a
// freshly deployed instance does not wait a full interval to downgrade
// already-expired tiers.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)

	w.logger.Info("Maintenance worker started",
		"interval", w.config.Interval,
		"tasks", len(w.tasks),
	)
}

// Stop signals the worker to stop and waits for any in-flight sweep to
// finish. It respects the configured ShutdownTimeout.
func (w *Worker) Stop() {
	w.logger.Info("Stopping maintenance worker...")
	close(w.stopCh)

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("Maintenance worker stopped gracefully")
	case <-time.After(w.config.ShutdownTimeout):
		w.logger.Warn("Maintenance worker shutdown timeout exceeded, a task may still be running")
	}
}

// run is the main loop. It sweeps once on startup, then on every tick.
func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	w.sweep(ctx)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// sweep runs every registered task once. A failing task is logged and does
// not prevent the remaining tasks from running.
func (w *Worker) sweep(ctx context.Context) {
	for _, task := range w.tasks {
		select {
		case <-w.stopCh:
			return
		default:
		}

		w.runTask(ctx, task)
	}
}

func (w *Worker) runTask(ctx context.Context, task Task) {
	taskCtx, cancel := context.WithTimeout(ctx, w.config.TaskTimeout)
	defer cancel()

	start := time.Now()
	rows, err := task.Run(taskCtx)
	duration := time.Since(start)

	metrics.MaintenanceDuration.WithLabelValues(task.Name()).Observe(duration.Seconds())

	if err != nil {
		metrics.MaintenanceRunsTotal.WithLabelValues(task.Name(), "error").Inc()
		w.logger.Error("Maintenance task failed",
			"task", task.Name(),
			"duration_ms", duration.Milliseconds(),
			"error", err,
		)
		return
	}

	metrics.MaintenanceRunsTotal.WithLabelValues(task.Name(), "ok").Inc()
	metrics.MaintenanceRowsAffected.WithLabelValues(task.Name()).Add(float64(rows))

	if rows > 0 {
		w.logger.Info("Maintenance task completed",
			"task", task.Name(),
			"rows_affected", rows,
			"duration_ms", duration.Milliseconds(),
		)
	} else {
		w.logger.Debug("Maintenance task completed",
			"task", task.Name(),
			"rows_affected", rows,
		)
	}
}
