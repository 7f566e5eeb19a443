package crawler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scrd/availability-crawler/internal/session"
)

// Task is one unit of orchestrator work: a site adapter plus the session
// profile and sink it sweeps with.
type Task struct {
	Adapter SiteAdapter
	Profile session.Profile
	Sink    Sink
	Days    int
}

// Orchestrator runs one crawl task per site concurrently, with per-site
// failure isolation. The only state shared across tasks is the availability
// store behind each sink, which is concurrent-safe by contract.
type Orchestrator struct {
	sessions  session.Factory
	snapshots SnapshotSink
	logger    *zap.Logger
}

// NewOrchestrator wires the session factory tasks acquire from. snapshots
// may be nil.
func NewOrchestrator(sessions session.Factory, snapshots SnapshotSink, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		sessions:  sessions,
		snapshots: snapshots,
		logger:    logger,
	}
}

// Run executes every task and blocks until all results are in. The run
// itself never fails: per-site outcomes land in the returned results, sorted
// by site for stable reporting.
func (o *Orchestrator) Run(ctx context.Context, tasks []Task) []TaskResult {
	results := make([]TaskResult, len(tasks))
	var wg sync.WaitGroup
	for i, task := range tasks {
		wg.Add(1)
		go func(slot int, t Task) {
			defer wg.Done()
			results[slot] = o.runTask(ctx, t)
		}(i, task)
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Site < results[j].Site })
	return results
}

// runTask drives one site's task through its state machine:
// pending -> running -> completed|failed. The session acquired on entering
// running is released on every exit path.
func (o *Orchestrator) runTask(ctx context.Context, task Task) TaskResult {
	result := TaskResult{
		TaskID: uuid.NewString(),
		Site:   task.Adapter.Site(),
		Status: TaskPending,
	}
	taskLog := o.logger.With(zap.String("site", result.Site), zap.String("task_id", result.TaskID))
	start := time.Now()

	if err := ctx.Err(); err != nil {
		result.Status = TaskFailed
		result.Err = fmt.Errorf("task not started: %w", err)
		metrics().tasks.WithLabelValues(result.Site, string(TaskFailed)).Inc()
		return result
	}

	sess, err := o.sessions.Acquire(ctx, task.Profile)
	if err != nil {
		result.Status = TaskFailed
		result.Err = fmt.Errorf("acquire session: %w", err)
		result.Duration = time.Since(start)
		taskLog.Error("task failed before sweep", zap.Error(result.Err))
		metrics().tasks.WithLabelValues(result.Site, string(TaskFailed)).Inc()
		return result
	}
	defer func() {
		if cerr := sess.Close(context.Background()); cerr != nil {
			taskLog.Warn("session close failed", zap.Error(cerr))
		}
	}()

	result.Status = TaskRunning
	taskLog.Info("task running")

	engine := NewEngine(task.Adapter, task.Days, o.snapshots, o.logger)
	result.Counters = engine.Sweep(ctx, sess, task.Sink)
	result.Duration = time.Since(start)

	result.Status = TaskCompleted
	metrics().tasks.WithLabelValues(result.Site, string(TaskCompleted)).Inc()
	metrics().sweepSeconds.WithLabelValues(result.Site).Observe(result.Duration.Seconds())
	taskLog.Info("task completed",
		zap.Int("units_attempted", result.Counters.UnitsAttempted),
		zap.Int("units_skipped", result.Counters.UnitsSkipped),
		zap.Int("records_written", result.Counters.RecordsWritten),
		zap.Int("unmatched", result.Counters.Unmatched),
		zap.Duration("duration", result.Duration),
	)
	return result
}
