package queue

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/OFFIS-RIT/bookgraph/internal/metrics"
	"github.com/OFFIS-RIT/bookgraph/internal/pipeline"
	"github.com/OFFIS-RIT/bookgraph/internal/task"
	"github.com/OFFIS-RIT/bookgraph/pkg/ai"
	"github.com/OFFIS-RIT/bookgraph/pkg/logger"
)

// PipelineFactory builds the pipeline for one job. The returned client is
// the one the pipeline talks to; its usage is logged after the run.
type PipelineFactory func(apiKey string) (*pipeline.Pipeline, ai.GraphAIClient, error)

// Runner executes jobs and records their outcome on the task store. Only the
// runner writes to a task once it was created.
type Runner struct {
	tasks   task.Store
	build   PipelineFactory
	metrics *metrics.Metrics
}

func NewRunner(tasks task.Store, build PipelineFactory, m *metrics.Metrics) *Runner {
	return &Runner{tasks: tasks, build: build, metrics: m}
}

// Run analyzes job. Analysis failures end up on the task and are not
// returned; the error is non-nil only when the task itself could not be
// updated.
func (r *Runner) Run(ctx context.Context, job Job) error {
	start := time.Now()
	_, err := r.tasks.Update(ctx, job.TaskID, task.Progress(10, "Ingesting and chunking..."))
	if errors.Is(err, task.ErrFinished) {
		logger.Warn("[Queue] Task already finished, skipping", "task_id", job.TaskID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("start task %s: %w", job.TaskID, err)
	}

	res, runErr := r.analyze(ctx, job)

	// record the outcome even if ctx was cancelled mid-run
	updateCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if runErr != nil {
		logger.Error("[Queue] Analysis failed", "task_id", job.TaskID, "book_id", job.BookID, "err", runErr)
		r.metrics.AnalysisFinished(string(task.StatusFailed), time.Since(start))
		if _, err := r.tasks.Update(updateCtx, job.TaskID, task.Fail(runErr)); err != nil {
			return fmt.Errorf("mark task %s failed: %w", job.TaskID, err)
		}
		return nil
	}

	if _, err := r.tasks.Update(updateCtx, job.TaskID, task.Complete(res)); err != nil {
		return fmt.Errorf("complete task %s: %w", job.TaskID, err)
	}
	r.metrics.AnalysisFinished(string(task.StatusCompleted), time.Since(start))

	logger.Info(
		"[Queue] Analysis complete",
		"task_id", job.TaskID,
		"book_id", res.BookID,
		"nodes", res.Nodes,
		"edges", res.Edges,
		"duration", time.Since(start).Round(time.Second),
	)
	return nil
}

func (r *Runner) analyze(ctx context.Context, job Job) (res *pipeline.Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			logger.Error("[Queue] Analysis panicked", "task_id", job.TaskID, "panic", p, "stack", string(debug.Stack()))
			err = fmt.Errorf("internal error: %v", p)
		}
	}()

	pl, client, err := r.build(job.APIKey)
	if err != nil {
		return nil, err
	}
	defer func() {
		usage := client.GetMetrics()
		r.metrics.ModelUsage(usage)
		logger.Info(
			"[Queue] AI Metrics",
			"task_id", job.TaskID,
			"input_tokens", usage.InputTokens,
			"output_tokens", usage.OutputTokens,
			"total_tokens", usage.TotalTokens,
			"duration", time.Duration(usage.DurationMs)*time.Millisecond,
		)
	}()

	sink := pipeline.ProgressFunc(func(percent int, message string) {
		if _, err := r.tasks.Update(ctx, job.TaskID, task.Progress(percent, message)); err != nil {
			logger.Warn("[Queue] Failed to update progress", "task_id", job.TaskID, "err", err)
		}
	})

	return pl.Analyze(ctx, pipeline.Request{
		BookID:  job.BookID,
		Title:   job.Title,
		FileKey: job.Filename,
	}, sink)
}
