// Package task tracks the state of analysis runs.
package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned for unknown task IDs.
var ErrNotFound = errors.New("task not found")

type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Task is the observable state of one run. Progress is a percentage that
// only grows while the task is processing.
type Task struct {
	ID        string          `json:"task_id"`
	Status    Status          `json:"status"`
	Progress  int             `json:"progress"`
	Message   string          `json:"message"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Done reports whether the task reached a final status.
func (t Task) Done() bool {
	return t.Status == StatusCompleted || t.Status == StatusFailed
}

// Mutation changes a task inside Store.Update.
type Mutation func(*Task) error

// Store keeps tasks. Update applies a mutation atomically per task.
type Store interface {
	Create(ctx context.Context) (Task, error)
	Get(ctx context.Context, id string) (Task, error)
	Update(ctx context.Context, id string, fn Mutation) (Task, error)
}

func newTask(now time.Time) Task {
	return Task{
		ID:        uuid.NewString(),
		Status:    StatusProcessing,
		Progress:  0,
		Message:   "Starting...",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ErrFinished is returned by mutations on tasks that already completed or
// failed.
var ErrFinished = errors.New("task already finished")

// Progress moves a processing task forward. Lower percentages than the
// current one keep the old value but still replace the message.
func Progress(percent int, message string) Mutation {
	return func(t *Task) error {
		if t.Done() {
			return ErrFinished
		}
		percent = min(max(percent, 0), 100)
		if percent > t.Progress {
			t.Progress = percent
		}
		t.Message = message
		return nil
	}
}

// Complete marks the task completed with progress 100 and stores result as
// JSON.
func Complete(result any) Mutation {
	return func(t *Task) error {
		if t.Done() {
			return ErrFinished
		}
		raw, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("encode task result: %w", err)
		}
		t.Status = StatusCompleted
		t.Progress = 100
		t.Message = "Analysis complete."
		t.Result = raw
		return nil
	}
}

// Fail marks the task failed with cause as its error text.
func Fail(cause error) Mutation {
	return func(t *Task) error {
		if t.Done() {
			return ErrFinished
		}
		t.Status = StatusFailed
		t.Error = cause.Error()
		return nil
	}
}
