package syssched

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/open-control-systems/ping-monitor/components/status"
)

// AsyncTaskRunnerParams configures the task execution.
type AsyncTaskRunnerParams struct {
	// UpdateInterval - how often to run the task.
	UpdateInterval time.Duration
}

// AsyncTaskRunner periodically runs task in the standalone goroutine.
//
// Remarks:
//   - The task is run once immediately after Start(), then once per UpdateInterval.
//   - A panic inside the task is recovered, reported as status.StatusError to the
//     handler, and the loop continues.
//   - Task runs never overlap.
type AsyncTaskRunner struct {
	ctx      context.Context
	cancel   context.CancelFunc
	doneCh   chan struct{}
	task     Task
	handler  ErrorHandler
	params   AsyncTaskRunnerParams
	startOne sync.Once
}

// NewAsyncTaskRunner is an initialization of AsyncTaskRunner.
//
// Parameters:
//   - ctx - parent context, the runner is stopped when ctx is canceled.
//   - task - task to run periodically.
//   - handler - optional handler for task errors, can be nil.
//   - params - execution parameters.
func NewAsyncTaskRunner(
	ctx context.Context,
	task Task,
	handler ErrorHandler,
	params AsyncTaskRunnerParams,
) *AsyncTaskRunner {
	ctx, cancel := context.WithCancel(ctx)

	return &AsyncTaskRunner{
		ctx:     ctx,
		cancel:  cancel,
		doneCh:  make(chan struct{}),
		task:    task,
		handler: handler,
		params:  params,
	}
}

// Start begins asynchronous task processing.
func (r *AsyncTaskRunner) Start() error {
	if r.params.UpdateInterval <= 0 {
		return fmt.Errorf("task-runner: invalid interval=%s: %w",
			r.params.UpdateInterval, status.StatusInvalidArg)
	}

	r.startOne.Do(func() {
		go r.run()
	})

	return nil
}

// Stop ends asynchronous task processing and waits until the goroutine exits.
func (r *AsyncTaskRunner) Stop() error {
	r.cancel()

	r.startOne.Do(func() {
		close(r.doneCh)
	})

	<-r.doneCh

	return nil
}

// Done returns a channel which is closed once the runner goroutine has exited.
func (r *AsyncTaskRunner) Done() <-chan struct{} {
	return r.doneCh
}

func (r *AsyncTaskRunner) run() {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.params.UpdateInterval)
	defer ticker.Stop()

	r.runTask()

	for {
		select {
		case <-ticker.C:
			r.runTask()

		case <-r.ctx.Done():
			return
		}
	}
}

func (r *AsyncTaskRunner) runTask() {
	if r.ctx.Err() != nil {
		return
	}

	if err := r.safeRun(); err != nil {
		if r.handler != nil {
			r.handler.HandleError(err)
		}
	}
}

func (r *AsyncTaskRunner) safeRun() (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("task-runner: task panicked: %v: %w", p, status.StatusError)
		}
	}()

	return r.task.Run(r.ctx)
}
