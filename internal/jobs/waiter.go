// Package jobs waits on asynchronous upstream computations.
//
// Some balance backends answer a submit request with an opaque job id and
// compute the result out of band; the Waiter polls the job status at a
// fixed interval until it completes or the attempt budget runs out.
package jobs

import (
	"context"
	"fmt"
	"time"
)

// Status is the upstream-reported state of a job.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusUnknown   Status = "unknown"
)

// StatusFunc queries the current status of a job by id.
type StatusFunc func(ctx context.Context, jobID string) (Status, error)

// TimeoutError reports a job that never completed within the attempt budget.
type TimeoutError struct {
	JobID    string
	Attempts int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("job %s not completed after %d attempts", e.JobID, e.Attempts)
}

const (
	defaultInterval    = 1 * time.Second
	defaultMaxAttempts = 30
)

// Waiter polls a job status at a fixed interval. No backoff: upstream job
// latency is short and bounded, so a constant cadence finishes faster than
// growing sleeps would.
type Waiter struct {
	Check       StatusFunc
	Interval    time.Duration
	MaxAttempts int
}

// NewWaiter returns a Waiter with the standard 1s/30-attempt budget.
func NewWaiter(check StatusFunc) *Waiter {
	return &Waiter{Check: check, Interval: defaultInterval, MaxAttempts: defaultMaxAttempts}
}

// Await polls until the job reports completed. It returns TimeoutError
// after MaxAttempts polls without completion, never issuing another status
// query past the budget. Both "active" and "unknown" count as not done.
// Cancelling ctx stops polling promptly, including any pending sleep.
func (w *Waiter) Await(ctx context.Context, jobID string) error {
	interval := w.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	maxAttempts := w.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		status, err := w.Check(ctx, jobID)
		if err != nil {
			return fmt.Errorf("job %s status: %w", jobID, err)
		}
		if status == StatusCompleted {
			return nil
		}
		if attempt == maxAttempts {
			break
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return &TimeoutError{JobID: jobID, Attempts: maxAttempts}
}
