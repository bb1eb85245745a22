// Package fetcher implements the synchronous result path. It never touches
// the result queue: the reconciler is the queue's only consumer, so waiting
// for a result is a bounded poll of the durable job store.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tdnguyen-dev/recognition-be/internal/domain"
)

// ErrFetchTimeout is returned when the job does not reach a terminal state
// within the caller's wall-clock budget.
var ErrFetchTimeout = errors.New("timed out waiting for job result")

// JobReader is the slice of storage the fetcher needs.
type JobReader interface {
	GetJob(ctx context.Context, jobID string) (*domain.Job, error)
}

// Fetcher blocks a caller until a job is terminal or a deadline passes.
type Fetcher struct {
	store        JobReader
	pollInterval time.Duration
	logger       *slog.Logger
}

// NewFetcher creates a Fetcher with explicit dependencies.
func NewFetcher(store JobReader, pollInterval time.Duration, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		store:        store,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

// Fetch returns the job once it reaches a terminal state. It checks the
// store immediately, then on the poll interval until the timeout elapses.
// Ownership is enforced here: a job belonging to another user is reported
// as not found.
func (f *Fetcher) Fetch(ctx context.Context, userID, jobID string, timeout time.Duration) (*domain.Job, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	ticker := time.NewTicker(f.pollInterval)
	defer ticker.Stop()

	for {
		job, err := f.store.GetJob(ctx, jobID)
		if err != nil {
			return nil, fmt.Errorf("failed to load job %s: %w", jobID, err)
		}
		if job.UserID != userID {
			return nil, domain.ErrJobNotFound
		}
		if job.IsTerminal() {
			return job, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			f.logger.Info("Result fetch timed out",
				slog.String("job_id", jobID),
				slog.Duration("timeout", timeout),
			)
			return nil, ErrFetchTimeout
		case <-ticker.C:
		}
	}
}
