package fetcher

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tdnguyen-dev/recognition-be/internal/domain"
)

type pollingJobStore struct {
	mu  sync.Mutex
	job *domain.Job
	err error
}

func (s *pollingJobStore) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	copied := *s.job
	return &copied, nil
}

func (s *pollingJobStore) setStatus(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.job.Status = status
}

func newTestFetcher(store JobReader) *Fetcher {
	return NewFetcher(store, 5*time.Millisecond, slog.New(slog.DiscardHandler))
}

func TestFetch(t *testing.T) {
	t.Run("already terminal job returns immediately", func(t *testing.T) {
		output := "42"
		store := &pollingJobStore{job: &domain.Job{
			JobID:  "job-1",
			UserID: "user-1",
			Status: domain.JobStatusDone,
			Output: &output,
		}}

		job, err := newTestFetcher(store).Fetch(context.Background(), "user-1", "job-1", time.Second)
		require.NoError(t, err)
		assert.Equal(t, domain.JobStatusDone, job.Status)
		require.NotNil(t, job.Output)
		assert.Equal(t, "42", *job.Output)
	})

	t.Run("returns once the job becomes terminal", func(t *testing.T) {
		store := &pollingJobStore{job: &domain.Job{
			JobID:  "job-1",
			UserID: "user-1",
			Status: domain.JobStatusInProgress,
		}}

		go func() {
			time.Sleep(20 * time.Millisecond)
			store.setStatus(domain.JobStatusError)
		}()

		job, err := newTestFetcher(store).Fetch(context.Background(), "user-1", "job-1", time.Second)
		require.NoError(t, err)
		assert.Equal(t, domain.JobStatusError, job.Status)
	})

	t.Run("times out while the job is still pending", func(t *testing.T) {
		store := &pollingJobStore{job: &domain.Job{
			JobID:  "job-1",
			UserID: "user-1",
			Status: domain.JobStatusPending,
		}}

		_, err := newTestFetcher(store).Fetch(context.Background(), "user-1", "job-1", 30*time.Millisecond)
		assert.ErrorIs(t, err, ErrFetchTimeout)
	})

	t.Run("another user's job reads as not found", func(t *testing.T) {
		store := &pollingJobStore{job: &domain.Job{
			JobID:  "job-1",
			UserID: "user-2",
			Status: domain.JobStatusDone,
		}}

		_, err := newTestFetcher(store).Fetch(context.Background(), "user-1", "job-1", time.Second)
		assert.ErrorIs(t, err, domain.ErrJobNotFound)
	})

	t.Run("store error surfaces", func(t *testing.T) {
		store := &pollingJobStore{err: domain.ErrJobNotFound}

		_, err := newTestFetcher(store).Fetch(context.Background(), "user-1", "job-1", time.Second)
		assert.ErrorIs(t, err, domain.ErrJobNotFound)
	})

	t.Run("context cancellation stops the poll", func(t *testing.T) {
		store := &pollingJobStore{job: &domain.Job{
			JobID:  "job-1",
			UserID: "user-1",
			Status: domain.JobStatusPending,
		}}

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()

		_, err := newTestFetcher(store).Fetch(ctx, "user-1", "job-1", time.Second)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
