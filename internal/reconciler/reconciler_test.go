package reconciler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tdnguyen-dev/recognition-be/internal/domain"
	"github.com/tdnguyen-dev/recognition-be/internal/wire"
)

// memoryJobStore mimics the guarded terminal upsert: it only applies a
// result while the job is non-terminal.
type memoryJobStore struct {
	jobs      map[string]*domain.Job
	finalized int
	err       error
}

func newMemoryJobStore(jobs ...*domain.Job) *memoryJobStore {
	s := &memoryJobStore{jobs: map[string]*domain.Job{}}
	for _, j := range jobs {
		s.jobs[j.JobID] = j
	}
	return s
}

func (s *memoryJobStore) FinalizeJob(ctx context.Context, jobID string, success bool, output, errorMessage *string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	job, ok := s.jobs[jobID]
	if !ok || job.IsTerminal() {
		return false, nil
	}
	if success {
		job.Status = domain.JobStatusDone
	} else {
		job.Status = domain.JobStatusError
	}
	job.Output = output
	job.ErrorMessage = errorMessage
	s.finalized++
	return true, nil
}

func (s *memoryJobStore) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return job, nil
}

func resultBody(t *testing.T, msg wire.ResultMessage) []byte {
	t.Helper()
	body, err := json.Marshal(&msg)
	require.NoError(t, err)
	return body
}

func newTestReconciler(store JobFinalizer) *Reconciler {
	return NewReconciler(store, nil, slog.New(slog.DiscardHandler))
}

func TestProcessResult(t *testing.T) {
	output := "x^2"
	failure := "unreadable glyphs"

	successMsg := wire.ResultMessage{
		JobID:       "job-1",
		UserID:      "user-1",
		WorkerID:    "worker-1",
		Success:     true,
		Output:      &output,
		Confidence:  0.97,
		CompletedAt: time.Now().UTC(),
	}

	t.Run("success result finalizes the job", func(t *testing.T) {
		store := newMemoryJobStore(&domain.Job{JobID: "job-1", Status: domain.JobStatusInProgress})
		r := newTestReconciler(store)

		require.NoError(t, r.ProcessResult(context.Background(), resultBody(t, successMsg)))

		job := store.jobs["job-1"]
		assert.Equal(t, domain.JobStatusDone, job.Status)
		require.NotNil(t, job.Output)
		assert.Equal(t, "x^2", *job.Output)
	})

	t.Run("duplicate delivery is a no-op", func(t *testing.T) {
		store := newMemoryJobStore(&domain.Job{JobID: "job-1", Status: domain.JobStatusInProgress})
		r := newTestReconciler(store)

		body := resultBody(t, successMsg)
		require.NoError(t, r.ProcessResult(context.Background(), body))
		require.NoError(t, r.ProcessResult(context.Background(), body))

		assert.Equal(t, 1, store.finalized)
		assert.Equal(t, domain.JobStatusDone, store.jobs["job-1"].Status)
	})

	t.Run("failure result records the error, no refund path exists here", func(t *testing.T) {
		store := newMemoryJobStore(&domain.Job{JobID: "job-1", Status: domain.JobStatusInProgress})
		r := newTestReconciler(store)

		msg := wire.ResultMessage{
			JobID:    "job-1",
			UserID:   "user-1",
			WorkerID: "worker-1",
			Success:  false,
			Error:    &failure,
		}
		require.NoError(t, r.ProcessResult(context.Background(), resultBody(t, msg)))

		job := store.jobs["job-1"]
		assert.Equal(t, domain.JobStatusError, job.Status)
		require.NotNil(t, job.ErrorMessage)
		assert.Equal(t, failure, *job.ErrorMessage)
	})

	t.Run("cancelled job ignores a late result", func(t *testing.T) {
		store := newMemoryJobStore(&domain.Job{JobID: "job-1", Status: domain.JobStatusCancelled})
		r := newTestReconciler(store)

		require.NoError(t, r.ProcessResult(context.Background(), resultBody(t, successMsg)))

		assert.Equal(t, domain.JobStatusCancelled, store.jobs["job-1"].Status)
		assert.Zero(t, store.finalized)
	})

	t.Run("unknown job is dropped, not retried", func(t *testing.T) {
		store := newMemoryJobStore()
		r := newTestReconciler(store)

		err := r.ProcessResult(context.Background(), resultBody(t, successMsg))
		assert.NoError(t, err)
	})

	t.Run("undecodable body is dropped, not retried", func(t *testing.T) {
		r := newTestReconciler(newMemoryJobStore())

		assert.NoError(t, r.ProcessResult(context.Background(), []byte("{broken")))
	})

	t.Run("missing job id is dropped", func(t *testing.T) {
		r := newTestReconciler(newMemoryJobStore())

		body := resultBody(t, wire.ResultMessage{UserID: "user-1", Success: true})
		assert.NoError(t, r.ProcessResult(context.Background(), body))
	})

	t.Run("store failure propagates for a retry", func(t *testing.T) {
		store := newMemoryJobStore()
		store.err = errors.New("db unavailable")
		r := newTestReconciler(store)

		err := r.ProcessResult(context.Background(), resultBody(t, successMsg))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db unavailable")
	})
}

func TestPauseBeforeRedelivery(t *testing.T) {
	t.Run("waits out the requeue delay", func(t *testing.T) {
		r := newTestReconciler(newMemoryJobStore())
		r.requeueDelay = 20 * time.Millisecond

		start := time.Now()
		ok := r.pauseBeforeRedelivery(context.Background())

		assert.True(t, ok)
		assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	})

	t.Run("stop request cuts the wait short", func(t *testing.T) {
		r := newTestReconciler(newMemoryJobStore())
		r.requeueDelay = time.Minute
		r.Stop()

		start := time.Now()
		ok := r.pauseBeforeRedelivery(context.Background())

		assert.False(t, ok)
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("context cancellation cuts the wait short", func(t *testing.T) {
		r := newTestReconciler(newMemoryJobStore())
		r.requeueDelay = time.Minute

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		assert.False(t, r.pauseBeforeRedelivery(ctx))
	})
}
