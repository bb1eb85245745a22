package dispatcher

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tdnguyen-dev/recognition-be/internal/domain"
	"github.com/tdnguyen-dev/recognition-be/internal/wire"
)

type fakeStore struct {
	predictor  *domain.Predictor
	predictErr error

	createdJob *domain.Job
	createErr  error

	cancelledJob *domain.Job
	cancelErr    error
}

func (f *fakeStore) GetActivePredictor(ctx context.Context, predictorID string) (*domain.Predictor, error) {
	if f.predictErr != nil {
		return nil, f.predictErr
	}
	return f.predictor, nil
}

func (f *fakeStore) CreateJobWithCharge(ctx context.Context, job *domain.Job) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.createdJob = job
	return nil
}

func (f *fakeStore) CancelPendingJob(ctx context.Context, jobID, userID string) (*domain.Job, error) {
	if f.cancelErr != nil {
		return nil, f.cancelErr
	}
	return f.cancelledJob, nil
}

type fakePublisher struct {
	published [][]byte
	jobIDs    []string
	err       error
}

func (f *fakePublisher) PublishTask(ctx context.Context, jobID string, body []byte) error {
	if f.err != nil {
		return f.err
	}
	f.jobIDs = append(f.jobIDs, jobID)
	f.published = append(f.published, body)
	return nil
}

type fakeValidator struct {
	err error
}

func (f *fakeValidator) Validate(payload string) error { return f.err }

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func activePredictor() *domain.Predictor {
	return &domain.Predictor{
		PredictorID: "pred-1",
		Name:        "formula-recognizer",
		CreditCost:  decimal.RequireFromString("5.00"),
		IsActive:    true,
	}
}

func TestSubmit(t *testing.T) {
	t.Run("success publishes exactly one task message", func(t *testing.T) {
		store := &fakeStore{predictor: activePredictor()}
		pub := &fakePublisher{}
		d := NewDispatcher(store, pub, &fakeValidator{}, testLogger())

		job, err := d.Submit(context.Background(), "user-1", "pred-1", "cGF5bG9hZA==", "eq.png")
		require.NoError(t, err)

		assert.Equal(t, domain.JobStatusPending, job.Status)
		assert.True(t, decimal.RequireFromString("5.00").Equal(job.CreditsCharged))
		require.NotNil(t, store.createdJob)
		assert.Equal(t, job.JobID, store.createdJob.JobID)

		require.Len(t, pub.published, 1)
		assert.Equal(t, job.JobID, pub.jobIDs[0])

		msg, err := wire.DecodeTaskMessage(pub.published[0])
		require.NoError(t, err)
		assert.Equal(t, job.JobID, msg.JobID)
		assert.Equal(t, "user-1", msg.UserID)
		assert.Equal(t, "pred-1", msg.PredictorID)
		assert.Equal(t, "cGF5bG9hZA==", msg.Payload)
	})

	t.Run("unknown predictor makes no broker call", func(t *testing.T) {
		store := &fakeStore{predictErr: domain.ErrPredictorNotFound}
		pub := &fakePublisher{}
		d := NewDispatcher(store, pub, &fakeValidator{}, testLogger())

		_, err := d.Submit(context.Background(), "user-1", "missing", "x", "eq.png")
		assert.ErrorIs(t, err, domain.ErrPredictorNotFound)
		assert.Empty(t, pub.published)
		assert.Nil(t, store.createdJob)
	})

	t.Run("invalid payload makes no charge and no broker call", func(t *testing.T) {
		store := &fakeStore{predictor: activePredictor()}
		pub := &fakePublisher{}
		d := NewDispatcher(store, pub, &fakeValidator{err: domain.ErrInvalidPayload}, testLogger())

		_, err := d.Submit(context.Background(), "user-1", "pred-1", "???", "eq.png")
		assert.ErrorIs(t, err, domain.ErrInvalidPayload)
		assert.Empty(t, pub.published)
		assert.Nil(t, store.createdJob)
	})

	t.Run("insufficient credits makes no broker call", func(t *testing.T) {
		store := &fakeStore{
			predictor: activePredictor(),
			createErr: domain.ErrInsufficientCredits,
		}
		pub := &fakePublisher{}
		d := NewDispatcher(store, pub, &fakeValidator{}, testLogger())

		_, err := d.Submit(context.Background(), "user-1", "pred-1", "x", "eq.png")
		assert.ErrorIs(t, err, domain.ErrInsufficientCredits)
		assert.Empty(t, pub.published)
	})

	t.Run("publish failure is surfaced after the job is persisted", func(t *testing.T) {
		store := &fakeStore{predictor: activePredictor()}
		pub := &fakePublisher{err: errors.New("broker down")}
		d := NewDispatcher(store, pub, &fakeValidator{}, testLogger())

		_, err := d.Submit(context.Background(), "user-1", "pred-1", "x", "eq.png")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to publish task")
		// The job row was still committed before the publish attempt.
		assert.NotNil(t, store.createdJob)
	})
}

func TestCancel(t *testing.T) {
	t.Run("claimed job loses the race", func(t *testing.T) {
		store := &fakeStore{cancelErr: domain.ErrAlreadyInProgress}
		d := NewDispatcher(store, &fakePublisher{}, &fakeValidator{}, testLogger())

		_, err := d.Cancel(context.Background(), "job-1", "user-1")
		assert.ErrorIs(t, err, domain.ErrAlreadyInProgress)
	})

	t.Run("pending job cancels", func(t *testing.T) {
		want := &domain.Job{JobID: "job-1", Status: domain.JobStatusCancelled}
		store := &fakeStore{cancelledJob: want}
		d := NewDispatcher(store, &fakePublisher{}, &fakeValidator{}, testLogger())

		got, err := d.Cancel(context.Background(), "job-1", "user-1")
		require.NoError(t, err)
		assert.Equal(t, domain.JobStatusCancelled, got.Status)
	})
}
