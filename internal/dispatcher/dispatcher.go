// Package dispatcher admits recognition jobs into the pipeline: it prices a
// job against the user's credits, persists it, and hands it to the broker.
package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tdnguyen-dev/recognition-be/internal/domain"
	"github.com/tdnguyen-dev/recognition-be/internal/wire"
)

// Store is the slice of storage the dispatcher needs.
type Store interface {
	GetActivePredictor(ctx context.Context, predictorID string) (*domain.Predictor, error)
	CreateJobWithCharge(ctx context.Context, job *domain.Job) error
	CancelPendingJob(ctx context.Context, jobID, userID string) (*domain.Job, error)
}

// TaskPublisher publishes one persistent task message keyed by job id.
type TaskPublisher interface {
	PublishTask(ctx context.Context, jobID string, body []byte) error
}

// PayloadValidator rejects malformed payloads before any credit is charged.
type PayloadValidator interface {
	Validate(payload string) error
}

// Dispatcher validates, charges, persists, and publishes jobs.
type Dispatcher struct {
	store     Store
	publisher TaskPublisher
	validator PayloadValidator
	logger    *slog.Logger
}

// NewDispatcher creates a Dispatcher with explicit dependencies.
func NewDispatcher(store Store, publisher TaskPublisher, validator PayloadValidator, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		store:     store,
		publisher: publisher,
		validator: validator,
		logger:    logger,
	}
}

// Submit admits one job. Ordering is deliberate: all synchronous failures
// (unknown predictor, bad payload, insufficient credits) happen before any
// broker call, and the debit plus the pending row are one atomic unit. The
// charge is pessimistic: credits are taken before a worker has attempted
// anything.
func (d *Dispatcher) Submit(ctx context.Context, userID, predictorID, payload, filename string) (*domain.Job, error) {
	predictor, err := d.store.GetActivePredictor(ctx, predictorID)
	if err != nil {
		return nil, err
	}

	if err := d.validator.Validate(payload); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	job := &domain.Job{
		JobID:          uuid.New().String(),
		UserID:         userID,
		PredictorID:    predictor.PredictorID,
		CreditsCharged: predictor.CreditCost,
		Status:         domain.JobStatusPending,
		Filename:       filename,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := d.store.CreateJobWithCharge(ctx, job); err != nil {
		return nil, err
	}

	msg := wire.TaskMessage{
		JobID:       job.JobID,
		UserID:      job.UserID,
		PredictorID: job.PredictorID,
		Payload:     payload,
		Filename:    filename,
		SubmittedAt: now,
	}

	body, err := json.Marshal(&msg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode task message: %w", err)
	}

	if err := d.publisher.PublishTask(ctx, job.JobID, body); err != nil {
		// The job row and the charge are already committed. The row stays
		// pending and visible to operators; the user was charged for an
		// attempt that never reached the queue, which the caller sees as an
		// error and can escalate.
		d.logger.Error("Task publish failed after job was persisted",
			slog.String("job_id", job.JobID),
			slog.Any("error", err),
		)
		return nil, fmt.Errorf("failed to publish task for job %s: %w", job.JobID, err)
	}

	d.logger.Info("Job submitted",
		slog.String("job_id", job.JobID),
		slog.String("user_id", userID),
		slog.String("predictor_id", predictorID),
		slog.String("credits_charged", job.CreditsCharged.String()),
	)

	return job, nil
}

// Cancel withdraws a job that no worker has claimed yet. The store performs
// the compare-and-swap; a job already claimed fails with
// domain.ErrAlreadyInProgress and no refund is issued.
func (d *Dispatcher) Cancel(ctx context.Context, jobID, userID string) (*domain.Job, error) {
	job, err := d.store.CancelPendingJob(ctx, jobID, userID)
	if err != nil {
		return nil, err
	}

	d.logger.Info("Job cancelled",
		slog.String("job_id", jobID),
		slog.String("user_id", userID),
	)

	return job, nil
}
