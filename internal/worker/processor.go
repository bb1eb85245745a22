package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tdnguyen-dev/recognition-be/internal/predictor"
	"github.com/tdnguyen-dev/recognition-be/internal/wire"
)

// ErrUnroutable marks a task message that cannot even be correlated to a
// job. It is the one validation failure that cannot produce a result
// message, so the delivery goes to the dead-letter queue instead.
var ErrUnroutable = errors.New("task message is unroutable")

// JobClaimer moves a job to in_progress when its task is accepted. A false
// return means the job was cancelled or already finished and the task must
// be dropped.
type JobClaimer interface {
	ClaimJob(ctx context.Context, jobID string) (bool, error)
}

// ResultPublisher publishes one persistent result message keyed by job id.
type ResultPublisher interface {
	PublishResult(ctx context.Context, jobID string, body []byte) error
}

// Processor turns one task message into exactly one result message, or
// correctly decides to drop.
type Processor struct {
	workerID       string
	claimer        JobClaimer
	model          predictor.Client
	publisher      ResultPublisher
	predictTimeout time.Duration
	logger         *slog.Logger
}

// NewProcessor creates a Processor with explicit dependencies.
func NewProcessor(workerID string, claimer JobClaimer, model predictor.Client, publisher ResultPublisher, predictTimeout time.Duration, logger *slog.Logger) *Processor {
	return &Processor{
		workerID:       workerID,
		claimer:        claimer,
		model:          model,
		publisher:      publisher,
		predictTimeout: predictTimeout,
		logger:         logger,
	}
}

// Process handles one delivery body. A nil return means the delivery must be
// acked; a non-nil return means the result could not be handed off (or the
// message is unroutable) and the delivery must be nacked without requeue.
func (p *Processor) Process(ctx context.Context, body []byte) error {
	msg, err := wire.DecodeTaskMessage(body)
	if err != nil || msg.JobID == "" {
		p.logger.Error("Unroutable task message",
			slog.Any("error", err),
			slog.Int("body_size", len(body)),
		)
		return ErrUnroutable
	}

	log := p.logger.With(slog.String("job_id", msg.JobID), slog.String("worker_id", p.workerID))

	if err := msg.Validate(); err != nil {
		// Structurally bad: retrying will not help. Report the failure as a
		// normal outcome and let the ack clear the queue.
		log.Warn("Task message failed validation",
			slog.Any("error", err),
		)
		return p.publishFailure(ctx, msg, 0, fmt.Sprintf("invalid task: %s", err.Error()))
	}

	claimed, err := p.claimer.ClaimJob(ctx, msg.JobID)
	if err != nil {
		// The claim is a visibility update, not a gate. Prediction proceeds;
		// the reconciler's guarded write keeps the state machine safe.
		log.Warn("Failed to claim job, continuing",
			slog.Any("error", err),
		)
	} else if !claimed {
		log.Info("Job no longer runnable, dropping task")
		return nil
	}

	start := time.Now()
	result, predictErr := p.predict(ctx, msg)
	elapsed := time.Since(start).Seconds()

	if predictErr != nil {
		// Prediction failures, expected or not, are normal reportable
		// outcomes. Redelivering a task that just failed would loop forever.
		log.Warn("Prediction failed",
			slog.Any("error", predictErr),
			slog.Float64("processing_time_seconds", elapsed),
		)
		return p.publishFailure(ctx, msg, elapsed, predictErr.Error())
	}

	log.Info("Prediction succeeded",
		slog.Float64("confidence", result.Confidence),
		slog.Float64("processing_time_seconds", elapsed),
	)

	return p.publishResult(ctx, &wire.ResultMessage{
		JobID:          msg.JobID,
		UserID:         msg.UserID,
		WorkerID:       p.workerID,
		Success:        true,
		Output:         &result.Text,
		Confidence:     result.Confidence,
		ProcessingTime: elapsed,
		CompletedAt:    time.Now().UTC(),
	})
}

// predict invokes the model under the per-task timeout, converting a panic
// inside the model client into an ordinary error.
func (p *Processor) predict(ctx context.Context, msg *wire.TaskMessage) (result *predictor.Result, err error) {
	predictCtx, cancel := context.WithTimeout(ctx, p.predictTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("predictor panicked: %v", r)
		}
	}()

	return p.model.Predict(predictCtx, msg.Payload, msg.Filename)
}

func (p *Processor) publishFailure(ctx context.Context, msg *wire.TaskMessage, elapsed float64, reason string) error {
	return p.publishResult(ctx, &wire.ResultMessage{
		JobID:          msg.JobID,
		UserID:         msg.UserID,
		WorkerID:       p.workerID,
		Success:        false,
		Error:          &reason,
		ProcessingTime: elapsed,
		CompletedAt:    time.Now().UTC(),
	})
}

// publishResult hands the outcome to the broker. Its error is the only one
// that propagates out of Process: the task must not be acked until the
// result is safely handed off.
func (p *Processor) publishResult(ctx context.Context, result *wire.ResultMessage) error {
	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode result message: %w", err)
	}

	if err := p.publisher.PublishResult(ctx, result.JobID, body); err != nil {
		return fmt.Errorf("failed to publish result for job %s: %w", result.JobID, err)
	}

	return nil
}
