// Package reconciler owns the result queue. It is the only consumer on that
// queue by design: results land in the durable job store exactly once, and
// every other reader (including the synchronous fetch path) reads the store.
package reconciler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/tdnguyen-dev/recognition-be/internal/domain"
	"github.com/tdnguyen-dev/recognition-be/internal/wire"
	"github.com/tdnguyen-dev/recognition-be/shared/rabbitmq"
)

// resubscribeDelay paces re-subscription after the broker drops the consumer.
const resubscribeDelay = 2 * time.Second

// JobFinalizer is the slice of storage the reconciler needs.
type JobFinalizer interface {
	FinalizeJob(ctx context.Context, jobID string, success bool, output, errorMessage *string) (bool, error)
	GetJob(ctx context.Context, jobID string) (*domain.Job, error)
}

// requeueDelay paces a requeue nack. With prefetch=1 a requeued message is
// redelivered immediately, so consuming again without a pause would spin hot
// against a store that is still down.
const requeueDelay = 2 * time.Second

// Reconciler drains result messages and persists terminal job states.
type Reconciler struct {
	store        JobFinalizer
	broker       *rabbitmq.Client
	logger       *slog.Logger
	requeueDelay time.Duration
	stopChan     chan struct{}
}

// NewReconciler creates a Reconciler with explicit dependencies.
func NewReconciler(store JobFinalizer, broker *rabbitmq.Client, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		store:        store,
		broker:       broker,
		logger:       logger,
		requeueDelay: requeueDelay,
		stopChan:     make(chan struct{}),
	}
}

// Run consumes the result queue until the context is cancelled.
func (r *Reconciler) Run(ctx context.Context) error {
	r.logger.Info("Starting result reconciler")

	for {
		select {
		case <-r.stopChan:
			return nil
		case <-ctx.Done():
			return nil
		default:
		}

		consumer, err := r.broker.ConsumeResults("result-reconciler")
		if err != nil {
			r.logger.Error("Failed to subscribe to result queue, retrying",
				slog.Any("error", err),
				slog.Duration("retry_in", resubscribeDelay),
			)
			select {
			case <-r.stopChan:
				return nil
			case <-ctx.Done():
				return nil
			case <-time.After(resubscribeDelay):
			}
			continue
		}

		r.drain(ctx, consumer)
		_ = consumer.Close()
	}
}

// Stop asks the consume loop to exit.
func (r *Reconciler) Stop() {
	close(r.stopChan)
}

func (r *Reconciler) drain(ctx context.Context, consumer *rabbitmq.Consumer) {
	for {
		select {
		case <-r.stopChan:
			return
		case <-ctx.Done():
			return
		case delivery, ok := <-consumer.Deliveries:
			if !ok {
				r.logger.Warn("Result delivery channel closed, will re-subscribe")
				return
			}

			if err := r.ProcessResult(ctx, delivery.Body); err != nil {
				// Transient store failure: requeue so the result survives a
				// database outage instead of being dropped.
				r.logger.Error("Failed to persist result, requeueing",
					slog.Any("error", err),
				)
				if nackErr := consumer.Nack(delivery.DeliveryTag, true); nackErr != nil {
					r.logger.Error("Failed to nack result delivery",
						slog.Any("error", nackErr),
					)
				}
				if !r.pauseBeforeRedelivery(ctx) {
					return
				}
				continue
			}

			if ackErr := consumer.Ack(delivery.DeliveryTag); ackErr != nil {
				r.logger.Error("Failed to ack result delivery",
					slog.Any("error", ackErr),
				)
			}
		}
	}
}

// pauseBeforeRedelivery waits out the requeue delay so a store outage does
// not turn into a hot nack/redeliver loop. Returns false when shutdown was
// requested during the wait.
func (r *Reconciler) pauseBeforeRedelivery(ctx context.Context) bool {
	select {
	case <-r.stopChan:
		return false
	case <-ctx.Done():
		return false
	case <-time.After(r.requeueDelay):
		return true
	}
}

// ProcessResult applies one result message to the job store. A nil return
// means the delivery is settled (persisted, duplicate, or deliberately
// dropped); a non-nil return means a transient failure worth a retry.
// The write is an idempotent guarded upsert: a duplicate delivery of the
// same result is a no-op, and a failed prediction issues no refund.
func (r *Reconciler) ProcessResult(ctx context.Context, body []byte) error {
	msg, err := wire.DecodeResultMessage(body)
	if err != nil {
		// Undecodable results can never be applied; drop rather than retry
		// forever.
		r.logger.Error("Dropping undecodable result message",
			slog.Any("error", err),
			slog.Int("body_size", len(body)),
		)
		return nil
	}

	log := r.logger.With(
		slog.String("job_id", msg.JobID),
		slog.String("worker_id", msg.WorkerID),
	)

	updated, err := r.store.FinalizeJob(ctx, msg.JobID, msg.Success, msg.Output, msg.Error)
	if err != nil {
		return err
	}

	if !updated {
		if _, getErr := r.store.GetJob(ctx, msg.JobID); errors.Is(getErr, domain.ErrJobNotFound) {
			log.Error("Dropping result for unknown job")
		} else {
			log.Info("Job already terminal, duplicate result ignored")
		}
		return nil
	}

	log.Info("Job reconciled",
		slog.Bool("success", msg.Success),
		slog.Float64("processing_time_seconds", msg.ProcessingTime),
	)

	return nil
}
