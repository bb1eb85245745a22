// Package worker consumes task messages, runs the predictor, and publishes
// result messages. Each consume loop is strictly sequential with one
// unacknowledged message in flight; scale comes from running more loops or
// more processes, never from shared mutable state.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/tdnguyen-dev/recognition-be/shared/rabbitmq"
)

// resubscribeDelay paces re-subscription after the broker drops a consumer.
const resubscribeDelay = 2 * time.Second

// Config holds worker configuration
type Config struct {
	WorkerID    string
	Concurrency int
	Logger      *slog.Logger
	Broker      *rabbitmq.Client
	Processor   *Processor
}

// Worker runs a pool of sequential task consume loops.
type Worker struct {
	workerID    string
	concurrency int
	logger      *slog.Logger
	broker      *rabbitmq.Client
	processor   *Processor
	wg          sync.WaitGroup
	stopChan    chan struct{}
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	return &Worker{
		workerID:    cfg.WorkerID,
		concurrency: cfg.Concurrency,
		logger:      cfg.Logger,
		broker:      cfg.Broker,
		processor:   cfg.Processor,
		stopChan:    make(chan struct{}),
	}
}

// Start spawns the consume loops and blocks until the context is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
	)

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.consumeLoop(ctx, i)
	}

	<-ctx.Done()
	w.logger.Info("Worker context cancelled, stopping...")

	return nil
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	close(w.stopChan)
	w.wg.Wait()
	w.logger.Info("Worker stopped")
}

// consumeLoop subscribes to the task queue and processes one delivery at a
// time. When the broker drops the subscription it re-subscribes after a
// short delay; the gateway is redialing underneath.
func (w *Worker) consumeLoop(ctx context.Context, loopNum int) {
	defer w.wg.Done()

	consumerTag := fmt.Sprintf("%s-%d", w.workerID, loopNum)
	log := w.logger.With(slog.String("consumer_tag", consumerTag))

	log.Info("Worker consume loop started")

	for {
		select {
		case <-w.stopChan:
			log.Info("Worker consume loop stopping - stop requested")
			return
		case <-ctx.Done():
			log.Info("Worker consume loop stopping - context cancelled")
			return
		default:
		}

		consumer, err := w.broker.ConsumeTasks(consumerTag)
		if err != nil {
			log.Error("Failed to subscribe to task queue, retrying",
				slog.Any("error", err),
				slog.Duration("retry_in", resubscribeDelay),
			)
			select {
			case <-w.stopChan:
				return
			case <-ctx.Done():
				return
			case <-time.After(resubscribeDelay):
			}
			continue
		}

		w.drainDeliveries(ctx, consumer, log)
		_ = consumer.Close()
	}
}

// drainDeliveries processes deliveries until the channel closes or shutdown
// is requested.
func (w *Worker) drainDeliveries(ctx context.Context, consumer *rabbitmq.Consumer, log *slog.Logger) {
	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		case delivery, ok := <-consumer.Deliveries:
			if !ok {
				log.Warn("Task delivery channel closed, will re-subscribe")
				return
			}
			w.handleDelivery(ctx, consumer, delivery, log)
		}
	}
}

// handleDelivery runs the processor and settles the delivery. The ack only
// happens after the processor has safely handed off a result (or decided to
// drop); the sole nack path routes to the dead-letter queue.
func (w *Worker) handleDelivery(ctx context.Context, consumer *rabbitmq.Consumer, delivery amqp.Delivery, log *slog.Logger) {
	err := w.processor.Process(ctx, delivery.Body)
	if err == nil {
		if ackErr := consumer.Ack(delivery.DeliveryTag); ackErr != nil {
			log.Error("Failed to ack task delivery",
				slog.Uint64("delivery_tag", delivery.DeliveryTag),
				slog.Any("error", ackErr),
			)
		}
		return
	}

	if errors.Is(err, ErrUnroutable) {
		log.Error("Dead-lettering unroutable task",
			slog.Uint64("delivery_tag", delivery.DeliveryTag),
		)
	} else {
		log.Error("Result hand-off failed, dead-lettering task for inspection",
			slog.Uint64("delivery_tag", delivery.DeliveryTag),
			slog.Any("error", err),
		)
	}

	if nackErr := consumer.Nack(delivery.DeliveryTag, false); nackErr != nil {
		log.Error("Failed to nack task delivery",
			slog.Uint64("delivery_tag", delivery.DeliveryTag),
			slog.Any("error", nackErr),
		)
	}
}
