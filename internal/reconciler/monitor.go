package reconciler

import (
	"log/slog"

	"github.com/robfig/cron/v3"
)

// QueueInspector reports how many messages are waiting in a queue.
type QueueInspector interface {
	QueueDepth(queue string) (int, error)
	TaskQueueName() string
	DeadLetterQueueName() string
}

// QueueMonitor periodically logs task and dead-letter queue depths. A task
// that sits unconsumed past its TTL lands in the dead-letter queue; that is
// an operational failure, not a user-facing state, and this is where it
// becomes visible.
type QueueMonitor struct {
	inspector QueueInspector
	schedule  string
	logger    *slog.Logger
	cron      *cron.Cron
}

// NewQueueMonitor creates a monitor ticking on the given cron schedule
// (e.g. "@every 1m").
func NewQueueMonitor(inspector QueueInspector, schedule string, logger *slog.Logger) *QueueMonitor {
	return &QueueMonitor{
		inspector: inspector,
		schedule:  schedule,
		logger:    logger,
	}
}

// Start registers the cron entry and begins ticking.
func (m *QueueMonitor) Start() error {
	m.cron = cron.New()

	if _, err := m.cron.AddFunc(m.schedule, m.inspect); err != nil {
		return err
	}

	m.cron.Start()
	m.logger.Info("Queue monitor started",
		slog.String("schedule", m.schedule),
	)

	return nil
}

// Stop halts the cron scheduler, waiting for a running tick to finish.
func (m *QueueMonitor) Stop() {
	if m.cron != nil {
		<-m.cron.Stop().Done()
	}
}

func (m *QueueMonitor) inspect() {
	taskQueue := m.inspector.TaskQueueName()
	dlq := m.inspector.DeadLetterQueueName()

	taskDepth, err := m.inspector.QueueDepth(taskQueue)
	if err != nil {
		m.logger.Warn("Failed to inspect task queue",
			slog.String("queue", taskQueue),
			slog.Any("error", err),
		)
		return
	}

	dlqDepth, err := m.inspector.QueueDepth(dlq)
	if err != nil {
		m.logger.Warn("Failed to inspect dead-letter queue",
			slog.String("queue", dlq),
			slog.Any("error", err),
		)
		return
	}

	if dlqDepth > 0 {
		m.logger.Warn("Dead-letter queue is not empty",
			slog.String("queue", dlq),
			slog.Int("depth", dlqDepth),
		)
	}

	m.logger.Info("Queue depths",
		slog.Int("task_queue", taskDepth),
		slog.Int("dead_letter_queue", dlqDepth),
	)
}
