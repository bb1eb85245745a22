package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Config holds RabbitMQ connection and topology configuration
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	VHost    string

	TaskExchange     string
	TaskQueue        string
	TaskRoutingKey   string
	ResultExchange   string
	ResultQueue      string
	ResultRoutingKey string
	DeadLetterQueue  string
	TaskTTL          time.Duration

	RetryAttempts      int
	RetryInterval      time.Duration
	Heartbeat          time.Duration
	ConnectionTimeout  time.Duration
	PublishRetries     int
	PublishRetryDelay  time.Duration
	PublishBackoffMult float64
}

// Client owns the broker connection and all exchange/queue topology.
// Nothing above this layer knows about exchanges, routing keys, or TTLs.
type Client struct {
	config      *Config
	conn        *amqp.Connection
	channel     *amqp.Channel
	logger      *slog.Logger
	closeChan   chan *amqp.Error
	pubMu       sync.Mutex
	mu          sync.RWMutex
	isConnected bool
	done        chan struct{}
}

// NewClient creates a new RabbitMQ client, connects with retry, and declares
// the full topology. A background goroutine redials on connection loss.
func NewClient(config *Config, logger *slog.Logger) (*Client, error) {
	client := &Client{
		config: config,
		logger: logger,
		done:   make(chan struct{}),
	}

	if err := client.connect(); err != nil {
		return nil, fmt.Errorf("failed to create RabbitMQ client: %w", err)
	}

	go client.monitorConnection()

	return client, nil
}

// connect establishes connection to RabbitMQ with retry logic
func (c *Client) connect() error {
	var err error

	dsn := fmt.Sprintf("amqp://%s:%s@%s:%d%s",
		c.config.User,
		c.config.Password,
		c.config.Host,
		c.config.Port,
		c.config.VHost,
	)

	amqpConfig := amqp.Config{
		Heartbeat: c.config.Heartbeat,
		Locale:    "en_US",
	}

	var conn *amqp.Connection
	for attempt := 1; attempt <= c.config.RetryAttempts; attempt++ {
		c.logger.Info("Connecting to RabbitMQ",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", c.config.RetryAttempts),
		)

		conn, err = amqp.DialConfig(dsn, amqpConfig)
		if err == nil {
			c.logger.Info("Successfully connected to RabbitMQ")
			break
		}

		c.logger.Error("Failed to connect to RabbitMQ",
			slog.Any("error", err),
			slog.Int("attempt", attempt),
		)

		if attempt < c.config.RetryAttempts {
			time.Sleep(c.config.RetryInterval)
		}
	}

	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", c.config.RetryAttempts, err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create channel: %w", err)
	}

	if err := setupTopology(channel, c.config); err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("failed to setup topology: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.channel = channel
	c.closeChan = make(chan *amqp.Error, 1)
	c.conn.NotifyClose(c.closeChan)
	c.isConnected = true
	c.mu.Unlock()

	c.logger.Info("RabbitMQ client initialized",
		slog.String("task_queue", c.config.TaskQueue),
		slog.String("result_queue", c.config.ResultQueue),
		slog.String("dead_letter_queue", c.config.DeadLetterQueue),
	)

	return nil
}

// monitorConnection redials with backoff whenever the broker drops the
// connection. Consumers observe the drop through their closed delivery
// channels and re-subscribe on top of the fresh connection.
func (c *Client) monitorConnection() {
	for {
		c.mu.RLock()
		closeChan := c.closeChan
		c.mu.RUnlock()

		var amqpErr *amqp.Error
		select {
		case <-c.done:
			return
		case amqpErr = <-closeChan:
		}

		select {
		case <-c.done:
			return
		default:
		}

		c.mu.Lock()
		c.isConnected = false
		c.mu.Unlock()

		c.logger.Warn("RabbitMQ connection lost, reconnecting",
			slog.Any("error", amqpErr),
		)

		delay := c.config.RetryInterval
		for {
			select {
			case <-c.done:
				return
			case <-time.After(delay):
			}

			if err := c.connect(); err == nil {
				break
			}

			if delay < time.Minute {
				delay *= 2
			}
			c.logger.Warn("Reconnect attempt failed, backing off",
				slog.Duration("next_retry_in", delay),
			)
		}
	}
}

// setupTopology declares both exchanges, both queues, the dead-letter queue,
// and all bindings. The task queue dead-letters into the DLQ after the
// configured TTL so an unconsumed task is never lost silently.
func setupTopology(channel *amqp.Channel, cfg *Config) error {
	err := channel.ExchangeDeclare(
		cfg.TaskExchange, // name
		"direct",         // type
		true,             // durable
		false,            // auto-deleted
		false,            // internal
		false,            // no-wait
		nil,              // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare task exchange: %w", err)
	}

	err = channel.ExchangeDeclare(
		cfg.ResultExchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare result exchange: %w", err)
	}

	_, err = channel.QueueDeclare(
		cfg.DeadLetterQueue, // name
		true,                // durable
		false,               // auto-delete
		false,               // exclusive
		false,               // no-wait
		nil,                 // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare dead-letter queue: %w", err)
	}

	_, err = channel.QueueDeclare(
		cfg.TaskQueue,
		true,
		false,
		false,
		false,
		TaskQueueArgs(cfg),
	)
	if err != nil {
		return fmt.Errorf("failed to declare task queue: %w", err)
	}

	_, err = channel.QueueDeclare(
		cfg.ResultQueue,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare result queue: %w", err)
	}

	err = channel.QueueBind(
		cfg.TaskQueue,      // queue name
		cfg.TaskRoutingKey, // routing key
		cfg.TaskExchange,   // exchange
		false,              // no-wait
		nil,                // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to bind task queue: %w", err)
	}

	err = channel.QueueBind(
		cfg.ResultQueue,
		cfg.ResultRoutingKey,
		cfg.ResultExchange,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to bind result queue: %w", err)
	}

	return nil
}

// TaskQueueArgs builds the declare arguments for the task queue: expired or
// rejected tasks route to the dead-letter queue via the default exchange.
func TaskQueueArgs(cfg *Config) amqp.Table {
	return amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": cfg.DeadLetterQueue,
		"x-message-ttl":             cfg.TaskTTL.Milliseconds(),
	}
}

// PublishTask publishes a persistent task message keyed by job id.
func (c *Client) PublishTask(ctx context.Context, jobID string, body []byte) error {
	return c.publishWithRetry(ctx, c.config.TaskExchange, c.config.TaskRoutingKey, jobID, body)
}

// PublishResult publishes a persistent result message keyed by job id.
func (c *Client) PublishResult(ctx context.Context, jobID string, body []byte) error {
	return c.publishWithRetry(ctx, c.config.ResultExchange, c.config.ResultRoutingKey, jobID, body)
}

// publishBackoff returns base scaled by mult^attempt.
func publishBackoff(base time.Duration, mult float64, attempt int) time.Duration {
	delay := float64(base)
	for i := 0; i < attempt; i++ {
		delay *= mult
	}
	return time.Duration(delay)
}

// publishWithRetry publishes with retry logic and exponential backoff. The
// message id and correlation id are both set to the job id for downstream
// tracing.
func (c *Client) publishWithRetry(ctx context.Context, exchange, routingKey, jobID string, body []byte) error {
	if !c.IsConnected() {
		return fmt.Errorf("not connected to RabbitMQ")
	}

	maxRetries := c.config.PublishRetries
	if maxRetries <= 0 {
		maxRetries = 3 // default
	}

	baseDelay := c.config.PublishRetryDelay
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond // default
	}

	backoffMult := c.config.PublishBackoffMult
	if backoffMult <= 1 {
		backoffMult = 2 // default
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		c.mu.RLock()
		channel := c.channel
		c.mu.RUnlock()

		c.pubMu.Lock()
		err := channel.PublishWithContext(
			ctx,
			exchange,   // exchange
			routingKey, // routing key
			false,      // mandatory
			false,      // immediate
			amqp.Publishing{
				ContentType:   "application/json",
				Body:          body,
				DeliveryMode:  amqp.Persistent,
				MessageId:     jobID,
				CorrelationId: jobID,
				Timestamp:     time.Now(),
			},
		)
		c.pubMu.Unlock()

		if err == nil {
			if attempt > 0 {
				c.logger.Info("Published message to RabbitMQ after retry",
					slog.Int("attempt", attempt+1),
					slog.String("job_id", jobID),
				)
			} else {
				c.logger.Debug("Message published to RabbitMQ",
					slog.String("exchange", exchange),
					slog.String("job_id", jobID),
					slog.Int("body_size", len(body)),
				)
			}
			return nil
		}

		lastErr = err

		if attempt < maxRetries {
			backoffDelay := publishBackoff(baseDelay, backoffMult, attempt)
			c.logger.Warn("Failed to publish message to RabbitMQ, retrying...",
				slog.Int("attempt", attempt+1),
				slog.Int("max_retries", maxRetries),
				slog.Duration("retry_after", backoffDelay),
				slog.Any("error", err),
			)
			select {
			case <-ctx.Done():
				return fmt.Errorf("publish cancelled: %w", ctx.Err())
			case <-time.After(backoffDelay):
			}
		}
	}

	c.logger.Error("Failed to publish message to RabbitMQ after all retries",
		slog.Int("attempts", maxRetries+1),
		slog.String("job_id", jobID),
		slog.Any("error", lastErr),
	)
	return fmt.Errorf("failed to publish message after %d attempts: %w", maxRetries+1, lastErr)
}

// ConsumeTasks opens a dedicated consumer on the task queue with prefetch=1.
func (c *Client) ConsumeTasks(consumerTag string) (*Consumer, error) {
	return c.newConsumer(c.config.TaskQueue, consumerTag)
}

// ConsumeResults opens a dedicated consumer on the result queue with
// prefetch=1.
func (c *Client) ConsumeResults(consumerTag string) (*Consumer, error) {
	return c.newConsumer(c.config.ResultQueue, consumerTag)
}

// newConsumer opens a fresh channel so each consumer has its own QoS window:
// one unacknowledged message in flight, which spreads load evenly and lets a
// crashed consumer's message be redelivered instead of lost.
func (c *Client) newConsumer(queue, consumerTag string) (*Consumer, error) {
	c.mu.RLock()
	conn := c.conn
	connected := c.isConnected
	c.mu.RUnlock()

	if !connected || conn == nil {
		return nil, fmt.Errorf("not connected to RabbitMQ")
	}

	channel, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open consumer channel: %w", err)
	}

	if err := channel.Qos(1, 0, false); err != nil {
		channel.Close()
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	deliveries, err := channel.Consume(
		queue,       // queue
		consumerTag, // consumer tag
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		channel.Close()
		return nil, fmt.Errorf("failed to consume messages: %w", err)
	}

	c.logger.Info("Started consuming messages from RabbitMQ",
		slog.String("queue", queue),
		slog.String("consumer_tag", consumerTag),
	)

	return &Consumer{
		channel:    channel,
		Deliveries: deliveries,
		queue:      queue,
		tag:        consumerTag,
		logger:     c.logger,
	}, nil
}

// QueueDepth returns the number of ready messages sitting in a queue.
func (c *Client) QueueDepth(queue string) (int, error) {
	c.mu.RLock()
	channel := c.channel
	connected := c.isConnected
	c.mu.RUnlock()

	if !connected || channel == nil {
		return 0, fmt.Errorf("not connected to RabbitMQ")
	}

	state, err := channel.QueueInspect(queue)
	if err != nil {
		return 0, fmt.Errorf("failed to inspect queue %s: %w", queue, err)
	}

	return state.Messages, nil
}

// TaskQueueName returns the configured task queue name.
func (c *Client) TaskQueueName() string { return c.config.TaskQueue }

// DeadLetterQueueName returns the configured dead-letter queue name.
func (c *Client) DeadLetterQueueName() string { return c.config.DeadLetterQueue }

// IsConnected returns the connection status
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isConnected && c.conn != nil && !c.conn.IsClosed()
}

// Close closes the RabbitMQ connection
func (c *Client) Close() error {
	c.logger.Info("Closing RabbitMQ connection")

	close(c.done)

	c.mu.Lock()
	c.isConnected = false
	channel := c.channel
	conn := c.conn
	c.mu.Unlock()

	if channel != nil {
		if err := channel.Close(); err != nil {
			c.logger.Error("Failed to close RabbitMQ channel",
				slog.Any("error", err),
			)
		}
	}

	if conn != nil {
		if err := conn.Close(); err != nil {
			c.logger.Error("Failed to close RabbitMQ connection",
				slog.Any("error", err),
			)
			return err
		}
	}

	c.logger.Info("RabbitMQ connection closed successfully")
	return nil
}
