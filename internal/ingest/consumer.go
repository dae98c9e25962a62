// Voltaic - Building Energy Analytics and Time-Series Decimation
// Copyright 2026 Voltaic Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/voltaic-labs/voltaic

package ingest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/voltaic-labs/voltaic/internal/logging"
	"github.com/voltaic-labs/voltaic/internal/metrics"
	"github.com/voltaic-labs/voltaic/internal/models"
)

// ReadingStore persists reading batches. Implemented by database.DB.
type ReadingStore interface {
	InsertReadingBatch(ctx context.Context, readings []*models.Reading) error
	EnsureDevice(ctx context.Context, deviceID string) error
	TouchDeviceLastSeen(ctx context.Context, deviceID string) error
}

// Broadcaster pushes readings to live chart subscribers. Implemented
// by the websocket hub; nil disables live streaming.
type Broadcaster interface {
	BroadcastReading(r *models.Reading)
}

// MessageSource is the subscription surface the consumer reads from.
type MessageSource interface {
	Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error)
	Close() error
}

// ConsumerConfig holds batch consumer settings.
type ConsumerConfig struct {
	BatchSize     int
	FlushInterval time.Duration
}

// ConsumerStats holds runtime statistics for monitoring.
type ConsumerStats struct {
	MessagesReceived  int64
	MessagesProcessed int64
	ParseErrors       int64
	FlushErrors       int64
	LastMessageTime   time.Time
}

// pendingReading pairs a buffered reading with the stream message it
// came from, so the message can be acked or nacked when the batch
// reaches storage.
type pendingReading struct {
	reading *models.Reading
	msg     *message.Message
}

// BatchConsumer reads events from the telemetry stream and writes them
// to storage in batches, flushing when the batch fills or the interval
// elapses. Messages are acked only after the batch insert succeeds;
// a failed flush nacks the batch so JetStream redelivers it, and the
// idempotent insert makes any partial overlap harmless.
type BatchConsumer struct {
	source      MessageSource
	store       ReadingStore
	broadcaster Broadcaster
	config      ConsumerConfig
	breaker     *gobreaker.CircuitBreaker[interface{}]

	mu     sync.Mutex
	buffer []pendingReading

	running atomic.Bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	messagesReceived  atomic.Int64
	messagesProcessed atomic.Int64
	parseErrors       atomic.Int64
	flushErrors       atomic.Int64
	lastMessageTime   atomic.Value // time.Time
}

// NewBatchConsumer creates a batch consumer. broadcaster may be nil.
func NewBatchConsumer(source MessageSource, store ReadingStore, broadcaster Broadcaster, cfg ConsumerConfig) (*BatchConsumer, error) {
	if source == nil {
		return nil, fmt.Errorf("message source required")
	}
	if store == nil {
		return nil, fmt.Errorf("reading store required")
	}
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive")
	}
	if cfg.FlushInterval <= 0 {
		return nil, fmt.Errorf("flush interval must be positive")
	}

	c := &BatchConsumer{
		source:      source,
		store:       store,
		broadcaster: broadcaster,
		config:      cfg,
		buffer:      make([]pendingReading, 0, cfg.BatchSize),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
	c.lastMessageTime.Store(time.Time{})

	return c, nil
}

// SetCircuitBreaker guards the storage write path. While the breaker
// is open, flushes fail fast and their batches are nacked back to the
// stream instead of stacking DuckDB timeouts.
func (c *BatchConsumer) SetCircuitBreaker(cb *gobreaker.CircuitBreaker[interface{}]) {
	c.breaker = cb
}

// Start subscribes to the readings topic and begins consuming.
// Blocks until the context is canceled or Stop is called.
func (c *BatchConsumer) Start(ctx context.Context) error {
	if c.running.Swap(true) {
		return fmt.Errorf("consumer already running")
	}
	defer close(c.doneCh)

	msgs, err := c.source.Subscribe(ctx, TopicReadings)
	if err != nil {
		c.running.Store(false)
		return fmt.Errorf("subscribe %s: %w", TopicReadings, err)
	}

	logging.Info().
		Str("topic", TopicReadings).
		Int("batch_size", c.config.BatchSize).
		Dur("flush_interval", c.config.FlushInterval).
		Msg("Batch consumer started")

	ticker := time.NewTicker(c.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.flush(context.Background())
			return ctx.Err()
		case <-c.stopCh:
			c.flush(context.Background())
			return nil
		case <-ticker.C:
			c.flush(ctx)
		case msg, ok := <-msgs:
			if !ok {
				c.flush(context.Background())
				return nil
			}
			c.handleMessage(ctx, msg)
		}
	}
}

// Stop signals the consumer to flush and exit, then waits for it.
func (c *BatchConsumer) Stop() {
	if !c.running.Swap(false) {
		return
	}
	close(c.stopCh)
	<-c.doneCh
}

// Stats returns a snapshot of the consumer counters.
func (c *BatchConsumer) Stats() ConsumerStats {
	last, _ := c.lastMessageTime.Load().(time.Time)
	return ConsumerStats{
		MessagesReceived:  c.messagesReceived.Load(),
		MessagesProcessed: c.messagesProcessed.Load(),
		ParseErrors:       c.parseErrors.Load(),
		FlushErrors:       c.flushErrors.Load(),
		LastMessageTime:   last,
	}
}

func (c *BatchConsumer) handleMessage(ctx context.Context, msg *message.Message) {
	c.messagesReceived.Add(1)
	c.lastMessageTime.Store(time.Now())
	metrics.NATSMessagesConsumed.Inc()

	event, err := DeserializeEvent(msg.Payload)
	if err != nil {
		c.parseErrors.Add(1)
		metrics.NATSMessagesParseFailed.Inc()
		logging.Warn().Err(err).Str("message_id", msg.UUID).Msg("Failed to parse reading event")
		// Ack anyway: a malformed payload never becomes parseable.
		msg.Ack()
		return
	}
	if err := event.Validate(); err != nil {
		c.parseErrors.Add(1)
		metrics.NATSMessagesParseFailed.Inc()
		logging.Warn().Err(err).Str("message_id", msg.UUID).Msg("Invalid reading event")
		msg.Ack()
		return
	}

	reading := event.ToReading()

	c.mu.Lock()
	c.buffer = append(c.buffer, pendingReading{reading: reading, msg: msg})
	needsFlush := len(c.buffer) >= c.config.BatchSize
	c.mu.Unlock()

	if c.broadcaster != nil {
		c.broadcaster.BroadcastReading(reading)
	}

	if needsFlush {
		c.flush(ctx)
	}
}

// flush writes the buffered readings to storage, then acks their
// messages. On failure the batch is nacked and dropped; JetStream
// redelivers it.
func (c *BatchConsumer) flush(ctx context.Context) {
	c.mu.Lock()
	if len(c.buffer) == 0 {
		c.mu.Unlock()
		return
	}
	batch := c.buffer
	c.buffer = make([]pendingReading, 0, c.config.BatchSize)
	c.mu.Unlock()

	readings := make([]*models.Reading, len(batch))
	for i, p := range batch {
		readings[i] = p.reading
	}

	start := time.Now()
	err := c.insertBatch(ctx, readings)
	metrics.RecordBatchFlush(len(batch), time.Since(start))

	if err != nil {
		c.flushErrors.Add(1)
		logging.Error().Err(err).Int("batch_size", len(batch)).Msg("Batch flush failed, nacking for redelivery")
		for _, p := range batch {
			p.msg.Nack()
		}
		return
	}

	for _, p := range batch {
		p.msg.Ack()
	}
	c.messagesProcessed.Add(int64(len(batch)))
	metrics.NATSMessagesProcessed.Add(float64(len(batch)))

	// Register devices and bump last_seen once per device per batch.
	seen := make(map[string]struct{}, 8)
	for _, r := range readings {
		if _, ok := seen[r.DeviceID]; ok {
			continue
		}
		seen[r.DeviceID] = struct{}{}
		if err := c.store.EnsureDevice(ctx, r.DeviceID); err != nil {
			logging.Warn().Err(err).Str("device_id", r.DeviceID).Msg("Failed to register device")
			continue
		}
		if err := c.store.TouchDeviceLastSeen(ctx, r.DeviceID); err != nil {
			logging.Warn().Err(err).Str("device_id", r.DeviceID).Msg("Failed to touch device")
		}
	}
}

// insertBatch runs the storage write, through the circuit breaker when
// one is configured.
func (c *BatchConsumer) insertBatch(ctx context.Context, readings []*models.Reading) error {
	if c.breaker == nil {
		return c.store.InsertReadingBatch(ctx, readings)
	}
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.store.InsertReadingBatch(ctx, readings)
	})
	return err
}
