package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	"github.com/dotastats-bot/internal/config"
	"github.com/dotastats-bot/internal/domain"
)

const (
	rejoinDelay      = time.Second
	deliverTimeout   = 10 * time.Second
	defaultFlushEach = 2 * time.Second
)

// ActivitySink processes decoded activity events
type ActivitySink interface {
	HandleActivity(ctx context.Context, events []domain.ActivityEvent) error
}

// Consumer follows the activity topic as a member of a consumer group
type Consumer struct {
	group   sarama.ConsumerGroup
	topic   string
	handler *claimHandler
	logger  *slog.Logger
}

// NewConsumer joins the configured consumer group. Nothing is read until Run.
func NewConsumer(cfg *config.KafkaConfig, sink ActivitySink, logger *slog.Logger) (*Consumer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_0_0_0
	saramaConfig.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	saramaConfig.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("creating kafka consumer group: %w", err)
	}
	return NewConsumerWith(group, cfg, sink, logger), nil
}

// NewConsumerWith wraps an existing consumer group
func NewConsumerWith(group sarama.ConsumerGroup, cfg *config.KafkaConfig, sink ActivitySink, logger *slog.Logger) *Consumer {
	flushEach := cfg.BatchTimeout
	if flushEach <= 0 {
		flushEach = defaultFlushEach
	}
	return &Consumer{
		group: group,
		topic: cfg.Topic,
		handler: &claimHandler{
			sink:      sink,
			batchSize: max(cfg.BatchSize, 1),
			flushEach: flushEach,
			logger:    logger,
		},
		logger: logger,
	}
}

// Run consumes until ctx is cancelled, then leaves the group. Sessions that
// end early (rebalances, broker errors) are rejoined.
func (c *Consumer) Run(ctx context.Context) error {
	go func() {
		for err := range c.group.Errors() {
			c.logger.Error("consumer group error", "error", err)
		}
	}()

	c.logger.Info("following activity topic", "topic", c.topic)
	for {
		err := c.group.Consume(ctx, []string{c.topic}, c.handler)
		switch {
		case errors.Is(err, sarama.ErrClosedConsumerGroup):
			return nil
		case ctx.Err() != nil:
			return c.group.Close()
		case err != nil:
			c.logger.Warn("consumer session failed, rejoining", "error", err)
			select {
			case <-ctx.Done():
				return c.group.Close()
			case <-time.After(rejoinDelay):
			}
		}
	}
}

// claimHandler delivers events in batches, by size or on a ticker
type claimHandler struct {
	sink      ActivitySink
	batchSize int
	flushEach time.Duration
	logger    *slog.Logger
}

func (*claimHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (*claimHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim marks every message on receipt, so a message the sink fails on
// is not redelivered. Messages that are not activity events are skipped.
func (h *claimHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	pending := make([]domain.ActivityEvent, 0, h.batchSize)
	ticker := time.NewTicker(h.flushEach)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				h.deliver(pending)
				return nil
			}
			if event, valid := h.decode(msg); valid {
				pending = append(pending, event)
			}
			session.MarkMessage(msg, "")
			if len(pending) >= h.batchSize {
				pending = h.deliver(pending)
			}

		case <-ticker.C:
			pending = h.deliver(pending)

		case <-session.Context().Done():
			h.deliver(pending)
			return nil
		}
	}
}

// deliver hands events to the sink and returns an empty batch to refill
func (h *claimHandler) deliver(events []domain.ActivityEvent) []domain.ActivityEvent {
	if len(events) == 0 {
		return events
	}

	ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
	defer cancel()

	if err := h.sink.HandleActivity(ctx, events); err != nil {
		h.logger.Error("activity sink failed", "events", len(events), "error", err)
	}
	return make([]domain.ActivityEvent, 0, h.batchSize)
}

func (h *claimHandler) decode(msg *sarama.ConsumerMessage) (domain.ActivityEvent, bool) {
	var event domain.ActivityEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		h.logger.Warn("skipping undecodable activity event", "partition", msg.Partition, "offset", msg.Offset, "error", err)
		return event, false
	}
	if event.Type == "" || event.TelegramID == 0 {
		h.logger.Warn("skipping incomplete activity event", "event_id", event.ID, "offset", msg.Offset)
		return event, false
	}
	return event, true
}
