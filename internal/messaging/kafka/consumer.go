package kafka

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ordersource/internal/domain"
)

// Причины помещения сообщения в карантин.
const (
	ReasonMalformed     = "malformed"
	ReasonHandlerFailed = "handler_failed"
)

// EventHandler получает декодированное событие заказа.
type EventHandler func(ctx context.Context, event domain.OrderEvent) error

// ConsumerConfig задаёт подписку на события заказов.
type ConsumerConfig struct {
	Brokers []string
	GroupID string
	Topic   string
	// Quarantine получает сообщения, которые не удалось обработать. Без него
	// нераспознанные сообщения пропускаются, а ошибки обработчика оставляют offset непомеченным.
	Quarantine  *Producer
	MaxAttempts int
	RetryDelay  time.Duration
}

// Consumer читает события заказов из consumer group.
type Consumer struct {
	group  sarama.ConsumerGroup
	cfg    ConsumerConfig
	handle EventHandler
	logger *log.Entry
}

// NewConsumer подключается к consumer group. Пустой Topic заменяется TopicOrderEvents.
func NewConsumer(cfg ConsumerConfig, handle EventHandler, logger *log.Entry) (*Consumer, error) {
	if handle == nil {
		return nil, errors.New("kafka consumer requires an event handler")
	}

	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	config.Consumer.Offsets.Initial = sarama.OffsetNewest
	config.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}
	return newConsumer(group, cfg, handle, logger), nil
}

func newConsumer(group sarama.ConsumerGroup, cfg ConsumerConfig, handle EventHandler, logger *log.Entry) *Consumer {
	if cfg.Topic == "" {
		cfg.Topic = TopicOrderEvents
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = 0
	}
	if logger == nil {
		logger = log.WithField("component", "kafka-consumer")
	}
	return &Consumer{group: group, cfg: cfg, handle: handle, logger: logger}
}

// Run читает события до отмены ctx и закрывает consumer group.
func (c *Consumer) Run(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for err := range c.group.Errors() {
			c.logger.WithError(err).Error("consumer error")
		}
	}()

	c.logger.WithField("topic", c.cfg.Topic).Info("kafka consumer started")
	for ctx.Err() == nil {
		// Consume возвращается при каждом rebalance.
		if err := c.group.Consume(ctx, []string{c.cfg.Topic}, c); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				break
			}
			c.logger.WithError(err).Error("error from consumer")
		}
	}

	err := c.group.Close()
	<-done
	if err != nil {
		return fmt.Errorf("failed to close kafka consumer: %w", err)
	}
	c.logger.Info("kafka consumer stopped")
	return nil
}

// Setup вызывается при старте сессии.
func (c *Consumer) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

// Cleanup вызывается при завершении сессии.
func (c *Consumer) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim обрабатывает сообщения одной партиции.
func (c *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok || message == nil {
				return nil
			}
			if err := c.process(session.Context(), message); err != nil {
				c.logger.WithError(err).WithFields(messageFields(message)).Error("order event left unacknowledged")
				continue
			}
			session.MarkMessage(message, "")
		case <-session.Context().Done():
			return nil
		}
	}
}

// process возвращает nil, если сообщение можно пометить прочитанным.
func (c *Consumer) process(ctx context.Context, message *sarama.ConsumerMessage) error {
	event, err := ParseOrderEvent(message)
	if err != nil {
		if c.cfg.Quarantine == nil {
			c.logger.WithError(err).WithFields(messageFields(message)).Warn("skipping malformed order event")
			return nil
		}
		return c.quarantine(message, ReasonMalformed, 0, err)
	}

	attempt := 1
	for {
		err = c.handle(ctx, *event)
		if err == nil {
			return nil
		}
		if attempt >= c.cfg.MaxAttempts {
			break
		}

		c.logger.WithError(err).WithFields(log.Fields{
			"order_id": event.OrderID,
			"attempt":  attempt,
		}).Warn("order event handler failed, will retry")
		attempt++

		if c.cfg.RetryDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.cfg.RetryDelay):
			}
		}
	}

	if c.cfg.Quarantine == nil {
		return err
	}
	return c.quarantine(message, ReasonHandlerFailed, attempt, err)
}

func (c *Consumer) quarantine(message *sarama.ConsumerMessage, reason string, attempts int, cause error) error {
	failedAt := time.Now().UTC().Format(time.RFC3339)

	err := c.cfg.Quarantine.publish(TopicDeadLetterQueue, string(message.Key), DeadLetter{
		OriginalTopic:     message.Topic,
		OriginalPartition: message.Partition,
		OriginalOffset:    message.Offset,
		OriginalKey:       string(message.Key),
		OriginalValue:     string(message.Value),
		Reason:            reason,
		ErrorMessage:      cause.Error(),
		FailedAt:          failedAt,
		Attempts:          attempts,
	}, []sarama.RecordHeader{
		{Key: []byte(HeaderOriginalTopic), Value: []byte(message.Topic)},
		{Key: []byte(HeaderReason), Value: []byte(reason)},
		{Key: []byte(HeaderErrorMessage), Value: []byte(cause.Error())},
		{Key: []byte(HeaderFailedAt), Value: []byte(failedAt)},
		{Key: []byte(HeaderAttempts), Value: []byte(strconv.Itoa(attempts))},
	})
	if err != nil {
		return fmt.Errorf("quarantine order event: %w", err)
	}

	c.logger.WithFields(messageFields(message)).WithField("reason", reason).Info("order event quarantined")
	return nil
}

func messageFields(message *sarama.ConsumerMessage) log.Fields {
	return log.Fields{
		"topic":     message.Topic,
		"partition": message.Partition,
		"offset":    message.Offset,
	}
}
