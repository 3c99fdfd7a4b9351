package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ordersource/internal/domain"
)

// Producer пишет события заказов через sarama.SyncProducer.
type Producer struct {
	sync   sarama.SyncProducer
	topic  string
	logger *log.Entry
}

// producerConfig включает идемпотентную запись с подтверждением от всех реплик.
func producerConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Idempotent = true
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Compression = sarama.CompressionSnappy
	cfg.Net.MaxOpenRequests = 1
	return cfg
}

// NewProducer подключается к брокерам. Пустой topic заменяется TopicOrderEvents.
func NewProducer(brokers []string, topic string) (*Producer, error) {
	sync, err := sarama.NewSyncProducer(brokers, producerConfig())
	if err != nil {
		return nil, fmt.Errorf("create kafka producer for %v: %w", brokers, err)
	}
	return newProducer(sync, topic), nil
}

func newProducer(sync sarama.SyncProducer, topic string) *Producer {
	if topic == "" {
		topic = TopicOrderEvents
	}
	return &Producer{
		sync:   sync,
		topic:  topic,
		logger: log.WithFields(log.Fields{"component": "kafka-producer", "topic": topic}),
	}
}

// PublishOrderEvent отправляет событие с ключом order_id: события одного заказа идут в одну партицию.
func (p *Producer) PublishOrderEvent(ctx context.Context, event domain.OrderEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	header := sarama.RecordHeader{Key: []byte(HeaderEventType), Value: []byte(event.EventType)}
	return p.publish(p.topic, event.OrderID, event, []sarama.RecordHeader{header})
}

func (p *Producer) publish(topic, key string, payload any, headers []sarama.RecordHeader) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s message: %w", topic, err)
	}

	fields := log.Fields{"topic": topic, "key": key}
	partition, offset, err := p.sync.SendMessage(&sarama.ProducerMessage{
		Topic:     topic,
		Key:       sarama.StringEncoder(key),
		Value:     sarama.ByteEncoder(body),
		Headers:   headers,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		p.logger.WithError(err).WithFields(fields).Error("kafka send failed")
		return fmt.Errorf("send %s message: %w", topic, err)
	}

	fields["partition"] = partition
	fields["offset"] = offset
	p.logger.WithFields(fields).Debug("kafka message delivered")
	return nil
}

// Close сбрасывает буферы и закрывает соединения с брокерами.
func (p *Producer) Close() error {
	if err := p.sync.Close(); err != nil {
		return fmt.Errorf("close kafka producer: %w", err)
	}
	return nil
}

var _ domain.EventPublisher = (*Producer)(nil)
