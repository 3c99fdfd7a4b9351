package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ordersource/internal/domain"
	"github.com/vladislavdragonenkov/ordersource/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/ordersource/internal/metrics"
	"github.com/vladislavdragonenkov/ordersource/internal/storage/publishing"
)

type eventProducer interface {
	domain.EventPublisher
	Close() error
}

var newEventProducer = func(brokers []string, topic string) (eventProducer, error) {
	producer, err := kafka.NewProducer(brokers, topic)
	if err != nil {
		return nil, err
	}
	return producer, nil
}

// attachEventPublishing добавляет внешний слой публикации событий, если заданы брокеры.
// Недоступная Kafka не мешает старту: сервис работает без событий.
func (d *runtimeDependencies) attachEventPublishing(cfg Config, m *metrics.SourceMetrics, logger *log.Entry) bool {
	if len(cfg.KafkaBrokers) == 0 {
		return false
	}

	producer, err := newEventProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without events")
		return false
	}

	d.source = publishing.New(d.source, producer, m, logger.WithField("layer", "publishing"))
	d.closers = append(d.closers, producer.Close)
	logger.WithFields(log.Fields{
		"brokers": cfg.KafkaBrokers,
		"topic":   cfg.KafkaTopic,
	}).Info("order events are published to kafka")
	return true
}
