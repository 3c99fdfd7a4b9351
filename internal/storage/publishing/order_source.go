// Package publishing публикует события после успешных записей в OrderSource.
package publishing

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ordersource/internal/domain"
	"github.com/vladislavdragonenkov/ordersource/internal/metrics"
)

// OrderSource отправляет order.saved, order.updated и order.deleted после успешной операции.
// Ошибка публикации не отменяет запись в хранилище.
type OrderSource struct {
	inner     domain.OrderSource
	publisher domain.EventPublisher
	metrics   *metrics.SourceMetrics
	logger    *log.Entry
}

// New оборачивает inner. m может быть nil.
func New(inner domain.OrderSource, publisher domain.EventPublisher, m *metrics.SourceMetrics, logger *log.Entry) *OrderSource {
	if logger == nil {
		logger = log.WithField("component", "order-events")
	}
	return &OrderSource{
		inner:     inner,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
	}
}

func (s *OrderSource) Load(ctx context.Context, id string) (*domain.Order, error) {
	return s.inner.Load(ctx, id)
}

func (s *OrderSource) Save(ctx context.Context, order *domain.Order) (string, error) {
	id, err := s.inner.Save(ctx, order)
	if err != nil {
		return "", err
	}
	s.publish(ctx, domain.EventTypeOrderSaved, order)
	return id, nil
}

func (s *OrderSource) Update(ctx context.Context, order *domain.Order) error {
	if err := s.inner.Update(ctx, order); err != nil {
		return err
	}
	s.publish(ctx, domain.EventTypeOrderUpdated, order)
	return nil
}

func (s *OrderSource) Delete(ctx context.Context, order *domain.Order) error {
	if err := s.inner.Delete(ctx, order); err != nil {
		return err
	}
	s.publish(ctx, domain.EventTypeOrderDeleted, order)
	return nil
}

func (s *OrderSource) publish(ctx context.Context, eventType domain.EventType, order *domain.Order) {
	event := domain.NewOrderEvent(eventType, order)
	if eventType == domain.EventTypeOrderDeleted {
		event.Items = nil
	}

	err := s.publisher.PublishOrderEvent(ctx, event)
	if s.metrics != nil {
		s.metrics.RecordEventPublished(string(eventType), err)
	}
	if err != nil {
		s.logger.WithError(err).WithFields(log.Fields{
			"event_type": eventType,
			"order_id":   order.ID,
		}).Warn("failed to publish order event")
	}
}

var _ domain.OrderSource = (*OrderSource)(nil)
