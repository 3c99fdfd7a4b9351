// Package instrumented снимает метрики Prometheus с операций любого OrderSource.
package instrumented

import (
	"context"
	"time"

	"github.com/vladislavdragonenkov/ordersource/internal/domain"
	"github.com/vladislavdragonenkov/ordersource/internal/metrics"
)

// OrderSource измеряет количество и длительность операций вложенного хранилища.
type OrderSource struct {
	inner   domain.OrderSource
	backend string
	metrics *metrics.SourceMetrics
	now     func() time.Time
}

// New оборачивает inner. backend попадает в одноимённую метку.
func New(inner domain.OrderSource, backend string, m *metrics.SourceMetrics) *OrderSource {
	return &OrderSource{
		inner:   inner,
		backend: backend,
		metrics: m,
		now:     time.Now,
	}
}

func (s *OrderSource) Load(ctx context.Context, id string) (*domain.Order, error) {
	started := s.now()
	order, err := s.inner.Load(ctx, id)
	s.record("load", started, err)
	return order, err
}

func (s *OrderSource) Save(ctx context.Context, order *domain.Order) (string, error) {
	started := s.now()
	id, err := s.inner.Save(ctx, order)
	s.record("save", started, err)
	return id, err
}

func (s *OrderSource) Update(ctx context.Context, order *domain.Order) error {
	started := s.now()
	err := s.inner.Update(ctx, order)
	s.record("update", started, err)
	return err
}

func (s *OrderSource) Delete(ctx context.Context, order *domain.Order) error {
	started := s.now()
	err := s.inner.Delete(ctx, order)
	s.record("delete", started, err)
	return err
}

func (s *OrderSource) record(operation string, started time.Time, err error) {
	s.metrics.RecordOperation(s.backend, operation, resultOf(err), s.now().Sub(started))
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return metrics.ResultOK
	case domain.IsNotFound(err):
		return metrics.ResultNotFound
	case domain.IsTransportFailure(err):
		return metrics.ResultTransportFailure
	default:
		return metrics.ResultError
	}
}

var _ domain.OrderSource = (*OrderSource)(nil)
