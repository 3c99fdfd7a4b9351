package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Значения метки result.
const (
	ResultOK               = "ok"
	ResultNotFound         = "not_found"
	ResultTransportFailure = "transport_failure"
	ResultError            = "error"
)

// SourceMetrics содержит метрики операций хранилища заказов и публикации событий.
type SourceMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec

	eventsPublished *prometheus.CounterVec
}

// NewSourceMetrics регистрирует метрики в DefaultRegisterer.
func NewSourceMetrics() *SourceMetrics {
	return NewSourceMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewSourceMetricsWithRegisterer регистрирует метрики в переданном реестре.
// Повторная регистрация возвращает уже существующие коллекторы.
func NewSourceMetricsWithRegisterer(registerer prometheus.Registerer) *SourceMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &SourceMetrics{
		operations: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "ordersource_operations_total",
			Help: "Total number of order source operations by backend, operation and result",
		}, []string{"backend", "operation", "result"}),
		duration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "ordersource_operation_duration_seconds",
			Help:    "Duration of order source operations in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"backend", "operation"}),
		eventsPublished: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "ordersource_events_published_total",
			Help: "Total number of order events handed to the event bus",
		}, []string{"event_type", "result"}),
	}
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// RecordOperation учитывает одну операцию хранилища.
func (m *SourceMetrics) RecordOperation(backend, operation, result string, duration time.Duration) {
	m.operations.WithLabelValues(backend, operation, result).Inc()
	m.duration.WithLabelValues(backend, operation).Observe(duration.Seconds())
}

// RecordEventPublished учитывает попытку публикации события.
func (m *SourceMetrics) RecordEventPublished(eventType string, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	m.eventsPublished.WithLabelValues(eventType, result).Inc()
}
